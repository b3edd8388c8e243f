// Package config loads the alerts daemon configuration.
//
// Values come from a YAML file with ${VAR} expansion, then from ALERTS_*
// environment overrides, then from defaults.
package config
