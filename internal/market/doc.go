// Package market implements the Market Registry component.
//
// The Market Registry:
//   - Loads the market catalog via REST on startup
//   - Reconciles the catalog periodically
//   - Resolves exchange+symbol pairs for the alert manager
//   - Notifies subscribers of market additions, removals and status changes
package market
