// Package model defines shared value types used across the alerts service.
//
// Conventions:
//   - Markets are owned by the resolver; everything else holds *Market pointers
//     and compares markets by Key (exchange id + symbol).
//   - Monetary and volume values are decimal.Decimal, never float64.
//   - Wire timestamps are RFC 3339 strings or epoch milliseconds.
//   - Wire durations are integer milliseconds.
package model
