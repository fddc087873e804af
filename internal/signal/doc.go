// Package signal defines the shared types that flow through signalhub.
//
// Conventions:
//   - Commands: canonical "BUY" / "SELL" only
//   - Prices: shopspring decimals, NullDecimal when a grammar does not define the field
//   - Timestamps: time.Time, serialized as milliseconds since Unix epoch on the wire
package signal
