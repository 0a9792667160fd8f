// Package aggregates contains infrastructure implementations of domain aggregate contracts.
//
// Implementations in this package compose table-level repos from internal/data/repos
// and own transaction boundaries for stock, order status and payment writes. The
// inventory ledger and the order status mutator also expose tx-scoped methods that
// other aggregates join, so a checkout or a payment cascade commits as one unit.
package aggregates
