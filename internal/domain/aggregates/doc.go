// Package aggregates defines domain-facing aggregate contracts for the order lifecycle.
//
// These contracts avoid persistence/transport details and mark the semantic write
// boundaries where stock, order status and money invariants must hold atomically.
package aggregates
