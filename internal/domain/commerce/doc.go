// Package commerce holds the persisted storefront entities: catalog, carts, orders,
// payments, shipments, the stock audit trail and the event outbox.
//
// The order status machine lives here as pure functions so the aggregates and the
// HTTP layer share one transition table.
package commerce
