package aggregates

import (
	"slices"

	"github.com/yungbote/techwave-backend/internal/authz"
)

// WriteTxOwnership says whether an aggregate only opens its own transactions or also
// exposes *Tx methods that another aggregate calls inside its transaction.
type WriteTxOwnership string

const (
	WriteTxOwnedByAggregate WriteTxOwnership = "aggregate_owned"
	// WriteTxComposable aggregates can be joined, e.g. the inventory ledger inside checkout.
	WriteTxComposable WriteTxOwnership = "composable"
)

// ReadPolicy says which reads an aggregate serves.
type ReadPolicy string

const (
	// ReadPolicyInvariantScoped: reads only back write decisions, such as current stock.
	ReadPolicyInvariantScoped ReadPolicy = "invariant_scoped_reads"
	// ReadPolicyOwnerScoped: reads are filtered to the caller unless the caller is staff.
	ReadPolicyOwnerScoped ReadPolicy = "owner_scoped_reads"
)

// Contract is the static description of an aggregate: its transaction shape, its
// read policy, the authz actions it checks and the outbox events it writes.
type Contract struct {
	Name             string
	WriteTxOwnership WriteTxOwnership
	ReadPolicy       ReadPolicy
	Actions          []authz.Action
	Emits            []string
	Notes            string
}

type Aggregate interface {
	Contract() Contract
}

// Composable reports whether other aggregates may call into this one mid-transaction.
func (c Contract) Composable() bool {
	return c.WriteTxOwnership == WriteTxComposable
}

// Declares reports whether eventType is one of the events the aggregate writes.
func (c Contract) Declares(eventType string) bool {
	return slices.Contains(c.Emits, eventType)
}

// Checks reports whether the aggregate authorizes action.
func (c Contract) Checks(action authz.Action) bool {
	return slices.Contains(c.Actions, action)
}

// LogFields renders c for the startup log.
func (c Contract) LogFields() []any {
	return []any{
		"aggregate", c.Name,
		"write_tx", string(c.WriteTxOwnership),
		"reads", string(c.ReadPolicy),
		"emits", c.Emits,
	}
}

// Actor is re-exported so callers of the contracts need a single import.
type Actor = authz.Actor
