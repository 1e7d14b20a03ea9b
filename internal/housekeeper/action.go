// Package housekeeper implements the background maintenance scheduler: a
// delay queue of maintenance actions, a purge dispatcher, and the
// cooperative scheduler loop that ties them together.
package housekeeper

// ActionKind identifies a unit of recurring or one-shot scheduled work.
// Equality is structural: two ActionKind values are equal iff Tag matches
// and, for the Store and Acme tags, their payload field also matches. This
// is the sole identity used by the queue's Schedule/RemoveAction/HasAction
// operations.
type ActionKind struct {
	Tag        ActionTag
	StoreIndex uint32 // valid when Tag == ActionStore
	ProviderID string // valid when Tag == ActionAcme
}

// ActionTag is the closed set of maintenance action kinds.
type ActionTag int

const (
	ActionAccount ActionTag = iota
	ActionStore
	ActionAcme
	ActionOtelMetrics
	ActionCalculateMetrics
)

func (t ActionTag) String() string {
	switch t {
	case ActionAccount:
		return "account"
	case ActionStore:
		return "store"
	case ActionAcme:
		return "acme"
	case ActionOtelMetrics:
		return "otel_metrics"
	case ActionCalculateMetrics:
		return "calculate_metrics"
	default:
		return "unknown"
	}
}

// Account is the singleton ActionKind for the account expiry sweep.
func Account() ActionKind { return ActionKind{Tag: ActionAccount} }

// Store is the ActionKind for the data-store purge schedule at index i.
func Store(i uint32) ActionKind { return ActionKind{Tag: ActionStore, StoreIndex: i} }

// Acme is the ActionKind for the renewal of the named ACME provider.
func Acme(providerID string) ActionKind { return ActionKind{Tag: ActionAcme, ProviderID: providerID} }

// OtelMetrics is the singleton ActionKind for the metrics push tick.
func OtelMetrics() ActionKind { return ActionKind{Tag: ActionOtelMetrics} }

// CalculateMetrics is the singleton ActionKind for the gauge recompute tick.
func CalculateMetrics() ActionKind { return ActionKind{Tag: ActionCalculateMetrics} }

// Equal reports structural equality, the identity used throughout the
// queue.
func (k ActionKind) Equal(other ActionKind) bool {
	if k.Tag != other.Tag {
		return false
	}
	switch k.Tag {
	case ActionStore:
		return k.StoreIndex == other.StoreIndex
	case ActionAcme:
		return k.ProviderID == other.ProviderID
	default:
		return true
	}
}

// Recurring reports whether this ActionKind re-schedules itself
// immediately upon firing. Acme is the sole exception: its next occurrence
// is driven by an AcmeRescheduleEvent fed back from the renewal task, since
// only that task knows the certificate's real expiry.
func (k ActionKind) Recurring() bool {
	return k.Tag != ActionAcme
}
