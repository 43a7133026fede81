package types

import "go.dedis.ch/coffeetrace/core/access"

// EventKind is the type of an accepted mutation.
type EventKind string

// Kinds of events emitted by the supply chain contract. A batch goes through
// cultivation, harvesting, inspection, processing, exporting and importing.
const (
	// EventUserUpdate is emitted when a user profile is created or updated.
	EventUserUpdate EventKind = "UserUpdate"

	// EventUserRoleUpdate is emitted when the owner changes the role of a
	// user.
	EventUserRoleUpdate EventKind = "UserRoleUpdate"

	// EventPerformCultivation is emitted when a new batch is registered.
	EventPerformCultivation EventKind = "PerformCultivation"

	// EventDoneHarvesting is emitted when a farmer records the harvest.
	EventDoneHarvesting EventKind = "DoneHarvesting"

	// EventDoneInspection is emitted when an inspector records the
	// inspection of a batch.
	EventDoneInspection EventKind = "DoneInspection"

	// EventDoneProcessing is emitted when a processor records the
	// processing of a batch.
	EventDoneProcessing EventKind = "DoneProcessing"

	// EventDoneExporting is emitted when an exporter ships a batch.
	EventDoneExporting EventKind = "DoneExporting"

	// EventDoneImporting is emitted when an importer receives a batch.
	EventDoneImporting EventKind = "DoneImporting"

	// EventOwnershipTransferred is emitted when the owner hands over the
	// contract.
	EventOwnershipTransferred EventKind = "OwnershipTransferred"

	// EventOwnershipRenounced is emitted when the owner gives up the
	// contract and leaves it without an owner.
	EventOwnershipRenounced EventKind = "OwnershipRenounced"
)

// EventKinds returns every kind of event.
func EventKinds() []EventKind {
	return []EventKind{
		EventUserUpdate,
		EventUserRoleUpdate,
		EventPerformCultivation,
		EventDoneHarvesting,
		EventDoneInspection,
		EventDoneProcessing,
		EventDoneExporting,
		EventDoneImporting,
		EventOwnershipTransferred,
		EventOwnershipRenounced,
	}
}

// Event is an immutable record of an accepted mutation.
type Event struct {
	// Index is the position of the event in the log, assigned at append.
	Index uint64

	Kind EventKind

	// Actor is the identity that performed the mutation.
	Actor access.Address

	// Subject is the key of the entity mutated: a batch identifier or the
	// address of a user.
	Subject []byte

	Timestamp uint64

	// Attributes holds the non-indexed fields of the event, like the new role
	// of a user or the new owner.
	Attributes map[string]string `json:",omitempty"`
}
