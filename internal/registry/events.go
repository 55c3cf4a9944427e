package registry

import "doc-registry/internal/model"

type EventType string

const (
	EventAuthoritySet     EventType = "authority-set"
	EventMaxDocsChanged   EventType = "max-docs-changed"
	EventBackupFeeChanged EventType = "backup-fee-changed"
	EventDocumentBackedUp EventType = "document-backed-up"
	EventDocumentUpdated  EventType = "document-updated"
	EventDocumentDeleted  EventType = "document-deleted"
)

// Event describes a committed state transition.
// Document is set for document events, Update only for EventDocumentUpdated,
// Value for the config events.
type Event struct {
	Type     EventType
	Caller   model.Account
	Point    uint64
	Key      model.DocKey
	Document *model.Document
	Update   *model.DocUpdate
	Value    int64
}
