package blockchain

import (
	"doc-registry/internal/blockchain/registryfamily"
	"doc-registry/internal/journal"
	"doc-registry/internal/model"
	"doc-registry/internal/registry"
	"errors"
)

// eventPayload is the CBOR body of a registry family transaction.
type eventPayload struct {
	Action  registryfamily.Action `cbor:"action"`
	EventID string                `cbor:"eventID"`
	Caller  string                `cbor:"caller"`
	Point   uint64                `cbor:"point"`

	Owner    string `cbor:"owner,omitempty"`
	DocID    uint64 `cbor:"docID,omitempty"`
	Hash     string `cbor:"hash,omitempty"`
	OldHash  string `cbor:"oldHash,omitempty"`
	CID      string `cbor:"cid,omitempty"`
	Metadata string `cbor:"metadata,omitempty"`
	DocType  string `cbor:"docType,omitempty"`
	DocName  string `cbor:"docName,omitempty"`
	Version  uint64 `cbor:"version,omitempty"`
	Reason   string `cbor:"reason,omitempty"`

	// always encoded so a zero fee is distinguishable from no value
	Value int64 `cbor:"value"`
}

var errUnknownEvent = errors.New("unknown event type")

// toPayload maps a journal entry to its transaction payload and the state
// addresses the transaction touches.
func toPayload(entry journal.Entry) (eventPayload, []string, error) {
	event := entry.Event
	payload := eventPayload{
		EventID: entry.ID,
		Caller:  event.Caller.String(),
		Point:   event.Point,
	}

	switch event.Type {
	case registry.EventAuthoritySet:
		payload.Action = registryfamily.ActionSetAuthority
		payload.Owner = event.Key.Owner.String()
		return payload, []string{registryfamily.GetConfigAddress()}, nil

	case registry.EventMaxDocsChanged:
		payload.Action = registryfamily.ActionSetMaxDocs
		payload.Value = event.Value
		return payload, []string{registryfamily.GetConfigAddress()}, nil

	case registry.EventBackupFeeChanged:
		payload.Action = registryfamily.ActionSetFee
		payload.Value = event.Value
		return payload, []string{registryfamily.GetConfigAddress()}, nil
	}

	if event.Document == nil {
		return eventPayload{}, nil, errors.New("document event without a document")
	}
	doc := event.Document
	fillDocument(&payload, event.Key, *doc)

	addresses := []string{
		registryfamily.GetDocAddress(event.Key),
		registryfamily.GetHashAddress(doc.Hash),
		registryfamily.GetUserAddress(event.Key.Owner),
	}

	switch event.Type {
	case registry.EventDocumentBackedUp:
		payload.Action = registryfamily.ActionBackup

	case registry.EventDocumentUpdated:
		payload.Action = registryfamily.ActionUpdate
		if event.Update != nil {
			payload.OldHash = event.Update.OldHash.String()
			payload.Reason = event.Update.Reason
			addresses = append(addresses, registryfamily.GetHashAddress(event.Update.OldHash))
		}

	case registry.EventDocumentDeleted:
		payload.Action = registryfamily.ActionDelete

	default:
		return eventPayload{}, nil, errUnknownEvent
	}

	return payload, addresses, nil
}

func fillDocument(payload *eventPayload, key model.DocKey, doc model.Document) {
	payload.Owner = key.Owner.String()
	payload.DocID = key.ID
	payload.Hash = doc.Hash.String()
	payload.CID = doc.CID
	payload.Metadata = doc.Metadata
	payload.DocType = doc.DocType.String()
	payload.DocName = doc.DocName
	payload.Version = doc.Version
}
