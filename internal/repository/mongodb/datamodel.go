package mongodb

import (
	"doc-registry/internal/journal"
	"doc-registry/internal/model"
	"time"
)

type storedDocument struct {
	ID             string   `bson:"_id" json:"id"`
	Owner          string   `bson:"owner" json:"owner"`
	DocID          uint64   `bson:"docID" json:"docID"`
	Hash           string   `bson:"hash" json:"hash"`
	CID            string   `bson:"cid" json:"cid"`
	Timestamp      uint64   `bson:"timestamp" json:"timestamp"`
	DocType        string   `bson:"docType" json:"docType"`
	Metadata       string   `bson:"metadata" json:"metadata"`
	Version        uint64   `bson:"version" json:"version"`
	Expiry         *uint64  `bson:"expiry,omitempty" json:"expiry,omitempty"`
	Size           uint64   `bson:"size" json:"size"`
	Location       string   `bson:"location" json:"location"`
	Currency       string   `bson:"currency" json:"currency"`
	DocName        string   `bson:"docName" json:"docName"`
	Description    string   `bson:"description" json:"description"`
	Category       string   `bson:"category" json:"category"`
	Tags           []string `bson:"tags" json:"tags"`
	AccessLevel    uint     `bson:"accessLevel" json:"accessLevel"`
	EncryptionType string   `bson:"encryptionType" json:"encryptionType"`
	Verifier       string   `bson:"verifier,omitempty" json:"verifier,omitempty"`
	Signature      []byte   `bson:"signature,omitempty" json:"signature,omitempty"`
	Proof          []byte   `bson:"proof,omitempty" json:"proof,omitempty"`
}

type storedUpdate struct {
	ID        string `bson:"_id" json:"id"`
	Timestamp uint64 `bson:"timestamp" json:"timestamp"`
	Updater   string `bson:"updater" json:"updater"`
	OldHash   string `bson:"oldHash" json:"oldHash"`
	NewHash   string `bson:"newHash" json:"newHash"`
	Reason    string `bson:"reason" json:"reason"`
}

type storedEvent struct {
	ID         string    `bson:"_id" json:"id"`
	Type       string    `bson:"type" json:"type"`
	Caller     string    `bson:"caller" json:"caller"`
	Point      uint64    `bson:"point" json:"point"`
	DocKey     string    `bson:"docKey,omitempty" json:"docKey,omitempty"`
	Value      int64     `bson:"value,omitempty" json:"value,omitempty"`
	RecordedAt time.Time `bson:"recordedAt" json:"recordedAt"`
}

func toStoredDocument(key model.DocKey, doc model.Document) storedDocument {
	stored := storedDocument{
		ID:             key.String(),
		Owner:          key.Owner.String(),
		DocID:          key.ID,
		Hash:           doc.Hash.String(),
		CID:            doc.CID,
		Timestamp:      doc.Timestamp,
		DocType:        doc.DocType.String(),
		Metadata:       doc.Metadata,
		Version:        doc.Version,
		Expiry:         doc.Expiry,
		Size:           doc.Size,
		Location:       doc.Location,
		Currency:       string(doc.Currency),
		DocName:        doc.DocName,
		Description:    doc.Description,
		Category:       doc.Category,
		Tags:           doc.Tags,
		AccessLevel:    doc.AccessLevel,
		EncryptionType: string(doc.EncryptionType),
		Signature:      doc.Signature,
		Proof:          doc.Proof,
	}
	if doc.Verifier != nil {
		stored.Verifier = doc.Verifier.String()
	}
	return stored
}

func toStoredUpdate(key model.DocKey, update model.DocUpdate) storedUpdate {
	return storedUpdate{
		ID:        key.String(),
		Timestamp: update.Timestamp,
		Updater:   update.Updater.String(),
		OldHash:   update.OldHash.String(),
		NewHash:   update.NewHash.String(),
		Reason:    update.Reason,
	}
}

func toStoredEvent(entry journal.Entry) storedEvent {
	stored := storedEvent{
		ID:         entry.ID,
		Type:       string(entry.Event.Type),
		Caller:     entry.Event.Caller.String(),
		Point:      entry.Event.Point,
		Value:      entry.Event.Value,
		RecordedAt: entry.RecordedAt,
	}
	if entry.Event.Document != nil {
		stored.DocKey = entry.Event.Key.String()
	}
	return stored
}
