package mongodb

import (
	"context"
	"doc-registry/internal/journal"
	"doc-registry/internal/registry"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

func (b Repository) Name() string {
	return "mongodb"
}

// Handle applies a committed event to the mirrored collections and appends
// it to the event trail.
func (b Repository) Handle(ctx context.Context, entry journal.Entry) error {
	event := entry.Event

	var err error
	switch event.Type {
	case registry.EventDocumentBackedUp:
		err = b.upsertDocument(ctx, entry)
	case registry.EventDocumentUpdated:
		if err = b.upsertDocument(ctx, entry); err == nil && event.Update != nil {
			err = b.upsertUpdate(ctx, entry)
		}
	case registry.EventDocumentDeleted:
		err = b.removeDocument(ctx, entry)
	}
	if err != nil {
		return err
	}

	return b.insertEvent(ctx, entry)
}

func (b Repository) upsertDocument(ctx context.Context, entry journal.Entry) error {
	if entry.Event.Document == nil {
		return errors.New("document event without a document")
	}
	stored := toStoredDocument(entry.Event.Key, *entry.Event.Document)

	filter := bson.M{"_id": stored.ID}
	_, err := b.collection(documentsCollection).ReplaceOne(ctx, filter, stored, options.Replace().SetUpsert(true))
	if err != nil {
		return errors.New("failed to store the document: " + err.Error())
	}
	return nil
}

func (b Repository) upsertUpdate(ctx context.Context, entry journal.Entry) error {
	stored := toStoredUpdate(entry.Event.Key, *entry.Event.Update)

	filter := bson.M{"_id": stored.ID}
	_, err := b.collection(updatesCollection).ReplaceOne(ctx, filter, stored, options.Replace().SetUpsert(true))
	if err != nil {
		return errors.New("failed to store the document update: " + err.Error())
	}
	return nil
}

func (b Repository) removeDocument(ctx context.Context, entry journal.Entry) error {
	filter := bson.M{
		"_id": entry.Event.Key.String(),
	}

	result, err := b.collection(documentsCollection).DeleteOne(ctx, filter)
	if err != nil {
		b.logger.Debug("failed to remove the document: "+err.Error(), zap.String("key", entry.Event.Key.String()))
		return err
	}
	if result.DeletedCount == 0 {
		b.logger.Debug("trying to remove non existing document", zap.String("key", entry.Event.Key.String()))
	}

	if _, err := b.collection(updatesCollection).DeleteOne(ctx, filter); err != nil {
		return errors.New("failed to remove the document update: " + err.Error())
	}
	return nil
}

func (b Repository) insertEvent(ctx context.Context, entry journal.Entry) error {
	stored := toStoredEvent(entry)

	data, err := bson.Marshal(stored)
	if err != nil {
		return errors.New("failed to marshal the event: " + err.Error())
	}

	result, err := b.collection(eventsCollection).InsertOne(ctx, data)
	if err != nil {
		return errors.New("failed to insert the event: " + err.Error())
	}
	if result.InsertedID != stored.ID {
		return errors.New(fmt.Sprint("inserted an event with unexpected ID: ", result.InsertedID, "; expected: ", stored.ID))
	}

	return nil
}
