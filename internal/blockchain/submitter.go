package blockchain

import (
	"context"
	"doc-registry/internal/blockchain/registryfamily"
	"doc-registry/internal/journal"
	"errors"

	"github.com/hyperledger/sawtooth-sdk-go/signing"
	"go.uber.org/zap"
)

// Submitter anchors committed registry events on the validator as
// registry family transactions.
type Submitter struct {
	logger *zap.Logger
	client *Client
	signer *signing.Signer
}

func NewSubmitter(logger *zap.Logger, client *Client, signer *signing.Signer) *Submitter {
	return &Submitter{logger: logger, client: client, signer: signer}
}

func (s Submitter) Name() string {
	return "blockchain"
}

func (s Submitter) Handle(ctx context.Context, entry journal.Entry) error {
	payload, addresses, err := toPayload(entry)
	if err != nil {
		return errors.New("failed to build the payload: " + err.Error())
	}

	txn, err := NewTransaction(payload, s.signer, addresses, registryfamily.FamilyName, registryfamily.FamilyVersion)
	if err != nil {
		return err
	}

	status, err := s.client.Submit(ctx, s.signer, txn)
	if err != nil {
		return err
	}

	s.logger.Debug("event anchored",
		zap.String("id", entry.ID),
		zap.String("action", string(payload.Action)),
		zap.String("status", status))
	return nil
}
