package registry

import (
	"context"
	"doc-registry/internal/model"
	"fmt"
	"sync"

	"go.uber.org/zap"
)

// Registry is the document registry engine. Every public operation runs as
// one critical section: all checks happen first, then the staged mutations
// are committed together, so a failed call leaves the state as it found it.
type Registry struct {
	mu sync.Mutex

	logger    *zap.Logger
	config    *AuthorityConfig
	state     *state
	registrar Registrar
	fees      FeeCollector
	clock     Clock
	recorders []Recorder
}

func New(logger *zap.Logger, config *AuthorityConfig, registrar Registrar, fees FeeCollector, clock Clock, recorders ...Recorder) *Registry {
	if config == nil {
		config = NewAuthorityConfig(model.BurnAccount)
	}
	if clock == nil {
		clock = NewUnixClock()
	}
	if len(recorders) == 0 {
		recorders = []Recorder{nopRecorder{}}
	}
	return &Registry{
		logger:    logger,
		config:    config,
		state:     newState(),
		registrar: registrar,
		fees:      fees,
		clock:     clock,
		recorders: recorders,
	}
}

func (r *Registry) record(ctx context.Context, event Event) {
	for _, recorder := range r.recorders {
		recorder.Record(ctx, event)
	}
}

func (r *Registry) SetAuthorityContract(ctx context.Context, caller, account model.Account) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.config.SetAuthority(account); err != nil {
		r.logger.Debug("set authority rejected: "+err.Error(), zap.String("caller", caller.String()), zap.String("account", account.String()))
		return err
	}

	r.logger.Info("authority set", zap.String("authority", account.String()))
	r.record(ctx, Event{Type: EventAuthoritySet, Caller: caller, Point: r.clock.Now(), Key: model.DocKey{Owner: account}})
	return nil
}

func (r *Registry) SetMaxDocsPerUser(ctx context.Context, caller model.Account, n int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.config.SetMaxDocsPerUser(n); err != nil {
		r.logger.Debug("set max docs rejected: "+err.Error(), zap.String("caller", caller.String()), zap.Int64("value", n))
		return err
	}

	r.logger.Info("max documents per user changed", zap.Int64("value", n))
	r.record(ctx, Event{Type: EventMaxDocsChanged, Caller: caller, Point: r.clock.Now(), Value: n})
	return nil
}

func (r *Registry) SetBackupFee(ctx context.Context, caller model.Account, n int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.config.SetBackupFee(n); err != nil {
		r.logger.Debug("set backup fee rejected: "+err.Error(), zap.String("caller", caller.String()), zap.Int64("value", n))
		return err
	}

	r.logger.Info("backup fee changed", zap.Int64("value", n))
	r.record(ctx, Event{Type: EventBackupFeeChanged, Caller: caller, Point: r.clock.Now(), Value: n})
	return nil
}

// BackupDocument registers a new document owned by caller and returns its id.
// The backup fee is charged to the caller only once every check passed.
func (r *Registry) BackupDocument(ctx context.Context, caller model.Account, req model.BackupRequest) (uint64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.clock.Now()
	if err := r.checkBackup(ctx, caller, req, now); err != nil {
		r.logger.Debug("backup rejected: "+err.Error(), zap.String("caller", caller.String()), zap.String("docName", req.DocName))
		return 0, err
	}

	authority := r.config.Authority()
	if err := r.fees.Transfer(ctx, r.config.BackupFee(), caller, authority); err != nil {
		r.logger.Error("backup fee transfer failed: "+err.Error(), zap.String("caller", caller.String()), zap.Int64("fee", r.config.BackupFee()))
		return 0, fmt.Errorf("transfer of the backup fee failed: %w", err)
	}

	id := r.state.nextDocID
	key := model.DocKey{Owner: caller, ID: id}
	doc := model.Document{
		Hash:           req.Hash,
		CID:            req.CID,
		Timestamp:      now,
		DocType:        req.DocType,
		Metadata:       req.Metadata,
		Owner:          caller,
		Status:         true,
		Version:        1,
		Expiry:         req.Expiry,
		Size:           req.Size,
		Location:       req.Location,
		Currency:       req.Currency,
		DocName:        req.DocName,
		Description:    req.Description,
		Category:       req.Category,
		Tags:           req.Tags,
		AccessLevel:    req.AccessLevel,
		EncryptionType: req.EncryptionType,
		Verifier:       req.Verifier,
		Signature:      req.Signature,
		Proof:          req.Proof,
	}.Clone()

	changes := newChangeSet()
	changes.putDocument(doc, key)
	changes.indexHash(doc.Hash, key)
	changes.adjustCount(caller, 1)
	changes.allocateID = true
	r.state.apply(changes)

	r.logger.Info("document backed up", zap.String("owner", caller.String()), zap.Uint64("docID", id), zap.String("hash", doc.Hash.String()))

	snapshot := doc.Clone()
	r.record(ctx, Event{Type: EventDocumentBackedUp, Caller: caller, Point: now, Key: key, Document: &snapshot})
	return id, nil
}

func (r *Registry) checkBackup(ctx context.Context, caller model.Account, req model.BackupRequest, now uint64) error {
	if int64(r.state.userCount(caller)) >= r.config.MaxDocsPerUser() {
		return ErrMaxDocsExceeded
	}

	registered, err := r.registrar.IsRegistered(ctx, caller)
	if err != nil {
		return fmt.Errorf("registration check failed: %w", err)
	}
	if !registered {
		return ErrUserNotRegistered
	}

	if err := validateBackupFields(req, now); err != nil {
		return err
	}

	if _, exists := r.state.hashOwner(req.Hash); exists {
		return ErrDocAlreadyExists
	}

	if !r.config.IsSet() {
		return ErrAuthorityNotSet
	}
	return nil
}

// UpdateDocument replaces the hash, cid and metadata of a document owned by
// caller and bumps its version. Other attributes are left untouched.
func (r *Registry) UpdateDocument(ctx context.Context, caller model.Account, req model.UpdateRequest) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := model.DocKey{Owner: caller, ID: req.DocID}
	doc, err := r.checkUpdate(caller, key, req)
	if err != nil {
		r.logger.Debug("update rejected: "+err.Error(), zap.String("caller", caller.String()), zap.Uint64("docID", req.DocID))
		return err
	}

	now := r.clock.Now()
	oldHash := doc.Hash

	updated := doc.Clone()
	updated.Hash = append(model.Hash(nil), req.Hash...)
	updated.CID = req.CID
	updated.Metadata = req.Metadata
	updated.Timestamp = now
	updated.Version = doc.Version + 1

	update := model.DocUpdate{
		Timestamp: now,
		Updater:   caller,
		OldHash:   oldHash,
		NewHash:   updated.Hash,
		Reason:    req.Reason,
	}.Clone()

	changes := newChangeSet()
	changes.unindexHash(oldHash)
	changes.indexHash(updated.Hash, key)
	changes.putDocument(updated, key)
	changes.recordUpdate(key, update)
	r.state.apply(changes)

	r.logger.Info("document updated", zap.String("owner", caller.String()), zap.Uint64("docID", req.DocID), zap.Uint64("version", updated.Version))

	snapshot := updated.Clone()
	updateSnapshot := update.Clone()
	r.record(ctx, Event{Type: EventDocumentUpdated, Caller: caller, Point: now, Key: key, Document: &snapshot, Update: &updateSnapshot})
	return nil
}

func (r *Registry) checkUpdate(caller model.Account, key model.DocKey, req model.UpdateRequest) (model.Document, error) {
	doc, ok := r.state.document(key)
	if !ok {
		return model.Document{}, ErrDocNotFound
	}
	if doc.Owner != caller {
		return model.Document{}, ErrNotAuthorized
	}
	if err := validateUpdateFields(req, doc.Hash); err != nil {
		return model.Document{}, err
	}
	// the new hash must not belong to any other live document
	if _, exists := r.state.hashOwner(req.Hash); exists {
		return model.Document{}, ErrDocAlreadyExists
	}
	return doc, nil
}

// DeleteDocument removes a document owned by caller together with its hash
// index entry and update record. The hash may be registered again afterwards.
func (r *Registry) DeleteDocument(ctx context.Context, caller model.Account, docID uint64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := model.DocKey{Owner: caller, ID: docID}
	doc, ok := r.state.document(key)
	if !ok {
		r.logger.Debug("delete rejected: document not found", zap.String("caller", caller.String()), zap.Uint64("docID", docID))
		return ErrDocNotFound
	}
	if doc.Owner != caller {
		r.logger.Debug("delete rejected: not the owner", zap.String("caller", caller.String()), zap.Uint64("docID", docID))
		return ErrNotAuthorized
	}

	changes := newChangeSet()
	changes.removeDocument(key)
	changes.unindexHash(doc.Hash)
	changes.dropUpdate(key)
	changes.adjustCount(caller, -1)
	r.state.apply(changes)

	r.logger.Info("document deleted", zap.String("owner", caller.String()), zap.Uint64("docID", docID))

	snapshot := doc.Clone()
	r.record(ctx, Event{Type: EventDocumentDeleted, Caller: caller, Point: r.clock.Now(), Key: key, Document: &snapshot})
	return nil
}
