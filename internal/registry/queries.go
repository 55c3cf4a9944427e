package registry

import "doc-registry/internal/model"

// Snapshot is a read-only view of the registry configuration and counters.
type Snapshot struct {
	Authority      model.Account
	MaxDocsPerUser int64
	BackupFee      int64
	NextDocID      uint64
	DocCount       uint64
}

func (r *Registry) GetDocument(owner model.Account, docID uint64) (model.Document, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	doc, ok := r.state.document(model.DocKey{Owner: owner, ID: docID})
	if !ok {
		return model.Document{}, false
	}
	return doc.Clone(), true
}

func (r *Registry) GetDocUpdate(owner model.Account, docID uint64) (model.DocUpdate, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	update, ok := r.state.updates[model.DocKey{Owner: owner, ID: docID}]
	if !ok {
		return model.DocUpdate{}, false
	}
	return update.Clone(), true
}

func (r *Registry) GetTotalDocCount() uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state.docCount
}

func (r *Registry) GetUserDocCount(account model.Account) uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state.userCount(account)
}

// CheckDocExistence reports whether a live document carries the hash.
func (r *Registry) CheckDocExistence(hash model.Hash) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, ok := r.state.hashOwner(hash)
	return ok
}

func (r *Registry) Config() Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()

	return Snapshot{
		Authority:      r.config.Authority(),
		MaxDocsPerUser: r.config.MaxDocsPerUser(),
		BackupFee:      r.config.BackupFee(),
		NextDocID:      r.state.nextDocID,
		DocCount:       r.state.docCount,
	}
}
