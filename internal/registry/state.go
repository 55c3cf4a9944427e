package registry

import "doc-registry/internal/model"

// state is the registry's entity tables. It is only mutated through apply,
// which commits a fully validated changeSet in one step.
type state struct {
	nextDocID  uint64
	docCount   uint64
	documents  map[model.DocKey]model.Document
	updates    map[model.DocKey]model.DocUpdate
	hashIndex  map[string]model.DocKey
	userCounts map[model.Account]uint64
}

func newState() *state {
	return &state{
		nextDocID:  1,
		documents:  make(map[model.DocKey]model.Document),
		updates:    make(map[model.DocKey]model.DocUpdate),
		hashIndex:  make(map[string]model.DocKey),
		userCounts: make(map[model.Account]uint64),
	}
}

func (s *state) document(key model.DocKey) (model.Document, bool) {
	doc, ok := s.documents[key]
	return doc, ok
}

func (s *state) hashOwner(hash model.Hash) (model.DocKey, bool) {
	key, ok := s.hashIndex[hash.Key()]
	return key, ok
}

func (s *state) userCount(account model.Account) uint64 {
	return s.userCounts[account]
}

// changeSet is a staged set of mutations built after validation succeeded.
type changeSet struct {
	putDocs      map[model.DocKey]model.Document
	deleteDocs   []model.DocKey
	putUpdates   map[model.DocKey]model.DocUpdate
	deleteUpdate []model.DocKey
	putHashes    map[string]model.DocKey
	deleteHashes []string

	userDelta  map[model.Account]int64
	countDelta int64
	allocateID bool
}

func newChangeSet() *changeSet {
	return &changeSet{
		putDocs:    make(map[model.DocKey]model.Document),
		putUpdates: make(map[model.DocKey]model.DocUpdate),
		putHashes:  make(map[string]model.DocKey),
		userDelta:  make(map[model.Account]int64),
	}
}

func (c *changeSet) putDocument(doc model.Document, key model.DocKey) {
	c.putDocs[key] = doc
}

func (c *changeSet) removeDocument(key model.DocKey) {
	c.deleteDocs = append(c.deleteDocs, key)
}

func (c *changeSet) indexHash(hash model.Hash, key model.DocKey) {
	c.putHashes[hash.Key()] = key
}

func (c *changeSet) unindexHash(hash model.Hash) {
	c.deleteHashes = append(c.deleteHashes, hash.Key())
}

func (c *changeSet) recordUpdate(key model.DocKey, update model.DocUpdate) {
	c.putUpdates[key] = update
}

func (c *changeSet) dropUpdate(key model.DocKey) {
	c.deleteUpdate = append(c.deleteUpdate, key)
}

func (c *changeSet) adjustCount(account model.Account, delta int64) {
	c.userDelta[account] += delta
	c.countDelta += delta
}

// apply commits the change set. Deletions run before insertions so that an
// update moving a document from one hash to another leaves the new hash indexed.
func (s *state) apply(c *changeSet) {
	for _, key := range c.deleteDocs {
		delete(s.documents, key)
	}
	for _, key := range c.deleteUpdate {
		delete(s.updates, key)
	}
	for _, hash := range c.deleteHashes {
		delete(s.hashIndex, hash)
	}

	for key, doc := range c.putDocs {
		s.documents[key] = doc
	}
	for key, update := range c.putUpdates {
		s.updates[key] = update
	}
	for hash, key := range c.putHashes {
		s.hashIndex[hash] = key
	}

	for account, delta := range c.userDelta {
		s.userCounts[account] = addClamped(s.userCounts[account], delta)
		if s.userCounts[account] == 0 {
			delete(s.userCounts, account)
		}
	}
	s.docCount = addClamped(s.docCount, c.countDelta)

	if c.allocateID {
		s.nextDocID++
	}
}

// addClamped adds delta to v without going below zero.
func addClamped(v uint64, delta int64) uint64 {
	if delta >= 0 {
		return v + uint64(delta)
	}
	if uint64(-delta) > v {
		return 0
	}
	return v - uint64(-delta)
}
