package registry_test

import (
	"bytes"
	"context"
	"doc-registry/internal/ledger"
	"doc-registry/internal/model"
	"doc-registry/internal/registrar"
	"doc-registry/internal/registry"
	"doc-registry/internal/testutil"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const (
	caller    model.Account = "ST1TEST"
	authority model.Account = "ST2TEST"
	stranger  model.Account = "ST3OTHER"
)

type eventLog struct {
	mu     sync.Mutex
	events []registry.Event
}

func (l *eventLog) Record(_ context.Context, event registry.Event) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, event)
}

func (l *eventLog) types() []registry.EventType {
	l.mu.Lock()
	defer l.mu.Unlock()
	types := make([]registry.EventType, len(l.events))
	for i, e := range l.events {
		types[i] = e.Type
	}
	return types
}

type failingCollector struct{}

func (failingCollector) Transfer(context.Context, int64, model.Account, model.Account) error {
	return errors.New("token subsystem unavailable")
}

type failingRegistrar struct{}

func (failingRegistrar) IsRegistered(context.Context, model.Account) (bool, error) {
	return false, errors.New("directory unreachable")
}

type fixture struct {
	reg       *registry.Registry
	ledger    *ledger.Ledger
	registrar *registrar.Static
	clock     *testutil.StubClock
	events    *eventLog
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	f := fixture{
		ledger:    ledger.New(zap.NewNop(), 1_000_000),
		registrar: registrar.NewStatic(caller, stranger),
		clock:     testutil.NewStubClock(0),
		events:    &eventLog{},
	}
	f.reg = registry.New(zap.NewNop(), registry.NewAuthorityConfig(model.BurnAccount), f.registrar, f.ledger, f.clock, f.events)
	return f
}

func newFixtureWithAuthority(t *testing.T) fixture {
	t.Helper()
	f := newFixture(t)
	require.NoError(t, f.reg.SetAuthorityContract(context.TODO(), caller, authority))
	return f
}

func hashOf(b byte) model.Hash {
	return bytes.Repeat([]byte{b}, model.HashSize)
}

func passport(hash model.Hash) model.BackupRequest {
	return model.BackupRequest{
		Hash:           hash,
		CID:            "QmTestCID",
		DocType:        model.DocTypePassport,
		Metadata:       "meta data",
		Size:           1024,
		Location:       "IPFS",
		Currency:       model.CurrencySTX,
		DocName:        "MyPassport",
		Description:    "Personal ID",
		Category:       "identity",
		Tags:           []string{"tag1", "tag2"},
		AccessLevel:    1,
		EncryptionType: model.EncryptionAES,
	}
}

func TestBackupDocument(t *testing.T) {
	f := newFixtureWithAuthority(t)
	f.clock.Advance(7)

	id, err := f.reg.BackupDocument(context.TODO(), caller, passport(hashOf(1)))
	require.NoError(t, err)
	assert.Equal(t, uint64(1), id)

	doc, ok := f.reg.GetDocument(caller, 1)
	require.True(t, ok)
	assert.Equal(t, hashOf(1), doc.Hash)
	assert.Equal(t, "QmTestCID", doc.CID)
	assert.Equal(t, model.DocTypePassport, doc.DocType)
	assert.Equal(t, "meta data", doc.Metadata)
	assert.Equal(t, caller, doc.Owner)
	assert.True(t, doc.Status)
	assert.Equal(t, uint64(1), doc.Version)
	assert.Equal(t, uint64(7), doc.Timestamp)
	assert.Nil(t, doc.Expiry)
	assert.Equal(t, uint64(1024), doc.Size)
	assert.Equal(t, "IPFS", doc.Location)
	assert.Equal(t, model.CurrencySTX, doc.Currency)
	assert.Equal(t, "MyPassport", doc.DocName)
	assert.Equal(t, "Personal ID", doc.Description)
	assert.Equal(t, "identity", doc.Category)
	assert.Equal(t, []string{"tag1", "tag2"}, doc.Tags)
	assert.Equal(t, uint(1), doc.AccessLevel)
	assert.Equal(t, model.EncryptionAES, doc.EncryptionType)

	assert.Equal(t, []ledger.Transfer{{Amount: 500, From: caller, To: authority}}, f.ledger.Transfers())
	assert.Equal(t, uint64(1), f.reg.GetTotalDocCount())
	assert.Equal(t, uint64(1), f.reg.GetUserDocCount(caller))
	assert.True(t, f.reg.CheckDocExistence(hashOf(1)))
	assert.False(t, f.reg.CheckDocExistence(hashOf(2)))
	assert.Equal(t, uint64(2), f.reg.Config().NextDocID)
	assert.Equal(t, []registry.EventType{registry.EventAuthoritySet, registry.EventDocumentBackedUp}, f.events.types())
}

func TestBackupDocumentOptionalFields(t *testing.T) {
	f := newFixtureWithAuthority(t)
	f.clock.Advance(10)

	expiry := uint64(100)
	verifier := model.Account("ST4VERIFIER")
	req := passport(hashOf(1))
	req.Expiry = &expiry
	req.Verifier = &verifier
	req.Signature = []byte{0xde, 0xad}
	req.Proof = bytes.Repeat([]byte{0xbe}, 4096)

	_, err := f.reg.BackupDocument(context.TODO(), caller, req)
	require.NoError(t, err)

	doc, ok := f.reg.GetDocument(caller, 1)
	require.True(t, ok)
	require.NotNil(t, doc.Expiry)
	assert.Equal(t, expiry, *doc.Expiry)
	assert.Equal(t, verifier, *doc.Verifier)
	assert.Equal(t, []byte{0xde, 0xad}, doc.Signature)
	assert.Len(t, doc.Proof, 4096)
}

func TestBackupDocumentRejectsDuplicateHash(t *testing.T) {
	f := newFixtureWithAuthority(t)

	_, err := f.reg.BackupDocument(context.TODO(), caller, passport(hashOf(1)))
	require.NoError(t, err)

	again := passport(hashOf(1))
	again.Metadata = "different metadata"
	_, err = f.reg.BackupDocument(context.TODO(), stranger, again)
	assert.ErrorIs(t, err, registry.ErrDocAlreadyExists)

	assert.Equal(t, uint64(1), f.reg.GetTotalDocCount())
	assert.Len(t, f.ledger.Transfers(), 1)
}

func TestBackupDocumentUnregisteredUser(t *testing.T) {
	f := newFixtureWithAuthority(t)

	_, err := f.reg.BackupDocument(context.TODO(), "ST9UNREGISTERED", passport(hashOf(1)))
	assert.ErrorIs(t, err, registry.ErrUserNotRegistered)
}

func TestBackupDocumentWithoutAuthority(t *testing.T) {
	f := newFixture(t)

	_, err := f.reg.BackupDocument(context.TODO(), caller, passport(hashOf(1)))
	assert.ErrorIs(t, err, registry.ErrAuthorityNotSet)
	assert.Empty(t, f.ledger.Transfers())
	assert.False(t, f.reg.CheckDocExistence(hashOf(1)))
}

func TestBackupDocumentValidationOrder(t *testing.T) {
	f := newFixture(t)
	f.registrar.Unregister(caller)

	// unregistered and without authority and with a bad hash: registration is checked first
	req := passport(hashOf(1)[:5])
	_, err := f.reg.BackupDocument(context.TODO(), caller, req)
	assert.ErrorIs(t, err, registry.ErrUserNotRegistered)

	f.registrar.Register(caller)
	_, err = f.reg.BackupDocument(context.TODO(), caller, req)
	assert.ErrorIs(t, err, registry.ErrInvalidHash)

	// field validation precedes the authority check
	req = passport(hashOf(1))
	req.DocType = "diploma"
	_, err = f.reg.BackupDocument(context.TODO(), caller, req)
	assert.ErrorIs(t, err, registry.ErrInvalidDocType)
}

func TestBackupDocumentQuota(t *testing.T) {
	f := newFixtureWithAuthority(t)
	require.NoError(t, f.reg.SetMaxDocsPerUser(context.TODO(), authority, 1))

	_, err := f.reg.BackupDocument(context.TODO(), caller, passport(hashOf(1)))
	require.NoError(t, err)

	_, err = f.reg.BackupDocument(context.TODO(), caller, passport(hashOf(2)))
	assert.ErrorIs(t, err, registry.ErrMaxDocsExceeded)
	assert.Equal(t, uint64(1), f.reg.GetUserDocCount(caller))

	// the quota is per account
	_, err = f.reg.BackupDocument(context.TODO(), stranger, passport(hashOf(2)))
	assert.NoError(t, err)
}

func TestBackupDocumentQuotaPrecedesRegistration(t *testing.T) {
	f := newFixtureWithAuthority(t)
	require.NoError(t, f.reg.SetMaxDocsPerUser(context.TODO(), authority, 1))
	_, err := f.reg.BackupDocument(context.TODO(), caller, passport(hashOf(1)))
	require.NoError(t, err)

	f.registrar.Unregister(caller)
	_, err = f.reg.BackupDocument(context.TODO(), caller, passport(hashOf(2)))
	assert.ErrorIs(t, err, registry.ErrMaxDocsExceeded)
}

func TestBackupDocumentFeeChange(t *testing.T) {
	f := newFixtureWithAuthority(t)
	require.NoError(t, f.reg.SetBackupFee(context.TODO(), authority, 1000))

	_, err := f.reg.BackupDocument(context.TODO(), caller, passport(hashOf(1)))
	require.NoError(t, err)
	assert.Equal(t, []ledger.Transfer{{Amount: 1000, From: caller, To: authority}}, f.ledger.Transfers())
}

func TestBackupDocumentTransferFailureLeavesStateUntouched(t *testing.T) {
	clock := testutil.NewStubClock(0)
	reg := registry.New(zap.NewNop(), nil, registrar.Open{}, failingCollector{}, clock)
	require.NoError(t, reg.SetAuthorityContract(context.TODO(), caller, authority))

	_, err := reg.BackupDocument(context.TODO(), caller, passport(hashOf(1)))
	require.Error(t, err)
	_, isRegistryErr := registry.CodeOf(err)
	assert.False(t, isRegistryErr)

	assert.False(t, reg.CheckDocExistence(hashOf(1)))
	assert.Equal(t, uint64(0), reg.GetTotalDocCount())
	assert.Equal(t, uint64(0), reg.GetUserDocCount(caller))
	assert.Equal(t, uint64(1), reg.Config().NextDocID)
}

func TestBackupDocumentInsufficientFunds(t *testing.T) {
	l := ledger.New(zap.NewNop(), 100)
	reg := registry.New(zap.NewNop(), nil, registrar.Open{}, l, testutil.NewStubClock(0))
	require.NoError(t, reg.SetAuthorityContract(context.TODO(), caller, authority))

	_, err := reg.BackupDocument(context.TODO(), caller, passport(hashOf(1)))
	assert.ErrorIs(t, err, ledger.ErrInsufficientFunds)
	assert.Equal(t, uint64(0), reg.GetTotalDocCount())
}

func TestBackupDocumentRegistrarFailure(t *testing.T) {
	reg := registry.New(zap.NewNop(), nil, failingRegistrar{}, ledger.New(zap.NewNop(), 0), testutil.NewStubClock(0))
	require.NoError(t, reg.SetAuthorityContract(context.TODO(), caller, authority))

	_, err := reg.BackupDocument(context.TODO(), caller, passport(hashOf(1)))
	require.Error(t, err)
	assert.NotErrorIs(t, err, registry.ErrUserNotRegistered)
}

func TestDocumentIDsAreNeverReused(t *testing.T) {
	f := newFixtureWithAuthority(t)

	id1, err := f.reg.BackupDocument(context.TODO(), caller, passport(hashOf(1)))
	require.NoError(t, err)
	require.NoError(t, f.reg.DeleteDocument(context.TODO(), caller, id1))

	id2, err := f.reg.BackupDocument(context.TODO(), stranger, passport(hashOf(1)))
	require.NoError(t, err)
	assert.Equal(t, uint64(2), id2)
}

func TestUpdateDocument(t *testing.T) {
	f := newFixtureWithAuthority(t)
	_, err := f.reg.BackupDocument(context.TODO(), caller, passport(hashOf(1)))
	require.NoError(t, err)
	f.clock.Advance(3)

	err = f.reg.UpdateDocument(context.TODO(), caller, model.UpdateRequest{
		DocID:    1,
		Hash:     hashOf(2),
		CID:      "QmNewCID",
		Metadata: "new meta",
		Reason:   "version update",
	})
	require.NoError(t, err)

	doc, ok := f.reg.GetDocument(caller, 1)
	require.True(t, ok)
	assert.Equal(t, hashOf(2), doc.Hash)
	assert.Equal(t, "QmNewCID", doc.CID)
	assert.Equal(t, "new meta", doc.Metadata)
	assert.Equal(t, uint64(2), doc.Version)
	assert.Equal(t, uint64(3), doc.Timestamp)
	assert.Equal(t, "MyPassport", doc.DocName)
	assert.Equal(t, uint64(1024), doc.Size)
	assert.Equal(t, caller, doc.Owner)

	update, ok := f.reg.GetDocUpdate(caller, 1)
	require.True(t, ok)
	assert.Equal(t, hashOf(1), update.OldHash)
	assert.Equal(t, hashOf(2), update.NewHash)
	assert.Equal(t, "version update", update.Reason)
	assert.Equal(t, caller, update.Updater)
	assert.Equal(t, uint64(3), update.Timestamp)

	assert.False(t, f.reg.CheckDocExistence(hashOf(1)))
	assert.True(t, f.reg.CheckDocExistence(hashOf(2)))
	assert.Equal(t, uint64(1), f.reg.GetTotalDocCount())
	// update is free of charge
	assert.Len(t, f.ledger.Transfers(), 1)

	// the update log keeps only the latest entry
	require.NoError(t, f.reg.UpdateDocument(context.TODO(), caller, model.UpdateRequest{DocID: 1, Hash: hashOf(3), CID: "QmThird", Reason: "again"}))
	update, _ = f.reg.GetDocUpdate(caller, 1)
	assert.Equal(t, hashOf(2), update.OldHash)
	assert.Equal(t, "again", update.Reason)
	doc, _ = f.reg.GetDocument(caller, 1)
	assert.Equal(t, uint64(3), doc.Version)
}

func TestUpdateDocumentRejections(t *testing.T) {
	f := newFixtureWithAuthority(t)
	_, err := f.reg.BackupDocument(context.TODO(), caller, passport(hashOf(1)))
	require.NoError(t, err)
	_, err = f.reg.BackupDocument(context.TODO(), stranger, passport(hashOf(9)))
	require.NoError(t, err)

	valid := model.UpdateRequest{DocID: 1, Hash: hashOf(2), CID: "QmNewCID", Metadata: "new meta", Reason: "update"}

	req := valid
	req.DocID = 99
	assert.ErrorIs(t, f.reg.UpdateDocument(context.TODO(), caller, req), registry.ErrDocNotFound)

	// documents are keyed by owner, a stranger does not see caller's doc 1
	assert.ErrorIs(t, f.reg.UpdateDocument(context.TODO(), stranger, valid), registry.ErrDocNotFound)

	req = valid
	req.Hash = hashOf(2)[:16]
	assert.ErrorIs(t, f.reg.UpdateDocument(context.TODO(), caller, req), registry.ErrInvalidHash)

	req = valid
	req.CID = ""
	assert.ErrorIs(t, f.reg.UpdateDocument(context.TODO(), caller, req), registry.ErrInvalidCID)

	req = valid
	req.Hash = hashOf(1)
	assert.ErrorIs(t, f.reg.UpdateDocument(context.TODO(), caller, req), registry.ErrInvalidUpdateParam)

	req = valid
	req.Hash = hashOf(9)
	assert.ErrorIs(t, f.reg.UpdateDocument(context.TODO(), caller, req), registry.ErrDocAlreadyExists)

	doc, _ := f.reg.GetDocument(caller, 1)
	assert.Equal(t, uint64(1), doc.Version)
	_, ok := f.reg.GetDocUpdate(caller, 1)
	assert.False(t, ok)
}

func TestDeleteDocument(t *testing.T) {
	f := newFixtureWithAuthority(t)
	_, err := f.reg.BackupDocument(context.TODO(), caller, passport(hashOf(1)))
	require.NoError(t, err)
	require.NoError(t, f.reg.UpdateDocument(context.TODO(), caller, model.UpdateRequest{DocID: 1, Hash: hashOf(2), CID: "QmNewCID"}))

	require.NoError(t, f.reg.DeleteDocument(context.TODO(), caller, 1))

	_, ok := f.reg.GetDocument(caller, 1)
	assert.False(t, ok)
	_, ok = f.reg.GetDocUpdate(caller, 1)
	assert.False(t, ok)
	assert.False(t, f.reg.CheckDocExistence(hashOf(2)))
	assert.Equal(t, uint64(0), f.reg.GetTotalDocCount())
	assert.Equal(t, uint64(0), f.reg.GetUserDocCount(caller))

	// the hash can be registered again by anyone
	_, err = f.reg.BackupDocument(context.TODO(), stranger, passport(hashOf(2)))
	assert.NoError(t, err)
}

func TestDeleteDocumentRejections(t *testing.T) {
	f := newFixtureWithAuthority(t)
	_, err := f.reg.BackupDocument(context.TODO(), caller, passport(hashOf(1)))
	require.NoError(t, err)

	assert.ErrorIs(t, f.reg.DeleteDocument(context.TODO(), caller, 99), registry.ErrDocNotFound)
	assert.ErrorIs(t, f.reg.DeleteDocument(context.TODO(), stranger, 1), registry.ErrDocNotFound)
	assert.Equal(t, uint64(1), f.reg.GetTotalDocCount())
}

func TestConfigOperationsRequireAuthority(t *testing.T) {
	f := newFixture(t)

	assert.ErrorIs(t, f.reg.SetMaxDocsPerUser(context.TODO(), caller, 10), registry.ErrAuthorityNotSet)
	assert.ErrorIs(t, f.reg.SetBackupFee(context.TODO(), caller, 1000), registry.ErrAuthorityNotSet)
	assert.ErrorIs(t, f.reg.SetAuthorityContract(context.TODO(), caller, model.BurnAccount), registry.ErrNotAuthorized)

	require.NoError(t, f.reg.SetAuthorityContract(context.TODO(), caller, authority))
	assert.ErrorIs(t, f.reg.SetAuthorityContract(context.TODO(), caller, stranger), registry.ErrAuthorityNotSet)

	require.NoError(t, f.reg.SetBackupFee(context.TODO(), authority, 1000))
	require.NoError(t, f.reg.SetMaxDocsPerUser(context.TODO(), authority, 3))

	snapshot := f.reg.Config()
	assert.Equal(t, authority, snapshot.Authority)
	assert.Equal(t, int64(1000), snapshot.BackupFee)
	assert.Equal(t, int64(3), snapshot.MaxDocsPerUser)

	assert.Equal(t, []registry.EventType{
		registry.EventAuthoritySet,
		registry.EventBackupFeeChanged,
		registry.EventMaxDocsChanged,
	}, f.events.types())
}

func TestTotalDocCount(t *testing.T) {
	f := newFixtureWithAuthority(t)
	_, err := f.reg.BackupDocument(context.TODO(), caller, passport(hashOf(1)))
	require.NoError(t, err)
	_, err = f.reg.BackupDocument(context.TODO(), caller, passport(hashOf(2)))
	require.NoError(t, err)

	assert.Equal(t, uint64(2), f.reg.GetTotalDocCount())
	assert.Equal(t, uint64(2), f.reg.GetUserDocCount(caller))
}

func TestReturnedDocumentsAreCopies(t *testing.T) {
	f := newFixtureWithAuthority(t)
	req := passport(hashOf(1))
	_, err := f.reg.BackupDocument(context.TODO(), caller, req)
	require.NoError(t, err)

	req.Hash[0] = 0xff
	req.Tags[0] = "changed"
	doc, _ := f.reg.GetDocument(caller, 1)
	doc.Tags[1] = "changed too"

	stored, _ := f.reg.GetDocument(caller, 1)
	assert.Equal(t, hashOf(1), stored.Hash)
	assert.Equal(t, []string{"tag1", "tag2"}, stored.Tags)
}

func TestConcurrentBackupsKeepHashesUnique(t *testing.T) {
	f := newFixtureWithAuthority(t)
	const goroutines = 20

	var wg sync.WaitGroup
	var mu sync.Mutex
	succeeded := 0
	wg.Add(goroutines)
	for i := 0; i < goroutines; i++ {
		account := model.Account("ST" + string(rune('A'+i)))
		f.registrar.Register(account)
		go func() {
			defer wg.Done()
			if _, err := f.reg.BackupDocument(context.TODO(), account, passport(hashOf(7))); err == nil {
				mu.Lock()
				succeeded++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, succeeded)
	assert.Equal(t, uint64(1), f.reg.GetTotalDocCount())
	assert.Len(t, f.ledger.Transfers(), 1)
}
