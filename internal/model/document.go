package model

import (
	"encoding/hex"
	"strconv"
)

// HashSize is the length of a document content digest.
const HashSize = 32

type DocType string

const (
	DocTypePassport    DocType = "passport"
	DocTypeLicense     DocType = "license"
	DocTypeCertificate DocType = "certificate"
	DocTypeIDCard      DocType = "id-card"
)

func (t DocType) IsValid() bool {
	switch t {
	case DocTypePassport, DocTypeLicense, DocTypeCertificate, DocTypeIDCard:
		return true
	}
	return false
}

func (t DocType) String() string {
	return string(t)
}

type Currency string

const (
	CurrencySTX Currency = "STX"
	CurrencyUSD Currency = "USD"
	CurrencyBTC Currency = "BTC"
)

func (c Currency) IsValid() bool {
	return c == CurrencySTX || c == CurrencyUSD || c == CurrencyBTC
}

type EncryptionType string

const (
	EncryptionAES EncryptionType = "AES"
	EncryptionRSA EncryptionType = "RSA"
	EncryptionECC EncryptionType = "ECC"
)

func (e EncryptionType) IsValid() bool {
	return e == EncryptionAES || e == EncryptionRSA || e == EncryptionECC
}

// Hash is the content digest of a stored document.
type Hash []byte

func (h Hash) String() string {
	return hex.EncodeToString(h)
}

// Key returns the hash in a form usable as a map key.
func (h Hash) Key() string {
	return string(h)
}

func ParseHash(s string) (Hash, error) {
	return hex.DecodeString(s)
}

// DocKey identifies a document within the registry.
type DocKey struct {
	Owner Account
	ID    uint64
}

func (k DocKey) String() string {
	return k.Owner.String() + "-" + strconv.FormatUint(k.ID, 10)
}

// Document as recorded by the registry
type Document struct {
	Hash      Hash
	CID       string
	Timestamp uint64
	DocType   DocType
	Metadata  string
	Owner     Account

	// Status is true for every stored record; deletion removes the record.
	Status bool

	Version        uint64
	Expiry         *uint64
	Size           uint64
	Location       string
	Currency       Currency
	DocName        string
	Description    string
	Category       string
	Tags           []string
	AccessLevel    uint
	EncryptionType EncryptionType
	Verifier       *Account
	Signature      []byte
	Proof          []byte
}

// Clone returns a deep copy, so that callers never share slices with the store.
func (d Document) Clone() Document {
	c := d
	c.Hash = append(Hash(nil), d.Hash...)
	if d.Tags != nil {
		c.Tags = append([]string(nil), d.Tags...)
	}
	if d.Expiry != nil {
		expiry := *d.Expiry
		c.Expiry = &expiry
	}
	if d.Verifier != nil {
		verifier := *d.Verifier
		c.Verifier = &verifier
	}
	if d.Signature != nil {
		c.Signature = append([]byte(nil), d.Signature...)
	}
	if d.Proof != nil {
		c.Proof = append([]byte(nil), d.Proof...)
	}
	return c
}

// DocUpdate is the most recent update applied to a document.
type DocUpdate struct {
	Timestamp uint64
	Updater   Account
	OldHash   Hash
	NewHash   Hash
	Reason    string
}

func (u DocUpdate) Clone() DocUpdate {
	c := u
	c.OldHash = append(Hash(nil), u.OldHash...)
	c.NewHash = append(Hash(nil), u.NewHash...)
	return c
}
