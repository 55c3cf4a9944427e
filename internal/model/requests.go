package model

// BackupRequest holds the attributes of a document to be registered.
type BackupRequest struct {
	Hash           Hash
	CID            string
	DocType        DocType
	Metadata       string
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

type UpdateRequest struct {
	DocID    uint64
	Hash     Hash
	CID      string
	Metadata string
	Reason   string
}
