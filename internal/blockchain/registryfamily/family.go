package registryfamily

type Action string

const (
	ActionSetAuthority Action = "set-authority"
	ActionSetMaxDocs   Action = "set-max-docs"
	ActionSetFee       Action = "set-fee"
	ActionBackup       Action = "backup"
	ActionUpdate       Action = "update"
	ActionDelete       Action = "delete"
)

const (
	FamilyName    string = "docregistry"
	FamilyVersion string = "1.0"

	// to hold a document record
	docPrefix = "doc"
	// to hold the hash index entry of a document
	hashPrefix = "hash"
	// to hold the document count of a user
	userPrefix = "user"
	// to hold the registry settings
	configPrefix = "config"
)
