package registry

import "doc-registry/internal/model"

const (
	DefaultMaxDocsPerUser int64 = 50
	DefaultBackupFee      int64 = 500
)

// AuthorityConfig holds the process-wide settings gating every write.
// The authority is set once; quota and fee may change only after that.
// It is not safe for concurrent use on its own; the Registry serializes access.
type AuthorityConfig struct {
	authority      model.Account
	burnAccount    model.Account
	maxDocsPerUser int64
	backupFee      int64
}

func NewAuthorityConfig(burnAccount model.Account) *AuthorityConfig {
	if burnAccount.IsEmpty() {
		burnAccount = model.BurnAccount
	}
	return &AuthorityConfig{
		burnAccount:    burnAccount,
		maxDocsPerUser: DefaultMaxDocsPerUser,
		backupFee:      DefaultBackupFee,
	}
}

// WithLimits replaces the initial quota and fee; non-positive quota and
// negative fee keep the defaults.
func (c *AuthorityConfig) WithLimits(maxDocsPerUser, backupFee int64) *AuthorityConfig {
	if maxDocsPerUser > 0 {
		c.maxDocsPerUser = maxDocsPerUser
	}
	if backupFee >= 0 {
		c.backupFee = backupFee
	}
	return c
}

func (c *AuthorityConfig) IsSet() bool {
	return !c.authority.IsEmpty()
}

func (c *AuthorityConfig) Authority() model.Account {
	return c.authority
}

func (c *AuthorityConfig) MaxDocsPerUser() int64 {
	return c.maxDocsPerUser
}

func (c *AuthorityConfig) BackupFee() int64 {
	return c.backupFee
}

// SetAuthority records the authority account; first writer wins.
// A second call fails with ErrAuthorityNotSet.
func (c *AuthorityConfig) SetAuthority(account model.Account) error {
	if account == c.burnAccount || account.IsEmpty() {
		return ErrNotAuthorized
	}
	if c.IsSet() {
		return ErrAuthorityNotSet
	}
	c.authority = account
	return nil
}

func (c *AuthorityConfig) SetMaxDocsPerUser(n int64) error {
	if !c.IsSet() {
		return ErrAuthorityNotSet
	}
	if n <= 0 {
		return ErrInvalidUpdateParam
	}
	c.maxDocsPerUser = n
	return nil
}

func (c *AuthorityConfig) SetBackupFee(n int64) error {
	if !c.IsSet() {
		return ErrAuthorityNotSet
	}
	if n < 0 {
		return ErrInvalidUpdateParam
	}
	c.backupFee = n
	return nil
}
