package registry

import (
	"unicode/utf8"

	"doc-registry/internal/model"
)

const (
	maxCIDLength         = 46
	maxMetadataLength    = 256
	maxDocSize           = 10485760
	maxLocationLength    = 100
	maxDocNameLength     = 100
	maxDescriptionLength = 200
	maxCategoryLength    = 50
	maxTags              = 10
	maxAccessLevel       = 3
)

func validateHash(hash model.Hash) error {
	if len(hash) != model.HashSize {
		return ErrInvalidHash
	}
	return nil
}

func validateCID(cid string) error {
	if n := utf8.RuneCountInString(cid); n == 0 || n > maxCIDLength {
		return ErrInvalidCID
	}
	return nil
}

func validateDocType(docType model.DocType) error {
	if !docType.IsValid() {
		return ErrInvalidDocType
	}
	return nil
}

func validateMetadata(metadata string) error {
	if utf8.RuneCountInString(metadata) > maxMetadataLength {
		return ErrInvalidMetadata
	}
	return nil
}

// validateExpiry accepts a missing expiry or one strictly after now.
func validateExpiry(expiry *uint64, now uint64) error {
	if expiry != nil && *expiry <= now {
		return ErrInvalidExpiry
	}
	return nil
}

func validateSize(size uint64) error {
	if size > maxDocSize {
		return ErrInvalidSize
	}
	return nil
}

func validateLocation(location string) error {
	if utf8.RuneCountInString(location) > maxLocationLength {
		return ErrInvalidLocation
	}
	return nil
}

func validateCurrency(currency model.Currency) error {
	if !currency.IsValid() {
		return ErrInvalidCurrency
	}
	return nil
}

func validateDocName(name string) error {
	if n := utf8.RuneCountInString(name); n == 0 || n > maxDocNameLength {
		return ErrInvalidDocName
	}
	return nil
}

func validateDescription(description string) error {
	if utf8.RuneCountInString(description) > maxDescriptionLength {
		return ErrInvalidDescription
	}
	return nil
}

func validateCategory(category string) error {
	if utf8.RuneCountInString(category) > maxCategoryLength {
		return ErrInvalidCategory
	}
	return nil
}

func validateTags(tags []string) error {
	if len(tags) > maxTags {
		return ErrInvalidTags
	}
	return nil
}

func validateAccessLevel(level uint) error {
	if level > maxAccessLevel {
		return ErrInvalidAccessLevel
	}
	return nil
}

func validateEncryptionType(encryption model.EncryptionType) error {
	if !encryption.IsValid() {
		return ErrInvalidEncryptionType
	}
	return nil
}

// validateBackupFields runs the stateless attribute checks of a backup in
// their fixed order and returns the first failure.
func validateBackupFields(req model.BackupRequest, now uint64) error {
	checks := []func() error{
		func() error { return validateHash(req.Hash) },
		func() error { return validateCID(req.CID) },
		func() error { return validateDocType(req.DocType) },
		func() error { return validateMetadata(req.Metadata) },
		func() error { return validateExpiry(req.Expiry, now) },
		func() error { return validateSize(req.Size) },
		func() error { return validateLocation(req.Location) },
		func() error { return validateCurrency(req.Currency) },
		func() error { return validateDocName(req.DocName) },
		func() error { return validateDescription(req.Description) },
		func() error { return validateCategory(req.Category) },
		func() error { return validateTags(req.Tags) },
		func() error { return validateAccessLevel(req.AccessLevel) },
		func() error { return validateEncryptionType(req.EncryptionType) },
	}
	for _, check := range checks {
		if err := check(); err != nil {
			return err
		}
	}
	return nil
}

// validateUpdateFields checks the replacement attributes of an update.
func validateUpdateFields(req model.UpdateRequest, current model.Hash) error {
	if err := validateHash(req.Hash); err != nil {
		return err
	}
	if err := validateCID(req.CID); err != nil {
		return err
	}
	if err := validateMetadata(req.Metadata); err != nil {
		return err
	}
	if req.Hash.Key() == current.Key() {
		return ErrInvalidUpdateParam
	}
	return nil
}
