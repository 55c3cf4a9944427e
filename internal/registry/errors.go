package registry

import (
	"errors"
	"strconv"
)

// Code is the stable numeric kind of a registry failure.
type Code uint32

// Error is a validation or authorization failure reported by the registry.
// Registry operations return one of the sentinels below; compare with errors.Is.
type Error struct {
	Code    Code
	message string
}

func (e *Error) Error() string {
	return e.message + " (code " + strconv.FormatUint(uint64(e.Code), 10) + ")"
}

func newError(code Code, message string) *Error {
	return &Error{Code: code, message: message}
}

var (
	ErrNotAuthorized         = newError(100, "not authorized")
	ErrInvalidHash           = newError(101, "invalid hash")
	ErrInvalidCID            = newError(102, "invalid cid")
	ErrInvalidDocType        = newError(103, "invalid document type")
	ErrInvalidMetadata       = newError(105, "invalid metadata")
	ErrDocAlreadyExists      = newError(106, "document already exists")
	ErrDocNotFound           = newError(107, "document not found")
	ErrUserNotRegistered     = newError(108, "user not registered")
	ErrMaxDocsExceeded       = newError(112, "max documents exceeded")
	ErrInvalidUpdateParam    = newError(113, "invalid update parameter")
	ErrInvalidExpiry         = newError(115, "invalid expiry")
	ErrInvalidSize           = newError(116, "invalid size")
	ErrInvalidLocation       = newError(117, "invalid location")
	ErrInvalidCurrency       = newError(118, "invalid currency")
	ErrAuthorityNotSet       = newError(119, "authority not set")
	ErrInvalidDocName        = newError(122, "invalid document name")
	ErrInvalidDescription    = newError(123, "invalid description")
	ErrInvalidCategory       = newError(124, "invalid category")
	ErrInvalidTags           = newError(125, "invalid tags")
	ErrInvalidAccessLevel    = newError(126, "invalid access level")
	ErrInvalidEncryptionType = newError(127, "invalid encryption type")
)

// CodeOf returns the registry code carried by err, if any.
func CodeOf(err error) (Code, bool) {
	var regErr *Error
	if errors.As(err, &regErr) {
		return regErr.Code, true
	}
	return 0, false
}
