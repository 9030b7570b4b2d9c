package noist

import "errors"

// Share-map construction and verification errors.
var (
	ErrTooFewSignatories = errors.New("noist: at least three signatories are required")
)

// Session errors.
var (
	ErrSessionAlreadyConsumed = errors.New("noist: session nonce slot already consumed")
	ErrDealerNotSignatory     = errors.New("noist: dealer is not a member of the signatory set")
	ErrShareMapAlreadyPresent = errors.New("noist: share map already inserted for this dealer")
	ErrShareMapIncomplete     = errors.New("noist: share map does not cover every signatory")
	ErrShareMapVSSInvalid     = errors.New("noist: share map failed VSS verification")
	ErrShareMapVSEInvalid     = errors.New("noist: share map failed VSE verification")
)

// Directory errors.
var (
	ErrDirectorySetupNotValidated = errors.New("noist: directory's VSE setup has not been validated")
	ErrNonceSessionNotFound       = errors.New("noist: no nonce session at the requested index")
	ErrNoNonceSessionsAvailable   = errors.New("noist: nonce pool is exhausted")
)

// Manager errors.
var (
	ErrDirectoryNotFound = errors.New("noist: no directory at the requested height")
)

// Picker errors.
var (
	ErrGroupKeyNotReady      = errors.New("noist: directory's key-generation session has not filled")
	ErrNonceSessionNotFilled = errors.New("noist: picked nonce session has not filled")
)
