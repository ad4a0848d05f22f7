package ledger

import "errors"

// Error kinds named in the block-validation error design: every check
// failure wraps one of these with fmt.Errorf("...: %w", ErrX) carrying the
// offending field, so callers can classify a failure with errors.Is
// without parsing message text.
var (
	ErrDuplicate          = errors.New("ledger: duplicate artifact")
	ErrMissing            = errors.New("ledger: required artifact is missing")
	ErrMismatch           = errors.New("ledger: structural mismatch")
	ErrOutOfRange         = errors.New("ledger: value out of range")
	ErrOverflow           = errors.New("ledger: arithmetic overflow")
	ErrVerificationFailed = errors.New("ledger: verification failed")
	ErrUnsupported        = errors.New("ledger: unsupported or reserved variant")
)
