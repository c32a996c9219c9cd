package consensus

import (
	"errors"
	"fmt"

	"github.com/tolelom/dancore/core"
)

// ErrEpochNotActive rejects a proposal for a retired or future epoch
// (spec.md §4.4 step 1, §7).
var ErrEpochNotActive = errors.New("epoch not active")

// ValidationErrKind classifies a ProposalValidationError (spec.md §7).
type ValidationErrKind string

const (
	ErrBlockAlreadyProcessed        ValidationErrKind = "block_already_processed"
	ErrJustifyBlockNotFound         ValidationErrKind = "justify_block_not_found"
	ErrJustifyBlockInvalid          ValidationErrKind = "justify_block_invalid"
	ErrCandidateNotHigherThanJustify ValidationErrKind = "candidate_not_higher_than_justify"
	ErrCandidateDoesNotExtendJustify ValidationErrKind = "candidate_does_not_extend_justify"
	ErrNotSafeBlock                 ValidationErrKind = "not_safe_block"
	ErrInvalidForeignCounters       ValidationErrKind = "invalid_foreign_counters"
)

// ProposalValidationError is C3's typed rejection of a candidate block.
// Only Kind == ErrJustifyBlockNotFound propagates out of the handler to
// trigger sync; every other kind is logged and swallowed (spec.md §4.3/§7).
type ProposalValidationError struct {
	Kind ValidationErrKind
	Msg  string
}

func (e *ProposalValidationError) Error() string {
	return fmt.Sprintf("proposal validation: %s: %s", e.Kind, e.Msg)
}

func newValidationError(kind ValidationErrKind, format string, args ...any) *ProposalValidationError {
	return &ProposalValidationError{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

// IsJustifyNotFound reports whether err is the one validation error kind
// that must propagate to trigger a sync, rather than being demoted to a
// non-fatal rejection.
func IsJustifyNotFound(err error) bool {
	var ve *ProposalValidationError
	if errors.As(err, &ve) {
		return ve.Kind == ErrJustifyBlockNotFound
	}
	return false
}

// HotStuffError wraps any of StorageError, ProposalValidationError, or a
// transient I/O failure, the single error type the local-proposal handler
// returns (spec.md §7).
type HotStuffError struct {
	Err error
}

func (e *HotStuffError) Error() string { return e.Err.Error() }
func (e *HotStuffError) Unwrap() error { return e.Err }

func wrapHotStuff(err error) error {
	if err == nil {
		return nil
	}
	return &HotStuffError{Err: err}
}

// IsFatal reports whether err indicates storage corruption and should
// surface to the supervisor rather than being treated as a routine
// rejection (spec.md §7 propagation policy).
func IsFatal(err error) bool {
	return core.IsFatalStorageErr(err)
}
