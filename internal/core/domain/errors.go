package domain

import (
	"errors"
	"fmt"
)

// RefusalMessage is the single user-visible retrieval failure mode. It is
// surfaced verbatim; transport-level errors never leak past the pipeline.
const RefusalMessage = "Sorry, I cannot find the answer in the provided data"

var (
	ErrNoData             = errors.New("no data found")
	ErrSnapshotNotFound   = errors.New("snapshot not found")
	ErrInvalidInput       = errors.New("invalid input")
	ErrRateLimited        = errors.New("rate limited")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrTemporary          = errors.New("temporary failure")
)

// WrapError preserves typed semantic errors with operation context.
func WrapError(kind error, operation string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w: %w", operation, kind, err)
}

func IsKind(err error, kind error) bool {
	return errors.Is(err, kind)
}
