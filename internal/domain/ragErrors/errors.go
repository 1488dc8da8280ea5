package ragErrors

import (
	"context"
	"errors"
	"fmt"
)

type Kind string

const (
	KindValidation  Kind = "VALIDATION_ERROR"
	KindNotFound    Kind = "NOT_FOUND"
	KindExternal    Kind = "EXTERNAL_SERVICE_FAILURE"
	KindPersistence Kind = "PERSISTENCE_FAILURE"
	KindUnknown     Kind = "UNKNOWN"
)

// stage labels, also used as metric and degradation labels
const (
	StageExtract   = "extract"
	StageEmbedding = "embedding"
	StageIndex     = "index"
	StageAnswer    = "answer"
	StageVision    = "vision"
	StageSpeech    = "speech"
)

type RagError struct {
	Kind    Kind
	Stage   string
	Message string
	Err     error
}

func (e *RagError) Error() string {
	switch e.Kind {
	case KindExternal:
		if e.Err != nil {
			return fmt.Sprintf("%s service failed: %v", e.Stage, e.Err)
		}
		return fmt.Sprintf("%s service failed: %s", e.Stage, e.Message)
	case KindPersistence:
		if e.Err != nil {
			return fmt.Sprintf("index %s failed: %v", e.Stage, e.Err)
		}
		return fmt.Sprintf("index %s failed: %s", e.Stage, e.Message)
	default:
		if e.Message == "" && e.Err != nil {
			return e.Err.Error()
		}
		return e.Message
	}
}

func (e *RagError) Unwrap() error {
	return e.Err
}

func Validation(msg string) error {
	return &RagError{Kind: KindValidation, Message: msg}
}

func NotFound(msg string) error {
	return &RagError{Kind: KindNotFound, Message: msg}
}

// External marks a remote dependency failure at the given stage. Errors that
// already carry a kind are returned unchanged so retries and decorators do not
// stack wrappers.
func External(stage string, err error) error {
	var existing *RagError
	if errors.As(err, &existing) {
		return err
	}
	return &RagError{Kind: KindExternal, Stage: stage, Err: err}
}

func ExternalMessage(stage, msg string) error {
	return &RagError{Kind: KindExternal, Stage: stage, Message: msg}
}

func Persistence(op string, err error) error {
	var existing *RagError
	if errors.As(err, &existing) {
		return err
	}
	return &RagError{Kind: KindPersistence, Stage: op, Err: err}
}

func KindOf(err error) Kind {
	var ragErr *RagError
	if errors.As(err, &ragErr) {
		return ragErr.Kind
	}
	return KindUnknown
}

func StageOf(err error) string {
	var ragErr *RagError
	if errors.As(err, &ragErr) {
		return ragErr.Stage
	}
	return ""
}

func IsNotFound(err error) bool {
	return KindOf(err) == KindNotFound
}

func IsValidation(err error) bool {
	return KindOf(err) == KindValidation
}

// IsPermanent reports whether retrying err cannot succeed.
func IsPermanent(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	switch KindOf(err) {
	case KindValidation, KindNotFound:
		return true
	}
	return false
}
