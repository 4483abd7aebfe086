package usecase

import (
	"errors"
	"fmt"
)

// ErrNoCards is returned when every job was dropped or failed.
var ErrNoCards = errors.New("no cards survived extraction")

// ExtractionFailure is a job that could not be cut after all attempts.
type ExtractionFailure struct {
	Ordinal    int
	SourceText string
	Attempts   int
	Err        error
}

func (e *ExtractionFailure) Error() string {
	return fmt.Sprintf("clip %d (%q) failed after %d attempt(s): %v", e.Ordinal, e.SourceText, e.Attempts, e.Err)
}

func (e *ExtractionFailure) Unwrap() error { return e.Err }

// TranslationFailure is a job whose source text could not be translated.
type TranslationFailure struct {
	Ordinal    int
	SourceText string
	Err        error
}

func (e *TranslationFailure) Error() string {
	return fmt.Sprintf("translate clip %d (%q): %v", e.Ordinal, e.SourceText, e.Err)
}

func (e *TranslationFailure) Unwrap() error { return e.Err }
