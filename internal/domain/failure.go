package domain

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrSourceUnavailable  = errors.New("source unavailable")
	ErrMarkupMismatch     = errors.New("markup mismatch")
	ErrInteractionTimeout = errors.New("interaction timeout")
	ErrPartialInteraction = errors.New("partial interaction failure")
)

type FailureKind string

const (
	KindSourceUnavailable  FailureKind = "source_unavailable"
	KindMarkupMismatch     FailureKind = "markup_mismatch"
	KindInteractionTimeout FailureKind = "interaction_timeout"
	KindPartialInteraction FailureKind = "partial_interaction"
)

// Failure records one board that could not be scraped in a run.
type Failure struct {
	Source  string
	Company string
	Kind    FailureKind
	Reason  string
}

func NewFailure(source, company string, err error) Failure {
	reason := "unknown error"
	if err != nil {
		reason = strings.TrimSpace(err.Error())
	}
	return Failure{
		Source:  source,
		Company: company,
		Kind:    Classify(err),
		Reason:  reason,
	}
}

// Classify maps an adapter error onto the failure taxonomy.
// Partial interaction wins over everything else because it decides whether
// results were discarded. Unrecognized errors count as the source being unavailable.
func Classify(err error) FailureKind {
	switch {
	case errors.Is(err, ErrPartialInteraction):
		return KindPartialInteraction
	case errors.Is(err, ErrInteractionTimeout):
		return KindInteractionTimeout
	case errors.Is(err, ErrMarkupMismatch):
		return KindMarkupMismatch
	default:
		return KindSourceUnavailable
	}
}

func (f Failure) String() string {
	return fmt.Sprintf("%s could not be scraped [%s/%s]: %s", f.Company, f.Source, f.Kind, f.Reason)
}
