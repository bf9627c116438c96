package services

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrValidation    = errors.New("validation error")
	ErrConfiguration = errors.New("configuration error")
	ErrNotFound      = errors.New("not found")
	ErrTimeout       = errors.New("timeout")
	ErrTransient     = errors.New("transient failure")
	// ErrCollaborator marks a failure inside an external metadata or
	// extraction service.
	ErrCollaborator = errors.New("collaborator failure")
)

// Outcomes recorded in run summaries and checkpoint entries.
const (
	OutcomeOK           = "ok"
	OutcomeFatal        = "fatal"
	OutcomeNoEnrichment = "no_enrichment"
)

// Wrap builds an error message that includes pass context while tagging it with
// the provided marker for later outcome classification. The marker should be one
// of the exported sentinel errors above.
func Wrap(marker error, stage, operation, message string, err error) error {
	detail := buildDetail(stage, operation, message)
	if marker == nil {
		marker = ErrTransient
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// Outcome maps an error to the outcome recorded for the unit of work that
// produced it. Collaborator trouble degrades to no_enrichment; everything
// else halts the run.
func Outcome(err error) string {
	switch {
	case err == nil:
		return OutcomeOK
	case errors.Is(err, ErrCollaborator), errors.Is(err, ErrTimeout), errors.Is(err, ErrTransient), errors.Is(err, ErrNotFound):
		return OutcomeNoEnrichment
	default:
		return OutcomeFatal
	}
}

// Retryable reports whether a collaborator call is worth one more attempt.
func Retryable(err error) bool {
	return errors.Is(err, ErrTimeout) || errors.Is(err, ErrTransient)
}

func buildDetail(stage, operation, message string) string {
	parts := make([]string, 0, 3)
	if stage = strings.TrimSpace(stage); stage != "" {
		parts = append(parts, stage)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}
