package services

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrTransientIO      = errors.New("transient io failure")
	ErrLeaseUnavailable = errors.New("lease service unavailable")
	ErrMissingLocation  = errors.New("missing location")
	ErrDecodeFailure    = errors.New("decode failure")
	ErrInference        = errors.New("inference failure")
	ErrConfiguration    = errors.New("configuration error")
)

// Wrap builds an error message that includes stage context while tagging it with
// the provided marker for later classification. The marker should be one of the
// exported sentinel errors above.
func Wrap(marker error, stage, operation, message string, err error) error {
	detail := buildDetail(stage, operation, message)
	if marker == nil {
		marker = ErrTransientIO
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// FailureReason maps an item error to the short reason recorded in the run
// ledger. Unclassified errors are reported as transient I/O, since the only
// recovery is a later rerun.
func FailureReason(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrLeaseUnavailable):
		return "lease_unavailable"
	case errors.Is(err, ErrInference):
		return "inference_failure"
	case errors.Is(err, ErrDecodeFailure):
		return "decode_failure"
	case errors.Is(err, ErrMissingLocation):
		return "missing_location"
	case errors.Is(err, ErrConfiguration):
		return "configuration"
	default:
		return "transient_io"
	}
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
