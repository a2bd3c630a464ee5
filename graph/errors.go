package graph

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/crmarques/hypersync/faults"
)

func classifyStatusError(operation string, uri string, statusCode int, body []byte) error {
	message := fmt.Sprintf("%s %s failed with status %d: %s", operation, uri, statusCode, summarizeBody(body))

	switch statusCode {
	case http.StatusUnauthorized:
		return faults.NewTypedError(faults.AuthError, message, nil)
	case http.StatusNotFound:
		return faults.NewTypedError(faults.NotFoundError, message, nil)
	case http.StatusConflict, http.StatusPreconditionFailed:
		return faults.NewTypedError(faults.ConflictError, message, nil)
	}

	if statusCode >= 400 && statusCode < 500 {
		return faults.NewTypedError(faults.ValidationError, message, nil)
	}
	return faults.NewTypedError(faults.TransportError, message, nil)
}

func summarizeBody(body []byte) string {
	trimmed := strings.TrimSpace(string(body))
	if trimmed == "" {
		return "<empty>"
	}
	if len(trimmed) > 512 {
		return trimmed[:512] + "..."
	}
	return trimmed
}

// cancelled reports whether err stems from the caller or the scheduler
// abandoning the request, as opposed to the request itself failing.
func cancelled(ctx context.Context, err error) bool {
	if ctx.Err() != nil {
		return true
	}
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

func cancelledError(uri string, err error) error {
	if faults.IsCategory(err, faults.TransportError) {
		return err
	}
	return faults.NewTypedError(faults.TransportError, fmt.Sprintf("request to %s was cancelled", uri), err)
}

func notFound(uri string) error {
	return faults.NewTypedError(faults.NotFoundError, fmt.Sprintf("resource %s has been deleted", uri), nil)
}
