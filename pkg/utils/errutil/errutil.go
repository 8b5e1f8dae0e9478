package errutil

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/getsentry/sentry-go"
	"github.com/hearth-archive/hearth/pkg/utils/logging"
	"github.com/m-mizutani/goerr/v2"
)

// Handle logs the error with a message and reports it to Sentry when a client is configured.
// It returns err unchanged so callers can use it inline.
func Handle(ctx context.Context, err error, msg string) error {
	if err == nil {
		return nil
	}

	logger := logging.From(ctx)
	logger.Error(msg, errorAttrs(err)...)
	sentry.CaptureException(err)

	return err
}

// HandleHTTP logs the error and writes a JSON error response.
// Only 5xx errors are forwarded to Sentry.
func HandleHTTP(ctx context.Context, w http.ResponseWriter, err error, statusCode int) {
	if err == nil {
		return
	}

	logger := logging.From(ctx)
	attrs := append([]any{"status", statusCode}, errorAttrs(err)...)
	if statusCode >= http.StatusInternalServerError {
		logger.Error("HTTP error", attrs...)
		sentry.CaptureException(err)
	} else {
		logger.Warn("HTTP error", attrs...)
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	body, _ := json.Marshal(map[string]string{"error": err.Error()})
	_, _ = w.Write(body)
}

func errorAttrs(err error) []any {
	var ge *goerr.Error
	if errors.As(err, &ge) {
		return []any{
			slog.String("error", err.Error()),
			slog.Any("values", ge.Values()),
			slog.Any("stack", ge.Stacks()),
		}
	}
	return []any{slog.String("error", err.Error())}
}
