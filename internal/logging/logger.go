// Package logging configures log/slog for the service and builds loggers
// that carry request-scoped fields.
//
// chi's RequestID middleware stores the request id in the context;
// FromContext adds it to every entry so one request can be followed
// through the handler, the service and the store. Middleware can attach
// further fields (the authenticated actor, for example) with ContextWith.
package logging

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/go-chi/chi/v5/middleware"
)

// Setup installs the default slog logger writing to stdout.
//
// Level values: "debug", "info", "warn", "error" (default: "info")
// Format values: "text", "json" (default: "text")
func Setup(level, format string) {
	slog.SetDefault(New(os.Stdout, level, format))
}

// New builds a logger for w. Use "json" in production and "text" locally.
func New(w io.Writer, level, format string) *slog.Logger {
	opts := &slog.HandlerOptions{Level: ParseLevel(level)}

	var handler slog.Handler
	if strings.EqualFold(format, "json") {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}
	return slog.New(handler)
}

// ParseLevel converts a level name to slog.Level. Unknown names map to info.
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

type attrsKey struct{}

// ContextWith returns a copy of ctx whose loggers include args.
// args are key/value pairs as accepted by slog.Logger.With.
func ContextWith(ctx context.Context, args ...any) context.Context {
	prev, _ := ctx.Value(attrsKey{}).([]any)
	merged := make([]any, 0, len(prev)+len(args))
	merged = append(merged, prev...)
	merged = append(merged, args...)
	return context.WithValue(ctx, attrsKey{}, merged)
}

// FromContext returns the default logger enriched with the request id and
// any fields attached with ContextWith.
//
//	func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
//	    logging.FromContext(r.Context()).Info("listing buyers", "page", page)
//	}
func FromContext(ctx context.Context) *slog.Logger {
	logger := slog.Default()

	if reqID := middleware.GetReqID(ctx); reqID != "" {
		logger = logger.With("request_id", reqID)
	}
	if args, ok := ctx.Value(attrsKey{}).([]any); ok && len(args) > 0 {
		logger = logger.With(args...)
	}

	return logger
}

// WithFields returns a request logger with additional fields, for
// operations that log several steps:
//
//	log := logging.WithFields(ctx, "import_id", id)
//	log.Info("import started")
//	log.Info("import completed", "inserted", n)
func WithFields(ctx context.Context, args ...any) *slog.Logger {
	return FromContext(ctx).With(args...)
}
