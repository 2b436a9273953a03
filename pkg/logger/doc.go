// Package logger builds the service's slog.Logger through functional
// options: output format, level, static attributes, and ContextExtractor
// callbacks that pull request-scoped values (request id, merchant id) out
// of the context on every log call.
//
// New wires the chosen text or JSON handler behind LogHandlerDecorator,
// which runs the extractors before delegating. attr.go holds the shared
// attribute constructors so field names stay consistent across packages.
package logger
