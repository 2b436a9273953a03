// Package requestid attaches a correlation ID to every HTTP request.
//
// Middleware reuses a client-supplied "X-Request-ID" header after validating
// it, or generates a UUIDv4 otherwise. The ID is stored in the request
// context, echoed in the response header, and exposed to slog through
// LoggerExtractor so log records from one request can be tied together.
//
// The package never returns errors; an invalid client-supplied ID is
// silently replaced with a generated one.
package requestid
