// Package clientip extracts the originating client's IP address from an
// *http.Request behind one or more reverse proxies.
//
// The resolution order is X-Forwarded-For (first valid IP in the list),
// then X-Real-IP, then the TCP peer address. The resolved address feeds
// rate limiting and the verification audit trail, so an invalid or
// spoofed-looking value falls through to the next source instead of being
// trusted as-is.
//
// Middleware stores the resolved address in the request context;
// GetIPFromContext retrieves it in downstream handlers.
package clientip
