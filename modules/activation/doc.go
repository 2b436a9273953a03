// Package activation exposes the activation key HTTP API: the public
// verify endpoints called by external storefronts and the authenticated
// merchant endpoints for key rotation, status, and usage history.
package activation
