// Package billing exposes the subscription HTTP API: the authenticated
// merchant endpoints for status checks and renewal, and the signed
// webhook ingress for payment provider events.
package billing
