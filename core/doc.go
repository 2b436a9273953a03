// Package core defines the HTTP error taxonomy and the JSON response
// envelope shared by all API modules. Handlers return domain errors;
// RespondError maps them onto stable machine-readable codes so external
// callers can distinguish "your key is wrong" from "the service is down".
package core
