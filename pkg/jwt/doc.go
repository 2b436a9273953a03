// Package jwt issues and validates the HMAC-SHA256 bearer tokens that
// authenticate merchants on the management endpoints. Verification calls
// from storefronts use activation keys instead and never touch this
// package.
//
// Service signs and parses tokens; MerchantClaims carries the merchant id
// as the subject. Middleware validates the Authorization header and puts
// the merchant id into the request context, where handlers read it with
// MerchantIDFromContext.
package jwt
