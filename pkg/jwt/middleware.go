package jwt

import (
	"net/http"
	"strings"
)

// TokenExtractorFunc extracts a token from an HTTP request.
type TokenExtractorFunc func(r *http.Request) (string, error)

// Middleware validates the request's bearer token and stores the
// authenticated merchant id in the context. Requests without a valid
// token are rejected with 401 before reaching the handler.
func Middleware(service *Service) func(next http.Handler) http.Handler {
	return MiddlewareWithExtractor(service, BearerTokenExtractor)
}

// MiddlewareWithExtractor is Middleware with a custom token source.
func MiddlewareWithExtractor(service *Service, extractor TokenExtractorFunc) func(next http.Handler) http.Handler {
	if extractor == nil {
		extractor = BearerTokenExtractor
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tokenString, err := extractor(r)
			if err != nil {
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}

			merchantID, err := service.ParseMerchantToken(tokenString)
			if err != nil {
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}

			ctx := SetToken(r.Context(), tokenString)
			ctx = SetMerchantID(ctx, merchantID)

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// BearerTokenExtractor reads "Authorization: Bearer <token>" per RFC 6750.
func BearerTokenExtractor(r *http.Request) (string, error) {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return "", ErrInvalidToken
	}

	parts := strings.Split(authHeader, " ")
	if len(parts) != 2 || parts[0] != "Bearer" {
		return "", ErrInvalidToken
	}

	return parts[1], nil
}

// HeaderTokenExtractor reads the token from a custom header.
func HeaderTokenExtractor(headerName string) TokenExtractorFunc {
	return func(r *http.Request) (string, error) {
		token := r.Header.Get(headerName)
		if token == "" {
			return "", ErrInvalidToken
		}
		return token, nil
	}
}
