package activation

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/merchantkit/keygate/core"
	"github.com/merchantkit/keygate/pkg/activationkey"
	"github.com/merchantkit/keygate/pkg/clientip"
	"github.com/merchantkit/keygate/pkg/jwt"
	"github.com/merchantkit/keygate/pkg/subscription"
)

type verifyRequest struct {
	Key          string `json:"key"`
	StoreURL     string `json:"storeUrl,omitempty"`
	StoreDomain  string `json:"storeDomain,omitempty"`
	StoreVersion string `json:"storeVersion,omitempty"`
}

type verifyData struct {
	Merchant     verifyMerchant     `json:"merchant"`
	Subscription verifySubscription `json:"subscription"`
	Store        verifyStore        `json:"store"`
	VerifiedAt   time.Time          `json:"verifiedAt"`
}

type verifyMerchant struct {
	ID string `json:"id"`
}

type verifySubscription struct {
	PlanType      string    `json:"planType"`
	BillingCycle  string    `json:"billingCycle"`
	Status        string    `json:"status"`
	EndDate       time.Time `json:"endDate"`
	InGracePeriod bool      `json:"inGracePeriod"`
}

type verifyStore struct {
	URL    string `json:"url,omitempty"`
	Domain string `json:"domain,omitempty"`
}

func (s *Service) verifyPost(w http.ResponseWriter, r *http.Request) {
	var req verifyRequest
	if err := core.DecodeJSON(r, &req); err != nil {
		core.RespondError(w, err)
		return
	}

	res := s.verify(r, req)
	if !res.Valid {
		respondInvalid(w, res)
		return
	}

	core.RespondValid(w, verifyData{
		Merchant: verifyMerchant{ID: res.Summary.MerchantID.String()},
		Subscription: verifySubscription{
			PlanType:      string(res.Summary.PlanType),
			BillingCycle:  string(res.Summary.BillingCycle),
			Status:        string(res.Summary.SubscriptionStatus),
			EndDate:       res.Summary.SubscriptionEnd,
			InGracePeriod: res.Summary.InGracePeriod,
		},
		Store: verifyStore{
			URL:    res.Summary.StoreURL,
			Domain: res.Summary.StoreDomain,
		},
		VerifiedAt: res.VerifiedAt,
	})
}

// verifyGet serves the polling variant: same decision, minimal payload.
func (s *Service) verifyGet(w http.ResponseWriter, r *http.Request) {
	req := verifyRequest{Key: r.URL.Query().Get("key")}

	res := s.verify(r, req)
	if !res.Valid {
		respondInvalid(w, res)
		return
	}

	core.RespondValid(w, map[string]any{"verifiedAt": res.VerifiedAt})
}

func (s *Service) verify(r *http.Request, req verifyRequest) *activationkey.VerificationResult {
	ctx, cancel := context.WithTimeout(r.Context(), s.verifyTimeout)
	defer cancel()

	meta := activationkey.CallerMeta{
		IPAddress:    clientip.GetIPFromContext(r.Context()),
		UserAgent:    r.UserAgent(),
		StoreURL:     req.StoreURL,
		StoreDomain:  req.StoreDomain,
		StoreVersion: req.StoreVersion,
	}
	if meta.IPAddress == "" {
		meta.IPAddress = clientip.GetIP(r)
	}

	res, err := s.verifier.Verify(ctx, req.Key, meta)
	if err != nil {
		// Verify reports expected failures in the result; an error here
		// is infrastructure-level.
		s.log.ErrorContext(r.Context(), "verification failed",
			"error", err.Error())
		return &activationkey.VerificationResult{
			Valid:   false,
			Code:    activationkey.CodeInternalError,
			Message: "verification could not be completed",
		}
	}
	return res
}

// respondInvalid keeps the external contract: invalid keys answer 401,
// internal failures answer 500. Callers must be able to tell the two
// apart.
func respondInvalid(w http.ResponseWriter, res *activationkey.VerificationResult) {
	status := http.StatusUnauthorized
	if res.Code == activationkey.CodeInternalError {
		status = http.StatusInternalServerError
	}
	core.RespondInvalid(w, status, string(res.Code), res.Message, string(res.SubscriptionStatus))
}

type keyResponse struct {
	ID                string     `json:"id"`
	Key               string     `json:"key"`
	Status            string     `json:"status"`
	ExpiresAt         time.Time  `json:"expiresAt"`
	IsUsed            bool       `json:"isUsed"`
	UsedAt            *time.Time `json:"usedAt,omitempty"`
	VerificationCount int64      `json:"verificationCount"`
	LastVerifiedAt    *time.Time `json:"lastVerifiedAt,omitempty"`
	StoreURL          string     `json:"storeUrl,omitempty"`
	StoreDomain       string     `json:"storeDomain,omitempty"`
	CreatedAt         time.Time  `json:"createdAt"`
}

func toKeyResponse(key *activationkey.ActivationKey) keyResponse {
	return keyResponse{
		ID:                key.ID.String(),
		Key:               key.Key,
		Status:            string(key.Status),
		ExpiresAt:         key.ExpiresAt,
		IsUsed:            key.IsUsed,
		UsedAt:            key.UsedAt,
		VerificationCount: key.VerificationCount,
		LastVerifiedAt:    key.LastVerifiedAt,
		StoreURL:          key.StoreURL,
		StoreDomain:       key.StoreDomain,
		CreatedAt:         key.CreatedAt,
	}
}

type regenerateRequest struct {
	Reason string `json:"reason,omitempty"`
}

func (s *Service) regenerate(w http.ResponseWriter, r *http.Request) {
	merchantID, ok := jwt.MerchantIDFromContext(r.Context())
	if !ok {
		core.RespondError(w, core.ErrAuth)
		return
	}

	var req regenerateRequest
	if err := core.DecodeJSON(r, &req); err != nil {
		core.RespondError(w, err)
		return
	}
	reason := req.Reason
	if reason == "" {
		reason = "merchant requested regeneration"
	}

	key, err := s.issuance.Issue(r.Context(), merchantID, reason)
	if err != nil {
		if errors.Is(err, subscription.ErrSubscriptionNotFound) {
			core.RespondError(w, core.NotFoundError("no subscription for merchant"))
			return
		}
		s.log.ErrorContext(r.Context(), "key regeneration failed",
			"merchant_id", merchantID.String(),
			"error", err.Error())
		core.RespondError(w, err)
		return
	}

	core.RespondOK(w, toKeyResponse(key))
}

func (s *Service) keyStatus(w http.ResponseWriter, r *http.Request) {
	merchantID, ok := jwt.MerchantIDFromContext(r.Context())
	if !ok {
		core.RespondError(w, core.ErrAuth)
		return
	}

	key, err := s.issuance.GetCurrent(r.Context(), merchantID)
	if err != nil {
		if errors.Is(err, activationkey.ErrKeyNotFound) {
			core.RespondError(w, core.NotFoundError("no activation key issued"))
			return
		}
		s.log.ErrorContext(r.Context(), "key status lookup failed",
			"merchant_id", merchantID.String(),
			"error", err.Error())
		core.RespondError(w, err)
		return
	}

	core.RespondOK(w, toKeyResponse(key))
}

type attemptResponse struct {
	IPAddress    string    `json:"ipAddress"`
	UserAgent    string    `json:"userAgent,omitempty"`
	StoreURL     string    `json:"storeUrl,omitempty"`
	StoreVersion string    `json:"storeVersion,omitempty"`
	Success      bool      `json:"success"`
	ErrorMessage string    `json:"errorMessage,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
}

const (
	defaultUsageLimit = 20
	maxUsageLimit     = 100
)

func (s *Service) usage(w http.ResponseWriter, r *http.Request) {
	merchantID, ok := jwt.MerchantIDFromContext(r.Context())
	if !ok {
		core.RespondError(w, core.ErrAuth)
		return
	}

	limit := defaultUsageLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			core.RespondError(w, core.ValidationError("limit must be a positive integer"))
			return
		}
		limit = min(n, maxUsageLimit)
	}

	attempts, err := s.verifier.Usage(r.Context(), merchantID, limit)
	if err != nil {
		if errors.Is(err, activationkey.ErrKeyNotFound) {
			core.RespondError(w, core.NotFoundError("no activation key issued"))
			return
		}
		s.log.ErrorContext(r.Context(), "usage listing failed",
			"merchant_id", merchantID.String(),
			"error", err.Error())
		core.RespondError(w, err)
		return
	}

	out := make([]attemptResponse, 0, len(attempts))
	for _, a := range attempts {
		out = append(out, attemptResponse{
			IPAddress:    a.IPAddress,
			UserAgent:    a.UserAgent,
			StoreURL:     a.StoreURL,
			StoreVersion: a.StoreVersion,
			Success:      a.Success,
			ErrorMessage: a.ErrorMessage,
			CreatedAt:    a.CreatedAt,
		})
	}

	core.RespondOK(w, map[string]any{"attempts": out})
}
