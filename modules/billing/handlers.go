package billing

import (
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/merchantkit/keygate/core"
	"github.com/merchantkit/keygate/pkg/jwt"
	"github.com/merchantkit/keygate/pkg/subscription"
)

type statusResponse struct {
	Status            string    `json:"status"`
	PlanType          string    `json:"planType"`
	BillingCycle      string    `json:"billingCycle"`
	EndDate           time.Time `json:"endDate"`
	DaysRemaining     int       `json:"daysRemaining"`
	IsActive          bool      `json:"isActive"`
	IsExpired         bool      `json:"isExpired"`
	IsSuspended       bool      `json:"isSuspended"`
	IsCancelled       bool      `json:"isCancelled"`
	IsInGracePeriod   bool      `json:"isInGracePeriod"`
	DaysInGracePeriod int       `json:"daysInGracePeriod"`
	NeedsRenewal      bool      `json:"needsRenewal"`
	IsOverdue         bool      `json:"isOverdue"`
	Message           string    `json:"message"`
	RecommendedAction string    `json:"recommendedAction,omitempty"`
}

func (s *Service) checkStatus(w http.ResponseWriter, r *http.Request) {
	merchantID, ok := jwt.MerchantIDFromContext(r.Context())
	if !ok {
		core.RespondError(w, core.ErrAuth)
		return
	}

	sub, err := s.subs.Get(r.Context(), merchantID)
	if err != nil {
		if errors.Is(err, subscription.ErrSubscriptionNotFound) {
			core.RespondError(w, core.NotFoundError("no subscription for merchant"))
			return
		}
		s.log.ErrorContext(r.Context(), "subscription lookup failed",
			"merchant_id", merchantID.String(),
			"error", err.Error())
		core.RespondError(w, err)
		return
	}

	info, err := s.subs.Status(r.Context(), merchantID)
	if err != nil {
		core.RespondError(w, err)
		return
	}

	core.RespondOK(w, statusResponse{
		Status:            string(info.Status),
		PlanType:          string(sub.PlanType),
		BillingCycle:      string(sub.BillingCycle),
		EndDate:           sub.EndDate,
		DaysRemaining:     info.DaysRemaining,
		IsActive:          info.IsActive,
		IsExpired:         info.IsExpired,
		IsSuspended:       info.IsSuspended,
		IsCancelled:       info.IsCancelled,
		IsInGracePeriod:   info.IsInGracePeriod,
		DaysInGracePeriod: info.DaysInGracePeriod,
		NeedsRenewal:      info.NeedsRenewal,
		IsOverdue:         info.IsOverdue,
		Message:           info.Message,
		RecommendedAction: info.RecommendedAction,
	})
}

type renewRequest struct {
	PlanType      string `json:"planType"`
	BillingCycle  string `json:"billingCycle"`
	PaymentMethod string `json:"paymentMethod,omitempty"`
}

type renewResponse struct {
	Status          string     `json:"status"`
	PlanType        string     `json:"planType"`
	BillingCycle    string     `json:"billingCycle"`
	StartDate       time.Time  `json:"startDate"`
	EndDate         time.Time  `json:"endDate"`
	LastPaymentDate *time.Time `json:"lastPaymentDate,omitempty"`
	NextPaymentDate *time.Time `json:"nextPaymentDate,omitempty"`
}

func (s *Service) renew(w http.ResponseWriter, r *http.Request) {
	merchantID, ok := jwt.MerchantIDFromContext(r.Context())
	if !ok {
		core.RespondError(w, core.ErrAuth)
		return
	}

	var req renewRequest
	if err := core.DecodeJSON(r, &req); err != nil {
		core.RespondError(w, err)
		return
	}

	sub, err := s.subs.Renew(r.Context(), merchantID,
		subscription.PlanType(req.PlanType),
		subscription.BillingCycle(req.BillingCycle),
		req.PaymentMethod,
	)
	if err != nil {
		switch {
		case errors.Is(err, subscription.ErrInvalidPlanType):
			core.RespondError(w, core.ValidationError("planType must be one of basic, premium, enterprise"))
		case errors.Is(err, subscription.ErrInvalidBillingCycle):
			core.RespondError(w, core.ValidationError("billingCycle must be one of monthly, yearly"))
		case errors.Is(err, subscription.ErrSubscriptionNotFound):
			core.RespondError(w, core.NotFoundError("no subscription for merchant"))
		case errors.Is(err, subscription.ErrPaymentFailed):
			core.RespondError(w, core.ErrPaymentFailed)
		default:
			s.log.ErrorContext(r.Context(), "renewal failed",
				"merchant_id", merchantID.String(),
				"error", err.Error())
			core.RespondError(w, err)
		}
		return
	}

	core.RespondOK(w, renewResponse{
		Status:          string(sub.Status),
		PlanType:        string(sub.PlanType),
		BillingCycle:    string(sub.BillingCycle),
		StartDate:       sub.StartDate,
		EndDate:         sub.EndDate,
		LastPaymentDate: sub.LastPaymentDate,
		NextPaymentDate: sub.NextPaymentDate,
	})
}

// maxWebhookBytes caps the inbound event body.
const maxWebhookBytes = 1 << 20

// paddleWebhook verifies the event signature before any parsing and
// answers 500 on processing failures so the provider redelivers.
func (s *Service) paddleWebhook(w http.ResponseWriter, r *http.Request) {
	payload, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBytes))
	if err != nil {
		core.RespondError(w, core.ValidationError("unreadable webhook body"))
		return
	}

	err = s.subs.HandleWebhook(r.Context(), payload, r.Header.Get("Paddle-Signature"))
	if err != nil {
		switch {
		case errors.Is(err, subscription.ErrSignatureInvalid), errors.Is(err, subscription.ErrMissingWebhookSecret):
			core.RespondError(w, core.ErrSignature)
		case errors.Is(err, subscription.ErrMalformedWebhook):
			core.RespondError(w, core.ValidationError("malformed webhook payload"))
		default:
			s.log.ErrorContext(r.Context(), "webhook processing failed",
				"error", err.Error())
			core.RespondError(w, err)
		}
		return
	}

	core.RespondOK(w, nil)
}
