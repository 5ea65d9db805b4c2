package handler

import (
	"io"
	"log/slog"
	"net/http"

	"github.com/templui/estatedesk/internal/ctxkeys"
	"github.com/templui/estatedesk/internal/model"
	"github.com/templui/estatedesk/internal/service/payment"
)

const maxWebhookBody = 1 << 20

type BillingHandler struct {
	paymentService payment.Provider
}

func NewBillingHandler(paymentService payment.Provider) *BillingHandler {
	return &BillingHandler{paymentService: paymentService}
}

func (h *BillingHandler) CreateCheckout(w http.ResponseWriter, r *http.Request) {
	agent := ctxkeys.Agent(r.Context())

	var req struct {
		Plan     string `json:"plan"`
		Interval string `json:"interval"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeServiceError(w, "failed to decode checkout request", err)
		return
	}

	if !model.IsPaidPlan(req.Plan) {
		writeError(w, http.StatusBadRequest, "plan must be one of: pro, agency")
		return
	}
	if req.Interval == "" {
		req.Interval = model.SubscriptionIntervalMonthly
	}
	if req.Interval != model.SubscriptionIntervalMonthly && req.Interval != model.SubscriptionIntervalYearly {
		writeError(w, http.StatusBadRequest, "interval must be monthly or yearly")
		return
	}

	checkoutURL, err := h.paymentService.CreateCheckoutURL(agent.ID, req.Plan, req.Interval, agent.Email, agent.DisplayName())
	if err != nil {
		slog.Error("failed to create checkout", "error", err, "agent_id", agent.ID, "plan", req.Plan, "provider", h.paymentService.Name())
		writeError(w, http.StatusBadGateway, "failed to create checkout session")
		return
	}

	slog.Info("checkout created", "agent_id", agent.ID, "provider", h.paymentService.Name(), "plan", req.Plan)
	writeJSON(w, http.StatusOK, map[string]string{"url": checkoutURL})
}

func (h *BillingHandler) CustomerPortal(w http.ResponseWriter, r *http.Request) {
	agent := ctxkeys.Agent(r.Context())

	portalURL, err := h.paymentService.CustomerPortalURL(agent.ID)
	if err != nil {
		slog.Error("failed to get customer portal", "error", err, "agent_id", agent.ID, "provider", h.paymentService.Name())
		writeError(w, http.StatusBadGateway, "failed to access customer portal")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"url": portalURL})
}

func (h *BillingHandler) Webhook(w http.ResponseWriter, r *http.Request) {
	payload, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
	if err != nil {
		slog.Error("failed to read webhook payload", "error", err)
		writeError(w, http.StatusBadRequest, "failed to read payload")
		return
	}
	defer func() {
		closeErr := r.Body.Close()
		if closeErr != nil {
			slog.Error("failed to close request body", "error", closeErr)
		}
	}()

	err = h.paymentService.HandleWebhook(payload, r.Header)
	if err != nil {
		slog.Error("failed to handle webhook", "error", err, "provider", h.paymentService.Name())
		writeError(w, http.StatusBadRequest, "failed to process webhook")
		return
	}

	writeJSON(w, http.StatusOK, map[string]bool{"received": true})
}
