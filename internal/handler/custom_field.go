package handler

import (
	"net/http"

	"github.com/templui/estatedesk/internal/ctxkeys"
	"github.com/templui/estatedesk/internal/service"
)

type CustomFieldHandler struct {
	customFieldService *service.CustomFieldService
}

func NewCustomFieldHandler(customFieldService *service.CustomFieldService) *CustomFieldHandler {
	return &CustomFieldHandler{customFieldService: customFieldService}
}

func (h *CustomFieldHandler) List(w http.ResponseWriter, r *http.Request) {
	agent := ctxkeys.Agent(r.Context())
	q := r.URL.Query()

	fields, err := h.customFieldService.List(agent.ID, q.Get("property_type"), q.Get("listing_type"))
	if err != nil {
		writeServiceError(w, "failed to list custom fields", err, "agent_id", agent.ID)
		return
	}

	writeJSON(w, http.StatusOK, fields)
}

func (h *CustomFieldHandler) Create(w http.ResponseWriter, r *http.Request) {
	agent := ctxkeys.Agent(r.Context())

	var in service.CreateCustomFieldInput
	if err := decodeJSON(r, &in); err != nil {
		writeServiceError(w, "failed to decode custom field", err)
		return
	}

	field, err := h.customFieldService.Create(agent.ID, in)
	if err != nil {
		writeServiceError(w, "failed to create custom field", err, "agent_id", agent.ID)
		return
	}

	writeJSON(w, http.StatusCreated, field)
}

func (h *CustomFieldHandler) Update(w http.ResponseWriter, r *http.Request) {
	agent := ctxkeys.Agent(r.Context())

	var in service.UpdateCustomFieldInput
	if err := decodeJSON(r, &in); err != nil {
		writeServiceError(w, "failed to decode custom field", err)
		return
	}

	field, err := h.customFieldService.Update(agent.ID, r.PathValue("id"), in)
	if err != nil {
		writeServiceError(w, "failed to update custom field", err, "agent_id", agent.ID, "field_id", r.PathValue("id"))
		return
	}

	writeJSON(w, http.StatusOK, field)
}

func (h *CustomFieldHandler) Delete(w http.ResponseWriter, r *http.Request) {
	agent := ctxkeys.Agent(r.Context())

	err := h.customFieldService.Delete(agent.ID, r.PathValue("id"))
	if err != nil {
		writeServiceError(w, "failed to delete custom field", err, "agent_id", agent.ID, "field_id", r.PathValue("id"))
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *CustomFieldHandler) Reorder(w http.ResponseWriter, r *http.Request) {
	agent := ctxkeys.Agent(r.Context())

	var req struct {
		IDs []string `json:"ids"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeServiceError(w, "failed to decode field order", err)
		return
	}

	err := h.customFieldService.Reorder(agent.ID, req.IDs)
	if err != nil {
		writeServiceError(w, "failed to reorder custom fields", err, "agent_id", agent.ID)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
