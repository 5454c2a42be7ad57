package handlers

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/headonpro/viktoria-wertheim-backend-sub022/middleware"
	"github.com/headonpro/viktoria-wertheim-backend-sub022/models"
	"github.com/headonpro/viktoria-wertheim-backend-sub022/monitoring"
)

type AlertHandler struct {
	alerts *monitoring.AlertManager
}

func NewAlertHandler(alerts *monitoring.AlertManager) *AlertHandler {
	return &AlertHandler{alerts: alerts}
}

func (h *AlertHandler) List(w http.ResponseWriter, r *http.Request) {
	var status *models.AlertStatus
	if raw := r.URL.Query().Get("status"); raw != "" {
		s := models.AlertStatus(raw)
		switch s {
		case models.AlertStatusActive, models.AlertStatusAcknowledged, models.AlertStatusResolved:
			status = &s
		default:
			badRequestResponse(w, r, fmt.Errorf("invalid status query parameter: %q", raw))
			return
		}
	}

	response := jsonResponse{"alerts": h.alerts.List(status)}
	if err := writeJSON(w, http.StatusOK, response, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *AlertHandler) Rules(w http.ResponseWriter, r *http.Request) {
	response := jsonResponse{"rules": h.alerts.Rules()}
	if err := writeJSON(w, http.StatusOK, response, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *AlertHandler) Acknowledge(w http.ResponseWriter, r *http.Request) {
	alertID := chi.URLParam(r, "alertID")
	if alertID == "" {
		badRequestResponse(w, r, errors.New("missing alertID parameter"))
		return
	}

	actor := middleware.GetActorFromContext(r.Context())
	alert, err := h.alerts.Acknowledge(alertID, actor)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	response := jsonResponse{"alert": alert}
	if err := writeJSON(w, http.StatusOK, response, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *AlertHandler) Resolve(w http.ResponseWriter, r *http.Request) {
	alertID := chi.URLParam(r, "alertID")
	if alertID == "" {
		badRequestResponse(w, r, errors.New("missing alertID parameter"))
		return
	}

	actor := middleware.GetActorFromContext(r.Context())
	alert, err := h.alerts.Resolve(alertID, actor)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	response := jsonResponse{"alert": alert}
	if err := writeJSON(w, http.StatusOK, response, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}
