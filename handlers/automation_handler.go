package handlers

import (
	"net/http"

	"github.com/headonpro/viktoria-wertheim-backend-sub022/middleware"
	"github.com/headonpro/viktoria-wertheim-backend-sub022/models"
	"github.com/headonpro/viktoria-wertheim-backend-sub022/services"
)

type AutomationHandler struct {
	automation services.AutomationService
}

func NewAutomationHandler(automation services.AutomationService) *AutomationHandler {
	return &AutomationHandler{automation: automation}
}

// TriggerRecalculation enqueues a manual recalculation. Responds 202 with
// the job either way; "created" tells the caller whether the request
// merged into an existing job.
func (h *AutomationHandler) TriggerRecalculation(w http.ResponseWriter, r *http.Request) {
	competitionID, err := urlParamInt(r, "competitionID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	actor := middleware.GetActorFromContext(r.Context())
	job, created, err := h.automation.TriggerRecalculation(r.Context(), competitionID, actor)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	response := jsonResponse{
		"job":     job,
		"created": created,
	}
	if err := writeJSON(w, http.StatusAccepted, response, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *AutomationHandler) QueueStatus(w http.ResponseWriter, r *http.Request) {
	response := jsonResponse{
		"queue": h.automation.QueueStatus(),
	}
	if err := writeJSON(w, http.StatusOK, response, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *AutomationHandler) Pause(w http.ResponseWriter, r *http.Request) {
	h.automation.Pause(middleware.GetActorFromContext(r.Context()))
	response := jsonResponse{"paused": true}
	if err := writeJSON(w, http.StatusOK, response, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *AutomationHandler) Resume(w http.ResponseWriter, r *http.Request) {
	h.automation.Resume(middleware.GetActorFromContext(r.Context()))
	response := jsonResponse{"paused": false}
	if err := writeJSON(w, http.StatusOK, response, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *AutomationHandler) History(w http.ResponseWriter, r *http.Request) {
	competitionID, err := urlParamInt(r, "competitionID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	jobs, err := h.automation.History(competitionID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	response := jsonResponse{"jobs": jobs}
	if err := writeJSON(w, http.StatusOK, response, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// Health is public and unauthenticated so load balancers can probe it.
// Degraded and unhealthy states still answer 200; the body carries the
// verdict.
func (h *AutomationHandler) Health(w http.ResponseWriter, r *http.Request) {
	if err := writeJSON(w, http.StatusOK, h.automation.Health(), nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *AutomationHandler) GetSettings(w http.ResponseWriter, r *http.Request) {
	response := jsonResponse{"settings": h.automation.GetSettings()}
	if err := writeJSON(w, http.StatusOK, response, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *AutomationHandler) UpdateSettings(w http.ResponseWriter, r *http.Request) {
	var input models.AutomationSettings
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	actor := middleware.GetActorFromContext(r.Context())
	if err := h.automation.UpdateSettings(input, actor); err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	response := jsonResponse{"settings": h.automation.GetSettings()}
	if err := writeJSON(w, http.StatusOK, response, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}
