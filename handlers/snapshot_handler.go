package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/headonpro/viktoria-wertheim-backend-sub022/live"
	"github.com/headonpro/viktoria-wertheim-backend-sub022/models"
	"github.com/headonpro/viktoria-wertheim-backend-sub022/services"
)

// TableNotifier pushes table changes to live subscribers. Satisfied by
// the websocket hub.
type TableNotifier interface {
	BroadcastTableUpdate(competitionID int, messageType string, payload interface{})
}

type SnapshotHandler struct {
	snapshots services.SnapshotService
	notifier  TableNotifier
}

func NewSnapshotHandler(snapshots services.SnapshotService, notifier TableNotifier) *SnapshotHandler {
	return &SnapshotHandler{
		snapshots: snapshots,
		notifier:  notifier,
	}
}

func (h *SnapshotHandler) List(w http.ResponseWriter, r *http.Request) {
	competitionID, err := urlParamInt(r, "competitionID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	var seasonID *int
	if raw := r.URL.Query().Get("season_id"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v <= 0 {
			badRequestResponse(w, r, errors.New("invalid season_id query parameter"))
			return
		}
		seasonID = &v
	}

	snapshots, total, err := h.snapshots.List(r.Context(), competitionID, seasonID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	response := jsonResponse{
		"snapshots": snapshots,
		"total":     total,
	}
	if err := writeJSON(w, http.StatusOK, response, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *SnapshotHandler) Create(w http.ResponseWriter, r *http.Request) {
	var input struct {
		CompetitionID int    `json:"competition_id"`
		Reason        string `json:"reason"`
	}
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	reason := models.SnapshotReason(input.Reason)
	if input.Reason == "" {
		reason = models.SnapshotReasonManual
	}

	snapshot, err := h.snapshots.Create(r.Context(), input.CompetitionID, reason)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	response := jsonResponse{"snapshot": snapshot}
	if err := writeJSON(w, http.StatusCreated, response, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *SnapshotHandler) Restore(w http.ResponseWriter, r *http.Request) {
	snapshotID := chi.URLParam(r, "snapshotID")
	if snapshotID == "" {
		badRequestResponse(w, r, errors.New("missing snapshotID parameter"))
		return
	}

	snapshot, err := h.snapshots.Restore(r.Context(), snapshotID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if h.notifier != nil {
		h.notifier.BroadcastTableUpdate(snapshot.CompetitionID, live.MessageTypeTableRestored, snapshot.Entries)
	}

	response := jsonResponse{"snapshot": snapshot}
	if err := writeJSON(w, http.StatusOK, response, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *SnapshotHandler) Delete(w http.ResponseWriter, r *http.Request) {
	snapshotID := chi.URLParam(r, "snapshotID")
	if snapshotID == "" {
		badRequestResponse(w, r, errors.New("missing snapshotID parameter"))
		return
	}

	if err := h.snapshots.Delete(r.Context(), snapshotID); err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
