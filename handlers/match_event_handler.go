package handlers

import (
	"fmt"
	"net/http"

	"github.com/headonpro/viktoria-wertheim-backend-sub022/models"
	"github.com/headonpro/viktoria-wertheim-backend-sub022/trigger"
)

const (
	matchEventCreated = "created"
	matchEventUpdated = "updated"
	matchEventDeleted = "deleted"
)

// MatchEventHandler receives match change notifications from the match
// administration backend and feeds them into the debounced trigger.
type MatchEventHandler struct {
	observer *trigger.MatchObserver
}

func NewMatchEventHandler(observer *trigger.MatchObserver) *MatchEventHandler {
	return &MatchEventHandler{observer: observer}
}

func (h *MatchEventHandler) Notify(w http.ResponseWriter, r *http.Request) {
	var input struct {
		Type     string        `json:"type"`
		Match    *models.Match `json:"match"`
		Previous *models.Match `json:"previous"`
	}
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	switch input.Type {
	case matchEventCreated:
		h.observer.AfterCreate(input.Match)
	case matchEventUpdated:
		h.observer.AfterUpdate(input.Previous, input.Match)
	case matchEventDeleted:
		h.observer.AfterDelete(input.Match)
	default:
		badRequestResponse(w, r, fmt.Errorf("unknown event type: %q", input.Type))
		return
	}

	w.WriteHeader(http.StatusAccepted)
}
