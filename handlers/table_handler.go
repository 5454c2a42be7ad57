package handlers

import (
	"net/http"

	"github.com/headonpro/viktoria-wertheim-backend-sub022/services"
)

type TableHandler struct {
	tables services.TableService
}

func NewTableHandler(tables services.TableService) *TableHandler {
	return &TableHandler{tables: tables}
}

func (h *TableHandler) GetByCompetition(w http.ResponseWriter, r *http.Request) {
	competitionID, err := urlParamInt(r, "competitionID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	entries, err := h.tables.GetByCompetition(r.Context(), competitionID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	response := jsonResponse{"entries": entries}
	if err := writeJSON(w, http.StatusOK, response, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}
