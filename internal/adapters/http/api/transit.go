package api

import (
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	service "github.com/okian/homedash/internal/app"
)

// TransitDependencies expose the departure boards.
type TransitDependencies interface {
	Boards() []service.BoardView
	Board(name string) (service.BoardView, error)
	ToggleBoardFilter(name string, i int) (bool, error)
	ClearBoardFilters(name string) error
}

// TransitHandler handles departure board requests.
type TransitHandler struct {
	deps TransitDependencies
}

// NewTransitHandler creates a new transit handler.
func NewTransitHandler(deps TransitDependencies) *TransitHandler {
	return &TransitHandler{deps: deps}
}

// HandleList handles GET /api/boards.
func (h *TransitHandler) HandleList(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.deps.Boards())
}

// HandleGet handles GET /api/boards/{name}.
func (h *TransitHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	view, err := h.deps.Board(mux.Vars(r)["name"])
	if err != nil {
		writeFailure(r, w, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// HandleToggle handles POST /api/boards/{name}/filters/{index}/toggle.
func (h *TransitHandler) HandleToggle(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	// the route pattern only admits digits
	i, err := strconv.Atoi(vars["index"])
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", ErrBadRequest)
		return
	}
	on, err := h.deps.ToggleBoardFilter(vars["name"], i)
	if err != nil {
		writeFailure(r, w, err)
		return
	}
	writeJSON(w, http.StatusOK, toggleResponse{Enabled: on})
}

// HandleClear handles POST /api/boards/{name}/filters/clear.
func (h *TransitHandler) HandleClear(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]
	if err := h.deps.ClearBoardFilters(name); err != nil {
		writeFailure(r, w, err)
		return
	}
	view, err := h.deps.Board(name)
	if err != nil {
		writeFailure(r, w, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}
