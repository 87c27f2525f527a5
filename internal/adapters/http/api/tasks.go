package api

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/okian/homedash/internal/adapters/mq/poller"
)

// TaskDependencies expose the polling tasks.
type TaskDependencies interface {
	Statuses() []poller.Status
	Trigger(name string) error
}

// TaskHandler handles polling task requests.
type TaskHandler struct {
	deps TaskDependencies
}

// NewTaskHandler creates a new task handler.
func NewTaskHandler(deps TaskDependencies) *TaskHandler {
	return &TaskHandler{deps: deps}
}

// HandleList handles GET /api/tasks.
func (h *TaskHandler) HandleList(w http.ResponseWriter, _ *http.Request) {
	statuses := h.deps.Statuses()
	if statuses == nil {
		statuses = []poller.Status{}
	}
	writeJSON(w, http.StatusOK, statuses)
}

// HandleTrigger handles POST /api/tasks/{name}/trigger.
func (h *TaskHandler) HandleTrigger(w http.ResponseWriter, r *http.Request) {
	if err := h.deps.Trigger(mux.Vars(r)["name"]); err != nil {
		writeFailure(r, w, err)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}
