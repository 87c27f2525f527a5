package api

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	service "github.com/okian/homedash/internal/app"
)

// CalendarDependencies expose the calendar list and the agenda.
type CalendarDependencies interface {
	Calendars() service.CalendarsView
	ToggleCalendar(id string) (bool, error)
	Agenda(q service.AgendaQuery) (service.AgendaView, error)
}

// CalendarHandler handles calendar and agenda requests.
type CalendarHandler struct {
	deps CalendarDependencies
}

// NewCalendarHandler creates a new calendar handler.
func NewCalendarHandler(deps CalendarDependencies) *CalendarHandler {
	return &CalendarHandler{deps: deps}
}

type toggleResponse struct {
	Enabled bool `json:"enabled"`
}

// HandleList handles GET /api/calendars.
func (h *CalendarHandler) HandleList(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.deps.Calendars())
}

// HandleToggle handles POST /api/calendars/{id}/toggle.
func (h *CalendarHandler) HandleToggle(w http.ResponseWriter, r *http.Request) {
	on, err := h.deps.ToggleCalendar(mux.Vars(r)["id"])
	if err != nil {
		writeFailure(r, w, err)
		return
	}
	writeJSON(w, http.StatusOK, toggleResponse{Enabled: on})
}

// HandleAgenda handles GET /api/agenda?view=&within=&n=&fallback=.
func (h *CalendarHandler) HandleAgenda(w http.ResponseWriter, r *http.Request) {
	q, err := parseAgendaQuery(r)
	if err != nil {
		writeFailure(r, w, err)
		return
	}
	view, err := h.deps.Agenda(q)
	if err != nil {
		writeFailure(r, w, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// parseAgendaQuery reads the agenda parameters. An explicit fallback=0 is
// passed on as a negative value so it is not replaced by the default.
func parseAgendaQuery(r *http.Request) (service.AgendaQuery, error) {
	v := r.URL.Query()
	q := service.AgendaQuery{View: v.Get("view")}

	if s := v.Get("within"); s != "" {
		d, err := time.ParseDuration(s)
		if err != nil || d <= 0 {
			return q, fmt.Errorf("%w: invalid within %q", ErrBadRequest, s)
		}
		q.Within = d
	}
	if s := v.Get("n"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n <= 0 {
			return q, fmt.Errorf("%w: invalid n %q", ErrBadRequest, s)
		}
		q.N = n
	}
	if s := v.Get("fallback"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 0 {
			return q, fmt.Errorf("%w: invalid fallback %q", ErrBadRequest, s)
		}
		q.Fallback = n
		if n == 0 {
			q.Fallback = -1
		}
	}
	return q, nil
}
