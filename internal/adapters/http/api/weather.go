package api

import (
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	service "github.com/okian/homedash/internal/app"
	"github.com/okian/homedash/internal/domain/radar"
)

// WeatherDependencies expose the weather and radar state.
type WeatherDependencies interface {
	Weather() service.WeatherView
	Radar() radar.View
	RadarJump(i int) error
	RadarToggleAnimate() bool
}

// WeatherHandler handles weather and radar requests.
type WeatherHandler struct {
	deps WeatherDependencies
}

// NewWeatherHandler creates a new weather handler.
func NewWeatherHandler(deps WeatherDependencies) *WeatherHandler {
	return &WeatherHandler{deps: deps}
}

type animateResponse struct {
	Animate bool `json:"animate"`
}

// HandleWeather handles GET /api/weather.
func (h *WeatherHandler) HandleWeather(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.deps.Weather())
}

// HandleRadar handles GET /api/radar.
func (h *WeatherHandler) HandleRadar(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.deps.Radar())
}

// HandleJump handles POST /api/radar/frames/{index}.
func (h *WeatherHandler) HandleJump(w http.ResponseWriter, r *http.Request) {
	i, err := strconv.Atoi(mux.Vars(r)["index"])
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", ErrBadRequest)
		return
	}
	if err := h.deps.RadarJump(i); err != nil {
		writeFailure(r, w, err)
		return
	}
	writeJSON(w, http.StatusOK, h.deps.Radar())
}

// HandleAnimate handles POST /api/radar/animate.
func (h *WeatherHandler) HandleAnimate(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, animateResponse{Animate: h.deps.RadarToggleAnimate()})
}
