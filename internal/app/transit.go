package service

import (
	"fmt"
	"time"

	"github.com/okian/homedash/internal/adapters/providers/golemio"
	"github.com/okian/homedash/internal/domain/departures"
	"github.com/okian/homedash/internal/domain/model"
)

// DepartureView is a departure with its delay severity.
type DepartureView struct {
	model.Departure
	Severity departures.Level `json:"severity"`
}

// BoardView is what a stop's board shows.
type BoardView struct {
	Name       string                   `json:"name"`
	Departures []DepartureView          `json:"departures"`
	Alerts     []model.Alert            `json:"alerts"`
	Infotexts  []model.Infotext         `json:"infotexts"`
	Filters    []departures.FilterState `json:"filters"`
	Active     []int                    `json:"active"`
	Fetched    int                      `json:"fetched"`
	UpdatedAt  time.Time                `json:"updatedAt,omitzero"`
	Error      string                   `json:"error,omitempty"`
}

func (s *Service) findBoard(name string) (*boardState, error) {
	for _, b := range s.boards {
		if b.board.Name() == name {
			return b, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", departures.ErrUnknownBoard, name)
}

func (s *Service) referenceData() *golemio.Reference {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.reference
}

func (s *Service) boardView(b *boardState) BoardView {
	snap := b.topic.Snapshot()
	all := snap.Value.Departures
	shown := b.board.Display(all)

	view := BoardView{
		Name:       b.board.Name(),
		Departures: make([]DepartureView, 0, len(shown)),
		Infotexts:  snap.Value.Infotexts,
		Filters:    b.board.Filters(),
		Active:     b.board.Active(),
		Fetched:    len(all),
		UpdatedAt:  snap.UpdatedAt,
	}
	for _, d := range shown {
		view.Departures = append(view.Departures, DepartureView{Departure: d, Severity: departures.SeverityOf(d)})
	}
	if ref := s.referenceData(); ref != nil {
		view.Alerts = departures.RelevantAlerts(s.now(), ref.Alerts(), all, ref.Routes())
	}
	if snap.Err != nil {
		view.Error = snap.Err.Error()
	}
	return view
}

// Boards returns every board in configured order.
func (s *Service) Boards() []BoardView {
	out := make([]BoardView, 0, len(s.boards))
	for _, b := range s.boards {
		out = append(out, s.boardView(b))
	}
	return out
}

// Board returns one board by stop name.
func (s *Service) Board(name string) (BoardView, error) {
	b, err := s.findBoard(name)
	if err != nil {
		return BoardView{}, err
	}
	return s.boardView(b), nil
}

// ToggleBoardFilter flips filter i of a board and returns its new state.
func (s *Service) ToggleBoardFilter(name string, i int) (bool, error) {
	b, err := s.findBoard(name)
	if err != nil {
		return false, err
	}
	return b.board.Toggle(i)
}

// ClearBoardFilters deactivates every filter of a board.
func (s *Service) ClearBoardFilters(name string) error {
	b, err := s.findBoard(name)
	if err != nil {
		return err
	}
	b.board.Clear()
	return nil
}
