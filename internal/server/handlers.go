package server

import (
	"errors"
	"net/http"

	"QuantDesk/internal/model"
	"QuantDesk/internal/recorder"
	"QuantDesk/internal/scheduler"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"
)

// RankingsRequest selects a strategy ranking.
type RankingsRequest struct {
	Strategy string `param:"strategy" validate:"required"`
	Top      int    `query:"top" default:"10" validate:"min=1,max=500"`
}

// HistoryRequest pages the publication history.
type HistoryRequest struct {
	Limit int `query:"limit" default:"20" validate:"min=1,max=500"`
}

type cycleView struct {
	Outcome   scheduler.Outcome `json:"outcome"`
	Published []string          `json:"published,omitempty"`
	Error     string            `json:"error,omitempty"`
}

func viewOf(r scheduler.CycleResult) cycleView {
	v := cycleView{Outcome: r.Outcome, Published: r.Published}
	if r.Err != nil {
		v.Error = r.Err.Error()
	}
	return v
}

func (s *Server) health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) regime(c echo.Context) error {
	reg, err := s.engine.RegimeCheck(c.Request().Context())
	if err != nil {
		log.Error().Err(err).Msg("regime check failed")
		return errorResponse(c, statusFor(err), err)
	}
	return successResponse(c, map[string]interface{}{
		"regime": reg,
		"label":  reg.Label(),
	})
}

func (s *Server) state(c echo.Context) error {
	return successResponse(c, s.engine.State())
}

func (s *Server) historyList(c echo.Context) error {
	req := &HistoryRequest{}
	if verr := readAndValidate(c, req); verr != nil {
		return badRequestResponse(c, verr)
	}
	pubs, err := s.history.RecentPublications(req.Limit)
	if err != nil {
		return errorResponse(c, http.StatusInternalServerError, err)
	}
	if pubs == nil {
		pubs = []recorder.Publication{}
	}
	return successResponse(c, pubs)
}

func (s *Server) rankings(c echo.Context) error {
	req := &RankingsRequest{}
	if verr := readAndValidate(c, req); verr != nil {
		return badRequestResponse(c, verr)
	}
	st, err := model.ParseStrategy(req.Strategy)
	if err != nil {
		return badRequestResponse(c, []ValidationError{{Code: "ERR_STRATEGY", Field: "strategy", Message: err.Error()}})
	}
	picks, err := s.engine.Rankings(c.Request().Context(), st, req.Top)
	if err != nil {
		log.Error().Err(err).Str("strategy", string(st)).Msg("ranking failed")
		return errorResponse(c, statusFor(err), err)
	}
	return successResponse(c, map[string]interface{}{
		"strategy": st,
		"picks":    picks,
	})
}

func (s *Server) forceRun(c echo.Context) error {
	rep := s.engine.ForceRun(c.Request().Context(), s.now())
	body := map[string]cycleView{
		"daily":   viewOf(rep.Daily),
		"monthly": viewOf(rep.Monthly),
	}
	if rep.Err() != nil {
		return dataResponse(c, statusFor(rep.Err()), body)
	}
	return successResponse(c, body)
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, scheduler.ErrDataFetch):
		return http.StatusServiceUnavailable
	case errors.Is(err, scheduler.ErrPublication):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
