package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"math"
	"net/http"

	"backtest-core/internal/backtest"
	"backtest-core/internal/events"
	"backtest-core/internal/strategy"
	"backtest-core/internal/sweep"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const maxSweepParams = 256

// statusClientClosedRequest is the nginx convention for a client that went
// away before the response was written.
const statusClientClosedRequest = 499

type backtestRequest struct {
	Config  json.RawMessage   `json:"config"`
	Signals []backtest.Signal `json:"signals"`
	Params  json.RawMessage   `json:"params"`
}

type sweepRequest struct {
	Config  json.RawMessage   `json:"config"`
	Params  []json.RawMessage `json:"params" binding:"required,min=1"`
	Workers int               `json:"workers"`
}

// summaryView is backtest.Summary with an infinite profit factor rendered
// as null, since JSON has no Inf.
type summaryView struct {
	TotalTrades  int      `json:"total_trades"`
	Wins         int      `json:"wins"`
	Losses       int      `json:"losses"`
	WinTotal     float64  `json:"win_total"`
	LossTotal    float64  `json:"loss_total"`
	TotalProfit  float64  `json:"total_profit"`
	WinRate      float64  `json:"win_rate"`
	ProfitFactor *float64 `json:"profit_factor"`
	NoLosses     bool     `json:"no_losses"`
}

func newSummaryView(s backtest.Summary) summaryView {
	v := summaryView{
		TotalTrades: s.TotalTrades,
		Wins:        s.Wins,
		Losses:      s.Losses,
		WinTotal:    s.WinTotal,
		LossTotal:   s.LossTotal,
		TotalProfit: s.TotalProfit,
		WinRate:     s.WinRate,
		NoLosses:    s.NoLosses,
	}
	if !math.IsInf(s.ProfitFactor, 0) {
		pf := s.ProfitFactor
		v.ProfitFactor = &pf
	}
	return v
}

type backtestResponse struct {
	RunID    string             `json:"run_id"`
	Strategy string             `json:"strategy,omitempty"`
	Bars     int                `json:"bars"`
	Summary  summaryView        `json:"summary"`
	Trades   []backtest.Trade   `json:"trades"`
	Dangling *backtest.Position `json:"dangling,omitempty"`
}

type sweepOutcomeView struct {
	Params  strategy.Params `json:"params"`
	RunID   string          `json:"run_id"`
	Bars    int             `json:"bars"`
	Summary *summaryView    `json:"summary"`
	Code    string          `json:"code,omitempty"`
	Error   string          `json:"error,omitempty"`
}

func respondError(c *gin.Context, status int, code, msg string) {
	c.JSON(status, gin.H{
		"code":  code,
		"error": msg,
	})
}

// errorCode maps run errors onto HTTP status and API codes.
func errorCode(err error) (int, string) {
	switch {
	case errors.Is(err, backtest.ErrInvalidConfig):
		return http.StatusBadRequest, "INVALID_CONFIG"
	case errors.Is(err, strategy.ErrUnknownStrategy), errors.Is(err, strategy.ErrInvalidParams):
		return http.StatusBadRequest, "INVALID_PARAMETERS"
	case errors.Is(err, backtest.ErrMalformedSignal):
		return http.StatusUnprocessableEntity, "MALFORMED_SIGNAL"
	case errors.Is(err, backtest.ErrInsufficientData):
		return http.StatusUnprocessableEntity, "INSUFFICIENT_DATA"
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusRequestTimeout, "REQUEST_TIMEOUT"
	case errors.Is(err, context.Canceled):
		return statusClientClosedRequest, "REQUEST_CANCELED"
	default:
		return http.StatusInternalServerError, "INTERNAL_ERROR"
	}
}

func respondRunError(c *gin.Context, err error) {
	status, code := errorCode(err)
	if status == http.StatusInternalServerError {
		log.Printf("[API] backtest failed: %v", err)
	}
	respondError(c, status, code, err.Error())
}

// runConfig decodes the request's config over a copy of the server default,
// so keys the request omits keep their configured values.
func (s *Server) runConfig(raw json.RawMessage) (backtest.Config, error) {
	cfg := s.Config
	if len(raw) == 0 || string(raw) == "null" {
		return cfg, nil
	}
	if err := json.Unmarshal(raw, &cfg); err != nil {
		return cfg, fmt.Errorf("%w: %v", backtest.ErrInvalidConfig, err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// decodeParams reads one parameter set over the defaults.
func decodeParams(raw json.RawMessage) (strategy.Params, error) {
	p := strategy.DefaultParams()
	if err := json.Unmarshal(raw, &p); err != nil {
		return p, fmt.Errorf("%w: %v", strategy.ErrInvalidParams, err)
	}
	if err := p.Validate(); err != nil {
		return p, err
	}
	return p, nil
}

func (s *Server) getSystemStatus(c *gin.Context) {
	status := gin.H{
		"meta":   s.Meta,
		"bars":   len(s.Klines),
		"config": s.Config,
	}
	if len(s.Klines) > 0 {
		status["first_open_time"] = s.Klines[0].OpenTime
		status["last_open_time"] = s.Klines[len(s.Klines)-1].OpenTime
	}
	if s.Bus != nil {
		status["events_dropped"] = s.Bus.Dropped()
	}
	if subject := CurrentSubject(c); subject != "" {
		status["subject"] = subject
	}
	c.JSON(http.StatusOK, status)
}

func (s *Server) getMetrics(c *gin.Context) {
	if s.Metrics == nil {
		respondError(c, http.StatusNotFound, "METRICS_DISABLED", "metrics are not enabled")
		return
	}
	c.JSON(http.StatusOK, s.Metrics.Snapshot())
}

func (s *Server) getDefaultParams(c *gin.Context) {
	c.JSON(http.StatusOK, strategy.DefaultParams())
}

// createBacktest runs either caller-supplied signals or a strategy over the
// server's price history.
func (s *Server) createBacktest(c *gin.Context) {
	var req backtestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "INVALID_REQUEST", err.Error())
		return
	}
	hasParams := len(req.Params) > 0 && string(req.Params) != "null"
	if (len(req.Signals) > 0) == hasParams {
		respondError(c, http.StatusBadRequest, "INVALID_REQUEST", "exactly one of signals or params is required")
		return
	}

	cfg, err := s.runConfig(req.Config)
	if err != nil {
		respondRunError(c, err)
		return
	}
	var (
		stream backtest.Stream = backtest.SignalSlice(req.Signals)
		label  string
	)
	if hasParams {
		if len(s.Klines) == 0 {
			respondError(c, http.StatusServiceUnavailable, "NO_KLINES", "server has no price history loaded")
			return
		}
		p, err := decodeParams(req.Params)
		if err != nil {
			respondRunError(c, err)
			return
		}
		if stream, err = strategy.New(p, s.Klines); err != nil {
			respondRunError(c, err)
			return
		}
		label = p.Label()
	}

	runID := uuid.NewString()
	var (
		obs    backtest.Observer
		busObs *events.BusObserver
	)
	if s.Bus != nil {
		busObs = &events.BusObserver{Bus: s.Bus, RunID: runID, Strategy: label}
		obs = busObs
	}

	res, err := backtest.RunWithID(runID, cfg, stream, obs)
	if err != nil {
		respondRunError(c, err)
		return
	}
	summary, err := backtest.Summarize(res.Ledger)
	if busObs != nil {
		busObs.Completed(res.Bars, summary, err)
	}
	if err != nil {
		respondRunError(c, err)
		return
	}

	c.JSON(http.StatusOK, backtestResponse{
		RunID:    res.ID,
		Strategy: label,
		Bars:     res.Bars,
		Summary:  newSummaryView(summary),
		Trades:   res.Ledger.Trades(),
		Dangling: res.Dangling,
	})
}

// createSweep evaluates several parameter sets over the server's history.
func (s *Server) createSweep(c *gin.Context) {
	var req sweepRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "INVALID_REQUEST", err.Error())
		return
	}
	if len(req.Params) > maxSweepParams {
		respondError(c, http.StatusBadRequest, "INVALID_REQUEST", fmt.Sprintf("at most %d parameter sets per sweep", maxSweepParams))
		return
	}
	if len(s.Klines) == 0 {
		respondError(c, http.StatusServiceUnavailable, "NO_KLINES", "server has no price history loaded")
		return
	}

	params := make([]strategy.Params, 0, len(req.Params))
	for i, raw := range req.Params {
		p, err := decodeParams(raw)
		if err != nil {
			status, code := errorCode(err)
			respondError(c, status, code, fmt.Sprintf("params[%d]: %v", i, err))
			return
		}
		params = append(params, p)
	}

	cfg, err := s.runConfig(req.Config)
	if err != nil {
		respondRunError(c, err)
		return
	}

	workers := req.Workers
	if workers <= 0 {
		workers = s.SweepWorkers
	}
	sw := &sweep.Sweeper{Config: cfg, Workers: workers, Bus: s.Bus}
	outcomes, err := sw.Run(c.Request.Context(), s.Klines, params)
	if err != nil {
		respondRunError(c, err)
		return
	}

	views := make([]sweepOutcomeView, 0, len(outcomes))
	for _, o := range outcomes {
		v := sweepOutcomeView{Params: o.Params, RunID: o.RunID, Bars: o.Bars}
		if o.Err != nil {
			_, v.Code = errorCode(o.Err)
			v.Error = o.Err.Error()
		} else {
			sv := newSummaryView(o.Summary)
			v.Summary = &sv
		}
		views = append(views, v)
	}

	resp := gin.H{"outcomes": views}
	if best, ok := sweep.Best(outcomes); ok {
		resp["best_run_id"] = best.RunID
	}
	c.JSON(http.StatusOK, resp)
}
