package server

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"AssetJudge/internal/collector"
	"AssetJudge/internal/model"
	"AssetJudge/internal/portfolio"
	"AssetJudge/internal/recorder"
	"AssetJudge/internal/scanner"
	"AssetJudge/internal/settings"
)

// ErrorResponse is the body of every non-2xx reply.
type ErrorResponse struct {
	Error string `json:"error"`
	Field string `json:"field,omitempty"`
}

// ScanRequest is a caller-supplied batch. Settings and Equity fall back to
// the stored settings and the portfolio equity when omitted.
type ScanRequest struct {
	VIX       *float64            `json:"vix" validate:"required"`
	Equity    *float64            `json:"equity" validate:"omitempty,gte=0"`
	Settings  *model.Settings     `json:"settings"`
	Snapshots []model.Snapshot    `json:"snapshots"`
	Indices   []model.MarketIndex `json:"indices"`
}

// PortfolioResponse is the portfolio state plus its valuation.
type PortfolioResponse struct {
	model.PortfolioState
	Summary model.PortfolioSummary `json:"summary"`
}

// EquityRequest sets the account equity used for allocation.
type EquityRequest struct {
	Equity *float64 `json:"equity" validate:"required,gte=0"`
}

// Health reports liveness.
func (s *Server) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// Scan grades a caller-supplied batch without fetching anything. With
// ?strict=true any snapshot failing its field rules rejects the request;
// otherwise such snapshots are listed in the result's excluded set.
func (s *Server) Scan(c *gin.Context) {
	var req ScanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}
	if err := s.validate.Struct(req); err != nil {
		c.JSON(http.StatusBadRequest, validationResponse(err))
		return
	}
	if c.Query("strict") == "true" {
		for i := range req.Snapshots {
			if err := s.validate.Struct(req.Snapshots[i]); err != nil {
				resp := validationResponse(err)
				resp.Error = req.Snapshots[i].Ticker + ": " + resp.Error
				c.JSON(http.StatusUnprocessableEntity, resp)
				return
			}
		}
	}

	st := s.Settings.Get()
	if req.Settings != nil {
		if err := s.validate.Struct(req.Settings); err != nil {
			c.JSON(http.StatusBadRequest, validationResponse(err))
			return
		}
		st = *req.Settings
	}
	equity := s.Portfolio.Equity()
	if req.Equity != nil {
		equity = *req.Equity
	}

	res := s.Orchestrator.Run(scanner.Input{
		VIX:       *req.VIX,
		Equity:    equity,
		Settings:  st,
		Snapshots: req.Snapshots,
		Indices:   req.Indices,
	})
	c.JSON(http.StatusOK, res)
}

// RunScan triggers a live collect-and-grade pass.
func (s *Server) RunScan(c *gin.Context) {
	if s.Live == nil {
		c.JSON(http.StatusServiceUnavailable, ErrorResponse{Error: "live scanning is not configured"})
		return
	}
	res, err := s.Live.RunScan(c.Request.Context())
	switch {
	case errors.Is(err, collector.ErrBusy):
		c.JSON(http.StatusConflict, ErrorResponse{Error: err.Error()})
		return
	case errors.Is(err, collector.ErrCoolingDown):
		c.Header("Retry-After", strconv.Itoa(int(s.cooldownHint().Seconds())))
		c.JSON(http.StatusTooManyRequests, ErrorResponse{Error: err.Error()})
		return
	case err != nil:
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: err.Error()})
		return
	}
	c.JSON(http.StatusOK, res)
}

func (s *Server) cooldownHint() time.Duration {
	if g, ok := s.Live.(interface{ Cooldown() time.Duration }); ok {
		if d := g.Cooldown(); d > time.Second {
			return d
		}
	}
	return time.Second
}

// LatestScan returns the most recent recorded result.
func (s *Server) LatestScan(c *gin.Context) {
	res, err := s.Recorder.LatestScan(c.Request.Context())
	if errors.Is(err, recorder.ErrNoScans) {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: err.Error()})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: err.Error()})
		return
	}
	c.JSON(http.StatusOK, res)
}

// RecentScans lists scan history, newest first.
func (s *Server) RecentScans(c *gin.Context) {
	limit := 20
	if v := c.Query("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 || n > 500 {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: "limit must be between 1 and 500"})
			return
		}
		limit = n
	}
	rows, err := s.Recorder.RecentScans(c.Request.Context(), limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: err.Error()})
		return
	}
	if rows == nil {
		rows = []recorder.ScanSummary{}
	}
	c.JSON(http.StatusOK, rows)
}

// GetSettings returns the current thresholds.
func (s *Server) GetSettings(c *gin.Context) {
	c.JSON(http.StatusOK, s.Settings.Get())
}

// UpdateSettings replaces the thresholds. An out-of-range field is rejected
// and the previous settings stay in effect.
func (s *Server) UpdateSettings(c *gin.Context) {
	var next model.Settings
	if err := c.ShouldBindJSON(&next); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}
	if err := s.Settings.Update(next); err != nil {
		var ce *settings.ConfigurationError
		if errors.As(err, &ce) {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: ce.Error(), Field: ce.Field})
			return
		}
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: err.Error()})
		return
	}
	c.JSON(http.StatusOK, s.Settings.Get())
}

// GetPortfolio returns holdings and valuation.
func (s *Server) GetPortfolio(c *gin.Context) {
	c.JSON(http.StatusOK, PortfolioResponse{
		PortfolioState: s.Portfolio.GetState(),
		Summary:        s.Portfolio.Summary(),
	})
}

// UpsertHolding adds a holding, or updates it when the ID or ticker matches.
func (s *Server) UpsertHolding(c *gin.Context) {
	var h model.Holding
	if err := c.ShouldBindJSON(&h); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}
	saved, err := s.Portfolio.Upsert(h)
	switch {
	case errors.Is(err, portfolio.ErrNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{Error: err.Error()})
		return
	case isValidation(err):
		c.JSON(http.StatusBadRequest, validationResponse(err))
		return
	case err != nil:
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: err.Error()})
		return
	}
	c.JSON(http.StatusOK, saved)
}

// SetEquity updates the account equity.
func (s *Server) SetEquity(c *gin.Context) {
	var req EquityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}
	if err := s.validate.Struct(req); err != nil {
		c.JSON(http.StatusBadRequest, validationResponse(err))
		return
	}
	if err := s.Portfolio.SetEquity(*req.Equity); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"equity": s.Portfolio.Equity()})
}

// RemoveHolding deletes a holding by ID.
func (s *Server) RemoveHolding(c *gin.Context) {
	err := s.Portfolio.Remove(c.Param("id"))
	if errors.Is(err, portfolio.ErrNotFound) {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: err.Error()})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: err.Error()})
		return
	}
	c.Status(http.StatusNoContent)
}

func isValidation(err error) bool {
	var ve validator.ValidationErrors
	return errors.As(err, &ve)
}

func validationResponse(err error) ErrorResponse {
	var ve validator.ValidationErrors
	if errors.As(err, &ve) && len(ve) > 0 {
		fe := ve[0]
		return ErrorResponse{
			Error: fe.Field() + " failed '" + fe.Tag() + "' rule",
			Field: fe.Field(),
		}
	}
	return ErrorResponse{Error: err.Error()}
}
