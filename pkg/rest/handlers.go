package rest

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/llm-d-incubation/video-cache-optimizer/internal/logger"
	"github.com/llm-d-incubation/video-cache-optimizer/pkg/config"
	"github.com/llm-d-incubation/video-cache-optimizer/pkg/loader"
	"github.com/llm-d-incubation/video-cache-optimizer/pkg/manager"
	"github.com/llm-d-incubation/video-cache-optimizer/pkg/placement"
	"github.com/llm-d-incubation/video-cache-optimizer/pkg/solver"
)

// Handlers for REST API calls

// Response of a successful optimization
type OptimizeResponse struct {
	Outcome   string                      `json:"outcome"`
	Objective float64                     `json:"objective"`
	Gap       float64                     `json:"gap"`
	Score     int                         `json:"score"`
	Caches    []placement.CacheAssignment `json:"caches"`
	Report    *manager.RunReport          `json:"report"`
}

func healthz(c *gin.Context) {
	c.IndentedJSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *OptimizerServer) optimize(c *gin.Context) {
	cfg, err := s.requestConfig(c)
	if err != nil {
		c.IndentedJSON(http.StatusBadRequest, gin.H{"message": err.Error()})
		return
	}

	body := http.MaxBytesReader(c.Writer, c.Request.Body, s.maxBodyBytes)
	inst, err := loader.ReadContext(c.Request.Context(), body, loader.OptionsFromConfig(cfg))
	if err != nil {
		s.emitter.EmitErrorMetrics(c.Request.Context(), "load", manager.ErrorType(err))
		c.IndentedJSON(loadStatus(err), gin.H{"message": err.Error()})
		return
	}

	orchestrator, err := solver.NewOrchestratorFromSpec(&cfg.Optimizer, logger.Log)
	if err != nil {
		c.IndentedJSON(http.StatusServiceUnavailable, gin.H{"message": err.Error()})
		return
	}
	res, err := manager.NewManager(cfg, orchestrator).WithEmitter(s.emitter).Optimize(c.Request.Context(), inst)

	var rejected *solver.NoAcceptableSolutionError
	switch {
	case errors.As(err, &rejected):
		c.IndentedJSON(http.StatusUnprocessableEntity, gin.H{
			"message": err.Error(),
			"outcome": rejected.Outcome.String(),
			"report":  jsonReport(res.Report),
		})
		return
	case err != nil:
		c.IndentedJSON(http.StatusInternalServerError, gin.H{"message": "optimization error: " + err.Error()})
		return
	}

	c.IndentedJSON(http.StatusOK, OptimizeResponse{
		Outcome:   res.Solution.Outcome.String(),
		Objective: res.Solution.Objective,
		Gap:       finite(res.Solution.Gap, undefinedGap),
		Score:     res.Report.Plan.Score,
		Caches:    res.Plan.Assignments(),
		Report:    jsonReport(res.Report),
	})
}

// status of a request whose dataset could not be loaded
func loadStatus(err error) int {
	var tooLarge *http.MaxBytesError
	var malformed *loader.MalformedInputError
	switch {
	case errors.As(err, &tooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.As(err, &malformed):
		return http.StatusBadRequest
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// gap reported when the incumbent is zero or missing
const undefinedGap = -1

// JSON has no infinities; gaps and bounds of unsolved models are replaced
func jsonReport(r *manager.RunReport) *manager.RunReport {
	if r == nil {
		return nil
	}
	out := *r
	out.Solve.Objective = finite(r.Solve.Objective, 0)
	out.Solve.BestBound = finite(r.Solve.BestBound, 0)
	out.Solve.Gap = finite(r.Solve.Gap, undefinedGap)
	return &out
}

func finite(x, fallback float64) float64 {
	if math.IsInf(x, 0) || math.IsNaN(x) {
		return fallback
	}
	return x
}

// server defaults overridden by query parameters
func (s *OptimizerServer) requestConfig(c *gin.Context) (*config.Config, error) {
	cfg := s.config
	if v, ok := c.GetQuery("maxRequests"); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("bad maxRequests: %w", err)
		}
		cfg.MaxRequests = n
	}
	if v, ok := c.GetQuery("truncation"); ok {
		cfg.TruncationName = v
	}
	if v, ok := c.GetQuery("sampleSeed"); ok {
		n, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("bad sampleSeed: %w", err)
		}
		cfg.SampleSeed = n
	}
	if v, ok := c.GetQuery("timeLimit"); ok {
		d, err := time.ParseDuration(v)
		if err != nil {
			return nil, fmt.Errorf("bad timeLimit: %w", err)
		}
		cfg.Optimizer.TimeLimit = d
	}
	if v, ok := c.GetQuery("mipGap"); ok {
		g, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return nil, fmt.Errorf("bad mipGap: %w", err)
		}
		cfg.Optimizer.MIPGap = g
	}
	if v, ok := c.GetQuery("maxNodes"); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("bad maxNodes: %w", err)
		}
		cfg.Optimizer.MaxNodes = n
	}
	if v, ok := c.GetQuery("warmStart"); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return nil, fmt.Errorf("bad warmStart: %w", err)
		}
		cfg.Optimizer.WarmStart = b
	}
	// files are never written for API requests
	cfg.ModelFile, cfg.ReportFile, cfg.SolverLogFile, cfg.MetricsFile = "", "", "", ""

	if err := cfg.ValidateLoading(); err != nil {
		return nil, err
	}
	if err := cfg.Optimizer.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}
