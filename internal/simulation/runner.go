package simulation

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"go.uber.org/zap"
)

// Result status values
const (
	StatusSuccess = "success"
	StatusFailure = "failure"
)

// Default evaluation window when the request carries no duration
const DefaultDurationSeconds = 3600

// Validation errors rejected before any solver work starts. A malformed
// value is an error, not a silent default: defaulting would mask caller
// mistakes.
var (
	ErrInvalidDuration = errors.New("duration must be a number of seconds")
	ErrInvalidCRate    = errors.New("c_rate must be a number")
)

// Request describes one simulation job. Duration and c_rate travel in
// the override mapping under "duration" and "c_rate", as callers send
// them; neither is a model parameter so the key filter drops them.
type Request struct {
	BatteryType   string                 `json:"battery_type"`
	SelectedModel string                 `json:"selected_model"`
	Params        map[string]interface{} `json:"params"`
}

// Result is the structured outcome of one job. Failures are data, not
// errors: nothing raised by the solver or renderer escapes the runner.
type Result struct {
	Status     string `json:"status"`
	PlotBase64 string `json:"plot_base64,omitempty"`
	Summary    string `json:"summary,omitempty"`
	Error      string `json:"error,omitempty"`
}

// Runner orchestrates one simulation execution
type Runner struct {
	solver   Solver
	renderer *PlotRenderer
	logger   *zap.Logger
}

// NewRunner creates a job runner
func NewRunner(solver Solver, renderer *PlotRenderer, logger *zap.Logger) *Runner {
	return &Runner{
		solver:   solver,
		renderer: renderer,
		logger:   logger,
	}
}

// numericField reads an optional numeric request field that may arrive
// as a JSON number or a numeric string.
func numericField(params map[string]interface{}, key string, fallback float64, invalid error) (float64, error) {
	raw, ok := params[key]
	if !ok || raw == nil {
		return fallback, nil
	}
	switch v := raw.(type) {
	case float64:
		return v, nil
	case int:
		return float64(v), nil
	case string:
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return 0, fmt.Errorf("%w: got %q", invalid, v)
		}
		return f, nil
	default:
		return 0, fmt.Errorf("%w: got %T", invalid, raw)
	}
}

// ParseDuration extracts the evaluation window from the request fields,
// defaulting when absent.
func ParseDuration(params map[string]interface{}) (float64, error) {
	return numericField(params, "duration", DefaultDurationSeconds, ErrInvalidDuration)
}

// ParseCRate extracts the discharge rate multiplier, defaulting to 1.
func ParseCRate(params map[string]interface{}) (float64, error) {
	return numericField(params, "c_rate", 1, ErrInvalidCRate)
}

// Run executes one simulation job. The returned error is non-nil only
// for request validation problems (malformed duration or c_rate);
// selection, solve and render failures all come back as a failure
// Result so the transport layer never sees a raised error from a job.
func (r *Runner) Run(ctx context.Context, req Request) (Result, error) {
	duration, err := ParseDuration(req.Params)
	if err != nil {
		return Result{}, err
	}
	cRate, err := ParseCRate(req.Params)
	if err != nil {
		return Result{}, err
	}

	handle, err := SelectModel(req.BatteryType, req.SelectedModel)
	if err != nil {
		return r.failure(req, err), nil
	}

	filtered := FilterOverrides(handle.BaseParameterKeys(), req.Params)
	params := handle.BaseParameters()
	if err := ApplyOverrides(params, filtered); err != nil {
		return r.failure(req, err), nil
	}

	sol, err := r.solver.Solve(ctx, handle, params, duration, cRate)
	if err != nil {
		return r.failure(req, err), nil
	}

	plot, err := r.renderer.Render(sol)
	if err != nil {
		return r.failure(req, err), nil
	}

	return Result{
		Status:     StatusSuccess,
		PlotBase64: plot,
		Summary:    "Simulation completed",
	}, nil
}

func (r *Runner) failure(req Request, err error) Result {
	r.logger.Warn("simulation job failed",
		zap.String("battery_type", req.BatteryType),
		zap.String("selected_model", req.SelectedModel),
		zap.Error(err))
	return Result{
		Status: StatusFailure,
		Error:  err.Error(),
	}
}
