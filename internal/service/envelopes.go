package service

import (
	"time"

	"github.com/davidjes1/trAIn-sub002/internal/model"
	"github.com/davidjes1/trAIn-sub002/internal/plan"
)

// RequestContext records what produced a result
type RequestContext struct {
	RequestID  string         `json:"requestId"`
	UserID     string         `json:"userId"`
	Timestamp  time.Time      `json:"timestamp"`
	Algorithms []string       `json:"algorithms"`
	Parameters map[string]any `json:"parameters,omitempty"`
	Version    string         `json:"version"`
}

// Result is the envelope every read-only entry point returns. Success false
// means Data is nil and Error says why.
type Result[T any] struct {
	Success        bool           `json:"success"`
	Data           *T             `json:"data,omitempty"`
	Error          string         `json:"error,omitempty"`
	Warnings       []string       `json:"warnings"`
	Context        RequestContext `json:"context"`
	ProcessingTime time.Duration  `json:"processingTime"`
}

// PlanChangeResult is returned by plan mutation entry points.
// NotFound marks a request for a date the plan does not contain, which
// callers treat as a no-op rather than a failure of the system.
type PlanChangeResult struct {
	Success         bool                `json:"success"`
	AdjustedPlan    *model.Plan         `json:"adjustedPlan,omitempty"`
	Modifications   []plan.Modification `json:"modifications"`
	ImpactSummary   plan.ImpactSummary  `json:"impactSummary"`
	Warnings        []string            `json:"warnings"`
	Recommendations []string            `json:"recommendations"`
	Error           string              `json:"error,omitempty"`
	NotFound        bool                `json:"notFound,omitempty"`
	Context         RequestContext      `json:"context"`
	ProcessingTime  time.Duration       `json:"processingTime"`
}

// AdjustmentEnvelope adds the orchestrator's confidence and alternatives
type AdjustmentEnvelope struct {
	PlanChangeResult
	Confidence   float64                `json:"confidence"`
	Alternatives []plan.AlternativePlan `json:"alternatives,omitempty"`
}
