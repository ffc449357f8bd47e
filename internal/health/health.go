// Package health derives the service health signal from the engine state
// and the admission gate counters.
package health

import "chatd/internal/engine"

// Status values reported by Report.
const (
	StatusOK       = "ok"
	StatusLoading  = "loading"
	StatusDegraded = "degraded"
)

// EngineView is the read-only engine surface the reporter uses.
type EngineView interface {
	State() engine.State
	ModelName() string
}

// GateView is the read-only gate surface the reporter uses.
type GateView interface {
	QueueDepth() int
	Inflight() int
	Closed() bool
}

// Report is a point-in-time health snapshot.
type Report struct {
	Status      string
	EngineState engine.State
	QueueDepth  int
	Inflight    int
	ModelLoaded bool
	ModelName   string
}

// Reporter builds Reports from lock-free reads only.
type Reporter struct {
	engine EngineView
	gate   GateView
}

func NewReporter(e EngineView, g GateView) *Reporter {
	return &Reporter{engine: e, gate: g}
}

// Report never blocks on the gate.
func (r *Reporter) Report() Report {
	state := r.engine.State()
	loaded := state == engine.StateReady || state == engine.StateServing
	rep := Report{
		EngineState: state,
		QueueDepth:  r.gate.QueueDepth(),
		Inflight:    r.gate.Inflight(),
		ModelLoaded: loaded,
	}
	if loaded {
		rep.ModelName = r.engine.ModelName()
	}
	switch {
	case r.gate.Closed(), state == engine.StateFailed, state == engine.StateUnloading:
		rep.Status = StatusDegraded
	case loaded:
		rep.Status = StatusOK
	default:
		rep.Status = StatusLoading
	}
	return rep
}

// Ready reports whether the service can accept completions.
func (r *Reporter) Ready() bool { return r.Report().Status == StatusOK }
