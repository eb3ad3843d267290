package health

import (
	"context"
	"time"
)

// ProbeChecker turns an error-returning probe into a Checker: nil is
// healthy, an error is unhealthy unless Degrade reports it as degraded.
type ProbeChecker struct {
	name    string
	probe   func(context.Context) error
	degrade func(error) bool
}

// NewProbeChecker creates a ProbeChecker. degrade may be nil.
func NewProbeChecker(name string, probe func(context.Context) error, degrade func(error) bool) *ProbeChecker {
	return &ProbeChecker{name: name, probe: probe, degrade: degrade}
}

// Name returns the checker name.
func (p *ProbeChecker) Name() string { return p.name }

// Check runs the probe once.
func (p *ProbeChecker) Check(ctx context.Context) Result {
	start := time.Now()
	err := p.probe(ctx)

	var r Result
	switch {
	case err == nil:
		r = Healthy("reachable")
	case p.degrade != nil && p.degrade(err):
		r = Degraded(err.Error())
		r.Err = err
	default:
		r = Unhealthy(err.Error(), err)
	}
	r.Duration = time.Since(start)
	return r
}
