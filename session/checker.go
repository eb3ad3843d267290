package session

import (
	"context"

	"github.com/subnetconsole/agentops/health"
)

// CheckerName is the name the monitor registers under in a health.Aggregator.
const CheckerName = "agent_session"

// Name implements health.Checker.
func (m *Monitor) Name() string { return CheckerName }

// Check implements health.Checker. It reports the current state and does not
// contact the agent.
func (m *Monitor) Check(context.Context) health.Result {
	s := m.Snapshot()

	var r health.Result
	switch s.Status {
	case StatusHealthy:
		r = health.Healthy(s.Status.String())
	case StatusUnhealthy:
		r = health.Unhealthy(orDefault(s.Error, MsgConnectFailed), nil)
	default:
		r = health.Degraded(orDefault(s.Error, s.Status.String()))
	}

	details := map[string]any{"status": s.Status.String()}
	if !s.CheckedAt.IsZero() {
		details["checked_at"] = s.CheckedAt
	}
	return r.WithDetails(details)
}

var _ health.Checker = (*Monitor)(nil)
