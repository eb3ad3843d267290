// Package health aggregates component health for the subnet console.
//
// A Checker reports one component: the agent session, the agent API itself,
// or the credential store. An Aggregator runs a set of checkers concurrently
// under a shared deadline and folds their results into one Status, and
// RegisterHandlers exposes the result as liveness, readiness and detail
// endpoints.
//
//	agg := health.NewAggregator()
//	agg.Register(monitor)
//	agg.Register(health.NewProbeChecker("agent_api", client.HealthCheck, nil))
//	health.RegisterHandlers(mux, agg)
package health
