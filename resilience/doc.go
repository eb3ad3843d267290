// Package resilience wraps calls to the Subnet Agent API with retry,
// timeout and circuit-breaker policies.
//
// The agent client composes these through an Executor:
//
//	exec := resilience.NewExecutor(
//	    resilience.WithCircuitBreaker(resilience.NewCircuitBreaker(resilience.CircuitBreakerConfig{
//	        MaxFailures:  5,
//	        ResetTimeout: 30 * time.Second,
//	    })),
//	    resilience.WithRetry(resilience.NewRetry(resilience.RetryConfig{
//	        MaxAttempts: 3,
//	        RetryIf:     agent.Retryable,
//	    })),
//	    resilience.WithTimeout(10*time.Second),
//	)
//
//	err := exec.Execute(ctx, func(ctx context.Context) error {
//	    return probe(ctx)
//	})
//
// Errors the caller has classified as permanent (for example a rejected
// credential) should be excluded through RetryConfig.RetryIf and
// CircuitBreakerConfig.IsFailure so that they neither burn retries nor trip
// the breaker.
package resilience
