package health_test

import (
	"context"
	"errors"
	"fmt"

	"github.com/subnetconsole/agentops/health"
)

func ExampleAggregator_CheckAll() {
	agg := health.NewAggregator()
	agg.Register(health.CheckerFunc("store", func(context.Context) health.Result {
		return health.Healthy("ok")
	}))
	agg.Register(health.NewProbeChecker("agent", func(context.Context) error {
		return errors.New("connection refused")
	}, nil))

	results := agg.CheckAll(context.Background())
	fmt.Println(results["store"].Status, results["agent"].Status, health.Overall(results))
	// Output: healthy unhealthy unhealthy
}
