package fleet

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/matgreaves/run"

	"github.com/mekaem/atc/fleet/health"
)

// UpOptions configures the start pipeline.
type UpOptions struct {
	// Services restricts the start to a subset of the group. Empty means
	// the whole declared group.
	Services []string

	// SkipDeps opts out of the dependency pre-flight.
	SkipDeps bool

	// Wait, when positive, polls service health after start until every
	// started service reports healthy or the budget expires.
	Wait time.Duration
}

// Up builds the start pipeline: dependency pre-flight, then compose up,
// then an optional health wait. The sequence makes the required ordering
// structural: the pre-flight strictly precedes the start invocation.
func Up(ctrl *Controller, prober Prober, opts UpOptions) run.Runner {
	var steps run.Sequence

	if !opts.SkipDeps {
		steps = append(steps, run.Func(ctrl.CheckDependencies))
	}
	steps = append(steps, run.Func(func(ctx context.Context) error {
		return ctrl.Start(ctx, opts.Services)
	}))
	if opts.Wait > 0 && prober != nil {
		steps = append(steps, awaitHealthy(prober, opts.Services, opts.Wait))
	}

	return steps
}

// awaitHealthy polls the prober with exponential backoff until every named
// service (the full catalog when services is empty) reports healthy.
func awaitHealthy(prober Prober, services []string, wait time.Duration) run.Runner {
	if len(services) == 0 {
		services = CatalogNames()
	}

	return run.Func(func(ctx context.Context) error {
		bo := backoff.NewExponentialBackOff()
		bo.InitialInterval = 500 * time.Millisecond
		bo.MaxInterval = 5 * time.Second
		bo.MaxElapsedTime = wait

		op := func() error {
			var unhealthy []string
			for _, svc := range services {
				if st := prober.Check(ctx, svc); st.State != health.Healthy {
					unhealthy = append(unhealthy, svc)
				}
			}
			if len(unhealthy) > 0 {
				return fmt.Errorf("not yet healthy: %s", strings.Join(unhealthy, ", "))
			}
			return nil
		}

		if err := backoff.Retry(op, backoff.WithContext(bo, ctx)); err != nil {
			return fmt.Errorf("waiting for services: %w", err)
		}
		return nil
	})
}
