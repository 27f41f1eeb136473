package fleet

import (
	"context"
	"fmt"
	"io"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/mekaem/atc/fleet/health"
)

// ServiceStatus is the aggregated view of one catalog service.
type ServiceStatus struct {
	Name     string            `json:"name"`
	Running  bool              `json:"running"`
	Healthy  bool              `json:"healthy"`
	Endpoint string            `json:"endpoint,omitempty"`
	Version  string            `json:"version,omitempty"`
	Details  map[string]string `json:"details"`
}

// SystemStatus is a point-in-time snapshot of the whole fleet. Services
// always contains every catalog entry: a service absent from the live
// topology reads as stopped, never as missing.
type SystemStatus struct {
	Services map[string]ServiceStatus `json:"services"`

	// Probed records whether health probes contributed to this snapshot.
	// Presentation renders health only when it was actually measured.
	Probed bool `json:"probed"`

	Timestamp time.Time `json:"timestamp"`
}

// Prober is the health read path the aggregator can optionally correlate
// into snapshots.
type Prober interface {
	Check(ctx context.Context, service string) health.Status
}

// ContainerInspector reads per-container detail for verbose snapshots.
// Inspector satisfies it against the live Docker daemon; tests substitute a
// fake.
type ContainerInspector interface {
	Version(ctx context.Context, service string) (string, error)
	PortBindings(ctx context.Context, service string) ([]string, error)
}

// Aggregator merges live topology with the fixed catalog into snapshots.
// It owns no other component's state.
type Aggregator struct {
	Source TopologySource

	// Domain, when set, fills each service's public endpoint.
	Domain string

	// Prober, when set, is run for every catalog service during snapshot
	// construction and populates the Healthy field. When nil, Healthy
	// stays false.
	Prober Prober

	// Inspector, when set, fills Version on verbose snapshots from
	// container inspection, and supplies port bindings the compose
	// listing did not report.
	Inspector ContainerInspector

	Logger zerolog.Logger
}

// Snapshot queries the topology once, then builds one ServiceStatus per
// catalog entry. When verbose, the raw process state and port bindings are
// copied into Details under the keys "state" and "port_0", "port_1", ….
func (a *Aggregator) Snapshot(ctx context.Context, verbose bool) (SystemStatus, error) {
	topology, err := a.Source.Topology(ctx)
	if err != nil {
		return SystemStatus{}, fmt.Errorf("query topology: %w", err)
	}

	healthy := a.probeAll(ctx)

	status := SystemStatus{
		Services:  make(map[string]ServiceStatus, len(Catalog)),
		Probed:    a.Prober != nil,
		Timestamp: time.Now().UTC(),
	}

	for _, svc := range Catalog {
		name := string(svc)
		ps, live := topology[name]

		ss := ServiceStatus{
			Name:    name,
			Running: live && ps.Running,
			Healthy: healthy[name],
			Details: make(map[string]string),
		}
		if a.Domain != "" {
			ss.Endpoint = health.EndpointFor(name, a.Domain)
		}

		if verbose {
			if live {
				ss.Details["state"] = ps.State
				for i, port := range ps.Ports {
					ss.Details[fmt.Sprintf("port_%d", i)] = port
				}
			}
			if a.Inspector != nil {
				if version, err := a.Inspector.Version(ctx, name); err == nil && version != "" {
					ss.Version = version
				} else if err != nil {
					a.Logger.Debug().Err(err).Str("service", name).Msg("version inspection failed")
				}
				// The compose listing omits publishers for some
				// container states; fall back to daemon inspection.
				if _, ok := ss.Details["port_0"]; !ok {
					if ports, err := a.Inspector.PortBindings(ctx, name); err == nil {
						for i, port := range ports {
							ss.Details[fmt.Sprintf("port_%d", i)] = port
						}
					} else {
						a.Logger.Debug().Err(err).Str("service", name).Msg("port inspection failed")
					}
				}
			}
		}

		status.Services[name] = ss
	}

	return status, nil
}

// probeAll runs the health prober for every catalog service concurrently.
// Probes share no state, so there is no ordering between them.
func (a *Aggregator) probeAll(ctx context.Context) map[string]bool {
	healthy := make(map[string]bool, len(Catalog))
	if a.Prober == nil {
		return healthy
	}

	var mu sync.Mutex
	var wg sync.WaitGroup
	for _, svc := range Catalog {
		name := string(svc)
		wg.Add(1)
		go func() {
			defer wg.Done()
			st := a.Prober.Check(ctx, name)
			mu.Lock()
			healthy[name] = st.State == health.Healthy
			mu.Unlock()
		}()
	}
	wg.Wait()
	return healthy
}

// PrintStatus renders an assembled snapshot. It is a pure read: nothing is
// recomputed at presentation time.
func PrintStatus(w io.Writer, status SystemStatus, verbose bool) {
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Service Status:")
	fmt.Fprintln(w, "===============")

	for _, svc := range Catalog {
		ss, ok := status.Services[string(svc)]
		if !ok {
			continue
		}

		indicator := "✗"
		if ss.Running {
			indicator = "✓"
		}
		fmt.Fprintf(w, "%s %s ", indicator, ss.Name)

		if verbose {
			fmt.Fprintln(w)
			if ss.Endpoint != "" {
				fmt.Fprintf(w, "  endpoint: %s\n", ss.Endpoint)
			}
			if ss.Version != "" {
				fmt.Fprintf(w, "  version: %s\n", ss.Version)
			}
			if status.Probed {
				fmt.Fprintf(w, "  healthy: %t\n", ss.Healthy)
			}
			for _, key := range sortedKeys(ss.Details) {
				fmt.Fprintf(w, "  %s: %s\n", key, ss.Details[key])
			}
		} else {
			state := "Stopped"
			if ss.Running {
				state = "Running"
			}
			if status.Probed {
				healthWord := "unhealthy"
				if ss.Healthy {
					healthWord = "healthy"
				}
				fmt.Fprintf(w, "- %s - %s\n", state, healthWord)
			} else {
				fmt.Fprintf(w, "- %s\n", state)
			}
		}
	}

	fmt.Fprintf(w, "\nLast Updated: %s\n", status.Timestamp.Format(time.RFC3339))
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
