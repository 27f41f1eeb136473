package fleet_test

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/mekaem/atc/fleet"
	"github.com/mekaem/atc/fleet/health"
)

// flakyProber reports unhealthy for the first failures calls per service,
// then healthy.
type flakyProber struct {
	mu       sync.Mutex
	failures int
	calls    map[string]int
}

func (f *flakyProber) Check(ctx context.Context, service string) health.Status {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.calls == nil {
		f.calls = make(map[string]int)
	}
	f.calls[service]++
	state := health.Healthy
	if f.calls[service] <= f.failures {
		state = health.Unhealthy
	}
	return health.Status{Service: service, State: state}
}

func TestUp_PreflightPrecedesStart(t *testing.T) {
	dir := stubDocker(t, "exit 0")
	ctrl := fleet.NewController(writeComposeFile(t))
	ctrl.SecretsFile = filepath.Join(t.TempDir(), "absent.yaml")

	if err := fleet.Up(ctrl, nil, fleet.UpOptions{}).Run(context.Background()); err != nil {
		t.Fatal(err)
	}

	args, err := os.ReadFile(filepath.Join(dir, "args.txt"))
	if err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimSpace(string(args)), "\n")
	if len(lines) < 3 {
		t.Fatalf("got %d docker invocations, want version checks then up: %v", len(lines), lines)
	}
	if !strings.Contains(lines[0], "--version") {
		t.Errorf("first invocation = %q, want the dependency pre-flight", lines[0])
	}
	last := lines[len(lines)-1]
	if !strings.Contains(last, "up -d") {
		t.Errorf("last invocation = %q, want compose up", last)
	}
}

func TestUp_SkipDeps(t *testing.T) {
	dir := stubDocker(t, "exit 0")
	ctrl := fleet.NewController(writeComposeFile(t))
	ctrl.SecretsFile = filepath.Join(t.TempDir(), "absent.yaml")

	if err := fleet.Up(ctrl, nil, fleet.UpOptions{SkipDeps: true}).Run(context.Background()); err != nil {
		t.Fatal(err)
	}

	args, err := os.ReadFile(filepath.Join(dir, "args.txt"))
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(string(args), "--version") {
		t.Errorf("pre-flight ran despite SkipDeps: %s", args)
	}
}

func TestUp_WaitsUntilHealthy(t *testing.T) {
	stubDocker(t, "exit 0")
	ctrl := fleet.NewController(writeComposeFile(t))
	ctrl.SecretsFile = filepath.Join(t.TempDir(), "absent.yaml")

	prober := &flakyProber{failures: 1}
	opts := fleet.UpOptions{
		Services: []string{"pds", "plc"},
		SkipDeps: true,
		Wait:     10 * time.Second,
	}
	if err := fleet.Up(ctrl, prober, opts).Run(context.Background()); err != nil {
		t.Fatal(err)
	}

	if prober.calls["pds"] < 2 {
		t.Errorf("pds probed %d times, want a retry after the first failure", prober.calls["pds"])
	}
}

func TestUp_WaitBudgetExpires(t *testing.T) {
	stubDocker(t, "exit 0")
	ctrl := fleet.NewController(writeComposeFile(t))
	ctrl.SecretsFile = filepath.Join(t.TempDir(), "absent.yaml")

	prober := &flakyProber{failures: 1 << 30}
	opts := fleet.UpOptions{
		Services: []string{"pds"},
		SkipDeps: true,
		Wait:     200 * time.Millisecond,
	}
	err := fleet.Up(ctrl, prober, opts).Run(context.Background())
	if err == nil {
		t.Fatal("expected the wait budget to expire")
	}
	if !strings.Contains(err.Error(), "pds") {
		t.Errorf("err = %v, want the unhealthy service named", err)
	}
}

func TestUp_StartFailureStopsPipeline(t *testing.T) {
	stubDocker(t, `echo "boom" >&2; exit 1`)
	ctrl := fleet.NewController(writeComposeFile(t))
	ctrl.SecretsFile = filepath.Join(t.TempDir(), "absent.yaml")
	ctrl.Stderr = discard{}

	prober := &flakyProber{}
	opts := fleet.UpOptions{SkipDeps: true, Wait: 10 * time.Second}
	err := fleet.Up(ctrl, prober, opts).Run(context.Background())
	if err == nil {
		t.Fatal("expected start failure to surface")
	}
	if len(prober.calls) != 0 {
		t.Errorf("health wait ran after a failed start: %v", prober.calls)
	}
}
