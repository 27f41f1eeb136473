package fleet_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/mekaem/atc/fleet"
	"github.com/mekaem/atc/fleet/health"
)

// fakeTopology is a canned TopologySource.
type fakeTopology struct {
	states map[string]fleet.ProcessState
	err    error
	calls  int
}

func (f *fakeTopology) Topology(ctx context.Context) (map[string]fleet.ProcessState, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.states, nil
}

// fakeProber reports a fixed state per service.
type fakeProber struct {
	states map[string]health.State
}

func (f *fakeProber) Check(ctx context.Context, service string) health.Status {
	state, ok := f.states[service]
	if !ok {
		state = health.Unhealthy
	}
	return health.Status{Service: service, State: state}
}

// fakeInspector serves canned container detail.
type fakeInspector struct {
	versions map[string]string
	ports    map[string][]string
}

func (f fakeInspector) Version(ctx context.Context, service string) (string, error) {
	return f.versions[service], nil
}

func (f fakeInspector) PortBindings(ctx context.Context, service string) ([]string, error) {
	return f.ports[service], nil
}

func TestSnapshot_AlwaysCoversCatalog(t *testing.T) {
	source := &fakeTopology{states: map[string]fleet.ProcessState{
		"pds": {Running: true, State: "running", Ports: []string{"3000:3000"}},
	}}
	agg := &fleet.Aggregator{Source: source}

	snapshot, err := agg.Snapshot(context.Background(), false)
	if err != nil {
		t.Fatal(err)
	}

	if len(snapshot.Services) != len(fleet.Catalog) {
		t.Fatalf("got %d services, want %d", len(snapshot.Services), len(fleet.Catalog))
	}
	for _, svc := range fleet.Catalog {
		ss, ok := snapshot.Services[string(svc)]
		if !ok {
			t.Errorf("missing catalog service %q", svc)
			continue
		}
		wantRunning := svc == fleet.PDS
		if ss.Running != wantRunning {
			t.Errorf("%s running = %v, want %v", svc, ss.Running, wantRunning)
		}
	}
}

func TestSnapshot_VerboseDetails(t *testing.T) {
	source := &fakeTopology{states: map[string]fleet.ProcessState{
		"pds": {Running: true, State: "running", Ports: []string{"3000:3000"}},
		"bgs": {Running: false, State: "exited"},
	}}
	agg := &fleet.Aggregator{Source: source}

	snapshot, err := agg.Snapshot(context.Background(), true)
	if err != nil {
		t.Fatal(err)
	}

	pds := snapshot.Services["pds"]
	if !pds.Running {
		t.Error("pds should be running")
	}
	if pds.Details["state"] != "running" {
		t.Errorf("pds details[state] = %q, want running", pds.Details["state"])
	}
	if pds.Details["port_0"] != "3000:3000" {
		t.Errorf("pds details[port_0] = %q, want 3000:3000", pds.Details["port_0"])
	}

	bgs := snapshot.Services["bgs"]
	if bgs.Details["state"] != "exited" {
		t.Errorf("bgs details[state] = %q, want exited", bgs.Details["state"])
	}
	if _, ok := bgs.Details["port_0"]; ok {
		t.Error("bgs has no ports, details should not contain port_0")
	}

	// A service the topology never reported reads as stopped with empty
	// details, not missing.
	plc := snapshot.Services["plc"]
	if plc.Running {
		t.Error("plc should not be running")
	}
	if len(plc.Details) != 0 {
		t.Errorf("plc details = %v, want empty", plc.Details)
	}
}

func TestSnapshot_NonVerboseLeavesDetailsEmpty(t *testing.T) {
	source := &fakeTopology{states: map[string]fleet.ProcessState{
		"pds": {Running: true, State: "running", Ports: []string{"3000:3000"}},
	}}
	agg := &fleet.Aggregator{Source: source}

	snapshot, err := agg.Snapshot(context.Background(), false)
	if err != nil {
		t.Fatal(err)
	}
	if len(snapshot.Services["pds"].Details) != 0 {
		t.Errorf("details = %v, want empty without verbose", snapshot.Services["pds"].Details)
	}
}

func TestSnapshot_HealthCorrelation(t *testing.T) {
	source := &fakeTopology{states: map[string]fleet.ProcessState{
		"pds": {Running: true, State: "running"},
		"plc": {Running: true, State: "running"},
	}}
	agg := &fleet.Aggregator{
		Source: source,
		Prober: &fakeProber{states: map[string]health.State{
			"pds": health.Healthy,
			"plc": health.Degraded,
		}},
	}

	snapshot, err := agg.Snapshot(context.Background(), false)
	if err != nil {
		t.Fatal(err)
	}

	if !snapshot.Services["pds"].Healthy {
		t.Error("pds should be healthy")
	}
	if snapshot.Services["plc"].Healthy {
		t.Error("plc is degraded, not healthy")
	}
	if snapshot.Services["bgs"].Healthy {
		t.Error("bgs was never probed healthy")
	}
}

func TestSnapshot_NoProberLeavesHealthyFalse(t *testing.T) {
	source := &fakeTopology{states: map[string]fleet.ProcessState{
		"pds": {Running: true, State: "running"},
	}}
	agg := &fleet.Aggregator{Source: source}

	snapshot, err := agg.Snapshot(context.Background(), false)
	if err != nil {
		t.Fatal(err)
	}
	for name, ss := range snapshot.Services {
		if ss.Healthy {
			t.Errorf("%s healthy = true without a prober", name)
		}
	}
}

func TestSnapshot_EndpointFromDomain(t *testing.T) {
	source := &fakeTopology{states: map[string]fleet.ProcessState{}}
	agg := &fleet.Aggregator{Source: source, Domain: "example.com"}

	snapshot, err := agg.Snapshot(context.Background(), false)
	if err != nil {
		t.Fatal(err)
	}

	if got := snapshot.Services["pds"].Endpoint; got != "https://pds.example.com" {
		t.Errorf("pds endpoint = %q", got)
	}
	if got := snapshot.Services["jetstream"].Endpoint; got != "wss://jetstream.example.com" {
		t.Errorf("jetstream endpoint = %q", got)
	}
}

func TestSnapshot_IdempotentExceptTimestamp(t *testing.T) {
	source := &fakeTopology{states: map[string]fleet.ProcessState{
		"pds": {Running: true, State: "running", Ports: []string{"3000:3000"}},
	}}
	agg := &fleet.Aggregator{Source: source}

	first, err := agg.Snapshot(context.Background(), true)
	if err != nil {
		t.Fatal(err)
	}
	second, err := agg.Snapshot(context.Background(), true)
	if err != nil {
		t.Fatal(err)
	}

	for _, svc := range fleet.Catalog {
		a, b := first.Services[string(svc)], second.Services[string(svc)]
		if a.Running != b.Running || a.Healthy != b.Healthy || a.Endpoint != b.Endpoint {
			t.Errorf("%s differs between snapshots: %+v vs %+v", svc, a, b)
		}
		if len(a.Details) != len(b.Details) {
			t.Errorf("%s details differ: %v vs %v", svc, a.Details, b.Details)
		}
	}
}

func TestSnapshot_InspectorFillsVersionAndMissingPorts(t *testing.T) {
	source := &fakeTopology{states: map[string]fleet.ProcessState{
		"pds": {Running: true, State: "running"},
		"plc": {Running: true, State: "running", Ports: []string{"2582:2582"}},
	}}
	agg := &fleet.Aggregator{
		Source: source,
		Inspector: fakeInspector{
			versions: map[string]string{"pds": "0.4"},
			ports: map[string][]string{
				"pds": {"3000:3000"},
				"plc": {"9999:9999"},
			},
		},
	}

	snapshot, err := agg.Snapshot(context.Background(), true)
	if err != nil {
		t.Fatal(err)
	}

	pds := snapshot.Services["pds"]
	if pds.Version != "0.4" {
		t.Errorf("pds version = %q, want 0.4", pds.Version)
	}
	// The compose listing reported no publishers for pds, so the port
	// detail comes from container inspection.
	if pds.Details["port_0"] != "3000:3000" {
		t.Errorf("pds details[port_0] = %q, want 3000:3000", pds.Details["port_0"])
	}

	// When the listing did report ports, they win over inspection.
	plc := snapshot.Services["plc"]
	if plc.Details["port_0"] != "2582:2582" {
		t.Errorf("plc details[port_0] = %q, want the compose-reported binding", plc.Details["port_0"])
	}
}

func TestSnapshot_InspectorIgnoredWithoutVerbose(t *testing.T) {
	source := &fakeTopology{states: map[string]fleet.ProcessState{
		"pds": {Running: true, State: "running"},
	}}
	agg := &fleet.Aggregator{
		Source:    source,
		Inspector: fakeInspector{versions: map[string]string{"pds": "0.4"}},
	}

	snapshot, err := agg.Snapshot(context.Background(), false)
	if err != nil {
		t.Fatal(err)
	}
	if snapshot.Services["pds"].Version != "" {
		t.Error("version should only be inspected on verbose snapshots")
	}
}

func TestPrintStatus(t *testing.T) {
	source := &fakeTopology{states: map[string]fleet.ProcessState{
		"pds": {Running: true, State: "running", Ports: []string{"3000:3000"}},
	}}
	agg := &fleet.Aggregator{Source: source, Domain: "example.com"}

	snapshot, err := agg.Snapshot(context.Background(), false)
	if err != nil {
		t.Fatal(err)
	}

	var buf strings.Builder
	fleet.PrintStatus(&buf, snapshot, false)
	out := buf.String()

	if !strings.Contains(out, "✓ pds - Running") {
		t.Errorf("output missing running pds line:\n%s", out)
	}
	if !strings.Contains(out, "✗ plc - Stopped") {
		t.Errorf("output missing stopped plc line:\n%s", out)
	}
	if !strings.Contains(out, snapshot.Timestamp.Format(time.RFC3339)) {
		t.Errorf("output missing timestamp:\n%s", out)
	}
}

func TestPrintStatus_ProbedSnapshotShowsHealth(t *testing.T) {
	states := map[string]fleet.ProcessState{
		"pds": {Running: true, State: "running"},
	}
	plain := &fleet.Aggregator{Source: &fakeTopology{states: states}}
	probed := &fleet.Aggregator{
		Source: &fakeTopology{states: states},
		Prober: &fakeProber{states: map[string]health.State{"pds": health.Healthy}},
	}

	plainSnap, err := plain.Snapshot(context.Background(), false)
	if err != nil {
		t.Fatal(err)
	}
	probedSnap, err := probed.Snapshot(context.Background(), false)
	if err != nil {
		t.Fatal(err)
	}

	var plainOut, probedOut strings.Builder
	fleet.PrintStatus(&plainOut, plainSnap, false)
	fleet.PrintStatus(&probedOut, probedSnap, false)

	if !strings.Contains(probedOut.String(), "✓ pds - Running - healthy") {
		t.Errorf("probed output missing health for pds:\n%s", probedOut.String())
	}
	if !strings.Contains(probedOut.String(), "✗ plc - Stopped - unhealthy") {
		t.Errorf("probed output missing health for plc:\n%s", probedOut.String())
	}
	if strings.Contains(plainOut.String(), "healthy") {
		t.Errorf("unprobed output should not claim health:\n%s", plainOut.String())
	}
}

func TestPrintStatus_VerboseProbedSnapshotShowsHealth(t *testing.T) {
	source := &fakeTopology{states: map[string]fleet.ProcessState{
		"pds": {Running: true, State: "running"},
	}}
	agg := &fleet.Aggregator{
		Source: source,
		Prober: &fakeProber{states: map[string]health.State{"pds": health.Healthy}},
	}

	snapshot, err := agg.Snapshot(context.Background(), true)
	if err != nil {
		t.Fatal(err)
	}

	var buf strings.Builder
	fleet.PrintStatus(&buf, snapshot, true)
	out := buf.String()

	if !strings.Contains(out, "healthy: true") {
		t.Errorf("verbose output missing healthy detail:\n%s", out)
	}
	if !strings.Contains(out, "healthy: false") {
		t.Errorf("verbose output missing unhealthy detail for unprobed-unhealthy services:\n%s", out)
	}
}

func TestPrintStatus_Verbose(t *testing.T) {
	source := &fakeTopology{states: map[string]fleet.ProcessState{
		"pds": {Running: true, State: "running", Ports: []string{"3000:3000"}},
	}}
	agg := &fleet.Aggregator{Source: source, Domain: "example.com"}

	snapshot, err := agg.Snapshot(context.Background(), true)
	if err != nil {
		t.Fatal(err)
	}

	var buf strings.Builder
	fleet.PrintStatus(&buf, snapshot, true)
	out := buf.String()

	if !strings.Contains(out, "endpoint: https://pds.example.com") {
		t.Errorf("output missing endpoint:\n%s", out)
	}
	if !strings.Contains(out, "port_0: 3000:3000") {
		t.Errorf("output missing port detail:\n%s", out)
	}
	if !strings.Contains(out, "state: running") {
		t.Errorf("output missing state detail:\n%s", out)
	}
}

func TestSnapshot_TimestampIsUTCAndCurrent(t *testing.T) {
	source := &fakeTopology{states: map[string]fleet.ProcessState{}}
	agg := &fleet.Aggregator{Source: source}

	before := time.Now().UTC()
	snapshot, err := agg.Snapshot(context.Background(), false)
	if err != nil {
		t.Fatal(err)
	}
	after := time.Now().UTC()

	if snapshot.Timestamp.Before(before) || snapshot.Timestamp.After(after) {
		t.Errorf("timestamp %v outside [%v, %v]", snapshot.Timestamp, before, after)
	}
	if snapshot.Timestamp.Location() != time.UTC {
		t.Errorf("timestamp location = %v, want UTC", snapshot.Timestamp.Location())
	}
}
