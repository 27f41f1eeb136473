package fleet

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os/exec"
)

// ProcessState is the live state of one service as reported by the compose
// tooling. Produced fresh on every topology query, never cached.
type ProcessState struct {
	Running bool
	State   string   // raw lifecycle state text, e.g. "running", "exited"
	Ports   []string // host:container port bindings in listing order
}

// TopologySource is the read path the status aggregator depends on.
// Controller satisfies it; tests substitute a fake.
type TopologySource interface {
	Topology(ctx context.Context) (map[string]ProcessState, error)
}

// psRecord is one line of `docker compose ps --format json` output.
type psRecord struct {
	Name       string `json:"Name"`
	Service    string `json:"Service"`
	State      string `json:"State"`
	Publishers []struct {
		TargetPort    int    `json:"TargetPort"`
		PublishedPort int    `json:"PublishedPort"`
	} `json:"Publishers"`
}

// Topology queries the compose tool's machine-readable listing and returns
// the state of every tracked process, keyed by service name. Each output
// line is parsed independently; a malformed line is dropped (and counted)
// rather than voiding the whole snapshot.
func (c *Controller) Topology(ctx context.Context) (map[string]ProcessState, error) {
	ctx, cancel := c.bound(ctx)
	defer cancel()

	cmd := exec.CommandContext(ctx, "docker", "compose", "-f", c.ComposeFile, "ps", "--format", "json")
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return nil, &OrchestrationError{Op: "topology", Err: fmt.Errorf("docker compose ps: %w", ctx.Err())}
		}
		return nil, &OrchestrationError{Op: "topology", Err: fmt.Errorf("docker compose ps: %w", err), Output: stderr.String()}
	}

	states, dropped := parseTopology(&stdout)
	if dropped > 0 {
		c.Logger.Warn().Int("dropped", dropped).Msg("dropped malformed topology records")
	}
	return states, nil
}

// parseTopology reads line-delimited JSON process records, returning the
// parsed states and the count of lines that failed to parse.
func parseTopology(r io.Reader) (map[string]ProcessState, int) {
	states := make(map[string]ProcessState)
	dropped := 0

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}

		var rec psRecord
		if err := json.Unmarshal(line, &rec); err != nil {
			dropped++
			continue
		}
		name := rec.Service
		if name == "" {
			name = rec.Name
		}
		if name == "" {
			dropped++
			continue
		}

		var ports []string
		for _, p := range rec.Publishers {
			if p.PublishedPort == 0 {
				continue
			}
			ports = append(ports, fmt.Sprintf("%d:%d", p.PublishedPort, p.TargetPort))
		}

		states[name] = ProcessState{
			Running: rec.State == "running",
			State:   rec.State,
			Ports:   ports,
		}
	}
	return states, dropped
}
