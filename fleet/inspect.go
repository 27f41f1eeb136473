package fleet

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/filters"
	"github.com/docker/go-connections/nat"

	"github.com/mekaem/atc/internal/dockerutil"
)

// composeServiceLabel is the label compose stamps on every container it
// creates, holding the logical service name.
const composeServiceLabel = "com.docker.compose.service"

// Inspector reads per-container detail straight from the Docker daemon,
// enriching verbose snapshots with information the compose listing does not
// carry (image versions, raw port maps).
type Inspector struct{}

// Version returns the image tag of the container backing the named service,
// or "" when the service has no container or its image reference carries no
// tag.
func (Inspector) Version(ctx context.Context, service string) (string, error) {
	cli, err := dockerutil.Client()
	if err != nil {
		return "", fmt.Errorf("docker client: %w", err)
	}

	containers, err := cli.ContainerList(ctx, container.ListOptions{
		All:     true,
		Filters: filters.NewArgs(filters.Arg("label", composeServiceLabel+"="+service)),
	})
	if err != nil {
		return "", fmt.Errorf("list containers: %w", err)
	}
	if len(containers) == 0 {
		return "", nil
	}
	return imageTag(containers[0].Image), nil
}

// PortBindings returns the live host port bindings of the named service's
// container as "host:container" strings, sorted by container port.
func (Inspector) PortBindings(ctx context.Context, service string) ([]string, error) {
	cli, err := dockerutil.Client()
	if err != nil {
		return nil, fmt.Errorf("docker client: %w", err)
	}

	containers, err := cli.ContainerList(ctx, container.ListOptions{
		All:     true,
		Filters: filters.NewArgs(filters.Arg("label", composeServiceLabel+"="+service)),
	})
	if err != nil {
		return nil, fmt.Errorf("list containers: %w", err)
	}
	if len(containers) == 0 {
		return nil, nil
	}

	inspect, err := cli.ContainerInspect(ctx, containers[0].ID)
	if err != nil {
		return nil, fmt.Errorf("inspect container: %w", err)
	}
	if inspect.NetworkSettings == nil {
		return nil, nil
	}
	return formatPortMap(inspect.NetworkSettings.Ports), nil
}

// formatPortMap flattens a nat.PortMap into "host:container" strings with a
// deterministic order.
func formatPortMap(ports nat.PortMap) []string {
	keys := make([]nat.Port, 0, len(ports))
	for p := range ports {
		keys = append(keys, p)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })

	var out []string
	for _, p := range keys {
		for _, binding := range ports[p] {
			if binding.HostPort == "" {
				continue
			}
			out = append(out, binding.HostPort+":"+p.Port())
		}
	}
	return out
}

// imageTag extracts the tag from an image reference, ignoring digest-pinned
// and untagged references.
func imageTag(ref string) string {
	if i := strings.Index(ref, "@"); i >= 0 {
		ref = ref[:i]
	}
	i := strings.LastIndex(ref, ":")
	if i < 0 || strings.Contains(ref[i:], "/") {
		return ""
	}
	return ref[i+1:]
}
