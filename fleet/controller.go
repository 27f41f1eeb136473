package fleet

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/mekaem/atc/config"
)

// DefaultSecretsFile is the conventional location of generated secrets.
// If the file is absent, Start simply omits the secret variables.
const DefaultSecretsFile = "config/secrets.yaml"

// OrchestrationError reports a failed invocation of the external
// container-orchestration tooling. The tool's own diagnostic output is
// preserved verbatim in Output and never parsed further.
type OrchestrationError struct {
	Op     string // the operation that failed, e.g. "start", "stop"
	Err    error
	Output string // trailing stderr from the tool, if any
}

func (e *OrchestrationError) Error() string {
	if e.Output != "" {
		return fmt.Sprintf("%s: %v: %s", e.Op, e.Err, strings.TrimSpace(e.Output))
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *OrchestrationError) Unwrap() error { return e.Err }

// Controller issues lifecycle operations against the docker-compose process
// group. It is the only component in the package that mutates external
// process state; everything else is a read path.
type Controller struct {
	// ComposeFile is the path to the group's topology file.
	ComposeFile string

	// Env is merged into the environment of every start invocation,
	// alongside any generated secrets found at SecretsFile.
	Env map[string]string

	// SecretsFile overrides the conventional secrets location.
	SecretsFile string

	// Timeout bounds each tool invocation. Zero means no internal timeout:
	// the call blocks for as long as the external tool takes.
	Timeout time.Duration

	// Stdout and Stderr receive the tool's streaming output during
	// start/stop. Defaults to the process's own stdout/stderr.
	Stdout io.Writer
	Stderr io.Writer

	Logger zerolog.Logger
}

// NewController returns a Controller for the given compose file.
func NewController(composeFile string) *Controller {
	return &Controller{
		ComposeFile: composeFile,
		Logger:      zerolog.Nop(),
	}
}

// Start brings up the process group, or only the named services when
// services is non-empty. Caller-supplied env vars are merged with generated
// secrets before the tool is invoked; a missing secrets file is not an error.
func (c *Controller) Start(ctx context.Context, services []string) error {
	if _, err := os.Stat(c.ComposeFile); err != nil {
		return &OrchestrationError{Op: "start", Err: fmt.Errorf("compose file not found: %s", c.ComposeFile)}
	}

	env := make(map[string]string, len(c.Env))
	for k, v := range c.Env {
		env[k] = v
	}
	secretsFile := c.SecretsFile
	if secretsFile == "" {
		secretsFile = DefaultSecretsFile
	}
	if _, err := os.Stat(secretsFile); err == nil {
		secrets, err := config.LoadSecrets(secretsFile)
		if err != nil {
			return &OrchestrationError{Op: "start", Err: fmt.Errorf("load secrets: %w", err)}
		}
		for k, v := range secrets.EnvVars() {
			env[k] = v
		}
		c.Logger.Debug().Str("path", secretsFile).Msg("loaded secrets into start environment")
	}

	args := []string{"compose", "-f", c.ComposeFile, "up", "-d"}
	args = append(args, services...)
	return c.runStreaming(ctx, "start", env, args...)
}

// Stop takes the process group down. When purge is true the tool also
// removes persistent volumes; this is destructive and irreversible, so
// callers must treat it as a confirmed, non-retryable action.
func (c *Controller) Stop(ctx context.Context, purge bool) error {
	if _, err := os.Stat(c.ComposeFile); err != nil {
		return &OrchestrationError{Op: "stop", Err: fmt.Errorf("compose file not found: %s", c.ComposeFile)}
	}

	args := []string{"compose", "-f", c.ComposeFile, "down"}
	if purge {
		args = append(args, "-v")
	}
	return c.runStreaming(ctx, "stop", nil, args...)
}

// CheckDependencies verifies that the container runtime and the compose
// tooling are both installed and invocable. Used as a pre-flight gate
// before Start; callers may opt out explicitly.
func (c *Controller) CheckDependencies(ctx context.Context) error {
	ctx, cancel := c.bound(ctx)
	defer cancel()

	if out, err := exec.CommandContext(ctx, "docker", "--version").CombinedOutput(); err != nil {
		return &OrchestrationError{Op: "check dependencies", Err: fmt.Errorf("docker is not installed: %w", err), Output: string(out)}
	}
	if out, err := exec.CommandContext(ctx, "docker", "compose", "version").CombinedOutput(); err != nil {
		return &OrchestrationError{Op: "check dependencies", Err: fmt.Errorf("docker compose is not installed: %w", err), Output: string(out)}
	}
	return nil
}

// runStreaming invokes the compose tool with output streaming to the
// configured writers, capturing trailing stderr for error reporting.
func (c *Controller) runStreaming(ctx context.Context, op string, env map[string]string, args ...string) error {
	ctx, cancel := c.bound(ctx)
	defer cancel()

	cmd := exec.CommandContext(ctx, "docker", args...)

	var stderrTail bytes.Buffer
	stdout := c.Stdout
	if stdout == nil {
		stdout = os.Stdout
	}
	stderr := c.Stderr
	if stderr == nil {
		stderr = os.Stderr
	}
	cmd.Stdout = stdout
	cmd.Stderr = io.MultiWriter(stderr, &stderrTail)

	cmd.Env = os.Environ()
	for k, v := range env {
		cmd.Env = append(cmd.Env, k+"="+v)
	}

	c.Logger.Debug().Strs("args", args).Msg("invoking docker compose")
	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return &OrchestrationError{Op: op, Err: fmt.Errorf("docker compose: %w", ctx.Err())}
		}
		return &OrchestrationError{Op: op, Err: fmt.Errorf("docker compose: %w", err), Output: stderrTail.String()}
	}
	return nil
}

// bound applies the configured invocation timeout, if any. On expiry the
// child process is killed by exec.CommandContext.
func (c *Controller) bound(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.Timeout > 0 {
		return context.WithTimeout(ctx, c.Timeout)
	}
	return ctx, func() {}
}
