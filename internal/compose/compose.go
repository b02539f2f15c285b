// Package compose wraps the external container-orchestration tooling.
//
// The launcher drives the stack through the docker compose CLI (pull, up,
// one-off run, down) and uses the Docker SDK only for read-side operations:
// daemon ping and container listing. All invocations are synchronous with
// no retries; orchestration failures propagate to the caller as-is.
package compose

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"github.com/strixlabs/vllmctl/internal/logger"
)

// Client invokes docker compose against one stack. The zero value is not
// usable; construct with New.
type Client struct {
	composeFile string
	envFile     string
	project     string
	profiles    []string
}

// New creates a compose client for the given stack definition and env file.
// Profiles are optional and activate conditional services (e.g., the UI).
func New(composeFile, envFile, project string, profiles ...string) *Client {
	return &Client{
		composeFile: composeFile,
		envFile:     envFile,
		project:     project,
		profiles:    profiles,
	}
}

// Args builds the full docker CLI argument list for a compose subcommand.
// Exposed (and kept pure) so callers can preview the exact invocation in
// dry-run mode and tests can assert it without running anything.
func (c *Client) Args(subcommand string, extra ...string) []string {
	args := []string{"compose", "-f", c.composeFile, "-p", c.project}
	if c.envFile != "" {
		args = append(args, "--env-file", c.envFile)
	}
	for _, profile := range c.profiles {
		args = append(args, "--profile", profile)
	}
	args = append(args, subcommand)
	args = append(args, extra...)
	return args
}

// Pull pulls the images for all services in the stack.
func (c *Client) Pull(ctx context.Context) error {
	return c.run(ctx, c.Args("pull"))
}

// Up brings the stack up. With detach the command returns once containers
// are started; otherwise it streams logs until interrupted.
func (c *Client) Up(ctx context.Context, detach bool) error {
	extra := []string{}
	if detach {
		extra = append(extra, "-d")
	}
	return c.run(ctx, c.Args("up", extra...))
}

// Run executes a one-off command in a service container and removes the
// container afterwards. Used for model pre-download before up.
func (c *Client) Run(ctx context.Context, service string, cmdArgs ...string) error {
	extra := append([]string{"--rm", service}, cmdArgs...)
	return c.run(ctx, c.Args("run", extra...))
}

// Down stops and removes the stack's containers.
func (c *Client) Down(ctx context.Context) error {
	return c.run(ctx, c.Args("down"))
}

// run executes the docker CLI with output passed through to the user.
// Blocking is intentional: cancellation belongs to the invoking shell, and
// a hung orchestration call hangs the launcher with it.
func (c *Client) run(ctx context.Context, args []string) error {
	logger.Debug("Running: docker %s", strings.Join(args, " "))

	cmd := exec.CommandContext(ctx, "docker", args...)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	cmd.Stdin = os.Stdin

	if err := cmd.Run(); err != nil {
		return fmt.Errorf("docker %s failed: %w", strings.Join(args[:2], " "), err)
	}
	return nil
}

// CheckCLI verifies the docker CLI is installed. Compose ships as a docker
// plugin, so a missing binary is the common failure mode to catch early.
func CheckCLI() error {
	if _, err := exec.LookPath("docker"); err != nil {
		return fmt.Errorf("docker command not found in PATH; install Docker with the compose plugin: %w", err)
	}
	return nil
}
