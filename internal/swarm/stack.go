package swarm

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/docker/docker/api/types/filters"
	"github.com/docker/docker/api/types/swarm"
)

// StackNamespaceLabel is the label the stack CLI sets on every resource it
// creates for a stack.
const StackNamespaceLabel = "com.docker.stack.namespace"

// Defaults for waiting on workload health after a stack submission.
const (
	DefaultWaitTimeout  = 5 * time.Minute
	DefaultWaitInterval = 5 * time.Second
)

// ErrWaitTimeout indicates a stack's services did not reach their desired
// replica count within the wait timeout.
var ErrWaitTimeout = errors.New("timed out waiting for service replicas")

// DeployStack submits a rendered stack file for deployment under the given
// name, pruning services no longer referenced and forwarding registry
// credentials to the swarm agents.
func (c *Client) DeployStack(ctx context.Context, stackName, stackFile string) error {
	cmd := exec.CommandContext(ctx, "docker", "stack", "deploy",
		"--compose-file", stackFile,
		"--prune",
		"--with-registry-auth",
		"--detach=true",
		stackName,
	)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return fmt.Errorf("docker stack deploy %s: %w: %s", stackName, err, stderr.String())
	}
	return nil
}

// StackServices lists the services belonging to a stack.
func (c *Client) StackServices(ctx context.Context, stackName string) ([]swarm.Service, error) {
	services, err := c.api.ServiceList(ctx, swarm.ServiceListOptions{
		Filters: filters.NewArgs(filters.Arg("label", StackNamespaceLabel+"="+stackName)),
	})
	if err != nil {
		return nil, fmt.Errorf("list services of stack %s: %w", stackName, err)
	}
	return services, nil
}

// WaitOptions bound the polling loop of WaitForStack.
type WaitOptions struct {
	Timeout  time.Duration
	Interval time.Duration

	// Progress, when set, receives replica status lines while waiting.
	Progress func(format string, args ...any)
}

func (o *WaitOptions) withDefaults() WaitOptions {
	opts := WaitOptions{Timeout: DefaultWaitTimeout, Interval: DefaultWaitInterval}
	if o != nil {
		if o.Timeout > 0 {
			opts.Timeout = o.Timeout
		}
		if o.Interval > 0 {
			opts.Interval = o.Interval
		}
		opts.Progress = o.Progress
	}
	return opts
}

// WaitForStack blocks until every service of the stack runs its desired
// replica count, or the timeout elapses.
func (c *Client) WaitForStack(ctx context.Context, stackName string, opts *WaitOptions) error {
	services, err := c.StackServices(ctx, stackName)
	if err != nil {
		return err
	}
	for _, svc := range services {
		if err := c.waitForService(ctx, svc.ID, opts); err != nil {
			return err
		}
	}
	return nil
}

// waitForService polls one service until its running replicas match the
// desired count.
func (c *Client) waitForService(ctx context.Context, serviceID string, opts *WaitOptions) error {
	o := opts.withDefaults()

	ctx, cancel := context.WithTimeout(ctx, o.Timeout)
	defer cancel()

	ticker := time.NewTicker(o.Interval)
	defer ticker.Stop()

	for {
		svc, _, err := c.api.ServiceInspectWithRaw(ctx, serviceID, swarm.ServiceInspectOptions{})
		if err != nil {
			// The ticker and the deadline can fire on the same iteration;
			// a poll that loses that race is still a timeout, not a fatal
			// inspect failure.
			if ctx.Err() != nil {
				return fmt.Errorf("%w: service %s did not converge within %s",
					ErrWaitTimeout, serviceID, o.Timeout)
			}
			return fmt.Errorf("inspect service %s: %w", serviceID, err)
		}

		desired := desiredReplicas(&svc)
		running, err := c.runningReplicas(ctx, svc.ID)
		if err != nil {
			if ctx.Err() != nil {
				return fmt.Errorf("%w: service %s did not converge within %s",
					ErrWaitTimeout, svc.Spec.Name, o.Timeout)
			}
			return err
		}

		if o.Progress != nil {
			o.Progress("service %s: %d/%d replicas running", svc.Spec.Name, running, desired)
		}
		if running == desired {
			return nil
		}

		select {
		case <-ticker.C:
		case <-ctx.Done():
			return fmt.Errorf("%w: service %s has %d/%d running after %s",
				ErrWaitTimeout, svc.Spec.Name, running, desired, o.Timeout)
		}
	}
}

func desiredReplicas(svc *swarm.Service) int {
	if svc.Spec.Mode.Replicated != nil && svc.Spec.Mode.Replicated.Replicas != nil {
		return int(*svc.Spec.Mode.Replicated.Replicas)
	}
	// Global and job modes have no fixed replica target; treat a single
	// running task as converged.
	return 1
}

func (c *Client) runningReplicas(ctx context.Context, serviceID string) (int, error) {
	tasks, err := c.api.TaskList(ctx, swarm.TaskListOptions{
		Filters: filters.NewArgs(
			filters.Arg("service", serviceID),
			filters.Arg("desired-state", "running"),
		),
	})
	if err != nil {
		return 0, fmt.Errorf("list tasks of service %s: %w", serviceID, err)
	}

	running := 0
	for _, task := range tasks {
		if strings.EqualFold(string(task.Status.State), string(swarm.TaskStateRunning)) {
			running++
		}
	}
	return running, nil
}
