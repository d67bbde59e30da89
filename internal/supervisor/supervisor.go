// Package supervisor launches each fixpilot agent as an independent
// child process, polls liveness, restarts crashed agents with a brief
// backoff, and forwards shutdown to every child. Restart counters are
// process-local observability data; they are not persisted.
package supervisor

import (
	"context"
	"os"
	"os/exec"
	"sync"
	"time"

	"github.com/fixpilot/fixpilot/internal/logging"
	"github.com/fixpilot/fixpilot/internal/statestore"
)

// Spec describes one agent to supervise: a name for logging and the
// command line used to launch (and relaunch) it.
type Spec struct {
	Name    string
	Command []string
}

// process is the supervisor-local record for one managed agent.
type process struct {
	spec Spec

	mu           sync.Mutex
	cmd          *exec.Cmd
	exited       chan struct{} // closed when Wait returns
	restartCount int
	lastRestart  time.Time
}

// Options tune supervision timing.
type Options struct {
	// PollInterval is how often child liveness is checked.
	PollInterval time.Duration
	// RestartDelay is the pause before relaunching a crashed agent.
	RestartDelay time.Duration
	// Stagger is the delay between successive launches, so freshly
	// started agents do not stampede the shared state lock.
	Stagger time.Duration
	// GracePeriod is how long Shutdown waits before force-killing.
	GracePeriod time.Duration
}

// DefaultOptions returns the standard supervision timing.
func DefaultOptions() Options {
	return Options{
		PollInterval: 2 * time.Second,
		RestartDelay: time.Second,
		Stagger:      500 * time.Millisecond,
		GracePeriod:  5 * time.Second,
	}
}

// Supervisor manages a fixed set of agent processes.
type Supervisor struct {
	procs  []*process
	opts   Options
	store  *statestore.Store
	logger *logging.Logger

	mu       sync.Mutex
	stopping bool
}

// New creates a Supervisor for the given agent specs. A crashed agent is
// recorded in the shared state store before relaunch; store may be nil
// to skip that bookkeeping.
func New(specs []Spec, opts Options, store *statestore.Store, logger *logging.Logger) *Supervisor {
	s := &Supervisor{opts: opts, store: store, logger: logger}
	for _, spec := range specs {
		s.procs = append(s.procs, &process{spec: spec})
	}
	return s
}

// StartAll launches every agent with staggered start times. A launch
// failure is logged and the remaining agents still start; the poll loop
// will keep retrying the failed one.
func (s *Supervisor) StartAll() {
	for i, p := range s.procs {
		if i > 0 {
			time.Sleep(s.opts.Stagger)
		}
		if err := s.launch(p); err != nil {
			s.logger.Error("could not launch agent", "agent", p.spec.Name, "error", err)
		}
	}
}

// Run blocks in the supervisory loop until ctx is cancelled, then shuts
// every agent down.
func (s *Supervisor) Run(ctx context.Context) {
	ticker := time.NewTicker(s.opts.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.Shutdown()
			return
		case <-ticker.C:
			s.checkAll()
		}
	}
}

// Shutdown sends each running child a graceful-termination signal,
// waits up to the grace period, and force-kills stragglers. Best-effort
// across all agents: one stubborn child does not block the rest from
// being signalled.
func (s *Supervisor) Shutdown() {
	s.mu.Lock()
	s.stopping = true
	s.mu.Unlock()

	for _, p := range s.procs {
		p.mu.Lock()
		if p.cmd != nil && p.cmd.Process != nil {
			s.logger.Info("stopping agent", "agent", p.spec.Name)
			terminateProcess(p.cmd)
		}
		p.mu.Unlock()
	}

	// One absolute deadline shared by every child. Each wait gets its own
	// timer against it so a straggler cannot starve the children after it
	// of their force-kill; past the deadline the timer fires immediately.
	deadline := time.Now().Add(s.opts.GracePeriod)
	for _, p := range s.procs {
		p.mu.Lock()
		exited := p.exited
		p.mu.Unlock()
		if exited == nil {
			continue
		}
		timer := time.NewTimer(time.Until(deadline))
		select {
		case <-exited:
			timer.Stop()
		case <-timer.C:
			p.mu.Lock()
			s.logger.Warn("agent did not stop in time, killing", "agent", p.spec.Name)
			killProcess(p.cmd)
			p.mu.Unlock()
		}
	}
}

// RestartCounts returns a snapshot of per-agent restart counters.
func (s *Supervisor) RestartCounts() map[string]int {
	out := make(map[string]int, len(s.procs))
	for _, p := range s.procs {
		p.mu.Lock()
		out[p.spec.Name] = p.restartCount
		p.mu.Unlock()
	}
	return out
}

// launch starts one agent and begins reaping it in the background.
func (s *Supervisor) launch(p *process) error {
	cmd := exec.Command(p.spec.Command[0], p.spec.Command[1:]...) //nolint:gosec // command comes from operator config
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	configureProcess(cmd)

	if err := cmd.Start(); err != nil {
		return err
	}

	exited := make(chan struct{})
	p.mu.Lock()
	p.cmd = cmd
	p.exited = exited
	p.mu.Unlock()

	s.logger.Info("agent launched", "agent", p.spec.Name, "pid", cmd.Process.Pid)

	go func() {
		_ = cmd.Wait()
		close(exited)
	}()
	return nil
}

// checkAll restarts any child found to have exited without a stop request.
func (s *Supervisor) checkAll() {
	s.mu.Lock()
	stopping := s.stopping
	s.mu.Unlock()
	if stopping {
		return
	}

	for _, p := range s.procs {
		if s.alive(p) {
			continue
		}
		s.restart(p)
	}
}

func (s *Supervisor) alive(p *process) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.exited == nil {
		return false // never launched successfully
	}
	select {
	case <-p.exited:
		return false
	default:
		return true
	}
}

// restart relaunches a crashed agent after the configured delay.
// There is no cap on restarts: a crash-looping agent keeps restarting
// and the climbing counter in the logs is the operator's signal.
func (s *Supervisor) restart(p *process) {
	p.mu.Lock()
	p.restartCount++
	p.lastRestart = time.Now()
	count := p.restartCount
	p.mu.Unlock()

	s.logger.Warn("agent exited unexpectedly, restarting",
		"agent", p.spec.Name, "restarts", count)

	if s.store != nil {
		if _, err := s.store.Update(func(state *statestore.SharedState) {
			state.SetAgent(p.spec.Name, statestore.AgentCrashed)
		}); err != nil {
			s.logger.Warn("could not record crashed state", "agent", p.spec.Name, "error", err)
		}
	}

	time.Sleep(s.opts.RestartDelay)

	if err := s.launch(p); err != nil {
		s.logger.Error("could not relaunch agent", "agent", p.spec.Name, "error", err)
	}
}
