package poller

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/okian/homedash/pkg/logger"
)

// Supervisor owns a set of named tasks bound to one parent context.
type Supervisor struct {
	ctx    context.Context
	cancel context.CancelFunc
	group  *errgroup.Group
	logger logger.Logger

	mu      sync.Mutex
	tasks   map[string]Runner
	stopped bool
}

// NewSupervisor creates a supervisor whose tasks run until ctx is done or Stop is called.
func NewSupervisor(ctx context.Context, opts ...SupervisorOption) *Supervisor {
	ctx, cancel := context.WithCancel(ctx)
	s := &Supervisor{
		ctx:    ctx,
		cancel: cancel,
		group:  &errgroup.Group{},
		logger: logger.Get().Named("supervisor"),
		tasks:  make(map[string]Runner),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Add registers and starts r.
func (s *Supervisor) Add(r Runner) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stopped {
		return ErrStopped
	}
	name := r.Name()
	if _, ok := s.tasks[name]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateTask, name)
	}
	s.tasks[name] = r
	s.group.Go(func() error {
		// A failing task must not take its siblings down.
		if err := r.Run(s.ctx); err != nil {
			s.logger.Warn(s.ctx, "task exited", logger.String("task", name), logger.Error(err))
		}
		return nil
	})
	s.logger.Debug(s.ctx, "task added", logger.String("task", name))
	return nil
}

// Remove stops and forgets the named task. It reports whether it existed.
func (s *Supervisor) Remove(name string) bool {
	s.mu.Lock()
	r, ok := s.tasks[name]
	delete(s.tasks, name)
	s.mu.Unlock()

	if ok {
		r.Stop()
		s.logger.Debug(s.ctx, "task removed", logger.String("task", name))
	}
	return ok
}

// Get returns the named task.
func (s *Supervisor) Get(name string) (Runner, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.tasks[name]
	return r, ok
}

// Reconcile makes the task set equal to names: missing tasks are built with
// factory and started, tasks not in names are stopped. Names outside prefix
// are left untouched so several task families can share one supervisor.
func (s *Supervisor) Reconcile(prefix string, names []string, factory func(name string) Runner) (added, removed []string) {
	want := make(map[string]struct{}, len(names))
	for _, n := range names {
		want[prefix+n] = struct{}{}
	}

	s.mu.Lock()
	var stale []string
	for name := range s.tasks {
		if !strings.HasPrefix(name, prefix) {
			continue
		}
		if _, ok := want[name]; !ok {
			stale = append(stale, name)
		}
	}
	s.mu.Unlock()

	for _, name := range stale {
		if s.Remove(name) {
			removed = append(removed, name)
		}
	}
	for _, n := range names {
		if _, ok := s.Get(prefix + n); ok {
			continue
		}
		r := factory(n)
		if r == nil {
			continue
		}
		if err := s.Add(r); err != nil {
			s.logger.Warn(s.ctx, "could not add task", logger.String("task", r.Name()), logger.Error(err))
			continue
		}
		added = append(added, r.Name())
	}
	sort.Strings(added)
	sort.Strings(removed)
	return added, removed
}

// Names returns the registered task names, sorted.
func (s *Supervisor) Names() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	names := make([]string, 0, len(s.tasks))
	for name := range s.tasks {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Statuses returns the status of every task, sorted by name.
func (s *Supervisor) Statuses() []Status {
	s.mu.Lock()
	out := make([]Status, 0, len(s.tasks))
	for _, r := range s.tasks {
		out = append(out, r.Status())
	}
	s.mu.Unlock()
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Stop halts every task and waits for their loops to return.
func (s *Supervisor) Stop() error {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return nil
	}
	s.stopped = true
	tasks := make([]Runner, 0, len(s.tasks))
	for _, r := range s.tasks {
		tasks = append(tasks, r)
	}
	s.tasks = make(map[string]Runner)
	s.mu.Unlock()

	for _, r := range tasks {
		r.Stop()
	}
	s.cancel()
	if err := s.group.Wait(); err != nil {
		return fmt.Errorf("supervisor stop: %w", err)
	}
	return nil
}
