package initphase

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/mrlokans/lingua/internal/ipc"
	"github.com/mrlokans/lingua/internal/metrics"
)

// Config holds registry defaults. A zero DefaultTimeout means 30s.
type Config struct {
	DefaultTimeout time.Duration
	Logger         *zap.Logger
	Metrics        *metrics.Metrics
}

type namedHooks struct {
	name  string
	hooks Hooks
}

// Registry orders init phases by dependency, runs them and tracks their Status.
type Registry struct {
	mu        sync.Mutex
	phases    []Phase
	index     map[string]int
	hooks     []namedHooks
	observers map[int]func(Status)
	nextObs   int

	running   bool
	completed map[string]bool
	status    Status

	defaultTimeout time.Duration
	log            *zap.Logger
	metrics        *metrics.Metrics
	now            func() time.Time
}

// NewRegistry returns an idle registry with no phases.
func NewRegistry(cfg Config) *Registry {
	if cfg.DefaultTimeout <= 0 {
		cfg.DefaultTimeout = 30 * time.Second
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	return &Registry{
		index:          make(map[string]int),
		observers:      make(map[int]func(Status)),
		completed:      make(map[string]bool),
		status:         Status{State: StateIdle, Phases: []PhaseResult{}},
		defaultTimeout: cfg.DefaultTimeout,
		log:            cfg.Logger.Named("init"),
		metrics:        cfg.Metrics,
		now:            time.Now,
	}
}

// Register adds a phase. Dependencies are resolved by Plan, so phases may
// be registered in any order.
func (r *Registry) Register(p Phase) error {
	if strings.TrimSpace(p.Name) == "" {
		return ErrEmptyName
	}
	if p.Run == nil {
		return fmt.Errorf("phase %s has no run function", p.Name)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.running {
		return ErrAlreadyRunning
	}
	if _, exists := r.index[p.Name]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicatePhase, p.Name)
	}

	p.DependsOn = append([]string(nil), p.DependsOn...)
	r.index[p.Name] = len(r.phases)
	r.phases = append(r.phases, p)
	r.status.Phases = append(r.status.Phases, PhaseResult{
		Name:      p.Name,
		Status:    PhasePending,
		Optional:  p.Optional,
		DependsOn: p.DependsOn,
	})
	return nil
}

// AddHooks appends a hook set. Hook sets run in the order they were added.
func (r *Registry) AddHooks(name string, hooks Hooks) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.hooks = append(r.hooks, namedHooks{name: name, hooks: hooks})
}

// Observe registers fn to receive a snapshot after every status change and
// returns a function that removes it. fn is called synchronously from the
// running goroutine and must not block.
func (r *Registry) Observe(fn func(Status)) (cancel func()) {
	r.mu.Lock()
	defer r.mu.Unlock()
	id := r.nextObs
	r.nextObs++
	r.observers[id] = fn
	return func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		delete(r.observers, id)
	}
}

// Status returns a snapshot of the latest run.
func (r *Registry) Status() Status {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.status.clone()
}

// Phases returns the registered phases in registration order.
func (r *Registry) Phases() []Phase {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Phase(nil), r.phases...)
}

// Plan returns the phases in execution order. The order is a topological
// sort of the dependency graph in which ties keep registration order.
func (r *Registry) Plan() ([]Phase, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.planLocked()
}

func (r *Registry) planLocked() ([]Phase, error) {
	indegree := make([]int, len(r.phases))
	dependents := make([][]int, len(r.phases))
	for i, p := range r.phases {
		for _, dep := range p.DependsOn {
			j, ok := r.index[dep]
			if !ok {
				return nil, fmt.Errorf("%w: %s depends on %s", ErrUnknownDependency, p.Name, dep)
			}
			if j == i {
				return nil, fmt.Errorf("%w: %s depends on itself", ErrCycle, p.Name)
			}
			indegree[i]++
			dependents[j] = append(dependents[j], i)
		}
	}

	// Picking the lowest ready index each round keeps the order stable.
	done := make([]bool, len(r.phases))
	order := make([]Phase, 0, len(r.phases))
	for len(order) < len(r.phases) {
		next := -1
		for i := range r.phases {
			if !done[i] && indegree[i] == 0 {
				next = i
				break
			}
		}
		if next < 0 {
			var stuck []string
			for i, p := range r.phases {
				if !done[i] {
					stuck = append(stuck, p.Name)
				}
			}
			return nil, fmt.Errorf("%w among %s", ErrCycle, strings.Join(stuck, ", "))
		}
		done[next] = true
		order = append(order, r.phases[next])
		for _, d := range dependents[next] {
			indegree[d]--
		}
	}
	return order, nil
}

// Run executes the pending phases and blocks until the run ends. It returns
// the error of the first failed required phase.
func (r *Registry) Run(ctx context.Context) error {
	plan, err := r.begin()
	if err != nil {
		return err
	}
	return r.execute(ctx, plan)
}

// Start is Run in the background. The registry is in the running state when
// Start returns without error.
func (r *Registry) Start(ctx context.Context) error {
	plan, err := r.begin()
	if err != nil {
		return err
	}
	go func() {
		_ = r.execute(ctx, plan)
	}()
	return nil
}

func (r *Registry) begin() ([]Phase, error) {
	r.mu.Lock()
	if r.running {
		r.mu.Unlock()
		return nil, ErrAlreadyRunning
	}

	plan, err := r.planLocked()
	if err != nil {
		r.status.State = StateFailed
		r.status.Error = failureEnvelope("plan", err, r.now())
		snapshot := r.status.clone()
		r.mu.Unlock()
		r.publish(snapshot)
		return nil, err
	}

	started := r.now()
	r.running = true
	r.status.State = StateRunning
	r.status.Attempt++
	r.status.Error = nil
	r.status.HookErrors = nil
	r.status.StartedAt = &started
	r.status.FinishedAt = nil
	for i := range r.status.Phases {
		if !r.completed[r.status.Phases[i].Name] {
			r.status.Phases[i].Status = PhasePending
			r.status.Phases[i].Error = ""
		}
	}
	snapshot := r.status.clone()
	r.mu.Unlock()

	r.log.Info("initialization started", zap.Int("attempt", snapshot.Attempt), zap.Int("phases", len(plan)))
	r.publish(snapshot)
	return plan, nil
}

func (r *Registry) execute(ctx context.Context, plan []Phase) error {
	r.runHooks("BeforeAll", "", func(h Hooks) error {
		if h.BeforeAll == nil {
			return nil
		}
		return h.BeforeAll(ctx)
	})

	blocked := make(map[string]bool)
	var runErr error

	for _, phase := range plan {
		if r.isCompleted(phase.Name) {
			continue
		}
		if dep := firstBlocked(phase, blocked); dep != "" {
			blocked[phase.Name] = true
			r.update(phase.Name, func(res *PhaseResult) {
				res.Status = PhaseSkipped
				res.Error = "dependency " + dep + " did not complete"
			})
			r.log.Warn("phase skipped", zap.String("phase", phase.Name), zap.String("dependency", dep))
			if !phase.Optional {
				runErr = fmt.Errorf("phase %s: %w: %s", phase.Name, ErrDependencyFailed, dep)
				break
			}
			continue
		}

		err := r.runPhase(ctx, phase)
		if err == nil {
			continue
		}
		blocked[phase.Name] = true
		if !phase.Optional || ctx.Err() != nil {
			runErr = fmt.Errorf("phase %s: %w", phase.Name, err)
			break
		}
	}

	return r.finish(ctx, runErr)
}

func (r *Registry) runPhase(ctx context.Context, phase Phase) error {
	r.runHooks("BeforePhase", phase.Name, func(h Hooks) error {
		if h.BeforePhase == nil {
			return nil
		}
		return h.BeforePhase(ctx, phase)
	})

	started := r.now()
	r.mu.Lock()
	r.status.Current = phase.Name
	r.mu.Unlock()
	r.update(phase.Name, func(res *PhaseResult) {
		res.Status = PhaseRunning
		res.StartedAt = &started
		res.Error = ""
	})
	r.log.Info("phase started", zap.String("phase", phase.Name))

	err := r.invoke(ctx, phase)
	elapsed := r.now().Sub(started)

	if err != nil {
		r.metrics.ObservePhase(phase.Name, string(PhaseFailed), elapsed)
		r.update(phase.Name, func(res *PhaseResult) {
			res.Status = PhaseFailed
			res.DurationMs = elapsed.Milliseconds()
			res.Error = err.Error()
		})
		level := r.log.Error
		if phase.Optional {
			level = r.log.Warn
		}
		level("phase failed", zap.String("phase", phase.Name), zap.Bool("optional", phase.Optional), zap.Duration("elapsed", elapsed), zap.Error(err))

		r.runHooks("PhaseFailed", phase.Name, func(h Hooks) error {
			if h.PhaseFailed == nil {
				return nil
			}
			return h.PhaseFailed(ctx, phase, err)
		})
		return err
	}

	r.metrics.ObservePhase(phase.Name, string(PhaseCompleted), elapsed)
	r.mu.Lock()
	r.completed[phase.Name] = true
	r.mu.Unlock()
	result := r.update(phase.Name, func(res *PhaseResult) {
		res.Status = PhaseCompleted
		res.DurationMs = elapsed.Milliseconds()
	})
	r.log.Info("phase completed", zap.String("phase", phase.Name), zap.Duration("elapsed", elapsed))

	r.runHooks("AfterPhase", phase.Name, func(h Hooks) error {
		if h.AfterPhase == nil {
			return nil
		}
		return h.AfterPhase(ctx, phase, result)
	})
	return nil
}

// invoke runs the phase under its timeout. A phase that ignores its
// context is abandoned when the timeout fires.
func (r *Registry) invoke(ctx context.Context, phase Phase) error {
	timeout := phase.Timeout
	if timeout <= 0 {
		timeout = r.defaultTimeout
	}
	phaseCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		defer func() {
			if p := recover(); p != nil {
				r.log.Error("phase panicked", zap.String("phase", phase.Name), zap.Any("panic", p), zap.ByteString("stack", debug.Stack()))
				done <- fmt.Errorf("panic: %v", p)
			}
		}()
		done <- phase.Run(phaseCtx)
	}()

	var err error
	select {
	case err = <-done:
	case <-phaseCtx.Done():
		err = phaseCtx.Err()
	}

	if err != nil && ctx.Err() == nil && errors.Is(phaseCtx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("%w after %s", ErrPhaseTimeout, timeout)
	}
	return err
}

func (r *Registry) finish(ctx context.Context, runErr error) error {
	finished := r.now()

	r.mu.Lock()
	r.running = false
	r.status.Current = ""
	r.status.FinishedAt = &finished
	if runErr != nil {
		r.status.State = StateFailed
		r.status.Error = failureEnvelope(failedPhase(r.status), runErr, finished)
	} else {
		r.status.State = StateReady
	}
	snapshot := r.status.clone()
	r.mu.Unlock()

	if runErr != nil {
		r.log.Error("initialization failed", zap.Int("attempt", snapshot.Attempt), zap.Error(runErr))
		r.runHooks("Failed", "", func(h Hooks) error {
			if h.Failed == nil {
				return nil
			}
			return h.Failed(ctx, runErr)
		})
	} else {
		r.log.Info("initialization completed", zap.Int("attempt", snapshot.Attempt), zap.Duration("elapsed", finished.Sub(*snapshot.StartedAt)))
		r.runHooks("AfterAll", "", func(h Hooks) error {
			if h.AfterAll == nil {
				return nil
			}
			return h.AfterAll(ctx, snapshot)
		})
	}

	// Hook errors from the final hooks are included in the last snapshot.
	r.publish(r.Status())
	return runErr
}

func (r *Registry) runHooks(stage, phase string, call func(Hooks) error) {
	r.mu.Lock()
	hooks := append([]namedHooks(nil), r.hooks...)
	r.mu.Unlock()

	for _, h := range hooks {
		err := safeHook(func() error { return call(h.hooks) })
		if err == nil {
			continue
		}
		r.log.Warn("init hook failed", zap.String("hook", h.name), zap.String("stage", stage), zap.String("phase", phase), zap.Error(err))
		r.mu.Lock()
		r.status.HookErrors = append(r.status.HookErrors, HookError{Hook: h.name, Stage: stage, Phase: phase, Error: err.Error()})
		r.mu.Unlock()
	}
}

func safeHook(call func() error) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("hook panic: %v", p)
		}
	}()
	return call()
}

// update mutates the result of phase name and publishes the new status.
func (r *Registry) update(name string, mutate func(*PhaseResult)) PhaseResult {
	r.mu.Lock()
	var result PhaseResult
	for i := range r.status.Phases {
		if r.status.Phases[i].Name == name {
			mutate(&r.status.Phases[i])
			result = r.status.Phases[i]
			break
		}
	}
	snapshot := r.status.clone()
	r.mu.Unlock()

	r.publish(snapshot)
	return result
}

func (r *Registry) publish(snapshot Status) {
	r.mu.Lock()
	observers := make([]func(Status), 0, len(r.observers))
	for id := 0; id < r.nextObs; id++ {
		if fn, ok := r.observers[id]; ok {
			observers = append(observers, fn)
		}
	}
	r.mu.Unlock()

	for _, fn := range observers {
		fn(snapshot)
	}
}

func (r *Registry) isCompleted(name string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.completed[name]
}

func firstBlocked(phase Phase, blocked map[string]bool) string {
	for _, dep := range phase.DependsOn {
		if blocked[dep] {
			return dep
		}
	}
	return ""
}

func failedPhase(s Status) string {
	for _, p := range s.Phases {
		if (p.Status == PhaseFailed || p.Status == PhaseSkipped) && !p.Optional {
			return p.Name
		}
	}
	for _, p := range s.Phases {
		if p.Status == PhaseFailed {
			return p.Name
		}
	}
	return "run"
}

// failureEnvelope reports init failures with their full message; unlike IPC
// calls these are shown to the user as-is.
func failureEnvelope(phase string, err error, at time.Time) *ipc.Envelope {
	code := ipc.CodeOf(err)
	if errors.Is(err, ErrPhaseTimeout) {
		code = ipc.CodeTimeout
	}
	return &ipc.Envelope{
		Code:      code,
		Message:   err.Error(),
		Method:    "init:" + phase,
		Timestamp: at.UnixMilli(),
	}
}
