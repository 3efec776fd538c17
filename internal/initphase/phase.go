// Package initphase runs the application's initialization as a set of
// named phases ordered by their declared dependencies.
//
// Each phase runs under its own timeout. A failing required phase stops the
// run and leaves the registry in the failed state; running again retries
// every phase that has not completed yet. Hooks observe the lifecycle and
// observers receive a Status snapshot after every transition.
//
// # Usage
//
//	reg := initphase.NewRegistry(initphase.Config{DefaultTimeout: 30 * time.Second, Logger: log})
//	_ = reg.Register(initphase.Phase{Name: "database", Run: openDatabase})
//	_ = reg.Register(initphase.Phase{Name: "ipc", DependsOn: []string{"database"}, Run: registerModules})
//	err := reg.Run(ctx)
package initphase

import (
	"context"
	"errors"
	"time"
)

var (
	ErrEmptyName         = errors.New("phase name is required")
	ErrDuplicatePhase    = errors.New("phase already registered")
	ErrUnknownDependency = errors.New("unknown phase dependency")
	ErrCycle             = errors.New("phase dependency cycle")
	ErrPhaseTimeout      = errors.New("phase timed out")
	ErrAlreadyRunning    = errors.New("initialization already running")
	ErrDependencyFailed  = errors.New("dependency did not complete")
)

// Phase is one named initialization step.
type Phase struct {
	Name      string
	DependsOn []string
	Timeout   time.Duration // Zero uses the registry default
	Optional  bool          // Failure does not fail the run
	Run       func(ctx context.Context) error
}

// State is the overall initialization state.
type State string

const (
	StateIdle    State = "idle"
	StateRunning State = "running"
	StateReady   State = "ready"
	StateFailed  State = "failed"
)

// PhaseStatus is the outcome of a single phase in the latest run.
type PhaseStatus string

const (
	PhasePending   PhaseStatus = "pending"
	PhaseRunning   PhaseStatus = "running"
	PhaseCompleted PhaseStatus = "completed"
	PhaseFailed    PhaseStatus = "failed"
	PhaseSkipped   PhaseStatus = "skipped"
)

// Hooks observe the run lifecycle. Any field may be nil. Errors returned by
// hooks are logged and recorded in Status.HookErrors; they never change
// the outcome of the run.
type Hooks struct {
	BeforeAll   func(ctx context.Context) error
	BeforePhase func(ctx context.Context, phase Phase) error
	AfterPhase  func(ctx context.Context, phase Phase, result PhaseResult) error
	PhaseFailed func(ctx context.Context, phase Phase, err error) error
	AfterAll    func(ctx context.Context, status Status) error // Run reached the ready state
	Failed      func(ctx context.Context, err error) error     // Run ended in the failed state
}
