// Package saga runs multi-step writes against storage that has no
// multi-document transactions. Steps run in order; when one fails the
// inverses of the completed steps run in reverse order.
package saga

import (
	"context"
	"fmt"
	"time"

	"github.com/erp/backoffice/internal/domain/shared"
	"github.com/erp/backoffice/internal/infrastructure/telemetry"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// DefaultCompensationTimeout bounds the whole rollback of one run
const DefaultCompensationTimeout = 30 * time.Second

// Step is one forward write and the write that undoes it
type Step struct {
	Name    string
	Forward func(ctx context.Context) error
	// Inverse may be nil for steps with nothing to undo
	Inverse func(ctx context.Context) error
	// CompensateOnFailure runs Inverse even when Forward itself failed,
	// for writes that may have partially applied.
	CompensateOnFailure bool
}

// Failure describes one inverse that could not be applied
type Failure struct {
	Saga       string
	Step       string
	StoreID    string
	Original   error
	Err        error
	OccurredAt time.Time
}

// Recorder journals failed inverses for manual repair
type Recorder interface {
	Record(ctx context.Context, f Failure) error
}

// Metrics receives saga outcomes
type Metrics interface {
	Completed(ctx context.Context, saga string)
	Compensated(ctx context.Context, saga string)
	CompensationFailed(ctx context.Context, saga, step string)
}

type noopMetrics struct{}

func (noopMetrics) Completed(context.Context, string)                  {}
func (noopMetrics) Compensated(context.Context, string)                {}
func (noopMetrics) CompensationFailed(context.Context, string, string) {}

// Option configures a Saga
type Option func(*Saga)

// WithRecorder journals failed inverses through r
func WithRecorder(r Recorder) Option {
	return func(s *Saga) {
		s.recorder = r
	}
}

// WithMetrics reports outcomes to m
func WithMetrics(m Metrics) Option {
	return func(s *Saga) {
		if m != nil {
			s.metrics = m
		}
	}
}

// WithStoreID tags journal entries with the tenant
func WithStoreID(storeID string) Option {
	return func(s *Saga) {
		s.storeID = storeID
	}
}

// WithStepTimeout bounds each forward step. Zero means no bound.
func WithStepTimeout(d time.Duration) Option {
	return func(s *Saga) {
		s.stepTimeout = d
	}
}

// WithCompensationTimeout bounds the rollback
func WithCompensationTimeout(d time.Duration) Option {
	return func(s *Saga) {
		if d > 0 {
			s.compensationTimeout = d
		}
	}
}

// WithClock overrides the clock stamping journal entries
func WithClock(clock shared.Clock) Option {
	return func(s *Saga) {
		if clock != nil {
			s.clock = clock
		}
	}
}

// Saga is a single-use sequence of steps
type Saga struct {
	name                string
	logger              *zap.Logger
	steps               []Step
	recorder            Recorder
	metrics             Metrics
	storeID             string
	stepTimeout         time.Duration
	compensationTimeout time.Duration
	clock               shared.Clock
}

// New creates an empty saga
func New(name string, logger *zap.Logger, opts ...Option) *Saga {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Saga{
		name:                name,
		logger:              logger,
		metrics:             noopMetrics{},
		compensationTimeout: DefaultCompensationTimeout,
		clock:               shared.SystemClock,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Add appends steps
func (s *Saga) Add(steps ...Step) *Saga {
	s.steps = append(s.steps, steps...)
	return s
}

// Run executes every step. On failure it compensates and returns the
// step's error, or a compensation error wrapping it when any inverse
// failed.
func (s *Saga) Run(ctx context.Context) error {
	ctx, span := telemetry.StartServiceSpan(ctx, "saga", s.name,
		telemetry.WithAttribute("saga.steps", len(s.steps)),
		telemetry.WithAttribute(telemetry.SpanAttrStoreID, s.storeID),
	)
	defer span.End()

	done := make([]Step, 0, len(s.steps))
	for _, step := range s.steps {
		if err := s.forward(ctx, step); err != nil {
			telemetry.RecordError(span, err)
			s.logger.Warn("saga step failed, compensating",
				zap.String("saga", s.name),
				zap.String("step", step.Name),
				zap.Int("completed_steps", len(done)),
				zap.Error(err),
			)
			if step.CompensateOnFailure {
				done = append(done, step)
			}
			return s.compensate(ctx, done, err)
		}
		done = append(done, step)
	}

	s.metrics.Completed(ctx, s.name)
	return nil
}

func (s *Saga) forward(ctx context.Context, step Step) error {
	ctx, span := telemetry.StartSpan(ctx, fmt.Sprintf("saga.%s.%s", s.name, step.Name))
	defer span.End()

	if s.stepTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.stepTimeout)
		defer cancel()
	}
	if err := step.Forward(ctx); err != nil {
		telemetry.RecordError(span, err)
		return err
	}
	return nil
}

// compensate runs inverses on a context detached from the caller's
// cancellation so a timed-out request still rolls back.
func (s *Saga) compensate(ctx context.Context, done []Step, cause error) error {
	cctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.compensationTimeout)
	defer cancel()

	var failures []error
	for i := len(done) - 1; i >= 0; i-- {
		step := done[i]
		if step.Inverse == nil {
			continue
		}
		err := step.Inverse(cctx)
		if err == nil {
			continue
		}

		failures = append(failures, fmt.Errorf("%s: %w", step.Name, err))
		telemetry.AddEvent(trace.SpanFromContext(ctx), "compensation_failed", "saga.step", step.Name)
		s.logger.Error("compensation step failed",
			zap.String("saga", s.name),
			zap.String("step", step.Name),
			zap.String("store_id", s.storeID),
			zap.NamedError("original", cause),
			zap.Error(err),
		)
		s.metrics.CompensationFailed(cctx, s.name, step.Name)
		s.record(cctx, step.Name, cause, err)
	}

	s.metrics.Compensated(cctx, s.name)
	if len(failures) > 0 {
		return shared.NewCompensationError(cause, failures)
	}
	return cause
}

func (s *Saga) record(ctx context.Context, step string, cause, err error) {
	if s.recorder == nil {
		return
	}
	f := Failure{
		Saga:       s.name,
		Step:       step,
		StoreID:    s.storeID,
		Original:   cause,
		Err:        err,
		OccurredAt: s.clock(),
	}
	if rerr := s.recorder.Record(ctx, f); rerr != nil {
		s.logger.Error("failed to journal compensation failure",
			zap.String("saga", s.name),
			zap.String("step", step),
			zap.Error(rerr),
		)
	}
}

// Settings carries the options shared by every workflow of a repository
type Settings struct {
	Recorder            Recorder
	Metrics             Metrics
	StepTimeout         time.Duration
	CompensationTimeout time.Duration
	Clock               shared.Clock
}

// New starts a saga for storeID configured from s
func (s Settings) New(name string, logger *zap.Logger, storeID string) *Saga {
	opts := []Option{
		WithStoreID(storeID),
		WithMetrics(s.Metrics),
		WithStepTimeout(s.StepTimeout),
		WithCompensationTimeout(s.CompensationTimeout),
		WithClock(s.Clock),
	}
	if s.Recorder != nil {
		opts = append(opts, WithRecorder(s.Recorder))
	}
	return New(name, logger, opts...)
}

// Now returns the current time of the configured clock
func (s Settings) Now() time.Time {
	if s.Clock == nil {
		return shared.SystemClock()
	}
	return s.Clock()
}
