// Package scheduler bounds and cancels the outbound requests of a
// synchronisation session. Every network operation of the engine is
// dispatched through a Scheduler so that the concurrency cap and the shared
// cancellation token apply to all of them.
package scheduler

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-logr/logr"
	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"

	"github.com/crmarques/hypersync/faults"
)

const (
	DefaultConcurrency = 5
	tracerName         = "github.com/crmarques/hypersync/scheduler"
)

// ErrClosed is the cause of requests rejected by a closed Scheduler.
var ErrClosed = errors.New("scheduler closed")

// Job describes one scheduled request for tracing and metrics.
type Job struct {
	// Operation is a low-cardinality label such as "fetch" or "delete".
	Operation string
	Target    string
}

type Scheduler struct {
	concurrency int64
	sem         *semaphore.Weighted
	limiter     *rate.Limiter
	tracer      trace.Tracer
	metrics     *metrics
	logger      logr.Logger

	mu     sync.Mutex
	token  context.Context
	cancel context.CancelCauseFunc
	closed bool

	inFlight atomic.Int64
	queued   atomic.Int64
}

type Option func(*Scheduler)

// WithConcurrency caps in-flight requests; values below one keep the default.
func WithConcurrency(limit int) Option {
	return func(s *Scheduler) {
		if limit > 0 {
			s.concurrency = int64(limit)
		}
	}
}

// WithRateLimit additionally paces dispatch to perSecond requests with the
// given burst. A non-positive rate disables pacing.
func WithRateLimit(perSecond float64, burst int) Option {
	return func(s *Scheduler) {
		if perSecond <= 0 {
			s.limiter = nil
			return
		}
		if burst < 1 {
			burst = 1
		}
		s.limiter = rate.NewLimiter(rate.Limit(perSecond), burst)
	}
}

func WithRegisterer(registerer prometheus.Registerer) Option {
	return func(s *Scheduler) {
		s.metrics = newMetrics(registerer)
	}
}

func WithTracerProvider(provider trace.TracerProvider) Option {
	return func(s *Scheduler) {
		if provider != nil {
			s.tracer = provider.Tracer(tracerName)
		}
	}
}

func WithLogger(logger logr.Logger) Option {
	return func(s *Scheduler) {
		s.logger = logger
	}
}

func New(opts ...Option) *Scheduler {
	s := &Scheduler{
		concurrency: DefaultConcurrency,
		tracer:      otel.GetTracerProvider().Tracer(tracerName),
		logger:      logr.Discard(),
	}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt(s)
	}
	if s.metrics == nil {
		s.metrics = newMetrics(nil)
	}
	s.sem = semaphore.NewWeighted(s.concurrency)
	s.token, s.cancel = context.WithCancelCause(context.Background())
	return s
}

func (s *Scheduler) Concurrency() int {
	return int(s.concurrency)
}

// InFlight returns the number of requests currently holding a slot.
func (s *Scheduler) InFlight() int {
	return int(s.inFlight.Load())
}

// Pending returns the number of requests waiting for a slot.
func (s *Scheduler) Pending() int {
	return int(s.queued.Load())
}

// Do waits for a free slot and runs fn. Requests beyond the cap queue
// without bound. fn observes cancellation of ctx and of the shared token.
func (s *Scheduler) Do(ctx context.Context, job Job, fn func(ctx context.Context) error) error {
	token, err := s.currentToken()
	if err != nil {
		s.metrics.observe(job.Operation, outcomeCancelled)
		return faults.NewTypedError(faults.TransportError, "request not dispatched", err)
	}

	runCtx, cancel := context.WithCancelCause(ctx)
	defer cancel(nil)
	stop := context.AfterFunc(token, func() {
		cancel(context.Cause(token))
	})
	defer stop()

	queuedAt := time.Now()
	s.queued.Add(1)
	acquireErr := s.sem.Acquire(runCtx, 1)
	s.queued.Add(-1)
	if acquireErr != nil {
		s.metrics.observe(job.Operation, outcomeCancelled)
		return faults.NewTypedError(faults.TransportError, "request cancelled while queued", context.Cause(runCtx))
	}
	defer s.sem.Release(1)
	if runCtx.Err() != nil {
		// the slot may be granted in the same instant the token is cleared
		s.metrics.observe(job.Operation, outcomeCancelled)
		return faults.NewTypedError(faults.TransportError, "request cancelled while queued", context.Cause(runCtx))
	}

	if s.limiter != nil {
		if err := s.limiter.Wait(runCtx); err != nil {
			s.metrics.observe(job.Operation, outcomeCancelled)
			return faults.NewTypedError(faults.TransportError, "request cancelled while rate limited", err)
		}
	}
	s.metrics.queueWait.Observe(time.Since(queuedAt).Seconds())

	runCtx, span := s.tracer.Start(runCtx, "hypersync."+job.Operation,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(attribute.String("hypersync.target", job.Target)),
	)
	defer span.End()

	s.inFlight.Add(1)
	s.metrics.inFlight.Inc()
	defer func() {
		s.inFlight.Add(-1)
		s.metrics.inFlight.Dec()
	}()

	err = fn(runCtx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		if runCtx.Err() != nil {
			s.metrics.observe(job.Operation, outcomeCancelled)
		} else {
			s.metrics.observe(job.Operation, outcomeError)
		}
		return err
	}
	s.metrics.observe(job.Operation, outcomeOK)
	return nil
}

// Submit runs fn through s and returns its value.
func Submit[T any](ctx context.Context, s *Scheduler, job Job, fn func(ctx context.Context) (T, error)) (T, error) {
	var result T
	err := s.Do(ctx, job, func(ctx context.Context) error {
		value, err := fn(ctx)
		if err != nil {
			return err
		}
		result = value
		return nil
	})
	return result, err
}

// ClearAll aborts every queued and in-flight request. Requests submitted
// afterwards run against a fresh token.
func (s *Scheduler) ClearAll() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.cancel(context.Canceled)
	if s.closed {
		return
	}
	s.token, s.cancel = context.WithCancelCause(context.Background())
	s.logger.V(1).Info("cleared outstanding requests")
}

// Close aborts outstanding requests and rejects new ones.
func (s *Scheduler) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.closed = true
	s.cancel(ErrClosed)
}

func (s *Scheduler) currentToken() (context.Context, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, ErrClosed
	}
	return s.token, nil
}
