// Package service provides the core business service that implements
// the dependencies required by the HTTP API.
package service

import (
	"context"
	"runtime"
	"sync"
	"time"

	eventqueue "github.com/masterofmagic999/mugic/internal/adapters/mq/queue"
	workerpool "github.com/masterofmagic999/mugic/internal/adapters/mq/worker"
	"github.com/masterofmagic999/mugic/internal/adapters/repository"
	"github.com/masterofmagic999/mugic/internal/domain/alignment"
	"github.com/masterofmagic999/mugic/internal/domain/dedupe"
	"github.com/masterofmagic999/mugic/internal/domain/feedback"
	"github.com/masterofmagic999/mugic/internal/domain/model"
	"github.com/masterofmagic999/mugic/internal/domain/recommend"
	"github.com/masterofmagic999/mugic/pkg/logger"
	"github.com/masterofmagic999/mugic/pkg/metrics"
)

// Service evaluates performances, persists them and runs background jobs.
type Service struct {
	mu sync.RWMutex

	// Core components
	store     repository.Store
	engine    *feedback.Engine
	generator recommend.TextGenerator
	deduper   dedupe.Deduper
	queue     eventqueue.Queue
	pool      *workerpool.Pool

	// Jobs by id, and their submission order for eviction.
	jobsMu   sync.RWMutex
	jobs     map[string]*model.EvaluationJob
	jobOrder []string

	// Configuration
	workerCount     int
	queueSize       int
	dedupeSize      int
	maxJobs         int
	window          float64
	disableDynamics bool
	llmTimeout      time.Duration
	now             func() time.Time

	// State
	started   bool
	startedAt time.Time

	logger logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithStore sets the piece and session store. The default is in memory.
func WithStore(st repository.Store) Option {
	return func(s *Service) {
		if st != nil {
			s.store = st
		}
	}
}

// WithGenerator sets the generative recommendation backend. Nil keeps
// template-only recommendations.
func WithGenerator(g recommend.TextGenerator) Option {
	return func(s *Service) {
		s.generator = g
	}
}

// WithLLMTimeout bounds each generative backend call.
func WithLLMTimeout(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.llmTimeout = d
		}
	}
}

// WithWorkerCount sets the number of evaluation workers.
func WithWorkerCount(count int) Option {
	return func(s *Service) {
		if count > 0 {
			s.workerCount = count
		}
	}
}

// WithQueueSize sets the capacity of the job queue.
func WithQueueSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.queueSize = size
		}
	}
}

// WithDedupeSize sets how many idempotency keys are remembered.
func WithDedupeSize(size int) Option {
	return func(s *Service) {
		if size >= 0 {
			s.dedupeSize = size
		}
	}
}

// WithMaxJobs caps how many jobs are kept for status lookups. Finished jobs
// are forgotten oldest first.
func WithMaxJobs(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.maxJobs = n
		}
	}
}

// WithAlignmentWindow sets the onset tolerance, in seconds, for pairing notes.
func WithAlignmentWindow(seconds float64) Option {
	return func(s *Service) {
		if seconds > 0 {
			s.window = seconds
		}
	}
}

// WithDynamicsDisabled drops the dynamics dimension from every evaluation.
func WithDynamicsDisabled(disabled bool) Option {
	return func(s *Service) {
		s.disableDynamics = disabled
	}
}

// WithClock replaces the clock used to stamp jobs.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// New constructs a new Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		jobs:        make(map[string]*model.EvaluationJob),
		workerCount: runtime.NumCPU(),
		queueSize:   1024,
		dedupeSize:  50_000,
		maxJobs:     10_000,
		window:      alignment.DefaultWindow,
		llmTimeout:  recommend.DefaultTimeout,
		now:         time.Now,
	}

	for _, opt := range opts {
		opt(s)
	}

	if s.logger == nil {
		s.logger = logger.Get().Named("service")
	}
	if s.store == nil {
		s.store = repository.NewMemoryStore()
	}

	recOpts := []recommend.Option{recommend.WithLogger(s.logger)}
	if s.generator != nil {
		recOpts = append(recOpts, recommend.WithSource(
			recommend.NewGenerativeSource(s.generator, recommend.WithTimeout(s.llmTimeout)),
		))
	}
	s.engine = feedback.NewEngine(feedback.WithRecommender(recommend.NewEngine(recOpts...)))

	return s
}

// Start creates the queue and starts the worker pool. Workers outlive
// ctx: queued jobs keep running until Stop drains them.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}

	s.logger.Info(ctx, "starting evaluation service...")

	s.deduper = dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(s.dedupeSize))
	s.queue = eventqueue.NewInMemoryQueue(eventqueue.WithCapacity(s.queueSize))
	s.pool = workerpool.NewPool(s.workerCount, s.queue, s)
	s.pool.Start(context.WithoutCancel(ctx))

	s.started = true
	s.startedAt = s.now()
	s.logger.Info(ctx, "evaluation service started",
		logger.Int("workers", s.workerCount),
		logger.Int("queueSize", s.queueSize),
		logger.Int("dedupeSize", s.dedupeSize),
		logger.Bool("generative", s.generator != nil),
	)
	return nil
}

// Stop drains the job queue and closes the store.
func (s *Service) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return nil
	}

	s.logger.Info(ctx, "stopping evaluation service...")

	var firstErr error
	if s.pool != nil {
		if err := s.pool.Shutdown(ctx); err != nil {
			firstErr = err
		}
	}
	if err := s.store.Close(); err != nil && firstErr == nil {
		firstErr = err
	}

	s.started = false
	s.logger.Info(ctx, "evaluation service stopped")
	return firstErr
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats(ctx context.Context) map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := map[string]interface{}{
		"started":     s.started,
		"workerCount": s.workerCount,
		"queueSize":   s.queueSize,
		"dedupeSize":  s.dedupeSize,
		"generative":  s.generator != nil,
	}
	if s.generator != nil {
		stats["generator"] = s.generator.Name()
	}

	if s.started {
		queueLen := s.queue.Len(ctx)
		stats["queueLength"] = queueLen
		stats["activeWorkers"] = s.pool.Active()
		stats["idempotencyKeys"] = s.deduper.Size()
		stats["uptimeSeconds"] = int(s.now().Sub(s.startedAt).Seconds())

		metrics.UpdateQueueSize(queueLen)
		metrics.UpdateWorkerCount(s.pool.Size())
	}

	s.jobsMu.RLock()
	stats["jobs"] = len(s.jobs)
	s.jobsMu.RUnlock()

	if pieces, err := s.store.ListPieces(ctx); err == nil {
		stats["totalPieces"] = len(pieces)
		metrics.UpdateTotalPieces(len(pieces))
	}

	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	metrics.UpdateSystemMemoryUsage(m.Alloc)
	metrics.UpdateSystemGoroutineCount(runtime.NumGoroutine())

	return stats
}

func (s *Service) running() (eventqueue.Queue, dedupe.Deduper, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.queue, s.deduper, s.started
}
