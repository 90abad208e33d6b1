package task

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/neoglyph/rippley/internal/concurrent"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"
)

var (
	// ErrQueueFull is returned when enqueueing a Task into a full queue.
	ErrQueueFull = errors.New("task queue full")

	// ErrNotFound is returned when looking up an unknown Task.
	ErrNotFound = errors.New("task not found")
)

var taskOutcomes = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "rippley_task_outcomes_total",
	Help: "Number of finished tasks by status.",
}, []string{"status"})

// A Handler processes the payload of a Task and returns its result.
type Handler func(ctx context.Context, payload map[string]any) (any, error)

// A Callback is called once when a Task reaches a terminal status. When the
// Task failed or was cancelled, err is non-nil and result is nil.
type Callback func(result any, err error)

// A Runner processes Tasks with a fixed pool of workers.
//
// Use NewRunner to create a Runner, register Handlers for the Task types it
// should process and call Run to start the workers.
type Runner struct {
	workers int
	logger  *zap.Logger

	queue chan uuid.UUID

	mux       sync.RWMutex
	handlers  map[string]Handler
	tasks     map[uuid.UUID]Task
	callbacks map[uuid.UUID]Callback
	running   int
	completed int
}

// NewRunner returns a Runner with the given worker count and queue size. A nil
// logger disables logging.
func NewRunner(workers, queueSize int, logger *zap.Logger) *Runner {
	if workers < 1 {
		workers = 1
	}
	if queueSize < 1 {
		queueSize = 1
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Runner{
		workers:   workers,
		logger:    logger,
		queue:     make(chan uuid.UUID, queueSize),
		handlers:  make(map[string]Handler),
		tasks:     make(map[uuid.UUID]Task),
		callbacks: make(map[uuid.UUID]Callback),
	}
}

// RegisterHandler registers the Handler for the given Task type, replacing a
// previously registered Handler for that type.
func (r *Runner) RegisterHandler(typ string, h Handler) {
	r.mux.Lock()
	defer r.mux.Unlock()
	r.handlers[typ] = h
}

// Enqueue creates a Task of the given type and puts it into the queue. A nil
// cb is allowed. Enqueue fails with ErrQueueFull when the queue is full.
func (r *Runner) Enqueue(typ string, payload map[string]any, cb Callback) (Task, error) {
	t := New(typ, payload)

	r.mux.Lock()
	r.tasks[t.ID] = t
	if cb != nil {
		r.callbacks[t.ID] = cb
	}
	r.mux.Unlock()

	select {
	case r.queue <- t.ID:
	default:
		r.mux.Lock()
		delete(r.tasks, t.ID)
		delete(r.callbacks, t.ID)
		r.mux.Unlock()
		return Task{}, fmt.Errorf("enqueue %q task: %w", typ, ErrQueueFull)
	}

	r.logger.Debug("task enqueued", zap.String("id", t.ID.String()), zap.String("type", typ))

	return t, nil
}

// Run processes queued Tasks until ctx is canceled, then marks the remaining
// queued Tasks as cancelled and returns.
func (r *Runner) Run(ctx context.Context) error {
	var wg sync.WaitGroup
	wg.Add(r.workers)

	for i := 0; i < r.workers; i++ {
		go func() {
			defer wg.Done()
			r.work(ctx)
		}()
	}

	<-concurrent.Wait(&wg)

	r.drain()

	return ctx.Err()
}

func (r *Runner) work(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case id := <-r.queue:
			r.process(ctx, id)
		}
	}
}

func (r *Runner) drain() {
	for {
		select {
		case id := <-r.queue:
			r.finish(id, nil, context.Canceled)
		default:
			return
		}
	}
}

func (r *Runner) process(ctx context.Context, id uuid.UUID) {
	r.mux.Lock()
	t, ok := r.tasks[id]
	if !ok {
		r.mux.Unlock()
		return
	}
	now := time.Now()
	t.Status = Running
	t.StartedAt = &now
	r.tasks[id] = t
	h, registered := r.handlers[t.Type]
	r.running++
	r.mux.Unlock()

	if !registered {
		r.logger.Warn("no handler for task type", zap.String("type", t.Type))
		r.finish(id, map[string]any{
			"message": fmt.Sprintf("No handler for task type: %s", t.Type),
		}, nil)
		return
	}

	result, err := h(ctx, t.Payload)
	r.finish(id, result, err)
}

func (r *Runner) finish(id uuid.UUID, result any, err error) {
	r.mux.Lock()
	t, ok := r.tasks[id]
	if !ok {
		r.mux.Unlock()
		return
	}

	now := time.Now()
	t.CompletedAt = &now
	if t.Status == Running {
		r.running--
	}

	switch {
	case errors.Is(err, context.Canceled):
		t.Status = Cancelled
		t.Error = err.Error()
	case err != nil:
		t.Status = Failed
		t.Error = err.Error()
	default:
		t.Status = Completed
		t.Result = result
		r.completed++
	}

	r.tasks[id] = t
	cb := r.callbacks[id]
	delete(r.callbacks, id)
	r.mux.Unlock()

	taskOutcomes.WithLabelValues(string(t.Status)).Inc()

	if err != nil {
		r.logger.Warn("task finished with error",
			zap.String("id", id.String()),
			zap.String("type", t.Type),
			zap.String("status", string(t.Status)),
			zap.Error(err),
		)
	} else {
		r.logger.Debug("task finished",
			zap.String("id", id.String()),
			zap.String("type", t.Type),
		)
	}

	if cb != nil {
		if t.Status == Completed {
			cb(t.Result, nil)
		} else {
			cb(nil, err)
		}
	}
}

// Get returns the Task with the given UUID, or false.
func (r *Runner) Get(id uuid.UUID) (Task, bool) {
	r.mux.RLock()
	defer r.mux.RUnlock()
	t, ok := r.tasks[id]
	return t, ok
}

// Status returns the Status of the Task with the given UUID.
func (r *Runner) Status(id uuid.UUID) (Status, error) {
	t, ok := r.Get(id)
	if !ok {
		return "", ErrNotFound
	}
	return t.Status, nil
}

// Result returns the result of the Task with the given UUID. Result fails if
// the Task is not in a terminal status yet.
func (r *Runner) Result(id uuid.UUID) (any, error) {
	t, ok := r.Get(id)
	if !ok {
		return nil, ErrNotFound
	}
	if !t.Status.Terminal() {
		return nil, fmt.Errorf("task %q is %s", id, t.Status)
	}
	if t.Error != "" {
		return nil, errors.New(t.Error)
	}
	return t.Result, nil
}

// Stats are queue statistics of a Runner.
type Stats struct {
	Queued    int `json:"queued"`
	Running   int `json:"running"`
	Completed int `json:"completed"`
}

// Stats returns the current queue statistics.
func (r *Runner) Stats() Stats {
	r.mux.RLock()
	defer r.mux.RUnlock()
	return Stats{
		Queued:    len(r.queue),
		Running:   r.running,
		Completed: r.completed,
	}
}
