package tasks

import (
	"context"
	"log/slog"
	"sync"
)

// Task is one asynchronous resolution step.
type Task struct {
	Name string
	Run  func(ctx context.Context)
}

// Runner executes fire-and-forget chains off the caller's goroutine. Tasks
// are queued to a fixed set of workers; when the queue is full a task runs on
// its own goroutine rather than being dropped. Independent tasks are not
// serialised against each other.
type Runner struct {
	queue   chan Task
	workers int
	log     *slog.Logger

	// mu orders queue sends against the workers' final drain and guards
	// the in-flight count.
	mu       sync.Mutex
	idle     *sync.Cond
	inflight int
	ctx      context.Context
	cancel   context.CancelFunc
	started  bool
	running  sync.WaitGroup
}

func NewRunner(queueMaxSize, workers int, log *slog.Logger) *Runner {
	if queueMaxSize <= 0 {
		queueMaxSize = 64
	}
	if workers <= 0 {
		workers = 4
	}
	if log == nil {
		log = slog.Default()
	}
	r := &Runner{
		queue:   make(chan Task, queueMaxSize),
		workers: workers,
		log:     log.With("component", "tasks"),
		ctx:     context.Background(),
	}
	r.idle = sync.NewCond(&r.mu)
	return r
}

// Start launches the workers. They exit when ctx is cancelled or Shutdown
// is called, after draining the queue; tasks observe the same context for
// their network calls.
func (r *Runner) Start(ctx context.Context) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.started {
		return
	}
	r.started = true
	r.ctx, r.cancel = context.WithCancel(ctx)
	r.running.Add(r.workers)
	for i := 0; i < r.workers; i++ {
		go r.work(r.ctx)
	}
}

func (r *Runner) work(ctx context.Context) {
	defer r.running.Done()
	for {
		select {
		case <-ctx.Done():
			for _, t := range r.drain() {
				r.run(ctx, t)
			}
			return
		case t := <-r.queue:
			r.run(ctx, t)
		}
	}
}

// drain empties the queue under mu. Go checks the context under the same
// lock, so nothing can be queued after the last worker has drained.
func (r *Runner) drain() []Task {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Task
	for {
		select {
		case t := <-r.queue:
			out = append(out, t)
		default:
			return out
		}
	}
}

// Go schedules fn. It never blocks on the task itself.
func (r *Runner) Go(name string, fn func(ctx context.Context)) {
	t := Task{Name: name, Run: fn}

	r.mu.Lock()
	r.inflight++
	ctx := r.ctx
	if r.started && ctx.Err() == nil {
		select {
		case r.queue <- t:
			r.mu.Unlock()
			return
		default:
			r.log.Debug("queue full, running task on its own goroutine", "task", name)
		}
	}
	r.mu.Unlock()
	go r.run(ctx, t)
}

func (r *Runner) run(ctx context.Context, t Task) {
	defer r.done()
	defer func() {
		if rec := recover(); rec != nil {
			r.log.Error("task panicked", "task", t.Name, "panic", rec)
		}
	}()
	t.Run(ctx)
}

func (r *Runner) done() {
	r.mu.Lock()
	r.inflight--
	if r.inflight == 0 {
		r.idle.Broadcast()
	}
	r.mu.Unlock()
}

// Wait blocks until every scheduled task, including tasks scheduled by
// other tasks, has finished.
func (r *Runner) Wait() {
	r.mu.Lock()
	for r.inflight > 0 {
		r.idle.Wait()
	}
	r.mu.Unlock()
}

// Shutdown waits for pending tasks, then stops the workers. When ctx ends
// first, the task context is cancelled and ctx.Err() is returned. Tasks
// scheduled afterwards still run, each on its own goroutine.
func (r *Runner) Shutdown(ctx context.Context) error {
	err := waitCtx(ctx, r.Wait)

	r.mu.Lock()
	cancel := r.cancel
	r.mu.Unlock()
	if cancel == nil {
		return err
	}
	cancel()
	if werr := waitCtx(ctx, r.running.Wait); err == nil {
		err = werr
	}
	return err
}

func waitCtx(ctx context.Context, wait func()) error {
	done := make(chan struct{})
	go func() {
		wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
