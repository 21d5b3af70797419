// Package scheduler moves dirty chunks through mesh builds on a worker pool
// and applies the finished geometry back on the control goroutine.
//
// Dispatch and Poll must be called from the goroutine that owns the
// ChunkStore. Workers only ever see a neighborhood snapshot and the chunk's
// published grid.
package scheduler

import (
	"cmp"
	"errors"
	"fmt"
	"log"
	"slices"
	"sync/atomic"
	"time"

	"voxelgrid/internal/meshing"
	"voxelgrid/internal/profiling"
	"voxelgrid/internal/world"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
)

// ErrBuildTimeout is reported for a task that did not complete within
// Options.Timeout of a worker starting it.
var ErrBuildTimeout = errors.New("mesh build timed out")

// Options configures a Scheduler.
type Options struct {
	Workers   int
	QueueSize int
	Builder   meshing.Builder

	// MaxAttempts is how many times one chunk's build may fail before the
	// chunk is marked Failed.
	MaxAttempts    int
	BackoffInitial time.Duration
	BackoffMax     time.Duration
	// BackoffJitter is the randomization factor in [0,1]; 0 gives exact
	// doubling delays.
	BackoffJitter float64
	Timeout       time.Duration

	Logger  *log.Logger
	Metrics *Metrics
	// Now is the clock used for retry and timeout decisions.
	Now func() time.Time
	// OnBuildFailed is called on the control goroutine when a chunk runs out
	// of attempts.
	OnBuildFailed func(coord world.ChunkCoord, err error)
}

func (o *Options) withDefaults() {
	if o.Builder == nil {
		o.Builder = meshing.GreedyBuilder
	}
	if o.MaxAttempts < 1 {
		o.MaxAttempts = 3
	}
	if o.BackoffInitial <= 0 {
		o.BackoffInitial = 50 * time.Millisecond
	}
	if o.BackoffMax < o.BackoffInitial {
		o.BackoffMax = max(2*time.Second, o.BackoffInitial)
	}
	if o.Timeout <= 0 {
		o.Timeout = 10 * time.Second
	}
	if o.Logger == nil {
		o.Logger = log.Default()
	}
	if o.Now == nil {
		o.Now = time.Now
	}
}

// task is an outstanding build for one chunk.
type task struct {
	id      uuid.UUID
	chunk   *world.Chunk
	version uint64
	// started is the worker start time in unix nanoseconds, 0 while queued.
	started atomic.Int64
}

func (t *task) startedAt() (time.Time, bool) {
	ns := t.started.Load()
	if ns == 0 {
		return time.Time{}, false
	}
	return time.Unix(0, ns), true
}

// retryState tracks failed attempts of one chunk until it succeeds or gives up.
type retryState struct {
	attempts  int
	backoff   *backoff.ExponentialBackOff
	notBefore time.Time
}

// Scheduler owns the build task registry.
type Scheduler struct {
	store *world.ChunkStore
	pool  *meshing.WorkerPool
	opts  Options

	tasks   map[world.ChunkCoord]*task
	retries map[world.ChunkCoord]*retryState
	focus   world.ChunkCoord
}

// New starts the worker pool and returns a scheduler over store.
func New(store *world.ChunkStore, opts Options) *Scheduler {
	opts.withDefaults()
	return &Scheduler{
		store:   store,
		pool:    meshing.NewWorkerPool(opts.Workers, opts.QueueSize, opts.Builder),
		opts:    opts,
		tasks:   make(map[world.ChunkCoord]*task),
		retries: make(map[world.ChunkCoord]*retryState),
	}
}

// SetFocus sets the partition Dispatch builds outward from, normally the
// viewpoint's.
func (s *Scheduler) SetFocus(coord world.ChunkCoord) {
	s.focus = coord
}

// Dispatch hands every Dirty chunk without an outstanding build to the
// worker pool, nearest to the focus first, and moves it to Building. Chunks
// waiting out a retry delay are skipped. Stops early when the job queue is
// full; the rest stay Dirty for the next pass. Returns the number of builds
// dispatched.
func (s *Scheduler) Dispatch() int {
	defer profiling.Track("scheduler.Dispatch")()
	now := s.opts.Now()

	var ready []*world.Chunk
	for _, c := range s.store.Chunks() {
		if !c.IsDirty() {
			continue
		}
		if _, busy := s.tasks[c.Coord]; busy {
			continue
		}
		if r := s.retries[c.Coord]; r != nil && now.Before(r.notBefore) {
			continue
		}
		ready = append(ready, c)
	}
	slices.SortFunc(ready, func(a, b *world.Chunk) int {
		if d := cmp.Compare(a.Coord.Distance(s.focus), b.Coord.Distance(s.focus)); d != 0 {
			return d
		}
		return a.Coord.Compare(b.Coord)
	})

	n := 0
	for _, c := range ready {
		t := &task{id: uuid.New(), chunk: c, version: c.Version()}
		job := meshing.MeshJob{
			ID:      t.id,
			Coord:   c.Coord,
			Grid:    c.Grid(),
			Source:  s.store.Neighborhood(c.Coord),
			Timeout: s.opts.Timeout,
			OnStart: func() { t.started.Store(s.opts.Now().UnixNano()) },
		}
		if !s.pool.SubmitJob(job) {
			break
		}
		s.tasks[c.Coord] = t
		c.SetState(world.StateBuilding)
		s.opts.Metrics.onDispatch()
		n++
	}
	return n
}

// Poll applies every build that has completed since the last call and fails
// tasks that exceeded the timeout. It never blocks. Returns the number of
// builds applied.
func (s *Scheduler) Poll() int {
	defer profiling.Track("scheduler.Poll")()
	applied := 0
	for drained := false; !drained; {
		select {
		case res := <-s.pool.Results():
			if s.apply(res) {
				applied++
			}
		default:
			drained = true
		}
	}
	s.expire()
	return applied
}

func (s *Scheduler) apply(res meshing.MeshResult) bool {
	t, ok := s.tasks[res.Coord]
	if !ok || t.id != res.ID {
		s.opts.Metrics.onStale()
		return false
	}
	delete(s.tasks, res.Coord)
	s.opts.Metrics.onSettled()

	if s.store.Chunk(res.Coord) != t.chunk {
		// Evicted or replaced by a fresh insert while building.
		delete(s.retries, res.Coord)
		s.opts.Metrics.onStale()
		return false
	}

	if res.Error != nil {
		s.fail(t, res.Error)
		return false
	}

	c := t.chunk
	c.SetGeometry(res.Geometry)
	delete(s.retries, res.Coord)
	if c.Version() == t.version {
		c.SetState(world.StateRenderable)
	}
	quads := 0
	if res.Geometry != nil {
		quads = res.Geometry.QuadCount()
	}
	s.opts.Metrics.onComplete(res.Duration.Seconds(), quads)
	return true
}

// expire fails tasks whose build has been running for longer than the
// timeout. Time spent waiting in the queue does not count. A result that
// arrives afterwards no longer matches the registry and is dropped.
func (s *Scheduler) expire() {
	now := s.opts.Now()
	for coord, t := range s.tasks {
		started, ok := t.startedAt()
		if !ok || now.Sub(started) <= s.opts.Timeout {
			continue
		}
		delete(s.tasks, coord)
		s.opts.Metrics.onSettled()
		s.opts.Metrics.onTimeout()
		if s.store.Chunk(coord) != t.chunk {
			delete(s.retries, coord)
			continue
		}
		s.fail(t, fmt.Errorf("chunk %v after %v: %w", coord, s.opts.Timeout, ErrBuildTimeout))
	}
}

// fail records a failed attempt. The chunk goes back to Dirty behind a
// backoff delay, or to Failed once MaxAttempts is reached.
func (s *Scheduler) fail(t *task, err error) {
	c := t.chunk
	r := s.retries[c.Coord]
	if r == nil {
		r = &retryState{backoff: s.newBackoff()}
		s.retries[c.Coord] = r
	}
	r.attempts++

	if r.attempts >= s.opts.MaxAttempts {
		delete(s.retries, c.Coord)
		c.SetState(world.StateFailed)
		s.opts.Metrics.onFailed()
		s.opts.Logger.Printf("mesh build for chunk %v failed after %d attempts: %v", c.Coord, r.attempts, err)
		if s.opts.OnBuildFailed != nil {
			s.opts.OnBuildFailed(c.Coord, err)
		}
		return
	}

	delay := r.backoff.NextBackOff()
	r.notBefore = s.opts.Now().Add(delay)
	c.SetState(world.StateDirty)
	s.opts.Metrics.onRetry()
	s.opts.Logger.Printf("mesh build for chunk %v failed (attempt %d/%d), retrying in %v: %v",
		c.Coord, r.attempts, s.opts.MaxAttempts, delay, err)
}

func (s *Scheduler) newBackoff() *backoff.ExponentialBackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = s.opts.BackoffInitial
	b.MaxInterval = s.opts.BackoffMax
	b.Multiplier = 2
	b.RandomizationFactor = s.opts.BackoffJitter
	b.MaxElapsedTime = 0
	b.Reset()
	return b
}

// Forget drops any outstanding task and retry state for coords, typically
// after they were evicted. Queued jobs are withdrawn from the pool; late
// results of started ones are discarded.
func (s *Scheduler) Forget(coords ...world.ChunkCoord) {
	for _, coord := range coords {
		if t, ok := s.tasks[coord]; ok {
			s.pool.Cancel(t.id)
			delete(s.tasks, coord)
			s.opts.Metrics.onSettled()
		}
		delete(s.retries, coord)
	}
}

// Outstanding returns the number of dispatched builds not yet observed.
func (s *Scheduler) Outstanding() int {
	return len(s.tasks)
}

// Building reports whether coord has an outstanding build.
func (s *Scheduler) Building(coord world.ChunkCoord) bool {
	_, ok := s.tasks[coord]
	return ok
}

// Attempts returns how many failed attempts coord has accumulated since its
// last success.
func (s *Scheduler) Attempts(coord world.ChunkCoord) int {
	if r := s.retries[coord]; r != nil {
		return r.attempts
	}
	return 0
}

// QueueLength returns the number of jobs waiting for a worker.
func (s *Scheduler) QueueLength() int {
	return s.pool.QueueLength()
}

// Close stops the worker pool. Outstanding tasks are abandoned.
func (s *Scheduler) Close() {
	s.pool.Shutdown()
}
