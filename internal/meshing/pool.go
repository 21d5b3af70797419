package meshing

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"voxelgrid/internal/world"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// ErrBuildPanic wraps a panic recovered from a builder.
var ErrBuildPanic = errors.New("mesh build panicked")

// MeshJob represents a meshing job request
type MeshJob struct {
	ID     uuid.UUID
	Coord  world.ChunkCoord
	Grid   *world.Grid
	Source world.BlockSource
	// Timeout bounds the build; zero means no limit.
	Timeout time.Duration
	// OnStart is called on the worker goroutine right before the build runs.
	OnStart func()
}

// MeshResult contains the result of a meshing operation
type MeshResult struct {
	ID       uuid.UUID
	Coord    world.ChunkCoord
	Geometry world.Geometry
	Duration time.Duration
	Error    error
}

// WorkerPool manages goroutines for mesh generation
type WorkerPool struct {
	jobQueue chan MeshJob
	results  chan MeshResult
	workers  int
	build    Builder
	tracer   trace.Tracer

	// queued holds the ids of submitted jobs no worker has taken yet.
	mu     sync.Mutex
	queued map[uuid.UUID]struct{}

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	once   sync.Once
}

// NewWorkerPool creates a new mesh worker pool running build on each job.
func NewWorkerPool(workers, queueSize int, build Builder) *WorkerPool {
	ctx, cancel := context.WithCancel(context.Background())
	workers = max(workers, 1)
	queueSize = max(queueSize, 1)

	pool := &WorkerPool{
		jobQueue: make(chan MeshJob, queueSize),
		// Room for every queued and running job, so workers rarely block on
		// a slow poller.
		results: make(chan MeshResult, queueSize+workers),
		workers: workers,
		build:   build,
		tracer:  otel.Tracer("voxelgrid/meshing"),
		queued:  make(map[uuid.UUID]struct{}),
		ctx:     ctx,
		cancel:  cancel,
	}

	// Start worker goroutines
	for i := range workers {
		pool.wg.Add(1)
		go pool.worker(i)
	}

	return pool
}

// SubmitJob submits a mesh generation job to the pool
// Returns true if job was submitted successfully, false if queue is full
func (p *WorkerPool) SubmitJob(job MeshJob) bool {
	if p.ctx.Err() != nil {
		return false
	}
	p.mu.Lock()
	p.queued[job.ID] = struct{}{}
	p.mu.Unlock()
	select {
	case p.jobQueue <- job:
		return true
	default:
		p.mu.Lock()
		delete(p.queued, job.ID)
		p.mu.Unlock()
		return false // Queue is full
	}
}

// Cancel withdraws a job that is still waiting in the queue; a worker that
// later dequeues it drops it without producing a result. Returns false when
// the job already started or is unknown.
func (p *WorkerPool) Cancel(id uuid.UUID) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, ok := p.queued[id]; !ok {
		return false
	}
	delete(p.queued, id)
	return true
}

// take claims a dequeued job for a worker. False means it was cancelled.
func (p *WorkerPool) take(id uuid.UUID) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, ok := p.queued[id]; !ok {
		return false
	}
	delete(p.queued, id)
	return true
}

// Results delivers finished jobs in completion order.
func (p *WorkerPool) Results() <-chan MeshResult {
	return p.results
}

// worker is the worker goroutine that processes mesh jobs
func (p *WorkerPool) worker(id int) {
	defer p.wg.Done()

	for {
		select {
		case job := <-p.jobQueue:
			if !p.take(job.ID) {
				continue
			}
			if job.OnStart != nil {
				job.OnStart()
			}
			result := p.run(id, job)

			// Send result back
			select {
			case p.results <- result:
			case <-p.ctx.Done():
				return
			}

		case <-p.ctx.Done():
			return
		}
	}
}

func (p *WorkerPool) run(id int, job MeshJob) (result MeshResult) {
	ctx := p.ctx
	if job.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, job.Timeout)
		defer cancel()
	}
	ctx, span := p.tracer.Start(ctx, "meshing.Build", trace.WithAttributes(
		attribute.String("job.id", job.ID.String()),
		attribute.Int("worker", id),
		attribute.Int("chunk.x", job.Coord.X),
		attribute.Int("chunk.y", job.Coord.Y),
		attribute.Int("chunk.z", job.Coord.Z),
	))
	start := time.Now()
	result = MeshResult{ID: job.ID, Coord: job.Coord}

	defer func() {
		if r := recover(); r != nil {
			result.Geometry = nil
			result.Error = fmt.Errorf("%w: chunk %v: %v", ErrBuildPanic, job.Coord, r)
		}
		result.Duration = time.Since(start)
		if result.Error != nil {
			span.RecordError(result.Error)
			span.SetStatus(codes.Error, result.Error.Error())
		} else if result.Geometry != nil {
			span.SetAttributes(attribute.Int("mesh.quads", result.Geometry.QuadCount()))
		}
		span.End()
	}()

	geom, err := p.build(ctx, job.Source, job.Coord, job.Grid)
	if err != nil {
		result.Error = fmt.Errorf("build chunk %v: %w", job.Coord, err)
		return result
	}
	result.Geometry = geom
	return result
}

// Shutdown stops the workers and waits for them to exit. Jobs still queued
// are dropped. Safe to call more than once.
func (p *WorkerPool) Shutdown() {
	p.once.Do(func() {
		p.cancel()
		p.wg.Wait()
	})
}

// QueueLength returns the current number of jobs in the queue
func (p *WorkerPool) QueueLength() int {
	return len(p.jobQueue)
}

// Workers returns the number of worker goroutines.
func (p *WorkerPool) Workers() int {
	return p.workers
}
