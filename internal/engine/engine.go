// Package engine runs the world control loop: streaming, eviction, build
// dispatch and build polling, once per tick on a single goroutine.
package engine

import (
	"context"
	"fmt"
	"log"
	"time"

	"voxelgrid/internal/config"
	"voxelgrid/internal/meshing"
	"voxelgrid/internal/profiling"
	"voxelgrid/internal/scheduler"
	"voxelgrid/internal/world"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/prometheus/client_golang/prometheus"
)

const statusEvery = 100

// Options carries collaborators that are not part of the YAML config.
type Options struct {
	Logger *log.Logger
	// Registerer receives engine and scheduler metrics; nil disables them.
	Registerer prometheus.Registerer
	// Generator overrides the generator named in the config.
	Generator world.TerrainGenerator
	// Builder overrides the mesher named in the config.
	Builder meshing.Builder
	Now     func() time.Time
	// OnBuildFailed is told about chunks whose builds gave up.
	OnBuildFailed func(coord world.ChunkCoord, err error)
}

// TickStats summarizes one control-loop tick.
type TickStats struct {
	Inserted   int
	Evicted    int
	Dispatched int
	Applied    int
	Duration   time.Duration
}

// Engine ties the chunk store, streamer and build scheduler together.
type Engine struct {
	cfg      config.Config
	store    *world.ChunkStore
	settings *config.StreamSettings
	streamer *world.ChunkStreamer
	sched    *scheduler.Scheduler
	logger   *log.Logger
	metrics  *engineMetrics

	failures      map[world.ChunkCoord]error
	onBuildFailed func(world.ChunkCoord, error)
}

// New builds an engine from cfg. The worker pool starts immediately; call
// Close to stop it.
func New(cfg config.Config, opts Options) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	gen := opts.Generator
	if gen == nil {
		var err error
		if gen, err = NewGenerator(cfg.WorldGen); err != nil {
			return nil, err
		}
	}
	build := opts.Builder
	if build == nil {
		var err error
		if build, err = meshing.BuilderFor(cfg.Build.Mesher); err != nil {
			return nil, fmt.Errorf("%w: %w", config.ErrInvalidConfig, err)
		}
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}

	e := &Engine{
		cfg:           cfg,
		store:         world.NewChunkStore(),
		settings:      cfg.StreamSettings(),
		logger:        logger,
		metrics:       newEngineMetrics(opts.Registerer),
		failures:      make(map[world.ChunkCoord]error),
		onBuildFailed: opts.OnBuildFailed,
	}
	e.streamer = world.NewChunkStreamer(e.store, gen, e.settings)
	e.streamer.SetMaxInsertsPerCall(cfg.Streaming.MaxInsertsPerTick)

	var schedMetrics *scheduler.Metrics
	if opts.Registerer != nil {
		schedMetrics = scheduler.NewMetrics(opts.Registerer)
	}
	e.sched = scheduler.New(e.store, scheduler.Options{
		Workers:        cfg.Build.Workers,
		QueueSize:      cfg.Build.QueueSize,
		Builder:        build,
		MaxAttempts:    cfg.Build.MaxAttempts,
		BackoffInitial: cfg.Build.BackoffInitial,
		BackoffMax:     cfg.Build.BackoffMax,
		Timeout:        cfg.Build.Timeout,
		Logger:         logger,
		Metrics:        schedMetrics,
		Now:            opts.Now,
		OnBuildFailed:  e.buildFailed,
	})
	return e, nil
}

// NewGenerator returns the terrain generator named by cfg.
func NewGenerator(cfg config.WorldGenConfig) (world.TerrainGenerator, error) {
	switch cfg.Generator {
	case config.GeneratorChecker:
		return world.CheckerGenerator{}, nil
	case config.GeneratorFlat:
		return world.NewFlatGenerator(cfg.FlatHeight), nil
	case config.GeneratorSimplex:
		return world.NewNoiseGenerator(world.NewSimplexNoise(cfg.Seed), cfg.SeaLevel), nil
	case config.GeneratorPerlin:
		return world.NewNoiseGenerator(world.NewPerlinNoise(cfg.Seed), cfg.SeaLevel), nil
	}
	return nil, fmt.Errorf("%w: worldgen.generator %q", config.ErrInvalidConfig, cfg.Generator)
}

func (e *Engine) buildFailed(coord world.ChunkCoord, err error) {
	e.failures[coord] = err
	if e.onBuildFailed != nil {
		e.onBuildFailed(coord, err)
	}
}

// Tick runs one pass of the control loop around viewpoint.
func (e *Engine) Tick(viewpoint mgl32.Vec3) TickStats {
	profiling.ResetTick()
	start := time.Now()

	var st TickStats
	inserted := e.streamer.StreamAround(viewpoint)
	st.Inserted = len(inserted)
	for _, coord := range inserted {
		delete(e.failures, coord)
	}

	evicted := e.streamer.EvictFarChunks(viewpoint)
	st.Evicted = len(evicted)
	if len(evicted) > 0 {
		e.sched.Forget(evicted...)
		for _, coord := range evicted {
			delete(e.failures, coord)
		}
	}

	e.sched.SetFocus(world.ChunkCoordAt(viewpoint))
	st.Dispatched = e.sched.Dispatch()
	st.Applied = e.sched.Poll()
	st.Duration = time.Since(start)

	e.metrics.observe(st, e.store)
	if slow := e.cfg.Loop.SlowTick; slow > 0 && st.Duration > slow {
		e.logger.Printf("Slow tick: %v. Top tasks: %s", st.Duration, profiling.TopN(5))
	}
	return st
}

// Run ticks every cfg.Loop.TickInterval until ctx is done. viewpoint is
// asked for the camera position at the start of each tick. A status line is
// logged every statusEvery ticks.
func (e *Engine) Run(ctx context.Context, viewpoint func() mgl32.Vec3) error {
	ticker := time.NewTicker(e.cfg.Loop.TickInterval)
	defer ticker.Stop()
	for n := 1; ; n++ {
		e.Tick(viewpoint())
		if n%statusEvery == 0 {
			e.logger.Printf("resident=%d renderable=%d building=%d failed=%d",
				e.store.Len(), len(e.Renderables()), e.sched.Outstanding(), len(e.failures))
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// Renderables returns the geometry of every chunk that has completed at least
// one build. This is what the rendering collaborator draws.
func (e *Engine) Renderables() []world.Geometry {
	var out []world.Geometry
	for _, c := range e.store.Chunks() {
		if !c.Renderable() {
			continue
		}
		if g := c.Geometry(); g != nil {
			out = append(out, g)
		}
	}
	return out
}

// Failures returns the chunks whose builds gave up, with the last error.
func (e *Engine) Failures() map[world.ChunkCoord]error {
	out := make(map[world.ChunkCoord]error, len(e.failures))
	for k, v := range e.failures {
		out[k] = v
	}
	return out
}

// Store exposes the chunk store for reads and block edits from the control
// goroutine.
func (e *Engine) Store() *world.ChunkStore {
	return e.store
}

// Settings returns the runtime streaming settings.
func (e *Engine) Settings() *config.StreamSettings {
	return e.settings
}

// Scheduler returns the build scheduler.
func (e *Engine) Scheduler() *scheduler.Scheduler {
	return e.sched
}

// Close stops the build workers.
func (e *Engine) Close() {
	e.sched.Close()
}
