package meshing

import (
	"context"
	"testing"
	"time"

	"voxelgrid/internal/world"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func waitResult(t *testing.T, p *WorkerPool) MeshResult {
	t.Helper()
	select {
	case res := <-p.Results():
		return res
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for mesh result")
		return MeshResult{}
	}
}

func TestWorkerPoolBuildsJob(t *testing.T) {
	p := NewWorkerPool(2, 4, GreedyBuilder)
	defer p.Shutdown()

	g := world.NewGrid()
	g.Set(1, 1, 1, world.BlockStone)
	job := MeshJob{ID: uuid.New(), Coord: world.ChunkCoord{Y: 3}, Grid: g}
	require.True(t, p.SubmitJob(job))

	res := waitResult(t, p)
	require.NoError(t, res.Error)
	assert.Equal(t, job.ID, res.ID)
	assert.Equal(t, job.Coord, res.Coord)
	assert.Equal(t, 6, res.Geometry.QuadCount())
	assert.Equal(t, 2, p.Workers())
}

func TestWorkerPoolRecoversPanics(t *testing.T) {
	boom := func(context.Context, world.BlockSource, world.ChunkCoord, *world.Grid) (world.Geometry, error) {
		panic("bad grid")
	}
	p := NewWorkerPool(1, 1, boom)
	defer p.Shutdown()

	require.True(t, p.SubmitJob(MeshJob{ID: uuid.New(), Grid: world.NewGrid()}))
	res := waitResult(t, p)
	assert.ErrorIs(t, res.Error, ErrBuildPanic)
	assert.Nil(t, res.Geometry)

	// The worker survives and takes the next job.
	require.True(t, p.SubmitJob(MeshJob{ID: uuid.New(), Grid: world.NewGrid()}))
	assert.ErrorIs(t, waitResult(t, p).Error, ErrBuildPanic)
}

func TestWorkerPoolJobTimeout(t *testing.T) {
	stall := func(ctx context.Context, _ world.BlockSource, _ world.ChunkCoord, _ *world.Grid) (world.Geometry, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	p := NewWorkerPool(1, 1, stall)
	defer p.Shutdown()

	require.True(t, p.SubmitJob(MeshJob{ID: uuid.New(), Timeout: 10 * time.Millisecond}))
	res := waitResult(t, p)
	assert.ErrorIs(t, res.Error, context.DeadlineExceeded)
}

func TestWorkerPoolQueueFullAndShutdown(t *testing.T) {
	release := make(chan struct{})
	block := func(ctx context.Context, _ world.BlockSource, _ world.ChunkCoord, _ *world.Grid) (world.Geometry, error) {
		select {
		case <-release:
		case <-ctx.Done():
		}
		return nil, ctx.Err()
	}
	p := NewWorkerPool(1, 1, block)

	require.True(t, p.SubmitJob(MeshJob{ID: uuid.New()}))
	// Wait for the worker to pick up the first job so the queue is empty.
	require.Eventually(t, func() bool { return p.QueueLength() == 0 }, time.Second, time.Millisecond)
	require.True(t, p.SubmitJob(MeshJob{ID: uuid.New()}))
	assert.False(t, p.SubmitJob(MeshJob{ID: uuid.New()}), "queue of one is full")

	close(release)
	p.Shutdown()
	p.Shutdown()
	assert.False(t, p.SubmitJob(MeshJob{ID: uuid.New()}))
}

func TestWorkerPoolCancelSkipsQueuedJob(t *testing.T) {
	release := make(chan struct{})
	block := func(ctx context.Context, _ world.BlockSource, _ world.ChunkCoord, _ *world.Grid) (world.Geometry, error) {
		<-release
		return nil, nil
	}
	p := NewWorkerPool(1, 2, block)
	defer p.Shutdown()

	started := make(chan uuid.UUID, 2)
	first := MeshJob{ID: uuid.New()}
	first.OnStart = func() { started <- first.ID }
	second := MeshJob{ID: uuid.New()}
	second.OnStart = func() { started <- second.ID }

	require.True(t, p.SubmitJob(first))
	assert.Equal(t, first.ID, <-started)
	require.True(t, p.SubmitJob(second))

	assert.False(t, p.Cancel(first.ID), "running jobs cannot be withdrawn")
	assert.True(t, p.Cancel(second.ID))
	assert.False(t, p.Cancel(second.ID))

	close(release)
	assert.Equal(t, first.ID, waitResult(t, p).ID)
	require.Eventually(t, func() bool { return p.QueueLength() == 0 }, time.Second, time.Millisecond)
	select {
	case res := <-p.Results():
		t.Fatalf("unexpected result for %v", res.ID)
	case id := <-started:
		t.Fatalf("withdrawn job %v started", id)
	case <-time.After(20 * time.Millisecond):
	}
}
