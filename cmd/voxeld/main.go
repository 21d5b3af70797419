package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"math"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"voxelgrid/internal/config"
	"voxelgrid/internal/engine"
	"voxelgrid/internal/world"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"
)

// validateFlags rejects viewpoint paths that would put NaN into the camera
// position.
func validateFlags(orbit, speed float64) error {
	if !(orbit > 0) || math.IsInf(orbit, 0) {
		return fmt.Errorf("-orbit must be a positive finite radius, got %v", orbit)
	}
	if math.IsNaN(speed) || math.IsInf(speed, 0) {
		return fmt.Errorf("-speed must be finite, got %v", speed)
	}
	return nil
}

func main() {
	configPath := flag.String("config", "", "path to YAML config (default $"+config.EnvConfigPath+")")
	speed := flag.Float64("speed", 8, "viewpoint speed in blocks per second")
	radius := flag.Float64("orbit", 96, "radius of the viewpoint's circular path in blocks")
	flag.Parse()
	if err := validateFlags(*radius, *speed); err != nil {
		log.Fatalf("voxeld: %v", err)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	eng, err := engine.New(cfg, engine.Options{
		Registerer: reg,
		OnBuildFailed: func(coord world.ChunkCoord, err error) {
			log.Printf("chunk %v gave up: %v", coord, err)
		},
	})
	if err != nil {
		log.Fatalf("start engine: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)

	if cfg.Metrics.Addr != "" {
		srv := &http.Server{
			Addr:              cfg.Metrics.Addr,
			Handler:           promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
			ReadHeaderTimeout: 5 * time.Second,
		}
		g.Go(func() error {
			log.Printf("metrics listening on %s", cfg.Metrics.Addr)
			if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})
		g.Go(func() error {
			<-ctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		})
	}

	start := time.Now()
	viewpoint := func() mgl32.Vec3 {
		// Walk a circle so streaming and eviction both get exercised.
		angle := time.Since(start).Seconds() * *speed / *radius
		return mgl32.Vec3{
			float32(*radius * math.Cos(angle)),
			float32(cfg.WorldGen.SeaLevel),
			float32(*radius * math.Sin(angle)),
		}
	}

	g.Go(func() error {
		if err := eng.Run(ctx, viewpoint); !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	})

	err = g.Wait()
	eng.Close()
	if err != nil {
		log.Printf("voxeld: %v", err)
		os.Exit(1)
	}
	log.Println("voxeld stopped")
}
