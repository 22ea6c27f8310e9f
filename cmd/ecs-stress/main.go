package main

import (
	"context"
	"flag"
	"fmt"
	"math/rand"
	"os"
	"runtime"
	"time"

	"github.com/pkg/profile"

	"github.com/plus3/strata/ecs"
)

func main() {
	duration := flag.Duration("duration", 10*time.Second, "The total duration the test should run for.")
	entityCount := flag.Int("entities", 100000, "The initial number of entities to create.")
	churn := flag.Int("churn", 500, "Entities destroyed and respawned every frame.")
	gcPauseMetrics := flag.Bool("gc-pause-metrics", false, "Enable detailed GC pause metrics in the report.")
	profileMode := flag.String("profile", "", "Write a profile to the working directory: cpu or mem.")
	flag.Parse()

	cfg, err := ecs.LoadConfig()
	log := cfg.Logger()
	if err != nil {
		log.Fatal().Err(err).Msg("bad configuration")
	}

	switch *profileMode {
	case "":
	case "cpu":
		defer profile.Start(profile.CPUProfile, profile.ProfilePath(".")).Stop()
	case "mem":
		defer profile.Start(profile.MemProfileAllocs, profile.ProfilePath(".")).Stop()
	default:
		log.Fatal().Str("mode", *profileMode).Msg("unknown profile mode")
	}

	log.Info().Msg("starting storage stress test")

	meta := ecs.NewMetaRegistry()
	meta.SetLogger(log)
	if err := registerStressTypes(meta); err != nil {
		log.Fatal().Err(err).Msg("type registration failed")
	}
	reg := ecs.NewRegistry(meta)
	reg.SetLogger(log)

	rng := rand.New(rand.NewSource(1))
	log.Info().Int("entities", *entityCount).Msg("populating registry")
	live := make([]ecs.EntityID, 0, *entityCount)
	for i := 0; i < *entityCount; i++ {
		id, err := spawnRandomEntity(reg, rng)
		if err != nil {
			log.Fatal().Err(err).Msg("spawn failed")
		}
		live = append(live, id)
	}
	log.Info().Int("archetypes", len(reg.Archetypes())).Msg("population complete")

	driver := ecs.NewDriver(reg, cfg)
	driver.SetLogger(log)
	snapshots := ecs.NewTemporalCache(reg, 8)
	snapshotPeriod := time.Second / time.Duration(cfg.NetworkUpdateHz)

	report := &Report{
		Duration:       *duration,
		Entities:       *entityCount,
		Churn:          *churn,
		GCPauseMetrics: *gcPauseMetrics,
	}
	runtime.ReadMemStats(&report.MemStatsStart)

	log.Info().Dur("duration", *duration).Msg("running simulation")
	ctx, cancel := context.WithTimeout(context.Background(), *duration)
	defer cancel()

	startTime := time.Now()
	lastFrame := startTime
	lastSnapshot := startTime
	var frame uint64

Loop:
	for {
		select {
		case <-ctx.Done():
			break Loop
		default:
		}

		now := time.Now()
		driver.Step(now.Sub(lastFrame).Seconds())
		lastFrame = now
		frame++

		for i := 0; i < *churn && len(live) > 0; i++ {
			victim := rng.Intn(len(live))
			reg.Destroy(live[victim])
			live[victim] = live[len(live)-1]
			live = live[:len(live)-1]
		}
		for i := 0; i < *churn; i++ {
			id, err := spawnRandomEntity(reg, rng)
			if err != nil {
				log.Fatal().Err(err).Msg("respawn failed")
			}
			live = append(live, id)
		}

		if now.Sub(lastSnapshot) >= snapshotPeriod {
			snapshots.Capture(frame)
			lastSnapshot = now
			report.Snapshots++
		}
	}

	report.TotalTime = time.Since(startTime)
	report.FinalEntities = int(reg.EntityCount())
	report.Stats = driver.Stats()
	runtime.ReadMemStats(&report.MemStatsEnd)

	log.Info().
		Uint64("frames", report.Stats.Frames).
		Uint64("fixed_steps", report.Stats.FixedSteps).
		Msg("simulation finished")

	fmt.Println("\n\n--- Stress Test Report ---")
	if err := report.Generate(os.Stdout); err != nil {
		log.Fatal().Err(err).Msg("failed to generate report")
	}
	fmt.Println("--- End of Report ---")
}
