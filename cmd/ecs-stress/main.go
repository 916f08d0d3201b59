package main

import (
	"context"
	"flag"
	"fmt"
	"math/rand"
	"os"
	"runtime"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/plus3/reactecs/ecs"
	"github.com/plus3/reactecs/internal/config"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfgPath := flag.String("config", "", "Path to a TOML configuration file.")
	duration := flag.Duration("duration", 0, "The total duration the test should run for.")
	entityCount := flag.Int("entities", -1, "The initial number of entities to create.")
	gcPauseMetrics := flag.Bool("gc-pause-metrics", false, "Enable detailed GC pause metrics in the report.")
	flag.Parse()

	cfg := config.Default()
	if *cfgPath != "" {
		var err error
		if cfg, err = config.Load(*cfgPath); err != nil {
			return err
		}
	}
	if *duration > 0 {
		cfg.Stress.Duration = *duration
	}
	if *entityCount >= 0 {
		cfg.Stress.Entities = *entityCount
	}

	log, err := newLogger(cfg.Logging)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer log.Sync()

	opts := []ecs.Option{ecs.WithName(cfg.Stress.Name), ecs.WithLogger(log)}
	if cfg.Stress.DebugInfo != "" {
		info, err := ecs.LoadDebugInfo(cfg.Stress.DebugInfo)
		if err != nil {
			return err
		}
		opts = append(opts, ecs.WithDebugInfo(info))
	}
	manager, err := ecs.NewManager(cfg.Stress.Components, opts...)
	if err != nil {
		return fmt.Errorf("manager: %w", err)
	}
	if err := registerComponents(manager); err != nil {
		return fmt.Errorf("register components: %w", err)
	}

	rng := rand.New(rand.NewSource(cfg.Stress.Seed))
	decay := &DecaySystem{}
	churn := NewChurnSystem(rng, cfg.Stress.Churn)
	events := &EventCounter{}

	systems := ecs.NewSystems(manager)
	for _, s := range []any{&MovementSystem{}, decay, churn, events} {
		if err := systems.Register(s); err != nil {
			return err
		}
	}
	systems.SetManager()
	if err := systems.Init(); err != nil {
		return err
	}

	log.Info("populating", zap.Int("entities", cfg.Stress.Entities))
	for i := 0; i < cfg.Stress.Entities; i++ {
		spawn(manager, rng)
	}

	report := &Report{
		Duration:       cfg.Stress.Duration,
		Entities:       cfg.Stress.Entities,
		Components:     cfg.Stress.Components,
		Churn:          cfg.Stress.Churn,
		GCPauseMetrics: *gcPauseMetrics,
		UpdateTime: Stats{
			Samples: make([]time.Duration, 0),
		},
	}

	runtime.ReadMemStats(&report.MemStatsStart)

	log.Info("running", zap.Duration("duration", cfg.Stress.Duration), zap.Duration("tick", cfg.Stress.Tick))
	ctx, cancel := context.WithTimeout(context.Background(), cfg.Stress.Duration)
	defer cancel()

	startTime := time.Now()
	lastFrameTime := time.Now()
	var ticker <-chan time.Time
	if cfg.Stress.Tick > 0 {
		t := time.NewTicker(cfg.Stress.Tick)
		defer t.Stop()
		ticker = t.C
	}

Loop:
	for {
		if ticker != nil {
			select {
			case <-ctx.Done():
				break Loop
			case <-ticker:
			}
		} else if ctx.Err() != nil {
			break Loop
		}

		deltaTime := time.Since(lastFrameTime)
		lastFrameTime = time.Now()

		updateStart := time.Now()
		if err := systems.Update(deltaTime.Seconds()); err != nil {
			report.CommandErrors++
		}
		report.UpdateTime.Samples = append(report.UpdateTime.Samples, time.Since(updateStart))
		report.TotalUpdates++
	}

	report.TotalTime = time.Since(startTime)
	report.UpdateTime.Finalize()
	runtime.ReadMemStats(&report.MemStatsEnd)
	report.Systems = systems.Stats()
	report.Manager = manager.Stats()
	report.Spawned = churn.Spawned
	report.Decayed = decay.Destroyed
	report.GroupAdds = events.Added
	report.GroupRemoves = events.Removed
	report.GroupUpdates = events.Updated

	log.Info("simulation finished", zap.Int64("updates", report.TotalUpdates))

	if err := report.Generate(os.Stdout); err != nil {
		return fmt.Errorf("generate report: %w", err)
	}

	systems.Free()
	if err := manager.DestroyAllEntities(); err != nil {
		return fmt.Errorf("teardown: %w", err)
	}
	log.Info("stress test complete", zap.Int("pooled", manager.PooledEntityCount()))
	return nil
}

func newLogger(cfg config.LoggingConfig) (*zap.Logger, error) {
	var level zapcore.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		level = zapcore.InfoLevel
	}

	var zapCfg zap.Config
	if cfg.Format == "json" {
		zapCfg = zap.NewProductionConfig()
	} else {
		zapCfg = zap.NewDevelopmentConfig()
		zapCfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		zapCfg.EncoderConfig.EncodeTime = zapcore.TimeEncoderOfLayout("15:04:05")
		zapCfg.EncoderConfig.ConsoleSeparator = "  "
		zapCfg.DisableCaller = true
		zapCfg.DisableStacktrace = true
	}
	zapCfg.Level = zap.NewAtomicLevelAt(level)

	return zapCfg.Build()
}
