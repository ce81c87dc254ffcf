package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"cabinmix/internal/api"
	"cabinmix/pkg/audio"
	"cabinmix/pkg/config"
	"cabinmix/pkg/core"
	"cabinmix/pkg/db"
	"cabinmix/pkg/logging"
	"cabinmix/pkg/probe"
	"cabinmix/pkg/sim"
	"cabinmix/pkg/sim/mocksim"
	"cabinmix/pkg/store"
	"cabinmix/pkg/version"
	"cabinmix/pkg/zone"

	"github.com/gopxl/beep/v2"
)

const (
	defaultConfigPath = "configs/cabinmix.yaml"
	persistenceEvery  = 30 * time.Second
	offlinePumpEvery  = 50 * time.Millisecond
)

var (
	configPath = flag.String("config", defaultConfigPath, "Path to the config file")
	initConfig = flag.Bool("init-config", false, "Generate default config file and exit")
)

func main() {
	flag.Parse()

	// Handle --init-config flag
	if *initConfig {
		if err := config.GenerateDefault(*configPath); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to generate config: %v\n", err)
			os.Exit(1)
		}
		fmt.Println("Config file generated:", *configPath)
		return
	}

	if err := run(context.Background(), *configPath); err != nil {
		fmt.Fprintf(os.Stderr, "CRITICAL ERROR: Application failed: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, configPath string) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	appCfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	cleanupLogs, err := logging.Init(&appCfg.Log)
	if err != nil {
		return fmt.Errorf("failed to initialize logging: %w", err)
	}
	defer cleanupLogs()

	slog.Info("cabinmix Started", "version", version.Version)

	dbConn, st, err := initDB(appCfg)
	if err != nil {
		return err
	}
	defer dbConn.Close()

	prov := config.NewProvider(appCfg, st)
	reg := initRegistry(ctx, appCfg, st)

	engine := initEngine(ctx, appCfg)
	defer engine.Close()

	mixer, err := initMixer(ctx, prov, engine)
	if err != nil {
		return err
	}
	closeAmbience := attachAmbience(appCfg, engine.SampleRate(), mixer)
	defer closeAmbience()

	results := probe.Run(ctx, []probe.Probe{
		probe.Database(dbConn),
		probe.AudioEngine(engine),
		probe.Vehicle(reg, prov.ActiveVehicle(ctx)),
	})
	if err := probe.AnalyzeResults(results); err != nil {
		return fmt.Errorf("startup checks failed: %w", err)
	}

	simClient := initializeSimClient(ctx, prov, reg, st)
	defer simClient.Close()

	telH := api.NewTelemetryHandler()
	sched := setupScheduler(prov, simClient, st, mixer, reg, telH)
	go sched.Start(ctx)

	return runServer(ctx, appCfg, prov, mixer, reg, st, simClient, telH)
}

func initDB(appCfg *config.Config) (*db.DB, store.Store, error) {
	dbConn, err := db.Init(appCfg.DB.Path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	return dbConn, store.NewSQLiteStore(dbConn), nil
}

// initRegistry layers the vehicle file and then the stored custom vehicles
// over the built-in geometries.
func initRegistry(ctx context.Context, cfg *config.Config, st store.VehicleStore) *zone.Registry {
	reg := zone.NewRegistry()

	if path := cfg.Vehicles.File; path != "" {
		if _, err := os.Stat(path); err == nil {
			n, err := reg.LoadFile(path)
			if err != nil {
				slog.Warn("Failed to load vehicle file", "path", path, "error", err)
			} else {
				slog.Info("Loaded vehicle geometries", "path", path, "count", n)
			}
		}
	}

	recs, err := st.ListVehicles(ctx)
	if err != nil {
		slog.Warn("Failed to restore custom vehicles", "error", err)
		return reg
	}
	for _, rec := range recs {
		if err := reg.Register(rec.ID, rec.Config); err != nil {
			slog.Warn("Skipping stored vehicle", "vehicle", rec.ID, "error", err)
		}
	}
	return reg
}

func initEngine(ctx context.Context, cfg *config.Config) audio.Engine {
	rate := beep.SampleRate(cfg.Audio.SampleRate)
	if cfg.Audio.Offline {
		eng := audio.NewOfflineEngine(rate)
		go pumpOffline(ctx, eng)
		slog.Info("Audio engine offline", "sample_rate", cfg.Audio.SampleRate)
		return eng
	}

	eng := audio.NewSpeakerEngine(rate, time.Duration(cfg.Audio.Buffer))
	if err := eng.Resume(); err != nil {
		slog.Warn("Audio device not available, updates are queued until wake", "error", err)
	}
	return eng
}

// pumpOffline advances a headless engine in real time so ramps progress
// exactly as they would on a device.
func pumpOffline(ctx context.Context, eng *audio.OfflineEngine) {
	ticker := time.NewTicker(offlinePumpEvery)
	defer ticker.Stop()
	last := time.Now()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			eng.RenderDuration(now.Sub(last))
			last = now
		}
	}
}

func initMixer(ctx context.Context, prov config.Provider, eng audio.Engine) (*audio.Mixer, error) {
	cfg := prov.AppConfig()

	opts := audio.DefaultOptions()
	opts.FadeDuration = time.Duration(cfg.Audio.FadeDuration)
	opts.MasterVolume = cfg.Audio.MasterVolume
	opts.TransitionBuffer = prov.TransitionBuffer(ctx)
	opts.Delay = audio.DelaySettings{
		Time:     time.Duration(cfg.Effects.DelayTime),
		Feedback: cfg.Effects.Feedback,
		Mix:      cfg.Effects.DelayMix,
	}
	if cfg.Effects.DampCutoff > 0 {
		opts.DampCutoff = cfg.Effects.DampCutoff
	}

	mixer, err := audio.NewMixer(eng, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to create mixer: %w", err)
	}
	if err := mixer.Initialize(ctx); err != nil {
		return nil, fmt.Errorf("failed to initialize mixer: %w", err)
	}
	if err := mixer.Restore(storedSettings(ctx, prov)); err != nil {
		slog.Warn("Ignoring invalid stored mixer settings", "error", err)
	}
	return mixer, nil
}

// storedSettings collects the persisted mixer settings, falling back to the
// config file for anything never saved.
func storedSettings(ctx context.Context, prov config.Provider) audio.Settings {
	names := make([]string, len(zone.Names))
	for i, z := range zone.Names {
		names[i] = string(z)
	}
	vols := make(map[zone.Name]float64)
	for name, v := range prov.ZoneVolumes(ctx, names) {
		vols[zone.Name(name)] = v
	}
	return audio.Settings{
		MasterVolume: prov.MasterVolume(ctx),
		FadeDuration: prov.FadeDuration(ctx),
		BaseVolumes:  vols,
		Effects: audio.EffectsState{
			Reverb:      prov.Reverb(ctx),
			Delay:       prov.Delay(ctx),
			Compression: prov.Compression(ctx),
		},
	}
}

// attachAmbience connects the configured loops to their zone buses. The
// returned func closes every opened file.
func attachAmbience(cfg *config.Config, rate beep.SampleRate, m *audio.Mixer) func() {
	var closers []func() error
	for name, path := range cfg.Audio.Ambience {
		z, err := zone.ParseName(name)
		if err != nil {
			slog.Warn("Failed to load ambience", "zone", name, "error", err)
			continue
		}
		s, closer, err := audio.LoopFile(path, rate)
		if err != nil {
			slog.Warn("Failed to load ambience", "zone", name, "path", path, "error", err)
			continue
		}
		closers = append(closers, closer)
		if err := m.Attach(z, s); err != nil {
			slog.Warn("Failed to load ambience", "zone", name, "error", err)
			continue
		}
		slog.Info("Ambience attached", "zone", z, "path", path)
	}
	return func() {
		for _, c := range closers {
			_ = c()
		}
	}
}

func initializeSimClient(ctx context.Context, prov config.Provider, reg *zone.Registry, st store.StateStore) sim.Client {
	cfg := prov.AppConfig()
	vehicle := prov.ActiveVehicle(ctx)

	switch prov.SimProvider(ctx) {
	case "static":
		pos := float64(cfg.Sim.Mock.StartPos)
		if last, ok := core.LoadLastPosition(ctx, st); ok {
			pos = last.Position
			if last.Vehicle != "" {
				vehicle = last.Vehicle
			}
			slog.Info("Restored last position", "position", pos, "vehicle", vehicle)
		}
		return sim.NewStaticClient(pos, vehicle)
	default:
		if cfg.Sim.Mock.Vehicle != "" {
			vehicle = cfg.Sim.Mock.Vehicle
		}
		return mocksim.NewClient(mocksim.Config{
			Vehicle:  vehicle,
			Geometry: reg.Lookup(vehicle),
			Speed:    cfg.Sim.Mock.Speed,
			Dwell:    time.Duration(cfg.Sim.Mock.Dwell),
			StartPos: float64(cfg.Sim.Mock.StartPos),
		})
	}
}

func setupScheduler(prov config.Provider, simClient sim.Client, st store.StateStore, m *audio.Mixer, reg *zone.Registry, telH *api.TelemetryHandler) *core.Scheduler {
	sched := core.NewScheduler(prov, simClient, telH)

	positionJob := core.NewPositionJob(prov, m, reg)
	sched.AddJob(positionJob)
	sched.AddResettable(positionJob)

	persist := core.NewPositionPersistence(st)
	sched.AddJob(core.NewTimeJob("PositionPersistence", persistenceEvery, persist.Save))

	return sched
}

func runServer(ctx context.Context, cfg *config.Config, prov config.Provider, m *audio.Mixer, reg *zone.Registry, st store.Store, simClient sim.Client, telH *api.TelemetryHandler) error {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(quit)
	shutdownFunc := func() { quit <- syscall.SIGTERM }

	srv := api.NewServer(cfg.Server.Address,
		telH,
		api.NewMixerHandler(m, reg, prov, st, simClient),
		api.NewVehicleHandler(reg, st, prov),
		api.NewStreamHandler(m),
		shutdownFunc,
	)

	srv.Handler = loggingMiddleware(srv.Handler)
	return runServerLifecycle(ctx, srv, cfg.Server.MaxConnections, quit)
}

func runServerLifecycle(ctx context.Context, srv *http.Server, maxConns int, quit chan os.Signal) error {
	slog.Info("Starting server", "addr", srv.Addr)
	serverErrors := make(chan error, 1)
	go func() {
		if err := api.ListenAndServe(srv, maxConns); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErrors <- err
		}
	}()
	select {
	case <-quit:
		slog.Info("Shutting down server...")
	case <-ctx.Done():
		slog.Info("Context cancelled, shutting down...")
	case err := <-serverErrors:
		return fmt.Errorf("server failed: %w", err)
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		logger := logging.RequestLogger
		if logger == nil {
			logger = slog.Default()
		}
		logger.Info("Request Processed", "method", r.Method, "path", r.URL.Path, "duration", time.Since(start))
	})
}
