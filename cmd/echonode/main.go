package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Turbo503/EchoNode/internal/collector"
	"github.com/Turbo503/EchoNode/internal/config"
	"github.com/Turbo503/EchoNode/internal/exchange"
	"github.com/Turbo503/EchoNode/internal/feature"
	"github.com/Turbo503/EchoNode/internal/history"
	"github.com/Turbo503/EchoNode/internal/notifier"
	"github.com/Turbo503/EchoNode/internal/position"
	"github.com/Turbo503/EchoNode/internal/recorder"
	"github.com/Turbo503/EchoNode/internal/retrain"
	"github.com/Turbo503/EchoNode/internal/scheduler"
	"github.com/Turbo503/EchoNode/internal/strategy"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)

	mode := "live"
	if len(os.Args) > 1 {
		mode = os.Args[1]
	}

	switch mode {
	case "live":
		runLive()
	case "retrain":
		runRetrain()
	case "gui":
		log.Println("[INFO] the chart UI is not part of this build")
	default:
		log.Fatalf("[FATAL] unknown mode %q (expected live, retrain, or gui)", mode)
	}
}

// app bundles the wired components shared by the live and retrain modes.
type app struct {
	cfg       *config.Config
	client    *exchange.Client
	collector *collector.Collector
	generator *feature.Generator
	artifacts *strategy.ArtifactStore
	active    *strategy.ActiveModel
	recorder  recorder.Recorder
	notifier  notifier.Notifier
}

func buildApp() *app {
	cfgPath := "configs/config.yaml"
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		cfgPath = v
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatalf("[FATAL] load config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("[FATAL] config validation: %v", err)
	}

	client := exchange.NewClient(cfg.Exchange.BaseURL, cfg.APIKey, cfg.APISecret)

	store, err := history.NewStore(cfg.Paths.HistoryDir)
	if err != nil {
		log.Fatalf("[FATAL] init history store: %v", err)
	}
	col := collector.NewCollector(collector.NewBitunixFetcher(client), store,
		cfg.Exchange.Symbol, cfg.Exchange.Timeframe, cfg.Trading.FetchRetries)

	artifacts, err := strategy.NewArtifactStore(cfg.Paths.ArtifactDir)
	if err != nil {
		log.Fatalf("[FATAL] init artifact store: %v", err)
	}
	active := strategy.NewActiveModel(loadPredictor(artifacts))

	var rec recorder.Recorder
	if cfg.Paths.SQLitePath != "" {
		sr, err := recorder.NewSQLiteRecorder(cfg.Paths.SQLitePath)
		if err != nil {
			log.Printf("[WARN] init sqlite recorder failed, using noop: %v", err)
			rec = recorder.NewNoopRecorder()
		} else {
			rec = sr
		}
	} else {
		rec = recorder.NewNoopRecorder()
	}

	var ntf notifier.Notifier
	if cfg.WebhookURL != "" {
		ntf = notifier.NewWebhookNotifier(cfg.WebhookURL)
	} else {
		ntf = notifier.NewNoopNotifier()
	}

	return &app{
		cfg:       cfg,
		client:    client,
		collector: col,
		generator: feature.NewGenerator(cfg.Trading.WindowCandles),
		artifacts: artifacts,
		active:    active,
		recorder:  rec,
		notifier:  ntf,
	}
}

// loadPredictor restores the last trained model, falling back to the
// placeholder when none exists or it fails to load.
func loadPredictor(artifacts *strategy.ArtifactStore) strategy.Predictor {
	artifact, ok, err := artifacts.LoadCurrent()
	if err != nil {
		log.Printf("[WARN] load current artifact: %v, using placeholder", err)
		return strategy.NewPlaceholder()
	}
	if !ok {
		log.Println("[INFO] no trained artifact yet, using placeholder model")
		return strategy.NewPlaceholder()
	}
	linear, err := strategy.NewLinear(artifact)
	if err != nil {
		log.Printf("[WARN] stored artifact unusable: %v, using placeholder", err)
		return strategy.NewPlaceholder()
	}
	log.Printf("[INFO] loaded model v%d trained at %s", artifact.Version, artifact.TrainedAt.Format(time.RFC3339))
	return linear
}

func (a *app) newPipeline(cycleMu *sync.Mutex) *retrain.Pipeline {
	return retrain.NewPipeline(a.collector, a.generator, a.artifacts, a.active, cycleMu, retrain.Config{
		HistoryCandles: a.cfg.Retrain.HistoryCandles,
		WindowSize:     a.cfg.Trading.WindowCandles,
		Horizon:        a.cfg.Retrain.Horizon,
		LabelThreshold: a.cfg.Retrain.LabelThreshold,
		Epochs:         a.cfg.Retrain.Epochs,
	})
}

func runLive() {
	log.Println("[INFO] EchoNode starting in live mode...")
	a := buildApp()
	defer a.recorder.Close()

	unit, err := decimal.NewFromString(a.cfg.Trading.UnitQuantity)
	if err != nil {
		log.Fatalf("[FATAL] parse unit quantity %q: %v", a.cfg.Trading.UnitQuantity, err)
	}
	pos, err := position.NewManager(a.client, a.cfg.Paths.PositionState,
		a.cfg.Exchange.Symbol, unit, a.cfg.Trading.OrderRetries)
	if err != nil {
		log.Fatalf("[FATAL] init position manager: %v", err)
	}

	var cycleMu sync.Mutex
	pipe := a.newPipeline(&cycleMu)

	sched, err := scheduler.New(scheduler.Config{
		CycleCron:   a.cfg.Schedule.CycleCron,
		RetrainCron: a.cfg.Schedule.RetrainCron,
		Poll:        time.Duration(a.cfg.Schedule.PollSeconds) * time.Second,
		WindowSize:  a.cfg.Trading.WindowCandles,
	}, &cycleMu, a.collector, a.generator, a.active, pos, pipe, a.recorder, a.notifier)
	if err != nil {
		log.Fatalf("[FATAL] init scheduler: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if os.Getenv("ECHONODE_RUN_ON_START") == "true" {
		log.Println("[INFO] ECHONODE_RUN_ON_START enabled, executing one decision cycle now")
		sched.RunDecisionCycle(ctx, time.Now())
	}

	log.Printf("[INFO] EchoNode is running symbol=%s timeframe=%s model=%s",
		a.cfg.Exchange.Symbol, a.cfg.Exchange.Timeframe, a.active.Name())
	sched.Run(ctx)
	log.Println("[INFO] EchoNode stopped")
}

func runRetrain() {
	log.Println("[INFO] EchoNode starting one retrain cycle...")
	a := buildApp()
	defer a.recorder.Close()

	var cycleMu sync.Mutex
	pipe := a.newPipeline(&cycleMu)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	result, err := pipe.Run(ctx)
	rec := &recorder.RetrainRecord{}
	if result != nil {
		rec.Outcome = string(result.Outcome)
		rec.Version = result.Version
		rec.Samples = result.Samples
		rec.Duration = result.Duration
	}
	if err != nil {
		rec.Err = err.Error()
		// The previous model stays active; this is a reported outcome, not a
		// process failure.
		log.Printf("[ERROR] retrain rejected: %v", err)
	} else {
		log.Printf("[INFO] retrain complete: model v%d active (%d samples in %v)",
			result.Version, result.Samples, result.Duration)
	}
	if recErr := a.recorder.RecordRetrain(rec); recErr != nil {
		log.Printf("[ERROR] record retrain: %v", recErr)
	}
}
