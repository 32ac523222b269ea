package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/joseph-ayodele/liquidation-ocr/internal/common"
	"github.com/joseph-ayodele/liquidation-ocr/internal/ensemble"
	"github.com/joseph-ayodele/liquidation-ocr/internal/export"
	"github.com/joseph-ayodele/liquidation-ocr/internal/extract"
	"github.com/joseph-ayodele/liquidation-ocr/internal/metrics"
	"github.com/joseph-ayodele/liquidation-ocr/internal/ocr"
	"github.com/joseph-ayodele/liquidation-ocr/internal/ocr/tesseract"
	"github.com/joseph-ayodele/liquidation-ocr/internal/ocr/vision"
	"github.com/joseph-ayodele/liquidation-ocr/internal/pipeline"
	"github.com/joseph-ayodele/liquidation-ocr/internal/repository"
	"github.com/joseph-ayodele/liquidation-ocr/internal/source"
	"github.com/joseph-ayodele/liquidation-ocr/internal/variant"
)

// app holds the wired components shared by the commands.
type app struct {
	cfg       *common.Config
	logger    *slog.Logger
	registry  *prometheus.Registry
	metrics   *metrics.Metrics
	selector  *ensemble.Selector
	extractor *extract.Extractor
	exporter  *export.Service
	repo      repository.DocumentRepository // nil without storage
	processor *pipeline.Processor

	closers []func()
}

func newApp(ctx context.Context, cfg *common.Config, logger *slog.Logger, withStorage bool) (*app, error) {
	a := &app{cfg: cfg, logger: logger, registry: prometheus.NewRegistry()}
	a.registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	a.metrics = metrics.New(a.registry)

	runner := ocr.NewExecRunner()
	engine, err := buildEngine(cfg, runner, logger)
	if err != nil {
		return nil, err
	}
	logger.Info("ocr engine ready", "engine", engine.Name(), "languages", cfg.OCR.Languages)

	invoker := ocr.NewInvoker(engine, ocr.InvokerConfig{Languages: cfg.OCR.Languages, Timeout: cfg.OCR.Timeout}, logger, a.metrics)
	a.selector = ensemble.NewSelector(invoker, ensemble.Config{
		Grid: variant.Grid{
			Scales:            cfg.Ensemble.Scales,
			Rotations:         cfg.Ensemble.Rotations,
			Sensitivities:     cfg.Ensemble.Sensitivities,
			DilateSensitivity: cfg.Ensemble.DilateSensitivity,
			ContrastFactor:    cfg.Ensemble.ContrastFactor,
		},
		StopConfidence:   cfg.Ensemble.StopConfidence,
		FallbackOriginal: cfg.Ensemble.FallbackOriginal,
	}, logger, a.metrics)
	a.extractor = extract.NewExtractor(logger)
	a.exporter = export.NewService(cfg.Export.Currency, logger)

	loader := source.NewLoader(source.Config{
		Pdftoppm:         cfg.OCR.Pdftoppm,
		DPI:              cfg.OCR.DPI,
		MaxPages:         cfg.OCR.MaxPages,
		HeicConverter:    cfg.OCR.HeicConverter,
		ArtifactCacheDir: cfg.OCR.ArtifactCacheDir,
	}, runner, logger)

	if withStorage {
		repo, closeRepo, err := openRepository(ctx, cfg.Database, logger)
		if err != nil {
			return nil, err
		}
		if repo != nil {
			a.repo = repo
			a.closers = append(a.closers, closeRepo)
		}
	}

	a.processor = pipeline.NewProcessor(loader, a.selector, a.extractor, a.repo, logger, a.metrics)
	return a, nil
}

func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}

// buildEngine maps OCR_ENGINE onto an engine. "chain" tries Vision first when
// an API key is configured, then the tesseract library, then the CLI.
func buildEngine(cfg *common.Config, runner ocr.Runner, logger *slog.Logger) (ocr.Engine, error) {
	visionEngine := func() ocr.Engine {
		return vision.NewClient(vision.Config{
			APIKey:            cfg.Vision.APIKey,
			Endpoint:          cfg.Vision.Endpoint,
			RequestsPerSecond: cfg.Vision.RequestsPerSecond,
			Burst:             cfg.Vision.Burst,
			HTTPTimeout:       cfg.Vision.HTTPTimeout,
		}, nil, logger)
	}
	libEngine := func() ocr.Engine {
		return tesseract.New(tesseract.Config{PSM: cfg.OCR.PSM, TessdataDir: cfg.OCR.TessdataDir})
	}
	cliEngine := func() ocr.Engine {
		return ocr.NewCLIEngine(ocr.CLIConfig{
			Tesseract:   cfg.OCR.Tesseract,
			PSM:         cfg.OCR.PSM,
			TessdataDir: cfg.OCR.TessdataDir,
		}, runner, logger)
	}

	switch cfg.OCR.Engine {
	case "vision":
		return visionEngine(), nil
	case "tesseract":
		return libEngine(), nil
	case "cli":
		return cliEngine(), nil
	case "chain":
		var engines []ocr.Engine
		if cfg.Vision.APIKey != "" {
			engines = append(engines, visionEngine())
		}
		engines = append(engines, libEngine(), cliEngine())
		return ocr.NewChain(logger, engines...), nil
	default:
		return nil, fmt.Errorf("%w: unknown OCR engine %q", common.ErrInvalidInput, cfg.OCR.Engine)
	}
}

// openRepository returns a nil repository for the "none" driver.
func openRepository(ctx context.Context, cfg common.DatabaseConfig, logger *slog.Logger) (repository.DocumentRepository, func(), error) {
	switch cfg.Driver {
	case "postgres":
		pool, err := repository.Open(ctx, repository.Config{
			DSN:              cfg.DSN,
			MaxConns:         cfg.MaxConns,
			MinConns:         cfg.MinConns,
			MaxConnLifetime:  cfg.MaxConnLifetime,
			MaxConnIdleTime:  cfg.MaxConnIdleTime,
			DialTimeout:      cfg.DialTimeout,
			StatementTimeout: cfg.StatementTimeout,
		}, logger)
		if err != nil {
			return nil, nil, fmt.Errorf("open postgres: %w", err)
		}
		if err := repository.Migrate(ctx, pool, logger); err != nil {
			repository.Close(pool, logger)
			return nil, nil, fmt.Errorf("migrate postgres: %w", err)
		}
		return repository.NewPostgresDocumentRepository(pool, logger), func() { repository.Close(pool, logger) }, nil
	case "sqlite":
		db, err := repository.OpenSQLite(ctx, cfg.SQLitePath, logger)
		if err != nil {
			return nil, nil, err
		}
		closeDB := func() {
			if err := db.Close(); err != nil {
				logger.Error("failed to close sqlite", "error", err)
			}
		}
		return repository.NewSQLiteDocumentRepository(db, logger), closeDB, nil
	default:
		return nil, func() {}, nil
	}
}
