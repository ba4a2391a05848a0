package cmd

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"

	"github.com/adverant/nexus/diktim-ocr/internal/analysis"
	"github.com/adverant/nexus/diktim-ocr/internal/config"
	"github.com/adverant/nexus/diktim-ocr/internal/lexicon"
	"github.com/adverant/nexus/diktim-ocr/internal/logging"
	"github.com/adverant/nexus/diktim-ocr/internal/metrics"
	"github.com/adverant/nexus/diktim-ocr/internal/ocr"
	"github.com/adverant/nexus/diktim-ocr/internal/ocr/tesseract"
	"github.com/adverant/nexus/diktim-ocr/internal/preprocess"
	"github.com/adverant/nexus/diktim-ocr/internal/refine"
	"github.com/adverant/nexus/diktim-ocr/internal/storage"
)

// app holds the wired pipeline and the resources to release on exit.
type app struct {
	service *analysis.Service
	lexicon *lexicon.Cache
	redis   *redis.Client
	// corpusDB is nil when the corpus comes from a lexicon file.
	corpusDB *storage.SQLCorpus
	closers  []func() error
	logger   *logging.Logger
}

func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			a.logger.Warn("Error releasing resource", "error", err)
		}
	}
}

// newRedisClient parses cfg.RedisURL; it returns nil when Redis is not configured.
func newRedisClient(cfg *config.Config) (*redis.Client, error) {
	if cfg.RedisURL == "" {
		return nil, nil
	}
	opt, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}
	return redis.NewClient(opt), nil
}

// buildApp wires the analysis pipeline from cfg.
func buildApp(cfg *config.Config) (*app, error) {
	a := &app{logger: logging.NewLogger("Startup")}

	rdb, err := newRedisClient(cfg)
	if err != nil {
		return nil, err
	}
	if rdb != nil {
		a.redis = rdb
		a.closers = append(a.closers, rdb.Close)
	}

	source, err := buildCorpus(cfg, a)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.lexicon = lexicon.NewCache(source, cfg.LexiconTTL)

	var (
		primary   ocr.Engine
		secondary ocr.Engine
		detector  preprocess.RotationDetector
		enhancer  preprocess.Enhancer
		refiner   analysis.Refiner
	)
	if cfg.OCREnabled {
		tess := tesseract.New(cfg.TesseractLanguage)
		primary = tess
		if cfg.DeskewEnabled {
			detector = tess
		}
	}
	if cfg.VisionOCRURL != "" {
		secondary = ocr.NewVisionEngine(cfg.VisionOCRURL)
	}
	if cfg.EnhanceEnabled {
		enhancer = preprocess.EnhancedPipeline{}
	}

	model, err := refine.NewModel(refine.ProviderConfig{
		Provider: cfg.LLMProvider,
		Model:    cfg.LLMModel,
		APIKey:   cfg.LLMAPIKey,
		BaseURL:  cfg.LLMBaseURL,
	})
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("failed to create LLM client: %w", err)
	}
	if model != nil {
		refiner = refine.NewLLMRefiner(model, cfg.LLMModel, refine.Options{
			Temperature: cfg.LLMTemperature,
			MaxTokens:   cfg.LLMMaxTokens,
			Timeout:     cfg.RefineTimeout,
		})
	}

	extractor := ocr.NewExtractor(primary, secondary, cfg.TesseractLanguage)
	a.service = analysis.NewService(
		preprocess.NewNormalizer(detector, enhancer),
		extractor,
		refiner,
		a.lexicon,
		analysis.WithLowConfidenceThreshold(cfg.LowConfidenceThreshold),
	)

	a.logger.Info("Pipeline ready",
		"ocr", extractor.Available(),
		"vision", secondary != nil,
		"deskew", detector != nil,
		"enhancer", cfg.EnhanceEnabled,
		"llmProvider", cfg.LLMProvider,
		"llmModel", cfg.LLMModel)
	return a, nil
}

func buildCorpus(cfg *config.Config, a *app) (lexicon.Source, error) {
	if cfg.DatabaseURL == "" {
		corpus, err := storage.NewFileCorpus(cfg.LexiconFile)
		if err != nil {
			return nil, err
		}
		a.logger.Info("Corpus from lexicon file", "path", cfg.LexiconFile)
		return corpus, nil
	}

	corpus, err := storage.NewSQLCorpus(cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, corpus.Close)
	a.corpusDB = corpus
	if err := metrics.RegisterCorpusPool(prometheus.DefaultRegisterer, corpus.GetStats); err != nil {
		a.logger.Warn("Failed to register corpus pool metrics", "error", err)
	}
	a.logger.Info("Corpus from database", "driver", corpus.Driver())

	if a.redis != nil {
		a.logger.Info("Sharing corpus through Redis", "ttl", cfg.CorpusCacheTTL)
		return storage.NewRedisCorpusCache(a.redis, corpus, "", cfg.CorpusCacheTTL), nil
	}
	return corpus, nil
}
