// Package container provides dependency injection for the findex
// application. It centralizes the creation and wiring of all application
// dependencies, making them explicit and testable.
package container

import (
	"context"
	"fmt"
	"time"

	"findex/internal/aggregate"
	"findex/internal/classify"
	"findex/internal/config"
	"findex/internal/conflict"
	"findex/internal/export"
	"findex/internal/extract"
	"findex/internal/extract/csvextract"
	"findex/internal/extract/excelextract"
	"findex/internal/extract/pdfextract"
	"findex/internal/job"
	"findex/internal/logging"
	"findex/internal/models"
	"findex/internal/pipeline"
	"findex/internal/store"
	"findex/internal/validate"
)

// Container holds all application dependencies and provides methods to
// access them. It is immutable after creation; fields are private and only
// reachable through getters.
type Container struct {
	logger        logging.Logger
	config        *config.Config
	dataStore     *store.DataPointStore
	categoryStore *store.CategoryStore
	gemini        *classify.GeminiBackend
	analyzer      *classify.DocumentAnalyzer
	classifier    pipeline.Classifier
	keyword       *classify.KeywordClassifier
	registry      *extract.Registry
	detector      *conflict.Detector
	resolver      *conflict.Resolver
	validator     *validate.Validator
	engine        *aggregate.Engine
	exporter      *export.Exporter
	tracker       *job.Tracker
	runner        *job.Runner
	pipeline      *pipeline.Pipeline
}

// NewContainer creates and wires all application dependencies.
func NewContainer(ctx context.Context, cfg *config.Config) (*Container, error) {
	if cfg == nil {
		return nil, fmt.Errorf("configuration cannot be nil")
	}

	// Logger first, everything else logs through it.
	logger := logging.NewLogrusAdapter(cfg.Log.Level, cfg.Log.Format)
	logging.SetDefault(logger)

	dataStore, err := store.NewDataPointStore(cfg.DB.Path, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to open data point store: %w", err)
	}

	categoryStore := store.NewCategoryStore(cfg.Categories.File, "", logger)
	keyword := classify.NewKeywordClassifier(categoryStore, cfg.Classification.KeywordCeiling, logger)

	var gemini *classify.GeminiBackend
	var analyzer *classify.DocumentAnalyzer
	var classifier pipeline.Classifier = keyword
	if cfg.AI.Enabled && cfg.AI.APIKey != "" {
		gemini, err = classify.NewGeminiBackend(ctx, cfg.AI.APIKey, cfg.AI.Model, logger)
		if err != nil {
			_ = dataStore.Close()
			return nil, fmt.Errorf("failed to create AI backend: %w", err)
		}
		ai := classify.NewAIClassifier(gemini, keyword.Categories(), logger)
		classifier = classify.NewFallbackClassifier(ai, keyword,
			time.Duration(cfg.AI.TimeoutSeconds)*time.Second, logger)
		analyzer = classify.NewDocumentAnalyzer(gemini, logger)
		logger.Info("AI classification enabled")
	} else {
		logger.Info("AI classification disabled, using keyword matching")
	}

	registry := extract.NewRegistry(logger)
	registry.Register(models.FileTypeExcel, excelextract.New(logger))
	registry.Register(models.FileTypeCSV, csvextract.New(delimiterRune(cfg.CSV.Delimiter), logger))
	pdf := pdfextract.New(pdfextract.Config{
		Pdftotext: cfg.OCR.Pdftotext,
		Pdftoppm:  cfg.OCR.Pdftoppm,
		Tesseract: cfg.OCR.Tesseract,
		Language:  cfg.OCR.Language,
		DPI:       cfg.OCR.DPI,
		MaxPages:  cfg.OCR.MaxPages,
	}, nil, logger)
	registry.Register(models.FileTypePDF, pdf)
	registry.Register(models.FileTypeImage, pdf)

	detector := conflict.NewDetector(dataStore, conflict.Config{
		AmountTolerance:      cfg.Conflict.AmountTolerance,
		DuplicateWindowDays:  cfg.Conflict.DuplicateWindowDays,
		SimilarityWindowDays: cfg.Conflict.SimilarityWindowDays,
	}, logger)

	pipe := pipeline.New(registry, classifier, dataStore, detector, logger)
	tracker := job.NewTracker()

	c := &Container{
		logger:        logger,
		config:        cfg,
		dataStore:     dataStore,
		categoryStore: categoryStore,
		gemini:        gemini,
		analyzer:      analyzer,
		classifier:    classifier,
		keyword:       keyword,
		registry:      registry,
		detector:      detector,
		resolver:      conflict.NewResolver(dataStore, logger),
		validator:     validate.NewValidator(dataStore, logger),
		engine:        aggregate.NewEngine(dataStore, logger),
		exporter:      export.NewExporter(delimiterRune(cfg.CSV.Delimiter), logger),
		tracker:       tracker,
		runner:        job.NewRunner(pipe, tracker, cfg.Batch.Workers, logger),
		pipeline:      pipe,
	}

	logger.Info("Container initialized successfully",
		logging.Field{Key: "ai_enabled", Value: gemini != nil},
		logging.Field{Key: "db", Value: cfg.DB.Path})
	return c, nil
}

// GetLogger returns the container's logger instance.
func (c *Container) GetLogger() logging.Logger {
	return c.logger
}

// GetConfig returns the container's configuration instance.
func (c *Container) GetConfig() *config.Config {
	return c.config
}

// GetDataPointStore returns the data point store.
func (c *Container) GetDataPointStore() *store.DataPointStore {
	return c.dataStore
}

// GetCategoryStore returns the category store.
func (c *Container) GetCategoryStore() *store.CategoryStore {
	return c.categoryStore
}

// GetRegistry returns the extractor registry.
func (c *Container) GetRegistry() *extract.Registry {
	return c.registry
}

// GetAnalyzer returns the AI document analyzer, or nil when AI is disabled.
func (c *Container) GetAnalyzer() *classify.DocumentAnalyzer {
	return c.analyzer
}

// GetPipeline returns the extraction pipeline.
func (c *Container) GetPipeline() *pipeline.Pipeline {
	return c.pipeline
}

// GetRunner returns the batch runner.
func (c *Container) GetRunner() *job.Runner {
	return c.runner
}

// GetTracker returns the job tracker.
func (c *Container) GetTracker() *job.Tracker {
	return c.tracker
}

// GetDetector returns the conflict detector.
func (c *Container) GetDetector() *conflict.Detector {
	return c.detector
}

// GetResolver returns the conflict resolver.
func (c *Container) GetResolver() *conflict.Resolver {
	return c.resolver
}

// GetValidator returns the validator.
func (c *Container) GetValidator() *validate.Validator {
	return c.validator
}

// GetEngine returns the aggregation engine.
func (c *Container) GetEngine() *aggregate.Engine {
	return c.engine
}

// GetExporter returns the CSV exporter.
func (c *Container) GetExporter() *export.Exporter {
	return c.exporter
}

// Close flushes learned vendor mappings and releases held resources.
func (c *Container) Close() error {
	var firstErr error
	if err := c.keyword.SaveMappings(); err != nil {
		c.logger.WithError(err).Warn("Failed to save vendor mappings")
		firstErr = err
	}
	if c.gemini != nil {
		if err := c.gemini.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if err := c.dataStore.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	c.logger.Info("Container closed")
	return firstErr
}

func delimiterRune(s string) rune {
	if s == "" {
		return ','
	}
	return []rune(s)[0]
}
