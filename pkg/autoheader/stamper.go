package autoheader

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/stackvity/autoheader/pkg/autoheader/cache"
	"github.com/stackvity/autoheader/pkg/autoheader/encoding"
	"github.com/stackvity/autoheader/pkg/autoheader/language"
)

// ProcessorFactory defines a function type for creating FileProcessors.
type ProcessorFactory func(
	opts *Options,
	loggerHandler slog.Handler,
	engine *Engine,
	cacheMgr cache.CacheManager,
	langDet language.LanguageDetector,
	encHandler encoding.EncodingHandler,
	settingsHash string,
) *FileProcessor

// WalkerFactory defines a function type for creating Walkers.
type WalkerFactory func(
	opts *Options,
	workerChan chan<- string,
	loggerHandler slog.Handler,
) (*Walker, error)

// Stamper runs the header save cycle over every eligible file in a tree.
type Stamper struct {
	opts             *Options
	runID            string
	logger           *slog.Logger
	engine           *Engine
	cacheManager     cache.CacheManager
	processorFactory ProcessorFactory
	walkerFactory    WalkerFactory
	processor        *FileProcessor
	aggregator       *reportAggregator
	ctx              context.Context
	cancelFunc       context.CancelFunc
	concurrency      int
	fatalOccurred    atomic.Bool
}

// NewStamper validates opts and resolves default dependencies.
func NewStamper(ctx context.Context, opts Options) (*Stamper, error) {
	if opts.Logger == nil {
		return nil, fmt.Errorf("%w: Logger implementation (slog.Handler) cannot be nil", ErrConfigValidation)
	}
	if opts.EventHooks == nil {
		opts.EventHooks = &NoOpHooks{}
	}
	runID := uuid.New().String()
	logger := slog.New(opts.Logger).With(slog.String("component", "stamper"), slog.String("runID", runID))

	if opts.InputPath == "" {
		return nil, fmt.Errorf("%w: input path cannot be empty", ErrConfigValidation)
	}
	absInput, err := filepath.Abs(opts.InputPath)
	if err != nil {
		return nil, fmt.Errorf("%w: cannot resolve input path '%s': %w", ErrConfigValidation, opts.InputPath, err)
	}
	opts.InputPath = absInput
	if info, statErr := os.Stat(opts.InputPath); statErr != nil {
		return nil, fmt.Errorf("%w: cannot access input path '%s': %w", ErrConfigValidation, opts.InputPath, statErr)
	} else if !info.IsDir() {
		return nil, fmt.Errorf("%w: input path '%s' is not a directory", ErrConfigValidation, opts.InputPath)
	}
	if opts.GitDiffMode != GitDiffModeNone && opts.GitDiffMode != "" && opts.GitChangedFiles == nil && opts.GitClient == nil {
		return nil, fmt.Errorf("%w: GitClient required for git diff mode '%s'", ErrConfigValidation, opts.GitDiffMode)
	}

	var cacheMgr cache.CacheManager = cache.NoOpCacheManager{}
	switch {
	case opts.CacheManager != nil:
		cacheMgr = opts.CacheManager
	case opts.CacheEnabled:
		if opts.CacheFilePath == "" {
			opts.CacheFilePath = filepath.Join(opts.InputPath, CacheFileName)
		}
		if opts.ClearCache {
			if rmErr := os.Remove(opts.CacheFilePath); rmErr != nil && !errors.Is(rmErr, os.ErrNotExist) {
				logger.Warn("Failed to clear cache file", "path", opts.CacheFilePath, "error", rmErr.Error())
			}
		}
		fileCache := cache.NewFileCacheManager(opts.Logger, CacheSchemaVersion, opts.AppVersion, cache.DefaultCacheFormat)
		if loadErr := fileCache.Load(opts.CacheFilePath); loadErr != nil {
			logger.Error("Cache unavailable, proceeding without cache", "path", opts.CacheFilePath, "error", loadErr.Error())
			opts.CacheEnabled = false
		} else {
			cacheMgr = fileCache
		}
	}
	opts.CacheManager = cacheMgr

	if opts.LanguageDetector == nil {
		opts.LanguageDetector = language.NewGoEnryDetector(opts.LanguageDetectionConfidenceThreshold, opts.LanguageMappingsOverride)
	}
	if opts.EncodingHandler == nil {
		opts.EncodingHandler = encoding.NewGoCharsetEncodingHandler(opts.DefaultEncoding)
	}
	if opts.AuthorResolver == nil && opts.GitClient != nil {
		opts.AuthorResolver = opts.GitClient
	}

	engine, err := NewEngine(opts)
	if err != nil {
		return nil, err
	}

	if opts.Concurrency <= 0 {
		opts.Concurrency = runtime.NumCPU()
	}
	processorFactory := opts.ProcessorFactory
	if processorFactory == nil {
		processorFactory = NewFileProcessor
	}
	walkerFactory := opts.WalkerFactory
	if walkerFactory == nil {
		walkerFactory = NewWalker
	}

	stamperCtx, cancel := context.WithCancel(ctx)
	return &Stamper{
		opts:             &opts,
		runID:            runID,
		logger:           logger,
		engine:           engine,
		cacheManager:     cacheMgr,
		processorFactory: processorFactory,
		walkerFactory:    walkerFactory,
		aggregator:       newReportAggregator(),
		ctx:              stamperCtx,
		cancelFunc:       cancel,
		concurrency:      opts.Concurrency,
	}, nil
}

// Run walks the tree, stamps every eligible file and returns the aggregated
// report. A non-nil error means the run stopped early.
func (s *Stamper) Run() (report Report, finalErr error) {
	startTime := time.Now()
	s.logger.Info("Starting stamp run", "input", s.opts.InputPath, "concurrency", s.concurrency, "dryRun", s.opts.DryRun)

	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("Panic recovered during stamp run", "panicValue", r)
			s.fatalOccurred.Store(true)
			finalErr = fmt.Errorf("panic during execution: %v", r)
		}
		s.cancelFunc()

		if s.opts.CacheEnabled && !s.opts.DryRun {
			if persistErr := s.cacheManager.Persist(s.opts.CacheFilePath); persistErr != nil {
				s.logger.Error("Failed to persist cache index", "path", s.opts.CacheFilePath, "error", persistErr.Error())
				if finalErr == nil {
					finalErr = persistErr
				}
			}
		}

		report = s.aggregator.getReport(s.opts, s.runID, startTime, s.fatalOccurred.Load())
		s.logger.Info("Stamp run finished",
			slog.Duration("duration", time.Since(startTime)),
			slog.Int("inserted", report.Summary.InsertedCount),
			slog.Int("updated", report.Summary.UpdatedCount),
			slog.Int("skipped", report.Summary.SkippedCount),
			slog.Int("errors", report.Summary.ErrorCount),
		)
		if hookErr := s.opts.EventHooks.OnRunComplete(report); hookErr != nil {
			s.logger.Warn("OnRunComplete hook returned an error", slog.String("error", hookErr.Error()))
		}
	}()

	settingsHash, err := hashSettings(s.opts.Settings)
	if err != nil {
		s.fatalOccurred.Store(true)
		return Report{}, err
	}
	s.processor = s.processorFactory(s.opts, s.opts.Logger, s.engine, s.cacheManager,
		s.opts.LanguageDetector, s.opts.EncodingHandler, settingsHash)

	workerChan := make(chan string, s.concurrency)
	resultsChan := make(chan any, s.concurrency)
	walker, walkInitErr := s.walkerFactory(s.opts, workerChan, s.opts.Logger)
	if walkInitErr != nil {
		s.fatalOccurred.Store(true)
		return Report{}, fmt.Errorf("walker initialization failed: %w", walkInitErr)
	}

	var wg sync.WaitGroup
	for i := 0; i < s.concurrency; i++ {
		wg.Add(1)
		go s.processFilesWorker(&wg, i, workerChan, resultsChan)
	}
	aggregatorDone := make(chan struct{})
	go s.aggregateResults(resultsChan, aggregatorDone)

	walkErr := walker.StartWalk(s.ctx)
	wg.Wait()
	close(resultsChan)
	<-aggregatorDone

	switch {
	case s.fatalOccurred.Load():
		if firstFatal := s.aggregator.getFirstFatalError(); firstFatal != nil {
			return Report{}, fmt.Errorf("processing stopped due to fatal error: %w", firstFatal)
		}
		return Report{}, errors.New("processing stopped due to fatal error")
	case walkErr != nil:
		s.fatalOccurred.Store(true)
		return Report{}, walkErr
	}
	return Report{}, nil
}

func (s *Stamper) processFilesWorker(wg *sync.WaitGroup, workerID int, workerChan <-chan string, resultsChan chan<- any) {
	wLogger := s.logger.With(slog.Int("workerID", workerID))
	defer wg.Done()
	defer func() {
		if r := recover(); r != nil {
			wLogger.Error("Panic recovered in worker", "panicValue", r)
			resultsChan <- ErrorInfo{Path: "unknown (panic)", Error: fmt.Sprintf("panic: %v", r), IsFatal: true}
			s.fatalOccurred.Store(true)
			s.cancelFunc()
		}
	}()

	for {
		select {
		case filePath, ok := <-workerChan:
			if !ok {
				return
			}
			result, _, err := s.processor.ProcessFile(s.ctx, filePath)
			resultsChan <- result
			if info, isErr := result.(ErrorInfo); isErr && err != nil && info.IsFatal {
				wLogger.Info("Fatal error, signalling stop", "path", info.Path, "error", err.Error())
				s.fatalOccurred.Store(true)
				s.cancelFunc()
			}
		case <-s.ctx.Done():
			// Drain so the walker is never left blocked on a send.
			for range workerChan {
			}
			return
		}
	}
}

func (s *Stamper) aggregateResults(resultsChan <-chan any, done chan<- struct{}) {
	defer close(done)
	for result := range resultsChan {
		switch r := result.(type) {
		case FileInfo:
			s.aggregator.addProcessed(r)
		case SkippedInfo:
			s.aggregator.addSkipped(r)
		case ErrorInfo:
			s.aggregator.addError(r)
		default:
			s.logger.Warn("Aggregator received unknown result type", "type", fmt.Sprintf("%T", result))
		}
	}
}

// hashSettings identifies the header settings for cache validation.
func hashSettings(settings Settings) (string, error) {
	data, err := json.Marshal(settings)
	if err != nil {
		return "", fmt.Errorf("%w: cannot hash settings: %w", ErrConfigValidation, err)
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}

// --- reportAggregator ---

type reportAggregator struct {
	mu             sync.Mutex
	processedFiles []FileInfo
	skippedFiles   []SkippedInfo
	errors         []ErrorInfo
}

func newReportAggregator() *reportAggregator {
	return &reportAggregator{
		processedFiles: make([]FileInfo, 0, 64),
		skippedFiles:   make([]SkippedInfo, 0, 64),
		errors:         make([]ErrorInfo, 0, 8),
	}
}

func (a *reportAggregator) addProcessed(info FileInfo) {
	a.mu.Lock()
	a.processedFiles = append(a.processedFiles, info)
	a.mu.Unlock()
}

func (a *reportAggregator) addSkipped(info SkippedInfo) {
	a.mu.Lock()
	a.skippedFiles = append(a.skippedFiles, info)
	a.mu.Unlock()
}

func (a *reportAggregator) addError(info ErrorInfo) {
	a.mu.Lock()
	a.errors = append(a.errors, info)
	a.mu.Unlock()
}

func (a *reportAggregator) getFirstFatalError() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	for _, e := range a.errors {
		if e.IsFatal {
			return fmt.Errorf("fatal error processing file '%s': %s", e.Path, e.Error)
		}
	}
	return nil
}

func (a *reportAggregator) getReport(opts *Options, runID string, startTime time.Time, fatalOccurred bool) Report {
	a.mu.Lock()
	defer a.mu.Unlock()

	processed := append([]FileInfo(nil), a.processedFiles...)
	skipped := append([]SkippedInfo(nil), a.skippedFiles...)
	errs := append([]ErrorInfo(nil), a.errors...)

	summary := ReportSummary{
		RunID:              runID,
		InputPath:          opts.InputPath,
		ProfileUsed:        opts.ProfileName,
		ConfigFilePath:     opts.ConfigFilePath,
		DryRun:             opts.DryRun,
		TotalFilesScanned:  len(processed) + len(skipped) + len(errs),
		SkippedCount:       len(skipped),
		ErrorCount:         len(errs),
		FatalErrorOccurred: fatalOccurred,
		DurationSeconds:    time.Since(startTime).Seconds(),
		CacheEnabled:       opts.CacheEnabled,
		Concurrency:        opts.Concurrency,
		Timestamp:          time.Now().UTC(),
		SchemaVersion:      ReportSchemaVersion,
	}
	for _, f := range processed {
		switch {
		case !f.Written && !opts.DryRun:
			summary.UnchangedCount++
		case f.Mode == EditModeInsert:
			summary.InsertedCount++
		case f.Mode == EditModeUpdate:
			summary.UpdatedCount++
		}
	}
	return Report{Summary: summary, ProcessedFiles: processed, SkippedFiles: skipped, Errors: errs}
}
