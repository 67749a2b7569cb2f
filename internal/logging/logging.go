// Package logging provides categorized logging for clearity subsystems.
// Each pipeline stage logs under its own named category so a single turn
// can be traced across gateway, store, and reasoning activity.
package logging

import (
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Category represents a log category/subsystem.
type Category string

const (
	CategoryBoot      Category = "boot"      // Process startup, config
	CategoryPipeline  Category = "pipeline"  // Per-message orchestration
	CategoryGateway   Category = "gateway"   // Completion API calls
	CategoryDecode    Category = "decode"    // JSON extraction and repair
	CategoryStore     Category = "store"     // SQLite persistence
	CategoryMindMap   Category = "mindmap"   // Graph synthesis and reconciliation
	CategoryReasoning Category = "reasoning" // Issue/task derivation
	CategoryMemory    Category = "memory"    // Snapshot storage and retrieval
)

var (
	mu      sync.RWMutex
	base    = zap.NewNop().Sugar()
	loggers = make(map[Category]*zap.SugaredLogger)
)

// Initialize installs the process logger. debug enables Debug-level output.
// Safe to call more than once; later calls replace earlier loggers.
func Initialize(debug bool) error {
	cfg := zap.NewProductionConfig()
	if debug {
		cfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	}
	logger, err := cfg.Build()
	if err != nil {
		return err
	}
	SetLogger(logger)
	return nil
}

// SetLogger replaces the process logger. Used by tests to capture output
// or silence it entirely.
func SetLogger(logger *zap.Logger) {
	mu.Lock()
	defer mu.Unlock()
	base = logger.Sugar()
	loggers = make(map[Category]*zap.SugaredLogger)
}

// Get returns the logger for a category.
func Get(cat Category) *zap.SugaredLogger {
	mu.RLock()
	if l, ok := loggers[cat]; ok {
		mu.RUnlock()
		return l
	}
	mu.RUnlock()

	mu.Lock()
	defer mu.Unlock()
	if l, ok := loggers[cat]; ok {
		return l
	}
	l := base.Named(string(cat))
	loggers[cat] = l
	return l
}

// Convenience helpers, one pair per category. Info-level for events worth
// keeping in production logs, Debug-level for per-call detail.

func Pipeline(format string, args ...interface{})      { Get(CategoryPipeline).Infof(format, args...) }
func PipelineDebug(format string, args ...interface{}) { Get(CategoryPipeline).Debugf(format, args...) }
func Gateway(format string, args ...interface{})       { Get(CategoryGateway).Infof(format, args...) }
func GatewayDebug(format string, args ...interface{})  { Get(CategoryGateway).Debugf(format, args...) }
func Decode(format string, args ...interface{})        { Get(CategoryDecode).Infof(format, args...) }
func DecodeDebug(format string, args ...interface{})   { Get(CategoryDecode).Debugf(format, args...) }
func Store(format string, args ...interface{})         { Get(CategoryStore).Infof(format, args...) }
func StoreDebug(format string, args ...interface{})    { Get(CategoryStore).Debugf(format, args...) }
func MindMap(format string, args ...interface{})       { Get(CategoryMindMap).Infof(format, args...) }
func MindMapDebug(format string, args ...interface{})  { Get(CategoryMindMap).Debugf(format, args...) }
func Reasoning(format string, args ...interface{})     { Get(CategoryReasoning).Infof(format, args...) }
func ReasoningDebug(format string, args ...interface{}) {
	Get(CategoryReasoning).Debugf(format, args...)
}
func Memory(format string, args ...interface{})      { Get(CategoryMemory).Infof(format, args...) }
func MemoryDebug(format string, args ...interface{}) { Get(CategoryMemory).Debugf(format, args...) }
