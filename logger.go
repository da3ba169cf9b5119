package dispatch

import (
	"log"
	"os"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Logger is the minimal structured logging interface the client emits to.
// Keys and values alternate in keysAndValues.
type Logger interface {
	Debug(msg string, keysAndValues ...any)
	Info(msg string, keysAndValues ...any)
	Warn(msg string, keysAndValues ...any)
	Error(msg string, keysAndValues ...any)
}

// debugCategory names a lifecycle event class for debug logging.
type debugCategory int

const (
	debugRequests debugCategory = iota
	debugRetries
	debugDedup
	debugAuth
)

// DebugConfig selects which lifecycle events are logged when debugging is
// enabled.
type DebugConfig struct {
	Enabled     bool
	LogRequests bool
	LogRetries  bool
	LogDedup    bool
	LogAuth     bool

	// RequestIDGen produces the per-call id threaded through debug logs.
	RequestIDGen func() string
}

// DefaultDebugConfig returns a config with all categories on but debugging
// disabled.
func DefaultDebugConfig() *DebugConfig {
	return &DebugConfig{
		LogRequests:  true,
		LogRetries:   true,
		LogDedup:     true,
		LogAuth:      true,
		RequestIDGen: uuid.NewString,
	}
}

// zerologAdapter bridges Logger onto a zerolog.Logger.
type zerologAdapter struct {
	logger zerolog.Logger
}

// NewZerologLogger wraps a zerolog.Logger in the Logger interface.
func NewZerologLogger(logger zerolog.Logger) Logger {
	return &zerologAdapter{logger: logger}
}

func (z *zerologAdapter) Debug(msg string, keysAndValues ...any) {
	z.logger.Debug().Fields(keysAndValues).Msg(msg)
}

func (z *zerologAdapter) Info(msg string, keysAndValues ...any) {
	z.logger.Info().Fields(keysAndValues).Msg(msg)
}

func (z *zerologAdapter) Warn(msg string, keysAndValues ...any) {
	z.logger.Warn().Fields(keysAndValues).Msg(msg)
}

func (z *zerologAdapter) Error(msg string, keysAndValues ...any) {
	z.logger.Error().Fields(keysAndValues).Msg(msg)
}

// SimpleLogger writes key-value pairs through the standard library logger.
// Useful in examples and tests where zerolog setup is overkill.
type SimpleLogger struct {
	logger *log.Logger
}

// NewSimpleLogger returns a SimpleLogger writing to stderr.
func NewSimpleLogger() *SimpleLogger {
	return &SimpleLogger{logger: log.New(os.Stderr, "dispatch: ", log.LstdFlags)}
}

func (s *SimpleLogger) log(level, msg string, keysAndValues []any) {
	args := make([]any, 0, len(keysAndValues)+2)
	args = append(args, level, msg)
	args = append(args, keysAndValues...)
	s.logger.Println(args...)
}

func (s *SimpleLogger) Debug(msg string, keysAndValues ...any) {
	s.log("DEBUG", msg, keysAndValues)
}

func (s *SimpleLogger) Info(msg string, keysAndValues ...any) {
	s.log("INFO", msg, keysAndValues)
}

func (s *SimpleLogger) Warn(msg string, keysAndValues ...any) {
	s.log("WARN", msg, keysAndValues)
}

func (s *SimpleLogger) Error(msg string, keysAndValues ...any) {
	s.log("ERROR", msg, keysAndValues)
}
