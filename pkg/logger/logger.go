// Package logger 提供统一的日志框架
package logger

import (
	"io"
	"os"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

var (
	once   sync.Once
	logger zerolog.Logger
)

// Level 日志级别
type Level = zerolog.Level

const (
	DebugLevel = zerolog.DebugLevel
	InfoLevel  = zerolog.InfoLevel
	WarnLevel  = zerolog.WarnLevel
	ErrorLevel = zerolog.ErrorLevel
	FatalLevel = zerolog.FatalLevel
)

// Config 日志配置
type Config struct {
	Level      string `yaml:"level" json:"level"`
	Format     string `yaml:"format" json:"format"` // json/console
	Output     string `yaml:"output" json:"output"` // stdout/stderr/file
	FilePath   string `yaml:"file_path,omitempty" json:"file_path,omitempty"`
	TimeFormat string `yaml:"time_format,omitempty" json:"time_format,omitempty"`
}

// DefaultConfig 返回默认配置
// 解文件写到stdout，日志一律走stderr
func DefaultConfig() Config {
	return Config{
		Level:      "info",
		Format:     "console",
		Output:     "stderr",
		TimeFormat: time.RFC3339,
	}
}

// Init 初始化日志器
func Init(cfg Config) {
	once.Do(func() {
		level := parseLevel(cfg.Level)
		zerolog.SetGlobalLevel(level)

		var output io.Writer
		switch cfg.Output {
		case "stdout":
			output = os.Stdout
		case "file":
			if cfg.FilePath != "" {
				f, err := os.OpenFile(cfg.FilePath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
				if err == nil {
					output = f
				} else {
					output = os.Stderr
				}
			} else {
				output = os.Stderr
			}
		default:
			output = os.Stderr
		}

		if cfg.Format == "console" {
			output = zerolog.ConsoleWriter{
				Out:        output,
				TimeFormat: cfg.TimeFormat,
			}
		}

		logger = zerolog.New(output).With().Timestamp().Logger()
	})
}

// parseLevel 解析日志级别
func parseLevel(level string) zerolog.Level {
	switch level {
	case "debug":
		return zerolog.DebugLevel
	case "info":
		return zerolog.InfoLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	case "fatal":
		return zerolog.FatalLevel
	default:
		return zerolog.InfoLevel
	}
}

// Get 获取日志器
func Get() *zerolog.Logger {
	if logger.GetLevel() == zerolog.Disabled {
		Init(DefaultConfig())
	}
	return &logger
}

// Debug 记录调试日志
func Debug() *zerolog.Event {
	return Get().Debug()
}

// Info 记录信息日志
func Info() *zerolog.Event {
	return Get().Info()
}

// Warn 记录警告日志
func Warn() *zerolog.Event {
	return Get().Warn()
}

// Error 记录错误日志
func Error() *zerolog.Event {
	return Get().Error()
}

// Fatal 记录致命错误日志
func Fatal() *zerolog.Event {
	return Get().Fatal()
}

// WithError 添加错误信息
func WithError(err error) *zerolog.Event {
	return Get().Error().Err(err)
}

// WithField 添加字段
func WithField(key string, value interface{}) *zerolog.Logger {
	l := Get().With().Interface(key, value).Logger()
	return &l
}

// SolverLogger 排课引擎专用日志器
type SolverLogger struct {
	base *zerolog.Logger
}

// NewSolverLogger 创建排课引擎日志器
func NewSolverLogger() *SolverLogger {
	l := Get().With().Str("component", "solver").Logger()
	return &SolverLogger{base: &l}
}

// StartSolve 记录求解开始
func (l *SolverLogger) StartSolve(runID, instance string, lectures, rooms, periods int) {
	l.base.Info().
		Str("run_id", runID).
		Str("instance", instance).
		Int("lectures", lectures).
		Int("rooms", rooms).
		Int("periods", periods).
		Msg("开始排课求解")
}

// ConstructionDone 记录构造阶段完成
func (l *SolverLogger) ConstructionDone(builder string, cost int, duration time.Duration) {
	l.base.Info().
		Str("builder", builder).
		Int("cost", cost).
		Dur("duration", duration).
		Msg("初始解构造完成")
}

// ConstructionAttemptFailed 记录一次构造尝试失败
func (l *SolverLogger) ConstructionAttemptFailed(builder string, attempt int) {
	l.base.Warn().
		Str("builder", builder).
		Int("attempt", attempt).
		Msg("构造尝试失败，准备重试")
}

// SearchProgress 记录搜索进度
func (l *SolverLogger) SearchProgress(engine string, elapsed time.Duration, best, current int, hardOK bool, acceptRate float64, operator string) {
	l.base.Info().
		Str("engine", engine).
		Dur("elapsed", elapsed).
		Int("best_cost", best).
		Int("current_cost", current).
		Bool("hard_ok", hardOK).
		Float64("accept_rate", acceptRate).
		Str("operator", operator).
		Msg("搜索进度")
}

// SolveComplete 记录求解完成
func (l *SolverLogger) SolveComplete(runID string, duration time.Duration, cost int) {
	l.base.Info().
		Str("run_id", runID).
		Dur("duration", duration).
		Int("cost", cost).
		Msg("排课求解完成")
}
