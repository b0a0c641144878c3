package logger

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// ===========================
// 結構化日誌（zap + lumberjack）
// ===========================
//
// 輸出規則：
// - debug 模式：console 格式輸出到 stdout，等級 Debug
// - 其他模式：JSON 格式寫入輪替檔案，等級 Info
// - 檔案無法寫入時退回 stdout（JSON），不讓服務因日誌失敗而無法啟動

const (
	defaultDir        = "logs"
	defaultFilename   = "loyalty.log"
	defaultMaxSizeMB  = 100
	defaultMaxBackups = 7
	defaultMaxAgeDays = 30
)

// Options 檔案輸出設定（由 config.LogConfig 轉換）
type Options struct {
	Dir        string
	Filename   string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	Compress   bool
}

var (
	mu     sync.RWMutex
	global *zap.Logger

	fallbackOnce sync.Once
	fallback     *zap.Logger
)

// Init 初始化全域日誌並替換 zap 全域實例
func Init(mode string, options Options) *zap.Logger {
	l := New(mode, options)

	mu.Lock()
	global = l
	mu.Unlock()

	zap.ReplaceGlobals(l)
	return l
}

// New 依模式建立日誌實例
func New(mode string, options Options) *zap.Logger {
	if isDebug(mode) {
		return build(zapcore.NewConsoleEncoder(encoderConfig()), zapcore.AddSync(os.Stdout), zap.DebugLevel)
	}

	sink, err := fileSink(options)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: file sink unavailable, writing to stdout: %v\n", err)
		return build(zapcore.NewJSONEncoder(encoderConfig()), zapcore.AddSync(os.Stdout), zap.InfoLevel)
	}
	return build(zapcore.NewJSONEncoder(encoderConfig()), sink, zap.InfoLevel)
}

// Z 全域日誌；尚未 Init 時返回 stdout 後備實例
func Z() *zap.Logger {
	mu.RLock()
	l := global
	mu.RUnlock()
	if l != nil {
		return l
	}
	return fallbackLogger()
}

// S 全域 SugaredLogger
func S() *zap.SugaredLogger {
	return Z().Sugar()
}

// Debugw 輸出 debug 日誌
func Debugw(msg string, kv ...interface{}) {
	S().Debugw(msg, kv...)
}

// Infow 輸出 info 日誌（key-value 形式）
func Infow(msg string, kv ...interface{}) {
	S().Infow(msg, kv...)
}

// Warnw 輸出 warn 日誌
func Warnw(msg string, kv ...interface{}) {
	S().Warnw(msg, kv...)
}

// Errorw 輸出 error 日誌
func Errorw(msg string, kv ...interface{}) {
	S().Errorw(msg, kv...)
}

// Sync 刷新緩衝（程式結束前調用）
func Sync() {
	_ = Z().Sync()
}

func isDebug(mode string) bool {
	return strings.EqualFold(strings.TrimSpace(mode), "debug")
}

func encoderConfig() zapcore.EncoderConfig {
	cfg := zap.NewProductionEncoderConfig()
	cfg.TimeKey = "time"
	cfg.MessageKey = "message"
	cfg.EncodeTime = zapcore.ISO8601TimeEncoder
	cfg.EncodeDuration = zapcore.MillisDurationEncoder
	cfg.EncodeLevel = zapcore.LowercaseLevelEncoder
	cfg.EncodeCaller = zapcore.ShortCallerEncoder
	return cfg
}

func build(enc zapcore.Encoder, ws zapcore.WriteSyncer, level zapcore.Level) *zap.Logger {
	core := zapcore.NewCore(enc, ws, zap.NewAtomicLevelAt(level))
	return zap.New(core, zap.AddCaller())
}

func fallbackLogger() *zap.Logger {
	fallbackOnce.Do(func() {
		fallback = build(zapcore.NewConsoleEncoder(encoderConfig()), zapcore.AddSync(os.Stdout), zap.InfoLevel)
	})
	return fallback
}

func fileSink(options Options) (zapcore.WriteSyncer, error) {
	path, err := logFilePath(options)
	if err != nil {
		return nil, err
	}
	return zapcore.AddSync(&lumberjack.Logger{
		Filename:   path,
		MaxSize:    positiveOr(options.MaxSizeMB, defaultMaxSizeMB),
		MaxBackups: positiveOr(options.MaxBackups, defaultMaxBackups),
		MaxAge:     positiveOr(options.MaxAgeDays, defaultMaxAgeDays),
		Compress:   options.Compress,
	}), nil
}

// logFilePath 解析日誌檔路徑，並確認目錄與檔案可寫
func logFilePath(options Options) (string, error) {
	dir := strings.TrimSpace(options.Dir)
	if dir == "" {
		wd, err := os.Getwd()
		if err != nil {
			return "", fmt.Errorf("resolve working dir: %w", err)
		}
		dir = filepath.Join(wd, defaultDir)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create log dir: %w", err)
	}

	name := strings.TrimSpace(options.Filename)
	if name == "" {
		name = defaultFilename
	}
	path := filepath.Join(dir, name)

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return "", fmt.Errorf("open log file: %w", err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("close log file: %w", err)
	}
	return path, nil
}

func positiveOr(v, def int) int {
	if v > 0 {
		return v
	}
	return def
}
