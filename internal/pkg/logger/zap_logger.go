package logger

import (
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

type ILogger interface {
	Debug(module, message string, details map[string]interface{})
	Info(module, message string, details map[string]interface{})
	Warn(module, message string, details map[string]interface{})
	Error(module, message string, details map[string]interface{})
	Sync() error
	GetLogs(level string, limit, offset int) ([]LogEntry, error)
	GetLogById(id string) (*LogEntry, error)
}

type ZapLogger struct {
	logger   *zap.Logger
	filePath string
}

func jsonEncoder() zapcore.Encoder {
	cfg := zap.NewProductionEncoderConfig()
	cfg.TimeKey = "timestamp"
	cfg.MessageKey = "message"
	cfg.LevelKey = "level"
	cfg.EncodeTime = zapcore.ISO8601TimeEncoder
	cfg.EncodeLevel = zapcore.CapitalLevelEncoder
	return zapcore.NewJSONEncoder(cfg)
}

// fileCore writes INFO and above as JSON lines; the admin log endpoints read them back.
func fileCore(path string) zapcore.Core {
	rotator := &lumberjack.Logger{
		Filename:   path,
		MaxSize:    20, // MB
		MaxBackups: 3,
		MaxAge:     14, // days
		Compress:   true,
	}
	return zapcore.NewCore(jsonEncoder(), zapcore.AddSync(rotator), zap.InfoLevel)
}

func newZapLogger(core zapcore.Core, path string) *ZapLogger {
	return &ZapLogger{
		logger:   zap.New(core, zap.AddCaller(), zap.AddCallerSkip(2)),
		filePath: path,
	}
}

// NewZapLogger tees to the rotated file and stdout. Production keeps stdout JSON
// for log shippers, otherwise it is the colored console format.
func NewZapLogger(logFilePath string, isProd bool) *ZapLogger {
	stdout := zapcore.NewConsoleEncoder(zap.NewDevelopmentEncoderConfig())
	if isProd {
		stdout = jsonEncoder()
	}
	return newZapLogger(zapcore.NewTee(
		fileCore(logFilePath),
		zapcore.NewCore(stdout, zapcore.Lock(os.Stdout), zap.DebugLevel),
	), logFilePath)
}

// NewIsolatedLogger only writes to its file. The notifier uses it so delivery
// chatter stays out of the main log.
func NewIsolatedLogger(logFilePath string) *ZapLogger {
	return newZapLogger(fileCore(logFilePath), logFilePath)
}

func NewNopLogger() *ZapLogger {
	return &ZapLogger{logger: zap.NewNop()}
}

func (l *ZapLogger) Debug(module, message string, details map[string]interface{}) {
	l.write(zapcore.DebugLevel, module, message, details)
}

func (l *ZapLogger) Info(module, message string, details map[string]interface{}) {
	l.write(zapcore.InfoLevel, module, message, details)
}

func (l *ZapLogger) Warn(module, message string, details map[string]interface{}) {
	l.write(zapcore.WarnLevel, module, message, details)
}

func (l *ZapLogger) Error(module, message string, details map[string]interface{}) {
	l.write(zapcore.ErrorLevel, module, message, details)
}

func (l *ZapLogger) write(level zapcore.Level, module, message string, details map[string]interface{}) {
	ce := l.logger.Check(level, message)
	if ce == nil {
		return
	}

	fields := []zap.Field{zap.String("module", module)}
	if details == nil {
		details = map[string]interface{}{}
	}
	// error values marshal to {} so flatten them before encoding
	if err, ok := details["error"].(error); ok {
		details["error"] = err.Error()
		if level >= zapcore.ErrorLevel {
			fields = append(fields, zap.Error(err))
		}
	}
	ce.Write(append(fields, zap.Any("details", details))...)
}

func (l *ZapLogger) Sync() error {
	return l.logger.Sync()
}
