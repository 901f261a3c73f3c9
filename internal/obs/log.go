package obs

import (
	"strings"
	"sync"

	"go.uber.org/zap"
)

// Log is the structured key/value logger used across the service. Values of
// secret-looking keys are redacted before they reach the encoder.
type Log struct {
	s *zap.SugaredLogger
}

var (
	loggerMu sync.RWMutex
	logger   = FromZap(zap.NewNop())
)

// NewLogger builds a JSON production logger for mode "prod" and a console
// development logger otherwise.
func NewLogger(mode string) (*Log, error) {
	var cfg zap.Config
	switch strings.ToLower(strings.TrimSpace(mode)) {
	case "prod", "production", "":
		cfg = zap.NewProductionConfig()
	default:
		cfg = zap.NewDevelopmentConfig()
	}
	cfg.EncoderConfig.TimeKey = "ts"
	z, err := cfg.Build()
	if err != nil {
		return nil, err
	}
	return FromZap(z), nil
}

func FromZap(z *zap.Logger) *Log { return &Log{s: z.Sugar()} }

// Logger returns the shared logger.
func Logger() *Log {
	loggerMu.RLock()
	defer loggerMu.RUnlock()
	return logger
}

// SetLogger replaces the shared logger and returns the previous one.
func SetLogger(l *Log) *Log {
	loggerMu.Lock()
	defer loggerMu.Unlock()
	prev := logger
	if l != nil {
		logger = l
	}
	return prev
}

func (l *Log) Zap() *zap.Logger { return l.s.Desugar() }

func (l *Log) Sync() { _ = l.s.Sync() }

func (l *Log) Debug(msg string, kv ...any) { l.s.Debugw(msg, sanitizeKVs(kv)...) }
func (l *Log) Info(msg string, kv ...any)  { l.s.Infow(msg, sanitizeKVs(kv)...) }
func (l *Log) Warn(msg string, kv ...any)  { l.s.Warnw(msg, sanitizeKVs(kv)...) }
func (l *Log) Error(msg string, kv ...any) { l.s.Errorw(msg, sanitizeKVs(kv)...) }

func (l *Log) With(kv ...any) *Log { return &Log{s: l.s.With(sanitizeKVs(kv)...)} }

var redactKeys = []string{"token", "authorization", "secret", "password"}

func sanitizeKVs(kv []any) []any {
	if len(kv) == 0 {
		return kv
	}
	out := make([]any, 0, len(kv))
	for i := 0; i < len(kv); i += 2 {
		if i == len(kv)-1 {
			out = append(out, kv[i])
			break
		}
		key, _ := kv[i].(string)
		out = append(out, kv[i], sanitizeValue(strings.ToLower(key), kv[i+1]))
	}
	return out
}

func sanitizeValue(key string, val any) any {
	for _, k := range redactKeys {
		if strings.Contains(key, k) {
			return "[REDACTED]"
		}
	}
	switch v := val.(type) {
	case map[string]any:
		out := make(map[string]any, len(v))
		for mk, mv := range v {
			out[mk] = sanitizeValue(strings.ToLower(mk), mv)
		}
		return out
	case string:
		if looksLikeJWT(v) {
			return "[REDACTED]"
		}
	}
	return val
}

func looksLikeJWT(s string) bool {
	if len(s) < 30 || strings.Count(s, ".") != 2 {
		return false
	}
	return strings.HasPrefix(s, "eyJ")
}
