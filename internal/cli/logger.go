package cli

import (
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// newLogger builds a zap.Logger gated by KOPI_LOG (spec §1's ambient
// logging requirement), replacing Jenvy's bare fmt.Printf diagnostics
// with structured, leveled events. KOPI_LOG unset or "off" yields a
// no-op logger so a plain `kopi install` run stays as quiet as Jenvy's
// console output; any other value is parsed as a zapcore.Level
// ("debug", "info", "warn", "error"), defaulting to info on a bad value.
func newLogger() (*zap.Logger, error) {
	level := os.Getenv("KOPI_LOG")
	if level == "" || level == "off" {
		return zap.NewNop(), nil
	}

	var lvl zapcore.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		lvl = zapcore.InfoLevel
	}

	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	cfg.OutputPaths = []string{"stderr"}
	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	return cfg.Build()
}
