// Package logger configura o zap.Logger usado pela aplicação.
package logger

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New devolve um logger de produção (JSON) quando env == "production" e um
// logger de desenvolvimento colorido nos demais casos.
func New(env string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	if env != "production" {
		cfg = zap.NewDevelopmentConfig()
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}
	return cfg.Build()
}

// MaskIdentity esconde parte do identificador (IP ou API key) antes de ir para os logs.
func MaskIdentity(identity string) string {
	if len(identity) <= 4 {
		return "***"
	}
	return identity[:2] + "***" + identity[len(identity)-2:]
}
