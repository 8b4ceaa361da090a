package logger

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New cria o logger estruturado do serviço.
// Em "local" usa a config de desenvolvimento; nos demais ambientes, JSON de produção.
func New(serviceName string, env string, opts ...zap.Option) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	if env == "local" {
		cfg = zap.NewDevelopmentConfig()
	}

	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	// sempre garantir que serviço e env entrem como campos padrão
	opts = append(opts, zap.Fields(
		zap.String("service", serviceName),
		zap.String("env", env),
	))

	return cfg.Build(opts...)
}
