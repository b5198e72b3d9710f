package logging

import (
	"go.uber.org/zap"
)

// New builds the service logger. Production config (JSON, sampled)
// unless appEnv is "development", which switches to the console encoder.
func New(appEnv string) (*zap.SugaredLogger, error) {
	var (
		logger *zap.Logger
		err    error
	)
	if appEnv == "development" {
		logger, err = zap.NewDevelopment()
	} else {
		logger, err = zap.NewProduction()
	}
	if err != nil {
		return nil, err
	}
	return logger.Sugar(), nil
}

// Nop returns a discard-all logger for tests.
func Nop() *zap.SugaredLogger {
	return zap.NewNop().Sugar()
}
