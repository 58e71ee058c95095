package logging

import (
	"os"

	"go.uber.org/zap"
)

// InitializeLogger creates the named application logger. The returned
// cleanup function flushes buffered entries and must be deferred by the
// caller.
func InitializeLogger(name string) (*zap.SugaredLogger, func()) {
	var logger *zap.Logger
	var err error

	if os.Getenv("ENVIRONMENT") == "development" {
		logger, err = zap.NewDevelopment()
	} else {
		logger, err = zap.NewProduction()
	}
	if err != nil {
		panic(err)
	}

	sugared := logger.Named(name).Sugar()
	cleanup := func() {
		_ = sugared.Sync()
	}
	return sugared, cleanup
}
