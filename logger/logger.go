package logger

import (
	"go.uber.org/zap"
)

var Log *zap.SugaredLogger

// Library packages log unconditionally, so Log starts as a no-op logger
// until the process calls Init. Tests never have to initialize anything.
func init() {
	Log = zap.NewNop().Sugar()
}

func Init() {
	logger, err := zap.NewProduction()
	if err != nil {
		panic("failed to initialize zap logger: " + err.Error())
	}
	Log = logger.Sugar()
}
