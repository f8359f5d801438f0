package logger

import "go.uber.org/zap"

var Log *zap.Logger

func Init() {
	Log = zap.Must(zap.NewProduction())
}

// InitTest points the global logger at a no-op core so tests stay quiet.
func InitTest() {
	Log = zap.NewNop()
}

func Sugar() *zap.SugaredLogger {
	return Log.Sugar()
}
