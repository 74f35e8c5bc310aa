package common

import "log/slog"

// SlogResetLevel sets the default slog level and returns a function
// restoring the previous one. Tests use it to mute chatty daemons:
//
//	defer common.SlogResetLevel(slog.Level(slog.LevelWarn + 1))()
func SlogResetLevel(level slog.Level) (reset func()) {
	oldLevel := slog.SetLogLoggerLevel(level)
	return func() {
		slog.SetLogLoggerLevel(oldLevel)
	}
}
