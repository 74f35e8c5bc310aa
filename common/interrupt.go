package common

import (
	"os"
	"os/signal"
	"syscall"
)

// Interrupted returns a channel that delivers shutdown signals.
// Long-running commands select on it to drain and close cleanly.
func Interrupted() <-chan os.Signal {
	interrupt := make(chan os.Signal, 2)
	signal.Notify(interrupt,
		os.Interrupt, os.Kill,
		syscall.SIGTERM, syscall.SIGQUIT,
	)
	return interrupt
}
