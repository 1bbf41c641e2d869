//go:build windows

package util

import "os"

// ShutdownSignals returns the signals to listen for graceful shutdown.
func ShutdownSignals() []os.Signal {
	return []os.Signal{os.Interrupt}
}

// GracefulSignal attempts graceful process termination.
// On Windows SIGINT is not supported for child processes; the capture
// pipeline is killed via the command's WaitDelay instead.
func GracefulSignal(p *os.Process) error {
	return nil
}
