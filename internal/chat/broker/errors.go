package broker

import "errors"

var (
	// ErrEngineStopped - returns when a message is submitted after the dispatch loop has finished.
	ErrEngineStopped = errors.New("broker.Engine: stopped")

	// ErrEngineRunning - returns if dispatch loop is already running.
	ErrEngineRunning = errors.New("broker.Engine: dispatch loop is running already")
)
