package engine

import "errors"

var (
	ErrCapacityExceeded = errors.New("capacity exceeded")
	ErrUnknownMatch     = errors.New("unknown match")
	ErrManagerStopped   = errors.New("manager stopped")
	ErrInvalidMove      = errors.New("invalid move")
	ErrInvalidConfig    = errors.New("invalid game config")
)
