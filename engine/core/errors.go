package core

import (
	"errors"
)

var (
	ErrNotInitialized     = errors.New("engine not initialized")
	ErrAlreadyInitialized = errors.New("engine already initialized")
	ErrAlreadyRunning     = errors.New("engine already running")
)
