package depthbook

import "errors"

var (
	ErrInvalidParam     = errors.New("the param is invalid")
	ErrUnroutable       = errors.New("message is not a book message for this symbol")
	ErrNotSynced        = errors.New("update received before any snapshot")
	ErrInvalidLevel     = errors.New("price level is incomplete or has a non-positive price or negative quantity")
	ErrAlreadyConnected = errors.New("feed is already connected")
	ErrTimeout          = errors.New("timeout")
	ErrShutdown         = errors.New("session is shutting down")
	ErrNotFound         = errors.New("not found")
)
