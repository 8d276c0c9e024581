package errors

import "fmt"

var (
	ErrWorkerPanic        = fmt.Errorf("worker panic")
	ErrEmptyWords         = fmt.Errorf("no words have been found")
	ErrNameTaken          = fmt.Errorf("display name already taken")
	ErrNameSpaceExhausted = fmt.Errorf("no free display name could be derived")
	ErrInvalidName        = fmt.Errorf("invalid display name")
	ErrHandshakeFailed    = fmt.Errorf("handshake failed")
	ErrTransport          = fmt.Errorf("transport error")
	ErrLineTooLong        = fmt.Errorf("line exceeds maximum length")
	ErrListener           = fmt.Errorf("listener error")
	ErrSessionTerminated  = fmt.Errorf("session terminated")
)
