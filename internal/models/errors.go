package models

import "errors"

// Custom errors
var (
	ErrNotFound         = errors.New("record not found")
	ErrInvalidStake     = errors.New("stake must be positive")
	ErrInvalidPrice     = errors.New("price outside legal odds range")
	ErrRefMismatch      = errors.New("order reference already assigned")
	ErrStatusRegression = errors.New("order status may not regress")
)
