package phy

import "errors"

// Package-local sentinels. The dispatcher treats any of these as a
// transport fault; phy itself must not depend on the root package.
var (
	errTimeout     = errors.New("phy: timed out waiting for the element")
	errRegLenRange = errors.New("phy: negotiated data register length out of range")
	errTooLarge    = errors.New("phy: payload exceeds negotiated data register length")
)

// ErrTimeout is returned by Init and ReadData when a busy/ready poll
// exceeds its deadline.
var ErrTimeout = errTimeout

// ErrRegLenRange is returned by Init when the negotiated DATA_REG_LEN falls
// outside [MinDataRegLen, MaxDataRegLen].
var ErrRegLenRange = errRegLenRange

// ErrTooLarge is returned by WriteData when the caller exceeds the
// negotiated window.
var ErrTooLarge = errTooLarge
