package nt

import "errors"

// Package-local sentinels. The dispatcher treats any of these as a
// transport fault; nt itself must not depend on the root package.
var (
	errChain    = errors.New("nt: packet chain received out of order")
	errOverflow = errors.New("nt: reassembled APDU exceeds caller buffer capacity")
)

// ErrChain is returned when a packet chain does not start with FIRST/ONLY,
// or a MIDDLE/LAST packet arrives without a chain in progress.
var ErrChain = errChain

// ErrOverflow is returned when reassembling a chain would exceed the
// caller-supplied buffer capacity.
var ErrOverflow = errOverflow
