package dl

import "errors"

// Package-local sentinels. The dispatcher treats any of these as a
// transport fault; dl itself must not depend on the root package.
var (
	errCRC      = errors.New("dl: frame checksum mismatch")
	errMalformed = errors.New("dl: frame length field does not match buffer")
	errResync   = errors.New("dl: peer sequence number out of window, resyncing")
)

// ErrCRC is returned when a received frame's FCS does not match.
var ErrCRC = errCRC

// ErrMalformed is returned when a received frame's LEN field is inconsistent
// with the bytes actually delivered by the physical layer.
var ErrMalformed = errMalformed

// ErrResync is returned when a received DATA frame's sequence number is
// neither the next expected one nor a retransmission of the last one
// delivered; a SYNC control frame has been sent before this error returns.
var ErrResync = errResync
