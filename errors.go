package optigatrust

import "errors"

// Sentinel errors of the public API. Device and the command encoders return
// ErrAPDUTooLarge, ErrOpenApplication, ErrIllegalArgument and
// ErrBufferTooSmall. The layers beneath the dispatcher never log; they
// report faults with their own package-local sentinels, which the
// dispatcher logs and completes as OutcomeIO without mapping them onto the
// values below.
var (
	ErrIllegalArgument = errors.New("error in function arguments")
	ErrTimeout         = errors.New("operation timed out waiting for the element")
	ErrCRC             = errors.New("frame checksum does not match")
	ErrChainOrder      = errors.New("packet chain received out of order")
	ErrBufferTooSmall  = errors.New("caller buffer too small for response")
	ErrBusNack         = errors.New("bus peer NACKed after retry")
	ErrResync          = errors.New("data-link resynchronisation required")
	ErrAPDUTooLarge    = errors.New("APDU exceeds the maximum supported length")
	ErrRegLenRange     = errors.New("negotiated data register length is out of range")
	ErrOpenApplication = errors.New("OpenApplication handshake was rejected by the element")
)
