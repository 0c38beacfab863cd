package optigatrust

// Request is one command APDU and the caller-owned buffer its response is
// written into. Once submitted, the caller must not touch either slice
// until the returned Completion fires: ownership is logically transferred
// to the worker for the duration of the round-trip.
type Request struct {
	Tx []byte
	Rx []byte
}

// descriptor is the queued, worker-visible form of a Request plus its
// completion channel. It is never copied after creation.
type descriptor struct {
	req  Request
	done Completion
}
