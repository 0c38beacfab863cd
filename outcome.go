package optigatrust

import "context"

// Outcome is the result code carried by a Completion. Zero means success;
// a positive value is the element-reported command error byte (read back
// via GetErrorCode); a negative value is a host-side transport or internal
// error. OutcomeIO is the only negative code in use.
type Outcome int

// OutcomeSuccess is the zero value returned when the element accepted an
// APDU and reported no command error.
const OutcomeSuccess Outcome = 0

// OutcomeIO is the negative outcome used for every host-side failure:
// transport fault, a failed GetErrorCode sub-exchange, an oversized
// request, a descriptor drained after a fault, or a submission once the
// device is dead or shutting down.
const OutcomeIO Outcome = -1

// result is what the worker publishes once: the outcome and, when the
// transport actually ran, the number of bytes it wrote into the request's
// Rx buffer.
type result struct {
	outcome Outcome
	n       int
}

// Completion is a single-shot, single-producer/single-consumer signal
// attached to one descriptor. The worker sends exactly once; Wait may be
// called at most once by the submitting caller.
type Completion struct {
	ch chan result
}

func newCompletion() Completion {
	return Completion{ch: make(chan result, 1)}
}

// NewCompletion returns a Completion that is already resolved with outcome
// and n, the rx length a caller's Wait should observe. It exists for
// packages that implement the Submitter interface against a fake instead
// of a real Device in tests, letting them satisfy Submit without reaching
// into this package's unexported fields.
func NewCompletion(outcome Outcome, n int) Completion {
	c := newCompletion()
	c.signal(outcome, n)
	return c
}

func (c Completion) signal(o Outcome, n int) {
	c.ch <- result{outcome: o, n: n}
}

// Wait blocks until the worker publishes an outcome or ctx is done,
// whichever comes first. n is the number of bytes actually written into
// the request's Rx buffer; it is only meaningful when the transport ran,
// i.e. whenever the outcome is not the result of a queue-level rejection.
func (c Completion) Wait(ctx context.Context) (Outcome, int, error) {
	select {
	case r := <-c.ch:
		return r.outcome, r.n, nil
	case <-ctx.Done():
		return OutcomeIO, 0, ctx.Err()
	}
}
