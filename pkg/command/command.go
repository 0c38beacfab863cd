package command

import (
	"context"
	"fmt"

	optigatrust "github.com/openoptiga/optigatrust"
)

// Submitter is the dispatcher surface command encoders need. *optigatrust.Device
// satisfies it; tests can substitute a fake to exercise encoding without a
// bus at all.
type Submitter interface {
	Submit(req optigatrust.Request) (optigatrust.Completion, error)
}

// Command wraps a Submitter with the encode/submit/wait/decode cycle common
// to every operation below.
type Command struct {
	dev Submitter
}

// New wraps dev for use by the encoders in this package.
func New(dev Submitter) *Command {
	return &Command{dev: dev}
}

// maxResponse bounds the rx buffer allocated for operations that don't have
// a tighter natural size; it does not limit what the NT layer can carry.
const maxResponse = 512

func (c *Command) exchange(ctx context.Context, apdu []byte, rxCap int) (responseHeader, optigatrust.Outcome, error) {
	rx := make([]byte, rxCap)
	comp, err := c.dev.Submit(optigatrust.Request{Tx: apdu, Rx: rx})
	if err != nil {
		return responseHeader{}, optigatrust.OutcomeIO, err
	}
	outcome, n, err := comp.Wait(ctx)
	if err != nil {
		return responseHeader{}, optigatrust.OutcomeIO, err
	}
	if outcome < 0 {
		return responseHeader{}, outcome, fmt.Errorf("optiga: transport fault (outcome %d)", int(outcome))
	}
	if outcome != optigatrust.OutcomeSuccess {
		return responseHeader{}, outcome, nil
	}
	// n is the dispatcher's own count of bytes actually written into rx;
	// parseResponse checks the in-band outlen field against it, so a
	// response that is truncated (or padded with stale buffer contents)
	// past what the transport really delivered is rejected rather than
	// silently read as body data.
	hdr, perr := parseResponse(rx, n)
	if perr != nil {
		return responseHeader{}, optigatrust.OutcomeIO, perr
	}
	return hdr, optigatrust.OutcomeSuccess, nil
}
