package optigatrust

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/openoptiga/optigatrust/internal/dl"
	"github.com/openoptiga/optigatrust/internal/nt"
	"github.com/openoptiga/optigatrust/internal/phy"
)

// NReset is the number of consecutive transport-fault/reset cycles the
// dispatcher tolerates before entering the terminal DEAD state.
const NReset = 3

// openApplicationAPDU is the fixed initialisation command the dispatcher
// issues itself on every reset.
var openApplicationAPDU = []byte{
	0xF0, 0x00, 0x00, 0x10,
	0xD2, 0x76, 0x00, 0x00, 0x04, 0x47, 0x65, 0x6E, 0x41, 0x75, 0x74, 0x68, 0x41, 0x70, 0x70, 0x6C,
}

// getErrorCodeAPDU is the fixed command the worker issues synchronously
// whenever a response reports a non-zero command error.
var getErrorCodeAPDU = []byte{0x01, 0x00, 0x00, 0x06, 0xF1, 0xC2, 0x00, 0x00, 0x00, 0x01}

// Option configures a Device at construction time.
type Option func(*Device)

// WithQueueDepth sets the buffered request queue's capacity. Default 16.
func WithQueueDepth(n int) Option {
	return func(d *Device) { d.queueDepth = n }
}

// WithLogger overrides the dispatcher's logger. Default is logrus's
// standard logger. Only the dispatcher logs; the layers beneath it never do.
func WithLogger(log *logrus.Logger) Option {
	return func(d *Device) { d.log = log }
}

// WithResetBudget overrides the number of consecutive transport-fault/reset
// cycles tolerated before the device goes DEAD. Default NReset.
func WithResetBudget(n int) Option {
	return func(d *Device) { d.resetBudget = n }
}

// WithPHYTuning overrides the physical layer's retry count, retry delay,
// and forced data register window (0 to keep negotiating it from the
// element, as normal). Applied when Init builds the transport stack.
func WithPHYTuning(nPHY int, retryDelay time.Duration, forcedDataRegLen int) Option {
	return func(d *Device) {
		d.nPHY = nPHY
		d.phyRetryDelay = retryDelay
		d.forcedDataRegLen = forcedDataRegLen
	}
}

// WithDLRetries overrides the data-link layer's retransmit budget. Default
// dl.NDL.
func WithDLRetries(n int) Option {
	return func(d *Device) { d.nDL = n }
}

// Device binds one core instance to one bus peer. It owns the layered
// transport (PHY/DL/NT), the request queue, and the single worker goroutine
// that serialises every round-trip with the element.
type Device struct {
	bus Bus
	log *logrus.Logger

	phy *phy.PHY
	dl  *dl.DL
	nt  *nt.NT

	queueDepth   int
	queue        chan *descriptor
	resetCounter int32 // atomic; zeroed on every successful round-trip
	resetBudget  int

	// nPHY/phyRetryDelay/forcedDataRegLen/nDL tune the transport layers
	// built fresh on every reset; zero keeps each layer's own default.
	nPHY             int
	phyRetryDelay    time.Duration
	forcedDataRegLen int
	nDL              int

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// ResetCount reports the number of consecutive transport-fault/reset
// cycles observed so far. Once it exceeds NReset the device is DEAD: every
// submission completes with OutcomeIO without a transport attempt.
func (d *Device) ResetCount() int32 { return atomic.LoadInt32(&d.resetCounter) }

// NewDevice constructs a Device over bus. Init must be called before any
// request is submitted.
func NewDevice(bus Bus, opts ...Option) *Device {
	d := &Device{
		bus:         bus,
		log:         logrus.StandardLogger(),
		queueDepth:  16,
		resetBudget: NReset,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Init binds the transport stack, performs the initial reset sequence, and
// starts the worker goroutine. It must be called exactly once.
func (d *Device) Init(ctx context.Context) error {
	d.queue = make(chan *descriptor, d.queueDepth)
	d.ctx, d.cancel = context.WithCancel(ctx)

	if err := d.reset(); err != nil {
		atomic.AddInt32(&d.resetCounter, 1)
		d.log.WithError(err).Error("initial reset failed")
		return err
	}

	d.wg.Add(1)
	go d.run()
	return nil
}

// reset rebuilds the transport stack from the physical layer up and
// replays the OpenApplication handshake. It is only ever called from
// Init (before the worker starts) or from the worker goroutine itself.
func (d *Device) reset() error {
	d.phy = phy.New(d.bus)
	if d.nPHY != 0 {
		d.phy.SetNPHY(d.nPHY)
	}
	if d.phyRetryDelay != 0 {
		d.phy.SetRetryDelay(d.phyRetryDelay)
	}
	if d.forcedDataRegLen != 0 {
		d.phy.SetForcedDataRegLen(d.forcedDataRegLen)
	}
	if err := d.phy.Init(); err != nil {
		return err
	}
	d.dl = dl.New(d.phy)
	if d.nDL != 0 {
		d.dl.SetNDL(d.nDL)
	}
	if err := d.dl.Init(); err != nil {
		return err
	}
	d.nt = nt.New(d.dl, d.dl.MaxPayload())

	if err := d.nt.Send(openApplicationAPDU); err != nil {
		return err
	}
	var resp [4]byte
	n, err := d.nt.Recv(resp[:])
	if err != nil {
		return err
	}
	if n != 4 || resp != ([4]byte{}) {
		return ErrOpenApplication
	}
	return nil
}

// Submit enqueues req and returns a Completion the caller waits on. It
// blocks if the queue is full. Once the device is DEAD, descriptors
// complete with OutcomeIO immediately without being enqueued.
func (d *Device) Submit(req Request) (Completion, error) {
	comp := newCompletion()
	if len(req.Tx) > MaxAPDULen || len(req.Rx) > MaxAPDULen {
		comp.signal(OutcomeIO, 0)
		return comp, ErrAPDUTooLarge
	}
	if atomic.LoadInt32(&d.resetCounter) > int32(d.resetBudget) {
		comp.signal(OutcomeIO, 0)
		return comp, nil
	}

	desc := &descriptor{req: req, done: comp}
	select {
	case d.queue <- desc:
		return comp, nil
	case <-d.ctx.Done():
		comp.signal(OutcomeIO, 0)
		return comp, d.ctx.Err()
	}
}

// Shutdown stops the worker goroutine and waits for it to exit. It does
// not itself send a CloseApplication APDU; callers that want a graceful
// element-side shutdown submit that command first.
func (d *Device) Shutdown() {
	d.cancel()
	d.wg.Wait()
}

func (d *Device) run() {
	defer d.wg.Done()
	for {
		select {
		case <-d.ctx.Done():
			return
		case desc := <-d.queue:
			d.handle(desc)
		}
	}
}

func (d *Device) handle(desc *descriptor) {
	if atomic.LoadInt32(&d.resetCounter) > int32(d.resetBudget) {
		desc.done.signal(OutcomeIO, 0)
		return
	}

	n, err := d.roundTrip(desc.req.Tx, desc.req.Rx)
	if err != nil {
		atomic.AddInt32(&d.resetCounter, 1)
		d.log.WithError(err).Warn("transport fault, resetting")
		desc.done.signal(OutcomeIO, 0)
		d.drain()
		if rerr := d.reset(); rerr != nil {
			d.log.WithError(rerr).Error("reset failed")
		}
		return
	}

	// The transport succeeded: whatever the command-level outcome turns out
	// to be below, the element answered, so the fault streak is over.
	atomic.StoreInt32(&d.resetCounter, 0)

	if n == 0 || desc.req.Rx[0] == 0 {
		desc.done.signal(OutcomeSuccess, n)
		return
	}

	code, gerr := d.getErrorCode()
	if gerr != nil {
		d.log.WithError(gerr).Warn("GetErrorCode sub-exchange failed")
		desc.done.signal(OutcomeIO, n)
		return
	}
	desc.done.signal(Outcome(code), n)
}

// drain signals -IO to every descriptor that was already buffered in the
// queue at the moment a transport fault was detected. It snapshots the
// length up front so descriptors submitted after draining begins are left
// for normal processing once the reset completes.
func (d *Device) drain() {
	pending := len(d.queue)
	for i := 0; i < pending; i++ {
		next := <-d.queue
		next.done.signal(OutcomeIO, 0)
	}
}

// roundTrip performs one SendAPDU + RecvAPDU exchange. A non-nil error
// here is always a transport fault.
func (d *Device) roundTrip(tx []byte, rx []byte) (int, error) {
	if err := d.nt.Send(tx); err != nil {
		return 0, err
	}
	return d.nt.Recv(rx)
}

// getErrorCode issues the fixed GetErrorCode sub-exchange and returns the
// element-reported error byte.
func (d *Device) getErrorCode() (byte, error) {
	if err := d.nt.Send(getErrorCodeAPDU); err != nil {
		return 0, err
	}
	var resp [5]byte
	n, err := d.nt.Recv(resp[:])
	if err != nil {
		return 0, err
	}
	if n != 5 || resp[0] != 0 || resp[2] != 0 || resp[3] != 1 {
		return 0, ErrIllegalArgument
	}
	return resp[4], nil
}
