// Package phy implements the physical layer: framed register read/write
// over the bus, busy-polling, and retry. It never logs — every operation
// returns an explicit error and leaves recovery to the caller.
package phy

import (
	"time"
)

// Bus is the minimal register-transaction surface the physical layer needs.
// Any optigatrust.Bus satisfies this structurally.
type Bus interface {
	RegWrite(addr byte, data []byte) error
	RegRead(addr byte, buf []byte) (int, error)
}

// Register addresses on the secure element.
const (
	RegData      byte = 0x80 // variable-length data FIFO, read and write
	RegDataLen   byte = 0x81 // negotiated DATA_REG_LEN, u16 big-endian, read-only
	RegStatus    byte = 0x82 // status bits, read-only
	RegSoftReset byte = 0x88 // soft-reset trigger, write any value
)

// Status register bit layout.
const (
	StatusBusy      byte = 0x80 // element is busy, do not issue a new transaction
	StatusDataReady byte = 0x01 // a response is available to read via RegData
)

// Tunables, named so tests can shrink them.
const (
	DefaultDataRegLen = 0x40
	MinDataRegLen     = 0x10
	MaxDataRegLen     = 0xFFFF

	NPHY             = 5
	RetryDelay       = 10 * time.Millisecond
	ResetPollDelay   = 5 * time.Millisecond
	DataPollInterval = 1 * time.Millisecond
)

// Clock abstracts time.Sleep so tests can run the retry/poll loops without
// real delay.
type Clock interface {
	Sleep(d time.Duration)
}

type realClock struct{}

func (realClock) Sleep(d time.Duration) { time.Sleep(d) }

// PHY drives one bus peer. It is owned exclusively by the dispatcher worker
// once initialised; nothing above may assume any particular peer state
// survives a failed operation.
type PHY struct {
	bus        Bus
	clock      Clock
	dataRegLen int

	// forcedDataRegLen, when non-zero, skips the RegDataLen negotiation read
	// in Init and uses this value directly. Set by configuration for peers
	// that don't support negotiation (e.g. a virtual bus pinned to a small
	// window to exercise fragmentation).
	forcedDataRegLen int

	nPHY       int
	retryDelay time.Duration
	pollDelay  time.Duration

	// ResetTimeout / DataTimeout bound the busy-polling loops in Init and
	// ReadData respectively.
	ResetTimeout time.Duration
	DataTimeout  time.Duration
}

// New constructs a PHY over bus with default retry/timeout tuning.
func New(bus Bus) *PHY {
	return &PHY{
		bus:          bus,
		clock:        realClock{},
		dataRegLen:   DefaultDataRegLen,
		nPHY:         NPHY,
		retryDelay:   RetryDelay,
		pollDelay:    DataPollInterval,
		ResetTimeout: 200 * time.Millisecond,
		DataTimeout:  50 * time.Millisecond,
	}
}

// SetClock overrides the sleep implementation, for deterministic tests.
func (p *PHY) SetClock(c Clock) { p.clock = c }

// SetNPHY overrides the number of register-transaction retry attempts.
func (p *PHY) SetNPHY(n int) { p.nPHY = n }

// SetRetryDelay overrides the sleep between register-transaction retries.
func (p *PHY) SetRetryDelay(d time.Duration) { p.retryDelay = d }

// SetPollDelay overrides the sleep between busy-status polls.
func (p *PHY) SetPollDelay(d time.Duration) { p.pollDelay = d }

// SetForcedDataRegLen pins the data register window to n, skipping the
// RegDataLen negotiation read on the next Init.
func (p *PHY) SetForcedDataRegLen(n int) { p.forcedDataRegLen = n }

// DataRegLen returns the last-negotiated data register window size.
func (p *PHY) DataRegLen() int { return p.dataRegLen }

func (p *PHY) sleep(d time.Duration) {
	if p.clock != nil {
		p.clock.Sleep(d)
		return
	}
	time.Sleep(d)
}

// regWrite retries a register write up to nPHY times on error, sleeping
// retryDelay between attempts.
func (p *PHY) regWrite(addr byte, data []byte) error {
	var err error
	for attempt := 0; attempt < p.nPHY; attempt++ {
		if err = p.bus.RegWrite(addr, data); err == nil {
			return nil
		}
		p.sleep(p.retryDelay)
	}
	return err
}

// regRead retries a register read up to nPHY times on error.
func (p *PHY) regRead(addr byte, buf []byte) (int, error) {
	var n int
	var err error
	for attempt := 0; attempt < p.nPHY; attempt++ {
		if n, err = p.bus.RegRead(addr, buf); err == nil {
			return n, nil
		}
		p.sleep(p.retryDelay)
	}
	return 0, err
}

// Init issues a soft reset and negotiates the data register window size.
func (p *PHY) Init() error {
	if err := p.regWrite(RegSoftReset, []byte{0x00}); err != nil {
		return err
	}

	deadline := time.Now().Add(p.ResetTimeout)
	var status [1]byte
	for {
		n, err := p.regRead(RegStatus, status[:])
		if err == nil && n == 1 && status[0]&StatusBusy == 0 {
			break
		}
		if time.Now().After(deadline) {
			return errTimeout
		}
		p.sleep(p.pollDelay)
	}

	if p.forcedDataRegLen != 0 {
		p.dataRegLen = p.forcedDataRegLen
		return nil
	}

	var lenBuf [2]byte
	if _, err := p.regRead(RegDataLen, lenBuf[:]); err != nil {
		return err
	}
	negotiated := int(lenBuf[0])<<8 | int(lenBuf[1])
	if negotiated < MinDataRegLen || negotiated > MaxDataRegLen {
		return errRegLenRange
	}
	p.dataRegLen = negotiated
	return nil
}

// WriteData writes one complete data-link frame's worth of bytes to the
// data register. The caller guarantees len(data) <= DataRegLen().
func (p *PHY) WriteData(data []byte) error {
	if len(data) > p.dataRegLen {
		return errTooLarge
	}
	return p.regWrite(RegData, data)
}

// ReadData polls the status register until a response is ready (or the
// deadline passes) and then reads it into buf, returning the number of
// bytes actually delivered.
func (p *PHY) ReadData(buf []byte) (int, error) {
	deadline := time.Now().Add(p.DataTimeout)
	var status [1]byte
	for {
		n, err := p.regRead(RegStatus, status[:])
		if err == nil && n == 1 && status[0]&StatusDataReady != 0 {
			break
		}
		if time.Now().After(deadline) {
			return 0, errTimeout
		}
		p.sleep(p.pollDelay)
	}
	return p.regRead(RegData, buf)
}
