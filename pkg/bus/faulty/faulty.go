// Package faulty wraps an optigatrust.Bus and injects transaction-level
// faults on demand, so resilience scenarios (corrupted frames, NACKing
// peers, unresponsive peers) can be exercised against the real PHY/DL/NT
// stack instead of being special-cased in it.
package faulty

import (
	"errors"
	"sync"

	optigatrust "github.com/openoptiga/optigatrust"
	"github.com/openoptiga/optigatrust/internal/phy"
)

var errInjected = errors.New("faulty: injected bus fault")

// Bus decorates another Bus, counting down scripted faults as transactions
// pass through it.
type Bus struct {
	inner optigatrust.Bus

	mu sync.Mutex

	corruptReads     int // remaining RegRead(RegData,...) calls to corrupt
	failWrites       int // remaining RegWrite calls to fail
	alwaysFailWrites bool
}

// Wrap returns a Bus that forwards every transaction to inner unless a
// fault has been scripted against it.
func Wrap(inner optigatrust.Bus) *Bus {
	return &Bus{inner: inner}
}

// CorruptNextReads arranges for the next n RegRead(RegData, ...) calls to
// have their last byte flipped, simulating a corrupted frame on the wire
// (FCS mismatch at the data-link layer). Status and length reads are never
// corrupted, since real bit errors on those registers would just make the
// element look unreachable rather than exercise frame-integrity recovery.
func (b *Bus) CorruptNextReads(n int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.corruptReads = n
}

// FailNextWrites arranges for the next n RegWrite calls to return an error,
// simulating a NACKing peer.
func (b *Bus) FailNextWrites(n int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failWrites = n
}

// AlwaysFailWrites makes every RegWrite fail until cleared, simulating a
// peer that never acknowledges anything.
func (b *Bus) AlwaysFailWrites(always bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.alwaysFailWrites = always
}

func (b *Bus) Connect(args ...any) error { return b.inner.Connect(args...) }
func (b *Bus) Disconnect() error         { return b.inner.Disconnect() }

func (b *Bus) RegWrite(addr byte, data []byte) error {
	b.mu.Lock()
	fail := b.alwaysFailWrites
	if !fail && b.failWrites > 0 {
		b.failWrites--
		fail = true
	}
	b.mu.Unlock()

	if fail {
		return errInjected
	}
	return b.inner.RegWrite(addr, data)
}

func (b *Bus) RegRead(addr byte, buf []byte) (int, error) {
	n, err := b.inner.RegRead(addr, buf)
	if err != nil || addr != phy.RegData {
		return n, err
	}

	b.mu.Lock()
	corrupt := b.corruptReads > 0
	if corrupt {
		b.corruptReads--
	}
	b.mu.Unlock()

	if corrupt && n > 0 {
		buf[n-1] ^= 0xFF
	}
	return n, err
}
