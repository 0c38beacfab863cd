// Package virtual implements an in-process simulated secure element: a Bus
// that understands the same register protocol a real OPTIGA part exposes,
// for use in integration tests and the optigactl CLI's demo mode without
// any hardware attached. It is grounded on the teacher's TCP-loopback
// virtual CAN bus, adapted from a wire-framed datagram transport to a
// register read/write transaction transport.
package virtual

import (
	"encoding/binary"
	"sync"

	optigatrust "github.com/openoptiga/optigatrust"
	"github.com/openoptiga/optigatrust/internal/crc"
	"github.com/openoptiga/optigatrust/internal/phy"
)

func init() {
	optigatrust.RegisterInterface("virtual", New)
}

// Responder maps a fully reassembled APDU to the element's reply APDU.
type Responder func(apdu []byte) []byte

// frame header bit layout, mirroring internal/dl's on-wire format. Kept as
// a private copy here: a real chip's firmware does not share code with the
// host driver, it only has to agree on the wire format.
const (
	kindBit  = 0x80
	ackShift = 3
	ackMask  = 0x03
	seqMask  = 0x03
	syncBit  = 0x04

	headerLen = 3
	fcsLen    = 2
)

const (
	chainOnly  = 0xC0
	chainFirst = 0x80
	chainMid   = 0x00
	chainLast  = 0x40
)

func encodeFrame(control byte, payload []byte) []byte {
	frame := make([]byte, headerLen+len(payload)+fcsLen)
	frame[0] = control
	frame[1] = byte(len(payload) >> 8)
	frame[2] = byte(len(payload))
	copy(frame[headerLen:], payload)
	sum := crc.Of(frame[:headerLen+len(payload)])
	frame[len(frame)-2] = byte(sum >> 8)
	frame[len(frame)-1] = byte(sum)
	return frame
}

func decodeFrame(frame []byte) (fctr byte, payload []byte, ok bool) {
	if len(frame) < headerLen+fcsLen {
		return 0, nil, false
	}
	length := int(frame[1])<<8 | int(frame[2])
	if headerLen+length+fcsLen != len(frame) {
		return 0, nil, false
	}
	want := crc.Of(frame[:headerLen+length])
	got := uint16(frame[len(frame)-2])<<8 | uint16(frame[len(frame)-1])
	if uint16(want) != got {
		return 0, nil, false
	}
	return frame[0], frame[headerLen : headerLen+length], true
}

// Element is a minimal, protocol-correct secure element simulator. Register
// transactions are ordinary synchronous method calls: there is no real bus
// latency to model unless a caller wraps an Element in pkg/bus/faulty.
type Element struct {
	mu sync.Mutex

	channel    string
	dataRegLen int
	respond    Responder

	rxSeq       uint8
	txSeq       uint8
	reassembly  []byte
	chainOpen   bool
	pending     [][]byte
	lastAnswer  [][]byte
	haveAnswer  bool
}

// New constructs an Element, satisfying optigatrust.NewInterfaceFunc so it
// can be registered under a bus name and looked up via optigatrust.NewBus.
func New(channel string) (optigatrust.Bus, error) {
	return &Element{
		channel:    channel,
		dataRegLen: phy.DefaultDataRegLen,
		respond:    DefaultResponder,
	}, nil
}

// SetDataRegLen overrides the negotiated data register window advertised
// on reset. Must be called before the owning PHY calls Init.
func (e *Element) SetDataRegLen(n int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.dataRegLen = n
}

// SetResponder overrides the function used to turn a reassembled APDU into
// a reply APDU.
func (e *Element) SetResponder(r Responder) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.respond = r
}

func (e *Element) Connect(...any) error { return nil }
func (e *Element) Disconnect() error    { return nil }

func (e *Element) RegWrite(addr byte, data []byte) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	switch addr {
	case phy.RegSoftReset:
		e.rxSeq, e.txSeq = 0, 0
		e.reassembly = nil
		e.chainOpen = false
		e.pending = nil
		e.lastAnswer = nil
		e.haveAnswer = false
		return nil
	case phy.RegData:
		e.receiveFrame(data)
		return nil
	}
	return nil
}

func (e *Element) RegRead(addr byte, buf []byte) (int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	switch addr {
	case phy.RegStatus:
		var status byte
		if len(e.pending) > 0 {
			status |= phy.StatusDataReady
		}
		buf[0] = status
		return 1, nil
	case phy.RegDataLen:
		binary.BigEndian.PutUint16(buf, uint16(e.dataRegLen))
		return 2, nil
	case phy.RegData:
		if len(e.pending) == 0 {
			return 0, nil
		}
		next := e.pending[0]
		e.pending = e.pending[1:]
		n := copy(buf, next)
		return n, nil
	}
	return 0, nil
}

// receiveFrame processes one incoming data-link frame from the client.
func (e *Element) receiveFrame(raw []byte) {
	fctr, payload, ok := decodeFrame(raw)
	if !ok {
		return // a corrupted request is simply dropped; the client will time out and retry
	}
	isControl := fctr&kindBit != 0
	seq := fctr & seqMask

	if isControl {
		if len(payload) > 0 && payload[0] == 0x01 { // SYNC
			e.rxSeq = 0
			e.reassembly = nil
			e.chainOpen = false
		}
		return
	}

	switch seq {
	case e.rxSeq:
		e.rxSeq = (e.rxSeq + 1) & seqMask
		e.acceptPacket(payload)
	case (e.rxSeq - 1) & seqMask:
		// Client retransmitted a request whose response it never
		// confidently received; resend the cached answer unchanged.
		if e.haveAnswer {
			e.pending = append(e.pending, e.lastAnswer...)
		}
	default:
		// Out of window: nothing sensible to do but wait for the client's
		// own SYNC; a real chip would also emit one here.
	}
}

// acceptPacket reassembles network/transport packets into an APDU and, once
// a chain completes, dispatches it and queues the framed reply.
func (e *Element) acceptPacket(packet []byte) {
	if len(packet) == 0 {
		return
	}
	ctrl := packet[0] & 0xC0
	fragment := packet[1:]

	switch ctrl {
	case chainOnly:
		e.reassembly = append([]byte(nil), fragment...)
		e.dispatch()
	case chainFirst:
		e.reassembly = append([]byte(nil), fragment...)
		e.chainOpen = true
	case chainMid:
		if e.chainOpen {
			e.reassembly = append(e.reassembly, fragment...)
		}
	case chainLast:
		if e.chainOpen {
			e.reassembly = append(e.reassembly, fragment...)
			e.chainOpen = false
			e.dispatch()
		}
	}
}

// dispatch runs the configured Responder over the completed APDU and
// fragments the reply into data-link frames ready to be read back.
func (e *Element) dispatch() {
	apdu := e.reassembly
	e.reassembly = nil
	reply := e.respond(apdu)

	mtu := e.dataRegLen - headerLen - fcsLen - 1
	if mtu <= 0 {
		mtu = 1
	}

	var frames [][]byte
	if len(reply) == 0 {
		frames = append(frames, encodeReplyFrame(e.txSeq, e.rxSeq, chainOnly, nil))
		e.txSeq = (e.txSeq + 1) & seqMask
	} else {
		for offset := 0; offset < len(reply); offset += mtu {
			end := offset + mtu
			if end > len(reply) {
				end = len(reply)
			}
			var ctrl byte
			switch {
			case offset == 0 && end == len(reply):
				ctrl = chainOnly
			case offset == 0:
				ctrl = chainFirst
			case end == len(reply):
				ctrl = chainLast
			default:
				ctrl = chainMid
			}
			frames = append(frames, encodeReplyFrame(e.txSeq, e.rxSeq, ctrl, reply[offset:end]))
			e.txSeq = (e.txSeq + 1) & seqMask
		}
	}

	e.lastAnswer = frames
	e.haveAnswer = true
	e.pending = append(e.pending, frames...)
}

func encodeReplyFrame(seq, ack uint8, chainCtrl byte, fragment []byte) []byte {
	packet := make([]byte, 0, 1+len(fragment))
	packet = append(packet, chainCtrl)
	packet = append(packet, fragment...)

	fctr := (ack&ackMask)<<ackShift | (seq & seqMask)
	return encodeFrame(fctr, packet)
}
