// Package nt implements the network/transport layer: it fragments one APDU
// into chain-flagged packets that fit the data-link MTU on transmit, and
// reassembles them into a single APDU buffer on receive. Like the layers
// beneath it, it never logs.
package nt

// Packet control byte, bits 7 and 6 only; remaining bits reserved zero.
const (
	chainOnly  byte = 0xC0 // 11: single-fragment APDU
	chainFirst byte = 0x80 // 10: first of several fragments
	chainMid   byte = 0x00 // 00: interior fragment
	chainLast  byte = 0x40 // 01: final fragment

	packetHeaderLen = 1
)

// Dl is the minimal data-link surface the network/transport layer needs.
// Any *dl.DL satisfies this structurally.
type Dl interface {
	Send(payload []byte) error
	Recv(buf []byte) (int, error)
}

// NT fragments and reassembles APDUs over a data-link peer.
type NT struct {
	dl  Dl
	mtu int
}

// New constructs an NT over dl with the data-link frame's maximum payload
// size (before the 1-byte packet header is added).
func New(dl Dl, dlMaxPayload int) *NT {
	return &NT{dl: dl, mtu: dlMaxPayload - packetHeaderLen}
}

// MTU returns the maximum APDU fragment size carried by one frame.
func (n *NT) MTU() int { return n.mtu }

// Send fragments apdu into MTU-sized chunks, each prefixed with a chain
// control byte, and writes each as one data-link frame in order.
func (n *NT) Send(apdu []byte) error {
	if n.mtu <= 0 {
		return errChain
	}
	if len(apdu) == 0 {
		return n.dl.Send([]byte{chainOnly})
	}

	for offset := 0; offset < len(apdu); offset += n.mtu {
		end := offset + n.mtu
		if end > len(apdu) {
			end = len(apdu)
		}
		fragment := apdu[offset:end]

		var ctrl byte
		switch {
		case offset == 0 && end == len(apdu):
			ctrl = chainOnly
		case offset == 0:
			ctrl = chainFirst
		case end == len(apdu):
			ctrl = chainLast
		default:
			ctrl = chainMid
		}

		packet := make([]byte, 0, packetHeaderLen+len(fragment))
		packet = append(packet, ctrl)
		packet = append(packet, fragment...)
		if err := n.dl.Send(packet); err != nil {
			return err
		}
	}
	return nil
}

// Recv reassembles a complete APDU into buf, returning the number of bytes
// delivered. It enforces chain ordering (FIRST/ONLY must lead, MIDDLE only
// follows FIRST/MIDDLE, LAST/ONLY terminates) and caller buffer capacity.
func (n *NT) Recv(buf []byte) (int, error) {
	scratch := make([]byte, n.mtu+packetHeaderLen+1)
	total := 0
	started := false

	for {
		pn, err := n.dl.Recv(scratch)
		if err != nil {
			return 0, err
		}
		if pn < packetHeaderLen {
			return 0, errChain
		}
		ctrl := scratch[0] & 0xC0
		fragment := scratch[packetHeaderLen:pn]

		switch ctrl {
		case chainOnly:
			if started {
				return 0, errChain
			}
			if total+len(fragment) > len(buf) {
				return 0, errOverflow
			}
			total += copy(buf[total:], fragment)
			return total, nil
		case chainFirst:
			if started {
				return 0, errChain
			}
			started = true
			if total+len(fragment) > len(buf) {
				return 0, errOverflow
			}
			total += copy(buf[total:], fragment)
		case chainMid:
			if !started {
				return 0, errChain
			}
			if total+len(fragment) > len(buf) {
				return 0, errOverflow
			}
			total += copy(buf[total:], fragment)
		case chainLast:
			if !started {
				return 0, errChain
			}
			if total+len(fragment) > len(buf) {
				return 0, errOverflow
			}
			total += copy(buf[total:], fragment)
			return total, nil
		default:
			return 0, errChain
		}
	}
}
