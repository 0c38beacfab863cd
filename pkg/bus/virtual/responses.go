package virtual

import "bytes"

var openApplicationAPDU = []byte{
	0xF0, 0x00, 0x00, 0x10,
	0xD2, 0x76, 0x00, 0x00, 0x04, 0x47, 0x65, 0x6E, 0x41, 0x75, 0x74, 0x68, 0x41, 0x70, 0x70, 0x6C,
}

var getErrorCodeAPDU = []byte{0x01, 0x00, 0x00, 0x06, 0xF1, 0xC2, 0x00, 0x00, 0x00, 0x01}

var chipIDAPDU = []byte{0x81, 0x00, 0x00, 0x02, 0xE0, 0xC2}

// DefaultResponder implements the three fixed exchanges the dispatcher
// relies on (OpenApplication, GetErrorCode, ChipID), answers GetRandom with
// the requested number of bytes and a counter read with a zero 4-byte
// value, and otherwise echoes a
// synthetic success reply sized to the request, which is enough to drive
// fragmentation through the network/transport layer in tests. GetErrorCode
// always reports error byte 0; use NewFaultResponder to script a non-zero
// command error.
func DefaultResponder(apdu []byte) []byte {
	return NewFaultResponder(0)(apdu)
}

// NewFaultResponder builds a Responder identical to DefaultResponder except
// that GetErrorCode reports errorCode, for exercising the dispatcher's
// element-reported-error path.
func NewFaultResponder(errorCode byte) Responder {
	return func(apdu []byte) []byte {
		return respond(apdu, errorCode)
	}
}

func respond(apdu []byte, errorCode byte) []byte {
	switch {
	case bytes.Equal(apdu, openApplicationAPDU):
		return []byte{0x00, 0x00, 0x00, 0x00}
	case bytes.Equal(apdu, getErrorCodeAPDU):
		return []byte{0x00, 0x00, 0x00, 0x01, errorCode}
	case bytes.Equal(apdu, chipIDAPDU):
		resp := make([]byte, 4+27)
		resp[3] = 0x1B
		for i := range resp[4:] {
			resp[4+i] = byte(i)
		}
		return resp
	case len(apdu) >= 9 && apdu[0] == 0xB0: // GetRandom, count in its single TLV
		n := int(apdu[7])<<8 | int(apdu[8])
		resp := make([]byte, 4+n)
		resp[2], resp[3] = byte(n>>8), byte(n)
		for i := range resp[4:] {
			resp[4+i] = byte(i)
		}
		return resp
	case len(apdu) >= 1 && apdu[0] == 0x90: // counter read
		return []byte{0x00, 0x00, 0x00, 0x04, 0x00, 0x00, 0x00, 0x00}
	default:
		// Generic success echo: byte 0 = 0x00, remainder mirrors the body
		// the caller sent so fragmented round-trips are verifiable in tests.
		resp := make([]byte, len(apdu))
		copy(resp, apdu)
		if len(resp) > 0 {
			resp[0] = 0x00
		}
		return resp
	}
}
