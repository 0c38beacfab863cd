// Package command builds APDU bodies for the secure element's command set
// and decodes their responses, on top of the dispatcher's Submit/Completion
// surface. It never touches the bus directly: every operation here is just
// bytes in, bytes out, mirroring the teacher's pkg/sdo request/response
// encoders sitting on top of its own client dispatch loop.
package command

import (
	"encoding/binary"

	optigatrust "github.com/openoptiga/optigatrust"
)

// Command byte values. GetDataObject/GetErrorCode's values are fixed by the
// wire format in the core's own OpenApplication/GetErrorCode exchanges;
// the remainder are this package's own assignment within the documented
// {cmd, param, len_be16}+TLV envelope.
const (
	cmdGetDataObjectOffset = 0x01 // OID + 2-byte offset + 2-byte length
	cmdSetDataObjectOffset = 0x02
	cmdGenKeyPair          = 0x20
	cmdCalcHash            = 0x30
	cmdCalcSign            = 0x40
	cmdVerifySign          = 0x41
	cmdCalcSSec            = 0x50
	cmdCounterRead         = 0x90
	cmdCounterIncrement    = 0x91
	cmdGetRandom           = 0xB0
	cmdGetDataObjectWhole  = 0x81 // OID only, whole object
	cmdSetDataObjectWhole  = 0x82
	cmdOpenApplication     = 0xF0
	cmdCloseApplication    = 0xF1
)

const headerLen = 4

// buildAPDU assembles the fixed 4-byte header {cmd, param, len_be16}
// followed by body.
func buildAPDU(cmd, param byte, body []byte) []byte {
	apdu := make([]byte, headerLen+len(body))
	apdu[0] = cmd
	apdu[1] = param
	binary.BigEndian.PutUint16(apdu[2:4], uint16(len(body)))
	copy(apdu[headerLen:], body)
	return apdu
}

// responseHeader is the decoded {sta, _, outlen_be16} that prefixes every
// reply, plus the body bytes that follow it.
type responseHeader struct {
	status byte
	body   []byte
}

// parseResponse validates the response envelope: outlen must equal the
// number of body bytes actually delivered.
func parseResponse(rx []byte, n int) (responseHeader, error) {
	if n < headerLen {
		return responseHeader{}, optigatrust.ErrBufferTooSmall
	}
	outlen := binary.BigEndian.Uint16(rx[2:4])
	if int(outlen) != n-headerLen {
		return responseHeader{}, optigatrust.ErrIllegalArgument
	}
	return responseHeader{status: rx[0], body: rx[headerLen:n]}, nil
}

// putOID appends a big-endian 2-byte object identifier.
func putOID(body []byte, oid uint16) []byte {
	return binary.BigEndian.AppendUint16(body, oid)
}
