package command

import (
	"context"
	"encoding/binary"
	"fmt"

	optigatrust "github.com/openoptiga/optigatrust"
	"github.com/openoptiga/optigatrust/internal/fifo"
)

// Tag values used in the tag-length-value bodies below. These are this
// package's own assignment within the documented envelope shape, chosen to
// read naturally alongside the OID/offset/length fields each operation
// needs.
const (
	tagOID        = 0x01
	tagOffset     = 0x02
	tagLength     = 0x03
	tagAlgorithm  = 0x04
	tagKeyUsage   = 0x05
	tagDigest     = 0x06
	tagSignature  = 0x07
	tagPublicKey  = 0x08
	tagData       = 0x09
	tagCount      = 0x0A
	tagSessionOID = 0x0B
)

// Algorithm identifies a key/signature scheme understood by GenKeyPair,
// CalcSign, VerifySign and CalcSSec.
type Algorithm byte

const (
	AlgNISTP256 Algorithm = 0x03
	AlgNISTP384 Algorithm = 0x04
	AlgNISTP521 Algorithm = 0x05
	AlgRSA1024  Algorithm = 0x41
	AlgRSA2048  Algorithm = 0x42
)

// KeyUsage flags which operations a generated key pair may be used for,
// matching the bitfield the element enforces on every CalcSign/CalcSSec
// issued against that OID afterward.
type KeyUsage byte

const (
	KeyUsageSignature      KeyUsage = 1 << 0
	KeyUsageKeyAgreement   KeyUsage = 1 << 1
	KeyUsageAuthentication KeyUsage = 1 << 2
)

// Reserved object identifiers. ErrorCodeOID is handled internally by the
// dispatcher itself; the rest are ordinary OIDs an application picks from
// the element's provisioned object map.
const (
	ErrorCodeOID uint16 = 0xF1C2
)

func putTLV(body []byte, tag byte, value []byte) []byte {
	body = append(body, tag)
	body = binary.BigEndian.AppendUint16(body, uint16(len(value)))
	return append(body, value...)
}

func u16(v uint16) []byte {
	b := make([]byte, 2)
	binary.BigEndian.PutUint16(b, v)
	return b
}

// GetDataObject reads length bytes starting at offset from the object oid.
// A zero length with a zero offset reads the object in full.
func (c *Command) GetDataObject(ctx context.Context, oid, offset, length uint16) ([]byte, error) {
	var body []byte
	cmd := byte(cmdGetDataObjectWhole)
	if offset != 0 || length != 0 {
		cmd = cmdGetDataObjectOffset
		body = putTLV(body, tagOID, u16(oid))
		body = putTLV(body, tagOffset, u16(offset))
		body = putTLV(body, tagLength, u16(length))
	} else {
		// The whole-object form carries a bare OID, no TLV wrapper: this is
		// the fixed shape of the ChipID exchange ({81 00 00 02 E0 C2}).
		body = u16(oid)
	}

	apdu := buildAPDU(cmd, 0, body)
	hdr, outcome, err := c.exchange(ctx, apdu, maxResponse)
	if err != nil {
		return nil, err
	}
	if outcome != optigatrust.OutcomeSuccess {
		return nil, &CommandError{Outcome: outcome}
	}
	return hdr.body, nil
}

// SetDataObject writes data into the object oid starting at offset. A
// zero offset with data spanning the whole object overwrites it in full.
func (c *Command) SetDataObject(ctx context.Context, oid, offset uint16, data []byte) error {
	var body []byte
	cmd := byte(cmdSetDataObjectWhole)
	if offset != 0 {
		cmd = cmdSetDataObjectOffset
		body = putTLV(body, tagOID, u16(oid))
		body = putTLV(body, tagOffset, u16(offset))
		body = putTLV(body, tagData, data)
	} else {
		// Mirrors GetDataObject's whole-object form: bare OID followed by
		// the raw data, no TLV wrapper.
		body = append(body, u16(oid)...)
		body = append(body, data...)
	}

	apdu := buildAPDU(cmd, 0, body)
	_, outcome, err := c.exchange(ctx, apdu, maxResponse)
	if err != nil {
		return err
	}
	if outcome != optigatrust.OutcomeSuccess {
		return &CommandError{Outcome: outcome}
	}
	return nil
}

// CalcHash sha256-hashes a flat input in a single APDU when it already fits
// the transport's MTU; larger inputs should be chunked by the caller with
// CalcHashStart/CalcHashUpdate/CalcHashFinalize instead.
func (c *Command) CalcHash(ctx context.Context, data []byte) ([]byte, error) {
	var body []byte
	body = putTLV(body, tagData, data)
	apdu := buildAPDU(cmdCalcHash, hashCtxOneShot, body)
	return c.hashExchange(ctx, apdu)
}

// Hash framing parameters, carried in the APDU's param byte: one-shot for
// data that fits a single APDU, or start/update/finalize for data spread
// over several, mirroring the element's own internal hash engine state.
const (
	hashCtxOneShot  byte = 0x00
	hashCtxStart    byte = 0x01
	hashCtxUpdate   byte = 0x02
	hashCtxFinalize byte = 0x03
)

// CalcHashStart begins a multi-part hash, sending the first chunk of data.
func (c *Command) CalcHashStart(ctx context.Context, chunk []byte) error {
	var body []byte
	body = putTLV(body, tagData, chunk)
	apdu := buildAPDU(cmdCalcHash, hashCtxStart, body)
	_, outcome, err := c.exchange(ctx, apdu, maxResponse)
	if err != nil {
		return err
	}
	if outcome != optigatrust.OutcomeSuccess {
		return &CommandError{Outcome: outcome}
	}
	return nil
}

// CalcHashUpdate feeds an intermediate chunk into a hash started with
// CalcHashStart.
func (c *Command) CalcHashUpdate(ctx context.Context, chunk []byte) error {
	var body []byte
	body = putTLV(body, tagData, chunk)
	apdu := buildAPDU(cmdCalcHash, hashCtxUpdate, body)
	_, outcome, err := c.exchange(ctx, apdu, maxResponse)
	if err != nil {
		return err
	}
	if outcome != optigatrust.OutcomeSuccess {
		return &CommandError{Outcome: outcome}
	}
	return nil
}

// CalcHashFinalize feeds the last chunk (which may be empty) and returns the
// completed digest.
func (c *Command) CalcHashFinalize(ctx context.Context, chunk []byte) ([]byte, error) {
	var body []byte
	body = putTLV(body, tagData, chunk)
	apdu := buildAPDU(cmdCalcHash, hashCtxFinalize, body)
	return c.hashExchange(ctx, apdu)
}

// CalcHashStream hashes data of arbitrary length by staging it through a
// ring buffer and issuing CalcHashStart/CalcHashUpdate/CalcHashFinalize in
// chunkSize-sized pieces, mirroring how the element's own hash engine
// consumes a digest fed in several APDUs instead of one.
func (c *Command) CalcHashStream(ctx context.Context, data []byte, chunkSize int) ([]byte, error) {
	if chunkSize <= 0 {
		return nil, optigatrust.ErrIllegalArgument
	}

	buf := fifo.New(len(data) + 1)
	buf.Write(data, nil)

	if buf.Occupied() <= chunkSize {
		chunk := make([]byte, buf.Occupied())
		buf.Read(chunk)
		return c.CalcHash(ctx, chunk)
	}

	chunk := make([]byte, chunkSize)
	n := buf.Read(chunk)
	if err := c.CalcHashStart(ctx, chunk[:n]); err != nil {
		return nil, err
	}
	for buf.Occupied() > chunkSize {
		n = buf.Read(chunk)
		if err := c.CalcHashUpdate(ctx, chunk[:n]); err != nil {
			return nil, err
		}
	}
	n = buf.Read(chunk)
	return c.CalcHashFinalize(ctx, chunk[:n])
}

func (c *Command) hashExchange(ctx context.Context, apdu []byte) ([]byte, error) {
	hdr, outcome, err := c.exchange(ctx, apdu, maxResponse)
	if err != nil {
		return nil, err
	}
	if outcome != optigatrust.OutcomeSuccess {
		return nil, &CommandError{Outcome: outcome}
	}
	return hdr.body, nil
}

// GenKeyPair asks the element to generate a key pair of the given algorithm
// inside privateOID, restricted to usage, and returns the public key in the
// element's own export encoding (uncompressed EC point, or RSA modulus and
// exponent).
func (c *Command) GenKeyPair(ctx context.Context, privateOID uint16, alg Algorithm, usage KeyUsage) ([]byte, error) {
	var body []byte
	body = putTLV(body, tagOID, u16(privateOID))
	body = putTLV(body, tagAlgorithm, []byte{byte(alg)})
	body = putTLV(body, tagKeyUsage, []byte{byte(usage)})

	apdu := buildAPDU(cmdGenKeyPair, 0, body)
	hdr, outcome, err := c.exchange(ctx, apdu, maxResponse)
	if err != nil {
		return nil, err
	}
	if outcome != optigatrust.OutcomeSuccess {
		return nil, &CommandError{Outcome: outcome}
	}
	return hdr.body, nil
}

// CalcSign signs digest with the private key held in keyOID and returns the
// element's signature encoding (ASN.1 DER for ECDSA, raw big-endian for
// RSASSA).
func (c *Command) CalcSign(ctx context.Context, keyOID uint16, alg Algorithm, digest []byte) ([]byte, error) {
	var body []byte
	body = putTLV(body, tagOID, u16(keyOID))
	body = putTLV(body, tagAlgorithm, []byte{byte(alg)})
	body = putTLV(body, tagDigest, digest)

	apdu := buildAPDU(cmdCalcSign, 0, body)
	hdr, outcome, err := c.exchange(ctx, apdu, maxResponse)
	if err != nil {
		return nil, err
	}
	if outcome != optigatrust.OutcomeSuccess {
		return nil, &CommandError{Outcome: outcome}
	}
	return hdr.body, nil
}

// VerifySign asks the element to verify signature over digest against the
// public key in keyOID (or an inline public key, when pubKey is non-nil).
func (c *Command) VerifySign(ctx context.Context, keyOID uint16, alg Algorithm, digest, signature, pubKey []byte) error {
	var body []byte
	body = putTLV(body, tagOID, u16(keyOID))
	body = putTLV(body, tagAlgorithm, []byte{byte(alg)})
	body = putTLV(body, tagDigest, digest)
	body = putTLV(body, tagSignature, signature)
	if pubKey != nil {
		body = putTLV(body, tagPublicKey, pubKey)
	}

	apdu := buildAPDU(cmdVerifySign, 0, body)
	_, outcome, err := c.exchange(ctx, apdu, maxResponse)
	if err != nil {
		return err
	}
	if outcome != optigatrust.OutcomeSuccess {
		return &CommandError{Outcome: outcome}
	}
	return nil
}

// CalcSSec derives an ECDH shared secret from the private key in privOID
// and peerPublicKey, storing it in the volatile session object sessionOID
// rather than returning it to the host.
func (c *Command) CalcSSec(ctx context.Context, privOID uint16, peerPublicKey []byte, sessionOID uint16) error {
	var body []byte
	body = putTLV(body, tagOID, u16(privOID))
	body = putTLV(body, tagPublicKey, peerPublicKey)
	body = putTLV(body, tagSessionOID, u16(sessionOID))

	apdu := buildAPDU(cmdCalcSSec, 0, body)
	_, outcome, err := c.exchange(ctx, apdu, maxResponse)
	if err != nil {
		return err
	}
	if outcome != optigatrust.OutcomeSuccess {
		return &CommandError{Outcome: outcome}
	}
	return nil
}

// GetRandom draws n bytes (up to 256) from the element's TRNG.
func (c *Command) GetRandom(ctx context.Context, n int) ([]byte, error) {
	if n <= 0 || n > 256 {
		return nil, optigatrust.ErrIllegalArgument
	}
	var body []byte
	body = putTLV(body, tagCount, u16(uint16(n)))

	apdu := buildAPDU(cmdGetRandom, 0, body)
	hdr, outcome, err := c.exchange(ctx, apdu, headerLen+n)
	if err != nil {
		return nil, err
	}
	if outcome != optigatrust.OutcomeSuccess {
		return nil, &CommandError{Outcome: outcome}
	}
	return hdr.body, nil
}

// CounterRead returns the current value of the monotonic counter held in
// oid.
func (c *Command) CounterRead(ctx context.Context, oid uint16) (uint32, error) {
	var body []byte
	body = putTLV(body, tagOID, u16(oid))

	apdu := buildAPDU(cmdCounterRead, 0, body)
	hdr, outcome, err := c.exchange(ctx, apdu, maxResponse)
	if err != nil {
		return 0, err
	}
	if outcome != optigatrust.OutcomeSuccess {
		return 0, &CommandError{Outcome: outcome}
	}
	if len(hdr.body) != 4 {
		return 0, optigatrust.ErrIllegalArgument
	}
	return binary.BigEndian.Uint32(hdr.body), nil
}

// CounterIncrement advances the monotonic counter in oid by step. The
// element rejects the increment once the counter's provisioned threshold is
// reached; the resulting command error surfaces as a CommandError.
func (c *Command) CounterIncrement(ctx context.Context, oid uint16, step byte) error {
	var body []byte
	body = putTLV(body, tagOID, u16(oid))
	body = putTLV(body, tagCount, []byte{step})

	apdu := buildAPDU(cmdCounterIncrement, 0, body)
	_, outcome, err := c.exchange(ctx, apdu, maxResponse)
	if err != nil {
		return err
	}
	if outcome != optigatrust.OutcomeSuccess {
		return &CommandError{Outcome: outcome}
	}
	return nil
}

// CloseApplication issues the element's lifecycle shutdown command. Callers
// that want a graceful element-side close submit this before calling
// Device.Shutdown, which only stops the local worker goroutine.
func (c *Command) CloseApplication(ctx context.Context) error {
	apdu := buildAPDU(cmdCloseApplication, 0, nil)
	_, outcome, err := c.exchange(ctx, apdu, maxResponse)
	if err != nil {
		return err
	}
	if outcome != optigatrust.OutcomeSuccess {
		return &CommandError{Outcome: outcome}
	}
	return nil
}

// CommandError wraps a non-zero, non-transport Outcome reported by the
// element for one command, distinguishing it from the transport-level
// OutcomeIO that exchange already treats as a Go error.
type CommandError struct {
	Outcome optigatrust.Outcome
}

func (e *CommandError) Error() string {
	return fmt.Sprintf("optiga: element reported command error 0x%02x", int(e.Outcome))
}
