package command

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	optigatrust "github.com/openoptiga/optigatrust"
)

// fakeSubmitter answers every Submit with a scripted response, bypassing the
// dispatcher and transport entirely so these tests exercise only the
// encode/decode logic in apdu.go and requests.go.
type fakeSubmitter struct {
	outcome  optigatrust.Outcome
	response []byte // full {sta,_,outlen_be16}+body envelope to copy into rx
	lastTx   []byte
}

func (f *fakeSubmitter) Submit(req optigatrust.Request) (optigatrust.Completion, error) {
	f.lastTx = append([]byte(nil), req.Tx...)
	n := copy(req.Rx, f.response)
	return optigatrust.NewCompletion(f.outcome, n), nil
}

func envelope(status byte, body []byte) []byte {
	out := make([]byte, 4+len(body))
	out[0] = status
	out[2] = byte(len(body) >> 8)
	out[3] = byte(len(body))
	copy(out[4:], body)
	return out
}

func TestGetDataObjectWholeUsesOID(t *testing.T) {
	body := []byte{0xDE, 0xAD, 0xBE, 0xEF}
	sub := &fakeSubmitter{outcome: optigatrust.OutcomeSuccess, response: envelope(0x00, body)}
	c := New(sub)

	got, err := c.GetDataObject(context.Background(), 0xE0C2, 0, 0)
	require.NoError(t, err)
	assert.Equal(t, body, got)
	assert.Equal(t, byte(cmdGetDataObjectWhole), sub.lastTx[0])
}

func TestGetDataObjectOffsetUsesOffsetForm(t *testing.T) {
	sub := &fakeSubmitter{outcome: optigatrust.OutcomeSuccess, response: envelope(0x00, []byte{0x01})}
	c := New(sub)

	_, err := c.GetDataObject(context.Background(), 0xE0C2, 4, 1)
	require.NoError(t, err)
	assert.Equal(t, byte(cmdGetDataObjectOffset), sub.lastTx[0])
}

func TestGetDataObjectSurfacesCommandError(t *testing.T) {
	sub := &fakeSubmitter{outcome: optigatrust.Outcome(0x2A)}
	c := New(sub)

	_, err := c.GetDataObject(context.Background(), 0xE0C2, 0, 0)
	require.Error(t, err)
	var cerr *CommandError
	require.ErrorAs(t, err, &cerr)
	assert.Equal(t, optigatrust.Outcome(0x2A), cerr.Outcome)
}

func TestCalcHashOneShot(t *testing.T) {
	digest := make([]byte, 32)
	for i := range digest {
		digest[i] = byte(i)
	}
	sub := &fakeSubmitter{outcome: optigatrust.OutcomeSuccess, response: envelope(0x00, digest)}
	c := New(sub)

	got, err := c.CalcHash(context.Background(), []byte("hello world"))
	require.NoError(t, err)
	assert.Equal(t, digest, got)
	assert.Equal(t, hashCtxOneShot, sub.lastTx[1])
}

func TestCalcHashStartUpdateFinalize(t *testing.T) {
	sub := &fakeSubmitter{outcome: optigatrust.OutcomeSuccess, response: envelope(0x00, nil)}
	c := New(sub)

	require.NoError(t, c.CalcHashStart(context.Background(), []byte("chunk one")))
	assert.Equal(t, hashCtxStart, sub.lastTx[1])

	require.NoError(t, c.CalcHashUpdate(context.Background(), []byte("chunk two")))
	assert.Equal(t, hashCtxUpdate, sub.lastTx[1])

	digest := make([]byte, 32)
	sub.response = envelope(0x00, digest)
	got, err := c.CalcHashFinalize(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, digest, got)
	assert.Equal(t, hashCtxFinalize, sub.lastTx[1])
}

func TestCalcHashStreamChunksLargeInputThroughStartUpdateFinalize(t *testing.T) {
	data := make([]byte, 25)
	for i := range data {
		data[i] = byte(i)
	}

	// Drive the stream with a submitter that records each param byte in
	// order, then answers the finalize call with a digest.
	rec := &recordingSubmitter{fakeSubmitter: fakeSubmitter{outcome: optigatrust.OutcomeSuccess}}
	c := New(rec)
	digest := make([]byte, 32)
	rec.finalizeResponse = envelope(0x00, digest)
	rec.response = envelope(0x00, nil)

	got, err := c.CalcHashStream(context.Background(), data, 10)
	require.NoError(t, err)
	assert.Equal(t, digest, got)

	require.Len(t, rec.params, 3)
	assert.Equal(t, hashCtxStart, rec.params[0])
	assert.Equal(t, hashCtxUpdate, rec.params[1])
	assert.Equal(t, hashCtxFinalize, rec.params[2])
}

func TestCalcHashStreamSmallInputIsOneShot(t *testing.T) {
	digest := make([]byte, 32)
	sub := &fakeSubmitter{outcome: optigatrust.OutcomeSuccess, response: envelope(0x00, digest)}
	c := New(sub)

	got, err := c.CalcHashStream(context.Background(), []byte("short"), 64)
	require.NoError(t, err)
	assert.Equal(t, digest, got)
	assert.Equal(t, hashCtxOneShot, sub.lastTx[1])
}

// recordingSubmitter answers every exchange with response, except the final
// call (identified by the finalize param byte) which answers with
// finalizeResponse; it records the param byte of every APDU it sees.
type recordingSubmitter struct {
	fakeSubmitter
	finalizeResponse []byte
	params           []byte
}

func (r *recordingSubmitter) Submit(req optigatrust.Request) (optigatrust.Completion, error) {
	r.params = append(r.params, req.Tx[1])
	var n int
	if req.Tx[1] == hashCtxFinalize {
		n = copy(req.Rx, r.finalizeResponse)
	} else {
		n = copy(req.Rx, r.response)
	}
	return optigatrust.NewCompletion(r.outcome, n), nil
}

func TestGenKeyPairReturnsPublicKey(t *testing.T) {
	pub := append([]byte{0x04}, make([]byte, 64)...) // uncompressed EC point
	sub := &fakeSubmitter{outcome: optigatrust.OutcomeSuccess, response: envelope(0x00, pub)}
	c := New(sub)

	got, err := c.GenKeyPair(context.Background(), 0xE0F0, AlgNISTP256, KeyUsageSignature)
	require.NoError(t, err)
	assert.Equal(t, pub, got)
	assert.Equal(t, byte(cmdGenKeyPair), sub.lastTx[0])
}

func TestCalcSignAndVerifySign(t *testing.T) {
	sig := []byte{0x30, 0x44, 0x02, 0x20}
	sub := &fakeSubmitter{outcome: optigatrust.OutcomeSuccess, response: envelope(0x00, sig)}
	c := New(sub)

	digest := make([]byte, 32)
	got, err := c.CalcSign(context.Background(), 0xE0F0, AlgNISTP256, digest)
	require.NoError(t, err)
	assert.Equal(t, sig, got)

	sub.response = envelope(0x00, nil)
	err = c.VerifySign(context.Background(), 0xE0F0, AlgNISTP256, digest, sig, nil)
	require.NoError(t, err)
	assert.Equal(t, byte(cmdVerifySign), sub.lastTx[0])
}

func TestCalcSSecSendsSessionOID(t *testing.T) {
	sub := &fakeSubmitter{outcome: optigatrust.OutcomeSuccess, response: envelope(0x00, nil)}
	c := New(sub)

	peerPub := append([]byte{0x04}, make([]byte, 64)...)
	err := c.CalcSSec(context.Background(), 0xE0F1, peerPub, 0xE120)
	require.NoError(t, err)
	assert.Equal(t, byte(cmdCalcSSec), sub.lastTx[0])
}

func TestGetRandomRejectsOutOfRangeCount(t *testing.T) {
	sub := &fakeSubmitter{}
	c := New(sub)

	_, err := c.GetRandom(context.Background(), 0)
	assert.ErrorIs(t, err, optigatrust.ErrIllegalArgument)

	_, err = c.GetRandom(context.Background(), 257)
	assert.ErrorIs(t, err, optigatrust.ErrIllegalArgument)
}

func TestGetRandomReturnsRequestedBytes(t *testing.T) {
	want := make([]byte, 16)
	for i := range want {
		want[i] = byte(i + 1)
	}
	sub := &fakeSubmitter{outcome: optigatrust.OutcomeSuccess, response: envelope(0x00, want)}
	c := New(sub)

	got, err := c.GetRandom(context.Background(), 16)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestCounterReadDecodesBigEndianUint32(t *testing.T) {
	sub := &fakeSubmitter{outcome: optigatrust.OutcomeSuccess, response: envelope(0x00, []byte{0x00, 0x00, 0x01, 0x2C})}
	c := New(sub)

	got, err := c.CounterRead(context.Background(), 0xE120)
	require.NoError(t, err)
	assert.Equal(t, uint32(0x12C), got)
}

func TestCounterIncrementSendsStep(t *testing.T) {
	sub := &fakeSubmitter{outcome: optigatrust.OutcomeSuccess, response: envelope(0x00, nil)}
	c := New(sub)

	err := c.CounterIncrement(context.Background(), 0xE120, 1)
	require.NoError(t, err)
	assert.Equal(t, byte(cmdCounterIncrement), sub.lastTx[0])
}

func TestCloseApplication(t *testing.T) {
	sub := &fakeSubmitter{outcome: optigatrust.OutcomeSuccess, response: envelope(0x00, nil)}
	c := New(sub)

	require.NoError(t, c.CloseApplication(context.Background()))
	assert.Equal(t, byte(cmdCloseApplication), sub.lastTx[0])
}
