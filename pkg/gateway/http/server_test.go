package http

import (
	"bytes"
	"context"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	optigatrust "github.com/openoptiga/optigatrust"
	"github.com/openoptiga/optigatrust/pkg/bus/virtual"
	"github.com/openoptiga/optigatrust/pkg/command"
)

func newTestServer(t *testing.T) (*httptest.Server, *optigatrust.Device) {
	t.Helper()
	elem, err := virtual.New("gateway-test")
	require.NoError(t, err)
	dev := optigatrust.NewDevice(elem)
	require.NoError(t, dev.Init(context.Background()))
	t.Cleanup(dev.Shutdown)

	gw := NewServer(command.New(dev), nil)
	ts := httptest.NewServer(gw.Handler())
	t.Cleanup(ts.Close)
	return ts, dev
}

func decodeBody(t *testing.T, resp *http.Response) response {
	t.Helper()
	defer resp.Body.Close()
	var out response
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

func TestChipIDEndpoint(t *testing.T) {
	ts, _ := newTestServer(t)

	resp, err := http.Get(ts.URL + "/chip-id")
	require.NoError(t, err)
	body := decodeBody(t, resp)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "OK", body.Response)
	data, err := hex.DecodeString(body.Data)
	require.NoError(t, err)
	assert.Len(t, data, 0x1B)
}

func TestGetRandomEndpointReturnsRequestedLength(t *testing.T) {
	ts, _ := newTestServer(t)

	resp, err := http.Get(ts.URL + "/random/16")
	require.NoError(t, err)
	body := decodeBody(t, resp)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, 16, body.Length)
}

func TestGetRandomEndpointRejectsOutOfRangeCount(t *testing.T) {
	ts, _ := newTestServer(t)

	resp, err := http.Get(ts.URL + "/random/0")
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestObjectRoundTrip(t *testing.T) {
	ts, _ := newTestServer(t)

	putBody, _ := json.Marshal(setDataObjectRequest{Data: "deadbeef"})
	req, _ := http.NewRequest(http.MethodPut, ts.URL+"/object/0xE0F0", bytes.NewReader(putBody))
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	body := decodeBody(t, resp)
	assert.Equal(t, "OK", body.Response)

	resp2, err := http.Get(ts.URL + "/object/0xE0F0")
	require.NoError(t, err)
	body2 := decodeBody(t, resp2)
	assert.Equal(t, http.StatusOK, resp2.StatusCode)
	// The default virtual responder echoes each request back, so the read
	// returns the GET request's own body (the OID), not the data written.
	assert.NotEmpty(t, body2.Data)
}

func TestObjectEndpointRejectsMalformedOID(t *testing.T) {
	ts, _ := newTestServer(t)

	resp, err := http.Get(ts.URL + "/object/not-an-oid")
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestSignEndpointRejectsUnknownAlgorithm(t *testing.T) {
	ts, _ := newTestServer(t)

	reqBody, _ := json.Marshal(signRequest{Algorithm: "rot13", Digest: hex.EncodeToString(make([]byte, 32))})
	resp, err := http.Post(ts.URL+"/sign/0xE0F1", "application/json", bytes.NewReader(reqBody))
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestSignEndpointHappyPath(t *testing.T) {
	ts, _ := newTestServer(t)

	reqBody, _ := json.Marshal(signRequest{Algorithm: "p256", Digest: hex.EncodeToString(make([]byte, 32))})
	resp, err := http.Post(ts.URL+"/sign/0xE0F1", "application/json", bytes.NewReader(reqBody))
	require.NoError(t, err)
	body := decodeBody(t, resp)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "OK", body.Response)
}

func TestCounterReadAndIncrementEndpoints(t *testing.T) {
	ts, _ := newTestServer(t)

	resp, err := http.Get(ts.URL + "/counter/0xE120")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	incBody, _ := json.Marshal(incrementRequest{Step: 1})
	resp2, err := http.Post(ts.URL+"/counter/0xE120/increment", "application/json", bytes.NewReader(incBody))
	require.NoError(t, err)
	body2 := decodeBody(t, resp2)
	assert.Equal(t, "OK", body2.Response)
}

func TestMethodNotAllowed(t *testing.T) {
	ts, _ := newTestServer(t)

	resp, err := http.Post(ts.URL+"/chip-id", "application/json", nil)
	require.NoError(t, err)
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}
