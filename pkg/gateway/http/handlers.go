package http

import (
	"encoding/hex"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/openoptiga/optigatrust/pkg/command"
)

func (g *Server) writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func (g *Server) writeError(w http.ResponseWriter, err *GatewayError) {
	g.log.WithField("code", err.Code).Warn(err.Msg)
	g.writeJSON(w, err.Status, errResponse(err))
}

// toGatewayError classifies an error returned by the command package into
// the HTTP gateway's own error taxonomy: a CommandError is an
// element-reported outcome, anything else is a transport fault.
func (g *Server) toGatewayError(err error) *GatewayError {
	var cerr *command.CommandError
	if errors.As(err, &cerr) {
		return commandError(int(cerr.Outcome))
	}
	return ErrTransport
}

func (g *Server) decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	defer r.Body.Close()
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		g.writeError(w, ErrBadHex)
		return false
	}
	return true
}

// handleChipID answers GET /chip-id with the element's identification
// object, the same fixed exchange the end-to-end test scenarios use.
func (g *Server) handleChipID(w http.ResponseWriter, r *http.Request) {
	data, err := g.cmd.GetDataObject(r.Context(), 0xE0C2, 0, 0)
	if err != nil {
		g.writeError(w, g.toGatewayError(err))
		return
	}
	g.writeJSON(w, http.StatusOK, okResponse(hex.EncodeToString(data)))
}

// handleGetObject answers GET /object/{oid} with the named data object in
// full.
func (g *Server) handleGetObject(w http.ResponseWriter, r *http.Request, oidStr string) {
	oid, gerr := parseOID(oidStr)
	if gerr != nil {
		g.writeError(w, gerr)
		return
	}
	data, err := g.cmd.GetDataObject(r.Context(), oid, 0, 0)
	if err != nil {
		g.writeError(w, g.toGatewayError(err))
		return
	}
	g.writeJSON(w, http.StatusOK, okResponse(hex.EncodeToString(data)))
}

// handleSetObject answers PUT /object/{oid}, overwriting the named data
// object with the hex-encoded body.
func (g *Server) handleSetObject(w http.ResponseWriter, r *http.Request, oidStr string) {
	oid, gerr := parseOID(oidStr)
	if gerr != nil {
		g.writeError(w, gerr)
		return
	}
	var req setDataObjectRequest
	if !g.decodeBody(w, r, &req) {
		return
	}
	data, gerr := parseHex(req.Data)
	if gerr != nil {
		g.writeError(w, gerr)
		return
	}
	if err := g.cmd.SetDataObject(r.Context(), oid, 0, data); err != nil {
		g.writeError(w, g.toGatewayError(err))
		return
	}
	g.writeJSON(w, http.StatusOK, okResponse(""))
}

// handleGetRandom answers GET /random/{n} with n bytes drawn from the
// element's TRNG.
func (g *Server) handleGetRandom(w http.ResponseWriter, r *http.Request, nStr string) {
	n, err := strconv.Atoi(nStr)
	if err != nil || n <= 0 || n > 256 {
		g.writeError(w, ErrBadCount)
		return
	}
	data, cerr := g.cmd.GetRandom(r.Context(), n)
	if cerr != nil {
		g.writeError(w, g.toGatewayError(cerr))
		return
	}
	g.writeJSON(w, http.StatusOK, okResponse(hex.EncodeToString(data)))
}

// handleGenKeyPair answers POST /keypair/{oid}, generating a key pair in
// the named private-key object and returning the exported public key.
func (g *Server) handleGenKeyPair(w http.ResponseWriter, r *http.Request, oidStr string) {
	oid, gerr := parseOID(oidStr)
	if gerr != nil {
		g.writeError(w, gerr)
		return
	}
	var req genKeyPairRequest
	if !g.decodeBody(w, r, &req) {
		return
	}
	alg, gerr := parseAlgorithm(req.Algorithm)
	if gerr != nil {
		g.writeError(w, gerr)
		return
	}
	usage, gerr := parseUsage(req.Usage)
	if gerr != nil {
		g.writeError(w, gerr)
		return
	}
	pub, err := g.cmd.GenKeyPair(r.Context(), oid, alg, usage)
	if err != nil {
		g.writeError(w, g.toGatewayError(err))
		return
	}
	g.writeJSON(w, http.StatusOK, okResponse(hex.EncodeToString(pub)))
}

// handleSign answers POST /sign/{oid}, signing a caller-supplied digest
// with the private key in oid.
func (g *Server) handleSign(w http.ResponseWriter, r *http.Request, oidStr string) {
	oid, gerr := parseOID(oidStr)
	if gerr != nil {
		g.writeError(w, gerr)
		return
	}
	var req signRequest
	if !g.decodeBody(w, r, &req) {
		return
	}
	alg, gerr := parseAlgorithm(req.Algorithm)
	if gerr != nil {
		g.writeError(w, gerr)
		return
	}
	digest, gerr := parseHex(req.Digest)
	if gerr != nil {
		g.writeError(w, gerr)
		return
	}
	sig, err := g.cmd.CalcSign(r.Context(), oid, alg, digest)
	if err != nil {
		g.writeError(w, g.toGatewayError(err))
		return
	}
	g.writeJSON(w, http.StatusOK, okResponse(hex.EncodeToString(sig)))
}

// handleVerify answers POST /verify/{oid}, verifying a caller-supplied
// signature against the public key in oid (or an inline one).
func (g *Server) handleVerify(w http.ResponseWriter, r *http.Request, oidStr string) {
	oid, gerr := parseOID(oidStr)
	if gerr != nil {
		g.writeError(w, gerr)
		return
	}
	var req verifyRequest
	if !g.decodeBody(w, r, &req) {
		return
	}
	alg, gerr := parseAlgorithm(req.Algorithm)
	if gerr != nil {
		g.writeError(w, gerr)
		return
	}
	digest, gerr := parseHex(req.Digest)
	if gerr != nil {
		g.writeError(w, gerr)
		return
	}
	sig, gerr := parseHex(req.Signature)
	if gerr != nil {
		g.writeError(w, gerr)
		return
	}
	var pub []byte
	if req.PublicKey != "" {
		pub, gerr = parseHex(req.PublicKey)
		if gerr != nil {
			g.writeError(w, gerr)
			return
		}
	}
	if err := g.cmd.VerifySign(r.Context(), oid, alg, digest, sig, pub); err != nil {
		g.writeError(w, g.toGatewayError(err))
		return
	}
	g.writeJSON(w, http.StatusOK, okResponse(""))
}

// handleCounterRead answers GET /counter/{oid} with the current value of
// the monotonic counter in oid.
func (g *Server) handleCounterRead(w http.ResponseWriter, r *http.Request, oidStr string) {
	oid, gerr := parseOID(oidStr)
	if gerr != nil {
		g.writeError(w, gerr)
		return
	}
	v, err := g.cmd.CounterRead(r.Context(), oid)
	if err != nil {
		g.writeError(w, g.toGatewayError(err))
		return
	}
	g.writeJSON(w, http.StatusOK, okResponse(strconv.FormatUint(uint64(v), 16)))
}

// handleCounterIncrement answers POST /counter/{oid}/increment, advancing
// the monotonic counter in oid by the requested step.
func (g *Server) handleCounterIncrement(w http.ResponseWriter, r *http.Request, oidStr string) {
	oid, gerr := parseOID(oidStr)
	if gerr != nil {
		g.writeError(w, gerr)
		return
	}
	var req incrementRequest
	if !g.decodeBody(w, r, &req) {
		return
	}
	if req.Step <= 0 || req.Step > 0xFF {
		g.writeError(w, ErrBadCount)
		return
	}
	if err := g.cmd.CounterIncrement(r.Context(), oid, byte(req.Step)); err != nil {
		g.writeError(w, g.toGatewayError(err))
		return
	}
	g.writeJSON(w, http.StatusOK, okResponse(""))
}

// pathTail strips prefix from the request path and returns what remains,
// trimmed of a trailing slash; used to pull the {oid} segment out of
// routes registered on a fixed prefix.
func pathTail(path, prefix string) string {
	return strings.TrimSuffix(strings.TrimPrefix(path, prefix), "/")
}
