package http

import "strconv"

// response is the envelope every route answers with, mirroring the
// teacher's {"sequence", "response"} shape: "OK" on success, "ERROR:<code>"
// on failure, with the payload (if any) carried in Data.
type response struct {
	Response string `json:"response"`
	Data     string `json:"data,omitempty"`
	Length   int    `json:"length,omitempty"`
}

func okResponse(data string) response {
	r := response{Response: "OK", Data: data}
	if data != "" {
		r.Length = len(data) / 2
	}
	return r
}

func errResponse(err *GatewayError) response {
	return response{Response: "ERROR:" + strconv.Itoa(err.Code)}
}

// setDataObjectRequest is the JSON body of a PUT /object/{oid} request.
type setDataObjectRequest struct {
	Data string `json:"data"` // hex-encoded
}

// signRequest is the JSON body of a POST /sign/{oid} request.
type signRequest struct {
	Algorithm string `json:"algorithm"`
	Digest    string `json:"digest"` // hex-encoded
}

// verifyRequest is the JSON body of a POST /verify/{oid} request.
type verifyRequest struct {
	Algorithm string `json:"algorithm"`
	Digest    string `json:"digest"`
	Signature string `json:"signature"`
	PublicKey string `json:"public_key,omitempty"`
}

// genKeyPairRequest is the JSON body of a POST /keypair/{oid} request.
type genKeyPairRequest struct {
	Algorithm string `json:"algorithm"`
	Usage     string `json:"usage"` // "signature", "key-agreement", "authentication"
}

// incrementRequest is the JSON body of a POST /counter/{oid}/increment
// request.
type incrementRequest struct {
	Step int `json:"step"`
}
