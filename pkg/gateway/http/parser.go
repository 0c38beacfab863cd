package http

import (
	"encoding/hex"
	"strconv"
	"strings"

	"github.com/openoptiga/optigatrust/pkg/command"
)

// parseOID accepts both decimal and 0x-prefixed hexadecimal object ids, the
// same two forms the teacher's gateway accepts for node and index fields.
func parseOID(s string) (uint16, *GatewayError) {
	v, err := strconv.ParseUint(s, 0, 16)
	if err != nil {
		return 0, ErrBadOID
	}
	return uint16(v), nil
}

func parseHex(s string) ([]byte, *GatewayError) {
	b, err := hex.DecodeString(s)
	if err != nil {
		return nil, ErrBadHex
	}
	return b, nil
}

var algorithmNames = map[string]command.Algorithm{
	"p256":    command.AlgNISTP256,
	"p384":    command.AlgNISTP384,
	"p521":    command.AlgNISTP521,
	"rsa1024": command.AlgRSA1024,
	"rsa2048": command.AlgRSA2048,
}

func parseAlgorithm(s string) (command.Algorithm, *GatewayError) {
	alg, ok := algorithmNames[strings.ToLower(s)]
	if !ok {
		return 0, ErrBadAlgorithm
	}
	return alg, nil
}

var usageNames = map[string]command.KeyUsage{
	"signature":      command.KeyUsageSignature,
	"key-agreement":  command.KeyUsageKeyAgreement,
	"authentication": command.KeyUsageAuthentication,
}

// parseUsage OR-combines one or more comma-separated usage names; an empty
// string defaults to signature, the common case for GenKeyPair callers.
func parseUsage(s string) (command.KeyUsage, *GatewayError) {
	if s == "" {
		return command.KeyUsageSignature, nil
	}
	var usage command.KeyUsage
	for _, part := range strings.Split(s, ",") {
		u, ok := usageNames[strings.ToLower(strings.TrimSpace(part))]
		if !ok {
			return 0, ErrBadAlgorithm
		}
		usage |= u
	}
	return usage, nil
}
