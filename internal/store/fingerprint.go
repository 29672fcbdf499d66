package store

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
)

// fingerprintDomain separates failure fingerprints from any other hash
// over the same bytes. The version suffix allows changing the encoding.
const fingerprintDomain = "detest/failures/v1"

// Fingerprint identifies how a run failed: runs whose failures share
// path, kind and message in the same order have the same fingerprint.
// Locations are left out so that moving code does not change it.
//
// Format: hex(SHA256(domain + 0x00 + json(failures)))
func Fingerprint(failures []FailureRecord) string {
	type key struct {
		Path    string `json:"path"`
		Kind    string `json:"kind"`
		Message string `json:"message"`
	}
	keys := make([]key, len(failures))
	for i, f := range failures {
		keys[i] = key{Path: f.Path, Kind: string(f.Kind), Message: f.Message}
	}

	// A slice of flat string structs always encodes.
	data, _ := json.Marshal(keys)

	h := sha256.New()
	h.Write([]byte(fingerprintDomain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}
