package chunker

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/blake2b"
)

const (
	AlgorithmSHA256  = "sha256"
	AlgorithmBLAKE2b = "blake2b"
)

var ErrUnknownAlgorithm = errors.New("unknown checksum algorithm")

// Checksum returns the lowercase hex digest of a chunk.
type Checksum func(chunk []byte) string

// NewChecksum returns the digest function for algorithm. The empty string
// selects sha256.
func NewChecksum(algorithm string) (Checksum, error) {
	switch strings.ToLower(algorithm) {
	case "", AlgorithmSHA256:
		return sha256Hex, nil
	case AlgorithmBLAKE2b:
		return blake2bHex, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownAlgorithm, algorithm)
	}
}

func sha256Hex(chunk []byte) string {
	sum := sha256.Sum256(chunk)
	return hex.EncodeToString(sum[:])
}

func blake2bHex(chunk []byte) string {
	sum := blake2b.Sum256(chunk)
	return hex.EncodeToString(sum[:])
}
