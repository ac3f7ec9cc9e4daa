package fileops

import (
	"crypto/sha256"
	"hash"
	"strings"

	"github.com/infracollect/fileman/internal/failure"
	"github.com/spf13/afero"
	"lukechampine.com/blake3"
)

const (
	AlgoSHA256 = "sha256"
	AlgoBLAKE3 = "blake3"
)

// Hash returns the hex digest of the file at path. An empty algo means sha256.
func Hash(fsys afero.Fs, path, algo string) (string, error) {
	var h hash.Hash
	switch strings.ToLower(algo) {
	case "", AlgoSHA256:
		h = sha256.New()
	case AlgoBLAKE3:
		h = blake3.New(32, nil)
	default:
		return "", failure.New(failure.InvalidArgument, "unknown hash algorithm %q", algo).WithPath("hash", path)
	}

	if _, err := statFile(fsys, "hash", path); err != nil {
		return "", err
	}
	return digestFile(fsys, path, h)
}
