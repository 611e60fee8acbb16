// Package sha256 points at github.com/minio/sha256-simd, which uses the SHA
// extensions or AVX2 where the CPU has them. Event IDs and NIP-44 MACs are
// computed through here.
package sha256

import (
	"hash"

	"github.com/minio/sha256-simd"
)

const (
	Size      = sha256.Size
	BlockSize = sha256.BlockSize
)

// New returns a new hash.Hash computing the SHA256 checksum.
func New() hash.Hash { return sha256.New() }

// Sum256 returns the SHA256 checksum of data.
func Sum256(data []byte) [Size]byte { return sha256.Sum256(data) }
