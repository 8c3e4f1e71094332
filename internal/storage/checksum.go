package storage

import (
	"encoding/hex"
	"fmt"
	"io"
	"os"

	"golang.org/x/crypto/blake2b"
)

// FileChecksum returns the hex BLAKE2b-256 digest of the file at path.
// Load runs record it so a re-run of the same workbook can be recognized.
func FileChecksum(path string) (string, error) {
	f, err := os.Open(path) //nolint:gosec // path is from trusted config source
	if err != nil {
		return "", fmt.Errorf("failed to open %s for checksum: %w", path, err)
	}

	defer func() {
		_ = f.Close()
	}()

	hasher, err := blake2b.New256(nil)
	if err != nil {
		return "", fmt.Errorf("failed to create hasher: %w", err)
	}

	if _, err := io.Copy(hasher, f); err != nil {
		return "", fmt.Errorf("failed to hash %s: %w", path, err)
	}

	return hex.EncodeToString(hasher.Sum(nil)), nil
}
