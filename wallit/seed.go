package wallit

import (
	"crypto/rand"
	"errors"
	"fmt"
	"os"

	"github.com/google/renameio/v2"
)

// SeedLen is the size of the wallet seed file.
const SeedLen = 64

// ReadOrCreateSeed reads the seed at path, or writes a new random one there
// if the file doesn't exist yet.
func ReadOrCreateSeed(path string) ([]byte, error) {
	seed, err := os.ReadFile(path)
	if err == nil {
		if len(seed) != SeedLen {
			return nil, fmt.Errorf("seed file %s is %d bytes, expected %d", path, len(seed), SeedLen)
		}
		return seed, nil
	}
	if !errors.Is(err, os.ErrNotExist) {
		return nil, err
	}

	seed = make([]byte, SeedLen)
	if _, err := rand.Read(seed); err != nil {
		return nil, err
	}
	if err := renameio.WriteFile(path, seed, 0600); err != nil {
		return nil, fmt.Errorf("write seed file: %w", err)
	}
	return seed, nil
}
