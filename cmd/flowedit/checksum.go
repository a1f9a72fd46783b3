package main

import (
	"os"

	"github.com/rendis/flowedit/internal/store"
)

// fileChecksum computes the SHA-256 hex digest of a file the same way the
// store checksums revision content.
func fileChecksum(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return store.Checksum(string(data)), nil
}

// shortChecksum abbreviates a hex digest for table output.
func shortChecksum(sum string) string {
	if len(sum) <= 12 {
		return sum
	}
	return sum[:12]
}
