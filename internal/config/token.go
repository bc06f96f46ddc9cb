package config

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

const tokenFileName = "ghost.token"

// tokenLen is 32 random bytes rendered as hex.
const tokenLen = 64

// LoadOrGenerateToken returns the shared Kernel auth token. It prefers an
// existing ghost.token at the workspace root (then bin/), and otherwise
// generates a fresh one, persisted with restrictive permissions so other
// local users cannot read it.
func LoadOrGenerateToken(workspace string) (string, error) {
	candidates := []string{
		filepath.Join(workspace, tokenFileName),
		filepath.Join(workspace, "bin", tokenFileName),
	}
	for _, path := range candidates {
		data, err := os.ReadFile(path)
		if err != nil {
			continue
		}
		token := strings.TrimSpace(string(data))
		if len(token) == tokenLen {
			return token, nil
		}
	}

	buf := make([]byte, tokenLen/2)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate token: %w", err)
	}
	token := hex.EncodeToString(buf)

	path := candidates[0]
	if err := os.WriteFile(path, []byte(token), 0o600); err != nil {
		return "", fmt.Errorf("persist token: %w", err)
	}
	return token, nil
}
