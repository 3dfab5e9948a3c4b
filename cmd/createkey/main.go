// Package main generates a random admin API key for the statshub API.
package main

import (
	"crypto/rand"
	"fmt"
	"io"
	"log/slog"
	"os"
)

const (
	// Character set: uppercase letters, lowercase letters, and numbers
	charset   = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"
	keyLength = 32
)

func main() {
	apiKey, err := generateAPIKey(rand.Reader, keyLength)
	if err != nil {
		slog.Error("Failed to generate random API key", "error", err)
		os.Exit(1)
	}

	fmt.Println("✓ API key generated")
	fmt.Println()
	fmt.Println("Add it to the server environment:")
	fmt.Println()
	fmt.Printf("API_KEY=%s\n", apiKey)
	fmt.Println()
	fmt.Println("Example curl commands:")
	fmt.Println()
	fmt.Printf("# Force a snapshot refresh\n")
	fmt.Printf("curl -X POST -H \"Authorization: Bearer %s\" http://localhost:8080/v1/snapshot/refresh\n", apiKey)
}

// generateAPIKey draws length characters from charset using rejection sampling
// to avoid modulo bias.
func generateAPIKey(random io.Reader, length int) (string, error) {
	charsetLen := len(charset)
	// Largest multiple of charsetLen that fits in a byte.
	maxValidByte := byte((255 / charsetLen) * charsetLen)

	key := make([]byte, length)
	randomByte := make([]byte, 1)

	for i := range key {
		for {
			if _, err := io.ReadFull(random, randomByte); err != nil {
				return "", fmt.Errorf("read random byte: %w", err)
			}

			if randomByte[0] < maxValidByte {
				key[i] = charset[int(randomByte[0])%charsetLen]
				break
			}
		}
	}

	return string(key), nil
}
