// Package id generates the identifiers used across Estately.
package id

import (
	"fmt"

	gonanoid "github.com/matoous/go-nanoid/v2"
)

// suffixAlphabet is used for object-name suffixes; lowercase keeps storage
// paths case-insensitive-filesystem safe.
const suffixAlphabet = "0123456789abcdefghijklmnopqrstuvwxyz"

// Generate creates a prefixed NanoID, e.g. "prop-V1StGXR8_Z5jdHi6B-myT".
func Generate(prefix string) (string, error) {
	id, err := gonanoid.New()
	if err != nil {
		return "", fmt.Errorf("generate nanoid: %w", err)
	}
	return prefix + "-" + id, nil
}

// MustGenerate is like Generate but panics if ID generation fails.
func MustGenerate(prefix string) string {
	id, err := Generate(prefix)
	if err != nil {
		panic(fmt.Sprintf("failed to generate ID: %v", err))
	}
	return id
}

// Suffix returns a short random lowercase token of length n.
func Suffix(n int) (string, error) {
	s, err := gonanoid.Generate(suffixAlphabet, n)
	if err != nil {
		return "", fmt.Errorf("generate suffix: %w", err)
	}
	return s, nil
}
