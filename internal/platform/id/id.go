// Package id generates compact, URL-safe identifiers.
package id

import (
	"encoding/base32"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

var encoding = base32.StdEncoding.WithPadding(base32.NoPadding)

// NewID returns a random 26-character lowercase base32 identifier.
//
// The underlying bytes are a UUIDv4, so identifiers keep the usual
// collision guarantees while staying readable in URLs and log lines.
func NewID() (string, error) {
	value, err := uuid.NewRandom()
	if err != nil {
		return "", fmt.Errorf("generate id: %w", err)
	}
	return strings.ToLower(encoding.EncodeToString(value[:])), nil
}
