// Package uuid provides request and job ID generation.
package uuid

import (
	"fmt"

	"github.com/google/uuid"
)

// Generator creates UUID v7 strings, optionally prefixed; ids sort by
// creation time.
type Generator struct {
	prefix string
}

// New creates a Generator with no prefix.
func New() *Generator {
	return &Generator{}
}

// WithPrefix returns a Generator whose ids start with prefix, e.g. "job_".
func WithPrefix(prefix string) *Generator {
	return &Generator{prefix: prefix}
}

// NewID returns a UUID7 string.
func (g Generator) NewID() (string, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return "", fmt.Errorf("generate uuid7: %w", err)
	}
	return g.prefix + id.String(), nil
}
