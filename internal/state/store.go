// Package state records the history of generated bring-up sequences in
// SQLite, so that a regenerated sequence can be compared with the last one
// built from the same model.
package state

import (
	"crypto/sha256"
	"encoding/hex"
	"time"
)

// Build is one recorded sequence generation.
type Build struct {
	ID  string
	App string
	// ModelPath is the application model the sequence was built from
	ModelPath string
	// ModelHash is the sha256 of the model file contents
	ModelHash string
	// Variant identifies the build configuration and features, if any
	Variant      string
	PriorityBits int
	StepCount    int
	// Fingerprint is the sequence fingerprint
	Fingerprint string
	CreatedAt   time.Time
}

// Regression describes a sequence that changed although its inputs did not.
type Regression struct {
	Previous *Build
	Current  *Build
}

// HashModel returns the hex sha256 of model file contents.
func HashModel(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
