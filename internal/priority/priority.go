// Package priority converts logical task priorities into the NVIC priority
// byte and rejects priorities the device cannot represent.
//
// Logical priorities grow with urgency. On the NVIC a lower register value is
// more urgent and only the top priorityBits bits of the byte are implemented,
// so the mapping reverses order and shifts into the implemented bits.
package priority

import (
	"errors"
	"fmt"
)

// MaxBits is the width of an NVIC priority register.
const MaxBits = 8

var (
	// ErrUnrepresentable is returned for priorities outside [1, 2^bits].
	ErrUnrepresentable = errors.New("priority not representable on device")
	// ErrInvalidBits is returned for bit widths outside [1, MaxBits].
	ErrInvalidBits = errors.New("invalid priority bit width")
)

// RangeError describes a priority rejected by Validate.
type RangeError struct {
	Priority int
	Bits     int
}

func (e *RangeError) Error() string {
	return fmt.Sprintf("priority %d out of range [1, %d] for %d priority bits", e.Priority, Max(e.Bits), e.Bits)
}

// Unwrap returns ErrUnrepresentable.
func (e *RangeError) Unwrap() error {
	return ErrUnrepresentable
}

// Max returns the highest logical priority representable with bits.
func Max(bits int) int {
	return 1 << bits
}

// CheckBits validates a priority bit width.
func CheckBits(bits int) error {
	if bits < 1 || bits > MaxBits {
		return fmt.Errorf("%w: %d (want 1..%d)", ErrInvalidBits, bits, MaxBits)
	}
	return nil
}

// Validate accepts p iff 1 <= p <= 2^bits.
func Validate(p, bits int) error {
	if err := CheckBits(bits); err != nil {
		return err
	}
	if p < 1 || p > Max(bits) {
		return &RangeError{Priority: p, Bits: bits}
	}
	return nil
}

// Encode validates p and returns its hardware encoding.
func Encode(p, bits int) (uint8, error) {
	if err := Validate(p, bits); err != nil {
		return 0, err
	}
	return Logical2HW(p, bits), nil
}

// Logical2HW maps a logical priority to the NVIC priority byte.
// The caller must have validated p.
func Logical2HW(p, bits int) uint8 {
	return uint8(((1 << bits) - p) << (MaxBits - bits))
}

// HW2Logical is the inverse of Logical2HW for values it produced.
func HW2Logical(hw uint8, bits int) int {
	return (1 << bits) - int(hw>>(MaxBits-bits))
}
