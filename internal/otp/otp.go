// Package otp implements the one-time passcode lifecycle used for
// password resets: 6-digit numeric codes with a fixed validity window
// and single-use consumption.
package otp

import (
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"time"
)

const (
	codeMin = 100000
	codeMax = 999999

	// Validity is the fixed window from creation to expiry
	Validity = 10 * time.Minute
)

// Verification errors, most specific first. Consume evaluates its
// checks in this order so the caller can show the right remediation.
var (
	ErrAlreadyUsed = errors.New("code has already been used")
	ErrExpired     = errors.New("code has expired")
	ErrMismatch    = errors.New("code does not match")
)

// Passcode is a single-use numeric credential. Expiry is a predicate
// evaluated at verification time; stale codes are never swept.
type Passcode struct {
	Code      int
	CreatedAt time.Time
	ExpiresAt time.Time
	Consumed  bool
}

// String formats the code as a fixed six-digit string
func (p *Passcode) String() string {
	return fmt.Sprintf("%06d", p.Code)
}

// Manager generates and verifies passcodes
type Manager struct {
	now func() time.Time
}

// NewManager creates a manager using wall-clock time
func NewManager() *Manager {
	return &Manager{now: time.Now}
}

// NewManagerWithClock creates a manager with an injected clock
func NewManagerWithClock(clock func() time.Time) *Manager {
	return &Manager{now: clock}
}

// Generate draws a code uniformly from [100000, 999999]
func (m *Manager) Generate() (*Passcode, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(codeMax-codeMin+1))
	if err != nil {
		return nil, fmt.Errorf("failed to generate code: %w", err)
	}
	created := m.now()
	return &Passcode{
		Code:      codeMin + int(n.Int64()),
		CreatedAt: created,
		ExpiresAt: created.Add(Validity),
	}, nil
}

// IsExpired reports whether the validity window has passed
func (m *Manager) IsExpired(p *Passcode) bool {
	return m.now().After(p.ExpiresAt)
}

// Consume verifies a submitted value against the passcode and marks it
// used on success. Re-use is rejected regardless of the validity
// window.
func (m *Manager) Consume(p *Passcode, submitted int) error {
	if p.Consumed {
		return ErrAlreadyUsed
	}
	if m.IsExpired(p) {
		return ErrExpired
	}
	if submitted != p.Code {
		return ErrMismatch
	}
	p.Consumed = true
	return nil
}
