// Package session holds per-user state: whether the shared password has been
// entered, and the working table loaded from the last upload.
package session

import (
	"crypto/subtle"
	"errors"
	"time"

	"github.com/fd-manager/fdm/internal/model"
	"github.com/fd-manager/fdm/internal/normalize"
)

var (
	// ErrIncorrectPassword is returned by Gate.Login for a wrong password.
	ErrIncorrectPassword = errors.New("incorrect password")
	// ErrNoUpload is returned when a table is needed before any upload.
	ErrNoUpload = errors.New("upload required")
)

// Session is one user's state. Transitions return a new value.
type Session struct {
	ID            string
	Authenticated bool
	AttemptMade   bool
	Table         model.Table
	Diagnostics   normalize.Diagnostics
	Source        string // name of the uploaded file; empty before any upload
	LastSeen      time.Time
}

// Loaded reports whether a spreadsheet has been uploaded.
func (s Session) Loaded() bool { return s.Source != "" }

// Load replaces the working table with a freshly normalized upload.
func (s Session) Load(source string, res normalize.Result) Session {
	s.Source = source
	s.Table = res.Table
	s.Diagnostics = res.Diagnostics
	return s
}

// Working returns the current table, or ErrNoUpload before any upload.
func (s Session) Working() (model.Table, error) {
	if !s.Loaded() {
		return model.Table{}, ErrNoUpload
	}
	return s.Table, nil
}

// Apply installs the result of a table transition.
func (s Session) Apply(t model.Table) Session {
	s.Table = t
	return s
}

// Gate checks the shared password.
type Gate struct {
	secret []byte
}

// NewGate creates a Gate for password.
func NewGate(password string) *Gate {
	return &Gate{secret: []byte(password)}
}

// Login marks s authenticated when password matches. A wrong password
// records the attempt and returns ErrIncorrectPassword; there is no lockout.
func (g *Gate) Login(s Session, password string) (Session, error) {
	s.AttemptMade = true
	if subtle.ConstantTimeCompare([]byte(password), g.secret) != 1 {
		s.Authenticated = false
		return s, ErrIncorrectPassword
	}
	s.Authenticated = true
	return s, nil
}
