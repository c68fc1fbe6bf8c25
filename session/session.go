// Package session keeps track of logged in admins, doctors and patients.
//
// A Manager issues opaque tokens for a principal kind and decides whether a
// token still denotes a valid login by comparing the elapsed time since
// login against the kind's time-to-live. Expired records are evicted lazily on
// the next access; there is no background sweep.
package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Kind is a principal kind.
type Kind string

const (
	KindAdmin   Kind = "admin"
	KindDoctor  Kind = "doctor"
	KindPatient Kind = "patient"
)

const (
	staffTTL   = 24 * time.Hour
	patientTTL = 7 * 24 * time.Hour
)

var (
	ErrNotFound    = errors.New("session not found")
	ErrExpired     = errors.New("session expired")
	ErrInvalidKind = errors.New("invalid session kind")
)

// ParseKind validates a kind coming from a URL or a stored record.
func ParseKind(s string) (Kind, error) {
	switch k := Kind(s); k {
	case KindAdmin, KindDoctor, KindPatient:
		return k, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidKind, s)
}

// TTL returns how long a login of the given kind stays valid.
func TTL(kind Kind) time.Duration {
	if kind == KindPatient {
		return patientTTL
	}
	return staffTTL
}

// Record is what a backend persists for a login.
type Record struct {
	Kind      Kind      `json:"kind"`
	Identity  string    `json:"identity"`
	Name      string    `json:"name,omitempty"`
	LoginTime time.Time `json:"login_time"`
}

// Expired reports whether the record's TTL has elapsed at now.
func (r Record) Expired(now time.Time) bool {
	return now.Sub(r.LoginTime) >= TTL(r.Kind)
}

// ExpiresAt is the instant the record stops being valid.
func (r Record) ExpiresAt() time.Time {
	return r.LoginTime.Add(TTL(r.Kind))
}

// Session is a freshly issued login.
type Session struct {
	Token string `json:"token"`
	Record
}

// Repository stores session records behind opaque tokens.
type Repository interface {
	Save(ctx context.Context, rec Record) (string, error)
	// Load returns ErrNotFound when the token is unknown.
	Load(ctx context.Context, token string) (Record, error)
	Delete(ctx context.Context, token string) error
}

// IdentityInvalidator is implemented by backends that can drop every session
// of one principal, e.g. after a password reset.
type IdentityInvalidator interface {
	InvalidateIdentity(ctx context.Context, kind Kind, identity string) error
}

// newToken generates opaque session tokens for server side backends.
var newToken = uuid.NewString

// Clock returns the current time.
type Clock func() time.Time

// Manager implements login, validity checks and logout on top of a Repository.
type Manager struct {
	repo Repository
	now  Clock
}

type Option func(*Manager)

// WithClock overrides the time source.
func WithClock(c Clock) Option {
	return func(m *Manager) { m.now = c }
}

func NewManager(repo Repository, opts ...Option) *Manager {
	m := &Manager{repo: repo, now: time.Now}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Login records {identity, loginTime: now} for the kind and returns the token.
func (m *Manager) Login(ctx context.Context, kind Kind, identity, name string) (Session, error) {
	if _, err := ParseKind(string(kind)); err != nil {
		return Session{}, err
	}
	rec := Record{Kind: kind, Identity: identity, Name: name, LoginTime: m.now()}
	token, err := m.repo.Save(ctx, rec)
	if err != nil {
		return Session{}, fmt.Errorf("save session: %w", err)
	}
	return Session{Token: token, Record: rec}, nil
}

// Current returns the record behind token if it is a valid login of kind.
// Expired records are deleted before ErrExpired is returned.
func (m *Manager) Current(ctx context.Context, kind Kind, token string) (Record, error) {
	if token == "" {
		return Record{}, ErrNotFound
	}
	rec, err := m.repo.Load(ctx, token)
	if err != nil {
		return Record{}, err
	}
	if rec.Kind != kind {
		return Record{}, ErrNotFound
	}
	if rec.Expired(m.now()) {
		if err := m.repo.Delete(ctx, token); err != nil {
			return Record{}, fmt.Errorf("evict expired session: %w", err)
		}
		return Record{}, ErrExpired
	}
	return rec, nil
}

// IsLoggedIn reports whether token is a valid login of kind.
func (m *Manager) IsLoggedIn(ctx context.Context, kind Kind, token string) bool {
	_, err := m.Current(ctx, kind, token)
	return err == nil
}

// Logout deletes the session behind token.
func (m *Manager) Logout(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	return m.repo.Delete(ctx, token)
}

// InvalidateIdentity drops every session of a principal when the backend
// supports it. Backends that keep state on the client cannot, and return nil.
func (m *Manager) InvalidateIdentity(ctx context.Context, kind Kind, identity string) error {
	inv, ok := m.repo.(IdentityInvalidator)
	if !ok {
		return nil
	}
	return inv.InvalidateIdentity(ctx, kind, identity)
}

// CookieName is the per-kind cookie holding a session token. Patient cookies
// are keyed by patient id so several patients can stay logged in on a shared
// device.
func CookieName(kind Kind, identity string) string {
	if kind == KindPatient {
		return "cml_patient_session_" + identity
	}
	return "cml_" + string(kind) + "_session"
}
