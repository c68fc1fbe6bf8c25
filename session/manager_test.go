package session

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/ariebrainware/cml-tracker/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// fakeClock is a manually advanced time source.
type fakeClock struct {
	now time.Time
}

func (f *fakeClock) Now() time.Time { return f.now }

func (f *fakeClock) Advance(d time.Duration) { f.now = f.now.Add(d) }

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 1, 15, 9, 0, 0, 0, time.UTC)}
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:sessions_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&model.Session{}))
	return db
}

// serverSideRepositories returns every backend that keeps state on the server.
func serverSideRepositories(t *testing.T) map[string]Repository {
	return map[string]Repository{
		"memory":   NewMemoryRepository(),
		"database": NewDatabaseRepository(newTestDB(t)),
	}
}

func TestIsLoggedInImmediatelyAfterLogin(t *testing.T) {
	for name, repo := range serverSideRepositories(t) {
		t.Run(name, func(t *testing.T) {
			clock := newFakeClock()
			m := NewManager(repo, WithClock(clock.Now))
			ctx := context.Background()

			s, err := m.Login(ctx, KindAdmin, "admin", "")
			require.NoError(t, err)
			assert.NotEmpty(t, s.Token)
			assert.Equal(t, clock.now, s.LoginTime)
			assert.True(t, m.IsLoggedIn(ctx, KindAdmin, s.Token))
		})
	}
}

func TestSessionExpiresAfterTTL(t *testing.T) {
	tests := []struct {
		kind     Kind
		identity string
		ttl      time.Duration
	}{
		{KindAdmin, "admin", 24 * time.Hour},
		{KindDoctor, "D001", 24 * time.Hour},
		{KindPatient, "HN001", 7 * 24 * time.Hour},
	}
	for name, repo := range serverSideRepositories(t) {
		for _, tt := range tests {
			t.Run(name+"/"+string(tt.kind), func(t *testing.T) {
				clock := newFakeClock()
				m := NewManager(repo, WithClock(clock.Now))
				ctx := context.Background()

				s, err := m.Login(ctx, tt.kind, tt.identity, "")
				require.NoError(t, err)

				clock.Advance(tt.ttl - time.Second)
				assert.True(t, m.IsLoggedIn(ctx, tt.kind, s.Token), "still valid just before TTL")

				clock.Advance(time.Second)
				_, err = m.Current(ctx, tt.kind, s.Token)
				assert.ErrorIs(t, err, ErrExpired)

				// The expired record was evicted, so a later check sees nothing.
				_, err = repo.Load(ctx, s.Token)
				assert.ErrorIs(t, err, ErrNotFound)
				assert.False(t, m.IsLoggedIn(ctx, tt.kind, s.Token))
			})
		}
	}
}

func TestLogoutEndsSession(t *testing.T) {
	for name, repo := range serverSideRepositories(t) {
		t.Run(name, func(t *testing.T) {
			m := NewManager(repo)
			ctx := context.Background()

			s, err := m.Login(ctx, KindDoctor, "D001", "Dr. A")
			require.NoError(t, err)
			require.NoError(t, m.Logout(ctx, s.Token))
			assert.False(t, m.IsLoggedIn(ctx, KindDoctor, s.Token))

			// Logging out twice is harmless.
			assert.NoError(t, m.Logout(ctx, s.Token))
			assert.NoError(t, m.Logout(ctx, ""))
		})
	}
}

func TestKindMismatchIsNotLoggedIn(t *testing.T) {
	m := NewManager(NewMemoryRepository())
	ctx := context.Background()

	s, err := m.Login(ctx, KindPatient, "HN001", "")
	require.NoError(t, err)
	assert.False(t, m.IsLoggedIn(ctx, KindDoctor, s.Token))
	assert.False(t, m.IsLoggedIn(ctx, KindAdmin, s.Token))
	assert.True(t, m.IsLoggedIn(ctx, KindPatient, s.Token))
}

func TestUnknownAndEmptyTokens(t *testing.T) {
	m := NewManager(NewMemoryRepository())
	ctx := context.Background()

	_, err := m.Current(ctx, KindAdmin, "")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = m.Current(ctx, KindAdmin, "does-not-exist")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestLoginRejectsUnknownKind(t *testing.T) {
	m := NewManager(NewMemoryRepository())
	_, err := m.Login(context.Background(), Kind("nurse"), "N1", "")
	assert.ErrorIs(t, err, ErrInvalidKind)
}

func TestMultiplePatientSessionsCoexist(t *testing.T) {
	m := NewManager(NewMemoryRepository())
	ctx := context.Background()

	a, err := m.Login(ctx, KindPatient, "HN001", "")
	require.NoError(t, err)
	b, err := m.Login(ctx, KindPatient, "HN002", "")
	require.NoError(t, err)

	require.NoError(t, m.Logout(ctx, a.Token))
	assert.False(t, m.IsLoggedIn(ctx, KindPatient, a.Token))
	assert.True(t, m.IsLoggedIn(ctx, KindPatient, b.Token))
	assert.NotEqual(t, CookieName(KindPatient, "HN001"), CookieName(KindPatient, "HN002"))
}

func TestInvalidateIdentity(t *testing.T) {
	for name, repo := range serverSideRepositories(t) {
		t.Run(name, func(t *testing.T) {
			m := NewManager(repo)
			ctx := context.Background()

			s1, err := m.Login(ctx, KindDoctor, "D001", "")
			require.NoError(t, err)
			s2, err := m.Login(ctx, KindDoctor, "D001", "")
			require.NoError(t, err)
			other, err := m.Login(ctx, KindDoctor, "D002", "")
			require.NoError(t, err)

			require.NoError(t, m.InvalidateIdentity(ctx, KindDoctor, "D001"))
			assert.False(t, m.IsLoggedIn(ctx, KindDoctor, s1.Token))
			assert.False(t, m.IsLoggedIn(ctx, KindDoctor, s2.Token))
			assert.True(t, m.IsLoggedIn(ctx, KindDoctor, other.Token))
		})
	}
}

func TestTTLTable(t *testing.T) {
	assert.Equal(t, 24*time.Hour, TTL(KindAdmin))
	assert.Equal(t, 24*time.Hour, TTL(KindDoctor))
	assert.Equal(t, 7*24*time.Hour, TTL(KindPatient))
}

func TestCookieName(t *testing.T) {
	assert.Equal(t, "cml_admin_session", CookieName(KindAdmin, "admin"))
	assert.Equal(t, "cml_doctor_session", CookieName(KindDoctor, "D001"))
	assert.Equal(t, "cml_patient_session_HN001", CookieName(KindPatient, "HN001"))
}

func TestParseKind(t *testing.T) {
	k, err := ParseKind("doctor")
	require.NoError(t, err)
	assert.Equal(t, KindDoctor, k)

	_, err = ParseKind("Doctor")
	assert.ErrorIs(t, err, ErrInvalidKind)
}
