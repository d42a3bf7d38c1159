package tokens

import (
	"context"
	"sync"
	"time"

	"github.com/dmitrijs2005/habittracker/internal/common"
	"github.com/dmitrijs2005/habittracker/internal/dbx"
	"github.com/dmitrijs2005/habittracker/internal/server/models"
	"github.com/dmitrijs2005/habittracker/internal/server/repositories/refreshtokens"
	"github.com/dmitrijs2005/habittracker/internal/server/repositories/users"
)

// memStore is an in-memory stand-in for the refresh_tokens and users tables.
// Every method holds the mutex, which gives the per-row atomicity the
// conditional revoke relies on.
type memStore struct {
	mu     sync.Mutex
	nextID int64
	tokens map[int64]models.RefreshToken
	users  map[string]models.User
	calls  int

	findErr   error
	createErr error
	sweepErr  error
}

func newMemStore(us ...models.User) *memStore {
	s := &memStore{tokens: map[int64]models.RefreshToken{}, users: map[string]models.User{}}
	for _, u := range us {
		s.users[u.ID] = u
	}
	return s
}

func (s *memStore) RefreshTokens(dbx.DBTX) refreshtokens.Repository { return memTokens{s} }
func (s *memStore) Users(dbx.DBTX) users.Repository                 { return memUsers{s} }

func (s *memStore) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

func (s *memStore) byTokenID(tokenID string) (models.RefreshToken, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, t := range s.tokens {
		if t.TokenID == tokenID {
			return t, true
		}
	}
	return models.RefreshToken{}, false
}

func (s *memStore) all() []models.RefreshToken {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.RefreshToken, 0, len(s.tokens))
	for _, t := range s.tokens {
		out = append(out, t)
	}
	return out
}

type memTokens struct{ s *memStore }

func (m memTokens) Create(_ context.Context, t *models.RefreshToken) (int64, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	m.s.calls++
	if m.s.createErr != nil {
		return 0, m.s.createErr
	}
	for _, existing := range m.s.tokens {
		if existing.TokenID == t.TokenID {
			return 0, common.ErrorAlreadyExists
		}
	}
	m.s.nextID++
	row := *t
	row.ID = m.s.nextID
	m.s.tokens[row.ID] = row
	return row.ID, nil
}

func (m memTokens) FindActiveByTokenID(_ context.Context, tokenID string) (*models.RefreshToken, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	m.s.calls++
	if m.s.findErr != nil {
		return nil, m.s.findErr
	}
	for _, t := range m.s.tokens {
		if t.TokenID == tokenID && t.RevokedAt == nil {
			row := t
			return &row, nil
		}
	}
	return nil, common.ErrorNotFound
}

func (m memTokens) RevokeIfActive(_ context.Context, id int64, at time.Time) (bool, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	m.s.calls++
	t, ok := m.s.tokens[id]
	if !ok || t.RevokedAt != nil {
		return false, nil
	}
	t.RevokedAt = &at
	m.s.tokens[id] = t
	return true, nil
}

func (m memTokens) RevokeExpired(_ context.Context, userID string, now time.Time) (int64, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	m.s.calls++
	if m.s.sweepErr != nil {
		return 0, m.s.sweepErr
	}
	var n int64
	for id, t := range m.s.tokens {
		if t.UserID == userID && t.RevokedAt == nil && !t.ExpiresAt.After(now) {
			at := t.ExpiresAt
			t.RevokedAt = &at
			m.s.tokens[id] = t
			n++
		}
	}
	return n, nil
}

func (m memTokens) RevokeActive(_ context.Context, userID string, now time.Time) (int64, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	m.s.calls++
	var n int64
	for id, t := range m.s.tokens {
		if t.UserID == userID && t.RevokedAt == nil && t.ExpiresAt.After(now) {
			at := now
			t.RevokedAt = &at
			m.s.tokens[id] = t
			n++
		}
	}
	return n, nil
}

type memUsers struct{ s *memStore }

func (m memUsers) Create(context.Context, *models.User) error { return nil }

func (m memUsers) GetByEmail(context.Context, string) (*models.User, error) {
	return nil, common.ErrorNotFound
}

func (m memUsers) GetByID(_ context.Context, id string) (*models.User, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	m.s.calls++
	u, ok := m.s.users[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	return &u, nil
}

func (m memUsers) ListRoles(context.Context, string) ([]string, error) { return nil, nil }

// passTx runs the unit of work directly; memStore provides the atomicity.
type passTx struct {
	mu    sync.Mutex
	count int
}

func (p *passTx) WithTx(ctx context.Context, fn dbx.TxFunc) error {
	p.mu.Lock()
	p.count++
	p.mu.Unlock()
	return fn(ctx, nil)
}

// clock is a settable time source.
type clock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}
