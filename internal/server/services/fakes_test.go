package services

import (
	"context"
	"database/sql"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/dmitrijs2005/habittracker/internal/common"
	"github.com/dmitrijs2005/habittracker/internal/dbx"
	"github.com/dmitrijs2005/habittracker/internal/server/models"
	"github.com/dmitrijs2005/habittracker/internal/server/repositories/dailies"
	"github.com/dmitrijs2005/habittracker/internal/server/repositories/habits"
	"github.com/dmitrijs2005/habittracker/internal/server/repositories/refreshtokens"
	"github.com/dmitrijs2005/habittracker/internal/server/repositories/tasks"
	"github.com/dmitrijs2005/habittracker/internal/server/repositories/users"
	"github.com/dmitrijs2005/habittracker/internal/server/tokens"
)

var errDB = errors.New("boom")

// fakeRepoManager keeps every table in memory. Errors injected through the
// *Err fields are returned by the matching repository.
type fakeRepoManager struct {
	mu sync.Mutex

	users     map[string]*models.User
	usersErr  error
	createErr error

	habits   map[int64]*models.Habit
	tasks    map[int64]*models.Task
	dailies  map[int64]*models.Daily
	items    map[int64]*models.ChecklistItem
	nextID   int64
	itemsErr error
	lastList models.ListQuery
	listErr  error
}

func newFakeRepoManager() *fakeRepoManager {
	return &fakeRepoManager{
		users:   map[string]*models.User{},
		habits:  map[int64]*models.Habit{},
		tasks:   map[int64]*models.Task{},
		dailies: map[int64]*models.Daily{},
		items:   map[int64]*models.ChecklistItem{},
	}
}

func (f *fakeRepoManager) RunMigrations(context.Context, *sql.DB) error    { return nil }
func (f *fakeRepoManager) Users(dbx.DBTX) users.Repository                 { return fakeUsers{f} }
func (f *fakeRepoManager) RefreshTokens(dbx.DBTX) refreshtokens.Repository { return nil }
func (f *fakeRepoManager) Habits(dbx.DBTX) habits.Repository               { return fakeHabits{f} }
func (f *fakeRepoManager) Dailies(dbx.DBTX) dailies.Repository             { return fakeDailies{f} }
func (f *fakeRepoManager) Tasks(dbx.DBTX) tasks.Repository                 { return fakeTasks{f} }

func (f *fakeRepoManager) id() int64 {
	f.nextID++
	return f.nextID
}

type fakeUsers struct{ f *fakeRepoManager }

func (r fakeUsers) Create(_ context.Context, u *models.User) error {
	r.f.mu.Lock()
	defer r.f.mu.Unlock()
	if r.f.createErr != nil {
		return r.f.createErr
	}
	for _, existing := range r.f.users {
		if existing.Email == u.Email {
			return common.ErrorAlreadyExists
		}
	}
	u.CreatedAt = time.Now().UTC()
	cp := *u
	r.f.users[u.ID] = &cp
	return nil
}

func (r fakeUsers) GetByEmail(_ context.Context, email string) (*models.User, error) {
	r.f.mu.Lock()
	defer r.f.mu.Unlock()
	if r.f.usersErr != nil {
		return nil, r.f.usersErr
	}
	for _, u := range r.f.users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, common.ErrorNotFound
}

func (r fakeUsers) GetByID(_ context.Context, id string) (*models.User, error) {
	r.f.mu.Lock()
	defer r.f.mu.Unlock()
	u, ok := r.f.users[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	cp := *u
	return &cp, nil
}

func (r fakeUsers) ListRoles(context.Context, string) ([]string, error) { return nil, nil }

type fakeHabits struct{ f *fakeRepoManager }

func (r fakeHabits) Create(_ context.Context, h *models.Habit) error {
	r.f.mu.Lock()
	defer r.f.mu.Unlock()
	h.ID = r.f.id()
	h.CreatedAt = time.Now().UTC()
	h.UpdatedAt = h.CreatedAt
	cp := *h
	r.f.habits[h.ID] = &cp
	return nil
}

func (r fakeHabits) Get(_ context.Context, userID string, id int64) (*models.Habit, error) {
	r.f.mu.Lock()
	defer r.f.mu.Unlock()
	h, ok := r.f.habits[id]
	if !ok || h.UserID != userID {
		return nil, common.ErrorNotFound
	}
	cp := *h
	return &cp, nil
}

func (r fakeHabits) List(_ context.Context, userID string, q models.ListQuery) ([]models.Habit, int64, error) {
	r.f.mu.Lock()
	defer r.f.mu.Unlock()
	r.f.lastList = q
	if r.f.listErr != nil {
		return nil, 0, r.f.listErr
	}
	var out []models.Habit
	for _, h := range r.f.habits {
		if h.UserID == userID {
			out = append(out, *h)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return page(out, q), int64(len(out)), nil
}

func (r fakeHabits) Update(_ context.Context, h *models.Habit) error {
	r.f.mu.Lock()
	defer r.f.mu.Unlock()
	existing, ok := r.f.habits[h.ID]
	if !ok || existing.UserID != h.UserID {
		return common.ErrorNotFound
	}
	h.CreatedAt = existing.CreatedAt
	h.UpdatedAt = time.Now().UTC()
	cp := *h
	r.f.habits[h.ID] = &cp
	return nil
}

func (r fakeHabits) Delete(_ context.Context, userID string, id int64) error {
	r.f.mu.Lock()
	defer r.f.mu.Unlock()
	h, ok := r.f.habits[id]
	if !ok || h.UserID != userID {
		return common.ErrorNotFound
	}
	delete(r.f.habits, id)
	return nil
}

type fakeTasks struct{ f *fakeRepoManager }

func (r fakeTasks) Create(_ context.Context, t *models.Task) error {
	r.f.mu.Lock()
	defer r.f.mu.Unlock()
	t.ID = r.f.id()
	cp := *t
	r.f.tasks[t.ID] = &cp
	return nil
}

func (r fakeTasks) Get(_ context.Context, userID string, id int64) (*models.Task, error) {
	r.f.mu.Lock()
	defer r.f.mu.Unlock()
	t, ok := r.f.tasks[id]
	if !ok || t.UserID != userID {
		return nil, common.ErrorNotFound
	}
	cp := *t
	return &cp, nil
}

func (r fakeTasks) List(_ context.Context, userID string, q models.ListQuery) ([]models.Task, int64, error) {
	r.f.mu.Lock()
	defer r.f.mu.Unlock()
	r.f.lastList = q
	if r.f.listErr != nil {
		return nil, 0, r.f.listErr
	}
	var out []models.Task
	for _, t := range r.f.tasks {
		if t.UserID == userID {
			out = append(out, *t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return page(out, q), int64(len(out)), nil
}

func (r fakeTasks) Update(_ context.Context, t *models.Task) error {
	r.f.mu.Lock()
	defer r.f.mu.Unlock()
	existing, ok := r.f.tasks[t.ID]
	if !ok || existing.UserID != t.UserID {
		return common.ErrorNotFound
	}
	cp := *t
	r.f.tasks[t.ID] = &cp
	return nil
}

func (r fakeTasks) Delete(_ context.Context, userID string, id int64) error {
	r.f.mu.Lock()
	defer r.f.mu.Unlock()
	t, ok := r.f.tasks[id]
	if !ok || t.UserID != userID {
		return common.ErrorNotFound
	}
	delete(r.f.tasks, id)
	return nil
}

type fakeDailies struct{ f *fakeRepoManager }

func (r fakeDailies) Create(_ context.Context, d *models.Daily) error {
	r.f.mu.Lock()
	defer r.f.mu.Unlock()
	d.ID = r.f.id()
	for i := range d.Checklist {
		d.Checklist[i].ID = r.f.id()
		d.Checklist[i].DailyID = d.ID
		item := d.Checklist[i]
		r.f.items[item.ID] = &item
	}
	cp := *d
	cp.Checklist = nil
	r.f.dailies[d.ID] = &cp
	return nil
}

func (r fakeDailies) Get(_ context.Context, userID string, id int64) (*models.Daily, error) {
	r.f.mu.Lock()
	defer r.f.mu.Unlock()
	d, ok := r.f.dailies[id]
	if !ok || d.UserID != userID {
		return nil, common.ErrorNotFound
	}
	cp := *d
	cp.Checklist = r.f.checklist(id)
	return &cp, nil
}

func (r fakeDailies) List(_ context.Context, userID string, q models.ListQuery) ([]models.Daily, int64, error) {
	r.f.mu.Lock()
	defer r.f.mu.Unlock()
	r.f.lastList = q
	var out []models.Daily
	for _, d := range r.f.dailies {
		if d.UserID == userID {
			cp := *d
			cp.Checklist = r.f.checklist(d.ID)
			out = append(out, cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return page(out, q), int64(len(out)), nil
}

func (r fakeDailies) Update(_ context.Context, d *models.Daily) error {
	r.f.mu.Lock()
	defer r.f.mu.Unlock()
	existing, ok := r.f.dailies[d.ID]
	if !ok || existing.UserID != d.UserID {
		return common.ErrorNotFound
	}
	cp := *d
	cp.Checklist = nil
	r.f.dailies[d.ID] = &cp
	return nil
}

func (r fakeDailies) Delete(_ context.Context, userID string, id int64) error {
	r.f.mu.Lock()
	defer r.f.mu.Unlock()
	d, ok := r.f.dailies[id]
	if !ok || d.UserID != userID {
		return common.ErrorNotFound
	}
	delete(r.f.dailies, id)
	for itemID, it := range r.f.items {
		if it.DailyID == id {
			delete(r.f.items, itemID)
		}
	}
	return nil
}

func (r fakeDailies) ListChecklist(_ context.Context, dailyID int64) ([]models.ChecklistItem, error) {
	r.f.mu.Lock()
	defer r.f.mu.Unlock()
	return r.f.checklist(dailyID), nil
}

func (r fakeDailies) AddChecklistItem(_ context.Context, item *models.ChecklistItem) error {
	r.f.mu.Lock()
	defer r.f.mu.Unlock()
	if r.f.itemsErr != nil {
		return r.f.itemsErr
	}
	item.ID = r.f.id()
	cp := *item
	r.f.items[item.ID] = &cp
	return nil
}

func (r fakeDailies) UpdateChecklistItem(_ context.Context, item *models.ChecklistItem) error {
	r.f.mu.Lock()
	defer r.f.mu.Unlock()
	existing, ok := r.f.items[item.ID]
	if !ok || existing.DailyID != item.DailyID {
		return common.ErrorNotFound
	}
	cp := *item
	r.f.items[item.ID] = &cp
	return nil
}

func (r fakeDailies) DeleteChecklistItem(_ context.Context, dailyID, id int64) error {
	r.f.mu.Lock()
	defer r.f.mu.Unlock()
	existing, ok := r.f.items[id]
	if !ok || existing.DailyID != dailyID {
		return common.ErrorNotFound
	}
	delete(r.f.items, id)
	return nil
}

// checklist must be called with mu held.
func (f *fakeRepoManager) checklist(dailyID int64) []models.ChecklistItem {
	var out []models.ChecklistItem
	for _, it := range f.items {
		if it.DailyID == dailyID {
			out = append(out, *it)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func page[T any](all []T, q models.ListQuery) []T {
	start := q.Offset()
	if start >= len(all) {
		return nil
	}
	end := start + q.PageSize
	if end > len(all) {
		end = len(all)
	}
	return all[start:end]
}

// snapshotTx runs fn directly and restores the in-memory tables when it fails,
// which is enough rollback for the service tests.
type snapshotTx struct {
	f     *fakeRepoManager
	calls int
}

func (s *snapshotTx) WithTx(ctx context.Context, fn dbx.TxFunc) error {
	s.calls++
	s.f.mu.Lock()
	dailiesBefore := make(map[int64]*models.Daily, len(s.f.dailies))
	for k, v := range s.f.dailies {
		cp := *v
		dailiesBefore[k] = &cp
	}
	itemsBefore := make(map[int64]*models.ChecklistItem, len(s.f.items))
	for k, v := range s.f.items {
		cp := *v
		itemsBefore[k] = &cp
	}
	s.f.mu.Unlock()

	if err := fn(ctx, nil); err != nil {
		s.f.mu.Lock()
		s.f.dailies, s.f.items = dailiesBefore, itemsBefore
		s.f.mu.Unlock()
		return err
	}
	return nil
}

// fakeRotator records calls and hands out predictable tokens.
type fakeRotator struct {
	mu        sync.Mutex
	n         int
	revoked   []string
	rotateErr error
	createErr error
	revokeErr error
	owner     *models.User
}

func (r *fakeRotator) issued(userID string, lifetime time.Duration) tokens.Issued {
	r.n++
	id := strings.Repeat("a", 31) + string(rune('0'+r.n%10))
	return tokens.Issued{
		Token: &models.RefreshToken{
			TokenID:   id,
			UserID:    userID,
			ExpiresAt: time.Now().UTC().Add(lifetime),
		},
		Plaintext: tokens.FormatToken(id, "secret"),
	}
}

func (r *fakeRotator) Create(_ context.Context, userID string, lifetime time.Duration) (*tokens.Issued, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.createErr != nil {
		return nil, r.createErr
	}
	is := r.issued(userID, lifetime)
	return &is, nil
}

func (r *fakeRotator) Rotate(_ context.Context, _ string, lifetime time.Duration) (*tokens.Rotation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.rotateErr != nil {
		return nil, r.rotateErr
	}
	return &tokens.Rotation{User: r.owner, Issued: r.issued(r.owner.ID, lifetime)}, nil
}

func (r *fakeRotator) RevokeAll(_ context.Context, userID string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.revokeErr != nil {
		return 0, r.revokeErr
	}
	r.revoked = append(r.revoked, userID)
	return 1, nil
}

// fakeLimiter counts calls and can be switched into the throttled state.
type fakeLimiter struct {
	blocked bool
	fails   int
	resets  int
}

func (l *fakeLimiter) Allow(context.Context, string, string) error {
	if l.blocked {
		return common.ErrRateLimited
	}
	return nil
}

func (l *fakeLimiter) Fail(context.Context, string, string)  { l.fails++ }
func (l *fakeLimiter) Reset(context.Context, string, string) { l.resets++ }
