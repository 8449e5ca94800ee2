// Package testutil holds in-memory stores and doubles shared by service and
// handler tests. The stores follow the repository contracts: partition by
// user, newest-first listings, ErrNotFound outside the caller's partition,
// and a seed marker that lets a scope be seeded at most once.
package testutil

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"deo-backend/internal/models"
	"deo-backend/internal/repository"
)

// ErrInjected is the default failure returned by stores told to fail
var ErrInjected = errors.New("injected store failure")

// faults lets a test make writes or reads fail
type faults struct {
	mu        sync.Mutex
	failWrite error
	failRead  error
}

// FailWrites makes every following write return err. Nil clears it.
func (f *faults) FailWrites(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failWrite = err
}

// FailReads makes every following read return err. Nil clears it.
func (f *faults) FailReads(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failRead = err
}

func (f *faults) writeErr() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.failWrite
}

func (f *faults) readErr() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.failRead
}

// Users is an in-memory user store
type Users struct {
	faults
	mu    sync.Mutex
	users map[string]models.User
}

// NewUsers creates an empty user store
func NewUsers() *Users {
	return &Users{users: make(map[string]models.User)}
}

func (s *Users) Create(ctx context.Context, user *models.User) error {
	if err := s.writeErr(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if strings.EqualFold(u.Email, user.Email) {
			return fmt.Errorf("email %s: %w", user.Email, repository.ErrDuplicate)
		}
	}
	s.users[user.ID] = *user
	return nil
}

func (s *Users) GetByID(ctx context.Context, id string) (*models.User, error) {
	if err := s.readErr(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return nil, fmt.Errorf("user not found: %w", repository.ErrNotFound)
	}
	return &u, nil
}

func (s *Users) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	if err := s.readErr(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if strings.EqualFold(u.Email, email) {
			return &u, nil
		}
	}
	return nil, fmt.Errorf("user not found: %w", repository.ErrNotFound)
}

func (s *Users) UpdatePushToken(ctx context.Context, userID string, pushToken *string) error {
	if err := s.writeErr(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[userID]
	if !ok {
		return fmt.Errorf("user not found: %w", repository.ErrNotFound)
	}
	u.PushToken = pushToken
	s.users[userID] = u
	return nil
}

// Sessions is an in-memory session store
type Sessions struct {
	faults
	mu       sync.Mutex
	sessions map[string]models.Session
}

// NewSessions creates an empty session store
func NewSessions() *Sessions {
	return &Sessions{sessions: make(map[string]models.Session)}
}

func (s *Sessions) Create(ctx context.Context, session *models.Session) error {
	if err := s.writeErr(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[session.ID] = *session
	return nil
}

func (s *Sessions) GetByID(ctx context.Context, id string) (*models.Session, error) {
	if err := s.readErr(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	session, ok := s.sessions[id]
	if !ok {
		return nil, fmt.Errorf("session not found: %w", repository.ErrNotFound)
	}
	return &session, nil
}

func (s *Sessions) Revoke(ctx context.Context, id string, at time.Time) (bool, error) {
	if err := s.writeErr(); err != nil {
		return false, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	session, ok := s.sessions[id]
	if !ok || session.RevokedAt != nil {
		return false, nil
	}
	session.RevokedAt = &at
	s.sessions[id] = session
	return true, nil
}

// Streaks is an in-memory streak store. Reminder lookups join against users.
type Streaks struct {
	faults
	users *Users

	mu      sync.Mutex
	streaks map[string]models.StreakState
	saves   int
}

// NewStreaks creates an empty streak store; users may be nil
func NewStreaks(users *Users) *Streaks {
	return &Streaks{users: users, streaks: make(map[string]models.StreakState)}
}

func (s *Streaks) Get(ctx context.Context, userID string) (*models.StreakState, error) {
	if err := s.readErr(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	state, ok := s.streaks[userID]
	if !ok {
		state = models.StreakState{UserID: userID, UpdatedAt: time.Now()}
		s.streaks[userID] = state
	}
	return &state, nil
}

func (s *Streaks) Save(ctx context.Context, state *models.StreakState) (*models.StreakState, error) {
	if err := s.writeErr(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	next := *state
	if prev, ok := s.streaks[state.UserID]; ok && prev.LastLoggedDate != nil {
		if next.LastLoggedDate == nil || prev.LastLoggedDate.After(*next.LastLoggedDate) {
			next.LastLoggedDate = prev.LastLoggedDate
		}
	}
	s.streaks[state.UserID] = next
	s.saves++
	return &next, nil
}

// Put replaces a user's stored state
func (s *Streaks) Put(state models.StreakState) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.streaks[state.UserID] = state
}

// Saves returns how many times Save succeeded
func (s *Streaks) Saves() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saves
}

func (s *Streaks) ListAtRisk(ctx context.Context, day time.Time) ([]models.ReminderTarget, error) {
	if err := s.readErr(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	states := make([]models.StreakState, 0, len(s.streaks))
	for _, st := range s.streaks {
		states = append(states, st)
	}
	s.mu.Unlock()

	targets := []models.ReminderTarget{}
	for _, st := range states {
		if st.StreakCount <= 0 || st.LastLoggedDate == nil || !st.LastLoggedDate.Equal(day) {
			continue
		}
		if s.users == nil {
			continue
		}
		u, err := s.users.GetByID(ctx, st.UserID)
		if err != nil || u.PushToken == nil || *u.PushToken == "" {
			continue
		}
		targets = append(targets, models.ReminderTarget{
			UserID:      st.UserID,
			PushToken:   *u.PushToken,
			StreakCount: st.StreakCount,
		})
	}
	sort.Slice(targets, func(i, j int) bool { return targets[i].UserID < targets[j].UserID })
	return targets, nil
}

// seedMarkers records scopes that were claimed for seeding
type seedMarkers struct {
	mu     sync.Mutex
	claims map[string]bool
}

func (m *seedMarkers) claim(scope string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.claims == nil {
		m.claims = make(map[string]bool)
	}
	if m.claims[scope] {
		return false
	}
	m.claims[scope] = true
	return true
}

// Prayers is an in-memory prayer store
type Prayers struct {
	faults
	mu      sync.Mutex
	prayers []models.Prayer
}

// NewPrayers creates an empty prayer store
func NewPrayers() *Prayers {
	return &Prayers{}
}

func (s *Prayers) Create(ctx context.Context, p *models.Prayer) error {
	if err := s.writeErr(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.prayers = append(s.prayers, *p)
	return nil
}

func (s *Prayers) List(ctx context.Context, userID string) ([]models.Prayer, error) {
	if err := s.readErr(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []models.Prayer{}
	for _, p := range s.prayers {
		if p.UserID == userID {
			out = append(out, p)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return newerFirst(out[i].CreatedAt, out[j].CreatedAt, out[i].ID, out[j].ID)
	})
	return out, nil
}

// Reflections is an in-memory reflection store
type Reflections struct {
	faults
	mu      sync.Mutex
	entries []models.ReflectionEntry
}

// NewReflections creates an empty reflection store
func NewReflections() *Reflections {
	return &Reflections{}
}

func (s *Reflections) Create(ctx context.Context, e *models.ReflectionEntry) error {
	if err := s.writeErr(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = append(s.entries, *e)
	return nil
}

func (s *Reflections) List(ctx context.Context, userID string) ([]models.ReflectionEntry, error) {
	if err := s.readErr(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []models.ReflectionEntry{}
	for _, e := range s.entries {
		if e.UserID == userID {
			out = append(out, e)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return newerFirst(out[i].CreatedAt, out[j].CreatedAt, out[i].ID, out[j].ID)
	})
	return out, nil
}

// Checklist is an in-memory checklist store
type Checklist struct {
	faults
	markers seedMarkers

	mu    sync.Mutex
	items []models.ChecklistItem
	seeds int
}

// NewChecklist creates an empty checklist store
func NewChecklist() *Checklist {
	return &Checklist{}
}

func (s *Checklist) List(ctx context.Context, userID string) ([]models.ChecklistItem, error) {
	if err := s.readErr(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []models.ChecklistItem{}
	for _, it := range s.items {
		if it.UserID == userID {
			out = append(out, it)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Position < out[j].Position })
	return out, nil
}

func (s *Checklist) SeedOnce(ctx context.Context, userID string, items []models.ChecklistItem) (bool, error) {
	if err := s.writeErr(); err != nil {
		return false, err
	}
	if !s.markers.claim("users/" + userID + "/checklist") {
		return false, nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, it := range s.items {
		if it.UserID == userID {
			return false, nil
		}
	}
	for _, it := range items {
		it.UserID = userID
		s.items = append(s.items, it)
	}
	s.seeds++
	return true, nil
}

// Seeds returns how many times defaults were written
func (s *Checklist) Seeds() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.seeds
}

func (s *Checklist) SetDone(ctx context.Context, userID, itemID string, done bool) (*models.ChecklistItem, error) {
	if err := s.writeErr(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, it := range s.items {
		if it.ID == itemID && it.UserID == userID {
			s.items[i].Done = done
			updated := s.items[i]
			return &updated, nil
		}
	}
	return nil, fmt.Errorf("checklist item not found: %w", repository.ErrNotFound)
}

// Add inserts an item directly, bypassing seeding
func (s *Checklist) Add(item models.ChecklistItem) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = append(s.items, item)
}

// Inspirations is an in-memory inspiration store
type Inspirations struct {
	faults
	markers seedMarkers

	mu    sync.Mutex
	items []models.InspirationPrayer
	seeds int
}

// NewInspirations creates an empty inspiration store
func NewInspirations() *Inspirations {
	return &Inspirations{}
}

func (s *Inspirations) Create(ctx context.Context, p *models.InspirationPrayer) error {
	if err := s.writeErr(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = append(s.items, *p)
	return nil
}

func (s *Inspirations) GetByID(ctx context.Context, userID, id string) (*models.InspirationPrayer, error) {
	if err := s.readErr(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range s.items {
		if p.ID == id && p.UserID == userID {
			return &p, nil
		}
	}
	return nil, fmt.Errorf("inspiration not found: %w", repository.ErrNotFound)
}

func (s *Inspirations) List(ctx context.Context, userID string) ([]models.InspirationPrayer, error) {
	if err := s.readErr(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []models.InspirationPrayer{}
	for _, p := range s.items {
		if p.UserID == userID {
			out = append(out, p)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return newerFirst(out[i].CreatedAt, out[j].CreatedAt, out[i].ID, out[j].ID)
	})
	return out, nil
}

func (s *Inspirations) Update(ctx context.Context, userID, id string, title, body *string) (*models.InspirationPrayer, error) {
	if err := s.writeErr(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, p := range s.items {
		if p.ID != id || p.UserID != userID || !p.OwnedBy(userID) {
			continue
		}
		if title != nil {
			s.items[i].Title = *title
		}
		if body != nil {
			s.items[i].Body = *body
		}
		updated := s.items[i]
		return &updated, nil
	}
	return nil, fmt.Errorf("inspiration not found: %w", repository.ErrNotFound)
}

func (s *Inspirations) SeedOnce(ctx context.Context, userID string, items []models.InspirationPrayer) (bool, error) {
	if err := s.writeErr(); err != nil {
		return false, err
	}
	if !s.markers.claim("users/" + userID + "/inspirations") {
		return false, nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range s.items {
		if p.UserID == userID {
			return false, nil
		}
	}
	for _, p := range items {
		p.UserID = userID
		p.IsUserCreated = false
		p.OwnerID = nil
		s.items = append(s.items, p)
	}
	s.seeds++
	return true, nil
}

// Seeds returns how many times built-ins were written
func (s *Inspirations) Seeds() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.seeds
}

// Put inserts a record directly, bypassing seeding
func (s *Inspirations) Put(p models.InspirationPrayer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = append(s.items, p)
}

func newerFirst(a, b time.Time, idA, idB string) bool {
	if !a.Equal(b) {
		return a.After(b)
	}
	return idA > idB
}
