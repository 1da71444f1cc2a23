package application

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/viralforge/intranet/credential-service/internal/domain"
	"github.com/viralforge/intranet/credential-service/internal/ports"
)

var fixedNow = time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)

type fixture struct {
	service    *Service
	store      *fakeStore
	dispatcher *fakeDispatcher
	lockouts   *fakeLockouts
	clock      *fakeClock
}

func defaultTestConfig() Config {
	return Config{
		ResetTokenTTL:              2 * time.Hour,
		ConfirmationTokenTTL:       2 * time.Hour,
		FailedLoginThreshold:       3,
		LockoutDuration:            15 * time.Minute,
		RecoveryRateLimitThreshold: 100,
		RecoveryRateLimitWindow:    time.Hour,
		PublicBaseURL:              "https://intranet.example.com/",
		DefaultProfile:             "EMPLOYEE",
		SuperAdminEmail:            "root@example.com",
		SuperAdminPassword:         "RootPass123",
	}
}

func newFixture() *fixture {
	return newFixtureWithConfig(defaultTestConfig())
}

func newFixtureWithConfig(cfg Config) *fixture {
	store := newFakeStore()
	dispatcher := &fakeDispatcher{}
	lockouts := &fakeLockouts{state: map[string]ports.LockoutState{}}
	clock := &fakeClock{now: fixedNow}
	svc := NewService(Dependencies{
		Config:      cfg,
		Credentials: store,
		Profiles:    store,
		Dispatcher:  dispatcher,
		Lockouts:    lockouts,
		Hasher:      &fakeHasher{},
		Issuer:      &fakeIssuer{clock: clock},
		Now:         clock.Now,
	})
	return &fixture{service: svc, store: store, dispatcher: dispatcher, lockouts: lockouts, clock: clock}
}

// addUser stores a user with the given password behind the fake hasher.
func (f *fixture) addUser(email, password string, confirmed bool) domain.User {
	user := domain.User{
		UserID:         uuid.New(),
		Email:          email,
		PasswordHash:   "hash:" + password,
		EmailConfirmed: confirmed,
		Profiles:       []string{},
		CreatedAt:      fixedNow,
		UpdatedAt:      fixedNow,
	}
	f.store.mu.Lock()
	f.store.users[email] = user
	f.store.mu.Unlock()
	return user
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// fakeStore implements both CredentialStore and ProfileStore in memory with
// the same atomicity the postgres adapter provides.
type fakeStore struct {
	mu       sync.Mutex
	users    map[string]domain.User
	tokens   map[uuid.UUID]domain.CredentialToken
	profiles map[string]domain.Profile
	outbox   []ports.OutboxEvent
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		users:    map[string]domain.User{},
		tokens:   map[uuid.UUID]domain.CredentialToken{},
		profiles: map[string]domain.Profile{},
	}
}

func (f *fakeStore) userByID(id uuid.UUID) (domain.User, bool) {
	for _, u := range f.users {
		if u.UserID == id {
			return u, true
		}
	}
	return domain.User{}, false
}

func (f *fakeStore) FindUserByEmail(_ context.Context, email string) (domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	user, ok := f.users[strings.ToLower(email)]
	if !ok {
		return domain.User{}, domain.ErrNotFound
	}
	user.Profiles = append([]string{}, user.Profiles...)
	return user, nil
}

func (f *fakeStore) SaveUser(_ context.Context, user domain.User, event *ports.OutboxEvent) (domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.users[user.Email]; ok {
		return domain.User{}, domain.ErrConflict
	}
	for _, p := range user.Profiles {
		if _, ok := f.profiles[p]; !ok {
			return domain.User{}, domain.ErrNotFound
		}
	}
	f.users[user.Email] = user
	if event != nil {
		f.outbox = append(f.outbox, *event)
	}
	return user, nil
}

func (f *fakeStore) UpdatePassword(_ context.Context, userID uuid.UUID, passwordHash string, updatedAt time.Time, event *ports.OutboxEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	user, ok := f.userByID(userID)
	if !ok {
		return domain.ErrNotFound
	}
	user.PasswordHash = passwordHash
	user.UpdatedAt = updatedAt
	f.users[user.Email] = user
	if event != nil {
		f.outbox = append(f.outbox, *event)
	}
	return nil
}

func (f *fakeStore) CreateToken(_ context.Context, params ports.CreateTokenParams) (domain.CredentialToken, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.userByID(params.UserID); !ok {
		return domain.CredentialToken{}, domain.ErrNotFound
	}
	f.invalidateLocked(params.Kind, params.UserID, params.CreatedAt)
	token := domain.CredentialToken{
		TokenID:   uuid.New(),
		Kind:      params.Kind,
		UserID:    params.UserID,
		Email:     params.Email,
		TokenHash: params.TokenHash,
		CreatedAt: params.CreatedAt,
		ExpiresAt: params.ExpiresAt,
	}
	f.tokens[token.TokenID] = token
	return token, nil
}

func (f *fakeStore) FindToken(_ context.Context, kind domain.TokenKind, tokenHash string) (domain.CredentialToken, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, t := range f.tokens {
		if t.Kind == kind && t.TokenHash == tokenHash {
			return t, nil
		}
	}
	return domain.CredentialToken{}, domain.ErrTokenNotFound
}

func (f *fakeStore) ConsumeToken(_ context.Context, params ports.ConsumeTokenParams) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	token, ok := f.tokens[params.TokenID]
	if !ok {
		return domain.ErrTokenNotFound
	}
	if err := token.Check(params.ConsumedAt); err != nil {
		return err
	}
	at := params.ConsumedAt
	token.ConsumedAt = &at
	f.tokens[token.TokenID] = token

	user, ok := f.userByID(token.UserID)
	if !ok {
		return domain.ErrNotFound
	}
	if params.PasswordHash != "" {
		user.PasswordHash = params.PasswordHash
	}
	if params.ConfirmEmail {
		user.EmailConfirmed = true
	}
	user.UpdatedAt = at
	f.users[user.Email] = user
	if params.Event != nil {
		f.outbox = append(f.outbox, *params.Event)
	}
	return nil
}

func (f *fakeStore) InvalidatePriorTokens(_ context.Context, kind domain.TokenKind, userID uuid.UUID, at time.Time) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.invalidateLocked(kind, userID, at), nil
}

func (f *fakeStore) invalidateLocked(kind domain.TokenKind, userID uuid.UUID, at time.Time) int64 {
	var n int64
	for id, t := range f.tokens {
		if t.Kind != kind || t.UserID != userID || t.ConsumedAt != nil || t.InvalidatedAt != nil {
			continue
		}
		stamp := at
		t.InvalidatedAt = &stamp
		f.tokens[id] = t
		n++
	}
	return n
}

func (f *fakeStore) PurgeExpiredTokens(_ context.Context, before time.Time) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for id, t := range f.tokens {
		if t.ExpiresAt.Before(before) {
			delete(f.tokens, id)
			n++
		}
	}
	return n, nil
}

func (f *fakeStore) liveTokens(kind domain.TokenKind, userID uuid.UUID) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, t := range f.tokens {
		if t.Kind == kind && t.UserID == userID && t.Check(fixedNow) == nil {
			n++
		}
	}
	return n
}

func (f *fakeStore) eventTypes() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, 0, len(f.outbox))
	for _, e := range f.outbox {
		out = append(out, e.EventType)
	}
	return out
}

func (f *fakeStore) ListProfiles(context.Context) ([]domain.Profile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]domain.Profile, 0, len(f.profiles))
	for _, p := range f.profiles {
		p.Permissions = append([]string{}, p.Permissions...)
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (f *fakeStore) ListPermissions(_ context.Context, profile string) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.profiles[profile]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return append([]string{}, p.Permissions...), nil
}

func (f *fakeStore) ListUserProfiles(_ context.Context, userID uuid.UUID) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	user, ok := f.userByID(userID)
	if !ok {
		return nil, domain.ErrNotFound
	}
	out := append([]string{}, user.Profiles...)
	sort.Strings(out)
	return out, nil
}

func (f *fakeStore) AddAssignment(_ context.Context, userID uuid.UUID, profile string, _ time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.profiles[profile]; !ok {
		return domain.ErrNotFound
	}
	user, ok := f.userByID(userID)
	if !ok {
		return domain.ErrNotFound
	}
	if user.HasProfile(profile) {
		return domain.ErrDuplicateAssignment
	}
	user.Profiles = append(user.Profiles, profile)
	f.users[user.Email] = user
	return nil
}

func (f *fakeStore) RemoveAssignment(_ context.Context, userID uuid.UUID, profile string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	user, ok := f.userByID(userID)
	if !ok || !user.HasProfile(profile) {
		return domain.ErrNotFound
	}
	kept := user.Profiles[:0:0]
	for _, p := range user.Profiles {
		if p != profile {
			kept = append(kept, p)
		}
	}
	user.Profiles = kept
	f.users[user.Email] = user
	return nil
}

func (f *fakeStore) GrantPermissions(_ context.Context, profile string, permissions []string, _ time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.profiles[profile]
	if !ok {
		return domain.ErrNotFound
	}
	for _, perm := range permissions {
		if !contains(p.Permissions, perm) {
			p.Permissions = append(p.Permissions, perm)
		}
	}
	sort.Strings(p.Permissions)
	f.profiles[profile] = p
	return nil
}

func (f *fakeStore) SeedDefaults(_ context.Context, defaults []domain.Profile, _ time.Time) (domain.SeedReport, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	report := domain.SeedReport{}
	known := map[string]bool{}
	for _, p := range f.profiles {
		for _, perm := range p.Permissions {
			known[perm] = true
		}
	}
	links := 0
	for _, d := range defaults {
		p, ok := f.profiles[d.Name]
		if !ok {
			p = domain.Profile{Name: d.Name, Description: d.Description}
			report.CreatedProfiles++
		}
		for _, perm := range d.Permissions {
			if !known[perm] {
				known[perm] = true
				report.CreatedPermissions++
			}
			if !contains(p.Permissions, perm) {
				p.Permissions = append(p.Permissions, perm)
				links++
			}
		}
		sort.Strings(p.Permissions)
		f.profiles[d.Name] = p
	}
	report.Noop = report.CreatedProfiles == 0 && report.CreatedPermissions == 0 && links == 0
	return report, nil
}

func contains(list []string, v string) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}

type fakeDispatcher struct {
	mu   sync.Mutex
	sent []ports.EmailMessage
	err  error
}

func (d *fakeDispatcher) Send(_ context.Context, msg ports.EmailMessage) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.err != nil {
		return d.err
	}
	d.sent = append(d.sent, msg)
	return nil
}

func (d *fakeDispatcher) count() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.sent)
}

// lastToken returns the raw token of the most recent message.
func (d *fakeDispatcher) lastToken() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.sent) == 0 {
		return ""
	}
	token, _ := d.sent[len(d.sent)-1].Data["Token"].(string)
	return token
}

type fakeLockouts struct {
	mu    sync.Mutex
	state map[string]ports.LockoutState
}

func (f *fakeLockouts) Get(_ context.Context, key string) (ports.LockoutState, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state[key], nil
}

func (f *fakeLockouts) RecordFailure(_ context.Context, key string, now time.Time, threshold int, lockoutWindow time.Duration) (ports.LockoutState, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	st := f.state[key]
	st.FailedCount++
	if st.FailedCount >= threshold {
		lockUntil := now.Add(lockoutWindow)
		st.LockedUntil = &lockUntil
	}
	f.state[key] = st
	return st, nil
}

func (f *fakeLockouts) Clear(_ context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.state, key)
	return nil
}

type fakeHasher struct{}

func (f *fakeHasher) Hash(password string) (string, error) { return "hash:" + password, nil }

func (f *fakeHasher) Compare(hash, password string) error {
	if hash != "hash:"+password {
		return domain.ErrInvalidCredentials
	}
	return nil
}

type fakeIssuer struct {
	mu     sync.Mutex
	clock  *fakeClock
	issued map[string]ports.SessionClaims
}

func (f *fakeIssuer) Issue() (ports.SessionToken, error) { return f.IssueFor("") }

func (f *fakeIssuer) IssueFor(subject string) (ports.SessionToken, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.issued == nil {
		f.issued = map[string]ports.SessionClaims{}
	}
	now := f.clock.Now()
	raw := uuid.NewString()
	f.issued[raw] = ports.SessionClaims{TokenID: raw, Subject: subject, IssuedAt: now, ExpiresAt: now.Add(2 * time.Hour)}
	return ports.SessionToken{Token: raw, ExpiresAt: now.Add(2 * time.Hour), ExpiresIn: 7200}, nil
}

func (f *fakeIssuer) Validate(raw string) (ports.SessionClaims, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	claims, ok := f.issued[raw]
	if !ok {
		return ports.SessionClaims{}, domain.ErrUnauthorized
	}
	if !f.clock.Now().Before(claims.ExpiresAt) {
		return ports.SessionClaims{}, domain.ErrTokenExpired
	}
	return claims, nil
}

var errBrokerDown = errors.New("smtp relay unavailable")
