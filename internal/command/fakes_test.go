package command

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/cfmail/console/internal/cloudflare"
	"github.com/cfmail/console/internal/errs"
	"github.com/cfmail/console/internal/models"
	"github.com/cfmail/console/internal/repository"
)

type publishedEvent struct {
	stream    string
	eventType string
	data      any
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []publishedEvent
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, stream, eventType string, data any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, publishedEvent{stream: stream, eventType: eventType, data: data})
	return p.err
}

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.eventType)
	}
	return out
}

type staticSettings struct {
	cfg models.SystemConfig
	err error
}

func newSettings() *staticSettings {
	return &staticSettings{cfg: models.DefaultSystemConfig()}
}

func (s *staticSettings) Get(context.Context) (*models.SystemConfig, error) {
	if s.err != nil {
		return nil, s.err
	}
	cfg := s.cfg
	return &cfg, nil
}

type memoryUsers struct {
	byID map[string]*models.User
}

func newMemoryUsers(users ...*models.User) *memoryUsers {
	m := &memoryUsers{byID: map[string]*models.User{}}
	for _, u := range users {
		m.byID[u.ID] = u
	}
	return m
}

func (m *memoryUsers) Create(_ context.Context, user *models.User) error {
	for _, u := range m.byID {
		if strings.EqualFold(u.Username, user.Username) {
			return errs.ErrUsernameTaken
		}
		if strings.EqualFold(u.Email, user.Email) {
			return errs.ErrEmailTaken
		}
	}
	cp := *user
	m.byID[user.ID] = &cp
	return nil
}

func (m *memoryUsers) GetByID(_ context.Context, id string) (*models.User, error) {
	u, ok := m.byID[id]
	if !ok {
		return nil, errs.ErrUserNotFound
	}
	cp := *u
	return &cp, nil
}

func (m *memoryUsers) GetByUsername(_ context.Context, username string) (*models.User, error) {
	for _, u := range m.byID {
		if strings.EqualFold(u.Username, username) {
			cp := *u
			return &cp, nil
		}
	}
	return nil, errs.ErrUserNotFound
}

func (m *memoryUsers) Update(_ context.Context, user *models.User) error {
	stored, ok := m.byID[user.ID]
	if !ok {
		return errs.ErrUserNotFound
	}
	cp := *user
	cp.Frequency = stored.Frequency
	m.byID[user.ID] = &cp
	return nil
}

func (m *memoryUsers) SetFrequency(_ context.Context, id string, frequency int) (*models.User, error) {
	u, ok := m.byID[id]
	if !ok {
		return nil, errs.ErrUserNotFound
	}
	before := *u
	u.Frequency = frequency
	return &before, nil
}

func (m *memoryUsers) AddFrequency(_ context.Context, id string, delta, max int) (*models.User, error) {
	u, ok := m.byID[id]
	if !ok {
		return nil, errs.ErrUserNotFound
	}
	if u.Frequency+delta > max {
		return nil, errs.ErrQuotaLimit
	}
	u.Frequency += delta
	cp := *u
	return &cp, nil
}

func (m *memoryUsers) SetPermissions(_ context.Context, id, permissions string) error {
	u, ok := m.byID[id]
	if !ok {
		return errs.ErrUserNotFound
	}
	u.Permissions = permissions
	return nil
}

func (m *memoryUsers) Delete(_ context.Context, id string) error {
	if _, ok := m.byID[id]; !ok {
		return errs.ErrUserNotFound
	}
	delete(m.byID, id)
	return nil
}

func (m *memoryUsers) DeleteBatch(_ context.Context, ids []string) (int64, error) {
	var n int64
	for _, id := range ids {
		if _, ok := m.byID[id]; ok {
			delete(m.byID, id)
			n++
		}
	}
	return n, nil
}

type noopViews struct {
	invalidated []string
}

func (v *noopViews) CacheUserView(context.Context, *models.UserView) {}

func (v *noopViews) InvalidateUserView(_ context.Context, ids ...string) {
	v.invalidated = append(v.invalidated, ids...)
}

// memoryEmails shares the users map so CreateWithQuota can decrement.
type memoryEmails struct {
	users     *memoryUsers
	records   map[string]*models.EmailRecord
	createErr error
}

func newMemoryEmails(users *memoryUsers, recs ...models.EmailRecord) *memoryEmails {
	m := &memoryEmails{users: users, records: map[string]*models.EmailRecord{}}
	for i := range recs {
		r := recs[i]
		m.records[r.ID] = &r
	}
	return m
}

func (m *memoryEmails) CreateWithQuota(ctx context.Context, rec *models.EmailRecord) (int, error) {
	if m.createErr != nil {
		return 0, m.createErr
	}
	u, ok := m.users.byID[rec.UserID]
	if !ok || u.Frequency <= 0 {
		return 0, errs.ErrInsufficientQuota
	}
	if err := m.Create(ctx, rec); err != nil {
		return 0, err
	}
	u.Frequency--
	return u.Frequency, nil
}

func (m *memoryEmails) Create(_ context.Context, rec *models.EmailRecord) error {
	for _, r := range m.records {
		if strings.EqualFold(r.Email, rec.Email) {
			return errs.ErrAddressTaken
		}
	}
	cp := *rec
	m.records[rec.ID] = &cp
	return nil
}

func (m *memoryEmails) GetByID(_ context.Context, id string) (*models.EmailRecordView, error) {
	r, ok := m.records[id]
	if !ok {
		return nil, errs.ErrEmailNotFound
	}
	return &models.EmailRecordView{EmailRecord: *r}, nil
}

func (m *memoryEmails) GetByAddress(_ context.Context, email string) (*models.EmailRecord, error) {
	for _, r := range m.records {
		if strings.EqualFold(r.Email, email) {
			cp := *r
			return &cp, nil
		}
	}
	return nil, errs.ErrEmailNotFound
}

func (m *memoryEmails) GetByRuleID(_ context.Context, ruleID string) (*models.EmailRecord, error) {
	for _, r := range m.records {
		if r.RuleID == ruleID {
			cp := *r
			return &cp, nil
		}
	}
	return nil, errs.ErrEmailNotFound
}

func (m *memoryEmails) ListByUsers(_ context.Context, userIDs []string) ([]models.EmailRecord, error) {
	out := []models.EmailRecord{}
	for _, r := range m.records {
		for _, id := range userIDs {
			if r.UserID == id {
				out = append(out, *r)
			}
		}
	}
	return out, nil
}

func (m *memoryEmails) Update(_ context.Context, rec *models.EmailRecord) error {
	if _, ok := m.records[rec.ID]; !ok {
		return errs.ErrEmailNotFound
	}
	for id, r := range m.records {
		if id != rec.ID && strings.EqualFold(r.Email, rec.Email) {
			return errs.ErrAddressTaken
		}
	}
	cp := *rec
	m.records[rec.ID] = &cp
	return nil
}

func (m *memoryEmails) Delete(_ context.Context, id string) (*models.EmailRecord, error) {
	r, ok := m.records[id]
	if !ok {
		return nil, errs.ErrEmailNotFound
	}
	delete(m.records, id)
	return r, nil
}

func (m *memoryEmails) DeleteByRuleID(ctx context.Context, ruleID string) (*models.EmailRecord, error) {
	r, err := m.GetByRuleID(ctx, ruleID)
	if err != nil {
		return nil, err
	}
	return m.Delete(ctx, r.ID)
}

func (m *memoryEmails) DeleteBatch(_ context.Context, ids []string) ([]models.EmailRecord, error) {
	out := []models.EmailRecord{}
	for _, id := range ids {
		if r, ok := m.records[id]; ok {
			out = append(out, *r)
			delete(m.records, id)
		}
	}
	return out, nil
}

type fakeRules struct {
	domain    string
	created   []string
	updated   []string
	deleted   []string
	createErr error
	updateErr error
	deleteErr error
	nextID    int
}

func (f *fakeRules) Address(prefix string) string {
	return strings.ToLower(prefix + "@" + f.domain)
}

func (f *fakeRules) CreateRule(_ context.Context, prefix, forwardTo string) (*cloudflare.Rule, error) {
	if f.createErr != nil {
		return nil, f.createErr
	}
	f.nextID++
	id := fmt.Sprintf("rule-%d", f.nextID)
	f.created = append(f.created, id)
	return &cloudflare.Rule{ID: id, Name: "Forward " + f.Address(prefix) + " to " + forwardTo, Enabled: true}, nil
}

func (f *fakeRules) UpdateRule(_ context.Context, id, prefix, forwardTo string) (*cloudflare.Rule, error) {
	if f.updateErr != nil {
		return nil, f.updateErr
	}
	f.updated = append(f.updated, id+"|"+f.Address(prefix)+"|"+forwardTo)
	return &cloudflare.Rule{ID: id, Enabled: true}, nil
}

func (f *fakeRules) DeleteRule(_ context.Context, id string) error {
	f.deleted = append(f.deleted, id)
	return f.deleteErr
}

type fakeDestinations struct {
	emails []string
	err    error
}

func (f *fakeDestinations) CreateDestinationAddress(_ context.Context, email string) (*cloudflare.DestinationAddress, error) {
	f.emails = append(f.emails, email)
	if f.err != nil {
		return nil, f.err
	}
	return &cloudflare.DestinationAddress{ID: "dst-1", Email: email}, nil
}

type mockCardStore struct {
	createBatchFn   func([]models.CardCode) error
	transitionFn    func(id, from, to string) (*models.CardCode, error)
	deleteExpiredFn func(now time.Time) (int64, error)
	batches         int
}

func (m *mockCardStore) CreateBatch(_ context.Context, codes []models.CardCode) error {
	m.batches++
	if m.createBatchFn != nil {
		return m.createBatchFn(codes)
	}
	return nil
}

func (m *mockCardStore) Transition(_ context.Context, id, from, to string) (*models.CardCode, error) {
	if m.transitionFn != nil {
		return m.transitionFn(id, from, to)
	}
	return nil, fmt.Errorf("not configured")
}

func (m *mockCardStore) Delete(context.Context, string) error { return nil }

func (m *mockCardStore) DeleteBatch(_ context.Context, ids []string) (int64, error) {
	return int64(len(ids)), nil
}

func (m *mockCardStore) DeleteExpired(_ context.Context, now time.Time) (int64, error) {
	if m.deleteExpiredFn != nil {
		return m.deleteExpiredFn(now)
	}
	return 0, fmt.Errorf("not configured")
}

type mockRechargeStore struct {
	redeemFn func(repository.RedeemParams) (*repository.RechargeResult, error)
	adminFn  func(repository.AdminRechargeParams) (*repository.RechargeResult, error)
}

func (m *mockRechargeStore) RedeemCard(_ context.Context, p repository.RedeemParams) (*repository.RechargeResult, error) {
	if m.redeemFn != nil {
		return m.redeemFn(p)
	}
	return nil, fmt.Errorf("not configured")
}

func (m *mockRechargeStore) AdminRecharge(_ context.Context, p repository.AdminRechargeParams) (*repository.RechargeResult, error) {
	if m.adminFn != nil {
		return m.adminFn(p)
	}
	return nil, fmt.Errorf("not configured")
}

func (m *mockRechargeStore) Delete(context.Context, string) error { return nil }

type memorySettingsStore struct {
	staticSettings
	saved *models.SystemConfig
	reset bool
}

func (m *memorySettingsStore) Save(_ context.Context, cfg *models.SystemConfig) error {
	m.saved = cfg
	return nil
}

func (m *memorySettingsStore) Reset(context.Context) error {
	m.reset = true
	return nil
}

func testUser(id, username string, frequency int, permissions string) *models.User {
	now := time.Now().UTC()
	return &models.User{
		ID:          id,
		Username:    username,
		Email:       username + "@example.com",
		Frequency:   frequency,
		Permissions: permissions,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}
