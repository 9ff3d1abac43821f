package engine

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/Calstins/teensha/model"
	"gorm.io/gorm"
)

// memStore is an in-memory Store with the same not-found and unique-key
// semantics as the gorm repositories.
type memStore struct {
	mu sync.Mutex

	teens         map[string]model.Teen
	challenges    map[string]model.Challenge
	tasks         map[string]model.Task
	badges        map[string]model.Badge
	submissions   map[string]model.Submission
	progress      map[string]model.Progress
	teenBadges    map[string]model.TeenBadge
	entries       map[string]model.RaffleEntry
	draws         map[int]model.RaffleDraw
	transactions  map[string]model.Transaction
	gatewayEvents map[string]model.PaymentGatewayEvent
}

func newMemStore() *memStore {
	return &memStore{
		teens:         map[string]model.Teen{},
		challenges:    map[string]model.Challenge{},
		tasks:         map[string]model.Task{},
		badges:        map[string]model.Badge{},
		submissions:   map[string]model.Submission{},
		progress:      map[string]model.Progress{},
		teenBadges:    map[string]model.TeenBadge{},
		entries:       map[string]model.RaffleEntry{},
		draws:         map[int]model.RaffleDraw{},
		transactions:  map[string]model.Transaction{},
		gatewayEvents: map[string]model.PaymentGatewayEvent{},
	}
}

func pairKey(a, b string) string { return a + "|" + b }

func (s *memStore) GetTeen(_ context.Context, id string) (*model.Teen, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.teens[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &t, nil
}

func (s *memStore) GetChallenge(_ context.Context, id string) (*model.Challenge, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.challenges[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &c, nil
}

func (s *memStore) FindChallengeByMonth(_ context.Context, year, month int) (*model.Challenge, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range s.challenges {
		if c.Year == year && c.Month == month {
			return &c, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (s *memStore) CreateChallenge(_ context.Context, challenge *model.Challenge) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range s.challenges {
		if c.Year == challenge.Year && c.Month == challenge.Month {
			return gorm.ErrDuplicatedKey
		}
	}
	s.challenges[challenge.ID] = *challenge
	return nil
}

func (s *memStore) SaveChallenge(_ context.Context, challenge *model.Challenge) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range s.challenges {
		if c.ID != challenge.ID && c.Year == challenge.Year && c.Month == challenge.Month {
			return gorm.ErrDuplicatedKey
		}
	}
	s.challenges[challenge.ID] = *challenge
	return nil
}

func (s *memStore) GetTask(_ context.Context, id string) (*model.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tasks[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &t, nil
}

func (s *memStore) CreateTask(_ context.Context, task *model.Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tasks[task.ID] = *task
	return nil
}

func (s *memStore) CountTasks(_ context.Context, challengeID string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for _, t := range s.tasks {
		if t.ChallengeID == challengeID {
			n++
		}
	}
	return n, nil
}

func (s *memStore) GetBadge(_ context.Context, id string) (*model.Badge, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.badges[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &b, nil
}

func (s *memStore) GetBadgeByChallenge(_ context.Context, challengeID string) (*model.Badge, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, b := range s.badges {
		if b.ChallengeID == challengeID {
			return &b, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (s *memStore) CreateBadge(_ context.Context, badge *model.Badge) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, b := range s.badges {
		if b.ChallengeID == badge.ChallengeID {
			return gorm.ErrDuplicatedKey
		}
	}
	s.badges[badge.ID] = *badge
	return nil
}

func (s *memStore) GetSubmission(_ context.Context, id string) (*model.Submission, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sub, ok := s.submissions[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &sub, nil
}

func (s *memStore) FindSubmission(_ context.Context, taskID, teenID string) (*model.Submission, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, sub := range s.submissions {
		if sub.TaskID == taskID && sub.TeenID == teenID {
			return &sub, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (s *memStore) UpsertSubmission(_ context.Context, submission *model.Submission) (*model.Submission, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	next := *submission
	for id, existing := range s.submissions {
		if existing.TaskID == submission.TaskID && existing.TeenID == submission.TeenID {
			next.ID = id
			next.CreatedAt = existing.CreatedAt
			break
		}
	}
	s.submissions[next.ID] = next
	return &next, nil
}

func (s *memStore) SaveReview(_ context.Context, submission *model.Submission) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.submissions[submission.ID]; !ok {
		return gorm.ErrRecordNotFound
	}
	s.submissions[submission.ID] = *submission
	return nil
}

func (s *memStore) DeleteSubmission(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.submissions[id]; !ok {
		return gorm.ErrRecordNotFound
	}
	delete(s.submissions, id)
	return nil
}

func (s *memStore) CountApprovedSubmissions(_ context.Context, teenID, challengeID string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for _, sub := range s.submissions {
		if sub.TeenID != teenID || sub.ChallengeID != challengeID || sub.Status != model.SubmissionApproved {
			continue
		}
		if _, ok := s.tasks[sub.TaskID]; ok {
			n++
		}
	}
	return n, nil
}

func (s *memStore) GetProgress(_ context.Context, teenID, challengeID string) (*model.Progress, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.progress[pairKey(teenID, challengeID)]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &p, nil
}

func (s *memStore) UpsertProgress(_ context.Context, progress *model.Progress) (*model.Progress, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := pairKey(progress.TeenID, progress.ChallengeID)
	next := *progress
	if existing, ok := s.progress[key]; ok {
		next.ID = existing.ID
		next.CreatedAt = existing.CreatedAt
	}
	s.progress[key] = next
	return &next, nil
}

func (s *memStore) GetTeenBadge(_ context.Context, teenID, badgeID string) (*model.TeenBadge, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	tb, ok := s.teenBadges[pairKey(teenID, badgeID)]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &tb, nil
}

func (s *memStore) CreateTeenBadge(_ context.Context, teenBadge *model.TeenBadge) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := pairKey(teenBadge.TeenID, teenBadge.BadgeID)
	if _, ok := s.teenBadges[key]; ok {
		return gorm.ErrDuplicatedKey
	}
	s.teenBadges[key] = *teenBadge
	return nil
}

func (s *memStore) TransitionTeenBadge(_ context.Context, id string, t BadgeTransition, from ...model.BadgeStatus) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for key, tb := range s.teenBadges {
		if tb.ID != id {
			continue
		}
		allowed := false
		for _, status := range from {
			if tb.Status == status {
				allowed = true
			}
		}
		if !allowed {
			return false, nil
		}
		tb.Status = t.Status
		if t.PurchasedAt != nil {
			tb.PurchasedAt = t.PurchasedAt
		}
		if t.EarnedAt != nil {
			tb.EarnedAt = t.EarnedAt
		}
		if t.AwardedByID != nil {
			tb.AwardedByID = t.AwardedByID
		}
		tb.UpdatedAt = t.At
		s.teenBadges[key] = tb
		return true, nil
	}
	return false, nil
}

func (s *memStore) CountHeldBadgesForYear(_ context.Context, teenID string, year int) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for _, tb := range s.teenBadges {
		if tb.TeenID != teenID || !tb.Status.Held() {
			continue
		}
		badge, ok := s.badges[tb.BadgeID]
		if !ok {
			continue
		}
		if c, ok := s.challenges[badge.ChallengeID]; ok && c.Year == year {
			n++
		}
	}
	return n, nil
}

func (s *memStore) GetRaffleEntry(_ context.Context, teenID string, year int) (*model.RaffleEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[pairKey(teenID, fmt.Sprint(year))]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &e, nil
}

func (s *memStore) UpsertRaffleEntry(_ context.Context, entry *model.RaffleEntry) (*model.RaffleEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := pairKey(entry.TeenID, fmt.Sprint(entry.Year))
	next := *entry
	if existing, ok := s.entries[key]; ok {
		next.ID = existing.ID
		next.CreatedAt = existing.CreatedAt
	}
	s.entries[key] = next
	return &next, nil
}

func (s *memStore) ListEligibleEntries(_ context.Context, year int) ([]model.RaffleEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.RaffleEntry
	for _, e := range s.entries {
		if e.Year == year && e.IsEligible {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].TeenID < out[j].TeenID })
	return out, nil
}

func (s *memStore) GetRaffleDraw(_ context.Context, year int) (*model.RaffleDraw, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.draws[year]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &d, nil
}

func (s *memStore) CreateRaffleDraw(_ context.Context, draw *model.RaffleDraw) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.draws[draw.Year]; ok {
		return gorm.ErrDuplicatedKey
	}
	s.draws[draw.Year] = *draw
	return nil
}

func (s *memStore) GetTransactionByReference(_ context.Context, reference string) (*model.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	tx, ok := s.transactions[reference]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &tx, nil
}

func (s *memStore) CreateTransaction(_ context.Context, tx *model.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.transactions[tx.Reference]; ok {
		return gorm.ErrDuplicatedKey
	}
	s.transactions[tx.Reference] = *tx
	return nil
}

func (s *memStore) AttachCheckout(_ context.Context, reference, token, redirectURL string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	tx, ok := s.transactions[reference]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	tx.CheckoutToken = token
	tx.RedirectURL = redirectURL
	s.transactions[reference] = tx
	return nil
}

func (s *memStore) UpdateTransactionStatus(_ context.Context, reference string, u TransactionUpdate, from ...model.TransactionStatus) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	tx, ok := s.transactions[reference]
	if !ok {
		return false, nil
	}
	allowed := false
	for _, status := range from {
		if tx.Status == status {
			allowed = true
		}
	}
	if !allowed {
		return false, nil
	}
	tx.Status = u.Status
	if u.Method != "" {
		tx.Method = u.Method
	}
	if u.GatewayTransactionID != "" {
		id := u.GatewayTransactionID
		tx.GatewayTransactionID = &id
	}
	if u.PaidAt != nil {
		tx.PaidAt = u.PaidAt
	}
	tx.UpdatedAt = u.At
	s.transactions[reference] = tx
	return true, nil
}

func (s *memStore) RecordGatewayEvent(_ context.Context, event *model.PaymentGatewayEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gatewayEvents[event.ID] = *event
	return nil
}

func (s *memStore) SaveGatewayEvent(_ context.Context, event *model.PaymentGatewayEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gatewayEvents[event.ID] = *event
	return nil
}

type memStorage struct {
	mu      sync.Mutex
	objects map[string][]byte
	deleted []string
	failing bool
	n       int
}

func newMemStorage() *memStorage {
	return &memStorage{objects: map[string][]byte{}}
}

func (m *memStorage) Upload(_ context.Context, folder string, data []byte, mimeType string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failing {
		return "", errors.New("storage offline")
	}
	m.n++
	url := fmt.Sprintf("mem://%s/%d", folder, m.n)
	m.objects[url] = data
	return url, nil
}

func (m *memStorage) Delete(_ context.Context, url string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.objects, url)
	m.deleted = append(m.deleted, url)
	return nil
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []Event
}

func (p *recordingPublisher) Publish(_ context.Context, ev Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
	return nil
}

func (p *recordingPublisher) count(t EventType) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := 0
	for _, ev := range p.events {
		if ev.Type == t {
			n++
		}
	}
	return n
}

type fakeGateway struct {
	mu       sync.Mutex
	err      error
	status   *PaymentResult
	requests []CheckoutRequest
}

func (g *fakeGateway) CreateCheckout(_ context.Context, req CheckoutRequest) (*CheckoutSession, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.err != nil {
		return nil, g.err
	}
	g.requests = append(g.requests, req)
	return &CheckoutSession{Token: "tok-" + req.Reference, RedirectURL: "https://pay.example/" + req.Reference}, nil
}

func (g *fakeGateway) FetchStatus(_ context.Context, reference string) (*PaymentResult, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.err != nil {
		return nil, g.err
	}
	res := *g.status
	res.Reference = reference
	return &res, nil
}

const testWebhookSecret = "whsec_test"

type fixture struct {
	store   *memStore
	storage *memStorage
	events  *recordingPublisher
	gateway *fakeGateway
	engine  *Engine
	now     time.Time
	picked  int
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		store:   newMemStore(),
		storage: newMemStorage(),
		events:  &recordingPublisher{},
		gateway: &fakeGateway{},
		now:     time.Date(2025, time.March, 15, 10, 0, 0, 0, time.UTC),
	}
	f.engine = New(f.store,
		WithObjectStorage(f.storage),
		WithPublisher(f.events),
		WithCheckoutGateway(f.gateway),
		WithWebhookSecret(testWebhookSecret),
		WithClock(func() time.Time { return f.now }),
		WithPicker(func(n int) int { return f.picked % n }),
	)
	return f
}

func (f *fixture) advance(d time.Duration) {
	f.now = f.now.Add(d)
}

func (f *fixture) addTeen(id string) {
	f.store.teens[id] = model.Teen{ID: id, Email: id + "@example.com", Name: "Teen " + id, IsActive: true}
}

// addChallenge seeds a published challenge for (year, month) with one TEXT task per
// entry in taskIDs and a badge priced at 50000.
func (f *fixture) addChallenge(year, month int, taskIDs ...string) (model.Challenge, model.Badge) {
	id := fmt.Sprintf("ch-%d-%02d", year, month)
	challenge := model.Challenge{
		ID:          id,
		Title:       fmt.Sprintf("Challenge %d-%02d", year, month),
		Year:        year,
		Month:       month,
		GoLiveAt:    f.now.Add(-24 * time.Hour),
		ClosingAt:   f.now.Add(30 * 24 * time.Hour),
		IsPublished: true,
		IsActive:    true,
	}
	f.store.challenges[id] = challenge
	for i, taskID := range taskIDs {
		f.store.tasks[taskID] = model.Task{
			ID:          taskID,
			ChallengeID: id,
			Title:       "Task " + taskID,
			Type:        model.TaskTypeText,
			MaxScore:    10,
			Position:    i,
		}
	}
	badge := model.Badge{ID: "badge-" + id, ChallengeID: id, Name: "Badge " + id, Price: 50000, IsActive: true}
	f.store.badges[badge.ID] = badge
	return challenge, badge
}

func (f *fixture) submitText(t *testing.T, teenID, taskID string) *model.Submission {
	t.Helper()
	sub, err := f.engine.SubmitTask(context.Background(), SubmitInput{
		TeenID:  teenID,
		TaskID:  taskID,
		Payload: `{"text":"my reflection on this task"}`,
	})
	if err != nil {
		t.Fatalf("submit %s: %v", taskID, err)
	}
	return sub
}

func (f *fixture) teenBadge(t *testing.T, teenID, badgeID string) model.TeenBadge {
	t.Helper()
	tb, ok := f.store.teenBadges[pairKey(teenID, badgeID)]
	if !ok {
		t.Fatalf("no teen badge for %s/%s", teenID, badgeID)
	}
	return tb
}
