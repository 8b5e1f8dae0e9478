package usecase_test

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/hearth-archive/hearth/pkg/domain/interfaces"
	"github.com/hearth-archive/hearth/pkg/domain/model"
	"github.com/hearth-archive/hearth/pkg/domain/types"
	"github.com/hearth-archive/hearth/pkg/repository/memory"
	"github.com/hearth-archive/hearth/pkg/service/companion"
	"github.com/m-mizutani/gt"
)

// mockCompanion returns canned results and records the last chat input
type mockCompanion struct {
	mu        sync.Mutex
	embed     func(text string) companion.Result[[]float32]
	chat      func(input companion.ChatInput) companion.Result[*model.Presentation]
	lastChat  *companion.ChatInput
	chatCalls int
}

func (m *mockCompanion) Embed(ctx context.Context, text string) companion.Result[[]float32] {
	if m.embed == nil {
		return companion.Result[[]float32]{Status: companion.StatusFailed, Err: errors.New("no embed")}
	}
	return m.embed(text)
}

func (m *mockCompanion) Chat(ctx context.Context, input companion.ChatInput) companion.Result[*model.Presentation] {
	m.mu.Lock()
	m.lastChat = &input
	m.chatCalls++
	m.mu.Unlock()

	if m.chat == nil {
		return companion.Result[*model.Presentation]{Status: companion.StatusFailed, Err: errors.New("no chat")}
	}
	return m.chat(input)
}

func okPresentation(title string) func(companion.ChatInput) companion.Result[*model.Presentation] {
	return func(input companion.ChatInput) companion.Result[*model.Presentation] {
		return companion.Result[*model.Presentation]{
			Value:  &model.Presentation{Type: types.PresentationNarrative, Title: title, Narrative: "remember"},
			Status: companion.StatusOK,
		}
	}
}

// fixedClock returns a settable instant
type fixedClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFixedClock(t time.Time) *fixedClock {
	return &fixedClock{now: t}
}

func (c *fixedClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fixedClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}

// fakeConn records frames written by the hub
type fakeConn struct {
	mu      sync.Mutex
	frames  []map[string]any
	written chan struct{}
	failErr error
}

func newFakeConn() *fakeConn {
	return &fakeConn{written: make(chan struct{}, 128)}
}

func (c *fakeConn) WriteJSON(v any) error {
	if c.failErr != nil {
		return c.failErr
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return err
	}
	var frame map[string]any
	if err := json.Unmarshal(raw, &frame); err != nil {
		return err
	}
	c.mu.Lock()
	c.frames = append(c.frames, frame)
	c.mu.Unlock()
	c.written <- struct{}{}
	return nil
}

func (c *fakeConn) Close() error { return nil }

// waitFrames blocks until n frames have been written in total since the last call
func (c *fakeConn) waitFrames(t *testing.T, n int) []map[string]any {
	t.Helper()
	for i := 0; i < n; i++ {
		select {
		case <-c.written:
		case <-time.After(time.Second):
			t.Fatalf("timed out waiting for frame %d", i+1)
		}
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]map[string]any{}, c.frames...)
}

// assertNoMoreFrames checks nothing else arrives shortly
func (c *fakeConn) assertNoMoreFrames(t *testing.T) {
	t.Helper()
	select {
	case <-c.written:
		t.Fatal("unexpected frame")
	case <-time.After(50 * time.Millisecond):
	}
}

func datePtr(s string) *model.Date {
	d := model.MustParseDate(s)
	return &d
}

type memoryOption func(*model.Memory)

func happened(s string) memoryOption {
	return func(m *model.Memory) { m.HappenedAt = datePtr(s) }
}

func anniversary(a types.AnniversaryType) memoryOption {
	return func(m *model.Memory) { m.AnniversaryType = a }
}

func score(v float64) memoryOption {
	return func(m *model.Memory) { m.ProactiveScore = v }
}

func tags(v ...string) memoryOption {
	return func(m *model.Memory) { m.SeasonalTags = v }
}

func withPeople(people ...*model.Person) memoryOption {
	return func(m *model.Memory) { m.People = people }
}

func embedding(v ...float32) memoryOption {
	return func(m *model.Memory) { m.Embedding = v }
}

func createdAt(t time.Time) memoryOption {
	return func(m *model.Memory) { m.CreatedAt = t }
}

func createMemory(t *testing.T, repo interfaces.Repository, title string, opts ...memoryOption) *model.Memory {
	t.Helper()
	m := &model.Memory{
		ID:        model.NewMemoryID(),
		Kind:      types.MemoryKindPhoto,
		Title:     title,
		CreatedAt: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	}
	for _, opt := range opts {
		opt(m)
	}
	created, err := repo.Memory().Create(context.Background(), m)
	gt.NoError(t, err).Required()
	return created
}

func createPerson(t *testing.T, repo interfaces.Repository, name string) *model.Person {
	t.Helper()
	p, err := repo.Person().Create(context.Background(), &model.Person{
		ID:   model.NewPersonID(),
		Name: name,
	})
	gt.NoError(t, err).Required()
	return p
}

// faultyRepository fails selected memory queries
type faultyRepository struct {
	interfaces.Repository
	memory *faultyMemoryRepository
}

func (r *faultyRepository) Memory() interfaces.MemoryRepository {
	return r.memory
}

type faultyMemoryRepository struct {
	interfaces.MemoryRepository
	dateErr       error
	scoreErr      error
	embeddingsErr error
}

func newFaultyRepository() *faultyRepository {
	repo := memory.New()
	return &faultyRepository{
		Repository: repo,
		memory:     &faultyMemoryRepository{MemoryRepository: repo.Memory()},
	}
}

func (r *faultyMemoryRepository) FindByDateKeys(ctx context.Context, keys []model.MonthDay) ([]*model.Memory, error) {
	if r.dateErr != nil {
		return nil, r.dateErr
	}
	return r.MemoryRepository.FindByDateKeys(ctx, keys)
}

func (r *faultyMemoryRepository) FindByScoreThreshold(ctx context.Context, min float64) ([]*model.Memory, error) {
	if r.scoreErr != nil {
		return nil, r.scoreErr
	}
	return r.MemoryRepository.FindByScoreThreshold(ctx, min)
}

func (r *faultyMemoryRepository) FindEmbeddings(ctx context.Context) ([]*model.MemoryEmbedding, error) {
	if r.embeddingsErr != nil {
		return nil, r.embeddingsErr
	}
	return r.MemoryRepository.FindEmbeddings(ctx)
}

// hookedRepository runs beforeClaim right before the ledger claim
type hookedRepository struct {
	interfaces.Repository
	delivery *hookedDeliveryRepository
}

func (r *hookedRepository) Delivery() interfaces.DeliveryRepository {
	return r.delivery
}

type hookedDeliveryRepository struct {
	interfaces.DeliveryRepository
	beforeClaim func(ctx context.Context)
}

func newHookedRepository(repo interfaces.Repository) *hookedRepository {
	return &hookedRepository{
		Repository: repo,
		delivery:   &hookedDeliveryRepository{DeliveryRepository: repo.Delivery()},
	}
}

func (r *hookedDeliveryRepository) Claim(ctx context.Context, record *model.DeliveryRecord) (*model.DeliveryRecord, bool, error) {
	if r.beforeClaim != nil {
		r.beforeClaim(ctx)
	}
	return r.DeliveryRepository.Claim(ctx, record)
}
