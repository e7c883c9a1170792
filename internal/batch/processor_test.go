package batch

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"
	"go.uber.org/goleak"

	"github.com/ternarybob/seoforge/internal/interfaces"
	"github.com/ternarybob/seoforge/internal/models"
	"github.com/ternarybob/seoforge/internal/store"
)

// fakeGenerator returns content derived from the keyword. Keywords listed in
// failures return that error. When gate is set every call blocks on it.
type fakeGenerator struct {
	failures map[string]error
	panics   map[string]bool
	gate     chan struct{}

	mu       sync.Mutex
	calls    []string
	inFlight int32
	maxSeen  int32
	started  chan string
}

func (g *fakeGenerator) Name() string { return "fake" }

func (g *fakeGenerator) Generate(ctx context.Context, req *models.GenerationRequest) (*models.ContentFields, error) {
	n := atomic.AddInt32(&g.inFlight, 1)
	defer atomic.AddInt32(&g.inFlight, -1)
	for {
		seen := atomic.LoadInt32(&g.maxSeen)
		if n <= seen || atomic.CompareAndSwapInt32(&g.maxSeen, seen, n) {
			break
		}
	}

	g.mu.Lock()
	g.calls = append(g.calls, req.Keyword)
	g.mu.Unlock()

	if g.started != nil {
		g.started <- req.Keyword
	}
	if g.gate != nil {
		<-g.gate
	}

	if g.panics[req.Keyword] {
		panic("generator exploded")
	}
	if err, ok := g.failures[req.Keyword]; ok {
		return nil, err
	}
	return &models.ContentFields{
		Slug:  req.Keyword,
		H1:    "H1 " + req.Keyword,
		Title: req.Topic + "/" + req.Language,
	}, nil
}

func (g *fakeGenerator) callCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.calls)
}

// recordingObserver captures observer callbacks
type recordingObserver struct {
	NoopObserver

	mu          sync.Mutex
	progress    []models.RunProgress
	finished    []models.WorkItem
	credentials []int
	records     []models.RunRecord
}

func (o *recordingObserver) OnItemFinished(item models.WorkItem) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.finished = append(o.finished, item)
}

func (o *recordingObserver) OnProgress(p models.RunProgress) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.progress = append(o.progress, p)
}

func (o *recordingObserver) OnCredentialsInvalid(index int, err error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.credentials = append(o.credentials, index)
}

func (o *recordingObserver) OnRunFinished(r models.RunRecord) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.records = append(o.records, r)
}

func newFixture(t *testing.T, count int, gen *fakeGenerator) (*Processor, *store.ItemStore, *recordingObserver) {
	t.Helper()
	logger := arbor.NewLogger()
	s := store.NewItemStore(logger)

	items := make([]models.WorkItem, count)
	for i := range items {
		items[i] = models.WorkItem{Keyword: fmt.Sprintf("kw-%d", i)}
	}
	_, err := s.Append(items)
	require.NoError(t, err)

	obs := &recordingObserver{}
	return NewProcessor(s, gen, obs, logger), s, obs
}

func runConfig(concurrency int, selection models.SelectionLimit) models.RunConfiguration {
	return models.RunConfiguration{
		Concurrency: concurrency,
		Selection:   selection,
		Settings: models.GenerationSettings{
			Language:     "Russian",
			Topic:        "Logistics",
			TargetLength: 3000,
		},
	}
}

func TestRunProcessesAllItems(t *testing.T) {
	gen := &fakeGenerator{}
	p, s, obs := newFixture(t, 5, gen)
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	progress, err := p.Run(context.Background(), runConfig(2, models.SelectAll()))
	require.NoError(t, err)

	assert.Equal(t, 5, progress.Completed)
	assert.Equal(t, 5, progress.Total)
	assert.Equal(t, 100, progress.Percent)
	assert.Equal(t, 5, progress.Succeeded)
	assert.False(t, progress.Running)
	assert.False(t, progress.Cancelled)

	for _, item := range s.Snapshot() {
		assert.Equal(t, models.ItemStatusCompleted, item.Status)
		require.NotNil(t, item.Content)
		assert.Equal(t, item.Keyword, item.Content.Slug)
		assert.Equal(t, "Logistics/Russian", item.Content.Title)
		assert.Empty(t, item.ErrorMessage)
	}

	assert.LessOrEqual(t, atomic.LoadInt32(&gen.maxSeen), int32(2))
	assert.Len(t, obs.finished, 5)
	require.Len(t, obs.records, 1)
	assert.Equal(t, 5, obs.records[0].Selected)
	assert.Equal(t, progress.RunID, obs.records[0].ID)
}

func TestRunRespectsSelectionLimit(t *testing.T) {
	gen := &fakeGenerator{}
	p, s, _ := newFixture(t, 10, gen)

	progress, err := p.Run(context.Background(), runConfig(3, models.SelectFirst(4)))
	require.NoError(t, err)

	assert.Equal(t, 4, progress.Total)
	assert.Equal(t, 4, progress.Completed)
	assert.Equal(t, 100, progress.Percent)

	for _, item := range s.Snapshot() {
		if item.Index < 4 {
			assert.Equal(t, models.ItemStatusCompleted, item.Status, "index %d", item.Index)
		} else {
			assert.Equal(t, models.ItemStatusPending, item.Status, "index %d", item.Index)
		}
	}
	assert.Equal(t, 4, gen.callCount())
}

func TestRunIsolatesItemFailure(t *testing.T) {
	gen := &fakeGenerator{failures: map[string]error{"kw-2": errors.New("quota exceeded")}}
	p, s, obs := newFixture(t, 5, gen)

	progress, err := p.Run(context.Background(), runConfig(2, models.SelectAll()))
	require.NoError(t, err)
	assert.Equal(t, 100, progress.Percent)
	assert.Equal(t, 4, progress.Succeeded)
	assert.Equal(t, 1, progress.Failed)

	items := s.Snapshot()
	assert.Equal(t, models.ItemStatusError, items[2].Status)
	assert.Equal(t, "quota exceeded", items[2].ErrorMessage)
	assert.Nil(t, items[2].Content)
	for _, i := range []int{0, 1, 3, 4} {
		assert.Equal(t, models.ItemStatusCompleted, items[i].Status)
	}
	assert.False(t, p.CredentialsInvalid())
	assert.Empty(t, obs.credentials)

	// A fresh run picks up only the failed item
	delete(gen.failures, "kw-2")
	progress, err = p.Run(context.Background(), runConfig(2, models.SelectAll()))
	require.NoError(t, err)
	assert.Equal(t, 1, progress.Total)

	item, err := s.Get(2)
	require.NoError(t, err)
	assert.Equal(t, models.ItemStatusCompleted, item.Status)
	assert.Empty(t, item.ErrorMessage)
}

func TestRunFlagsInvalidCredentials(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{"message signature", errors.New("Requested entity was not found.")},
		{"short signature", errors.New("models/x: Entity Not Found")},
		{"wrapped sentinel", fmt.Errorf("gemini: %w", interfaces.ErrAuthorization)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gen := &fakeGenerator{failures: map[string]error{"kw-0": tt.err}}
			p, s, obs := newFixture(t, 3, gen)

			progress, err := p.Run(context.Background(), runConfig(1, models.SelectAll()))
			require.NoError(t, err)

			assert.True(t, p.CredentialsInvalid())
			assert.Equal(t, []int{0}, obs.credentials)
			assert.Equal(t, 3, progress.Completed)
			assert.Equal(t, 2, progress.Succeeded)

			items := s.Snapshot()
			assert.Equal(t, models.ItemStatusError, items[0].Status)
			assert.Equal(t, tt.err.Error(), items[0].ErrorMessage)
			assert.Equal(t, models.ItemStatusCompleted, items[1].Status)
			assert.Equal(t, models.ItemStatusCompleted, items[2].Status)
			require.Len(t, obs.records, 1)
			assert.True(t, obs.records[0].CredentialsInvalid)

			p.ResetCredentials()
			assert.False(t, p.CredentialsInvalid())
		})
	}
}

func TestRunRejectsOverlappingRun(t *testing.T) {
	gen := &fakeGenerator{gate: make(chan struct{}), started: make(chan string, 4)}
	p, s, _ := newFixture(t, 4, gen)
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	_, err := p.Start(context.Background(), runConfig(2, models.SelectAll()))
	require.NoError(t, err)
	<-gen.started
	assert.True(t, p.Running())

	before := s.Snapshot()
	_, err = p.Run(context.Background(), runConfig(2, models.SelectAll()))
	assert.ErrorIs(t, err, ErrRunAlreadyInProgress)
	_, err = p.Start(context.Background(), runConfig(2, models.SelectAll()))
	assert.ErrorIs(t, err, ErrRunAlreadyInProgress)
	assert.Equal(t, before, s.Snapshot())

	close(gen.gate)
	require.NoError(t, p.Wait(context.Background()))

	assert.False(t, p.Running())
	assert.Equal(t, 4, s.Stats().Completed)
	assert.Equal(t, 4, gen.callCount())
}

func TestRunInvalidConfiguration(t *testing.T) {
	gen := &fakeGenerator{}
	p, s, _ := newFixture(t, 3, gen)

	for name, cfg := range map[string]models.RunConfiguration{
		"zero concurrency": runConfig(0, models.SelectAll()),
		"zero limit":       runConfig(2, models.SelectFirst(0)),
	} {
		t.Run(name, func(t *testing.T) {
			_, err := p.Run(context.Background(), cfg)
			assert.ErrorIs(t, err, ErrInvalidConfiguration)
			_, err = p.Start(context.Background(), cfg)
			assert.ErrorIs(t, err, ErrInvalidConfiguration)
		})
	}

	assert.Equal(t, 3, s.Stats().Pending)
	assert.Zero(t, gen.callCount())
}

func TestRunEmptySelectionIsNoop(t *testing.T) {
	gen := &fakeGenerator{}
	p, _, obs := newFixture(t, 2, gen)

	first, err := p.Run(context.Background(), runConfig(2, models.SelectAll()))
	require.NoError(t, err)
	assert.Equal(t, 100, first.Percent)

	progress, err := p.Run(context.Background(), runConfig(2, models.SelectAll()))
	require.NoError(t, err)
	assert.Equal(t, models.RunProgress{}, progress)
	assert.Equal(t, first, p.Progress())
	assert.Len(t, obs.records, 1)
	assert.Equal(t, 2, gen.callCount())

	empty := NewProcessor(store.NewItemStore(arbor.NewLogger()), gen, nil, arbor.NewLogger())
	progress, err = empty.Run(context.Background(), runConfig(3, models.SelectFirst(5)))
	require.NoError(t, err)
	assert.Zero(t, progress.Total)
}

func TestRunUsesExactlyConcurrencyWorkers(t *testing.T) {
	gen := &fakeGenerator{gate: make(chan struct{}), started: make(chan string, 8)}
	p, _, _ := newFixture(t, 8, gen)
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	_, err := p.Start(context.Background(), runConfig(3, models.SelectAll()))
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		<-gen.started
	}
	// No fourth call may start while three are blocked
	select {
	case kw := <-gen.started:
		t.Fatalf("unexpected fourth concurrent call for %s", kw)
	case <-time.After(50 * time.Millisecond):
	}
	assert.Equal(t, int32(3), atomic.LoadInt32(&gen.inFlight))

	close(gen.gate)
	require.NoError(t, p.Wait(context.Background()))
	assert.Equal(t, int32(3), atomic.LoadInt32(&gen.maxSeen))
}

func TestRunConcurrencyAboveSelection(t *testing.T) {
	gen := &fakeGenerator{}
	p, s, _ := newFixture(t, 2, gen)

	progress, err := p.Run(context.Background(), runConfig(10, models.SelectAll()))
	require.NoError(t, err)
	assert.Equal(t, 2, progress.Completed)
	assert.Equal(t, 2, s.Stats().Completed)
	assert.LessOrEqual(t, atomic.LoadInt32(&gen.maxSeen), int32(2))
}

func TestRunProgressIsMonotonic(t *testing.T) {
	gen := &fakeGenerator{}
	p, _, obs := newFixture(t, 7, gen)

	_, err := p.Run(context.Background(), runConfig(3, models.SelectAll()))
	require.NoError(t, err)

	obs.mu.Lock()
	defer obs.mu.Unlock()
	require.Len(t, obs.progress, 7)

	hundred := 0
	for i, pr := range obs.progress {
		assert.Equal(t, 7, pr.Total)
		assert.Equal(t, i+1, pr.Completed)
		assert.Equal(t, models.ProgressPercent(pr.Completed, 7), pr.Percent)
		if pr.Percent == 100 {
			hundred++
		}
	}
	assert.Equal(t, 1, hundred)
	assert.Equal(t, 100, p.Progress().Percent)
}

// yieldingObserver yields before recording progress so workers interleave
// between counting a transition and reporting it
type yieldingObserver struct {
	recordingObserver
}

func (o *yieldingObserver) OnProgress(p models.RunProgress) {
	runtime.Gosched()
	o.recordingObserver.OnProgress(p)
}

func TestRunProgressNotificationsInCompletionOrder(t *testing.T) {
	logger := arbor.NewLogger()

	for round := 0; round < 20; round++ {
		s := store.NewItemStore(logger)
		items := make([]models.WorkItem, 200)
		for i := range items {
			items[i] = models.WorkItem{Keyword: fmt.Sprintf("kw-%d", i)}
		}
		_, err := s.Append(items)
		require.NoError(t, err)

		obs := &yieldingObserver{}
		p := NewProcessor(s, &fakeGenerator{}, obs, logger)
		_, err = p.Run(context.Background(), runConfig(10, models.SelectAll()))
		require.NoError(t, err)

		obs.mu.Lock()
		require.Len(t, obs.progress, 200)
		backwards := 0
		for i := 1; i < len(obs.progress); i++ {
			if obs.progress[i].Completed <= obs.progress[i-1].Completed {
				backwards++
			}
		}
		last := obs.progress[len(obs.progress)-1]
		obs.mu.Unlock()

		assert.Zero(t, backwards, "round %d", round)
		assert.Equal(t, 200, last.Completed)
		assert.Equal(t, 100, last.Percent)
	}
}

func TestResetRefusedWhileRunning(t *testing.T) {
	gen := &fakeGenerator{gate: make(chan struct{}), started: make(chan string, 3)}
	p, s, _ := newFixture(t, 3, gen)
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	_, err := p.Start(context.Background(), runConfig(1, models.SelectAll()))
	require.NoError(t, err)
	<-gen.started

	assert.ErrorIs(t, p.Reset(), ErrRunAlreadyInProgress)
	assert.Equal(t, 3, s.Len())

	close(gen.gate)
	require.NoError(t, p.Wait(context.Background()))

	require.NoError(t, p.Reset())
	assert.Equal(t, 0, s.Len())
	assert.Equal(t, models.RunProgress{}, p.Progress())
}

func TestResetAndStartAreExclusive(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())
	ctx := context.Background()

	for round := 0; round < 50; round++ {
		gen := &fakeGenerator{gate: make(chan struct{})}
		p, s, _ := newFixture(t, 4, gen)

		var (
			wg       sync.WaitGroup
			started  models.RunProgress
			startErr error
			resetErr error
		)
		wg.Add(2)
		go func() {
			defer wg.Done()
			started, startErr = p.Start(ctx, runConfig(2, models.SelectAll()))
		}()
		go func() {
			defer wg.Done()
			resetErr = p.Reset()
		}()
		wg.Wait()
		require.NoError(t, startErr)

		if started.Total > 0 {
			// The run claimed the items first; they must survive
			assert.ErrorIs(t, resetErr, ErrRunAlreadyInProgress, "round %d", round)
			assert.Equal(t, 4, s.Len(), "round %d", round)
		} else {
			assert.NoError(t, resetErr, "round %d", round)
			assert.Equal(t, 0, s.Len(), "round %d", round)
		}

		close(gen.gate)
		require.NoError(t, p.Wait(ctx))
	}
}

func TestRunDispatchesEachIndexOnce(t *testing.T) {
	gen := &fakeGenerator{}
	p, _, _ := newFixture(t, 40, gen)

	_, err := p.Run(context.Background(), runConfig(6, models.SelectAll()))
	require.NoError(t, err)

	gen.mu.Lock()
	defer gen.mu.Unlock()
	counts := map[string]int{}
	for _, kw := range gen.calls {
		counts[kw]++
	}
	assert.Len(t, counts, 40)
	for kw, n := range counts {
		assert.Equal(t, 1, n, kw)
	}
}

func TestRunCancellationStopsDispatch(t *testing.T) {
	gen := &fakeGenerator{gate: make(chan struct{}), started: make(chan string, 6)}
	p, s, obs := newFixture(t, 6, gen)
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	_, err := p.Start(context.Background(), runConfig(2, models.SelectAll()))
	require.NoError(t, err)
	<-gen.started
	<-gen.started

	assert.True(t, p.Cancel())
	close(gen.gate)
	require.NoError(t, p.Wait(context.Background()))

	progress := p.Progress()
	assert.True(t, progress.Cancelled)
	assert.Equal(t, 6, progress.Total)
	assert.Equal(t, 2, progress.Completed)
	assert.Less(t, progress.Percent, 100)

	stats := s.Stats()
	assert.Equal(t, 2, stats.Completed)
	assert.Equal(t, 4, stats.Pending)
	assert.Zero(t, stats.Processing)

	require.Len(t, obs.records, 1)
	assert.True(t, obs.records[0].Cancelled)
	assert.False(t, p.Cancel())
}

func TestRunParentContextCancelled(t *testing.T) {
	gen := &fakeGenerator{}
	p, s, _ := newFixture(t, 3, gen)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	progress, err := p.Run(ctx, runConfig(2, models.SelectAll()))
	require.NoError(t, err)
	assert.True(t, progress.Cancelled)
	assert.Zero(t, progress.Completed)
	assert.Equal(t, 3, s.Stats().Pending)
}

func TestRunRecoversGeneratorPanic(t *testing.T) {
	gen := &fakeGenerator{panics: map[string]bool{"kw-1": true}}
	p, s, _ := newFixture(t, 3, gen)

	progress, err := p.Run(context.Background(), runConfig(2, models.SelectAll()))
	require.NoError(t, err)
	assert.Equal(t, 100, progress.Percent)

	item, err := s.Get(1)
	require.NoError(t, err)
	assert.Equal(t, models.ItemStatusError, item.Status)
	assert.Contains(t, item.ErrorMessage, "generator exploded")
}

type emptyGenerator struct{ err error }

func (g emptyGenerator) Name() string { return "empty" }

func (g emptyGenerator) Generate(context.Context, *models.GenerationRequest) (*models.ContentFields, error) {
	return nil, g.err
}

func TestRunErrorMessages(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"nil content", nil, "Empty response from model"},
		{"blank error", errors.New(""), "API Error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger := arbor.NewLogger()
			s := store.NewItemStore(logger)
			_, err := s.Append([]models.WorkItem{{Keyword: "k"}})
			require.NoError(t, err)

			p := NewProcessor(s, emptyGenerator{err: tt.err}, nil, logger)
			_, err = p.Run(context.Background(), runConfig(1, models.SelectAll()))
			require.NoError(t, err)

			item, err := s.Get(0)
			require.NoError(t, err)
			assert.Equal(t, models.ItemStatusError, item.Status)
			assert.Equal(t, tt.want, item.ErrorMessage)
		})
	}
}

func TestSetGeneratorSwapsProvider(t *testing.T) {
	p, s, _ := newFixture(t, 1, &fakeGenerator{failures: map[string]error{"kw-0": errors.New("nope")}})

	_, err := p.Run(context.Background(), runConfig(1, models.SelectAll()))
	require.NoError(t, err)

	p.SetGenerator(&fakeGenerator{})
	_, err = p.Run(context.Background(), runConfig(1, models.SelectAll()))
	require.NoError(t, err)
	assert.Equal(t, 1, s.Stats().Completed)
}

func TestIsAuthorizationError(t *testing.T) {
	assert.False(t, IsAuthorizationError(nil))
	assert.False(t, IsAuthorizationError(errors.New("quota exceeded")))
	assert.True(t, IsAuthorizationError(errors.New("REQUESTED ENTITY WAS NOT FOUND")))
	assert.True(t, IsAuthorizationError(fmt.Errorf("call: %w", interfaces.ErrAuthorization)))
}
