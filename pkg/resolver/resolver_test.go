package resolver

import (
	"context"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/campusdesk/campusdesk/pkg/cache/memory"
	"github.com/campusdesk/campusdesk/pkg/config"
	"github.com/campusdesk/campusdesk/pkg/generator"
	"github.com/campusdesk/campusdesk/pkg/knowledge"
	"github.com/campusdesk/campusdesk/pkg/models"
)

type MockGenerator struct {
	mock.Mock
}

func (m *MockGenerator) Generate(ctx context.Context, query string, kb knowledge.Base) models.Answer {
	args := m.Called(ctx, query, kb)
	return args.Get(0).(models.Answer)
}

type MockTranslator struct {
	mock.Mock
}

func (m *MockTranslator) Translate(ctx context.Context, text string, target models.Language) models.Answer {
	args := m.Called(ctx, text, target)
	return args.Get(0).(models.Answer)
}

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func quietLogger() *logrus.Entry {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l.WithField("component", "resolver")
}

func success(text string) models.Answer {
	return models.Answer{Text: text, Outcome: models.OutcomeSuccess}
}

type fixture struct {
	cache *memory.Cache
	gen   *MockGenerator
	tr    *MockTranslator
	clock *clock
	r     *Resolver
}

func newFixture(kb knowledge.Base, policy string) *fixture {
	f := &fixture{
		cache: memory.New(),
		gen:   new(MockGenerator),
		tr:    new(MockTranslator),
		clock: &clock{now: time.Date(2026, 1, 10, 9, 0, 0, 0, time.UTC)},
	}
	f.r = New(f.cache, f.gen, f.tr, kb, Options{
		FailurePolicy: policy,
		FailureTTL:    time.Minute,
		Now:           f.clock.Now,
		Logger:        quietLogger(),
	})
	return f
}

func TestResolveTwiceCallsUpstreamOnce(t *testing.T) {
	f := newFixture(knowledge.Base{"hours": "9-5"}, config.FailureExpire)
	f.gen.On("Generate", mock.Anything, "office hours?", mock.Anything).Return(success("9 to 5")).Once()
	f.tr.On("Translate", mock.Anything, "9 to 5", models.Hindi).Return(success("9 से 5")).Once()

	first := f.r.Resolve(context.Background(), "office hours?", models.Hindi)
	second := f.r.Resolve(context.Background(), "office hours?", models.Hindi)

	assert.Equal(t, "9 से 5", first.Text)
	assert.Equal(t, first.Text, second.Text)
	assert.False(t, first.CacheHit)
	assert.True(t, second.CacheHit)
	f.gen.AssertNumberOfCalls(t, "Generate", 1)
	f.tr.AssertNumberOfCalls(t, "Translate", 1)
}

func TestResolveSourceReusedAcrossLanguages(t *testing.T) {
	f := newFixture(knowledge.Base{}, config.FailureExpire)
	f.gen.On("Generate", mock.Anything, "q", mock.Anything).Return(success("answer")).Once()
	f.tr.On("Translate", mock.Anything, "answer", models.Hindi).Return(success("उत्तर")).Once()

	en := f.r.Resolve(context.Background(), "q", models.English)
	hi := f.r.Resolve(context.Background(), "q", models.Hindi)

	assert.Equal(t, "answer", en.Text)
	assert.Equal(t, "उत्तर", hi.Text)
	f.gen.AssertNumberOfCalls(t, "Generate", 1)

	_, ok := f.cache.Get(models.Key("q", models.English))
	assert.True(t, ok, "source answer cached under (q, en)")
	_, ok = f.cache.Get(models.Key("q", models.Hindi))
	assert.True(t, ok, "translation cached under (q, hi)")
}

func TestResolveUnsupportedLanguageActsAsSource(t *testing.T) {
	f := newFixture(knowledge.Base{}, config.FailureExpire)
	f.gen.On("Generate", mock.Anything, "q", mock.Anything).Return(success("answer")).Once()

	res := f.r.Resolve(context.Background(), "q", models.Language("fr"))
	assert.Equal(t, "answer", res.Text)
	assert.Equal(t, models.English, res.Language)
	f.tr.AssertNotCalled(t, "Translate", mock.Anything, mock.Anything, mock.Anything)

	again := f.r.Resolve(context.Background(), "q", models.English)
	assert.True(t, again.CacheHit)
}

func TestResolveQuotaApologyCachedWithinTTL(t *testing.T) {
	f := newFixture(knowledge.Base{}, config.FailureExpire)
	quota := models.Answer{Text: generator.QuotaApology, Outcome: models.OutcomeQuotaExceeded}
	f.gen.On("Generate", mock.Anything, "q", mock.Anything).Return(quota).Once()

	first := f.r.Resolve(context.Background(), "q", models.English)
	assert.Equal(t, generator.QuotaApology, first.Text)
	assert.Equal(t, models.OutcomeQuotaExceeded, first.Outcome)

	f.clock.Advance(30 * time.Second)
	second := f.r.Resolve(context.Background(), "q", models.English)
	assert.Equal(t, generator.QuotaApology, second.Text)
	assert.True(t, second.CacheHit)
	f.gen.AssertNumberOfCalls(t, "Generate", 1)
}

func TestResolveFailureExpires(t *testing.T) {
	f := newFixture(knowledge.Base{}, config.FailureExpire)
	quota := models.Answer{Text: generator.QuotaApology, Outcome: models.OutcomeQuotaExceeded}
	f.gen.On("Generate", mock.Anything, "q", mock.Anything).Return(quota).Once()
	f.gen.On("Generate", mock.Anything, "q", mock.Anything).Return(success("real answer")).Once()

	f.r.Resolve(context.Background(), "q", models.English)
	f.clock.Advance(2 * time.Minute)
	res := f.r.Resolve(context.Background(), "q", models.English)

	assert.Equal(t, "real answer", res.Text)
	f.gen.AssertNumberOfCalls(t, "Generate", 2)
}

func TestResolveStickyFailure(t *testing.T) {
	f := newFixture(knowledge.Base{}, config.FailureSticky)
	failed := models.Answer{Text: generator.GenericApology, Outcome: models.OutcomeFailed}
	f.gen.On("Generate", mock.Anything, "q", mock.Anything).Return(failed).Once()

	f.r.Resolve(context.Background(), "q", models.English)
	f.clock.Advance(24 * time.Hour)
	res := f.r.Resolve(context.Background(), "q", models.English)

	assert.Equal(t, generator.GenericApology, res.Text)
	f.gen.AssertNumberOfCalls(t, "Generate", 1)
}

func TestResolveSkipPolicyNeverStoresFailure(t *testing.T) {
	f := newFixture(knowledge.Base{}, config.FailureSkip)
	failed := models.Answer{Text: generator.GenericApology, Outcome: models.OutcomeFailed}
	f.gen.On("Generate", mock.Anything, "q", mock.Anything).Return(failed)

	f.r.Resolve(context.Background(), "q", models.English)
	f.r.Resolve(context.Background(), "q", models.English)

	f.gen.AssertNumberOfCalls(t, "Generate", 2)
	assert.Equal(t, 0, f.cache.Len())
}

func TestResolveTranslationFailureReturnsSource(t *testing.T) {
	f := newFixture(knowledge.Base{}, config.FailureExpire)
	f.gen.On("Generate", mock.Anything, "q", mock.Anything).Return(success("answer"))
	f.tr.On("Translate", mock.Anything, "answer", models.Tamil).
		Return(models.Answer{Text: "answer", Outcome: models.OutcomeFailed})

	res := f.r.Resolve(context.Background(), "q", models.Tamil)
	assert.Equal(t, "answer", res.Text)
	assert.Equal(t, models.OutcomeFailed, res.Outcome)

	e, ok := f.cache.Get(models.Key("q", models.Tamil))
	assert.True(t, ok)
	assert.Equal(t, models.OutcomeFailed, e.Outcome)
}

func TestResolveTranslatesApologyKeepingOutcome(t *testing.T) {
	f := newFixture(knowledge.Base{}, config.FailureSticky)
	quota := models.Answer{Text: generator.QuotaApology, Outcome: models.OutcomeQuotaExceeded}
	f.gen.On("Generate", mock.Anything, "q", mock.Anything).Return(quota)
	f.tr.On("Translate", mock.Anything, generator.QuotaApology, models.Gujarati).Return(success("માફ કરશો"))

	res := f.r.Resolve(context.Background(), "q", models.Gujarati)
	assert.Equal(t, "માફ કરશો", res.Text)
	assert.Equal(t, models.OutcomeQuotaExceeded, res.Outcome)
}

func TestResolveEmptyKnowledgeBase(t *testing.T) {
	f := newFixture(nil, config.FailureExpire)
	f.gen.On("Generate", mock.Anything, "q", knowledge.Base{}).Return(success("I don't know."))

	res := f.r.Resolve(context.Background(), "q", models.English)
	assert.Equal(t, "I don't know.", res.Text)

	e, ok := f.cache.Get(models.Key("q", models.English))
	assert.True(t, ok)
	assert.Equal(t, "I don't know.", e.Text)
	f.gen.AssertExpectations(t)
}

func TestResolveEmptyQuery(t *testing.T) {
	f := newFixture(knowledge.Base{}, config.FailureExpire)

	res := f.r.Resolve(context.Background(), "", models.Hindi)
	assert.Equal(t, PromptForInput, res.Text)
	assert.Equal(t, 0, f.cache.Len())
	stats, _ := f.cache.Stats()
	assert.Zero(t, stats.Hits+stats.Misses, "empty query must not touch the cache")
	f.gen.AssertNotCalled(t, "Generate", mock.Anything, mock.Anything, mock.Anything)
	f.tr.AssertNotCalled(t, "Translate", mock.Anything, mock.Anything, mock.Anything)
}

func TestResolveQueriesAreNotNormalized(t *testing.T) {
	f := newFixture(knowledge.Base{}, config.FailureExpire)
	f.gen.On("Generate", mock.Anything, mock.Anything, mock.Anything).Return(success("a"))

	f.r.Resolve(context.Background(), "Fees", models.English)
	f.r.Resolve(context.Background(), "fees", models.English)
	f.r.Resolve(context.Background(), "fees ", models.English)

	f.gen.AssertNumberOfCalls(t, "Generate", 3)
}

func TestResolveConcurrentMissesShareGeneration(t *testing.T) {
	f := newFixture(knowledge.Base{}, config.FailureExpire)
	f.gen.On("Generate", mock.Anything, "q", mock.Anything).
		Run(func(mock.Arguments) { time.Sleep(20 * time.Millisecond) }).
		Return(success("answer"))
	f.tr.On("Translate", mock.Anything, "answer", models.Marathi).Return(success("उत्तर"))

	var wg sync.WaitGroup
	for range 10 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res := f.r.Resolve(context.Background(), "q", models.Marathi)
			assert.Equal(t, "उत्तर", res.Text)
		}()
	}
	wg.Wait()

	f.gen.AssertNumberOfCalls(t, "Generate", 1)
	f.tr.AssertNumberOfCalls(t, "Translate", 1)
}

func TestResolveCanceledCallerStillCaches(t *testing.T) {
	f := newFixture(knowledge.Base{}, config.FailureExpire)
	f.gen.On("Generate", mock.MatchedBy(func(ctx context.Context) bool {
		return ctx.Err() == nil
	}), "q", mock.Anything).Return(success("answer"))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	res := f.r.Resolve(ctx, "q", models.English)
	assert.Equal(t, "answer", res.Text)
	f.gen.AssertExpectations(t)
}
