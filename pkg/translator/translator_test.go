package translator

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/campusdesk/campusdesk/pkg/budget"
	"github.com/campusdesk/campusdesk/pkg/config"
	"github.com/campusdesk/campusdesk/pkg/models"
	"github.com/campusdesk/campusdesk/pkg/upstream"
)

type MockBackend struct {
	mock.Mock
}

func (m *MockBackend) Name() string { return "mock" }

func (m *MockBackend) Translate(ctx context.Context, text string, target models.Language) (string, error) {
	args := m.Called(ctx, text, target)
	return args.String(0), args.Error(1)
}

type fixedCounter int64

func (c fixedCounter) CountSince(context.Context, models.CallKind, string, time.Time) (int64, error) {
	return int64(c), nil
}

func quietLogger() *logrus.Entry {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l.WithField("component", "translator")
}

func TestTranslateSuccess(t *testing.T) {
	b := new(MockBackend)
	b.On("Translate", mock.Anything, "Hello", models.Hindi).Return("नमस्ते", nil)

	tr := New(b, Options{Logger: quietLogger()})
	ans := tr.Translate(context.Background(), "Hello", models.Hindi)
	assert.Equal(t, models.Answer{Text: "नमस्ते", Outcome: models.OutcomeSuccess}, ans)
	b.AssertExpectations(t)
}

func TestTranslateFailureReturnsOriginal(t *testing.T) {
	b := new(MockBackend)
	b.On("Translate", mock.Anything, "Hello", models.Tamil).Return("", errors.New("dns failure"))

	tr := New(b, Options{Logger: quietLogger()})
	ans := tr.Translate(context.Background(), "Hello", models.Tamil)
	assert.Equal(t, "Hello", ans.Text)
	assert.Equal(t, models.OutcomeFailed, ans.Outcome)
}

func TestTranslateQuotaReturnsOriginal(t *testing.T) {
	b := new(MockBackend)
	b.On("Translate", mock.Anything, mock.Anything, mock.Anything).Return("", upstream.Quota("mock", errors.New("429")))

	tr := New(b, Options{Logger: quietLogger()})
	ans := tr.Translate(context.Background(), "Hello", models.Marathi)
	assert.Equal(t, "Hello", ans.Text)
	assert.False(t, ans.Outcome.OK())
}

func TestTranslateBudgetExceeded(t *testing.T) {
	b := new(MockBackend)
	enf := budget.New([]models.BudgetPolicy{
		{Kind: models.CallTranslation, MaxCalls: 5, Period: models.BudgetDaily},
	}, fixedCounter(5))

	tr := New(b, Options{Budget: enf, Logger: quietLogger()})
	ans := tr.Translate(context.Background(), "Hello", models.Gujarati)
	assert.Equal(t, "Hello", ans.Text)
	assert.Equal(t, models.OutcomeFailed, ans.Outcome)
	b.AssertNotCalled(t, "Translate", mock.Anything, mock.Anything, mock.Anything)
}

func gtxServer(t *testing.T, status int, body string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/translate_a/single", r.URL.Path)
		assert.Equal(t, "gtx", r.URL.Query().Get("client"))
		assert.Equal(t, "auto", r.URL.Query().Get("sl"))
		w.WriteHeader(status)
		_, _ = io.WriteString(w, body)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestGoogleTranslate(t *testing.T) {
	srv := gtxServer(t, http.StatusOK,
		`[[["पुस्तकालय सुबह 9 बजे खुलता है। ","The library opens at 9am. ",null,null,10],["धन्यवाद","Thanks",null,null,10]],null,"en"]`)

	g := NewGoogle(srv.URL, srv.Client())
	out, err := g.Translate(context.Background(), "The library opens at 9am. Thanks", models.Hindi)
	require.NoError(t, err)
	assert.Equal(t, "पुस्तकालय सुबह 9 बजे खुलता है। धन्यवाद", out)
}

func TestGoogleTranslateQuota(t *testing.T) {
	srv := gtxServer(t, http.StatusTooManyRequests, "Too Many Requests")

	g := NewGoogle(srv.URL, srv.Client())
	_, err := g.Translate(context.Background(), "Hello", models.Hindi)
	require.Error(t, err)
	assert.True(t, upstream.IsQuota(err))
}

func TestGoogleTranslateMalformed(t *testing.T) {
	srv := gtxServer(t, http.StatusOK, "<html>captcha</html>")

	g := NewGoogle(srv.URL, srv.Client())
	_, err := g.Translate(context.Background(), "Hello", models.Hindi)
	require.Error(t, err)
	assert.False(t, upstream.IsQuota(err))
}

func TestGoogleTranslateEmptyText(t *testing.T) {
	g := NewGoogle("http://127.0.0.1:0", nil)
	out, err := g.Translate(context.Background(), "  ", models.Hindi)
	require.NoError(t, err)
	assert.Equal(t, "  ", out)
}

func TestTranslatorOverGoogleFallsBack(t *testing.T) {
	srv := gtxServer(t, http.StatusInternalServerError, "")

	tr := New(NewGoogle(srv.URL, srv.Client()), Options{Logger: quietLogger()})
	ans := tr.Translate(context.Background(), "Hello", models.Hindi)
	assert.Equal(t, "Hello", ans.Text)
	assert.Equal(t, models.OutcomeFailed, ans.Outcome)
}

func TestNewBackend(t *testing.T) {
	b, err := NewBackend(config.TranslatorConfig{Backend: "google"})
	require.NoError(t, err)
	assert.Equal(t, "google", b.Name())

	b, err = NewBackend(config.TranslatorConfig{Backend: "openai", APIKey: "sk", URL: DefaultGoogleURL})
	require.NoError(t, err)
	assert.Equal(t, "openai", b.Name())

	_, err = NewBackend(config.TranslatorConfig{Backend: "deepl"})
	assert.Error(t, err)
}

func TestLLMTranslate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"id":"1","object":"chat.completion","choices":[{"index":0,"message":{"role":"assistant","content":"வணக்கம்"},"finish_reason":"stop"}]}`)
	}))
	defer srv.Close()

	l := NewLLM("sk-test", srv.URL, "")
	out, err := l.Translate(context.Background(), "Hello", models.Tamil)
	require.NoError(t, err)
	assert.Equal(t, "வணக்கம்", out)
}
