package retrieval_test

import (
	"context"
	"fmt"
	"math/rand"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"citeweb/internal/apperr"
	"citeweb/internal/extract"
	"citeweb/internal/fetch"
	"citeweb/internal/models"
	"citeweb/internal/retrieval"
	"citeweb/internal/text"
)

type MockFetcher struct{ mock.Mock }

func (m *MockFetcher) Fetch(ctx context.Context, url string) (*fetch.Page, error) {
	args := m.Called(ctx, url)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*fetch.Page), args.Error(1)
}

func htmlPage(url, title, author string, paragraphs ...string) *fetch.Page {
	var b strings.Builder
	fmt.Fprintf(&b, "<html><head><title>%s</title>", title)
	if author != "" {
		fmt.Fprintf(&b, `<meta name="author" content="%s">`, author)
	}
	fmt.Fprintf(&b, `<meta name="description" content="about %s"></head><body>`, title)
	for _, p := range paragraphs {
		fmt.Fprintf(&b, "<p>%s</p>", p)
	}
	b.WriteString("</body></html>")
	return &fetch.Page{URL: url, StatusCode: 200, ContentType: "text/html; charset=utf-8", Body: []byte(b.String())}
}

func sources(n int) []models.CandidateSource {
	out := make([]models.CandidateSource, n)
	for i := range out {
		out[i] = models.CandidateSource{
			Title:   fmt.Sprintf("Result %d", i+1),
			Link:    fmt.Sprintf("https://example.com/%d", i+1),
			Snippet: fmt.Sprintf("snippet for result %d", i+1),
		}
	}
	return out
}

func TestService_Extract(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		f := new(MockFetcher)
		srcs := sources(2)
		f.On("Fetch", mock.Anything, srcs[0].Link).Return(htmlPage(srcs[0].Link, "Alpha", "Ann", "first para", "second para"), nil)
		f.On("Fetch", mock.Anything, srcs[1].Link).Return(htmlPage(srcs[1].Link, "Beta", "", "beta body"), nil)

		svc := retrieval.NewService(f)
		records := svc.Extract(context.Background(), srcs, retrieval.Options{PageWordBudget: 700, Concurrency: 2})

		require.Len(t, records, 2)
		assert.Equal(t, "Alpha", records[0].Title)
		assert.Equal(t, "Alpha", records[0].Heading)
		assert.Equal(t, "about Alpha", records[0].Summary)
		assert.Equal(t, "Ann", records[0].Author)
		assert.Equal(t, "Alpha first para second para", records[0].Content)
		assert.Equal(t, srcs[0].Link, records[0].SourceLink)
		assert.False(t, records[0].Fallback)

		assert.Equal(t, extract.UnknownAuthor, records[1].Author)
		assert.Equal(t, "Beta beta body", records[1].Content)
		f.AssertExpectations(t)
	})

	t.Run("Word Budget", func(t *testing.T) {
		f := new(MockFetcher)
		srcs := sources(1)
		long := strings.Repeat("lorem ipsum ", 600)
		f.On("Fetch", mock.Anything, srcs[0].Link).Return(htmlPage(srcs[0].Link, "Long", "", long, long), nil)

		svc := retrieval.NewService(f)
		records := svc.Extract(context.Background(), srcs, retrieval.Options{PageWordBudget: 700})

		require.Len(t, records, 1)
		assert.Equal(t, 700, text.WordCount(records[0].Content))
		assert.True(t, strings.HasPrefix(records[0].Content, "Long lorem ipsum"))
	})

	t.Run("Fault Isolation", func(t *testing.T) {
		f := new(MockFetcher)
		srcs := sources(2)
		f.On("Fetch", mock.Anything, srcs[0].Link).Return(htmlPage(srcs[0].Link, "Alpha", "", "ok"), nil)
		f.On("Fetch", mock.Anything, srcs[1].Link).Return(nil, fmt.Errorf("%w: connection refused", apperr.ErrSourceFetch))

		svc := retrieval.NewService(f)
		records := svc.Extract(context.Background(), srcs, retrieval.Options{})

		require.Len(t, records, 2)
		assert.False(t, records[0].Fallback)
		assert.Equal(t, retrieval.Fallback(srcs[1], retrieval.DefaultPageWordBudget), records[1])
		assert.Equal(t, srcs[1].Snippet, records[1].Summary)
		assert.Equal(t, srcs[1].Snippet, records[1].Content)
		assert.Equal(t, srcs[1].Title, records[1].Title)
	})

	t.Run("Empty", func(t *testing.T) {
		svc := retrieval.NewService(new(MockFetcher))
		records := svc.Extract(context.Background(), nil, retrieval.Options{})
		assert.Empty(t, records)
	})

	t.Run("Idempotent", func(t *testing.T) {
		f := new(MockFetcher)
		srcs := sources(3)
		for _, s := range srcs {
			f.On("Fetch", mock.Anything, s.Link).Return(htmlPage(s.Link, s.Title, "", "body of "+s.Title), nil)
		}
		svc := retrieval.NewService(f)
		a := svc.Extract(context.Background(), srcs, retrieval.Options{Concurrency: 3})
		b := svc.Extract(context.Background(), srcs, retrieval.Options{Concurrency: 1})
		assert.Equal(t, a, b)
	})
}

func TestService_Extract_OrderUnderLatency(t *testing.T) {
	const n = 12
	var inFlight, peak int32

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cur := atomic.AddInt32(&inFlight, 1)
		defer atomic.AddInt32(&inFlight, -1)
		for {
			old := atomic.LoadInt32(&peak)
			if cur <= old || atomic.CompareAndSwapInt32(&peak, old, cur) {
				break
			}
		}

		time.Sleep(time.Duration(rand.Intn(30)) * time.Millisecond)
		w.Header().Set("Content-Type", "text/html")
		fmt.Fprintf(w, "<html><head><title>page %s</title></head><body><p>%s</p></body></html>", r.URL.Path, r.URL.Path)
	}))
	defer ts.Close()

	srcs := make([]models.CandidateSource, n)
	for i := range srcs {
		srcs[i] = models.CandidateSource{Title: "t", Link: fmt.Sprintf("%s/p%d", ts.URL, i), Snippet: "s"}
	}

	svc := retrieval.NewService(fetch.NewClient(fetch.Options{Timeout: 5 * time.Second}))
	records := svc.Extract(context.Background(), srcs, retrieval.Options{Concurrency: 4})

	require.Len(t, records, n)
	for i, rec := range records {
		assert.Equal(t, srcs[i].Link, rec.SourceLink)
		assert.Equal(t, fmt.Sprintf("page /p%d", i), rec.Title)
	}
	assert.LessOrEqual(t, atomic.LoadInt32(&peak), int32(4))
}

func TestService_Extract_TimeoutFallsBack(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/slow" {
			time.Sleep(300 * time.Millisecond)
		}
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte("<html><head><title>fast</title></head><body><p>ok</p></body></html>"))
	}))
	defer ts.Close()

	srcs := []models.CandidateSource{
		{Title: "Slow", Link: ts.URL + "/slow", Snippet: "slow snippet"},
		{Title: "Fast", Link: ts.URL + "/fast", Snippet: "fast snippet"},
	}

	svc := retrieval.NewService(fetch.NewClient(fetch.Options{}))
	records := svc.Extract(context.Background(), srcs, retrieval.Options{FetchTimeout: 50 * time.Millisecond})

	require.Len(t, records, 2)
	assert.True(t, records[0].Fallback)
	assert.Equal(t, "slow snippet", records[0].Content)
	assert.False(t, records[1].Fallback)
	assert.Equal(t, "fast", records[1].Title)
}
