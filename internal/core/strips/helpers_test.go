package strips

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	"github.com/rharish101/dilbert-viewer/internal/source"
)

// fakeClock is a settable Clock.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock(now time.Time) *fakeClock {
	return &fakeClock{now: now}
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

// fakeStore is an in-memory cache.Store with injectable failures.
type fakeStore struct {
	mu         sync.Mutex
	data       map[string][]byte
	getErr     error
	setErr     error
	failSetKey string // when set, setErr only applies to this key
	getCalls   int
	setCalls   int
}

func newFakeStore() *fakeStore {
	return &fakeStore{data: make(map[string][]byte)}
}

func (s *fakeStore) Get(_ context.Context, key string) ([]byte, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.getCalls++
	if s.getErr != nil {
		return nil, false, s.getErr
	}
	value, ok := s.data[key]
	return value, ok, nil
}

func (s *fakeStore) Set(_ context.Context, key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.setCalls++
	if s.setErr != nil && (s.failSetKey == "" || s.failSetKey == key) {
		return s.setErr
	}
	s.data[key] = value
	return nil
}

func (s *fakeStore) Close() error { return nil }

func (s *fakeStore) has(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.data[key]
	return ok
}

func (s *fakeStore) seedLatest(t *testing.T, date string, lastCheck time.Time) {
	t.Helper()
	raw, err := json.Marshal(latestDateInfo{Date: date, LastCheck: lastCheck})
	require.NoError(t, err)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[latestDateKey] = raw
}

func (s *fakeStore) seedStrip(t *testing.T, date string, strip Strip) {
	t.Helper()
	raw, err := json.Marshal(strip)
	require.NoError(t, err)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data["strip:"+date] = raw
}

func (s *fakeStore) latest(t *testing.T) latestDateInfo {
	t.Helper()
	s.mu.Lock()
	raw, ok := s.data[latestDateKey]
	s.mu.Unlock()
	require.True(t, ok, "latest date should be cached")

	var info latestDateInfo
	require.NoError(t, json.Unmarshal(raw, &info))
	return info
}

// fakeSite mimics the source: known pages are served, every other path
// redirects to the home page.
type fakeSite struct {
	*httptest.Server
	mu       sync.Mutex
	handlers map[string]http.HandlerFunc
	hits     map[string]int
}

func newFakeSite(t *testing.T) *fakeSite {
	t.Helper()
	site := &fakeSite{
		handlers: make(map[string]http.HandlerFunc),
		hits:     make(map[string]int),
	}
	site.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		site.mu.Lock()
		site.hits[r.URL.Path]++
		handler, ok := site.handlers[r.URL.Path]
		site.mu.Unlock()

		if !ok {
			http.Redirect(w, r, "/", http.StatusFound)
			return
		}
		handler(w, r)
	}))
	t.Cleanup(site.Close)
	return site
}

func (f *fakeSite) handle(path string, h http.HandlerFunc) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.handlers[path] = h
}

// servePage serves testdata/scraping/<date>.html for the strip at date.
func (f *fakeSite) servePage(t *testing.T, date string) {
	t.Helper()
	page, err := os.ReadFile(filepath.Join("testdata", "scraping", date+".html"))
	require.NoError(t, err, "Couldn't read test page for scraping")
	f.handle("/strip/"+date, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write(page)
	})
}

func (f *fakeSite) serveStatus(date string, status int, body string) {
	f.handle("/strip/"+date, func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, body, status)
	})
}

func (f *fakeSite) hitsFor(date string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.hits["/strip/"+date]
}

func (f *fakeSite) totalHits() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	total := 0
	for _, n := range f.hits {
		total += n
	}
	return total
}

type testEnv struct {
	svc     *Service
	site    *fakeSite
	store   *fakeStore
	clock   *fakeClock
	metrics *Metrics
}

// testNow is 2020-01-05 12:00 UTC.
var testNow = time.Date(2020, time.January, 5, 12, 0, 0, 0, time.UTC)

func newTestEnv(t *testing.T, mutate ...func(*Config)) *testEnv {
	t.Helper()
	env := &testEnv{
		site:    newFakeSite(t),
		store:   newFakeStore(),
		clock:   newFakeClock(testNow),
		metrics: NewMetrics(prometheus.NewRegistry()),
	}

	cfg := DefaultConfig()
	for _, m := range mutate {
		m(&cfg)
	}

	client := source.NewClient(env.site.URL, 2*time.Second)
	svc, err := NewService(env.store, client, cfg, WithClock(env.clock), WithMetrics(env.metrics))
	require.NoError(t, err)
	env.svc = svc
	return env
}

func mustDate(t *testing.T, s string) time.Time {
	t.Helper()
	date, err := ParseDate(s)
	require.NoError(t, err)
	return date
}
