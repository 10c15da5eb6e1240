package strips

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rharish101/dilbert-viewer/internal/source"
)

func TestNewService_NilDependencies(t *testing.T) {
	client := source.NewClient("http://localhost", time.Second)

	_, err := NewService(nil, client, DefaultConfig())
	assert.ErrorIs(t, err, ErrNilDependency)

	_, err = NewService(newFakeStore(), nil, DefaultConfig())
	assert.ErrorIs(t, err, ErrNilDependency)
}

func TestNewService_InvalidConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.TimeZone = "Mars/Olympus_Mons"

	_, err := NewService(newFakeStore(), source.NewClient("http://localhost", time.Second), cfg)
	assert.ErrorIs(t, err, ErrInvalidTimeZone)
}

func TestResolveStrip_Found(t *testing.T) {
	env := newTestEnv(t)
	env.site.servePage(t, "2020-01-01")
	env.store.seedLatest(t, "2020-01-05", testNow)

	res, err := env.svc.ResolveStrip(context.Background(), mustDate(t, "2020-01-01"), false)

	require.NoError(t, err)
	assert.Equal(t, "Rfp Process", res.Strip.Title)
	assert.Equal(t, 900, res.Strip.ImageWidth)
	assert.Equal(t, 280, res.Strip.ImageHeight)
	assert.Equal(t, "2020-01-01", FormatDate(res.Date))
	assert.Equal(t, "2020-01-05", FormatDate(res.LatestDate))

	// Served entirely from the cache the second time.
	hits := env.site.totalHits()
	again, err := env.svc.ResolveStrip(context.Background(), mustDate(t, "2020-01-01"), false)
	require.NoError(t, err)
	assert.Equal(t, res, again)
	assert.Equal(t, hits, env.site.totalHits())
}

func TestResolveStrip_IgnoresTimeOfDay(t *testing.T) {
	env := newTestEnv(t)
	env.site.servePage(t, "2020-01-01")
	env.store.seedLatest(t, "2020-01-05", testNow)

	res, err := env.svc.ResolveStrip(context.Background(),
		time.Date(2020, time.January, 1, 23, 59, 0, 0, time.UTC), false)

	require.NoError(t, err)
	assert.Equal(t, "2020-01-01", FormatDate(res.Date))
}

func TestResolveStrip_AdvancesStaleLatestDate(t *testing.T) {
	env := newTestEnv(t)
	env.store.seedLatest(t, "2020-01-01", testNow.Add(-time.Hour))
	env.site.servePage(t, "2020-01-01")
	env.site.handle("/strip/2020-01-05", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`<img class="img-comic" width="900" height="280" src="https://img/5">`))
	})
	env.clock.Advance(time.Minute)

	res, err := env.svc.ResolveStrip(context.Background(), mustDate(t, "2020-01-05"), false)

	require.NoError(t, err)
	assert.Equal(t, "2020-01-05", FormatDate(res.Date))
	assert.Equal(t, "2020-01-05", FormatDate(res.LatestDate))

	info := env.store.latest(t)
	assert.Equal(t, "2020-01-05", info.Date)
	assert.True(t, info.LastCheck.Equal(testNow.Add(time.Minute)))
	assert.Equal(t, 1, env.site.hitsFor("2020-01-05"), "latest date was fresh, so only the strip is fetched")
	assert.Equal(t, 1.0, testutil.ToFloat64(env.metrics.LatestAdvances))
}

func TestResolveStrip_LatestDateUpdateFailureIsIgnored(t *testing.T) {
	env := newTestEnv(t)
	env.store.seedLatest(t, "2020-01-01", testNow)
	env.store.setErr = errors.New("read-only replica")
	env.store.failSetKey = latestDateKey
	env.site.handle("/strip/2020-01-05", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`<img class="img-comic" width="900" height="280" src="https://img/5">`))
	})

	res, err := env.svc.ResolveStrip(context.Background(), mustDate(t, "2020-01-05"), false)

	require.NoError(t, err)
	assert.Equal(t, "2020-01-05", FormatDate(res.LatestDate))
	assert.Equal(t, "2020-01-01", env.store.latest(t).Date)
	assert.Equal(t, 1.0, testutil.ToFloat64(env.metrics.CacheWriteErrors.WithLabelValues(kindLatest)))
}

func TestResolveStrip_MissingStrip(t *testing.T) {
	env := newTestEnv(t)
	env.store.seedLatest(t, "2020-01-01", testNow)
	env.site.servePage(t, "2020-01-01")
	ctx := context.Background()

	t.Run("not found without fallback", func(t *testing.T) {
		res, err := env.svc.ResolveStrip(ctx, mustDate(t, "2099-01-01"), false)

		assert.Nil(t, res)
		assert.ErrorIs(t, err, ErrStripNotFound)
	})

	t.Run("latest strip shown with fallback", func(t *testing.T) {
		res, err := env.svc.ResolveStrip(ctx, mustDate(t, "2099-01-01"), true)

		require.NoError(t, err)
		assert.Equal(t, "Rfp Process", res.Strip.Title)
		assert.Equal(t, "2020-01-01", FormatDate(res.Date))
		assert.Equal(t, "2020-01-01", FormatDate(res.LatestDate))
	})

	assert.Equal(t, 2, env.site.hitsFor("2099-01-01"), "missing strips are re-checked every time")
	assert.Equal(t, 1, env.site.hitsFor("2020-01-01"))
}

func TestResolveStrip_LatestStripMissing(t *testing.T) {
	env := newTestEnv(t)
	env.store.seedLatest(t, "2020-01-02", testNow)

	_, err := env.svc.ResolveStrip(context.Background(), mustDate(t, "2099-01-01"), true)

	assert.ErrorIs(t, err, ErrLatestStripMissing)
	assert.NotErrorIs(t, err, ErrStripNotFound)
}

func TestResolveStrip_LookupFailureIsInternal(t *testing.T) {
	tests := []struct {
		name  string
		setup func(*testEnv)
	}{
		{
			name: "strip scrape fails",
			setup: func(env *testEnv) {
				env.store.seedLatest(t, "2020-01-05", testNow)
				env.site.serveStatus("2020-01-01", http.StatusInternalServerError, "down")
			},
		},
		{
			name: "latest probe fails with nothing cached",
			setup: func(env *testEnv) {
				env.site.servePage(t, "2020-01-01")
				env.site.serveStatus("2020-01-05", http.StatusInternalServerError, "down")
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)
			tt.setup(env)

			_, err := env.svc.ResolveStrip(context.Background(), mustDate(t, "2020-01-01"), true)

			assert.ErrorIs(t, err, ErrScrapeFailed)
			assert.NotErrorIs(t, err, ErrStripNotFound)
		})
	}
}

func TestResolveStrip_LookupsRunConcurrently(t *testing.T) {
	env := newTestEnv(t)

	// Each request waits until both have arrived, so a sequential
	// implementation fails with a 500.
	var arrived sync.WaitGroup
	arrived.Add(2)
	both := make(chan struct{})
	go func() {
		arrived.Wait()
		close(both)
	}()
	barrier := func(w http.ResponseWriter, body string) {
		arrived.Done()
		select {
		case <-both:
			_, _ = w.Write([]byte(body))
		case <-time.After(time.Second):
			w.WriteHeader(http.StatusInternalServerError)
		}
	}
	env.site.handle("/strip/2020-01-03", func(w http.ResponseWriter, _ *http.Request) {
		barrier(w, `<img class="img-comic" width="1" height="1" src="https://img/3">`)
	})
	env.site.handle("/strip/2020-01-05", func(w http.ResponseWriter, _ *http.Request) {
		barrier(w, "")
	})

	res, err := env.svc.ResolveStrip(context.Background(), mustDate(t, "2020-01-03"), false)

	require.NoError(t, err)
	assert.Equal(t, "2020-01-03", FormatDate(res.Date))
	assert.Equal(t, "2020-01-05", FormatDate(res.LatestDate))
}

func TestResolveStrip_CompletesAfterCallerCancels(t *testing.T) {
	env := newTestEnv(t)
	env.store.seedLatest(t, "2020-01-05", testNow)
	env.site.servePage(t, "2020-01-01")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res, err := env.svc.ResolveStrip(ctx, mustDate(t, "2020-01-01"), false)

	require.NoError(t, err)
	assert.Equal(t, "Rfp Process", res.Strip.Title)
	assert.True(t, env.store.has("strip:2020-01-01"))
}

func TestRandomDate(t *testing.T) {
	env := newTestEnv(t)
	env.store.seedLatest(t, "2020-01-05", testNow)

	var bounds []int64
	env.svc.randInt64 = func(n int64) int64 {
		bounds = append(bounds, n)
		return 0
	}
	first, err := env.svc.RandomDate(context.Background())
	require.NoError(t, err)
	assert.Equal(t, FirstStripDate, first)

	env.svc.randInt64 = func(n int64) int64 { return n - 1 }
	last, err := env.svc.RandomDate(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "2020-01-05", FormatDate(last))

	wantDays := int64(mustDate(t, "2020-01-05").Sub(FirstStripDate)/(24*time.Hour)) + 1
	assert.Equal(t, []int64{wantDays}, bounds)
}

func TestRandomDate_UsesRealSource(t *testing.T) {
	env := newTestEnv(t)
	env.store.seedLatest(t, "2020-01-05", testNow)
	latest := mustDate(t, "2020-01-05")

	for i := 0; i < 50; i++ {
		date, err := env.svc.RandomDate(context.Background())
		require.NoError(t, err)
		assert.False(t, date.Before(FirstStripDate))
		assert.False(t, date.After(latest))
	}
}

func TestStartLatestRefreshJob(t *testing.T) {
	t.Run("disabled", func(t *testing.T) {
		env := newTestEnv(t)
		cancel := env.svc.StartLatestRefreshJob(0)
		cancel()
		assert.Zero(t, env.site.totalHits())
	})

	t.Run("refreshes the cached date", func(t *testing.T) {
		env := newTestEnv(t)
		env.store.seedLatest(t, "2020-01-03", testNow)
		env.site.handle("/strip/2020-01-05", func(w http.ResponseWriter, _ *http.Request) {})

		cancel := env.svc.StartLatestRefreshJob(10 * time.Millisecond)
		defer cancel()

		assert.Eventually(t, func() bool {
			return env.store.latest(t).Date == "2020-01-05"
		}, 2*time.Second, 10*time.Millisecond)
	})
}
