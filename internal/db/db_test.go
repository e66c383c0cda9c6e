package db

import (
	"context"
	"errors"
	"net/url"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"

	"subnetdash/internal/config"
)

func TestWithConnectTimeout(t *testing.T) {
	got, err := withConnectTimeout("postgres://u:p@localhost:5432/results?sslmode=disable", 5*time.Second)
	require.NoError(t, err)
	u, err := url.Parse(got)
	require.NoError(t, err)
	assert.Equal(t, "5", u.Query().Get("connect_timeout"))
	assert.Equal(t, "disable", u.Query().Get("sslmode"))

	got, err = withConnectTimeout("postgres://localhost/results?connect_timeout=30", 5*time.Second)
	require.NoError(t, err)
	assert.Contains(t, got, "connect_timeout=30")

	got, err = withConnectTimeout("postgres://localhost/results", 200*time.Millisecond)
	require.NoError(t, err)
	assert.Contains(t, got, "connect_timeout=1")
}

func TestConnectRejectsBadURL(t *testing.T) {
	for _, dsn := range []string{"", "mysql://localhost/x", "host=localhost"} {
		cfg := config.Default()
		cfg.DatabaseURL = dsn
		_, err := Connect(context.Background(), cfg)
		assert.Error(t, err, dsn)
	}
}

func TestQueryError(t *testing.T) {
	cause := errors.New("canceling statement due to statement timeout")
	qe := &QueryError{Name: "overall_metrics", SQL: overallMetricsQuery(time.Now()).sql, Err: cause}

	assert.ErrorIs(t, qe, cause)
	assert.Contains(t, qe.Error(), "overall_metrics")

	short := qe.Truncated(40)
	assert.LessOrEqual(t, len(short), 43)
	assert.True(t, strings.HasSuffix(short, "..."))
	assert.NotContains(t, short, "\n")

	assert.Equal(t, "SELECT 1", (&QueryError{SQL: "SELECT\n\t1"}).Truncated(40))
}

// TestStoreIntegration runs against a real results store only when
// APP_TEST_DATABASE_URL is set. It recreates the rollouts table, so point it
// at a disposable database.
func TestStoreIntegration(t *testing.T) {
	dsn := os.Getenv("APP_TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("APP_TEST_DATABASE_URL not set")
	}
	ctx := context.Background()
	cfg := config.Default()
	cfg.DatabaseURL = dsn

	gdb, err := Connect(ctx, cfg)
	require.NoError(t, err)
	store := NewStore(gdb, 10*time.Second)
	defer store.Close()

	require.NoError(t, gdb.Exec(`CREATE TABLE IF NOT EXISTS rollouts (
		ingested_at timestamptz NOT NULL,
		hotkey text NOT NULL,
		uid bigint NOT NULL,
		model text NOT NULL,
		revision text,
		env_name text,
		score double precision,
		success boolean NOT NULL,
		latency_seconds double precision,
		extra jsonb
	)`).Error)
	require.NoError(t, gdb.Exec(`TRUNCATE rollouts`).Error)

	now := time.Now().UTC()
	rev := "r1"
	score := func(f float64) *float64 { return &f }
	seed := []RolloutRecord{
		{IngestedAt: now, Hotkey: "h1", UID: 1, Model: "GPT-X ", Revision: &rev, EnvName: "SAT", Score: score(0.8), Success: true, LatencySeconds: score(2),
			Extra: datatypes.JSON(`{"miner_chute":{"chute_id":null}}`)},
		{IngestedAt: now.Add(-time.Minute), Hotkey: "h1", UID: 2, Model: "GPT-X ", Revision: &rev, EnvName: ScaledEnvironment, Score: score(50), Success: false,
			Extra: datatypes.JSON(`{"miner_chute":{"chute_id":"c1"}}`)},
		{IngestedAt: now.Add(-60 * 24 * time.Hour), Hotkey: "old", UID: 3, Model: "m", EnvName: "ABD", Success: true},
	}
	require.NoError(t, gdb.Create(&seed).Error)

	since := now.Add(-30 * 24 * time.Hour)

	envs, err := store.Environments(ctx, since)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{ScaledEnvironment, "SAT"}, envs)

	base, err := store.EnvironmentMetrics(ctx, since, envs)
	require.NoError(t, err)
	assert.Len(t, base, 2)

	overall, err := store.OverallMetrics(ctx, since)
	require.NoError(t, err)
	require.Len(t, overall, 1)
	assert.Equal(t, int64(2), overall[0].UID)
	assert.InDelta(t, (0.8+0.75)/2, *overall[0].OverallAvgScore, 1e-9)
	assert.InDelta(t, 50.0, overall[0].SuccessRatePercent, 1e-9)
	assert.Equal(t, "c1", overall[0].ChuteID(), "newest candidate has a null id")

	rows, err := store.TopMinersByEnv(ctx, "x'; DROP TABLE rollouts; --", since, 20)
	require.NoError(t, err)
	assert.Empty(t, rows)

	stats, err := store.ModelStats(ctx, []string{"  gpt-x  "}, since)
	require.NoError(t, err)
	assert.Contains(t, stats, "gpt-x")

	feed, err := store.ActivityFeed(ctx, 50)
	require.NoError(t, err)
	assert.Len(t, feed, 3)
}
