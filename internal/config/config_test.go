package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lessonplanner/internal/calendar"
	"lessonplanner/internal/drag"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("PLANNER_TEST_KEY", "s3cret")
	path := writeFile(t, dir, "config.yaml", `
server:
  port: 9000
  api_key: ${PLANNER_TEST_KEY}
  cors_origins: ["http://localhost:5173"]
database:
  path: `+filepath.Join(dir, "db", "planner.db")+`
client:
  cache_ttl_seconds: 30
scheduler:
  period_policy: nearest
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 9000, cfg.Server.Port)
	assert.Equal(t, "s3cret", cfg.Server.APIKey)
	assert.Equal(t, []string{"http://localhost:5173"}, cfg.Server.CORSOrigins)
	assert.Equal(t, drag.PolicyNearest, cfg.PeriodPolicy())
	assert.Equal(t, 30*time.Second, cfg.CacheTTL())
	assert.Equal(t, 365, cfg.Scheduler.HorizonDays)
	assert.Equal(t, 120, cfg.Scheduler.PreviewLength)
	assert.Equal(t, 24*time.Hour, cfg.Backup.Interval())
	assert.DirExists(t, filepath.Join(dir, "db"))
}

func TestLoadFromEnvPath(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "planner.yaml", "database:\n  path: "+filepath.Join(dir, "p.db")+"\n")
	t.Setenv(PathEnv, path)

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, drag.PolicyKeep, cfg.PeriodPolicy())
	assert.Equal(t, 8080, cfg.Server.Port)
}

func TestLoadRejectsBadPolicy(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "config.yaml", "database:\n  path: "+filepath.Join(dir, "p.db")+"\nscheduler:\n  period_policy: sideways\n")

	_, err := Load(path)
	assert.ErrorContains(t, err, "period_policy")
}

func TestLoadHolidays(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr string
		want    int
	}{
		{
			name: "valid",
			content: `holidays:
  - date: "2026-10-03"
    name: Tag der Deutschen Einheit
  - date: "2026-10-26"
    until: "2026-10-30"
    name: Herbstferien
`,
			want: 2,
		},
		{name: "missing name", content: "holidays:\n  - date: \"2026-10-03\"\n", wantErr: "name is required"},
		{name: "bad date", content: "holidays:\n  - date: \"03.10.2026\"\n    name: x\n", wantErr: "expected YYYY-MM-DD"},
		{name: "reversed range", content: "holidays:\n  - date: \"2026-10-30\"\n    until: \"2026-10-26\"\n    name: x\n", wantErr: "before date"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeFile(t, t.TempDir(), "holidays.yaml", tt.content)
			cfg, err := LoadHolidays(path)
			if tt.wantErr != "" {
				assert.ErrorContains(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Len(t, cfg.Holidays, tt.want)

			set := calendar.NewHolidaySet(cfg.Calendar())
			assert.Equal(t, 6, set.Len())
			name, ok := set.HolidayOn(time.Date(2026, 10, 28, 0, 0, 0, 0, time.UTC))
			assert.True(t, ok)
			assert.Equal(t, "Herbstferien", name)
		})
	}
}

func TestWatchHolidays(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "holidays.yaml", "holidays:\n  - date: \"2026-01-01\"\n    name: Neujahr\n")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	updates := make(chan *HolidaysConfig, 4)
	require.NoError(t, WatchHolidays(ctx, path, 10*time.Millisecond, func(c *HolidaysConfig) { updates <- c }))

	first := <-updates
	assert.Equal(t, "Neujahr", first.Holidays[0].Name)

	writeFile(t, dir, "holidays.yaml", "holidays:\n  - date: \"2026-05-01\"\n    name: Tag der Arbeit\n")
	future := time.Now().Add(2 * time.Second)
	require.NoError(t, os.Chtimes(path, future, future))

	select {
	case next := <-updates:
		assert.Equal(t, "Tag der Arbeit", next.Holidays[0].Name)
	case <-time.After(2 * time.Second):
		t.Fatal("holidays were not reloaded")
	}
}
