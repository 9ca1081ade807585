package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/AsdfAlex-learning/fnOS-Overseer/internal/sniff"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromEnvDefaults(t *testing.T) {
	for _, key := range []string{
		"HTTP_ADDR", "METRICS_ADDR", "TIMEZONE", "SAMPLE_INTERVAL",
		"REPORT_HOUR", "REPORT_MINUTE", "SMTP_PORT", "SMTP_TLS", "WATCH_DIRS",
	} {
		t.Setenv(key, "")
	}

	cfg, err := FromEnv()
	require.NoError(t, err)

	assert.Equal(t, ":8484", cfg.HTTPAddr)
	assert.Equal(t, ":9184", cfg.MetricsAddr)
	assert.Equal(t, "Asia/Shanghai", cfg.Timezone)
	assert.Equal(t, time.Minute, cfg.SampleInterval)
	assert.Equal(t, 0, cfg.ReportHour)
	assert.Equal(t, 30, cfg.ReportMinute)
	assert.Equal(t, 465, cfg.Mail.Port)
	assert.True(t, cfg.Mail.UseTLS)
	assert.Empty(t, cfg.WatchDirs)
}

func TestFromEnvOverrides(t *testing.T) {
	t.Setenv("TIMEZONE", "UTC")
	t.Setenv("SAMPLE_INTERVAL", "30s")
	t.Setenv("REPORT_HOUR", "8")
	t.Setenv("REPORT_MINUTE", "0")
	t.Setenv("SMTP_PORT", "587")
	t.Setenv("WATCH_DIRS", "/vol1/shared, /vol2/media")

	cfg, err := FromEnv()
	require.NoError(t, err)

	assert.Equal(t, time.UTC, cfg.Location)
	assert.Equal(t, 30*time.Second, cfg.SampleInterval)
	assert.Equal(t, 8, cfg.ReportHour)
	assert.Equal(t, 0, cfg.ReportMinute)
	assert.Equal(t, 587, cfg.Mail.Port)
	assert.Equal(t, []string{"/vol1/shared", "/vol2/media"}, cfg.WatchDirs)
}

func TestFromEnvRejectsBadValues(t *testing.T) {
	cases := []struct {
		key   string
		value string
	}{
		{"TIMEZONE", "Mars/Olympus"},
		{"SAMPLE_INTERVAL", "fast"},
		{"SAMPLE_INTERVAL", "100ms"},
		{"REPORT_HOUR", "24"},
		{"REPORT_MINUTE", "60"},
		{"SMTP_PORT", "notaport"},
	}

	for _, tc := range cases {
		t.Run(tc.key+"="+tc.value, func(t *testing.T) {
			t.Setenv(tc.key, tc.value)
			_, err := FromEnv()
			assert.Error(t, err)
		})
	}
}

func TestLoadProfileEmptyPathKeepsDefaults(t *testing.T) {
	policy, power, err := LoadProfile("")
	require.NoError(t, err)

	assert.True(t, policy.Trusted[".jpg"])
	assert.Equal(t, 15.0, power.CPUTDPWatts)
	assert.Equal(t, 10.0, power.BaseWatts)
}

func TestLoadProfileOverlay(t *testing.T) {
	path := filepath.Join(t.TempDir(), "profile.yaml")
	content := `
policy:
  trusted_extensions: [jpg, pdf]
  canonical:
    image: [jpg, jpeg, heic]
  script_min_bytes:
    .sh: 64
hardware:
  cpu_tdp_watts: 35
  disks:
    hdd: 4
  memory_sticks: 4
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	policy, power, err := LoadProfile(path)
	require.NoError(t, err)

	assert.True(t, policy.Trusted[".jpg"])
	assert.True(t, policy.Trusted[".pdf"])
	assert.False(t, policy.Trusted[".png"], "trusted list is replaced, not merged")

	assert.True(t, policy.Canonical[sniff.ClassImage][".heic"])
	assert.False(t, policy.Canonical[sniff.ClassImage][".webp"], "canonical set for a named class is replaced")
	assert.True(t, policy.Canonical[sniff.ClassExecutable][".exe"], "unnamed classes keep defaults")

	assert.Equal(t, int64(64), policy.ScriptMinBytes[".sh"])
	assert.Equal(t, int64(16), policy.ScriptMinBytes[".py"], "thresholds merge per extension")

	assert.Equal(t, 35.0, power.CPUTDPWatts)
	assert.Equal(t, 4, power.Disks.HDD)
	assert.Equal(t, 4, power.MemorySticks)
	assert.Equal(t, 10.0, power.BaseWatts, "unset hardware values keep defaults")
}

func TestLoadProfileRejectsUnknownClass(t *testing.T) {
	path := filepath.Join(t.TempDir(), "profile.yaml")
	content := `
policy:
  canonical:
    hologram: [hol]
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	_, _, err := LoadProfile(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "hologram")
}

func TestLoadProfileMissingFileIsError(t *testing.T) {
	_, _, err := LoadProfile("/nonexistent/profile.yaml")
	assert.Error(t, err)
}
