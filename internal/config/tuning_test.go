package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadTuningConfig_Partial(t *testing.T) {
	path := writeConfig(t, "t.json", `{"eps": 5.5, "min_pts": 3}`)

	cfg, err := LoadTuningConfig(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.GetEps() != 5.5 {
		t.Errorf("eps = %v, want 5.5", cfg.GetEps())
	}
	if cfg.GetMinPts() != 3 {
		t.Errorf("min_pts = %d, want 3", cfg.GetMinPts())
	}
	// Unset fields fall back to defaults.
	if cfg.GetTrimLookback() != 10 {
		t.Errorf("trim_lookback default = %v, want 10", cfg.GetTrimLookback())
	}
	if cfg.GetArenaCapacity() != 0 {
		t.Errorf("arena_capacity default = %d, want 0", cfg.GetArenaCapacity())
	}
	if cfg.GetLogInterval() != 2*time.Second {
		t.Errorf("log_interval default = %v, want 2s", cfg.GetLogInterval())
	}
}

func TestLoadTuningConfig_Errors(t *testing.T) {
	cases := []struct {
		name    string
		file    string
		content string
	}{
		{"wrong extension", "t.yaml", `{}`},
		{"bad json", "t.json", `{"eps": `},
		{"negative eps", "t.json", `{"eps": -1}`},
		{"zero min_pts", "t.json", `{"min_pts": 0}`},
		{"bad interval", "t.json", `{"log_interval": "soon"}`},
		{"negative capacity", "t.json", `{"arena_capacity": -5}`},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			path := writeConfig(t, c.file, c.content)
			if _, err := LoadTuningConfig(path); err == nil {
				t.Error("expected an error")
			}
		})
	}

	if _, err := LoadTuningConfig(filepath.Join(t.TempDir(), "missing.json")); err == nil {
		t.Error("expected an error for a missing file")
	}
}

func TestLoadTuningConfig_Defaults(t *testing.T) {
	// The checked-in defaults file must parse and agree with the built-in
	// fallbacks.
	cfg, err := LoadTuningConfig(filepath.Join("..", "..", DefaultConfigPath))
	if err != nil {
		t.Fatalf("defaults file: %v", err)
	}
	if cfg.GetEps() != 10 || cfg.GetMinPts() != 2 || cfg.GetTrimLookback() != 10 {
		t.Errorf("defaults file disagrees with built-ins: eps=%v min_pts=%d lookback=%v",
			cfg.GetEps(), cfg.GetMinPts(), cfg.GetTrimLookback())
	}
}
