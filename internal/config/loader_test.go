package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeTempFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return p
}

func TestLoadYAML(t *testing.T) {
	d := t.TempDir()
	p := writeTempFile(t, d, "cfg.yaml", "addr: :9999\nupload_dir: /tmp/uploads\nworker_bin: /usr/bin/convert-worker\nmax_jobs: 4\ncancel_grace_sec: 3\n")
	cfg, err := Load(p)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Addr != ":9999" || cfg.UploadDir != "/tmp/uploads" || cfg.WorkerBin != "/usr/bin/convert-worker" || cfg.MaxJobs != 4 || cfg.CancelGraceSec != 3 {
		t.Fatalf("unexpected cfg: %+v", cfg)
	}
}

func TestLoadJSON(t *testing.T) {
	d := t.TempDir()
	p := writeTempFile(t, d, "cfg.json", `{"addr":":7070","engine_bin":"vllm","engine_args":["serve","some-model"],"engine_port":8000,"engine_start_timeout_sec":300}`)
	cfg, err := Load(p)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Addr != ":7070" || cfg.EngineBin != "vllm" || len(cfg.EngineArgs) != 2 || cfg.EnginePort != 8000 || cfg.EngineStartTimeoutSec != 300 {
		t.Fatalf("unexpected cfg: %+v", cfg)
	}
}

func TestLoadTOML(t *testing.T) {
	d := t.TempDir()
	p := writeTempFile(t, d, "cfg.toml", "addr=\":8081\"\nupload_dir=\"/x\"\nengine_host=\"127.0.0.1\"\nengine_stop_grace_sec=30\n")
	cfg, err := Load(p)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Addr != ":8081" || cfg.UploadDir != "/x" || cfg.EngineHost != "127.0.0.1" || cfg.EngineStopGraceSec != 30 {
		t.Fatalf("unexpected cfg: %+v", cfg)
	}
}

func TestLoadErrors(t *testing.T) {
	if _, err := Load(""); err == nil {
		t.Fatalf("expected error on empty path")
	}
	d := t.TempDir()
	p := writeTempFile(t, d, "cfg.txt", "not supported")
	if _, err := Load(p); err == nil {
		t.Fatalf("expected unsupported extension error")
	}
	if _, err := Load(filepath.Join(d, "missing.yaml")); err == nil {
		t.Fatalf("expected error on missing file")
	}
	bad := writeTempFile(t, d, "bad.json", "{")
	if _, err := Load(bad); err == nil {
		t.Fatalf("expected decode error")
	}
}
