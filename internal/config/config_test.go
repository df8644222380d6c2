package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Port != 8080 {
		t.Errorf("port = %d, want 8080", cfg.Server.Port)
	}
	if cfg.Evaluator.Ply != 2 {
		t.Errorf("evaluator ply = %d, want 2", cfg.Evaluator.Ply)
	}
	if cfg.Coach.Threshold != 0.06 {
		t.Errorf("coach threshold = %v, want 0.06", cfg.Coach.Threshold)
	}
	if !cfg.Engine.AutoRoll {
		t.Error("auto roll should default on")
	}
	if cfg.Engine.Heuristic.Hit != 15 {
		t.Errorf("heuristic hit = %v, want 15", cfg.Engine.Heuristic.Hit)
	}
	if cfg.Pool.MaxEvalWorkers != 8 || cfg.Pool.MaxCoachWorkers != 2 {
		t.Errorf("pool = %+v", cfg.Pool)
	}
	if cfg.Mongo.Database != "bgtutor" {
		t.Errorf("mongo database = %q", cfg.Mongo.Database)
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("BGTUTOR_SERVER_PORT", "9090")
	t.Setenv("BGTUTOR_EVALUATOR_URL", "http://gnubg:8000")
	t.Setenv("BGTUTOR_COACH_TIMEOUT", "5s")
	t.Setenv("BGTUTOR_LOG_LEVEL", "debug")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Port != 9090 {
		t.Errorf("port = %d, want 9090", cfg.Server.Port)
	}
	if cfg.Evaluator.URL != "http://gnubg:8000" {
		t.Errorf("evaluator url = %q", cfg.Evaluator.URL)
	}
	if cfg.Coach.Timeout != 5*time.Second {
		t.Errorf("coach timeout = %v, want 5s", cfg.Coach.Timeout)
	}
	if cfg.Log.Level != "debug" {
		t.Errorf("log level = %q", cfg.Log.Level)
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bgtutor.yaml")
	data := []byte(`
server:
  port: 7000
coach:
  url: http://coach:9000
  threshold: 0.1
engine:
  strict_invariants: true
  heuristic:
    blot: -12
redis:
  addr: localhost:6379
`)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Port != 7000 {
		t.Errorf("port = %d, want 7000", cfg.Server.Port)
	}
	if cfg.Coach.URL != "http://coach:9000" || cfg.Coach.Threshold != 0.1 {
		t.Errorf("coach = %+v", cfg.Coach)
	}
	if !cfg.Engine.StrictInvariants {
		t.Error("strict invariants not read")
	}
	if cfg.Engine.Heuristic.Blot != -12 || cfg.Engine.Heuristic.Hit != 15 {
		t.Errorf("heuristic = %+v", cfg.Engine.Heuristic)
	}
	if cfg.Redis.Addr != "localhost:6379" {
		t.Errorf("redis addr = %q", cfg.Redis.Addr)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestValidate(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatal(err)
	}
	cfg.Server.Port = 0
	cfg.Evaluator.Ply = 7
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected validation error")
	}
}
