package envconfig

import (
	"os"
	"path/filepath"
	"testing"
)

func TestNewEnvFillsDefaultsAndValidatesAbsolutePaths(t *testing.T) {
	dir := t.TempDir()
	encoderBin := filepath.Join(dir, "ffmpeg")
	if err := os.WriteFile(encoderBin, []byte("#!/bin/sh\n"), 0o755); err != nil {
		t.Fatalf("write fake encoder: %v", err)
	}

	envPath := filepath.Join(dir, "env.yaml")
	yamlSrc := []byte("encoderBin: " + encoderBin + "\n")

	env, err := NewEnv(envPath, yamlSrc)
	if err != nil {
		t.Fatalf("NewEnv: %v", err)
	}
	if env.ProjectDir != filepath.Join(dir, "projects") {
		t.Fatalf("unexpected default ProjectDir: %s", env.ProjectDir)
	}
	if env.ScratchDir != filepath.Join(dir, "scratch") {
		t.Fatalf("unexpected default ScratchDir: %s", env.ScratchDir)
	}
}

func TestNewEnvRejectsMissingEncoder(t *testing.T) {
	dir := t.TempDir()
	envPath := filepath.Join(dir, "env.yaml")
	yamlSrc := []byte("encoderBin: " + filepath.Join(dir, "does-not-exist") + "\n")

	if _, err := NewEnv(envPath, yamlSrc); err == nil {
		t.Fatal("expected error for missing encoder binary")
	}
}

func TestGeneralStoreRoundTrip(t *testing.T) {
	dir := t.TempDir()
	store, err := NewGeneralStore(dir)
	if err != nil {
		t.Fatalf("NewGeneralStore: %v", err)
	}
	if store.Get().DefaultFormat != "MP4" {
		t.Fatalf("expected default format MP4, got %s", store.Get().DefaultFormat)
	}

	updated := store.Get()
	updated.DefaultThreads = 4
	if err := store.Set(updated); err != nil {
		t.Fatalf("Set: %v", err)
	}

	reloaded, err := NewGeneralStore(dir)
	if err != nil {
		t.Fatalf("NewGeneralStore reload: %v", err)
	}
	if reloaded.Get().DefaultThreads != 4 {
		t.Fatalf("expected persisted threads=4, got %d", reloaded.Get().DefaultThreads)
	}
}
