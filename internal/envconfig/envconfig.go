// Package envconfig implements environment and general configuration,
// modeled on nvr's pkg/storage ConfigEnv/ConfigGeneral split: a
// YAML-backed environment file with defaulting and absolute-path
// validation, plus a small JSON-backed general-settings file guarded
// by a mutex. Render configuration defaults (threads, codec, format)
// are seeded from the general settings.
package envconfig

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sync"

	yaml "gopkg.in/yaml.v2"
)

// Env is the environment configuration: paths to the encoder binary
// and scratch space, read once at startup.
type Env struct {
	EncoderBin string `yaml:"encoderBin"`
	ScratchDir string `yaml:"scratchDir"`
	ProjectDir string `yaml:"projectDir"`

	ConfigDir string
}

// NewEnv parses envYAML (the contents of env.yaml, located at envPath)
// into an Env, filling unset fields with defaults relative to
// envPath's directory, and validates every path is absolute.
func NewEnv(envPath string, envYAML []byte) (*Env, error) {
	var env Env
	if err := yaml.Unmarshal(envYAML, &env); err != nil {
		return nil, fmt.Errorf("envconfig: parse env.yaml: %w", err)
	}

	env.ConfigDir = filepath.Dir(envPath)

	if env.EncoderBin == "" {
		env.EncoderBin = "/usr/bin/ffmpeg"
	}
	if env.ProjectDir == "" {
		env.ProjectDir = filepath.Join(env.ConfigDir, "projects")
	}
	if env.ScratchDir == "" {
		env.ScratchDir = filepath.Join(env.ConfigDir, "scratch")
	}

	for name, path := range map[string]string{
		"encoderBin": env.EncoderBin,
		"projectDir": env.ProjectDir,
		"scratchDir": env.ScratchDir,
	} {
		if !filepath.IsAbs(path) {
			return nil, fmt.Errorf("envconfig: %s %q is not an absolute path", name, path)
		}
	}
	if !fileExists(env.EncoderBin) {
		return nil, fmt.Errorf("envconfig: encoderBin %q does not exist", env.EncoderBin)
	}

	return &env, nil
}

// PrepareDirectories creates ProjectDir and a fresh, empty ScratchDir.
func (env *Env) PrepareDirectories() error {
	if err := os.MkdirAll(env.ProjectDir, 0o700); err != nil {
		return fmt.Errorf("envconfig: create project directory: %w", err)
	}
	os.RemoveAll(env.ScratchDir)
	if err := os.MkdirAll(env.ScratchDir, 0o700); err != nil {
		return fmt.Errorf("envconfig: create scratch directory: %w", err)
	}
	return nil
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// General holds render defaults the user can override per-project;
// persisted as JSON, mirroring nvr's ConfigGeneral.
type General struct {
	DefaultThreads    int    `json:"defaultThreads"`
	DefaultVideoCodec string `json:"defaultVideoCodec"`
	DefaultAudioCodec string `json:"defaultAudioCodec"`
	DefaultFormat     string `json:"defaultFormat"`
}

// GeneralStore guards General with a mutex and persists it to a JSON
// file on every Set.
type GeneralStore struct {
	config General

	path string
	mu   sync.Mutex
}

// NewGeneralStore loads dir/general.json, generating it with
// reasonable defaults (threads = runtime.NumCPU) if absent.
func NewGeneralStore(dir string) (*GeneralStore, error) {
	path := filepath.Join(dir, "general.json")
	if !fileExists(path) {
		if err := writeDefaultGeneral(path); err != nil {
			return nil, fmt.Errorf("envconfig: generate general.json: %w", err)
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("envconfig: read general.json: %w", err)
	}
	var cfg General
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("envconfig: parse general.json: %w", err)
	}

	return &GeneralStore{config: cfg, path: path}, nil
}

func writeDefaultGeneral(path string) error {
	cfg := General{
		DefaultThreads:    runtime.NumCPU(),
		DefaultVideoCodec: "H264",
		DefaultAudioCodec: "AAC",
		DefaultFormat:     "MP4",
	}
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}

// Get returns a copy of the current general configuration.
func (s *GeneralStore) Get() General {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.config
}

// Set persists cfg to disk and updates the in-memory copy.
func (s *GeneralStore) Set(cfg General) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}
	if err := os.WriteFile(s.path, data, 0o600); err != nil {
		return fmt.Errorf("envconfig: write general.json: %w", err)
	}
	s.config = cfg
	return nil
}
