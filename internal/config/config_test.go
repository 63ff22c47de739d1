package config

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"
)

func envLookup(env map[string]string) func(string) (string, bool) {
	return func(key string) (string, bool) {
		v, ok := env[key]
		return v, ok
	}
}

func TestDefault(t *testing.T) {
	cfg := Default()

	if err := cfg.Validate(); err != nil {
		t.Fatalf("Default config invalid: %v", err)
	}
	if cfg.Addr() != "0.0.0.0:5000" {
		t.Errorf("Expected 0.0.0.0:5000, got %s", cfg.Addr())
	}
	if cfg.Debug {
		t.Error("Debug must be off by default")
	}
	if cfg.Storage.Local.Dir != "static/uploads" {
		t.Errorf("Unexpected upload dir %s", cfg.Storage.Local.Dir)
	}
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "deepbark.yaml")
	content := `
port: 8080
debug: true
readTimeout: 10s
maxImagePixels: 1000000
allowedExtensions: [".JPG", "png"]
model:
  path: /models/b3.onnx
  manifest: /models/b3.json
  device: cpu
storage:
  backend: s3
  s3:
    bucket: dogs
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path, envLookup(nil))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Port != 8080 || !cfg.Debug {
		t.Errorf("Unexpected port/debug %d/%v", cfg.Port, cfg.Debug)
	}
	if cfg.MaxImagePixels != 1000000 {
		t.Errorf("Expected pixel limit from file, got %d", cfg.MaxImagePixels)
	}
	if cfg.ReadTimeout != 10*time.Second {
		t.Errorf("Expected 10s read timeout, got %s", cfg.ReadTimeout)
	}
	if cfg.WriteTimeout != 60*time.Second {
		t.Errorf("Defaults must survive partial files, got %s", cfg.WriteTimeout)
	}
	if !reflect.DeepEqual(cfg.Extensions(), []string{"jpg", "png"}) {
		t.Errorf("Unexpected extensions %v", cfg.Extensions())
	}
	if cfg.Model.Device != "cpu" || cfg.Model.Path != "/models/b3.onnx" {
		t.Errorf("Unexpected model config %+v", cfg.Model)
	}
	if cfg.Storage.Backend != "s3" || cfg.Storage.S3.Bucket != "dogs" {
		t.Errorf("Unexpected storage config %+v", cfg.Storage)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate() error = %v", err)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml"), envLookup(nil)); err == nil {
		t.Error("Expected error for missing config file")
	}
}

func TestApplyEnv(t *testing.T) {
	tests := []struct {
		name    string
		env     map[string]string
		check   func(t *testing.T, cfg *Config)
		wantErr bool
	}{
		{
			name: "PORT",
			env:  map[string]string{"PORT": "9000"},
			check: func(t *testing.T, cfg *Config) {
				if cfg.Port != 9000 {
					t.Errorf("Expected 9000, got %d", cfg.Port)
				}
			},
		},
		{
			name: "prefixed port wins over PORT",
			env:  map[string]string{"PORT": "9000", "DEEPBARK_PORT": "9100"},
			check: func(t *testing.T, cfg *Config) {
				if cfg.Port != 9100 {
					t.Errorf("Expected 9100, got %d", cfg.Port)
				}
			},
		},
		{
			name: "strings and lists",
			env: map[string]string{
				"DEEPBARK_UPLOAD_DIR":         "/tmp/uploads",
				"DEEPBARK_DEVICE":             "cuda",
				"DEEPBARK_ALLOWED_EXTENSIONS": "jpg, heif",
				"DEEPBARK_DEBUG":              "true",
			},
			check: func(t *testing.T, cfg *Config) {
				if cfg.Storage.Local.Dir != "/tmp/uploads" || cfg.Model.Device != "cuda" || !cfg.Debug {
					t.Errorf("Unexpected config %+v", cfg)
				}
				if !reflect.DeepEqual(cfg.Extensions(), []string{"jpg", "heif"}) {
					t.Errorf("Unexpected extensions %v", cfg.Extensions())
				}
			},
		},
		{
			name:    "bad port",
			env:     map[string]string{"PORT": "http"},
			wantErr: true,
		},
		{
			name: "pixel limit",
			env:  map[string]string{"DEEPBARK_MAX_IMAGE_PIXELS": "4000000"},
			check: func(t *testing.T, cfg *Config) {
				if cfg.MaxImagePixels != 4000000 {
					t.Errorf("Expected 4000000, got %d", cfg.MaxImagePixels)
				}
			},
		},
		{
			name:    "bad pixel limit",
			env:     map[string]string{"DEEPBARK_MAX_IMAGE_PIXELS": "many"},
			wantErr: true,
		},
		{
			name:    "bad debug",
			env:     map[string]string{"DEEPBARK_DEBUG": "sure"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			err := cfg.ApplyEnv(envLookup(tt.env))
			if (err != nil) != tt.wantErr {
				t.Fatalf("ApplyEnv() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.check != nil {
				tt.check(t, cfg)
			}
		})
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(cfg *Config)
	}{
		{name: "port", mutate: func(cfg *Config) { cfg.Port = 70000 }},
		{name: "log level", mutate: func(cfg *Config) { cfg.LogLevel = "loud" }},
		{name: "log format", mutate: func(cfg *Config) { cfg.LogFormat = "xml" }},
		{name: "upload limit", mutate: func(cfg *Config) { cfg.MaxUploadBytes = 0 }},
		{name: "pixel limit", mutate: func(cfg *Config) { cfg.MaxImagePixels = 0 }},
		{name: "extensions", mutate: func(cfg *Config) { cfg.AllowedExtensions = []string{" ", "."} }},
		{name: "device", mutate: func(cfg *Config) { cfg.Model.Device = "tpu" }},
		{name: "model path", mutate: func(cfg *Config) { cfg.Model.Path = "" }},
		{name: "storage backend", mutate: func(cfg *Config) { cfg.Storage.Backend = "ftp" }},
		{name: "s3 bucket", mutate: func(cfg *Config) {
			cfg.Storage.Backend = "s3"
			cfg.Storage.S3.Bucket = ""
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("Expected validation error")
			}
		})
	}
}

func TestModelOptions(t *testing.T) {
	cfg := Default()
	cfg.Model.IntraOpThreads = 4

	opts := cfg.ModelOptions([]string{"a"})

	if opts.ModelPath != cfg.Model.Path || opts.IntraOpThreads != 4 || len(opts.Labels) != 1 {
		t.Errorf("Unexpected options %+v", opts)
	}
}
