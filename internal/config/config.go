package config

import (
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"github.com/Brownie44l1/deepbark-api/internal/model"
	"github.com/Brownie44l1/deepbark-api/internal/storage"
)

const EnvPrefix = "DEEPBARK_"

type Config struct {
	Host              string           `yaml:"host"`
	Port              int              `yaml:"port"`
	Debug             bool             `yaml:"debug"`
	LogLevel          string           `yaml:"logLevel"`
	LogFormat         string           `yaml:"logFormat"`
	MaxUploadBytes    int64            `yaml:"maxUploadBytes"`
	MaxImagePixels    int64            `yaml:"maxImagePixels"`
	AllowedExtensions []string         `yaml:"allowedExtensions"`
	ReadTimeout       time.Duration    `yaml:"readTimeout"`
	WriteTimeout      time.Duration    `yaml:"writeTimeout"`
	ShutdownTimeout   time.Duration    `yaml:"shutdownTimeout"`
	Model             ModelConfig      `yaml:"model"`
	Storage           *storage.Options `yaml:"storage"`
}

type ModelConfig struct {
	Path           string `yaml:"path"`
	Manifest       string `yaml:"manifest"`
	SharedLibrary  string `yaml:"sharedLibrary"`
	Device         string `yaml:"device"`
	IntraOpThreads int    `yaml:"intraOpThreads"`
}

func Default() *Config {
	return &Config{
		Host:              "0.0.0.0",
		Port:              5000,
		LogLevel:          logrus.InfoLevel.String(),
		LogFormat:         "text",
		MaxUploadBytes:    10 << 20,
		MaxImagePixels:    model.DefaultMaxImagePixels,
		AllowedExtensions: []string{"jpg", "jpeg", "png", "gif"},
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		ShutdownTimeout:   5 * time.Second,
		Model: ModelConfig{
			Path:     "models/dog_breeds_b4.onnx",
			Manifest: "models/dog_breeds_b4.json",
			Device:   model.DeviceAuto,
		},
		Storage: storage.DefaultOptions(),
	}
}

// Load starts from Default, overlays the YAML file at path (if any) and
// then the environment as seen through lookup.
func Load(path string, lookup func(string) (string, bool)) (*Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
	}
	if err := cfg.ApplyEnv(lookup); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ApplyEnv reads DEEPBARK_* variables. PORT is honored as well.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	if c.Storage == nil {
		c.Storage = storage.DefaultOptions()
	}
	if c.Storage.Local == nil {
		c.Storage.Local = storage.NewDefaultLocalOptions()
	}
	if c.Storage.S3 == nil {
		c.Storage.S3 = storage.NewDefaultS3Options()
	}

	strs := map[string]*string{
		"HOST":            &c.Host,
		"LOG_LEVEL":       &c.LogLevel,
		"LOG_FORMAT":      &c.LogFormat,
		"MODEL_PATH":      &c.Model.Path,
		"MANIFEST_PATH":   &c.Model.Manifest,
		"ORT_LIBRARY":     &c.Model.SharedLibrary,
		"DEVICE":          &c.Model.Device,
		"STORAGE_BACKEND": &c.Storage.Backend,
		"UPLOAD_DIR":      &c.Storage.Local.Dir,
		"S3_URL":          &c.Storage.S3.URL,
		"S3_REGION":       &c.Storage.S3.Region,
		"S3_BUCKET":       &c.Storage.S3.Bucket,
		"S3_ACCESS_KEY":   &c.Storage.S3.AccessKey,
		"S3_SECRET_KEY":   &c.Storage.S3.SecretKey,
		"S3_PREFIX":       &c.Storage.S3.Prefix,
	}
	for name, dst := range strs {
		if v, ok := lookup(EnvPrefix + name); ok {
			*dst = v
		}
	}

	if v, ok := lookup("PORT"); ok {
		if err := setInt(&c.Port, "PORT", v); err != nil {
			return err
		}
	}
	if v, ok := lookup(EnvPrefix + "PORT"); ok {
		if err := setInt(&c.Port, EnvPrefix+"PORT", v); err != nil {
			return err
		}
	}
	if v, ok := lookup(EnvPrefix + "DEBUG"); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid %sDEBUG %q: %w", EnvPrefix, v, err)
		}
		c.Debug = b
	}
	if v, ok := lookup(EnvPrefix + "MAX_UPLOAD_BYTES"); ok {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid %sMAX_UPLOAD_BYTES %q: %w", EnvPrefix, v, err)
		}
		c.MaxUploadBytes = n
	}
	if v, ok := lookup(EnvPrefix + "MAX_IMAGE_PIXELS"); ok {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid %sMAX_IMAGE_PIXELS %q: %w", EnvPrefix, v, err)
		}
		c.MaxImagePixels = n
	}
	if v, ok := lookup(EnvPrefix + "ALLOWED_EXTENSIONS"); ok {
		c.AllowedExtensions = strings.Split(v, ",")
	}
	return nil
}

func setInt(dst *int, name, v string) error {
	n, err := strconv.Atoi(v)
	if err != nil {
		return fmt.Errorf("invalid %s %q: %w", name, v, err)
	}
	*dst = n
	return nil
}

func (c *Config) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("port %d out of range", c.Port)
	}
	if _, err := logrus.ParseLevel(c.LogLevel); err != nil {
		return err
	}
	if c.LogFormat != "text" && c.LogFormat != "json" {
		return fmt.Errorf("log format must be text or json, got %q", c.LogFormat)
	}
	if c.MaxUploadBytes <= 0 {
		return fmt.Errorf("maxUploadBytes must be positive")
	}
	if c.MaxImagePixels <= 0 {
		return fmt.Errorf("maxImagePixels must be positive")
	}
	if len(c.Extensions()) == 0 {
		return fmt.Errorf("at least one allowed extension is required")
	}
	if c.Model.Path == "" || c.Model.Manifest == "" {
		return fmt.Errorf("model path and manifest are required")
	}
	switch c.Model.Device {
	case model.DeviceAuto, model.DeviceCPU, model.DeviceCUDA:
	default:
		return fmt.Errorf("device must be auto, cpu or cuda, got %q", c.Model.Device)
	}
	switch c.Storage.Backend {
	case storage.BackendLocal, "":
		if c.Storage.Local == nil || c.Storage.Local.Dir == "" {
			return fmt.Errorf("local storage requires a directory")
		}
	case storage.BackendS3:
		if c.Storage.S3 == nil || c.Storage.S3.Bucket == "" {
			return fmt.Errorf("s3 storage requires a bucket")
		}
	default:
		return fmt.Errorf("unknown storage backend %q", c.Storage.Backend)
	}
	return nil
}

func (c *Config) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// Extensions returns the allowed extensions lowercased, without dots.
func (c *Config) Extensions() []string {
	out := []string{}
	for _, ext := range c.AllowedExtensions {
		ext = strings.ToLower(strings.TrimPrefix(strings.TrimSpace(ext), "."))
		if ext != "" {
			out = append(out, ext)
		}
	}
	return out
}

func (c *Config) ModelOptions(labels []string) model.Options {
	return model.Options{
		ModelPath:         c.Model.Path,
		ManifestPath:      c.Model.Manifest,
		SharedLibraryPath: c.Model.SharedLibrary,
		Device:            c.Model.Device,
		IntraOpThreads:    c.Model.IntraOpThreads,
		Labels:            labels,
	}
}
