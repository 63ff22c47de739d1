package model

import (
	_ "crypto/sha256"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/opencontainers/go-digest"
)

const (
	DefaultImageSize  = 380
	DefaultThreshold  = 0.5
	DefaultInputName  = "input"
	DefaultOutputName = "output"
)

var (
	ImageNetMean = []float32{0.485, 0.456, 0.406}
	ImageNetStd  = []float32{0.229, 0.224, 0.225}
)

var (
	ErrManifestInvalid = errors.New("invalid manifest")
	ErrClassMismatch   = errors.New("class labels do not match model")
	ErrDigestMismatch  = errors.New("model digest mismatch")
)

// LoadManifest reads a manifest, fills defaults and validates it against
// labels. A nil labels slice skips the label comparison.
func LoadManifest(path string, labels []string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest: %w", err)
	}

	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("failed to parse manifest: %w", err)
	}

	m.SetDefaults()
	if err := m.Validate(labels); err != nil {
		return nil, err
	}
	return &m, nil
}

func (m *Manifest) SetDefaults() {
	if m.InputName == "" {
		m.InputName = DefaultInputName
	}
	if m.OutputName == "" {
		m.OutputName = DefaultOutputName
	}
	if m.ImageSize == 0 {
		m.ImageSize = DefaultImageSize
	}
	if len(m.Mean) == 0 {
		m.Mean = append([]float32(nil), ImageNetMean...)
	}
	if len(m.Std) == 0 {
		m.Std = append([]float32(nil), ImageNetStd...)
	}
	if m.Threshold == 0 {
		m.Threshold = DefaultThreshold
	}
	if len(m.InputShape) == 0 {
		size := int64(m.ImageSize)
		m.InputShape = []int64{1, 3, size, size}
	}
	if len(m.OutputShape) == 0 {
		m.OutputShape = []int64{1, int64(len(m.Classes))}
	}
}

func (m *Manifest) Validate(labels []string) error {
	if len(m.Classes) == 0 {
		return fmt.Errorf("%w: no classes", ErrManifestInvalid)
	}
	if labels != nil {
		if len(labels) != len(m.Classes) {
			return fmt.Errorf("%w: manifest has %d classes, expected %d", ErrClassMismatch, len(m.Classes), len(labels))
		}
		for i := range labels {
			if labels[i] != m.Classes[i] {
				return fmt.Errorf("%w: class %d is %q, expected %q", ErrClassMismatch, i, m.Classes[i], labels[i])
			}
		}
	}
	seen := make(map[string]struct{}, len(m.Classes))
	for _, c := range m.Classes {
		if c == "" {
			return fmt.Errorf("%w: empty class name", ErrManifestInvalid)
		}
		if _, ok := seen[c]; ok {
			return fmt.Errorf("%w: duplicate class %q", ErrManifestInvalid, c)
		}
		seen[c] = struct{}{}
	}

	if m.ImageSize <= 0 {
		return fmt.Errorf("%w: image_size must be positive", ErrManifestInvalid)
	}
	size := int64(m.ImageSize)
	if len(m.InputShape) != 4 || m.InputShape[0] != 1 || m.InputShape[1] != 3 ||
		m.InputShape[2] != size || m.InputShape[3] != size {
		return fmt.Errorf("%w: input_shape %v, expected [1 3 %d %d]", ErrManifestInvalid, m.InputShape, size, size)
	}

	if len(m.OutputShape) < 2 || m.OutputShape[0] != 1 {
		return fmt.Errorf("%w: output_shape %v, expected [1 N]", ErrManifestInvalid, m.OutputShape)
	}
	if n := m.OutputShape[len(m.OutputShape)-1]; n != int64(len(m.Classes)) || volume(m.OutputShape) != n {
		return fmt.Errorf("%w: output_shape %v for %d classes", ErrClassMismatch, m.OutputShape, len(m.Classes))
	}

	if len(m.Mean) != 3 || len(m.Std) != 3 {
		return fmt.Errorf("%w: mean and std need 3 channels", ErrManifestInvalid)
	}
	for _, s := range m.Std {
		if s <= 0 {
			return fmt.Errorf("%w: std must be positive", ErrManifestInvalid)
		}
	}
	if m.Threshold <= 0 || m.Threshold >= 1 {
		return fmt.Errorf("%w: threshold %v outside (0, 1)", ErrManifestInvalid, m.Threshold)
	}
	if m.ModelDigest != "" {
		if _, err := digest.Parse(m.ModelDigest); err != nil {
			return fmt.Errorf("%w: model_digest: %v", ErrManifestInvalid, err)
		}
	}
	return nil
}

// VerifyModel checks the weight file against ModelDigest, when one is set.
func (m *Manifest) VerifyModel(modelPath string) error {
	if m.ModelDigest == "" {
		return nil
	}
	expected, err := digest.Parse(m.ModelDigest)
	if err != nil {
		return fmt.Errorf("%w: model_digest: %v", ErrManifestInvalid, err)
	}
	actual, err := fileDigest(modelPath, expected.Algorithm())
	if err != nil {
		return err
	}
	if actual != expected {
		return fmt.Errorf("%w: %s has %s, manifest expects %s", ErrDigestMismatch, modelPath, actual, expected)
	}
	return nil
}

// NewManifest builds a manifest for modelPath with default preprocessing
// and the digest of the file.
func NewManifest(modelPath string, classes []string, imageSize int) (*Manifest, error) {
	d, err := fileDigest(modelPath, digest.Canonical)
	if err != nil {
		return nil, err
	}
	m := &Manifest{
		Classes:     append([]string(nil), classes...),
		ImageSize:   imageSize,
		ModelDigest: d.String(),
	}
	m.SetDefaults()
	if err := m.Validate(nil); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *Manifest) Save(path string) error {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, append(data, '\n'), 0o644)
}

func fileDigest(path string, alg digest.Algorithm) (digest.Digest, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("failed to open model: %w", err)
	}
	defer f.Close()

	d, err := alg.FromReader(f)
	if err != nil {
		return "", fmt.Errorf("failed to digest model: %w", err)
	}
	return d, nil
}

func volume(shape []int64) int64 {
	v := int64(1)
	for _, d := range shape {
		v *= d
	}
	return v
}
