package model

import (
	"context"
	"errors"
	"fmt"
	"image"
	"sync"

	"github.com/sirupsen/logrus"
	ort "github.com/yalue/onnxruntime_go"
)

type Options struct {
	ModelPath         string
	ManifestPath      string
	SharedLibraryPath string
	Device            string
	IntraOpThreads    int
	// Labels is the expected class order; nil accepts the manifest's.
	Labels []string
}

var ErrServerClosed = errors.New("model server closed")

type runner interface {
	Run(input []float32) ([]float32, error)
	Device() string
	Close()
}

// Server runs the classifier. It is safe for concurrent use; inference
// calls are serialized because the session reuses its tensors.
type Server struct {
	Manifest Manifest

	mu     sync.Mutex
	runner runner
	env    bool
}

func NewServer(opts Options) (*Server, error) {
	manifest, err := LoadManifest(opts.ManifestPath, opts.Labels)
	if err != nil {
		return nil, err
	}
	if err := manifest.VerifyModel(opts.ModelPath); err != nil {
		return nil, err
	}

	if opts.SharedLibraryPath != "" {
		ort.SetSharedLibraryPath(opts.SharedLibraryPath)
	}
	if err := ort.InitializeEnvironment(); err != nil {
		return nil, fmt.Errorf("failed to initialize ONNX environment: %w", err)
	}

	session, err := newONNXSession(opts, manifest)
	if err != nil {
		ort.DestroyEnvironment()
		return nil, err
	}

	logrus.WithFields(logrus.Fields{
		"model":      opts.ModelPath,
		"device":     session.Device(),
		"classes":    len(manifest.Classes),
		"image_size": manifest.ImageSize,
		"threshold":  manifest.Threshold,
	}).Info("Model loaded")

	s := newServer(*manifest, session)
	s.env = true
	return s, nil
}

func newServer(manifest Manifest, r runner) *Server {
	return &Server{Manifest: manifest, runner: r}
}

func (s *Server) Device() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.runner == nil {
		return ""
	}
	return s.runner.Device()
}

// Classify preprocesses img and runs a single forward pass.
func (s *Server) Classify(ctx context.Context, img image.Image) (*Prediction, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	inputData := Preprocess(img, s.Manifest.ImageSize, s.Manifest.Mean, s.Manifest.Std)

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s.runner == nil {
		return nil, ErrServerClosed
	}

	logits, err := s.runner.Run(inputData)
	if err != nil {
		return nil, err
	}

	return NewPrediction(logits, s.Manifest.Classes, s.Manifest.Threshold)
}

func (s *Server) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.runner != nil {
		s.runner.Close()
		s.runner = nil
	}
	if s.env {
		ort.DestroyEnvironment()
		s.env = false
	}
}
