package model

import (
	"context"
	"errors"
	"image"
	"image/color"
	"sync"
	"testing"
	"time"
)

type fakeRunner struct {
	mu      sync.Mutex
	logits  []float32
	err     error
	delay   time.Duration
	inputs  int
	calls   int
	running bool
	overlap bool
}

func (f *fakeRunner) Run(input []float32) ([]float32, error) {
	f.mu.Lock()
	if f.running {
		f.overlap = true
	}
	f.running = true
	f.calls++
	f.inputs = len(input)
	f.mu.Unlock()

	// Hold the run open so concurrent callers would be seen.
	time.Sleep(f.delay)

	defer func() {
		f.mu.Lock()
		f.running = false
		f.mu.Unlock()
	}()
	return f.logits, f.err
}

func (f *fakeRunner) Device() string { return DeviceCPU }
func (f *fakeRunner) Close()         {}

func testManifest(size int) Manifest {
	m := Manifest{Classes: []string{"a", "b", "c"}, ImageSize: size}
	m.SetDefaults()
	return m
}

func TestServerClassify(t *testing.T) {
	runner := &fakeRunner{logits: []float32{-1, 3, 1}}
	s := newServer(testManifest(32), runner)
	img := ToRGB(solidImage(20, 10, color.Black))

	p, err := s.Classify(context.Background(), img)
	if err != nil {
		t.Fatalf("Classify() error = %v", err)
	}

	if runner.inputs != 3*32*32 {
		t.Errorf("Expected %d input values, got %d", 3*32*32, runner.inputs)
	}
	top := p.Top(2)
	if top[0].Class != "b" || top[1].Class != "c" {
		t.Errorf("Expected [b c], got %v", top)
	}
	if len(p.Labels) != 2 {
		t.Errorf("Expected 2 labels above threshold, got %v", p.Labels)
	}
}

func TestServerClassifyErrors(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 4, 4))

	t.Run("runner failure", func(t *testing.T) {
		boom := errors.New("boom")
		s := newServer(testManifest(8), &fakeRunner{err: boom})
		if _, err := s.Classify(context.Background(), img); !errors.Is(err, boom) {
			t.Errorf("Expected boom, got %v", err)
		}
	})

	t.Run("wrong output size", func(t *testing.T) {
		s := newServer(testManifest(8), &fakeRunner{logits: []float32{1}})
		if _, err := s.Classify(context.Background(), img); !errors.Is(err, ErrClassMismatch) {
			t.Errorf("Expected ErrClassMismatch, got %v", err)
		}
	})

	t.Run("cancelled context", func(t *testing.T) {
		runner := &fakeRunner{logits: []float32{1, 2, 3}}
		s := newServer(testManifest(8), runner)
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		if _, err := s.Classify(ctx, img); !errors.Is(err, context.Canceled) {
			t.Errorf("Expected context.Canceled, got %v", err)
		}
		if runner.calls != 0 {
			t.Error("Runner must not be called after cancellation")
		}
	})

	t.Run("closed", func(t *testing.T) {
		s := newServer(testManifest(8), &fakeRunner{logits: []float32{1, 2, 3}})
		s.Close()
		if _, err := s.Classify(context.Background(), img); !errors.Is(err, ErrServerClosed) {
			t.Errorf("Expected ErrServerClosed, got %v", err)
		}
		if s.Device() != "" {
			t.Error("Expected no device after close")
		}
	})
}

func TestServerClassifySerializesRuns(t *testing.T) {
	runner := &fakeRunner{logits: []float32{0, 0, 0}, delay: 2 * time.Millisecond}
	s := newServer(testManifest(8), runner)
	img := image.NewRGBA(image.Rect(0, 0, 4, 4))

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := s.Classify(context.Background(), img); err != nil {
				t.Errorf("Classify() error = %v", err)
			}
		}()
	}
	wg.Wait()

	if runner.overlap {
		t.Error("Runs overlapped")
	}
	if runner.calls != 16 {
		t.Errorf("Expected 16 runs, got %d", runner.calls)
	}
}
