package embedding

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"math"
	"sync/atomic"
	"testing"
)

func TestMockExtractor_Deterministic(t *testing.T) {
	e := NewMockExtractor(64)
	ctx := context.Background()
	a1, err := e.Extract(ctx, []byte("face-1"))
	if err != nil {
		t.Fatal(err)
	}
	a2, _ := e.Extract(ctx, []byte("face-1"))
	b, _ := e.Extract(ctx, []byte("face-2"))
	if len(a1) != 64 || e.Dimensions() != 64 {
		t.Fatalf("len = %d", len(a1))
	}
	var norm float64
	same := true
	for i := range a1 {
		if a1[i] != a2[i] {
			t.Fatal("same media produced different vectors")
		}
		if a1[i] != b[i] {
			same = false
		}
		norm += float64(a1[i]) * float64(a1[i])
	}
	if same {
		t.Error("different media produced identical vectors")
	}
	if math.Abs(norm-1) > 1e-5 {
		t.Errorf("norm^2 = %v, want 1", norm)
	}
	if _, err := e.Extract(ctx, nil); err == nil {
		t.Error("expected error for empty media")
	}
}

type countingExtractor struct {
	*MockExtractor
	calls atomic.Int32
	fail  bool
}

func (c *countingExtractor) Extract(ctx context.Context, media []byte) ([]float32, error) {
	c.calls.Add(1)
	if c.fail {
		return nil, errors.New("model crashed")
	}
	return c.MockExtractor.Extract(ctx, media)
}

func TestCachedExtractor(t *testing.T) {
	inner := &countingExtractor{MockExtractor: NewMockExtractor(8)}
	ext := NewCachedExtractor(inner, 4)
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		if _, err := ext.Extract(ctx, []byte("same")); err != nil {
			t.Fatal(err)
		}
	}
	if n := inner.calls.Load(); n != 1 {
		t.Errorf("inner called %d times, want 1", n)
	}
	if ext.Dimensions() != 8 {
		t.Errorf("Dimensions() = %d", ext.Dimensions())
	}

	inner.fail = true
	for i := 0; i < 2; i++ {
		if _, err := ext.Extract(ctx, []byte("other")); err == nil {
			t.Fatal("expected error")
		}
	}
	if n := inner.calls.Load(); n != 3 {
		t.Errorf("failures should not be cached: inner called %d times", n)
	}
}

func TestNew(t *testing.T) {
	ext, err := New(TypeMock, ONNXConfig{Dimensions: 16}, 10)
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := ext.(*CachedExtractor); !ok {
		t.Errorf("expected cached extractor, got %T", ext)
	}
	if ext.Dimensions() != 16 {
		t.Errorf("Dimensions() = %d", ext.Dimensions())
	}
	if _, err := New("dlib", ONNXConfig{}, 0); err == nil {
		t.Error("expected error for unknown type")
	}
}

func encodePNG(t *testing.T, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func TestPreprocess(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 4, 4))
	for y := 0; y < 4; y++ {
		for x := 0; x < 4; x++ {
			img.Set(x, y, color.RGBA{R: 255, G: 0, B: 128, A: 255})
		}
	}
	out, err := Preprocess(encodePNG(t, img), 2, 3)
	if err != nil {
		t.Fatal(err)
	}
	if len(out) != 3*2*3 {
		t.Fatalf("len = %d, want 18", len(out))
	}
	plane := 6
	want := []float32{(255 - 127.5) / 128, -127.5 / 128, 0.5 / 128}
	for c := 0; c < 3; c++ {
		for i := 0; i < plane; i++ {
			if got := out[c*plane+i]; math.Abs(float64(got-want[c])) > 1e-6 {
				t.Fatalf("channel %d pixel %d = %v, want %v", c, i, got, want[c])
			}
		}
	}
}

func TestPreprocess_Errors(t *testing.T) {
	if _, err := Preprocess([]byte("not an image"), 112, 112); err == nil {
		t.Error("expected decode error")
	}
	img := encodePNG(t, image.NewRGBA(image.Rect(0, 0, 1, 1)))
	if _, err := Preprocess(img, 0, 112); err == nil {
		t.Error("expected size error")
	}
}

func BenchmarkMockExtractor_Extract(b *testing.B) {
	e := NewMockExtractor(512)
	ctx := context.Background()
	media := []byte("benchmark face crop bytes")
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = e.Extract(ctx, media)
	}
}
