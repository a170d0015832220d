package mask

import (
	"errors"
	"math"
	"testing"
)

const tolerance = 1e-6

// scoreTensor builds a Scores from a fill function over (b, c, y, x).
func scoreTensor(t *testing.T, sh Shape, fill func(b, c, y, x int) float32) *Scores {
	t.Helper()
	data := make([]float32, sh.NumElements())
	for b := 0; b < sh.Batch; b++ {
		for c := 0; c < sh.Classes; c++ {
			for y := 0; y < sh.Height; y++ {
				for x := 0; x < sh.Width; x++ {
					data[sh.offset(b, c, y, x)] = fill(b, c, y, x)
				}
			}
		}
	}
	s, err := NewScores(data, sh)
	if err != nil {
		t.Fatalf("NewScores failed: %v", err)
	}
	return s
}

func TestNewScores_LengthMismatch(t *testing.T) {
	_, err := NewScores(make([]float32, 5), Shape{Batch: 1, Classes: 2, Height: 2, Width: 2})
	if !errors.Is(err, ErrShapeMismatch) {
		t.Errorf("expected ErrShapeMismatch, got: %v", err)
	}
}

func TestNewScores_DegenerateShape(t *testing.T) {
	shapes := []Shape{
		{Batch: 0, Classes: 2, Height: 2, Width: 2},
		{Batch: 1, Classes: 0, Height: 2, Width: 2},
		{Batch: 1, Classes: 2, Height: 0, Width: 2},
		{Batch: 1, Classes: 2, Height: 2, Width: 0},
	}
	for _, sh := range shapes {
		_, err := NewScores(nil, sh)
		if !errors.Is(err, ErrDegenerateInput) {
			t.Errorf("shape %+v: expected ErrDegenerateInput, got: %v", sh, err)
		}
	}
}

func TestSoftmax_SumsToOne(t *testing.T) {
	sh := Shape{Batch: 2, Classes: 5, Height: 3, Width: 4}
	s := scoreTensor(t, sh, func(b, c, y, x int) float32 {
		return float32(b)*0.7 - float32(c)*1.3 + float32(y*x)*0.11
	})

	probs, err := s.Softmax()
	if err != nil {
		t.Fatalf("Softmax failed: %v", err)
	}

	for b := 0; b < sh.Batch; b++ {
		for y := 0; y < sh.Height; y++ {
			for x := 0; x < sh.Width; x++ {
				sum := float64(0)
				for c := 0; c < sh.Classes; c++ {
					v := probs.At(b, c, y, x)
					if v < 0 || v > 1 {
						t.Fatalf("probability out of [0,1] at (%d,%d,%d,%d): %v", b, c, y, x, v)
					}
					sum += float64(v)
				}
				if math.Abs(sum-1) > tolerance {
					t.Errorf("class sum at (%d,%d,%d) = %v, want 1 within %v", b, y, x, sum, tolerance)
				}
			}
		}
	}
}

func TestSoftmax_PreservesShapeAndInput(t *testing.T) {
	sh := Shape{Batch: 1, Classes: 3, Height: 2, Width: 2}
	s := scoreTensor(t, sh, func(b, c, y, x int) float32 { return float32(c) })
	before := make([]float32, len(s.data))
	copy(before, s.data)

	probs, err := s.Softmax()
	if err != nil {
		t.Fatalf("Softmax failed: %v", err)
	}
	if probs.Shape() != sh {
		t.Errorf("output shape %+v, want %+v", probs.Shape(), sh)
	}
	for i := range before {
		if s.data[i] != before[i] {
			t.Fatalf("input mutated at element %d", i)
		}
	}
}

func TestSoftmax_LargeScoresStable(t *testing.T) {
	// Without max-shifting these would overflow to +Inf.
	sh := Shape{Batch: 1, Classes: 3, Height: 1, Width: 1}
	s := scoreTensor(t, sh, func(b, c, y, x int) float32 { return 1000 + float32(c) })

	probs, err := s.Softmax()
	if err != nil {
		t.Fatalf("Softmax failed: %v", err)
	}
	sum := float64(0)
	for c := 0; c < 3; c++ {
		v := probs.At(0, c, 0, 0)
		if math.IsNaN(float64(v)) || math.IsInf(float64(v), 0) {
			t.Fatalf("non-finite probability for class %d: %v", c, v)
		}
		sum += float64(v)
	}
	if math.Abs(sum-1) > tolerance {
		t.Errorf("class sum = %v, want 1", sum)
	}
}

func TestArgmax_Idempotent(t *testing.T) {
	sh := Shape{Batch: 2, Classes: 4, Height: 3, Width: 3}
	s := scoreTensor(t, sh, func(b, c, y, x int) float32 {
		return float32((b*7+c*3+y*5+x)%11) * 0.2
	})
	probs, err := s.Softmax()
	if err != nil {
		t.Fatalf("Softmax failed: %v", err)
	}

	first, err := probs.Argmax()
	if err != nil {
		t.Fatalf("Argmax failed: %v", err)
	}
	second, err := probs.Argmax()
	if err != nil {
		t.Fatalf("Argmax failed: %v", err)
	}

	for b := 0; b < sh.Batch; b++ {
		for y := 0; y < sh.Height; y++ {
			for x := 0; x < sh.Width; x++ {
				if first.At(b, y, x) != second.At(b, y, x) {
					t.Fatalf("argmax differs at (%d,%d,%d): %d vs %d",
						b, y, x, first.At(b, y, x), second.At(b, y, x))
				}
			}
		}
	}
}

func TestArgmax_SingleClass(t *testing.T) {
	sh := Shape{Batch: 1, Classes: 1, Height: 4, Width: 4}
	s := scoreTensor(t, sh, func(b, c, y, x int) float32 { return float32(y + x) })
	probs, err := s.Softmax()
	if err != nil {
		t.Fatalf("Softmax failed: %v", err)
	}

	idx, err := probs.Argmax()
	if err != nil {
		t.Fatalf("Argmax failed: %v", err)
	}
	for y := 0; y < 4; y++ {
		for x := 0; x < 4; x++ {
			if idx.At(0, y, x) != 0 {
				t.Errorf("index at (%d,%d) = %d, want 0", y, x, idx.At(0, y, x))
			}
		}
	}
}

func TestArgmax_TieBreakLowestIndex(t *testing.T) {
	// Classes 1 and 3 share the exact maximal score at every pixel, so the
	// probabilities tie exactly too. Class 1 must win.
	sh := Shape{Batch: 1, Classes: 4, Height: 2, Width: 2}
	s := scoreTensor(t, sh, func(b, c, y, x int) float32 {
		if c == 1 || c == 3 {
			return 2.5
		}
		return 0
	})
	probs, err := s.Softmax()
	if err != nil {
		t.Fatalf("Softmax failed: %v", err)
	}

	idx, err := probs.Argmax()
	if err != nil {
		t.Fatalf("Argmax failed: %v", err)
	}
	for y := 0; y < 2; y++ {
		for x := 0; x < 2; x++ {
			if got := idx.At(0, y, x); got != 1 {
				t.Errorf("tie at (%d,%d) resolved to class %d, want 1", y, x, got)
			}
		}
	}
}

func TestIndexMask_ForcedClass(t *testing.T) {
	// 2 images, 21 classes, 4x4 pixels; class 5 forced to the maximum at
	// every pixel of image 0.
	sh := Shape{Batch: 2, Classes: 21, Height: 4, Width: 4}
	s := scoreTensor(t, sh, func(b, c, y, x int) float32 {
		if b == 0 && c == 5 {
			return 10
		}
		return float32(c) * 0.01
	})
	probs, err := s.Softmax()
	if err != nil {
		t.Fatalf("Softmax failed: %v", err)
	}
	idx, err := probs.Argmax()
	if err != nil {
		t.Fatalf("Argmax failed: %v", err)
	}

	for y := 0; y < 4; y++ {
		for x := 0; x < 4; x++ {
			if got := idx.At(0, y, x); got != 5 {
				t.Errorf("image 0 index at (%d,%d) = %d, want 5", y, x, got)
			}
		}
	}

	m5, err := idx.Mask(0, 5)
	if err != nil {
		t.Fatalf("Mask failed: %v", err)
	}
	if m5.Count() != 16 {
		t.Errorf("class 5 mask count = %d, want 16 (all true)", m5.Count())
	}

	for _, other := range []int{0, 4, 6, 20} {
		m, err := idx.Mask(0, other)
		if err != nil {
			t.Fatalf("Mask(%d) failed: %v", other, err)
		}
		if m.Count() != 0 {
			t.Errorf("class %d mask count = %d, want 0", other, m.Count())
		}
	}
}

func TestIndexMask_OutOfRange(t *testing.T) {
	sh := Shape{Batch: 1, Classes: 3, Height: 2, Width: 2}
	s := scoreTensor(t, sh, func(b, c, y, x int) float32 { return float32(c) })
	probs, _ := s.Softmax()
	idx, _ := probs.Argmax()

	if _, err := idx.Mask(0, 3); !errors.Is(err, ErrShapeMismatch) {
		t.Errorf("class out of range: expected ErrShapeMismatch, got: %v", err)
	}
	if _, err := idx.Mask(0, -1); !errors.Is(err, ErrShapeMismatch) {
		t.Errorf("negative class: expected ErrShapeMismatch, got: %v", err)
	}
	if _, err := idx.Mask(1, 0); !errors.Is(err, ErrShapeMismatch) {
		t.Errorf("batch out of range: expected ErrShapeMismatch, got: %v", err)
	}
}

func TestStack_MutualExclusivity(t *testing.T) {
	sh := Shape{Batch: 1, Classes: 6, Height: 5, Width: 5}
	s := scoreTensor(t, sh, func(b, c, y, x int) float32 {
		// Varied winners across the image.
		return float32((c*y + c*c*x) % 7)
	})
	probs, err := s.Softmax()
	if err != nil {
		t.Fatalf("Softmax failed: %v", err)
	}
	idx, err := probs.Argmax()
	if err != nil {
		t.Fatalf("Argmax failed: %v", err)
	}

	st, err := idx.Stack(0, []int{0, 1, 2, 3, 4, 5})
	if err != nil {
		t.Fatalf("Stack failed: %v", err)
	}

	for y := 0; y < sh.Height; y++ {
		for x := 0; x < sh.Width; x++ {
			trues := 0
			for _, layer := range st.Layers() {
				if layer.At(y, x) {
					trues++
				}
			}
			if trues > 1 {
				t.Errorf("pixel (%d,%d) is true in %d layers, want at most 1", y, x, trues)
			}
		}
	}
}

func TestBatchStacks_DogAndBoat(t *testing.T) {
	// Image 0's top class is dog (12) everywhere, image 1's is boat (4).
	const dog, boat = 12, 4
	sh := Shape{Batch: 2, Classes: 21, Height: 3, Width: 3}
	s := scoreTensor(t, sh, func(b, c, y, x int) float32 {
		if (b == 0 && c == dog) || (b == 1 && c == boat) {
			return 8
		}
		return 0
	})
	probs, err := s.Softmax()
	if err != nil {
		t.Fatalf("Softmax failed: %v", err)
	}

	stacks, err := probs.BatchStacks([]int{dog, boat})
	if err != nil {
		t.Fatalf("BatchStacks failed: %v", err)
	}
	if len(stacks) != 2 {
		t.Fatalf("got %d stacks, want 2", len(stacks))
	}

	check := func(st Stack, wantTrue, wantFalse int) {
		t.Helper()
		mt, ok := st.Layer(wantTrue)
		if !ok {
			t.Fatalf("stack missing layer for class %d", wantTrue)
		}
		mf, ok := st.Layer(wantFalse)
		if !ok {
			t.Fatalf("stack missing layer for class %d", wantFalse)
		}
		for y := 0; y < sh.Height; y++ {
			for x := 0; x < sh.Width; x++ {
				if !mt.At(y, x) {
					t.Errorf("class %d layer false at (%d,%d), want true", wantTrue, y, x)
				}
				if mf.At(y, x) {
					t.Errorf("class %d layer true at (%d,%d), want false", wantFalse, y, x)
				}
			}
		}
	}

	check(stacks[0], dog, boat)
	check(stacks[1], boat, dog)
}

func TestBatchStacks_AxisOrder(t *testing.T) {
	// Batch and class axes have different lengths so a transposition would
	// surface as an error or as wrong winners.
	sh := Shape{Batch: 3, Classes: 2, Height: 2, Width: 2}
	s := scoreTensor(t, sh, func(b, c, y, x int) float32 {
		// Batch element b wins with class b%2.
		if c == b%2 {
			return 5
		}
		return 0
	})
	probs, err := s.Softmax()
	if err != nil {
		t.Fatalf("Softmax failed: %v", err)
	}

	stacks, err := probs.BatchStacks([]int{0, 1})
	if err != nil {
		t.Fatalf("BatchStacks failed: %v", err)
	}
	if len(stacks) != 3 {
		t.Fatalf("got %d stacks, want 3 (one per batch element)", len(stacks))
	}
	for b, st := range stacks {
		want := b % 2
		m, _ := st.Layer(want)
		if m.Count() != 4 {
			t.Errorf("batch %d: class %d count = %d, want 4", b, want, m.Count())
		}
		other, _ := st.Layer(1 - want)
		if other.Count() != 0 {
			t.Errorf("batch %d: class %d count = %d, want 0", b, 1-want, other.Count())
		}
	}
}

func TestArgmaxFloor(t *testing.T) {
	// Two near-uniform classes: winner probability is ~0.5 everywhere, so a
	// floor of 0.9 pushes every pixel to the fallback class.
	sh := Shape{Batch: 1, Classes: 3, Height: 2, Width: 2}
	s := scoreTensor(t, sh, func(b, c, y, x int) float32 {
		if c == 2 {
			return -100
		}
		return 1
	})
	probs, _ := s.Softmax()

	idx, err := probs.ArgmaxFloor(0.9, 0)
	if err != nil {
		t.Fatalf("ArgmaxFloor failed: %v", err)
	}
	for y := 0; y < 2; y++ {
		for x := 0; x < 2; x++ {
			if got := idx.At(0, y, x); got != 0 {
				t.Errorf("low-confidence pixel (%d,%d) = %d, want fallback 0", y, x, got)
			}
		}
	}

	// Floor below the winner's probability leaves the argmax untouched.
	idx, err = probs.ArgmaxFloor(0.3, 2)
	if err != nil {
		t.Fatalf("ArgmaxFloor failed: %v", err)
	}
	plain, _ := probs.Argmax()
	for y := 0; y < 2; y++ {
		for x := 0; x < 2; x++ {
			if idx.At(0, y, x) != plain.At(0, y, x) {
				t.Errorf("floor below winner changed result at (%d,%d)", y, x)
			}
		}
	}
}

func TestArgmaxFloor_BadFallback(t *testing.T) {
	sh := Shape{Batch: 1, Classes: 2, Height: 1, Width: 1}
	s := scoreTensor(t, sh, func(b, c, y, x int) float32 { return 0 })
	probs, _ := s.Softmax()
	if _, err := probs.ArgmaxFloor(0.5, 2); !errors.Is(err, ErrShapeMismatch) {
		t.Errorf("expected ErrShapeMismatch, got: %v", err)
	}
}

func TestProbsMask_MatchesIndexMask(t *testing.T) {
	sh := Shape{Batch: 1, Classes: 4, Height: 3, Width: 3}
	s := scoreTensor(t, sh, func(b, c, y, x int) float32 { return float32((c + y + x) % 3) })
	probs, _ := s.Softmax()
	idx, _ := probs.Argmax()

	for class := 0; class < sh.Classes; class++ {
		fromProbs, err := probs.Mask(0, class)
		if err != nil {
			t.Fatalf("Probs.Mask(%d) failed: %v", class, err)
		}
		fromIndex, err := idx.Mask(0, class)
		if err != nil {
			t.Fatalf("Index.Mask(%d) failed: %v", class, err)
		}
		for y := 0; y < sh.Height; y++ {
			for x := 0; x < sh.Width; x++ {
				if fromProbs.At(y, x) != fromIndex.At(y, x) {
					t.Errorf("class %d: masks disagree at (%d,%d)", class, y, x)
				}
			}
		}
	}
}
