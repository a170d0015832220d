package mask

import (
	"fmt"
	"math"
)

// Softmax normalizes raw scores into per-pixel class probabilities, applied
// along the class axis independently for every (batch, y, x) position.
// Exponents are max-shifted for numerical stability. The input is not
// modified; batch, height, and width ordering is preserved.
func (s *Scores) Softmax() (*Probs, error) {
	if err := s.shape.validate(); err != nil {
		return nil, err
	}

	sh := s.shape
	out := make([]float32, len(s.data))
	plane := sh.Height * sh.Width

	for b := 0; b < sh.Batch; b++ {
		base := b * sh.Classes * plane
		for p := 0; p < plane; p++ {
			// Max across the class axis, stride is one image plane.
			maxVal := s.data[base+p]
			for c := 1; c < sh.Classes; c++ {
				if v := s.data[base+c*plane+p]; v > maxVal {
					maxVal = v
				}
			}

			sumExp := float32(0)
			for c := 0; c < sh.Classes; c++ {
				idx := base + c*plane + p
				e := float32(math.Exp(float64(s.data[idx] - maxVal)))
				out[idx] = e
				sumExp += e
			}

			for c := 0; c < sh.Classes; c++ {
				out[base+c*plane+p] /= sumExp
			}
		}
	}

	return &Probs{data: out, shape: sh}, nil
}

// Argmax returns, for every pixel of every batch element, the index of the
// class with the maximum probability. When several classes share the exact
// maximum, the lowest class index wins: the scan is first-occurrence over
// ascending class indices, so the result is deterministic even at
// floating-point ties on class boundaries.
func (p *Probs) Argmax() (*Index, error) {
	if err := p.shape.validate(); err != nil {
		return nil, err
	}

	sh := p.shape
	plane := sh.Height * sh.Width
	out := make([]int, sh.Batch*plane)

	for b := 0; b < sh.Batch; b++ {
		base := b * sh.Classes * plane
		for pix := 0; pix < plane; pix++ {
			best := 0
			bestVal := p.data[base+pix]
			for c := 1; c < sh.Classes; c++ {
				if v := p.data[base+c*plane+pix]; v > bestVal {
					bestVal = v
					best = c
				}
			}
			out[b*plane+pix] = best
		}
	}

	return &Index{
		data:    out,
		batch:   sh.Batch,
		classes: sh.Classes,
		height:  sh.Height,
		width:   sh.Width,
	}, nil
}

// ArgmaxFloor is Argmax with a confidence floor: pixels whose winning
// probability is below floor are assigned the fallback class instead,
// conventionally background (0). The tie-break rule is the same as Argmax.
func (p *Probs) ArgmaxFloor(floor float32, fallback int) (*Index, error) {
	if fallback < 0 || fallback >= p.shape.Classes {
		return nil, fmt.Errorf("%w: fallback class %d out of range [0,%d)",
			ErrShapeMismatch, fallback, p.shape.Classes)
	}

	idx, err := p.Argmax()
	if err != nil {
		return nil, err
	}
	if floor <= 0 {
		return idx, nil
	}

	sh := p.shape
	plane := sh.Height * sh.Width
	for b := 0; b < sh.Batch; b++ {
		base := b * sh.Classes * plane
		for pix := 0; pix < plane; pix++ {
			win := idx.data[b*plane+pix]
			if p.data[base+win*plane+pix] < floor {
				idx.data[b*plane+pix] = fallback
			}
		}
	}
	return idx, nil
}

// Mask returns the boolean mask that is true where class is the top class
// for batch element b.
func (x *Index) Mask(b, class int) (Mask, error) {
	if b < 0 || b >= x.batch {
		return Mask{}, fmt.Errorf("%w: batch index %d out of range [0,%d)",
			ErrShapeMismatch, b, x.batch)
	}
	if class < 0 || class >= x.classes {
		return Mask{}, fmt.Errorf("%w: class index %d out of range [0,%d)",
			ErrShapeMismatch, class, x.classes)
	}

	plane := x.height * x.width
	bits := make([]bool, plane)
	for p := 0; p < plane; p++ {
		bits[p] = x.data[b*plane+p] == class
	}
	return Mask{bits: bits, height: x.height, width: x.width}, nil
}

// Stack builds a per-class mask stack for batch element b: one boolean layer
// per requested class, in the given order. Layers are mutually exclusive per
// pixel because the top class is single-valued.
func (x *Index) Stack(b int, classes []int) (Stack, error) {
	layers := make([]Mask, 0, len(classes))
	for _, c := range classes {
		m, err := x.Mask(b, c)
		if err != nil {
			return Stack{}, err
		}
		layers = append(layers, m)
	}
	out := Stack{classes: make([]int, len(classes)), layers: layers}
	copy(out.classes, classes)
	return out, nil
}

// Mask computes the top-class mask for one class of one batch element
// directly from probabilities.
func (p *Probs) Mask(b, class int) (Mask, error) {
	idx, err := p.Argmax()
	if err != nil {
		return Mask{}, err
	}
	return idx.Mask(b, class)
}

// BatchStacks applies Stack independently to every batch element, returning
// one stack per image in input order. Each element's computation reads only
// its own slice of the tensor, so batch and class axes never mix.
func (p *Probs) BatchStacks(classes []int) ([]Stack, error) {
	idx, err := p.Argmax()
	if err != nil {
		return nil, err
	}

	stacks := make([]Stack, 0, p.shape.Batch)
	for b := 0; b < p.shape.Batch; b++ {
		st, err := idx.Stack(b, classes)
		if err != nil {
			return nil, err
		}
		stacks = append(stacks, st)
	}
	return stacks, nil
}
