// Package mask converts dense per-pixel class scores into probabilities,
// class index maps, and per-class boolean masks.
//
// All tensors use the NCHW layout produced by segmentation models: axis 0 is
// the batch, axis 1 the class, axes 2 and 3 height and width. Axis roles are
// carried explicitly in Shape rather than by positional convention, since
// confusing the batch and class axes is the classic bug in this kind of code.
//
// Every operation is a pure function of its inputs: output tensors are
// freshly allocated and no references to inputs are retained.
package mask

import "fmt"

// Shape describes an NCHW score or probability tensor.
type Shape struct {
	Batch   int // axis 0: independent images
	Classes int // axis 1: semantic categories
	Height  int // axis 2
	Width   int // axis 3
}

// NumElements returns the total element count.
func (s Shape) NumElements() int {
	return s.Batch * s.Classes * s.Height * s.Width
}

func (s Shape) validate() error {
	if s.Batch <= 0 || s.Classes <= 0 || s.Height <= 0 || s.Width <= 0 {
		return fmt.Errorf("%w: shape %+v has a zero-length axis", ErrDegenerateInput, s)
	}
	return nil
}

// offset returns the flat index of element (b, c, y, x) in row-major NCHW.
func (s Shape) offset(b, c, y, x int) int {
	return ((b*s.Classes+c)*s.Height+y)*s.Width + x
}

// Scores is a raw per-pixel class-score tensor as produced by a model,
// flat row-major NCHW.
type Scores struct {
	data  []float32
	shape Shape
}

// NewScores wraps raw model output in a validated score tensor.
// The data slice is not copied; callers must not mutate it afterwards.
func NewScores(data []float32, shape Shape) (*Scores, error) {
	if err := shape.validate(); err != nil {
		return nil, err
	}
	if len(data) != shape.NumElements() {
		return nil, fmt.Errorf("%w: shape %+v requires %d elements, got %d",
			ErrShapeMismatch, shape, shape.NumElements(), len(data))
	}
	return &Scores{data: data, shape: shape}, nil
}

// Shape returns the tensor's shape.
func (s *Scores) Shape() Shape { return s.shape }

// At returns the score for class c at pixel (y, x) of batch element b.
func (s *Scores) At(b, c, y, x int) float32 {
	return s.data[s.shape.offset(b, c, y, x)]
}

// Probs is a per-pixel class probability tensor: same layout as Scores, with
// values in [0,1] summing to 1 across the class axis for every pixel.
// Produced by Scores.Softmax and never mutated afterwards.
type Probs struct {
	data  []float32
	shape Shape
}

// Shape returns the tensor's shape.
func (p *Probs) Shape() Shape { return p.shape }

// At returns the probability of class c at pixel (y, x) of batch element b.
func (p *Probs) At(b, c, y, x int) float32 {
	return p.data[p.shape.offset(b, c, y, x)]
}

// Index holds the per-pixel top class index for each batch element,
// flat row-major (batch, height, width).
type Index struct {
	data    []int
	batch   int
	classes int // class count of the tensor this was derived from
	height  int
	width   int
}

// Batch returns the number of batch elements.
func (x *Index) Batch() int { return x.batch }

// Classes returns the class count of the source tensor.
func (x *Index) Classes() int { return x.classes }

// Height returns the pixel height.
func (x *Index) Height() int { return x.height }

// Width returns the pixel width.
func (x *Index) Width() int { return x.width }

// At returns the top class index at pixel (y, x) of batch element b.
func (x *Index) At(b, y, w int) int {
	return x.data[(b*x.height+y)*x.width+w]
}

// Mask is a 2-D boolean mask marking the pixels of one class in one image.
type Mask struct {
	bits   []bool
	height int
	width  int
}

// NewMask wraps a row-major boolean slice as a mask. The slice is not
// copied.
func NewMask(bits []bool, height, width int) (Mask, error) {
	if height <= 0 || width <= 0 {
		return Mask{}, fmt.Errorf("%w: mask %dx%d", ErrDegenerateInput, height, width)
	}
	if len(bits) != height*width {
		return Mask{}, fmt.Errorf("%w: %dx%d mask requires %d bits, got %d",
			ErrShapeMismatch, height, width, height*width, len(bits))
	}
	return Mask{bits: bits, height: height, width: width}, nil
}

// Height returns the mask height in pixels.
func (m Mask) Height() int { return m.height }

// Width returns the mask width in pixels.
func (m Mask) Width() int { return m.width }

// At reports whether pixel (y, x) belongs to the mask.
func (m Mask) At(y, x int) bool { return m.bits[y*m.width+x] }

// Count returns the number of true pixels.
func (m Mask) Count() int {
	n := 0
	for _, b := range m.bits {
		if b {
			n++
		}
	}
	return n
}

// Stack is a set of per-class masks for one image, stacked along a new
// leading axis. Because each pixel has a single top class, at most one layer
// is true at any pixel position.
type Stack struct {
	classes []int
	layers  []Mask
}

// Classes returns the class indices covered by the stack, in layer order.
func (st Stack) Classes() []int { return st.classes }

// Layers returns the per-class masks, aligned with Classes.
func (st Stack) Layers() []Mask { return st.layers }

// Layer returns the mask for the given class index, or false if the class
// is not part of the stack.
func (st Stack) Layer(class int) (Mask, bool) {
	for i, c := range st.classes {
		if c == class {
			return st.layers[i], true
		}
	}
	return Mask{}, false
}
