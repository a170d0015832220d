// Package classes maps semantic class names to the class indices of a
// segmentation model's output tensor.
package classes

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
)

// ErrUnknownClass indicates a requested class name is not in the map.
var ErrUnknownClass = errors.New("classes: unknown class name")

// Map is an immutable ordered mapping between class names and tensor
// indices. Index 0 conventionally denotes the background class.
type Map struct {
	names []string
	index map[string]int
}

// metadata is the JSON format segmentation model exports ship with.
type metadata struct {
	Classes []string `json:"classes"`
}

// Load reads a class list from a JSON metadata file.
func Load(path string) (*Map, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading class metadata: %w", err)
	}

	var meta metadata
	if err := json.Unmarshal(raw, &meta); err != nil {
		return nil, fmt.Errorf("parsing class metadata: %w", err)
	}
	return FromNames(meta.Classes)
}

// FromNames builds a Map from an ordered class name list.
func FromNames(names []string) (*Map, error) {
	if len(names) == 0 {
		return nil, errors.New("classes: empty class list")
	}

	index := make(map[string]int, len(names))
	for i, name := range names {
		if name == "" {
			return nil, fmt.Errorf("classes: empty name at index %d", i)
		}
		if _, dup := index[name]; dup {
			return nil, fmt.Errorf("classes: duplicate name %q", name)
		}
		index[name] = i
	}

	ordered := make([]string, len(names))
	copy(ordered, names)
	return &Map{names: ordered, index: index}, nil
}

// VOC returns the 21-class PASCAL VOC map used by the common pre-trained
// FCN and DeepLab segmentation models.
func VOC() *Map {
	m, _ := FromNames([]string{
		"background", "aeroplane", "bicycle", "bird", "boat",
		"bottle", "bus", "car", "cat", "chair",
		"cow", "diningtable", "dog", "horse", "motorbike",
		"person", "pottedplant", "sheep", "sofa", "train",
		"tvmonitor",
	})
	return m
}

// Index returns the tensor index of a class name.
func (m *Map) Index(name string) (int, error) {
	i, ok := m.index[name]
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrUnknownClass, name)
	}
	return i, nil
}

// Name returns the class name at a tensor index.
func (m *Map) Name(i int) (string, error) {
	if i < 0 || i >= len(m.names) {
		return "", fmt.Errorf("classes: index %d out of range [0,%d)", i, len(m.names))
	}
	return m.names[i], nil
}

// Names returns the ordered class names.
func (m *Map) Names() []string {
	out := make([]string, len(m.names))
	copy(out, m.names)
	return out
}

// Len returns the number of classes.
func (m *Map) Len() int { return len(m.names) }
