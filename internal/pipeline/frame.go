package pipeline

import "math"

// Frame is a column-oriented table of engineered features. Every column has
// the same length and is aligned row-for-row with the normalized readings it
// was extracted from. Missing values are explicit NaN, never zero.
type Frame struct {
	n     int
	names []string
	cols  map[string][]float64
}

// NewFrame creates an empty frame for n rows.
func NewFrame(n int) *Frame {
	return &Frame{n: n, cols: make(map[string][]float64)}
}

// Len returns the number of rows.
func (f *Frame) Len() int { return f.n }

// Names returns column names in insertion order.
func (f *Frame) Names() []string { return f.names }

// Set installs a column. The slice must have exactly Len elements; Set
// panics otherwise since that is a programming error, not a data error.
func (f *Frame) Set(name string, col []float64) {
	if len(col) != f.n {
		panic("pipeline: column " + name + " length mismatch")
	}
	if _, ok := f.cols[name]; !ok {
		f.names = append(f.names, name)
	}
	f.cols[name] = col
}

// Col returns a column by name.
func (f *Frame) Col(name string) ([]float64, bool) {
	c, ok := f.cols[name]
	return c, ok
}

// At returns the value at (name, row), or NaN if the column does not exist.
func (f *Frame) At(name string, row int) float64 {
	c, ok := f.cols[name]
	if !ok {
		return math.NaN()
	}
	return c[row]
}

// nanSlice returns a length-n slice filled with NaN.
func nanSlice(n int) []float64 {
	s := make([]float64, n)
	for i := range s {
		s[i] = math.NaN()
	}
	return s
}
