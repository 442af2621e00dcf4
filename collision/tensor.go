package collision

import (
	"encoding/json"

	"github.com/pkg/errors"
)

// IndexQuad addresses one pair of objects: [[i, j], [k, l]] is subcomponent j of link i checked
// against subcomponent l of link k.
type IndexQuad [2][2]int

// NewIndexQuad builds a quad from its four indices.
func NewIndexQuad(i, j, k, l int) IndexQuad {
	return IndexQuad{{i, j}, {k, l}}
}

// Swapped returns the quad with its two halves exchanged.
func (q IndexQuad) Swapped() IndexQuad {
	return IndexQuad{q[1], q[0]}
}

// Tensor4D is a dense four dimensional array stored in row-major order.
type Tensor4D[T bool | float64] struct {
	dims [4]int
	data []T
}

// NewTensor4D allocates a zeroed tensor.
func NewTensor4D[T bool | float64](d1, d2, d3, d4 int) *Tensor4D[T] {
	return &Tensor4D[T]{
		dims: [4]int{d1, d2, d3, d4},
		data: make([]T, d1*d2*d3*d4),
	}
}

// Dims returns the four dimensions.
func (t *Tensor4D[T]) Dims() [4]int {
	return t.dims
}

func (t *Tensor4D[T]) offset(q IndexQuad) (int, error) {
	idx := [4]int{q[0][0], q[0][1], q[1][0], q[1][1]}
	off := 0
	for d := 0; d < 4; d++ {
		if idx[d] < 0 || idx[d] >= t.dims[d] {
			return 0, NewIndexOutOfRangeError("tensor", idx[d], t.dims[d])
		}
		off = off*t.dims[d] + idx[d]
	}
	return off, nil
}

// Get reads one entry.
func (t *Tensor4D[T]) Get(q IndexQuad) (T, error) {
	off, err := t.offset(q)
	if err != nil {
		var zero T
		return zero, err
	}
	return t.data[off], nil
}

// Set writes one entry.
func (t *Tensor4D[T]) Set(q IndexQuad, v T) error {
	off, err := t.offset(q)
	if err != nil {
		return err
	}
	t.data[off] = v
	return nil
}

// SetSymmetric writes an entry and its swapped counterpart.
func (t *Tensor4D[T]) SetSymmetric(q IndexQuad, v T) error {
	if err := t.Set(q, v); err != nil {
		return err
	}
	return t.Set(q.Swapped(), v)
}

// Clone returns a deep copy.
func (t *Tensor4D[T]) Clone() *Tensor4D[T] {
	return &Tensor4D[T]{dims: t.dims, data: append([]T{}, t.data...)}
}

func (t *Tensor4D[T]) nested() [][][][]T {
	out := make([][][][]T, t.dims[0])
	off := 0
	for i := range out {
		out[i] = make([][][]T, t.dims[1])
		for j := range out[i] {
			out[i][j] = make([][]T, t.dims[2])
			for k := range out[i][j] {
				out[i][j][k] = append([]T{}, t.data[off:off+t.dims[3]]...)
				off += t.dims[3]
			}
		}
	}
	return out
}

func tensorFromNested[T bool | float64](nested [][][][]T, dims [4]int) (*Tensor4D[T], error) {
	t := NewTensor4D[T](dims[0], dims[1], dims[2], dims[3])
	if len(nested) != dims[0] {
		return nil, NewDimensionMismatchError("_tensor", len(nested), dims[0])
	}
	off := 0
	for _, a := range nested {
		if len(a) != dims[1] {
			return nil, NewDimensionMismatchError("_tensor[i]", len(a), dims[1])
		}
		for _, b := range a {
			if len(b) != dims[2] {
				return nil, NewDimensionMismatchError("_tensor[i][j]", len(b), dims[2])
			}
			for _, c := range b {
				if len(c) != dims[3] {
					return nil, NewDimensionMismatchError("_tensor[i][j][k]", len(c), dims[3])
				}
				copy(t.data[off:], c)
				off += dims[3]
			}
		}
	}
	return t, nil
}

// tensorJSON is the on-disk layout shared by both tensor kinds.
type tensorJSON[T bool | float64] struct {
	Tensor [][][][]T         `json:"_tensor"`
	Dim1   int               `json:"_dim1"`
	Dim2   int               `json:"_dim2"`
	Dim3   int               `json:"_dim3"`
	Dim4   int               `json:"_dim4"`
	Mode   SelfCollisionMode `json:"_m"`
	Total  *float64          `json:"_total_num_collision_checks,omitempty"`
}

// SkipTensor marks object pairs that are never checked. Entries are kept symmetric.
type SkipTensor struct {
	*Tensor4D[bool]
	Mode SelfCollisionMode
}

// NewSkipTensor returns a skip tensor sized for two groups of objects, where shapeA[i] is the number
// of subcomponents of link i in the first group. The mode's skips are applied.
func NewSkipTensor(shapeA, shapeB []int, mode SelfCollisionMode) *SkipTensor {
	d := tensorDims(shapeA, shapeB)
	st := &SkipTensor{Tensor4D: NewTensor4D[bool](d[0], d[1], d[2], d[3]), Mode: mode}
	st.applyMode(shapeA)
	return st
}

func (st *SkipTensor) applyMode(shape []int) {
	switch st.Mode {
	case SameObjectOnly:
		for i, n := range shape {
			for j := 0; j < n; j++ {
				//nolint:errcheck
				st.Set(NewIndexQuad(i, j, i, j), true)
			}
		}
	case SameObjectOrSameVector:
		for i, n := range shape {
			for j := 0; j < n; j++ {
				for l := 0; l < n; l++ {
					//nolint:errcheck
					st.Set(NewIndexQuad(i, j, i, l), true)
				}
			}
		}
	case NoSelfCollisions:
	}
}

// ShouldSkip reports whether the pair is skipped. Out of range pairs are treated as skipped.
func (st *SkipTensor) ShouldSkip(q IndexQuad) bool {
	v, err := st.Get(q)
	return err != nil || v
}

// Clone returns a deep copy.
func (st *SkipTensor) Clone() *SkipTensor {
	return &SkipTensor{Tensor4D: st.Tensor4D.Clone(), Mode: st.Mode}
}

// MarshalJSON writes the nested tensor with its dimensions and mode.
func (st *SkipTensor) MarshalJSON() ([]byte, error) {
	d := st.Dims()
	return json.Marshal(tensorJSON[bool]{
		Tensor: st.nested(),
		Dim1:   d[0], Dim2: d[1], Dim3: d[2], Dim4: d[3],
		Mode: st.Mode,
	})
}

// UnmarshalJSON reads a tensor written by MarshalJSON.
func (st *SkipTensor) UnmarshalJSON(data []byte) error {
	var raw tensorJSON[bool]
	if err := json.Unmarshal(data, &raw); err != nil {
		return errors.Wrap(err, "decoding skip tensor")
	}
	t, err := tensorFromNested(raw.Tensor, [4]int{raw.Dim1, raw.Dim2, raw.Dim3, raw.Dim4})
	if err != nil {
		return err
	}
	st.Tensor4D = t
	st.Mode = raw.Mode
	return nil
}

// AverageTensor accumulates the distance of every pair over a set of sampled configurations.
type AverageTensor struct {
	*Tensor4D[float64]
	Mode                    SelfCollisionMode
	TotalNumCollisionChecks float64
}

// NewAverageTensor returns an empty accumulator for two groups of objects.
func NewAverageTensor(shapeA, shapeB []int, mode SelfCollisionMode) *AverageTensor {
	d := tensorDims(shapeA, shapeB)
	return &AverageTensor{Tensor4D: NewTensor4D[float64](d[0], d[1], d[2], d[3]), Mode: mode}
}

// Accumulate adds a sample distance to a pair and its swapped counterpart.
func (at *AverageTensor) Accumulate(q IndexQuad, v float64) error {
	off, err := at.offset(q)
	if err != nil {
		return err
	}
	at.data[off] += v
	if q[0] == q[1] {
		return nil
	}
	swapped, err := at.offset(q.Swapped())
	if err != nil {
		return err
	}
	at.data[swapped] += v
	return nil
}

// Mean returns the average distance of a pair, or 1 when nothing has been accumulated.
func (at *AverageTensor) Mean(q IndexQuad) float64 {
	if at == nil || at.TotalNumCollisionChecks == 0 {
		return 1
	}
	v, err := at.Get(q)
	if err != nil {
		return 1
	}
	return v / at.TotalNumCollisionChecks
}

// Merge adds the sums and sample count of other into at.
func (at *AverageTensor) Merge(other *AverageTensor) error {
	if at.Dims() != other.Dims() {
		return NewInconsistentTensorError(other.Dims(), at.Dims())
	}
	for i, v := range other.data {
		at.data[i] += v
	}
	at.TotalNumCollisionChecks += other.TotalNumCollisionChecks
	return nil
}

// Clone returns a deep copy.
func (at *AverageTensor) Clone() *AverageTensor {
	return &AverageTensor{Tensor4D: at.Tensor4D.Clone(), Mode: at.Mode, TotalNumCollisionChecks: at.TotalNumCollisionChecks}
}

// MarshalJSON writes the sums, dimensions, mode and sample count.
func (at *AverageTensor) MarshalJSON() ([]byte, error) {
	d := at.Dims()
	total := at.TotalNumCollisionChecks
	return json.Marshal(tensorJSON[float64]{
		Tensor: at.nested(),
		Dim1:   d[0], Dim2: d[1], Dim3: d[2], Dim4: d[3],
		Mode:  at.Mode,
		Total: &total,
	})
}

// UnmarshalJSON reads a tensor written by MarshalJSON.
func (at *AverageTensor) UnmarshalJSON(data []byte) error {
	var raw tensorJSON[float64]
	if err := json.Unmarshal(data, &raw); err != nil {
		return errors.Wrap(err, "decoding average distance tensor")
	}
	t, err := tensorFromNested(raw.Tensor, [4]int{raw.Dim1, raw.Dim2, raw.Dim3, raw.Dim4})
	if err != nil {
		return err
	}
	at.Tensor4D = t
	at.Mode = raw.Mode
	at.TotalNumCollisionChecks = 0
	if raw.Total != nil {
		at.TotalNumCollisionChecks = *raw.Total
	}
	return nil
}

// tensorDims sizes a tensor for two groups: links by the largest subcomponent count.
func tensorDims(shapeA, shapeB []int) [4]int {
	return [4]int{len(shapeA), maxOf(shapeA), len(shapeB), maxOf(shapeB)}
}

func maxOf(shape []int) int {
	m := 0
	for _, n := range shape {
		if n > m {
			m = n
		}
	}
	return m
}
