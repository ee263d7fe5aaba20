package domain

// Vector is an embedding with its dimension carried explicitly alongside the
// values instead of being encoded in an index field name.
type Vector struct {
	Dim    int
	Values []float32
}

// NewVector creates a Vector from raw embedding values.
func NewVector(values []float32) Vector {
	return Vector{Dim: len(values), Values: values}
}

// ZeroVector returns an all-zero placeholder of the given dimension.
// Chunks indexed without an embedding carry this placeholder; similarity
// against it scores zero rather than erroring.
func ZeroVector(dim int) Vector {
	return Vector{Dim: dim, Values: make([]float32, dim)}
}

// IsEmpty reports whether the vector has no values at all.
func (v Vector) IsEmpty() bool {
	return len(v.Values) == 0
}

// IsZero reports whether the vector is empty or all-zero.
func (v Vector) IsZero() bool {
	for _, x := range v.Values {
		if x != 0 {
			return false
		}
	}
	return true
}
