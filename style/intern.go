package style

// Interner returns a single shared instance for every distinct value, it is
// used for declaration blocks of a stylesheet and for cell styles of a chunk.
// Not safe for concurrent use.
type Interner[T comparable] struct {
	seen map[T]*T
}

// NewInterner creates empty interner.
func NewInterner[T comparable]() *Interner[T] {
	return &Interner[T]{seen: make(map[T]*T)}
}

// Intern returns pointer to the canonical copy of v.
func (in *Interner[T]) Intern(v T) *T {
	if p, ok := in.seen[v]; ok {
		return p
	}
	p := new(T)
	*p = v
	in.seen[v] = p
	return p
}

// Len returns number of distinct values seen so far.
func (in *Interner[T]) Len() int {
	return len(in.seen)
}
