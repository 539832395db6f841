package analyzer

// buckets collects items into named groups, keeping document order inside
// each group.
type buckets[T any] struct {
	items map[string][]T
}

func newBuckets[T any](names ...string) *buckets[T] {
	b := &buckets[T]{items: make(map[string][]T, len(names))}
	for _, n := range names {
		b.items[n] = nil
	}
	return b
}

func (b *buckets[T]) add(name string, item T) {
	b.items[name] = append(b.items[name], item)
}

func (b *buckets[T]) count(name string) int {
	return len(b.items[name])
}

// sample returns the first n items of a group, never nil.
func (b *buckets[T]) sample(name string, n int) []T {
	return orEmpty(head(b.items[name], n))
}
