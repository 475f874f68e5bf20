package util

// Set tracks membership for comparable values
type Set[K comparable] map[K]struct{}

// SetOf builds a Set from the given elements
func SetOf[K comparable](elements ...K) Set[K] {
	res := make(Set[K], len(elements))
	for _, e := range elements {
		res.Add(e)
	}
	return res
}

// Add inserts key into the set
func (s Set[K]) Add(key K) {
	s[key] = struct{}{}
}

// Remove deletes key from the set
func (s Set[K]) Remove(key K) {
	delete(s, key)
}

// Contains reports whether key is in the set
func (s Set[K]) Contains(key K) bool {
	_, ok := s[key]
	return ok
}

// Len returns the element count
func (s Set[K]) Len() int {
	return len(s)
}

// IsEmpty reports whether the set has no elements
func (s Set[K]) IsEmpty() bool {
	return len(s) == 0
}
