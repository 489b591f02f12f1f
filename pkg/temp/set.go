package temp

import "sort"

// Set is an unordered set of temps.
type Set map[Temp]struct{}

// NewSet creates a set holding ts.
func NewSet(ts ...Temp) Set {
	s := make(Set, len(ts))
	for _, t := range ts {
		s[t] = struct{}{}
	}
	return s
}

// Add inserts t.
func (s Set) Add(t Temp) {
	s[t] = struct{}{}
}

// Remove deletes t if present.
func (s Set) Remove(t Temp) {
	delete(s, t)
}

// Contains reports whether t is in the set.
func (s Set) Contains(t Temp) bool {
	_, ok := s[t]
	return ok
}

// Union returns a new set with the elements of both sets.
func (s Set) Union(other Set) Set {
	result := make(Set, len(s)+len(other))
	for t := range s {
		result[t] = struct{}{}
	}
	for t := range other {
		result[t] = struct{}{}
	}
	return result
}

// Minus returns a new set with the elements of s not in other.
func (s Set) Minus(other Set) Set {
	result := make(Set, len(s))
	for t := range s {
		if !other.Contains(t) {
			result[t] = struct{}{}
		}
	}
	return result
}

// Intersect returns a new set with the elements present in both sets.
func (s Set) Intersect(other Set) Set {
	result := make(Set)
	for t := range s {
		if other.Contains(t) {
			result[t] = struct{}{}
		}
	}
	return result
}

// Equal compares two sets ignoring order.
func (s Set) Equal(other Set) bool {
	if len(s) != len(other) {
		return false
	}
	for t := range s {
		if !other.Contains(t) {
			return false
		}
	}
	return true
}

// Copy returns an independent copy.
func (s Set) Copy() Set {
	result := make(Set, len(s))
	for t := range s {
		result[t] = struct{}{}
	}
	return result
}

// Slice returns the elements in unspecified order.
func (s Set) Slice() []Temp {
	result := make([]Temp, 0, len(s))
	for t := range s {
		result = append(result, t)
	}
	return result
}

// Sorted returns the elements in ascending order.
func (s Set) Sorted() []Temp {
	result := s.Slice()
	sort.Slice(result, func(i, j int) bool { return result[i] < result[j] })
	return result
}

// Replace returns a copy of ts with every occurrence of before turned into after.
func Replace(ts []Temp, before, after Temp) []Temp {
	result := make([]Temp, len(ts))
	for i, t := range ts {
		if t == before {
			t = after
		}
		result[i] = t
	}
	return result
}
