package utils

import (
	"sort"
)

type Index []int

func NewRange(rmin, rmax int) (r Index) {
	var (
		size = rmax - rmin + 1 // INCLUSIVE RANGE
	)
	if size < 0 {
		size = 0
	}
	r = make(Index, size)
	for i := range r {
		r[i] = i + rmin
	}
	return
}

func (I Index) Copy() (r Index) {
	r = make(Index, len(I))
	copy(r, I)
	return
}

func (I Index) Contains(val int) bool {
	for _, v := range I {
		if v == val {
			return true
		}
	}
	return false
}

// Find returns the position of val in I, or -1
func (I Index) Find(val int) int {
	for i, v := range I {
		if v == val {
			return i
		}
	}
	return -1
}

// Unique returns the sorted set of values found in I
func (I Index) Unique() (r Index) {
	if len(I) == 0 {
		return Index{}
	}
	s := I.Copy()
	sort.Ints(s)
	r = Index{s[0]}
	for _, v := range s[1:] {
		if v != r[len(r)-1] {
			r = append(r, v)
		}
	}
	return
}

// Union merges two index sets into a sorted set
func (I Index) Union(J Index) Index {
	r := make(Index, 0, len(I)+len(J))
	r = append(r, I...)
	r = append(r, J...)
	return r.Unique()
}
