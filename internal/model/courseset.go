package model

import (
	"encoding/json"
	"sort"
)

// CourseSet is a set of opaque course ids.
// It is serialized as a sorted JSON array.
type CourseSet map[string]struct{}

// NewCourseSet builds a set from ids, skipping empty strings.
func NewCourseSet(ids ...string) CourseSet {
	s := make(CourseSet, len(ids))
	for _, id := range ids {
		if id != "" {
			s[id] = struct{}{}
		}
	}
	return s
}

func (s CourseSet) Has(id string) bool {
	_, ok := s[id]
	return ok
}

func (s CourseSet) Add(id string) {
	s[id] = struct{}{}
}

func (s CourseSet) Remove(id string) {
	delete(s, id)
}

func (s CourseSet) Len() int {
	return len(s)
}

// Slice returns the ids in ascending order.
func (s CourseSet) Slice() []string {
	out := make([]string, 0, len(s))
	for id := range s {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

func (s CourseSet) Clone() CourseSet {
	c := make(CourseSet, len(s))
	for id := range s {
		c[id] = struct{}{}
	}
	return c
}

// Intersection returns the sorted ids present in both sets.
func (s CourseSet) Intersection(other CourseSet) []string {
	var out []string
	for id := range s {
		if other.Has(id) {
			out = append(out, id)
		}
	}
	sort.Strings(out)
	return out
}

func (s CourseSet) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.Slice())
}

func (s *CourseSet) UnmarshalJSON(data []byte) error {
	var ids []string
	if err := json.Unmarshal(data, &ids); err != nil {
		return err
	}
	*s = NewCourseSet(ids...)
	return nil
}
