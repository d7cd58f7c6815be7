package model

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
)

// Attr describes one typed attribute of a record of type T.
//
// Key is the attribute's key in the record file. Name is its name in resolved
// documents; an empty Name means the attribute never appears there. Elem marks
// attributes that documents carry as a child text element instead of an XML
// attribute.
type Attr[T any] struct {
	Key  string
	Name string
	Elem bool
	Get  func(*T) string
	Set  func(*T, string) error
}

// ExtraPrefix marks pass-through attributes in flattened attribute maps.
const ExtraPrefix = "extra."

func strAttr[T any](key, name string, p func(*T) *string) Attr[T] {
	return Attr[T]{
		Key:  key,
		Name: name,
		Get:  func(r *T) string { return *p(r) },
		Set: func(r *T, v string) error {
			*p(r) = v
			return nil
		},
	}
}

func elemAttr[T any](key, name string, p func(*T) *string) Attr[T] {
	a := strAttr(key, name, p)
	a.Elem = true
	return a
}

func floatAttr[T any](key, name string, p func(*T) *float64) Attr[T] {
	return Attr[T]{
		Key:  key,
		Name: name,
		Get: func(r *T) string {
			if v := *p(r); v != 0 {
				return FormatFloat(v)
			}
			return ""
		},
		Set: func(r *T, v string) error {
			if v == "" {
				*p(r) = 0
				return nil
			}
			f, err := parseFinite(key, v)
			if err != nil {
				return err
			}
			*p(r) = f
			return nil
		},
	}
}

// optFloatAttr is for coordinates, where zero is a real value and absence is
// distinct from it.
func optFloatAttr[T any](key, name string, p func(*T) **float64) Attr[T] {
	return Attr[T]{
		Key:  key,
		Name: name,
		Get: func(r *T) string {
			if v := *p(r); v != nil {
				return FormatFloat(*v)
			}
			return ""
		},
		Set: func(r *T, v string) error {
			if v == "" {
				*p(r) = nil
				return nil
			}
			f, err := parseFinite(key, v)
			if err != nil {
				return err
			}
			*p(r) = &f
			return nil
		},
	}
}

// parseFinite parses a number, refusing NaN and infinities.
func parseFinite(key, v string) (float64, error) {
	f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("%s: invalid number %q", key, v)
	}
	return f, nil
}

func intAttr[T any](key, name string, p func(*T) *int) Attr[T] {
	return Attr[T]{
		Key:  key,
		Name: name,
		Get: func(r *T) string {
			if v := *p(r); v != 0 {
				return strconv.Itoa(v)
			}
			return ""
		},
		Set: func(r *T, v string) error {
			if v == "" {
				*p(r) = 0
				return nil
			}
			n, err := strconv.Atoi(strings.TrimSpace(v))
			if err != nil {
				return fmt.Errorf("%s: invalid integer %q", key, v)
			}
			*p(r) = n
			return nil
		},
	}
}

func boolAttr[T any](key, name string, p func(*T) *bool) Attr[T] {
	return Attr[T]{
		Key:  key,
		Name: name,
		Get: func(r *T) string {
			if *p(r) {
				return "True"
			}
			return ""
		},
		Set: func(r *T, v string) error {
			b, err := parseBool(key, v)
			if err != nil {
				return err
			}
			*p(r) = b != nil && *b
			return nil
		},
	}
}

func optBoolAttr[T any](key, name string, p func(*T) **bool) Attr[T] {
	return Attr[T]{
		Key:  key,
		Name: name,
		Get: func(r *T) string {
			switch v := *p(r); {
			case v == nil:
				return ""
			case *v:
				return "True"
			default:
				return "False"
			}
		},
		Set: func(r *T, v string) error {
			b, err := parseBool(key, v)
			if err != nil {
				return err
			}
			*p(r) = b
			return nil
		},
	}
}

func parseBool(key, v string) (*bool, error) {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "":
		return nil, nil
	case "true", "1":
		b := true
		return &b, nil
	case "false", "0":
		b := false
		return &b, nil
	}
	return nil, fmt.Errorf("%s: invalid boolean %q", key, v)
}

// FormatFloat renders a number the way record files and documents store it:
// the shortest decimal form that parses back to the same value.
func FormatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func flatten[T any](table []Attr[T], r *T, extra map[string]string) map[string]string {
	out := make(map[string]string, len(table)+len(extra))
	for _, a := range table {
		if v := a.Get(r); v != "" {
			out[a.Key] = v
		}
	}
	for k, v := range extra {
		out[ExtraPrefix+k] = v
	}
	return out
}

// AttrByName finds the table entry whose document name is name.
func AttrByName[T any](table []Attr[T], name string) (Attr[T], bool) {
	for _, a := range table {
		if a.Name == name {
			return a, true
		}
	}
	return Attr[T]{}, false
}

// Change is one differing attribute between two versions of a record.
type Change struct {
	Key string `json:"key"`
	Old string `json:"old"`
	New string `json:"new"`
}

func (c Change) String() string {
	return fmt.Sprintf("%s: %q -> %q", c.Key, c.Old, c.New)
}

// Diff compares two flattened attribute maps and returns the changes sorted
// by key.
func Diff(old, new map[string]string) []Change {
	var changes []Change
	for k, ov := range old {
		if nv := new[k]; nv != ov {
			changes = append(changes, Change{Key: k, Old: ov, New: nv})
		}
	}
	for k, nv := range new {
		if _, ok := old[k]; !ok {
			changes = append(changes, Change{Key: k, New: nv})
		}
	}
	sort.Slice(changes, func(i, j int) bool { return changes[i].Key < changes[j].Key })
	return changes
}

func cloneExtra(m map[string]string) map[string]string {
	if m == nil {
		return nil
	}
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
