package tabular

import (
	"errors"
	"fmt"
	"maps"
	"net/url"
	"sort"
	"strconv"
	"strings"
)

// Query parameter names used by State.Values and ParseState.
const (
	ParamSearch = "q"
	ParamSort   = "sort"
	ParamDir    = "dir"
	ParamPage   = "page"
	ParamSize   = "size"
)

// State is the ephemeral view state: filters, sort and page window.
// It is carried in query strings and never persisted.
type State struct {
	Search  string
	Filters map[string]string
	Sort    string
	Dir     Direction
	Page    int
	Size    int
}

// Clone returns a copy that does not share the filter map.
func (s State) Clone() State {
	out := s
	out.Filters = maps.Clone(s.Filters)
	return out
}

// Filter returns the active value of a dimension, or AllValues.
func (s State) Filter(dimension string) string {
	if v, ok := s.Filters[dimension]; ok && v != "" {
		return v
	}
	return AllValues
}

// ToggleSort applies the sort-header rule: the active field flips direction,
// any other field becomes active in ascending order.
func (s State) ToggleSort(field string) State {
	out := s.Clone()
	if s.Sort == field {
		if s.Dir == Desc {
			out.Dir = Asc
		} else {
			out.Dir = Desc
		}
		return out
	}
	out.Sort = field
	out.Dir = Asc
	return out
}

// WithPage returns a copy pointing at page n.
func (s State) WithPage(n int) State {
	out := s.Clone()
	out.Page = n
	return out
}

// Values encodes the non-default parts of the state.
func (s State) Values() url.Values {
	v := url.Values{}
	if s.Search != "" {
		v.Set(ParamSearch, s.Search)
	}
	dims := make([]string, 0, len(s.Filters))
	for dim := range s.Filters {
		dims = append(dims, dim)
	}
	sort.Strings(dims)
	for _, dim := range dims {
		if value := s.Filters[dim]; value != "" && value != AllValues {
			v.Set(dim, value)
		}
	}
	if s.Sort != "" {
		v.Set(ParamSort, s.Sort)
		if s.Dir != "" {
			v.Set(ParamDir, string(s.Dir))
		}
	}
	if s.Page > 1 {
		v.Set(ParamPage, strconv.Itoa(s.Page))
	}
	if s.Size > 0 {
		v.Set(ParamSize, strconv.Itoa(s.Size))
	}
	return v
}

// Encode renders the state as a query string.
func (s State) Encode() string {
	return s.Values().Encode()
}

// ParseState reads a State from query values. Malformed numbers and
// directions are ignored; range checks happen when the state is restored
// into a Controller.
func ParseState(values url.Values, dimensions []string) State {
	s, _ := parseState(values, dimensions)
	return s
}

// ParseStateStrict is ParseState for API callers: a direction other than
// asc or desc, or a page or size that is not a number, is an error.
func ParseStateStrict(values url.Values, dimensions []string) (State, error) {
	return parseState(values, dimensions)
}

func parseState(values url.Values, dimensions []string) (State, error) {
	var errs []error
	s := State{
		Search: values.Get(ParamSearch),
		Sort:   strings.TrimSpace(values.Get(ParamSort)),
	}
	if raw := strings.TrimSpace(values.Get(ParamDir)); raw != "" {
		if dir, ok := ParseDirection(strings.ToLower(raw)); ok {
			s.Dir = dir
		} else {
			errs = append(errs, fmt.Errorf("%w: %q", ErrDirection, raw))
		}
	}
	for _, dim := range dimensions {
		if value := strings.TrimSpace(values.Get(dim)); value != "" && value != AllValues {
			if s.Filters == nil {
				s.Filters = make(map[string]string)
			}
			s.Filters[dim] = value
		}
	}
	if raw := strings.TrimSpace(values.Get(ParamPage)); raw != "" {
		if page, err := strconv.Atoi(raw); err == nil {
			s.Page = page
		} else {
			errs = append(errs, fmt.Errorf("%w: %q", ErrPage, raw))
		}
	}
	if raw := strings.TrimSpace(values.Get(ParamSize)); raw != "" {
		if size, err := strconv.Atoi(raw); err == nil {
			s.Size = size
		} else {
			errs = append(errs, fmt.Errorf("%w: %q", ErrPageSize, raw))
		}
	}
	return s, errors.Join(errs...)
}
