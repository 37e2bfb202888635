// Package tabular computes filtered, sorted and paginated views over an
// in-memory record collection.
package tabular

import (
	"errors"
	"time"

	"golang.org/x/text/language"
)

// AllValues is the filter value that clears a dimension.
const AllValues = "all"

// DefaultPageSize is used when a schema does not set one.
const DefaultPageSize = 10

// DefaultPageSizes lists the page sizes offered when a schema does not set any.
var DefaultPageSizes = []int{10, 25, 50, 100}

var (
	// ErrUnknownDimension is returned for filters on dimensions the schema does not declare.
	ErrUnknownDimension = errors.New("tabular: unknown filter dimension")
	// ErrUnknownField is returned for sorts on fields the schema does not declare.
	ErrUnknownField = errors.New("tabular: unknown sort field")
	// ErrDirection is returned for sort directions other than asc and desc.
	ErrDirection = errors.New("tabular: invalid sort direction")
	// ErrPageSize is returned for page sizes outside the allowed set.
	ErrPageSize = errors.New("tabular: page size not allowed")
	// ErrPage is returned by ParseStateStrict for a page that is not a number.
	ErrPage = errors.New("tabular: invalid page")
)

// Kind selects the comparison rule of a sortable field.
type Kind int

const (
	// KindText fields compare with locale-aware collation.
	KindText Kind = iota
	// KindNumber fields compare numerically.
	KindNumber
	// KindTime fields compare chronologically.
	KindTime
)

// Direction is a sort direction.
type Direction string

const (
	Asc  Direction = "asc"
	Desc Direction = "desc"
)

// ParseDirection converts raw input into a Direction.
func ParseDirection(raw string) (Direction, bool) {
	switch Direction(raw) {
	case Asc:
		return Asc, true
	case Desc:
		return Desc, true
	default:
		return "", false
	}
}

// Field describes one sortable attribute. Only the accessor matching Kind is used.
type Field[T any] struct {
	Name   string
	Kind   Kind
	Text   func(T) string
	Number func(T) float64
	Time   func(T) time.Time
}

// Schema tells a Controller how to read records of type T.
type Schema[T any] struct {
	// ID returns the unique identifier of a record.
	ID func(T) string
	// Search lists the text accessors matched by the free-text term.
	Search []func(T) string
	// Dimensions maps filter dimension names to exact-match accessors.
	Dimensions map[string]func(T) string
	// Fields lists sortable attributes.
	Fields []Field[T]
	// Tallies are predicates counted over the full collection by Summary.
	Tallies map[string]func(T) bool

	PageSizes       []int
	DefaultPageSize int
	// Language drives string collation. Defaults to English.
	Language language.Tag
}

func (s Schema[T]) pageSizes() []int {
	if len(s.PageSizes) == 0 {
		return DefaultPageSizes
	}
	return s.PageSizes
}

func (s Schema[T]) defaultPageSize() int {
	sizes := s.pageSizes()
	if s.DefaultPageSize > 0 && containsInt(sizes, s.DefaultPageSize) {
		return s.DefaultPageSize
	}
	if containsInt(sizes, DefaultPageSize) {
		return DefaultPageSize
	}
	return sizes[0]
}

func (s Schema[T]) field(name string) (Field[T], bool) {
	for _, f := range s.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return Field[T]{}, false
}

func containsInt(values []int, v int) bool {
	for _, candidate := range values {
		if candidate == v {
			return true
		}
	}
	return false
}
