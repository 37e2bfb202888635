package tabular

import (
	"cmp"
	"errors"
	"fmt"
	"slices"
	"sort"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

// Page is the visible slice of the collection plus its counts.
type Page[T any] struct {
	Records       []T
	TotalMatching int
	TotalPages    int
	PageIndex     int
}

// Summary is computed over the full unfiltered collection.
type Summary struct {
	Total  int
	Counts map[string]int
}

// Controller holds a record collection and the view state applied to it.
// A Controller is owned by a single request or goroutine; the collator and
// case folder it carries keep internal buffers.
type Controller[T any] struct {
	schema   Schema[T]
	records  []T
	state    State
	selected map[string]struct{}
	collator *collate.Collator
	folder   cases.Caser
}

// New builds a Controller over a copy of records in its default state:
// no filters, no active sort, page 1 and the schema's default page size.
func New[T any](schema Schema[T], records []T) *Controller[T] {
	tag := schema.Language
	if tag == language.Und {
		tag = language.English
	}
	c := &Controller[T]{
		schema:   schema,
		records:  slices.Clone(records),
		selected: make(map[string]struct{}),
		collator: collate.New(tag),
		folder:   cases.Fold(),
	}
	c.state = c.defaultState()
	return c
}

func (c *Controller[T]) defaultState() State {
	return State{Page: 1, Size: c.schema.defaultPageSize()}
}

// State returns a copy of the current view state.
func (c *Controller[T]) State() State {
	return c.state.Clone()
}

// Dimensions lists the declared filter dimensions in name order.
func (c *Controller[T]) Dimensions() []string {
	dims := make([]string, 0, len(c.schema.Dimensions))
	for dim := range c.schema.Dimensions {
		dims = append(dims, dim)
	}
	sort.Strings(dims)
	return dims
}

// PageSizes lists the allowed page sizes.
func (c *Controller[T]) PageSizes() []int {
	return slices.Clone(c.schema.pageSizes())
}

// Restore replaces the view state with s. Parts of s that fail validation are
// skipped and reported in the joined error; the rest is applied.
func (c *Controller[T]) Restore(s State) error {
	c.state = c.defaultState()
	c.state.Search = s.Search
	var errs []error
	for _, dim := range sortedKeys(s.Filters) {
		if err := c.SetFilter(dim, s.Filters[dim]); err != nil {
			errs = append(errs, err)
		}
	}
	if s.Sort != "" {
		dir := s.Dir
		if dir == "" {
			dir = Asc
		}
		if err := c.SetSortDirection(s.Sort, dir); err != nil {
			errs = append(errs, err)
		}
	}
	if s.Size != 0 {
		if err := c.SetPageSize(s.Size); err != nil {
			errs = append(errs, err)
		}
	}
	c.SetPage(s.Page)
	return errors.Join(errs...)
}

// SetSearchTerm sets the free-text term and returns to page 1.
func (c *Controller[T]) SetSearchTerm(term string) {
	c.state.Search = term
	c.state.Page = 1
}

// SetFilter constrains a dimension to an exact value. AllValues or an empty
// value clears the constraint. The page returns to 1.
func (c *Controller[T]) SetFilter(dimension, value string) error {
	if _, ok := c.schema.Dimensions[dimension]; !ok {
		return fmt.Errorf("%w: %q", ErrUnknownDimension, dimension)
	}
	if value == "" || value == AllValues {
		delete(c.state.Filters, dimension)
	} else {
		if c.state.Filters == nil {
			c.state.Filters = make(map[string]string)
		}
		c.state.Filters[dimension] = value
	}
	c.state.Page = 1
	return nil
}

// SetSort activates field ascending, or flips the direction when field is
// already active.
func (c *Controller[T]) SetSort(field string) error {
	if _, ok := c.schema.field(field); !ok {
		return fmt.Errorf("%w: %q", ErrUnknownField, field)
	}
	page := c.state.Page
	c.state = c.state.ToggleSort(field)
	c.state.Page = page
	return nil
}

// SetSortDirection activates field with an explicit direction.
func (c *Controller[T]) SetSortDirection(field string, dir Direction) error {
	if _, ok := c.schema.field(field); !ok {
		return fmt.Errorf("%w: %q", ErrUnknownField, field)
	}
	if _, ok := ParseDirection(string(dir)); !ok {
		return fmt.Errorf("%w: %q", ErrDirection, dir)
	}
	c.state.Sort = field
	c.state.Dir = dir
	return nil
}

// SetPage moves to page n clamped to [1, max(totalPages, 1)].
func (c *Controller[T]) SetPage(n int) {
	c.state.Page = clampPage(n, c.totalPages(len(c.filtered())))
}

// SetPageSize changes the page size and returns to page 1.
func (c *Controller[T]) SetPageSize(n int) error {
	if !containsInt(c.schema.pageSizes(), n) {
		return fmt.Errorf("%w: %d", ErrPageSize, n)
	}
	c.state.Size = n
	c.state.Page = 1
	return nil
}

// VisiblePage runs the filter, sort and slice pipeline over the current
// state. It does not change the controller.
func (c *Controller[T]) VisiblePage() Page[T] {
	rows := c.filtered()
	c.sortRows(rows)
	total := len(rows)
	totalPages := c.totalPages(total)
	index := clampPage(c.state.Page, totalPages)
	start := (index - 1) * c.state.Size
	if start > total {
		start = total
	}
	end := min(start+c.state.Size, total)
	page := make([]T, end-start)
	copy(page, rows[start:end])
	return Page[T]{
		Records:       page,
		TotalMatching: total,
		TotalPages:    totalPages,
		PageIndex:     index,
	}
}

// Summary counts the full collection regardless of filters.
func (c *Controller[T]) Summary() Summary {
	counts := make(map[string]int, len(c.schema.Tallies))
	for name, pred := range c.schema.Tallies {
		n := 0
		for _, rec := range c.records {
			if pred(rec) {
				n++
			}
		}
		counts[name] = n
	}
	return Summary{Total: len(c.records), Counts: counts}
}

// Records returns a copy of the full collection.
func (c *Controller[T]) Records() []T {
	return slices.Clone(c.records)
}

// Replace swaps the collection. View state and selection are kept; selected
// ids that no longer exist are dropped.
func (c *Controller[T]) Replace(records []T) {
	c.records = slices.Clone(records)
	c.pruneSelection()
}

// Remove drops records by id from the local collection and the selection.
func (c *Controller[T]) Remove(ids ...string) {
	drop := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		drop[id] = struct{}{}
	}
	c.records = slices.DeleteFunc(c.records, func(rec T) bool {
		_, ok := drop[c.schema.ID(rec)]
		return ok
	})
	for _, id := range ids {
		delete(c.selected, id)
	}
}

// ToggleSelect flips the selection of id. Ids not in the collection are
// ignored.
func (c *Controller[T]) ToggleSelect(id string) {
	if _, ok := c.selected[id]; ok {
		delete(c.selected, id)
		return
	}
	if c.contains(id) {
		c.selected[id] = struct{}{}
	}
}

func (c *Controller[T]) contains(id string) bool {
	return slices.ContainsFunc(c.records, func(rec T) bool { return c.schema.ID(rec) == id })
}

// SelectAll selects or deselects every record on the visible page.
func (c *Controller[T]) SelectAll(selected bool) {
	for _, rec := range c.VisiblePage().Records {
		id := c.schema.ID(rec)
		if selected {
			c.selected[id] = struct{}{}
		} else {
			delete(c.selected, id)
		}
	}
}

// ClearSelection empties the selection.
func (c *Controller[T]) ClearSelection() {
	clear(c.selected)
}

// RestoreSelection replaces the selection with ids present in the collection.
func (c *Controller[T]) RestoreSelection(ids []string) {
	clear(c.selected)
	for _, id := range ids {
		c.selected[id] = struct{}{}
	}
	c.pruneSelection()
}

// IsSelected reports whether id is selected.
func (c *Controller[T]) IsSelected(id string) bool {
	_, ok := c.selected[id]
	return ok
}

// Selected returns the selected ids in sorted order.
func (c *Controller[T]) Selected() []string {
	return sortedKeys(c.selected)
}

// AllVisibleSelected reports whether the visible page is non-empty and fully selected.
func (c *Controller[T]) AllVisibleSelected() bool {
	rows := c.VisiblePage().Records
	if len(rows) == 0 {
		return false
	}
	for _, rec := range rows {
		if !c.IsSelected(c.schema.ID(rec)) {
			return false
		}
	}
	return true
}

func (c *Controller[T]) pruneSelection() {
	if len(c.selected) == 0 {
		return
	}
	present := make(map[string]struct{}, len(c.records))
	for _, rec := range c.records {
		present[c.schema.ID(rec)] = struct{}{}
	}
	for id := range c.selected {
		if _, ok := present[id]; !ok {
			delete(c.selected, id)
		}
	}
}

func (c *Controller[T]) filtered() []T {
	term := c.folder.String(c.state.Search)
	out := make([]T, 0, len(c.records))
	for _, rec := range c.records {
		if term != "" && !c.matchesTerm(rec, term) {
			continue
		}
		if !c.matchesFilters(rec) {
			continue
		}
		out = append(out, rec)
	}
	return out
}

func (c *Controller[T]) matchesTerm(rec T, folded string) bool {
	for _, text := range c.schema.Search {
		if strings.Contains(c.folder.String(text(rec)), folded) {
			return true
		}
	}
	return false
}

func (c *Controller[T]) matchesFilters(rec T) bool {
	for dim, want := range c.state.Filters {
		get, ok := c.schema.Dimensions[dim]
		if !ok {
			continue
		}
		// Filter values are closed enumerations, so case is not significant.
		if !strings.EqualFold(get(rec), want) {
			return false
		}
	}
	return true
}

func (c *Controller[T]) sortRows(rows []T) {
	field, ok := c.schema.field(c.state.Sort)
	if !ok {
		return
	}
	desc := c.state.Dir == Desc
	slices.SortStableFunc(rows, func(a, b T) int {
		r := c.compare(field, a, b)
		if desc {
			return -r
		}
		return r
	})
}

func (c *Controller[T]) compare(f Field[T], a, b T) int {
	switch f.Kind {
	case KindNumber:
		return cmp.Compare(f.Number(a), f.Number(b))
	case KindTime:
		return f.Time(a).Compare(f.Time(b))
	default:
		return c.collator.CompareString(f.Text(a), f.Text(b))
	}
}

func (c *Controller[T]) totalPages(total int) int {
	size := c.state.Size
	if size <= 0 {
		size = c.schema.defaultPageSize()
	}
	return (total + size - 1) / size
}

func clampPage(n, totalPages int) int {
	upper := max(totalPages, 1)
	if n < 1 {
		return 1
	}
	if n > upper {
		return upper
	}
	return n
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
