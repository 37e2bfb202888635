package tabular

import (
	"fmt"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type row struct {
	ID       string
	Name     string
	Desc     string
	Category string
	Status   string
	Kind     string
	Assigned int
	Created  time.Time
}

func rowSchema() Schema[row] {
	return Schema[row]{
		ID: func(r row) string { return r.ID },
		Search: []func(row) string{
			func(r row) string { return r.Name },
			func(r row) string { return r.Desc },
			func(r row) string { return r.Category },
		},
		Dimensions: map[string]func(row) string{
			"status":   func(r row) string { return r.Status },
			"type":     func(r row) string { return r.Kind },
			"category": func(r row) string { return r.Category },
		},
		Fields: []Field[row]{
			{Name: "name", Kind: KindText, Text: func(r row) string { return r.Name }},
			{Name: "category", Kind: KindText, Text: func(r row) string { return r.Category }},
			{Name: "assigned", Kind: KindNumber, Number: func(r row) float64 { return float64(r.Assigned) }},
			{Name: "created", Kind: KindTime, Time: func(r row) time.Time { return r.Created }},
		},
		Tallies: map[string]func(row) bool{
			"active": func(r row) bool { return r.Status == "ACTIVE" },
		},
	}
}

// fiftyRows returns 50 rows of which exactly 4 mention "security".
func fiftyRows() []row {
	categories := []string{"Administration", "Maintenance", "Finance", "Front Desk"}
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	rows := make([]row, 0, 50)
	for i := 1; i <= 50; i++ {
		status := "ACTIVE"
		if i%3 == 0 {
			status = "INACTIVE"
		}
		kind := "CUSTOM"
		if i%5 == 0 {
			kind = "SYSTEM"
		}
		rows = append(rows, row{
			ID:       fmt.Sprintf("r%02d", i),
			Name:     fmt.Sprintf("Role %02d", i),
			Desc:     "Handles society duties",
			Category: categories[i%len(categories)],
			Status:   status,
			Kind:     kind,
			Assigned: i % 7,
			Created:  base.Add(time.Duration(i) * time.Hour),
		})
	}
	rows[3].Category = "Security"
	rows[11].Name = "Night Security Lead"
	rows[20].Desc = "Coordinates SECURITY patrols"
	rows[42].Category = "Security"
	return rows
}

func ids(rows []row) []string {
	out := make([]string, len(rows))
	for i, r := range rows {
		out[i] = r.ID
	}
	return out
}

func TestDefaultStateShowsFirstTenOfFifty(t *testing.T) {
	c := New(rowSchema(), fiftyRows())

	page := c.VisiblePage()

	assert.Len(t, page.Records, 10)
	assert.Equal(t, 50, page.TotalMatching)
	assert.Equal(t, 5, page.TotalPages)
	assert.Equal(t, 1, page.PageIndex)
	assert.Equal(t, "r01", page.Records[0].ID)
}

func TestSearchMatchesNameDescriptionAndCategory(t *testing.T) {
	c := New(rowSchema(), fiftyRows())

	c.SetSearchTerm("Security")
	page := c.VisiblePage()

	assert.Equal(t, 4, page.TotalMatching)
	assert.Equal(t, 1, page.TotalPages)
	assert.Len(t, page.Records, 4)
	assert.ElementsMatch(t, []string{"r04", "r12", "r21", "r43"}, ids(page.Records))
}

func TestFilterThenClearRestoresFullCount(t *testing.T) {
	c := New(rowSchema(), fiftyRows())
	before := c.VisiblePage().TotalMatching

	require.NoError(t, c.SetFilter("status", "ACTIVE"))
	filtered := c.VisiblePage().TotalMatching
	require.NoError(t, c.SetFilter("status", AllValues))

	assert.Less(t, filtered, before)
	assert.Equal(t, before, c.VisiblePage().TotalMatching)
}

func TestSetSortTwiceReversesOrder(t *testing.T) {
	c := New(rowSchema(), fiftyRows())
	require.NoError(t, c.SetPageSize(50))

	require.NoError(t, c.SetSort("name"))
	first := ids(c.VisiblePage().Records)
	assert.Equal(t, Asc, c.State().Dir)

	require.NoError(t, c.SetSort("name"))
	second := ids(c.VisiblePage().Records)
	assert.Equal(t, Desc, c.State().Dir)

	require.Len(t, second, len(first))
	for i := range first {
		assert.Equal(t, first[i], second[len(second)-1-i])
	}
}

func TestPageSizeResetsPage(t *testing.T) {
	c := New(rowSchema(), fiftyRows())
	c.SetPage(3)
	require.Equal(t, 3, c.VisiblePage().PageIndex)

	require.NoError(t, c.SetPageSize(50))
	page := c.VisiblePage()

	assert.Equal(t, 1, page.PageIndex)
	assert.Equal(t, 1, page.TotalPages)
	assert.Len(t, page.Records, 50)
}

func TestVisiblePageIsIdempotent(t *testing.T) {
	c := New(rowSchema(), fiftyRows())
	c.SetSearchTerm("role")
	require.NoError(t, c.SetSort("assigned"))
	c.SetPage(2)

	assert.Equal(t, c.VisiblePage(), c.VisiblePage())
	assert.Equal(t, 2, c.State().Page)
}

func TestFilterCorrectness(t *testing.T) {
	rows := fiftyRows()
	c := New(rowSchema(), rows)
	require.NoError(t, c.SetPageSize(100))
	c.SetSearchTerm("role 1")
	require.NoError(t, c.SetFilter("status", "ACTIVE"))
	require.NoError(t, c.SetFilter("type", "CUSTOM"))

	got := make(map[string]bool)
	for _, r := range c.VisiblePage().Records {
		got[r.ID] = true
	}
	for _, r := range rows {
		text := strings.ToLower(r.Name + "|" + r.Desc + "|" + r.Category)
		want := strings.Contains(strings.ToLower(r.Name), "role 1") ||
			strings.Contains(strings.ToLower(r.Desc), "role 1") ||
			strings.Contains(strings.ToLower(r.Category), "role 1")
		want = want && r.Status == "ACTIVE" && r.Kind == "CUSTOM"
		assert.Equal(t, want, got[r.ID], "row %s (%s)", r.ID, text)
	}
}

func TestFilterValuesMatchCaseInsensitively(t *testing.T) {
	c := New(rowSchema(), fiftyRows())
	require.NoError(t, c.SetFilter("type", "system"))

	assert.Equal(t, 10, c.VisiblePage().TotalMatching)
}

func TestSortIsStable(t *testing.T) {
	c := New(rowSchema(), fiftyRows())
	require.NoError(t, c.SetPageSize(50))

	before := ids(c.VisiblePage().Records)
	require.NoError(t, c.SetSort("category"))
	after := c.VisiblePage().Records

	position := make(map[string]int, len(before))
	for i, id := range before {
		position[id] = i
	}
	for i := 1; i < len(after); i++ {
		if after[i-1].Category == after[i].Category {
			assert.Less(t, position[after[i-1].ID], position[after[i].ID], "tie order changed at %d", i)
		}
	}
}

func TestSortDescendingKeepsTieOrder(t *testing.T) {
	c := New(rowSchema(), fiftyRows())
	require.NoError(t, c.SetPageSize(50))
	require.NoError(t, c.SetSortDirection("assigned", Desc))

	records := c.VisiblePage().Records
	for i := 1; i < len(records); i++ {
		prev, cur := records[i-1], records[i]
		assert.GreaterOrEqual(t, prev.Assigned, cur.Assigned)
		if prev.Assigned == cur.Assigned {
			assert.Less(t, prev.ID, cur.ID)
		}
	}
}

func TestSortKinds(t *testing.T) {
	base := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	rows := []row{
		{ID: "a", Name: "zeta", Assigned: 10, Created: base.Add(2 * time.Hour)},
		{ID: "b", Name: "Émile", Assigned: 9, Created: base},
		{ID: "c", Name: "alpha", Assigned: 100, Created: base.Add(time.Hour)},
	}
	c := New(rowSchema(), rows)

	require.NoError(t, c.SetSort("name"))
	assert.Equal(t, []string{"c", "b", "a"}, ids(c.VisiblePage().Records))

	require.NoError(t, c.SetSort("assigned"))
	assert.Equal(t, []string{"b", "a", "c"}, ids(c.VisiblePage().Records))

	require.NoError(t, c.SetSort("created"))
	assert.Equal(t, []string{"b", "c", "a"}, ids(c.VisiblePage().Records))
}

func TestPageClamping(t *testing.T) {
	c := New(rowSchema(), fiftyRows())

	c.SetPage(0)
	assert.Equal(t, 1, c.VisiblePage().PageIndex)

	c.SetPage(-4)
	assert.Equal(t, 1, c.VisiblePage().PageIndex)

	c.SetPage(1 << 30)
	page := c.VisiblePage()
	assert.Equal(t, 5, page.PageIndex)
	assert.Len(t, page.Records, 10)
	assert.Equal(t, "r41", page.Records[0].ID)
}

func TestEmptyResultConvention(t *testing.T) {
	c := New(rowSchema(), fiftyRows())
	c.SetSearchTerm("no such role anywhere")

	page := c.VisiblePage()
	assert.NotNil(t, page.Records)
	assert.Empty(t, page.Records)
	assert.Equal(t, 0, page.TotalMatching)
	assert.Equal(t, 0, page.TotalPages)
	assert.Equal(t, 1, page.PageIndex)

	c.SetPage(7)
	assert.Equal(t, 1, c.VisiblePage().PageIndex)
}

func TestEmptyCollection(t *testing.T) {
	c := New(rowSchema(), nil)

	page := c.VisiblePage()
	assert.Empty(t, page.Records)
	assert.Equal(t, 0, page.TotalPages)
	assert.Equal(t, 1, page.PageIndex)
	assert.Equal(t, 0, c.Summary().Total)
}

func TestStateChangesResetPage(t *testing.T) {
	cases := map[string]func(c *Controller[row]){
		"search":         func(c *Controller[row]) { c.SetSearchTerm("anything") },
		"empty search":   func(c *Controller[row]) { c.SetSearchTerm("") },
		"filter":         func(c *Controller[row]) { _ = c.SetFilter("category", "Finance") },
		"clear filter":   func(c *Controller[row]) { _ = c.SetFilter("category", AllValues) },
		"page size":      func(c *Controller[row]) { _ = c.SetPageSize(25) },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			c := New(rowSchema(), fiftyRows())
			c.SetPage(4)
			require.Equal(t, 4, c.State().Page)

			mutate(c)

			assert.Equal(t, 1, c.State().Page)
			assert.Equal(t, 1, c.VisiblePage().PageIndex)
		})
	}
}

func TestSortKeepsPage(t *testing.T) {
	c := New(rowSchema(), fiftyRows())
	c.SetPage(2)
	require.NoError(t, c.SetSort("name"))

	assert.Equal(t, 2, c.VisiblePage().PageIndex)
}

func TestSummaryIgnoresViewState(t *testing.T) {
	c := New(rowSchema(), fiftyRows())
	before := c.Summary()
	assert.Equal(t, 50, before.Total)
	assert.Equal(t, 34, before.Counts["active"])

	c.SetSearchTerm("Security")
	require.NoError(t, c.SetFilter("status", "INACTIVE"))
	require.NoError(t, c.SetSort("name"))
	c.SetPage(3)
	require.NoError(t, c.SetPageSize(25))

	assert.Equal(t, before, c.Summary())

	c.Remove("r01", "r02")
	assert.Equal(t, 48, c.Summary().Total)
}

func TestUnknownInputs(t *testing.T) {
	c := New(rowSchema(), fiftyRows())

	assert.ErrorIs(t, c.SetFilter("colour", "red"), ErrUnknownDimension)
	assert.ErrorIs(t, c.SetSort("colour"), ErrUnknownField)
	assert.ErrorIs(t, c.SetSortDirection("name", "sideways"), ErrDirection)
	assert.ErrorIs(t, c.SetPageSize(7), ErrPageSize)
	assert.Equal(t, New(rowSchema(), nil).State(), c.State())
}

func TestSelection(t *testing.T) {
	c := New(rowSchema(), fiftyRows())

	c.ToggleSelect("r01")
	c.ToggleSelect("r30")
	assert.Equal(t, []string{"r01", "r30"}, c.Selected())

	c.ToggleSelect("r01")
	assert.Equal(t, []string{"r30"}, c.Selected())

	c.SelectAll(true)
	assert.Len(t, c.Selected(), 11)
	assert.True(t, c.AllVisibleSelected())

	c.SelectAll(false)
	assert.Equal(t, []string{"r30"}, c.Selected())
	assert.False(t, c.AllVisibleSelected())

	c.ClearSelection()
	assert.Empty(t, c.Selected())
}

func TestToggleSelectIgnoresUnknownIDs(t *testing.T) {
	c := New(rowSchema(), fiftyRows())
	c.ToggleSelect("ghost")
	c.ToggleSelect("")
	assert.Empty(t, c.Selected())

	c.ToggleSelect("r02")
	assert.Equal(t, []string{"r02"}, c.Selected())
}

func TestSelectAllOnlyTouchesVisiblePage(t *testing.T) {
	c := New(rowSchema(), fiftyRows())
	c.SetSearchTerm("Security")

	c.SelectAll(true)

	assert.ElementsMatch(t, []string{"r04", "r12", "r21", "r43"}, c.Selected())
}

func TestRemoveAndRestoreSelectionPrune(t *testing.T) {
	c := New(rowSchema(), fiftyRows())
	c.RestoreSelection([]string{"r01", "r02", "missing"})
	assert.Equal(t, []string{"r01", "r02"}, c.Selected())

	c.Remove("r01")
	assert.Equal(t, []string{"r02"}, c.Selected())
	assert.False(t, c.IsSelected("r01"))

	c.Replace(fiftyRows()[2:])
	assert.Empty(t, c.Selected())
}

func TestRestoreAppliesValidPartsAndReportsRest(t *testing.T) {
	c := New(rowSchema(), fiftyRows())

	err := c.Restore(State{
		Search:  "role",
		Filters: map[string]string{"status": "ACTIVE", "colour": "red"},
		Sort:    "name",
		Dir:     Desc,
		Page:    3,
		Size:    13,
	})

	assert.ErrorIs(t, err, ErrUnknownDimension)
	assert.ErrorIs(t, err, ErrPageSize)
	state := c.State()
	assert.Equal(t, "role", state.Search)
	assert.Equal(t, map[string]string{"status": "ACTIVE"}, state.Filters)
	assert.Equal(t, "name", state.Sort)
	assert.Equal(t, Desc, state.Dir)
	assert.Equal(t, 10, state.Size)
	assert.Equal(t, 3, state.Page)
}

func TestStateQueryCodec(t *testing.T) {
	c := New(rowSchema(), fiftyRows())
	values := url.Values{
		"q":        {"guard"},
		"status":   {"INACTIVE"},
		"type":     {"all"},
		"category": {""},
		"sort":     {"assigned"},
		"dir":      {"DESC"},
		"page":     {"2"},
		"size":     {"abc"},
	}

	s := ParseState(values, c.Dimensions())

	assert.Equal(t, "guard", s.Search)
	assert.Equal(t, map[string]string{"status": "INACTIVE"}, s.Filters)
	assert.Equal(t, "assigned", s.Sort)
	assert.Equal(t, Desc, s.Dir)
	assert.Equal(t, 2, s.Page)
	assert.Zero(t, s.Size)
	assert.Equal(t, "dir=desc&page=2&q=guard&sort=assigned&status=INACTIVE", s.Encode())
}

func TestParseStateStrict(t *testing.T) {
	dims := []string{"status", "type", "category"}

	s, err := ParseStateStrict(url.Values{"dir": {"DESC"}, "page": {"3"}, "size": {"25"}, "status": {"ACTIVE"}}, dims)
	require.NoError(t, err)
	assert.Equal(t, State{Dir: Desc, Page: 3, Size: 25, Filters: map[string]string{"status": "ACTIVE"}}, s)

	cases := map[string]struct {
		values url.Values
		want   error
	}{
		"direction": {url.Values{"sort": {"name"}, "dir": {"sideways"}}, ErrDirection},
		"page":      {url.Values{"page": {"abc"}}, ErrPage},
		"size":      {url.Values{"size": {"abc"}}, ErrPageSize},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := ParseStateStrict(tc.values, dims)
			assert.ErrorIs(t, err, tc.want)

			lenient := ParseState(tc.values, dims)
			assert.Zero(t, lenient.Page)
			assert.Zero(t, lenient.Size)
			assert.Empty(t, lenient.Dir)
		})
	}

	_, err = ParseStateStrict(url.Values{"dir": {"up"}, "page": {"x"}}, dims)
	assert.ErrorIs(t, err, ErrDirection)
	assert.ErrorIs(t, err, ErrPage)
}

func TestToggleSortOnState(t *testing.T) {
	s := State{Sort: "name", Dir: Asc, Page: 4, Filters: map[string]string{"status": "ACTIVE"}}

	flipped := s.ToggleSort("name")
	assert.Equal(t, Desc, flipped.Dir)
	assert.Equal(t, 4, flipped.Page)

	other := flipped.ToggleSort("created")
	assert.Equal(t, "created", other.Sort)
	assert.Equal(t, Asc, other.Dir)

	other.Filters["status"] = "INACTIVE"
	assert.Equal(t, "ACTIVE", s.Filters["status"])
}
