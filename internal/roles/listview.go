package roles

import (
	"strings"

	"github.com/societyhub/societyhub/internal/shared"
	"github.com/societyhub/societyhub/internal/tabular"
)

// listView drives pages/roles/list.html.
type listView struct {
	Rows               []rowView
	Columns            []columnView
	PageSizes          []sizeView
	Pagination         shared.Pagination
	PageLinks          []pageLink
	PrevURL            string
	NextURL            string
	State              tabular.State
	Hidden             map[string]string
	TotalMatching      int
	SelectedCount      int
	AllVisibleSelected bool
	CanEdit            bool
	Actions            []BulkAction
}

type rowView struct {
	Role     Role
	Selected bool
}

type columnView struct {
	Label  string
	Field  string
	URL    string
	Active bool
	Dir    string
}

type sizeView struct {
	Size     int
	Selected bool
}

type pageLink struct {
	Number  int
	URL     string
	Current bool
}

type filterView struct {
	Name    string
	Label   string
	Options []optionView
}

type optionView struct {
	Value    string
	Label    string
	Selected bool
}

var columns = []struct{ label, field string }{
	{"Role", SortName},
	{"Category", SortCategory},
	{"Type", SortType},
	{"Status", SortStatus},
	{"Assigned", SortAssigned},
	{"Updated", SortUpdated},
}

func buildListView(t *Table, state tabular.State, canEdit bool) listView {
	page := t.VisiblePage()
	state = state.WithPage(page.PageIndex)

	lv := listView{
		Pagination:         shared.NewPagination(page.PageIndex, state.Size, page.TotalMatching),
		State:              state,
		Hidden:             hiddenFields(state),
		TotalMatching:      page.TotalMatching,
		SelectedCount:      len(t.Selected()),
		AllVisibleSelected: t.AllVisibleSelected(),
		CanEdit:            canEdit,
		Actions:            []BulkAction{ActionActivate, ActionDeactivate, ActionDuplicate, ActionDelete},
	}
	for _, role := range page.Records {
		lv.Rows = append(lv.Rows, rowView{Role: role, Selected: t.IsSelected(role.Key())})
	}
	for _, c := range columns {
		col := columnView{Label: c.label, Field: c.field, URL: listURL(state.ToggleSort(c.field))}
		if state.Sort == c.field {
			col.Active = true
			col.Dir = string(state.Dir)
		}
		lv.Columns = append(lv.Columns, col)
	}
	for _, size := range t.PageSizes() {
		lv.PageSizes = append(lv.PageSizes, sizeView{Size: size, Selected: size == state.Size})
	}
	for _, n := range lv.Pagination.Pages {
		lv.PageLinks = append(lv.PageLinks, pageLink{Number: n, URL: listURL(state.WithPage(n)), Current: n == page.PageIndex})
	}
	if lv.Pagination.HasPrev() {
		lv.PrevURL = listURL(state.WithPage(lv.Pagination.Prev()))
	}
	if lv.Pagination.HasNext() {
		lv.NextURL = listURL(state.WithPage(lv.Pagination.Next()))
	}
	return lv
}

// hiddenFields carries the view state through POST forms.
func hiddenFields(state tabular.State) map[string]string {
	out := make(map[string]string)
	for key, values := range state.Values() {
		if len(values) > 0 {
			out[key] = values[0]
		}
	}
	return out
}

func buildFilterViews(state tabular.State) []filterView {
	statusOpts := []optionView{{Value: tabular.AllValues, Label: "All statuses"}}
	for _, s := range []Status{StatusActive, StatusInactive} {
		statusOpts = append(statusOpts, optionView{Value: string(s), Label: s.Label()})
	}
	typeOpts := []optionView{{Value: tabular.AllValues, Label: "All types"}}
	for _, t := range []Type{TypeSystem, TypeCustom} {
		typeOpts = append(typeOpts, optionView{Value: string(t), Label: t.Label()})
	}
	categoryOpts := []optionView{{Value: tabular.AllValues, Label: "All categories"}}
	for _, c := range Categories() {
		categoryOpts = append(categoryOpts, optionView{Value: c, Label: c})
	}

	filters := []filterView{
		{Name: DimStatus, Label: "Status", Options: statusOpts},
		{Name: DimType, Label: "Type", Options: typeOpts},
		{Name: DimCategory, Label: "Category", Options: categoryOpts},
	}
	for i := range filters {
		active := state.Filter(filters[i].Name)
		for j := range filters[i].Options {
			opt := &filters[i].Options[j]
			opt.Selected = equalFoldOrAll(opt.Value, active)
		}
	}
	return filters
}

func equalFoldOrAll(option, active string) bool {
	if option == tabular.AllValues {
		return active == tabular.AllValues
	}
	return strings.EqualFold(option, active)
}
