package roles

import (
	"time"

	"github.com/societyhub/societyhub/internal/tabular"
)

// Table is the list view controller over roles.
type Table = tabular.Controller[Role]

// Sortable field names.
const (
	SortName     = "name"
	SortCategory = "category"
	SortStatus   = "status"
	SortType     = "type"
	SortAssigned = "assigned"
	SortCreated  = "created"
	SortUpdated  = "updated"
)

// Filter dimension names.
const (
	DimStatus   = "status"
	DimType     = "type"
	DimCategory = "category"
)

const (
	tallyActive = "active"
	tallySystem = "system"
	tallyCustom = "custom"
)

// Schema describes how the list view reads roles.
func Schema() tabular.Schema[Role] {
	return tabular.Schema[Role]{
		ID: Role.Key,
		Search: []func(Role) string{
			func(r Role) string { return r.Name },
			func(r Role) string { return r.Description },
			func(r Role) string { return r.Category },
		},
		Dimensions: map[string]func(Role) string{
			DimStatus:   func(r Role) string { return string(r.Status) },
			DimType:     func(r Role) string { return string(r.Type) },
			DimCategory: func(r Role) string { return r.Category },
		},
		Fields: []tabular.Field[Role]{
			{Name: SortName, Kind: tabular.KindText, Text: func(r Role) string { return r.Name }},
			{Name: SortCategory, Kind: tabular.KindText, Text: func(r Role) string { return r.Category }},
			{Name: SortStatus, Kind: tabular.KindText, Text: func(r Role) string { return string(r.Status) }},
			{Name: SortType, Kind: tabular.KindText, Text: func(r Role) string { return string(r.Type) }},
			{Name: SortAssigned, Kind: tabular.KindNumber, Number: func(r Role) float64 { return float64(r.AssignedCount) }},
			{Name: SortCreated, Kind: tabular.KindTime, Time: func(r Role) time.Time { return r.CreatedAt }},
			{Name: SortUpdated, Kind: tabular.KindTime, Time: func(r Role) time.Time { return r.UpdatedAt }},
		},
		Tallies: map[string]func(Role) bool{
			tallyActive: func(r Role) bool { return r.Status == StatusActive },
			tallySystem: func(r Role) bool { return r.Type == TypeSystem },
			tallyCustom: func(r Role) bool { return r.Type == TypeCustom },
		},
		PageSizes:       tabular.DefaultPageSizes,
		DefaultPageSize: tabular.DefaultPageSize,
	}
}

// NewTable builds a list controller over records.
func NewTable(records []Role) *Table {
	return tabular.New(Schema(), records)
}

// StatsOf maps the table summary onto role statistics.
func StatsOf(t *Table) Stats {
	s := t.Summary()
	return Stats{
		Total:  s.Total,
		Active: s.Counts[tallyActive],
		System: s.Counts[tallySystem],
		Custom: s.Counts[tallyCustom],
	}
}
