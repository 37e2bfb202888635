package roles

import (
	_ "embed"
	"fmt"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/societyhub/societyhub/internal/shared"
)

//go:embed seed.yaml
var seedCatalogue []byte

// Template is one entry of the seed catalogue.
type Template struct {
	Name         string              `yaml:"name"`
	Category     string              `yaml:"category"`
	Description  string              `yaml:"description"`
	System       bool                `yaml:"system"`
	Capabilities []shared.Capability `yaml:"capabilities"`
}

// LoadTemplates parses the embedded catalogue and checks every capability.
func LoadTemplates() ([]Template, error) {
	var doc struct {
		Templates []Template `yaml:"templates"`
	}
	if err := yaml.Unmarshal(seedCatalogue, &doc); err != nil {
		return nil, fmt.Errorf("roles: parse seed catalogue: %w", err)
	}
	if len(doc.Templates) == 0 {
		return nil, fmt.Errorf("roles: seed catalogue is empty")
	}
	for _, tpl := range doc.Templates {
		for _, c := range tpl.Capabilities {
			if !c.Valid() {
				return nil, fmt.Errorf("roles: template %q: unknown capability %q", tpl.Name, c)
			}
		}
	}
	return doc.Templates, nil
}

// Generate builds n roles for a society. The first pass uses each template
// once; later passes add numbered custom variants. Output depends only on
// the arguments, so repeated seeding produces the same catalogue.
func Generate(templates []Template, n int, societyID int64, now time.Time) []Role {
	if n <= 0 || len(templates) == 0 {
		return []Role{}
	}
	out := make([]Role, 0, n)
	for i := 0; i < n; i++ {
		tpl := templates[i%len(templates)]
		round := i / len(templates)

		role := Role{
			ID:            int64(i + 1),
			SocietyID:     societyID,
			Name:          tpl.Name,
			Description:   tpl.Description,
			Category:      tpl.Category,
			Status:        StatusActive,
			Type:          TypeCustom,
			AssignedCount: (i*7 + 3) % 23,
			Capabilities:  append([]shared.Capability(nil), tpl.Capabilities...),
			CreatedAt:     now.Add(-time.Duration(n-i) * time.Hour).UTC(),
		}
		role.UpdatedAt = role.CreatedAt.Add(time.Duration(i%5) * time.Minute)
		if round > 0 {
			role.Name = fmt.Sprintf("%s %d", tpl.Name, round+1)
		} else if tpl.System {
			role.Type = TypeSystem
		}
		if role.Type == TypeCustom && i%3 == 2 {
			role.Status = StatusInactive
		}
		out = append(out, role)
	}
	return out
}
