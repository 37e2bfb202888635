package rbac

import "github.com/societyhub/societyhub/internal/shared"

// Permission represents an atomic capability.
type Permission struct {
	Name        shared.Capability
	Description string
}

// Catalogue returns every capability a role can grant.
func Catalogue() []Permission {
	caps := shared.Capabilities()
	perms := make([]Permission, 0, len(caps))
	for _, c := range caps {
		perms = append(perms, Permission{Name: c, Description: c.Description()})
	}
	return perms
}
