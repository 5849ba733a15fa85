// Package security maps roles to the operations they may perform.
// Capabilities are resolved once per request and carried in the user context.
package security

import "sort"

// Capability names one permitted operation.
type Capability string

const (
	CapDocumentsRead    Capability = "documents:read"
	CapDocumentsWrite   Capability = "documents:write"
	CapDocumentsConfirm Capability = "documents:confirm"
	CapDocumentsRevert  Capability = "documents:revert"

	CapProductionOperate Capability = "production:operate"
	CapProductionRevert  Capability = "production:revert"
	CapProductionDelete  Capability = "production:hard_delete"

	CapCatalogsWrite Capability = "catalogs:write"
	CapStockRead     Capability = "stock:read"
	CapMaintenance   Capability = "maintenance:recompute"
)

// Role names used in tokens.
const (
	RoleAdmin       = "admin"
	RoleManager     = "manager"
	RoleStorekeeper = "storekeeper"
	RoleProduction  = "production"
	RoleViewer      = "viewer"
)

var roleCapabilities = map[string][]Capability{
	RoleAdmin: {
		CapDocumentsRead, CapDocumentsWrite, CapDocumentsConfirm, CapDocumentsRevert,
		CapProductionOperate, CapProductionRevert, CapProductionDelete,
		CapCatalogsWrite, CapStockRead, CapMaintenance,
	},
	RoleManager: {
		CapDocumentsRead, CapDocumentsWrite, CapDocumentsConfirm, CapDocumentsRevert,
		CapProductionOperate, CapCatalogsWrite, CapStockRead,
	},
	RoleStorekeeper: {
		CapDocumentsRead, CapDocumentsWrite, CapDocumentsConfirm, CapStockRead,
	},
	RoleProduction: {
		CapDocumentsRead, CapProductionOperate, CapStockRead,
	},
	RoleViewer: {
		CapDocumentsRead, CapStockRead,
	},
}

// CapabilitySet is an immutable set of capabilities.
type CapabilitySet map[Capability]struct{}

// Resolve unions the capabilities of every known role. Unknown roles grant nothing.
func Resolve(roles []string) CapabilitySet {
	set := make(CapabilitySet)
	for _, role := range roles {
		for _, c := range roleCapabilities[role] {
			set[c] = struct{}{}
		}
	}
	return set
}

// All returns every capability; used for internal system actors.
func All() CapabilitySet {
	return Resolve([]string{RoleAdmin})
}

// Has reports whether c is in the set.
func (s CapabilitySet) Has(c Capability) bool {
	_, ok := s[c]
	return ok
}

// List returns the capabilities sorted by name.
func (s CapabilitySet) List() []Capability {
	out := make([]Capability, 0, len(s))
	for c := range s {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
