// Package model defines the persisted record shapes for tenants and their
// registry components.
package model

// ItemType identifies the kind of installable registry item.
type ItemType string

const (
	ItemTypeBlock     ItemType = "registry:block"
	ItemTypeComponent ItemType = "registry:component"
	ItemTypeLib       ItemType = "registry:lib"
	ItemTypeHook      ItemType = "registry:hook"
	ItemTypeUI        ItemType = "registry:ui"
	ItemTypePage      ItemType = "registry:page"
	ItemTypeFile      ItemType = "registry:file"
	ItemTypeStyle     ItemType = "registry:style"
	ItemTypeTheme     ItemType = "registry:theme"
)

// ItemTypes lists every valid registry item type.
var ItemTypes = []ItemType{
	ItemTypeBlock,
	ItemTypeComponent,
	ItemTypeLib,
	ItemTypeHook,
	ItemTypeUI,
	ItemTypePage,
	ItemTypeFile,
	ItemTypeStyle,
	ItemTypeTheme,
}

// Valid reports whether t is one of the known registry item types.
func (t ItemType) Valid() bool {
	for _, known := range ItemTypes {
		if t == known {
			return true
		}
	}
	return false
}

// File is one source file carried by a component. Target is only meaningful
// for page and file type items, where it names the install destination.
type File struct {
	Path    string `json:"path"`
	Type    string `json:"type,omitempty"`
	Content string `json:"content,omitempty"`
	Target  string `json:"target,omitempty"`
}

// CSSVars holds theme variable maps keyed by mode.
type CSSVars struct {
	Light map[string]string `json:"light,omitempty"`
	Dark  map[string]string `json:"dark,omitempty"`
	Theme map[string]string `json:"theme,omitempty"`
}

// Component is one installable unit within a tenant's registry. Name is the
// unique key within the tenant; it doubles as the second segment of the
// component's dedicated key-value key.
type Component struct {
	Name         string   `json:"name"`
	Type         ItemType `json:"type,omitempty"`
	Description  string   `json:"description,omitempty"`
	Author       string   `json:"author,omitempty"`
	Docs         string   `json:"docs,omitempty"`
	Dependencies []string `json:"dependencies,omitempty"`

	// RegistryDependencies are intra-tenant references by component name.
	// They are not validated for existence; dangling references are allowed.
	RegistryDependencies []string `json:"registryDependencies,omitempty"`

	Files   []File   `json:"files,omitempty"`
	CSSVars *CSSVars `json:"cssVars,omitempty"`
}

// Empty reports whether the component carries no data at all. Empty entries
// are dropped from aggregates during normalization.
func (c Component) Empty() bool {
	return c.Name == "" &&
		c.Type == "" &&
		c.Description == "" &&
		c.Author == "" &&
		c.Docs == "" &&
		len(c.Dependencies) == 0 &&
		len(c.RegistryDependencies) == 0 &&
		len(c.Files) == 0 &&
		c.CSSVars == nil
}

// Tenant is the aggregate record for one published registry, stored under
// tenant:<id>. Registry order is display order.
type Tenant struct {
	Icon        string      `json:"emoji"`
	CreatedAt   int64       `json:"createdAt"`
	Registry    []Component `json:"registry"`
	Name        string      `json:"name,omitempty"`
	Description string      `json:"description,omitempty"`
}

// TenantSummary is one row of the administrative directory listing. It is
// derived from the aggregate record and tolerates unreadable records by
// falling back to placeholder values.
type TenantSummary struct {
	ID              string `json:"subdomain"`
	Icon            string `json:"emoji"`
	CreatedAt       int64  `json:"createdAt"`
	ComponentsCount int    `json:"componentsCount"`
	Name            string `json:"name"`
	Description     string `json:"description"`
}
