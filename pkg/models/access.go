package models

// AccessMode decides how multiple required grants combine.
type AccessMode string

const (
	AccessAll AccessMode = "all"
	AccessAny AccessMode = "any"
)

// RouteRule restricts a page route to holders of the listed grants.
// Route may end in "*" to match a prefix.
type RouteRule struct {
	Route       string     `json:"route" yaml:"route"`
	Permissions []string   `json:"permissions,omitempty" yaml:"permissions,omitempty"`
	Roles       []string   `json:"roles,omitempty" yaml:"roles,omitempty"`
	Mode        AccessMode `json:"mode,omitempty" yaml:"mode,omitempty"`
}
