package models

import "fmt"

// Platform identifies the advertising platform an account belongs to.
type Platform string

const (
	PlatformMeta   Platform = "meta"
	PlatformGoogle Platform = "google"
)

// Valid reports whether p is a supported platform.
func (p Platform) Valid() bool {
	return p == PlatformMeta || p == PlatformGoogle
}

// DisplayName returns the human readable platform name.
func (p Platform) DisplayName() string {
	switch p {
	case PlatformMeta:
		return "Meta Ads"
	case PlatformGoogle:
		return "Google Ads"
	default:
		return string(p)
	}
}

// TemplateKind selects which extra metrics a report emphasises.
type TemplateKind string

const (
	TemplateLeads TemplateKind = "leads"
	TemplateSales TemplateKind = "sales"
	TemplateReach TemplateKind = "reach"
)

// ParseTemplateKind validates a template name.
func ParseTemplateKind(s string) (TemplateKind, error) {
	switch k := TemplateKind(s); k {
	case TemplateLeads, TemplateSales, TemplateReach:
		return k, nil
	default:
		return "", fmt.Errorf("unknown template type %q", s)
	}
}

// Title is the capitalised template name used in report names.
func (k TemplateKind) Title() string {
	switch k {
	case TemplateLeads:
		return "Leads"
	case TemplateSales:
		return "Sales"
	case TemplateReach:
		return "Reach"
	default:
		return string(k)
	}
}
