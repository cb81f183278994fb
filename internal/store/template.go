// Package store provides the versioned template store. Templates are
// append-only aggregates: every change creates a new immutable version and
// advances the current-version pointer, so a template's full lineage is
// always readable from a single record.
package store

import (
	"encoding/json"
	"time"
)

// Template types. "custom" is the catch-all for user-defined review flows.
const (
	TypeDesignReview = "design-review"
	TypeDataModel    = "data-model"
	TypePerformance  = "performance"
	TypeMigration    = "migration"
	TypeCustom       = "custom"
)

// Template statuses.
const (
	StatusDraft     = "draft"
	StatusPublished = "published"
	StatusArchived  = "archived"
)

// ValidTypes lists the accepted template types.
var ValidTypes = []string{TypeDesignReview, TypeDataModel, TypePerformance, TypeMigration, TypeCustom}

// ValidStatuses lists the accepted template statuses.
var ValidStatuses = []string{StatusDraft, StatusPublished, StatusArchived}

// Template is the full aggregate: identity, mutable metadata, and the
// append-only version history.
type Template struct {
	TemplateID     string            `json:"templateId"`
	Name           string            `json:"name"`
	Description    string            `json:"description"`
	Type           string            `json:"type"`
	Status         string            `json:"status"`
	Tags           []string          `json:"tags"`
	CurrentVersion string            `json:"currentVersion"`
	Versions       []TemplateVersion `json:"versions"`
	Metadata       map[string]any    `json:"metadata,omitempty"`
	CreatedAt      time.Time         `json:"createdAt"`
	UpdatedAt      time.Time         `json:"updatedAt"`
}

// TemplateVersion is one immutable content snapshot. Once appended its
// content never changes; corrections append a new version.
type TemplateVersion struct {
	Version   string    `json:"version"`
	Content   Content   `json:"content"`
	CreatedAt time.Time `json:"createdAt"`
	CreatedBy string    `json:"createdBy"`
	Changelog string    `json:"changelog,omitempty"`
}

// Content is the question/section schema for one template version. Known
// fields are typed; any other keys in the stored payload are preserved
// verbatim in Extra so round-tripping never loses authoring data.
type Content struct {
	Sections               []Section
	GlobalPromptContext    string
	AnalysisPromptTemplate string
	Extra                  map[string]json.RawMessage
}

// Section groups questions under a titled heading.
type Section struct {
	ID        string     `json:"id"`
	Title     string     `json:"title"`
	Questions []Question `json:"questions"`
}

// Question is one schema entry. PromptContext carries the authoring-supplied
// analysis guidance included in the generated prompt.
type Question struct {
	ID            string   `json:"id"`
	Label         string   `json:"label"`
	Type          string   `json:"type,omitempty"`
	Required      bool     `json:"required,omitempty"`
	Options       []string `json:"options,omitempty"`
	PromptContext string   `json:"promptContext,omitempty"`
}

// contentKnown mirrors Content's typed fields for JSON round-tripping.
type contentKnown struct {
	Sections               []Section `json:"sections"`
	GlobalPromptContext    string    `json:"globalPromptContext,omitempty"`
	AnalysisPromptTemplate string    `json:"analysisPromptTemplate,omitempty"`
}

// knownContentKeys are stripped from Extra so typed fields stay authoritative.
var knownContentKeys = map[string]bool{
	"sections":               true,
	"globalPromptContext":    true,
	"analysisPromptTemplate": true,
}

// UnmarshalJSON decodes known fields into their typed slots and stashes
// every other key in Extra.
func (c *Content) UnmarshalJSON(data []byte) error {
	var known contentKnown
	if err := json.Unmarshal(data, &known); err != nil {
		return err
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	for k := range knownContentKeys {
		delete(raw, k)
	}
	if len(raw) == 0 {
		raw = nil
	}

	c.Sections = known.Sections
	c.GlobalPromptContext = known.GlobalPromptContext
	c.AnalysisPromptTemplate = known.AnalysisPromptTemplate
	c.Extra = raw
	return nil
}

// MarshalJSON emits typed fields plus preserved Extra keys as one object.
func (c Content) MarshalJSON() ([]byte, error) {
	sections := c.Sections
	if sections == nil {
		sections = []Section{}
	}

	out := make(map[string]json.RawMessage, len(c.Extra)+3)
	for k, v := range c.Extra {
		out[k] = v
	}

	sec, err := json.Marshal(sections)
	if err != nil {
		return nil, err
	}
	out["sections"] = sec
	if c.GlobalPromptContext != "" {
		gpc, err := json.Marshal(c.GlobalPromptContext)
		if err != nil {
			return nil, err
		}
		out["globalPromptContext"] = gpc
	}
	if c.AnalysisPromptTemplate != "" {
		apt, err := json.Marshal(c.AnalysisPromptTemplate)
		if err != nil {
			return nil, err
		}
		out["analysisPromptTemplate"] = apt
	}
	return json.Marshal(out)
}

// Normalize fills schema defaults so callers never see an undefined schema.
func (c *Content) Normalize() {
	if c.Sections == nil {
		c.Sections = []Section{}
	}
	for i := range c.Sections {
		if c.Sections[i].Questions == nil {
			c.Sections[i].Questions = []Question{}
		}
	}
}

// Clone returns a deep copy of the content. Stored versions are immutable,
// so everything handed to callers is copied.
func (c Content) Clone() Content {
	out := Content{
		GlobalPromptContext:    c.GlobalPromptContext,
		AnalysisPromptTemplate: c.AnalysisPromptTemplate,
	}
	if c.Sections != nil {
		out.Sections = make([]Section, len(c.Sections))
		for i, s := range c.Sections {
			cs := s
			if s.Questions != nil {
				cs.Questions = make([]Question, len(s.Questions))
				copy(cs.Questions, s.Questions)
				for j, q := range s.Questions {
					if q.Options != nil {
						opts := make([]string, len(q.Options))
						copy(opts, q.Options)
						cs.Questions[j].Options = opts
					}
				}
			}
			out.Sections[i] = cs
		}
	}
	if c.Extra != nil {
		out.Extra = make(map[string]json.RawMessage, len(c.Extra))
		for k, v := range c.Extra {
			cp := make(json.RawMessage, len(v))
			copy(cp, v)
			out.Extra[k] = cp
		}
	}
	return out
}

// Clone returns a deep copy of the aggregate.
func (t *Template) Clone() *Template {
	out := *t
	if t.Tags != nil {
		out.Tags = make([]string, len(t.Tags))
		copy(out.Tags, t.Tags)
	}
	if t.Versions != nil {
		out.Versions = make([]TemplateVersion, len(t.Versions))
		for i, v := range t.Versions {
			cv := v
			cv.Content = v.Content.Clone()
			out.Versions[i] = cv
		}
	}
	if t.Metadata != nil {
		out.Metadata = make(map[string]any, len(t.Metadata))
		for k, v := range t.Metadata {
			out.Metadata[k] = v
		}
	}
	return &out
}

// Version returns the named version entry, or nil if absent.
func (t *Template) Version(version string) *TemplateVersion {
	for i := range t.Versions {
		if t.Versions[i].Version == version {
			return &t.Versions[i]
		}
	}
	return nil
}

// Summary is the list-view projection of a template: metadata without
// version content payloads.
type Summary struct {
	TemplateID     string    `json:"templateId"`
	Name           string    `json:"name"`
	Description    string    `json:"description"`
	Type           string    `json:"type"`
	Status         string    `json:"status"`
	Tags           []string  `json:"tags"`
	CurrentVersion string    `json:"currentVersion"`
	VersionCount   int       `json:"versionCount"`
	CreatedAt      time.Time `json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

// VersionInfo is one history entry: version metadata without content.
type VersionInfo struct {
	Version   string    `json:"version"`
	CreatedAt time.Time `json:"createdAt"`
	CreatedBy string    `json:"createdBy"`
	Changelog string    `json:"changelog,omitempty"`
}

// Resolved is a template aggregate paired with the content of one resolved
// version, normalized for callers.
type Resolved struct {
	Template
	ResolvedVersion string  `json:"resolvedVersion"`
	Content         Content `json:"currentContent"`
}
