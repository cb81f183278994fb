package store

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/mod/semver"

	"github.com/mrlynn/design-reviewer-backend/internal/apperr"
)

// InitialVersion seeds every new template's history.
const InitialVersion = "1.0.0"

// Store is the durable versioned template store.
//
// Update and Revert guard on currentVersion: two writers racing on the same
// template with the same observed version cannot both advance it - the loser
// gets a Conflict error and must re-read. Reads are never blocked by writes.
type Store interface {
	// Create validates the input, generates a fresh templateId, and seeds
	// the history with version 1.0.0.
	Create(ctx context.Context, in CreateInput) (*Template, error)

	// Update appends a new version (minor bump of currentVersion), applies
	// any supplied metadata changes, and advances currentVersion. Fields
	// omitted in the input retain their prior values.
	Update(ctx context.Context, templateID string, in UpdateInput) (*Template, error)

	// Get resolves the requested version (currentVersion when version is
	// empty) and returns the aggregate with that version's content
	// normalized.
	Get(ctx context.Context, templateID, version string) (*Resolved, error)

	// List returns summaries matching the filter, most recently updated
	// first. Content payloads are excluded.
	List(ctx context.Context, f Filter) ([]Summary, error)

	// History returns version metadata sorted newest-first by semantic
	// version, not insertion order.
	History(ctx context.Context, templateID string) ([]VersionInfo, error)

	// Revert appends a new version whose content copies targetVersion's
	// content. History is never rewritten.
	Revert(ctx context.Context, templateID, targetVersion, author string) (*Template, error)

	// Delete removes the whole aggregate atomically. Administrative only -
	// normal retirement is a status change to archived.
	Delete(ctx context.Context, templateID string) error

	// Healthy reports whether the backing storage is usable.
	Healthy(ctx context.Context) error

	// Close releases backing resources.
	Close() error
}

// CreateInput is the payload for Store.Create.
type CreateInput struct {
	Name        string
	Description string
	Type        string
	Status      string
	Tags        []string
	Content     Content
	Metadata    map[string]any
	Author      string
}

// UpdateInput is the payload for Store.Update. Pointer fields distinguish
// "not supplied" from "set to the zero value".
type UpdateInput struct {
	Name        *string
	Description *string
	Type        *string
	Status      *string
	Tags        []string
	Content     *Content
	Metadata    map[string]any
	Changelog   string
	Author      string

	// ExpectedVersion optionally pins the update to an observed
	// currentVersion. When set and stale, the update fails with Conflict.
	// When empty the store guards on the version it read itself.
	ExpectedVersion string
}

// Filter selects templates in Store.List.
type Filter struct {
	Status string
	Type   string
	Tags   []string
	Search string
}

// Matches reports whether the template satisfies every filter clause.
// Search is a case-insensitive substring match over name, description,
// and tags. Tags require membership of every requested tag.
func (f Filter) Matches(t *Template) bool {
	if f.Status != "" && t.Status != f.Status {
		return false
	}
	if f.Type != "" && t.Type != f.Type {
		return false
	}
	for _, want := range f.Tags {
		if !containsString(t.Tags, want) {
			return false
		}
	}
	if f.Search != "" {
		needle := strings.ToLower(f.Search)
		if !strings.Contains(strings.ToLower(t.Name), needle) &&
			!strings.Contains(strings.ToLower(t.Description), needle) &&
			!anyTagContains(t.Tags, needle) {
			return false
		}
	}
	return true
}

func containsString(haystack []string, want string) bool {
	for _, s := range haystack {
		if s == want {
			return true
		}
	}
	return false
}

func anyTagContains(tags []string, needle string) bool {
	for _, tag := range tags {
		if strings.Contains(strings.ToLower(tag), needle) {
			return true
		}
	}
	return false
}

// NewTemplateID generates a fresh globally unique template identifier.
func NewTemplateID() string {
	return "template-" + uuid.NewString()
}

// CompareVersions orders two semantic version strings. Negative means a < b.
func CompareVersions(a, b string) int {
	return semver.Compare("v"+a, "v"+b)
}

// NextMinorVersion increments the minor component, leaving major and patch
// unchanged: "1.2.3" -> "1.3.3".
func NextMinorVersion(version string) (string, error) {
	parts := strings.Split(version, ".")
	if len(parts) != 3 {
		return "", fmt.Errorf("malformed version %q", version)
	}
	minor, err := strconv.Atoi(parts[1])
	if err != nil {
		return "", fmt.Errorf("malformed minor component in %q: %w", version, err)
	}
	return parts[0] + "." + strconv.Itoa(minor+1) + "." + parts[2], nil
}

// validateCreate applies required-field and enum checks, filling defaults.
func validateCreate(in *CreateInput) error {
	if strings.TrimSpace(in.Name) == "" {
		return apperr.New(apperr.KindValidation, "name is required")
	}
	if strings.TrimSpace(in.Description) == "" {
		return apperr.New(apperr.KindValidation, "description is required")
	}
	if in.Type == "" {
		in.Type = TypeDesignReview
	}
	if !containsString(ValidTypes, in.Type) {
		return apperr.Newf(apperr.KindValidation, "unknown template type %q", in.Type)
	}
	if in.Status == "" {
		in.Status = StatusDraft
	}
	if !containsString(ValidStatuses, in.Status) {
		return apperr.Newf(apperr.KindValidation, "unknown template status %q", in.Status)
	}
	if in.Tags == nil {
		in.Tags = []string{}
	}
	if in.Author == "" {
		in.Author = "system"
	}
	return nil
}

// validateUpdate checks enum fields supplied in an update.
func validateUpdate(in *UpdateInput) error {
	if in.Type != nil && !containsString(ValidTypes, *in.Type) {
		return apperr.Newf(apperr.KindValidation, "unknown template type %q", *in.Type)
	}
	if in.Status != nil && !containsString(ValidStatuses, *in.Status) {
		return apperr.Newf(apperr.KindValidation, "unknown template status %q", *in.Status)
	}
	if in.Author == "" {
		in.Author = "system"
	}
	return nil
}

// newAggregate builds the initial aggregate for Create.
func newAggregate(in CreateInput, now time.Time) *Template {
	content := in.Content.Clone()
	content.Normalize()
	return &Template{
		TemplateID:     NewTemplateID(),
		Name:           in.Name,
		Description:    in.Description,
		Type:           in.Type,
		Status:         in.Status,
		Tags:           in.Tags,
		CurrentVersion: InitialVersion,
		Versions: []TemplateVersion{{
			Version:   InitialVersion,
			Content:   content,
			CreatedAt: now,
			CreatedBy: in.Author,
			Changelog: "Initial version",
		}},
		Metadata:  in.Metadata,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// applyUpdate appends the next version to a copy of the aggregate and
// applies supplied metadata fields. The input aggregate is not mutated.
func applyUpdate(t *Template, in UpdateInput, now time.Time) (*Template, error) {
	next, err := NextMinorVersion(t.CurrentVersion)
	if err != nil {
		return nil, err
	}

	out := t.Clone()
	var content Content
	if in.Content != nil {
		content = in.Content.Clone()
	} else if cur := out.Version(out.CurrentVersion); cur != nil {
		content = cur.Content.Clone()
	}
	content.Normalize()

	changelog := in.Changelog
	if changelog == "" {
		changelog = "Updated to version " + next
	}

	out.Versions = append(out.Versions, TemplateVersion{
		Version:   next,
		Content:   content,
		CreatedAt: now,
		CreatedBy: in.Author,
		Changelog: changelog,
	})
	out.CurrentVersion = next

	if in.Name != nil {
		out.Name = *in.Name
	}
	if in.Description != nil {
		out.Description = *in.Description
	}
	if in.Type != nil {
		out.Type = *in.Type
	}
	if in.Status != nil {
		out.Status = *in.Status
	}
	if in.Tags != nil {
		out.Tags = in.Tags
	}
	if in.Metadata != nil {
		out.Metadata = in.Metadata
	}
	out.UpdatedAt = now
	return out, nil
}

// resolve picks the requested version out of an aggregate and returns the
// caller-facing view with normalized content.
func resolve(t *Template, version string) (*Resolved, error) {
	target := version
	if target == "" {
		target = t.CurrentVersion
	}
	entry := t.Version(target)
	if entry == nil {
		if version == "" {
			return nil, apperr.Newf(apperr.KindInternal, "template %s currentVersion %s missing from history", t.TemplateID, target)
		}
		return nil, apperr.Newf(apperr.KindVersionNotFound, "version %s not found for template %s", version, t.TemplateID)
	}
	content := entry.Content.Clone()
	content.Normalize()
	return &Resolved{
		Template:        *t.Clone(),
		ResolvedVersion: entry.Version,
		Content:         content,
	}, nil
}

// summarize projects an aggregate to its list view.
func summarize(t *Template) Summary {
	tags := t.Tags
	if tags == nil {
		tags = []string{}
	}
	return Summary{
		TemplateID:     t.TemplateID,
		Name:           t.Name,
		Description:    t.Description,
		Type:           t.Type,
		Status:         t.Status,
		Tags:           tags,
		CurrentVersion: t.CurrentVersion,
		VersionCount:   len(t.Versions),
		CreatedAt:      t.CreatedAt,
		UpdatedAt:      t.UpdatedAt,
	}
}

// historyOf projects version metadata sorted newest-first by semver.
func historyOf(t *Template) []VersionInfo {
	out := make([]VersionInfo, 0, len(t.Versions))
	for _, v := range t.Versions {
		out = append(out, VersionInfo{
			Version:   v.Version,
			CreatedAt: v.CreatedAt,
			CreatedBy: v.CreatedBy,
			Changelog: v.Changelog,
		})
	}
	sort.SliceStable(out, func(i, j int) bool {
		return CompareVersions(out[i].Version, out[j].Version) > 0
	})
	return out
}

// sortSummaries orders list results most recently updated first.
func sortSummaries(out []Summary) {
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].UpdatedAt.After(out[j].UpdatedAt)
	})
}
