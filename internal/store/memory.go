package store

import (
	"context"
	"sync"
	"time"

	"github.com/mrlynn/design-reviewer-backend/internal/apperr"
)

// Memory is an in-process Store used for tests and ephemeral dev mode.
// Aggregates are stored as immutable snapshots: reads hand out copies and
// writes replace the snapshot, so readers are never blocked by writers.
type Memory struct {
	mu        sync.RWMutex
	templates map[string]*Template

	// now is swappable for deterministic tests.
	now func() time.Time
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		templates: make(map[string]*Template),
		now:       time.Now,
	}
}

var _ Store = (*Memory)(nil)

// Create implements Store.
func (m *Memory) Create(ctx context.Context, in CreateInput) (*Template, error) {
	if err := validateCreate(&in); err != nil {
		return nil, err
	}
	if err := ValidateContent(in.Content); err != nil {
		return nil, err
	}

	t := newAggregate(in, m.now().UTC())

	m.mu.Lock()
	m.templates[t.TemplateID] = t
	m.mu.Unlock()

	return t.Clone(), nil
}

// Update implements Store. The write commits only if currentVersion still
// matches the version observed at read time (or the caller-supplied
// ExpectedVersion); otherwise it fails with Conflict.
func (m *Memory) Update(ctx context.Context, templateID string, in UpdateInput) (*Template, error) {
	if err := validateUpdate(&in); err != nil {
		return nil, err
	}
	if in.Content != nil {
		if err := ValidateContent(*in.Content); err != nil {
			return nil, err
		}
	}

	snapshot, err := m.snapshot(templateID)
	if err != nil {
		return nil, err
	}

	observed := in.ExpectedVersion
	if observed == "" {
		observed = snapshot.CurrentVersion
	} else if observed != snapshot.CurrentVersion {
		return nil, apperr.Newf(apperr.KindConflict,
			"template %s moved from version %s to %s during update", templateID, observed, snapshot.CurrentVersion)
	}

	updated, err := applyUpdate(snapshot, in, m.now().UTC())
	if err != nil {
		return nil, err
	}

	if err := m.commit(templateID, observed, updated); err != nil {
		return nil, err
	}
	return updated.Clone(), nil
}

// Get implements Store.
func (m *Memory) Get(ctx context.Context, templateID, version string) (*Resolved, error) {
	snapshot, err := m.snapshot(templateID)
	if err != nil {
		return nil, err
	}
	return resolve(snapshot, version)
}

// List implements Store.
func (m *Memory) List(ctx context.Context, f Filter) ([]Summary, error) {
	m.mu.RLock()
	out := make([]Summary, 0, len(m.templates))
	for _, t := range m.templates {
		if f.Matches(t) {
			out = append(out, summarize(t))
		}
	}
	m.mu.RUnlock()

	sortSummaries(out)
	return out, nil
}

// History implements Store.
func (m *Memory) History(ctx context.Context, templateID string) ([]VersionInfo, error) {
	snapshot, err := m.snapshot(templateID)
	if err != nil {
		return nil, err
	}
	return historyOf(snapshot), nil
}

// Revert implements Store.
func (m *Memory) Revert(ctx context.Context, templateID, targetVersion, author string) (*Template, error) {
	snapshot, err := m.snapshot(templateID)
	if err != nil {
		return nil, err
	}
	target := snapshot.Version(targetVersion)
	if target == nil {
		return nil, apperr.Newf(apperr.KindVersionNotFound, "version %s not found for template %s", targetVersion, templateID)
	}

	content := target.Content.Clone()
	updated, err := applyUpdate(snapshot, UpdateInput{
		Content:   &content,
		Changelog: "Reverted to version " + targetVersion,
		Author:    author,
	}, m.now().UTC())
	if err != nil {
		return nil, err
	}

	if err := m.commit(templateID, snapshot.CurrentVersion, updated); err != nil {
		return nil, err
	}
	return updated.Clone(), nil
}

// Delete implements Store.
func (m *Memory) Delete(ctx context.Context, templateID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.templates[templateID]; !ok {
		return apperr.Newf(apperr.KindNotFound, "template %s not found", templateID)
	}
	delete(m.templates, templateID)
	return nil
}

// Healthy implements Store.
func (m *Memory) Healthy(ctx context.Context) error { return nil }

// Close implements Store.
func (m *Memory) Close() error { return nil }

// snapshot returns a copy of the stored aggregate.
func (m *Memory) snapshot(templateID string) (*Template, error) {
	m.mu.RLock()
	t, ok := m.templates[templateID]
	m.mu.RUnlock()
	if !ok {
		return nil, apperr.Newf(apperr.KindNotFound, "template %s not found", templateID)
	}
	return t.Clone(), nil
}

// commit swaps in the updated aggregate if currentVersion is still the one
// the writer observed.
func (m *Memory) commit(templateID, observedVersion string, updated *Template) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	current, ok := m.templates[templateID]
	if !ok {
		return apperr.Newf(apperr.KindNotFound, "template %s not found", templateID)
	}
	if current.CurrentVersion != observedVersion {
		return apperr.Newf(apperr.KindConflict,
			"template %s moved from version %s to %s during update", templateID, observedVersion, current.CurrentVersion)
	}
	m.templates[templateID] = updated
	return nil
}
