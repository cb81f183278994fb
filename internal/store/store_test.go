package store

import (
	"context"
	"reflect"
	"sync"
	"testing"
	"time"

	"github.com/mrlynn/design-reviewer-backend/internal/apperr"
)

func sampleContent() Content {
	return Content{
		Sections: []Section{
			{
				ID:    "data-model",
				Title: "Data Model",
				Questions: []Question{
					{
						ID:            "collections",
						Label:         "What collections does the application use?",
						Type:          "textarea",
						Required:      true,
						PromptContext: "Evaluate the collection design against access patterns.",
					},
					{
						ID:    "customer-name",
						Label: "Customer name",
						Type:  "text",
					},
				},
			},
		},
		GlobalPromptContext: "Focus on schema design and indexing.",
	}
}

func sampleCreateInput() CreateInput {
	return CreateInput{
		Name:        "Design Review",
		Description: "Standard application design review",
		Tags:        []string{"mongodb", "design"},
		Content:     sampleContent(),
	}
}

func mustCreate(t *testing.T, s Store, in CreateInput) *Template {
	t.Helper()
	tmpl, err := s.Create(context.Background(), in)
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	return tmpl
}

func TestNextMinorVersion(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"1.0.0", "1.1.0"},
		{"1.2.3", "1.3.3"},
		{"2.9.0", "2.10.0"},
	}
	for _, tc := range cases {
		got, err := NextMinorVersion(tc.in)
		if err != nil {
			t.Fatalf("NextMinorVersion(%q) error = %v", tc.in, err)
		}
		if got != tc.want {
			t.Errorf("NextMinorVersion(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}

	for _, bad := range []string{"", "1.0", "1.x.0", "banana"} {
		if _, err := NextMinorVersion(bad); err == nil {
			t.Errorf("NextMinorVersion(%q) expected error", bad)
		}
	}
}

func TestCompareVersions(t *testing.T) {
	if CompareVersions("1.9.0", "1.10.0") >= 0 {
		t.Error("expected 1.9.0 < 1.10.0 under semver ordering")
	}
	if CompareVersions("1.2.0", "1.2.0") != 0 {
		t.Error("expected 1.2.0 == 1.2.0")
	}
}

func TestMemoryCreate(t *testing.T) {
	t.Run("seeds initial version", func(t *testing.T) {
		m := NewMemory()
		tmpl := mustCreate(t, m, sampleCreateInput())

		if tmpl.TemplateID == "" {
			t.Error("expected generated templateId")
		}
		if tmpl.CurrentVersion != "1.0.0" {
			t.Errorf("currentVersion = %q, want 1.0.0", tmpl.CurrentVersion)
		}
		if len(tmpl.Versions) != 1 {
			t.Fatalf("expected 1 version, got %d", len(tmpl.Versions))
		}
		if tmpl.Versions[0].Changelog != "Initial version" {
			t.Errorf("changelog = %q, want Initial version", tmpl.Versions[0].Changelog)
		}
		if tmpl.Versions[0].CreatedBy != "system" {
			t.Errorf("createdBy = %q, want system", tmpl.Versions[0].CreatedBy)
		}
	})

	t.Run("applies defaults", func(t *testing.T) {
		m := NewMemory()
		tmpl := mustCreate(t, m, sampleCreateInput())

		if tmpl.Type != TypeDesignReview {
			t.Errorf("type = %q, want %q", tmpl.Type, TypeDesignReview)
		}
		if tmpl.Status != StatusDraft {
			t.Errorf("status = %q, want %q", tmpl.Status, StatusDraft)
		}
	})

	t.Run("validation failures", func(t *testing.T) {
		m := NewMemory()
		cases := []struct {
			name string
			mut  func(*CreateInput)
		}{
			{"missing name", func(in *CreateInput) { in.Name = "" }},
			{"missing description", func(in *CreateInput) { in.Description = "  " }},
			{"unknown type", func(in *CreateInput) { in.Type = "retrospective" }},
			{"unknown status", func(in *CreateInput) { in.Status = "pending" }},
		}
		for _, tc := range cases {
			t.Run(tc.name, func(t *testing.T) {
				in := sampleCreateInput()
				tc.mut(&in)
				_, err := m.Create(context.Background(), in)
				if apperr.KindOf(err) != apperr.KindValidation {
					t.Errorf("expected validation error, got %v", err)
				}
			})
		}
	})

	t.Run("rejects malformed content", func(t *testing.T) {
		m := NewMemory()
		in := sampleCreateInput()
		in.Content.Sections[0].Title = ""
		_, err := m.Create(context.Background(), in)
		if apperr.KindOf(err) != apperr.KindValidation {
			t.Errorf("expected validation error, got %v", err)
		}
	})
}

func TestMemoryUpdate(t *testing.T) {
	t.Run("content update appends minor bump", func(t *testing.T) {
		m := NewMemory()
		tmpl := mustCreate(t, m, sampleCreateInput())

		content := sampleContent()
		content.GlobalPromptContext = "Revised guidance."
		updated, err := m.Update(context.Background(), tmpl.TemplateID, UpdateInput{
			Content:   &content,
			Changelog: "fix typo",
		})
		if err != nil {
			t.Fatalf("Update() error = %v", err)
		}

		if updated.CurrentVersion != "1.1.0" {
			t.Errorf("currentVersion = %q, want 1.1.0", updated.CurrentVersion)
		}
		if len(updated.Versions) != 2 {
			t.Fatalf("expected 2 versions, got %d", len(updated.Versions))
		}
		latest := updated.Version("1.1.0")
		if latest == nil {
			t.Fatal("version 1.1.0 missing from history")
		}
		if latest.Changelog != "fix typo" {
			t.Errorf("changelog = %q, want fix typo", latest.Changelog)
		}
		if latest.Content.GlobalPromptContext != "Revised guidance." {
			t.Error("new version does not carry updated content")
		}

		// Original version stays intact.
		first := updated.Version("1.0.0")
		if first == nil || first.Content.GlobalPromptContext != "Focus on schema design and indexing." {
			t.Error("version 1.0.0 content was mutated")
		}
	})

	t.Run("metadata-only update keeps prior content", func(t *testing.T) {
		m := NewMemory()
		tmpl := mustCreate(t, m, sampleCreateInput())

		name := "Renamed Review"
		status := StatusPublished
		updated, err := m.Update(context.Background(), tmpl.TemplateID, UpdateInput{
			Name:   &name,
			Status: &status,
		})
		if err != nil {
			t.Fatalf("Update() error = %v", err)
		}

		if updated.Name != "Renamed Review" {
			t.Errorf("name = %q, want Renamed Review", updated.Name)
		}
		if updated.Status != StatusPublished {
			t.Errorf("status = %q, want %q", updated.Status, StatusPublished)
		}
		if updated.Description != tmpl.Description {
			t.Error("description should be preserved when omitted")
		}

		latest := updated.Version(updated.CurrentVersion)
		prior := tmpl.Version("1.0.0")
		if !reflect.DeepEqual(latest.Content, prior.Content) {
			t.Error("omitted content should carry forward unchanged")
		}
		if latest.Changelog != "Updated to version 1.1.0" {
			t.Errorf("changelog = %q, want default", latest.Changelog)
		}
	})

	t.Run("unknown template", func(t *testing.T) {
		m := NewMemory()
		_, err := m.Update(context.Background(), "template-missing", UpdateInput{})
		if apperr.KindOf(err) != apperr.KindNotFound {
			t.Errorf("expected not-found error, got %v", err)
		}
	})

	t.Run("stale expected version conflicts", func(t *testing.T) {
		m := NewMemory()
		tmpl := mustCreate(t, m, sampleCreateInput())

		if _, err := m.Update(context.Background(), tmpl.TemplateID, UpdateInput{}); err != nil {
			t.Fatalf("first Update() error = %v", err)
		}

		_, err := m.Update(context.Background(), tmpl.TemplateID, UpdateInput{
			ExpectedVersion: "1.0.0",
		})
		if apperr.KindOf(err) != apperr.KindConflict {
			t.Errorf("expected conflict error, got %v", err)
		}
	})
}

func TestMemoryConcurrentUpdates(t *testing.T) {
	m := NewMemory()
	tmpl := mustCreate(t, m, sampleCreateInput())

	const writers = 8
	var wg sync.WaitGroup
	var mu sync.Mutex
	successes, conflicts := 0, 0

	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := m.Update(context.Background(), tmpl.TemplateID, UpdateInput{
				ExpectedVersion: "1.0.0",
			})
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				successes++
			case apperr.Is(err, apperr.KindConflict):
				conflicts++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	if successes != 1 {
		t.Errorf("successes = %d, want exactly 1 writer to win", successes)
	}
	if conflicts != writers-1 {
		t.Errorf("conflicts = %d, want %d", conflicts, writers-1)
	}

	resolved, err := m.Get(context.Background(), tmpl.TemplateID, "")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if resolved.CurrentVersion != "1.1.0" {
		t.Errorf("currentVersion = %q, want 1.1.0 after one winning update", resolved.CurrentVersion)
	}
}

func TestMemoryGet(t *testing.T) {
	m := NewMemory()
	tmpl := mustCreate(t, m, sampleCreateInput())

	content := sampleContent()
	content.GlobalPromptContext = "Second revision."
	if _, err := m.Update(context.Background(), tmpl.TemplateID, UpdateInput{Content: &content}); err != nil {
		t.Fatalf("Update() error = %v", err)
	}

	t.Run("default resolves current", func(t *testing.T) {
		resolved, err := m.Get(context.Background(), tmpl.TemplateID, "")
		if err != nil {
			t.Fatalf("Get() error = %v", err)
		}
		if resolved.ResolvedVersion != "1.1.0" {
			t.Errorf("resolvedVersion = %q, want 1.1.0", resolved.ResolvedVersion)
		}
		if resolved.Content.GlobalPromptContext != "Second revision." {
			t.Error("expected current version's content")
		}
	})

	t.Run("explicit older version", func(t *testing.T) {
		resolved, err := m.Get(context.Background(), tmpl.TemplateID, "1.0.0")
		if err != nil {
			t.Fatalf("Get() error = %v", err)
		}
		if resolved.ResolvedVersion != "1.0.0" {
			t.Errorf("resolvedVersion = %q, want 1.0.0", resolved.ResolvedVersion)
		}
		if resolved.Content.GlobalPromptContext != "Focus on schema design and indexing." {
			t.Error("expected original content")
		}
	})

	t.Run("missing version", func(t *testing.T) {
		_, err := m.Get(context.Background(), tmpl.TemplateID, "9.9.9")
		if apperr.KindOf(err) != apperr.KindVersionNotFound {
			t.Errorf("expected version-not-found error, got %v", err)
		}
	})

	t.Run("missing template", func(t *testing.T) {
		_, err := m.Get(context.Background(), "template-missing", "")
		if apperr.KindOf(err) != apperr.KindNotFound {
			t.Errorf("expected not-found error, got %v", err)
		}
	})
}

func TestMemoryRevert(t *testing.T) {
	m := NewMemory()
	tmpl := mustCreate(t, m, sampleCreateInput())

	content := sampleContent()
	content.GlobalPromptContext = "Second revision."
	if _, err := m.Update(context.Background(), tmpl.TemplateID, UpdateInput{Content: &content}); err != nil {
		t.Fatalf("Update() error = %v", err)
	}

	reverted, err := m.Revert(context.Background(), tmpl.TemplateID, "1.0.0", "alice")
	if err != nil {
		t.Fatalf("Revert() error = %v", err)
	}

	if reverted.CurrentVersion != "1.2.0" {
		t.Errorf("currentVersion = %q, want 1.2.0", reverted.CurrentVersion)
	}
	if len(reverted.Versions) != 3 {
		t.Fatalf("expected 3 versions (history preserved), got %d", len(reverted.Versions))
	}

	latest := reverted.Version("1.2.0")
	original := reverted.Version("1.0.0")
	if !reflect.DeepEqual(latest.Content, original.Content) {
		t.Error("reverted content should equal the target version's content")
	}
	if latest.Changelog != "Reverted to version 1.0.0" {
		t.Errorf("changelog = %q, want Reverted to version 1.0.0", latest.Changelog)
	}
	if latest.CreatedBy != "alice" {
		t.Errorf("createdBy = %q, want alice", latest.CreatedBy)
	}

	t.Run("missing target version", func(t *testing.T) {
		_, err := m.Revert(context.Background(), tmpl.TemplateID, "4.0.0", "alice")
		if apperr.KindOf(err) != apperr.KindVersionNotFound {
			t.Errorf("expected version-not-found error, got %v", err)
		}
	})
}

func TestMemoryHistory(t *testing.T) {
	m := NewMemory()
	tmpl := mustCreate(t, m, sampleCreateInput())

	// Ten updates push the minor component into double digits, where
	// lexicographic ordering would go wrong.
	for i := 0; i < 10; i++ {
		if _, err := m.Update(context.Background(), tmpl.TemplateID, UpdateInput{}); err != nil {
			t.Fatalf("Update() error = %v", err)
		}
	}

	history, err := m.History(context.Background(), tmpl.TemplateID)
	if err != nil {
		t.Fatalf("History() error = %v", err)
	}
	if len(history) != 11 {
		t.Fatalf("expected 11 entries, got %d", len(history))
	}
	if history[0].Version != "1.10.0" {
		t.Errorf("history[0] = %q, want 1.10.0 (newest first)", history[0].Version)
	}
	if history[len(history)-1].Version != "1.0.0" {
		t.Errorf("history[last] = %q, want 1.0.0", history[len(history)-1].Version)
	}
	for i := 1; i < len(history); i++ {
		if CompareVersions(history[i-1].Version, history[i].Version) <= 0 {
			t.Fatalf("history not sorted descending at %d: %s before %s", i, history[i-1].Version, history[i].Version)
		}
	}
}

func TestMemoryList(t *testing.T) {
	m := NewMemory()
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	tick := 0
	m.now = func() time.Time {
		tick++
		return base.Add(time.Duration(tick) * time.Minute)
	}

	mk := func(name, typ, status string, tags []string) *Template {
		in := sampleCreateInput()
		in.Name = name
		in.Type = typ
		in.Status = status
		in.Tags = tags
		return mustCreate(t, m, in)
	}

	mk("Aggregation Review", TypeDesignReview, StatusPublished, []string{"mongodb", "aggregation"})
	mk("Schema Review", TypeDataModel, StatusDraft, []string{"mongodb", "schema"})
	newest := mk("Migration Review", TypeMigration, StatusPublished, []string{"atlas"})

	t.Run("no filter returns all, newest first", func(t *testing.T) {
		got, err := m.List(context.Background(), Filter{})
		if err != nil {
			t.Fatalf("List() error = %v", err)
		}
		if len(got) != 3 {
			t.Fatalf("expected 3 summaries, got %d", len(got))
		}
		if got[0].TemplateID != newest.TemplateID {
			t.Errorf("expected most recently updated first, got %q", got[0].Name)
		}
	})

	t.Run("status filter", func(t *testing.T) {
		got, err := m.List(context.Background(), Filter{Status: StatusPublished})
		if err != nil {
			t.Fatalf("List() error = %v", err)
		}
		if len(got) != 2 {
			t.Fatalf("expected 2 published templates, got %d", len(got))
		}
	})

	t.Run("type filter", func(t *testing.T) {
		got, err := m.List(context.Background(), Filter{Type: TypeDataModel})
		if err != nil {
			t.Fatalf("List() error = %v", err)
		}
		if len(got) != 1 || got[0].Name != "Schema Review" {
			t.Errorf("expected only Schema Review, got %v", got)
		}
	})

	t.Run("tags require all", func(t *testing.T) {
		got, err := m.List(context.Background(), Filter{Tags: []string{"mongodb", "schema"}})
		if err != nil {
			t.Fatalf("List() error = %v", err)
		}
		if len(got) != 1 || got[0].Name != "Schema Review" {
			t.Errorf("expected only Schema Review, got %v", got)
		}
	})

	t.Run("search is case-insensitive", func(t *testing.T) {
		got, err := m.List(context.Background(), Filter{Search: "MIGRATION"})
		if err != nil {
			t.Fatalf("List() error = %v", err)
		}
		if len(got) != 1 || got[0].Name != "Migration Review" {
			t.Errorf("expected only Migration Review, got %v", got)
		}
	})

	t.Run("summaries exclude content", func(t *testing.T) {
		got, err := m.List(context.Background(), Filter{})
		if err != nil {
			t.Fatalf("List() error = %v", err)
		}
		for _, s := range got {
			if s.VersionCount != 1 {
				t.Errorf("versionCount = %d, want 1", s.VersionCount)
			}
			if s.CurrentVersion != "1.0.0" {
				t.Errorf("currentVersion = %q, want 1.0.0", s.CurrentVersion)
			}
		}
	})
}

func TestMemoryDelete(t *testing.T) {
	m := NewMemory()
	tmpl := mustCreate(t, m, sampleCreateInput())

	if err := m.Delete(context.Background(), tmpl.TemplateID); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if _, err := m.Get(context.Background(), tmpl.TemplateID, ""); apperr.KindOf(err) != apperr.KindNotFound {
		t.Errorf("expected not-found after delete, got %v", err)
	}
	if err := m.Delete(context.Background(), tmpl.TemplateID); apperr.KindOf(err) != apperr.KindNotFound {
		t.Errorf("expected not-found on second delete, got %v", err)
	}
}

func TestValidateContent(t *testing.T) {
	t.Run("valid content passes", func(t *testing.T) {
		if err := ValidateContent(sampleContent()); err != nil {
			t.Errorf("ValidateContent() error = %v", err)
		}
	})

	t.Run("section without title fails", func(t *testing.T) {
		c := sampleContent()
		c.Sections[0].Title = ""
		err := ValidateContent(c)
		if apperr.KindOf(err) != apperr.KindValidation {
			t.Errorf("expected validation error, got %v", err)
		}
	})

	t.Run("question without label fails", func(t *testing.T) {
		c := sampleContent()
		c.Sections[0].Questions[0].Label = ""
		err := ValidateContent(c)
		if apperr.KindOf(err) != apperr.KindValidation {
			t.Errorf("expected validation error, got %v", err)
		}
	})

	t.Run("empty content passes", func(t *testing.T) {
		if err := ValidateContent(Content{}); err != nil {
			t.Errorf("ValidateContent(empty) error = %v", err)
		}
	})
}
