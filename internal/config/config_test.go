package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"news_bot/internal/model"
)

func TestLoad(t *testing.T) {
	cfg, err := Load("testdata/config.yaml")
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if cfg.BotUserID != "@newsbot:example.org" {
		t.Errorf("bot_user_id = %q", cfg.BotUserID)
	}
	if !cfg.RestrictNotice {
		t.Error("restrict_notice should be true")
	}
	if cfg.MinLength != 30 {
		t.Errorf("min_length = %d", cfg.MinLength)
	}
	if diff := cmp.Diff([]string{"@editor:example.org"}, cfg.Editors); diff != "" {
		t.Errorf("editors (-want +got):\n%s", diff)
	}
	if len(cfg.Sections) != 2 || len(cfg.Projects) != 1 {
		t.Fatalf("sections/projects = %d/%d", len(cfg.Sections), len(cfg.Projects))
	}
	if cfg.Projects[0].DefaultSection != "apps" {
		t.Errorf("default_section = %q", cfg.Projects[0].DefaultSection)
	}

	// Defaults for fields the fixture leaves out.
	if cfg.StorePath != "./data/store.json" {
		t.Errorf("store_path default = %q", cfg.StorePath)
	}
	if cfg.ImageMarkdown != "![]({{file}})" {
		t.Errorf("image_markdown default = %q", cfg.ImageMarkdown)
	}
	if cfg.LogLevel != "info" {
		t.Errorf("log_level default = %q", cfg.LogLevel)
	}
}

func TestLoadMissingRequiredFields(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("homeserver_url: https://x.org\n"), 0o600); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	_, err := Load(path)
	if err == nil || !strings.Contains(err.Error(), "bot_user_id") {
		t.Errorf("error = %v, want missing bot_user_id", err)
	}
}

func TestValidate(t *testing.T) {
	valid, err := Load("testdata/config.yaml")
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	t.Run("valid config", func(t *testing.T) {
		warnings, notes := valid.Validate()
		if len(warnings) != 0 {
			t.Errorf("unexpected warnings: %v", warnings)
		}
		if len(notes) != 0 {
			t.Errorf("unexpected notes: %v", notes)
		}
	})

	t.Run("missing essentials", func(t *testing.T) {
		cfg := &Config{}
		warnings, notes := cfg.Validate()
		assertHasMessage(t, warnings, "No notice emoji")
		assertHasMessage(t, warnings, "No editor")
		assertHasMessage(t, notes, "No sections")
		assertHasMessage(t, notes, "No projects")
	})

	t.Run("unknown default section", func(t *testing.T) {
		cfg := &Config{
			Sections: []model.Section{{Name: "apps", Emoji: "📱"}},
			Projects: []model.Project{{Name: "calendar", Emoji: "📆", DefaultSection: "nope"}},
		}
		warnings, _ := cfg.Validate()
		assertHasMessage(t, warnings, `unknown default section "nope"`)
	})

	t.Run("duplicate emoji and names", func(t *testing.T) {
		cfg := &Config{
			NoticeEmoji: "⭕",
			Sections: []model.Section{
				{Name: "apps", Emoji: "⭕"},
				{Name: "apps", Emoji: "🌍"},
			},
		}
		warnings, _ := cfg.Validate()
		assertHasMessage(t, warnings, "emoji is duplicated")
		assertHasMessage(t, warnings, "name is duplicated")
	})
}

func assertHasMessage(t *testing.T, messages []string, fragment string) {
	t.Helper()
	for _, m := range messages {
		if strings.Contains(m, fragment) {
			return
		}
	}
	t.Errorf("no message contains %q, got: %v", fragment, messages)
}

func TestLookups(t *testing.T) {
	cfg, err := Load("testdata/config.yaml")
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if s, ok := cfg.SectionByName("internet"); !ok || s.Title != "Internet" {
		t.Errorf("SectionByName = %v, %v", s, ok)
	}
	if _, ok := cfg.SectionByName("nope"); ok {
		t.Error("unknown section found")
	}
	if p, ok := cfg.ProjectByName("calendar"); !ok || p.Emoji != "📆" {
		t.Errorf("ProjectByName = %v, %v", p, ok)
	}

	usual := cfg.SectionsByUsualReporter("@alice:example.org")
	if len(usual) != 1 || usual[0].Name != "apps" {
		t.Errorf("SectionsByUsualReporter = %v", usual)
	}
	if got := cfg.SectionsByUsualReporter("@nobody:example.org"); len(got) != 0 {
		t.Errorf("unexpected usual sections: %v", got)
	}

	if !cfg.IsEditor("@editor:example.org") || cfg.IsEditor("@alice:example.org") {
		t.Error("IsEditor misclassified")
	}
	if got := cfg.RandomVerb(); got != "reports" {
		t.Errorf("RandomVerb = %q with a single configured verb", got)
	}
}
