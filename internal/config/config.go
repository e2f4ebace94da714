// Package config handles application configuration from a YAML file.
package config

import (
	"fmt"
	"math/rand"
	"os"

	"gopkg.in/yaml.v3"

	"news_bot/internal/model"
)

// Config holds the application configuration. Sections and projects are
// immutable after load; no runtime mutation happens anywhere.
type Config struct {
	HomeserverURL   string `yaml:"homeserver_url"`
	BotUserID       string `yaml:"bot_user_id"`
	ReportingRoomID string `yaml:"reporting_room_id"`
	AdminRoomID     string `yaml:"admin_room_id"`

	NoticeEmoji    string `yaml:"notice_emoji"`
	RestrictNotice bool   `yaml:"restrict_notice"`
	MinLength      int    `yaml:"min_length"`
	AckText        string `yaml:"ack_text"`

	Verbs          []string `yaml:"verbs"`
	Editors        []string `yaml:"editors"`
	PublishCommand string   `yaml:"publish_command"`

	StorePath     string `yaml:"store_path"`
	ArchivePath   string `yaml:"archive_path"`
	TemplatePath  string `yaml:"template_path"`
	ImageMarkdown string `yaml:"image_markdown"`
	VideoMarkdown string `yaml:"video_markdown"`
	LogLevel      string `yaml:"log_level"`

	Sections []model.Section `yaml:"sections"`
	Projects []model.Project `yaml:"projects"`
}

// Load reads configuration from the YAML file at path and applies
// defaults for optional fields.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path) //nolint:gosec // operator-controlled path
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}

	if cfg.HomeserverURL == "" {
		return nil, fmt.Errorf("homeserver_url is required")
	}
	if cfg.BotUserID == "" {
		return nil, fmt.Errorf("bot_user_id is required")
	}
	if cfg.ReportingRoomID == "" || cfg.AdminRoomID == "" {
		return nil, fmt.Errorf("reporting_room_id and admin_room_id are required")
	}

	if cfg.StorePath == "" {
		cfg.StorePath = "./data/store.json"
	}
	if cfg.ArchivePath == "" {
		cfg.ArchivePath = "./data/archive.db"
	}
	if cfg.TemplatePath == "" {
		cfg.TemplatePath = "./template.md"
	}
	if cfg.ImageMarkdown == "" {
		cfg.ImageMarkdown = "![]({{file}})"
	}
	if cfg.VideoMarkdown == "" {
		cfg.VideoMarkdown = "{{file}}"
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
	if len(cfg.Verbs) == 0 {
		cfg.Verbs = []string{"reports", "says", "announces"}
	}

	return &cfg, nil
}

// Validate checks the loaded configuration for conditions that degrade
// the bot without preventing startup. Warnings flag likely breakage,
// notes flag omissions. Both are posted to the admin room at startup.
func (c *Config) Validate() (warnings, notes []string) {
	if c.NoticeEmoji == "" {
		warnings = append(warnings, "No notice emoji is configured. Submissions by reaction will not work.")
	}
	if len(c.Editors) == 0 {
		warnings = append(warnings, "No editor is specified, the bot cannot be used without an editor.")
	}
	if len(c.Sections) == 0 {
		notes = append(notes, "No sections are configured.")
	}
	if len(c.Projects) == 0 {
		notes = append(notes, "No projects are configured.")
	}

	sectionNames := make(map[string]struct{}, len(c.Sections))
	for _, s := range c.Sections {
		if s.Name == "" {
			warnings = append(warnings, "Section without name found, this can lead to undefined behavior.")
			continue
		}
		sectionNames[s.Name] = struct{}{}
		if s.Emoji == "" {
			warnings = append(warnings, fmt.Sprintf("Section %q doesn't have an emoji, this can lead to undefined behavior.", s.Name))
		}
	}

	for _, p := range c.Projects {
		if p.Name == "" {
			warnings = append(warnings, "Project without name found, this can lead to undefined behavior.")
			continue
		}
		if p.Emoji == "" {
			warnings = append(warnings, fmt.Sprintf("Project %q doesn't have an emoji, this can lead to undefined behavior.", p.Name))
		}
		if p.DefaultSection == "" {
			warnings = append(warnings, fmt.Sprintf("Project %q doesn't have a default section, this can lead to undefined behavior.", p.Name))
			continue
		}
		if _, ok := sectionNames[p.DefaultSection]; !ok {
			warnings = append(warnings, fmt.Sprintf("Project %q has an unknown default section %q, this can lead to undefined behavior.", p.Name, p.DefaultSection))
		}
	}

	// Overlapping emoji across notice/sections/projects would make the
	// first matching interpretation win silently, so flag duplicates.
	emojis := map[string]struct{}{}
	names := map[string]struct{}{}
	if c.NoticeEmoji != "" {
		emojis[c.NoticeEmoji] = struct{}{}
	}
	var dupEmoji, dupName []string
	check := func(emoji, name string) {
		if emoji != "" {
			if _, ok := emojis[emoji]; ok {
				dupEmoji = append(dupEmoji, emoji)
			}
			emojis[emoji] = struct{}{}
		}
		if name != "" {
			if _, ok := names[name]; ok {
				dupName = append(dupName, name)
			}
			names[name] = struct{}{}
		}
	}
	for _, s := range c.Sections {
		check(s.Emoji, s.Name)
	}
	for _, p := range c.Projects {
		check(p.Emoji, p.Name)
	}
	if len(dupEmoji) > 0 {
		warnings = append(warnings, fmt.Sprintf("At least one emoji is duplicated, this can lead to undefined behavior: %v", dupEmoji))
	}
	if len(dupName) > 0 {
		warnings = append(warnings, fmt.Sprintf("At least one name is duplicated, this can lead to undefined behavior: %v", dupName))
	}

	return warnings, notes
}

// SectionByName returns the configured section with the given name.
func (c *Config) SectionByName(name string) (*model.Section, bool) {
	for i := range c.Sections {
		if c.Sections[i].Name == name {
			return &c.Sections[i], true
		}
	}
	return nil, false
}

// ProjectByName returns the configured project with the given name.
func (c *Config) ProjectByName(name string) (*model.Project, bool) {
	for i := range c.Projects {
		if c.Projects[i].Name == name {
			return &c.Projects[i], true
		}
	}
	return nil, false
}

// SectionsByUsualReporter returns the sections that list the given user
// as a usual reporter. Used to pre-populate tag suggestions.
func (c *Config) SectionsByUsualReporter(reporterID string) []model.Section {
	var out []model.Section
	for _, s := range c.Sections {
		for _, r := range s.UsualReporters {
			if r == reporterID {
				out = append(out, s)
				break
			}
		}
	}
	return out
}

// IsEditor checks whether a user ID is in the editor list.
func (c *Config) IsEditor(userID string) bool {
	for _, e := range c.Editors {
		if e == userID {
			return true
		}
	}
	return false
}

// RandomVerb picks one of the configured reporting verbs. Prose variety
// only; not security-sensitive randomness.
func (c *Config) RandomVerb() string {
	return c.Verbs[rand.Intn(len(c.Verbs))]
}
