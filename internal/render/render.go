// Package render turns the tagged News collection into a report document.
//
// Rendering is a pure projection over a snapshot: it never mutates the
// collection and can be called repeatedly. The only run-to-run variation
// in output is the randomly chosen reporting verb.
package render

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"news_bot/internal/config"
	"news_bot/internal/model"
)

// Result is the outcome of one render pass.
type Result struct {
	Document     string
	Warnings     []string
	Notes        []string
	MediaToFetch []model.Media
}

// renderProject groups the news filed under one project. A non-empty
// overriddenSection marks a synthetic group: the entries were tagged with
// a section that differs from the project's default, and render under
// that section instead.
type renderProject struct {
	project           model.Project
	news              []*model.News
	overriddenSection string
}

// renderSection groups everything rendered under one section heading:
// direct news (no project framing) first, then project blocks.
type renderSection struct {
	section  model.Section
	news     []*model.News
	projects []*renderProject
}

// Render groups the given snapshot into sections and projects and
// substitutes the result into the template. Section and project names
// referenced by tags must exist in the configuration; a dangling name is
// a programming error and panics rather than silently mis-rendering.
func Render(newsList []*model.News, cfg *config.Config, template, editorDisplayName string) Result {
	var result Result

	// Deterministic encounter order: submission time, then id.
	sorted := make([]*model.News, len(newsList))
	copy(sorted, newsList)
	sort.Slice(sorted, func(i, j int) bool {
		if !sorted[i].Timestamp.Equal(sorted[j].Timestamp) {
			return sorted[i].Timestamp.Before(sorted[j].Timestamp)
		}
		return sorted[i].ID < sorted[j].ID
	})

	sections := make(map[string]*renderSection)
	var sectionOrder []string
	sectionFor := func(name string) *renderSection {
		if rs, ok := sections[name]; ok {
			return rs
		}
		section, ok := cfg.SectionByName(name)
		if !ok {
			panic(fmt.Sprintf("render: section %q referenced by a tag is not configured", name))
		}
		rs := &renderSection{section: *section}
		sections[name] = rs
		sectionOrder = append(sectionOrder, name)
		return rs
	}

	projects := make(map[string]*renderProject)
	var projectOrder []string
	projectGroup := func(key string, project model.Project, overridden string) *renderProject {
		if rp, ok := projects[key]; ok {
			return rp
		}
		rp := &renderProject{project: project, overriddenSection: overridden}
		projects[key] = rp
		projectOrder = append(projectOrder, key)
		return rp
	}

	included := 0
	skipped := 0
	projectNames := make(map[string]struct{})

	for _, news := range sorted {
		link := messageLink(cfg, news.ID)

		if !news.IsAssigned() {
			skipped++
			continue
		}
		included++

		newsProjects := news.ProjectNames()
		newsSections := news.SectionNames()

		if len(newsProjects) > 1 {
			result.Warnings = append(result.Warnings, fmt.Sprintf(
				"[%s] News entry by %s has multiple project information set, it'll appear multiple times. This is probably not wanted!",
				link, news.ReporterDisplayName))
		}
		if len(newsSections) > 1 {
			result.Warnings = append(result.Warnings, fmt.Sprintf(
				"[%s] News entry by %s has multiple section information set, it'll appear multiple times. This is probably not wanted!",
				link, news.ReporterDisplayName))
		}

		if len(newsProjects) == 0 {
			result.Notes = append(result.Notes, fmt.Sprintf(
				"[%s] News entry by %s doesn't have project information, it'll appear directly in the section without any project description.",
				link, news.ReporterDisplayName))
			for _, sectionName := range newsSections {
				rs := sectionFor(sectionName)
				rs.news = append(rs.news, news)
			}
			continue
		}

		for _, projectName := range newsProjects {
			projectNames[projectName] = struct{}{}
			project, ok := cfg.ProjectByName(projectName)
			if !ok {
				panic(fmt.Sprintf("render: project %q referenced by a tag is not configured", projectName))
			}

			overridden := false
			for _, sectionName := range newsSections {
				if sectionName == project.DefaultSection {
					continue
				}
				overridden = true
				result.Notes = append(result.Notes, fmt.Sprintf(
					"[%s] News entry by %s gets added to the %q section, which is not the default section for this project.",
					link, news.ReporterDisplayName, sectionName))
				rp := projectGroup(projectName+"-"+sectionName, *project, sectionName)
				rp.news = append(rp.news, news)
			}
			if overridden {
				continue
			}

			rp := projectGroup(projectName, *project, "")
			rp.news = append(rp.news, news)
		}
	}

	// File each project group under its section.
	for _, key := range projectOrder {
		rp := projects[key]
		sectionName := rp.project.DefaultSection
		if rp.overriddenSection != "" {
			sectionName = rp.overriddenSection
		}
		rs := sectionFor(sectionName)
		rs.projects = append(rs.projects, rp)
	}

	// Configured order ascending; ties broken by name for stability.
	sort.SliceStable(sectionOrder, func(i, j int) bool {
		a, b := sections[sectionOrder[i]], sections[sectionOrder[j]]
		if a.section.Order != b.section.Order {
			return a.section.Order < b.section.Order
		}
		return a.section.Name < b.section.Name
	})

	var report strings.Builder
	for _, name := range sectionOrder {
		rs := sections[name]
		fmt.Fprintf(&report, "# %s\n", rs.section.Title)

		for _, news := range rs.news {
			report.WriteString(newsMarkdown(news, cfg))
		}
		for _, rp := range rs.projects {
			project := rp.project
			repo := fmt.Sprintf("[%s](%s)", project.Title, project.Website)
			description := strings.ReplaceAll(project.Description, "{{project}}", repo)
			fmt.Fprintf(&report, "### %s [↗](%s)\n\n%s\n\n", project.Title, project.Website, description)
			for _, news := range rp.news {
				report.WriteString(newsMarkdown(news, cfg))
			}
		}
	}

	// Media to fetch, deduplicated across the whole assigned set.
	images, videos := 0, 0
	seenLocators := make(map[string]struct{})
	for _, news := range sorted {
		if !news.IsAssigned() {
			continue
		}
		for _, media := range news.DisplayMedia() {
			if _, ok := seenLocators[media.Locator]; ok {
				continue
			}
			seenLocators[media.Locator] = struct{}{}
			result.MediaToFetch = append(result.MediaToFetch, media)
			switch media.Kind {
			case model.MediaImage:
				images++
			case model.MediaVideo:
				videos++
			}
		}
	}

	if skipped > 0 {
		result.Warnings = append([]string{fmt.Sprintf(
			"%d unassigned news entries got skipped, they will not appear in the rendered report.", skipped)},
			result.Warnings...)
	}
	result.Notes = append([]string{fmt.Sprintf(
		"Rendered %d news entries (%d skipped, %d images, %d videos).",
		included, skipped, images, videos)}, result.Notes...)

	result.Document = substituteTemplate(template, report.String(), projectNames, editorDisplayName, time.Now().UTC())
	return result
}

// newsMarkdown renders one entry: reporter link, reporting verb, the
// block-quoted message, and any attached media snippets.
func newsMarkdown(news *model.News, cfg *config.Config) string {
	user := fmt.Sprintf("[%s](https://matrix.to/#/%s)", news.ReporterDisplayName, news.ReporterID)

	message := strings.TrimSpace(news.Message)
	message = "> " + strings.ReplaceAll(message, "\n", "\n> ")
	message = strings.ReplaceAll(message, "> -", "> *")

	var b strings.Builder
	fmt.Fprintf(&b, "%s %s\n\n%s\n\n", user, cfg.RandomVerb(), message)
	for _, media := range news.DisplayMedia() {
		snippet := cfg.ImageMarkdown
		if media.Kind == model.MediaVideo {
			snippet = cfg.VideoMarkdown
		}
		b.WriteString(strings.ReplaceAll(snippet, "{{file}}", media.DisplayName()))
		b.WriteString("\n\n")
	}
	return b.String()
}

func substituteTemplate(template, report string, projectNames map[string]struct{}, author string, now time.Time) string {
	_, week := now.ISOWeek()
	weekAgo := now.AddDate(0, 0, -7)
	timespan := fmt.Sprintf("%s to %s", weekAgo.Format("January 02"), now.Format("January 02"))

	names := make([]string, 0, len(projectNames))
	for name := range projectNames {
		names = append(names, fmt.Sprintf("%q", name))
	}
	sort.Strings(names)

	out := template
	out = strings.ReplaceAll(out, "{{weeknumber}}", fmt.Sprintf("%d", week))
	out = strings.ReplaceAll(out, "{{timespan}}", timespan)
	out = strings.ReplaceAll(out, "{{projects}}", strings.Join(names, ", "))
	out = strings.ReplaceAll(out, "{{today}}", now.Format("2006-01-02"))
	out = strings.ReplaceAll(out, "{{author}}", author)
	out = strings.ReplaceAll(out, "{{report}}", strings.TrimSpace(report))
	return out
}

func messageLink(cfg *config.Config, eventID string) string {
	return fmt.Sprintf("<a href=\"https://matrix.to/#/%s/%s\">open message</a>", cfg.ReportingRoomID, eventID)
}
