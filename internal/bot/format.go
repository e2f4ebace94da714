package bot

import (
	"fmt"
	"sort"
	"strings"

	"news_bot/internal/model"
)

// formatMessages renders validation or render messages as an HTML list,
// one icon-prefixed line per message.
func formatMessages(warning bool, messages []string) string {
	icon := "ℹ️"
	if warning {
		icon = "⚠️"
	}
	var sb strings.Builder
	for _, msg := range messages {
		fmt.Fprintf(&sb, "- %s %s<br>", icon, msg)
	}
	return sb.String()
}

// formatNewsList renders short HTML summaries of news entries, linking
// each back to its originating message.
func (b *Bot) formatNewsList(newsList []*model.News) string {
	var sb strings.Builder
	for _, news := range newsList {
		fmt.Fprintf(&sb, "- %s: “%s” [%s]<br>", news.ReporterDisplayName, news.Summary(), b.messageLink(news.ID))
	}
	return sb.String()
}

// formatStatus summarizes the store for the !status command, split by
// whether a section is already assigned.
func (b *Bot) formatStatus() string {
	newsList := b.store.List()

	var assigned, unassigned []*model.News
	for _, news := range newsList {
		if news.IsAssigned() {
			assigned = append(assigned, news)
		} else {
			unassigned = append(unassigned, news)
		}
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "📊 Currently the bot knows %d news entries.<br><br>", len(newsList))
	if len(assigned) != 0 {
		fmt.Fprintf(&sb, "Assigned to a section (%d):<br>%s<br>", len(assigned), b.formatNewsList(assigned))
	}
	if len(unassigned) != 0 {
		fmt.Fprintf(&sb, "Not yet assigned (%d):<br>%s", len(unassigned), b.formatNewsList(unassigned))
	}
	return sb.String()
}

// formatSections lists the configured sections, ordered the way the
// rendered report orders them.
func (b *Bot) formatSections() string {
	sections := append([]model.Section(nil), b.cfg.Sections...)
	sort.SliceStable(sections, func(i, j int) bool {
		if sections[i].Order != sections[j].Order {
			return sections[i].Order < sections[j].Order
		}
		return sections[i].Name < sections[j].Name
	})

	var sb strings.Builder
	sb.WriteString("📝 Configured sections:<br>")
	for _, section := range sections {
		fmt.Fprintf(&sb, "- %s “%s” (%s)<br>", section.Emoji, section.Title, section.Name)
	}
	return sb.String()
}

// formatProjects lists the configured projects.
func (b *Bot) formatProjects() string {
	var sb strings.Builder
	sb.WriteString("📝 Configured projects:<br>")
	for _, project := range b.cfg.Projects {
		fmt.Fprintf(&sb, "- %s “%s” (%s)<br>", project.Emoji, project.Title, project.Name)
	}
	return sb.String()
}

// formatSectionDetails renders one section's full configuration.
func formatSectionDetails(section *model.Section) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Section “%s”<br>", section.Title)
	fmt.Fprintf(&sb, "- Name: %s<br>", section.Name)
	fmt.Fprintf(&sb, "- Emoji: %s<br>", section.Emoji)
	fmt.Fprintf(&sb, "- Order: %d<br>", section.Order)
	if len(section.UsualReporters) != 0 {
		fmt.Fprintf(&sb, "- Usual reporters: %s<br>", strings.Join(section.UsualReporters, ", "))
	}
	return sb.String()
}

// formatProjectDetails renders one project's full configuration.
func formatProjectDetails(project *model.Project) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Project “%s”<br>", project.Title)
	fmt.Fprintf(&sb, "- Name: %s<br>", project.Name)
	fmt.Fprintf(&sb, "- Emoji: %s<br>", project.Emoji)
	fmt.Fprintf(&sb, "- Description: %s<br>", project.Description)
	fmt.Fprintf(&sb, "- Website: %s<br>", project.Website)
	if project.DefaultSection != "" {
		fmt.Fprintf(&sb, "- Default section: %s<br>", project.DefaultSection)
	}
	if project.Feed != "" {
		fmt.Fprintf(&sb, "- Feed: %s<br>", project.Feed)
	}
	if len(project.UsualReporters) != 0 {
		fmt.Fprintf(&sb, "- Usual reporters: %s<br>", strings.Join(project.UsualReporters, ", "))
	}
	return sb.String()
}
