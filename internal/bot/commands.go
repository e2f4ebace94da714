package bot

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"news_bot/internal/archive"
	"news_bot/internal/reaction"
	"news_bot/internal/render"
)

const helpText = `Available commands:<br>` +
	`- !help: this overview<br>` +
	`- !about: bot build information<br>` +
	`- !status: news entries and their assignment state<br>` +
	`- !details &lt;name or emoji&gt;: section/project configuration<br>` +
	`- !list-sections: configured sections<br>` +
	`- !list-projects: configured projects<br>` +
	`- !say &lt;message&gt;: repeat a message in the reporting room<br>` +
	`- !suggest &lt;project&gt;: latest entries from a project's feed<br>` +
	`- !render: generate the report document<br>` +
	`- !publish: render and run the configured publish command<br>` +
	`- !reports: recently archived reports<br>` +
	`- !clear: delete all news entries`

// HandleAdminCommand executes one admin-room command. Commands are
// editor-only; everyone else gets a permission notice.
func (b *Bot) HandleAdminCommand(ctx context.Context, senderID, body string) error {
	body = strings.TrimSpace(body)
	if !strings.HasPrefix(body, "!") {
		return nil
	}
	if !b.cfg.IsEditor(senderID) {
		b.adminNotice(ctx, "You don't have the permission to use commands.")
		return nil
	}

	command, args, _ := strings.Cut(body, " ")
	args = strings.TrimSpace(args)
	b.log.Info("admin command", "command", command, "sender", senderID)

	switch command {
	case "!help":
		b.adminHTML(ctx, helpText)
	case "!about":
		b.adminNotice(ctx, "News bot for weekly community reports. Submissions are collected from the reporting room and curated by emoji reactions.")
	case "!status":
		b.adminHTML(ctx, b.formatStatus())
	case "!details":
		b.commandDetails(ctx, args)
	case "!list-sections":
		b.adminHTML(ctx, b.formatSections())
	case "!list-projects":
		b.adminHTML(ctx, b.formatProjects())
	case "!say":
		if args != "" {
			b.reportingText(ctx, args)
		}
	case "!suggest":
		b.commandSuggest(ctx, args)
	case "!render":
		return b.commandRender(ctx, senderID, false)
	case "!publish":
		return b.commandRender(ctx, senderID, true)
	case "!reports":
		b.commandReports(ctx)
	case "!clear":
		count := b.store.Len()
		if err := b.store.Clear(); err != nil {
			return err
		}
		b.adminNotice(ctx, fmt.Sprintf("✅ Cleared %d news entries!", count))
	default:
		b.adminNotice(ctx, fmt.Sprintf("Unrecognized command. %q is not valid, check !help.", command))
	}
	return nil
}

// commandDetails looks a section or project up by name or emoji and
// posts its configuration.
func (b *Bot) commandDetails(ctx context.Context, term string) {
	if term == "" {
		b.adminNotice(ctx, "Usage: !details <section/project name or emoji>")
		return
	}
	if section, ok := b.cfg.SectionByName(term); ok {
		b.adminHTML(ctx, formatSectionDetails(section))
		return
	}
	if project, ok := b.cfg.ProjectByName(term); ok {
		b.adminHTML(ctx, formatProjectDetails(project))
		return
	}
	for i := range b.cfg.Sections {
		if reaction.Equal(b.cfg.Sections[i].Emoji, term) {
			b.adminHTML(ctx, formatSectionDetails(&b.cfg.Sections[i]))
			return
		}
	}
	for i := range b.cfg.Projects {
		if reaction.Equal(b.cfg.Projects[i].Emoji, term) {
			b.adminHTML(ctx, formatProjectDetails(&b.cfg.Projects[i]))
			return
		}
	}
	b.adminNotice(ctx, fmt.Sprintf("❌ No section or project matches %q.", term))
}

// commandSuggest posts the latest entries of a project's feed, as
// inspiration for what to highlight this week.
func (b *Bot) commandSuggest(ctx context.Context, name string) {
	project, ok := b.cfg.ProjectByName(name)
	if !ok {
		b.adminNotice(ctx, fmt.Sprintf("❌ Unknown project %q.", name))
		return
	}
	if project.Feed == "" {
		b.adminNotice(ctx, fmt.Sprintf("❌ Project %q has no feed configured.", project.Name))
		return
	}

	suggestions, err := b.fetcher.Suggestions(ctx, project.Feed, 5)
	if err != nil {
		b.log.Warn("fetch project feed", "project", project.Name, "error", err)
		b.adminNotice(ctx, fmt.Sprintf("❌ Unable to fetch the feed of %q: %v", project.Name, err))
		return
	}
	if len(suggestions) == 0 {
		b.adminNotice(ctx, fmt.Sprintf("The feed of %q has no entries.", project.Name))
		return
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "📰 Latest from “%s”:<br>", project.Title)
	for _, s := range suggestions {
		fmt.Fprintf(&sb, "- <a href=%q>%s</a> (%s)<br>", s.Link, s.Title, s.Published.Format("2006-01-02"))
	}
	b.adminHTML(ctx, sb.String())
}

// commandRender produces the report document, uploads it to the admin
// room, archives it, and posts download commands for referenced media.
// With publish set, the configured publish command additionally runs
// with the document on stdin.
func (b *Bot) commandRender(ctx context.Context, senderID string, publish bool) error {
	template, err := os.ReadFile(b.cfg.TemplatePath)
	if err != nil {
		b.log.Error("read template", "path", b.cfg.TemplatePath, "error", err)
		b.adminNotice(ctx, fmt.Sprintf("❌ Unable to read the report template: %v", err))
		return nil
	}

	editor := b.displayName(ctx, senderID)
	result := render.Render(b.store.List(), b.cfg, string(template), editor)

	locator, err := b.transport.UploadFile(ctx, "rendered.md", []byte(result.Document))
	if err != nil {
		b.log.Error("upload rendered report", "error", err)
		b.adminNotice(ctx, fmt.Sprintf("❌ Unable to upload the rendered report: %v", err))
		return nil
	}
	if err := b.transport.SendFile(ctx, RoomAdmin, locator, "rendered.md"); err != nil {
		b.log.Error("send rendered report", "error", err)
	}

	if len(result.Warnings) > 0 {
		b.adminHTML(ctx, formatMessages(true, result.Warnings))
	}
	if len(result.Notes) > 0 {
		b.adminHTML(ctx, formatMessages(false, result.Notes))
	}
	if cmd := b.mediaDownloadCommands(result); cmd != "" {
		b.adminHTML(ctx, cmd)
	}

	if b.archive != nil {
		report := archive.Report{
			Editor:       senderID,
			Document:     result.Document,
			WarningCount: len(result.Warnings),
			NoteCount:    len(result.Notes),
		}
		if err := b.archive.Save(ctx, &report); err != nil {
			return fmt.Errorf("archive report: %w", err)
		}
	}

	if publish {
		b.publish(ctx, result.Document)
	}
	return nil
}

// mediaDownloadCommands builds a copy-pasteable shell snippet that
// downloads every media file the rendered report references.
func (b *Bot) mediaDownloadCommands(result render.Result) string {
	if len(result.MediaToFetch) == 0 {
		return ""
	}
	var sb strings.Builder
	sb.WriteString("Download the report media with:<br><code>")
	for _, media := range result.MediaToFetch {
		fmt.Fprintf(&sb, "curl %s -o %s<br>", b.transport.MediaDownloadURL(media.Locator), media.DisplayName())
	}
	sb.WriteString("</code>")
	return sb.String()
}

// publish pipes the document into the configured publish command.
func (b *Bot) publish(ctx context.Context, document string) {
	if b.cfg.PublishCommand == "" {
		b.adminNotice(ctx, "❌ No publish command configured.")
		return
	}

	cmd := exec.CommandContext(ctx, "sh", "-c", b.cfg.PublishCommand)
	cmd.Stdin = strings.NewReader(document)
	output, err := cmd.CombinedOutput()
	if err != nil {
		b.log.Error("publish command", "error", err, "output", string(output))
		b.adminNotice(ctx, fmt.Sprintf("❌ Publish command failed: %v", err))
		return
	}
	b.adminNotice(ctx, "✅ Report published!")
}

// commandReports lists recently archived reports.
func (b *Bot) commandReports(ctx context.Context) {
	if b.archive == nil {
		b.adminNotice(ctx, "❌ Report archiving is disabled.")
		return
	}
	reports, err := b.archive.ListRecent(ctx, 10)
	if err != nil {
		b.log.Error("list archived reports", "error", err)
		b.adminNotice(ctx, fmt.Sprintf("❌ Unable to list archived reports: %v", err))
		return
	}
	if len(reports) == 0 {
		b.adminNotice(ctx, "No reports have been archived yet.")
		return
	}

	var sb strings.Builder
	sb.WriteString("🗄️ Archived reports:<br>")
	for _, report := range reports {
		fmt.Fprintf(&sb, "- #%d rendered %s by %s (%d warnings, %d notes)<br>",
			report.ID, report.CreatedAt.Format("2006-01-02 15:04"), report.Editor,
			report.WarningCount, report.NoteCount)
	}
	b.adminHTML(ctx, sb.String())
}
