package bot

import (
	"regexp"
	"strings"
	"sync"
)

// mentionMatcher detects and strips a leading mention of the bot. The
// user ID pattern is compiled once (the ID never changes at runtime);
// the display-name pattern is cached keyed by the current name and
// recompiled when the name changes.
type mentionMatcher struct {
	userRe *regexp.Regexp

	mu         sync.Mutex
	cachedName string
	nameRe     *regexp.Regexp
}

// newMentionMatcher builds a matcher for a fully-qualified user ID
// ("@newsbot:example.org"). The mention is case-insensitive, the leading
// @ and the homeserver suffix are optional, and a trailing colon is
// allowed.
func newMentionMatcher(userID string) *mentionMatcher {
	localpart := strings.TrimPrefix(userID, "@")
	server := ""
	if i := strings.Index(localpart, ":"); i >= 0 {
		server = localpart[i+1:]
		localpart = localpart[:i]
	}

	pattern := "(?i)^@?" + regexp.QuoteMeta(localpart)
	if server != "" {
		pattern += "(:" + regexp.QuoteMeta(server) + ")?"
	}
	pattern += ":?"

	return &mentionMatcher{userRe: regexp.MustCompile(pattern)}
}

// Matches reports whether msg starts with a mention of the bot, by user
// ID or by the given current display name.
func (m *mentionMatcher) Matches(displayName, msg string) bool {
	if m.userRe.MatchString(msg) {
		return true
	}
	if re := m.displayNameRe(displayName); re != nil {
		return re.MatchString(msg)
	}
	return false
}

// Strip removes a leading bot mention (user ID form, then display-name
// form) and trims the remainder.
func (m *mentionMatcher) Strip(displayName, msg string) string {
	msg = m.userRe.ReplaceAllString(msg, "")
	if re := m.displayNameRe(displayName); re != nil {
		msg = re.ReplaceAllString(msg, "")
	}
	return strings.TrimSpace(msg)
}

func (m *mentionMatcher) displayNameRe(displayName string) *regexp.Regexp {
	if displayName == "" {
		return nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.nameRe == nil || m.cachedName != displayName {
		m.nameRe = regexp.MustCompile("(?i)^" + regexp.QuoteMeta(displayName) + ":?")
		m.cachedName = displayName
	}
	return m.nameRe
}
