package service

import (
	"regexp"
	"strings"
)

// Patterns for common email artifacts. A signature delimiter must sit on its
// own line, so dash runs inside forwarded-message banners are not mistaken
// for one; header and reply lines are removed line by line.
var (
	signatureRe = regexp.MustCompile("(?m)^(--|__|––|—)[ \t]*\n(?s:.*)")
	replyLineRe = regexp.MustCompile(`On\s.*(wrote|écrit):`)
	forwardedRe = regexp.MustCompile(`(?i)---------- Forwarded message ---------`)
	headerRe    = regexp.MustCompile(`(?m)^(From|To|Cc|Subject|Date):.*$`)
)

// EmailCleaner strips signatures, quoted-reply headers and forwarded-message
// boilerplate from email bodies before they are embedded. The LLM does not
// need "Sent from my iPhone" in the vector store.
type EmailCleaner struct{}

func NewEmailCleaner() *EmailCleaner { return &EmailCleaner{} }

func (c *EmailCleaner) Clean(text string) string {
	text = signatureRe.ReplaceAllString(text, "")
	text = replyLineRe.ReplaceAllString(text, "")
	text = forwardedRe.ReplaceAllString(text, "")
	text = headerRe.ReplaceAllString(text, "")

	var lines []string
	for _, line := range strings.Split(text, "\n") {
		if strings.TrimSpace(line) != "" {
			lines = append(lines, line)
		}
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}
