package exporter

import (
	"regexp"
	"strings"
)

var (
	faqBulletPattern  = regexp.MustCompile(`(?m)^\*\s+`)
	faqHeadingPattern = regexp.MustCompile(`(?m)^###\s+`)
)

// FormatFAQ converts a generated FAQ ("### question\nanswer" blocks) into the
// export layout: "* question\nanswer" blocks separated by a blank line.
// Bullet-style questions are accepted as well.
func FormatFAQ(faq string) string {
	if faq == "" {
		return ""
	}

	normalized := faqBulletPattern.ReplaceAllString(strings.ReplaceAll(faq, "\r\n", "\n"), "### ")

	var blocks []string
	for _, block := range faqHeadingPattern.Split(normalized, -1) {
		block = strings.TrimSpace(block)
		if block == "" {
			continue
		}
		question, answer, _ := strings.Cut(block, "\n")
		blocks = append(blocks, "* "+strings.TrimSpace(question)+"\n"+strings.TrimSpace(answer))
	}
	return strings.Join(blocks, "\n\n")
}
