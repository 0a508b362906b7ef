// Package render expands {token} placeholders in message templates.
package render

import (
	"strings"

	"github.com/zulandar/herald/internal/models"
)

// Render replaces each {token} in text with its value from ctx. Tokens
// without a value are left verbatim: templates are externally authored and
// a typo must never break delivery.
func Render(text string, ctx map[string]string) string {
	if len(ctx) == 0 || !strings.ContainsRune(text, '{') {
		return text
	}

	var b strings.Builder
	b.Grow(len(text))

	for {
		open := strings.IndexByte(text, '{')
		if open < 0 {
			b.WriteString(text)
			return b.String()
		}
		close := strings.IndexByte(text[open:], '}')
		if close < 0 {
			b.WriteString(text)
			return b.String()
		}
		close += open

		b.WriteString(text[:open])
		token := text[open+1 : close]
		if value, ok := ctx[token]; ok {
			b.WriteString(value)
		} else {
			b.WriteString(text[open : close+1])
		}
		text = text[close+1:]
	}
}

// Blocks renders every block's text against one shared context. The input
// slice is not modified.
func Blocks(blocks []models.ContentBlock, ctx map[string]string) []models.ContentBlock {
	rendered := make([]models.ContentBlock, len(blocks))
	for i, block := range blocks {
		block.Text = Render(block.Text, ctx)
		rendered[i] = block
	}
	return rendered
}
