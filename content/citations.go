package content

import (
	"fmt"
	"regexp"
	"strings"
)

var inlineLinkRe = regexp.MustCompile(`\[([^\]]+)\]\(([^)]+)\)`)

// ConvertToCitations rewrites inline markdown links as numbered references
// listed after a rule at the end. A repeated URL reuses its number.
//
//	See [Go](https://go.dev)  ->  See [Go][1] ... [1]: https://go.dev
func ConvertToCitations(markdown string) string {
	numbers := make(map[string]int)
	var refs []string

	out := inlineLinkRe.ReplaceAllStringFunc(markdown, func(match string) string {
		m := inlineLinkRe.FindStringSubmatch(match)
		text, target := m[1], m[2]
		n, ok := numbers[target]
		if !ok {
			n = len(refs) + 1
			numbers[target] = n
			refs = append(refs, fmt.Sprintf("[%d]: %s", n, target))
		}
		return fmt.Sprintf("[%s][%d]", text, n)
	})

	if len(refs) == 0 {
		return markdown
	}
	return out + "\n\n---\n" + strings.Join(refs, "\n")
}
