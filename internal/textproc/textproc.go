// Package textproc normalizes model output and splits it into the named
// sections the frontend renders.
package textproc

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/medidocs/backend/internal/messages"
)

// FormatOutputSummary strips Markdown emphasis/heading markers and spaces
// that some models sprinkle around Japanese section labels. Space carries no
// meaning in the generated Japanese text, so it is removed wholesale.
func FormatOutputSummary(text string) string {
	r := strings.NewReplacer("*", "", "＊", "", "#", "", " ", "")
	return r.Replace(text)
}

// sectionPatterns are the recognized header forms, tried in order for each
// label: bracketed/marked label, bare label with optional colon, label alone.
// %s is the quoted label.
var sectionPatterns = []string{
	`^[【\[■●\s]*%s[】\]\s]*[:：]?\s*(.*)$`,
	`^%s\s*[:：]?\s*(.*)$`,
	`^%s\s*$`,
}

type labelMatcher struct {
	label     string
	canonical string
	patterns  []*regexp.Regexp
}

// Parser detects section headers in formatted output. Labels are tried in a
// fixed order: canonical section names first, then aliases; within one label
// the three pattern forms are tried in order and the first hit wins. The
// order dependence is deliberate — existing prompt content relies on it.
type Parser struct {
	sections []string
	matchers []labelMatcher
}

// NewParser builds a parser over the given canonical section names and an
// alias table folding synonym labels onto canonical ones. aliasOrder fixes
// the iteration order of the alias table.
func NewParser(sections []string, aliases map[string]string, aliasOrder []string) *Parser {
	p := &Parser{sections: sections}

	add := func(label, canonical string) {
		m := labelMatcher{label: label, canonical: canonical}
		quoted := regexp.QuoteMeta(label)
		for _, pat := range sectionPatterns {
			m.patterns = append(m.patterns, regexp.MustCompile(fmt.Sprintf(pat, quoted)))
		}
		p.matchers = append(p.matchers, m)
	}

	for _, s := range sections {
		add(s, s)
	}
	for _, a := range aliasOrder {
		add(a, aliases[a])
	}

	return p
}

// NewDefaultParser uses the clinic's configured sections and aliases.
func NewDefaultParser() *Parser {
	return NewParser(messages.DefaultSectionNames, messages.SectionAliases, messages.SectionAliasOrder)
}

// Parse splits formatted output into the canonical sections. Lines before
// the first recognized header are discarded; continuation lines append to
// the open section; a header with trailing content on the same line
// overwrites that section's accumulator.
func (p *Parser) Parse(text string) map[string]string {
	result := make(map[string]string, len(p.sections))
	for _, s := range p.sections {
		result[s] = ""
	}

	current := ""
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		canonical, content, found := p.matchLine(line)
		if found {
			current = canonical
			if content != "" {
				result[current] = content
			}
			continue
		}

		if current == "" {
			continue
		}
		if result[current] != "" {
			result[current] += "\n" + line
		} else {
			result[current] = line
		}
	}

	return result
}

func (p *Parser) matchLine(line string) (canonical, content string, found bool) {
	for _, m := range p.matchers {
		for _, re := range m.patterns {
			sub := re.FindStringSubmatch(line)
			if sub == nil {
				continue
			}
			if len(sub) > 1 {
				content = strings.TrimSpace(sub[1])
			}
			return m.canonical, content, true
		}
	}
	return "", "", false
}
