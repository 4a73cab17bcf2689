package classifier

import (
	"regexp"
	"sort"
	"strings"
)

var (
	htmlTagPattern    = regexp.MustCompile(`<[^>]+>`)
	whitespacePattern = regexp.MustCompile(`\s+`)
)

// cleanText strips HTML tags and collapses runs of whitespace. Scraped
// descriptions routinely arrive with markup and hard-wrapped lines.
func cleanText(s string) string {
	s = htmlTagPattern.ReplaceAllString(s, " ")
	s = whitespacePattern.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}

// buildQueryText assembles the retrieval query for a product: name, short
// description, a bounded slice of the long description, and the technical
// specifications flattened to "key: value" pairs. Spec keys are sorted so
// the same record always yields the same query text.
func buildQueryText(p *ProductRecord, longBudget int) string {
	var parts []string

	if name := cleanText(p.ProductName); name != "" {
		parts = append(parts, name)
	}
	if short := cleanText(p.ShortDescription); short != "" {
		parts = append(parts, short)
	}
	if long := cleanText(p.LongDescription); long != "" {
		if len(long) > longBudget {
			long = strings.TrimSpace(long[:longBudget])
		}
		parts = append(parts, long)
	}

	if len(p.TechnicalSpecifications) > 0 {
		keys := make([]string, 0, len(p.TechnicalSpecifications))
		for k := range p.TechnicalSpecifications {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		specs := make([]string, 0, len(keys))
		for _, k := range keys {
			v := cleanText(p.TechnicalSpecifications[k])
			if v == "" {
				continue
			}
			specs = append(specs, cleanText(k)+": "+v)
		}
		if len(specs) > 0 {
			parts = append(parts, strings.Join(specs, ", "))
		}
	}

	return strings.Join(parts, ". ")
}
