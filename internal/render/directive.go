package render

import (
	"fmt"
	"regexp"
	"strings"
)

// DirectiveName is the tag of the embed directive, as in
// [article-list title="Featured" count="3"].
const DirectiveName = "article-list"

var (
	directivePattern = regexp.MustCompile(`^\[\s*([A-Za-z0-9_-]+)((?:\s[^\]]*)?)\]$`)
	attrPattern      = regexp.MustCompile(`([A-Za-z_][A-Za-z0-9_-]*)\s*=\s*(?:"([^"]*)"|'([^']*)'|([^\s"'\]]+))`)
)

// ParseDirective extracts the attributes of an article-list directive.
// Values may be double quoted, single quoted or bare.
func ParseDirective(s string) (map[string]string, error) {
	m := directivePattern.FindStringSubmatch(strings.TrimSpace(s))
	if m == nil {
		return nil, fmt.Errorf("malformed directive %q", s)
	}
	if m[1] != DirectiveName {
		return nil, fmt.Errorf("unknown directive %q", m[1])
	}

	body := strings.TrimSuffix(strings.TrimSpace(m[2]), "/")

	attrs := make(map[string]string)
	for _, a := range attrPattern.FindAllStringSubmatch(body, -1) {
		// Exactly one of the value groups matched.
		attrs[strings.ToLower(a[1])] = a[2] + a[3] + a[4]
	}

	return attrs, nil
}
