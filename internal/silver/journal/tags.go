package journal

import (
	"encoding/json"
	"fmt"
	"strings"
)

// ParseTags turns a landed tags value into a clean list. The source is
// inconsistent: a JSON array, a stringified array that is not valid JSON,
// "null", or empty. Anything unparseable degrades to no tags.
func ParseTags(raw string) []string {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" || strings.EqualFold(trimmed, "null") {
		return nil
	}

	var parsed []any
	if err := json.Unmarshal([]byte(trimmed), &parsed); err == nil {
		var tags []string
		for _, tag := range parsed {
			if tag == nil {
				continue
			}
			if s := strings.TrimSpace(fmt.Sprint(tag)); s != "" {
				tags = append(tags, s)
			}
		}
		return tags
	}

	// Not valid JSON but shaped like a list: split on commas and strip
	// quoting by hand.
	if strings.HasPrefix(trimmed, "[") && strings.HasSuffix(trimmed, "]") {
		var tags []string
		for _, item := range strings.Split(trimmed[1:len(trimmed)-1], ",") {
			if s := strings.Trim(strings.TrimSpace(item), `"'`); s != "" {
				tags = append(tags, s)
			}
		}
		return tags
	}
	return nil
}

// Dimensions pulls the analytic dimensions encoded in tags: "CC:" prefixes
// carry the cost center and "BL:" the business line. The last occurrence of
// each prefix wins.
func Dimensions(tags []string) (costCenter, businessLine *string) {
	for _, tag := range tags {
		if v, ok := strings.CutPrefix(tag, "CC:"); ok {
			costCenter = &v
		} else if v, ok := strings.CutPrefix(tag, "BL:"); ok {
			businessLine = &v
		}
	}
	return costCenter, businessLine
}
