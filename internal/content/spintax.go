package content

import (
	"regexp"
	"strconv"
	"strings"
)

var (
	// spinSpan matches an innermost brace span holding at least one pipe.
	spinSpan = regexp.MustCompile(`\{([^{}]*\|[^{}]*)\}`)
	// liquidTag matches output and logic tags, which may also contain pipes
	// (filters) and must not be treated as alternatives.
	liquidTag = regexp.MustCompile(`(?s)\{\{.*?\}\}|\{%.*?%\}`)
	maskToken = regexp.MustCompile("\x00(\\d+)\x00")
)

// Spintax resolves every {a|b|...} span to one of its options, chosen
// uniformly and independently per span. Nested spans resolve innermost
// first. Braces without a pipe and Liquid tags pass through unchanged.
func Spintax(text string, rnd Rand) string {
	if rnd == nil {
		rnd = DefaultRand
	}
	if !strings.Contains(text, "|") {
		return text
	}

	var tags []string
	masked := liquidTag.ReplaceAllStringFunc(text, func(tag string) string {
		tags = append(tags, tag)
		return "\x00" + strconv.Itoa(len(tags)-1) + "\x00"
	})

	for spinSpan.MatchString(masked) {
		masked = spinSpan.ReplaceAllStringFunc(masked, func(span string) string {
			options := strings.Split(span[1:len(span)-1], "|")
			return options[rnd.Intn(len(options))]
		})
	}

	if len(tags) == 0 {
		return masked
	}
	return maskToken.ReplaceAllStringFunc(masked, func(tok string) string {
		i, err := strconv.Atoi(tok[1 : len(tok)-1])
		if err != nil || i >= len(tags) {
			return tok
		}
		return tags[i]
	})
}
