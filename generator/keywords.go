package generator

import (
	"regexp"
	"strings"
)

// DefaultKeywords are used when a prompt yields no usable keyword.
var DefaultKeywords = []string{"nature", "landscape", "art"}

const maxKeywords = 3

var nonWordRe = regexp.MustCompile(`[^\w\s]`)

var stopWords = map[string]struct{}{}

func init() {
	for _, w := range strings.Fields(`
		a an the and or but in on at to for of with by
		is are was were be been being have has had having
		do does did will would should could can may might must
		this that these those
		over under above below into onto from about through between`) {
		stopWords[w] = struct{}{}
	}
}

// ExtractKeywords returns up to three search keywords from prompt, in order.
func ExtractKeywords(prompt string) []string {
	cleaned := nonWordRe.ReplaceAllString(strings.ToLower(prompt), "")

	keywords := make([]string, 0, maxKeywords)
	for _, word := range strings.Fields(cleaned) {
		if len(word) <= 2 {
			continue
		}
		if _, stop := stopWords[word]; stop {
			continue
		}
		keywords = append(keywords, word)
		if len(keywords) == maxKeywords {
			break
		}
	}
	if len(keywords) == 0 {
		return append([]string(nil), DefaultKeywords...)
	}
	return keywords
}
