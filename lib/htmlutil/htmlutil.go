package htmlutil

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"

	"github.com/PuerkitoBio/goquery"
)

var innerWhitespace = regexp.MustCompile(`\s\s+`)

func removeNonPrintable(s string) string {
	newStr := strings.Builder{}
	for _, c := range s {
		if unicode.IsPrint(c) {
			newStr.WriteRune(c)
		}
	}
	return newStr.String()
}

// collapses the whitespace soup server-rendered templates leave
// inside table cells into a single trimmed line
func NormalizeText(s string) string {
	s = removeNonPrintable(s)
	s = strings.Trim(s, " \t\n")
	return innerWhitespace.ReplaceAllString(s, " ")
}

// reads the value attribute of <input name=`name`>, a missing input
// and a missing value attribute are both reported as not ok
func InputValue(doc *goquery.Document, name string) (string, bool) {
	sel := doc.Find(fmt.Sprintf("input[name=%s]", name))
	if sel.Length() == 0 {
		return "", false
	}
	return sel.First().Attr("value")
}
