package printing

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// statusLabel turns an enum value such as "reading_phase" into "Reading Phase".
// A Caser keeps state, so one is built per call.
func statusLabel(value string) string {
	return cases.Title(language.English).String(strings.ReplaceAll(value, "_", " "))
}
