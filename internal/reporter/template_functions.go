package reporter

import (
	"fmt"
	"html/template"
	"strings"
	"time"
	"unicode"
)

// titleCase converts string to title case (replaces deprecated strings.Title)
func titleCase(s string) string {
	if s == "" {
		return s
	}

	words := strings.Fields(strings.ReplaceAll(s, "_", " "))
	for i, word := range words {
		runes := []rune(word)
		runes[0] = unicode.ToUpper(runes[0])
		for j := 1; j < len(runes); j++ {
			runes[j] = unicode.ToLower(runes[j])
		}
		words[i] = string(runes)
	}
	return strings.Join(words, " ")
}

// GetCommonTemplateFunctions returns the helpers shared by the report templates.
func GetCommonTemplateFunctions() template.FuncMap {
	return template.FuncMap{
		"title": titleCase,
		"joinStrings": func(s []string, sep string) string {
			return strings.Join(s, sep)
		},
		"formatTime": func(t time.Time, layout string) string {
			if t.IsZero() {
				return "N/A"
			}
			return t.Format(layout)
		},
		"formatDuration": func(d time.Duration) string {
			return d.Round(time.Millisecond).String()
		},
		"inc": func(i int) int {
			return i + 1
		},
		"percent": percent,
	}
}

// percent formats part/total with one decimal; an empty total is 0%.
func percent(part, total int) string {
	if total <= 0 {
		return "0%"
	}
	return fmt.Sprintf("%.1f%%", float64(part)*100/float64(total))
}
