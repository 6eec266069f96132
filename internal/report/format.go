package report

import (
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// printer groups digits the way the statistics service dashboards do.
var printer = message.NewPrinter(language.BritishEnglish)

func formatInt(n int64) string {
	return printer.Sprintf("%d", n)
}

func formatFloat(v float64) string {
	return printer.Sprintf("%.1f", v)
}

func formatOptional(v *float64) string {
	if v == nil {
		return "-"
	}
	return formatFloat(*v)
}

// truncateString truncates s to maxLen bytes with an ellipsis.
func truncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return s[:maxLen]
	}
	return s[:maxLen-3] + "..."
}
