package model

// FormatSmartAnswer is the document format of multi-step interactive pages.
// Pages of this format are treated as family roots by default.
const FormatSmartAnswer = "smart-answer"

// Page is a page reported by the URL-discovery service.
type Page struct {
	// Link is the site-relative path of the page.
	Link string `json:"link"`

	// Title is the human readable page title.
	Title string `json:"title,omitempty"`

	// Format is the document format, e.g. "smart-answer".
	Format string `json:"format,omitempty"`
}

// Links returns the Link of every page, preserving order.
func Links(pages []Page) []string {
	links := make([]string, 0, len(pages))
	for _, p := range pages {
		links = append(links, p.Link)
	}
	return links
}
