// Package trends resolves the optional trends section of an edition from
// an inline string, an HTML file, or an RSS/Atom feed.
package trends

import (
	"fmt"
	"html"
	"log"
	"net/url"
	"os"
	"strings"

	readability "github.com/go-shiori/go-readability"
	"github.com/mmcdole/gofeed"
)

const maxFeedItems = 8

// FromFile reads trends markup from a file. A bare HTML fragment is used
// as-is; a full HTML document (as saved from a browser or dashboard
// export) goes through readability extraction so only the content
// fragment lands in the edition, not a second <html> shell.
func FromFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("reading trends file: %w", err)
	}

	markup := strings.TrimSpace(string(data))
	if !isFullDocument(markup) {
		return markup, nil
	}

	pageURL, _ := url.Parse("file://" + path)
	article, err := readability.FromReader(strings.NewReader(markup), pageURL)
	if err != nil || strings.TrimSpace(article.Content) == "" {
		log.Printf("Could not extract content fragment from %s, using file as-is", path)
		return markup, nil
	}
	return article.Content, nil
}

func isFullDocument(markup string) bool {
	head := strings.ToLower(markup)
	if len(head) > 512 {
		head = head[:512]
	}
	return strings.Contains(head, "<html") || strings.Contains(head, "<!doctype")
}

// FromFeed builds a trends section from the newest entries of an RSS or
// Atom feed.
func FromFeed(feedURL string) (string, error) {
	feed, err := gofeed.NewParser().ParseURL(feedURL)
	if err != nil {
		return "", fmt.Errorf("parsing trends feed: %w", err)
	}

	var items []string
	for _, item := range feed.Items {
		if len(items) >= maxFeedItems {
			break
		}
		title := strings.TrimSpace(item.Title)
		if title == "" {
			continue
		}
		if item.Link != "" {
			items = append(items, fmt.Sprintf(`<li><a href="%s">%s</a></li>`,
				html.EscapeString(item.Link), html.EscapeString(title)))
		} else {
			items = append(items, fmt.Sprintf("<li>%s</li>", html.EscapeString(title)))
		}
	}

	if len(items) == 0 {
		return "", fmt.Errorf("trends feed %s has no usable entries", feedURL)
	}

	log.Printf("Built trends section from %d feed entr(ies) (%s)", len(items), feedURL)
	return "<ul>\n" + strings.Join(items, "\n") + "\n</ul>", nil
}
