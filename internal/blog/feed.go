package blog

import (
	"encoding/xml"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/michaelrobgrove/mb-digital-ministry/internal/models"
)

const (
	sitemapNamespace = "http://www.sitemaps.org/schemas/sitemap/0.9"
	summaryRunes     = 200
)

var markupPattern = regexp.MustCompile(`<[^>]+>`)

type rssXML struct {
	XMLName xml.Name   `xml:"rss"`
	Version string     `xml:"version,attr"`
	Channel channelXML `xml:"channel"`
}

type channelXML struct {
	Title       string    `xml:"title"`
	Link        string    `xml:"link"`
	Description string    `xml:"description"`
	Items       []itemXML `xml:"item"`
}

type cdata struct {
	Text string `xml:",cdata"`
}

type itemXML struct {
	Title       cdata  `xml:"title"`
	Link        string `xml:"link"`
	GUID        string `xml:"guid"`
	PubDate     string `xml:"pubDate"`
	Description cdata  `xml:"description"`
}

type urlsetXML struct {
	XMLName xml.Name `xml:"urlset"`
	XMLNS   string   `xml:"xmlns,attr"`
	URLs    []urlXML `xml:"url"`
}

type urlXML struct {
	Loc     string `xml:"loc"`
	LastMod string `xml:"lastmod,omitempty"`
}

// channel describes the feed owner.
type channel struct {
	Title       string
	Link        string
	Description string
}

// renderRSS renders posts, already sorted newest first, as an RSS 2.0 document.
func renderRSS(ch channel, posts []models.Post) ([]byte, error) {
	items := make([]itemXML, 0, len(posts))
	for _, post := range posts {
		items = append(items, itemXML{
			Title:       cdata{Text: post.Title},
			Link:        ch.Link + "/posts/" + post.Slug,
			GUID:        ch.Link + "/posts/" + post.ID,
			PubDate:     post.CreatedAt.UTC().Format(time.RFC1123Z),
			Description: cdata{Text: summarize(post.Content)},
		})
	}
	out := rssXML{
		Version: "2.0",
		Channel: channelXML{
			Title:       ch.Title,
			Link:        ch.Link,
			Description: ch.Description,
			Items:       items,
		},
	}
	return marshalDocument(out)
}

// renderSitemap lists the site root followed by one entry per post.
func renderSitemap(base string, posts []models.Post) ([]byte, error) {
	urls := make([]urlXML, 0, len(posts)+1)
	urls = append(urls, urlXML{Loc: base})
	for _, post := range posts {
		urls = append(urls, urlXML{
			Loc:     base + "/posts/" + post.Slug,
			LastMod: post.CreatedAt.UTC().Format(time.RFC3339),
		})
	}
	return marshalDocument(urlsetXML{XMLNS: sitemapNamespace, URLs: urls})
}

func marshalDocument(v any) ([]byte, error) {
	body, err := xml.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, err
	}
	return append([]byte(xml.Header), body...), nil
}

// summarize strips markup and keeps the first runes of the content.
func summarize(content string) string {
	plain := strings.TrimSpace(markupPattern.ReplaceAllString(content, ""))
	if utf8.RuneCountInString(plain) <= summaryRunes {
		return plain
	}
	return string([]rune(plain)[:summaryRunes])
}
