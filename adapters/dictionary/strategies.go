package dictionary

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// ExtractionStrategy pulls candidate audio URLs out of a dictionary page
type ExtractionStrategy interface {
	Name() string
	Extract(doc *goquery.Document) []string
}

// DefaultStrategies is the ranked list used when none is configured
func DefaultStrategies() []ExtractionStrategy {
	return []ExtractionStrategy{
		SourceTagStrategy{},
		PlayButtonStrategy{},
		InlineTextStrategy{},
	}
}

// SourceTagStrategy reads <audio><source src="..."> elements
type SourceTagStrategy struct{}

func (SourceTagStrategy) Name() string { return "source_tag" }

func (SourceTagStrategy) Extract(doc *goquery.Document) []string {
	var urls []string
	doc.Find("audio source[src]").Each(func(_ int, s *goquery.Selection) {
		if src, ok := s.Attr("src"); ok && src != "" {
			urls = append(urls, src)
		}
	})
	return urls
}

// PlayButtonStrategy reads data attributes on the page's play buttons
type PlayButtonStrategy struct{}

func (PlayButtonStrategy) Name() string { return "play_button" }

func (PlayButtonStrategy) Extract(doc *goquery.Document) []string {
	var urls []string
	doc.Find(".audio_play_button, .audio").Each(func(_ int, s *goquery.Selection) {
		src := s.AttrOr("data-src-mp3", "")
		if src == "" {
			src = s.AttrOr("data-src", "")
		}
		if src != "" {
			urls = append(urls, src)
		}
	})
	return urls
}

// InlineTextStrategy scans text nodes, scripts included, for absolute mp3 links
type InlineTextStrategy struct{}

func (InlineTextStrategy) Name() string { return "inline_text" }

func (InlineTextStrategy) Extract(doc *goquery.Document) []string {
	var urls []string
	for _, root := range doc.Nodes {
		walkText(root, func(text string) {
			if u, ok := firstMP3Link(text); ok {
				urls = append(urls, u)
			}
		})
	}
	return urls
}

func walkText(n *html.Node, fn func(string)) {
	if n.Type == html.TextNode {
		fn(n.Data)
		return
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		walkText(c, fn)
	}
}

// firstMP3Link returns the text from the first "http" up to and including the next ".mp3"
func firstMP3Link(text string) (string, bool) {
	start := strings.Index(text, "http")
	if start == -1 {
		return "", false
	}
	rest := text[start:]
	end := strings.Index(rest, ".mp3")
	if end == -1 {
		return "", false
	}
	return rest[:end+len(".mp3")], true
}
