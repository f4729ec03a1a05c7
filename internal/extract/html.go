package extract

import (
	"bytes"
	"fmt"
	"strings"

	"golang.org/x/net/html"
)

// decodeHTML collects visible text, skipping script/style subtrees and
// inserting line breaks at block boundaries. The x/net parser tolerates
// malformed markup, so HTML decoding rarely warns.
func decodeHTML(data []byte) (string, []string) {
	root, err := html.Parse(bytes.NewReader(data))
	if err != nil {
		return "", []string{fmt.Sprintf("could not parse HTML: %v", err)}
	}

	var builder strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.Data {
			case "script", "style", "noscript", "template", "head":
				return
			}
		}
		if n.Type == html.TextNode {
			text := strings.TrimSpace(n.Data)
			if text != "" {
				if builder.Len() > 0 {
					builder.WriteByte(' ')
				}
				builder.WriteString(text)
			}
		}
		for child := n.FirstChild; child != nil; child = child.NextSibling {
			walk(child)
		}
		if n.Type == html.ElementNode && isBlockElement(n.Data) && builder.Len() > 0 {
			builder.WriteByte('\n')
		}
	}
	walk(root)

	return builder.String(), nil
}

func isBlockElement(tag string) bool {
	switch tag {
	case "p", "div", "section", "article", "li", "tr", "br",
		"h1", "h2", "h3", "h4", "h5", "h6", "blockquote", "pre":
		return true
	default:
		return false
	}
}
