package dataset

import (
	"fmt"
	"strings"

	"golang.org/x/net/html"
)

// ReportSummary is the text distilled from a profiling report.
type ReportSummary struct {
	Title    string
	Sections []string
	Alerts   []string
}

// maxSummaryItems bounds how many headings and alerts are kept.
const maxSummaryItems = 20

// SummarizeReport extracts the title, section headings and alert lines from
// an HTML profiling report. Elements whose class mentions "alert" or
// "warning" count as alerts.
func SummarizeReport(htmlContent string) (ReportSummary, error) {
	doc, err := html.Parse(strings.NewReader(htmlContent))
	if err != nil {
		return ReportSummary{}, fmt.Errorf("failed to parse report: %w", err)
	}

	var s ReportSummary
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.Data {
			case "script", "style", "noscript":
				return
			case "title":
				if s.Title == "" {
					s.Title = textOf(n)
				}
				return
			case "h1", "h2", "h3":
				if t := textOf(n); t != "" && len(s.Sections) < maxSummaryItems {
					s.Sections = append(s.Sections, t)
				}
				return
			}
			if isAlert(n) {
				if t := textOf(n); t != "" && len(s.Alerts) < maxSummaryItems {
					s.Alerts = append(s.Alerts, t)
				}
				return
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)

	if s.Title == "" && len(s.Sections) > 0 {
		s.Title = s.Sections[0]
	}
	return s, nil
}

func isAlert(n *html.Node) bool {
	class := strings.ToLower(getAttr(n, "class"))
	return strings.Contains(class, "alert") || strings.Contains(class, "warning")
}

// textOf returns the whitespace-collapsed text content of n.
func textOf(n *html.Node) string {
	var sb strings.Builder
	var collect func(*html.Node)
	collect = func(n *html.Node) {
		if n.Type == html.TextNode {
			sb.WriteString(n.Data)
			sb.WriteByte(' ')
			return
		}
		if n.Type == html.ElementNode && (n.Data == "script" || n.Data == "style") {
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			collect(c)
		}
	}
	collect(n)
	return strings.Join(strings.Fields(sb.String()), " ")
}

func getAttr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}
