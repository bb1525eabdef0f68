package normalize

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

var (
	trailingSpace = regexp.MustCompile(`[ \t]+\n`)
	blankRuns     = regexp.MustCompile(`\n{3,}`)
	spaceRuns     = regexp.MustCompile(`\s+`)
)

// HTMLToMarkdown renders exported page HTML as markdown-like text, keeping
// headings, lists, links, code and tables.
func HTMLToMarkdown(html string) string {
	if strings.TrimSpace(html) == "" {
		return ""
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return ""
	}
	doc.Find("script, style, noscript, head").Remove()

	r := &renderer{}
	r.children(doc.Find("body"))

	out := r.b.String()
	out = trailingSpace.ReplaceAllString(out, "\n")
	out = blankRuns.ReplaceAllString(out, "\n\n")
	return strings.TrimSpace(out)
}

type renderer struct {
	b strings.Builder
}

func (r *renderer) children(s *goquery.Selection) {
	s.Contents().Each(func(_ int, c *goquery.Selection) {
		r.node(c)
	})
}

func (r *renderer) node(s *goquery.Selection) {
	name := goquery.NodeName(s)
	switch name {
	case "#text":
		r.text(s.Text())
	case "#comment":
	case "h1", "h2", "h3", "h4", "h5", "h6":
		if text := inline(s); text != "" {
			r.block(strings.Repeat("#", int(name[1]-'0')) + " " + text)
		}
	case "p", "div", "section", "article", "blockquote":
		r.write("\n\n")
		r.children(s)
		r.write("\n\n")
	case "br":
		r.write("\n")
	case "hr":
		r.block("---")
	case "ul", "ol":
		r.write("\n")
		r.children(s)
		r.write("\n")
	case "li":
		r.item(s)
	case "a":
		text := inline(s)
		href, _ := s.Attr("href")
		switch {
		case text == "":
		case href == "" || strings.HasPrefix(href, "#"):
			r.text(text)
		default:
			r.write("[" + text + "](" + href + ")")
		}
	case "img":
		if alt, _ := s.Attr("alt"); alt != "" {
			r.text(alt)
		}
	case "pre":
		code := strings.Trim(s.Text(), "\n")
		if code != "" {
			r.block("```\n" + code + "\n```")
		}
	case "code":
		if text := inline(s); text != "" {
			r.write("`" + text + "`")
		}
	case "strong", "b":
		if text := inline(s); text != "" {
			r.write("**" + text + "**")
		}
	case "em", "i":
		if text := inline(s); text != "" {
			r.write("_" + text + "_")
		}
	case "table":
		r.table(s)
	default:
		r.children(s)
	}
}

func (r *renderer) table(s *goquery.Selection) {
	r.write("\n\n")
	s.Find("tr").Each(func(i int, tr *goquery.Selection) {
		var cells []string
		header := false
		tr.Children().Each(func(_ int, cell *goquery.Selection) {
			switch goquery.NodeName(cell) {
			case "th":
				header = true
				cells = append(cells, inline(cell))
			case "td":
				cells = append(cells, inline(cell))
			}
		})
		if len(cells) == 0 {
			return
		}
		r.write("| " + strings.Join(cells, " | ") + " |\n")
		if i == 0 && header {
			r.write("|" + strings.Repeat(" --- |", len(cells)) + "\n")
		}
	})
	r.write("\n")
}

// item renders a list entry, indenting continuation lines under the bullet.
func (r *renderer) item(s *goquery.Selection) {
	sub := &renderer{}
	sub.children(s)
	body := strings.TrimSpace(trailingSpace.ReplaceAllString(sub.b.String(), "\n"))
	var lines []string
	for _, line := range strings.Split(body, "\n") {
		if strings.TrimSpace(line) != "" {
			lines = append(lines, line)
		}
	}
	if len(lines) == 0 {
		return
	}
	r.write("\n- " + strings.Join(lines, "\n  "))
}

func (r *renderer) block(s string) {
	r.write("\n\n" + s + "\n\n")
}

func (r *renderer) write(s string) {
	r.b.WriteString(s)
}

// text writes collapsed inline text, dropping spaces at the start of a line.
func (r *renderer) text(s string) {
	s = spaceRuns.ReplaceAllString(s, " ")
	cur := r.b.String()
	if cur == "" || strings.HasSuffix(cur, "\n") || strings.HasSuffix(cur, " ") {
		s = strings.TrimLeft(s, " ")
	}
	r.b.WriteString(s)
}

func inline(s *goquery.Selection) string {
	return strings.TrimSpace(spaceRuns.ReplaceAllString(s.Text(), " "))
}
