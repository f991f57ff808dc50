package markdown

import (
	"regexp"
	"strings"
)

// ParsedPost is the structured form of a generated article. The model is
// instructed to emit meta lines and a "## Title" heading ahead of the body;
// anything it leaves out comes back as an empty field.
type ParsedPost struct {
	MetaTitle       string
	MetaDescription string
	AltText         string
	Title           string
	Content         string
}

var (
	metaTitleRe = regexp.MustCompile(`(?i)^Meta Title:\s*(.*)`)
	metaDescRe  = regexp.MustCompile(`(?i)^Meta Description:\s*(.*)`)
	altTextRe   = regexp.MustCompile(`(?i)^Header Image Alt Text:\s*(.*)`)
	titleRe     = regexp.MustCompile(`^##\s+(.*)`)

	boldRe   = regexp.MustCompile(`\*\*(.*?)\*\*`)
	italicRe = regexp.MustCompile(`\*(.*?)\*`)
	linkRe   = regexp.MustCompile(`\[(.*?)\]\((.*?)\)`)
	codeRe   = regexp.MustCompile("`([^`]+)`")
	blankRe  = regexp.MustCompile(`\n\s*\n`)
	bulletRe = regexp.MustCompile(`^[*-]\s`)
)

// ParsePost extracts the meta lines and first "## " heading from generated
// markdown. The title line itself is removed from the returned content.
func ParsePost(md string) ParsedPost {
	var post ParsedPost
	if md == "" {
		return post
	}

	var contentLines []string
	for _, line := range strings.Split(md, "\n") {
		if post.MetaTitle == "" {
			if m := metaTitleRe.FindStringSubmatch(line); m != nil {
				post.MetaTitle = strings.TrimSpace(m[1])
				continue
			}
		}
		if post.MetaDescription == "" {
			if m := metaDescRe.FindStringSubmatch(line); m != nil {
				post.MetaDescription = strings.TrimSpace(m[1])
				continue
			}
		}
		if post.AltText == "" {
			if m := altTextRe.FindStringSubmatch(line); m != nil {
				post.AltText = strings.TrimSpace(m[1])
				continue
			}
		}
		if post.Title == "" {
			if m := titleRe.FindStringSubmatch(line); m != nil {
				post.Title = strings.TrimSpace(m[1])
				continue
			}
		}
		contentLines = append(contentLines, line)
	}

	post.Content = strings.TrimSpace(strings.Join(contentLines, "\n"))
	return post
}

// ToHTML converts generated markdown to HTML. Supports headings (##-####),
// paragraphs, bold, italic, inline code, links and unordered lists; that is
// the full surface the generation prompt asks the model to use.
func ToHTML(md string) string {
	if md == "" {
		return ""
	}

	var out strings.Builder
	for _, block := range blankRe.Split(md, -1) {
		block = strings.TrimSpace(block)
		if block == "" {
			continue
		}

		switch {
		case strings.HasPrefix(block, "#### "):
			out.WriteString("<h4>" + inline(block[5:]) + "</h4>")
		case strings.HasPrefix(block, "### "):
			out.WriteString("<h3>" + inline(block[4:]) + "</h3>")
		case strings.HasPrefix(block, "## "):
			out.WriteString("<h2>" + inline(block[3:]) + "</h2>")
		case strings.HasPrefix(block, "* "), strings.HasPrefix(block, "- "):
			out.WriteString("<ul>")
			for _, item := range strings.Split(block, "\n") {
				item = strings.TrimSpace(bulletRe.ReplaceAllString(item, ""))
				out.WriteString("<li>" + inline(item) + "</li>")
			}
			out.WriteString("</ul>")
		default:
			out.WriteString("<p>" + inline(block) + "</p>")
		}
	}
	return out.String()
}

func inline(text string) string {
	text = boldRe.ReplaceAllString(text, "<strong>$1</strong>")
	text = italicRe.ReplaceAllString(text, "<em>$1</em>")
	text = linkRe.ReplaceAllString(text, `<a href="$2" target="_blank" rel="noopener noreferrer">$1</a>`)
	text = codeRe.ReplaceAllString(text, "<code>$1</code>")
	return strings.ReplaceAll(text, "\n", "<br />")
}
