package markdown

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

const samplePost = `Meta Title: Ten Tips for Better Coffee
Meta Description: A practical guide to brewing better coffee at home.
Header Image Alt Text: A pour-over coffee setup on a wooden counter.

## Ten Tips for Better Coffee at Home

Good coffee starts with **fresh beans** and the right grind.

- Buy whole beans
- Grind just before brewing
`

func TestParsePost(t *testing.T) {
	post := ParsePost(samplePost)

	assert.Equal(t, "Ten Tips for Better Coffee", post.MetaTitle)
	assert.Equal(t, "A practical guide to brewing better coffee at home.", post.MetaDescription)
	assert.Equal(t, "A pour-over coffee setup on a wooden counter.", post.AltText)
	assert.Equal(t, "Ten Tips for Better Coffee at Home", post.Title)
	assert.NotContains(t, post.Content, "## Ten Tips")
	assert.Contains(t, post.Content, "fresh beans")
}

func TestParsePostMissingPieces(t *testing.T) {
	tests := []struct {
		name string
		md   string
		want ParsedPost
	}{
		{
			name: "empty input",
			md:   "",
			want: ParsedPost{},
		},
		{
			name: "body only",
			md:   "Just a paragraph.",
			want: ParsedPost{Content: "Just a paragraph."},
		},
		{
			name: "title but no meta lines",
			md:   "## Hello\n\nWorld.",
			want: ParsedPost{Title: "Hello", Content: "World."},
		},
		{
			name: "meta lines are case-insensitive",
			md:   "meta title: X\n\n## Y\n\nZ.",
			want: ParsedPost{MetaTitle: "X", Title: "Y", Content: "Z."},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ParsePost(tt.md))
		})
	}
}

func TestParsePostOnlyFirstTitleIsExtracted(t *testing.T) {
	post := ParsePost("## First\n\n## Second\n\nBody.")

	assert.Equal(t, "First", post.Title)
	assert.Contains(t, post.Content, "## Second")
}

func TestToHTML(t *testing.T) {
	tests := []struct {
		name string
		md   string
		want string
	}{
		{
			name: "empty",
			md:   "",
			want: "",
		},
		{
			name: "paragraph",
			md:   "Hello world.",
			want: "<p>Hello world.</p>",
		},
		{
			name: "headings",
			md:   "## Two\n\n### Three\n\n#### Four",
			want: "<h2>Two</h2><h3>Three</h3><h4>Four</h4>",
		},
		{
			name: "bold and italic",
			md:   "This is **bold** and *italic*.",
			want: "<p>This is <strong>bold</strong> and <em>italic</em>.</p>",
		},
		{
			name: "inline code",
			md:   "Run `go doc` locally.",
			want: "<p>Run <code>go doc</code> locally.</p>",
		},
		{
			name: "link opens in new tab",
			md:   "See [the docs](https://example.com).",
			want: `<p>See <a href="https://example.com" target="_blank" rel="noopener noreferrer">the docs</a>.</p>`,
		},
		{
			name: "unordered list with both markers",
			md:   "- one\n* two",
			want: "<ul><li>one</li><li>two</li></ul>",
		},
		{
			name: "single newline becomes a line break",
			md:   "line one\nline two",
			want: "<p>line one<br />line two</p>",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ToHTML(tt.md))
		})
	}
}

func TestToHTMLFullPost(t *testing.T) {
	html := ToHTML(ParsePost(samplePost).Content)

	assert.Contains(t, html, "<strong>fresh beans</strong>")
	assert.Contains(t, html, "<ul><li>Buy whole beans</li><li>Grind just before brewing</li></ul>")
	assert.NotContains(t, html, "##")
}
