package ai

import (
	"context"
	"fmt"
)

type ResearchResult struct {
	KeyTakeaways    []string `json:"keyTakeaways"`
	SuggestedTitles []string `json:"suggestedTitles"`
	Keywords        struct {
		Primary   []string `json:"primary"`
		Secondary []string `json:"secondary"`
	} `json:"keywords"`
	Outline struct {
		Title    string `json:"title"`
		Sections []struct {
			Heading string   `json:"heading"`
			Points  []string `json:"points"`
		} `json:"sections"`
	} `json:"outline"`
}

type SeoAnalysisResult struct {
	SeoScore        int `json:"seoScore"`
	KeywordAnalysis struct {
		PrimaryKeyword string `json:"primaryKeyword"`
		Density        string `json:"density"`
		Feedback       string `json:"feedback"`
	} `json:"keywordAnalysis"`
	Readability struct {
		Score    string `json:"score"`
		Feedback string `json:"feedback"`
	} `json:"readability"`
	TitleAnalysis struct {
		Length   int    `json:"length"`
		Feedback string `json:"feedback"`
	} `json:"titleAnalysis"`
	MetaDescriptionAnalysis struct {
		Length   int    `json:"length"`
		Feedback string `json:"feedback"`
	} `json:"metaDescriptionAnalysis"`
	HeadingStructure struct {
		Feedback string `json:"feedback"`
	} `json:"headingStructure"`
	LinkAnalysis struct {
		InternalLinks int    `json:"internalLinks"`
		ExternalLinks int    `json:"externalLinks"`
		Feedback      string `json:"feedback"`
	} `json:"linkAnalysis"`
	OverallSuggestions []string `json:"overallSuggestions"`
}

// AnalyzeTopic researches a topic or URL and returns takeaways, title ideas,
// keywords, and an article outline.
func (c *GeminiClient) AnalyzeTopic(ctx context.Context, query string) (*ResearchResult, error) {
	prompt := fmt.Sprintf(`You are a content research assistant. Research the following topic or URL and return a JSON object with this exact shape:
{
  "keyTakeaways": ["..."],
  "suggestedTitles": ["..."],
  "keywords": {"primary": ["..."], "secondary": ["..."]},
  "outline": {"title": "...", "sections": [{"heading": "...", "points": ["..."]}]}
}

TOPIC OR URL: %s`, query)

	var result ResearchResult
	if err := c.generateJSON(ctx, prompt, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// AnalyzeSeo scores a markdown article and returns structured SEO feedback.
func (c *GeminiClient) AnalyzeSeo(ctx context.Context, markdownContent string) (*SeoAnalysisResult, error) {
	prompt := fmt.Sprintf(`You are an SEO auditor. Analyze the markdown article below (it starts with Meta Title, Meta Description, and Header Image Alt Text lines) and return a JSON object with this exact shape:
{
  "seoScore": 0,
  "keywordAnalysis": {"primaryKeyword": "...", "density": "...", "feedback": "..."},
  "readability": {"score": "...", "feedback": "..."},
  "titleAnalysis": {"length": 0, "feedback": "..."},
  "metaDescriptionAnalysis": {"length": 0, "feedback": "..."},
  "headingStructure": {"feedback": "..."},
  "linkAnalysis": {"internalLinks": 0, "externalLinks": 0, "feedback": "..."},
  "overallSuggestions": ["..."]
}
seoScore is 0-100.

ARTICLE:
%s`, markdownContent)

	var result SeoAnalysisResult
	if err := c.generateJSON(ctx, prompt, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// Repurpose rewrites an article into another format such as a Twitter
// thread, LinkedIn post, or email newsletter.
func (c *GeminiClient) Repurpose(ctx context.Context, markdownContent, format string) (string, error) {
	prompt := fmt.Sprintf(`Rewrite the blog article below as a %s. Keep the key points, adapt the voice to the target medium, and return a JSON object of the shape {"content": "..."}.

ARTICLE:
%s`, format, markdownContent)

	var result struct {
		Content string `json:"content"`
	}
	if err := c.generateJSON(ctx, prompt, &result); err != nil {
		return "", err
	}
	if result.Content == "" {
		return "", fmt.Errorf("no repurposed content returned")
	}
	return result.Content, nil
}
