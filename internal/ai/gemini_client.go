package ai

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"quillpress/internal/wordpress"
)

const articlePromptTemplate = `You are an expert blog writer and SEO specialist. Write a complete blog post on the topic below.

TONE: %s
LENGTH: %s

OUTPUT FORMAT (markdown, in this exact order):
Meta Title: <50-60 character SEO title>
Meta Description: <150-160 character meta description>
Header Image Alt Text: <descriptive alt text for the header image>

## <Post Title>

<the full article body using ### subheadings, paragraphs, bold, and bullet lists where appropriate>

RULES:
1. The post title line must start with "## " and appear exactly once.
2. Do not wrap the output in code fences.
3. Write naturally for readers first, search engines second.`

type GeminiClient struct {
	mu         sync.RWMutex
	apiKey     string
	model      string
	imageModel string
	httpClient *http.Client
	baseURL    string
}

type GeminiError struct {
	Code    int
	Message string
	Status  string
}

func (e *GeminiError) Error() string {
	return fmt.Sprintf("gemini api error: %s (status: %s, code: %d)", e.Message, e.Status, e.Code)
}

type geminiRequest struct {
	Contents         []content         `json:"contents"`
	GenerationConfig *generationConfig `json:"generationConfig,omitempty"`
}

type content struct {
	Parts []part `json:"parts"`
	Role  string `json:"role,omitempty"`
}

type part struct {
	Text string `json:"text,omitempty"`
}

type generationConfig struct {
	Temperature      float64 `json:"temperature"`
	ResponseMimeType string  `json:"responseMimeType,omitempty"`
}

type geminiResponse struct {
	Candidates []struct {
		Content struct {
			Parts []struct {
				Text string `json:"text"`
			} `json:"parts"`
		} `json:"content"`
		FinishReason string `json:"finishReason,omitempty"`
	} `json:"candidates"`
	PromptFeedback *struct {
		BlockReason string `json:"blockReason,omitempty"`
	} `json:"promptFeedback,omitempty"`
	Error *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error,omitempty"`
}

func NewGeminiClient() *GeminiClient {
	return &GeminiClient{
		model:      "gemini-2.0-flash",
		imageModel: "imagen-3.0-generate-002",
		baseURL:    "https://generativelanguage.googleapis.com/v1beta",
		httpClient: &http.Client{
			Timeout: 120 * time.Second,
		},
	}
}

func (c *GeminiClient) SetAPIKey(key string) {
	c.mu.Lock()
	c.apiKey = key
	c.mu.Unlock()
}

func (c *GeminiClient) SetModel(model string) {
	if model == "" {
		return
	}
	c.mu.Lock()
	c.model = model
	c.mu.Unlock()
}

func (c *GeminiClient) GetModel() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.model
}

func (c *GeminiClient) SetBaseURL(url string) {
	if url == "" {
		return
	}
	c.mu.Lock()
	c.baseURL = strings.TrimSuffix(url, "/")
	c.mu.Unlock()
}

func (c *GeminiClient) IsConfigured() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.apiKey != ""
}

func (c *GeminiClient) settings() (key, model, imageModel, baseURL string) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.apiKey, c.model, c.imageModel, c.baseURL
}

// GenerateArticle streams a blog post for the topic. Chunks arrive on the
// first channel until it is closed; the second channel then carries exactly
// one value, nil on success. Callers must drain the chunk channel.
func (c *GeminiClient) GenerateArticle(ctx context.Context, topic, tone, length string) (<-chan string, <-chan error) {
	return c.GenerateArticleWithContext(ctx, topic, tone, length, nil)
}

// GenerateArticleWithContext additionally feeds recent posts of the target
// site into the prompt so the model can add internal links.
func (c *GeminiClient) GenerateArticleWithContext(ctx context.Context, topic, tone, length string, existingPosts []wordpress.ExistingPost) (<-chan string, <-chan error) {
	chunks := make(chan string)
	errs := make(chan error, 1)

	go func() {
		defer close(chunks)
		errs <- c.streamArticle(ctx, topic, tone, length, existingPosts, chunks)
	}()

	return chunks, errs
}

func (c *GeminiClient) streamArticle(ctx context.Context, topic, tone, length string, existingPosts []wordpress.ExistingPost, chunks chan<- string) error {
	key, model, _, baseURL := c.settings()
	if key == "" {
		return fmt.Errorf("gemini api key not configured")
	}

	prompt := &strings.Builder{}
	fmt.Fprintf(prompt, articlePromptTemplate, tone, length)
	if len(existingPosts) > 0 {
		prompt.WriteString("\n\nEXISTING POSTS (link to relevant ones with markdown links):\n")
		for _, p := range existingPosts {
			fmt.Fprintf(prompt, "- [%s](%s)\n", p.Title, p.Link)
		}
	}
	fmt.Fprintf(prompt, "\nTOPIC: %s\n", topic)

	body, err := json.Marshal(&geminiRequest{
		Contents: []content{{Parts: []part{{Text: prompt.String()}}}},
		GenerationConfig: &generationConfig{
			Temperature: 0.7,
		},
	})
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/models/%s:streamGenerateContent?alt=sse&key=%s", baseURL, model, key)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return c.decodeAPIError(resp)
	}

	total := 0
	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		if !strings.HasPrefix(line, "data:") {
			continue
		}
		data := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
		if data == "" {
			continue
		}

		var chunk geminiResponse
		if err := json.Unmarshal([]byte(data), &chunk); err != nil {
			return fmt.Errorf("failed to parse stream chunk: %w", err)
		}
		if chunk.Error != nil {
			return &GeminiError{Code: chunk.Error.Code, Message: chunk.Error.Message, Status: chunk.Error.Status}
		}
		if chunk.PromptFeedback != nil && chunk.PromptFeedback.BlockReason != "" {
			return fmt.Errorf("request was blocked: %s", chunk.PromptFeedback.BlockReason)
		}

		for _, cand := range chunk.Candidates {
			if cand.FinishReason == "SAFETY" {
				return fmt.Errorf("response was blocked for safety reasons")
			}
			for _, p := range cand.Content.Parts {
				if p.Text == "" {
					continue
				}
				total += len(p.Text)
				select {
				case chunks <- p.Text:
				case <-ctx.Done():
					return ctx.Err()
				}
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("stream read failed: %w", err)
	}
	if total == 0 {
		return fmt.Errorf("no content returned from gemini")
	}
	return nil
}

// GenerateImage produces a base64-encoded header image for the topic.
func (c *GeminiClient) GenerateImage(ctx context.Context, topic string) (string, error) {
	key, _, imageModel, baseURL := c.settings()
	if key == "" {
		return "", fmt.Errorf("gemini api key not configured")
	}

	body, err := json.Marshal(map[string]interface{}{
		"instances": []map[string]string{
			{"prompt": fmt.Sprintf("A professional, high-quality blog header image for an article about: %s. No text in the image.", topic)},
		},
		"parameters": map[string]interface{}{
			"sampleCount": 1,
			"aspectRatio": "16:9",
		},
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/models/%s:predict?key=%s", baseURL, imageModel, key)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", c.decodeAPIError(resp)
	}

	var result struct {
		Predictions []struct {
			BytesBase64Encoded string `json:"bytesBase64Encoded"`
		} `json:"predictions"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("failed to parse response: %w", err)
	}
	if len(result.Predictions) == 0 || result.Predictions[0].BytesBase64Encoded == "" {
		return "", fmt.Errorf("no image returned from gemini")
	}
	return result.Predictions[0].BytesBase64Encoded, nil
}

// generateJSON runs a single non-streaming prompt whose reply must be one
// JSON document, used by the research, SEO, and repurpose passthroughs.
func (c *GeminiClient) generateJSON(ctx context.Context, prompt string, out interface{}) error {
	key, model, _, baseURL := c.settings()
	if key == "" {
		return fmt.Errorf("gemini api key not configured")
	}

	body, err := json.Marshal(&geminiRequest{
		Contents: []content{{Parts: []part{{Text: prompt}}}},
		GenerationConfig: &generationConfig{
			Temperature:      0.4,
			ResponseMimeType: "application/json",
		},
	})
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/models/%s:generateContent?key=%s", baseURL, model, key)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	var parsed geminiResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}
	if parsed.Error != nil {
		return &GeminiError{Code: parsed.Error.Code, Message: parsed.Error.Message, Status: parsed.Error.Status}
	}
	if len(parsed.Candidates) == 0 || len(parsed.Candidates[0].Content.Parts) == 0 {
		return fmt.Errorf("no response from gemini")
	}

	text := stripFences(parsed.Candidates[0].Content.Parts[0].Text)
	if err := json.Unmarshal([]byte(text), out); err != nil {
		return fmt.Errorf("failed to parse model output: %w", err)
	}
	return nil
}

func (c *GeminiClient) decodeAPIError(resp *http.Response) error {
	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err != nil {
		return fmt.Errorf("gemini api http %d", resp.StatusCode)
	}
	var parsed geminiResponse
	if err := json.Unmarshal(respBody, &parsed); err == nil && parsed.Error != nil {
		return &GeminiError{Code: parsed.Error.Code, Message: parsed.Error.Message, Status: parsed.Error.Status}
	}
	return fmt.Errorf("gemini api http %d", resp.StatusCode)
}

func stripFences(text string) string {
	text = strings.TrimSpace(text)
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")
	return strings.TrimSpace(text)
}
