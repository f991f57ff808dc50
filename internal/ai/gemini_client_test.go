package ai

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"quillpress/internal/wordpress"
)

func sseChunk(text string) string {
	return fmt.Sprintf("data: {\"candidates\":[{\"content\":{\"parts\":[{\"text\":%q}]}}]}\n\n", text)
}

func newTestClient(srv *httptest.Server) *GeminiClient {
	c := NewGeminiClient()
	c.SetAPIKey("test-key")
	c.SetBaseURL(srv.URL)
	return c
}

func collect(chunks <-chan string, errs <-chan error) (string, error) {
	var sb strings.Builder
	for chunk := range chunks {
		sb.WriteString(chunk)
	}
	return sb.String(), <-errs
}

func TestGenerateArticleStreams(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Contains(t, r.URL.Path, ":streamGenerateContent")
		assert.Equal(t, "sse", r.URL.Query().Get("alt"))
		assert.Equal(t, "test-key", r.URL.Query().Get("key"))

		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprint(w, sseChunk("## Title\n\n"))
		fmt.Fprint(w, sseChunk("First part. "))
		fmt.Fprint(w, sseChunk("Second part."))
	}))
	defer srv.Close()

	client := newTestClient(srv)
	content, err := collect(client.GenerateArticle(context.Background(), "Coffee", "Professional", "Short"))
	require.NoError(t, err)
	assert.Equal(t, "## Title\n\nFirst part. Second part.", content)
}

func TestGenerateArticleIncludesExistingPostsInPrompt(t *testing.T) {
	var gotBody string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		gotBody = string(body)
		fmt.Fprint(w, sseChunk("text"))
	}))
	defer srv.Close()

	client := newTestClient(srv)
	_, err := collect(client.GenerateArticleWithContext(context.Background(), "Coffee", "Casual", "Short",
		[]wordpress.ExistingPost{{Title: "Old Post", Link: "https://b/old"}}))
	require.NoError(t, err)
	assert.Contains(t, gotBody, "Old Post")
	assert.Contains(t, gotBody, "Coffee")
}

func TestGenerateArticleRequiresAPIKey(t *testing.T) {
	client := NewGeminiClient()
	_, err := collect(client.GenerateArticle(context.Background(), "Topic", "Professional", "Short"))
	assert.Error(t, err)
}

func TestGenerateArticleEmptyStreamIsAnError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Stream ends without ever producing text.
	}))
	defer srv.Close()

	client := newTestClient(srv)
	_, err := collect(client.GenerateArticle(context.Background(), "Topic", "Professional", "Short"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no content")
}

func TestGenerateArticleSurfacesAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		fmt.Fprint(w, `{"error":{"code":403,"message":"key invalid","status":"PERMISSION_DENIED"}}`)
	}))
	defer srv.Close()

	client := newTestClient(srv)
	_, err := collect(client.GenerateArticle(context.Background(), "Topic", "Professional", "Short"))
	require.Error(t, err)

	var apiErr *GeminiError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "PERMISSION_DENIED", apiErr.Status)
	assert.Equal(t, 403, apiErr.Code)
}

func TestGenerateArticleBlockedForSafety(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "data: {\"candidates\":[{\"finishReason\":\"SAFETY\",\"content\":{\"parts\":[]}}]}\n\n")
	}))
	defer srv.Close()

	client := newTestClient(srv)
	_, err := collect(client.GenerateArticle(context.Background(), "Topic", "Professional", "Short"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "safety")
}

func TestGenerateImage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Contains(t, r.URL.Path, ":predict")
		fmt.Fprint(w, `{"predictions":[{"bytesBase64Encoded":"aW1hZ2U="}]}`)
	}))
	defer srv.Close()

	client := newTestClient(srv)
	image, err := client.GenerateImage(context.Background(), "Coffee")
	require.NoError(t, err)
	assert.Equal(t, "aW1hZ2U=", image)
}

func TestGenerateImageEmptyResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"predictions":[]}`)
	}))
	defer srv.Close()

	client := newTestClient(srv)
	_, err := client.GenerateImage(context.Background(), "Coffee")
	assert.Error(t, err)
}

func TestAnalyzeTopic(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Contains(t, r.URL.Path, ":generateContent")
		inner := `{"keyTakeaways":["a","b"],"suggestedTitles":["T1"],"keywords":{"primary":["coffee"]},"outline":{"title":"O","sections":[]}}`
		fmt.Fprintf(w, `{"candidates":[{"content":{"parts":[{"text":%q}]}}]}`, "```json\n"+inner+"\n```")
	}))
	defer srv.Close()

	client := newTestClient(srv)
	result, err := client.AnalyzeTopic(context.Background(), "coffee trends")
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, result.KeyTakeaways)
	assert.Equal(t, []string{"T1"}, result.SuggestedTitles)
	assert.Equal(t, []string{"coffee"}, result.Keywords.Primary)
	assert.Equal(t, "O", result.Outline.Title)
}

func TestStripFences(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"{}", "{}"},
		{"```json\n{}\n```", "{}"},
		{"```\n{}\n```", "{}"},
		{"  {\"a\":1}  ", `{"a":1}`},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, stripFences(tt.in))
	}
}
