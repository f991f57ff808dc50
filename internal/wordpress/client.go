package wordpress

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"regexp"
	"strings"
	"time"

	"quillpress/internal/markdown"
)

// Credentials identify a WordPress site via the REST API. Password is an
// Application Password, not the account password.
type Credentials struct {
	URL      string `json:"url"`
	Username string `json:"username"`
	Password string `json:"password"`
}

func (c Credentials) Complete() bool {
	return c.URL != "" && c.Username != "" && c.Password != ""
}

type PublishResult struct {
	PostID int64  `json:"post_id"`
	URL    string `json:"url"`
}

type ExistingPost struct {
	Title string `json:"title"`
	Link  string `json:"link"`
}

type UserInfo struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// PublishError carries the site's own message where one was returned, so the
// UI can show "Sorry, you are not allowed..." instead of a status code.
type PublishError struct {
	Message string
}

func (e *PublishError) Error() string {
	return e.Message
}

type Client struct {
	httpClient *http.Client
}

func NewClient() *Client {
	return &Client{
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
	}
}

// TestConnection verifies the credentials against /users/me.
func (c *Client) TestConnection(ctx context.Context, creds Credentials) (*UserInfo, error) {
	if !creds.Complete() {
		return nil, &PublishError{Message: "URL, Username, and Application Password are required."}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint(creds, "/wp-json/wp/v2/users/me"), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.SetBasicAuth(creds.Username, creds.Password)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &PublishError{Message: fmt.Sprintf("Connection failed: %v", err)}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, siteError(resp, "Connection failed. Please check URL, Username, and Application Password.")
	}

	var info UserInfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}
	return &info, nil
}

// RecentPosts fetches titles and links of the latest posts, used to give the
// generator context for internal linking.
func (c *Client) RecentPosts(ctx context.Context, creds Credentials) ([]ExistingPost, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		endpoint(creds, "/wp-json/wp/v2/posts?per_page=20&_fields=title,link"), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.SetBasicAuth(creds.Username, creds.Password)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch posts: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &PublishError{Message: "Failed to fetch existing posts from WordPress."}
	}

	var raw []struct {
		Title struct {
			Rendered string `json:"rendered"`
		} `json:"title"`
		Link string `json:"link"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, fmt.Errorf("failed to parse posts: %w", err)
	}

	posts := make([]ExistingPost, 0, len(raw))
	for _, p := range raw {
		posts = append(posts, ExistingPost{Title: p.Title.Rendered, Link: p.Link})
	}
	return posts, nil
}

// Publish converts a generated markdown article to HTML and creates a post,
// uploading the header image to the media library first when one is present.
// A nil scheduleAt publishes immediately; otherwise the post is created with
// status "future" at the given time.
func (c *Client) Publish(ctx context.Context, creds Credentials, markdownContent, imageBase64 string, scheduleAt *time.Time) (*PublishResult, error) {
	if !creds.Complete() {
		return nil, &PublishError{Message: "WordPress URL, Username, and Application Password are required."}
	}

	post := markdown.ParsePost(markdownContent)
	if post.Title == "" {
		return nil, &PublishError{Message: "Could not parse a title (expected '## Title') from the generated content. Cannot publish."}
	}
	htmlContent := markdown.ToHTML(post.Content)

	var featuredMediaID int64
	if imageBase64 != "" {
		id, err := c.uploadMedia(ctx, creds, post.Title, post.AltText, imageBase64)
		if err != nil {
			return nil, &PublishError{Message: fmt.Sprintf("Image upload failed: %v", err)}
		}
		featuredMediaID = id
	}

	body := map[string]interface{}{
		"title":   post.Title,
		"content": htmlContent,
		"status":  "publish",
	}
	if scheduleAt != nil {
		body["status"] = "future"
		body["date"] = scheduleAt.Format("2006-01-02T15:04:05")
	}
	if featuredMediaID != 0 {
		body["featured_media"] = featuredMediaID
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal post: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint(creds, "/wp-json/wp/v2/posts"), bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.SetBasicAuth(creds.Username, creds.Password)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &PublishError{Message: fmt.Sprintf("Failed to publish: %v", err)}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusOK {
		return nil, siteError(resp, "Failed to publish. Check credentials and URL.")
	}

	var created struct {
		ID   int64  `json:"id"`
		Link string `json:"link"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&created); err != nil {
		return nil, fmt.Errorf("failed to parse publish response: %w", err)
	}

	return &PublishResult{PostID: created.ID, URL: created.Link}, nil
}

func (c *Client) uploadMedia(ctx context.Context, creds Credentials, title, altText, imageBase64 string) (int64, error) {
	imageData, err := base64.StdEncoding.DecodeString(imageBase64)
	if err != nil {
		return 0, fmt.Errorf("invalid image data: %w", err)
	}

	if altText == "" {
		altText = fmt.Sprintf("Header image for blog post titled: %s", title)
	}

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	part, err := writer.CreateFormFile("file", mediaFileName(title))
	if err != nil {
		return 0, fmt.Errorf("failed to create form file: %w", err)
	}
	if _, err := part.Write(imageData); err != nil {
		return 0, fmt.Errorf("failed to write image data: %w", err)
	}
	writer.WriteField("title", title)
	writer.WriteField("alt_text", altText)
	writer.WriteField("caption", fmt.Sprintf("Header image for blog post titled: %s", title))
	if err := writer.Close(); err != nil {
		return 0, fmt.Errorf("failed to finalize upload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint(creds, "/wp-json/wp/v2/media"), &buf)
	if err != nil {
		return 0, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.SetBasicAuth(creds.Username, creds.Password)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("failed to upload image: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusOK {
		if msg := decodeSiteMessage(resp); msg != "" {
			return 0, fmt.Errorf("%s", msg)
		}
		return 0, fmt.Errorf("failed to upload image to WordPress (http %d)", resp.StatusCode)
	}

	var media struct {
		ID int64 `json:"id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&media); err != nil {
		return 0, fmt.Errorf("failed to parse media response: %w", err)
	}
	return media.ID, nil
}

var nonWordRe = regexp.MustCompile(`[\s\W]+`)

func mediaFileName(title string) string {
	name := strings.Trim(nonWordRe.ReplaceAllString(strings.ToLower(title), "-"), "-")
	if name == "" {
		name = "generated-post-image"
	}
	return name + ".jpg"
}

func endpoint(creds Credentials, path string) string {
	return strings.TrimSuffix(creds.URL, "/") + path
}

func siteError(resp *http.Response, fallback string) error {
	if msg := decodeSiteMessage(resp); msg != "" {
		return &PublishError{Message: msg}
	}
	return &PublishError{Message: fallback}
}

func decodeSiteMessage(resp *http.Response) string {
	body, err := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err != nil {
		return ""
	}
	var payload struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return ""
	}
	return payload.Message
}
