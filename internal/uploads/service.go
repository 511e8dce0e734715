package uploads

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"
)

// ImageHost accepts a local file and returns a durable public URL. The core
// never stores raw bytes, only the returned URL.
type ImageHost interface {
	Upload(ctx context.Context, filename string, file io.Reader) (string, error)
}

// HTTPClient is an ImageHost backed by the image host's HTTP upload API
// (Cloudinary-style unsigned upload endpoint).
type HTTPClient struct {
	BaseURL string
	APIKey  string
	Client  *http.Client
}

type uploadResponse struct {
	URL       string `json:"url"`
	SecureURL string `json:"secure_url"`
}

func (c *HTTPClient) Upload(ctx context.Context, filename string, file io.Reader) (string, error) {
	if c.BaseURL == "" {
		return "", fmt.Errorf("image host: IMAGE_HOST_URL is not set")
	}
	if c.Client == nil {
		c.Client = &http.Client{Timeout: 30 * time.Second}
	}

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", filename)
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(part, file); err != nil {
		return "", err
	}
	if err := mw.Close(); err != nil {
		return "", err
	}

	url := strings.TrimRight(c.BaseURL, "/") + "/upload"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, &buf)
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	if c.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.APIKey)
	}

	resp, err := c.Client.Do(req)
	if err != nil {
		return "", fmt.Errorf("image host request: %w", err)
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("image host error: status %d body: %s", resp.StatusCode, string(respBody))
	}

	var data uploadResponse
	if err := json.Unmarshal(respBody, &data); err != nil {
		return "", fmt.Errorf("image host response decode: %w", err)
	}
	if data.SecureURL != "" {
		return data.SecureURL, nil
	}
	if data.URL != "" {
		return data.URL, nil
	}
	return "", fmt.Errorf("image host returned no URL, body: %s", string(respBody))
}

// Service forwards uploaded form files to the image host.
type Service struct {
	Host ImageHost
}

// UploadAll uploads each form file and returns the durable URLs in order.
func (s *Service) UploadAll(ctx context.Context, files []*multipart.FileHeader) ([]string, error) {
	urls := make([]string, 0, len(files))
	for _, fh := range files {
		f, err := fh.Open()
		if err != nil {
			return nil, err
		}
		name := fmt.Sprintf("%d-%s", time.Now().UnixMilli(), fh.Filename)
		url, err := s.Host.Upload(ctx, name, f)
		f.Close()
		if err != nil {
			return nil, err
		}
		urls = append(urls, url)
	}
	return urls, nil
}
