package trunity

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
)

// Upload stores a file and returns its CDN URL.
func (c *Client) Upload(ctx context.Context, name string, r io.Reader) (string, error) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile("file", name)
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(fw, r); err != nil {
		return "", fmt.Errorf("trunity: read %s: %w", name, err)
	}
	if err := mw.Close(); err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint("/files"), &body)
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	var out struct {
		URL string `json:"url"`
	}
	if err := c.do("upload "+name, req, &out); err != nil {
		return "", err
	}
	if out.URL == "" {
		return "", fmt.Errorf("trunity: upload %s: empty url in response", name)
	}
	return out.URL, nil
}
