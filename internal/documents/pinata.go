// Package documents pins shipment documents to an IPFS pinning API and
// returns the resulting content identifier for storage on the shipment.
package documents

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"

	"example.com/supplychain/services/tracker/config"
)

// Pinner uploads a file to content-addressed storage and returns its CID
type Pinner interface {
	PinFile(ctx context.Context, file io.Reader, filename string) (string, error)
}

// pinataClient implements Pinner against a Pinata-compatible pinning API
type pinataClient struct {
	endpoint  string
	apiKey    string
	apiSecret string
	http      *http.Client
}

// NewPinataClient creates a pinning client from the documents configuration
func NewPinataClient(cfg config.DocumentsConfig) Pinner {
	return &pinataClient{
		endpoint:  cfg.PinEndpoint,
		apiKey:    cfg.APIKey,
		apiSecret: cfg.APISecret,
		http:      &http.Client{Timeout: 60 * time.Second},
	}
}

// PinFile uploads the file as multipart form data and returns the CID
func (p *pinataClient) PinFile(ctx context.Context, file io.Reader, filename string) (string, error) {
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)

	part, err := writer.CreateFormFile("file", filename)
	if err != nil {
		return "", fmt.Errorf("failed to create form file: %w", err)
	}
	if _, err := io.Copy(part, file); err != nil {
		return "", fmt.Errorf("failed to read file content: %w", err)
	}

	metadata, _ := json.Marshal(map[string]string{"name": filename})
	if err := writer.WriteField("pinataMetadata", string(metadata)); err != nil {
		return "", fmt.Errorf("failed to write metadata field: %w", err)
	}

	if err := writer.Close(); err != nil {
		return "", fmt.Errorf("failed to finalize multipart body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoint, &body)
	if err != nil {
		return "", fmt.Errorf("failed to build pin request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("pinata_api_key", p.apiKey)
	req.Header.Set("pinata_secret_api_key", p.apiSecret)

	res, err := p.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("pinning request failed: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(res.Body, 1024))
		return "", fmt.Errorf("pinning API returned HTTP %d: %s", res.StatusCode, string(msg))
	}

	var parsed struct {
		IpfsHash string `json:"IpfsHash"`
	}
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return "", fmt.Errorf("failed to decode pinning response: %w", err)
	}
	if parsed.IpfsHash == "" {
		return "", fmt.Errorf("pinning API returned no content identifier")
	}

	return parsed.IpfsHash, nil
}
