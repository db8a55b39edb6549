package services

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/bytedance/sonic"
)

const maxReceiptBytes = 5 << 20

var allowedReceiptTypes = map[string]string{
	"image/png":       ".png",
	"image/jpeg":      ".jpg",
	"image/webp":      ".webp",
	"application/pdf": ".pdf",
}

// ReceiptStorage keeps top-up transfer receipts in object storage.
type ReceiptStorage interface {
	Upload(ctx context.Context, content io.Reader, folder string, name string) (string, error)
	Delete(ctx context.Context, fileURL string) error
	SignedURL(ctx context.Context, fileURL string, ttl time.Duration) (string, error)
}

type SupabaseReceiptStorage struct {
	baseURL    string
	bucket     string
	serviceKey string
	httpClient *http.Client
}

func NewSupabaseReceiptStorage(baseURL, bucket, serviceKey string) *SupabaseReceiptStorage {
	return &SupabaseReceiptStorage{
		baseURL:    strings.TrimRight(baseURL, "/"),
		bucket:     bucket,
		serviceKey: serviceKey,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// Upload stores the receipt under folder/name, adding an extension derived
// from the sniffed content type. Unsupported types are rejected.
func (s *SupabaseReceiptStorage) Upload(ctx context.Context, content io.Reader, folder string, name string) (string, error) {
	data, err := io.ReadAll(io.LimitReader(content, maxReceiptBytes+1))
	if err != nil {
		return "", fmt.Errorf("read receipt: %w", err)
	}
	if len(data) == 0 {
		return "", validationError("receipt is empty")
	}
	if len(data) > maxReceiptBytes {
		return "", validationError("receipt must be at most %d MB", maxReceiptBytes>>20)
	}

	contentType := http.DetectContentType(data)
	ext, ok := allowedReceiptTypes[strings.Split(contentType, ";")[0]]
	if !ok {
		return "", validationError("receipt must be a PNG, JPEG, WEBP image or a PDF")
	}

	objectPath := path.Join(strings.Trim(folder, "/"), name+ext)
	req, err := s.newRequest(ctx, http.MethodPost, "/storage/v1/object/"+s.bucket+"/"+objectPath, bytes.NewReader(data))
	if err != nil {
		return "", err
	}
	req.Header.Set("x-upsert", "false")
	req.Header.Set("Content-Type", contentType)

	if err := s.do(req, "upload receipt", nil); err != nil {
		return "", err
	}
	return fmt.Sprintf("%s/storage/v1/object/%s/%s", s.baseURL, s.bucket, objectPath), nil
}

func (s *SupabaseReceiptStorage) Delete(ctx context.Context, fileURL string) error {
	objectPath, err := s.objectPathFromURL(fileURL)
	if err != nil {
		return err
	}

	req, err := s.newRequest(ctx, http.MethodDelete, "/storage/v1/object/"+s.bucket+"/"+objectPath, nil)
	if err != nil {
		return err
	}
	return s.do(req, "delete receipt", nil)
}

func (s *SupabaseReceiptStorage) SignedURL(ctx context.Context, fileURL string, ttl time.Duration) (string, error) {
	objectPath, err := s.objectPathFromURL(fileURL)
	if err != nil {
		return "", err
	}

	body, err := sonic.Marshal(map[string]int{"expiresIn": int(ttl.Seconds())})
	if err != nil {
		return "", fmt.Errorf("marshal signed url payload: %w", err)
	}
	req, err := s.newRequest(ctx, http.MethodPost, "/storage/v1/object/sign/"+s.bucket+"/"+objectPath, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	var response struct {
		SignedURL string `json:"signedURL"`
	}
	if err := s.do(req, "sign receipt url", &response); err != nil {
		return "", err
	}
	if response.SignedURL == "" {
		return "", fmt.Errorf("signed url missing from response")
	}
	return s.baseURL + "/storage/v1" + response.SignedURL, nil
}

func (s *SupabaseReceiptStorage) newRequest(ctx context.Context, method, endpoint string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, s.baseURL+endpoint, body)
	if err != nil {
		return nil, fmt.Errorf("build storage request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+s.serviceKey)
	req.Header.Set("apikey", s.serviceKey)
	return req, nil
}

func (s *SupabaseReceiptStorage) do(req *http.Request, action string, out any) error {
	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s: %w", action, err)
	}
	defer resp.Body.Close()

	if req.Method == http.MethodDelete && resp.StatusCode == http.StatusNotFound {
		return nil
	}
	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("%s: status %d: %s", action, resp.StatusCode, strings.TrimSpace(string(body)))
	}
	if out == nil {
		return nil
	}

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%s: read response: %w", action, err)
	}
	if err := sonic.Unmarshal(payload, out); err != nil {
		return fmt.Errorf("%s: decode response: %w", action, err)
	}
	return nil
}

func (s *SupabaseReceiptStorage) objectPathFromURL(fileURL string) (string, error) {
	parsed, err := url.Parse(fileURL)
	if err != nil {
		return "", fmt.Errorf("parse file url: %w", err)
	}

	objectPrefix := "/storage/v1/object/" + s.bucket + "/"
	if !strings.HasPrefix(parsed.Path, objectPrefix) {
		return "", fmt.Errorf("file url does not belong to configured bucket")
	}
	return strings.TrimPrefix(parsed.Path, objectPrefix), nil
}
