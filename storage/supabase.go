package storage

import (
	"encoding/json"
	"fmt"
	"time"

	"riseagain/config"

	"github.com/valyala/fasthttp"
)

// ObjectStore is the slice of the hosted storage service this system
// consumes: upload a file, resolve its URL, delete objects.
type ObjectStore interface {
	Upload(bucket, path string, data []byte, contentType string, upsert bool) error
	PublicURL(bucket, path string) string
	SignedURL(bucket, path string, expiresIn time.Duration) (string, error)
	Remove(bucket string, paths []string) error
}

// SupabaseStore talks to the Supabase Storage REST API.
type SupabaseStore struct {
	baseURL    string
	serviceKey string
	client     *fasthttp.Client
}

func NewSupabaseStore(cfg config.StorageConfig) *SupabaseStore {
	return &SupabaseStore{
		baseURL:    cfg.URL,
		serviceKey: cfg.ServiceKey,
		client: &fasthttp.Client{
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 60 * time.Second,
		},
	}
}

func (s *SupabaseStore) do(req *fasthttp.Request, resp *fasthttp.Response) error {
	req.Header.Set("Authorization", "Bearer "+s.serviceKey)
	return s.client.Do(req, resp)
}

// Upload stores an object at bucket/path. The service rejects duplicate
// paths unless upsert is set.
func (s *SupabaseStore) Upload(bucket, path string, data []byte, contentType string, upsert bool) error {
	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(fmt.Sprintf("%s/storage/v1/object/%s/%s", s.baseURL, bucket, path))
	req.Header.SetMethod(fasthttp.MethodPost)
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	req.Header.SetContentType(contentType)
	req.Header.Set("x-upsert", fmt.Sprintf("%t", upsert))
	req.Header.Set("cache-control", "3600")
	req.SetBody(data)

	if err := s.do(req, resp); err != nil {
		return fmt.Errorf("storage upload request failed: %w", err)
	}
	if resp.StatusCode() != fasthttp.StatusOK {
		return fmt.Errorf("storage upload failed (%d): %s", resp.StatusCode(), storageError(resp.Body()))
	}
	return nil
}

// PublicURL resolves the canonical public URL for an object in a public
// bucket. No request is made; the URL shape is deterministic.
func (s *SupabaseStore) PublicURL(bucket, path string) string {
	return fmt.Sprintf("%s/storage/v1/object/public/%s/%s", s.baseURL, bucket, path)
}

// SignedURL issues a time-boxed URL for an object in an access-controlled
// bucket.
func (s *SupabaseStore) SignedURL(bucket, path string, expiresIn time.Duration) (string, error) {
	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(fmt.Sprintf("%s/storage/v1/object/sign/%s/%s", s.baseURL, bucket, path))
	req.Header.SetMethod(fasthttp.MethodPost)
	req.Header.SetContentType("application/json")

	body, _ := json.Marshal(map[string]int{"expiresIn": int(expiresIn.Seconds())})
	req.SetBody(body)

	if err := s.do(req, resp); err != nil {
		return "", fmt.Errorf("storage sign request failed: %w", err)
	}
	if resp.StatusCode() != fasthttp.StatusOK {
		return "", fmt.Errorf("storage sign failed (%d): %s", resp.StatusCode(), storageError(resp.Body()))
	}

	var signed struct {
		SignedURL string `json:"signedURL"`
	}
	if err := json.Unmarshal(resp.Body(), &signed); err != nil {
		return "", fmt.Errorf("storage sign response unreadable: %w", err)
	}
	if signed.SignedURL == "" {
		return "", fmt.Errorf("storage sign returned no URL")
	}
	return s.baseURL + "/storage/v1" + signed.SignedURL, nil
}

// Remove deletes objects from a bucket. Missing paths are not an error on
// the service side.
func (s *SupabaseStore) Remove(bucket string, paths []string) error {
	if len(paths) == 0 {
		return nil
	}

	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(fmt.Sprintf("%s/storage/v1/object/%s", s.baseURL, bucket))
	req.Header.SetMethod(fasthttp.MethodDelete)
	req.Header.SetContentType("application/json")

	body, _ := json.Marshal(map[string][]string{"prefixes": paths})
	req.SetBody(body)

	if err := s.do(req, resp); err != nil {
		return fmt.Errorf("storage delete request failed: %w", err)
	}
	if resp.StatusCode() != fasthttp.StatusOK {
		return fmt.Errorf("storage delete failed (%d): %s", resp.StatusCode(), storageError(resp.Body()))
	}
	return nil
}

func storageError(body []byte) string {
	var apiErr struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if err := json.Unmarshal(body, &apiErr); err == nil {
		if apiErr.Message != "" {
			return apiErr.Message
		}
		if apiErr.Error != "" {
			return apiErr.Error
		}
	}
	if len(body) > 200 {
		body = body[:200]
	}
	return string(body)
}
