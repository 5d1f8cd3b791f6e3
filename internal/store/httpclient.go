package store

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"
)

// HTTPClient инкапсулирует обращение к размещённому документному хранилищу по HTTP.
// Временные сетевые ошибки и ответы 5xx повторяются на уровне клиента.
type HTTPClient struct {
	baseURL    string
	httpClient *http.Client
}

type collectionResponse struct {
	Documents []documentResponse `json:"documents"`
}

type documentResponse struct {
	ID     string `json:"id"`
	Fields Fields `json:"fields"`
}

// NewHTTPClient создаёт клиент документного хранилища по указанному адресу.
func NewHTTPClient(baseURL string) *HTTPClient {
	rc := retryablehttp.NewClient()
	rc.RetryMax = 3
	rc.RetryWaitMin = 500 * time.Millisecond
	rc.RetryWaitMax = 5 * time.Second
	rc.HTTPClient.Timeout = 5 * time.Second
	rc.Logger = nil

	return &HTTPClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: rc.StandardClient(),
	}
}

func (c *HTTPClient) url(parts ...string) string {
	base := c.baseURL
	if !strings.HasPrefix(base, "http://") && !strings.HasPrefix(base, "https://") {
		base = "http://" + base
	}
	return base + "/" + strings.Join(parts, "/")
}

// Close реализует контракт хранилища; соединений, требующих закрытия, у клиента нет.
func (c *HTTPClient) Close() error {
	return nil
}

// FetchCollection возвращает все документы указанной коллекции.
func (c *HTTPClient) FetchCollection(ctx context.Context, name string) ([]Document, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url("api", "collections", name, "documents"), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, statusError(resp.StatusCode, name, "")
	}

	var result collectionResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	docs := make([]Document, 0, len(result.Documents))
	for _, d := range result.Documents {
		docs = append(docs, Document{ID: d.ID, Fields: d.Fields})
	}

	return docs, nil
}

// FetchDocument возвращает поля одного документа коллекции.
func (c *HTTPClient) FetchDocument(ctx context.Context, name, id string) (Fields, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url("api", "collections", name, "documents", id), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, statusError(resp.StatusCode, name, id)
	}

	var result documentResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	if result.Fields == nil {
		result.Fields = Fields{}
	}

	return result.Fields, nil
}

// UpdateDocument выполняет слияние указанных полей с существующим документом.
func (c *HTTPClient) UpdateDocument(ctx context.Context, name, id string, partial Fields) error {
	body, err := json.Marshal(documentResponse{ID: id, Fields: partial})
	if err != nil {
		return fmt.Errorf("encode partial fields: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPatch,
		c.url("api", "collections", name, "documents", id), strings.NewReader(string(body)))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusNoContent {
		return statusError(resp.StatusCode, name, id)
	}

	return nil
}

func statusError(code int, name, id string) error {
	switch {
	case code == http.StatusNotFound:
		if id == "" {
			return fmt.Errorf("%w: %s", ErrNotFound, name)
		}
		return fmt.Errorf("%w: %s/%s", ErrNotFound, name, id)
	case code >= http.StatusInternalServerError:
		return fmt.Errorf("%w: unexpected status %d", ErrUnavailable, code)
	default:
		return fmt.Errorf("unexpected status: %d", code)
	}
}
