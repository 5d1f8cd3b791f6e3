// Package geo предоставляет клиент внешней системы маршрутизации.
package geo

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"
)

// Client инкапсулирует HTTP-взаимодействие с системой маршрутизации.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// RouteDistance описывает ответ системы маршрутизации по одному маршруту.
type RouteDistance struct {
	Miles float64 `json:"miles"`
}

// NewClient создаёт HTTP-клиент системы маршрутизации по указанному адресу.
func NewClient(baseURL string) *Client {
	rc := retryablehttp.NewClient()
	rc.RetryMax = 2
	rc.RetryWaitMin = 200 * time.Millisecond
	rc.RetryWaitMax = 2 * time.Second
	rc.HTTPClient.Timeout = 5 * time.Second
	rc.Logger = nil

	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: rc.StandardClient(),
	}
}

// GetDistance запрашивает расстояние в милях между точкой поиска и приютом.
func (c *Client) GetDistance(ctx context.Context, fromLat, fromLon, toLat, toLon float64) (float64, error) {
	if c == nil || c.baseURL == "" {
		return 0, fmt.Errorf("geo client not configured")
	}

	base := c.baseURL
	if !strings.HasPrefix(base, "http://") && !strings.HasPrefix(base, "https://") {
		base = "http://" + base
	}

	params := url.Values{}
	params.Set("fromLat", formatCoord(fromLat))
	params.Set("fromLon", formatCoord(fromLon))
	params.Set("toLat", formatCoord(toLat))
	params.Set("toLon", formatCoord(toLon))

	reqURL := fmt.Sprintf("%s/api/route?%s", base, params.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return 0, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("unexpected status: %d", resp.StatusCode)
	}

	var result RouteDistance
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return 0, fmt.Errorf("decode response: %w", err)
	}

	return result.Miles, nil
}

func formatCoord(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
