// Package netinfo reports the egress address requests are made from.
package netinfo

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// DefaultEchoURL returns the caller's address as plain text.
const DefaultEchoURL = "https://api.ipify.org"

// PublicIP asks an IP echo service which address our requests come from.
func PublicIP(ctx context.Context, client *http.Client, echoURL string) (string, error) {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	if echoURL == "" {
		echoURL = DefaultEchoURL
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, echoURL, nil)
	if err != nil {
		return "", err
	}
	resp, err := client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("ip echo returned HTTP %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 256))
	if err != nil {
		return "", err
	}
	ip := strings.TrimSpace(string(body))
	if ip == "" {
		return "", fmt.Errorf("ip echo returned an empty body")
	}
	return ip, nil
}
