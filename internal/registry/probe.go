package registry

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// HTTPProbe returns a ProbeFunc issuing GET {url}/health on client. Any 2xx
// status counts as alive.
func HTTPProbe(client *http.Client) ProbeFunc {
	return func(ctx context.Context, url string) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, strings.TrimRight(url, "/")+"/health", nil)
		if err != nil {
			return fmt.Errorf("build health request: %w", err)
		}

		resp, err := client.Do(req)
		if err != nil {
			return fmt.Errorf("connection failed: %w", err)
		}
		defer resp.Body.Close()
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))

		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return fmt.Errorf("server returned status %d", resp.StatusCode)
		}
		return nil
	}
}
