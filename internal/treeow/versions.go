package treeow

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
)

const appStoreTrackName = "Treeow Home"

// InitVersions resolves the app and iOS versions used in the user-agent.
// Both lookups run concurrently and independently; any failure leaves the
// corresponding fallback version in place. Called once at startup.
func (c *Client) InitVersions(ctx context.Context) {
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		c.fetchAppVersion(ctx)
	}()
	go func() {
		defer wg.Done()
		c.fetchIOSVersion(ctx)
	}()
	wg.Wait()

	c.mu.RLock()
	appVersion, iosVersion := c.appVersion, c.iosVersion
	c.mu.RUnlock()
	c.logger.Debug("client versions resolved", "app_version", appVersion, "ios_version", iosVersion)
}

// fetchAppVersion looks up the published app version from the app store
// lookup API. The result list is matched on track name so a repurposed app
// ID cannot poison the user-agent.
func (c *Client) fetchAppVersion(ctx context.Context) {
	if c.cfg.AppVersionURL == "" {
		return
	}

	var lookup struct {
		Results []struct {
			TrackName string `json:"trackName"`
			Version   string `json:"version"`
		} `json:"results"`
	}
	if err := c.getJSON(ctx, c.cfg.AppVersionURL, &lookup); err != nil {
		c.logger.Warn("app version lookup failed", "error", err)
		return
	}

	for _, r := range lookup.Results {
		if r.TrackName == appStoreTrackName && validVersion(r.Version) {
			c.mu.Lock()
			c.appVersion = r.Version
			c.mu.Unlock()
			return
		}
	}
}

// fetchIOSVersion takes the newest iOS release name from the releases feed.
// Names look like "iOS 18.5 (22F76)"; the version is the second word with
// any build suffix stripped.
func (c *Client) fetchIOSVersion(ctx context.Context) {
	if c.cfg.IOSVersionURL == "" {
		return
	}

	var feed []struct {
		Releases []struct {
			Type string `json:"type"`
			Name string `json:"name"`
		} `json:"releases"`
	}
	if err := c.getJSON(ctx, c.cfg.IOSVersionURL, &feed); err != nil {
		c.logger.Warn("ios version lookup failed", "error", err)
		return
	}

	for _, day := range feed {
		for _, release := range day.Releases {
			if release.Type != "iOS" {
				continue
			}
			fields := strings.Fields(release.Name)
			if len(fields) < 2 {
				continue
			}
			version, _, _ := strings.Cut(fields[1], "(")
			if !validVersion(version) {
				continue
			}
			c.mu.Lock()
			c.iosVersion = version
			c.mu.Unlock()
			return
		}
	}
}

// getJSON fetches an unauthenticated third-party endpoint. These are not
// vendor API calls, so no envelope check applies.
func (c *Client) getJSON(ctx context.Context, url string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	return json.Unmarshal(raw, out)
}

// validVersion accepts dotted numeric versions only ("1.1.8", "18.5").
func validVersion(v string) bool {
	if v == "" {
		return false
	}
	for _, r := range v {
		if (r < '0' || r > '9') && r != '.' {
			return false
		}
	}
	return true
}
