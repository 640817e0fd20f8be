// Copyright 2022 VMware, Inc. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package release

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"sync/atomic"

	"github.com/pkg/errors"

	"github.com/forgecli/forge/pkg/apperrors"
	"github.com/forgecli/forge/pkg/cliconfig"
	"github.com/forgecli/forge/pkg/paths"
	"github.com/forgecli/forge/pkg/utils"
)

// Client fetches channel manifests and version documents from the remote
// release host, and streams release archives for the Extractor.
type Client struct {
	cfg        *cliconfig.Config
	paths      *paths.Paths
	httpClient *http.Client

	// retried records whether the one-shot manifest-fetch retry (spec
	// section 5, "the manifest fetch retries once on transport error, a
	// one-shot retry guarded by a per-process flag") has already been
	// spent. It is process-wide by design: after one retry anywhere in
	// the process, further transient failures propagate immediately
	// rather than each fetch call silently doubling its own latency.
	retried atomic.Bool
}

// NewClient builds a release Client bound to cfg.
func NewClient(cfg *cliconfig.Config, p *paths.Paths) *Client {
	return &Client{cfg: cfg, paths: p, httpClient: http.DefaultClient}
}

// SetHTTPClient overrides the underlying http.Client, e.g. to inject a
// proxy-aware transport or, in tests, to redirect requests to a local
// httptest.Server.
func (c *Client) SetHTTPClient(hc *http.Client) {
	c.httpClient = hc
}

func (c *Client) manifestURL(channel string) string {
	u, _ := utils.JoinURL("https://"+c.cfg.S3Host, fmt.Sprintf("%s/channels/%s/%s-%s", c.cfg.Name, channel, c.cfg.Platform, c.cfg.Arch))
	return u
}

func (c *Client) versionURL(channel string) string {
	u, _ := utils.JoinURL("https://"+c.cfg.S3Host, fmt.Sprintf("%s/channels/%s/version", c.cfg.Name, channel))
	return u
}

func (c *Client) archiveURL(channel, base string) string {
	u, _ := utils.JoinURL("https://"+c.cfg.S3Host, fmt.Sprintf("%s/channels/%s/%s.tar.gz", c.cfg.Name, channel, base))
	return u
}

func (c *Client) do(ctx context.Context, url string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return nil, errors.Wrapf(err, "building request for %s", url)
	}
	req.Header.Set("User-Agent", c.cfg.UserAgent())
	return c.httpClient.Do(req)
}

// FetchManifest retrieves the Manifest for channel, remapping HTTP 403 to
// InvalidChannelError and any other non-2xx status to NetworkError. A
// transport-level error (no response at all) is retried once.
func (c *Client) FetchManifest(ctx context.Context, channel string) (*Manifest, error) {
	url := c.manifestURL(channel)

	resp, err := c.do(ctx, url)
	if err != nil {
		if !c.retried.Swap(true) {
			resp, err = c.do(ctx, url)
		}
		if err != nil {
			return nil, errors.Wrapf(err, "fetching manifest from %s", url)
		}
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusForbidden {
		return nil, &apperrors.InvalidChannelError{Channel: channel}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &apperrors.NetworkError{URL: url, Status: resp.StatusCode}
	}

	var m Manifest
	if err := json.NewDecoder(resp.Body).Decode(&m); err != nil {
		return nil, errors.Wrap(err, "decoding manifest response")
	}
	return &m, nil
}

// FetchVersion retrieves the Version for channel. Unless force is true, a
// cached copy at VersionFile(channel) is read first; on cache miss the
// remote is fetched and the response is best-effort written back to the
// cache (write failures are swallowed, matching spec section 4.3).
func (c *Client) FetchVersion(ctx context.Context, channel string, force bool) (*Version, error) {
	versionFile := c.paths.VersionFile(channel)

	if !force {
		v, err := readCachedVersion(versionFile)
		if err == nil {
			return v, nil
		}
		if os.IsPermission(err) {
			return nil, &apperrors.FilesystemError{Path: versionFile, Err: err}
		}
	}

	url := c.versionURL(channel)
	resp, err := c.do(ctx, url)
	if err != nil {
		return nil, errors.Wrapf(err, "fetching version from %s", url)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusForbidden {
		return nil, &apperrors.InvalidChannelError{Channel: channel}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &apperrors.NetworkError{URL: url, Status: resp.StatusCode}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Wrap(err, "reading version response")
	}

	var v Version
	if err := json.Unmarshal(body, &v); err != nil {
		return nil, errors.Wrap(err, "decoding version response")
	}

	_ = writeCachedVersion(versionFile, body)

	return &v, nil
}

func readCachedVersion(path string) (*Version, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var v Version
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, err
	}
	return &v, nil
}

func writeCachedVersion(path string, body []byte) error {
	return os.WriteFile(path, body, 0o644)
}

// StreamBuild opens the archive <base>.tar.gz on channel and returns a
// readable stream along with the declared content length, for progress UI.
func (c *Client) StreamBuild(ctx context.Context, channel, base string) (io.ReadCloser, int64, error) {
	url := c.archiveURL(channel, base)
	resp, err := c.do(ctx, url)
	if err != nil {
		return nil, 0, errors.Wrapf(err, "fetching archive from %s", url)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		resp.Body.Close()
		return nil, 0, &apperrors.NetworkError{URL: url, Status: resp.StatusCode}
	}
	return resp.Body, resp.ContentLength, nil
}
