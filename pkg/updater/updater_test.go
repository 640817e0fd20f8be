// Copyright 2022 VMware, Inc. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package updater

import (
	"archive/tar"
	"bytes"
	"compress/gzip"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/forgecli/forge/pkg/apperrors"
	"github.com/forgecli/forge/pkg/cliconfig"
	"github.com/forgecli/forge/pkg/paths"
	"github.com/forgecli/forge/pkg/release"
)

type fixedRand struct{ v float64 }

func (f fixedRand) Float64() float64 { return f.v }

type rewriteToServer struct{ base string }

func (r rewriteToServer) RoundTrip(req *http.Request) (*http.Response, error) {
	u := *req.URL
	u.Scheme = "http"
	u.Host = strings.TrimPrefix(r.base, "http://")
	req2 := req.Clone(req.Context())
	req2.URL = &u
	req2.Host = u.Host
	return http.DefaultTransport.RoundTrip(req2)
}

func buildGzTar(t *testing.T, binName, body string) ([]byte, string) {
	t.Helper()
	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	tw := tar.NewWriter(gz)
	require.NoError(t, tw.WriteHeader(&tar.Header{Name: "bin", Typeflag: tar.TypeDir, Mode: 0o755}))
	require.NoError(t, tw.WriteHeader(&tar.Header{
		Name: "bin/" + binName, Typeflag: tar.TypeReg, Mode: 0o755, Size: int64(len(body)),
	}))
	_, err := tw.Write([]byte(body))
	require.NoError(t, err)
	require.NoError(t, tw.Close())
	require.NoError(t, gz.Close())
	sum := sha256.Sum256(buf.Bytes())
	return buf.Bytes(), hex.EncodeToString(sum[:])
}

func newHarness(t *testing.T, mux *http.ServeMux, cfg *cliconfig.Config) (*Updater, *paths.Paths) {
	t.Helper()
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	cfg.S3Host = strings.TrimPrefix(srv.URL, "http://")
	cfg.CacheDir = t.TempDir()
	cfg.DataDir = t.TempDir()

	p := paths.New(cfg)
	client := release.NewClient(cfg, p)
	httpClient := srv.Client()
	httpClient.Transport = rewriteToServer{srv.URL}
	client.SetHTTPClient(httpClient)

	u := New(cfg, p, client, WithRand(fixedRand{v: 0.5}))
	return u, p
}

func baseConfig() *cliconfig.Config {
	return &cliconfig.Config{
		Bin: "forge", Name: "forge", Version: "1.2.3", Channel: "stable",
		Platform: "linux", Arch: "amd64",
	}
}

func TestUpdateNoopWhenAlreadyCurrent(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/forge/channels/stable/linux-amd64", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(release.Manifest{Version: "1.2.3", Channel: "stable"})
	})

	cfg := baseConfig()
	u, p := newHarness(t, mux, cfg)

	err := u.Update(context.Background(), "stable", true)
	require.NoError(t, err)

	_, err = os.Lstat(p.ClientBin())
	assert.True(t, os.IsNotExist(err), "no download/link should happen on a no-op")
}

func TestUpdatePrioritySkipsAutoupdate(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/forge/channels/stable/linux-amd64", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(release.Manifest{Version: "1.3.0", Channel: "stable", Priority: 80})
	})

	cfg := baseConfig()
	// fixedRand returns 50/100 = 0.5 draw -> r=50 < priority=80 -> skip.
	u, p := newHarness(t, mux, cfg)

	err := u.Update(context.Background(), "stable", false)
	require.NoError(t, err)

	_, err = os.Lstat(p.ClientBin())
	assert.True(t, os.IsNotExist(err), "priority skip must not install anything")
}

func TestUpdateHappyPath(t *testing.T) {
	archive, sum := buildGzTar(t, "forge", "new binary contents")

	mux := http.NewServeMux()
	mux.HandleFunc("/forge/channels/stable/linux-amd64", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(release.Manifest{Version: "1.3.0", Channel: "stable", SHA256Gz: sum})
	})
	mux.HandleFunc("/forge/channels/stable/forge-v1.3.0-linux-amd64.tar.gz", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write(archive)
	})

	cfg := baseConfig()
	u, p := newHarness(t, mux, cfg)

	// Simulate the pre-existing current-version tree so we can assert it
	// survives the update (end-to-end scenario 3).
	require.NoError(t, os.MkdirAll(filepath.Join(p.ClientVersionRoot("1.2.3"), "bin"), 0o755))
	require.NoError(t, os.WriteFile(p.ClientVersionBin("1.2.3"), []byte("old"), 0o755))

	err := u.Update(context.Background(), "stable", true)
	require.NoError(t, err)

	body, err := os.ReadFile(p.ClientVersionBin("1.3.0"))
	require.NoError(t, err)
	assert.Equal(t, "new binary contents", string(body))

	link, err := os.Readlink(p.ClientBin())
	require.NoError(t, err)
	assert.Equal(t, p.ClientVersionBin("1.3.0"), link)

	_, err = os.Stat(p.ClientVersionRoot("1.2.3"))
	assert.NoError(t, err, "old tree must still be present immediately after the update")
}

func TestUpdateSHAMismatchIsFatalAndLeavesNoPartialTree(t *testing.T) {
	archive, _ := buildGzTar(t, "forge", "corrupted payload")

	mux := http.NewServeMux()
	mux.HandleFunc("/forge/channels/stable/linux-amd64", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(release.Manifest{Version: "1.3.0", Channel: "stable", SHA256Gz: "0000000000000000000000000000000000000000000000000000000000000000"})
	})
	mux.HandleFunc("/forge/channels/stable/forge-v1.3.0-linux-amd64.tar.gz", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write(archive)
	})

	cfg := baseConfig()
	u, p := newHarness(t, mux, cfg)

	err := u.Update(context.Background(), "stable", true)
	require.Error(t, err)
	var integrityErr *apperrors.IntegrityError
	require.ErrorAs(t, err, &integrityErr)

	baseDir := p.ClientVersionRoot("forge-v1.3.0-linux-amd64")
	_, statErr := os.Stat(baseDir)
	assert.True(t, os.IsNotExist(statErr))
}

func TestUpdateInvalidChannel(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/forge/channels/foo/linux-amd64", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	})

	cfg := baseConfig()
	u, _ := newHarness(t, mux, cfg)

	err := u.Update(context.Background(), "foo", true)
	require.Error(t, err)
	assert.Equal(t, "HTTP 403: Invalid channel foo", err.Error())
}

func TestTidyRemovesOldRetainsCurrentAndRecent(t *testing.T) {
	cfg := baseConfig()
	cfg.CacheDir = t.TempDir()
	cfg.DataDir = t.TempDir()
	p := paths.New(cfg)
	client := release.NewClient(cfg, p)
	u := New(cfg, p, client)

	old := p.ClientVersionRoot("1.0.0")
	recent := p.ClientVersionRoot("1.1.0")
	current := p.ClientVersionRoot("1.2.3")
	binDir := filepath.Join(p.ClientRoot(), "bin")

	for _, dir := range []string{old, recent, current, binDir} {
		require.NoError(t, os.MkdirAll(dir, 0o755))
	}

	oldTime := time.Now().Add(-25 * time.Hour)
	recentTime := time.Now().Add(-23 * time.Hour)
	require.NoError(t, os.Chtimes(old, oldTime, oldTime))
	require.NoError(t, os.Chtimes(recent, recentTime, recentTime))

	require.NoError(t, u.Tidy())

	_, err := os.Stat(old)
	assert.True(t, os.IsNotExist(err), "tree older than 24h must be removed")

	_, err = os.Stat(recent)
	assert.NoError(t, err, "tree younger than 24h must be retained")

	_, err = os.Stat(current)
	assert.NoError(t, err, "current version must always be retained")

	_, err = os.Stat(binDir)
	assert.NoError(t, err, "bin directory must never be tidied away")
}

func TestBinPathResolution(t *testing.T) {
	cfg := baseConfig()
	cfg.CacheDir = t.TempDir()
	cfg.DataDir = t.TempDir()
	p := paths.New(cfg)
	client := release.NewClient(cfg, p)
	u := New(cfg, p, client)

	t.Setenv("CLI_BINPATH", "")
	assert.Equal(t, "forge", u.BinPath(), "falls back to config.Bin when nothing else resolves")
}

func TestBinPathPrefersClientBinWhenPresent(t *testing.T) {
	cfg := baseConfig()
	cfg.CacheDir = t.TempDir()
	cfg.DataDir = t.TempDir()
	p := paths.New(cfg)
	require.NoError(t, os.MkdirAll(filepath.Dir(p.ClientBin()), 0o755))
	require.NoError(t, os.WriteFile(p.ClientBin(), []byte("shim"), 0o755))

	client := release.NewClient(cfg, p)
	u := New(cfg, p, client)
	assert.Equal(t, p.ClientBin(), u.BinPath())
}
