// Package updater checks GitHub for a newer auto-handoff release. The probe
// is best effort: it is capped at a few seconds, its result is cached in the
// cache directory, and every failure means "no update known".
package updater

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/zxyyang/claude-auto-handoff/internal/storage"
)

const (
	// DefaultRepo is probed when no repository is configured.
	DefaultRepo = "zxyyang/claude-auto-handoff"

	// MaxTimeout caps every probe.
	MaxTimeout = 3 * time.Second

	// DefaultInterval is how long a cached result is reused.
	DefaultInterval = 24 * time.Hour
)

// ReleaseEndpoint returns the latest-release API URL for an owner/name repo.
func ReleaseEndpoint(repo string) string {
	if repo == "" {
		repo = DefaultRepo
	}
	return "https://api.github.com/repos/" + repo + "/releases/latest"
}

// release holds the fields read from the GitHub API.
type release struct {
	TagName string `json:"tag_name"`
	HTMLURL string `json:"html_url"`
}

// Result is one version check, as cached on disk.
type Result struct {
	// TS is when the probe ran, in Unix milliseconds.
	TS            int64  `json:"ts" yaml:"ts"`
	HasUpdate     bool   `json:"hasUpdate" yaml:"has_update"`
	LocalVersion  string `json:"localVersion" yaml:"local_version"`
	RemoteVersion string `json:"remoteVersion" yaml:"remote_version"`
	ReleaseURL    string `json:"releaseUrl,omitempty" yaml:"release_url,omitempty"`
}

// Checker probes for releases and caches the outcome.
type Checker struct {
	// Current is the running version ("dev" never has updates).
	Current string

	// Endpoint is the latest-release URL.
	Endpoint string

	// CachePath is the JSON cache file.
	CachePath string

	// Interval is how long a cached result is fresh.
	Interval time.Duration

	// Timeout bounds one probe; values above MaxTimeout are capped.
	Timeout time.Duration

	Client *http.Client
	Now    func() time.Time
}

// New returns a Checker for repo with its cache under cacheDir.
func New(current, repo, cacheDir string, interval time.Duration) *Checker {
	return &Checker{
		Current:   current,
		Endpoint:  ReleaseEndpoint(repo),
		CachePath: filepath.Join(cacheDir, storage.VersionFile),
		Interval:  interval,
	}
}

func (c *Checker) now() time.Time {
	if c.Now != nil {
		return c.Now()
	}
	return time.Now()
}

func (c *Checker) timeout() time.Duration {
	if c.Timeout <= 0 || c.Timeout > MaxTimeout {
		return MaxTimeout
	}
	return c.Timeout
}

func (c *Checker) interval() time.Duration {
	if c.Interval <= 0 {
		return DefaultInterval
	}
	return c.Interval
}

// Check probes the endpoint now and caches the result. Network and decode
// failures are returned; a failed probe leaves the cache untouched.
func (c *Checker) Check(ctx context.Context) (Result, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout())
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.Endpoint, nil)
	if err != nil {
		return Result{}, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/vnd.github.v3+json")
	req.Header.Set("User-Agent", "auto-handoff/"+c.Current)

	client := c.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return Result{}, fmt.Errorf("checking latest release: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return Result{}, fmt.Errorf("GitHub API returned %d", resp.StatusCode)
	}

	var rel release
	if err := json.NewDecoder(resp.Body).Decode(&rel); err != nil {
		return Result{}, fmt.Errorf("parsing release info: %w", err)
	}

	local := normalizeVersion(c.Current)
	remote := normalizeVersion(rel.TagName)
	res := Result{
		TS:            c.now().UnixMilli(),
		HasUpdate:     isNewer(local, remote),
		LocalVersion:  local,
		RemoteVersion: remote,
		ReleaseURL:    rel.HTMLURL,
	}
	if c.CachePath != "" {
		// A failed write only means the next invocation probes again.
		_ = storage.WriteJSON(c.CachePath, res) //nolint:errcheck
	}
	return res, nil
}

// Cached returns the cached result when it is fresh and was taken for the
// running version; otherwise it probes. ok is false when no result is
// known. A failed probe is cached as "no update" so an offline machine
// pays the timeout once per interval, not once per session.
func (c *Checker) Cached(ctx context.Context) (res Result, ok bool) {
	if r, err := c.Load(); err == nil && c.fresh(r) {
		return r, r.RemoteVersion != ""
	}
	r, err := c.Check(ctx)
	if err != nil {
		if c.CachePath != "" {
			miss := Result{TS: c.now().UnixMilli(), LocalVersion: normalizeVersion(c.Current)}
			_ = storage.WriteJSON(c.CachePath, miss) //nolint:errcheck
		}
		return Result{}, false
	}
	return r, true
}

// Load reads the cache file without probing.
func (c *Checker) Load() (Result, error) {
	if c.CachePath == "" {
		return Result{}, storage.ErrNotFound
	}
	var r Result
	if err := storage.ReadJSON(c.CachePath, &r); err != nil {
		return Result{}, err
	}
	return r, nil
}

func (c *Checker) fresh(r Result) bool {
	if r.LocalVersion != normalizeVersion(c.Current) {
		return false
	}
	age := c.now().Sub(time.UnixMilli(r.TS))
	return age >= 0 && age < c.interval()
}

// normalizeVersion strips one leading "v".
func normalizeVersion(v string) string {
	return strings.TrimPrefix(strings.TrimSpace(v), "v")
}

// isNewer reports whether latest is a higher major.minor.patch than current.
// Pre-release suffixes are ignored; "dev" builds never see updates.
func isNewer(current, latest string) bool {
	if current == "" || latest == "" || current == "dev" {
		return false
	}

	cur := strings.Split(current, ".")
	lat := strings.Split(latest, ".")
	for len(cur) < 3 {
		cur = append(cur, "0")
	}
	for len(lat) < 3 {
		lat = append(lat, "0")
	}

	for i := range 3 {
		c, l := leadingInt(cur[i]), leadingInt(lat[i])
		if l != c {
			return l > c
		}
	}
	return false
}

// leadingInt parses the leading digits of s, 0 when there are none.
func leadingInt(s string) int {
	n := 0
	for _, ch := range s {
		if ch < '0' || ch > '9' {
			break
		}
		n = n*10 + int(ch-'0')
	}
	return n
}
