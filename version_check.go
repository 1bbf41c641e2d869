package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"golang.org/x/mod/semver"

	"github.com/stblab/audioprobe/internal/types"
	"github.com/stblab/audioprobe/internal/util"
)

// Build information, set via -ldflags at build time.
var (
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
)

const (
	githubRepo          = "stblab/audioprobe"
	versionCheckTimeout = 10 * time.Second
)

// githubRelease represents a release with version and status information.
type githubRelease struct {
	TagName    string `json:"tag_name"`
	Draft      bool   `json:"draft"`
	Prerelease bool   `json:"prerelease"`
}

// CheckLatest queries GitHub for the latest release and returns version
// info including whether an update is available.
func CheckLatest(ctx context.Context) (types.VersionInfo, error) {
	current := normalizeVersion(Version)
	info := types.VersionInfo{
		Current:   current,
		Commit:    Commit,
		BuildTime: util.FormatHumanTime(BuildTime),
	}

	ctx, cancel := context.WithTimeoutCause(ctx, versionCheckTimeout,
		errors.New("github API request timeout"))
	defer cancel()

	url := "https://api.github.com/repos/" + githubRepo + "/releases/latest"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return info, err
	}
	req.Header.Set("Accept", "application/vnd.github.v3+json")
	req.Header.Set("User-Agent", "audioprobe/"+Version)

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return info, err
	}
	defer func() {
		_ = resp.Body.Close() //nolint:errcheck // Best-effort cleanup; error doesn't affect caller
	}()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound:
		// No releases exist yet
		return info, nil
	default:
		return info, fmt.Errorf("github API returned status %d", resp.StatusCode)
	}

	var release githubRelease
	if err := json.NewDecoder(resp.Body).Decode(&release); err != nil {
		return info, err
	}

	if release.Draft || release.Prerelease || release.TagName == "" {
		return info, nil
	}

	info.Latest = normalizeVersion(release.TagName)
	if info.Latest != "" && current != "dev" && current != "unknown" {
		info.UpdateAvail = isNewerVersion(info.Latest, current)
	}

	return info, nil
}

// normalizeVersion returns a normalized version string.
func normalizeVersion(v string) string {
	return strings.TrimPrefix(strings.TrimSpace(v), "v")
}

// canonicalVersion returns the version in canonical semver format.
func canonicalVersion(v string) string {
	v = strings.TrimSpace(v)
	if !strings.HasPrefix(v, "v") {
		v = "v" + v
	}
	return v
}

// isNewerVersion reports whether latest is newer than current.
func isNewerVersion(latest, current string) bool {
	latestCanon := canonicalVersion(latest)
	currentCanon := canonicalVersion(current)

	// semver.Compare returns 1 if latestCanon > currentCanon
	return semver.Compare(latestCanon, currentCanon) > 0
}
