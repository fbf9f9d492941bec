// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

// Package mediaid extracts a comparable media identity (show, season,
// episode, resolution, TMDB id) from library file paths. Hotswap matching
// and season grouping both key off these identities.
package mediaid

import (
	"path"
	"regexp"
	"strings"

	"github.com/moistari/rls"
)

// Identity is what two library entries are compared by. TMDBID wins when
// both sides carry one, otherwise the normalized title is used.
type Identity struct {
	Title      string
	NormTitle  string
	TMDBID     int64
	Year       int
	Season     int
	Episode    int
	Resolution string
}

// IsEpisode reports whether the identity carries series/episode numbering.
func (id Identity) IsEpisode() bool {
	return id.Season > 0 && id.Episode > 0
}

var tmdbRe = regexp.MustCompile(`(?i)[{\[]tmdb(?:id)?[-=:](\d+)[}\]]`)

// ParsePath parses a library file path into an Identity. The file name is
// parsed as a release name; directory segments are consulted for a TMDB id
// tag and as a title fallback when the file name alone parses to nothing.
func ParsePath(p string) Identity {
	p = strings.ReplaceAll(p, "\\", "/")
	base := path.Base(p)
	if ext := path.Ext(base); ext != "" {
		base = strings.TrimSuffix(base, ext)
	}

	release := rls.ParseString(base)
	id := Identity{
		Title:      release.Title,
		Year:       release.Year,
		Season:     release.Series,
		Episode:    release.Episode,
		Resolution: release.Resolution,
	}

	// Episode files are often named "Show - S01E02 - ..." but some libraries
	// use bare "S01E02.mkv" inside the show directory. Walk up the directory
	// segments for a usable title.
	segments := strings.Split(path.Dir(p), "/")
	if id.Title == "" {
		for i := len(segments) - 1; i >= 0; i-- {
			seg := segments[i]
			if seg == "" || seg == "." || looksLikeSeasonDir(seg) {
				continue
			}
			parent := rls.ParseString(seg)
			if parent.Title != "" {
				id.Title = parent.Title
				if id.Year == 0 {
					id.Year = parent.Year
				}
				break
			}
		}
	}

	for _, seg := range segments {
		if m := tmdbRe.FindStringSubmatch(seg); m != nil {
			id.TMDBID = parseInt64(m[1])
			break
		}
	}
	if m := tmdbRe.FindStringSubmatch(base); id.TMDBID == 0 && m != nil {
		id.TMDBID = parseInt64(m[1])
	}

	id.NormTitle = NormalizeTitle(id.Title)
	return id
}

var seasonDirRe = regexp.MustCompile(`(?i)^(season[ ._-]*\d+|s\d{1,2}|specials)$`)

func looksLikeSeasonDir(seg string) bool {
	return seasonDirRe.MatchString(strings.TrimSpace(seg))
}

// NormalizeTitle lowercases a title and strips everything that is not a
// letter or digit, so "The Show!" and "the.show" compare equal.
func NormalizeTitle(title string) string {
	var b strings.Builder
	b.Grow(len(title))
	for _, r := range strings.ToLower(title) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// ResolutionRank orders resolutions so candidate selection can prefer the
// best available copy. Unknown resolutions rank lowest.
func ResolutionRank(resolution string) int {
	switch strings.ToLower(resolution) {
	case "2160p", "4k":
		return 40
	case "1080p":
		return 30
	case "720p":
		return 20
	case "480p", "576p":
		return 10
	default:
		return 0
	}
}

func parseInt64(s string) int64 {
	var n int64
	for _, r := range s {
		if r < '0' || r > '9' {
			return 0
		}
		n = n*10 + int64(r-'0')
	}
	return n
}
