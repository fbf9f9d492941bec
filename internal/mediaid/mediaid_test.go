// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package mediaid

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParsePathEpisode(t *testing.T) {
	id := ParsePath("/opt/media/jelly/tv/The Expanse (2015)/Season 01/The.Expanse.S01E03.1080p.WEB-DL.mkv")

	assert.Equal(t, "The Expanse", id.Title)
	assert.Equal(t, "theexpanse", id.NormTitle)
	assert.Equal(t, 1, id.Season)
	assert.Equal(t, 3, id.Episode)
	assert.Equal(t, "1080p", id.Resolution)
	assert.True(t, id.IsEpisode())
}

func TestParsePathMovie(t *testing.T) {
	id := ParsePath("/opt/media/jelly/movies/Dune (2021)/Dune.2021.2160p.REMUX.mkv")

	assert.Equal(t, "Dune", id.Title)
	assert.Equal(t, 2021, id.Year)
	assert.Equal(t, "2160p", id.Resolution)
	assert.False(t, id.IsEpisode())
}

func TestParsePathTMDBTag(t *testing.T) {
	id := ParsePath("/opt/media/jelly/tv/Severance (2022) {tmdb-95396}/Season 02/Severance.S02E01.720p.mkv")

	assert.Equal(t, int64(95396), id.TMDBID)
	assert.Equal(t, 2, id.Season)
	assert.Equal(t, 1, id.Episode)
}

func TestParsePathTitleFromParentDir(t *testing.T) {
	id := ParsePath("/opt/media/jelly/tv/Dark (2017)/Season 01/S01E05.mkv")

	assert.Equal(t, "Dark", id.Title)
	assert.Equal(t, 1, id.Season)
	assert.Equal(t, 5, id.Episode)
}

func TestNormalizeTitle(t *testing.T) {
	assert.Equal(t, "theshow", NormalizeTitle("The Show!"))
	assert.Equal(t, "theshow", NormalizeTitle("the.show"))
	assert.Equal(t, "show2", NormalizeTitle("Show 2"))
	assert.Equal(t, "", NormalizeTitle(""))
}

func TestResolutionRank(t *testing.T) {
	assert.Greater(t, ResolutionRank("2160p"), ResolutionRank("1080p"))
	assert.Greater(t, ResolutionRank("1080p"), ResolutionRank("720p"))
	assert.Greater(t, ResolutionRank("720p"), ResolutionRank("480p"))
	assert.Equal(t, 0, ResolutionRank(""))
	assert.Equal(t, 0, ResolutionRank("potato"))
}
