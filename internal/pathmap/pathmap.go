// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

// Package pathmap rewrites symlink targets between the container's view of
// the debrid mount and the canonical logical path. Docker setups often see
// the mount at a different prefix than the host that created the links.
package pathmap

import (
	"strings"

	"github.com/Bollo123view/refresherr/internal/domain"
	"github.com/Bollo123view/refresherr/pkg/pathcmp"
)

type mapping struct {
	container string
	logical   string
}

// Mapper translates paths between the container and logical views. Both
// directions are pure prefix substitutions; a path that matches no mapping
// passes through unchanged, so the two directions round-trip.
type Mapper struct {
	mappings []mapping
}

// NewMapper builds a Mapper from config. Prefixes are normalized once up
// front so lookups stay cheap.
func NewMapper(cfgs []domain.PathMapping) *Mapper {
	m := &Mapper{mappings: make([]mapping, 0, len(cfgs))}
	for _, c := range cfgs {
		container := pathcmp.NormalizePath(c.Source)
		logical := pathcmp.NormalizePath(c.Target)
		if container == "" || logical == "" {
			continue
		}
		m.mappings = append(m.mappings, mapping{container: container, logical: logical})
	}
	return m
}

// ToLogical rewrites a container-visible path to its logical form, longest
// container prefix wins. Matches are boundary-safe: a /data mapping never
// rewrites /data2.
func (m *Mapper) ToLogical(p string) string {
	return m.rewrite(p, func(mp mapping) (string, string) { return mp.container, mp.logical })
}

// ToContainer is the inverse of ToLogical, matching on logical prefixes.
func (m *Mapper) ToContainer(p string) string {
	return m.rewrite(p, func(mp mapping) (string, string) { return mp.logical, mp.container })
}

func (m *Mapper) rewrite(p string, pick func(mapping) (string, string)) string {
	p = pathcmp.NormalizePath(p)

	var bestMatch, bestReplacement string
	for _, mp := range m.mappings {
		from, to := pick(mp)
		if !pathcmp.HasPathPrefix(p, from) {
			continue
		}
		if len(from) > len(bestMatch) {
			bestMatch = from
			bestReplacement = to
		}
	}
	if bestMatch == "" {
		return p
	}
	return strings.Replace(p, bestMatch, bestReplacement, 1)
}
