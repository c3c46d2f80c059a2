package model

import (
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

const (
	pathArrow       = " -> "
	pathLocationSep = " @ "
)

// PathEntry records one custody handoff.
type PathEntry struct {
	From     common.Address `json:"from"`
	To       common.Address `json:"to"`
	Location string         `json:"location,omitempty"`
}

// String renders "<from> -> <to>" with an optional " @ <location>" suffix.
func (e PathEntry) String() string {
	s := e.From.Hex() + pathArrow + e.To.Hex()
	if e.Location != "" {
		s += pathLocationSep + e.Location
	}
	return s
}

// ParsePathEntry is the inverse of PathEntry.String.
func ParsePathEntry(s string) (PathEntry, error) {
	from, rest, ok := strings.Cut(strings.TrimSpace(s), pathArrow)
	if !ok {
		return PathEntry{}, fmt.Errorf("path entry %q: missing %q", s, strings.TrimSpace(pathArrow))
	}
	to, location, _ := strings.Cut(rest, pathLocationSep)
	from, to = strings.TrimSpace(from), strings.TrimSpace(to)
	if !common.IsHexAddress(from) {
		return PathEntry{}, fmt.Errorf("path entry %q: invalid from address", s)
	}
	if !common.IsHexAddress(to) {
		return PathEntry{}, fmt.Errorf("path entry %q: invalid to address", s)
	}
	return PathEntry{
		From:     common.HexToAddress(from),
		To:       common.HexToAddress(to),
		Location: strings.TrimSpace(location),
	}, nil
}

// ParsePath parses every entry of an on-ledger path.
func ParsePath(raw []string) ([]PathEntry, error) {
	entries := make([]PathEntry, 0, len(raw))
	for i, s := range raw {
		e, err := ParsePathEntry(s)
		if err != nil {
			return nil, fmt.Errorf("path[%d]: %w", i, err)
		}
		entries = append(entries, e)
	}
	return entries, nil
}
