// Copyright 2025 The axfor Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package rdf parses RDF request bodies into a canonical, unordered set of
// N-Triple/N-Quad lines. The resulting StatementSet is the sole definition
// of a resource's state: two states are equal iff their statement sets are
// equal, independent of input serialization or statement order.
package rdf

import (
	"fmt"
	"sort"
	"strings"
)

// BaseIRI is the fixed sentinel base against which IRI references are
// resolved while parsing (see resolveIRI).
const BaseIRI = "urn:x-default:tailr"

// ParseError reports a syntax error in an RDF document.
type ParseError struct {
	MediaType string
	Line      int
	Msg       string
}

func (e *ParseError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("rdf: %s: line %d: %s", e.MediaType, e.Line, e.Msg)
	}
	return fmt.Sprintf("rdf: %s: %s", e.MediaType, e.Msg)
}

// StatementSet is an unordered set of canonical N-Triple/N-Quad lines, each
// terminated with " .". It is the unit of equality and diffing for a
// resource's reconstructed state.
type StatementSet map[string]struct{}

// NewStatementSet builds a StatementSet from already-canonical lines, as
// produced by SplitLines on a decompressed blob.
func NewStatementSet(lines ...string) StatementSet {
	s := make(StatementSet, len(lines))
	for _, l := range lines {
		if l == "" {
			continue
		}
		s[l] = struct{}{}
	}
	return s
}

// SplitLines parses a blob's decompressed payload (one canonical statement
// per line) back into a StatementSet.
func SplitLines(data string) StatementSet {
	if data == "" {
		return StatementSet{}
	}
	return NewStatementSet(strings.Split(data, "\n")...)
}

// Add inserts line into the set.
func (s StatementSet) Add(line string) { s[line] = struct{}{} }

// Remove deletes line from the set, if present.
func (s StatementSet) Remove(line string) { delete(s, line) }

// Contains reports whether line is a member of the set.
func (s StatementSet) Contains(line string) bool {
	_, ok := s[line]
	return ok
}

// Equal reports whether s and other contain exactly the same lines.
func (s StatementSet) Equal(other StatementSet) bool {
	if len(s) != len(other) {
		return false
	}
	for l := range s {
		if _, ok := other[l]; !ok {
			return false
		}
	}
	return true
}

// Lines returns the set's members in sorted order, for deterministic
// serialization.
func (s StatementSet) Lines() []string {
	lines := make([]string, 0, len(s))
	for l := range s {
		lines = append(lines, l)
	}
	sort.Strings(lines)
	return lines
}

// Join renders the set as newline-joined canonical lines, the form stored
// (compressed) in the blob store.
func (s StatementSet) Join() string {
	return strings.Join(s.Lines(), "\n")
}

// Diff computes the add/delete patch turning prev into next, tagged with
// the "A "/"D " prefixes used by the delta chain format.
func Diff(prev, next StatementSet) []string {
	var lines []string
	for l := range prev {
		if !next.Contains(l) {
			lines = append(lines, "D "+l)
		}
	}
	for l := range next {
		if !prev.Contains(l) {
			lines = append(lines, "A "+l)
		}
	}
	sort.Strings(lines)
	return lines
}

// ApplyPatch mutates base in place according to a decompressed delta blob's
// lines, each prefixed "A " (add) or "D " (delete).
func ApplyPatch(base StatementSet, patchLines []string) {
	for _, line := range patchLines {
		if len(line) < 2 {
			continue
		}
		mode, stmt := line[0], line[2:]
		switch mode {
		case 'A':
			base.Add(stmt)
		case 'D':
			base.Remove(stmt)
		}
	}
}

// Default and supported media types for PUT bodies.
const (
	MediaTypeNTriples = "application/n-triples"
	MediaTypeNQuads   = "application/n-quads"
	MediaTypeTurtle   = "text/turtle"
	MediaTypeRDFXML   = "application/rdf+xml"
)

// Parse dispatches to the parser matching mediaType, defaulting to
// N-Triples when mediaType is empty. The returned StatementSet is the
// canonical form of the input document.
func Parse(body []byte, mediaType string) (StatementSet, error) {
	mt := normalizeMediaType(mediaType)

	switch mt {
	case "", MediaTypeNTriples, MediaTypeNQuads:
		return parseNTriples(body, mt)
	case MediaTypeTurtle:
		return parseTurtle(body)
	case MediaTypeRDFXML:
		return parseRDFXML(body)
	default:
		return nil, &ParseError{MediaType: mediaType, Msg: "unsupported media type " + mediaType}
	}
}

// normalizeMediaType strips any `;charset=...` parameter and surrounding
// whitespace from a Content-Type header value.
func normalizeMediaType(mediaType string) string {
	mt := strings.TrimSpace(mediaType)
	if i := strings.IndexByte(mt, ';'); i >= 0 {
		mt = mt[:i]
	}
	return strings.ToLower(strings.TrimSpace(mt))
}
