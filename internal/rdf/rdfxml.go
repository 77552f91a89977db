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

package rdf

import (
	"bytes"
	"encoding/xml"
	"io"
	"strconv"
)

const rdfNS = "http://www.w3.org/1999/02/22-rdf-syntax-ns#"

// parseRDFXML parses a flat RDF/XML document: a top-level `rdf:RDF`
// (depth 1) containing description nodes (depth 2), each holding property
// elements (depth 3) whose value is either an `rdf:resource`/`rdf:nodeID`
// reference or literal text content, optionally typed via `rdf:datatype`.
// `rdf:parseType="Collection"` and reification shortcuts are not
// supported (see SPEC_FULL.md §4.A Non-goals).
func parseRDFXML(body []byte) (StatementSet, error) {
	dec := xml.NewDecoder(bytes.NewReader(body))
	set := StatementSet{}

	depth := 0
	var subject string
	blankCounter := 0

	nextBlank := func() string {
		blankCounter++
		return "_:rdfxml" + strconv.Itoa(blankCounter)
	}

	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, &ParseError{MediaType: MediaTypeRDFXML, Msg: err.Error()}
		}

		switch el := tok.(type) {
		case xml.StartElement:
			depth++
			switch depth {
			case 1:
				// rdf:RDF wrapper.
			case 2:
				subject = subjectFromAttrs(el.Attr, nextBlank)
				if !(el.Name.Space == rdfNS && el.Name.Local == "Description") {
					set.Add(subject + " " + rdfTypeIRI + " <" + el.Name.Space + el.Name.Local + "> .")
				}
			case 3:
				predicate := "<" + el.Name.Space + el.Name.Local + ">"
				if resource, ok := resourceFromAttrs(el.Attr); ok {
					set.Add(subject + " " + predicate + " " + resource + " .")
					break
				}
				datatype := datatypeFromAttrs(el.Attr)
				text, terr := readElementText(dec)
				if terr != nil {
					return nil, &ParseError{MediaType: MediaTypeRDFXML, Msg: terr.Error()}
				}
				literal := "\"" + escapeLiteral(text) + "\""
				if datatype != "" {
					literal += "^^<" + resolveIRI(datatype) + ">"
				}
				set.Add(subject + " " + predicate + " " + literal + " .")
				depth-- // readElementText already consumed the matching EndElement
			}

		case xml.EndElement:
			depth--
		}
	}

	return set, nil
}

func subjectFromAttrs(attrs []xml.Attr, nextBlank func() string) string {
	for _, a := range attrs {
		if a.Name.Space == rdfNS && a.Name.Local == "about" {
			return "<" + resolveIRI(a.Value) + ">"
		}
		if a.Name.Space == rdfNS && a.Name.Local == "nodeID" {
			return "_:" + a.Value
		}
	}
	return nextBlank()
}

func resourceFromAttrs(attrs []xml.Attr) (string, bool) {
	for _, a := range attrs {
		if a.Name.Space == rdfNS && a.Name.Local == "resource" {
			return "<" + resolveIRI(a.Value) + ">", true
		}
		if a.Name.Space == rdfNS && a.Name.Local == "nodeID" {
			return "_:" + a.Value, true
		}
	}
	return "", false
}

func datatypeFromAttrs(attrs []xml.Attr) string {
	for _, a := range attrs {
		if a.Name.Space == rdfNS && a.Name.Local == "datatype" {
			return a.Value
		}
	}
	return ""
}

// readElementText reads character data up to and including the matching
// EndElement of the element whose StartElement was already consumed.
func readElementText(dec *xml.Decoder) (string, error) {
	var sb bytes.Buffer
	depth := 0
	for {
		tok, err := dec.Token()
		if err != nil {
			return "", err
		}
		switch t := tok.(type) {
		case xml.CharData:
			sb.Write(t)
		case xml.StartElement:
			depth++
		case xml.EndElement:
			if depth == 0 {
				return sb.String(), nil
			}
			depth--
		}
	}
}
