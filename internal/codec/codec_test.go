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

package codec

import (
	"bytes"
	"testing"
)

func TestCompressDecompressRoundTrip(t *testing.T) {
	cases := [][]byte{
		[]byte(""),
		[]byte("<a> <b> <c> ."),
		bytes.Repeat([]byte("A <x> <y> <z> .\n"), 500),
	}

	for _, data := range cases {
		compressed, err := Compress(data)
		if err != nil {
			t.Fatalf("Compress(%q): %v", data, err)
		}

		got, err := Decompress(compressed)
		if err != nil {
			t.Fatalf("Decompress: %v", err)
		}

		if !bytes.Equal(got, data) {
			t.Fatalf("round trip mismatch: got %q, want %q", got, data)
		}
	}
}

func TestCompressIsDeflate(t *testing.T) {
	// A repetitive payload should compress smaller than itself.
	data := bytes.Repeat([]byte("the quick brown fox "), 200)
	compressed, err := Compress(data)
	if err != nil {
		t.Fatalf("Compress: %v", err)
	}
	if len(compressed) >= len(data) {
		t.Fatalf("expected compression to shrink repetitive data: got %d, input %d", len(compressed), len(data))
	}
}

func TestDecompressInvalid(t *testing.T) {
	if _, err := Decompress([]byte("not a zlib stream")); err == nil {
		t.Fatal("expected error decompressing invalid data")
	}
}

func TestShaDeterministic(t *testing.T) {
	key := []byte("http://dbpedia.org/resource/Berlin")
	a := Sha(key)
	b := Sha(key)
	if a != b {
		t.Fatalf("Sha not deterministic: %x != %x", a, b)
	}
	if len(a) != ShaSize {
		t.Fatalf("unexpected sha length: %d", len(a))
	}
}

func TestShaDiffersByKey(t *testing.T) {
	a := Sha([]byte("key-one"))
	b := Sha([]byte("key-two"))
	if a == b {
		t.Fatal("expected distinct keys to hash differently")
	}
}

func TestShaHex(t *testing.T) {
	key := []byte("http://example.org/r")
	hex := ShaHex(key)
	if len(hex) != ShaSize*2 {
		t.Fatalf("unexpected hex length: got %d, want %d", len(hex), ShaSize*2)
	}
}
