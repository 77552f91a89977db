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

// Package codec implements the blob payload compression and the SHA-1
// keying scheme used to intern resource keys in the HMap.
package codec

import (
	"bytes"
	"compress/zlib"
	"crypto/sha1"
	"fmt"
	"io"
)

// ShaSize is the length in bytes of a SHA-1 digest, matching the HMap
// schema's BINARY(20) primary key.
const ShaSize = sha1.Size

// Sha computes the SHA-1 digest of key, used as the HMap/CSet/Blob key.
func Sha(key []byte) [ShaSize]byte {
	return sha1.Sum(key)
}

// ShaHex returns the lowercase hex encoding of Sha(key), suitable for
// logging without leaking the raw key bytes.
func ShaHex(key []byte) string {
	sum := Sha(key)
	return fmt.Sprintf("%x", sum[:])
}

// Compress zlib-compresses data using default parameters. No framing is
// added beyond the zlib stream itself; the returned bytes are opaque.
func Compress(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	w := zlib.NewWriter(&buf)
	if _, err := w.Write(data); err != nil {
		w.Close()
		return nil, fmt.Errorf("codec: compress: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("codec: compress: %w", err)
	}
	return buf.Bytes(), nil
}

// Decompress reverses Compress. It returns an error if data is not a
// valid zlib stream.
func Decompress(data []byte) ([]byte, error) {
	r, err := zlib.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("codec: decompress: %w", err)
	}
	defer r.Close()

	out, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("codec: decompress: %w", err)
	}
	return out, nil
}
