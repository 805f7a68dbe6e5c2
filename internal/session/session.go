/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package session reads and writes annotation session files: the fractional
// overlays of one document as JSON, validated against an embedded schema.
package session

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"os"
	"path/filepath"
	"strings"

	gojsonschema "github.com/xeipuuv/gojsonschema"

	"redactor/internal/domain"
)

// CurrentVersion is the session format version written by Encode.
const CurrentVersion = 1

//go:embed schema.json
var schemaJSON []byte

// ErrInvalid wraps every schema or structural violation reported by Decode.
var ErrInvalid = errors.New("invalid session file")

// File is the decoded form of a session file.
type File struct {
	Version  int             `json:"version"`
	Document string          `json:"document,omitempty"`
	Pages    domain.Overlays `json:"pages"`
}

// Schema returns a copy of the embedded JSON schema.
func Schema() []byte { return append([]byte(nil), schemaJSON...) }

// Encode writes overlays as an indented session document. Empty pages are omitted.
func Encode(w io.Writer, o domain.Overlays, document string) error {
	f := File{Version: CurrentVersion, Document: document, Pages: domain.Overlays{}}
	for _, page := range o.Pages() {
		f.Pages[page] = o[page]
	}
	data, err := json.MarshalIndent(f, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}
	data = append(data, '\n')
	_, err = w.Write(data)
	return err
}

// Marshal is Encode into a byte slice.
func Marshal(o domain.Overlays, document string) ([]byte, error) {
	var buf bytes.Buffer
	if err := Encode(&buf, o, document); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Decode validates r against the schema and returns the parsed file.
// Legacy kind names are normalized.
func Decode(r io.Reader) (File, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return File{}, fmt.Errorf("read session: %w", err)
	}
	if err := Validate(data); err != nil {
		return File{}, err
	}
	var f File
	if err := json.Unmarshal(data, &f); err != nil {
		return File{}, fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	if f.Pages == nil {
		f.Pages = domain.Overlays{}
	}
	for page, list := range f.Pages {
		for i := range list {
			k, ok := domain.ParseKind(string(list[i].Kind))
			if !ok {
				return File{}, fmt.Errorf("%w: page %d annotation %d: unknown kind %q", ErrInvalid, page, i, list[i].Kind)
			}
			list[i].Kind = k
		}
	}
	return f, nil
}

// Validate checks data against the embedded schema.
func Validate(data []byte) error {
	res, err := gojsonschema.Validate(gojsonschema.NewBytesLoader(schemaJSON), gojsonschema.NewBytesLoader(data))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	if !res.Valid() {
		msgs := make([]string, 0, len(res.Errors()))
		for _, e := range res.Errors() {
			msgs = append(msgs, e.String())
		}
		return fmt.Errorf("%w: %s", ErrInvalid, strings.Join(msgs, "; "))
	}
	return nil
}

// ReadFile decodes the session at path.
func ReadFile(path string) (File, error) {
	f, err := os.Open(path)
	if err != nil {
		return File{}, err
	}
	defer f.Close()
	sf, err := Decode(f)
	if err != nil {
		return File{}, fmt.Errorf("%s: %w", path, err)
	}
	return sf, nil
}

// WriteFile replaces path transactionally: the document is written to a temp
// file in the same directory and renamed over the target.
func WriteFile(path string, o domain.Overlays, document string) error {
	data, err := Marshal(o, document)
	if err != nil {
		return err
	}
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("ensure session dir: %w", err)
	}
	temp := filepath.Join(dir, fmt.Sprintf(".%s.tmp-%d-%d", filepath.Base(path), os.Getpid(), rand.Int()))
	if err := writeFileSync(temp, data); err != nil {
		_ = os.Remove(temp)
		return fmt.Errorf("write temp session: %w", err)
	}
	// On Windows, replace by removing destination first if needed
	if _, err := os.Stat(path); err == nil {
		_ = os.Remove(path)
	}
	if err := os.Rename(temp, path); err != nil {
		_ = os.Remove(temp)
		return fmt.Errorf("replace session: %w", err)
	}
	return nil
}

func writeFileSync(path string, data []byte) (err error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()
	if _, err := f.Write(data); err != nil {
		return err
	}
	return f.Sync()
}
