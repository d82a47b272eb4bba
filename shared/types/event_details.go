// Copyright 2025 Athos
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

package types

import "encoding/json"

// EventDetails is the semi-structured payload the browser extension
// attaches to an event, modeled as a closed union keyed by event type.
// Exactly one variant is set for a known event type; unknown payloads
// are preserved opaquely in Raw so scoring stays a total function.
//
// The wire field names are the extension's original Spanish ones
// (tipo_evento, nombre_archivo, texto, url_origen); stored rows must
// round-trip unchanged.
type EventDetails struct {
	Clipboard *ClipboardDetails `json:"-"`
	File      *FileDetails      `json:"-"`
	Element   *ElementDetails   `json:"-"`

	// Raw is the opaque fallback for payloads that do not match a
	// known variant. It also retains the original bytes for variants
	// parsed above, so re-marshaling never loses fields.
	Raw json.RawMessage `json:"-"`
}

// ClipboardDetails covers copy, paste and cut events.
type ClipboardDetails struct {
	Text      string `json:"texto,omitempty"`
	SourceURL string `json:"url_origen,omitempty"`
}

// FileDetails covers download and file_upload events.
type FileDetails struct {
	FileName  string `json:"nombre_archivo,omitempty"`
	SourceURL string `json:"url_origen,omitempty"`
	Size      int64  `json:"filesize,omitempty"`
	MimeType  string `json:"mimetype,omitempty"`
}

// ElementDetails covers click events: the DOM element the user acted on.
type ElementDetails struct {
	Tag       string `json:"tag,omitempty"`
	ID        string `json:"id,omitempty"`
	Class     string `json:"class,omitempty"`
	Text      string `json:"text,omitempty"`
	Href      string `json:"href,omitempty"`
	SourceURL string `json:"url_origen,omitempty"`
}

// ParseEventDetails decodes a raw payload into the variant selected by
// the event type. It never fails: malformed or unknown payloads come
// back as an opaque Raw-only value.
func ParseEventDetails(eventType EventType, raw json.RawMessage) EventDetails {
	d := EventDetails{Raw: raw}
	if len(raw) == 0 {
		return d
	}

	switch eventType {
	case EventCopy, EventPaste, EventCut:
		var c ClipboardDetails
		if err := json.Unmarshal(raw, &c); err == nil {
			d.Clipboard = &c
		}
	case EventDownload, EventFileUpload:
		var f FileDetails
		if err := json.Unmarshal(raw, &f); err == nil {
			d.File = &f
		}
	case EventClick:
		var e ElementDetails
		if err := json.Unmarshal(raw, &e); err == nil {
			d.Element = &e
		}
	}
	return d
}

// MarshalJSON writes the original payload back out. Variants are views
// over Raw, never a second source of truth.
func (d EventDetails) MarshalJSON() ([]byte, error) {
	if len(d.Raw) > 0 {
		return d.Raw, nil
	}
	switch {
	case d.Clipboard != nil:
		return json.Marshal(d.Clipboard)
	case d.File != nil:
		return json.Marshal(d.File)
	case d.Element != nil:
		return json.Marshal(d.Element)
	}
	return []byte("null"), nil
}

// UnmarshalJSON keeps the raw bytes; callers re-parse with the event
// type via ParseEventDetails once the type is known.
func (d *EventDetails) UnmarshalJSON(data []byte) error {
	d.Raw = append(d.Raw[:0], data...)
	return nil
}

// SelectedText returns the clipboard text carried by a copy/paste/cut
// event, or "" when the event has no clipboard payload.
func (d EventDetails) SelectedText() string {
	if d.Clipboard == nil {
		return ""
	}
	return d.Clipboard.Text
}

// FileName returns the filename carried by a download/upload event, or
// "" when the event has no file payload.
func (d EventDetails) FileName() string {
	if d.File == nil {
		return ""
	}
	return d.File.FileName
}

// IsOpaque reports whether the payload matched no known variant.
func (d EventDetails) IsOpaque() bool {
	return d.Clipboard == nil && d.File == nil && d.Element == nil && len(d.Raw) > 0
}
