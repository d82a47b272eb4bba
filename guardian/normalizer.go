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

package guardian

import "strings"

// NormalizeDomain canonicalizes any URL or domain string to a lowercase
// host: scheme, credentials, port, path, query, fragment and a leading
// "www." are stripped. It is total and idempotent; malformed input
// still yields a best-effort trimmed lowercase value.
//
// The same function runs at write time (storing a policy or event
// domain) and at read time (resolving a decision), so stored and
// requested domains always compare exactly.
func NormalizeDomain(raw string) string {
	s := strings.TrimSpace(strings.ToLower(raw))
	if s == "" {
		return ""
	}

	// Strip scheme. Handles both "https://host" and bare "//host".
	if i := strings.Index(s, "://"); i >= 0 {
		s = s[i+3:]
	}
	s = strings.TrimPrefix(s, "//")

	// Strip path, query and fragment.
	if i := strings.IndexAny(s, "/?#"); i >= 0 {
		s = s[:i]
	}

	// Strip userinfo.
	if i := strings.LastIndex(s, "@"); i >= 0 {
		s = s[i+1:]
	}

	// Strip port, leaving IPv6 literals intact.
	if !strings.HasPrefix(s, "[") {
		if i := strings.LastIndex(s, ":"); i >= 0 && !strings.Contains(s[i+1:], ":") {
			s = s[:i]
		}
	}

	s = strings.TrimPrefix(s, "www.")
	return strings.Trim(s, ".")
}

// NormalizeFileName reduces a download target (URL, path or plain name)
// to its final lowercase filename with query parameters removed. Returns
// "" when no filename component exists.
func NormalizeFileName(raw string) string {
	s := strings.TrimSpace(strings.ToLower(raw))
	if s == "" {
		return ""
	}
	if i := strings.IndexAny(s, "?#"); i >= 0 {
		s = s[:i]
	}
	if i := strings.LastIndex(s, "/"); i >= 0 {
		s = s[i+1:]
	}
	return s
}

// fileExtension returns the extension of a normalized filename without
// the dot, or "" when the name has none.
func fileExtension(name string) string {
	i := strings.LastIndex(name, ".")
	if i < 0 || i == len(name)-1 {
		return ""
	}
	return name[i+1:]
}
