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

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// AdvisoryCategory is reserved for recommendations: its entries are
// surfaced to dashboards but never enforced as blocks.
const AdvisoryCategory = "recomendaciones"

// ProhibitedRegistry is an immutable snapshot of globally denied domain
// entries keyed by category. It is tenant-independent and consulted
// before any tenant policy. Refreshing means building a new snapshot
// and swapping the reference; a snapshot is never mutated in place.
type ProhibitedRegistry struct {
	categories map[string][]string
	advisory   []string
}

// NewProhibitedRegistry builds a snapshot from a category map. Entries
// are normalized with NormalizeDomain so lookups compare canonically;
// the advisory category is split out of the enforced set.
func NewProhibitedRegistry(raw map[string][]string) *ProhibitedRegistry {
	r := &ProhibitedRegistry{categories: make(map[string][]string, len(raw))}
	for category, entries := range raw {
		normalized := make([]string, 0, len(entries))
		for _, e := range entries {
			if n := NormalizeDomain(e); n != "" {
				normalized = append(normalized, n)
			}
		}
		sort.Strings(normalized)
		if category == AdvisoryCategory {
			r.advisory = normalized
			continue
		}
		r.categories[category] = normalized
	}
	return r
}

// Match returns the category of the first enforced entry the domain
// falls under, or "" when the domain is clean. An entry matches the
// domain itself or any subdomain of it. Categories are scanned in
// sorted order so the result is deterministic.
func (r *ProhibitedRegistry) Match(domain string) string {
	d := NormalizeDomain(domain)
	if d == "" {
		return ""
	}

	names := make([]string, 0, len(r.categories))
	for name := range r.categories {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		for _, entry := range r.categories[name] {
			if d == entry || strings.HasSuffix(d, "."+entry) {
				return name
			}
		}
	}
	return ""
}

// Advisory returns the non-enforced recommendation entries.
func (r *ProhibitedRegistry) Advisory() []string {
	out := make([]string, len(r.advisory))
	copy(out, r.advisory)
	return out
}

// Categories returns the enforced category names in sorted order.
func (r *ProhibitedRegistry) Categories() []string {
	names := make([]string, 0, len(r.categories))
	for name := range r.categories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Len returns the total number of enforced entries.
func (r *ProhibitedRegistry) Len() int {
	n := 0
	for _, entries := range r.categories {
		n += len(entries)
	}
	return n
}

// LoadProhibitedRegistry builds a fresh snapshot from a source. Callers
// swap the returned registry into their resolvers; the old snapshot
// stays valid for in-flight decisions.
func LoadProhibitedRegistry(ctx context.Context, source RegistrySource) (*ProhibitedRegistry, error) {
	raw, err := source.LoadProhibitedRegistry(ctx)
	if err != nil {
		return nil, NewRepositoryError("LoadProhibitedRegistry", err)
	}
	return NewProhibitedRegistry(raw), nil
}

// FileRegistrySource reads the prohibited list from a YAML file of the
// form "category: [domain, domain, ...]".
type FileRegistrySource struct {
	Path string
}

// FileRegistrySourceFromEnv points a file source at PROHIBITED_LIST_PATH.
func FileRegistrySourceFromEnv() FileRegistrySource {
	return FileRegistrySource{Path: os.Getenv("PROHIBITED_LIST_PATH")}
}

// LoadProhibitedRegistry implements RegistrySource.
func (s FileRegistrySource) LoadProhibitedRegistry(ctx context.Context) (map[string][]string, error) {
	data, err := os.ReadFile(s.Path)
	if err != nil {
		return nil, fmt.Errorf("read prohibited list %s: %w", s.Path, err)
	}
	var raw map[string][]string
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse prohibited list %s: %w", s.Path, err)
	}
	return raw, nil
}
