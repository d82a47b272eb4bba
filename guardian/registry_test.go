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
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func testRegistry() *ProhibitedRegistry {
	return NewProhibitedRegistry(map[string][]string{
		"apuestas":        {"casino.com", "WWW.Bet365.com"},
		"adultos":         {"adult.example"},
		AdvisoryCategory:  {"reddit.com", "twitch.tv"},
	})
}

func TestProhibitedRegistryMatch(t *testing.T) {
	r := testRegistry()

	tests := []struct {
		name   string
		domain string
		want   string
	}{
		{"exact match", "casino.com", "apuestas"},
		{"subdomain match", "play.casino.com", "apuestas"},
		{"deep subdomain", "a.b.casino.com", "apuestas"},
		{"entry normalized at load", "bet365.com", "apuestas"},
		{"lookup normalized", "https://www.CASINO.com/slots", "apuestas"},
		{"other category", "adult.example", "adultos"},
		{"suffix is not subdomain", "notcasino.com", ""},
		{"advisory never enforced", "reddit.com", ""},
		{"clean domain", "example.com", ""},
		{"empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := r.Match(tt.domain); got != tt.want {
				t.Errorf("Match(%q) = %q, want %q", tt.domain, got, tt.want)
			}
		})
	}
}

func TestProhibitedRegistryAdvisorySplit(t *testing.T) {
	r := testRegistry()

	if got, want := r.Advisory(), []string{"reddit.com", "twitch.tv"}; !reflect.DeepEqual(got, want) {
		t.Errorf("Advisory() = %v, want %v", got, want)
	}
	if got, want := r.Categories(), []string{"adultos", "apuestas"}; !reflect.DeepEqual(got, want) {
		t.Errorf("Categories() = %v, want %v", got, want)
	}
	if got := r.Len(); got != 3 {
		t.Errorf("Len() = %d, want 3 enforced entries", got)
	}
}

func TestNewProhibitedRegistryDropsEmptyEntries(t *testing.T) {
	r := NewProhibitedRegistry(map[string][]string{
		"apuestas": {"", "   ", "casino.com"},
	})
	if got := r.Len(); got != 1 {
		t.Errorf("Len() = %d, want 1 after dropping empty entries", got)
	}
}

func TestFileRegistrySource(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prohibidos.yaml")
	content := []byte("apuestas:\n  - casino.com\n  - bet365.com\nrecomendaciones:\n  - reddit.com\n")
	if err := os.WriteFile(path, content, 0o600); err != nil {
		t.Fatal(err)
	}

	r, err := LoadProhibitedRegistry(context.Background(), FileRegistrySource{Path: path})
	if err != nil {
		t.Fatalf("LoadProhibitedRegistry: %v", err)
	}
	if got := r.Match("casino.com"); got != "apuestas" {
		t.Errorf("Match(casino.com) = %q, want apuestas", got)
	}
	if got := r.Match("reddit.com"); got != "" {
		t.Errorf("advisory entry enforced: Match(reddit.com) = %q", got)
	}
}

func TestFileRegistrySourceMissingFile(t *testing.T) {
	_, err := LoadProhibitedRegistry(context.Background(), FileRegistrySource{Path: "/does/not/exist.yaml"})
	if err == nil {
		t.Fatal("expected error for missing registry file")
	}
	if !IsRepository(err) {
		t.Errorf("error is not a repository error: %v", err)
	}
}
