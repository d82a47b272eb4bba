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

// Package redis serves the prohibited-domain list from a Redis hash so
// every decision node refreshes from the same shared snapshot. The
// hash maps category name to a JSON array of domain entries; the sync
// job rewrites the whole hash atomically and the resolvers reload it
// on their refresh interval.
package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/go-redis/redis/v8"

	"athos/platform/guardian"
	"athos/platform/shared/logger"
)

// registryKey is the hash holding the prohibited list, one field per
// category.
const registryKey = "athos:prohibited:categories"

// Config holds the Redis connection settings.
type Config struct {
	Addr     string
	Password string
	DB       int
}

// ConfigFromEnv builds a Config from REDIS_ADDR, REDIS_PASSWORD and
// REDIS_DB. A missing address falls back to localhost.
func ConfigFromEnv() Config {
	cfg := Config{
		Addr:     os.Getenv("REDIS_ADDR"),
		Password: os.Getenv("REDIS_PASSWORD"),
	}
	if cfg.Addr == "" {
		cfg.Addr = "localhost:6379"
	}
	if db, err := strconv.Atoi(os.Getenv("REDIS_DB")); err == nil {
		cfg.DB = db
	}
	return cfg
}

// RegistrySource loads and publishes prohibited-registry snapshots
// through Redis.
type RegistrySource struct {
	client *redis.Client
	log    *logger.Logger
}

var _ guardian.RegistrySource = (*RegistrySource)(nil)

// Connect creates a registry source and verifies the connection.
func Connect(ctx context.Context, cfg Config) (*RegistrySource, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("ping redis: %w", err)
	}

	s := NewRegistrySource(client)
	s.log.Info("", "", "Connected to Redis", map[string]interface{}{
		"addr": cfg.Addr,
		"db":   cfg.DB,
	})
	return s, nil
}

// NewRegistrySource wraps an existing client. Tests hand in one backed
// by miniredis.
func NewRegistrySource(client *redis.Client) *RegistrySource {
	return &RegistrySource{client: client, log: logger.New("redis.registry")}
}

// Close releases the client.
func (s *RegistrySource) Close() error {
	return s.client.Close()
}

// Ping reports source health.
func (s *RegistrySource) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// LoadProhibitedRegistry implements guardian.RegistrySource. A missing
// key yields an empty map: a node that starts before the first sync
// simply enforces nothing until the next refresh.
func (s *RegistrySource) LoadProhibitedRegistry(ctx context.Context) (map[string][]string, error) {
	fields, err := s.client.HGetAll(ctx, registryKey).Result()
	if err != nil {
		return nil, fmt.Errorf("load prohibited registry: %w", err)
	}

	raw := make(map[string][]string, len(fields))
	for category, payload := range fields {
		var entries []string
		if err := json.Unmarshal([]byte(payload), &entries); err != nil {
			return nil, fmt.Errorf("decode category %q: %w", category, err)
		}
		raw[category] = entries
	}
	return raw, nil
}

// PublishProhibitedRegistry replaces the stored snapshot. The delete
// and rewrite run in one transaction so readers never observe a
// half-written hash.
func (s *RegistrySource) PublishProhibitedRegistry(ctx context.Context, raw map[string][]string) error {
	encoded := make(map[string]interface{}, len(raw))
	for category, entries := range raw {
		payload, err := json.Marshal(entries)
		if err != nil {
			return fmt.Errorf("encode category %q: %w", category, err)
		}
		encoded[category] = payload
	}

	pipe := s.client.TxPipeline()
	pipe.Del(ctx, registryKey)
	if len(encoded) > 0 {
		pipe.HSet(ctx, registryKey, encoded)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("publish prohibited registry: %w", err)
	}

	s.log.Info("", "", "Published prohibited registry", map[string]interface{}{
		"categories": len(raw),
	})
	return nil
}
