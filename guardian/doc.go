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

/*
Package guardian implements the Athos access-control and behavioral-risk
decision core.

# Overview

Guardian is the only part of the platform that makes decisions. Everything
around it (HTTP transport, CRUD persistence, token issuance) is generic
plumbing that feeds it inputs and persists its outputs.

Components, in dependency order:

  - NormalizeDomain: canonicalizes any URL or domain string.
  - ScopeGuard: derives the caller's permitted data scope from claims.
  - ProhibitedRegistry: immutable category-keyed snapshot of globally
    denied domains, loaded from a static resource and swapped whole on
    refresh.
  - AccessResolver: tiered browsing allow/block decision.
  - DownloadResolver: tiered download allow/block decision, fail-open.
  - ScoreEvent: per-event risk score in [0,100].
  - DetectAnomalies: behavioral anomaly signals over an event window.
  - AggregateStats: read-only reporting rollups.
  - Recorder: async batching ingestion of navigation events, scoring
    each event exactly once.

# Decision flow

A caller hands claims plus a candidate domain or event to a resolver.
The resolver authorizes the scope first, reads policy state through the
Repository interfaces, and returns a decision with a reason. Resolvers
are stateless and hold no caches: every decision re-reads policy state.

# Failure posture

AccessResolver surfaces repository errors to the caller. DownloadResolver
fails open with an explanatory reason so an outage never blocks
legitimate work. DetectAnomalies and AggregateStats skip malformed
records and keep going.
*/
package guardian
