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
	"sync"
	"time"

	"github.com/google/uuid"

	"athos/platform/shared/logger"
	"athos/platform/shared/types"
)

// Recorder defaults.
const (
	defaultQueueSize     = 10000
	defaultBatchSize     = 100
	defaultFlushInterval = 5 * time.Second
	flushTimeout         = 10 * time.Second
)

// RecorderConfig tunes the ingestion pipeline. Zero values take the
// defaults above.
type RecorderConfig struct {
	QueueSize     int
	BatchSize     int
	FlushInterval time.Duration
}

// Recorder is the asynchronous event ingestion pipeline. Events are
// enriched once at ingestion (ID, normalized domain, timestamp, risk
// score), queued, and written to the event store in batches by a
// background worker. Ingestion never blocks the caller: when the queue
// is full the event is dropped and counted, never buffered unbounded.
//
// Rows are append-only. The recorder is the only writer; nothing in the
// decision core mutates a stored event.
type Recorder struct {
	events EventRepository
	log    *logger.Logger

	queue         chan types.NavigationEvent
	batchSize     int
	flushInterval time.Duration

	wg       sync.WaitGroup
	shutdown chan struct{}
	stopOnce sync.Once
}

// NewRecorder starts a recorder and its background flush worker.
func NewRecorder(events EventRepository, log *logger.Logger, cfg RecorderConfig) *Recorder {
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = defaultQueueSize
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = defaultBatchSize
	}
	if cfg.FlushInterval <= 0 {
		cfg.FlushInterval = defaultFlushInterval
	}

	r := &Recorder{
		events:        events,
		log:           log,
		queue:         make(chan types.NavigationEvent, cfg.QueueSize),
		batchSize:     cfg.BatchSize,
		flushInterval: cfg.FlushInterval,
		shutdown:      make(chan struct{}),
	}

	r.wg.Add(1)
	go r.processQueue()
	return r
}

// Record enriches and enqueues one event. The returned event carries
// the assigned ID and computed risk score. Enqueueing never blocks: a
// full queue drops the event and reports false.
func (r *Recorder) Record(e types.NavigationEvent) (types.NavigationEvent, bool) {
	e = enrichEvent(e)

	select {
	case r.queue <- e:
		promEventsRecorded.WithLabelValues(string(e.EventType)).Inc()
		return e, true
	default:
		promRecorderDropped.Inc()
		r.log.Warn(e.TenantID, e.ID, "Recorder queue full, dropping event", map[string]interface{}{
			"user_id":    e.UserID,
			"event_type": string(e.EventType),
		})
		return e, false
	}
}

// RecordBlocked records a blocked browsing attempt, attaching the
// decision metadata that produced the block.
func (r *Recorder) RecordBlocked(e types.NavigationEvent, decision AccessDecision) (types.NavigationEvent, bool) {
	e.Action = types.ActionBlocked
	e.PolicyInfo = &types.PolicyInfo{
		PolicyID:    decision.PolicyID,
		Action:      string(types.PolicyBlock),
		BlockReason: decision.Reason,
		Category:    decision.Category,
	}
	return r.Record(e)
}

// enrichEvent fills ingestion-time fields. Enrichment happens exactly
// once, before queueing; stored rows are never rescored.
func enrichEvent(e types.NavigationEvent) types.NavigationEvent {
	if e.ID == "" {
		e.ID = uuid.New().String()
	}
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now().UTC()
	}
	if e.EventType == "" {
		e.EventType = types.EventNavigation
	}
	if e.Action == "" {
		e.Action = types.ActionVisited
	}
	e.Domain = NormalizeDomain(e.Domain)
	if e.RiskScore == nil {
		score := ScoreEvent(e.EventType, e.Details)
		e.RiskScore = &score
	}
	return e
}

// processQueue batches queued events and flushes on size or interval.
func (r *Recorder) processQueue() {
	defer r.wg.Done()

	ticker := time.NewTicker(r.flushInterval)
	defer ticker.Stop()

	batch := make([]types.NavigationEvent, 0, r.batchSize)
	flush := func() {
		if len(batch) == 0 {
			return
		}
		r.flushBatch(batch)
		batch = batch[:0]
	}

	for {
		select {
		case e := <-r.queue:
			batch = append(batch, e)
			if len(batch) >= r.batchSize {
				flush()
			}
		case <-ticker.C:
			flush()
		case <-r.shutdown:
			// Drain whatever was queued before shutdown, then flush.
			for {
				select {
				case e := <-r.queue:
					batch = append(batch, e)
					if len(batch) >= r.batchSize {
						flush()
					}
				default:
					flush()
					return
				}
			}
		}
	}
}

func (r *Recorder) flushBatch(batch []types.NavigationEvent) {
	ctx, cancel := context.WithTimeout(context.Background(), flushTimeout)
	defer cancel()

	if err := r.events.InsertNavigationEvents(ctx, batch); err != nil {
		r.log.ErrorWithErr("", "", "Failed to flush event batch", err, map[string]interface{}{
			"batch_size": len(batch),
		})
		return
	}
	r.log.Debug("", "", "Flushed event batch", map[string]interface{}{
		"batch_size": len(batch),
	})
}

// Stop flushes pending events and stops the worker. Safe to call more
// than once. Events recorded after Stop are never flushed.
func (r *Recorder) Stop() {
	r.stopOnce.Do(func() {
		close(r.shutdown)
	})
	r.wg.Wait()
}
