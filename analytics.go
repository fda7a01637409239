package main

import (
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// Event types for analytics tracking
const (
	EvtJoin       = "join"
	EvtLeave      = "leave"
	EvtPickup     = "pickup"
	EvtRoundStart = "round_start"
	EvtRoomOpen   = "room_open"
	EvtRoomClose  = "room_close"
)

const (
	analyticsBuffer   = 1024
	analyticsBatch    = 50
	analyticsInterval = 5 * time.Second
)

// Recorder receives room events. Implementations must not block: rooms call
// it while holding their lock.
type Recorder interface {
	Track(evtType, room, player, data string)
	RecordRound(r RoundResult)
}

type nopRecorder struct{}

func (nopRecorder) Track(string, string, string, string) {}
func (nopRecorder) RecordRound(RoundResult)              {}

// AnalyticsEvent represents a single trackable event
type AnalyticsEvent struct {
	Type      string
	Room      string
	Player    string
	Data      string
	Timestamp time.Time
}

// Analytics handles event tracking with batched background writes
type Analytics struct {
	db     *DB
	events chan AnalyticsEvent
	rounds chan RoundResult
	stop   chan struct{}
	wg     sync.WaitGroup
	once   sync.Once
}

// NewAnalytics creates and starts the analytics background writer
func NewAnalytics(db *DB) *Analytics {
	a := &Analytics{
		db:     db,
		events: make(chan AnalyticsEvent, analyticsBuffer),
		rounds: make(chan RoundResult, analyticsBuffer),
		stop:   make(chan struct{}),
	}
	a.wg.Add(1)
	go a.writer()
	return a
}

// Track enqueues an event for async persistence (non-blocking)
func (a *Analytics) Track(evtType, room, player, data string) {
	select {
	case a.events <- AnalyticsEvent{
		Type:      evtType,
		Room:      room,
		Player:    player,
		Data:      data,
		Timestamp: time.Now().UTC(),
	}:
	default:
		// channel full: drop rather than stall a tick
	}
}

// RecordRound enqueues a finished round (non-blocking)
func (a *Analytics) RecordRound(r RoundResult) {
	select {
	case a.rounds <- r:
	default:
		log.Warn().Str("room", r.Room).Msg("analytics: round dropped, queue full")
	}
}

// Stop flushes pending work and shuts down the writer
func (a *Analytics) Stop() {
	a.once.Do(func() {
		close(a.stop)
		a.wg.Wait()
	})
}

// writer is the background goroutine that batches and writes events to DB
func (a *Analytics) writer() {
	defer a.wg.Done()

	batch := make([]AnalyticsEvent, 0, analyticsBatch)
	ticker := time.NewTicker(analyticsInterval)
	defer ticker.Stop()

	for {
		select {
		case evt := <-a.events:
			batch = append(batch, evt)
			if len(batch) >= analyticsBatch {
				a.flush(batch)
				batch = batch[:0]
			}
		case r := <-a.rounds:
			a.saveRound(r)
		case <-ticker.C:
			if len(batch) > 0 {
				a.flush(batch)
				batch = batch[:0]
			}
		case <-a.stop:
			// drain whatever is still queued
			for {
				select {
				case evt := <-a.events:
					batch = append(batch, evt)
				case r := <-a.rounds:
					a.saveRound(r)
				default:
					a.flush(batch)
					return
				}
			}
		}
	}
}

func (a *Analytics) saveRound(r RoundResult) {
	if err := a.db.RecordRound(r); err != nil {
		log.Error().Err(err).Str("room", r.Room).Msg("analytics: record round")
	}
}

// flush writes a batch of events to the database
func (a *Analytics) flush(events []AnalyticsEvent) {
	if len(events) == 0 {
		return
	}
	if err := a.db.InsertEvents(events); err != nil {
		log.Error().Err(err).Int("events", len(events)).Msg("analytics: flush")
	}
}
