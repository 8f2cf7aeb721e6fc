// Package cdgtimeline implements the per-track ordered event container the
// scheduler walks to produce a packet stream, per spec.md §4.7.
package cdgtimeline

import (
	"fmt"
	"sort"

	"cdgforge/internal/cdgproj"
)

// ConflictError reports that an inserted event overlaps an existing event
// on the same track.
type ConflictError struct {
	Track              uint8
	NewStart, NewEnd   uint32
	ExistingStart, ExistingEnd uint32
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("cdgtimeline: track %d: event [%d,%d) conflicts with existing event [%d,%d)",
		e.Track, e.NewStart, e.NewEnd, e.ExistingStart, e.ExistingEnd)
}

// Timeline holds events grouped by track, each track kept sorted by
// StartOffsetPacks.
type Timeline struct {
	tracks [8][]cdgproj.Event
}

// New returns an empty timeline.
func New() *Timeline {
	return &Timeline{}
}

// Insert adds an event to its track, keeping the track sorted. It rejects
// events that overlap an existing event on the same track.
func (t *Timeline) Insert(e cdgproj.Event) error {
	if e.Track > 7 {
		return fmt.Errorf("cdgtimeline: track %d out of range 0-7", e.Track)
	}
	if e.DurationPacks == 0 {
		return fmt.Errorf("cdgtimeline: event has zero duration")
	}
	track := t.tracks[e.Track]
	start, end := e.StartOffsetPacks, e.EndPack()

	idx := sort.Search(len(track), func(i int) bool {
		return track[i].StartOffsetPacks >= start
	})
	if idx > 0 {
		prev := track[idx-1]
		if prev.EndPack() > start {
			return &ConflictError{Track: e.Track, NewStart: start, NewEnd: end, ExistingStart: prev.StartOffsetPacks, ExistingEnd: prev.EndPack()}
		}
	}
	if idx < len(track) {
		next := track[idx]
		if next.StartOffsetPacks < end {
			return &ConflictError{Track: e.Track, NewStart: start, NewEnd: end, ExistingStart: next.StartOffsetPacks, ExistingEnd: next.EndPack()}
		}
	}

	track = append(track, cdgproj.Event{})
	copy(track[idx+1:], track[idx:])
	track[idx] = e
	t.tracks[e.Track] = track
	return nil
}

// InsertAll inserts every event in order, stopping at the first conflict.
func (t *Timeline) InsertAll(events []cdgproj.Event) error {
	for i, e := range events {
		if err := t.Insert(e); err != nil {
			return fmt.Errorf("cdgtimeline: event %d: %w", i, err)
		}
	}
	return nil
}

// EventsOverlapping returns every event, across all tracks, whose pack range
// intersects [packStart, packEnd), in track-major then start-pack order.
func (t *Timeline) EventsOverlapping(packStart, packEnd uint32) []cdgproj.Event {
	var out []cdgproj.Event
	for _, track := range t.tracks {
		for _, e := range track {
			if e.StartOffsetPacks < packEnd && e.EndPack() > packStart {
				out = append(out, e)
			}
		}
	}
	return out
}

// EventAt returns the event on the given track active at pack, per
// SPEC_FULL.md §4.11's supplemental single-point query.
func (t *Timeline) EventAt(track uint8, pack uint32) (cdgproj.Event, bool) {
	if track > 7 {
		return cdgproj.Event{}, false
	}
	for _, e := range t.tracks[track] {
		if pack >= e.StartOffsetPacks && pack < e.EndPack() {
			return e, true
		}
	}
	return cdgproj.Event{}, false
}

// AllSortedByStart returns every event across all tracks, sorted by
// StartOffsetPacks, the order the scheduler processes them in (spec.md §4.8
// step 2: "For each event in sorted start_offset_packs order").
func (t *Timeline) AllSortedByStart() []cdgproj.Event {
	var out []cdgproj.Event
	for _, track := range t.tracks {
		out = append(out, track...)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].StartOffsetPacks < out[j].StartOffsetPacks
	})
	return out
}
