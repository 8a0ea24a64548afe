// Copyright 2024 The Moviecore Authors.
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation; either version 2 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with this program.  If not, see <https://www.gnu.org/licenses/>.

// Package mlog is the engine's structured logger: a Level/Event/Logger
// builder chain with a sub/unsub/feed pub-sub core, adapted from
// log.Logger. .Monitor(id) becomes .Track(id) — the thing every event is
// attributed to here is a track, not a monitor.
//
// API inspired by zerolog https://github.com/rs/zerolog, same as the
// teacher's pkg/log.
package mlog

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"
)

// Level defines log level.
type Level uint8

// Logging constants, matching the teacher's ffmpeg-aligned scale.
const (
	LevelError   Level = 16
	LevelWarning Level = 24
	LevelInfo    Level = 32
	LevelDebug   Level = 48
)

func (lv Level) String() string {
	switch lv {
	case LevelError:
		return "ERROR"
	case LevelWarning:
		return "WARNING"
	case LevelInfo:
		return "INFO"
	case LevelDebug:
		return "DEBUG"
	default:
		return "UNKNOWN"
	}
}

// UnixMillisecond is a log entry's wall-clock timestamp.
type UnixMillisecond uint64

// Entry is one emitted log line.
type Entry struct {
	Level Level
	Time  UnixMillisecond
	Msg   string
	Src   string // owning package, e.g. "recorder", "edit", "player".
	Track string // track id the entry concerns, if any.
}

// Event is an in-progress log line; call Msg or Msgf to send it.
type Event struct {
	level  Level
	time   UnixMillisecond
	src    string
	track  string
	logger *Logger
}

// Src sets the event's owning package.
func (e *Event) Src(source string) *Event {
	e.src = source
	return e
}

// Track sets the event's subject track id.
func (e *Event) Track(trackID string) *Event {
	e.track = trackID
	return e
}

// Msg sends the event with msg as the message field.
func (e *Event) Msg(msg string) {
	e.logger.feed <- Entry{
		Time:  e.time,
		Level: e.level,
		Msg:   msg,
		Src:   e.src,
		Track: e.track,
	}
}

// Msgf sends the event with a formatted message field.
func (e *Event) Msgf(format string, v ...interface{}) {
	e.Msg(fmt.Sprintf(format, v...))
}

type entryFeed chan Entry

// Feed is a read-only subscription to a Logger's entry broadcast.
type Feed <-chan Entry

// CancelFunc cancels a Feed subscription.
type CancelFunc func()

// Logger is the engine-wide structured logger.
type Logger struct {
	feed  entryFeed
	sub   chan entryFeed
	unsub chan entryFeed
}

// New constructs a Logger. Start must be called once to run its
// broadcast loop before any Event is sent.
func New() *Logger {
	return &Logger{
		feed:  make(entryFeed),
		sub:   make(chan entryFeed),
		unsub: make(chan entryFeed),
	}
}

// Start runs the sub/unsub/feed broadcast loop until ctx is cancelled.
func (l *Logger) Start(ctx context.Context) {
	go func() {
		subs := map[entryFeed]struct{}{}
		for {
			select {
			case <-ctx.Done():
				return
			case ch := <-l.sub:
				subs[ch] = struct{}{}
			case ch := <-l.unsub:
				close(ch)
				delete(subs, ch)
			case entry := <-l.feed:
				for ch := range subs {
					ch <- entry
				}
			}
		}
	}()
}

// Subscribe returns a new entry feed and its cancel function.
func (l *Logger) Subscribe() (Feed, CancelFunc) {
	ch := make(entryFeed)
	l.sub <- ch
	return ch, func() { l.unSubscribe(ch) }
}

func (l *Logger) unSubscribe(ch entryFeed) {
	for {
		select {
		case l.unsub <- ch:
			return
		case <-ch:
		}
	}
}

// Error starts a new error-level event.
func (l *Logger) Error() *Event { return l.newEvent(LevelError) }

// Warn starts a new warning-level event.
func (l *Logger) Warn() *Event { return l.newEvent(LevelWarning) }

// Info starts a new info-level event.
func (l *Logger) Info() *Event { return l.newEvent(LevelInfo) }

// Debug starts a new debug-level event.
func (l *Logger) Debug() *Event { return l.newEvent(LevelDebug) }

func (l *Logger) newEvent(level Level) *Event {
	return &Event{
		level:  level,
		time:   UnixMillisecond(time.Now().UnixNano() / int64(time.Millisecond)),
		logger: l,
	}
}

// LogToStdout prints every entry on the feed to stdout until ctx is
// cancelled, the way log.Logger.LogToStdout does.
func (l *Logger) LogToStdout(ctx context.Context) {
	feed, cancel := l.Subscribe()
	defer cancel()
	for {
		select {
		case entry := <-feed:
			printEntry(entry)
		case <-ctx.Done():
			return
		}
	}
}

func printEntry(entry Entry) {
	var out strings.Builder
	fmt.Fprintf(&out, "[%s] ", entry.Level)
	if entry.Track != "" {
		fmt.Fprintf(&out, "%s: ", entry.Track)
	}
	if entry.Src != "" {
		fmt.Fprintf(&out, "%s: ", entry.Src)
	}
	out.WriteString(entry.Msg)
	fmt.Fprintln(os.Stdout, out.String())
}
