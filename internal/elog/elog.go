// Package elog is a small channel-fed structured logger, modeled on
// nvr's pkg/log: a Logger with a feed/sub/unsub goroutine and
// level-tagged, chainable Event builders. Library code in pkg/planner
// logs through this rather than calling fmt.Println or the standard
// log package directly.
package elog

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"
)

// Level is a log severity, ordered the same way nvr's matches ffmpeg's.
type Level uint8

// Recognized levels.
const (
	LevelError Level = 16
	LevelWarn  Level = 24
	LevelInfo  Level = 32
	LevelDebug Level = 48
)

func (l Level) String() string {
	switch l {
	case LevelError:
		return "ERROR"
	case LevelWarn:
		return "WARN"
	case LevelInfo:
		return "INFO"
	case LevelDebug:
		return "DEBUG"
	default:
		return "UNKNOWN"
	}
}

// Entry is one emitted log line.
type Entry struct {
	Level Level
	Time  time.Time
	Msg   string
	Src   string // component that emitted it: "project", "planner", "history", ...
	Track string // track id, when the event concerns one specific track
}

// Event is a log line under construction; call Msg/Msgf to send it.
type Event struct {
	entry  Entry
	logger *Logger
}

// Src tags the event with its emitting component.
func (e *Event) Src(src string) *Event {
	e.entry.Src = src
	return e
}

// Track tags the event with the id of the track it concerns.
func (e *Event) Track(trackID string) *Event {
	e.entry.Track = trackID
	return e
}

// Msg sends the event with msg as its message.
func (e *Event) Msg(msg string) {
	e.entry.Msg = msg
	e.logger.feed <- e.entry
}

// Msgf sends the event with a formatted message.
func (e *Event) Msgf(format string, args ...interface{}) {
	e.Msg(fmt.Sprintf(format, args...))
}

type feed chan Entry

// Logger fans one entry feed out to any number of subscribers (stdout
// printer, bbolt sink, a CLI progress pane) without coupling emitters
// to sinks.
type Logger struct {
	feed  feed
	sub   chan feed
	unsub chan feed
}

// New returns a Logger with no subscribers; call Start to begin
// dispatching.
func New() *Logger {
	return &Logger{
		feed:  make(feed),
		sub:   make(chan feed),
		unsub: make(chan feed),
	}
}

// Start runs the dispatch loop until ctx is cancelled.
func (l *Logger) Start(ctx context.Context, wg *sync.WaitGroup) {
	wg.Add(1)
	go func() {
		defer wg.Done()
		subs := map[feed]struct{}{}
		for {
			select {
			case <-ctx.Done():
				for ch := range subs {
					close(ch)
				}
				return
			case ch := <-l.sub:
				subs[ch] = struct{}{}
			case ch := <-l.unsub:
				if _, ok := subs[ch]; ok {
					close(ch)
					delete(subs, ch)
				}
			case entry := <-l.feed:
				for ch := range subs {
					ch <- entry
				}
			}
		}
	}()
}

// CancelFunc unsubscribes a feed obtained from Subscribe.
type CancelFunc func()

// Subscribe returns a channel of entries and a function to stop receiving them.
func (l *Logger) Subscribe() (<-chan Entry, CancelFunc) {
	ch := make(feed)
	l.sub <- ch
	return ch, func() { l.unSubscribe(ch) }
}

func (l *Logger) unSubscribe(ch feed) {
	for {
		select {
		case l.unsub <- ch:
			return
		case <-ch:
		}
	}
}

// LogToStdout prints every entry to stdout until ctx is cancelled.
func (l *Logger) LogToStdout(ctx context.Context) {
	entries, cancel := l.Subscribe()
	defer cancel()
	for {
		select {
		case e, ok := <-entries:
			if !ok {
				return
			}
			fmt.Println(format(e))
		case <-ctx.Done():
			return
		}
	}
}

func format(e Entry) string {
	var b strings.Builder
	fmt.Fprintf(&b, "[%s] ", e.Level)
	if e.Track != "" {
		fmt.Fprintf(&b, "track=%s ", e.Track)
	}
	if e.Src != "" {
		fmt.Fprintf(&b, "%s: ", e.Src)
	}
	b.WriteString(e.Msg)
	return b.String()
}

func now() Entry {
	return Entry{Time: time.Now()}
}

// Error/Warn/Info/Debug start a new Event at the named level; call
// Msg/Msgf on it to send.
func (l *Logger) Error() *Event { return &Event{entry: withLevel(LevelError), logger: l} }
func (l *Logger) Warn() *Event  { return &Event{entry: withLevel(LevelWarn), logger: l} }
func (l *Logger) Info() *Event  { return &Event{entry: withLevel(LevelInfo), logger: l} }
func (l *Logger) Debug() *Event { return &Event{entry: withLevel(LevelDebug), logger: l} }

func withLevel(lvl Level) Entry {
	e := now()
	e.Level = lvl
	return e
}

// NewDiscard returns a Logger whose entries are drained and dropped,
// for callers (most tests) that don't care about log output but still
// need a non-nil Logger to construct a Planner with.
func NewDiscard() *Logger {
	l := New()
	go func() {
		for range l.feed {
		}
	}()
	return l
}
