package session

import (
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/kozaktomas/face-attendance/internal/constants"
)

// Level is the severity of a log entry.
type Level string

// Log levels.
const (
	LevelInfo  Level = "info"
	LevelWarn  Level = "warn"
	LevelError Level = "error"
)

// Entry is one line of the user-visible session log.
type Entry struct {
	Seq     uint64    `json:"seq"`
	Time    time.Time `json:"time"`
	Level   Level     `json:"level"`
	Message string    `json:"message"`
}

// Log is the append-only, user-visible record of what capture sessions did.
// It is never truncated; surfaces that only want the tail use Recent.
type Log struct {
	mu        sync.RWMutex
	entries   []Entry
	listeners []chan Entry
}

// NewLog creates an empty log.
func NewLog() *Log {
	return &Log{}
}

// Append adds an entry and fans it out to listeners. Listeners whose buffer
// is full miss the entry.
func (l *Log) Append(level Level, message string) Entry {
	l.mu.Lock()
	defer l.mu.Unlock()

	e := Entry{
		Seq:     uint64(len(l.entries)) + 1,
		Time:    time.Now(),
		Level:   level,
		Message: message,
	}
	l.entries = append(l.entries, e)
	log.Printf("session %s: %s", level, strings.NewReplacer("\n", " ", "\r", "").Replace(message))

	for _, ch := range l.listeners {
		select {
		case ch <- e:
		default:
		}
	}
	return e
}

// Infof appends an info entry.
func (l *Log) Infof(format string, args ...any) Entry {
	return l.Append(LevelInfo, fmt.Sprintf(format, args...))
}

// Warnf appends a warning entry.
func (l *Log) Warnf(format string, args ...any) Entry {
	return l.Append(LevelWarn, fmt.Sprintf(format, args...))
}

// Errorf appends an error entry.
func (l *Log) Errorf(format string, args ...any) Entry {
	return l.Append(LevelError, fmt.Sprintf(format, args...))
}

// All returns the full history.
func (l *Log) All() []Entry {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]Entry, len(l.entries))
	copy(out, l.entries)
	return out
}

// Recent returns the last n entries, oldest first.
func (l *Log) Recent(n int) []Entry {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if n <= 0 {
		return []Entry{}
	}
	start := max(len(l.entries)-n, 0)
	out := make([]Entry, len(l.entries)-start)
	copy(out, l.entries[start:])
	return out
}

// Since returns the entries with a sequence number greater than seq.
func (l *Log) Since(seq uint64) []Entry {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if seq >= uint64(len(l.entries)) {
		return []Entry{}
	}
	out := make([]Entry, uint64(len(l.entries))-seq)
	copy(out, l.entries[seq:])
	return out
}

// Len returns the number of entries.
func (l *Log) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.entries)
}

// Subscribe returns a channel receiving every entry appended from now on.
func (l *Log) Subscribe() chan Entry {
	l.mu.Lock()
	defer l.mu.Unlock()
	ch := make(chan Entry, constants.EventChannelBuffer)
	l.listeners = append(l.listeners, ch)
	return ch
}

// Unsubscribe removes a listener and closes its channel.
func (l *Log) Unsubscribe(ch chan Entry) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for i, listener := range l.listeners {
		if listener == ch {
			l.listeners = append(l.listeners[:i], l.listeners[i+1:]...)
			close(ch)
			return
		}
	}
}
