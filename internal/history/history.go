package history

import "sync"

// TimeLayout is the second-precision layout used for Record.Time.
const TimeLayout = "2006-01-02_15-04-05"

// Record is one completed question/answer exchange.
type Record struct {
	Time     string `json:"time"`
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

// Log is an append-only, in-memory sequence of records ordered by completion.
// It lives for the process lifetime only.
type Log struct {
	mu      sync.RWMutex
	records []Record
}

func NewLog() *Log {
	return &Log{}
}

func (l *Log) Append(rec Record) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.records = append(l.records, rec)
}

// All returns a copy of every record in insertion order.
func (l *Log) All() []Record {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]Record, len(l.records))
	copy(out, l.records)
	return out
}

func (l *Log) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.records)
}
