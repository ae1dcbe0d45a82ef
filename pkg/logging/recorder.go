package logging

import "sync"

// Recorder keeps entries in memory. Tests use it to assert that recoverable
// inconsistencies were reported.
type Recorder struct {
	mu      *sync.Mutex
	entries *[]LogEntry
	fields  []Field
}

// NewRecorder returns an empty Recorder that accepts every level.
func NewRecorder() *Recorder {
	return &Recorder{mu: &sync.Mutex{}, entries: &[]LogEntry{}}
}

func (r *Recorder) record(level Level, msg string, fields []Field) {
	m := make(map[string]any, len(r.fields)+len(fields))
	for _, f := range r.fields {
		m[f.Key] = f.Value
	}
	for _, f := range fields {
		m[f.Key] = f.Value
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	*r.entries = append(*r.entries, LogEntry{Level: level.String(), Message: msg, Fields: m})
}

func (r *Recorder) Debug(msg string, fields ...Field) { r.record(DebugLevel, msg, fields) }
func (r *Recorder) Info(msg string, fields ...Field)  { r.record(InfoLevel, msg, fields) }
func (r *Recorder) Warn(msg string, fields ...Field)  { r.record(WarnLevel, msg, fields) }
func (r *Recorder) Error(msg string, fields ...Field) { r.record(ErrorLevel, msg, fields) }

func (r *Recorder) With(fields ...Field) Logger {
	return &Recorder{mu: r.mu, entries: r.entries, fields: append(append([]Field{}, r.fields...), fields...)}
}

func (r *Recorder) SetLevel(Level)  {}
func (r *Recorder) GetLevel() Level { return DebugLevel }

// Entries returns a copy of everything recorded so far.
func (r *Recorder) Entries() []LogEntry {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]LogEntry(nil), *r.entries...)
}

// Count returns how many entries have the given level and message.
func (r *Recorder) Count(level Level, msg string) int {
	n := 0
	for _, e := range r.Entries() {
		if e.Level == level.String() && e.Message == msg {
			n++
		}
	}
	return n
}
