package job

import (
	"sync"
	"time"
)

// defaultStreamBufferSize is how many recent events a job stream retains.
const defaultStreamBufferSize = 256

// subscriberChanSize is the per-subscriber channel capacity. Publishes never
// block: a subscriber that falls behind misses events.
const subscriberChanSize = 64

// Progress is a point-in-time snapshot of a running job's counters.
type Progress struct {
	Discovered int      `json:"discovered"`
	Fetched    int      `json:"fetched"`
	Parsed     int      `json:"parsed"`
	Drafts     int      `json:"drafts"`
	Duplicates int      `json:"duplicates"`
	Errors     int      `json:"errors"`
	TopDomains []string `json:"top_domains,omitempty"`
}

// Event is one entry on a job's live stream: a log line, a progress
// snapshot, or both.
type Event struct {
	JobID     string    `json:"job_id"`
	Timestamp time.Time `json:"timestamp"`
	Level     string    `json:"level,omitempty"`
	Message   string    `json:"message,omitempty"`
	Progress  *Progress `json:"progress,omitempty"`
}

// stream is one job's event feed: a circular buffer of recent events plus
// the live subscriber channels.
type stream struct {
	entries     []Event
	head        int // Points to oldest entry
	count       int // Number of entries in buffer
	subscribers map[chan Event]struct{}
	mu          sync.RWMutex
}

func newStream(size int) *stream {
	if size <= 0 {
		size = defaultStreamBufferSize
	}
	return &stream{
		entries:     make([]Event, size),
		subscribers: make(map[chan Event]struct{}),
	}
}

func (s *stream) publish(event Event) {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := (s.head + s.count) % len(s.entries)

	if s.count < len(s.entries) {
		s.entries[idx] = event
		s.count++
	} else {
		// Buffer full, overwrite oldest
		s.entries[s.head] = event
		s.head = (s.head + 1) % len(s.entries)
	}

	for ch := range s.subscribers {
		select {
		case ch <- event:
		default:
			// Slow subscriber, drop the event rather than stall the runner.
		}
	}
}

func (s *stream) recent() []Event {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]Event, s.count)
	for i := range s.count {
		result[i] = s.entries[(s.head+i)%len(s.entries)]
	}
	return result
}

func (s *stream) subscribe() chan Event {
	s.mu.Lock()
	defer s.mu.Unlock()

	ch := make(chan Event, subscriberChanSize)
	s.subscribers[ch] = struct{}{}
	return ch
}

func (s *stream) unsubscribe(ch chan Event) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.subscribers[ch]; ok {
		delete(s.subscribers, ch)
		close(ch)
	}
}

func (s *stream) close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for ch := range s.subscribers {
		delete(s.subscribers, ch)
		close(ch)
	}
}

// StreamRegistry maps job IDs to live event streams. The runner registers a
// stream when a job starts and publishes to it for the run's duration;
// observers subscribe for the live feed or read the recent buffer.
type StreamRegistry struct {
	streams    map[string]*stream
	bufferSize int
	mu         sync.RWMutex
}

// NewStreamRegistry creates a registry whose streams buffer the given number
// of recent events each.
func NewStreamRegistry(bufferSize int) *StreamRegistry {
	if bufferSize <= 0 {
		bufferSize = defaultStreamBufferSize
	}
	return &StreamRegistry{
		streams:    make(map[string]*stream),
		bufferSize: bufferSize,
	}
}

// Register creates the stream for a job. Registering an already-registered
// job is a no-op, so a restarted run reuses its stream.
func (r *StreamRegistry) Register(jobID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.streams[jobID]; !ok {
		r.streams[jobID] = newStream(r.bufferSize)
	}
}

// Deregister removes a job's stream and closes all its subscribers.
func (r *StreamRegistry) Deregister(jobID string) {
	r.mu.Lock()
	s, ok := r.streams[jobID]
	delete(r.streams, jobID)
	r.mu.Unlock()

	if ok {
		s.close()
	}
}

// Publish appends an event to a job's stream and fans it out to subscribers
// without blocking. Publishing to an unregistered job is a no-op.
func (r *StreamRegistry) Publish(jobID string, event Event) {
	r.mu.RLock()
	s, ok := r.streams[jobID]
	r.mu.RUnlock()

	if !ok {
		return
	}

	event.JobID = jobID
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	s.publish(event)
}

// Subscribe returns a channel of live events for a job plus a cancel
// function. The channel is closed on cancel or deregistration. Subscribing
// to an unregistered job returns a closed channel.
func (r *StreamRegistry) Subscribe(jobID string) (<-chan Event, func()) {
	r.mu.RLock()
	s, ok := r.streams[jobID]
	r.mu.RUnlock()

	if !ok {
		ch := make(chan Event)
		close(ch)
		return ch, func() {}
	}

	ch := s.subscribe()
	return ch, func() { s.unsubscribe(ch) }
}

// Recent returns a job's buffered events in chronological order.
func (r *StreamRegistry) Recent(jobID string) []Event {
	r.mu.RLock()
	s, ok := r.streams[jobID]
	r.mu.RUnlock()

	if !ok {
		return nil
	}
	return s.recent()
}
