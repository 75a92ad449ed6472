// Package session is the explicit replacement for process-global request
// state: a registry of active sessions plus aggregate request counters, with
// defined create and destroy points.
package session

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

type Status string

const (
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusError      Status = "error"
)

type Session struct {
	ID             string    `json:"id"`
	Status         Status    `json:"status"`
	QuestionCount  int       `json:"question_count"`
	StartedAt      time.Time `json:"started_at"`
	ProcessingTime float64   `json:"processing_time,omitempty"` // seconds
	Error          string    `json:"error,omitempty"`
}

type Registry struct {
	mu        sync.RWMutex
	sessions  map[string]*Session
	startedAt time.Time

	requestCount      int64
	totalResponseTime time.Duration
}

func NewRegistry() *Registry {
	return &Registry{
		sessions:  make(map[string]*Session),
		startedAt: time.Now(),
	}
}

// Create registers a new processing session. An empty id gets a fresh UUID.
func (r *Registry) Create(id string, questionCount int) *Session {
	if id == "" {
		id = uuid.New().String()
	}
	s := &Session{
		ID:            id,
		Status:        StatusProcessing,
		QuestionCount: questionCount,
		StartedAt:     time.Now(),
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[id] = s
	r.requestCount++
	return s
}

func (r *Registry) Complete(id string, elapsed time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.sessions[id]; ok {
		s.Status = StatusCompleted
		s.ProcessingTime = elapsed.Seconds()
	}
	r.totalResponseTime += elapsed
}

func (r *Registry) Fail(id string, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.sessions[id]; ok {
		s.Status = StatusError
		s.Error = err.Error()
	}
}

func (r *Registry) Get(id string) (*Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[id]
	if !ok {
		return nil, false
	}
	copied := *s
	return &copied, true
}

func (r *Registry) List() []*Session {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Session, 0, len(r.sessions))
	for _, s := range r.sessions {
		copied := *s
		out = append(out, &copied)
	}
	return out
}

func (r *Registry) Delete(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.sessions[id]; !ok {
		return false
	}
	delete(r.sessions, id)
	return true
}

type Metrics struct {
	UptimeSeconds       float64 `json:"uptime_seconds"`
	TotalRequests       int64   `json:"total_requests"`
	AverageResponseTime float64 `json:"average_response_time"`
	ActiveSessions      int     `json:"active_sessions"`
	RequestsPerMinute   float64 `json:"requests_per_minute"`
}

func (r *Registry) Metrics() Metrics {
	r.mu.RLock()
	defer r.mu.RUnlock()

	uptime := time.Since(r.startedAt).Seconds()
	m := Metrics{
		UptimeSeconds:  uptime,
		TotalRequests:  r.requestCount,
		ActiveSessions: len(r.sessions),
	}
	if r.requestCount > 0 {
		m.AverageResponseTime = r.totalResponseTime.Seconds() / float64(r.requestCount)
	}
	if uptime > 0 {
		m.RequestsPerMinute = float64(r.requestCount) / (uptime / 60)
	}
	return m
}
