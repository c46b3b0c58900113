package ratelimiter

import (
	"sync"
	"time"

	"github.com/ether/etherdoc/lib/settings"
)

type IPAddress string

type Event struct {
	LastOccurrence int64
}

type RateLimiter struct {
	Mu          sync.Mutex
	RateLimiter map[IPAddress][]Event
	now         func() time.Time
}

func NewRateLimiter() *RateLimiter {
	return &RateLimiter{
		RateLimiter: make(map[IPAddress][]Event),
		now:         time.Now,
	}
}

var rateLimiter = NewRateLimiter()

type ErrRateLimitExceeded struct{}

func (e ErrRateLimitExceeded) Error() string {
	return "rate limit exceeded"
}

// CheckRateLimit records a message from ip and fails once more than
// limiting.Points messages arrived within limiting.Duration seconds.
func CheckRateLimit(ip IPAddress, limiting settings.CommitRateLimiting) error {
	return rateLimiter.Check(ip, limiting)
}

func (r *RateLimiter) Check(ip IPAddress, limiting settings.CommitRateLimiting) error {
	if limiting.Points <= 0 {
		return nil
	}

	r.Mu.Lock()
	defer r.Mu.Unlock()

	now := r.now()
	cutoff := now.Add(time.Duration(-limiting.Duration) * time.Second).Unix()
	var filteredEvents []Event
	for _, event := range r.RateLimiter[ip] {
		if event.LastOccurrence > cutoff {
			filteredEvents = append(filteredEvents, event)
		}
	}
	filteredEvents = append(filteredEvents, Event{LastOccurrence: now.Unix()})
	r.RateLimiter[ip] = filteredEvents
	if len(filteredEvents) > limiting.Points {
		return ErrRateLimitExceeded{}
	}
	return nil
}

// Forget drops the history of ip.
func (r *RateLimiter) Forget(ip IPAddress) {
	r.Mu.Lock()
	defer r.Mu.Unlock()
	delete(r.RateLimiter, ip)
}
