package stats

import (
	"encoding/json"
	"sync"
	"sync/atomic"
	"time"
)

// Collector accumulates run-level totals for a summary report
type Collector struct {
	StartTime    time.Time
	Received     uint64 // Notifications read from the source
	Posted       uint64 // Notifications appended to history
	RulesMatched uint64
	ActionsFired uint64
	Errors       uint64
	LastUpdate   time.Time
	mu           sync.RWMutex
}

// Summary is a point-in-time view of a Collector
type Summary struct {
	Uptime       string    `json:"uptime"`
	Received     uint64    `json:"received"`
	Posted       uint64    `json:"posted"`
	RulesMatched uint64    `json:"rulesMatched"`
	ActionsFired uint64    `json:"actionsFired"`
	Errors       uint64    `json:"errors"`
	Rate         float64   `json:"ratePerSecond"`
	LastUpdate   time.Time `json:"lastUpdate"`
}

// NewCollector creates a collector starting now
func NewCollector() *Collector {
	now := time.Now()
	return &Collector{
		StartTime:  now,
		LastUpdate: now,
	}
}

// IncReceived counts one notification read from the source
func (c *Collector) IncReceived() {
	atomic.AddUint64(&c.Received, 1)
}

// AddReceived counts n notifications read from the source
func (c *Collector) AddReceived(n uint64) {
	atomic.AddUint64(&c.Received, n)
}

// Update replaces the evaluator totals
func (c *Collector) Update(posted, matched, fired, errors uint64) {
	atomic.StoreUint64(&c.Posted, posted)
	atomic.StoreUint64(&c.RulesMatched, matched)
	atomic.StoreUint64(&c.ActionsFired, fired)
	atomic.StoreUint64(&c.Errors, errors)

	c.mu.Lock()
	c.LastUpdate = time.Now()
	c.mu.Unlock()
}

// Summary returns current totals
func (c *Collector) Summary() Summary {
	c.mu.RLock()
	lastUpdate := c.LastUpdate
	c.mu.RUnlock()

	return Summary{
		Uptime:       time.Since(c.StartTime).Round(time.Millisecond).String(),
		Received:     atomic.LoadUint64(&c.Received),
		Posted:       atomic.LoadUint64(&c.Posted),
		RulesMatched: atomic.LoadUint64(&c.RulesMatched),
		ActionsFired: atomic.LoadUint64(&c.ActionsFired),
		Errors:       atomic.LoadUint64(&c.Errors),
		Rate:         c.Rate(),
		LastUpdate:   lastUpdate,
	}
}

// JSON returns the summary as JSON
func (c *Collector) JSON() ([]byte, error) {
	return json.Marshal(c.Summary())
}

// Rate returns posted notifications per second since start
func (c *Collector) Rate() float64 {
	uptime := time.Since(c.StartTime).Seconds()
	if uptime <= 0 {
		return 0
	}
	return float64(atomic.LoadUint64(&c.Posted)) / uptime
}
