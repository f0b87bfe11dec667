//file: internal/rule/index.go
package rule

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"notification-rules/internal/logger"
	"notification-rules/internal/metrics"
	"notification-rules/internal/notification"
)

// RuleIndex keeps rules in registration order and groups them by trigger
type RuleIndex struct {
	byTrigger map[notification.Type][]*Rule // Rules per trigger, in registration order
	all       []*Rule                       // Every rule, in registration order
	stats     IndexStats                    // Index statistics
	logger    *logger.Logger                // Logger instance
	metrics   *metrics.Metrics              // Metrics collector
	mu        sync.RWMutex                  // Protects index updates
}

// IndexStats tracks rule index statistics
type IndexStats struct {
	RuleCount  uint64    // Total number of rules
	Lookups    uint64    // Number of trigger lookups
	Matches    uint64    // Lookups that selected at least one rule
	LastUpdate time.Time // Last index update time
}

// NewRuleIndex creates a new rule index
func NewRuleIndex(log *logger.Logger, m *metrics.Metrics) *RuleIndex {
	return &RuleIndex{
		byTrigger: make(map[notification.Type][]*Rule),
		logger:    log,
		metrics:   m,
		stats: IndexStats{
			LastUpdate: time.Now(),
		},
	}
}

// Add appends a rule to the index. Adding the same rule twice indexes it twice.
func (idx *RuleIndex) Add(rule *Rule) error {
	if rule == nil {
		return fmt.Errorf("rule cannot be nil")
	}

	idx.mu.Lock()
	defer idx.mu.Unlock()

	idx.byTrigger[rule.Trigger] = append(idx.byTrigger[rule.Trigger], rule)
	idx.all = append(idx.all, rule)

	count := atomic.AddUint64(&idx.stats.RuleCount, 1)
	idx.stats.LastUpdate = time.Now()

	if idx.metrics != nil {
		idx.metrics.SetRulesActive(float64(count))
	}

	idx.logger.Debug("rule added to index",
		"rule", rule.Label(),
		"trigger", rule.Trigger)

	return nil
}

// Find returns the rules triggered by t, in registration order
func (idx *RuleIndex) Find(t notification.Type) []*Rule {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	atomic.AddUint64(&idx.stats.Lookups, 1)

	rules := idx.byTrigger[t]
	matches := make([]*Rule, len(rules))
	copy(matches, rules)

	if len(matches) > 0 {
		atomic.AddUint64(&idx.stats.Matches, 1)
	}

	idx.logger.Debug("rule lookup completed",
		"trigger", t,
		"matchCount", len(matches))

	return matches
}

// All returns every rule in registration order
func (idx *RuleIndex) All() []*Rule {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	rules := make([]*Rule, len(idx.all))
	copy(rules, idx.all)
	return rules
}

// GetTriggers returns the triggers that have at least one rule
func (idx *RuleIndex) GetTriggers() []notification.Type {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	var triggers []notification.Type
	for _, t := range notification.Types {
		if len(idx.byTrigger[t]) > 0 {
			triggers = append(triggers, t)
		}
	}
	return triggers
}

// GetStats returns current index statistics
func (idx *RuleIndex) GetStats() IndexStats {
	idx.mu.RLock()
	lastUpdate := idx.stats.LastUpdate
	idx.mu.RUnlock()

	return IndexStats{
		RuleCount:  atomic.LoadUint64(&idx.stats.RuleCount),
		Lookups:    atomic.LoadUint64(&idx.stats.Lookups),
		Matches:    atomic.LoadUint64(&idx.stats.Matches),
		LastUpdate: lastUpdate,
	}
}
