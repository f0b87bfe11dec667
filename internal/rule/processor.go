package rule

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"notification-rules/internal/logger"
	"notification-rules/internal/metrics"
	"notification-rules/internal/notification"
)

// Firer performs one action for the notification that satisfied a rule
type Firer interface {
	Fire(ctx context.Context, n notification.Notification, action Action) error
}

// Processor holds the notification history and the registered rules, and
// evaluates rules as notifications are posted. Post and AddRule are
// serialized, so notifications are evaluated strictly in post order.
type Processor struct {
	index   *RuleIndex
	history []notification.Notification
	firer   Firer
	logger  *logger.Logger
	metrics *metrics.Metrics
	stats   ProcessorStats
	mu      sync.Mutex
}

// ProcessorStats tracks processing metrics
type ProcessorStats struct {
	Posted           uint64 // Notifications appended to history
	Evaluated        uint64 // Rules evaluated
	Matched          uint64 // Rules whose conditions held
	ActionsFired     uint64 // Actions that completed
	ActionErrors     uint64 // Actions that failed
	EvaluationErrors uint64 // Rules that could not be evaluated
}

// NewProcessor creates a new processor with an empty history
func NewProcessor(firer Firer, log *logger.Logger, m *metrics.Metrics) *Processor {
	return &Processor{
		index:   NewRuleIndex(log, m),
		firer:   firer,
		logger:  log,
		metrics: m,
	}
}

// AddRule validates rule and appends a copy of it to the registry. Rules
// only apply to notifications posted after they are added.
func (p *Processor) AddRule(rule Rule) error {
	if err := validateRule(&rule); err != nil {
		p.logger.Error("rejected invalid rule",
			"rule", rule.Label(),
			"error", err)
		return err
	}

	// Detach from caller-owned slices
	rule.Conditions = append([]Condition(nil), rule.Conditions...)
	rule.Actions = append([]Action(nil), rule.Actions...)

	p.mu.Lock()
	defer p.mu.Unlock()

	return p.index.Add(&rule)
}

// LoadRules adds rules in order and stops at the first invalid one
func (p *Processor) LoadRules(rules []Rule) error {
	for i := range rules {
		if err := p.AddRule(rules[i]); err != nil {
			return fmt.Errorf("rule %d (%s): %w", i, rules[i].Label(), err)
		}
	}

	p.logger.Info("rules loaded",
		"count", len(rules))

	return nil
}

// Post appends n to the history, then evaluates every rule triggered by
// n.Type against the full history and fires the actions of each satisfied
// rule. A failing rule or action does not stop the others; all failures are
// returned joined once every rule has been processed.
func (p *Processor) Post(ctx context.Context, n notification.Notification) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	start := time.Now()

	p.history = append(p.history, n)
	atomic.AddUint64(&p.stats.Posted, 1)

	if p.metrics != nil {
		p.metrics.IncNotifications(string(n.Type))
		p.metrics.SetHistorySize(float64(len(p.history)))
	}

	var errs []error
	for _, rule := range p.index.Find(n.Type) {
		errs = append(errs, p.processRule(ctx, rule, n)...)
	}

	if p.metrics != nil {
		p.metrics.ObservePostDuration(time.Since(start).Seconds())
	}

	return errors.Join(errs...)
}

// processRule evaluates one rule and fires its actions in order
func (p *Processor) processRule(ctx context.Context, rule *Rule, n notification.Notification) []error {
	atomic.AddUint64(&p.stats.Evaluated, 1)

	ok, err := evaluateConditions(rule, p.history)
	if err != nil {
		atomic.AddUint64(&p.stats.EvaluationErrors, 1)
		p.recordEvaluation("error")
		p.logger.Error("failed to evaluate rule",
			"rule", rule.Label(),
			"notification", n.ID,
			"error", err)
		return []error{err}
	}

	if !ok {
		p.recordEvaluation("unmatched")
		p.logger.Debug("rule conditions not met",
			"rule", rule.Label(),
			"notification", n.ID)
		return nil
	}

	atomic.AddUint64(&p.stats.Matched, 1)
	p.recordEvaluation("matched")
	p.logger.Debug("rule matched",
		"rule", rule.Label(),
		"notification", n.ID,
		"actions", len(rule.Actions))

	var errs []error
	for _, action := range rule.Actions {
		if err := p.firer.Fire(ctx, n, action); err != nil {
			atomic.AddUint64(&p.stats.ActionErrors, 1)
			p.logger.Error("failed to fire action",
				"rule", rule.Label(),
				"action", action.Type,
				"notification", n.ID,
				"error", err)
			errs = append(errs, &ActionError{
				Rule:   rule.Label(),
				Action: action.Type,
				Err:    err,
			})
			continue
		}
		atomic.AddUint64(&p.stats.ActionsFired, 1)
	}

	return errs
}

func (p *Processor) recordEvaluation(result string) {
	if p.metrics != nil {
		p.metrics.IncRuleEvaluations(result)
	}
}

// History returns a copy of the notifications posted so far, in post order
func (p *Processor) History() []notification.Notification {
	p.mu.Lock()
	defer p.mu.Unlock()

	history := make([]notification.Notification, len(p.history))
	copy(history, p.history)
	return history
}

// HistoryLen returns the number of notifications posted so far
func (p *Processor) HistoryLen() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.history)
}

// Rules returns the registered rules in registration order
func (p *Processor) Rules() []Rule {
	indexed := p.index.All()
	rules := make([]Rule, 0, len(indexed))
	for _, r := range indexed {
		rule := *r
		rule.Conditions = append([]Condition(nil), r.Conditions...)
		rule.Actions = append([]Action(nil), r.Actions...)
		rules = append(rules, rule)
	}
	return rules
}

// GetTriggers returns the notification types at least one rule listens for
func (p *Processor) GetTriggers() []notification.Type {
	return p.index.GetTriggers()
}

// GetStats returns current processing statistics
func (p *Processor) GetStats() ProcessorStats {
	return ProcessorStats{
		Posted:           atomic.LoadUint64(&p.stats.Posted),
		Evaluated:        atomic.LoadUint64(&p.stats.Evaluated),
		Matched:          atomic.LoadUint64(&p.stats.Matched),
		ActionsFired:     atomic.LoadUint64(&p.stats.ActionsFired),
		ActionErrors:     atomic.LoadUint64(&p.stats.ActionErrors),
		EvaluationErrors: atomic.LoadUint64(&p.stats.EvaluationErrors),
	}
}
