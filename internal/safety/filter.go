// Package safety classifies generated PowerShell command strings as
// safe or unsafe before they reach the privileged executor. The
// deny-list always takes precedence over the verb allow-list.
package safety

import (
	"fmt"
	"log"
	"regexp"
	"strings"
	"sync"
)

// Verdict is the result of one safety evaluation.
type Verdict struct {
	Safe     bool   `json:"safe"`
	Category string `json:"category,omitempty"`
	Reason   string `json:"reason,omitempty"`
}

// CategoryRateLimit marks verdicts produced by the rate limiter
// rather than by content inspection.
const CategoryRateLimit = "rate-limit"

type denyRule struct {
	category string
	re       *regexp.Regexp
}

// verbToken matches cmdlet-style verb-noun tokens: a capitalized word,
// a hyphen, another capitalized word.
var verbToken = regexp.MustCompile(`\b[A-Z][a-zA-Z]*-[A-Z][a-zA-Z]*\b`)

// assignment matches simple variable assignments ($x = ...).
var assignment = regexp.MustCompile(`^\s*\$[A-Za-z_]\w*\s*=`)

// pureExpression matches data-shaping snippets with no invocation:
// a variable or literal followed by property access, pipes and more
// literals. Parentheses are deliberately excluded so call syntax never
// qualifies, and the leading character must not be a bare word.
var pureExpression = regexp.MustCompile(`^\s*[$'"0-9][\s\w$.,:'"\[\]{}|=+*/-]*$`)

// Filter evaluates commands against a Policy. Safe for concurrent use;
// Reload swaps the policy atomically.
type Filter struct {
	mu      sync.RWMutex
	deny    []denyRule
	allowed map[string]bool
	unknown UnknownVerbMode
	limiter *Limiter
}

// NewFilter compiles the policy's deny patterns and builds the verb
// set. Invalid patterns are a configuration error.
func NewFilter(p Policy) (*Filter, error) {
	f := &Filter{
		limiter: NewLimiter(p.RateLimit.MaxCommands, p.RateLimit.Window),
	}
	if err := f.apply(p); err != nil {
		return nil, err
	}
	return f, nil
}

func (f *Filter) apply(p Policy) error {
	deny := make([]denyRule, 0, len(p.DenyRules))
	for _, r := range p.DenyRules {
		re, err := regexp.Compile(r.Pattern)
		if err != nil {
			return fmt.Errorf("invalid deny pattern %q (%s): %w", r.Pattern, r.Category, err)
		}
		deny = append(deny, denyRule{category: r.Category, re: re})
	}

	allowed := make(map[string]bool, len(p.AllowedVerbs))
	for _, v := range p.AllowedVerbs {
		allowed[v] = true
	}

	unknown := p.UnknownVerbs
	if unknown != RejectUnknown {
		unknown = PermitUnknown
	}

	f.mu.Lock()
	f.deny = deny
	f.allowed = allowed
	f.unknown = unknown
	f.mu.Unlock()
	return nil
}

// Reload replaces the active policy. The rate limiter window carries
// over; only content rules change.
func (f *Filter) Reload(p Policy) error {
	return f.apply(p)
}

// Check is the front door: rate limit first, then content evaluation.
// A rate-limited command is rejected without being evaluated.
func (f *Filter) Check(command string) Verdict {
	if !f.limiter.Allow() {
		return Verdict{
			Safe:     false,
			Category: CategoryRateLimit,
			Reason:   "command rate limit exceeded",
		}
	}
	return f.Evaluate(command)
}

// Evaluate classifies a single command string.
func (f *Filter) Evaluate(command string) Verdict {
	if strings.TrimSpace(command) == "" {
		return Verdict{Safe: false, Category: "invalid-input", Reason: "invalid input"}
	}

	f.mu.RLock()
	deny := f.deny
	allowed := f.allowed
	unknown := f.unknown
	f.mu.RUnlock()

	// Deny-list first: even an allow-listed verb combined with a
	// dangerous flag is blocked.
	for _, r := range deny {
		if r.re.MatchString(command) {
			return Verdict{
				Safe:     false,
				Category: r.category,
				Reason:   fmt.Sprintf("matched %s pattern", r.category),
			}
		}
	}

	tokens := verbToken.FindAllString(command, -1)
	if len(tokens) == 0 {
		if assignment.MatchString(command) || pureExpression.MatchString(command) {
			return Verdict{Safe: true}
		}
		return Verdict{
			Safe:     false,
			Category: "unrecognized",
			Reason:   "no recognized cmdlet and not a plain expression",
		}
	}

	for _, tok := range tokens {
		if allowed[tok] {
			continue
		}
		if unknown == RejectUnknown {
			return Verdict{
				Safe:     false,
				Category: "unknown-verb",
				Reason:   fmt.Sprintf("cmdlet %q is not on the allow-list", tok),
			}
		}
		log.Printf("[safety] unrecognized cmdlet %q permitted (deny-list clear)", tok)
	}

	return Verdict{Safe: true}
}

// Limiter exposes the shared sliding window, mainly for tests.
func (f *Filter) Limiter() *Limiter {
	return f.limiter
}
