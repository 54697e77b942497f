// Package security keeps credentials out of the process logs.
package security

import (
	"regexp"
	"strings"
	"sync"
)

// RedactPlaceholder is the replacement string for redacted secrets.
const RedactPlaceholder = "***REDACTED***"

// rule rewrites every match of re with repl, which may reference groups.
type rule struct {
	re   *regexp.Regexp
	repl string
}

// Redactor replaces secrets in strings. It knows the shape of Telegram
// credentials and of the TDLib request fields that carry them, and it can
// be taught literal values loaded from the configuration.
// All methods are safe for concurrent use.
type Redactor struct {
	mu       sync.RWMutex
	rules    []rule
	literals []string
}

// NewRedactor creates a Redactor with the default rules.
func NewRedactor() *Redactor {
	return &Redactor{rules: defaultRules()}
}

// AddPattern redacts every match of pattern.
func (r *Redactor) AddPattern(pattern *regexp.Regexp) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rules = append(r.rules, rule{re: pattern, repl: RedactPlaceholder})
}

// AddLiteral redacts every occurrence of secret. Empty strings and
// duplicates are ignored.
func (r *Redactor) AddLiteral(secret string) {
	if secret == "" {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, l := range r.literals {
		if l == secret {
			return
		}
	}
	r.literals = append(r.literals, secret)
}

// AddLiterals is AddLiteral for each secret.
func (r *Redactor) AddLiterals(secrets ...string) {
	for _, s := range secrets {
		r.AddLiteral(s)
	}
}

// Redact returns s with every known secret replaced by RedactPlaceholder.
func (r *Redactor) Redact(s string) string {
	if s == "" {
		return s
	}

	r.mu.RLock()
	rules := r.rules
	literals := r.literals
	r.mu.RUnlock()

	// Literals first: a configured token must vanish even where no rule
	// recognizes its surroundings.
	for _, lit := range literals {
		if strings.Contains(s, lit) {
			s = strings.ReplaceAll(s, lit, RedactPlaceholder)
		}
	}
	for _, rl := range rules {
		s = rl.re.ReplaceAllString(s, rl.repl)
	}
	return s
}

func defaultRules() []rule {
	return []rule{
		// Bot API token: <bot id>:<35 character secret>.
		{re: regexp.MustCompile(`\b\d{6,12}:[A-Za-z0-9_-]{30,}\b`), repl: RedactPlaceholder},
		// Credential-carrying fields of TDLib requests.
		{
			re:   regexp.MustCompile(`"(token|api_hash|encryption_key|phone_number|password|code)"\s*:\s*"(?:[^"\\]|\\.)*"`),
			repl: `"$1":"` + RedactPlaceholder + `"`,
		},
	}
}
