package redact

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"regexp"

	"github.com/serwidlick/backstage/logs"
)

var (
	// ErrInvalidPattern indicates a rule whose pattern does not compile
	ErrInvalidPattern = errors.New("invalid redaction pattern")

	// ErrMissingSalt indicates hash mode configured without a salt
	ErrMissingSalt = errors.New("hash redaction requires a salt")

	// ErrUnknownMode indicates an unrecognized redaction mode
	ErrUnknownMode = errors.New("unknown redaction mode")
)

// Mode selects how matched substrings are rewritten
type Mode string

const (
	// ModeMask replaces each match with [REDACTED:name]
	ModeMask Mode = "mask"

	// ModeHash replaces each match with a salted digest, keeping
	// distinct secrets distinguishable without exposing them
	ModeHash Mode = "hash"
)

// Rule pairs a label with a regular expression selecting sensitive text
type Rule struct {
	Name    string
	Pattern string
}

// DefaultRules covers the usual suspects: password assignments, bearer
// tokens, and API key fields
func DefaultRules() []Rule {
	return []Rule{
		{Name: "password", Pattern: `(?i)password['"]?\s*[:=]\s*\S+`},
		{Name: "bearer", Pattern: `(?i)bearer\s+[a-z0-9._~+/-]+=*`},
		{Name: "apikey", Pattern: `(?i)api[_-]?key['"]?\s*[:=]\s*\S+`},
	}
}

// Options configures an Engine
type Options struct {
	Mode  Mode   // defaults to ModeMask
	Salt  string // required for ModeHash
	Rules []Rule
}

type compiledRule struct {
	name string
	re   *regexp.Regexp
}

// Engine rewrites sensitive substrings in entries before they reach
// storage. Configuration problems are reported at construction, never
// during Apply.
type Engine struct {
	mode  Mode
	salt  string
	rules []compiledRule
}

// NewEngine compiles the rules. Any invalid pattern or a hash mode
// without a salt fails here so a misconfigured console is caught at
// init time rather than silently under-redacting later.
func NewEngine(opts Options) (*Engine, error) {
	mode := opts.Mode
	if mode == "" {
		mode = ModeMask
	}
	switch mode {
	case ModeMask, ModeHash:
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownMode, opts.Mode)
	}
	if mode == ModeHash && opts.Salt == "" {
		return nil, ErrMissingSalt
	}

	e := &Engine{mode: mode, salt: opts.Salt}
	for _, r := range opts.Rules {
		if r.Pattern == "" {
			return nil, fmt.Errorf("%w: rule %q has an empty pattern", ErrInvalidPattern, r.Name)
		}
		re, err := regexp.Compile(r.Pattern)
		if err != nil {
			return nil, fmt.Errorf("%w: rule %q: %v", ErrInvalidPattern, r.Name, err)
		}
		name := r.Name
		if name == "" {
			name = "match"
		}
		e.rules = append(e.rules, compiledRule{name: name, re: re})
	}
	return e, nil
}

// Apply returns a copy of the entry with sensitive substrings in the
// message and stack trace rewritten. The input entry is never changed.
func (e *Engine) Apply(entry logs.Entry) logs.Entry {
	if e == nil || len(e.rules) == 0 {
		return entry
	}
	entry.Message = e.redact(entry.Message)
	if entry.Stack != "" {
		entry.Stack = e.redact(entry.Stack)
	}
	return entry
}

func (e *Engine) redact(text string) string {
	for _, r := range e.rules {
		text = r.re.ReplaceAllStringFunc(text, func(match string) string {
			if e.mode == ModeHash {
				return "[SHA256:" + e.digest(match) + "]"
			}
			return "[REDACTED:" + r.name + "]"
		})
	}
	return text
}

func (e *Engine) digest(match string) string {
	sum := sha256.Sum256([]byte(e.salt + match))
	return hex.EncodeToString(sum[:])[:12]
}
