package guildlog

import (
	"regexp"
	"regexp/syntax"
	"strings"

	"guild-guardian/model"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// maxPatternLength bounds regex triggers accepted from guild configuration.
const maxPatternLength = 200

type compiledPattern struct {
	re  *regexp.Regexp
	err error
}

// patternCache keeps compiled regex triggers, including the ones that failed
// to compile, so each pattern is compiled once per TTL.
type patternCache struct {
	lru *expirable.LRU[string, compiledPattern]
}

func newPatternCache(lru *expirable.LRU[string, compiledPattern]) *patternCache {
	return &patternCache{lru: lru}
}

func (c *patternCache) compile(pattern string) (*regexp.Regexp, error) {
	if cp, ok := c.lru.Get(pattern); ok {
		return cp.re, cp.err
	}
	re, err := CompileTrigger(pattern)
	c.lru.Add(pattern, compiledPattern{re: re, err: err})
	return re, err
}

// matches reports whether content triggers rule. Plain triggers are
// case-insensitive substrings.
func (c *patternCache) matches(rule model.AutoResponse, content string) (bool, error) {
	if !rule.IsRegex {
		return rule.Trigger != "" && strings.Contains(strings.ToLower(content), strings.ToLower(rule.Trigger)), nil
	}
	re, err := c.compile(rule.Trigger)
	if err != nil {
		return false, err
	}
	return re.MatchString(content), nil
}

// CompileTrigger compiles a regex trigger case-insensitively.
func CompileTrigger(pattern string) (*regexp.Regexp, error) {
	if len(pattern) > maxPatternLength {
		return nil, &syntax.Error{Code: syntax.ErrLarge, Expr: pattern[:maxPatternLength]}
	}
	return regexp.Compile("(?i)" + pattern)
}
