package service

import (
	"regexp"
	"strings"

	"github.com/erdemdnmz2/WebQuery/internal/core"
)

// RiskClassifier scores query text against ordered pattern groups. Highest
// precedence first: injection > DDL > unscoped mutation > performance. The
// first matching group wins. This is a heuristic, not a SQL parser; false
// positives are routed to admin approval rather than blocked outright.
type RiskClassifier struct {
	injectionPatterns   []*regexp.Regexp
	ddlPatterns         []*regexp.Regexp
	riskyPatterns       []*regexp.Regexp
	performancePatterns []*regexp.Regexp
}

func NewRiskClassifier() *RiskClassifier {
	return &RiskClassifier{
		injectionPatterns: compileAll(
			`(?i)'.*\s+OR\s+.*='`,
			`(?i)'.*;\s*DROP\s+TABLE\s+`,
			`(?i)'.*UNION\s+SELECT\s+`,
			`--`,
			`(?is)/\*.*\*/`,
		),
		ddlPatterns: compileAll(
			`(?i)\bDROP\s+(?:TABLE|DATABASE|SCHEMA|INDEX)\s+\w+`,
			`(?i)\bCREATE\s+(?:TABLE|DATABASE|SCHEMA|INDEX)\s+\w+`,
			`(?i)\bALTER\s+TABLE\s+\w+\s+(?:ADD|DROP|MODIFY)`,
			`(?i)\bTRUNCATE\s+TABLE\s+\w+`,
		),
		riskyPatterns: compileAll(
			`(?i)\bDELETE\s+FROM\s+\w+\s*(?:;|$)`,
			`(?i)\bUPDATE\s+\w+\s+SET\s+.*(?:;|$)`,
			`(?i)\bSELECT\s+\*\s+FROM\s+\w+\s*(?:;|$)`,
		),
		performancePatterns: compileAll(
			`(?i)\bSELECT\s+.*\bFROM\s+\w+\s+(?:\w+\s+)?JOIN\s+.*JOIN\s+.*JOIN`,
			`(?i)\bORDER\s+BY\s+\w+\s+DESC\s+LIMIT\s+\d{4,}`,
			`(?i)\bLIKE\s+['"]%.*%['"]`,
			`(?i)\bCROSS\s+JOIN\b`,
		),
	}
}

// Classify returns the risk category of the query, or RiskNone when no
// pattern matches. Stateless and safe for concurrent use.
func (c *RiskClassifier) Classify(query string) core.RiskCategory {
	q := strings.TrimSpace(query)

	for _, p := range c.injectionPatterns {
		if p.MatchString(q) {
			return core.RiskSQLInjection
		}
	}
	for _, p := range c.ddlPatterns {
		if p.MatchString(q) {
			return core.RiskDDLPattern
		}
	}
	for _, p := range c.riskyPatterns {
		if p.MatchString(q) {
			return core.RiskyPattern
		}
	}
	for _, p := range c.performancePatterns {
		if p.MatchString(q) {
			return core.RiskPerformance
		}
	}
	return core.RiskNone
}

func compileAll(patterns ...string) []*regexp.Regexp {
	compiled := make([]*regexp.Regexp, 0, len(patterns))
	for _, p := range patterns {
		compiled = append(compiled, regexp.MustCompile(p))
	}
	return compiled
}
