package service

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/erdemdnmz2/WebQuery/internal/core"
)

func TestClassify(t *testing.T) {
	c := NewRiskClassifier()

	cases := []struct {
		name  string
		query string
		want  core.RiskCategory
	}{
		{
			name:  "scoped select is safe",
			query: "SELECT id, name FROM users WHERE id = 1",
			want:  core.RiskNone,
		},
		{
			name:  "insert is safe",
			query: "INSERT INTO audit (msg) VALUES ('hello')",
			want:  core.RiskNone,
		},
		{
			name:  "unscoped select star",
			query: "SELECT * FROM Users",
			want:  core.RiskyPattern,
		},
		{
			name:  "select star with where clause is not unscoped",
			query: "SELECT * FROM users WHERE id = 5",
			want:  core.RiskNone,
		},
		{
			name:  "unscoped delete",
			query: "DELETE FROM orders",
			want:  core.RiskyPattern,
		},
		{
			name:  "unscoped update",
			query: "UPDATE users SET active = 0",
			want:  core.RiskyPattern,
		},
		{
			name:  "drop table",
			query: "DROP TABLE customers",
			want:  core.RiskDDLPattern,
		},
		{
			name:  "create table",
			query: "CREATE TABLE scratch (id INT)",
			want:  core.RiskDDLPattern,
		},
		{
			name:  "truncate",
			query: "TRUNCATE TABLE session_log",
			want:  core.RiskDDLPattern,
		},
		{
			name:  "alter table",
			query: "ALTER TABLE users ADD COLUMN nickname TEXT",
			want:  core.RiskDDLPattern,
		},
		{
			name:  "classic or injection",
			query: "SELECT name FROM users WHERE name = 'x' OR '1'='1'",
			want:  core.RiskSQLInjection,
		},
		{
			name:  "inline comment",
			query: "SELECT id FROM users -- WHERE active = 1",
			want:  core.RiskSQLInjection,
		},
		{
			name:  "block comment",
			query: "SELECT /* hidden */ password FROM users WHERE id = 1",
			want:  core.RiskSQLInjection,
		},
		{
			name:  "injection wins over ddl",
			query: "DROP TABLE users -- cleanup",
			want:  core.RiskSQLInjection,
		},
		{
			name:  "injection wins over performance",
			query: "SELECT name FROM users WHERE name LIKE '%a%' -- slow",
			want:  core.RiskSQLInjection,
		},
		{
			name:  "leading wildcard like",
			query: "SELECT name FROM users WHERE name LIKE '%smith%'",
			want:  core.RiskPerformance,
		},
		{
			name:  "cross join",
			query: "SELECT a.id FROM a CROSS JOIN b",
			want:  core.RiskPerformance,
		},
		{
			name:  "triple join",
			query: "SELECT x FROM a JOIN b ON a.id = b.a JOIN c ON b.id = c.b JOIN d ON c.id = d.c",
			want:  core.RiskPerformance,
		},
		{
			name:  "whitespace is trimmed",
			query: "   DELETE FROM orders   ",
			want:  core.RiskyPattern,
		},
		{
			name:  "empty query",
			query: "",
			want:  core.RiskNone,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, c.Classify(tc.query))
		})
	}
}
