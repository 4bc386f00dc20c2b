package parser //nolint:revive // intentional: does not conflict with go/parser in internal package

import (
	"fmt"
	"strings"

	pg_query "github.com/pganalyze/pg_query_go/v6"
)

// ParseResult holds the parsed AST and original SQL.
type ParseResult struct {
	Stmts []*pg_query.RawStmt
	SQL   string

	trimmed string
}

// Statement is one top-level statement of a script.
type Statement struct {
	SQL  string
	Node *pg_query.Node
}

// Parse parses a PostgreSQL SQL string and returns the AST.
// Returns an empty result (zero statements) for empty or whitespace-only input.
func Parse(sql string) (*ParseResult, error) {
	trimmed := strings.TrimSpace(sql)
	if trimmed == "" {
		return &ParseResult{SQL: sql}, nil
	}

	tree, err := pg_query.Parse(trimmed)
	if err != nil {
		return nil, fmt.Errorf("parsing SQL: %w", err)
	}

	return &ParseResult{
		Stmts:   tree.Stmts,
		SQL:     sql,
		trimmed: trimmed,
	}, nil
}

// Statements returns each top-level statement with its own source text,
// using the locations reported by the parser.
func (r *ParseResult) Statements() []Statement {
	stmts := make([]Statement, 0, len(r.Stmts))

	for _, raw := range r.Stmts {
		start := int(raw.GetStmtLocation())
		end := len(r.trimmed)

		// A zero length means the statement runs to the end of the input.
		if raw.GetStmtLen() > 0 {
			end = start + int(raw.GetStmtLen())
		}

		text := strings.TrimSuffix(strings.TrimSpace(r.trimmed[start:end]), ";")

		stmts = append(stmts, Statement{
			SQL:  strings.TrimSpace(text),
			Node: raw.GetStmt(),
		})
	}

	return stmts
}

// Split parses sql and returns its top-level statements.
func Split(sql string) ([]Statement, error) {
	result, err := Parse(sql)
	if err != nil {
		return nil, err
	}

	return result.Statements(), nil
}
