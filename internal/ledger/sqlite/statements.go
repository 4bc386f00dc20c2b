package sqlite

import (
	"strings"
	"unicode"
)

// statement holds the leading keywords of one SQL statement, upper-cased.
type statement struct {
	keywords []string
}

const leadingKeywords = 3

// splitStatements walks script and returns the leading keywords of each
// statement. Comments, quoted strings and identifiers are skipped, and
// semicolons inside a CREATE TRIGGER body do not end the statement.
func splitStatements(script string) []statement {
	var (
		stmts   []statement
		words   []string
		trigger bool // current statement is CREATE ... TRIGGER
		depth   int  // BEGIN/CASE nesting inside a trigger body
	)

	flush := func() {
		if len(words) > 0 {
			n := min(len(words), leadingKeywords)
			stmts = append(stmts, statement{keywords: words[:n:n]})
		}

		words, trigger, depth = nil, false, 0
	}

	word := func(w string) {
		w = strings.ToUpper(w)
		words = append(words, w)

		if len(words) > 1 && words[0] == "CREATE" && w == "TRIGGER" {
			trigger = true
		}

		if !trigger {
			return
		}

		switch w {
		case "BEGIN", "CASE":
			depth++
		case "END":
			if depth > 0 {
				depth--
			}
		}
	}

	runes := []rune(script)

	for i := 0; i < len(runes); i++ {
		switch c := runes[i]; {
		case c == '-' && i+1 < len(runes) && runes[i+1] == '-':
			for i < len(runes) && runes[i] != '\n' {
				i++
			}
		case c == '/' && i+1 < len(runes) && runes[i+1] == '*':
			i += 2
			for i+1 < len(runes) && (runes[i] != '*' || runes[i+1] != '/') {
				i++
			}
			i++
		case c == '\'' || c == '"' || c == '`':
			i = skipQuoted(runes, i, c)
		case c == '[':
			i = skipQuoted(runes, i, ']')
		case c == ';':
			if !trigger || depth == 0 {
				flush()
			}
		case isWordRune(c):
			start := i
			for i+1 < len(runes) && isWordRune(runes[i+1]) {
				i++
			}
			word(string(runes[start : i+1]))
		}
	}

	flush()

	return stmts
}

// skipQuoted returns the index of the closing quote for the literal opened
// at runes[open]. A doubled closing quote is an escape.
func skipQuoted(runes []rune, open int, closing rune) int {
	for i := open + 1; i < len(runes); i++ {
		if runes[i] != closing {
			continue
		}

		if closing != ']' && i+1 < len(runes) && runes[i+1] == closing {
			i++
			continue
		}

		return i
	}

	return len(runes)
}

func isWordRune(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r)
}

// controlsTransaction reports whether the statement opens or ends a
// transaction. Savepoints and ROLLBACK TO work inside an enclosing one.
func (s statement) controlsTransaction() bool {
	switch s.first() {
	case "BEGIN", "COMMIT", "END":
		return true
	case "ROLLBACK":
		for _, kw := range s.keywords[1:] {
			if kw == "TO" {
				return false
			}
		}

		return true
	default:
		return false
	}
}

// nonTransactional reports whether SQLite refuses the statement inside a
// transaction.
func (s statement) nonTransactional() bool {
	switch s.first() {
	case "VACUUM", "ATTACH", "DETACH":
		return true
	default:
		return false
	}
}

func (s statement) first() string {
	return s.keywords[0]
}

// requiresNoTransaction reports whether script must run outside a
// gateway-managed transaction.
func requiresNoTransaction(script string) bool {
	for _, s := range splitStatements(script) {
		if s.controlsTransaction() || s.nonTransactional() {
			return true
		}
	}

	return false
}
