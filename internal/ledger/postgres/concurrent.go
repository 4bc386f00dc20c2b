package postgres

import (
	pg_query "github.com/pganalyze/pg_query_go/v6"

	"github.com/aqasim81/ledger-migrate/internal/parser"
)

// requiresNoTransaction reports whether any statement is one PostgreSQL
// refuses to run inside a transaction block, or one that opens or ends a
// transaction itself.
func requiresNoTransaction(stmts []parser.Statement) bool {
	for _, stmt := range stmts {
		if nonTransactional(stmt.Node) {
			return true
		}
	}

	return false
}

func nonTransactional(node *pg_query.Node) bool {
	if node == nil {
		return false
	}

	switch n := node.GetNode().(type) {
	case *pg_query.Node_IndexStmt:
		return n.IndexStmt.GetConcurrent()
	case *pg_query.Node_DropStmt:
		return n.DropStmt.GetConcurrent()
	case *pg_query.Node_TransactionStmt:
		return controlsTransaction(n.TransactionStmt.GetKind())
	case *pg_query.Node_VacuumStmt,
		*pg_query.Node_CreatedbStmt,
		*pg_query.Node_DropdbStmt,
		*pg_query.Node_CreateTableSpaceStmt,
		*pg_query.Node_DropTableSpaceStmt,
		*pg_query.Node_AlterSystemStmt:
		return true
	default:
		return false
	}
}

// controlsTransaction excludes savepoints, which only make sense inside an
// enclosing block.
func controlsTransaction(kind pg_query.TransactionStmtKind) bool {
	switch kind {
	case pg_query.TransactionStmtKind_TRANS_STMT_SAVEPOINT,
		pg_query.TransactionStmtKind_TRANS_STMT_RELEASE,
		pg_query.TransactionStmtKind_TRANS_STMT_ROLLBACK_TO:
		return false
	default:
		return true
	}
}
