package repository

import (
	"fmt"
	"strings"

	"github.com/spec-kit/averias/internal/access"
)

// whereFromPredicate renders p against the "t" alias, appending bind values to args.
// It mirrors access.Predicate.Matches clause for clause.
func whereFromPredicate(p access.Predicate, args []any) (string, []any) {
	if p.Deny {
		return "FALSE", args
	}
	clauses := []string{"TRUE"}

	if p.CreatedBy != "" {
		args = append(args, p.CreatedBy)
		clauses = append(clauses, fmt.Sprintf("t.created_by_id=$%d", len(args)))
	}
	if scope := p.Technician; scope != nil {
		args = append(args, scope.UserID)
		self := fmt.Sprintf("t.assigned_to_id=$%d", len(args))
		switch {
		case scope.HeldOnly:
			clauses = append(clauses, self)
		case len(scope.Categories) == 0:
			clauses = append(clauses, fmt.Sprintf("(%s OR t.assigned_to_id IS NULL)", self))
		default:
			args = append(args, scope.Categories)
			clauses = append(clauses, fmt.Sprintf("(%s OR (t.assigned_to_id IS NULL AND t.category_id = ANY($%d)))", self, len(args)))
		}
	}
	if len(p.Statuses) > 0 {
		placeholders := make([]string, len(p.Statuses))
		for i, status := range p.Statuses {
			args = append(args, string(status))
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		clauses = append(clauses, fmt.Sprintf("t.status IN (%s)", strings.Join(placeholders, ",")))
	}
	return strings.Join(clauses, " AND "), args
}
