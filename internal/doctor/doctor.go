// Package doctor runs read-only health checks against a meshauth
// database over database/sql + lib/pq, deliberately independent of
// the pgx pool the rest of the application writes through: a doctor
// command that can't open its own connection is not a very useful
// doctor command.
package doctor

import (
	"context"
	"database/sql"
	"fmt"
	"io"
)

// Status is the outcome of a single check.
type Status int

const (
	StatusPass Status = iota
	StatusWarn
	StatusFail
)

func (s Status) Symbol() string {
	switch s {
	case StatusPass:
		return "pass"
	case StatusWarn:
		return "warn"
	case StatusFail:
		return "fail"
	default:
		return "unknown"
	}
}

// CheckResult is the outcome of a single health check.
type CheckResult struct {
	Category string
	Message  string
	Status   Status
	FixHint  string
}

// Report collects every CheckResult from a Run.
type Report struct {
	Checks []CheckResult
	Errors int
}

func (r *Report) add(c CheckResult) {
	r.Checks = append(r.Checks, c)
	if c.Status == StatusFail {
		r.Errors++
	}
}

// HasErrors reports whether any check failed.
func (r *Report) HasErrors() bool { return r.Errors > 0 }

// Print writes the report in a simple grouped format.
func (r *Report) Print(w io.Writer) {
	for _, c := range r.Checks {
		fmt.Fprintf(w, "[%s] %s: %s\n", c.Status.Symbol(), c.Category, c.Message)
		if c.Status != StatusPass && c.FixHint != "" {
			fmt.Fprintf(w, "      fix: %s\n", c.FixHint)
		}
	}
	fmt.Fprintf(w, "\n%d checks, %d errors\n", len(r.Checks), r.Errors)
}

// Doctor runs health checks over db.
type Doctor struct {
	db *sql.DB
}

// New constructs a Doctor over db.
func New(db *sql.DB) *Doctor {
	return &Doctor{db: db}
}

var requiredTables = []string{"accounts", "authenticators", "groups", "group_members", "rules"}

// Run executes every check and returns the resulting Report.
func (d *Doctor) Run(ctx context.Context) (*Report, error) {
	report := &Report{}

	if err := d.checkTables(ctx, report); err != nil {
		return nil, fmt.Errorf("checking tables: %w", err)
	}
	if err := d.checkOrphanedEdges(ctx, report); err != nil {
		return nil, fmt.Errorf("checking orphaned edges: %w", err)
	}
	if err := d.checkDuplicateRuleOrders(ctx, report); err != nil {
		return nil, fmt.Errorf("checking rule ordering: %w", err)
	}

	return report, nil
}

func (d *Doctor) checkTables(ctx context.Context, report *Report) error {
	for _, table := range requiredTables {
		var exists bool
		err := d.db.QueryRowContext(ctx,
			`SELECT EXISTS (SELECT 1 FROM information_schema.tables WHERE table_name = $1)`, table,
		).Scan(&exists)
		if err != nil {
			return err
		}
		if exists {
			report.add(CheckResult{Category: "schema", Status: StatusPass, Message: table + " table present"})
		} else {
			report.add(CheckResult{
				Category: "schema",
				Status:   StatusFail,
				Message:  table + " table missing",
				FixHint:  "run meshauthctl migrate",
			})
		}
	}
	return nil
}

// checkOrphanedEdges flags group_members rows whose parent references
// a name absent from groups. Children are not checked. These cannot
// arise through Engine's own API - AddSubgroup requires the parent to
// exist - but a direct SQL import or a manually edited manifest could
// introduce one.
func (d *Doctor) checkOrphanedEdges(ctx context.Context, report *Report) error {
	var count int
	err := d.db.QueryRowContext(ctx, `
		SELECT count(*) FROM group_members gm
		WHERE NOT EXISTS (SELECT 1 FROM groups g WHERE g.name = gm.parent)
	`).Scan(&count)
	if err != nil {
		return err
	}
	if count == 0 {
		report.add(CheckResult{Category: "data", Status: StatusPass, Message: "no edges with a missing parent group"})
		return nil
	}
	report.add(CheckResult{
		Category: "data",
		Status:   StatusWarn,
		Message:  fmt.Sprintf("%d edges reference a parent group that no longer exists", count),
		FixHint:  "drop_group should have cascaded; investigate how these rows were inserted",
	})
	return nil
}

// checkDuplicateRuleOrders flags groups with two rules sharing the
// same order value, a schema invariant the rules table's UNIQUE(group,
// order) constraint should already prevent - this check exists to
// catch violations introduced by a path that bypasses that constraint.
func (d *Doctor) checkDuplicateRuleOrders(ctx context.Context, report *Report) error {
	rows, err := d.db.QueryContext(ctx, `
		SELECT "group", "order", count(*) FROM rules
		GROUP BY "group", "order" HAVING count(*) > 1
	`)
	if err != nil {
		return err
	}
	defer rows.Close()

	var dup int
	for rows.Next() {
		var group string
		var order, n int
		if err := rows.Scan(&group, &order, &n); err != nil {
			return err
		}
		dup++
		report.add(CheckResult{
			Category: "data",
			Status:   StatusFail,
			Message:  fmt.Sprintf("group %q has %d rules at order %d", group, n, order),
		})
	}
	if err := rows.Err(); err != nil {
		return err
	}
	if dup == 0 {
		report.add(CheckResult{Category: "data", Status: StatusPass, Message: "no duplicate rule orders"})
	}
	return nil
}
