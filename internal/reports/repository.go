package reports

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
)

// ReadModel runs the aggregate queries feeding the weekly summaries. Reads go
// through sqlx directly; reporting never writes.
type ReadModel struct {
	db *sqlx.DB
}

func NewReadModel(db *sqlx.DB) *ReadModel {
	return &ReadModel{db: db}
}

// ActiveDepartments lists every department with at least one allocation
// request on record.
func (r *ReadModel) ActiveDepartments(ctx context.Context) ([]string, error) {
	var out []string
	err := r.db.SelectContext(ctx, &out, `
		SELECT DISTINCT department
		FROM resource_allocation_requests
		WHERE department <> ''
		ORDER BY department`)
	if err != nil {
		return nil, fmt.Errorf("failed to list report departments: %w", err)
	}
	return out, nil
}

// Summarize aggregates one department's request activity for the period
// [start, end).
func (r *ReadModel) Summarize(ctx context.Context, department string, start, end time.Time) (*DepartmentSummary, error) {
	const query = `
		SELECT
			COUNT(*) FILTER (WHERE created_at >= $2 AND created_at < $3)                    AS new_requests,
			COUNT(*) FILTER (WHERE state IN ('Created','Proposed','SubmittedToCompany'))    AS pending_requests,
			COUNT(*) FILTER (WHERE state IN ('Approved','Accepted','ApprovedByCompany'))    AS approved_requests,
			COUNT(*) FILTER (WHERE state IN ('Rejected','RejectedByCompany','RejectedByContractor')
				AND last_activity >= $2 AND last_activity < $3)                             AS rejected_requests,
			COUNT(*) FILTER (WHERE state = 'Completed'
				AND last_activity >= $2 AND last_activity < $3)                             AS completed_requests,
			COUNT(*) FILTER (WHERE provisioning_state = 'Error')                            AS provisioning_errors,
			COUNT(*) FILTER (WHERE instance_applies_to >= $3 AND instance_applies_to < $3 + interval '90 days'
				AND state NOT IN ('Completed','Rejected','RejectedByCompany','RejectedByContractor')) AS expiring_instances,
			COALESCE(SUM(instance_workload) FILTER (WHERE state NOT IN
				('Completed','Rejected','RejectedByCompany','RejectedByContractor')), 0)    AS total_workload
		FROM resource_allocation_requests
		WHERE department = $1`

	var s DepartmentSummary
	if err := r.db.GetContext(ctx, &s, query, department, start, end); err != nil {
		return nil, fmt.Errorf("failed to summarize department %s: %w", department, err)
	}
	s.Department = department
	s.PeriodStart = start
	s.PeriodEnd = end
	return &s, nil
}
