package reports

import "time"

// DepartmentSummary aggregates a department's request activity for one
// reporting week.
type DepartmentSummary struct {
	Department         string    `db:"department" json:"department"`
	PeriodStart        time.Time `json:"periodStart"`
	PeriodEnd          time.Time `json:"periodEnd"`
	NewRequests        int       `db:"new_requests" json:"newRequests"`
	PendingRequests    int       `db:"pending_requests" json:"pendingRequests"`
	ApprovedRequests   int       `db:"approved_requests" json:"approvedRequests"`
	RejectedRequests   int       `db:"rejected_requests" json:"rejectedRequests"`
	CompletedRequests  int       `db:"completed_requests" json:"completedRequests"`
	ProvisioningErrors int       `db:"provisioning_errors" json:"provisioningErrors"`
	ExpiringInstances  int       `db:"expiring_instances" json:"expiringInstances"`
	TotalWorkload      float64   `db:"total_workload" json:"totalWorkload"`
}
