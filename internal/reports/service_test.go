package reports

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWorkbookOneRowPerDepartment(t *testing.T) {
	summaries := []*DepartmentSummary{
		{
			Department:         "TDI EDT DEV",
			NewRequests:        4,
			PendingRequests:    2,
			ApprovedRequests:   3,
			RejectedRequests:   1,
			CompletedRequests:  5,
			ProvisioningErrors: 1,
			ExpiringInstances:  2,
			TotalWorkload:      640,
		},
		{
			Department:      "TDI EDT OPS",
			NewRequests:     1,
			PendingRequests: 1,
			TotalWorkload:   120,
		},
	}

	f, err := Workbook(summaries)
	require.NoError(t, err)

	rows, err := f.GetRows("Summary")
	require.NoError(t, err)
	require.Len(t, rows, 3)

	assert.Equal(t, "Department", rows[0][0])
	assert.Equal(t, "Active workload", rows[0][8])

	assert.Equal(t, "TDI EDT DEV", rows[1][0])
	assert.Equal(t, "4", rows[1][1])
	assert.Equal(t, "1", rows[1][6])
	assert.Equal(t, "640", rows[1][8])

	assert.Equal(t, "TDI EDT OPS", rows[2][0])
	assert.Equal(t, "1", rows[2][1])
	assert.Equal(t, "120", rows[2][8])
}

func TestWorkbookWithNoSummariesStillHasHeader(t *testing.T) {
	f, err := Workbook(nil)
	require.NoError(t, err)

	rows, err := f.GetRows("Summary")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "Department", rows[0][0])
}
