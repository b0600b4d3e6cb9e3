package session

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"coact/pkg/statemonitor"
	"coact/pkg/types"
)

func openTestAudit(t *testing.T) *Audit {
	t.Helper()
	a, err := OpenAudit(filepath.Join(t.TempDir(), "audit.db"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { a.Close() })
	return a
}

func TestAuditSessionLifecycle(t *testing.T) {
	a := openTestAudit(t)

	id := a.BeginSession("install updates", &statemonitor.HostSnapshot{
		ProcessCount: 120,
		CPUUsage:     12.5,
		MemoryUsage:  40.0,
	})
	require.NotZero(t, id)
	a.EndSession(id, types.StatusCompleted, "All updates installed.")

	var status, summary string
	err := a.db.QueryRow(`SELECT status, summary FROM sessions WHERE id = ?`, id).
		Scan(&status, &summary)
	require.NoError(t, err)
	assert.Equal(t, string(types.StatusCompleted), status)
	assert.Equal(t, "All updates installed.", summary)
}

func TestAuditRecordTaskUpserts(t *testing.T) {
	a := openTestAudit(t)

	task := &types.Task{
		ID:           "task-1",
		Description:  "download the package",
		AssignedRole: types.RoleProgrammer,
		Status:       types.StatusDelegated,
	}
	a.RecordTask(task)

	task.Status = types.StatusCompleted
	a.RecordTask(task)

	var count int
	require.NoError(t, a.db.QueryRow(`SELECT COUNT(*) FROM tasks`).Scan(&count))
	assert.Equal(t, 1, count)

	var status string
	require.NoError(t, a.db.QueryRow(`SELECT status FROM tasks WHERE id = ?`, task.ID).Scan(&status))
	assert.Equal(t, string(types.StatusCompleted), status)
}

func TestAuditNilIsSafe(t *testing.T) {
	var a *Audit
	assert.NotPanics(t, func() {
		id := a.BeginSession("task", nil)
		a.EndSession(id, types.StatusFailed, "")
		a.RecordTask(&types.Task{ID: "x"})
		a.Close()
	})
}
