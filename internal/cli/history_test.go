package cli

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/stepwise/internal/store"
)

// recordedRun runs dir into db and returns the new run ID.
func recordedRun(t *testing.T, db, dir string) string {
	t.Helper()
	out, _, err := execute(t, demoSuite(t), "run", dir, "--db", db, "--format", "json")
	if dir == "testdata/failing" {
		require.Error(t, err)
	} else {
		require.NoError(t, err)
	}
	resp := decodeRun(t, out)
	require.NotEmpty(t, resp.RunID)
	return resp.RunID
}

func TestWithStore_NoDatabase(t *testing.T) {
	called := false
	err := withStore(&cobra.Command{}, &RootOptions{}, func(context.Context, *store.Store) error {
		called = true
		return nil
	})
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.False(t, called)
}

func TestHistory_Empty(t *testing.T) {
	out, _, err := execute(t, demoSuite(t), "history", "--db", tempDB(t))
	require.NoError(t, err)
	assert.Equal(t, "No recorded runs.\n", out)
}

func TestHistory_List(t *testing.T) {
	db := tempDB(t)
	first := recordedRun(t, db, "testdata/scenarios")
	second := recordedRun(t, db, "testdata/failing")

	out, _, err := execute(t, demoSuite(t), "history", "--db", db)
	require.NoError(t, err)
	assert.Contains(t, out, first)
	assert.Contains(t, out, second)
	assert.Contains(t, out, "1 passed, 1 skipped, 0 failed")
	assert.Contains(t, out, "0 passed, 0 skipped, 1 failed")

	out, _, err = execute(t, demoSuite(t), "history", "--db", db, "--limit", "1", "--format", "json")
	require.NoError(t, err)
	var resp struct {
		Data []store.Run `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	require.Len(t, resp.Data, 1)
	assert.Equal(t, second, resp.Data[0].ID, "newest run first")
	assert.Equal(t, "failed", resp.Data[0].Status)
}

func TestHistory_Prune(t *testing.T) {
	db := tempDB(t)
	recordedRun(t, db, "testdata/scenarios")
	recordedRun(t, db, "testdata/scenarios")
	latest := recordedRun(t, db, "testdata/failing")

	out, stderr, err := execute(t, demoSuite(t), "history", "--db", db, "--prune", "1", "-v")
	require.NoError(t, err)
	assert.Contains(t, stderr, "pruned 2 run(s)")
	assert.Contains(t, out, latest)
	assert.Equal(t, 1, strings.Count(out, "\n"))

	_, _, err = execute(t, demoSuite(t), "skipped", "--all", "--db", db)
	require.NoError(t, err)
}

func TestHistory_ShowRun(t *testing.T) {
	db := tempDB(t)
	id := recordedRun(t, db, "testdata/failing")

	out, _, err := execute(t, demoSuite(t), "history", id, "--db", db)
	require.NoError(t, err)
	assert.Contains(t, out, "Run "+id+" (failed)")
	assert.Contains(t, out, "wrong-count failed")
	assert.Contains(t, out, "[2] Then the basket holds 3 items: failed")
	assert.Contains(t, out, "basket holds 2 items, want 3")
	assert.Contains(t, out, "1 step(s) not executed")

	out, _, err = execute(t, demoSuite(t), "history", id, "--db", db, "--format", "json")
	require.NoError(t, err)
	var resp struct {
		Data  store.Run `json:"data"`
		RunID string    `json:"run_id"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, id, resp.RunID)
	require.Len(t, resp.Data.Scenarios, 1)
	assert.Len(t, resp.Data.Scenarios[0].Steps, 3)
}

func TestHistory_UnknownRun(t *testing.T) {
	db := tempDB(t)
	recordedRun(t, db, "testdata/scenarios")

	out, _, err := execute(t, demoSuite(t), "history", "no-such-run", "--db", db)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.ErrorIs(t, err, store.ErrRunNotFound)
	assert.Empty(t, out)

	out, _, err = execute(t, demoSuite(t), "history", "no-such-run", "--db", db, "--format", "json")
	require.Error(t, err)
	var resp CLIResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "error", resp.Status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "E_NO_RUN", resp.Error.Code)
	assert.Contains(t, resp.Error.Message, "no-such-run")
}

func TestSkipped(t *testing.T) {
	db := tempDB(t)
	first := recordedRun(t, db, "testdata/scenarios")

	out, _, err := execute(t, demoSuite(t), "skipped", "--db", db)
	require.NoError(t, err)
	assert.Equal(t, "till-offline [0] Given the till is offline: till is offline\n", out)

	recordedRun(t, db, "testdata/failing")

	out, _, err = execute(t, demoSuite(t), "skipped", "--db", db)
	require.NoError(t, err)
	assert.Equal(t, "No skipped steps.\n", out, "defaults to the latest run")

	out, _, err = execute(t, demoSuite(t), "skipped", first, "--db", db, "--format", "json")
	require.NoError(t, err)
	var resp struct {
		Data  []store.SkippedStep `json:"data"`
		RunID string              `json:"run_id"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, first, resp.RunID)
	require.Len(t, resp.Data, 1)
	assert.Equal(t, "till is offline", resp.Data[0].Reason)

	recordedRun(t, db, "testdata/scenarios")
	out, _, err = execute(t, demoSuite(t), "skipped", "--all", "--db", db, "--format", "json")
	require.NoError(t, err)
	var all struct {
		Data  []store.SkippedStep `json:"data"`
		RunID string              `json:"run_id"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &all))
	assert.Len(t, all.Data, 2)
	assert.Empty(t, all.RunID)
}

func TestSkipped_Errors(t *testing.T) {
	db := tempDB(t)

	_, _, err := execute(t, demoSuite(t), "skipped", "--db", db)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err), "no runs recorded yet")

	_, _, err = execute(t, demoSuite(t), "skipped", "some-run", "--all", "--db", db)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}
