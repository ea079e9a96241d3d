package batch

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	mdwerror "github.com/msto63/ecsq/foundation/core/error"
	"github.com/msto63/ecsq/foundation/query"
	"github.com/msto63/ecsq/internal/world"
	"github.com/msto63/ecsq/pkg/core/logging"
)

func testRunner(t *testing.T, workers int) *Runner {
	t.Helper()
	logger := logging.Wrap(nil, "batch-test")

	reg, err := world.Generate(30, world.GenerateOptions{Options: world.Options{Logger: logger}})
	require.NoError(t, err)
	engine, err := query.New(reg, query.Options{Logger: logger.Logger})
	require.NoError(t, err)

	runner, err := New(engine, Config{Workers: workers, Logger: logger})
	require.NoError(t, err)
	t.Cleanup(runner.Release)
	return runner
}

func TestParseScript(t *testing.T) {
	script := `# world checks
COUNT ENTITIES WHERE HAS(Position)

   # indented comment
  SELECT ENTITIES WHERE HAS(Health)
`
	queries, err := ParseScript(strings.NewReader(script))
	require.NoError(t, err)

	assert.Equal(t, []Query{
		{Line: 2, Text: "COUNT ENTITIES WHERE HAS(Position)"},
		{Line: 5, Text: "SELECT ENTITIES WHERE HAS(Health)"},
	}, queries)
}

func TestRunner_RunScript(t *testing.T) {
	runner := testRunner(t, 4)

	script := `COUNT ENTITIES WHERE HAS(Position)
COUNT ENTITIES WHERE HAS(Health)
COUNT ENTITIES WHERE HAS(Sprite)
SELECT ENTITIES WHERE
SHOW Health OF ENTITY 0:1
SHOW Health OF ENTITY 0:2
`
	outcomes, err := runner.RunScript(context.Background(), strings.NewReader(script))
	require.NoError(t, err)
	require.Len(t, outcomes, 6)

	assert.Equal(t, 30, outcomes[0].Result.Count)
	assert.Equal(t, 15, outcomes[1].Result.Count)
	assert.Equal(t, 10, outcomes[2].Result.Count)

	assert.Equal(t, query.StatusParseError, outcomes[3].Status)
	assert.Nil(t, outcomes[3].Result)
	assert.Equal(t, 4, outcomes[3].Query.Line)

	assert.Equal(t, query.StatusSuccess, outcomes[4].Status)
	assert.Equal(t, []byte{100, 0, 0, 0}, outcomes[4].Result.Payload)

	assert.Equal(t, query.StatusExecutionError, outcomes[5].Status)
	assert.True(t, mdwerror.HasCode(outcomes[5].Err, mdwerror.CodeNotFound))

	summary := Summarize(outcomes)
	assert.Equal(t, 6, summary.Total)
	assert.Equal(t, 4, summary.Succeeded())
	assert.Equal(t, 2, summary.Failed())
	assert.Equal(t, 1, summary.ByStatus[query.StatusParseError])
}

func TestRunner_PreservesOrder(t *testing.T) {
	runner := testRunner(t, 8)

	queries := make([]Query, 200)
	for i := range queries {
		queries[i] = Query{Line: i + 1, Text: fmt.Sprintf("SHOW ALL OF ENTITY 0:%d", i%30+1)}
	}

	outcomes, err := runner.Run(context.Background(), queries)
	require.NoError(t, err)
	for i, o := range outcomes {
		require.NoError(t, o.Err)
		assert.Equal(t, i+1, o.Query.Line)
	}
}

func TestRunner_CanceledContext(t *testing.T) {
	runner := testRunner(t, 2)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := runner.Run(ctx, []Query{{Line: 1, Text: "COUNT ENTITIES WHERE HAS(Position)"}})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestNew_NilEngine(t *testing.T) {
	_, err := New(nil, Config{})
	require.Error(t, err)
	assert.True(t, mdwerror.HasCode(err, mdwerror.CodeInvalidInput))
}
