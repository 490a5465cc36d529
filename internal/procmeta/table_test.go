package procmeta

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/mrzor/claude-diagnose/internal/config"
	"github.com/mrzor/claude-diagnose/internal/model"
	"github.com/mrzor/claude-diagnose/internal/toolrun"
)

const psOutput = `  PID  PPID  %CPU %MEM    RSS    VSZ STAT  ELAPSED COMMAND
 4242     1  12.5  3.2 204800 512000 S+   01:23:45 /usr/bin/claude-cli run
 4300  4242   0.0  0.1   1024   4096 S       00:05 grep claude
 4400     1  60.0  1.0  10240  20480 R    2-00:00:01 node /opt/anthropic/claude/cli.js --resume
 4500     1   1.0  0.5   2048   8192 S       10:00 /usr/bin/vim notes.txt
 4600     1   5.0  0.5   2048   8192 S       10:00 /usr/local/bin/claude-diagnose -deep
`

func defaultMatcher(t *testing.T) Matcher {
	t.Helper()
	inc, exc, err := config.DefaultPatterns().Compile()
	require.NoError(t, err)
	return Matcher{Include: inc, Exclude: exc}
}

func TestParseTable_Row(t *testing.T) {
	recs := ParseTable("4242 1 12.5 3.2 204800 512000 S+ 01:23:45 /usr/bin/claude-cli run")
	require.Len(t, recs, 1)

	assert.Equal(t, model.ProcessRecord{
		PID:     4242,
		PPID:    1,
		CPU:     12.5,
		Mem:     3.2,
		RSSKB:   204800,
		VSZKB:   512000,
		State:   "S+",
		Elapsed: "01:23:45",
		Command: "/usr/bin/claude-cli run",
	}, recs[0])
}

func TestParseTable_CommandKeepsWhitespace(t *testing.T) {
	recs := ParseTable("1 0 0.0 0.0 1 1 S 00:01 node  --flag   'a b'")
	require.Len(t, recs, 1)
	assert.Equal(t, "node  --flag   'a b'", recs[0].Command)
}

func TestParseTable_SkipsMalformedRows(t *testing.T) {
	text := `PID PPID %CPU %MEM RSS VSZ STAT ELAPSED COMMAND
1 0 0.0 0.0 1 1 S 00:01
x 0 0.0 0.0 1 1 S 00:01 cmd
1 0 abc 0.0 1 1 S 00:01 cmd
1 0 0.0 0.0 -5 1 S 00:01 cmd

7 1 0.5 0.1 10 20 S 00:02 ok`
	recs := ParseTable(text)
	require.Len(t, recs, 1)
	assert.Equal(t, 7, recs[0].PID)
}

func TestParseTable_Empty(t *testing.T) {
	assert.Empty(t, ParseTable(""))
}

func TestLocate_AppliesPatternsInOrder(t *testing.T) {
	recs := Locate(psOutput, defaultMatcher(t))

	pids := make([]int, 0, len(recs))
	for _, r := range recs {
		pids = append(pids, r.PID)
	}
	// grep, vim, and the diagnostic tool itself are dropped; order preserved
	assert.Equal(t, []int{4242, 4400}, pids)
}

func TestLocate_ExclusionBeatsInclusion(t *testing.T) {
	recs := Locate("9 1 1.0 1.0 1 1 S 00:01 /usr/local/bin/claude-diagnose --json", defaultMatcher(t))
	assert.Empty(t, recs)
}

func TestMatcher_NilPatterns(t *testing.T) {
	assert.True(t, Matcher{}.Matches("anything"))
	assert.False(t, Matcher{Exclude: regexp.MustCompile("x")}.Matches("xyz"))
}

func TestRestrictPID(t *testing.T) {
	recs := Locate(psOutput, defaultMatcher(t))

	all, err := RestrictPID(recs, 0)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	one, err := RestrictPID(recs, 4400)
	require.NoError(t, err)
	require.Len(t, one, 1)
	assert.Equal(t, 4400, one[0].PID)

	_, err = RestrictPID(recs, 4300)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrPIDNotFound))

	none, err := RestrictPID(nil, 0)
	require.NoError(t, err)
	assert.Empty(t, none)
}

type fakeRunner struct {
	res  toolrun.Result
	argv []string
}

func (f *fakeRunner) Run(_ context.Context, _ time.Duration, argv ...string) toolrun.Result {
	f.argv = argv
	return f.res
}

func TestSnapshot_UsesPS(t *testing.T) {
	r := &fakeRunner{res: toolrun.Result{Stdout: psOutput, Success: true}}

	text, err := Snapshot(context.Background(), r, zap.NewNop())
	require.NoError(t, err)
	assert.Equal(t, psOutput, text)
	assert.Equal(t, PSCommand, r.argv)
}

func TestSnapshot_FallsBackToHostList(t *testing.T) {
	r := &fakeRunner{res: toolrun.Result{Err: errors.New("exec: ps not found")}}

	text, err := Snapshot(context.Background(), r, zap.NewNop())
	if err != nil {
		t.Skipf("host process list unavailable: %v", err)
	}
	// the fallback text must be consumable by the same parser
	assert.NotEmpty(t, ParseTable(text))
}
