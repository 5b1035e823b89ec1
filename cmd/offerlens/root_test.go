package main

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"offerlens/internal/config"
	"offerlens/internal/issues"
	"offerlens/internal/logging"
	"offerlens/internal/model"
	"offerlens/internal/summary"
)

func TestRootCommand_HasSubcommands(t *testing.T) {
	names := make(map[string]bool)
	for _, c := range rootCmd.Commands() {
		names[c.Name()] = true
	}
	for _, name := range []string{"attribute", "recommend", "serve"} {
		assert.True(t, names[name], "expected subcommand %q not found", name)
	}
}

func TestRecommendCommand_Flags(t *testing.T) {
	flag := recommendCmd.Flags().Lookup("n")
	require.NotNil(t, flag)
	assert.Equal(t, "3", flag.DefValue)
	for _, name := range []string{"gender", "age", "income"} {
		assert.NotNil(t, recommendCmd.Flags().Lookup(name), "missing --%s", name)
	}
}

func writeInputs(t *testing.T, dir string) config.InputConfig {
	t.Helper()
	files := map[string][]string{
		"profile.json": {
			`{"gender": "F", "age": 55, "id": "x", "became_member_on": 20170715, "income": 72000.0}`,
			`{"gender": "M", "age": 33, "id": "y", "became_member_on": 20180101, "income": 45000.0}`,
		},
		"portfolio.json": {
			`{"reward": 2, "channels": ["email", "web"], "difficulty": 10, "duration": 7, "offer_type": "bogo", "id": "O1"}`,
		},
		"transcript.json": {
			`{"person": "x", "event": "offer received", "value": {"offer id": "O1"}, "time": 0}`,
			`{"person": "x", "event": "offer viewed", "value": {"offer id": "O1"}, "time": 6}`,
			`{"person": "x", "event": "transaction", "value": {"amount": 10}, "time": 12}`,
			`{"person": "x", "event": "offer completed", "value": {"offer_id": "O1", "reward": 2}, "time": 12}`,
			`{"person": "x", "event": "offer completed", "value": {"offer_id": "O1", "reward": 2}, "time": 12}`,
			`{"person": "y", "event": "offer completed", "value": {"offer_id": "O1", "reward": 2}, "time": 18}`,
			`{"person": "y", "event": "bogus", "time": 20}`,
		},
	}
	for name, lines := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(strings.Join(lines, "\n")), 0o644))
	}
	return config.InputConfig{
		TranscriptPath: filepath.Join(dir, "transcript.json"),
		PortfolioPath:  filepath.Join(dir, "portfolio.json"),
		ProfilePath:    filepath.Join(dir, "profile.json"),
		Dedupe:         true,
	}
}

func TestPipelineRun(t *testing.T) {
	dir := t.TempDir()
	cfg := config.DefaultConfig()
	cfg.Input = writeInputs(t, dir)
	cfg.Storage.DSN = "file:" + filepath.Join(dir, "offerlens.db")
	cfg.Attribution.Workers = 2

	ctx := context.Background()
	st, err := openStore(ctx, cfg)
	require.NoError(t, err)
	require.NotNil(t, st)
	defer st.Close() //nolint:errcheck

	sums := summary.NewStore(10)
	iss := issues.NewStore(10)
	p := &pipeline{cfg: cfg, logger: logging.Discard(), store: st, summaries: sums, issues: iss}
	report, err := p.run(ctx)
	require.NoError(t, err)

	assert.Equal(t, 1, report.Dropped)
	assert.Equal(t, 6, report.Run.Events)
	assert.Equal(t, 2, report.Run.Customers)
	assert.Equal(t, 1, report.Run.Failed)
	assert.Equal(t, []string{"y"}, report.FailedCustomers)
	assert.NotEmpty(t, report.Run.ID)

	matched, err := st.LoadRows(ctx, true)
	require.NoError(t, err)
	require.Len(t, matched, 1)
	assert.Equal(t, 3, matched[0].GlobalIndex)
	assert.Equal(t, 10.0, matched[0].CompletedTransactionReturn)
	assert.Equal(t, 8.0, matched[0].NetReturn)
	assert.Equal(t, "bogo", matched[0].OfferType)
	assert.Equal(t, "50-60", matched[0].AgeRange)

	all, err := st.LoadRows(ctx, false)
	require.NoError(t, err)
	assert.Len(t, all, 6)
	for _, r := range all {
		if r.GlobalIndex == 0 {
			assert.True(t, r.ReceivedAndCompleted)
		}
		if r.Kind == model.KindTransaction {
			assert.True(t, r.InfluencedTransaction)
		}
	}

	s, _, ok := sums.Get("x")
	require.True(t, ok)
	assert.Equal(t, 8.0, s.NetReturn)
	require.Len(t, iss.ForCustomer("y"), 1)
	assert.Equal(t, "malformed_event", iss.ForCustomer("y")[0].Kind)

	latest, ok, err := st.LatestRun(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, report.Run.ID, latest.ID)
}
