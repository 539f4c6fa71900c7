package main

import (
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func subcommandNames(cmds []*cobra.Command) map[string]bool {
	names := make(map[string]bool)
	for _, c := range cmds {
		names[c.Name()] = true
	}
	return names
}

func TestRootCommand_HasSubcommands(t *testing.T) {
	names := subcommandNames(rootCmd.Commands())
	for _, name := range []string{"run", "batch", "serve", "runs", "people"} {
		assert.True(t, names[name], "expected subcommand %q not found", name)
	}
}

func TestRootCommand_Metadata(t *testing.T) {
	assert.Equal(t, "enrich-cli", rootCmd.Use)
	assert.NotEmpty(t, rootCmd.Short)
	assert.NotEmpty(t, rootCmd.Long)
}

func TestRunCommand_Flags(t *testing.T) {
	flag := runCmd.Flags().Lookup("person")
	require.NotNil(t, flag, "run command should have --person flag")
	assert.Equal(t, []string{"true"}, flag.Annotations[cobra.BashCompOneRequiredFlag])

	out := runCmd.Flags().Lookup("output")
	require.NotNil(t, out)
	assert.Equal(t, "json", out.DefValue)
	assert.Equal(t, "o", out.Shorthand)
}

func TestBatchCommand_Flags(t *testing.T) {
	flag := batchCmd.Flags().Lookup("limit")
	require.NotNil(t, flag, "batch command should have --limit flag")
	assert.Equal(t, "100", flag.DefValue)

	status := batchCmd.Flags().Lookup("status")
	require.NotNil(t, status)
	assert.Empty(t, status.DefValue)
}

func TestServeCommand_Flags(t *testing.T) {
	flag := serveCmd.Flags().Lookup("port")
	require.NotNil(t, flag, "serve command should have --port flag")
	assert.Equal(t, "0", flag.DefValue)
}

func TestRunsCommand_HasSubcommands(t *testing.T) {
	names := subcommandNames(runsCmd.Commands())
	for _, name := range []string{"list", "show", "stats"} {
		assert.True(t, names[name], "runs should have subcommand %q", name)
	}

	assert.Equal(t, "50", runsListCmd.Flags().Lookup("limit").DefValue)
	assert.Equal(t, "24h0m0s", runsStatsCmd.Flags().Lookup("since").DefValue)
}

func TestPeopleCommand_HasSubcommands(t *testing.T) {
	names := subcommandNames(peopleCmd.Commands())
	assert.True(t, names["list"])
	assert.True(t, names["import"])

	csv := peopleImportCmd.Flags().Lookup("csv")
	require.NotNil(t, csv)
	status := peopleImportCmd.Flags().Lookup("status")
	require.NotNil(t, status)
	assert.Equal(t, "Not Started", status.DefValue)
}
