package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCommandsRegistered(t *testing.T) {
	names := map[string]bool{}
	for _, c := range rootCmd.Commands() {
		names[c.Name()] = true
	}

	for _, want := range []string{"run", "opportunities", "signals", "seed"} {
		assert.True(t, names[want], "command %s not registered", want)
	}
}

func TestSeedRequiresFileArg(t *testing.T) {
	err := seedCmd.Args(seedCmd, nil)
	require.Error(t, err)

	assert.NoError(t, seedCmd.Args(seedCmd, []string{"signals.json"}))
}

func TestRunFlags(t *testing.T) {
	assert.NotNil(t, runCmd.Flags().Lookup("no-polish"))
	assert.NotNil(t, opportunitiesCmd.Flags().Lookup("limit"))
}
