package cmd

import (
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCommand(t *testing.T) {
	names := make([]string, 0)
	for _, c := range rootCmd.Commands() {
		names = append(names, c.Name())
	}
	assert.Subset(t, names, []string{"run", "flashback", "holiday"})

	flag := rootCmd.PersistentFlags().Lookup("config")
	require.NotNil(t, flag)
	assert.Equal(t, defaultConfigFile, flag.DefValue)
}

func TestFlagString(t *testing.T) {
	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.String("source", "sina", "")
	flags.Int("count", 1, "")
	require.NoError(t, flags.Parse([]string{"--source", "binance"}))

	assert.Equal(t, "binance", flagString(flags, "source"))
	assert.Empty(t, flagString(flags, "count"))
	assert.Empty(t, flagString(flags, "missing"))
}

func TestParseOptionalDate(t *testing.T) {
	loc := time.FixedZone("CST", 8*3600)
	testCases := []struct {
		name    string
		input   string
		want    time.Time
		wantErr bool
	}{
		{name: "empty", input: ""},
		{name: "dashed", input: "2024-01-02", want: time.Date(2024, 1, 2, 0, 0, 0, 0, loc)},
		{name: "compact", input: "20240102", want: time.Date(2024, 1, 2, 0, 0, 0, 0, loc)},
		{name: "invalid", input: "next monday", wantErr: true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := parseOptionalDate(tc.input, loc)
			if tc.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.True(t, tc.want.Equal(got), "got %s", got)
		})
	}
}

func TestFlashbackRequiresCode(t *testing.T) {
	flag := flashbackCmd.Flags().Lookup("code")
	require.NotNil(t, flag)
	assert.Equal(t, []string{"true"}, flag.Annotations[cobra.BashCompOneRequiredFlag])
}
