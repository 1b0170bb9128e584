package main

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/fatih/color"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/srg/blehub/internal/executor"
	"github.com/srg/blehub/internal/host/goble"
	"github.com/srg/blehub/pkg/config"
)

func TestFormatVersion(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{in: "1.2.0", want: "v1.2.0"},
		{in: "dev", want: "dev"},
		{in: "", want: ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, formatVersion(tt.in))
	}
}

func newFlagCmd(t *testing.T, args ...string) *cobra.Command {
	t.Helper()
	cmd := &cobra.Command{Use: "test"}
	cmd.Flags().String("log-level", "", "")
	cmd.Flags().String("config", "", "")
	require.NoError(t, cmd.Flags().Parse(args))
	return cmd
}

func TestConfigureLogger(t *testing.T) {
	tests := []struct {
		name     string
		args     []string
		cfgLevel string
		want     logrus.Level
		wantErr  bool
	}{
		{name: "flag wins", args: []string{"--log-level", "debug"}, cfgLevel: "error", want: logrus.DebugLevel},
		{name: "config level without flag", cfgLevel: "warn", want: logrus.WarnLevel},
		{name: "invalid flag", args: []string{"--log-level", "loud"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.DefaultConfig()
			if tt.cfgLevel != "" {
				cfg.LogLevel = tt.cfgLevel
			}

			logger, err := configureLogger(newFlagCmd(t, tt.args...), cfg)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, logger.GetLevel())
		})
	}
}

func TestConfigCommand(t *testing.T) {
	path := filepath.Join(t.TempDir(), "hub.yaml")
	require.NoError(t, os.WriteFile(path, []byte("hub:\n  relay_dwell: 45s\n"), 0o600))

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs([]string{"config", "--config", path})
	defer rootCmd.SetArgs(nil)

	require.NoError(t, rootCmd.Execute())

	var printed struct {
		Hub struct {
			RelayDwell string `yaml:"relay_dwell"`
			MaxDevices int    `yaml:"max_devices"`
		} `yaml:"hub"`
	}
	require.NoError(t, yaml.Unmarshal(out.Bytes(), &printed))
	assert.Equal(t, "45s", printed.Hub.RelayDwell)
	assert.Equal(t, 64, printed.Hub.MaxDevices)
}

func TestFormatUserError(t *testing.T) {
	assert.Contains(t, FormatUserError(goble.ErrUnsupportedPlatform), "Linux")
	assert.Equal(t, "plain", FormatUserError(errors.New("plain")))

	exit := &executor.TaskExitError{Task: "discovery", Err: errors.New("boom")}
	assert.Equal(t, `hub stopped: task "discovery" exited: boom`, FormatUserError(exit))

	color.NoColor = true
	var buf bytes.Buffer
	printUserError(&buf, errors.New("plain"))
	assert.Equal(t, "ERROR: plain\n", buf.String())
}
