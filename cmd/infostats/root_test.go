package main

import (
	"testing"
)

// TestNewRootCmd tests the root command creation.
func TestNewRootCmd(t *testing.T) {
	t.Parallel()

	cmd := NewRootCmd()

	t.Run("has correct use", func(t *testing.T) {
		t.Parallel()
		if cmd.Use != "infostats" {
			t.Errorf("expected use 'infostats', got %q", cmd.Use)
		}
		if cmd.Short == "" || cmd.Long == "" || cmd.Version == "" {
			t.Error("expected descriptions and version")
		}
	})

	t.Run("has global flags", func(t *testing.T) {
		t.Parallel()
		verbose := cmd.PersistentFlags().Lookup("verbose")
		if verbose == nil || verbose.Shorthand != "v" || verbose.DefValue != "false" {
			t.Errorf("unexpected verbose flag %+v", verbose)
		}
		if cmd.PersistentFlags().Lookup("config") == nil {
			t.Error("expected config flag")
		}
		if cmd.PersistentFlags().Lookup("log-json") == nil {
			t.Error("expected log-json flag")
		}
	})

	t.Run("has subcommands", func(t *testing.T) {
		t.Parallel()
		found := make(map[string]bool)
		for _, sub := range cmd.Commands() {
			found[sub.Use] = true
		}
		for _, use := range []string{"run", "schedule", "history", "publish <archive-file>", "init", "version"} {
			if !found[use] {
				t.Errorf("expected %q subcommand", use)
			}
		}
	})

	t.Run("silences usage and errors", func(t *testing.T) {
		t.Parallel()
		if !cmd.SilenceUsage || !cmd.SilenceErrors {
			t.Error("expected SilenceUsage and SilenceErrors to be true")
		}
	})
}

func TestSetupLogger(t *testing.T) {
	t.Parallel()

	cmd := NewRootCmd()
	if err := cmd.PersistentFlags().Set("verbose", "true"); err != nil {
		t.Fatal(err)
	}
	logger := setupLogger(cmd)
	if logger == nil {
		t.Fatal("expected logger")
	}
	if !getBoolFlag(cmd, "verbose") {
		t.Error("expected verbose flag to be read")
	}
	if getBoolFlag(cmd, "no-such-flag") {
		t.Error("unknown flags read as false")
	}
}
