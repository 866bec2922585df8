// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Command comply manages cross-framework compliance state.
//
// Aleutian Comply tracks a project's compliance posture against control
// frameworks (NIST CSF, NIST 800-53, SOC 2, ...), maps controls across
// frameworks, and projects documented state onto frameworks the project
// has not directly attested.
//
// Usage:
//
//	comply serve --data-dir ~/.aleutian/comply
//	comply frameworks list
//	comply record --project acme --framework nist_csf --control PR.AC-1 --status implemented
//	comply gap --project acme --current nist_csf --target soc2
package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/AleutianAI/AleutianComply/pkg/logging"
	"github.com/AleutianAI/AleutianComply/services/comply"
)

var (
	rootCmd = &cobra.Command{
		Use:   "comply",
		Short: "Track and project compliance posture across control frameworks",
		Long: `Comply maintains documented compliance state per project and framework,
with evidence links and status history, and uses control crosswalks to
estimate posture in frameworks you have not directly attested.`,
	}

	dataDir       string
	frameworksDir string
	mappingsDir   string
	policyPath    string
	logJSON       bool
	logDebug      bool
)

func init() {
	defaultData := "comply-data"
	if home, err := os.UserHomeDir(); err == nil {
		defaultData = filepath.Join(home, ".aleutian", "comply")
	}

	rootCmd.PersistentFlags().StringVar(&dataDir, "data-dir", defaultData, "Root directory for durable state")
	rootCmd.PersistentFlags().StringVar(&frameworksDir, "frameworks-dir", "", "Framework catalog directory (default <data-dir>/frameworks)")
	rootCmd.PersistentFlags().StringVar(&mappingsDir, "mappings-dir", "", "Crosswalk mapping directory (default <data-dir>/mappings)")
	rootCmd.PersistentFlags().StringVar(&policyPath, "policy", "", "Optional YAML policy file for derivation and effort rules")
	rootCmd.PersistentFlags().BoolVar(&logJSON, "log-json", false, "Emit logs as JSON")
	rootCmd.PersistentFlags().BoolVar(&logDebug, "debug", false, "Enable debug logging")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(frameworksCmd)
	rootCmd.AddCommand(recordCmd)
	rootCmd.AddCommand(evidenceCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(summaryCmd)
	rootCmd.AddCommand(gapCmd)
	rootCmd.AddCommand(exportCmd)
}

// newLogger builds the process logger from the global flags.
func newLogger(quiet bool) *logging.Logger {
	level := logging.LevelInfo
	if logDebug {
		level = logging.LevelDebug
	}
	return logging.New(logging.Config{
		Level:   level,
		Service: "comply",
		JSON:    logJSON,
		Quiet:   quiet,
	})
}

// serviceConfig resolves the effective service configuration.
func serviceConfig(logger *logging.Logger) comply.ServiceConfig {
	cfg := comply.DefaultServiceConfig(dataDir)
	if frameworksDir != "" {
		cfg.FrameworksDir = frameworksDir
	}
	if mappingsDir != "" {
		cfg.MappingsDir = mappingsDir
	}
	cfg.PolicyPath = policyPath
	cfg.Logger = logger.Slog()
	return cfg
}

// openService starts a local (non-serving) service instance for CLI
// commands. Watching is disabled; commands are one-shot.
func openService(logger *logging.Logger) (*comply.Service, error) {
	cfg := serviceConfig(logger)
	cfg.WatchFrameworks = false
	return comply.NewService(cfg)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
