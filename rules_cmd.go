package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"riftcoach/internal/config"
	tips "riftcoach/internal/tips/domain"
	"riftcoach/internal/tips/infrastructure/yamlsource"
)

var timingsFile string

func rulesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rules",
		Short: "Inspect tip rule documents",
	}
	check := &cobra.Command{
		Use:   "check [dir]",
		Short: "Load and validate rule documents",
		Long: `Load every rule document of a directory and report skipped documents and rules.

Examples:
  # Check the configured RULES_DIR
  riftcoach rules check

  # Check another directory against custom timings
  riftcoach rules check ./rules --timings timings.yaml`,
		Args: cobra.MaximumNArgs(1),
		RunE: runRulesCheck,
	}
	check.Flags().StringVar(&timingsFile, "timings", "", "Timings overlay used to resolve objective names")
	cmd.AddCommand(check)
	return cmd
}

func runRulesCheck(cmd *cobra.Command, args []string) error {
	dir := "rules"
	if len(args) == 1 {
		dir = args[0]
	} else if cfg, err := config.Load(); err == nil {
		dir = cfg.Rules.Dir
	}
	timings, err := config.LoadTimings(timingsFile)
	if err != nil {
		return err
	}

	loader, err := yamlsource.NewLoader(dir, timings.Objectives.Has, zap.NewNop())
	if err != nil {
		return err
	}
	result, err := loader.Load()
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%s: %d files, %d documents, %d rules\n", dir, result.Files, result.Documents, result.Set.Len())
	var rules []tips.CompiledRule
	if result.Set != nil {
		rules = result.Set.Rules
	}
	for _, rule := range rules {
		state := "active"
		if !rule.Active() {
			state = "disabled"
		}
		leads := make([]string, 0, len(rule.Trigger.Leads()))
		for _, lead := range rule.Trigger.Leads() {
			leads = append(leads, fmt.Sprintf("%gs", lead))
		}
		fmt.Fprintf(out, "  %s/%s %s leads=%s %s\n", rule.ModuleID, rule.ID, rule.Trigger.Type(), strings.Join(leads, ","), state)
	}
	if len(result.Problems) == 0 {
		return nil
	}
	for _, problem := range result.Problems {
		fmt.Fprintf(out, "  skipped: %v\n", problem)
	}
	return fmt.Errorf("%d problems: %w", len(result.Problems), errors.Join(result.Problems...))
}
