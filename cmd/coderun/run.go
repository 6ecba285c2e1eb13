package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/isdmx/coderun/logger"
	"github.com/isdmx/coderun/sandbox"
)

var errExecutionFailed = errors.New("execution failed")

var (
	runLanguage string
	runInput    string
)

var runCmd = &cobra.Command{
	Use:   "run [file|-]",
	Short: "Execute one source file and print the JSON result",
	Long: "Execute one source file and print the JSON result. The source is read\n" +
		"from the named file, or from stdin when the argument is '-' or absent.\n" +
		"The exit status is non-zero when the execution did not succeed.",
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		source, err := readSource(cmd.InOrStdin(), args)
		if err != nil {
			return err
		}

		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		log, err := logger.NewFromConfig(cfg)
		if err != nil {
			return err
		}
		defer func() { _ = log.Sync() }()

		executor, err := sandbox.NewExecutor(log, cfg)
		if err != nil {
			return err
		}

		result := executor.Execute(cmd.Context(), sandbox.ExecutionRequest{
			Code:     source,
			Language: runLanguage,
			Input:    runInput,
		})

		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		if err := enc.Encode(result); err != nil {
			return fmt.Errorf("failed to encode result: %w", err)
		}

		if !result.Success {
			return errExecutionFailed
		}
		return nil
	},
}

func init() {
	runCmd.Flags().StringVarP(&runLanguage, "language", "l", "", "language tag, e.g. python or javascript")
	runCmd.Flags().StringVarP(&runInput, "input", "i", "", "text fed to the program's standard input")
	_ = runCmd.MarkFlagRequired("language")
}

func readSource(stdin io.Reader, args []string) (string, error) {
	if len(args) == 0 || args[0] == "-" {
		b, err := io.ReadAll(stdin)
		if err != nil {
			return "", fmt.Errorf("reading source from stdin: %w", err)
		}
		return string(b), nil
	}

	b, err := os.ReadFile(args[0])
	if err != nil {
		return "", fmt.Errorf("reading source: %w", err)
	}
	return string(b), nil
}
