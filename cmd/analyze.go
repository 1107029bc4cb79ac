package main

import (
	"encoding/json"
	"io"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
)

var analyzeQuestions []string

var analyzeCmd = &cobra.Command{
	Use:   "analyze <url>",
	Short: "Analyze one homepage and print the result as JSON",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		env, err := initApp(ctx, cfg, "cli")
		if err != nil {
			return err
		}
		defer env.Close()

		result, err := env.Service.Analyze(ctx, args[0], analyzeQuestions)
		if err != nil {
			return eris.Wrapf(err, "analyze %s", args[0])
		}
		return printJSON(cmd.OutOrStdout(), result)
	},
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return eris.Wrap(enc.Encode(v), "write output")
}

func init() {
	analyzeCmd.Flags().StringArrayVarP(&analyzeQuestions, "question", "q", nil, "question to answer from the homepage (repeatable)")
	rootCmd.AddCommand(analyzeCmd)
}
