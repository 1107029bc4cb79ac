package main

import (
	"encoding/json"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/insights-api/internal/model"
)

var (
	chatQuery       string
	chatHistoryFile string
)

var chatCmd = &cobra.Command{
	Use:   "chat <url>",
	Short: "Ask a follow-up question about a homepage",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		history, err := loadHistory(chatHistoryFile)
		if err != nil {
			return err
		}

		env, err := initApp(ctx, cfg, "cli")
		if err != nil {
			return err
		}
		defer env.Close()

		result, err := env.Service.Chat(ctx, args[0], chatQuery, history)
		if err != nil {
			return eris.Wrapf(err, "chat %s", args[0])
		}
		return printJSON(cmd.OutOrStdout(), result)
	},
}

// loadHistory reads a JSON array of {user_query, agent_response} turns.
func loadHistory(path string) ([]model.ConversationTurn, error) {
	if path == "" {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "read history %s", path)
	}
	var turns []model.ConversationTurn
	if err := json.Unmarshal(data, &turns); err != nil {
		return nil, eris.Wrapf(err, "parse history %s", path)
	}
	return turns, nil
}

func init() {
	chatCmd.Flags().StringVar(&chatQuery, "query", "", "question to ask about the homepage")
	chatCmd.Flags().StringVar(&chatHistoryFile, "history", "", "JSON file with prior conversation turns")
	_ = chatCmd.MarkFlagRequired("query")
	rootCmd.AddCommand(chatCmd)
}
