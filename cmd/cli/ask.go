package main

import (
	"strings"

	"github.com/spf13/cobra"
)

var askConversationID string
var askUserID string

var askCmd = &cobra.Command{
	Use:   "ask [question]",
	Short: "Ask a question against the retrieval pipeline",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runAsk,
}

func init() {
	askCmd.Flags().StringVar(&askConversationID, "conversation", "", "existing conversation id to continue")
	askCmd.Flags().StringVar(&askUserID, "user", "", "user id asking the question")
	rootCmd.AddCommand(askCmd)
}

func runAsk(cmd *cobra.Command, args []string) error {
	question := strings.Join(args, " ")

	var out struct {
		Response       string `json:"response"`
		ConversationID string `json:"conversationId"`
	}
	req := map[string]any{"message": question, "conversationId": askConversationID, "userId": askUserID}
	if err := postJSON(apiBase+"/chat/message", req, &out); err != nil {
		return err
	}
	cmd.Println(out.Response)
	cmd.Printf("(conversation: %s)\n", out.ConversationID)
	return nil
}
