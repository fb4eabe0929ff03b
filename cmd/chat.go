package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/sells-group/agrimate/internal/model"
)

var chatConversation string

var chatCmd = &cobra.Command{
	Use:   "chat [message]",
	Short: "Ask the AgriMate advisor a question",
	Long:  "Sends one message through the provider chain. With --conversation the turn is added to a saved conversation and its history is used as context.",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		if err := cfg.Validate("chat"); err != nil {
			return err
		}

		env, err := initApp(ctx, chatConversation != "")
		if err != nil {
			return err
		}
		defer env.Close()

		message := strings.Join(args, " ")
		var history []model.ChatMessage
		if chatConversation != "" {
			conv, err := env.History.Get(chatConversation)
			if err != nil {
				return fmt.Errorf("conversation %s: %w", chatConversation, err)
			}
			history = conv.ChatMessages()
			if _, err := env.History.AddMessage(ctx, chatConversation, model.Message{Role: model.RoleUser, Content: message}); err != nil {
				return err
			}
		}

		res, err := env.Chain.Chat(ctx, message, history)
		if err != nil {
			if chatConversation != "" {
				_, _ = env.History.AddMessage(ctx, chatConversation, model.Message{Role: model.RoleAssistant, Content: err.Error(), Error: true})
			}
			return err
		}
		if chatConversation != "" {
			if _, err := env.History.AddMessage(ctx, chatConversation, model.Message{Role: model.RoleAssistant, Content: res.Reply}); err != nil {
				return err
			}
		}

		out := cmd.OutOrStdout()
		fmt.Fprintln(out, res.Reply)
		fmt.Fprintf(out, "\n(%s)\n", res.Provider)
		return nil
	},
}

func init() {
	chatCmd.Flags().StringVar(&chatConversation, "conversation", "", "saved conversation id to continue")
	rootCmd.AddCommand(chatCmd)
}
