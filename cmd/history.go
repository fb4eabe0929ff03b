package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/sells-group/agrimate/internal/conversation"
	"github.com/sells-group/agrimate/internal/store"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Manage saved conversations",
}

// withHistory opens the conversation store for a history subcommand.
func withHistory(ctx context.Context, fn func(*conversation.Store) error) error {
	if err := cfg.Validate("history"); err != nil {
		return err
	}
	kv, err := store.Open(ctx, cfg.Store)
	if err != nil {
		return err
	}
	defer kv.Close() //nolint:errcheck
	return fn(conversation.Open(ctx, kv))
}

var historyListCmd = &cobra.Command{
	Use:   "list",
	Short: "List conversations, newest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withHistory(cmd.Context(), func(s *conversation.Store) error {
			active := s.ActiveID()
			printSimpleTable(cmd.OutOrStdout(), []string{"", "ID", "Title", "Messages", "Updated"}, func(add func(...string)) {
				for _, c := range s.List() {
					mark := ""
					if c.ID == active {
						mark = "*"
					}
					add(mark, c.ID, c.Title, fmt.Sprint(len(c.Messages)), c.UpdatedAt.Local().Format(time.DateTime))
				}
			})
			return nil
		})
	},
}

var historyShowCmd = &cobra.Command{
	Use:   "show [id]",
	Short: "Print a conversation",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withHistory(cmd.Context(), func(s *conversation.Store) error {
			c, err := s.Get(args[0])
			if err != nil {
				return fmt.Errorf("conversation %s: %w", args[0], err)
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "# %s\n", c.Title)
			for _, m := range c.Messages {
				label := string(m.Role)
				if m.Error {
					label += " (error)"
				}
				fmt.Fprintf(out, "\n[%s] %s\n%s\n", m.Timestamp.Local().Format(time.DateTime), label, m.Content)
			}
			return nil
		})
	},
}

var historyNewCmd = &cobra.Command{
	Use:   "new",
	Short: "Start an empty conversation and make it active",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withHistory(cmd.Context(), func(s *conversation.Store) error {
			c := s.Create(cmd.Context())
			fmt.Fprintln(cmd.OutOrStdout(), c.ID)
			return nil
		})
	},
}

var historyRenameCmd = &cobra.Command{
	Use:   "rename [id] [title]",
	Short: "Rename a conversation",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withHistory(cmd.Context(), func(s *conversation.Store) error {
			_, err := s.Rename(cmd.Context(), args[0], args[1])
			return err
		})
	},
}

var historyDeleteCmd = &cobra.Command{
	Use:   "delete [id]",
	Short: "Delete a conversation",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withHistory(cmd.Context(), func(s *conversation.Store) error {
			return s.Delete(cmd.Context(), args[0])
		})
	},
}

var historyClearCmd = &cobra.Command{
	Use:   "clear [id]",
	Short: "Remove every message from a conversation",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withHistory(cmd.Context(), func(s *conversation.Store) error {
			_, err := s.Clear(cmd.Context(), args[0])
			return err
		})
	},
}

func init() {
	historyCmd.AddCommand(historyListCmd, historyShowCmd, historyNewCmd, historyRenameCmd, historyDeleteCmd, historyClearCmd)
	rootCmd.AddCommand(historyCmd)
}
