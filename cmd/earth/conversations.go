package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/earthchat/earth/pkg/store"
)

func newConversationsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "conversations",
		Short: "Inspect stored conversations",
	}
	cmd.AddCommand(newConversationsListCommand())
	cmd.AddCommand(newConversationsExportCommand())
	cmd.AddCommand(newConversationsClearCommand())
	return cmd
}

func openConversationStore() (*store.ConversationStore, func(), error) {
	kv, err := openKV()
	if err != nil {
		return nil, nil, err
	}
	cs, err := store.NewConversationStore(kv, viper.GetString("user"))
	if err != nil {
		_ = kv.Close()
		return nil, nil, err
	}
	return cs, func() { _ = kv.Close() }, nil
}

func newConversationsListCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List the stored conversations for the configured user",
		RunE: func(cmd *cobra.Command, args []string) error {
			cs, closeKV, err := openConversationStore()
			if err != nil {
				return err
			}
			defer closeKV()

			doc, err := cs.Load(cmd.Context())
			if err != nil {
				return err
			}
			if doc == nil || len(doc.Conversations) == 0 {
				fmt.Println("no stored conversations")
				return nil
			}
			for _, c := range doc.Conversations {
				marker := " "
				if c.ID == doc.ActiveID {
					marker = "*"
				}
				fmt.Printf("%s %s  %s (%d messages)\n", marker, c.ID, c.Title, len(c.Messages))
			}
			return nil
		},
	}
}

func newConversationsExportCommand() *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export the stored conversations as JSON",
		RunE: func(cmd *cobra.Command, args []string) error {
			cs, closeKV, err := openConversationStore()
			if err != nil {
				return err
			}
			defer closeKV()

			doc, err := cs.Load(cmd.Context())
			if err != nil {
				return err
			}
			if doc == nil {
				fmt.Println("no stored conversations")
				return nil
			}
			b, err := json.MarshalIndent(doc, "", "  ")
			if err != nil {
				return err
			}
			if out == "" {
				fmt.Println(string(b))
				return nil
			}
			return os.WriteFile(out, b, 0o644)
		},
	}
	cmd.Flags().StringVar(&out, "out", "", "write to a file instead of stdout")
	return cmd
}

func newConversationsClearCommand() *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Delete all stored conversations for the configured user",
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes {
				return fmt.Errorf("refusing to clear without --yes")
			}
			cs, closeKV, err := openConversationStore()
			if err != nil {
				return err
			}
			defer closeKV()
			return cs.Clear(cmd.Context())
		},
	}
	cmd.Flags().BoolVar(&yes, "yes", false, "confirm deletion")
	return cmd
}
