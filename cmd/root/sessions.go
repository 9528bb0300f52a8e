package root

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/docker/go-units"
	"github.com/spf13/cobra"

	"github.com/LucasSabena/codemobile-sub001/pkg/chat"
)

func newSessionsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "sessions",
		Short:   "List stored chat sessions",
		GroupID: "core",
		Args:    cobra.NoArgs,
		RunE:    runListSessions,
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "show <id>",
		Short: "Print the messages of a session",
		Args:  cobra.ExactArgs(1),
		RunE:  runShowSession,
	})
	cmd.AddCommand(&cobra.Command{
		Use:     "rm <id>",
		Aliases: []string{"delete"},
		Short:   "Delete a session and its messages",
		Args:    cobra.ExactArgs(1),
		RunE:    runDeleteSession,
	})

	return cmd
}

func runListSessions(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	store, err := openSessionStore(ctx)
	if err != nil {
		return err
	}
	defer store.Close()

	sessions, err := store.ListSessions(ctx)
	if err != nil {
		return err
	}
	if len(sessions) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No sessions yet.")
		return nil
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tTITLE\tMODEL\tMODE\tTOKENS\tCREATED")
	for _, s := range sessions {
		fmt.Fprintf(w, "%s\t%s\t%s/%s\t%s\t%d/%d\t%s ago\n",
			s.ID, s.Title, s.ProviderID, s.Model, s.Mode,
			s.InputTokens, s.OutputTokens,
			units.HumanDuration(time.Since(s.CreatedAt)))
	}
	return w.Flush()
}

func runShowSession(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	store, err := openSessionStore(ctx)
	if err != nil {
		return err
	}
	defer store.Close()

	messages, err := store.GetMessages(ctx, args[0])
	if err != nil {
		return fmt.Errorf("loading session %s: %w", args[0], err)
	}

	out := cmd.OutOrStdout()
	for _, msg := range messages {
		switch msg.Role {
		case chat.MessageRoleUser:
			fmt.Fprintf(out, "%s %s\n", bold("> "), msg.Content)
		case chat.MessageRoleAssistant:
			if msg.Content != "" {
				fmt.Fprintln(out, msg.Content)
			}
			for _, call := range msg.ToolCalls {
				fmt.Fprintf(out, "%s %s\n", blue("Calling %s", bold(call.Name)), faint("%s", call.Arguments))
			}
		case chat.MessageRoleTool:
			colorize := green
			if msg.IsError {
				colorize = red
			}
			fmt.Fprintln(out, colorize("%s", preview(msg.Content)))
		}
	}
	return nil
}

func runDeleteSession(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	store, err := openSessionStore(ctx)
	if err != nil {
		return err
	}
	defer store.Close()

	if err := store.DeleteSession(ctx, args[0]); err != nil {
		return fmt.Errorf("deleting session %s: %w", args[0], err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Deleted session %s\n", args[0])
	return nil
}
