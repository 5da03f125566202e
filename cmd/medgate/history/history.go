package historycmder

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/caremesh/medgate/pkg/transcript"
)

const historyLongDesc string = `Print a conversation transcript from a local database.

Reads the transcript store directly, so the gateway does not need to be
running. Shows the conversation state followed by the message log in
chronological order.

Examples:
  medgate history --sqlite medgate.db 6f1c2a...
  medgate history --sqlite medgate.db --limit 20 6f1c2a...`

const historyShortDesc string = "Print a conversation transcript"

type historyCommander struct {
	sqlitePath string
	limit      int
	reports    bool
}

func NewHistoryCmd() *cobra.Command {
	cmder := &historyCommander{}

	cmd := &cobra.Command{
		Use:   "history <conversation-id>",
		Short: historyShortDesc,
		Long:  historyLongDesc,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmder.run(cmd.Context(), cmd, args[0])
		},
	}

	cmd.Flags().StringVarP(&cmder.sqlitePath, "sqlite", "s", "", "Path to the SQLite transcript database")
	cmd.Flags().IntVar(&cmder.limit, "limit", 0, "Show only the most recent N messages (0 = all)")
	cmd.Flags().BoolVar(&cmder.reports, "reports", false, "Also print saved report records")
	cmd.MarkFlagRequired("sqlite")

	return cmd
}

func (c *historyCommander) run(ctx context.Context, cmd *cobra.Command, conversationID string) error {
	store, err := transcript.NewSQLiteStore(c.sqlitePath)
	if err != nil {
		return fmt.Errorf("could not open database %s: %w", c.sqlitePath, err)
	}
	defer store.Close()

	state, err := store.State(ctx, conversationID)
	if err != nil {
		var notFound transcript.ErrNotFound
		if errors.As(err, &notFound) {
			return fmt.Errorf("no conversation %s in %s", conversationID, c.sqlitePath)
		}
		return err
	}

	msgs, err := store.Messages(ctx, conversationID, c.limit)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Conversation %s (state: %s, %d messages)\n", conversationID, state, len(msgs))

	for _, msg := range msgs {
		fmt.Fprintf(out, "[%s] %s: %s\n", msg.CreatedAt.Format("2006-01-02 15:04:05"), msg.Sender, msg.Text)
		if msg.Image != "" {
			fmt.Fprintf(out, "    image: %s\n", msg.Image)
		}
	}

	if c.reports {
		records, err := store.Reports(ctx, conversationID)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "%d report(s)\n", len(records))
		for i, record := range records {
			fmt.Fprintf(out, "report %d: %v\n", i+1, record)
		}
	}

	return nil
}
