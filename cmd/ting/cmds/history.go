package cmds

import (
	"fmt"
	"io"
	"strconv"

	"github.com/gtklocker/ting/pkg/chat"
	"github.com/gtklocker/ting/pkg/history"
	"github.com/gtklocker/ting/pkg/persistence/historystore"
	"github.com/gtklocker/ting/pkg/ui"
	"github.com/olekukonko/tablewriter"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

func NewHistoryCommand() *cobra.Command {
	var (
		list  bool
		limit int
	)
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Print the locally cached history of a channel",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := loadSettings()
			if err != nil {
				return err
			}
			if s.HistoryDB == "" {
				return errors.New("no history cache configured (--history-db)")
			}
			store, err := openSQLite(s.HistoryDB, s.HistoryLimit)
			if err != nil {
				return err
			}
			defer func() {
				_ = store.Close()
			}()
			if list {
				return printChannels(cmd, store)
			}
			return printHistory(cmd, store, s.Channel, limit)
		},
	}
	cmd.Flags().BoolVar(&list, "list", false, "List cached channels instead of messages")
	cmd.Flags().IntVar(&limit, "limit", 50, "Number of newest messages to print, 0 for all")
	return cmd
}

func printChannels(cmd *cobra.Command, store historystore.Store) error {
	infos, err := store.Channels(cmd.Context())
	if err != nil {
		return err
	}
	table := tablewriter.NewWriter(cmd.OutOrStdout())
	table.SetHeader([]string{"Channel", "Messages", "Last ID"})
	table.SetAutoFormatHeaders(true)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetCenterSeparator("")
	table.SetColumnSeparator("")
	table.SetRowSeparator("")
	table.SetHeaderLine(false)
	table.SetBorder(false)
	table.SetTablePadding("\t")
	for _, c := range infos {
		table.Append([]string{"#" + c.Name, strconv.Itoa(c.Count), strconv.FormatInt(c.LastID, 10)})
	}
	table.Render()
	return nil
}

func printHistory(cmd *cobra.Command, store historystore.Store, channel string, limit int) error {
	msgs, err := store.Snapshot(cmd.Context(), channel, limit)
	if err != nil {
		return err
	}
	return writeRows(cmd.OutOrStdout(), msgs)
}

func writeRows(w io.Writer, msgs []chat.Message) error {
	st := history.NewState().LoadHistory("", chat.HistoryBatchFromMessages(msgs))
	r := ui.NewRenderer(0, "")
	for _, row := range history.Rows(st) {
		if _, err := fmt.Fprintln(w, r.Row(row)); err != nil {
			return err
		}
	}
	return nil
}
