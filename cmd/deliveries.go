package main

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/invoice-intake/internal/model"
	"github.com/sells-group/invoice-intake/internal/store"
)

var deliveriesCmd = &cobra.Command{
	Use:   "deliveries",
	Short: "List recent sink delivery attempts",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		if err := cfg.Validate("deliveries"); err != nil {
			return err
		}
		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		sink, _ := cmd.Flags().GetString("sink")
		status, _ := cmd.Flags().GetString("status")
		limit, _ := cmd.Flags().GetInt("limit")

		list, err := st.ListDeliveries(ctx, store.DeliveryFilter{
			Sink:   model.Sink(sink),
			Status: model.DeliveryStatus(status),
			Limit:  limit,
		})
		if err != nil {
			return eris.Wrap(err, "deliveries list")
		}

		if len(list) == 0 {
			fmt.Fprintln(os.Stderr, "No deliveries found.")
			return nil
		}

		formatDeliveries(os.Stdout, list)
		return nil
	},
}

func formatDeliveries(out io.Writer, list []model.Delivery) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "ID\tSINK\tSTATUS\tINVOICE\tCODE\tERROR\tCREATED")
	_, _ = fmt.Fprintln(w, "--\t----\t------\t-------\t----\t-----\t-------")

	for _, d := range list {
		code := ""
		if d.StatusCode != 0 {
			code = fmt.Sprintf("%d", d.StatusCode)
		}
		errMsg := d.Error
		if len(errMsg) > 40 {
			errMsg = errMsg[:37] + "..."
		}

		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			truncateID(d.ID),
			d.Sink,
			d.Status,
			d.InvoiceNumber,
			code,
			errMsg,
			d.CreatedAt.Format("2006-01-02 15:04"),
		)
	}
	_ = w.Flush()
}

func truncateID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func init() {
	deliveriesCmd.Flags().String("sink", "", "filter by sink (hubspot, webhook)")
	deliveriesCmd.Flags().String("status", "", "filter by status (succeeded, failed, skipped)")
	deliveriesCmd.Flags().Int("limit", 50, "max number of deliveries to display")
	rootCmd.AddCommand(deliveriesCmd)
}
