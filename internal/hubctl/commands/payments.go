package commands

import (
	"strconv"

	"github.com/fatih/color"
	"github.com/frenchtutorhub/hub/pkg/hubsdk"
	"github.com/spf13/cobra"
)

// paymentsCommand groups the payment commands.
func paymentsCommand(rt *runtime) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "payments",
		Short: "Buy courses and review payments",
	}
	cmd.AddCommand(
		paymentsHistoryCommand(rt),
		paymentsCreateCommand(rt),
		paymentsVerifyCommand(rt),
	)
	return cmd
}

func paymentsHistoryCommand(rt *runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "history",
		Short: "List your payments",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := rt.client()
			if err != nil {
				return err
			}
			payments, err := client.PaymentHistory(cmd.Context())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if len(payments) == 0 {
				warn(out, "No payments yet")
				return nil
			}
			rows := make([][]string, 0, len(payments))
			for _, p := range payments {
				rows = append(rows, []string{
					strconv.FormatInt(p.ID, 10), strconv.FormatInt(p.Course, 10), p.Amount, statusColor(p.Status), formatTime(p.CreatedAt),
				})
			}
			return table(out, []string{"ID", "COURSE", "AMOUNT", "STATUS", "CREATED"}, rows)
		},
	}
}

func paymentsCreateCommand(rt *runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "create COURSE_ID",
		Short: "Start paying for a course",
		Long:  "Create a payment for a course. Complete it with the card processor, then run payments verify.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID("course id", args[0])
			if err != nil {
				return err
			}
			client, err := rt.client()
			if err != nil {
				return err
			}
			intent, err := client.CreatePayment(cmd.Context(), id)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			success(out, "Payment created")
			field(out, "Order", intent.OrderID)
			field(out, "Secret", intent.ClientSecret)
			return nil
		},
	}
}

func paymentsVerifyCommand(rt *runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "verify ORDER_ID",
		Short: "Confirm a completed payment",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID("order id", args[0])
			if err != nil {
				return err
			}
			client, err := rt.client()
			if err != nil {
				return err
			}
			st, err := client.VerifyPayment(cmd.Context(), id)
			if err != nil {
				return err
			}
			if st.Status != "success" {
				warn(cmd.OutOrStdout(), "Payment %d is %s", id, st.Status)
				return nil
			}
			success(cmd.OutOrStdout(), "Payment %d confirmed", id)
			return nil
		},
	}
}

// ordersCommand lists the current user's orders.
func ordersCommand(rt *runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "orders",
		Short: "List your orders",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := rt.client()
			if err != nil {
				return err
			}
			orders, err := client.MyOrders(cmd.Context())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if len(orders) == 0 {
				warn(out, "No orders yet")
				return nil
			}
			rows := make([][]string, 0, len(orders))
			for _, o := range orders {
				rows = append(rows, []string{
					strconv.FormatInt(o.ID, 10), orderTitle(o), o.Amount, statusColor(o.Status), formatTime(o.CreatedAt),
				})
			}
			return table(out, []string{"ID", "COURSE", "AMOUNT", "STATUS", "CREATED"}, rows)
		},
	}
}

func orderTitle(o hubsdk.Order) string {
	if o.Course == nil {
		return "-"
	}
	return o.Course.Title
}

func statusColor(status string) string {
	switch status {
	case "completed", "success":
		return color.GreenString(status)
	case "failed", "cancelled":
		return color.RedString(status)
	default:
		return color.YellowString(status)
	}
}
