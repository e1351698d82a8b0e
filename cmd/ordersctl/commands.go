package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/rodge1109/restaurantordering/internal/app"
	"github.com/rodge1109/restaurantordering/internal/config"
	httpctl "github.com/rodge1109/restaurantordering/internal/controllers/http"
	"github.com/rodge1109/restaurantordering/internal/infra/paymongo"
	"github.com/rodge1109/restaurantordering/internal/infra/semaphore"
	"github.com/rodge1109/restaurantordering/internal/logger"
	"github.com/rodge1109/restaurantordering/internal/services"
)

func setup(cmd *cobra.Command) (*config.Config, *slog.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}
	level := "warn"
	if v, _ := cmd.Flags().GetBool("verbose"); v {
		level = "debug"
	}
	log := logger.New(logger.Options{Service: "ordersctl", Env: cfg.App.Env, Level: level, Output: cmd.ErrOrStderr()})
	return cfg, log, nil
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func smsTestCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sms-test [phone]",
		Short: "Send a test SMS through Semaphore",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := setup(cmd)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Sending test SMS to %s (normalized %s)\n",
				args[0], semaphore.NormalizePhone(args[0], cfg.SMS.CountryCode))

			client := semaphore.NewClient(cfg.SMS, log)
			res := client.Send(cmd.Context(), args[0], services.SMSTestMessage(cfg.SMS.SenderName))
			if err := printJSON(cmd.OutOrStdout(), res); err != nil {
				return err
			}
			if !res.Success {
				return errors.New("sms test failed")
			}
			return nil
		},
	}
	cmd.Flags().BoolP("verbose", "v", false, "Debug logging")
	return cmd
}

func paymentStatusCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "payment-status [sourceId]",
		Short: "Show the PayMongo status of a payment source",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := setup(cmd)
			if err != nil {
				return err
			}
			if cfg.PayMongo.SecretKey == "" {
				return errors.New("PAYMONGO_SECRET_KEY is not set")
			}
			src, err := paymongo.NewClient(cfg.PayMongo, log).CheckStatus(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), src)
		},
	}
	cmd.Flags().BoolP("verbose", "v", false, "Debug logging")
	return cmd
}

func syncPaymentCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sync-payment [orderNumber]",
		Short: "Poll PayMongo for an order's payment and apply the result",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := setup(cmd)
			if err != nil {
				return err
			}
			return withApp(cmd.Context(), cfg, log, func(a *app.App) error {
				res, err := a.Orders.SyncPayment(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), res)
			})
		},
	}
	cmd.Flags().BoolP("verbose", "v", false, "Debug logging")
	return cmd
}

func exportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write all orders as CSV",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := setup(cmd)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if path, _ := cmd.Flags().GetString("out"); path != "" {
				f, err := os.Create(path)
				if err != nil {
					return err
				}
				defer f.Close()
				out = f
			}
			return withApp(cmd.Context(), cfg, log, func(a *app.App) error {
				return a.Orders.ExportOrders(cmd.Context(), out)
			})
		},
	}
	cmd.Flags().StringP("out", "o", "", "Output file (default stdout)")
	cmd.Flags().BoolP("verbose", "v", false, "Debug logging")
	return cmd
}

func adminTokenCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "admin-token",
		Short: "Issue a bearer token for the /admin routes",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := setup(cmd)
			if err != nil {
				return err
			}
			if cfg.Admin.JWTSecret == "" {
				return errors.New("ADMIN_JWT_SECRET is not set")
			}
			subject, _ := cmd.Flags().GetString("subject")
			ttl, _ := cmd.Flags().GetDuration("ttl")
			token, err := httpctl.IssueAdminToken(cfg.Admin.JWTSecret, subject, ttl)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
	cmd.Flags().String("subject", "operator", "Token subject")
	cmd.Flags().Duration("ttl", time.Hour, "Token lifetime")
	return cmd
}

func withApp(ctx context.Context, cfg *config.Config, log *slog.Logger, fn func(*app.App) error) error {
	a, err := app.Build(ctx, cfg, log)
	if err != nil {
		return err
	}
	err = fn(a)
	if cerr := a.Close(); cerr != nil {
		log.Warn("close", "err", cerr)
	}
	return err
}
