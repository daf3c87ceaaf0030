package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newFetchCmd() *cobra.Command {
	var flags requestFlags

	cmd := &cobra.Command{
		Use:   "fetch APP_ID",
		Short: "Acquire reviews for one app and print the outcome as JSON.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := servicesFrom(cmd)
			if err != nil {
				return err
			}
			req, err := flags.request(svc.cfg, args[0])
			if err != nil {
				return err
			}
			outcome, err := svc.acquirer.Acquire(cmd.Context(), req)
			if err != nil {
				return fmt.Errorf("acquire %s: %w", req.AppID, err)
			}
			withAppID(svc.logger, req.AppID).Info("acquisition complete",
				zap.Int("reviews", len(outcome.Reviews)),
				zap.String("channel_used", string(outcome.ChannelUsed)),
			)

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			if err := enc.Encode(outcome); err != nil {
				return fmt.Errorf("write outcome: %w", err)
			}
			return nil
		},
	}
	flags.bind(cmd)
	return cmd
}
