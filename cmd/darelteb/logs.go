package main

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

func newLogsCmd(c *cli) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "logs",
		Short: "Print persisted failure logs, oldest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := c.open(cmd)
			if err != nil {
				return err
			}
			defer app.Close()

			if app.Logs == nil {
				return errors.New("persisted logs need the sqlite backend with persist_logs enabled")
			}

			logs, err := app.Logs.GetLogs()
			if err != nil {
				return fmt.Errorf("failed to read logs: %w", err)
			}

			if limit > 0 && len(logs) > limit {
				logs = logs[len(logs)-limit:]
			}

			for _, log := range logs {
				context, err := json.Marshal(log.Context)
				if err != nil {
					return fmt.Errorf("marshalling log context: %w", err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s %-5s %s %s\n",
					log.Timestamp.Format("2006-01-02 15:04:05"), log.Level, log.Message, context)
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 0, "print only the most recent entries")
	return cmd
}
