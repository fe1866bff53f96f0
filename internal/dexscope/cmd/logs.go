package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/nxadm/tail"
	"github.com/spf13/cobra"

	"dexscope/internal/logging"
)

var logsCmd = &cobra.Command{
	Use:   "logs",
	Short: "Show the newest dump log file",
	Long: `Print the newest dexscope-*-debug.log written by "dump" with
DEXSCOPE_LOG_TO_FILE=1. With --follow, keep printing lines as they are
appended until interrupted.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		dir, _ := cmd.Flags().GetString("dir")
		follow, _ := cmd.Flags().GetBool("follow")

		path, err := logging.LatestLogFile(dir)
		if err != nil {
			return err
		}
		if !follow {
			f, err := os.Open(path)
			if err != nil {
				return fmt.Errorf("open log: %w", err)
			}
			defer f.Close()
			_, err = io.Copy(cmd.OutOrStdout(), f)
			return err
		}

		t, err := tail.TailFile(path, tail.Config{
			Follow: true,
			ReOpen: true,
			Logger: tail.DiscardingLogger,
		})
		if err != nil {
			return fmt.Errorf("tail log: %w", err)
		}
		defer t.Cleanup()

		ctx := cmd.Context()
		for {
			select {
			case <-ctx.Done():
				return t.Stop()
			case line, ok := <-t.Lines:
				if !ok {
					return t.Err()
				}
				if line.Err != nil {
					return line.Err
				}
				fmt.Fprintln(cmd.OutOrStdout(), line.Text)
			}
		}
	},
}

func init() {
	logsCmd.Flags().String("dir", ".", "Directory containing log files")
	logsCmd.Flags().BoolP("follow", "F", false, "Follow the log as it grows")
	rootCmd.AddCommand(logsCmd)
}
