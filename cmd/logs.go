package cmd

import (
	"bufio"
	"fmt"
	"io"
	stdlog "log"
	"os"
	"os/signal"
	"syscall"

	"github.com/grovetools/sessionlink/cli"
	"github.com/grovetools/sessionlink/logging"
	"github.com/hpcloud/tail"
	"github.com/spf13/cobra"
)

func NewLogsCmd() *cobra.Command {
	var (
		lines  int
		follow bool
		where  bool
	)

	cmd := &cobra.Command{
		Use:   "logs",
		Short: "Show the sessionlink log file",
		Long: `Show the end of the log file written when logging.file.enabled is set.

Examples:
  sessionlink logs -n 100
  sessionlink logs -f
  sessionlink logs --path`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := cli.LoadConfig(cmd)
			if err != nil {
				return err
			}
			file, _, err := logging.FindLogFile(cfg)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if where {
				fmt.Fprintln(out, file)
				return nil
			}

			if err := printLastLines(out, file, lines); err != nil {
				return err
			}
			if !follow {
				return nil
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			t, err := tail.TailFile(file, tail.Config{
				Follow:   true,
				ReOpen:   true,
				Location: &tail.SeekInfo{Offset: 0, Whence: io.SeekEnd},
				Logger:   stdlog.New(io.Discard, "", 0),
			})
			if err != nil {
				return err
			}
			defer t.Cleanup()
			defer t.Stop()
			for {
				select {
				case line, ok := <-t.Lines:
					if !ok {
						return t.Err()
					}
					fmt.Fprintln(out, line.Text)
				case <-ctx.Done():
					return nil
				}
			}
		},
	}

	cmd.Flags().IntVarP(&lines, "lines", "n", 50, "Number of trailing lines to show")
	cmd.Flags().BoolVarP(&follow, "follow", "f", false, "Keep printing lines as they are written")
	cmd.Flags().BoolVar(&where, "path", false, "Print the log file path only")
	return cmd
}

// printLastLines writes the last n lines of path to w.
func printLastLines(w io.Writer, path string, n int) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	if n <= 0 {
		return nil
	}
	ring := make([]string, 0, n)
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		if len(ring) == n {
			ring = ring[1:]
		}
		ring = append(ring, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return err
	}
	for _, line := range ring {
		fmt.Fprintln(w, line)
	}
	return nil
}
