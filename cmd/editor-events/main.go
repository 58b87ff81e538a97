// Command editor-events summarizes eproba.editor.request observability events
// read from service logs on stdin.
package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/bytedance/sonic"
	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var (
		outPath     string
		eventName   string
		eventDomain string
	)
	cmd := &cobra.Command{
		Use:          "editor-events --out summary.json",
		Short:        "Aggregate editor request events from JSON logs",
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if outPath == "" {
				return errors.New("--out is required")
			}
			c := newCollector(eventName, eventDomain)
			if err := readLines(cmd.InOrStdin(), c.ingest); err != nil {
				return fmt.Errorf("read logs: %w", err)
			}
			summary := c.summary()
			if err := writeSummary(outPath, summary); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), summary.ShortString())
			return nil
		},
	}
	cmd.Flags().StringVar(&outPath, "out", "", "path to write aggregated metrics JSON")
	cmd.Flags().StringVar(&eventName, "event-name", editorEventName, "observability event name to collect")
	cmd.Flags().StringVar(&eventDomain, "event-domain", editorEventDomain, "observability event domain to match")
	return cmd
}

func readLines(r io.Reader, fn func(string)) error {
	reader := bufio.NewReader(r)
	for {
		line, err := reader.ReadString('\n')
		if len(line) != 0 {
			fn(line)
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}
	}
}

func writeSummary(path string, summary summaryOutput) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}
	data, err := sonic.ConfigStd.MarshalIndent(summary, "", "  ")
	if err != nil {
		return fmt.Errorf("encode summary: %w", err)
	}
	return os.WriteFile(path, append(data, '\n'), 0o644)
}
