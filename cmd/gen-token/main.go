// Command gen-token prints bearer tokens accepted by the editor service when
// AUTH0_TEST_MODE is on.
package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/bytedance/sonic"
	"github.com/spf13/cobra"

	"eproba-editor/api"
	"eproba-editor/config"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var (
		count  int
		prefix string
		start  int
		output string
		ttl    time.Duration
	)
	cmd := &cobra.Command{
		Use:          "gen-token [user-id]",
		Short:        "Sign HS256 test tokens with TEST_JWT_SECRET",
		Args:         cobra.MaximumNArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if count < 1 {
				return errors.New("count must be at least 1")
			}
			if start < 1 {
				return errors.New("start index must be at least 1")
			}
			if len(args) > 0 && count > 1 {
				return errors.New("explicit user ID cannot be provided when generating multiple tokens")
			}

			cfg, err := config.Load()
			if err != nil {
				return err
			}
			issuer := ""
			if cfg.Auth.Domain != "" {
				issuer = cfg.Auth.Issuer()
			}

			tokens := make([]string, count)
			for i, userID := range userIDs(count, prefix, start, args) {
				tok, err := api.SignTestToken([]byte(cfg.Auth.TestSecret), userID, cfg.Auth.Audience, issuer, ttl)
				if err != nil {
					return err
				}
				tokens[i] = tok
			}

			if output != "" {
				if err := writeTokens(output, tokens); err != nil {
					return fmt.Errorf("write tokens: %w", err)
				}
			}
			fmt.Fprint(cmd.OutOrStdout(), tokens[0])
			return nil
		},
	}
	cmd.Flags().IntVar(&count, "count", 1, "number of tokens to generate")
	cmd.Flags().StringVar(&prefix, "prefix", "perf-user", "prefix for generated user IDs")
	cmd.Flags().IntVar(&start, "start", 1, "starting index for generated user IDs when count > 1")
	cmd.Flags().StringVar(&output, "output", "", "file to write generated tokens as a JSON array")
	cmd.Flags().DurationVar(&ttl, "ttl", time.Hour, "token lifetime")
	return cmd
}

func userIDs(count int, prefix string, start int, args []string) []string {
	if len(args) > 0 {
		return []string{args[0]}
	}
	if count == 1 {
		return []string{prefix}
	}
	ids := make([]string, count)
	for i := range ids {
		ids[i] = fmt.Sprintf("%s-%d", prefix, start+i)
	}
	return ids
}

func writeTokens(path string, tokens []string) error {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	data, err := sonic.Marshal(tokens)
	if err != nil {
		return err
	}
	return os.WriteFile(path, append(data, '\n'), 0o600)
}
