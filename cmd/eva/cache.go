package main

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

func newCacheCmd(g *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect and edit the local cache",
	}

	getCmd := &cobra.Command{
		Use:   "get <key>",
		Short: "Print a cached value",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(g)
			if err != nil {
				return err
			}
			defer a.Close()

			raw, ok := a.cache.GetRaw(args[0])
			if !ok {
				return fmt.Errorf("%s: not cached", args[0])
			}
			return printJSON(raw)
		},
	}

	var ttl time.Duration
	setCmd := &cobra.Command{
		Use:   "set <key> <json>",
		Short: "Cache a JSON value",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !json.Valid([]byte(args[1])) {
				return fmt.Errorf("value is not valid JSON")
			}
			a, err := openApp(g)
			if err != nil {
				return err
			}
			defer a.Close()

			a.cache.Set(args[0], json.RawMessage(args[1]), ttl)
			return nil
		},
	}
	setCmd.Flags().DurationVar(&ttl, "ttl", 0, "time to live (0 keeps the value until removed)")

	rmCmd := &cobra.Command{
		Use:   "rm <key>...",
		Short: "Remove cached keys",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(g)
			if err != nil {
				return err
			}
			defer a.Close()

			for _, k := range args {
				a.cache.Remove(k)
			}
			return nil
		},
	}

	clearCmd := &cobra.Command{
		Use:   "clear",
		Short: "Remove every cached key, including the session",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(g)
			if err != nil {
				return err
			}
			defer a.Close()

			a.cache.Clear()
			fmt.Println("All cache entries cleared.")
			return nil
		},
	}

	statsCmd := &cobra.Command{
		Use:   "stats",
		Short: "Show cache statistics",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(g)
			if err != nil {
				return err
			}
			defer a.Close()

			keys, err := a.kv.Keys()
			if err != nil {
				return err
			}
			stats := a.cache.Stats()
			fmt.Printf("Entries: %d\nHits:    %d\nMisses:  %d\n", stats.Entries, stats.Hits, stats.Misses)
			for _, k := range keys {
				fmt.Printf("  %s\n", k)
			}
			return nil
		},
	}

	cmd.AddCommand(getCmd, setCmd, rmCmd, clearCmd, statsCmd)
	return cmd
}
