package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"github.com/eva-app/evaclient/pkg/metrics"
	"github.com/eva-app/evaclient/pkg/request"
)

func newCallCmd(g *globalFlags) *cobra.Command {
	var (
		data        string
		headers     []string
		showLoading bool
		noDedup     bool
		repeat      int
		showMetrics bool
	)

	cmd := &cobra.Command{
		Use:   "call <method> <path>",
		Short: "Send an authenticated request through the orchestrator",
		Example: `  eva call GET /api/pets --data '{"page":1}'
  eva call PUT /api/user/profile --data '{"nickname":"Rei"}' --loading
  eva call POST /api/auth/userInfo --repeat 5 --metrics`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			var body any
			if data != "" {
				if !json.Valid([]byte(data)) {
					return fmt.Errorf("--data is not valid JSON")
				}
				body = json.RawMessage(data)
			}
			hdrs, err := parseHeaders(headers)
			if err != nil {
				return err
			}
			if repeat < 1 {
				repeat = 1
			}

			a, err := openApp(g)
			if err != nil {
				return err
			}
			defer a.Close()

			req := request.Request{
				Method: args[0],
				Path:   args[1],
				Body:   body,
				Options: request.Options{
					ShowLoading:  showLoading,
					DisableDedup: noDedup,
					Headers:      hdrs,
				},
			}

			results := make([]json.RawMessage, repeat)
			errs := make([]error, repeat)
			var wg sync.WaitGroup
			for i := 0; i < repeat; i++ {
				wg.Add(1)
				go func(i int) {
					defer wg.Done()
					results[i], errs[i] = a.orch.Do(cmd.Context(), req)
				}(i)
			}
			wg.Wait()

			if showMetrics {
				if err := printCounters(); err != nil {
					return err
				}
			}
			if errs[0] != nil {
				return fmt.Errorf("%s %s: %w", strings.ToUpper(req.Method), req.Path, errs[0])
			}
			return printJSON(results[0])
		},
	}

	cmd.Flags().StringVarP(&data, "data", "d", "", "JSON body (query parameters for GET)")
	cmd.Flags().StringArrayVarP(&headers, "header", "H", nil, "extra header as Key=Value (repeatable)")
	cmd.Flags().BoolVar(&showLoading, "loading", false, "show the loading indicator")
	cmd.Flags().BoolVar(&noDedup, "no-dedup", false, "do not coalesce identical in-flight calls")
	cmd.Flags().IntVar(&repeat, "repeat", 1, "issue the call this many times concurrently")
	cmd.Flags().BoolVar(&showMetrics, "metrics", false, "print request counters afterwards")
	return cmd
}

func parseHeaders(pairs []string) (map[string]string, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	out := make(map[string]string, len(pairs))
	for _, p := range pairs {
		k, v, ok := strings.Cut(p, "=")
		k = strings.TrimSpace(k)
		if !ok || k == "" {
			return nil, fmt.Errorf("invalid header %q, want Key=Value", p)
		}
		out[k] = strings.TrimSpace(v)
	}
	return out, nil
}

func printJSON(raw json.RawMessage) error {
	if len(raw) == 0 {
		fmt.Println("null")
		return nil
	}
	var buf bytes.Buffer
	if err := json.Indent(&buf, raw, "", "  "); err != nil {
		_, err = os.Stdout.Write(append(raw, '\n'))
		return err
	}
	buf.WriteByte('\n')
	_, err := buf.WriteTo(os.Stdout)
	return err
}

func printCounters() error {
	counters, err := metrics.Counters()
	if err != nil {
		return err
	}
	names := make([]string, 0, len(counters))
	for name := range counters {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(os.Stderr, "%s %g\n", name, counters[name])
	}
	return nil
}
