package main

import (
	"fmt"
	"net/http"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func registerQueryCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "query <ppl>",
		Short:   "run a raw PPL statement through the server",
		Example: `signalctl query "source=otel-v1-apm-span-000001 | stats count() by serviceName"`,
		Args:    cobra.MinimumNArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			if err := runQuery(strings.Join(args, " ")); err != nil {
				fmt.Fprintln(os.Stderr, err)
				os.Exit(1)
			}
		},
	}
}

func runQuery(query string) error {
	var result struct {
		Columns []string                 `json:"columns"`
		Rows    []map[string]interface{} `json:"rows"`
		Size    int                      `json:"size"`
	}
	body := map[string]string{"query": query}
	if err := callAPI(http.MethodPost, "/api/v1/query", body, &result); err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 8, 2, ' ', 0)
	fmt.Fprintln(w, strings.Join(result.Columns, "\t"))
	for _, row := range result.Rows {
		cells := make([]string, len(result.Columns))
		for i, col := range result.Columns {
			cells[i] = fmt.Sprintf("%v", row[col])
		}
		fmt.Fprintln(w, strings.Join(cells, "\t"))
	}
	if err := w.Flush(); err != nil {
		return err
	}

	fmt.Printf("%d rows\n", result.Size)
	return nil
}
