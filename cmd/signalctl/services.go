package main

import (
	"fmt"
	"net/http"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/fidde/signal_explorer/internal/apm"
	"github.com/fidde/signal_explorer/pkg/models"
)

func registerServicesCommand() *cobra.Command {
	services := &cobra.Command{
		Use:   "services",
		Short: "service discovery commands",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println("please run with 'list' or 'map'.")
		},
	}

	var index string
	var since time.Duration
	var maxResults int

	list := &cobra.Command{
		Use:     "list",
		Short:   "list services seen in the window",
		Example: "signalctl services list --since 2h",
		Run: func(cmd *cobra.Command, args []string) {
			if err := listServices(index, since, maxResults); err != nil {
				fmt.Fprintln(os.Stderr, err)
				os.Exit(1)
			}
		},
	}
	list.Flags().StringVar(&index, "index", "otel-v1-apm-service", "index to query")
	list.Flags().DurationVar(&since, "since", time.Hour, "window length, ending now")
	list.Flags().IntVar(&maxResults, "max-results", 0, "cap on rows fetched, 0 means unbounded")

	var mapIndex string
	var mapSince time.Duration

	serviceMap := &cobra.Command{
		Use:     "map",
		Short:   "show the service topology in the window",
		Example: "signalctl services map --since 30m",
		Run: func(cmd *cobra.Command, args []string) {
			if err := showServiceMap(mapIndex, mapSince); err != nil {
				fmt.Fprintln(os.Stderr, err)
				os.Exit(1)
			}
		},
	}
	serviceMap.Flags().StringVar(&mapIndex, "index", "otel-v1-apm-service", "index to query")
	serviceMap.Flags().DurationVar(&mapSince, "since", time.Hour, "window length, ending now")

	services.AddCommand(list)
	services.AddCommand(serviceMap)
	return services
}

func window(since time.Duration) (string, string) {
	now := time.Now().UTC()
	return now.Add(-since).Format(time.RFC3339), now.Format(time.RFC3339)
}

func listServices(index string, since time.Duration, maxResults int) error {
	start, end := window(since)
	req := apm.Request{
		Index:      index,
		StartTime:  start,
		EndTime:    end,
		MaxResults: maxResults,
	}

	var result models.ListServicesResult
	if err := callAPI(http.MethodPost, "/api/v1/apm/services/list", req, &result); err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 8, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tENVIRONMENT\tTYPE")
	for _, svc := range result.ServiceSummaries {
		fmt.Fprintf(w, "%s\t%s\t%s\n",
			svc.KeyAttributes.Name, svc.KeyAttributes.Environment, svc.KeyAttributes.Type)
	}
	return w.Flush()
}

func showServiceMap(index string, since time.Duration) error {
	start, end := window(since)
	req := apm.Request{
		Index:     index,
		StartTime: start,
		EndTime:   end,
	}

	var result models.ServiceMapResult
	if err := callAPI(http.MethodPost, "/api/v1/apm/service-map", req, &result); err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 8, 2, ' ', 0)
	fmt.Fprintln(w, "SOURCE\tTARGET\tCALLS")
	for _, edge := range result.Edges {
		fmt.Fprintf(w, "%s\t%s\t%d\n", edge.Source.Name, edge.Target.Name, edge.CallCount)
	}
	if err := w.Flush(); err != nil {
		return err
	}

	fmt.Printf("%d nodes, %d edges\n", len(result.Nodes), len(result.Edges))
	return nil
}
