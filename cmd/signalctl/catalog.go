package main

import (
	"fmt"
	"net/http"
	"net/url"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/fidde/signal_explorer/pkg/models"
)

func registerCatalogCommand() *cobra.Command {
	catalog := &cobra.Command{
		Use:   "catalog",
		Short: "catalog cache commands",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println("please run with 'show', 'refresh' or 'clear'.")
		},
	}

	show := &cobra.Command{
		Use:   "show",
		Short: "show the cached data source tree",
		Run: func(cmd *cobra.Command, args []string) {
			if err := showCatalog(); err != nil {
				fmt.Fprintln(os.Stderr, err)
				os.Exit(1)
			}
		},
	}

	refresh := &cobra.Command{
		Use:     "refresh <datasource>",
		Short:   "refresh one data source from its live provider",
		Example: "signalctl catalog refresh flint_s3",
		Args:    cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			if err := refreshCatalog(args[0]); err != nil {
				fmt.Fprintln(os.Stderr, err)
				os.Exit(1)
			}
		},
	}

	clear := &cobra.Command{
		Use:   "clear",
		Short: "clear the data source and acceleration caches",
		Run: func(cmd *cobra.Command, args []string) {
			if err := clearCatalog(); err != nil {
				fmt.Fprintln(os.Stderr, err)
				os.Exit(1)
			}
		},
	}

	catalog.AddCommand(show)
	catalog.AddCommand(refresh)
	catalog.AddCommand(clear)
	return catalog
}

func showCatalog() error {
	var cache models.DataSourceCacheData
	if err := callAPI(http.MethodGet, "/api/v1/catalog/datasources", nil, &cache); err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 8, 2, ' ', 0)
	fmt.Fprintln(w, "DATASOURCE\tDATABASE\tTABLES\tSTATUS\tLAST UPDATED")
	for _, ds := range cache.DataSources {
		if len(ds.Databases) == 0 {
			fmt.Fprintf(w, "%s\t-\t0\t%s\t%s\n", ds.Name, ds.Status, ds.LastUpdated)
			continue
		}
		for _, db := range ds.Databases {
			fmt.Fprintf(w, "%s\t%s\t%d\t%s\t%s\n",
				ds.Name, db.Name, len(db.Tables), db.Status, db.LastUpdated)
		}
	}
	return w.Flush()
}

func refreshCatalog(name string) error {
	var resp struct {
		Message    string `json:"message"`
		DataSource string `json:"dataSource"`
	}
	path := "/api/v1/catalog/datasources/" + url.PathEscape(name) + "/refresh"
	if err := callAPI(http.MethodPost, path, nil, &resp); err != nil {
		return err
	}
	fmt.Printf("%s: %s\n", resp.DataSource, resp.Message)
	return nil
}

func clearCatalog() error {
	var resp struct {
		Message string `json:"message"`
	}
	if err := callAPI(http.MethodDelete, "/api/v1/catalog/cache", nil, &resp); err != nil {
		return err
	}
	fmt.Println(resp.Message)
	return nil
}
