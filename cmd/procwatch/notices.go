package main

import (
	"encoding/json"
	"fmt"
	"slices"
	"time"

	"github.com/spf13/cobra"

	"github.com/jonathan/procurement-watch/internal/catalog"
	"github.com/jonathan/procurement-watch/internal/observability"
	"github.com/jonathan/procurement-watch/internal/store"
	"github.com/jonathan/procurement-watch/internal/types"
)

var noticesCmd = &cobra.Command{
	Use:   "notices",
	Short: "List stored notices, newest first",
	Long: `Lists stored notices tagged with their source region, category and label.
Notices first seen within the last 24 hours are marked with ★.`,
	RunE: runNotices,
}

var (
	noticesQuery    string
	noticesRegion   string
	noticesCategory string
	noticesNew      bool
	noticesLimit    int
	noticesJSON     bool
)

func init() {
	noticesCmd.Flags().StringVar(&noticesQuery, "q", "", "Free-text filter over title, buyer, country, notice id, url and label")
	noticesCmd.Flags().StringVar(&noticesRegion, "region", "", "Only notices from this region (EU, UK, Nordics, Baltics, US)")
	noticesCmd.Flags().StringVar(&noticesCategory, "category", "", "Only notices in this category (crypto, insider_threat)")
	noticesCmd.Flags().BoolVar(&noticesNew, "new", false, "Only notices first seen within the last 24 hours")
	noticesCmd.Flags().IntVarP(&noticesLimit, "limit", "n", 0, "Maximum notices to print (0 prints all)")
	noticesCmd.Flags().BoolVar(&noticesJSON, "json", false, "Print notices as JSON")
	rootCmd.AddCommand(noticesCmd)
}

func runNotices(cmd *cobra.Command, _ []string) error {
	cfg, err := resolveConfig(cmd)
	if err != nil {
		return err
	}

	ws, err := openWorkspace(cmd.Context(), cfg, false, nil)
	if err != nil {
		return err
	}
	defer ws.Close()

	filter, err := buildFilter(ws.catalog, noticesQuery, noticesRegion, noticesCategory, noticesNew)
	if err != nil {
		return err
	}

	now := time.Now()
	notices := filter.Apply(ws.runner.Snapshot().Store.Tagged(ws.catalog, now))
	if noticesJSON {
		if noticesLimit > 0 && len(notices) > noticesLimit {
			notices = notices[:noticesLimit]
		}
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(notices)
	}
	observability.NewPrinter(cmd.OutOrStdout()).PrintNotices(notices, noticesLimit)
	return nil
}

// buildFilter validates the region and category against the catalog
func buildFilter(cat *catalog.Catalog, query, region, category string, newOnly bool) (store.Filter, error) {
	filter := store.Filter{Query: query, NewOnly: newOnly}
	if region != "" {
		filter.Region = types.Region(region)
		if !slices.Contains(cat.Regions(), filter.Region) {
			return filter, fmt.Errorf("unknown region %q (known: %v)", region, cat.Regions())
		}
	}
	if category != "" {
		filter.Category = types.Category(category)
		if !slices.Contains(cat.Categories(), filter.Category) {
			return filter, fmt.Errorf("unknown category %q (known: %v)", category, cat.Categories())
		}
	}
	return filter, nil
}
