package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/zatekoja/storefront-catalog/internal/application/catalog"
	"github.com/zatekoja/storefront-catalog/internal/domain/entities"
	"github.com/zatekoja/storefront-catalog/internal/domain/providers"
	"github.com/zatekoja/storefront-catalog/internal/infrastructure/clients/storeapi"
	"github.com/zatekoja/storefront-catalog/internal/infrastructure/observability"
	"github.com/zatekoja/storefront-catalog/pkg/config"
)

func main() {
	var (
		view      string
		query     string
		format    string
		pages     int
		listViews bool
	)
	flag.StringVar(&view, "view", "shop", "catalog view to resolve")
	flag.StringVar(&query, "query", "", "catalog URL query, e.g. color=Gold&page=2")
	flag.StringVar(&format, "format", "table", "output format: table or json")
	flag.IntVar(&pages, "pages", 1, "number of consecutive pages to walk")
	flag.BoolVar(&listViews, "views", false, "list the configured views and exit")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load config")
	}
	observability.InitLogger("catalogctl", cfg.App.Env, cfg.App.LogLevel)

	views, err := catalog.NewViewRegistry(catalog.DefaultViews()...)
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid view configuration")
	}

	if listViews {
		printViews(os.Stdout, views.List())
		return
	}

	viewCfg, err := views.Get(view)
	if err != nil {
		log.Fatal().Err(err).Str("view", view).Msg("Unknown view")
	}

	client := storeapi.NewClient(cfg.StoreAPI.BaseURL, cfg.StoreAPI.Timeout)
	if err := walk(client, viewCfg, cfg.Catalog.FetchTimeout, strings.TrimPrefix(query, "?"), format, pages); err != nil {
		log.Error().Err(err).Str("view", view).Msg("Catalog walk failed")
		os.Exit(1)
	}
}

// walk mounts the view and prints up to pages consecutive settled pages
func walk(provider providers.CatalogProvider, view entities.ViewConfig, timeout time.Duration, query, format string, pages int) error {
	controller := catalog.NewController(view, provider, catalog.WithFetchTimeout(timeout))
	defer controller.Close()

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(pages+1)*timeout)
	defer cancel()

	if _, err := controller.Mount(ctx, query); err != nil {
		return fmt.Errorf("mount: %w", err)
	}

	for i := 0; i < pages; i++ {
		snap, err := controller.Await(ctx)
		if err != nil {
			return fmt.Errorf("await: %w", err)
		}
		if err := render(os.Stdout, format, snap); err != nil {
			return err
		}
		if snap.Phase == entities.CatalogPhaseFailed && snap.Error != nil {
			return fmt.Errorf("%s: %s", snap.Error.Kind, snap.Error.Message)
		}
		if !snap.HasNext || i == pages-1 {
			return nil
		}
		if _, err := controller.Dispatch(ctx, catalog.NextPage()); err != nil {
			return fmt.Errorf("next page: %w", err)
		}
	}
	return nil
}

func render(w io.Writer, format string, snap entities.CatalogSnapshot) error {
	if format == "json" {
		out, err := json.MarshalIndent(snap, "", "  ")
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(w, string(out))
		return err
	}

	fmt.Fprintf(w, "%s ?%s  page %d/%d  (%d products)\n", snap.View, snap.URL, snap.CurrentPage, snap.TotalPages, snap.TotalProducts)
	if snap.Error != nil {
		fmt.Fprintf(w, "error: %s: %s\n", snap.Error.Kind, snap.Error.Message)
		return nil
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tPRICE\tSALE")
	for _, p := range snap.Products {
		sale := ""
		if p.OnSale() {
			sale = p.EffectivePrice().StringFixed(2)
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", p.ID, p.Name, p.Price.StringFixed(2), sale)
	}
	return tw.Flush()
}

func printViews(w io.Writer, views []entities.ViewConfig) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tTITLE\tFACETS")
	for _, v := range views {
		facets := make([]string, 0, len(v.Facets))
		for _, f := range v.Facets {
			facets = append(facets, string(f))
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\n", v.Name, v.Title, strings.Join(facets, ","))
	}
	_ = tw.Flush()
}
