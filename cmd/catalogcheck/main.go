// Command catalogcheck validates the two fixture catalogs the viewer is
// driven by: satellite_images.json and geojson_files.json. It reports
// malformed layer references, images with bad render bounds, dates without a
// satellite image and AOIs the viewer cannot fit.
//
// Usage:
//
//	go run ./cmd/catalogcheck --url https://data.example.com/fixtures/
//	go run ./cmd/catalogcheck --dir data/fixtures --strict
//	go run ./cmd/catalogcheck list --dir data/fixtures
package main

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/couchcryptid/floodview/internal/adapter/fixtures"
	"github.com/couchcryptid/floodview/internal/domain"
	"github.com/couchcryptid/floodview/internal/observability"
)

var (
	dataURL string
	dataDir string
	strict  bool
	timeout time.Duration
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "catalogcheck",
		Short: "Validate flood viewer fixture catalogs",
		Long: `catalogcheck loads satellite_images.json and geojson_files.json from a
base URL or a local directory and checks them for problems the viewer
would otherwise hit at runtime.`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			imagesRaw, aoisRaw, err := readCatalogs(cmd.Context())
			if err != nil {
				return err
			}
			cmd.Println("=== Catalog Validation ===")
			if !report(cmd.OutOrStdout(), checkCatalogs(imagesRaw, aoisRaw), strict) {
				return fmt.Errorf("validation failed")
			}
			cmd.Println("\nAll validations passed.")
			return nil
		},
	}

	rootCmd.PersistentFlags().StringVarP(&dataURL, "url", "u", os.Getenv("DATA_URL"), "Base URL serving the fixture files")
	rootCmd.PersistentFlags().StringVarP(&dataDir, "dir", "d", "", "Local directory holding the fixture files (overrides --url)")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 10*time.Second, "HTTP timeout per fixture")
	rootCmd.Flags().BoolVar(&strict, "strict", false, "Fail on notes as well as errors")

	addListCmd(rootCmd)

	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}

// addListCmd adds a 'list' subcommand printing every model, AOI and date range.
func addListCmd(rootCmd *cobra.Command) {
	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List models, AOIs and their dates",
		RunE: func(cmd *cobra.Command, _ []string) error {
			imagesRaw, aoisRaw, err := readCatalogs(cmd.Context())
			if err != nil {
				return err
			}
			images, err := domain.DecodeImageCatalog(bytes.NewReader(imagesRaw))
			if err != nil {
				return err
			}
			aois, err := domain.DecodeAOICatalog(bytes.NewReader(aoisRaw))
			if err != nil {
				return err
			}
			listCatalog(cmd.OutOrStdout(), aois, images)
			return nil
		},
	}
	rootCmd.AddCommand(listCmd)
}

func listCatalog(w io.Writer, aois domain.AOICatalog, images domain.ImageCatalog) {
	for _, model := range aois.Models() {
		fmt.Fprintln(w, model)
		for _, aoi := range aois.AOIs(model) {
			dates, _ := aois.Dates(model, aoi)
			withImage := 0
			for _, d := range dates {
				if _, ok := images.Lookup(aoi, d); ok {
					withImage++
				}
			}
			fmt.Fprintf(w, "  %-14s %3d dates  %s .. %s  images %d/%d\n", aoi, len(dates),
				domain.FormatDateLabel(dates[0]), domain.FormatDateLabel(dates[len(dates)-1]),
				withImage, len(dates))
		}
	}
}

// readCatalogs returns the raw bytes of both fixture files.
func readCatalogs(ctx context.Context) (imagesRaw, aoisRaw []byte, err error) {
	if dataDir != "" {
		if imagesRaw, err = os.ReadFile(filepath.Join(dataDir, fixtures.ImagesFile)); err != nil {
			return nil, nil, err
		}
		if aoisRaw, err = os.ReadFile(filepath.Join(dataDir, fixtures.AOIsFile)); err != nil {
			return nil, nil, err
		}
		return imagesRaw, aoisRaw, nil
	}

	if dataURL == "" {
		return nil, nil, fmt.Errorf("one of --url or --dir is required")
	}
	base := dataURL
	if !strings.HasSuffix(base, "/") {
		base += "/"
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
	client := fixtures.NewClient(base, timeout, observability.NewMetrics(), logger)

	if imagesRaw, err = client.FetchRaw(ctx, fixtures.ImagesFile); err != nil {
		return nil, nil, err
	}
	if aoisRaw, err = client.FetchRaw(ctx, fixtures.AOIsFile); err != nil {
		return nil, nil, err
	}
	return imagesRaw, aoisRaw, nil
}
