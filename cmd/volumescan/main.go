package main

import (
	"fmt"
	"log"
	"os"

	"github.com/spf13/cobra"

	"github.com/umzugtech/volumescan/internal/bridge"
	"github.com/umzugtech/volumescan/internal/catalog"
	"github.com/umzugtech/volumescan/internal/config"
	"github.com/umzugtech/volumescan/internal/db"
	"github.com/umzugtech/volumescan/internal/estimate"
	"github.com/umzugtech/volumescan/internal/logging"
	"github.com/umzugtech/volumescan/internal/photostore/local"
	"github.com/umzugtech/volumescan/internal/quote"
	"github.com/umzugtech/volumescan/internal/service"
	"github.com/umzugtech/volumescan/internal/store"
	"github.com/umzugtech/volumescan/internal/vision"
	googlevision "github.com/umzugtech/volumescan/internal/vision/google"
	"github.com/umzugtech/volumescan/internal/web"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "volumescan",
		Short:         "Furniture volume scanning for moving quotes",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.AddCommand(newServeCommand())
	cmd.AddCommand(newCatalogCommand())
	return cmd
}

func newServeCommand() *cobra.Command {
	var arHosted bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the scan API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(arHosted)
		},
	}
	cmd.Flags().BoolVar(&arHosted, "ar-hosted", false, "attach the HTTP AR transport for a native host")
	return cmd
}

func serve(arHosted bool) error {
	cfg := config.Load()

	logger, cleanup, err := logging.New(cfg.LogLevel, cfg.LogFile)
	if err != nil {
		log.Fatalf("failed to initialize logger: %v", err)
	}
	defer cleanup()

	database, err := db.Open(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer func() {
		if err := database.Close(); err != nil {
			logger.Error("failed to close database", "error", err)
		}
	}()

	cat, err := catalog.New()
	if err != nil {
		return fmt.Errorf("failed to load furniture catalog: %w", err)
	}

	photoStg, err := local.NewLocalPhotoStore(cfg.PhotoPath)
	if err != nil {
		return fmt.Errorf("failed to initialize photo store: %w", err)
	}

	var provider vision.Detector
	if cfg.VisionAPIKey != "" {
		logger.Info("using Google Vision detection")
		provider = googlevision.NewClient(cfg.VisionAPIKey)
	} else {
		logger.Warn("VISION_API_KEY not set, photo scans use fallback detection")
	}
	gateway := vision.NewGateway(provider, logger)

	var transport *web.ARTransport
	if arHosted {
		transport = web.NewARTransport()
	}
	br := bridge.New(arTransport(transport), logger, bridge.WithWaitTimeout(cfg.ARWaitTimeout))
	defer br.Close()

	thresholds := quote.Thresholds{
		MinTotalVolumeM3:   cfg.QualityMinTotalVolume,
		MinConfidence:      cfg.QualityMinConfidence,
		MaxAvgItemVolumeM3: cfg.QualityMaxAvgVolume,
		MinAvgItemVolumeM3: cfg.QualityMinAvgVolume,
	}

	svc := service.NewScanService(
		gateway,
		estimate.NewCatalogEstimator(cat),
		cat,
		photoStg,
		store.NewScanStore(database),
		thresholds,
		logger,
	)

	server := web.NewServer(svc, br, transport, logger)
	if err := server.ListenAndServe(cfg.ListenAddr); err != nil {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

// arTransport avoids handing the bridge a non-nil interface wrapping a nil
// pointer when no AR host is attached.
func arTransport(t *web.ARTransport) bridge.Transport {
	if t == nil {
		return nil
	}
	return t
}

func newCatalogCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "catalog",
		Short: "Print the furniture reference catalog",
		RunE: func(cmd *cobra.Command, args []string) error {
			cat, err := catalog.New()
			if err != nil {
				return err
			}
			for _, t := range cat.Types() {
				entry, err := cat.Lookup(t)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%-16s %-22s %.0fx%.0fx%.0f cm  %.0f kg\n",
					t, entry.Name,
					entry.Dimensions.LengthCM, entry.Dimensions.WidthCM, entry.Dimensions.HeightCM,
					entry.WeightKg)
			}
			return nil
		},
	}
}
