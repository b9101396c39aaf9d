package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kass/heritage-map/pkg/config"
	"github.com/kass/heritage-map/pkg/export"
	"github.com/kass/heritage-map/pkg/logger"
	"github.com/kass/heritage-map/pkg/pipeline"
	"github.com/kass/heritage-map/pkg/sample"
	"github.com/spf13/cobra"
)

var configFile string

var rootCmd = &cobra.Command{
	Use:   "heritage-map",
	Short: "Heritage site density web map",
	Long: `Aggregates heritage sites into a square grid and publishes the density
as a self-contained Leaflet web map with the source layers as overlays.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

var renderCmd = &cobra.Command{
	Use:   "render",
	Short: "Build the density grid and write the web map",
	RunE:  runRender,
}

var gridCmd = &cobra.Command{
	Use:   "grid",
	Short: "Build and aggregate the grid without rendering the map",
	Long:  `Runs every stage up to the filled grid, prints a summary and writes --grid-output when set.`,
	RunE:  runGrid,
}

var sampleCmd = &cobra.Command{
	Use:   "sample",
	Short: "Write a synthetic dataset around Yekaterinburg",
	RunE:  runSample,
}

var (
	sampleDir    string
	samplePoints int
	sampleSeed   int64
)

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVarP(&configFile, "config", "c", "", "Config file (default ./heritage-map.yaml if present)")
	pf.String("bounds", "", "City bounds layer (GeoJSON file or postgis:// url)")
	pf.String("points", "", "Heritage sites layer")
	pf.String("buildings", "", "Heritage buildings layer")
	pf.String("ensembles", "", "Ensembles and places of interest layer")
	pf.StringP("output", "o", "", "Web map output path")
	pf.String("grid-output", "", "Aggregated grid output (.geojson or .fgb)")
	pf.String("report", "", "Density report output path")
	pf.Float64P("square-size", "s", 0, "Grid cell side in CRS units")
	pf.String("crs", "", `Working CRS (EPSG code, proj4 string or "auto")`)
	pf.Int("zoom", 0, "Initial map zoom")
	pf.String("tiles", "", "Tile provider or URL template")
	pf.String("log-mode", "", "Log mode: dev, prod or quiet")

	sampleCmd.Flags().StringVarP(&sampleDir, "dir", "d", ".", "Output directory")
	sampleCmd.Flags().IntVarP(&samplePoints, "points", "p", 1500, "Number of heritage sites to generate")
	sampleCmd.Flags().Int64Var(&sampleSeed, "seed", 1, "Random seed")

	rootCmd.AddCommand(renderCmd, gridCmd, sampleCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, errorStyle.Render("✗ "+err.Error()))
		stop()
		os.Exit(1)
	}
}

// setup loads the configuration and the logger of a pipeline command.
func setup(cmd *cobra.Command) (*config.Config, *logger.Logger, error) {
	cfg, err := config.Load(configFile, cmd.Flags())
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %w", pipeline.ErrConfig, err)
	}
	log, err := logger.New(cfg.Log.Mode)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create logger: %w", err)
	}
	return cfg, log, nil
}

func runRender(cmd *cobra.Command, args []string) error {
	cfg, log, err := setup(cmd)
	if err != nil {
		return err
	}
	defer log.Sync()

	start := time.Now()
	res, err := pipeline.Run(cmd.Context(), cfg, log)
	if err != nil {
		log.Error("render failed", "error", err)
		return err
	}

	fmt.Println(renderGridSummary(cfg, res, time.Since(start)))
	fmt.Println(successStyle.Render("✓ Map written to " + cfg.Output.Map))
	return nil
}

func runGrid(cmd *cobra.Command, args []string) error {
	cfg, log, err := setup(cmd)
	if err != nil {
		return err
	}
	defer log.Sync()

	start := time.Now()
	res, err := pipeline.Aggregate(cmd.Context(), cfg, log)
	if err != nil {
		log.Error("grid failed", "error", err)
		return err
	}
	if cfg.Output.Grid != "" {
		if err := export.WriteGrid(cfg.Output.Grid, res.Grid, res.CRS); err != nil {
			log.Error("grid export failed", "path", cfg.Output.Grid, "error", err)
			return fmt.Errorf("%w: %w", pipeline.ErrRender, err)
		}
	}

	fmt.Println(renderGridSummary(cfg, res, time.Since(start)))
	if cfg.Output.Grid != "" {
		fmt.Println(successStyle.Render("✓ Grid written to " + cfg.Output.Grid))
	}
	return nil
}

func runSample(cmd *cobra.Command, args []string) error {
	if samplePoints < 1 {
		return fmt.Errorf("--points must be positive, got %d", samplePoints)
	}
	d := sample.Generate(samplePoints, sampleSeed)
	if err := d.Write(sampleDir); err != nil {
		return err
	}

	fmt.Println(boxStyle.Render(
		successStyle.Render("Sample dataset written\n\n") +
			renderStat("Directory", sampleDir) + "\n" +
			renderStat("Heritage sites", len(d.Points.Features)) + "\n" +
			renderStat("Buildings", len(d.Buildings.Features)) + "\n" +
			renderStat("Ensembles", len(d.Ensembles.Features)) + "\n" +
			renderStat("Seed", sampleSeed),
	))
	return nil
}
