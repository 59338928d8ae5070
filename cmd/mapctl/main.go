// Command mapctl checks presets, map images and stored maps from the shell.
// It reads the same preset directory and data directory as the server, so it
// can report coverage without a running editor.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/B2Gdevs/magicborn-opensource-sub000/editor/completion"
	"github.com/B2Gdevs/magicborn-opensource-sub000/editor/coords"
	"github.com/B2Gdevs/magicborn-opensource-sub000/editor/grid"
	"github.com/B2Gdevs/magicborn-opensource-sub000/editor/preset"
	"github.com/B2Gdevs/magicborn-opensource-sub000/editor/store"
)

const version = "1.0.0"

var errInvalidPresets = errors.New("invalid presets found")

func main() {
	if err := newApp(os.Stdout).Run(context.Background(), os.Args); err != nil {
		log.Fatal(err)
	}
}

func newApp(out io.Writer) *cli.Command {
	return &cli.Command{
		Name:    "mapctl",
		Usage:   "inspect map editor presets, images and stored maps",
		Version: version,
		Writer:  out,
		Commands: []*cli.Command{
			{
				Name:  "validate",
				Usage: "validate every preset file in a directory",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "dir", Value: "presets", Usage: "preset directory", Sources: cli.EnvVars("PRESET_DIR")},
				},
				Action: func(ctx context.Context, cmd *cli.Command) error {
					return validatePresets(out, cmd.String("dir"))
				},
			},
			{
				Name:      "inspect",
				Usage:     "derive a coordinate config from a map image",
				ArgsUsage: "<image>",
				Flags: []cli.Flag{
					&cli.IntFlag{Name: "cell-size", Value: 16, Usage: "base cell size in pixels"},
					&cli.IntFlag{Name: "zone-size", Value: 8, Usage: "zone size in cells"},
					&cli.FloatFlag{Name: "world-width", Value: 100000, Usage: "world width in engine units"},
					&cli.FloatFlag{Name: "world-height", Value: 100000, Usage: "world height in engine units"},
					&cli.BoolFlag{Name: "json", Usage: "print the config as JSON"},
				},
				Action: func(ctx context.Context, cmd *cli.Command) error {
					if cmd.Args().Len() != 1 {
						return fmt.Errorf("expected one image path, got %d arguments", cmd.Args().Len())
					}
					return inspectImage(out, cmd.Args().First(), cmd.Int("cell-size"), cmd.Int("zone-size"),
						cmd.Float("world-width"), cmd.Float("world-height"), cmd.Bool("json"))
				},
			},
			{
				Name:  "completion",
				Usage: "report content coverage of stored maps",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "data-dir", Value: "data", Usage: "editor data directory", Sources: cli.EnvVars("DATA_DIR")},
					&cli.StringFlag{Name: "map", Usage: "only this map id"},
					&cli.IntFlag{Name: "benchmark", Usage: "compare content cells against this many cells"},
					&cli.BoolFlag{Name: "zones", Usage: "print coverage per zone"},
				},
				Action: func(ctx context.Context, cmd *cli.Command) error {
					return reportCompletion(ctx, out, cmd.String("data-dir"), cmd.String("map"), cmd.Int("benchmark"), cmd.Bool("zones"))
				},
			},
			{
				Name:  "grid",
				Usage: "summarise the grid lines of an area",
				Flags: []cli.Flag{
					&cli.FloatFlag{Name: "width", Value: 1024, Usage: "area width in pixels"},
					&cli.FloatFlag{Name: "height", Value: 1024, Usage: "area height in pixels"},
					&cli.FloatFlag{Name: "cell-size", Value: 16, Usage: "cell size in pixels"},
					&cli.FloatFlag{Name: "zoom", Value: 1, Usage: "zoom factor"},
					&cli.BoolFlag{Name: "json", Usage: "print every line as JSON"},
				},
				Action: func(ctx context.Context, cmd *cli.Command) error {
					return describeGrid(out, cmd.Float("width"), cmd.Float("height"), cmd.Float("cell-size"), cmd.Float("zoom"), cmd.Bool("json"))
				},
			},
		},
	}
}

func validatePresets(out io.Writer, dir string) error {
	manager, err := preset.NewManager(dir)
	if err != nil {
		return err
	}

	files, err := filepath.Glob(filepath.Join(dir, "*.json"))
	if err != nil {
		return err
	}

	invalid := 0
	for _, file := range files {
		id := strings.TrimSuffix(filepath.Base(file), ".json")
		p, err := manager.Load(id)
		if err != nil {
			invalid++
			fmt.Fprintf(out, "⚠️  %s: %v\n", id, err)
			continue
		}
		cfg := p.Config
		fmt.Fprintf(out, "✅ %s (%s): %dx%d px, %dx%d cells, %dx%d zones\n",
			id, p.Name, cfg.ImageWidth, cfg.ImageHeight, cfg.CellsX(), cfg.CellsY(), cfg.ZonesX(), cfg.ZonesY())
	}

	fmt.Fprintf(out, "\n%d presets, %d invalid\n", len(files), invalid)
	if invalid > 0 {
		return fmt.Errorf("%w: %d of %d", errInvalidPresets, invalid, len(files))
	}
	return nil
}

func inspectImage(out io.Writer, path string, cellSize, zoneSize int, worldWidth, worldHeight float64, asJSON bool) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open image: %w", err)
	}
	defer f.Close()

	cfg, info, err := coords.ConfigFromImage(f, cellSize, zoneSize, worldWidth, worldHeight)
	if err != nil {
		return err
	}

	if asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(cfg)
	}

	fmt.Fprintf(out, "Image: %s %dx%d\n", info.Format, info.Width, info.Height)
	fmt.Fprintf(out, "Cells: %dx%d (%d total)\n", cfg.CellsX(), cfg.CellsY(), cfg.TotalCells())
	fmt.Fprintf(out, "Zones: %dx%d\n", cfg.ZonesX(), cfg.ZonesY())
	fmt.Fprintf(out, "World units per pixel: %.3f x %.3f\n",
		cfg.UnrealWidth/float64(cfg.ImageWidth), cfg.UnrealHeight/float64(cfg.ImageHeight))
	return nil
}

func reportCompletion(ctx context.Context, out io.Writer, dataDir, mapID string, benchmark int, zones bool) error {
	fs, err := store.NewFileStore(dataDir)
	if err != nil {
		return err
	}

	var maps []store.MapRecord
	if mapID != "" {
		m, err := fs.GetMap(ctx, mapID)
		if err != nil {
			return err
		}
		maps = append(maps, m)
	} else if maps, err = fs.ListMaps(ctx); err != nil {
		return err
	}

	if len(maps) == 0 {
		fmt.Fprintln(out, "No maps found")
		return nil
	}

	for _, m := range maps {
		regions, err := fs.ListRegions(ctx, m.ID)
		if err != nil {
			return err
		}
		placements, err := fs.ListPlacements(ctx, m.ID)
		if err != nil {
			return err
		}
		pixels := store.Pixels(placements)

		result, err := completion.Calculate(m.Config, regions, m.BaseRegionID, pixels)
		if err != nil {
			fmt.Fprintf(out, "\n=== %s (%s) ===\nError: %v\n", m.Name, m.ID, err)
			continue
		}
		result = result.WithBenchmark(benchmark)

		fmt.Fprintf(out, "\n=== %s (%s) ===\n", m.Name, m.ID)
		fmt.Fprintf(out, "Completion: %.2f%% (%d of %d cells)\n", result.Percentage, result.CellsWithContent, result.TotalCells)
		fmt.Fprintf(out, "Regions: %d | region cells %d | placement cells %d\n", result.RealRegions, result.RegionCells, result.PlacementCells)
		if result.BenchmarkCells > 0 {
			fmt.Fprintf(out, "Benchmark: %.1f%% of %d cells\n", result.BenchmarkRatio, result.BenchmarkCells)
		}

		if !zones {
			continue
		}
		report, err := completion.ZoneCoverage(m.Config, regions, m.BaseRegionID, pixels)
		if err != nil {
			return err
		}
		printZones(out, report)
	}
	return nil
}

func printZones(out io.Writer, r completion.ZoneReport) {
	fmt.Fprintf(out, "Zones: %dx%d | mean %.1f%% | min %.1f%% | max %.1f%%\n", r.ZonesX, r.ZonesY, r.Mean, r.Min, r.Max)
	for y := 0; y < r.ZonesY; y++ {
		row := make([]string, 0, r.ZonesX)
		for x := 0; x < r.ZonesX && y*r.ZonesX+x < len(r.Zones); x++ {
			row = append(row, fmt.Sprintf("%3.0f", r.Zones[y*r.ZonesX+x].Percentage))
		}
		fmt.Fprintln(out, strings.Join(row, " "))
	}
}

func describeGrid(out io.Writer, width, height, cellSize, zoom float64, asJSON bool) error {
	lines := grid.Lines(width, height, cellSize, zoom)
	if asJSON {
		return json.NewEncoder(out).Encode(lines)
	}
	if len(lines) == 0 {
		return fmt.Errorf("no grid lines for %gx%g at cell size %g, zoom %g", width, height, cellSize, zoom)
	}

	counts := map[grid.Kind]int{}
	for _, l := range lines {
		counts[l.Kind]++
	}
	fmt.Fprintf(out, "Lines: %d (main %d, sub %d)\n", len(lines), counts[grid.Main], counts[grid.Sub])
	return nil
}
