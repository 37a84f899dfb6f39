package main

import (
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"binmorph/internal/logging"
	"binmorph/pkg/config"
	"binmorph/pkg/pipeline"
)

// maxListedComponents caps the per-component lines of the summary
const maxListedComponents = 10

func main() {
	// Parse command line arguments
	inputFile := flag.String("input", "", "Image to process (png, jpeg, gif, bmp, tiff or .pbr)")
	outputFile := flag.String("output", "output.png", "Output raster filename")
	configPath := flag.String("config", "binmorph.yaml", "YAML configuration file")
	writeConfig := flag.Bool("write-config", false, "Write the default configuration to -config and exit")
	maskFile := flag.String("mask", "", "Flood fill mask image (overrides config)")
	numWorkers := flag.Int("workers", 0, "Goroutines per kernel offset (overrides config when positive)")
	extractComponents := flag.Bool("extract-components", false, "Save each kept component as its own image")
	labelMap := flag.String("label-map", "", "Write a colorized component map to this file")
	saveIntermediary := flag.Bool("save-intermediary", false, "Save intermediary results during processing")
	verbose := flag.Bool("verbose", false, "Log processing steps")
	flag.Parse()

	if *writeConfig {
		if err := config.CreateDefaultConfigFile(*configPath); err != nil {
			log.Fatalf("Failed to write config: %v", err)
		}
		fmt.Printf("Default configuration written to: %s\n", *configPath)
		return
	}

	// Validate inputs
	if *inputFile == "" {
		flag.Usage()
		os.Exit(1)
	}

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Command line flags override the configuration file
	if *maskFile != "" {
		cfg.FloodFill.MaskFile = *maskFile
	}
	if *numWorkers > 0 {
		cfg.Processing.NumWorkers = *numWorkers
	}
	if *saveIntermediary {
		cfg.Output.SaveIntermediaryResults = true
	}
	if *verbose {
		cfg.Output.Verbose = true
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	if cfg.Output.Verbose {
		logging.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug})))
	}

	fmt.Println("================================")
	fmt.Println("BINMORPH: BINARY MORPHOLOGY AND CONNECTED COMPONENTS")
	fmt.Println("================================")

	params := pipeline.ParamsFromConfig(cfg, *inputFile, *outputFile)
	params.LabelMapFile = *labelMap
	if *extractComponents {
		params.ExtractDir = cfg.Components.ExtractDir
	}

	processor := pipeline.NewProcessor(params)

	fmt.Printf("Processing %s with %d operation(s)...\n", *inputFile, len(cfg.Operations))
	startTime := time.Now()
	if err := processor.Process(); err != nil {
		log.Fatalf("Processing failed: %v", err)
	}
	processingTime := time.Since(startTime)

	report := processor.Report()
	fmt.Printf("\nProcessing completed successfully in %.3f seconds!\n", processingTime.Seconds())
	fmt.Printf("Output raster saved to: %s\n\n", *outputFile)

	fmt.Printf("Image: %dx%d\n", report.Width, report.Height)
	fmt.Printf("Stages:\n")
	for _, stage := range report.Stages {
		fmt.Printf("- %-16s %8d pixels  %v\n", stage.Name, stage.Power, stage.Duration)
	}

	s := report.Summary
	fmt.Printf("\nConnected components:\n")
	fmt.Printf("=====================\n")
	fmt.Printf("Kept: %d (discarded %d)\n", s.Count, report.Discarded)
	fmt.Printf("Total power: %d\n", s.TotalPower)
	if s.Count > 0 {
		fmt.Printf("Power min/median/max: %d / %.1f / %d\n", s.MinPower, s.MedianPower, s.MaxPower)
		fmt.Printf("Power mean: %.2f (std dev %.2f)\n", s.MeanPower, s.StdDevPower)
		fmt.Printf("Mean fill ratio: %.3f\n", s.MeanFill)
	}
	for i, rec := range report.Components {
		if i == maxListedComponents {
			fmt.Printf("... and %d more\n", len(report.Components)-i)
			break
		}
		fmt.Printf("- #%d %v power %d\n", rec.Index, rec.Rect(), rec.Power)
	}

	if params.ExtractDir != "" {
		abs, err := filepath.Abs(params.ExtractDir)
		if err != nil {
			abs = params.ExtractDir
		}
		fmt.Printf("\nComponent crops saved to: %s\n", abs)
	}
	if params.LabelMapFile != "" {
		fmt.Printf("Label map saved to: %s\n", params.LabelMapFile)
	}
	if params.ReportFile != "" {
		fmt.Printf("Report saved to: %s\n", params.ReportFile)
	}

	// Print information about intermediary results if saved
	if params.SaveIntermediaryResults {
		fmt.Println("\nIntermediary results saved to:")
		fmt.Printf("%s\n", params.IntermediaryDir)
		fmt.Println("The following stages were saved:")
		fmt.Println("- 01_input: Thresholded input")
		fmt.Println("- 02_despeckled: After speckle removal")
		fmt.Println("- 03_operations: After each morphology operation")
		fmt.Println("- 04_flood_filled: After growing into the mask")
		fmt.Println("- 05_filtered: Components within the power range")
	}
}
