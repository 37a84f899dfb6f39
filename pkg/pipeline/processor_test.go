package pipeline

import (
	"os"
	"path/filepath"
	"testing"

	"gopkg.in/yaml.v3"

	"binmorph/internal/models"
	"binmorph/pkg/bitmap"
	"binmorph/pkg/config"
	"binmorph/pkg/rasterio"
)

func fillRect(img *bitmap.Image, x0, y0, x1, y1 int) {
	for y := y0; y < y1; y++ {
		for x := x0; x < x1; x++ {
			img.Set(x, y, true)
		}
	}
}

// createTestInput writes a 40x30 raster with three blocks, a speck and a
// two pixel blob
func createTestInput(t *testing.T, dir string) string {
	img := bitmap.MustNewBinary(40, 30)
	fillRect(img, 2, 2, 12, 10)   // 80 pixels
	fillRect(img, 20, 15, 26, 21) // 36 pixels
	fillRect(img, 30, 3, 33, 6)   // 9 pixels
	img.Set(15, 25, true)
	img.Set(35, 25, true)
	img.Set(36, 25, true)

	path := filepath.Join(dir, "input.png")
	if err := rasterio.Save(path, img); err != nil {
		t.Fatalf("Failed to write test input: %v", err)
	}
	return path
}

func testParams(dir, input string) *Params {
	cfg := config.DefaultConfig()
	cfg.Components.MinPower = 10
	cfg.Processing.NumWorkers = 2
	cfg.Output.IntermediaryDir = filepath.Join(dir, "intermediary")
	cfg.Output.ReportFile = filepath.Join(dir, "report.yaml")
	return ParamsFromConfig(cfg, input, filepath.Join(dir, "out", "result.png"))
}

// TestNewProcessor verifies that a new processor is correctly initialized
func TestNewProcessor(t *testing.T) {
	params := &Params{InputFile: "in.png", NumWorkers: 3}
	processor := NewProcessor(params)

	if processor.params != params {
		t.Errorf("Processor should use the provided params")
	}
	if processor.engine.Workers != 3 {
		t.Errorf("Expected 3 workers, got %d", processor.engine.Workers)
	}
	if processor.Result() != nil {
		t.Errorf("Expected no result before processing")
	}
}

// TestBasicProcessor runs the whole flow on a generated image
func TestBasicProcessor(t *testing.T) {
	dir := t.TempDir()
	params := testParams(dir, createTestInput(t, dir))
	params.SaveIntermediaryResults = true
	params.ExtractDir = filepath.Join(dir, "components")
	params.LabelMapFile = filepath.Join(dir, "labels.png")

	processor := NewProcessor(params)
	if err := processor.Process(); err != nil {
		t.Fatalf("Processing failed: %v", err)
	}

	result := processor.Result()
	if got := result.Power(); got != 116 {
		t.Errorf("Expected 116 foreground pixels, got %d", got)
	}
	if result.Get(15, 25) || result.Get(35, 25) || result.Get(31, 4) {
		t.Error("Expected speck, blob and small block to be gone")
	}

	kept := processor.Components()
	if len(kept) != 2 {
		t.Fatalf("Expected 2 kept components, got %d", len(kept))
	}
	if kept[0].Power() != 80 || kept[1].Power() != 36 {
		t.Errorf("Unexpected component powers %d and %d", kept[0].Power(), kept[1].Power())
	}

	stages := processor.Stages()
	wantPower := []int{128, 125, 125, 116}
	if len(stages) != len(wantPower) {
		t.Fatalf("Expected %d stages, got %d", len(wantPower), len(stages))
	}
	for i, stage := range stages {
		if got := stage.Image.Power(); got != wantPower[i] {
			t.Errorf("Stage %d (%s): expected power %d, got %d", i, stage.Name, wantPower[i], got)
		}
	}

	for _, name := range []string{
		filepath.Join(dir, "out", "result.png"),
		filepath.Join(dir, "labels.png"),
		filepath.Join(dir, "intermediary", stageInput, "000.png"),
		filepath.Join(dir, "intermediary", stageOperations, "000.png"),
		filepath.Join(dir, "components", "component_0001.png"),
	} {
		if _, err := os.Stat(name); os.IsNotExist(err) {
			t.Errorf("Expected file does not exist: %s", name)
		}
	}

	saved, err := rasterio.Load(params.OutputFile, 128, false)
	if err != nil {
		t.Fatalf("Failed to reload output: %v", err)
	}
	if !saved.Equal(result) {
		t.Error("Saved output differs from the processed raster")
	}
}

// TestReport verifies the YAML report written after a run
func TestReport(t *testing.T) {
	dir := t.TempDir()
	params := testParams(dir, createTestInput(t, dir))
	params.ExtractDir = filepath.Join(dir, "components")

	if err := NewProcessor(params).Process(); err != nil {
		t.Fatalf("Processing failed: %v", err)
	}

	data, err := os.ReadFile(params.ReportFile)
	if err != nil {
		t.Fatalf("Failed to read report: %v", err)
	}
	var report models.Report
	if err := yaml.Unmarshal(data, &report); err != nil {
		t.Fatalf("Failed to parse report: %v", err)
	}

	if report.Width != 40 || report.Height != 30 {
		t.Errorf("Expected 40x30 in report, got %dx%d", report.Width, report.Height)
	}
	if report.Summary.Count != 2 || report.Summary.TotalPower != 116 {
		t.Errorf("Unexpected summary %+v", report.Summary)
	}
	if report.Discarded != 1 {
		t.Errorf("Expected 1 discarded component, got %d", report.Discarded)
	}
	if len(report.Components) != 2 {
		t.Fatalf("Expected 2 component records, got %d", len(report.Components))
	}
	first := report.Components[0]
	if first.X != 2 || first.Y != 2 || first.Width != 10 || first.Height != 8 {
		t.Errorf("Unexpected first component record %+v", first)
	}
	if first.File == "" {
		t.Error("Expected the component crop file in the report")
	}
	if len(report.Stages) != 4 {
		t.Errorf("Expected 4 stage records, got %d", len(report.Stages))
	}
}

// TestFloodFillStep verifies that the image grows through the mask
func TestFloodFillStep(t *testing.T) {
	dir := t.TempDir()

	seed := bitmap.MustNewBinary(30, 10)
	fillRect(seed, 5, 5, 8, 8)
	input := filepath.Join(dir, "seed.png")
	if err := rasterio.Save(input, seed); err != nil {
		t.Fatalf("Failed to write seed: %v", err)
	}

	mask := bitmap.MustNewBinary(30, 10)
	fillRect(mask, 0, 0, 20, 10)
	fillRect(mask, 25, 0, 30, 10)
	maskFile := filepath.Join(dir, "mask.pbr")
	if err := rasterio.Save(maskFile, mask); err != nil {
		t.Fatalf("Failed to write mask: %v", err)
	}

	params := &Params{
		InputFile: input,
		MaskFile:  maskFile,
		Threshold: 128,
		MinPower:  1,
	}
	processor := NewProcessor(params)
	if err := processor.Process(); err != nil {
		t.Fatalf("Processing failed: %v", err)
	}

	if got := processor.Result().Power(); got != 200 {
		t.Errorf("Expected the 200 pixel mask region, got %d", got)
	}
	if processor.Result().Get(27, 5) {
		t.Error("Expected the disconnected mask region to stay empty")
	}
}

// TestProcessErrors verifies failures are reported and wrapped
func TestProcessErrors(t *testing.T) {
	dir := t.TempDir()

	params := &Params{InputFile: filepath.Join(dir, "missing.png")}
	if err := NewProcessor(params).Process(); err == nil {
		t.Error("Expected error for a missing input, got nil")
	}

	params = testParams(dir, createTestInput(t, dir))
	params.Operations = []config.OperationConfig{{Op: "shrink", Kernel: config.KernelConfig{Shape: "square", Width: 3}, Iterations: 1}}
	if err := NewProcessor(params).Process(); err == nil {
		t.Error("Expected error for an unknown operation, got nil")
	}

	params = testParams(dir, createTestInput(t, dir))
	params.MaskFile = filepath.Join(dir, "missing-mask.png")
	if err := NewProcessor(params).Process(); err == nil {
		t.Error("Expected error for a missing mask, got nil")
	}
}
