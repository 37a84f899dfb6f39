// Package pipeline runs the end-to-end binary image processing flow: load and
// threshold, despeckle, morphology, flood fill against a mask, connected
// component labeling with a power filter, then output and reporting.
package pipeline

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"binmorph/internal/logging"
	"binmorph/internal/models"
	"binmorph/pkg/bitmap"
	"binmorph/pkg/components"
	"binmorph/pkg/config"
	"binmorph/pkg/floodfill"
	"binmorph/pkg/morphology"
	"binmorph/pkg/rasterio"
	"binmorph/pkg/visualization"
)

// Stage directory names used for intermediary results.
const (
	stageInput      = "01_input"
	stageDespeckled = "02_despeckled"
	stageOperations = "03_operations"
	stageFilled     = "04_flood_filled"
	stageFiltered   = "05_filtered"
)

// Params holds the processing parameters.
type Params struct {
	// InputFile is the image to process. Any format rasterio.Load reads.
	InputFile string

	// OutputFile receives the processed raster. Empty skips writing it.
	OutputFile string

	// MaskFile is the flood fill mask. Empty skips the fill.
	MaskFile string

	// Threshold and Invert control binarization of the input and mask.
	Threshold uint8
	Invert    bool

	// Despeckle runs the speckle passes before the operations.
	Despeckle bool

	// Operations is the ordered morphology sequence.
	Operations []config.OperationConfig

	// MinPower and MaxPower bound the component sizes that are kept.
	// A MaxPower of zero means no upper bound.
	MinPower int
	MaxPower int

	// ExtractDir receives one crop per kept component. Empty disables it.
	ExtractDir string

	// LabelMapFile receives a colorized map of the kept components.
	LabelMapFile string

	// NumWorkers is the number of goroutines used per kernel offset.
	NumWorkers int

	// SaveIntermediaryResults determines whether to save each stage.
	SaveIntermediaryResults bool

	// IntermediaryDir is the directory where stage images will be saved.
	IntermediaryDir string

	// ReportFile receives the YAML run report. Empty disables it.
	ReportFile string
}

// ParamsFromConfig builds the parameters of a run from a loaded
// configuration and the input and output paths. Component extraction and
// the label map stay off until the caller sets their paths.
func ParamsFromConfig(cfg *config.Config, input, output string) *Params {
	return &Params{
		InputFile:               input,
		OutputFile:              output,
		MaskFile:                cfg.FloodFill.MaskFile,
		Threshold:               uint8(cfg.Input.Threshold),
		Invert:                  cfg.Input.Invert,
		Despeckle:               cfg.Despeckle.Enabled,
		Operations:              cfg.Operations,
		MinPower:                cfg.Components.MinPower,
		MaxPower:                cfg.Components.MaxPower,
		NumWorkers:              cfg.Processing.NumWorkers,
		SaveIntermediaryResults: cfg.Output.SaveIntermediaryResults,
		IntermediaryDir:         cfg.Output.IntermediaryDir,
		ReportFile:              cfg.Output.ReportFile,
	}
}

// Processor handles one run of the processing flow.
//
// The run consists of the following steps:
// 1. Loading and thresholding the input image
// 2. Despeckling
// 3. Applying the morphology operations in order
// 4. Flood filling the result into the mask
// 5. Labeling connected components and dropping those outside the power range
// 6. Writing the output raster, component crops, label map and report
type Processor struct {
	// params stores the run configuration
	params *Params

	// engine runs morphology with the configured worker count
	engine morphology.Engine

	// image is the raster being processed
	image *bitmap.Image

	// stages holds a snapshot per completed step
	stages []models.Stage

	// kept holds the components that passed the power filter
	kept []*components.Component

	report models.Report
}

// NewProcessor creates a processor for the given parameters.
//
// Parameters:
//   - params: configuration of the run
//
// Returns:
//   - a new Processor instance ready for Process
func NewProcessor(params *Params) *Processor {
	return &Processor{
		params: params,
		engine: morphology.Engine{Workers: params.NumWorkers},
	}
}

// Process runs the complete processing flow.
func (p *Processor) Process() error {
	start := time.Now()
	log := logging.Logger()
	p.report = models.Report{
		Input:  p.params.InputFile,
		Output: p.params.OutputFile,
		Mask:   p.params.MaskFile,
	}

	if p.params.SaveIntermediaryResults {
		if err := os.MkdirAll(p.params.IntermediaryDir, 0755); err != nil {
			return fmt.Errorf("failed to create intermediary directory: %w", err)
		}
	}

	// Step 1: Load and threshold the input image
	log.Info("loading input", "file", p.params.InputFile)
	stepStart := time.Now()
	if err := p.loadInput(); err != nil {
		return fmt.Errorf("failed to load input: %w", err)
	}
	p.recordStage(stageInput, 0, stepStart)

	// Step 2: Despeckle
	if p.params.Despeckle {
		log.Info("despeckling")
		stepStart = time.Now()
		if err := p.engine.Despeckle(p.image); err != nil {
			return fmt.Errorf("failed to despeckle: %w", err)
		}
		p.recordStage(stageDespeckled, 0, stepStart)
	}

	// Step 3: Morphology operations
	for i, op := range p.params.Operations {
		log.Info("applying operation", "index", i, "op", op.Op, "shape", op.Kernel.Shape, "iterations", op.Iterations)
		stepStart = time.Now()
		if err := p.applyOperation(op); err != nil {
			return fmt.Errorf("failed to apply operation %d (%s): %w", i, op.Op, err)
		}
		p.recordStage(stageOperations, i, stepStart)
	}

	// Step 4: Flood fill into the mask
	if p.params.MaskFile != "" {
		log.Info("flood filling", "mask", p.params.MaskFile)
		stepStart = time.Now()
		if err := p.fillFromMask(); err != nil {
			return fmt.Errorf("failed to flood fill: %w", err)
		}
		p.recordStage(stageFilled, 0, stepStart)
	}

	// Step 5: Label and filter components
	log.Info("labeling components")
	stepStart = time.Now()
	if err := p.labelComponents(); err != nil {
		return fmt.Errorf("failed to label components: %w", err)
	}
	p.recordStage(stageFiltered, 0, stepStart)

	// Step 6: Outputs
	if err := p.writeOutputs(); err != nil {
		return err
	}

	p.report.Duration = time.Since(start)
	if p.params.ReportFile != "" {
		if err := p.writeReport(); err != nil {
			return fmt.Errorf("failed to write report: %w", err)
		}
	}
	log.Info("processing done", "components", len(p.kept), "duration", p.report.Duration)
	return nil
}

func (p *Processor) loadInput() error {
	img, err := rasterio.Load(p.params.InputFile, p.params.Threshold, p.params.Invert)
	if err != nil {
		return err
	}
	if err := bitmap.RequireBinary(img); err != nil {
		return err
	}
	p.image = img
	p.report.Width, p.report.Height = img.Width, img.Height
	return nil
}

// applyOperation runs one morphology step on the current image.
func (p *Processor) applyOperation(op config.OperationConfig) error {
	k, err := op.Kernel.Element()
	if err != nil {
		return err
	}

	switch op.Op {
	case config.OpDilate:
		return p.engine.Dilate(p.image, k, op.Iterations)
	case config.OpErode:
		return p.engine.Erode(p.image, k, op.Iterations)
	case config.OpOpen:
		return p.engine.Open(p.image, k, op.Iterations)
	case config.OpClose:
		return p.engine.Close(p.image, k, op.Iterations)
	default:
		return fmt.Errorf("%w: unknown operation %q", config.ErrInvalidConfig, op.Op)
	}
}

// fillFromMask grows the current image through the pixels of the mask.
func (p *Processor) fillFromMask() error {
	mask, err := rasterio.Load(p.params.MaskFile, p.params.Threshold, p.params.Invert)
	if err != nil {
		return err
	}
	return floodfill.Fill(p.image, mask)
}

// labelComponents finds the components of the current image and clears
// those outside the power range from it.
func (p *Processor) labelComponents() error {
	set, err := components.Find(p.image)
	if err != nil {
		return err
	}

	p.kept = components.Sorted(components.FilterByPower(set, p.params.MinPower, p.params.MaxPower))
	if len(p.kept) != len(set) {
		keep := make(map[*components.Component]bool, len(p.kept))
		for _, c := range p.kept {
			keep[c] = true
		}
		for _, c := range set {
			if keep[c] {
				continue
			}
			if err := components.Remove(p.image, c); err != nil {
				return err
			}
		}
	}

	p.report.Discarded = len(set) - len(p.kept)
	p.report.Summary = components.Summarize(p.kept)
	p.report.Components = make([]models.ComponentRecord, len(p.kept))
	for i, c := range p.kept {
		p.report.Components[i] = models.NewComponentRecord(i, c)
	}
	logging.Logger().Debug("component filter", "found", len(set), "kept", len(p.kept))
	return nil
}

func (p *Processor) writeOutputs() error {
	log := logging.Logger()

	if p.params.OutputFile != "" {
		if err := rasterio.Save(p.params.OutputFile, p.image); err != nil {
			return fmt.Errorf("failed to save output: %w", err)
		}
		log.Info("output saved", "file", p.params.OutputFile)
	}

	if p.params.ExtractDir == "" && p.params.LabelMapFile == "" {
		return nil
	}
	viewer := visualization.NewViewer(p.kept, p.image.Width, p.image.Height)

	if p.params.ExtractDir != "" {
		files, err := viewer.SaveComponentSequence(p.image, p.params.ExtractDir)
		if err != nil {
			return fmt.Errorf("failed to extract components: %w", err)
		}
		for i, f := range files {
			p.report.Components[i].File = f
		}
		log.Info("components extracted", "dir", p.params.ExtractDir, "count", len(files))
	}

	if p.params.LabelMapFile != "" {
		labels, err := viewer.LabelMap()
		if err != nil {
			return fmt.Errorf("failed to render label map: %w", err)
		}
		if err := os.MkdirAll(filepath.Dir(p.params.LabelMapFile), 0755); err != nil {
			return fmt.Errorf("failed to create label map directory: %w", err)
		}
		if err := viewer.SaveImage(labels, p.params.LabelMapFile); err != nil {
			return fmt.Errorf("failed to save label map: %w", err)
		}
	}
	return nil
}

func (p *Processor) writeReport() error {
	data, err := yaml.Marshal(&p.report)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(p.params.ReportFile), 0755); err != nil {
		return err
	}
	return os.WriteFile(p.params.ReportFile, data, 0644)
}

// recordStage snapshots the current image under stage and adds it to the
// report, saving it when intermediary results are enabled.
func (p *Processor) recordStage(stage string, index int, started time.Time) {
	rec := models.StageRecord{
		Index:    len(p.stages),
		Name:     stage,
		Power:    p.image.Power(),
		Duration: time.Since(started),
	}
	p.stages = append(p.stages, models.Stage{Index: rec.Index, Name: stage, Image: p.image.Clone()})

	if p.params.SaveIntermediaryResults {
		file, err := p.saveIntermediaryResult(stage, p.image, index)
		if err != nil {
			logging.Logger().Warn("failed to save intermediary result", "stage", stage, "index", index, "err", err)
		} else {
			rec.File = file
		}
	}
	p.report.Stages = append(p.report.Stages, rec)
}

// saveIntermediaryResult writes img as stage image number index.
func (p *Processor) saveIntermediaryResult(stage string, img *bitmap.Image, index int) (string, error) {
	stageDir := filepath.Join(p.params.IntermediaryDir, stage)
	if err := os.MkdirAll(stageDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create intermediary directory: %w", err)
	}
	filename := filepath.Join(stageDir, fmt.Sprintf("%03d.png", index))
	if err := rasterio.Save(filename, img); err != nil {
		return "", err
	}
	return filename, nil
}

// Result returns the processed raster, nil before Process succeeds.
func (p *Processor) Result() *bitmap.Image { return p.image }

// Components returns the kept components in top-to-bottom order.
func (p *Processor) Components() []*components.Component { return p.kept }

// Stages returns a snapshot of the image after every completed step.
func (p *Processor) Stages() []models.Stage { return p.stages }

// Report returns the run report.
func (p *Processor) Report() models.Report { return p.report }
