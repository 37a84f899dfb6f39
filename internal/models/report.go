package models

import (
	"image"
	"time"

	"binmorph/pkg/bitmap"
	"binmorph/pkg/components"
)

// Stage is one intermediate raster of a processing run
type Stage struct {
	// Index is the position of this stage in the run
	Index int

	// Name identifies the step that produced the raster
	Name string

	// Image is a snapshot of the raster after the step
	Image *bitmap.Image
}

// StageRecord is the report entry for a stage
type StageRecord struct {
	Index int    `yaml:"index"`
	Name  string `yaml:"name"`

	// Power is the foreground pixel count after the step
	Power int `yaml:"power"`

	// File is where the stage image was written, if it was saved
	File string `yaml:"file,omitempty"`

	Duration time.Duration `yaml:"duration"`
}

// ComponentRecord is the report entry for a connected component
type ComponentRecord struct {
	Index  int `yaml:"index"`
	X      int `yaml:"x"`
	Y      int `yaml:"y"`
	Width  int `yaml:"width"`
	Height int `yaml:"height"`
	Power  int `yaml:"power"`

	// File is the crop written for this component, if extraction ran
	File string `yaml:"file,omitempty"`
}

// NewComponentRecord describes c at position index of a sorted set
func NewComponentRecord(index int, c *components.Component) ComponentRecord {
	b := c.Bounds()
	return ComponentRecord{
		Index:  index,
		X:      b.Min.X,
		Y:      b.Min.Y,
		Width:  b.Dx(),
		Height: b.Dy(),
		Power:  c.Power(),
	}
}

// Rect returns the bounding box of the record
func (r ComponentRecord) Rect() image.Rectangle {
	return image.Rect(r.X, r.Y, r.X+r.Width, r.Y+r.Height)
}

// Report summarizes a processing run and is written as YAML
type Report struct {
	Input  string `yaml:"input"`
	Output string `yaml:"output"`
	Mask   string `yaml:"mask,omitempty"`

	Width  int `yaml:"width"`
	Height int `yaml:"height"`

	Stages []StageRecord `yaml:"stages"`

	// Summary covers the components kept after filtering
	Summary    components.Summary `yaml:"summary"`
	Components []ComponentRecord  `yaml:"components"`

	// Discarded counts components removed by the power filter
	Discarded int `yaml:"discarded"`

	Duration time.Duration `yaml:"duration"`
}
