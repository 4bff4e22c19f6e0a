package features

// Package features turns raw telemetry records (or hypothetical line/product/
// speed/time tuples) into fixed-schema numeric vectors for the regression
// engines.
//
// The column schema is versioned and closed: every built vector contains
// every declared column, zero-filled when the input lacks the source field.
// This presence guarantee is what lets a model trained on historical data
// score a single hypothetical point without shape mismatches.

import (
	"time"

	"github.com/tecpap/tecpap-ai/internal/models"
	"github.com/tecpap/tecpap-ai/internal/plant"
)

// SchemaVersion identifies the current column layout. Bump when columns are
// added or reordered; stored models carry the column list they trained on.
const SchemaVersion = 1

// Input is one row to vectorize. Only LineID is required; zero values for
// the other fields produce zero-filled columns.
type Input struct {
	Timestamp    time.Time
	LineID       string
	ProductType  string
	MachineSpeed int
}

// Builder derives feature vectors over the fixed column schema.
type Builder struct {
	columns []string
}

// NewBuilder creates a feature builder over the plant's known lines and
// catalog products.
func NewBuilder() *Builder {
	cols := []string{"hour", "day_of_week", "month", "day_of_year", "week_of_year"}
	for _, line := range plant.Lines {
		cols = append(cols, "line_"+line)
	}
	for _, p := range plant.ProductTypes() {
		cols = append(cols, "product_"+p)
	}
	cols = append(cols, "speed_ratio")
	return &Builder{columns: cols}
}

// Columns returns the full ordered column schema.
func (b *Builder) Columns() []string {
	out := make([]string, len(b.columns))
	copy(out, b.columns)
	return out
}

// TimeLineColumns returns the sub-schema used by the OEE predictor: the time
// components plus the line indicators.
func (b *Builder) TimeLineColumns() []string {
	cols := []string{"hour", "day_of_week", "month", "day_of_year", "week_of_year"}
	for _, line := range plant.Lines {
		cols = append(cols, "line_"+line)
	}
	return cols
}

// SpeedColumns returns the sub-schema used by the speed optimizer: the speed
// ratio plus line and product indicators.
func (b *Builder) SpeedColumns() []string {
	cols := []string{"speed_ratio"}
	for _, line := range plant.Lines {
		cols = append(cols, "line_"+line)
	}
	for _, p := range plant.ProductTypes() {
		cols = append(cols, "product_"+p)
	}
	return cols
}

// Build vectorizes inputs over the named columns, in order. Unknown column
// names yield zeros, preserving the presence invariant.
func (b *Builder) Build(inputs []Input, columns []string) [][]float64 {
	out := make([][]float64, len(inputs))
	for i, in := range inputs {
		out[i] = b.BuildRow(in, columns)
	}
	return out
}

// BuildRow vectorizes a single input over the named columns.
func (b *Builder) BuildRow(in Input, columns []string) []float64 {
	values := b.rowValues(in)
	row := make([]float64, len(columns))
	for j, name := range columns {
		row[j] = values[name] // zero-filled when absent
	}
	return row
}

// FromTelemetry adapts telemetry records to builder inputs.
func FromTelemetry(records []models.TelemetryRecord) []Input {
	inputs := make([]Input, len(records))
	for i, r := range records {
		inputs[i] = Input{
			Timestamp:    r.Timestamp,
			LineID:       r.LineID,
			ProductType:  r.ProductType,
			MachineSpeed: r.MachineSpeed,
		}
	}
	return inputs
}

// rowValues computes every schema column for one input.
func (b *Builder) rowValues(in Input) map[string]float64 {
	values := make(map[string]float64, len(b.columns))

	if !in.Timestamp.IsZero() {
		values["hour"] = float64(in.Timestamp.Hour())
		// Monday=0 as in the historical training data.
		values["day_of_week"] = float64((int(in.Timestamp.Weekday()) + 6) % 7)
		values["month"] = float64(int(in.Timestamp.Month()))
		values["day_of_year"] = float64(in.Timestamp.YearDay())
		_, week := in.Timestamp.ISOWeek()
		values["week_of_year"] = float64(week)
	}

	if plant.KnownLine(in.LineID) {
		values["line_"+in.LineID] = 1
	}
	if plant.KnownProduct(in.ProductType) {
		values["product_"+in.ProductType] = 1
	}

	if in.MachineSpeed > 0 {
		if rng, ok := plant.SpeedRanges[in.LineID]; ok && rng.OptimalEstimate > 0 {
			values["speed_ratio"] = float64(in.MachineSpeed) / float64(rng.OptimalEstimate)
		}
	}

	return values
}
