// Package stats writes offline artifacts of the generation log for analysis
// outside the running optimizer.
package stats

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"

	"brandevo/internal/model"
)

const (
	generationsFile = "generations.json"
	seriesFile      = "fitness_series.csv"
)

var seriesHeader = []string{"generation", "status", "best_fitness", "mean_fitness", "min_fitness", "scored", "unscored", "total_views", "stall_count"}

// SeriesPoint is one row of the fitness series.
type SeriesPoint struct {
	GenerationID int
	Status       model.GenerationStatus
	Diagnostics  model.GenerationDiagnostics
	StallCount   int
}

// WriteExport writes generations.json and fitness_series.csv into outDir,
// oldest generation first, and returns outDir.
func WriteExport(outDir string, generations []model.Generation) (string, error) {
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return "", err
	}
	ordered := append([]model.Generation(nil), generations...)
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].ID < ordered[j].ID })

	if err := writeJSON(filepath.Join(outDir, generationsFile), ordered); err != nil {
		return "", err
	}
	if err := writeSeries(filepath.Join(outDir, seriesFile), ordered); err != nil {
		return "", err
	}
	return outDir, nil
}

func writeSeries(path string, generations []model.Generation) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	if err := writer.Write(seriesHeader); err != nil {
		return err
	}
	for _, g := range generations {
		var d model.GenerationDiagnostics
		if g.Diagnostics != nil {
			d = *g.Diagnostics
		}
		if err := writer.Write([]string{
			strconv.Itoa(g.ID),
			string(g.Status),
			strconv.FormatFloat(d.BestFitness, 'f', -1, 64),
			strconv.FormatFloat(d.MeanFitness, 'f', -1, 64),
			strconv.FormatFloat(d.MinFitness, 'f', -1, 64),
			strconv.Itoa(d.ScoredCount),
			strconv.Itoa(d.UnscoredCount),
			strconv.FormatInt(d.TotalViews, 10),
			strconv.Itoa(g.StallCount),
		}); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

// ReadSeries loads fitness_series.csv from dir. The bool is false when the
// file does not exist.
func ReadSeries(dir string) ([]SeriesPoint, bool, error) {
	file, err := os.Open(filepath.Join(dir, seriesFile))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, false, nil
		}
		return nil, false, err
	}
	defer file.Close()

	reader := csv.NewReader(file)
	header, err := reader.Read()
	if err != nil {
		if err == io.EOF {
			return []SeriesPoint{}, true, nil
		}
		return nil, false, err
	}
	if len(header) != len(seriesHeader) {
		return nil, false, fmt.Errorf("fitness series header must have %d columns, got %d", len(seriesHeader), len(header))
	}

	series := make([]SeriesPoint, 0, 64)
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, false, err
		}
		point, err := parsePoint(record)
		if err != nil {
			return nil, false, err
		}
		series = append(series, point)
	}
	return series, true, nil
}

func parsePoint(record []string) (SeriesPoint, error) {
	var (
		p    SeriesPoint
		errs []error
	)
	atoi := func(s string) int {
		v, err := strconv.Atoi(s)
		errs = append(errs, err)
		return v
	}
	parseFloat := func(s string) float64 {
		v, err := strconv.ParseFloat(s, 64)
		errs = append(errs, err)
		return v
	}
	p.GenerationID = atoi(record[0])
	p.Status = model.GenerationStatus(record[1])
	p.Diagnostics.BestFitness = parseFloat(record[2])
	p.Diagnostics.MeanFitness = parseFloat(record[3])
	p.Diagnostics.MinFitness = parseFloat(record[4])
	p.Diagnostics.ScoredCount = atoi(record[5])
	p.Diagnostics.UnscoredCount = atoi(record[6])
	views, err := strconv.ParseInt(record[7], 10, 64)
	errs = append(errs, err)
	p.Diagnostics.TotalViews = views
	p.StallCount = atoi(record[8])
	for _, err := range errs {
		if err != nil {
			return SeriesPoint{}, fmt.Errorf("fitness series row %v: %w", record, err)
		}
	}
	return p, nil
}

// ReadGenerations loads generations.json from dir.
func ReadGenerations(dir string) ([]model.Generation, error) {
	data, err := os.ReadFile(filepath.Join(dir, generationsFile))
	if err != nil {
		return nil, err
	}
	var generations []model.Generation
	if err := json.Unmarshal(data, &generations); err != nil {
		return nil, fmt.Errorf("decode %s: %w", generationsFile, err)
	}
	return generations, nil
}

func writeJSON(path string, value any) error {
	data, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return err
	}
	data = append(data, '\n')
	return os.WriteFile(path, data, 0o644)
}
