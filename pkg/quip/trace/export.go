package trace

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/klauspost/compress/gzip"
)

// exportLine is one line of an export: the run header, then one line per step.
type exportLine struct {
	Run  *RunInfo `json:"run,omitempty"`
	Step *Step    `json:"step,omitempty"`
}

// Export writes a run and its steps to w as gzip-compressed JSON lines.
func (s *Store) Export(w io.Writer, runID string) error {
	run, err := s.Get(runID)
	if err != nil {
		return err
	}
	steps, err := s.Steps(runID)
	if err != nil {
		return err
	}

	zw := gzip.NewWriter(w)
	enc := json.NewEncoder(zw)
	if err := enc.Encode(exportLine{Run: &run}); err != nil {
		zw.Close()
		return fmt.Errorf("writing export: %w", err)
	}
	for i := range steps {
		if err := enc.Encode(exportLine{Step: &steps[i]}); err != nil {
			zw.Close()
			return fmt.Errorf("writing export: %w", err)
		}
	}
	return zw.Close()
}

// ReadExport decodes an export written by Export.
func ReadExport(r io.Reader) (RunInfo, []Step, error) {
	zr, err := gzip.NewReader(r)
	if err != nil {
		return RunInfo{}, nil, fmt.Errorf("reading export: %w", err)
	}
	defer zr.Close()

	var run RunInfo
	var steps []Step
	dec := json.NewDecoder(zr)
	for {
		var line exportLine
		if err := dec.Decode(&line); err == io.EOF {
			break
		} else if err != nil {
			return RunInfo{}, nil, fmt.Errorf("reading export: %w", err)
		}
		switch {
		case line.Run != nil:
			run = *line.Run
		case line.Step != nil:
			steps = append(steps, *line.Step)
		}
	}
	return run, steps, nil
}
