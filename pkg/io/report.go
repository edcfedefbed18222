package io

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"
)

// Report is the JSON run report written by `fastroot root --report`.
type Report struct {
	RunID    string       `json:"run_id"`
	Version  string       `json:"version,omitempty"`
	Method   string       `json:"method"`
	Started  time.Time    `json:"started"`
	Duration string       `json:"duration"`
	Trees    []TreeReport `json:"trees"`
	Warnings []string     `json:"warnings,omitempty"`
}

// TreeReport describes one rooted input tree.
type TreeReport struct {
	Index        int          `json:"index"`
	Score        float64      `json:"score"`
	Objective    float64      `json:"objective"`
	Leaves       int          `json:"leaves"`
	RootEdge     []string     `json:"root_edge"`
	Offset       float64      `json:"offset"`
	Mu           float64      `json:"mu,omitempty"`
	Alternatives int          `json:"alternatives"`
	Truncated    bool         `json:"truncated,omitempty"`
	CacheHit     bool         `json:"cache_hit,omitempty"`
	Solver       *SolverStats `json:"solver,omitempty"`
}

// SolverStats counts how regression edges were solved.
type SolverStats struct {
	ClosedForm int `json:"closed_form"`
	ActiveSet  int `json:"active_set"`
	QuadProg   int `json:"quadprog"`
	QPFailures int `json:"qp_failures"`
}

// WriteReport encodes rep to w as indented JSON.
func WriteReport(w io.Writer, rep *Report) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(rep); err != nil {
		return fmt.Errorf("encode report: %w", err)
	}
	return nil
}

// ExportReport writes rep to the file at path, replacing it.
func ExportReport(rep *Report, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := WriteReport(f, rep); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// ReadReport decodes a report written by [WriteReport].
func ReadReport(r io.Reader) (*Report, error) {
	var rep Report
	if err := json.NewDecoder(r).Decode(&rep); err != nil {
		return nil, fmt.Errorf("decode report: %w", err)
	}
	return &rep, nil
}
