package io

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"
)

// ErrMalformedLine is returned when a sampling-time line is not
// "label value".
var ErrMalformedLine = errors.New("malformed line")

// ReadCovariates reads leaf sampling times, one "label value" pair per line
// separated by whitespace. Blank lines and lines starting with '#' are
// skipped. A label given twice keeps its last value.
func ReadCovariates(r io.Reader) (map[string]float64, error) {
	times := make(map[string]float64)
	sc := bufio.NewScanner(r)
	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) != 2 {
			return nil, fmt.Errorf("line %d: %w: want 2 fields, got %d", lineNo, ErrMalformedLine, len(fields))
		}
		v, err := strconv.ParseFloat(fields[1], 64)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w: %v", lineNo, ErrMalformedLine, err)
		}
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, fmt.Errorf("line %d: %w: %s is not a finite number", lineNo, ErrMalformedLine, fields[1])
		}
		times[fields[0]] = v
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read sampling times: %w", err)
	}
	return times, nil
}

// ImportCovariates reads the sampling-time file at path.
func ImportCovariates(path string) (map[string]float64, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()
	return ReadCovariates(f)
}

// ReadOutgroups reads one outgroup label per line, skipping blank lines.
func ReadOutgroups(r io.Reader) ([]string, error) {
	var labels []string
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		if line := strings.TrimSpace(sc.Text()); line != "" {
			labels = append(labels, line)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read outgroups: %w", err)
	}
	return labels, nil
}

// ParseOutgroups splits a whitespace-separated list of labels.
func ParseOutgroups(s string) []string {
	return strings.Fields(s)
}

// LoadOutgroups interprets arg as a file of labels if such a file exists,
// and as a whitespace-separated list of labels otherwise.
func LoadOutgroups(arg string) ([]string, error) {
	f, err := os.Open(arg)
	if errors.Is(err, os.ErrNotExist) {
		return ParseOutgroups(arg), nil
	}
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", arg, err)
	}
	defer f.Close()
	return ReadOutgroups(f)
}
