// Package dataset loads gzip-compressed tab-separated regression datasets.
// The header row names the columns; every column but the last is an input
// variable and the last is the prediction target.
package dataset

import (
	"bufio"
	"compress/gzip"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"cellgp/internal/regression"
)

// Dataset is a parsed regression dataset.
type Dataset struct {
	Name      string
	Variables []string
	Target    string
	Samples   []regression.Sample
}

// Load reads one gzip-compressed TSV file.
func Load(path string) (Dataset, error) {
	f, err := os.Open(path)
	if err != nil {
		return Dataset{}, err
	}
	defer f.Close()

	gz, err := gzip.NewReader(f)
	if err != nil {
		return Dataset{}, fmt.Errorf("open %s: %w", path, err)
	}
	defer gz.Close()

	name := strings.TrimSuffix(filepath.Base(path), ".gz")
	ds, err := parse(name, bufio.NewScanner(gz))
	if err != nil {
		return Dataset{}, fmt.Errorf("parse %s: %w", path, err)
	}
	return ds, nil
}

func parse(name string, scanner *bufio.Scanner) (Dataset, error) {
	if !scanner.Scan() {
		if err := scanner.Err(); err != nil {
			return Dataset{}, err
		}
		return Dataset{}, fmt.Errorf("missing header row")
	}
	header := strings.Split(strings.TrimRight(scanner.Text(), "\r\n"), "\t")
	if len(header) < 2 {
		return Dataset{}, fmt.Errorf("header must name at least one variable and the target")
	}

	ds := Dataset{
		Name:      name,
		Variables: header[:len(header)-1],
		Target:    header[len(header)-1],
	}

	line := 1
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}
		fields := strings.Split(text, "\t")
		if len(fields) != len(header) {
			return Dataset{}, fmt.Errorf("line %d: %d columns, want %d", line, len(fields), len(header))
		}
		values := make([]float64, len(fields))
		for i, field := range fields {
			v, err := strconv.ParseFloat(strings.TrimSpace(field), 64)
			if err != nil {
				return Dataset{}, fmt.Errorf("line %d column %d: %w", line, i+1, err)
			}
			values[i] = v
		}
		ds.Samples = append(ds.Samples, regression.Sample{
			Inputs: values[:len(values)-1],
			Target: values[len(values)-1],
		})
	}
	if err := scanner.Err(); err != nil {
		return Dataset{}, err
	}
	if len(ds.Samples) == 0 {
		return Dataset{}, fmt.Errorf("no samples")
	}
	return ds, nil
}

// ScanDir lists the dataset files of a directory in name order, skipping
// subdirectories.
func ScanDir(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var files []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		files = append(files, filepath.Join(dir, entry.Name()))
	}
	sort.Strings(files)
	if len(files) == 0 {
		return nil, fmt.Errorf("no dataset files in %s", dir)
	}
	return files, nil
}
