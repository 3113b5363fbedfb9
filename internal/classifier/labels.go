package classifier

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/echolens-ai/echolens/internal/errors"
)

// LoadLabels reads a label file. Plain text files hold one label per line;
// CSV class maps (index,mid,display_name) use the last column and skip the header.
func LoadLabels(path string) ([]string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, errors.New(fmt.Errorf("%w: %w", ErrLabels, err)).
			Component(ComponentClassifier).
			Category(errors.CategoryLabelLoad).
			Context("file", filepath.Base(path)).
			Build()
	}
	defer file.Close()

	var labels []string
	if strings.EqualFold(filepath.Ext(path), ".csv") {
		labels, err = parseCSVLabels(file)
	} else {
		labels, err = parseTextLabels(file)
	}
	if err != nil {
		return nil, errors.New(fmt.Errorf("%w: %w", ErrLabels, err)).
			Component(ComponentClassifier).
			Category(errors.CategoryLabelLoad).
			Context("file", filepath.Base(path)).
			Build()
	}
	if len(labels) == 0 {
		return nil, errors.New(fmt.Errorf("%w: label file is empty", ErrLabels)).
			Component(ComponentClassifier).
			Category(errors.CategoryLabelLoad).
			Context("file", filepath.Base(path)).
			Build()
	}
	return labels, nil
}

func parseTextLabels(r io.Reader) ([]string, error) {
	var labels []string
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		if label := strings.TrimSpace(scanner.Text()); label != "" {
			labels = append(labels, label)
		}
	}
	return labels, scanner.Err()
}

func parseCSVLabels(r io.Reader) ([]string, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	records, err := reader.ReadAll()
	if err != nil {
		return nil, err
	}

	var labels []string
	for i, rec := range records {
		if len(rec) == 0 {
			continue
		}
		label := strings.TrimSpace(rec[len(rec)-1])
		if i == 0 && strings.EqualFold(label, "display_name") {
			continue
		}
		labels = append(labels, label)
	}
	return labels, nil
}
