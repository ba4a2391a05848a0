package storage

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/adverant/nexus/diktim-ocr/internal/lexicon"
)

// FileCorpus serves a newline-delimited text file as the corpus. Blank lines
// and lines starting with # are ignored. The file is re-read on every call so
// edits are picked up at the next lexicon rebuild.
type FileCorpus struct {
	path string
}

// NewFileCorpus checks that path is readable.
func NewFileCorpus(path string) (*FileCorpus, error) {
	if path == "" {
		return nil, fmt.Errorf("lexicon file path is required")
	}
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("lexicon file: %w", err)
	}
	return &FileCorpus{path: path}, nil
}

// EnabledExerciseTexts returns one text per non-comment line.
func (f *FileCorpus) EnabledExerciseTexts(ctx context.Context) ([]lexicon.ExerciseText, error) {
	file, err := os.Open(f.path)
	if err != nil {
		return nil, fmt.Errorf("failed to open lexicon file: %w", err)
	}
	defer file.Close()

	var texts []lexicon.ExerciseText
	sc := bufio.NewScanner(file)
	sc.Buffer(make([]byte, 64*1024), 1024*1024)
	for sc.Scan() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		texts = append(texts, lexicon.ExerciseText{Prompt: line})
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("failed to read lexicon file: %w", err)
	}
	return texts, nil
}
