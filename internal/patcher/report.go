package patcher

import (
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"

	apperrors "socialpatch.io/socialpatch/internal/pkg/errors"
)

// CompletionMessage is printed after a run that finished without error.
const CompletionMessage = "All updates completed."

// FileResult is the outcome for one localization file.
type FileResult struct {
	File    string   `yaml:"file"`
	Changes []Change `yaml:"changes"`
}

// Updated reports whether the file was (or, in a dry run, would be) rewritten.
func (r FileResult) Updated() bool {
	return len(r.Changes) > 0
}

// Report summarizes one run. Files holds updated files only, in name order.
type Report struct {
	RunID      string       `yaml:"run_id"`
	Dir        string       `yaml:"dir"`
	DryRun     bool         `yaml:"dry_run"`
	StartedAt  time.Time    `yaml:"started_at"`
	FinishedAt time.Time    `yaml:"finished_at"`
	Scanned    int          `yaml:"scanned"`
	Files      []FileResult `yaml:"files"`
}

func newReport(opts Options) *Report {
	return &Report{
		RunID:     uuid.NewString(),
		Dir:       opts.Dir,
		DryRun:    opts.DryRun,
		StartedAt: time.Now().UTC(),
		Files:     []FileResult{},
	}
}

func (r *Report) add(res FileResult) {
	r.Scanned++
	if res.Updated() {
		r.Files = append(r.Files, res)
	}
}

func (r *Report) finish() {
	r.FinishedAt = time.Now().UTC()
}

// UpdatedFiles returns the names of the updated files.
func (r *Report) UpdatedFiles() []string {
	names := make([]string, 0, len(r.Files))
	for _, f := range r.Files {
		names = append(names, f.File)
	}
	return names
}

// WriteSummary prints one line per updated file.
func (r *Report) WriteSummary(w io.Writer) error {
	verb := "Updated"
	if r.DryRun {
		verb = "Would update"
	}
	for _, f := range r.Files {
		if _, err := fmt.Fprintf(w, "%s %s\n", verb, f.File); err != nil {
			return err
		}
	}
	return nil
}

// WriteYAML stores the report as YAML at path.
func (r *Report) WriteYAML(fs afero.Fs, path string) error {
	data, err := yaml.Marshal(r)
	if err != nil {
		return apperrors.ReportWriteFailed(path, err)
	}
	if err := afero.WriteFile(fs, path, data, 0o644); err != nil {
		return apperrors.ReportWriteFailed(path, err)
	}
	return nil
}
