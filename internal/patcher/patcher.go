// Package patcher rewrites the footer.socials lists of localization files.
//
// A run enumerates the JSON files of one directory and, for every language
// on the rule's allow-list, replaces one entry of a fixed-length socials
// list. Files are only rewritten when something changed. The first error
// ends the run.
package patcher

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"slices"

	"github.com/spf13/afero"
	"go.uber.org/zap"

	apperrors "socialpatch.io/socialpatch/internal/pkg/errors"
	"socialpatch.io/socialpatch/internal/pkg/logger"
	"socialpatch.io/socialpatch/internal/pkg/worker"
)

// Options configures a Patcher.
type Options struct {
	// Dir is the directory holding the localization files.
	Dir string
	// Pattern is matched against file names inside Dir.
	Pattern string
	// Exclude lists base names that are never processed.
	Exclude []string
	// DryRun computes changes without writing any file.
	DryRun bool
	Rule   Rule
}

// DefaultOptions returns options for the working directory and DefaultRule.
func DefaultOptions() Options {
	return Options{
		Dir:     ".",
		Pattern: "*.json",
		Rule:    DefaultRule(),
	}
}

// Patcher applies a Rule to every matching file of a directory.
type Patcher struct {
	fs   afero.Fs
	opts Options
	pool *worker.Pool
}

type candidate struct {
	path string
	perm os.FileMode
}

// New validates opts and returns a Patcher working on fs.
func New(fs afero.Fs, opts Options, pool *worker.Pool) (*Patcher, error) {
	if err := opts.Rule.Validate(); err != nil {
		return nil, err
	}
	if opts.Pattern == "" {
		return nil, apperrors.ConfigInvalid("patch.pattern must not be empty")
	}
	if _, err := filepath.Match(opts.Pattern, ""); err != nil {
		return nil, apperrors.ConfigInvalid("invalid patch.pattern: " + err.Error())
	}
	if opts.Dir == "" {
		opts.Dir = "."
	}
	if pool == nil {
		return nil, errors.New("patcher: nil worker pool")
	}
	return &Patcher{fs: fs, opts: opts, pool: pool}, nil
}

// Run processes every matching file. The returned report is never nil and
// lists the files that were updated before any failure.
func (p *Patcher) Run(ctx context.Context) (*Report, error) {
	report := newReport(p.opts)
	log := logger.With(
		zap.String("run_id", report.RunID),
		zap.String("dir", p.opts.Dir),
		zap.Bool("dry_run", p.opts.DryRun),
	)

	files, err := p.listFiles()
	if err != nil {
		report.finish()
		return report, err
	}
	log.Debug("Localization files found", zap.Int("count", len(files)))

	results := make([]*FileResult, len(files))
	group, _ := p.pool.Group(ctx)
	for i, file := range files {
		group.Go(func(ctx context.Context) error {
			res, err := p.patchFile(log, file)
			if err != nil {
				return err
			}
			results[i] = res
			return nil
		})
	}
	err = group.Wait()

	for _, res := range results {
		if res != nil {
			report.add(*res)
		}
	}
	report.finish()

	if err != nil {
		log.Error("Run aborted", zap.Error(err), zap.Int("updated", len(report.Files)))
		return report, err
	}
	log.Debug("Run finished",
		zap.Int("scanned", report.Scanned),
		zap.Int("updated", len(report.Files)),
		zap.Any("pool", p.pool.Metrics()),
	)
	return report, nil
}

// listFiles returns the regular files matching the pattern, sorted by name.
func (p *Patcher) listFiles() ([]candidate, error) {
	pattern := filepath.Join(p.opts.Dir, p.opts.Pattern)
	matches, err := afero.Glob(p.fs, pattern)
	if err != nil {
		return nil, apperrors.FileListFailed(pattern, err)
	}
	slices.Sort(matches)

	files := make([]candidate, 0, len(matches))
	for _, path := range matches {
		if slices.Contains(p.opts.Exclude, filepath.Base(path)) {
			continue
		}
		info, err := p.fs.Stat(path)
		if err != nil {
			return nil, apperrors.FileListFailed(path, err)
		}
		if info.IsDir() {
			continue
		}
		files = append(files, candidate{path: path, perm: info.Mode().Perm()})
	}
	return files, nil
}

func (p *Patcher) patchFile(log *zap.Logger, file candidate) (*FileResult, error) {
	data, err := afero.ReadFile(p.fs, file.path)
	if err != nil {
		return nil, apperrors.FileReadFailed(file.path, err)
	}

	patched, changes, err := PatchDocument(data, p.opts.Rule)
	if err != nil {
		return nil, apperrors.DocumentParseFailed(file.path, err)
	}

	res := &FileResult{File: file.path, Changes: changes}
	if !res.Updated() {
		log.Debug("No change", zap.String("file", file.path))
		return res, nil
	}

	for _, c := range changes {
		log.Debug("Socials entry replaced",
			zap.String("file", file.path),
			zap.String("language", c.Language),
			zap.String("previous", c.Previous),
			zap.String("value", c.Value),
		)
	}

	if p.opts.DryRun {
		return res, nil
	}
	if err := afero.WriteFile(p.fs, file.path, patched, file.perm); err != nil {
		return nil, apperrors.FileWriteFailed(file.path, err)
	}
	return res, nil
}
