package application

import (
	"fmt"
	"path"
	"path/filepath"
	"strings"

	logger "github.com/sirupsen/logrus"

	"github.com/rios0rios0/reposync/domain"
)

// TemplateData is the context template rules render with.
type TemplateData struct {
	Repo   domain.RepoRef    // destination repository
	Source string            // source repository "owner/name"
	Vars   map[string]string // extra variables from the config
}

// Applicator applies the configured file rules of one source commit to a
// destination working copy, delegating raw copy and rendering to the file
// primitive and forcing the results into the git index.
type Applicator struct {
	fs  domain.FileSyncer
	git domain.GitClient
}

// NewApplicator creates an applicator over the given primitives.
func NewApplicator(fs domain.FileSyncer, git domain.GitClient) *Applicator {
	return &Applicator{fs: fs, git: git}
}

// Apply applies one rule from the source checkout to the destination working
// copy and stages the affected paths. A missing source path, or an existing
// destination with replace disabled, skips the rule with a warning.
func (a *Applicator) Apply(rule domain.FileRule, srcRoot, destRoot string, data TemplateData) error {
	src := filepath.Join(srcRoot, filepath.FromSlash(rule.Source))
	dest := filepath.Join(destRoot, filepath.FromSlash(rule.Dest))

	if !a.fs.Exists(src) {
		logger.Warnf("Source path %q does not exist, skipping rule", rule.Source)
		return nil
	}
	if a.fs.Exists(dest) && !rule.Replace {
		logger.Warnf("Destination %q exists and replace is disabled, skipping rule", rule.Dest)
		return nil
	}

	isDir := a.fs.IsDir(src)

	if err := a.write(rule, src, dest, isDir, data); err != nil {
		return err
	}

	if rule.DeleteOrphaned && isDir {
		if err := a.deleteOrphans(rule, src, dest); err != nil {
			return err
		}
	}

	// Staging is forced so paths matched by ignore rules land in the index
	// anyway.
	if err := a.git.ForceAdd(destRoot, []string{stagePath(rule.Dest)}); err != nil {
		return err
	}
	return nil
}

func (a *Applicator) write(rule domain.FileRule, src, dest string, isDir bool, data TemplateData) error {
	if !rule.Template {
		if err := a.fs.Copy(src, dest, rule); err != nil {
			return fmt.Errorf("failed to copy %q: %w", rule.Source, err)
		}
		return nil
	}

	if !isDir {
		if err := a.fs.Render(src, dest, data); err != nil {
			return fmt.Errorf("failed to render %q: %w", rule.Source, err)
		}
		return nil
	}

	files, err := a.fs.ListFiles(src, rule)
	if err != nil {
		return err
	}
	for _, rel := range files {
		from := filepath.Join(src, filepath.FromSlash(rel))
		to := filepath.Join(dest, filepath.FromSlash(rel))
		if renderErr := a.fs.Render(from, to, data); renderErr != nil {
			return fmt.Errorf("failed to render %q: %w", path.Join(rule.Source, rel), renderErr)
		}
	}
	return nil
}

// deleteOrphans removes destination files absent from the post-exclude
// source listing. Excluded destination paths are left untouched.
func (a *Applicator) deleteOrphans(rule domain.FileRule, src, dest string) error {
	srcFiles, err := a.fs.ListFiles(src, rule)
	if err != nil {
		return err
	}
	inSource := make(map[string]bool, len(srcFiles))
	for _, f := range srcFiles {
		inSource[f] = true
	}

	destFiles, err := a.fs.ListFiles(dest, domain.FileRule{})
	if err != nil {
		return err
	}

	for _, rel := range destFiles {
		if inSource[rel] || rule.Excluded(rel) {
			continue
		}
		logger.Debugf("Deleting orphaned file %q", path.Join(rule.Dest, rel))
		if removeErr := a.fs.Remove(filepath.Join(dest, filepath.FromSlash(rel))); removeErr != nil {
			return removeErr
		}
	}
	return nil
}

// stagePath normalizes a rule destination for staging, relative to the
// working copy root.
func stagePath(dest string) string {
	p := path.Clean(strings.ReplaceAll(dest, "\\", "/"))
	p = strings.TrimPrefix(p, "/")
	if p == "" || p == "." {
		return "."
	}
	return strings.TrimSuffix(p, "/")
}
