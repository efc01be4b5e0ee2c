// SPDX-License-Identifier: MIT

package ingest

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"

	"github.com/papercast-dev/papercast/internal/metrics"
)

// textExtensions are the file types concatenated from a cloned repo.
var textExtensions = map[string]bool{
	".md":       true,
	".mdx":      true,
	".markdown": true,
	".txt":      true,
}

// GitPreview lists what a git ingestion would include, without
// persisting anything.
type GitPreview struct {
	Title string
	Files []string
}

// FromGit shallow-clones a repository and concatenates its markdown and
// text files in depth-first lexicographic order, separated by
// "## File: path" headings. subpath optionally narrows the walk.
func (in *Ingestor) FromGit(ctx context.Context, repoURL, subpath string) (Result, error) {
	dir, files, err := in.cloneAndList(ctx, repoURL, subpath)
	if err != nil {
		return Result{}, err
	}
	defer func() { _ = os.RemoveAll(dir) }()

	root := filepath.Join(dir, filepath.FromSlash(subpath))
	var b strings.Builder
	for _, rel := range files {
		data, err := os.ReadFile(filepath.Join(root, filepath.FromSlash(rel)))
		if err != nil {
			metrics.IngestAttempt("git", "fetch_failed")
			return Result{}, fmt.Errorf("%w: read %s: %v", ErrFetchFailed, rel, err)
		}
		if int64(b.Len()+len(data)) > in.cfg.MaxBytes {
			metrics.IngestAttempt("git", "too_large")
			return Result{}, fmt.Errorf("%w: repository text exceeds %d bytes", ErrTooLarge, in.cfg.MaxBytes)
		}
		b.WriteString("## File: " + rel + "\n\n")
		b.Write(data)
		b.WriteString("\n\n")
	}
	if b.Len() == 0 {
		metrics.IngestAttempt("git", "unsupported")
		return Result{}, fmt.Errorf("%w: no markdown or text files in repository", ErrUnsupportedType)
	}

	title := repoTitle(root, repoURL)
	in.logger.Info().
		Str("event", "ingest.git").
		Str("repo", repoURL).
		Int("files", len(files)).
		Msg("ingested repository")
	metrics.IngestAttempt("git", "ok")
	return Result{
		Title:       title,
		RawText:     strings.TrimSpace(b.String()),
		Variant:     "git",
		OriginalURL: repoURL,
	}, nil
}

// PreviewGit clones the repository and returns the candidate file list
// plus a suggested title.
func (in *Ingestor) PreviewGit(ctx context.Context, repoURL, subpath string) (GitPreview, error) {
	dir, files, err := in.cloneAndList(ctx, repoURL, subpath)
	if err != nil {
		return GitPreview{}, err
	}
	defer func() { _ = os.RemoveAll(dir) }()

	root := filepath.Join(dir, filepath.FromSlash(subpath))
	return GitPreview{Title: repoTitle(root, repoURL), Files: files}, nil
}

func (in *Ingestor) cloneAndList(ctx context.Context, repoURL, subpath string) (dir string, files []string, err error) {
	if strings.Contains(subpath, "..") {
		return "", nil, fmt.Errorf("%w: invalid subpath", ErrFetchFailed)
	}

	dir, err = os.MkdirTemp("", "papercast-clone-*")
	if err != nil {
		return "", nil, fmt.Errorf("%w: %v", ErrFetchFailed, err)
	}
	cleanup := func() { _ = os.RemoveAll(dir) }

	cloneCtx, cancel := context.WithTimeout(ctx, in.cfg.GitTimeout)
	defer cancel()

	cmd := exec.CommandContext(cloneCtx, "git", "clone", "--depth", "1", "--quiet", repoURL, dir)
	cmd.Env = append(os.Environ(), "GIT_TERMINAL_PROMPT=0")
	if out, cmdErr := cmd.CombinedOutput(); cmdErr != nil {
		cleanup()
		if cloneCtx.Err() != nil {
			metrics.IngestAttempt("git", "timeout")
			return "", nil, fmt.Errorf("%w: git clone %s", ErrTimeout, repoURL)
		}
		metrics.IngestAttempt("git", "fetch_failed")
		return "", nil, fmt.Errorf("%w: git clone: %s", ErrFetchFailed, firstLine(string(out)))
	}

	root := filepath.Join(dir, filepath.FromSlash(subpath))
	files, err = listTextFiles(root)
	if err != nil {
		cleanup()
		metrics.IngestAttempt("git", "fetch_failed")
		return "", nil, fmt.Errorf("%w: %v", ErrFetchFailed, err)
	}
	return dir, files, nil
}

// listTextFiles walks root depth-first and returns relative slash paths
// of text files in lexicographic order.
func listTextFiles(root string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if d.Name() == ".git" {
				return filepath.SkipDir
			}
			return nil
		}
		if !textExtensions[strings.ToLower(filepath.Ext(path))] {
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		files = append(files, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(files)
	return files, nil
}

// repoTitle picks the first heading of the README, falling back to the
// repository name from its URL.
func repoTitle(root, repoURL string) string {
	for _, name := range []string{"README.md", "readme.md", "README.markdown", "README.txt"} {
		data, err := os.ReadFile(filepath.Join(root, name))
		if err != nil {
			continue
		}
		for _, line := range strings.Split(string(data), "\n") {
			line = strings.TrimSpace(line)
			if strings.HasPrefix(line, "#") {
				if t := strings.TrimSpace(strings.TrimLeft(line, "#")); t != "" {
					return t
				}
			}
		}
	}
	name := strings.TrimSuffix(filepath.Base(strings.TrimSuffix(repoURL, "/")), ".git")
	if name == "" || name == "." {
		return "Repository"
	}
	return name
}

func firstLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
