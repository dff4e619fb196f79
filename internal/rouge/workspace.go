package rouge

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	apperrors "github.com/rouge-eval/backend/pkg/errors"
)

// SplConfigName is the file name of the config written into a Workspace.
const SplConfigName = "rouge.spl"

var summaryIDPattern = regexp.MustCompile(`^[A-Za-z0-9._-]+$`)

// SummaryPair is one system summary and the references it is scored against.
// Texts are sentence-per-line.
type SummaryPair struct {
	ID         string   `json:"id"`
	System     string   `json:"system"`
	References []string `json:"references"`
}

// ValidatePairs checks IDs and reference counts before anything is written.
func ValidatePairs(pairs []SummaryPair) error {
	if len(pairs) == 0 {
		return apperrors.ConfigurationError("at least one summary is required")
	}
	seen := make(map[string]bool, len(pairs))
	for _, p := range pairs {
		if !summaryIDPattern.MatchString(p.ID) || p.ID == "." || p.ID == ".." {
			return apperrors.ConfigurationError("summary id %q must match %s", p.ID, summaryIDPattern)
		}
		if seen[p.ID] {
			return apperrors.ConfigurationError("duplicate summary id %q", p.ID)
		}
		seen[p.ID] = true
		if len(p.References) == 0 {
			return apperrors.ConfigurationError("summary %q has no references", p.ID)
		}
	}
	return nil
}

// WriteSPLConfig writes one line per entry: the system path followed by
// its reference paths.
func WriteSPLConfig(w io.Writer, entries [][]string) error {
	bw := bufio.NewWriter(w)
	for _, paths := range entries {
		for _, p := range paths {
			if strings.ContainsAny(p, " \t\n") {
				return fmt.Errorf("path %q contains whitespace", p)
			}
		}
		if _, err := bw.WriteString(strings.Join(paths, " ") + "\n"); err != nil {
			return fmt.Errorf("failed to write config line: %w", err)
		}
	}
	return bw.Flush()
}

// Workspace is a private directory holding the summary files and SPL config
// of one evaluation, so concurrent evaluations never share files.
type Workspace struct {
	dir string
}

// NewWorkspace creates a fresh directory under root (os.TempDir when empty).
func NewWorkspace(root string) (*Workspace, error) {
	if root != "" {
		if err := os.MkdirAll(root, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create work dir: %w", err)
		}
	}
	dir, err := os.MkdirTemp(root, "rouge-")
	if err != nil {
		return nil, fmt.Errorf("failed to create workspace: %w", err)
	}
	return &Workspace{dir: dir}, nil
}

func (w *Workspace) Dir() string {
	return w.dir
}

// Write stores every summary and reference and returns the SPL config path.
func (w *Workspace) Write(pairs []SummaryPair) (string, error) {
	if err := ValidatePairs(pairs); err != nil {
		return "", err
	}

	entries := make([][]string, 0, len(pairs))
	for _, p := range pairs {
		sysPath := filepath.Join(w.dir, p.ID+".sys")
		if err := writeSummary(sysPath, p.System); err != nil {
			return "", err
		}
		line := []string{sysPath}
		for i, ref := range p.References {
			refPath := filepath.Join(w.dir, fmt.Sprintf("%s.ref.%d", p.ID, i+1))
			if err := writeSummary(refPath, ref); err != nil {
				return "", err
			}
			line = append(line, refPath)
		}
		entries = append(entries, line)
	}

	configPath := filepath.Join(w.dir, SplConfigName)
	f, err := os.Create(configPath)
	if err != nil {
		return "", fmt.Errorf("failed to create config file: %w", err)
	}
	if err := WriteSPLConfig(f, entries); err != nil {
		f.Close()
		return "", err
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("failed to close config file: %w", err)
	}
	return configPath, nil
}

// Close removes the workspace directory and everything in it.
func (w *Workspace) Close() error {
	return os.RemoveAll(w.dir)
}

func writeSummary(path, text string) error {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	if !strings.HasSuffix(text, "\n") {
		text += "\n"
	}
	if err := os.WriteFile(path, []byte(text), 0o644); err != nil {
		return fmt.Errorf("failed to write summary %s: %w", filepath.Base(path), err)
	}
	return nil
}
