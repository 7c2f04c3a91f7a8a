// Package yamlsource loads tip rules from a directory of YAML documents and hot-reloads
// them when the files change.
package yamlsource

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	tips "riftcoach/internal/tips/domain"
)

// ErrNoDocuments is returned when rule files exist but none of them could be used.
var ErrNoDocuments = errors.New("yamlsource: no readable rule documents")

// Result is the outcome of one directory load.
type Result struct {
	Set       *tips.RuleSet
	Files     int
	Documents int
	Problems  []error
}

// Loader reads every *.yaml and *.yml file of a directory in name order.
type Loader struct {
	dir    string
	known  func(string) bool
	logger *zap.Logger
}

// NewLoader constructs a Loader. known reports whether an objective name is tracked.
func NewLoader(dir string, known func(string) bool, logger *zap.Logger) (*Loader, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, errors.New("yamlsource: empty rules directory")
	}
	if known == nil {
		return nil, errors.New("yamlsource: nil objective lookup")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Loader{dir: dir, known: known, logger: logger.Named("rules")}, nil
}

// Dir returns the watched directory.
func (l *Loader) Dir() string {
	return l.dir
}

// Load parses the directory and compiles the rules. Unparseable documents and documents
// with an unsupported version are skipped and reported.
func (l *Loader) Load() (Result, error) {
	files, err := l.files()
	if err != nil {
		return Result{}, err
	}
	result := Result{Files: len(files)}
	var docs []tips.Document
	for _, path := range files {
		doc, err := readDocument(path)
		if err != nil {
			result.Problems = append(result.Problems, err)
			l.logger.Warn("rule document skipped", zap.String("file", filepath.Base(path)), zap.Error(err))
			continue
		}
		docs = append(docs, doc)
	}
	result.Documents = len(docs)

	set, problems := tips.Compile(docs, l.known)
	for _, problem := range problems {
		l.logger.Warn("rule skipped", zap.Error(problem))
	}
	result.Set = set
	result.Problems = append(result.Problems, problems...)
	return result, nil
}

func readDocument(path string) (tips.Document, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return tips.Document{}, err
	}
	var doc tips.Document
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return tips.Document{}, fmt.Errorf("%s: %w", filepath.Base(path), err)
	}
	if doc.Version != tips.SupportedVersion {
		return tips.Document{}, fmt.Errorf("%s: %w: %d", filepath.Base(path), tips.ErrUnsupportedVersion, doc.Version)
	}
	return doc, nil
}

func (l *Loader) files() ([]string, error) {
	entries, err := os.ReadDir(l.dir)
	if err != nil {
		return nil, fmt.Errorf("yamlsource: read %s: %w", l.dir, err)
	}
	var files []string
	for _, entry := range entries {
		if entry.IsDir() || !isRuleFile(entry.Name()) {
			continue
		}
		files = append(files, filepath.Join(l.dir, entry.Name()))
	}
	sort.Strings(files)
	return files, nil
}

// Fingerprint summarizes name, size and modification time of every rule file.
func (l *Loader) Fingerprint() (string, error) {
	files, err := l.files()
	if err != nil {
		return "", err
	}
	var b strings.Builder
	for _, path := range files {
		info, err := os.Stat(path)
		if err != nil {
			continue
		}
		fmt.Fprintf(&b, "%s|%d|%d;", filepath.Base(path), info.Size(), info.ModTime().UnixNano())
	}
	return b.String(), nil
}

func isRuleFile(name string) bool {
	if strings.HasPrefix(name, ".") {
		return false
	}
	switch strings.ToLower(filepath.Ext(name)) {
	case ".yaml", ".yml":
		return true
	default:
		return false
	}
}
