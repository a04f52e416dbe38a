// Package layout owns the workspace's LayoutSnapshot: the resolved list of
// source files, include directories, and defines every compilation in the
// workspace must agree on.
package layout

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/hankhsu1996/slangd-go/diag"
	"github.com/hankhsu1996/slangd-go/location"
)

// ConfigFileName is the workspace configuration file slangd reads, relative
// to the workspace root.
const ConfigFileName = ".slangd"

// excludedDirs are skipped during auto-discovery, matching slangd's own
// directory walk.
var excludedDirs = map[string]bool{
	"build": true,
}

// Snapshot is an immutable view of the workspace's resolved layout. A new
// Snapshot replaces the previous one in full; nothing in this package
// mutates a Snapshot after it is returned from Load.
type Snapshot struct {
	Version      int
	SourceFiles  []location.CanonicalPath
	IncludeDirs  []location.CanonicalPath
	Defines      []string
	WorkspaceDir location.CanonicalPath
}

// Config is the decoded shape of the workspace's .slangd YAML file.
type Config struct {
	Files       []string `yaml:"files"`
	IncludeDirs []string `yaml:"include_dirs"`
	Defines     []string `yaml:"defines"`
	FileLists   []string `yaml:"file_lists"`
}

// Service owns the latest Snapshot for a single workspace root and produces
// a new one, with a bumped version, whenever Load is called again.
type Service struct {
	workspaceRoot location.CanonicalPath
	issues        *diag.Collector

	mu      sync.RWMutex
	current *Snapshot
}

// NewService creates a layout service rooted at workspaceRoot. Call Load
// once before CurrentSnapshot is meaningful.
func NewService(workspaceRoot location.CanonicalPath, issues *diag.Collector) *Service {
	return &Service{workspaceRoot: workspaceRoot, issues: issues}
}

// CurrentSnapshot returns the latest resolved layout, or nil if Load has
// never been called.
func (s *Service) CurrentSnapshot() *Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

// ConfigPath returns the canonical path of the workspace's .slangd file,
// whether or not it currently exists.
func (s *Service) ConfigPath() (location.CanonicalPath, error) {
	return s.workspaceRoot.Join(ConfigFileName)
}

// Load reads <workspace_root>/.slangd, falling back to auto-discovery if it
// is absent or malformed, and produces a new Snapshot with a monotonically
// bumped version. A malformed config degrades to a diagnostic plus
// auto-discovery rather than failing the load.
func (s *Service) Load() (*Snapshot, error) {
	configPath, err := s.ConfigPath()
	if err != nil {
		return nil, fmt.Errorf("resolve config path: %w", err)
	}

	cfg, ok := s.readConfig(configPath)

	var sourceFiles []location.CanonicalPath
	var includeDirs []location.CanonicalPath
	var defines []string

	if ok && len(cfg.Files) > 0 {
		sourceFiles = s.resolveGlobs(cfg.Files)
	} else {
		sourceFiles = s.discoverSourceFiles()
	}

	if ok {
		for _, listPath := range cfg.FileLists {
			sourceFiles = append(sourceFiles, s.expandFileList(listPath)...)
		}
		includeDirs = s.resolveDirs(cfg.IncludeDirs)
		defines = append(defines, cfg.Defines...)
	}

	sourceFiles = dedupePreserveOrder(sourceFiles)

	s.mu.Lock()
	defer s.mu.Unlock()
	version := 1
	if s.current != nil {
		version = s.current.Version + 1
	}
	snap := &Snapshot{
		Version:      version,
		SourceFiles:  sourceFiles,
		IncludeDirs:  includeDirs,
		Defines:      defines,
		WorkspaceDir: s.workspaceRoot,
	}
	s.current = snap
	return snap, nil
}

// OnConfigChanged re-runs Load if changedPath is the workspace's .slangd
// file or one of the file_lists it names. Returns the new snapshot (nil if
// changedPath was irrelevant and no reload happened).
func (s *Service) OnConfigChanged(changedPath location.CanonicalPath) (*Snapshot, error) {
	configPath, err := s.ConfigPath()
	if err != nil {
		return nil, err
	}
	if changedPath == configPath {
		return s.Load()
	}

	cfg, ok := s.readConfig(configPath)
	if !ok {
		return nil, nil
	}
	for _, listPath := range cfg.FileLists {
		resolved, err := s.workspaceRoot.Join(listPath)
		if err == nil && resolved == changedPath {
			return s.Load()
		}
	}
	return nil, nil
}

func (s *Service) readConfig(configPath location.CanonicalPath) (Config, bool) {
	data, err := os.ReadFile(configPath.String())
	if err != nil {
		// Absence means "auto-discover"; not an error worth a diagnostic.
		return Config{}, false
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		if s.issues != nil {
			src := location.SourceIDFromCanonicalPath(configPath)
			s.issues.Collect(diag.NewIssue(diag.Error, diag.E_CONFIG_PARSE,
				fmt.Sprintf("malformed %s: %s; falling back to auto-discovery", ConfigFileName, err)).
				WithSpan(location.Point(src, 1, 1)).
				Build())
		}
		return Config{}, false
	}
	return cfg, true
}

// resolveGlobs expands each files entry (a glob or a literal path) relative
// to the workspace root, preserving first-mention order.
func (s *Service) resolveGlobs(patterns []string) []location.CanonicalPath {
	var out []location.CanonicalPath
	for _, pattern := range patterns {
		abs := filepath.Join(s.workspaceRoot.String(), pattern)
		matches, err := filepath.Glob(abs)
		if err != nil || len(matches) == 0 {
			// Not a glob, or no matches: treat as a literal relative path.
			if cp, err := location.NewCanonicalPath(abs); err == nil {
				out = append(out, cp)
			}
			continue
		}
		sort.Strings(matches)
		for _, m := range matches {
			if cp, err := location.NewCanonicalPath(m); err == nil {
				out = append(out, cp)
			}
		}
	}
	return out
}

func (s *Service) resolveDirs(dirs []string) []location.CanonicalPath {
	var out []location.CanonicalPath
	for _, d := range dirs {
		abs := filepath.Join(s.workspaceRoot.String(), d)
		if cp, err := location.NewCanonicalPath(abs); err == nil {
			out = append(out, cp)
		}
	}
	return out
}

// expandFileList reads a file_lists entry and treats its non-blank,
// non-comment lines as additional source paths relative to the list file's
// own directory. I/O errors degrade to a logged warning; the rest of the
// layout still loads.
func (s *Service) expandFileList(listPath string) []location.CanonicalPath {
	abs := filepath.Join(s.workspaceRoot.String(), listPath)
	f, err := os.Open(abs)
	if err != nil {
		if s.issues != nil {
			b := diag.NewIssue(diag.Warning, diag.E_CONFIG_FILE_LIST,
				fmt.Sprintf("cannot read file list %q: %s", listPath, err)).
				WithDetails(diag.ConfigField("file_lists")...)
			if configPath, cerr := s.ConfigPath(); cerr == nil {
				b = b.WithSpan(location.Point(location.SourceIDFromCanonicalPath(configPath), 1, 1))
			}
			s.issues.Collect(b.Build())
		}
		return nil
	}
	defer f.Close()

	listDir := filepath.Dir(abs)
	var out []location.CanonicalPath
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") || strings.HasPrefix(line, "//") {
			continue
		}
		resolved := line
		if !filepath.IsAbs(line) {
			resolved = filepath.Join(listDir, line)
		}
		if cp, err := location.NewCanonicalPath(resolved); err == nil {
			out = append(out, cp)
		}
	}
	return out
}

// discoverSourceFiles recursively scans the workspace root for
// *.sv|*.svh|*.v|*.vh, skipping .git, build/, and any dot-prefixed
// directory.
func (s *Service) discoverSourceFiles() []location.CanonicalPath {
	var out []location.CanonicalPath
	root := s.workspaceRoot.String()
	_ = filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return nil //nolint:nilerr // best-effort walk
		}
		if d.IsDir() {
			name := d.Name()
			if name != "." && (strings.HasPrefix(name, ".") || excludedDirs[name]) {
				return filepath.SkipDir
			}
			return nil
		}
		cp, err := location.NewCanonicalPath(path)
		if err != nil || !cp.HasSourceExtension() {
			return nil
		}
		out = append(out, cp)
		return nil
	})
	return out
}

func dedupePreserveOrder(paths []location.CanonicalPath) []location.CanonicalPath {
	seen := make(map[string]bool, len(paths))
	out := make([]location.CanonicalPath, 0, len(paths))
	for _, p := range paths {
		key := p.String()
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, p)
	}
	return out
}
