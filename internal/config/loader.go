package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Load reads a devserve manifest from the provided path.
func Load(path string) (*File, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve manifest path: %w", err)
	}

	f, err := os.Open(absPath)
	if err != nil {
		return nil, fmt.Errorf("open manifest: %w", err)
	}
	defer f.Close()

	decoder := yaml.NewDecoder(f)
	decoder.KnownFields(true)
	var doc File
	if err := decoder.Decode(&doc); err != nil {
		return nil, fmt.Errorf("%s: decode: %w", absPath, err)
	}

	doc.Server.ResolvedWorkdir = resolveWorkdir(filepath.Dir(absPath), os.ExpandEnv(doc.Server.Workdir))

	if len(doc.Server.Env) > 0 {
		expanded := make(map[string]string, len(doc.Server.Env))
		for k, v := range doc.Server.Env {
			expanded[k] = os.ExpandEnv(v)
		}
		doc.Server.Env = expanded
	}

	doc.ApplyDefaults()
	if err := doc.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", absPath, err)
	}
	return &doc, nil
}

// LoadOrDefault loads the manifest at path, falling back to the built-in
// defaults when no manifest exists. The default working directory is the
// directory containing the devserve executable itself, matching the
// behaviour of invoking the tool from a project checkout it is dropped into.
func LoadOrDefault(path string) (*File, error) {
	doc, err := Load(path)
	if err == nil {
		return doc, nil
	}
	if !errors.Is(err, fs.ErrNotExist) {
		return nil, err
	}
	return Default()
}

// Default returns the configuration used when no manifest is present.
func Default() (*File, error) {
	exe, err := os.Executable()
	if err != nil {
		return nil, fmt.Errorf("locate executable: %w", err)
	}
	if resolved, err := filepath.EvalSymlinks(exe); err == nil {
		exe = resolved
	}

	doc := &File{}
	doc.Server.ResolvedWorkdir = filepath.Dir(exe)
	doc.ApplyDefaults()
	return doc, nil
}

func resolveWorkdir(base, workdir string) string {
	if workdir == "" {
		return base
	}
	if filepath.IsAbs(workdir) {
		return filepath.Clean(workdir)
	}
	return filepath.Clean(filepath.Join(base, workdir))
}
