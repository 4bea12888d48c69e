package storage

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode"

	"github.com/ubuntu/decorate"
	"golang.org/x/text/unicode/norm"

	errs "rewardsreceipts/pkg/errors"
)

// SidecarExt is the extension of the raw JSON file kept next to each receipt
const SidecarExt = ".json"

// ErrUnsafeName is returned for names that cannot be used as a single path
// element
var ErrUnsafeName = errors.New("unsafe path element")

// Manager owns the output directory layout:
// <root>/<group id>/<filename> and its .json sidecar.
type Manager struct {
	outputDir string
}

// NewManager creates the output root if needed. Failure here is fatal for
// a run.
func NewManager(outputDir string) (m *Manager, err error) {
	defer decorate.OnError(&err, "failed to prepare output directory %q", outputDir)

	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return nil, errs.NewIOError("mkdir", err)
	}
	info, err := os.Stat(outputDir)
	if err != nil {
		return nil, errs.NewIOError("stat", err)
	}
	if !info.IsDir() {
		return nil, errs.NewIOError("not a directory", nil)
	}

	return &Manager{outputDir: outputDir}, nil
}

// GetOutputDir returns the output directory path
func (m *Manager) GetOutputDir() string {
	return m.outputDir
}

// PurgeStaging deletes the named staging directories under the output root.
// Their membership is recomputed by the feed on every run, so they are
// rebuilt from scratch rather than reconciled. Missing directories are fine.
func (m *Manager) PurgeStaging(names []string) (purged []string, err error) {
	defer decorate.OnError(&err, "failed to purge staging directories")

	for _, name := range names {
		safe, err := SanitizeName(name)
		if err != nil {
			return purged, err
		}
		if safe != name {
			return purged, fmt.Errorf("%w: staging directory %q", ErrUnsafeName, name)
		}

		dir := filepath.Join(m.outputDir, name)
		if _, err := os.Lstat(dir); errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err := os.RemoveAll(dir); err != nil {
			return purged, errs.NewIOError(fmt.Sprintf("remove %s", dir), err)
		}
		purged = append(purged, name)
	}
	return purged, nil
}

// EnsureGroupDir creates the directory of a feed group, named after its id
func (m *Manager) EnsureGroupDir(groupID string) (dir string, err error) {
	defer decorate.OnError(&err, "failed to create directory for group %q", groupID)

	name, err := SanitizeName(groupID)
	if err != nil {
		return "", err
	}

	dir = filepath.Join(m.outputDir, name)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", errs.NewIOError("mkdir", err)
	}
	return dir, nil
}

// ReceiptPaths returns where a receipt and its sidecar live inside dir.
// The sidecar is the receipt path with its extension replaced by .json;
// a receipt already named *.json keeps its name and gains a second .json.
func ReceiptPaths(dir, filename string) (binPath, jsonPath string, err error) {
	name, err := SanitizeName(filename)
	if err != nil {
		return "", "", fmt.Errorf("receipt filename: %w", err)
	}

	binPath = filepath.Join(dir, name)
	ext := filepath.Ext(name)
	if strings.EqualFold(ext, SidecarExt) {
		return binPath, binPath + SidecarExt, nil
	}
	return binPath, strings.TrimSuffix(binPath, ext) + SidecarExt, nil
}

// IsComplete reports whether both artifacts of a receipt exist. Only
// existence is checked, never content.
func (m *Manager) IsComplete(binPath, jsonPath string) bool {
	return exists(binPath) && exists(jsonPath)
}

// WriteSidecar writes source verbatim to path, replacing any existing file
func (m *Manager) WriteSidecar(path string, source []byte) (err error) {
	defer decorate.OnError(&err, "failed to write sidecar %q", path)

	if err := os.WriteFile(path, source, 0644); err != nil {
		return errs.NewIOError("write", err)
	}
	return nil
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// SanitizeName turns a backend-supplied id or filename into a single safe
// path element. The name is NFC-normalised, separators, reserved and
// control characters become '_', and surrounding spaces are trimmed.
func SanitizeName(name string) (string, error) {
	name = norm.NFC.String(name)

	var b strings.Builder
	for _, r := range name {
		switch {
		case r == '/' || r == '\\':
			b.WriteRune('_')
		case strings.ContainsRune(`:*?"<>|`, r):
			b.WriteRune('_')
		case unicode.IsControl(r):
			b.WriteRune('_')
		default:
			b.WriteRune(r)
		}
	}

	safe := strings.TrimSpace(b.String())
	if safe == "" || safe == "." || safe == ".." {
		return "", fmt.Errorf("%w: %q", ErrUnsafeName, name)
	}
	return safe, nil
}
