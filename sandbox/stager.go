package sandbox

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"github.com/rs/xid"
)

// StageHint describes how a recipe wants its source laid out.
type StageHint struct {
	// Prefix starts the unique stem, e.g. "cpp_code".
	Prefix string
	// Extension is appended to the source file name, e.g. ".cpp".
	Extension string
	// EntryName, when set, is a file stem the toolchain mandates (a Java
	// public class). The file then lives in a private directory.
	EntryName string
	// Compiled reserves a binary path next to the source.
	Compiled bool
	// BinaryExtension overrides the platform executable suffix.
	BinaryExtension string
}

// TempArtifact is the set of paths one pipeline invocation owns.
type TempArtifact struct {
	Dir        string
	SourcePath string
	BinaryPath string

	ownsDir bool
}

// ArtifactStager writes sources into a shared scratch directory under
// collision-resistant names and removes them again.
type ArtifactStager struct {
	dir   string
	fs    FileSystem
	newID func() string
}

// StagerOption defines a functional option for ArtifactStager
type StagerOption func(*ArtifactStager)

// WithStagerFileSystem sets the FileSystem for ArtifactStager
func WithStagerFileSystem(fs FileSystem) StagerOption {
	return func(a *ArtifactStager) {
		a.fs = fs
	}
}

// WithStagerIDs replaces the unique-ID generator
func WithStagerIDs(newID func() string) StagerOption {
	return func(a *ArtifactStager) {
		a.newID = newID
	}
}

// NewArtifactStager creates a stager rooted at dir; an empty dir means the
// OS temp directory.
func NewArtifactStager(dir string, opts ...StagerOption) *ArtifactStager {
	if dir == "" {
		dir = os.TempDir()
	}

	a := &ArtifactStager{
		dir:   dir,
		fs:    &RealFileSystem{},
		newID: func() string { return xid.New().String() },
	}

	for _, opt := range opts {
		opt(a)
	}

	return a
}

// Dir returns the scratch directory.
func (a *ArtifactStager) Dir() string {
	return a.dir
}

// Stage writes source verbatim and returns the paths it reserved. On error
// nothing is left behind.
func (a *ArtifactStager) Stage(source string, hint StageHint) (TempArtifact, error) {
	if hint.EntryName != "" && !isPlainName(hint.EntryName) {
		return TempArtifact{}, fmt.Errorf("invalid entry name: %q", hint.EntryName)
	}

	if err := a.fs.MkdirAll(a.dir, DirPermission); err != nil {
		return TempArtifact{}, fmt.Errorf("failed to create scratch dir: %w", err)
	}

	prefix := hint.Prefix
	if prefix == "" {
		prefix = "code"
	}
	stem := prefix + "_" + a.newID()

	binaryExt := hint.BinaryExtension
	if binaryExt == "" {
		binaryExt = executableSuffix()
	}

	var artifact TempArtifact
	if hint.EntryName != "" {
		dir := filepath.Join(a.dir, stem)
		if err := a.fs.MkdirAll(dir, DirPermission); err != nil {
			return TempArtifact{}, fmt.Errorf("failed to create artifact dir: %w", err)
		}
		artifact = TempArtifact{
			Dir:        dir,
			SourcePath: filepath.Join(dir, hint.EntryName+hint.Extension),
			ownsDir:    true,
		}
		if hint.Compiled {
			artifact.BinaryPath = filepath.Join(dir, hint.EntryName+binaryExt)
		}
	} else {
		artifact = TempArtifact{
			Dir:        a.dir,
			SourcePath: filepath.Join(a.dir, stem+hint.Extension),
		}
		if hint.Compiled {
			artifact.BinaryPath = filepath.Join(a.dir, stem+binaryExt)
		}
	}

	if err := a.fs.WriteFile(artifact.SourcePath, []byte(source), FilePermission); err != nil {
		_ = a.Cleanup(artifact)
		return TempArtifact{}, fmt.Errorf("failed to write source: %w", err)
	}

	return artifact, nil
}

// Cleanup removes everything Stage created plus the binary if the compiler
// produced one. Missing files are not errors, so calling it twice is safe.
func (a *ArtifactStager) Cleanup(artifact TempArtifact) error {
	var errs []error

	if artifact.SourcePath != "" {
		if err := a.fs.Remove(artifact.SourcePath); err != nil && !errors.Is(err, os.ErrNotExist) {
			errs = append(errs, fmt.Errorf("remove source: %w", err))
		}
	}

	if artifact.BinaryPath != "" {
		exists, err := a.fs.FileExists(artifact.BinaryPath)
		switch {
		case err != nil:
			errs = append(errs, fmt.Errorf("stat binary: %w", err))
		case exists:
			if err := a.fs.Remove(artifact.BinaryPath); err != nil && !errors.Is(err, os.ErrNotExist) {
				errs = append(errs, fmt.Errorf("remove binary: %w", err))
			}
		}
	}

	if artifact.ownsDir && artifact.Dir != "" {
		if err := a.fs.RemoveAll(artifact.Dir); err != nil {
			errs = append(errs, fmt.Errorf("remove artifact dir: %w", err))
		}
	}

	return errors.Join(errs...)
}

func isPlainName(name string) bool {
	return name != "." && name != ".." && filepath.Base(name) == name
}

func executableSuffix() string {
	if runtime.GOOS == "windows" {
		return ".exe"
	}
	return ""
}
