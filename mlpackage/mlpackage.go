// Package mlpackage reads and writes CoreML models on disk: single .mlmodel
// files and .mlpackage directories.
//
// An .mlpackage is a directory holding a Manifest.json and a Data directory.
// The manifest lists the package items; the root model item points at the
// serialized specification, and ML Programs keep their weights in a sibling
// weights directory:
//
//	Model.mlpackage/
//	  Manifest.json
//	  Data/com.apple.CoreML/model.mlmodel
//	  Data/com.apple.CoreML/weights/weight.bin
package mlpackage

import (
	"encoding/json"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/gomlx/coreml-relabel/internal/logging"
	"github.com/gomlx/coreml-relabel/model"
	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// Layout of the package items, relative to the package's Data directory.
const (
	ManifestName      = "Manifest.json"
	DataDir           = "Data"
	ItemAuthor        = "com.apple.CoreML"
	ModelItemPath     = "com.apple.CoreML/model.mlmodel"
	WeightsItemPath   = "com.apple.CoreML/weights"
	FileFormatVersion = "1.0.0"
)

// Manifest is the content of Manifest.json.
type Manifest struct {
	FileFormatVersion   string              `json:"fileFormatVersion"`
	ItemInfoEntries     map[string]ItemInfo `json:"itemInfoEntries"`
	RootModelIdentifier string              `json:"rootModelIdentifier"`
}

// ItemInfo describes one item of the package.
type ItemInfo struct {
	Author      string `json:"author"`
	Description string `json:"description"`
	Name        string `json:"name"`
	Path        string `json:"path"`
}

// Package is a model loaded from disk.
type Package struct {
	// Path is the .mlpackage directory or the .mlmodel file.
	Path string

	// Manifest is nil for .mlmodel files.
	Manifest *Manifest

	Model *model.Model
}

// IsPackage reports whether the package was read from an .mlpackage directory.
func (p *Package) IsPackage() bool {
	return p.Manifest != nil
}

// ModelPath returns the path of the serialized specification.
func (p *Package) ModelPath() string {
	if p.Manifest == nil {
		return p.Path
	}
	root := p.Manifest.ItemInfoEntries[p.Manifest.RootModelIdentifier]
	return filepath.Join(p.Path, DataDir, filepath.FromSlash(root.Path))
}

// WeightsDir returns the package's weights directory, or "" if it has none.
func (p *Package) WeightsDir() string {
	if p.Manifest == nil {
		return ""
	}
	dir := filepath.Join(filepath.Dir(p.ModelPath()), filepath.Base(WeightsItemPath))
	if info, err := os.Stat(dir); err == nil && info.IsDir() {
		return dir
	}
	return ""
}

// Load reads a model from an .mlpackage directory or an .mlmodel file.
func Load(path string) (*Package, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, errors.Wrapf(err, "loading model %q", path)
	}
	if info.IsDir() {
		return Open(path)
	}
	m, err := LoadFile(path)
	if err != nil {
		return nil, err
	}
	return &Package{Path: path, Model: m}, nil
}

// LoadFile reads a model from an .mlmodel file.
func LoadFile(path string) (*model.Model, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "reading %q", path)
	}
	m, err := model.Decode(data)
	if err != nil {
		return nil, errors.WithMessagef(err, "reading %q", path)
	}
	return m, nil
}

// SaveFile writes m to an .mlmodel file.
func SaveFile(m *model.Model, path string) error {
	data, err := model.Encode(m)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return errors.Wrapf(err, "writing %q", path)
	}
	return nil
}

// Open reads an .mlpackage directory.
func Open(path string) (*Package, error) {
	data, err := os.ReadFile(filepath.Join(path, ManifestName))
	if err != nil {
		return nil, errors.Wrapf(err, "opening package %q", path)
	}
	var manifest Manifest
	if err := json.Unmarshal(data, &manifest); err != nil {
		return nil, errors.Wrapf(err, "parsing manifest of %q", path)
	}
	root, ok := manifest.ItemInfoEntries[manifest.RootModelIdentifier]
	if !ok || root.Path == "" {
		return nil, errors.Errorf("package %q: root model %q not found in manifest", path, manifest.RootModelIdentifier)
	}
	if !filepath.IsLocal(filepath.FromSlash(root.Path)) {
		return nil, errors.Errorf("package %q: root model path %q escapes the package", path, root.Path)
	}

	p := &Package{Path: path, Manifest: &manifest}
	if p.Model, err = LoadFile(p.ModelPath()); err != nil {
		return nil, err
	}
	return p, nil
}

// SaveOptions configures Save.
type SaveOptions struct {
	// WeightsDir is copied into the package as its weights directory.
	// ML Programs need it; other models usually have none.
	WeightsDir string

	// Description of the root model item in the manifest.
	// Defaults to "CoreML Model Specification".
	Description string
}

// Save writes m as an .mlpackage directory at path, replacing any existing
// package there.
func Save(m *model.Model, path string, opts SaveOptions) error {
	data, err := model.Encode(m)
	if err != nil {
		return err
	}
	if opts.WeightsDir != "" {
		if err := checkWeightsOutside(opts.WeightsDir, path); err != nil {
			return err
		}
	}

	if err := os.RemoveAll(path); err != nil {
		return errors.Wrapf(err, "replacing package %q", path)
	}
	modelPath := filepath.Join(path, DataDir, filepath.FromSlash(ModelItemPath))
	if err := os.MkdirAll(filepath.Dir(modelPath), 0o755); err != nil {
		return errors.Wrapf(err, "creating package %q", path)
	}
	if err := os.WriteFile(modelPath, data, 0o644); err != nil {
		return errors.Wrapf(err, "writing %q", modelPath)
	}

	description := opts.Description
	if description == "" {
		description = "CoreML Model Specification"
	}
	rootID := strings.ToUpper(uuid.NewString())
	manifest := Manifest{
		FileFormatVersion: FileFormatVersion,
		ItemInfoEntries: map[string]ItemInfo{
			rootID: {
				Author:      ItemAuthor,
				Description: description,
				Name:        filepath.Base(ModelItemPath),
				Path:        ModelItemPath,
			},
		},
		RootModelIdentifier: rootID,
	}

	if opts.WeightsDir != "" {
		weightsPath := filepath.Join(path, DataDir, filepath.FromSlash(WeightsItemPath))
		n, err := copyDir(opts.WeightsDir, weightsPath)
		if err != nil {
			return errors.Wrapf(err, "copying weights from %q", opts.WeightsDir)
		}
		logging.Get().Debugf("copied %d weight files from %s", n, opts.WeightsDir)
		manifest.ItemInfoEntries[strings.ToUpper(uuid.NewString())] = ItemInfo{
			Author:      ItemAuthor,
			Description: "CoreML Model Weights",
			Name:        filepath.Base(WeightsItemPath),
			Path:        WeightsItemPath,
		}
	}

	manifestData, err := json.MarshalIndent(&manifest, "", "    ")
	if err != nil {
		return errors.Wrap(err, "encoding manifest")
	}
	if err := os.WriteFile(filepath.Join(path, ManifestName), manifestData, 0o644); err != nil {
		return errors.Wrapf(err, "writing manifest of %q", path)
	}
	return nil
}

// checkWeightsOutside rejects a weights directory that Save would delete
// before copying it, i.e. one inside the destination package.
func checkWeightsOutside(weightsDir, path string) error {
	absWeights, err := filepath.Abs(weightsDir)
	if err != nil {
		return errors.WithStack(err)
	}
	absPath, err := filepath.Abs(path)
	if err != nil {
		return errors.WithStack(err)
	}
	rel, err := filepath.Rel(absPath, absWeights)
	if err == nil && filepath.IsLocal(rel) {
		return errors.Errorf("weights directory %q is inside the destination package %q", weightsDir, path)
	}
	return nil
}

// copyDir copies the regular files of src into dst, returning how many were
// copied.
func copyDir(src, dst string) (int, error) {
	count := 0
	err := filepath.WalkDir(src, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		target := filepath.Join(dst, rel)
		if d.IsDir() {
			return os.MkdirAll(target, 0o755)
		}
		if !d.Type().IsRegular() {
			return nil
		}
		if err := copyFile(path, target); err != nil {
			return err
		}
		count++
		return nil
	})
	return count, err
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		return err
	}
	return out.Close()
}
