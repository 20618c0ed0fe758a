// Package manifest handles pvm.toml and pvm.yaml run configuration.
package manifest

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
	"github.com/tliron/commonlog"
	"gopkg.in/yaml.v3"

	"github.com/chazu/pvm/vm"
	"github.com/chazu/pvm/vm/dist"
)

// File names searched for, in order of preference.
const (
	TOMLFile = "pvm.toml"
	YAMLFile = "pvm.yaml"
)

// Manifest represents a pvm.toml or pvm.yaml run configuration.
type Manifest struct {
	Program Program     `toml:"program" yaml:"program"`
	Heap    HeapConfig  `toml:"heap" yaml:"heap"`
	Limits  Limits      `toml:"limits" yaml:"limits"`
	Log     LogConfig   `toml:"log" yaml:"log"`
	Klasses []KlassDecl `toml:"klass" yaml:"klass"`

	// Dir is the directory containing the manifest (set at load time).
	Dir string `toml:"-" yaml:"-"`
	// Path is the manifest file itself (set at load time).
	Path string `toml:"-" yaml:"-"`
}

// Program selects what to run.
type Program struct {
	Name  string `toml:"name" yaml:"name"`
	Image string `toml:"image" yaml:"image"` // relative to Dir
	Demo  string `toml:"demo" yaml:"demo"`   // sample program, used when Image is empty
	Input string `toml:"input" yaml:"input"` // file fed to READ instead of stdin
}

// HeapConfig sizes the arena.
type HeapConfig struct {
	Size int `toml:"size" yaml:"size"`
}

// Limits bounds what a run may do.
type Limits struct {
	MaxCallDepth int      `toml:"max-call-depth" yaml:"max-call-depth"`
	BoundsCheck  bool     `toml:"bounds-check" yaml:"bounds-check"`
	Allow        []string `toml:"allow" yaml:"allow"` // capabilities; empty allows all
	Deny         []string `toml:"deny" yaml:"deny"`
}

// LogConfig configures logging.
type LogConfig struct {
	Verbosity int  `toml:"verbosity" yaml:"verbosity"`
	Trace     bool `toml:"trace" yaml:"trace"`
}

// KlassDecl declares one extra klass. Either Fields lists packed field
// sizes, or Size and Layout give explicit field placement.
type KlassDecl struct {
	Name   string      `toml:"name" yaml:"name"`
	Fields []int       `toml:"fields" yaml:"fields"`
	Size   int         `toml:"size" yaml:"size"`
	Layout []FieldDecl `toml:"field" yaml:"field"`
}

// FieldDecl places one field of an explicitly laid out klass.
type FieldDecl struct {
	ID     uint32 `toml:"id" yaml:"id"`
	Offset int    `toml:"offset" yaml:"offset"`
	Size   int    `toml:"size" yaml:"size"`
}

func logger() commonlog.Logger {
	return commonlog.GetLogger("pvm.manifest")
}

// Load parses pvm.toml, or pvm.yaml if there is no pvm.toml, from the
// given directory.
func Load(dir string) (*Manifest, error) {
	for _, name := range []string{TOMLFile, YAMLFile} {
		path := filepath.Join(dir, name)
		data, err := os.ReadFile(path)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("cannot read %s: %w", path, err)
		}
		return parse(dir, path, data)
	}
	return nil, fmt.Errorf("no %s or %s in %s: %w", TOMLFile, YAMLFile, dir, fs.ErrNotExist)
}

func parse(dir, path string, data []byte) (*Manifest, error) {
	var m Manifest
	var err error
	if filepath.Ext(path) == ".toml" {
		err = toml.Unmarshal(data, &m)
	} else {
		err = yaml.Unmarshal(data, &m)
	}
	if err != nil {
		return nil, fmt.Errorf("parse error in %s: %w", path, err)
	}

	m.Dir, err = filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("cannot resolve path %s: %w", dir, err)
	}
	m.Path = filepath.Join(m.Dir, filepath.Base(path))

	if err := m.validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	logger().Debugf("loaded %s: %d klasses", m.Path, len(m.Klasses))
	return &m, nil
}

func (m *Manifest) validate() error {
	if m.Heap.Size < 0 {
		return fmt.Errorf("heap size %d is negative", m.Heap.Size)
	}
	if m.Limits.MaxCallDepth < 0 {
		return fmt.Errorf("max-call-depth %d is negative", m.Limits.MaxCallDepth)
	}
	if m.Program.Image != "" && m.Program.Demo != "" {
		return fmt.Errorf("program sets both image and demo")
	}
	_, err := m.VMKlasses()
	return err
}

// FindAndLoad walks up from startDir to find a pvm.toml or pvm.yaml file,
// then loads and returns the manifest. Returns nil if no manifest is found.
func FindAndLoad(startDir string) (*Manifest, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return nil, err
	}

	for {
		for _, name := range []string{TOMLFile, YAMLFile} {
			if _, err := os.Stat(filepath.Join(dir, name)); err == nil {
				return Load(dir)
			}
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			// Reached root
			return nil, nil
		}
		dir = parent
	}
}

// VMKlasses builds the declared klasses in declaration order.
func (m *Manifest) VMKlasses() ([]vm.Klass, error) {
	var ks []vm.Klass
	for i, d := range m.Klasses {
		if d.Name == "" {
			return nil, fmt.Errorf("klass %d has no name", i)
		}
		if len(d.Fields) > 0 && len(d.Layout) > 0 {
			return nil, fmt.Errorf("klass %s sets both fields and field", d.Name)
		}

		var k vm.Klass
		if len(d.Layout) > 0 {
			fields := make(map[vm.FieldID]vm.Field, len(d.Layout))
			for _, f := range d.Layout {
				fields[vm.FieldID(f.ID)] = vm.Field{Offset: f.Offset, Size: f.Size}
			}
			k = vm.NewKlass(d.Name, d.Size, fields)
		} else {
			k = vm.LayoutKlass(d.Name, d.Fields...)
		}
		if err := k.Validate(); err != nil {
			return nil, err
		}
		ks = append(ks, k)
	}
	return ks, nil
}

// VMConfig returns the interpreter configuration described by the
// manifest. I/O streams are left for the caller to set.
func (m *Manifest) VMConfig() (vm.Config, error) {
	ks, err := m.VMKlasses()
	if err != nil {
		return vm.Config{}, err
	}
	return vm.Config{
		Klasses:      ks,
		HeapSize:     m.Heap.Size,
		MaxCallDepth: m.Limits.MaxCallDepth,
		BoundsCheck:  m.Limits.BoundsCheck,
		Trace:        m.Log.Trace,
	}, nil
}

// Policy returns the capability policy described by the limits section.
func (m *Manifest) Policy() *dist.CapabilityPolicy {
	p := dist.NewPermissivePolicy()
	if len(m.Limits.Allow) > 0 {
		p = dist.NewRestrictedPolicy(m.Limits.Allow)
	}
	for _, c := range m.Limits.Deny {
		p.Deny(c)
	}
	return p
}

// ImagePath returns the absolute path of the configured image, or "" if
// none is set.
func (m *Manifest) ImagePath() string {
	return m.resolve(m.Program.Image)
}

// InputPath returns the absolute path of the configured input file, or ""
// if none is set.
func (m *Manifest) InputPath() string {
	return m.resolve(m.Program.Input)
}

func (m *Manifest) resolve(p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(m.Dir, p)
}
