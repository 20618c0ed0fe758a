package main

import (
	"flag"
	"fmt"
	"strings"

	"github.com/chazu/pvm/manifest"
	"github.com/chazu/pvm/pkg/bytecode"
	"github.com/chazu/pvm/pkg/programs"
	"github.com/chazu/pvm/vm"
	"github.com/chazu/pvm/vm/dist"
)

// program is the code selected for this invocation, from an image or a
// built-in sample.
type program struct {
	name        string
	description string
	input       string
	code        bytecode.Code
	klasses     []vm.Klass
}

// selectProgram resolves, in order: -demo, the image argument, the
// manifest's image, the manifest's demo.
func selectProgram(m *manifest.Manifest) (*program, error) {
	policy := dist.NewPermissivePolicy()
	if m != nil {
		policy = m.Policy()
	}

	if *demo != "" {
		return demoProgram(*demo, policy)
	}
	if path := flag.Arg(0); path != "" {
		return imageProgram(path, policy)
	}
	if m != nil {
		if path := m.ImagePath(); path != "" {
			return imageProgram(path, policy)
		}
		if m.Program.Demo != "" {
			return demoProgram(m.Program.Demo, policy)
		}
	}
	return nil, fmt.Errorf("no program: pass an image, -demo name or a manifest naming one")
}

func demoProgram(name string, policy *dist.CapabilityPolicy) (*program, error) {
	p, ok := programs.Lookup(name)
	if !ok {
		return nil, fmt.Errorf("unknown demo %q (have %s)", name, strings.Join(programs.Names(), ", "))
	}
	caps := &dist.CapabilityManifest{Required: dist.RequiredCapabilities(p.Code)}
	if err := policy.Check(caps); err != nil {
		return nil, fmt.Errorf("demo %s: %w", name, err)
	}
	prog := &program{name: p.Name, description: p.Description, input: p.Input, code: p.Code}
	for _, l := range p.Klasses {
		prog.klasses = append(prog.klasses, vm.LayoutKlass(l.Name, l.Sizes...))
	}
	return prog, nil
}

func imageProgram(path string, policy *dist.CapabilityPolicy) (*program, error) {
	img, err := dist.LoadChecked(path, policy)
	if err != nil {
		return nil, err
	}
	klasses, err := img.VMKlasses()
	if err != nil {
		return nil, err
	}
	return &program{
		name:        img.Name,
		description: img.Description,
		input:       img.Input,
		code:        img.Program(),
		klasses:     klasses,
	}, nil
}

// image packages the program for -emit.
func (p *program) image() *dist.Image {
	img := dist.NewImage(p.name, p.code, p.klasses)
	img.Description = p.description
	img.Input = p.input
	return img
}

// reads reports whether the program executes READ.
func (p *program) reads() bool {
	for _, c := range dist.RequiredCapabilities(p.code) {
		if c == dist.CapRead {
			return true
		}
	}
	return false
}
