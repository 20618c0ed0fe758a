// pvm runs bytecode program images on the register VM.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"

	"github.com/mattn/go-isatty"
	"github.com/tliron/commonlog"

	"github.com/chazu/pvm/manifest"
	"github.com/chazu/pvm/pkg/programs"
	"github.com/chazu/pvm/vm"
	"github.com/chazu/pvm/vm/dist"

	_ "github.com/tliron/commonlog/simple"
)

var (
	configDir   = flag.String("C", "", "directory holding pvm.toml or pvm.yaml (default: search upward from .)")
	verbosity   = flag.Int("v", 0, "log verbosity (0 = errors only, 1 = info, 2 = debug)")
	trace       = flag.Bool("trace", false, "log every executed instruction (needs -v 2)")
	disasm      = flag.Bool("disasm", false, "print the disassembled program and exit")
	profile     = flag.Bool("profile", false, "print opcode and call statistics after the run")
	dump        = flag.Bool("dump", false, "print the interpreter state after the run")
	demo        = flag.String("demo", "", "run a built-in sample program instead of an image")
	emit        = flag.String("emit", "", "write the program image to this path and exit")
	inputFile   = flag.String("input", "", "read program input from this file instead of stdin")
	boundsCheck = flag.Bool("bounds-check", false, "check array indexes on GEP")
	list        = flag.Bool("list", false, "list the built-in sample programs and exit")
)

func main() {
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: pvm [options] [image]\n\n")
		fmt.Fprintf(os.Stderr, "Runs a program image on the register VM.\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  pvm prog.pvmi                   # Run an image\n")
		fmt.Fprintf(os.Stderr, "  pvm -demo factorial -dump       # Run a sample and show its registers\n")
		fmt.Fprintf(os.Stderr, "  pvm -demo quadratic -emit q.pvmi # Write a sample as an image\n")
		fmt.Fprintf(os.Stderr, "  pvm -C ./proj -profile          # Run the program named in proj/pvm.toml\n")
	}
	flag.Parse()

	if *list {
		for _, p := range programs.All() {
			fmt.Printf("%-10s %s\n", p.Name, p.Description)
		}
		return
	}

	os.Exit(run())
}

func run() int {
	m, err := loadManifest()
	if err != nil {
		return fail(err)
	}

	v := *verbosity
	if v == 0 && m != nil {
		v = m.Log.Verbosity
	}
	commonlog.Configure(v, nil)
	log := commonlog.GetLogger("pvm")
	if m != nil {
		log.Infof("using %s", m.Path)
	}

	prog, err := selectProgram(m)
	if err != nil {
		return fail(err)
	}

	if *emit != "" {
		if err := dist.Save(*emit, prog.image()); err != nil {
			return fail(err)
		}
		return 0
	}
	if *disasm {
		fmt.Print(prog.code.DisassembleWithName(prog.name))
		return 0
	}

	cfg := vm.Config{}
	if m != nil {
		if cfg, err = m.VMConfig(); err != nil {
			return fail(err)
		}
	}
	if len(prog.klasses) > 0 {
		cfg.Klasses = prog.klasses
	}
	cfg.Trace = cfg.Trace || *trace
	cfg.BoundsCheck = cfg.BoundsCheck || *boundsCheck
	cfg.Output = os.Stdout

	in, closeInput, err := openInput(m, prog)
	if err != nil {
		return fail(err)
	}
	defer closeInput()
	cfg.Input = in

	var profiler *vm.Profiler
	if *profile {
		profiler = vm.NewProfiler()
		cfg.Profiler = profiler
	}

	interp, err := vm.NewInterpreter(prog.code, cfg)
	if err != nil {
		return fail(err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	runErr := interp.RunContext(ctx)

	if *dump {
		fmt.Fprint(os.Stderr, interp.Snapshot())
	}
	if profiler != nil {
		fmt.Fprint(os.Stderr, profiler.Report())
	}
	if runErr != nil {
		return fail(runErr)
	}
	return 0
}

func loadManifest() (*manifest.Manifest, error) {
	if *configDir != "" {
		return manifest.Load(*configDir)
	}
	return manifest.FindAndLoad(".")
}

// openInput picks the READ source: -input, then the manifest's input
// file, then stdin.
func openInput(m *manifest.Manifest, prog *program) (io.Reader, func(), error) {
	path := *inputFile
	if path == "" && m != nil {
		path = m.InputPath()
	}
	if path != "" {
		f, err := os.Open(path)
		if err != nil {
			return nil, nil, err
		}
		return f, func() { f.Close() }, nil
	}

	if prog.reads() && (isatty.IsTerminal(os.Stdin.Fd()) || isatty.IsCygwinTerminal(os.Stdin.Fd())) {
		fmt.Fprintf(os.Stderr, "%s reads input; enter whitespace-separated values", prog.name)
		if prog.input != "" {
			fmt.Fprintf(os.Stderr, " (e.g. %q)", prog.input)
		}
		fmt.Fprintln(os.Stderr)
	}
	return os.Stdin, func() {}, nil
}

func fail(err error) int {
	if cat := vm.Category(err); cat != vm.CategoryUnknown {
		fmt.Fprintf(os.Stderr, "pvm: %s: %v\n", cat, err)
	} else {
		fmt.Fprintf(os.Stderr, "pvm: %v\n", err)
	}
	return 1
}
