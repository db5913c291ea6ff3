// Command xdl is the CLI entrypoint (SPEC_FULL.md §6/§2): it reads a
// source file or stdin, evaluates it, and prints non-Undefined
// expression results. Flags select the accelerator backend, toggle
// statistics, dump thresholds, and force a single invocation's dispatch
// target. Exit code 0 on clean completion, 1 on unrecoverable error, 2
// on parse error (spec.md §6).
//
// Grounded on the teacher's cmd/sentra/main.go argument-handling idiom
// (manual os.Args switch, not the stdlib flag package), trimmed to this
// command's much smaller flag surface.
package main

import (
	"fmt"
	"io"
	"os"

	"xdl/internal/context"
	"xdl/internal/dispatch"
	"xdl/internal/eval"
	xerrors "xdl/internal/errors"
	"xdl/internal/gpu"
	"xdl/internal/gpu/cpu"
	"xdl/internal/gpu/cuda"
	"xdl/internal/gpu/vulkan"
	"xdl/internal/guibridge"
	"xdl/internal/lexer"
	"xdl/internal/parser"
	"xdl/internal/repl"
	"xdl/internal/stats"
)

const usage = `usage: xdl [flags] [script.xdl]

flags:
  -backend cpu|cuda|vulkan|auto   select accelerator backend (default auto)
  -stats                          enable the statistics collector
  -thresholds                     print the active dispatch thresholds and exit
  -force-gpu                      force GPU dispatch for this invocation
  -force-cpu                      force CPU dispatch for this invocation (wins over -force-gpu)
  -gui addr                       serve a websocket GUI bridge at addr (e.g. :8765), pushing
                                  PRINT output and stats reports to attached clients
`

type cliFlags struct {
	backend    string
	stats      bool
	thresholds bool
	forceGPU   bool
	forceCPU   bool
	gui        string
	script     string
}

func parseArgs(args []string) (cliFlags, error) {
	f := cliFlags{backend: "auto"}
	for i := 0; i < len(args); i++ {
		switch a := args[i]; a {
		case "-backend", "--backend":
			i++
			if i >= len(args) {
				return f, fmt.Errorf("-backend requires a value")
			}
			f.backend = args[i]
		case "-stats", "--stats":
			f.stats = true
		case "-thresholds", "--thresholds":
			f.thresholds = true
		case "-force-gpu", "--force-gpu":
			f.forceGPU = true
		case "-force-cpu", "--force-cpu":
			f.forceCPU = true
		case "-gui", "--gui":
			i++
			if i >= len(args) {
				return f, fmt.Errorf("-gui requires an address, e.g. -gui :8765")
			}
			f.gui = args[i]
		case "-h", "-help", "--help":
			fmt.Print(usage)
			os.Exit(0)
		default:
			if len(a) > 0 && a[0] == '-' {
				return f, fmt.Errorf("unknown flag %q", a)
			}
			f.script = a
		}
	}
	return f, nil
}

// buildGPUDevice resolves the requested backend name to an installed
// gpu.Device, or nil when the request is "cpu" or "auto" finds nothing
// compiled in.
func buildGPUDevice(name string) (gpu.Device, error) {
	switch name {
	case "cpu":
		return nil, nil
	case "cuda":
		dev, err := cuda.New()
		if err != nil {
			return nil, err
		}
		return dev, nil
	case "vulkan":
		dev, err := vulkan.New()
		if err != nil {
			return nil, err
		}
		return dev, nil
	case "auto":
		if dev, err := cuda.New(); err == nil {
			return dev, nil
		}
		if dev, err := vulkan.New(); err == nil {
			return dev, nil
		}
		return nil, nil
	default:
		return nil, xerrors.New(xerrors.UnsupportedBackend, "unknown backend %q", name)
	}
}

func run() int {
	flags, err := parseArgs(os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		fmt.Print(usage)
		return 1
	}

	gpuDev, err := buildGPUDevice(flags.backend)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	cfg := dispatch.DefaultConfig()
	cfg.ForceGPU = flags.forceGPU
	cfg.ForceCPU = flags.forceCPU
	st := stats.Get()
	if flags.stats {
		st.Enable()
	} else {
		st.Disable()
	}
	d := dispatch.New(cpu.New(), gpuDev, cfg, st)

	if flags.thresholds {
		t := d.GetThresholds()
		fmt.Printf("elementwise >= %d\nreduction   >= %d\nmatmul(m*n*k) >= %d\nforce_gpu: %v\nforce_cpu: %v\n",
			t.ElementwiseThreshold, t.ReductionThreshold, t.MatmulThreshold, t.ForceGPU, t.ForceCPU)
		return 0
	}

	if gpuDev != nil {
		if err := d.SelfCheck(); err != nil {
			fmt.Fprintln(os.Stderr, err)
			return 1
		}
	}

	// -gui starts the optional GUI-bridge external collaborator
	// (SPEC_FULL.md §6): a websocket server that PRINT output and stats
	// reports are pushed to. It never affects evaluation semantics.
	var bridge *guibridge.Bridge
	var out io.Writer = os.Stdout
	if flags.gui != "" {
		bridge = guibridge.New()
		go func() {
			if err := bridge.ListenAndServe(flags.gui); err != nil {
				fmt.Fprintln(os.Stderr, "gui bridge:", err)
			}
		}()
		out = guibridge.NewWriter(bridge, os.Stdout)
	}
	reportStats := func() {
		if !flags.stats {
			return
		}
		report := st.FormatReport()
		fmt.Println(report)
		if bridge != nil {
			bridge.Broadcast(report)
		}
	}

	if flags.script == "" {
		repl.Start(repl.Options{In: os.Stdin, Out: out})
		reportStats()
		return 0
	}

	data, err := os.ReadFile(flags.script)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	tokens := lexer.NewScanner(string(data)).ScanTokens()
	p := parser.NewParser(tokens)
	prog := p.Parse()
	if len(p.Errors) > 0 {
		for _, e := range p.Errors {
			fmt.Fprintln(os.Stderr, e)
		}
		return 2
	}

	ctx := context.New()
	ev := eval.New(ctx, out)
	if err := ev.Run(prog); err != nil {
		if exit, ok := err.(eval.ExitSignal); ok {
			reportStats()
			return exit.Code
		}
		fmt.Fprintln(os.Stderr, err)
		return 1
	}

	reportStats()
	return 0
}

func main() {
	os.Exit(run())
}
