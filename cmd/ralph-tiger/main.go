package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/tebeka/atexit"
	"tlog.app/go/tlog"

	"github.com/raymyers/ralph-tiger/pkg/assem"
	"github.com/raymyers/ralph-tiger/pkg/backend"
	"github.com/raymyers/ralph-tiger/pkg/fragment"
	"github.com/raymyers/ralph-tiger/pkg/ice"
	"github.com/raymyers/ralph-tiger/pkg/tree"
)

var version = "0.1.0"

// Debug flags for dumping intermediate representations
var (
	dTree  bool
	dSel   bool
	dFlow  bool
	dLive  bool
	dColor bool
	dAsm   bool
)

// Backend options
var (
	targetFile string
	maxRounds  int
	traceTopic string
	outputFile string
)

// output is the -o file, closed on exit.
var output *os.File

func main() {
	atexit.Exit(run())
}

func run() int {
	atexit.Register(closeOutput)
	rootCmd := newRootCmd(os.Stdout, os.Stderr)
	// Accept single-dash dump flags (-dsel) as well as --dsel
	rootCmd.SetArgs(normalizeFlags(os.Args[1:]))
	return exitCode(rootCmd.Execute(), os.Stderr)
}

// exitCode reports err and maps it to the process status: 2 for internal
// compiler errors, 1 for anything else.
func exitCode(err error, errOut io.Writer) int {
	if err == nil {
		return 0
	}
	var ie *ice.Error
	if errors.As(err, &ie) {
		fmt.Fprintf(errOut, "ralph-tiger: internal error: %v\n", err)
		return 2
	}
	fmt.Fprintf(errOut, "ralph-tiger: %v\n", err)
	return 1
}

func closeOutput() {
	if output != nil {
		output.Close()
		output = nil
	}
}

// debugFlagNames lists the dump flags that also accept a single dash
var debugFlagNames = []string{"dtree", "dsel", "dflow", "dlive", "dcolor", "dasm"}

// normalizeFlags converts single-dash dump flags like -dsel to --dsel
func normalizeFlags(args []string) []string {
	result := make([]string, len(args))
	for i, arg := range args {
		result[i] = arg
		for _, flagName := range debugFlagNames {
			if arg == "-"+flagName {
				result[i] = "--" + flagName
				break
			}
		}
	}
	return result
}

// wordSepNormalize lets --max_rounds stand for --max-rounds.
func wordSepNormalize(f *pflag.FlagSet, name string) pflag.NormalizedName {
	return pflag.NormalizedName(strings.ReplaceAll(name, "_", "-"))
}

func newRootCmd(out, errOut io.Writer) *cobra.Command {
	env := backend.OptionsFromEnv()

	rootCmd := &cobra.Command{
		Use:   "ralph-tiger [unit.yaml]",
		Short: "ralph-tiger is the x86-64 backend of a Tiger compiler",
		Long: `ralph-tiger reads a unit of translated Tiger procedures, selects
x86-64 instructions, allocates registers by iterated register
coalescing and prints assembly. Dump flags show each stage.`,
		Version:       version,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				cmd.Help()
				return nil
			}
			opts := env
			if cmd.Flags().Changed("target") {
				opts.Target = targetFile
			}
			if cmd.Flags().Changed("max-rounds") {
				opts.MaxRounds = maxRounds
			}
			if cmd.Flags().Changed("trace") {
				opts.Trace = traceTopic
			}
			setupTrace(errOut, opts.Trace)

			w := out
			if outputFile != "" {
				closeOutput()
				f, err := os.Create(outputFile)
				if err != nil {
					return err
				}
				output = f
				w = f
			}
			return compile(args[0], opts, out, w)
		},
	}
	rootCmd.SetOut(out)
	rootCmd.SetErr(errOut)
	rootCmd.Flags().SetNormalizeFunc(wordSepNormalize)

	// Add debug flags
	rootCmd.Flags().BoolVarP(&dTree, "dtree", "", false, "Dump the input trees")
	rootCmd.Flags().BoolVarP(&dSel, "dsel", "", false, "Dump selected instructions over temps")
	rootCmd.Flags().BoolVarP(&dFlow, "dflow", "", false, "Dump the flow graph")
	rootCmd.Flags().BoolVarP(&dLive, "dlive", "", false, "Dump live-in and live-out sets")
	rootCmd.Flags().BoolVarP(&dColor, "dcolor", "", false, "Dump the register assignment")
	rootCmd.Flags().BoolVarP(&dAsm, "dasm", "", false, "Dump assembly (default when no other dump is requested)")

	rootCmd.Flags().StringVar(&targetFile, "target", "", "Target description file (default x86-64)")
	rootCmd.Flags().IntVar(&maxRounds, "max-rounds", env.MaxRounds, "Maximum register allocation rounds")
	rootCmd.Flags().StringVar(&traceTopic, "trace", "", "Comma separated trace topics (codegen,liveness,regalloc,backend)")
	rootCmd.Flags().StringVarP(&outputFile, "output", "o", "", "Write assembly to this file")

	return rootCmd
}

// setupTrace routes tlog output to errOut and enables the given topics.
func setupTrace(errOut io.Writer, topics string) {
	if topics == "" {
		return
	}
	tlog.DefaultLogger = tlog.New(tlog.NewConsoleWriter(errOut, tlog.LstdFlags))
	tlog.SetVerbosity(topics)
}

// compile runs the backend over filename. Dumps go to out; assembly goes to
// asmOut.
func compile(filename string, opts backend.Options, out, asmOut io.Writer) error {
	b, err := backend.NewFromOptions(opts)
	if err != nil {
		return err
	}
	u, err := fragment.LoadFile(filename, b.RegManager(), b.Factory())
	if err != nil {
		return err
	}
	if u.Target != "" && u.Target != b.RegManager().Desc().Name {
		return fmt.Errorf("%s: unit is for target %s, have %s", filename, u.Target, b.RegManager().Desc().Name)
	}

	names := b.Factory().Names()
	if dTree {
		for _, p := range u.Procs() {
			fmt.Fprintf(out, "# %s: tree\n", p.Frame.Name())
			tree.NewPrinter(out, names).PrintStm(p.Body)
		}
	}

	outs, err := b.CompileUnit(u)
	if err != nil {
		return err
	}

	for _, o := range outs {
		if dSel {
			fmt.Fprintf(out, "# %s: selected\n", o.Name())
			assem.NewPrinter(out, names).PrintList(o.Selected)
		}
		if dFlow {
			fmt.Fprintf(out, "# %s: flow\n", o.Name())
			o.Alloc.Live.Flow.Dump(out, names)
		}
		if dLive {
			fmt.Fprintf(out, "# %s: liveness\n", o.Name())
			o.Alloc.Live.Dump(out, names)
		}
		if dColor {
			dumpColoring(out, b, o)
		}
	}

	if dAsm || !(dTree || dSel || dFlow || dLive || dColor) {
		backend.Emit(asmOut, u, outs)
	}
	return nil
}

// dumpColoring prints the register of every non-register temp.
func dumpColoring(w io.Writer, b *backend.Backend, o *backend.ProcOutput) {
	rm := b.RegManager()

	tw := table.NewWriter()
	tw.SetOutputMirror(w)
	tw.SetTitle(string(o.Name()))
	tw.AppendHeader(table.Row{"Temp", "Register", "Callee-saved"})
	for _, t := range o.Alloc.Coloring.Temps() {
		if rm.IsPrecolored(t) {
			continue
		}
		reg := o.Alloc.Coloring.Name(t)
		r, _ := rm.Reg(reg)
		tw.AppendRow(table.Row{t.String(), reg, rm.IsCalleeSave(r)})
	}
	tw.AppendFooter(table.Row{"rounds", o.Alloc.Rounds, fmt.Sprintf("%d spilled, %d coalesced", len(o.Alloc.Spilled), o.Alloc.Coalesced)})
	tw.Render()
}
