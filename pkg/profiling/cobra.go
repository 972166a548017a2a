// Package profiling adds CPU, heap and span timing profiles to a command.
package profiling

import (
	"fmt"
	"os"
	"runtime"
	"runtime/pprof"

	"github.com/spf13/cobra"
)

// CobraProfiler holds the profiling flags of a command tree.
type CobraProfiler struct {
	cpuProfileFile *os.File
	cpuProfilePath string
	memProfilePath string
	timing         bool
}

func NewCobraProfiler() *CobraProfiler {
	return &CobraProfiler{}
}

// AddFlags adds the profiling flags to cmd.
func (p *CobraProfiler) AddFlags(cmd *cobra.Command) {
	cmd.PersistentFlags().StringVar(&p.cpuProfilePath, "cpu-profile", "", "Write CPU profile to file")
	cmd.PersistentFlags().StringVar(&p.memProfilePath, "mem-profile", "", "Write memory profile to file")
	cmd.PersistentFlags().BoolVar(&p.timing, "timing", false, "Print a timing summary on exit")
}

// PreRun is a PersistentPreRunE hook.
func (p *CobraProfiler) PreRun(cmd *cobra.Command, args []string) error {
	if p.timing {
		Enable()
	}
	if p.cpuProfilePath == "" {
		return nil
	}
	f, err := os.Create(p.cpuProfilePath)
	if err != nil {
		return fmt.Errorf("could not create CPU profile: %w", err)
	}
	if err := pprof.StartCPUProfile(f); err != nil {
		f.Close()
		return fmt.Errorf("could not start CPU profile: %w", err)
	}
	p.cpuProfileFile = f
	return nil
}

// PostRun is a PersistentPostRunE hook. Output goes to stderr so it never
// mixes with protocol frames on stdout.
func (p *CobraProfiler) PostRun(cmd *cobra.Command, args []string) error {
	w := cmd.ErrOrStderr()
	if p.cpuProfileFile != nil {
		pprof.StopCPUProfile()
		p.cpuProfileFile.Close()
		p.cpuProfileFile = nil
		fmt.Fprintf(w, "CPU profile written to %s\n", p.cpuProfilePath)
	}

	if p.memProfilePath != "" {
		f, err := os.Create(p.memProfilePath)
		if err != nil {
			return fmt.Errorf("could not create memory profile: %w", err)
		}
		defer f.Close()
		runtime.GC()
		if err := pprof.WriteHeapProfile(f); err != nil {
			return fmt.Errorf("could not write memory profile: %w", err)
		}
		fmt.Fprintf(w, "Memory profile written to %s\n", p.memProfilePath)
	}

	if p.timing {
		Summarize(w)
	}
	return nil
}
