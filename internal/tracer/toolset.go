package tracer

import (
	"strconv"
	"strings"

	"github.com/mrzor/claude-diagnose/internal/config"
)

// Toolset holds argv templates for every external program the orchestrator
// runs. Templates may use the {pid}, {seconds}, and {file} placeholders.
type Toolset struct {
	// Sampler records stacks for {seconds} into {file}. If the sampler only
	// writes to stdout, its output is saved to {file} instead.
	Sampler []string
	// Descriptors lists the open descriptors of {pid}.
	Descriptors []string
	// Probe is a minimal trial run of the privileged tracer.
	Probe []string
	// Primary is the full syscall tracer, per trace focus.
	Primary map[config.Focus][]string
	// Fallback is the filesystem-activity tracer.
	Fallback []string
}

// DefaultToolset returns the programs used on goos.
func DefaultToolset(goos string) Toolset {
	if goos == "linux" {
		return Toolset{
			Sampler:     []string{"eu-stack", "-p", "{pid}"},
			Descriptors: []string{"lsof", "-p", "{pid}"},
			Probe:       []string{"strace", "-e", "trace=none", "-p", "{pid}"},
			Primary: map[config.Focus][]string{
				config.FocusGeneral: {"strace", "-f", "-T", "-p", "{pid}"},
				config.FocusIO: {"strace", "-f", "-T",
					"-e", "trace=read,write,pread64,pwrite64,open,openat,close,stat,fstat,lstat,newfstatat",
					"-p", "{pid}"},
				config.FocusNetwork: {"strace", "-f", "-T", "-e", "trace=%network", "-p", "{pid}"},
			},
			Fallback: []string{"fs_usage", "-w", "-f", "filesys", "{pid}"},
		}
	}

	dtruss := []string{"dtruss", "-e", "-p", "{pid}"}
	return Toolset{
		Sampler:     []string{"sample", "{pid}", "{seconds}", "-file", "{file}"},
		Descriptors: []string{"lsof", "-p", "{pid}"},
		Probe:       []string{"dtrace", "-n", "BEGIN { exit(0); }"},
		Primary: map[config.Focus][]string{
			config.FocusGeneral: dtruss,
			config.FocusIO:      dtruss,
			config.FocusNetwork: dtruss,
		},
		Fallback: []string{"fs_usage", "-w", "-f", "filesys", "{pid}"},
	}
}

// vars are the placeholder values for one invocation.
type vars struct {
	PID     int
	Seconds int
	File    string
}

// expand substitutes placeholders into a copy of tmpl.
func expand(tmpl []string, v vars) []string {
	r := strings.NewReplacer(
		"{pid}", strconv.Itoa(v.PID),
		"{seconds}", strconv.Itoa(v.Seconds),
		"{file}", v.File,
	)
	out := make([]string, len(tmpl))
	for i, arg := range tmpl {
		out[i] = r.Replace(arg)
	}
	return out
}
