package diagnose

import (
	"fmt"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
	"go.uber.org/zap"

	"github.com/mrzor/claude-diagnose/internal/config"
	"github.com/mrzor/claude-diagnose/internal/model"
)

// Env is the variable set visible to custom rule expressions.
type Env struct {
	PID           int            `expr:"pid"`
	CPU           float64        `expr:"cpu"`
	Mem           float64        `expr:"mem"`
	RSSKB         uint64         `expr:"rss_kb"`
	Threads       int            `expr:"threads"`
	TotalFDs      int            `expr:"total_fds"`
	WatchedPaths  int            `expr:"watched_paths"`
	Syscalls      map[string]int `expr:"syscalls"`
	SyscallErrors int            `expr:"syscall_errors"`
	IOOps         int            `expr:"io_ops"`
	NetOps        int            `expr:"net_ops"`
	Method        string         `expr:"method"`
}

// NewEnv flattens a process row and whatever sub-results were collected for
// it. Missing sub-results contribute zero values.
func NewEnv(rec model.ProcessRecord, rep model.ProcessReport) Env {
	env := Env{
		PID:      rec.PID,
		CPU:      rec.CPU,
		Mem:      rec.Mem,
		RSSKB:    rec.RSSKB,
		Syscalls: map[string]int{},
	}
	if rep.Sample != nil {
		env.Threads = rep.Sample.ThreadCount
	}
	if rep.FileDescriptors != nil {
		env.TotalFDs = rep.FileDescriptors.TotalFDs
		env.WatchedPaths = rep.FileDescriptors.WatchedPathCount
	}
	if rep.Trace != nil {
		for _, s := range rep.Trace.SyscallSummary {
			env.Syscalls[s.Name] = s.Count
			env.SyscallErrors += s.Errors
		}
		env.IOOps = len(rep.Trace.IOOperations)
		env.NetOps = len(rep.Trace.NetworkOperations)
		env.Method = string(rep.Trace.Method)
	}
	return env
}

// RuleSet holds compiled custom rules.
type RuleSet struct {
	specs    []config.RuleSpec
	programs []*vm.Program
	logger   *zap.Logger
}

// NewRuleSet compiles every rule expression up front; a rule that does not
// compile to a boolean is a configuration error.
func NewRuleSet(specs []config.RuleSpec, logger *zap.Logger) (*RuleSet, error) {
	programs := make([]*vm.Program, len(specs))
	for i, spec := range specs {
		program, err := expr.Compile(spec.When, expr.Env(Env{}), expr.AsBool())
		if err != nil {
			return nil, fmt.Errorf("failed to compile rule %q: %w", spec.Name, err)
		}
		programs[i] = program
	}
	return &RuleSet{
		specs:    specs,
		programs: programs,
		logger:   logger,
	}, nil
}

// Len reports how many rules are loaded.
func (r *RuleSet) Len() int {
	if r == nil {
		return 0
	}
	return len(r.specs)
}

// Evaluate runs every rule against env and returns a finding for each rule
// that matched, in rule order.
func (r *RuleSet) Evaluate(env Env) []model.Diagnosis {
	if r.Len() == 0 {
		return nil
	}

	var out []model.Diagnosis
	for i, spec := range r.specs {
		output, err := expr.Run(r.programs[i], env)
		if err != nil {
			r.logger.Warn("custom rule evaluation failed",
				zap.String("rule", spec.Name), zap.Int("pid", env.PID), zap.Error(err))
			continue
		}
		matched, ok := output.(bool)
		if !ok || !matched {
			continue
		}

		desc := spec.Description
		if desc == "" {
			desc = fmt.Sprintf("Custom rule %q matched", spec.Name)
		}
		out = append(out, model.Diagnosis{
			Issue:       spec.Name,
			Severity:    model.Severity(spec.Severity),
			Description: desc,
			Remedy:      spec.Remedy,
		})
	}
	return out
}
