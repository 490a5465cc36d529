// Package diagnose turns parsed telemetry into findings.
//
// The built-in rules are pure functions over one sub-result each:
//
//   - ClassifySample inspects raw stack-sampler text for marker substrings
//   - ClassifyDescriptors checks descriptor and watched-path counts
//   - ClassifySyscalls checks the aggregated syscall summary
//   - FallbackNotice records that the fallback tracer was used
//
// Rules are independent; any subset may fire. Every threshold is an
// exclusive lower bound taken from config.Thresholds, so a value equal to
// the bound never fires.
//
// RuleSet adds user-defined rules written as expr-lang boolean expressions
// over a per-process Env. Rules are compiled once and evaluated per process;
// a rule that fails to evaluate is logged and skipped.
package diagnose
