package core

import "fmt"

// SemanticError is raised by the Semantic Analyzer (§4.1, §7). Its string
// form is the stable diagnostic the test suite matches against.
type SemanticError struct {
	Message string
}

func (e *SemanticError) Error() string { return e.Message }

func semErr(format string, args ...interface{}) error {
	return &SemanticError{Message: fmt.Sprintf(format, args...)}
}

// LoweringError is raised by the IR Lowerer (§4.2, §7).
type LoweringError struct {
	Message string
}

func (e *LoweringError) Error() string { return e.Message }

func lowerErr(format string, args ...interface{}) error {
	return &LoweringError{Message: fmt.Sprintf(format, args...)}
}

// VmError is raised by the PSIR Virtual Machine for malformed modules
// (unknown opcodes, out-of-range jumps/locals) — distinct from the
// runtime-guarded diagnostics of §4.3/§7, which print a literal string
// and terminate with exit code 3 rather than returning a Go error.
type VmError struct {
	Message string
}

func (e *VmError) Error() string { return e.Message }

func vmErr(format string, args ...interface{}) error {
	return &VmError{Message: fmt.Sprintf(format, args...)}
}

// RuntimeExitCode is the fixed process exit code for every VM runtime
// guard (§4.3, §7).
const RuntimeExitCode = 3

// StaticExitCode is the fixed process exit code the (external) driver
// uses for analyzer/lowerer failures (§7); recorded here since the error
// taxonomy is part of the core's contract even though the driver itself
// is out of scope.
const StaticExitCode = 2
