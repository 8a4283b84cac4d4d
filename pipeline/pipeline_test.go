package pipeline

import (
	"bytes"
	"testing"

	"github.com/dr8co/tau/vmutil"
)

const addProgram = `
func add(a: int, b: int): int {
	return a + b
}
func main() {
	print add(2, 3)
}
`

func TestRunCompilesAndExecutes(t *testing.T) {
	insns, stopped, err := Run(addProgram, "")
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if stopped != nil {
		t.Fatalf("stopped = %+v, want nil", stopped)
	}
	var out bytes.Buffer
	if err := vmutil.Invoke(insns, nil, &out, false); err != nil {
		t.Fatalf("Invoke: %v", err)
	}
	if out.String() != "5\n" {
		t.Errorf("output = %q, want %q", out.String(), "5\n")
	}
}

func TestRunStopsAtRequestedStage(t *testing.T) {
	insns, stopped, err := Run(addProgram, Typecheck)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if insns != nil {
		t.Errorf("insns = %v, want nil when stopping early", insns)
	}
	if stopped == nil || stopped.Program == nil || stopped.Table == nil {
		t.Fatalf("stopped = %+v, want populated Program and Table", stopped)
	}
}

func TestRunReportsUndefinedIdentifier(t *testing.T) {
	_, _, err := Run(`func main() { print x }`, "")
	if err == nil {
		t.Fatal("expected a binder error for an undefined identifier")
	}
}

func TestRunReportsSyntaxError(t *testing.T) {
	_, _, err := Run(`func main() { print }`, "")
	if err == nil {
		t.Fatal("expected a parse error")
	}
}

func TestValidStage(t *testing.T) {
	for _, s := range []string{"", "scanner", "parser", "bindings", "typecheck", "offsets"} {
		if !ValidStage(s) {
			t.Errorf("ValidStage(%q) = false, want true", s)
		}
	}
	if ValidStage("codegen") {
		t.Error(`ValidStage("codegen") = true, want false (not a stoppable stage)`)
	}
}
