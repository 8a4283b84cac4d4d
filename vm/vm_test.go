package vm

import (
	"bytes"
	"testing"

	"github.com/dr8co/tau/code"
)

func run(t *testing.T, insns code.Instructions, args []int64) (string, *VM) {
	t.Helper()
	var out bytes.Buffer
	m, err := New(insns, args, &out)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := m.Run(); err != nil {
		t.Fatalf("Run: %v", err)
	}
	return out.String(), m
}

func TestPrintAddition(t *testing.T) {
	insns := code.Instructions{
		{Op: code.PushImmediate, Int: 2},
		{Op: code.PushImmediate, Int: 3},
		{Op: code.Add},
		{Op: code.Print},
		{Op: code.Halt},
	}
	out, _ := run(t, insns, nil)
	if out != "5\n" {
		t.Errorf("output = %q, want %q", out, "5\n")
	}
}

func TestDivisionTruncatesTowardZero(t *testing.T) {
	insns := code.Instructions{
		{Op: code.PushImmediate, Int: -7},
		{Op: code.PushImmediate, Int: 2},
		{Op: code.Div},
		{Op: code.Print},
		{Op: code.Halt},
	}
	out, _ := run(t, insns, nil)
	if out != "-3\n" {
		t.Errorf("output = %q, want %q (truncating toward zero, not floor)", out, "-3\n")
	}
}

func TestJumpIfZero(t *testing.T) {
	insns := code.Instructions{
		{Op: code.PushImmediate, Int: 0},
		{Op: code.JumpIfZero, Label: "skip"},
		{Op: code.PushImmediate, Int: 999},
		{Op: code.Print},
		{Op: code.Label, Label: "skip"},
		{Op: code.PushImmediate, Int: 1},
		{Op: code.Print},
		{Op: code.Halt},
	}
	out, _ := run(t, insns, nil)
	if out != "1\n" {
		t.Errorf("output = %q, want %q", out, "1\n")
	}
}

func TestDuplicateLabelRejected(t *testing.T) {
	insns := code.Instructions{
		{Op: code.Label, Label: "x"},
		{Op: code.Label, Label: "x"},
		{Op: code.Halt},
	}
	if _, err := New(insns, nil, &bytes.Buffer{}); err == nil {
		t.Fatal("expected an error for a duplicate label")
	}
}

func TestUndefinedLabelRejected(t *testing.T) {
	insns := code.Instructions{
		{Op: code.Jump, Label: "nowhere"},
		{Op: code.Halt},
	}
	if _, err := New(insns, nil, &bytes.Buffer{}); err == nil {
		t.Fatal("expected an error for an undefined label")
	}
}

func TestCallAndReturnRoundTrip(t *testing.T) {
	// func f(): int { return 41 + 1 } ; main calls f and prints the result,
	// hand-assembled using Tau's calling convention. Frame size 4 (minimum).
	insns := code.Instructions{
		{Op: code.PushLabel, Label: "main"},
		{Op: code.Call},
		{Op: code.Halt},

		{Op: code.Label, Label: "f"},
		// prologue
		{Op: code.PushSP, Int: 0},
		{Op: code.Swap},
		{Op: code.Store},
		{Op: code.PushSP, Int: 1},
		{Op: code.PushFP, Int: 0},
		{Op: code.Store},
		{Op: code.PushSP, Int: 2},
		{Op: code.PushSP, Int: 0},
		{Op: code.Store},
		{Op: code.PushSP, Int: 0},
		{Op: code.PopFP},
		{Op: code.PushSP, Int: 4},
		{Op: code.PopSP},
		// return 41+1
		{Op: code.PushFP, Int: -1},
		{Op: code.PushImmediate, Int: 41},
		{Op: code.PushImmediate, Int: 1},
		{Op: code.Add},
		{Op: code.Store},
		// epilogue
		{Op: code.PushFP, Int: 0},
		{Op: code.Load},
		{Op: code.PushFP, Int: 2},
		{Op: code.Load},
		{Op: code.PopSP},
		{Op: code.PushFP, Int: 1},
		{Op: code.Load},
		{Op: code.PopFP},
		{Op: code.JumpIndirect},

		{Op: code.Label, Label: "main"},
		{Op: code.PushSP, Int: 0},
		{Op: code.Swap},
		{Op: code.Store},
		{Op: code.PushSP, Int: 1},
		{Op: code.PushFP, Int: 0},
		{Op: code.Store},
		{Op: code.PushSP, Int: 2},
		{Op: code.PushSP, Int: 0},
		{Op: code.Store},
		{Op: code.PushSP, Int: 0},
		{Op: code.PopFP},
		{Op: code.PushSP, Int: 4},
		{Op: code.PopSP},
		// call f, leaving its return value on the stack, then print it
		{Op: code.PushLabel, Label: "f"},
		{Op: code.Call},
		{Op: code.PushSP, Int: -1},
		{Op: code.Load},
		{Op: code.Print},
		// epilogue
		{Op: code.PushFP, Int: 0},
		{Op: code.Load},
		{Op: code.PushFP, Int: 2},
		{Op: code.Load},
		{Op: code.PopSP},
		{Op: code.PushFP, Int: 1},
		{Op: code.Load},
		{Op: code.PopFP},
		{Op: code.JumpIndirect},
		{Op: code.Halt},
	}

	out, m := run(t, insns, nil)
	if out != "42\n" {
		t.Fatalf("output = %q, want %q", out, "42\n")
	}
	if err := m.Balanced(); err != nil {
		t.Errorf("Balanced: %v", err)
	}
}

func TestArgsLoadedIntoMemory(t *testing.T) {
	insns := code.Instructions{
		{Op: code.PushImmediate, Int: 0},
		{Op: code.Load},
		{Op: code.Print},
		{Op: code.Halt},
	}
	out, _ := run(t, insns, []int64{7})
	if out != "7\n" {
		t.Errorf("output = %q, want %q", out, "7\n")
	}
}
