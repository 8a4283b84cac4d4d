// Package vm is the Tau stack virtual machine: a synchronous interpreter
// loop over a flat instruction list, one evaluation stack, one flat integer
// memory array, and three registers (PC, FP, SP).
//
// There is no per-call frame object: a call's return address, saved
// registers, and locals all live in the memory array at offsets relative to
// FP, exactly as codegen lays them out (see package offsets and package
// codegen). The VM only ever interprets what codegen emitted; it has no
// notion of functions, types, or scopes.
package vm

import (
	"fmt"
	"io"

	"github.com/dr8co/tau/code"
)

// defaultMemorySize is the size of the flat memory array beyond the
// argument block (the reference allocates 100000 cells there).
const defaultMemorySize = 100_000

// VM holds one program's runtime state.
type VM struct {
	insns  code.Instructions
	labels map[string]int

	Stack  []int64
	Memory []int64
	PC     int
	FP     int
	SP     int

	// initialSP is the SP value a correctly balanced program must return to
	// by the time it halts (len(args)+1).
	initialSP int

	Out io.Writer
}

// New builds a VM over insns, with memory initialized to args followed by
// zero-filled cells. SP starts at len(args)+1, FP at 0, PC at 0, matching
// the reference launcher's register initialization. It returns an error if
// insns declares a duplicate label or references an undefined one.
func New(insns code.Instructions, args []int64, out io.Writer) (*VM, error) {
	labels, err := resolveLabels(insns)
	if err != nil {
		return nil, err
	}

	memory := make([]int64, len(args)+defaultMemorySize)
	copy(memory, args)

	sp := len(args) + 1
	return &VM{
		insns:     insns,
		labels:    labels,
		Memory:    memory,
		SP:        sp,
		initialSP: sp,
		Out:       out,
	}, nil
}

func resolveLabels(insns code.Instructions) (map[string]int, error) {
	labels := make(map[string]int)
	for i, ins := range insns {
		if ins.Op == code.Label {
			if _, dup := labels[ins.Label]; dup {
				return nil, fmt.Errorf("duplicate label %q", ins.Label)
			}
			labels[ins.Label] = i
		}
	}
	for _, ins := range insns {
		if ins.Label == "" {
			continue
		}
		if _, ok := labels[ins.Label]; !ok {
			return nil, fmt.Errorf("undefined label %q", ins.Label)
		}
	}
	return labels, nil
}

// Run executes until Halt or the end of the instruction list, returning the
// first runtime error encountered, if any.
func (vm *VM) Run() error {
	for vm.PC < len(vm.insns) {
		halt, err := vm.step()
		if err != nil {
			return err
		}
		if halt {
			return nil
		}
	}
	return nil
}

func (vm *VM) step() (halt bool, err error) {
	ins := vm.insns[vm.PC]
	switch ins.Op {
	case code.Label, code.Noop:
		vm.PC++
	case code.Jump:
		vm.PC = vm.labels[ins.Label]
	case code.JumpIfZero:
		v, err := vm.pop()
		if err != nil {
			return false, err
		}
		if v == 0 {
			vm.PC = vm.labels[ins.Label]
		} else {
			vm.PC++
		}
	case code.JumpIfNotZero:
		v, err := vm.pop()
		if err != nil {
			return false, err
		}
		if v != 0 {
			vm.PC = vm.labels[ins.Label]
		} else {
			vm.PC++
		}
	case code.JumpIndirect:
		v, err := vm.pop()
		if err != nil {
			return false, err
		}
		vm.PC = int(v)
	case code.PushImmediate:
		vm.push(ins.Int)
		vm.PC++
	case code.PushLabel:
		vm.push(int64(vm.labels[ins.Label]))
		vm.PC++
	case code.Load:
		addr, err := vm.pop()
		if err != nil {
			return false, err
		}
		v, err := vm.load(addr)
		if err != nil {
			return false, err
		}
		vm.push(v)
		vm.PC++
	case code.Store:
		v, err := vm.pop()
		if err != nil {
			return false, err
		}
		addr, err := vm.pop()
		if err != nil {
			return false, err
		}
		if err := vm.store(addr, v); err != nil {
			return false, err
		}
		vm.PC++
	case code.Add:
		return false, vm.binary(func(a, b int64) int64 { return a + b })
	case code.Sub:
		return false, vm.binary(func(a, b int64) int64 { return a - b })
	case code.Mul:
		return false, vm.binary(func(a, b int64) int64 { return a * b })
	case code.Div:
		return false, vm.binary(func(a, b int64) int64 { return a / b })
	case code.Negate:
		v, err := vm.pop()
		if err != nil {
			return false, err
		}
		vm.push(-v)
		vm.PC++
	case code.LessThan:
		return false, vm.compare(func(a, b int64) bool { return a < b })
	case code.LessEq:
		return false, vm.compare(func(a, b int64) bool { return a <= b })
	case code.GreaterThan:
		return false, vm.compare(func(a, b int64) bool { return a > b })
	case code.GreaterEq:
		return false, vm.compare(func(a, b int64) bool { return a >= b })
	case code.Equal:
		return false, vm.compare(func(a, b int64) bool { return a == b })
	case code.NotEqual:
		return false, vm.compare(func(a, b int64) bool { return a != b })
	case code.Not:
		v, err := vm.pop()
		if err != nil {
			return false, err
		}
		vm.push(boolInt(v == 0))
		vm.PC++
	case code.Print:
		v, err := vm.pop()
		if err != nil {
			return false, err
		}
		fmt.Fprintf(vm.Out, "%d\n", v)
		vm.PC++
	case code.PushFP:
		vm.push(int64(vm.FP) + ins.Int)
		vm.PC++
	case code.PushSP:
		vm.push(int64(vm.SP) + ins.Int)
		vm.PC++
	case code.PopFP:
		v, err := vm.pop()
		if err != nil {
			return false, err
		}
		vm.FP = int(v)
		vm.PC++
	case code.PopSP:
		v, err := vm.pop()
		if err != nil {
			return false, err
		}
		vm.SP = int(v)
		vm.PC++
	case code.Pop:
		if _, err := vm.pop(); err != nil {
			return false, err
		}
		vm.PC++
	case code.Swap:
		if len(vm.Stack) < 2 {
			return false, fmt.Errorf("stack underflow on Swap")
		}
		n := len(vm.Stack)
		vm.Stack[n-1], vm.Stack[n-2] = vm.Stack[n-2], vm.Stack[n-1]
		vm.PC++
	case code.Call:
		v, err := vm.pop()
		if err != nil {
			return false, err
		}
		vm.push(int64(vm.PC + 1))
		vm.PC = int(v)
	case code.SaveEvalStack:
		vm.saveEvalStack()
		vm.PC++
	case code.RestoreEvalStack:
		vm.restoreEvalStack()
		vm.PC++
	case code.Halt:
		return true, nil
	default:
		return false, fmt.Errorf("unknown opcode %d at PC=%d", ins.Op, vm.PC)
	}
	return false, nil
}

func (vm *VM) push(v int64) { vm.Stack = append(vm.Stack, v) }

func (vm *VM) pop() (int64, error) {
	n := len(vm.Stack)
	if n == 0 {
		return 0, fmt.Errorf("stack underflow at PC=%d", vm.PC)
	}
	v := vm.Stack[n-1]
	vm.Stack = vm.Stack[:n-1]
	return v, nil
}

func (vm *VM) binary(f func(a, b int64) int64) error {
	b, err := vm.pop()
	if err != nil {
		return err
	}
	a, err := vm.pop()
	if err != nil {
		return err
	}
	vm.push(f(a, b))
	vm.PC++
	return nil
}

func (vm *VM) compare(f func(a, b int64) bool) error {
	b, err := vm.pop()
	if err != nil {
		return err
	}
	a, err := vm.pop()
	if err != nil {
		return err
	}
	vm.push(boolInt(f(a, b)))
	vm.PC++
	return nil
}

func boolInt(b bool) int64 {
	if b {
		return 1
	}
	return 0
}

func (vm *VM) load(addr int64) (int64, error) {
	if addr < 0 || int(addr) >= len(vm.Memory) {
		return 0, fmt.Errorf("out-of-bounds memory read at %d", addr)
	}
	return vm.Memory[addr], nil
}

func (vm *VM) store(addr, v int64) error {
	if addr < 0 || int(addr) >= len(vm.Memory) {
		return fmt.Errorf("out-of-bounds memory write at %d", addr)
	}
	vm.Memory[addr] = v
	return nil
}

// saveEvalStack spills the evaluation stack into memory at SP, followed by
// its size, and empties the stack. Reserved for future use; no codegen path
// currently emits it.
func (vm *VM) saveEvalStack() {
	size := len(vm.Stack)
	for i, v := range vm.Stack {
		vm.Memory[vm.SP+i] = v
	}
	vm.Memory[vm.SP+size] = int64(size)
	vm.SP += size + 1
	vm.Stack = nil
}

// restoreEvalStack reloads the evaluation stack spilled by saveEvalStack.
func (vm *VM) restoreEvalStack() {
	size := int(vm.Memory[vm.SP-1])
	tmp := make([]int64, size)
	copy(tmp, vm.Memory[vm.SP-1-size:vm.SP-1])
	vm.SP -= size + 1
	vm.Stack = append(tmp, vm.Stack...)
}

// Balanced reports whether the sanity check required on halt — SP restored
// to its initial value — passes.
func (vm *VM) Balanced() error {
	if vm.SP != vm.initialSP {
		return fmt.Errorf("stack pointer not restored: got SP=%d, want %d", vm.SP, vm.initialSP)
	}
	return nil
}
