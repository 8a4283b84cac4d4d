// Package vmutil wires package vm to a command-line driver: turning
// argv-style string arguments into the VM's integer argument array, running
// a program to completion, and printing a disassembly dump when asked.
package vmutil

import (
	"fmt"
	"io"
	"strconv"

	"github.com/dr8co/tau/code"
	"github.com/dr8co/tau/vm"
)

// ParseArgs converts the command line's trailing positional arguments into
// the VM's integer argument array, reversed as the reference launcher lays
// them into memory. A non-integer argument is a runtime error, per spec.
func ParseArgs(raw []string) ([]int64, error) {
	args := make([]int64, len(raw))
	for i, s := range raw {
		n, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid argument %q: must be an integer", s)
		}
		args[len(raw)-1-i] = n
	}
	return args, nil
}

// Invoke assembles a VM over insns and params, runs it to completion, and
// reports a stack-pointer imbalance as an error exactly as the reference
// launcher does.
func Invoke(insns code.Instructions, params []string, out io.Writer, verbose bool) error {
	if verbose {
		Dump(insns, out)
	}

	args, err := ParseArgs(params)
	if err != nil {
		return err
	}

	m, err := vm.New(insns, args, out)
	if err != nil {
		return err
	}
	if err := m.Run(); err != nil {
		return err
	}
	return m.Balanced()
}

// Dump writes a numbered disassembly of insns to out, one instruction per
// line.
func Dump(insns code.Instructions, out io.Writer) {
	fmt.Fprintln(out, "Instructions:")
	for i, ins := range insns {
		fmt.Fprintf(out, "[%5d] %s\n", i, ins.String())
	}
}
