// tau compiles Tau source code into a flat instruction list and runs it on
// the stack VM, or launches an interactive REPL when no file is given.
package main

import (
	"flag"
	"fmt"
	"os"
	"os/user"

	"github.com/dr8co/tau/pipeline"
	"github.com/dr8co/tau/repl"
	"github.com/dr8co/tau/vmutil"
)

const version = "0.1.0"

// printUsage displays custom usage information.
func printUsage() {
	_, _ = fmt.Fprintf(os.Stderr, `Tau Compiler v%s

USAGE:
    %[2]s --file <path> [OPTIONS] [args...]
    %[2]s

DESCRIPTION:
    Tau compiles a Tau source file into a flat instruction list and runs it
    on a stack VM. Without --file, it starts an interactive REPL.

OPTIONS:
    -f, --file <path>        Compile and run a Tau source file
    --verbose                Dump the generated instructions before running
    --stopafter <phase>      Stop after one of: scanner, parser, bindings,
                              typecheck, offsets
    -v, --version            Show version information
    -h, --help                Show this help message

    Trailing positional arguments are passed to the program as its integer
    argument list; a non-integer argument is a runtime error.

EXAMPLES:
    # Start the interactive REPL
    %[2]s

    # Compile and run a script
    %[2]s -f fact.tau

    # Dump instructions, then run
    %[2]s --file fact.tau --verbose

    # Stop after parsing, without running
    %[2]s --file fact.tau --stopafter parser

`, version, os.Args[0])
}

func main() {
	flag.Usage = printUsage

	fileFlag := flag.String("file", "", "Compile and run a Tau source file")
	verboseFlag := flag.Bool("verbose", false, "Dump the generated instructions before running")
	stopAfterFlag := flag.String("stopafter", "", "Stop after a compiler stage")
	versionFlag := flag.Bool("version", false, "Show version information")

	flag.StringVar(fileFlag, "f", "", "Compile and run a Tau source file")
	flag.BoolVar(versionFlag, "v", false, "Show version information")

	flag.Parse()

	if *versionFlag {
		fmt.Printf("Tau Compiler v%s\n", version)
		return
	}

	if !pipeline.ValidStage(*stopAfterFlag) {
		fmt.Fprintf(os.Stderr, "Error: unknown --stopafter phase %q\n", *stopAfterFlag)
		os.Exit(1)
	}

	if *fileFlag != "" {
		executeFile(*fileFlag, pipeline.Stage(*stopAfterFlag), *verboseFlag, flag.Args())
		return
	}

	username := "unknown"
	if usr, err := user.Current(); err == nil {
		username = usr.Username
	}

	repl.Start(username, repl.Options{Debug: *verboseFlag})
}

// executeFile reads, compiles, and runs a Tau source file.
func executeFile(filename string, stopAfter pipeline.Stage, verbose bool, args []string) {
	//nolint:gosec // not reading user-controlled paths over a network boundary
	content, err := os.ReadFile(filename)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error reading file: %s\n", err)
		os.Exit(1)
	}

	insns, stopped, err := pipeline.Run(string(content), stopAfter)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	if stopped != nil {
		fmt.Printf("Stopped after %s\n", stopAfter)
		return
	}

	if err := vmutil.Invoke(insns, args, os.Stdout, verbose); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
