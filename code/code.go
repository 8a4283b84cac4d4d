// Package code defines Tau's virtual-machine instruction set and its
// persistable text assembly format.
//
// Unlike a byte-packed bytecode, an [Instruction] here is a small tagged
// struct: the program counter indexes into a LIST of instructions, not a
// byte stream, so there is no encoding/decoding of operand widths to do.
// What this package does own is the instruction set itself — the closed
// opcode table with its documented stack effects — and a disassembler and
// assembler for the verbose/concise text format described for the VM:
// each instruction may be written as `Label "main"` or `lab "main"`, with
// an optional trailing string-literal comment.
package code

import (
	"fmt"
	"strconv"
	"strings"
)

// Opcode identifies one of the VM's instructions.
type Opcode int

// The closed instruction set. Every opcode's stack effect is documented at
// its declaration.
const (
	// Label marks a jump target; no-op at runtime.
	Label Opcode = iota
	// Noop does nothing.
	Noop
	// Jump transfers control unconditionally to its label operand.
	Jump
	// JumpIfZero pops v; jumps to its label operand if v == 0.
	JumpIfZero
	// JumpIfNotZero pops v; jumps to its label operand if v != 0.
	JumpIfNotZero
	// JumpIndirect pops v and sets PC to v.
	JumpIndirect
	// PushImmediate pushes its integer operand.
	PushImmediate
	// PushLabel pushes the instruction index of its label operand.
	PushLabel
	// Load pops addr; pushes memory[addr].
	Load
	// Store pops v, pops addr; sets memory[addr] = v.
	Store
	// Add pops a, b; pushes a + b.
	Add
	// Sub pops a, b; pushes a - b.
	Sub
	// Mul pops a, b; pushes a * b.
	Mul
	// Div pops a, b; pushes a / b, truncating toward zero.
	Div
	// Negate pops v; pushes -v.
	Negate
	// LessThan pops a, b; pushes 1 if a < b else 0.
	LessThan
	// LessEq pops a, b; pushes 1 if a <= b else 0.
	LessEq
	// GreaterThan pops a, b; pushes 1 if a > b else 0.
	GreaterThan
	// GreaterEq pops a, b; pushes 1 if a >= b else 0.
	GreaterEq
	// Equal pops a, b; pushes 1 if a == b else 0.
	Equal
	// NotEqual pops a, b; pushes 1 if a != b else 0.
	NotEqual
	// Not pops v; pushes 1 if v == 0 else 0.
	Not
	// Print pops v; writes v followed by a newline to stdout.
	Print
	// PushFP pushes FP + its integer operand.
	PushFP
	// PushSP pushes SP + its integer operand.
	PushSP
	// PopFP pops v; sets FP = v.
	PopFP
	// PopSP pops v; sets SP = v.
	PopSP
	// Pop discards the top of the evaluation stack.
	Pop
	// Swap exchanges the top two values of the evaluation stack.
	Swap
	// Call pops v; pushes PC+1; sets PC = v.
	Call
	// SaveEvalStack spills the evaluation stack into memory at SP. Reserved
	// for future use; the reference emits it nowhere reachable by codegen.
	SaveEvalStack
	// RestoreEvalStack reloads the evaluation stack from memory at SP.
	// Reserved for future use, see SaveEvalStack.
	RestoreEvalStack
	// Halt stops execution.
	Halt
)

// OperandKind classifies what operand (if any) an instruction carries.
type OperandKind int

const (
	NoOperand OperandKind = iota
	IntOperand
	LabelOperandKind
)

// Definition names an opcode in both its verbose and concise mnemonic forms,
// and says what kind of operand it takes.
type Definition struct {
	Verbose string
	Concise string
	Operand OperandKind
}

var definitions = map[Opcode]Definition{
	Label:            {"Label", "lab", LabelOperandKind},
	Noop:             {"Noop", "noop", NoOperand},
	Jump:             {"Jump", "jmp", LabelOperandKind},
	JumpIfZero:       {"JumpIfZero", "jz", LabelOperandKind},
	JumpIfNotZero:    {"JumpIfNotZero", "jnz", LabelOperandKind},
	JumpIndirect:     {"JumpIndirect", "jmpi", NoOperand},
	PushImmediate:    {"PushImmediate", "psh", IntOperand},
	PushLabel:        {"PushLabel", "pshl", LabelOperandKind},
	Load:             {"Load", "ld", NoOperand},
	Store:            {"Store", "st", NoOperand},
	Add:              {"Add", "add", NoOperand},
	Sub:              {"Sub", "sub", NoOperand},
	Mul:              {"Mul", "mul", NoOperand},
	Div:              {"Div", "div", NoOperand},
	Negate:           {"Negate", "neg", NoOperand},
	LessThan:         {"LessThan", "lt", NoOperand},
	LessEq:           {"LessEq", "le", NoOperand},
	GreaterThan:      {"GreaterThan", "gt", NoOperand},
	GreaterEq:        {"GreaterEq", "ge", NoOperand},
	Equal:            {"Equal", "eq", NoOperand},
	NotEqual:         {"NotEqual", "ne", NoOperand},
	Not:              {"Not", "not", NoOperand},
	Print:            {"Print", "prt", NoOperand},
	PushFP:           {"PushFP", "pshfp", IntOperand},
	PushSP:           {"PushSP", "pshsp", IntOperand},
	PopFP:            {"PopFP", "popfp", NoOperand},
	PopSP:            {"PopSP", "popsp", NoOperand},
	Pop:              {"Pop", "pop", NoOperand},
	Swap:             {"Swap", "swp", NoOperand},
	Call:             {"Call", "call", NoOperand},
	SaveEvalStack:    {"SaveEvalStack", "saves", NoOperand},
	RestoreEvalStack: {"RestoreEvalStack", "rests", NoOperand},
	Halt:             {"Halt", "halt", NoOperand},
}

var byName map[string]Opcode

func init() {
	byName = make(map[string]Opcode, len(definitions)*2)
	for op, def := range definitions {
		byName[def.Verbose] = op
		byName[def.Concise] = op
	}
}

// Lookup returns op's Definition.
func Lookup(op Opcode) (Definition, error) {
	def, ok := definitions[op]
	if !ok {
		return Definition{}, fmt.Errorf("opcode %d undefined", op)
	}
	return def, nil
}

// LookupName resolves a verbose or concise mnemonic to its Opcode.
func LookupName(name string) (Opcode, error) {
	op, ok := byName[name]
	if !ok {
		return 0, fmt.Errorf("unknown instruction mnemonic %q", name)
	}
	return op, nil
}

// Instruction is one VM instruction: an opcode plus at most one operand and
// an optional comment.
type Instruction struct {
	Op      Opcode
	Int     int64  // valid when the opcode takes an IntOperand
	Label   string // valid when the opcode takes a LabelOperandKind
	Comment string // optional, never affects execution
}

// Instructions is an ordered program: the VM's PC indexes directly into it.
type Instructions []Instruction

// MakeInt builds an int-operand instruction.
func MakeInt(op Opcode, n int64) Instruction {
	return Instruction{Op: op, Int: n}
}

// MakeLabel builds a label-operand instruction (including Label itself).
func MakeLabel(op Opcode, label string) Instruction {
	return Instruction{Op: op, Label: label}
}

// Make builds a no-operand instruction.
func Make(op Opcode) Instruction {
	return Instruction{Op: op}
}

// String renders a single instruction in verbose text form, e.g.
// `PushImmediate 42` or `Jump "else1"`.
func (ins Instruction) String() string {
	def, err := Lookup(ins.Op)
	if err != nil {
		return fmt.Sprintf("ERROR: %s", err)
	}
	var b strings.Builder
	b.WriteString(def.Verbose)
	switch def.Operand {
	case IntOperand:
		b.WriteString(" ")
		b.WriteString(strconv.FormatInt(ins.Int, 10))
	case LabelOperandKind:
		b.WriteString(" ")
		b.WriteString(strconv.Quote(ins.Label))
	}
	if ins.Comment != "" {
		b.WriteString(" ")
		b.WriteString(strconv.Quote(ins.Comment))
	}
	return b.String()
}

// String renders a full instruction list, one instruction per line.
func (ins Instructions) String() string {
	var b strings.Builder
	for _, i := range ins {
		b.WriteString(i.String())
		b.WriteString("\n")
	}
	return b.String()
}

// Parse is the VM assembler: it parses text in the format [Instructions.String]
// produces (accepting either verbose or concise mnemonics) back into an
// Instructions list.
func Parse(text string) (Instructions, error) {
	var out Instructions
	for lineNo, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		tokens, err := tokenizeLine(line)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", lineNo+1, err)
		}
		if len(tokens) == 0 {
			continue
		}
		op, err := LookupName(tokens[0])
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", lineNo+1, err)
		}
		def, _ := Lookup(op)

		rest := tokens[1:]
		inst := Instruction{Op: op}

		switch def.Operand {
		case IntOperand:
			if len(rest) == 0 {
				return nil, fmt.Errorf("line %d: %s requires an integer operand", lineNo+1, def.Verbose)
			}
			n, err := strconv.ParseInt(rest[0], 10, 64)
			if err != nil {
				return nil, fmt.Errorf("line %d: bad integer operand %q: %w", lineNo+1, rest[0], err)
			}
			inst.Int = n
			rest = rest[1:]
		case LabelOperandKind:
			if len(rest) == 0 {
				return nil, fmt.Errorf("line %d: %s requires a label operand", lineNo+1, def.Verbose)
			}
			inst.Label = rest[0]
			rest = rest[1:]
		}

		if len(rest) > 0 {
			inst.Comment = rest[0]
			rest = rest[1:]
		}
		if len(rest) > 0 {
			return nil, fmt.Errorf("line %d: unexpected trailing tokens after %s", lineNo+1, def.Verbose)
		}

		out = append(out, inst)
	}
	return out, nil
}

// tokenizeLine splits a line into mnemonic/bare-integer tokens and
// double-quoted string tokens (quotes stripped, escapes per Go syntax).
func tokenizeLine(line string) ([]string, error) {
	var tokens []string
	i := 0
	for i < len(line) {
		for i < len(line) && line[i] == ' ' {
			i++
		}
		if i >= len(line) {
			break
		}
		if line[i] == '"' {
			j := i + 1
			for j < len(line) && line[j] != '"' {
				if line[j] == '\\' && j+1 < len(line) {
					j++
				}
				j++
			}
			if j >= len(line) {
				return nil, fmt.Errorf("unterminated string literal")
			}
			quoted := line[i : j+1]
			s, err := strconv.Unquote(quoted)
			if err != nil {
				return nil, fmt.Errorf("bad string literal %s: %w", quoted, err)
			}
			tokens = append(tokens, s)
			i = j + 1
			continue
		}
		j := i
		for j < len(line) && line[j] != ' ' {
			j++
		}
		tokens = append(tokens, line[i:j])
		i = j
	}
	return tokens, nil
}
