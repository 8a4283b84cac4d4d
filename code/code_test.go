package code

import "testing"

func TestInstructionString(t *testing.T) {
	tests := []struct {
		ins  Instruction
		want string
	}{
		{MakeInt(PushImmediate, 42), `PushImmediate 42`},
		{MakeLabel(Jump, "else1"), `Jump "else1"`},
		{Make(Add), `Add`},
		{MakeLabel(Label, "main"), `Label "main"`},
	}
	for _, tt := range tests {
		if got := tt.ins.String(); got != tt.want {
			t.Errorf("String() = %q, want %q", got, tt.want)
		}
	}
}

func TestLookupName(t *testing.T) {
	for _, name := range []string{"Jump", "jmp"} {
		op, err := LookupName(name)
		if err != nil {
			t.Fatalf("LookupName(%q): %v", name, err)
		}
		if op != Jump {
			t.Errorf("LookupName(%q) = %v, want Jump", name, op)
		}
	}
	if _, err := LookupName("nonsense"); err == nil {
		t.Error("expected error for unknown mnemonic")
	}
}

func TestParseRoundTrip(t *testing.T) {
	prog := Instructions{
		MakeLabel(Label, "main"),
		MakeInt(PushImmediate, 2),
		MakeInt(PushImmediate, 3),
		Make(Add),
		Make(Print),
		Make(Halt),
	}
	text := prog.String()
	parsed, err := Parse(text)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(parsed) != len(prog) {
		t.Fatalf("parsed %d instructions, want %d", len(parsed), len(prog))
	}
	for i := range prog {
		if parsed[i] != prog[i] {
			t.Errorf("instruction %d: got %+v, want %+v", i, parsed[i], prog[i])
		}
	}
}

func TestParseConciseMnemonics(t *testing.T) {
	parsed, err := Parse(`lab "loop"
psh 1
jz "done"
halt`)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	want := []Opcode{Label, PushImmediate, JumpIfZero, Halt}
	for i, op := range want {
		if parsed[i].Op != op {
			t.Errorf("instruction %d: got op %v, want %v", i, parsed[i].Op, op)
		}
	}
}

func TestParseWithComment(t *testing.T) {
	parsed, err := Parse(`Add "keeps eval stack balanced"`)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if parsed[0].Comment != "keeps eval stack balanced" {
		t.Errorf("Comment = %q", parsed[0].Comment)
	}
}

func TestParseErrors(t *testing.T) {
	cases := []string{
		"PushImmediate",       // missing int operand
		"Jump",                // missing label operand
		"bogus",               // unknown mnemonic
		`Add "a" "b"`,         // too many trailing tokens
		`Jump "unterminated`,  // unterminated string
	}
	for _, c := range cases {
		if _, err := Parse(c); err == nil {
			t.Errorf("Parse(%q): expected error", c)
		}
	}
}
