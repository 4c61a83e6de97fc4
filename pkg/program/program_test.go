package program

import (
	"strings"
	"testing"
)

func TestInstructionString(t *testing.T) {
	tests := []struct {
		inst Instruction
		want string
	}{
		{Instruction{Op: PUSH, Int: 42}, "PUSH 42"},
		{Instruction{Op: PUSH_FP, Local: 2}, "PUSH_FP +2"},
		{Instruction{Op: POP_FP, Local: 1}, "POP_FP +1"},
		{Instruction{Op: ST_FP, Int: 0, Local: 0}, "ST_FP -0 -> +0"},
		{Instruction{Op: ADD}, "ADD"},
		{Instruction{Op: COND, Cond: LT}, "COND LT"},
		{Instruction{Op: JMP, Label: "label_out_3"}, "JMP label_out_3"},
		{Instruction{Op: CALL, Label: "fib", Argc: 1}, "CALL fib, 1"},
		{Instruction{Op: RETVAL}, "RETVAL"},
		{Instruction{Op: RET}, "RET"},
	}

	for _, tt := range tests {
		if got := tt.inst.String(); got != tt.want {
			t.Errorf("Instruction.String() = %q, want %q", got, tt.want)
		}
	}
}

func TestDisassembleLabelsEntry(t *testing.T) {
	p := New()
	p.Instructions = []Instruction{
		{Op: JMP, Label: "function_done_0"},
		{Op: PUSH_FP, Local: 0},
		{Op: RETVAL},
	}
	p.Symbols["inc"] = Symbol{Loc: 1, NArgs: 1, NLocals: 1}
	p.Symbols["function_done_0"] = Symbol{Loc: 3, NArgs: 0, NLocals: 0}

	out := p.Disassemble()
	if !strings.Contains(out, "inc:") {
		t.Errorf("Disassemble() missing label inc:\n%s", out)
	}
	if !strings.Contains(out, "function_done_0:") {
		t.Errorf("Disassemble() missing label function_done_0:\n%s", out)
	}
}
