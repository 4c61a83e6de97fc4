package emitter

import (
	"strings"
	"testing"

	"vmlua/pkg/lexer"
	"vmlua/pkg/parser"
	"vmlua/pkg/program"
)

func compileSource(t *testing.T, src string) *program.Program {
	t.Helper()
	l := lexer.New(src)
	p, err := parser.New(l)
	if err != nil {
		t.Fatalf("parser.New() error: %v", err)
	}
	ast, err := p.Parse()
	if err != nil {
		t.Fatalf("Parse() error: %v", err)
	}
	prog, err := New().Compile(ast)
	if err != nil {
		t.Fatalf("Compile() error: %v", err)
	}
	return prog
}

func opcodes(prog *program.Program) []program.Opcode {
	ops := make([]program.Opcode, len(prog.Instructions))
	for i, inst := range prog.Instructions {
		ops[i] = inst.Op
	}
	return ops
}

func TestCompileHelloConstant(t *testing.T) {
	prog := compileSource(t, "print(42);")
	want := []program.Opcode{program.PUSH, program.CALL}
	got := opcodes(prog)
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("inst %d = %s, want %s", i, got[i], want[i])
		}
	}
	if prog.Instructions[0].Int != 42 {
		t.Errorf("PUSH operand = %d, want 42", prog.Instructions[0].Int)
	}
	if prog.Instructions[1].Label != "print" || prog.Instructions[1].Argc != 1 {
		t.Errorf("CALL = %+v, want print,1", prog.Instructions[1])
	}
}

func TestCompileLocalArithmetic(t *testing.T) {
	prog := compileSource(t, "local a = 2;\nlocal b = 3;\nprint(a + b);")
	want := []program.Opcode{
		program.PUSH, program.POP_FP, // local a = 2
		program.PUSH, program.POP_FP, // local b = 3
		program.PUSH_FP, program.PUSH_FP, program.ADD, program.CALL,
	}
	got := opcodes(prog)
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("inst %d = %s, want %s", i, got[i], want[i])
		}
	}
}

func TestCompileIfElseLabels(t *testing.T) {
	prog := compileSource(t, "local n = 3;\nif n < 5 then\nprint(1);\nelse\nprint(0);\nend")
	foundElse, foundOut := false, false
	for name := range prog.Symbols {
		if strings.HasPrefix(name, "label_else_") {
			foundElse = true
		}
		if strings.HasPrefix(name, "label_out_") {
			foundOut = true
		}
	}
	if !foundElse || !foundOut {
		t.Errorf("expected label_else_* and label_out_* symbols, got %v", prog.Symbols)
	}
}

func TestCompileFunctionDeclAndCall(t *testing.T) {
	prog := compileSource(t, "function inc(x)\nreturn x + 1;\nend\nprint(inc(41));")
	sym, ok := prog.Symbols["inc"]
	if !ok {
		t.Fatal("expected symbol \"inc\"")
	}
	if sym.NArgs != 1 {
		t.Errorf("inc.NArgs = %d, want 1", sym.NArgs)
	}
	if sym.NLocals != 1 {
		t.Errorf("inc.NLocals = %d, want 1", sym.NLocals)
	}

	prologue := prog.Instructions[sym.Loc]
	if prologue.Op != program.ST_FP || prologue.Int != 0 || prologue.Local != 0 {
		t.Errorf("function prologue = %+v, want ST_FP -0 -> +0", prologue)
	}
}

func TestCompileFunctionImplicitRet(t *testing.T) {
	prog := compileSource(t, "function noop(x)\nlocal y = x;\nend\nprint(1);")
	sym := prog.Symbols["noop"]
	done := prog.Symbols["function_done_0"]

	sawRet := false
	for i := sym.Loc; i < done.Loc; i++ {
		if prog.Instructions[i].Op == program.RET {
			sawRet = true
		}
	}
	if !sawRet {
		t.Errorf("expected an implicit RET in noop's body")
	}
}

// TestCompileDeterminism is spec.md §8's emission-determinism property:
// compiling the same AST twice produces the same instruction stream
// and symbol table.
func TestCompileDeterminism(t *testing.T) {
	src := `
function fib(n)
  if n < 2 then
    return n;
  end
  local a = n - 1;
  local b = n - 2;
  local x = fib(a);
  local y = fib(b);
  return x + y;
end
print(fib(5));
`
	l := lexer.New(src)
	p, err := parser.New(l)
	if err != nil {
		t.Fatalf("parser.New() error: %v", err)
	}
	tree, err := p.Parse()
	if err != nil {
		t.Fatalf("Parse() error: %v", err)
	}

	first, err := New().Compile(tree)
	if err != nil {
		t.Fatalf("Compile() error: %v", err)
	}
	second, err := New().Compile(tree)
	if err != nil {
		t.Fatalf("Compile() error: %v", err)
	}

	if first.Disassemble() != second.Disassemble() {
		t.Fatalf("compiling the same AST twice produced different instruction streams:\n%s\n---\n%s",
			first.Disassemble(), second.Disassemble())
	}
	if len(first.Symbols) != len(second.Symbols) {
		t.Fatalf("got %d symbols, want %d", len(second.Symbols), len(first.Symbols))
	}
	for name, sym := range first.Symbols {
		other, ok := second.Symbols[name]
		if !ok || other != sym {
			t.Errorf("symbol %q = %+v, want %+v", name, other, sym)
		}
	}
}

// TestLabelClosure is spec.md §8's label-closure property: every label
// referenced by a JMP/JZ/JNZ/CALL appears in Program.Symbols. The
// built-in print is the one CALL target that is never a label.
func TestLabelClosure(t *testing.T) {
	sources := []string{
		"print(42);",
		"local n = 3;\nif n < 5 then\nprint(1);\nelse\nprint(0);\nend",
		"function inc(x)\nreturn x + 1;\nend\nprint(inc(41));",
		`
function fib(n)
  if n < 2 then
    return n;
  end
  local a = n - 1;
  local b = n - 2;
  local x = fib(a);
  local y = fib(b);
  return x + y;
end
print(fib(5));
`,
	}

	for _, src := range sources {
		prog := compileSource(t, src)
		for i, inst := range prog.Instructions {
			switch inst.Op {
			case program.JMP, program.JZ, program.JNZ:
				if _, ok := prog.Symbols[inst.Label]; !ok {
					t.Errorf("source %q: inst %d references unresolved label %q", src, i, inst.Label)
				}
			case program.CALL:
				if inst.Label == "print" {
					continue
				}
				if _, ok := prog.Symbols[inst.Label]; !ok {
					t.Errorf("source %q: inst %d calls unresolved label %q", src, i, inst.Label)
				}
			}
		}
	}
}

func TestCompileArgumentOrderTopOfStackFirst(t *testing.T) {
	prog := compileSource(t, "print(1, 2, 3);")
	// 3 PUSHes, then CALL print,3 — VM prints top-of-stack (last-pushed) first.
	pushes := 0
	for _, inst := range prog.Instructions {
		if inst.Op == program.PUSH {
			pushes++
		}
	}
	if pushes != 3 {
		t.Fatalf("got %d PUSH instructions, want 3", pushes)
	}
	last := prog.Instructions[len(prog.Instructions)-1]
	if last.Op != program.CALL || last.Argc != 3 {
		t.Errorf("last inst = %+v, want CALL print,3", last)
	}
}
