package vm

import (
	"bytes"
	"testing"

	"vmlua/pkg/emitter"
	"vmlua/pkg/lexer"
	"vmlua/pkg/parser"
	"vmlua/pkg/program"
)

func run(t *testing.T, src string) string {
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
	prog, err := emitter.New().Compile(ast)
	if err != nil {
		t.Fatalf("Compile() error: %v", err)
	}

	var buf bytes.Buffer
	machine := New(&buf)
	if err := machine.Run(prog); err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	return buf.String()
}

func TestSeedHelloConstant(t *testing.T) {
	if got, want := run(t, "print(42);"), "42 \n"; got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestSeedLocalAndArithmetic(t *testing.T) {
	src := "local a = 2;\nlocal b = 3;\nprint(a + b);"
	if got, want := run(t, src), "5 \n"; got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestSeedFunctionCallWithArgument(t *testing.T) {
	src := "function inc(x)\nreturn x + 1;\nend\nprint(inc(41));"
	if got, want := run(t, src), "42 \n"; got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestSeedIfElseThenBranch(t *testing.T) {
	src := "local n = 3;\nif n < 5 then\nprint(1);\nelse\nprint(0);\nend"
	if got, want := run(t, src), "1 \n"; got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestSeedRecursiveFib(t *testing.T) {
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
	if got, want := run(t, src), "5 \n"; got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestSeedArgumentEvaluationOrder(t *testing.T) {
	if got, want := run(t, "print(1, 2, 3);"), "3 2 1 \n"; got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestFrameBalanceAfterCall(t *testing.T) {
	l := lexer.New("function inc(x)\nreturn x + 1;\nend\nlocal r = inc(41);")
	p, err := parser.New(l)
	if err != nil {
		t.Fatalf("parser.New() error: %v", err)
	}
	ast, err := p.Parse()
	if err != nil {
		t.Fatalf("Parse() error: %v", err)
	}
	prog, err := emitter.New().Compile(ast)
	if err != nil {
		t.Fatalf("Compile() error: %v", err)
	}

	var buf bytes.Buffer
	machine := New(&buf)
	if err := machine.Run(prog); err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	// r is the sole surviving local: one slot.
	if len(machine.stack) != 1 {
		t.Errorf("final stack length = %d, want 1", len(machine.stack))
	}
	if machine.stack[0] != 42 {
		t.Errorf("r = %d, want 42", machine.stack[0])
	}
}

// TestStraightLinePCProgress is spec.md §8's loop-free pc-progress
// property: in a straight-line region with no jump/call/return
// instructions, pc advances by exactly one per executed instruction.
func TestStraightLinePCProgress(t *testing.T) {
	prog := program.New()
	prog.Instructions = []program.Instruction{
		{Op: program.PUSH, Int: 2},
		{Op: program.PUSH, Int: 3},
		{Op: program.ADD},
		{Op: program.PUSH, Int: 1},
		{Op: program.SUB},
	}

	var buf bytes.Buffer
	machine := New(&buf)
	for i, inst := range prog.Instructions {
		if machine.pc != int32(i) {
			t.Fatalf("before inst %d: pc = %d, want %d", i, machine.pc, i)
		}
		if err := machine.step(prog, inst); err != nil {
			t.Fatalf("step() error: %v", err)
		}
		if machine.pc != int32(i+1) {
			t.Fatalf("after inst %d: pc = %d, want %d", i, machine.pc, i+1)
		}
	}
	if got, want := machine.stack[len(machine.stack)-1], int32(4); got != want {
		t.Errorf("result = %d, want %d", got, want)
	}
}

func TestUnknownLabelIsFatal(t *testing.T) {
	prog := program.New()
	prog.Instructions = []program.Instruction{{Op: program.JMP, Label: "nowhere"}}
	var buf bytes.Buffer
	if err := New(&buf).Run(prog); err == nil {
		t.Fatal("expected an error for an unknown label")
	}
}

func TestStackUnderflowIsFatal(t *testing.T) {
	prog := program.New()
	prog.Instructions = []program.Instruction{{Op: program.ADD}}
	var buf bytes.Buffer
	if err := New(&buf).Run(prog); err == nil {
		t.Fatal("expected a stack underflow error")
	}
}
