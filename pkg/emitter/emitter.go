// Package emitter lowers an *ast.Program to a *program.Program: a
// linear instruction stream plus a symbol table, following the frame
// layout and calling convention the VM relies on exactly. There is no
// optimization pass — emission is a direct, single-pass walk of the
// AST in program order.
package emitter

import (
	"fmt"
	"strconv"

	"vmlua/pkg/ast"
	"vmlua/pkg/program"
)

// Emitter carries no state across Compile calls; locals are scoped per
// Compile call for the top level and per compileFuncDecl call for each
// function body (each gets its own map).
type Emitter struct{}

// New returns an Emitter.
func New() *Emitter {
	return &Emitter{}
}

// Compile lowers prog's statements in order into a fresh
// *program.Program.
func (e *Emitter) Compile(prog *ast.Program) (*program.Program, error) {
	out := program.New()
	locals := make(map[string]int32)
	for _, stmt := range prog.Statements {
		if err := e.compileStatement(out, locals, stmt); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func emit(out *program.Program, inst program.Instruction) {
	out.Instructions = append(out.Instructions, inst)
}

func (e *Emitter) compileStatement(out *program.Program, locals map[string]int32, stmt ast.Statement) error {
	switch s := stmt.(type) {
	case *ast.IfStmt:
		return e.compileIf(out, locals, s)
	case *ast.LocalStmt:
		return e.compileLocal(out, locals, s)
	case *ast.RetStmt:
		return e.compileRet(out, locals, s)
	case *ast.ExprStmt:
		return e.compileExprStmt(out, locals, s)
	case *ast.FuncDecl:
		return e.compileFuncDecl(out, locals, s)
	default:
		return fmt.Errorf("emit: unknown statement %T", stmt)
	}
}

// compileIf generates two fresh labels named for the instruction count
// at the moment of emission, exactly as spec.md §4.3 requires:
//
//	JZ label_else
//	<then body>
//	JMP label_out
//	label_else:
//	<else body>
//	label_out:
func (e *Emitter) compileIf(out *program.Program, locals map[string]int32, stmt *ast.IfStmt) error {
	labelElse := fmt.Sprintf("label_else_%d", len(out.Instructions))
	labelOut := fmt.Sprintf("label_out_%d", len(out.Instructions))

	if err := e.compileExprStmt(out, locals, &ast.ExprStmt{Value: stmt.Cond.Clone()}); err != nil {
		return err
	}

	emit(out, program.Instruction{Op: program.JZ, Label: labelElse})
	for _, s := range stmt.Then {
		if err := e.compileStatement(out, locals, s); err != nil {
			return err
		}
	}
	emit(out, program.Instruction{Op: program.JMP, Label: labelOut})

	out.Symbols[labelElse] = program.Symbol{Loc: len(out.Instructions)}
	for _, s := range stmt.Else {
		if err := e.compileStatement(out, locals, s); err != nil {
			return err
		}
	}

	out.Symbols[labelOut] = program.Symbol{Loc: len(out.Instructions)}
	return nil
}

// compileLocal assigns x the next free slot, emits E, then stores it:
// the local's value lives at stack[fp + slot].
func (e *Emitter) compileLocal(out *program.Program, locals map[string]int32, stmt *ast.LocalStmt) error {
	slot := int32(len(locals))
	locals[stmt.Name] = slot

	if err := e.compileExprStmt(out, locals, &ast.ExprStmt{Value: stmt.Value.Clone()}); err != nil {
		return err
	}
	emit(out, program.Instruction{Op: program.POP_FP, Local: slot})
	return nil
}

func (e *Emitter) compileRet(out *program.Program, locals map[string]int32, stmt *ast.RetStmt) error {
	if err := e.compileExprStmt(out, locals, &ast.ExprStmt{Value: stmt.Value.Clone()}); err != nil {
		return err
	}
	emit(out, program.Instruction{Op: program.RETVAL})
	return nil
}

func (e *Emitter) compileExprStmt(out *program.Program, locals map[string]int32, stmt *ast.ExprStmt) error {
	return e.compileExpr(out, locals, stmt.Value)
}

func (e *Emitter) compileExpr(out *program.Program, locals map[string]int32, expr ast.Expression) error {
	switch ex := expr.(type) {
	case *ast.LiteralNumber:
		return e.compileLiteralNumber(out, ex)
	case *ast.LiteralID:
		return e.compileLiteralID(out, locals, ex)
	case *ast.FuncCall:
		return e.compileFuncCall(out, locals, ex)
	case *ast.BinaryOp:
		return e.compileBinaryOp(out, locals, ex)
	default:
		return fmt.Errorf("emit: unknown expression %T", expr)
	}
}

func (e *Emitter) compileLiteralNumber(out *program.Program, lit *ast.LiteralNumber) error {
	n, err := strconv.ParseInt(lit.Token.Literal, 10, 32)
	if err != nil {
		return fmt.Errorf("emit: invalid number literal %q: %w", lit.Token.Literal, err)
	}
	emit(out, program.Instruction{Op: program.PUSH, Int: int32(n)})
	return nil
}

func (e *Emitter) compileLiteralID(out *program.Program, locals map[string]int32, lit *ast.LiteralID) error {
	slot, ok := locals[lit.Name]
	if !ok {
		return fmt.Errorf("emit: undeclared local %q", lit.Name)
	}
	emit(out, program.Instruction{Op: program.PUSH_FP, Local: slot})
	return nil
}

// compileFuncCall emits each argument in order, so at call time the
// stack top-to-bottom is argK..arg1 — the last-pushed argument is on
// top.
func (e *Emitter) compileFuncCall(out *program.Program, locals map[string]int32, call *ast.FuncCall) error {
	for _, arg := range call.Args {
		if err := e.compileExprStmt(out, locals, &ast.ExprStmt{Value: arg.Clone()}); err != nil {
			return err
		}
	}
	emit(out, program.Instruction{Op: program.CALL, Label: call.Name, Argc: len(call.Args)})
	return nil
}

// condOps covers both ways a logical operator can reach the emitter:
// the symbolic form ("&&"/"||") and the word form, which in practice
// always arrives as a Keyword literal without its trailing space
// ("and"/"or") rather than the Operator-kind "and "/"or " — see
// isBinaryOpToken in pkg/parser. Both spellings are kept so the
// emitter accepts either representation, per spec.md §4.1.
var condOps = map[string]program.CondOp{
	"<": program.LT, ">": program.GT, "<=": program.LE, ">=": program.GE,
	"==": program.EQ, "!=": program.NE,
	"&&": program.AND, "and ": program.AND, "and": program.AND,
	"||": program.OR, "or ": program.OR, "or": program.OR,
}

func (e *Emitter) compileBinaryOp(out *program.Program, locals map[string]int32, bin *ast.BinaryOp) error {
	if err := e.compileExprStmt(out, locals, &ast.ExprStmt{Value: bin.Left.Clone()}); err != nil {
		return err
	}
	if err := e.compileExprStmt(out, locals, &ast.ExprStmt{Value: bin.Right.Clone()}); err != nil {
		return err
	}

	switch bin.Op {
	case "+":
		emit(out, program.Instruction{Op: program.ADD})
	case "-":
		emit(out, program.Instruction{Op: program.SUB})
	default:
		cond, ok := condOps[bin.Op]
		if !ok {
			return fmt.Errorf("emit: unknown operator %q", bin.Op)
		}
		emit(out, program.Instruction{Op: program.COND, Cond: cond})
	}
	return nil
}

func lastIsReturn(out *program.Program) bool {
	if len(out.Instructions) == 0 {
		return false
	}
	op := out.Instructions[len(out.Instructions)-1].Op
	return op == program.RETVAL || op == program.RET
}

// compileFuncDecl emits a JMP over the body, the parameter-copy
// prologue, the body itself, and registers both the function's own
// symbol and its function_done_<i> skip target.
func (e *Emitter) compileFuncDecl(out *program.Program, _ map[string]int32, fd *ast.FuncDecl) error {
	doneLabel := fmt.Sprintf("function_done_%d", len(out.Instructions))
	emit(out, program.Instruction{Op: program.JMP, Label: doneLabel})

	entry := len(out.Instructions)
	nargs := len(fd.Params)
	locals := make(map[string]int32, nargs)
	for i, param := range fd.Params {
		emit(out, program.Instruction{Op: program.ST_FP, Int: int32(nargs - i - 1), Local: int32(i)})
		locals[param] = int32(i)
	}

	for _, s := range fd.Body {
		if err := e.compileStatement(out, locals, s); err != nil {
			return err
		}
	}

	if !lastIsReturn(out) {
		emit(out, program.Instruction{Op: program.RET})
	}

	out.Symbols[fd.Name] = program.Symbol{Loc: entry, NArgs: nargs, NLocals: len(locals)}
	out.Symbols[doneLabel] = program.Symbol{Loc: len(out.Instructions)}
	return nil
}
