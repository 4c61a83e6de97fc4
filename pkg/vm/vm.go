// Package vm implements the stack machine that executes a
// *program.Program: a single int32 stack, a program counter, a frame
// pointer, and the calling convention the emitter's frame layout
// depends on exactly.
package vm

import (
	"bufio"
	"fmt"
	"io"
	"os"

	"vmlua/pkg/program"
)

// VM is the machine state of spec.md §4.4: pc, fp, an int32 stack, and
// a debug flag gating the interactive step debugger.
type VM struct {
	pc    int32
	fp    int32
	stack []int32
	debug bool

	out io.Writer
	in  *bufio.Reader
}

// New returns a VM with pc=0, fp=0, and an empty stack, printing guest
// output to out.
func New(out io.Writer) *VM {
	return &VM{out: out, in: bufio.NewReader(os.Stdin)}
}

// SetDebug enables or disables the interactive step debugger.
func (v *VM) SetDebug(debug bool) {
	v.debug = debug
}

func (v *VM) push(val int32) {
	v.stack = append(v.stack, val)
}

func (v *VM) pop() (int32, error) {
	if len(v.stack) == 0 {
		return 0, fmt.Errorf("vm: stack underflow")
	}
	n := len(v.stack) - 1
	val := v.stack[n]
	v.stack = v.stack[:n]
	return val, nil
}

func (v *VM) at(idx int32) (int32, error) {
	if idx < 0 || int(idx) >= len(v.stack) {
		return 0, fmt.Errorf("vm: stack index %d out of range (len %d)", idx, len(v.stack))
	}
	return v.stack[idx], nil
}

func (v *VM) setAt(idx int32, val int32) {
	for int(idx) >= len(v.stack) {
		v.stack = append(v.stack, 0)
	}
	v.stack[idx] = val
}

// Run interprets prog to completion: while pc < len(instructions),
// fetch and dispatch. Execution halts when pc runs off the end of the
// instruction stream, on a fatal VM error, or when the debugger issues
// "quit".
func (v *VM) Run(prog *program.Program) error {
	for int(v.pc) < len(prog.Instructions) {
		if v.debug {
			quit, err := v.debugStep(prog)
			if err != nil {
				return err
			}
			if quit {
				return nil
			}
		}

		inst := prog.Instructions[v.pc]
		if err := v.step(prog, inst); err != nil {
			return fmt.Errorf("vm: %w at pc=%d (%s)", err, v.pc, inst)
		}
	}
	return nil
}

// step dispatches one instruction. Most opcodes advance pc by one;
// JMP/JZ/JNZ/CALL/RETVAL/RET set pc directly and must "continue" the
// caller's loop without an extra increment.
func (v *VM) step(prog *program.Program, inst program.Instruction) error {
	switch inst.Op {
	case program.PUSH:
		v.push(inst.Int)
		v.pc++

	case program.PUSH_FP:
		val, err := v.at(v.fp + inst.Local)
		if err != nil {
			return err
		}
		v.push(val)
		v.pc++

	case program.POP_FP:
		val, err := v.pop()
		if err != nil {
			return err
		}
		v.setAt(v.fp+inst.Local, val)
		v.pc++

	case program.ST_FP:
		val, err := v.at(v.fp - (inst.Int + 4))
		if err != nil {
			return err
		}
		v.setAt(v.fp+inst.Local, val)
		v.pc++

	case program.ADD:
		right, err := v.pop()
		if err != nil {
			return err
		}
		left, err := v.pop()
		if err != nil {
			return err
		}
		v.push(left + right)
		v.pc++

	case program.SUB:
		right, err := v.pop()
		if err != nil {
			return err
		}
		left, err := v.pop()
		if err != nil {
			return err
		}
		v.push(left - right)
		v.pc++

	case program.COND:
		right, err := v.pop()
		if err != nil {
			return err
		}
		left, err := v.pop()
		if err != nil {
			return err
		}
		v.push(evalCond(inst.Cond, left, right))
		v.pc++

	case program.JMP:
		sym, ok := prog.Symbols[inst.Label]
		if !ok {
			return fmt.Errorf("unknown label %q", inst.Label)
		}
		v.pc = int32(sym.Loc)

	case program.JZ:
		val, err := v.pop()
		if err != nil {
			return err
		}
		if val == 0 {
			sym, ok := prog.Symbols[inst.Label]
			if !ok {
				return fmt.Errorf("unknown label %q", inst.Label)
			}
			v.pc = int32(sym.Loc)
		} else {
			v.pc++
		}

	case program.JNZ:
		val, err := v.pop()
		if err != nil {
			return err
		}
		if val != 0 {
			sym, ok := prog.Symbols[inst.Label]
			if !ok {
				return fmt.Errorf("unknown label %q", inst.Label)
			}
			v.pc = int32(sym.Loc)
		} else {
			v.pc++
		}

	case program.CALL:
		return v.call(prog, inst)

	case program.RETVAL:
		return v.retval()

	case program.RET:
		return v.ret()

	default:
		return fmt.Errorf("unknown instruction %v", inst.Op)
	}
	return nil
}

func evalCond(cond program.CondOp, left, right int32) int32 {
	var result bool
	switch cond {
	case program.LT:
		result = left < right
	case program.GT:
		result = left > right
	case program.LE:
		result = left <= right
	case program.GE:
		result = left >= right
	case program.EQ:
		result = left == right
	case program.NE:
		result = left != right
	case program.AND:
		return left & right
	case program.OR:
		return left | right
	}
	if result {
		return 1
	}
	return 0
}

// call implements spec.md §4.4's calling convention. Arguments for the
// callee are already on top of the stack (argN on top). The built-in
// print is special-cased: it never pushes a frame triple.
func (v *VM) call(prog *program.Program, inst program.Instruction) error {
	if inst.Label == "print" {
		return v.callPrint(inst.Argc)
	}

	sym, ok := prog.Symbols[inst.Label]
	if !ok {
		return fmt.Errorf("call to unknown function %q", inst.Label)
	}

	v.push(v.fp)
	v.push(v.pc + 1)
	v.push(int32(sym.NArgs))
	v.pc = int32(sym.Loc)
	v.fp = int32(len(v.stack))

	for i := 0; i < sym.NLocals; i++ {
		v.push(0)
	}
	return nil
}

// callPrint pops argc values and prints them space-separated, top-of-
// stack first (the last-pushed argument prints first), newline
// terminated.
func (v *VM) callPrint(argc int) error {
	for i := 0; i < argc; i++ {
		val, err := v.pop()
		if err != nil {
			return err
		}
		fmt.Fprintf(v.out, "%d ", val)
	}
	fmt.Fprintln(v.out)
	v.pc++
	return nil
}

// retval implements RETVAL: pop the return value, truncate the stack
// down to fp (discarding the local frame), pop the frame triple, pop
// the argument slots, then push the return value back.
func (v *VM) retval() error {
	ret, err := v.pop()
	if err != nil {
		return err
	}
	for int32(len(v.stack)) > v.fp {
		if _, err := v.pop(); err != nil {
			return err
		}
	}
	nargs, err := v.pop()
	if err != nil {
		return err
	}
	savedPC, err := v.pop()
	if err != nil {
		return err
	}
	savedFP, err := v.pop()
	if err != nil {
		return err
	}
	v.pc = savedPC
	v.fp = savedFP
	for i := int32(0); i < nargs; i++ {
		if _, err := v.pop(); err != nil {
			return err
		}
	}
	v.push(ret)
	return nil
}

// ret implements RET: pop the frame triple and continue. Deliberately
// does NOT pop the callee's local frame or argument slots — preserving
// a documented quirk of the reference implementation (see spec.md §9
// and DESIGN.md): a caller that invokes a void function and then
// reuses the stack will observe stale data below the restored fp.
func (v *VM) ret() error {
	nargs, err := v.pop()
	if err != nil {
		return err
	}
	_ = nargs
	savedPC, err := v.pop()
	if err != nil {
		return err
	}
	savedFP, err := v.pop()
	if err != nil {
		return err
	}
	v.pc = savedPC
	v.fp = savedFP
	return nil
}
