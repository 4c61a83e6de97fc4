package vm

import (
	"fmt"
	"strconv"
	"strings"

	"vmlua/pkg/program"
)

// debugStep prints the machine state and the disassembly with a live
// pc marker, then prompts for a command. It returns quit=true if the
// user asked to stop execution.
func (v *VM) debugStep(prog *program.Program) (quit bool, err error) {
	fmt.Fprintf(v.out, "pc = %d\n", v.pc)
	fmt.Fprintln(v.out, "stack:")
	v.printStack()
	fmt.Fprintln(v.out, "program:")
	fmt.Fprint(v.out, v.disassembleWithMarker(prog))
	fmt.Fprint(v.out, "> ")

	for {
		line, readErr := v.in.ReadString('\n')
		line = strings.TrimSpace(line)
		if readErr != nil && line == "" {
			return true, nil
		}

		switch {
		case line == "quit":
			return true, nil
		case line == "debug off":
			v.debug = false
			return false, nil
		case line == "step" || line == "":
			return false, nil
		case startsWith(line, "mem"):
			v.handleMemCommand(line)
			fmt.Fprint(v.out, "> ")
		default:
			fmt.Fprintf(v.out, "unknown command: %s\n", line)
			fmt.Fprint(v.out, "> ")
		}
	}
}

// handleMemCommand implements "mem ADDR" and "mem REG OFFSET". The
// three-argument form is documented to read a register named by the
// second token, but — preserving the reference implementation's quirk
// verbatim — any value there is treated as pc; only "mem pc OFFSET" is
// the contractual spelling.
func (v *VM) handleMemCommand(line string) {
	args := split(line, ' ', true, 3)
	switch len(args) {
	case 2:
		if !isNumber(args[1]) {
			fmt.Fprintf(v.out, "invalid argument: %s\n", args[1])
			return
		}
		addr, _ := strconv.Atoi(args[1])
		v.printMem(addr)
	case 3:
		reg := v.pc // any register name is treated as pc
		if !isNumber(args[2]) {
			fmt.Fprintf(v.out, "invalid argument: %s\n", args[2])
			return
		}
		off, _ := strconv.Atoi(args[2])
		v.printMem(int(reg) + off)
	default:
		fmt.Fprintln(v.out, "invalid arguments")
	}
}

func (v *VM) printMem(addr int) {
	if addr >= 0 && addr < len(v.stack) {
		fmt.Fprintf(v.out, "mem[%d] = %d\n", addr, v.stack[addr])
	} else {
		fmt.Fprintf(v.out, "mem[%d] = out of range\n", addr)
	}
}

func (v *VM) printStack() {
	if len(v.stack) == 0 {
		fmt.Fprintln(v.out, "(empty)")
		return
	}
	for i, val := range v.stack {
		fmt.Fprintf(v.out, "%04d  0x%08x  %d\n", i, uint32(val), val)
	}
}

// disassembleWithMarker renders the program like program.Disassemble,
// but marks the instruction about to execute with a leading "*" —
// non-contractual formatting, gated to debug mode only.
func (v *VM) disassembleWithMarker(prog *program.Program) string {
	labelsAt := make(map[int][]string)
	for name, sym := range prog.Symbols {
		labelsAt[sym.Loc] = append(labelsAt[sym.Loc], name)
	}

	var out strings.Builder
	for i, inst := range prog.Instructions {
		for _, name := range labelsAt[i] {
			fmt.Fprintf(&out, "%s:\n", name)
		}
		marker := " "
		if int32(i) == v.pc {
			marker = "*"
		}
		fmt.Fprintf(&out, "%s%4d  %s\n", marker, i, inst)
	}
	return out.String()
}

// --- small string helpers backing the debugger's argument parsing,
// mirroring lb::string_util. One-liners over the standard library, not
// worth an external dependency.

func isNumber(s string) bool {
	if s == "" {
		return false
	}
	i := 0
	if s[0] == '-' || s[0] == '+' {
		i = 1
		if i == len(s) {
			return false
		}
	}
	for ; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

func startsWith(s, prefix string) bool {
	return strings.HasPrefix(s, prefix)
}

func split(s string, delim byte, removeEmpty bool, maxParts int) []string {
	var parts []string
	start := 0
	for i := 0; i <= len(s); i++ {
		if i == len(s) || s[i] == delim {
			part := s[start:i]
			if !removeEmpty || part != "" {
				parts = append(parts, part)
			}
			start = i + 1
			if maxParts > 0 && len(parts) >= maxParts {
				break
			}
		}
	}
	return parts
}
