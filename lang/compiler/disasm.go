package compiler

import (
	"fmt"
	"io"
	"strings"
)

// Disassemble writes the stable, test-comparable textual form of fn's
// bytecode to w: one line per instruction, "| 0xHH : mnemonic operand...",
// preceded by the constant pool. Any constant that is itself a *Function
// (a nested lambda) is disassembled recursively, after the outer function's
// code listing, matching the debug dump the original interpreter produced for nested
// function chunks.
func Disassemble(w io.Writer, fn *Function) {
	fmt.Fprintf(w, "== %s (arity %d, upvalues %d) ==\n", fn.Name, fn.Arity, fn.UpvalueCount)
	fmt.Fprintln(w, "constants:")
	for i, k := range fn.Chunk.Constants {
		fmt.Fprintf(w, "  %d: %s\n", i, formatConstant(k))
	}
	fmt.Fprintln(w, "code:")
	disassembleCode(w, &fn.Chunk)
	for _, k := range fn.Chunk.Constants {
		if nested, ok := k.(*Function); ok {
			fmt.Fprintln(w)
			Disassemble(w, nested)
		}
	}
}

func formatConstant(v any) string {
	switch v := v.(type) {
	case nil:
		return "none"
	case bool:
		if v {
			return "true"
		}
		return "false"
	case int64:
		return fmt.Sprintf("int %d", v)
	case float64:
		return fmt.Sprintf("float %g", v)
	case string:
		return fmt.Sprintf("string %q", v)
	case *Function:
		return fmt.Sprintf("function %s/%d", v.Name, v.Arity)
	default:
		return fmt.Sprintf("?%v", v)
	}
}

func disassembleCode(w io.Writer, chunk *Chunk) {
	for ip := 0; ip < len(chunk.Code); {
		line, width := FormatInstr(chunk, ip)
		fmt.Fprintln(w, line)
		ip += width
	}
}

// FormatInstr renders, in the stable "| 0xHH : mnemonic operand..." format,
// the single instruction starting at ip in chunk (without a trailing
// newline), and returns its total width in bytes - including any trailing
// MakeClosure upvalue-descriptor bytes - so a caller can step ip forward by
// the returned amount. Used both by Disassemble and by the VM's optional
// per-instruction execution trace.
func FormatInstr(chunk *Chunk, ip int) (line string, width int) {
	code := chunk.Code
	op := OpCode(code[ip])
	var sb strings.Builder
	switch {
	case op >= opcodeJumpMin:
		d := int(code[ip+1])<<8 | int(code[ip+2])
		fmt.Fprintf(&sb, "| 0x%02x : %s 0x%04x", ip, op, d)
	case op == MakeClosure:
		k := code[ip+1]
		fmt.Fprintf(&sb, "| 0x%02x : %s 0x%02x", ip, op, k)
		if fn, ok := chunk.Constants[k].(*Function); ok {
			n := ip + 2
			for i := 0; i < fn.UpvalueCount; i++ {
				isLocal, idx := code[n], code[n+1]
				fmt.Fprintf(&sb, "\n|        upvalue %d: %s 0x%02x", i, upvalueOrigin(isLocal), idx)
				n += 2
			}
		}
	case op >= opcodeArgMin:
		arg := code[ip+1]
		fmt.Fprintf(&sb, "| 0x%02x : %s 0x%02x", ip, op, arg)
	default:
		fmt.Fprintf(&sb, "| 0x%02x : %s", ip, op)
	}
	return sb.String(), instrWidth(chunk, ip)
}

func upvalueOrigin(isLocal byte) string {
	if isLocal != 0 {
		return "local"
	}
	return "upvalue"
}

// instrWidth returns the byte width of the instruction at ip, including the
// trailing upvalue-descriptor bytes a MakeClosure carries.
func instrWidth(chunk *Chunk, ip int) int {
	op := OpCode(chunk.Code[ip])
	w := op.Width()
	if op == MakeClosure {
		if fn, ok := chunk.Constants[chunk.Code[ip+1]].(*Function); ok {
			w += 2 * fn.UpvalueCount
		}
	}
	return w
}
