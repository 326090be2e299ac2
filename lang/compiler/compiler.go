// Package compiler implements the single-pass bytecode compiler: it walks a
// lang/ast.Core tree exactly once, resolving every name to a local slot, an
// upvalue, or a global, and lowering structured control flow (If, Loop,
// Break, Continue) directly to jumps as it goes. There is no separate name
// resolution pass.
package compiler

import (
	"fmt"
	"strings"

	"github.com/mna/vela/lang/ast"
	"github.com/mna/vela/lang/token"
)

// Error describes a compile-time error at a specific source position.
type Error struct {
	Pos token.Pos
	Msg string
}

func (e *Error) Error() string { return fmt.Sprintf("%s: %s", e.Pos, e.Msg) }

// ErrorList collects every compile-time error found in one compilation, so
// that a single bad program reports all of its errors instead of just the
// first.
type ErrorList []*Error

func (l *ErrorList) add(pos token.Pos, format string, args ...any) {
	*l = append(*l, &Error{Pos: pos, Msg: fmt.Sprintf(format, args...)})
}

func (l ErrorList) Err() error {
	if len(l) == 0 {
		return nil
	}
	return l
}

func (l ErrorList) Error() string {
	var sb strings.Builder
	for i, e := range l {
		if i > 0 {
			sb.WriteByte('\n')
		}
		sb.WriteString(e.Error())
	}
	return sb.String()
}

// local is a declared local variable: its name, the scope depth it was
// declared at, and whether any closure has captured it as an upvalue.
type local struct {
	name     string
	depth    int
	captured bool
}

// upvalueDesc is a compile-time-only descriptor of a captured variable: it
// names either a local slot of the immediately enclosing function
// (isLocal == true) or one of that function's own upvalue slots.
type upvalueDesc struct {
	isLocal bool
	index   byte
}

// loopCtx tracks the patch list of pending continue/break jumps for one
// lexically enclosing Loop.
type loopCtx struct {
	continues []int // code offsets of AbsJump placeholders targeting loop start
	breaks    []int // code offsets of AbsJump placeholders targeting loop end
}

// cctx is the compile-time state for one function being compiled: one is
// pushed for the top-level program and one more for every nested Lambda.
type cctx struct {
	enclosing *cctx
	fn        *Function
	locals    []local
	upvalues  []upvalueDesc
	depth     int
	loops     []*loopCtx
}

// Compiler lowers a lang/ast.Core tree into a compiler.Function.
type Compiler struct {
	cur  *cctx
	errs ErrorList
}

// Compile compiles the top-level program core into a zero-arity Function.
// A non-nil error is an ErrorList.
func Compile(core ast.Core) (*Function, error) {
	c := &Compiler{}
	fn, _ := c.compileFunction("<toplevel>", nil, core, true)
	return fn, c.errs.Err()
}

// compileFunction compiles body as the sole expression of a new function
// with the given parameters, emits the mandatory safety-tail return, and
// restores the enclosing context. It returns the function's compile-time
// upvalue descriptors, which the caller (compileLambda) must emit as the
// trailing bytes of its MakeClosure instruction.
//
// isTopLevel is true only for the implicit program function: its body
// compiles at scope depth 0, so a bare Let at its top level is a global.
// Every lambda, including one taking no parameters, opens its own scope
// before declaring parameters so that its own Lets are always locals.
func (c *Compiler) compileFunction(name string, params []string, body ast.Core, isTopLevel bool) (*Function, []upvalueDesc) {
	fn := &Function{Name: name, Arity: len(params)}
	ctx := &cctx{enclosing: c.cur, fn: fn, depth: 0}
	c.cur = ctx
	if !isTopLevel {
		c.beginScope()
	}
	for _, p := range params {
		c.declareLocal(p, token.Pos{})
	}

	if isTopLevel {
		c.compileTopLevelBody(body)
	} else {
		c.compileExpr(body)
	}
	// Unconditional safety tail: guarantees termination even on fall-through,
	// and is what a bare top-level program (with no explicit return) runs to.
	k, _ := ctx.fn.Chunk.addConstant(nil)
	ctx.fn.Chunk.emitOpArg(LoadConstant, k)
	ctx.fn.Chunk.emitOp(Return)
	ctx.fn.UpvalueCount = len(ctx.upvalues)

	c.cur = ctx.enclosing
	return ctx.fn, ctx.upvalues
}

func (c *Compiler) chunk() *Chunk { return &c.cur.fn.Chunk }

func (c *Compiler) beginScope() { c.cur.depth++ }

// endScope pops every local declared at or above the scope being closed,
// emitting a Pop for each (Block does not retain intermediate values, so a
// scope exit never needs to preserve anything beneath the popped locals).
func (c *Compiler) endScope() {
	c.cur.depth--
	locals := c.cur.locals
	n := len(locals)
	for n > 0 && locals[n-1].depth > c.cur.depth {
		c.chunk().emitOp(Pop)
		n--
	}
	c.cur.locals = locals[:n]
}

func (c *Compiler) declareLocal(name string, pos token.Pos) {
	if c.cur.depth == 0 {
		return // globals are not pre-declared, only resolved at use
	}
	if len(c.cur.locals) > maxPoolIndex {
		c.errs.add(pos, "too many locals in function (max %d)", maxPoolIndex+1)
		return
	}
	c.cur.locals = append(c.cur.locals, local{name: name, depth: c.cur.depth})
}

// resolveLocal looks for name among ctx's own locals, most recently
// declared first (so shadowing within nested blocks resolves correctly).
func resolveLocal(ctx *cctx, name string) (slot int, ok bool) {
	for i := len(ctx.locals) - 1; i >= 0; i-- {
		if ctx.locals[i].name == name {
			return i, true
		}
	}
	return 0, false
}

// resolveUpvalue recursively resolves name as an upvalue of ctx, capturing a
// local of the immediately enclosing function or forwarding an upvalue of
// it, per the algorithm in spec section 4.2. Registration deduplicates.
func resolveUpvalue(ctx *cctx, name string) (slot int, ok bool) {
	if ctx.enclosing == nil {
		return 0, false
	}
	if i, found := resolveLocal(ctx.enclosing, name); found {
		ctx.enclosing.locals[i].captured = true
		return addUpvalue(ctx, upvalueDesc{isLocal: true, index: byte(i)}), true
	}
	if i, found := resolveUpvalue(ctx.enclosing, name); found {
		return addUpvalue(ctx, upvalueDesc{isLocal: false, index: byte(i)}), true
	}
	return 0, false
}

func addUpvalue(ctx *cctx, desc upvalueDesc) int {
	for i, u := range ctx.upvalues {
		if u == desc {
			return i
		}
	}
	ctx.upvalues = append(ctx.upvalues, desc)
	return len(ctx.upvalues) - 1
}

func (c *Compiler) nameConstant(name string) byte {
	k, err := c.chunk().addConstant(name)
	if err != nil {
		c.errs.add(token.Pos{}, "%s", err)
	}
	return k
}

// compileExpr compiles a single Core node and reports whether it left
// exactly one net value on the operand stack (relative to before it ran).
// Most nodes do, including a local Let (its value stays on the stack as the
// new local's storage); a global Let and a local/global Set consume their
// own value (Set's is written into existing storage), and Loop/Continue/
// Break never produce one (the only ways out of a Loop are a Break, which
// jumps to after it with nothing pushed, a Continue, or a Return that
// escapes the function entirely). compileBlock uses this to decide whether
// a non-final child needs an explicit Pop.
func (c *Compiler) compileExpr(n ast.Core) bool {
	switch n := n.(type) {
	case *ast.Lit:
		return c.compileLit(n)
	case *ast.Get:
		return c.compileGet(n)
	case *ast.Set:
		return c.compileSet(n)
	case *ast.Let:
		return c.compileLet(n)
	case *ast.If:
		return c.compileIf(n)
	case *ast.Loop:
		return c.compileLoop(n)
	case *ast.Continue:
		return c.compileContinue(n)
	case *ast.Break:
		return c.compileBreak(n)
	case *ast.Block:
		return c.compileBlock(n)
	case *ast.Lambda:
		return c.compileLambda(n)
	case *ast.Call:
		return c.compileCall(n)
	case *ast.Return:
		return c.compileReturn(n)
	default:
		c.errs.add(ast.Pos(n), "unhandled core node %T", n)
		return false
	}
}

// compileValue compiles n and, if it didn't itself leave a value (e.g. a
// bare Loop or a local/global Set used where an operand is expected), pads
// the stack with a None so the caller can rely on exactly one value being
// present. None of the six canonical programs exercise this path, but
// Call/If/Return arguments are arbitrary Core and must not desynchronize
// compile-time stack bookkeeping if they do.
func (c *Compiler) compileValue(n ast.Core) {
	if !c.compileExpr(n) {
		k, _ := c.chunk().addConstant(nil)
		c.chunk().emitOpArg(LoadConstant, k)
	}
}

func (c *Compiler) compileLit(n *ast.Lit) bool {
	k, err := c.chunk().addConstant(n.Val)
	if err != nil {
		c.errs.add(n.Pos, "%s", err)
		return false
	}
	c.chunk().emitOpArg(LoadConstant, k)
	return true
}

func (c *Compiler) compileGet(n *ast.Get) bool {
	if slot, ok := resolveLocal(c.cur, n.Name); ok {
		c.chunk().emitOpArg(GetLocal, byte(slot))
		return true
	}
	if slot, ok := resolveUpvalue(c.cur, n.Name); ok {
		c.chunk().emitOpArg(GetUpvalue, byte(slot))
		return true
	}
	c.chunk().emitOpArg(GetGlobal, c.nameConstant(n.Name))
	return true
}

func (c *Compiler) compileSet(n *ast.Set) bool {
	c.compileValue(n.Value)
	if slot, ok := resolveLocal(c.cur, n.Name); ok {
		c.chunk().emitOpArg(SetLocal, byte(slot))
		return false
	}
	if slot, ok := resolveUpvalue(c.cur, n.Name); ok {
		c.chunk().emitOpArg(SetUpvalue, byte(slot))
		return true // SetUpvalue writes without popping
	}
	// Neither a local nor an upvalue: the name is assigned as a global. The
	// compiler does not track declared globals and the VM's SetGlobal does
	// not check for an existing entry, so assigning to a name that was never
	// Let-bound is not an error: it creates the global.
	c.chunk().emitOpArg(SetGlobal, c.nameConstant(n.Name))
	return false
}

func (c *Compiler) compileLet(n *ast.Let) bool {
	isGlobal := c.cur.depth == 0
	c.declareLocal(n.Name, n.Pos)
	c.compileValue(n.Value)
	if isGlobal {
		c.chunk().emitOpArg(SetGlobal, c.nameConstant(n.Name))
		return false
	}
	// at local scope, the initializer's value is left on the stack: it
	// becomes the new local's slot directly (declareLocal already reserved
	// the slot index matching the stack position compileValue just filled).
	return true
}

func (c *Compiler) compileIf(n *ast.If) bool {
	c.compileValue(n.Cond)
	elseJump := c.chunk().emitJump(JumpIfFalse)
	thenLeaves := c.compileExpr(n.Then)
	endJump := c.chunk().emitJump(Jump)
	if err := c.chunk().patchJump(elseJump); err != nil {
		c.errs.add(n.Pos, "%s", err)
	}
	elseLeaves := c.compileExpr(n.Else)
	if err := c.chunk().patchJump(endJump); err != nil {
		c.errs.add(n.Pos, "%s", err)
	}
	// Both arms are compiled independently; only the arm(s) that actually
	// fall through (don't escape via Return/Break/Continue) reach the
	// merge point, so a mismatch is only a real problem when both do.
	return thenLeaves || elseLeaves
}

func (c *Compiler) compileLoop(n *ast.Loop) bool {
	loopStart := len(c.chunk().Code)
	lc := &loopCtx{}
	c.cur.loops = append(c.cur.loops, lc)
	if c.compileExpr(n.Body) {
		c.chunk().emitOp(Pop)
	}
	if err := c.chunk().emitAbsJump(loopStart); err != nil {
		c.errs.add(n.Pos, "%s", err)
	}
	loopEnd := len(c.chunk().Code)
	for _, off := range lc.continues {
		if err := c.chunk().patchAbsJump(off, loopStart); err != nil {
			c.errs.add(n.Pos, "%s", err)
		}
	}
	for _, off := range lc.breaks {
		if err := c.chunk().patchAbsJump(off, loopEnd); err != nil {
			c.errs.add(n.Pos, "%s", err)
		}
	}
	c.cur.loops = c.cur.loops[:len(c.cur.loops)-1]
	return false
}

func (c *Compiler) compileContinue(n *ast.Continue) bool {
	if len(c.cur.loops) == 0 {
		c.errs.add(n.Pos, "continue outside of a loop")
		return false
	}
	lc := c.cur.loops[len(c.cur.loops)-1]
	off := c.chunk().emitByte(byte(AbsJump))
	c.chunk().emitByte(0)
	c.chunk().emitByte(0)
	lc.continues = append(lc.continues, off)
	return false
}

func (c *Compiler) compileBreak(n *ast.Break) bool {
	if len(c.cur.loops) == 0 {
		c.errs.add(n.Pos, "break outside of a loop")
		return false
	}
	lc := c.cur.loops[len(c.cur.loops)-1]
	off := c.chunk().emitByte(byte(AbsJump))
	c.chunk().emitByte(0)
	c.chunk().emitByte(0)
	lc.breaks = append(lc.breaks, off)
	return false
}

// compileTopLevelBody compiles the program's outermost sequence of
// expressions directly at scope depth 0, unlike compileBlock: a brace-block
// introduces a new local scope wherever it appears, but the implicit
// sequence of top-level forms (e.g. several `;`-separated statements typed
// at the REPL prompt, or a whole source file) is not itself a block and its
// Lets must resolve as globals, per spec section 4.2.
func (c *Compiler) compileTopLevelBody(body ast.Core) {
	seq, ok := body.(*ast.Block)
	if !ok {
		c.compileExpr(body)
		return
	}
	for i, expr := range seq.Exprs {
		last := i == len(seq.Exprs)-1
		leavesValue := c.compileExpr(expr)
		if _, isLet := expr.(*ast.Let); isLet {
			continue
		}
		if !last && leavesValue {
			c.chunk().emitOp(Pop)
		}
	}
}

// compileBlock evaluates each child in order. A child that left a value and
// isn't the last one is popped (Block retains no intermediate values); a
// child that left nothing (a local/global Set, a Loop, ...) needs no Pop,
// and a Let's value is never popped here regardless of position - it's
// released later by endScope, when its declaring scope closes. Because that
// release always happens, a block terminating in a Let never leaves a value
// for an enclosing expression, even though the Let itself reports leaving
// one (to become the local's own storage).
func (c *Compiler) compileBlock(n *ast.Block) bool {
	c.beginScope()
	leaves := false
	for i, expr := range n.Exprs {
		last := i == len(n.Exprs)-1
		leavesValue := c.compileExpr(expr)
		if _, isLet := expr.(*ast.Let); isLet {
			leaves = false
			continue
		}
		if !last && leavesValue {
			c.chunk().emitOp(Pop)
		}
		leaves = last && leavesValue
	}
	if len(n.Exprs) == 0 {
		k, _ := c.chunk().addConstant(nil)
		c.chunk().emitOpArg(LoadConstant, k)
		leaves = true
	}
	c.endScope()
	return leaves
}

func (c *Compiler) compileLambda(n *ast.Lambda) bool {
	parent := c.cur
	fn, upvalues := c.compileFunction("<lambda>", n.Params, n.Body, false)
	k, err := parent.fn.Chunk.addConstant(fn)
	if err != nil {
		c.errs.add(n.Pos, "%s", err)
		return false
	}
	parent.fn.Chunk.emitOpArg(MakeClosure, k)
	for _, u := range upvalues {
		flag := byte(0)
		if u.isLocal {
			flag = 1
		}
		parent.fn.Chunk.emitByte(flag)
		parent.fn.Chunk.emitByte(u.index)
	}
	return true
}

func (c *Compiler) compileCall(n *ast.Call) bool {
	if get, ok := n.Callee.(*ast.Get); ok {
		if op, isIntrinsic := intrinsicOps[get.Name]; isIntrinsic && len(n.Args) == 2 {
			c.compileValue(n.Args[0])
			c.compileValue(n.Args[1])
			c.chunk().emitOp(op)
			return true
		}
		if get.Name == "-" && len(n.Args) == 1 {
			c.compileValue(n.Args[0])
			c.chunk().emitOp(Negate)
			return true
		}
	}
	// Arguments compile before the callee, so the callee ends up on top of
	// the stack: execCall pops the callee first, then finds the n arguments
	// beneath it (spec section 4.4).
	for _, a := range n.Args {
		c.compileValue(a)
	}
	c.compileValue(n.Callee)
	if len(n.Args) > maxPoolIndex {
		c.errs.add(n.Pos, "too many arguments in call (max %d)", maxPoolIndex)
		return false
	}
	c.chunk().emitOpArg(Call, byte(len(n.Args)))
	return true
}

func (c *Compiler) compileReturn(n *ast.Return) bool {
	c.compileValue(n.Value)
	c.chunk().emitOp(Return)
	return false
}
