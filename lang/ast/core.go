// Package ast defines Core, the intermediate representation produced by the
// parser and consumed exactly once by the compiler. Core admits no shapes
// beyond the ones declared in this file: a literal, a lambda, a let, a set,
// a get, an if, a loop, a continue, a break, a block, a call and a return.
package ast

import "github.com/mna/vela/lang/token"

// Core is a node of the intermediate representation. Every concrete type in
// this package implements it.
type Core interface {
	corePos() token.Pos
}

// Lit is a literal value. Val is one of nil (the None value), bool, int64,
// float64 or string - the same representation used for a compiled chunk's
// constant pool, so the compiler can copy it in directly.
type Lit struct {
	Val any
	Pos token.Pos
}

// Lambda is a function literal: a list of parameter names and a body
// expression, compiled into its own Function with its own Chunk.
type Lambda struct {
	Params []string
	Body   Core
	Pos    token.Pos
}

// Let declares a new binding (local if inside a non-empty scope, global at
// the top level) and initializes it with Value.
type Let struct {
	Name  string
	Value Core
	Pos   token.Pos
}

// Set assigns to an existing binding - local, upvalue or global.
type Set struct {
	Name  string
	Value Core
	Pos   token.Pos
}

// Get reads the value of a binding - local or upvalue, or else by name at
// run time: a native FFI function of that name if one is registered,
// otherwise a global.
type Get struct {
	Name string
	Pos  token.Pos
}

// If is a conditional with both arms mandatory (an absent surface "else" is
// expanded by the parser into a Lit(None) else-branch).
type If struct {
	Cond, Then, Else Core
	Pos              token.Pos
}

// Loop is a structured, unconditional loop; the only way out is Break,
// Continue or a Return that escapes the enclosing function.
type Loop struct {
	Body Core
	Pos  token.Pos
}

// Continue jumps to the start of the innermost enclosing Loop. It is a
// compile error outside of a Loop.
type Continue struct{ Pos token.Pos }

// Break jumps past the end of the innermost enclosing Loop. It is a compile
// error outside of a Loop.
type Break struct{ Pos token.Pos }

// Block is a sequence of expressions evaluated in order. The values of all
// but the last are discarded; the last expression's value, when it produces
// one (a Let does not), is left for the enclosing expression, so
// `let a = {1}` binds 1. A lambda body's value is not returned implicitly:
// the function's trailing return yields None.
type Block struct {
	Exprs []Core
	Pos   token.Pos
}

// Call applies Callee to Args. When Callee is literally Get("=="), Get("+"),
// Get("-"), Get("*") or Get("/"), the compiler recognizes the intrinsic and
// emits the corresponding opcode instead of a generic call.
type Call struct {
	Callee Core
	Args   []Core
	Pos    token.Pos
}

// Return evaluates Value and unwinds the current function call with it as
// the result.
type Return struct {
	Value Core
	Pos   token.Pos
}

func (n *Lit) corePos() token.Pos      { return n.Pos }
func (n *Lambda) corePos() token.Pos   { return n.Pos }
func (n *Let) corePos() token.Pos      { return n.Pos }
func (n *Set) corePos() token.Pos      { return n.Pos }
func (n *Get) corePos() token.Pos      { return n.Pos }
func (n *If) corePos() token.Pos       { return n.Pos }
func (n *Loop) corePos() token.Pos     { return n.Pos }
func (n *Continue) corePos() token.Pos { return n.Pos }
func (n *Break) corePos() token.Pos    { return n.Pos }
func (n *Block) corePos() token.Pos    { return n.Pos }
func (n *Call) corePos() token.Pos     { return n.Pos }
func (n *Return) corePos() token.Pos   { return n.Pos }

// Pos returns the source position a Core node was parsed from.
func Pos(n Core) token.Pos { return n.corePos() }
