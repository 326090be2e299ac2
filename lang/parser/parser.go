// Package parser turns a token stream into a lang/ast.Core tree. Unlike the
// scanner's error recovery (which keeps lexing past a bad character), a
// syntax error here abandons the current statement: the parser panics with
// errPanicMode, which is recovered at the statement boundary so one bad
// statement in a source file or REPL line doesn't prevent reporting errors
// in the rest of it.
package parser

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/mna/vela/lang/ast"
	"github.com/mna/vela/lang/scanner"
	"github.com/mna/vela/lang/token"
)

// Error describes a syntax error at a specific source position.
type Error struct {
	Pos token.Pos
	Msg string
}

func (e *Error) Error() string { return fmt.Sprintf("%s: %s", e.Pos, e.Msg) }

// ErrorList collects every syntax error found in one parse.
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

var errPanicMode = fmt.Errorf("parser: panic mode")

// Parse lexes and parses src into the implicit top-level Block of its
// sequence of `;`-separated expressions. A non-nil error is an ErrorList.
func Parse(src []byte) (ast.Core, error) {
	toks, err := scanner.ScanAll(src)
	if err != nil {
		return nil, err
	}
	p := &parser{toks: toks, pos: -1}
	p.advance()
	block := p.parseStmtList(token.EOF)
	return block, p.errs.Err()
}

type parser struct {
	toks []scanner.Lexeme
	pos  int // index of p.cur within toks
	cur  scanner.Lexeme
	errs ErrorList
}

func (p *parser) advance() {
	if p.pos < len(p.toks)-1 {
		p.pos++
	}
	p.cur = p.toks[p.pos]
}

// mark/reset support the small amount of backtracking needed to
// disambiguate a parenthesized lambda parameter list from a parenthesized
// grouping expression - both start with '(' and can only be told apart by
// trying to parse a parameter list and checking for a following '->'.
func (p *parser) mark() int { return p.pos }

func (p *parser) reset(mark int) {
	p.pos = mark
	p.cur = p.toks[p.pos]
}

func (p *parser) expect(tok token.Token) token.Pos {
	pos := p.cur.Pos
	if p.cur.Tok != tok {
		p.errorExpected(tok)
		panic(errPanicMode)
	}
	p.advance()
	return pos
}

func (p *parser) errorExpected(tok token.Token) {
	lit := p.cur.Lit
	if lit == "" {
		lit = p.cur.Tok.GoString()
	}
	p.errs.add(p.cur.Pos, "expected %s, found %s", tok.GoString(), lit)
}

// parseStmtList parses a `;`-separated sequence of expressions up to (but
// not consuming) end, recovering from a syntax error in one expression by
// skipping to the next `;` or end so the rest of the sequence still parses.
func (p *parser) parseStmtList(end token.Token) *ast.Block {
	block := &ast.Block{Pos: p.cur.Pos}
	for p.cur.Tok != end && p.cur.Tok != token.EOF {
		expr := p.parseStmt(end)
		if expr != nil {
			block.Exprs = append(block.Exprs, expr)
		}
		if p.cur.Tok == token.SEMI {
			p.advance()
			continue
		}
		break
	}
	return block
}

func (p *parser) parseStmt(end token.Token) (expr ast.Core) {
	defer func() {
		if r := recover(); r != nil {
			if r != errPanicMode {
				panic(r)
			}
			expr = nil
			for p.cur.Tok != token.SEMI && p.cur.Tok != end && p.cur.Tok != token.EOF {
				p.advance()
			}
		}
	}()
	return p.parseExpr()
}

func (p *parser) parseExpr() ast.Core { return p.parseAssign() }

// parseAssign is right-associative: `x = y = 1` assigns 1 to y then y to x.
func (p *parser) parseAssign() ast.Core {
	left := p.parseEquality()
	if p.cur.Tok == token.ASSIGN {
		pos := p.cur.Pos
		p.advance()
		get, ok := left.(*ast.Get)
		if !ok {
			p.errs.add(pos, "invalid assignment target")
			panic(errPanicMode)
		}
		val := p.parseAssign()
		return &ast.Set{Name: get.Name, Value: val, Pos: pos}
	}
	return left
}

func (p *parser) parseEquality() ast.Core {
	left := p.parseAdditive()
	for p.cur.Tok == token.EQL {
		pos := p.cur.Pos
		p.advance()
		right := p.parseAdditive()
		left = binaryIntrinsic("==", left, right, pos)
	}
	return left
}

func (p *parser) parseAdditive() ast.Core {
	left := p.parseMultiplicative()
	for p.cur.Tok == token.PLUS || p.cur.Tok == token.MINUS {
		name, pos := p.cur.Lit, p.cur.Pos
		p.advance()
		right := p.parseMultiplicative()
		left = binaryIntrinsic(name, left, right, pos)
	}
	return left
}

func (p *parser) parseMultiplicative() ast.Core {
	left := p.parseUnary()
	for p.cur.Tok == token.STAR || p.cur.Tok == token.SLASH {
		name, pos := p.cur.Lit, p.cur.Pos
		p.advance()
		right := p.parseUnary()
		left = binaryIntrinsic(name, left, right, pos)
	}
	return left
}

func (p *parser) parseUnary() ast.Core {
	if p.cur.Tok == token.MINUS {
		pos := p.cur.Pos
		p.advance()
		operand := p.parseUnary()
		return &ast.Call{Callee: &ast.Get{Name: "-", Pos: pos}, Args: []ast.Core{operand}, Pos: pos}
	}
	return p.parsePostfix()
}

func binaryIntrinsic(name string, left, right ast.Core, pos token.Pos) ast.Core {
	return &ast.Call{Callee: &ast.Get{Name: name, Pos: pos}, Args: []ast.Core{left, right}, Pos: pos}
}

// parsePostfix handles zero or more chained call argument lists, so curried
// applications like make(3)(4) parse as nested Calls.
func (p *parser) parsePostfix() ast.Core {
	e := p.parsePrimary()
	for p.cur.Tok == token.LPAREN {
		pos := p.cur.Pos
		p.advance()
		var args []ast.Core
		if p.cur.Tok != token.RPAREN {
			args = append(args, p.parseExpr())
			for p.cur.Tok == token.COMMA {
				p.advance()
				args = append(args, p.parseExpr())
			}
		}
		p.expect(token.RPAREN)
		e = &ast.Call{Callee: e, Args: args, Pos: pos}
	}
	return e
}

func (p *parser) parsePrimary() ast.Core {
	pos := p.cur.Pos
	switch p.cur.Tok {
	case token.INT:
		i, err := strconv.ParseInt(p.cur.Lit, 10, 64)
		if err != nil {
			p.errs.add(pos, "invalid integer literal %q", p.cur.Lit)
		}
		p.advance()
		return &ast.Lit{Val: i, Pos: pos}
	case token.FLOAT:
		f, err := strconv.ParseFloat(p.cur.Lit, 64)
		if err != nil {
			p.errs.add(pos, "invalid float literal %q", p.cur.Lit)
		}
		p.advance()
		return &ast.Lit{Val: f, Pos: pos}
	case token.STRING:
		s := p.cur.Lit
		p.advance()
		return &ast.Lit{Val: s, Pos: pos}
	case token.IDENT:
		name := p.cur.Lit
		p.advance()
		if p.cur.Tok == token.ARROW {
			p.advance()
			return &ast.Lambda{Params: []string{name}, Body: p.parseExpr(), Pos: pos}
		}
		return &ast.Get{Name: name, Pos: pos}
	case token.LPAREN:
		return p.parseParenOrLambda(pos)
	case token.LBRACE:
		return p.parseBraceBlock()
	case token.LET:
		return p.parseLet()
	case token.IF:
		return p.parseIf()
	case token.LOOP:
		p.advance()
		return &ast.Loop{Body: p.parseExpr(), Pos: pos}
	case token.BREAK:
		p.advance()
		return &ast.Break{Pos: pos}
	case token.CONTINUE:
		p.advance()
		return &ast.Continue{Pos: pos}
	case token.RETURN:
		p.advance()
		return &ast.Return{Value: p.parseExpr(), Pos: pos}
	default:
		p.errs.add(pos, "unexpected %s", p.cur.Tok.GoString())
		panic(errPanicMode)
	}
}

// parseParenOrLambda disambiguates "(" used to open a multi-parameter
// lambda - "(a, b) -> body" - from "(" used as a grouping or the start of a
// no-arg call target: it speculatively parses a parenthesized identifier
// list and backtracks unless that list is immediately followed by "->".
func (p *parser) parseParenOrLambda(pos token.Pos) ast.Core {
	mark := p.mark()
	if params, ok := p.tryParseParamList(); ok && p.cur.Tok == token.ARROW {
		p.advance()
		return &ast.Lambda{Params: params, Body: p.parseExpr(), Pos: pos}
	}
	p.reset(mark)
	p.advance() // consume '('
	e := p.parseExpr()
	p.expect(token.RPAREN)
	return e
}

func (p *parser) tryParseParamList() (params []string, ok bool) {
	mark := p.mark()
	p.advance() // consume '('
	if p.cur.Tok == token.RPAREN {
		p.advance()
		return nil, true
	}
	for {
		if p.cur.Tok != token.IDENT {
			p.reset(mark)
			return nil, false
		}
		params = append(params, p.cur.Lit)
		p.advance()
		if p.cur.Tok == token.COMMA {
			p.advance()
			continue
		}
		break
	}
	if p.cur.Tok != token.RPAREN {
		p.reset(mark)
		return nil, false
	}
	p.advance()
	return params, true
}

func (p *parser) parseLet() ast.Core {
	pos := p.expect(token.LET)
	if p.cur.Tok != token.IDENT {
		p.errorExpected(token.IDENT)
		panic(errPanicMode)
	}
	name := p.cur.Lit
	p.advance()
	p.expect(token.ASSIGN)
	val := p.parseExpr()
	return &ast.Let{Name: name, Value: val, Pos: pos}
}

func (p *parser) parseIf() ast.Core {
	pos := p.expect(token.IF)
	cond := p.parseExpr()
	p.expect(token.THEN)
	then := p.parseExpr()
	els := ast.Core(&ast.Lit{Val: nil, Pos: pos})
	if p.cur.Tok == token.ELSE {
		p.advance()
		els = p.parseExpr()
	}
	return &ast.If{Cond: cond, Then: then, Else: els, Pos: pos}
}

func (p *parser) parseBraceBlock() ast.Core {
	p.expect(token.LBRACE)
	block := p.parseStmtList(token.RBRACE)
	p.expect(token.RBRACE)
	return block
}
