package sexpr

import (
	"fmt"
	"strconv"

	"github.com/webschembly/wsc/internal/lexer"
	"github.com/webschembly/wsc/internal/source"
	"github.com/webschembly/wsc/internal/wserrors"
)

// Parser turns a flat lexer.Token sequence into located s-expressions,
// grounded on the teacher's internal/parser.Parser (a token-index cursor
// over a pre-lexed slice, rather than re-invoking the lexer per token).
type Parser struct {
	toks []lexer.Token
	pos  int
}

// New constructs a Parser over a complete token sequence (including the
// trailing EOF token lexer.Tokenize produces).
func New(toks []lexer.Token) *Parser {
	return &Parser{toks: toks}
}

// ParseAll parses every top-level s-expression in the token stream.
func ParseAll(toks []lexer.Token) ([]*SExpr, error) {
	p := New(toks)
	var out []*SExpr
	for !p.atEOF() {
		e, err := p.parseSExpr()
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, nil
}

func (p *Parser) cur() lexer.Token  { return p.toks[p.pos] }
func (p *Parser) atEOF() bool       { return p.cur().Type == lexer.EOF }
func (p *Parser) advance() lexer.Token {
	t := p.toks[p.pos]
	if p.pos < len(p.toks)-1 {
		p.pos++
	}
	return t
}

func (p *Parser) parseSExpr() (*SExpr, error) {
	tok := p.cur()
	switch tok.Type {
	case lexer.LPAREN:
		return p.parseList()
	case lexer.VECOPEN:
		return p.parseVector()
	case lexer.S64OPEN:
		return p.parseUVector(UVecS64)
	case lexer.F64OPEN:
		return p.parseUVector(UVecF64)
	case lexer.QUOTE:
		p.advance()
		inner, err := p.parseSExpr()
		if err != nil {
			return nil, err
		}
		return quoteForm(tok.Span, inner), nil
	case lexer.IDENT:
		p.advance()
		return sym(tok.Literal, tok.Span), nil
	case lexer.INTEGER:
		p.advance()
		v, err := strconv.ParseInt(tok.Literal, 10, 64)
		if err != nil {
			return nil, parseErr("PAR003", tok.Span, "invalid integer literal %q", tok.Literal)
		}
		return &SExpr{Kind: KindInt, Int: v, Span: tok.Span}, nil
	case lexer.FLOAT:
		p.advance()
		v, err := strconv.ParseFloat(tok.Literal, 64)
		if err != nil {
			return nil, parseErr("PAR003", tok.Span, "invalid float literal %q", tok.Literal)
		}
		return &SExpr{Kind: KindFloat, Float: v, Span: tok.Span}, nil
	case lexer.NAN:
		p.advance()
		return &SExpr{Kind: KindNaN, Span: tok.Span}, nil
	case lexer.STRING:
		p.advance()
		return &SExpr{Kind: KindString, Str: tok.Literal, Span: tok.Span}, nil
	case lexer.CHAR:
		p.advance()
		r := []rune(tok.Literal)
		if len(r) == 0 {
			return nil, parseErr("PAR003", tok.Span, "empty character literal")
		}
		return &SExpr{Kind: KindChar, Char: r[0], Span: tok.Span}, nil
	case lexer.BOOLEAN:
		p.advance()
		return &SExpr{Kind: KindBool, Bool: tok.Literal == "#t", Span: tok.Span}, nil
	case lexer.RPAREN:
		return nil, parseErr("PAR001", tok.Span, "unexpected %q", ")")
	case lexer.DOT:
		return nil, parseErr("PAR002", tok.Span, "misplaced dot outside pair tail")
	case lexer.EOF:
		return nil, parseErr("PAR003", tok.Span, "unexpected end of input")
	default:
		return nil, parseErr("PAR003", tok.Span, "unexpected token %s", tok)
	}
}

// quoteForm builds the proper list (quote x), with a synthetic span
// enclosing the quote mark and the quoted form.
func quoteForm(quoteSpan source.Span, inner *SExpr) *SExpr {
	span := source.Merge(quoteSpan, inner.Span)
	return &SExpr{
		Kind: KindPair,
		Span: span,
		Car:  sym("quote", quoteSpan),
		Cdr: &SExpr{
			Kind: KindPair,
			Span: inner.Span,
			Car:  inner,
			Cdr:  &SExpr{Kind: KindNil, Span: inner.Span},
		},
	}
}

// parseList parses '(' sexpr* [ '.' sexpr ] ')'.
func (p *Parser) parseList() (*SExpr, error) {
	open := p.advance() // consume '('
	var elems []*SExpr
	var dotted *SExpr

	for {
		if p.atEOF() {
			return nil, parseErr("PAR001", open.Span, "unbalanced parenthesis: missing )")
		}
		if p.cur().Type == lexer.RPAREN {
			break
		}
		if p.cur().Type == lexer.DOT {
			p.advance()
			tail, err := p.parseSExpr()
			if err != nil {
				return nil, err
			}
			dotted = tail
			if p.cur().Type != lexer.RPAREN {
				return nil, parseErr("PAR002", p.cur().Span, "misplaced dot: expected ) after dotted tail")
			}
			break
		}
		e, err := p.parseSExpr()
		if err != nil {
			return nil, err
		}
		elems = append(elems, e)
	}
	closeTok := p.advance() // consume ')'
	full := source.Merge(open.Span, closeTok.Span)

	tail := dotted
	if tail == nil {
		tail = &SExpr{Kind: KindNil, Span: closeTok.Span}
	}
	result := tail
	for i := len(elems) - 1; i >= 0; i-- {
		span := elems[i].Span
		if i == 0 {
			span = full
		}
		result = &SExpr{Kind: KindPair, Span: span, Car: elems[i], Cdr: result}
	}
	if len(elems) == 0 && dotted == nil {
		result.Span = full
	}
	return result, nil
}

func (p *Parser) parseVector() (*SExpr, error) {
	open := p.advance() // consume '#('
	var elems []*SExpr
	for {
		if p.atEOF() {
			return nil, parseErr("PAR001", open.Span, "unbalanced parenthesis: missing ) for vector")
		}
		if p.cur().Type == lexer.RPAREN {
			break
		}
		e, err := p.parseSExpr()
		if err != nil {
			return nil, err
		}
		elems = append(elems, e)
	}
	closeTok := p.advance()
	return &SExpr{Kind: KindVector, Vector: elems, Span: source.Merge(open.Span, closeTok.Span)}, nil
}

func (p *Parser) parseUVector(kind UVecKind) (*SExpr, error) {
	open := p.advance() // consume '#s64(' or '#f64('
	out := &SExpr{Kind: KindUVector, UVecKind: kind}
	for {
		if p.atEOF() {
			return nil, parseErr("PAR001", open.Span, "unbalanced parenthesis: missing ) for uniform vector")
		}
		if p.cur().Type == lexer.RPAREN {
			break
		}
		e, err := p.parseSExpr()
		if err != nil {
			return nil, err
		}
		switch kind {
		case UVecS64:
			if e.Kind != KindInt {
				return nil, parseErr("PAR003", e.Span, "#s64 vector elements must be integers")
			}
			out.UVecI = append(out.UVecI, e.Int)
		case UVecF64:
			switch e.Kind {
			case KindFloat:
				out.UVecF = append(out.UVecF, e.Float)
			case KindInt:
				out.UVecF = append(out.UVecF, float64(e.Int))
			default:
				return nil, parseErr("PAR003", e.Span, "#f64 vector elements must be numbers")
			}
		}
	}
	closeTok := p.advance()
	out.Span = source.Merge(open.Span, closeTok.Span)
	return out, nil
}

func parseErr(code string, span source.Span, format string, args ...any) error {
	return wserrors.New("parse", code, fmt.Sprintf(format, args...), &span)
}
