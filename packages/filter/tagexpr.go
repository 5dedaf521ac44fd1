package filter

import "fmt"

// TagExpr is a boolean expression tree over tag literals. Evaluation
// uses short-circuit semantics with `not` binding tighter than `and`
// binding tighter than `or`; parentheses override precedence.
type TagExpr interface {
	Eval(tags map[string]struct{}) bool
	String() string
}

type tagLiteral struct{ name string }

func (e *tagLiteral) Eval(tags map[string]struct{}) bool {
	_, ok := tags[e.name]
	return ok
}

func (e *tagLiteral) String() string { return e.name }

type notExpr struct{ x TagExpr }

func (e *notExpr) Eval(tags map[string]struct{}) bool { return !e.x.Eval(tags) }
func (e *notExpr) String() string                     { return "not " + e.x.String() }

type andExpr struct{ left, right TagExpr }

func (e *andExpr) Eval(tags map[string]struct{}) bool {
	return e.left.Eval(tags) && e.right.Eval(tags)
}

func (e *andExpr) String() string {
	return fmt.Sprintf("(%s and %s)", e.left.String(), e.right.String())
}

type orExpr struct{ left, right TagExpr }

func (e *orExpr) Eval(tags map[string]struct{}) bool {
	return e.left.Eval(tags) || e.right.Eval(tags)
}

func (e *orExpr) String() string {
	return fmt.Sprintf("(%s or %s)", e.left.String(), e.right.String())
}

// ParseTagExpression parses a tag expression such as
// "(slow or integration) and not flaky".
func ParseTagExpression(input string) (TagExpr, error) {
	p := &exprParser{lexer: NewLexer(input), input: input}
	p.next()
	expr, err := p.parseOr()
	if err != nil {
		return nil, err
	}
	if p.tok.Type != TokenEOF {
		return nil, p.errorf("unexpected %s", p.tok)
	}
	return expr, nil
}

type exprParser struct {
	lexer *Lexer
	input string
	tok   Token
}

func (p *exprParser) next() { p.tok = p.lexer.NextToken() }

func (p *exprParser) errorf(format string, args ...any) error {
	return fmt.Errorf("invalid tag expression %q at column %d: %s",
		p.input, p.tok.Column, fmt.Sprintf(format, args...))
}

func (p *exprParser) parseOr() (TagExpr, error) {
	left, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	for p.tok.Type == TokenOr {
		p.next()
		right, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		left = &orExpr{left: left, right: right}
	}
	return left, nil
}

func (p *exprParser) parseAnd() (TagExpr, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	for p.tok.Type == TokenAnd {
		p.next()
		right, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		left = &andExpr{left: left, right: right}
	}
	return left, nil
}

func (p *exprParser) parseUnary() (TagExpr, error) {
	switch p.tok.Type {
	case TokenNot:
		p.next()
		x, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return &notExpr{x: x}, nil
	case TokenLeftParen:
		p.next()
		expr, err := p.parseOr()
		if err != nil {
			return nil, err
		}
		if p.tok.Type != TokenRightParen {
			return nil, p.errorf("expected \")\", got %s", p.tok)
		}
		p.next()
		return expr, nil
	case TokenIdent:
		expr := &tagLiteral{name: p.tok.Value}
		p.next()
		return expr, nil
	default:
		return nil, p.errorf("expected tag, \"not\" or \"(\", got %s", p.tok)
	}
}
