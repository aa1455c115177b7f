package tools

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

const calcAllowed = "0123456789+-*/.() "

// Evaluate computes an arithmetic expression over + - * / // ** and
// parentheses. Nothing else is accepted.
func Evaluate(expr string) (float64, error) {
	for _, r := range expr {
		if !strings.ContainsRune(calcAllowed, r) {
			return 0, fmt.Errorf("invalid character %q in expression", r)
		}
	}
	p := &calcParser{src: expr}
	p.next()
	v, err := p.expr()
	if err != nil {
		return 0, err
	}
	if p.tok != tokEOF {
		return 0, fmt.Errorf("unexpected %q at position %d", p.text, p.pos)
	}
	if math.IsInf(v, 0) || math.IsNaN(v) {
		return 0, fmt.Errorf("result is not a finite number")
	}
	return v, nil
}

type calcToken int

const (
	tokEOF calcToken = iota
	tokNum
	tokOp
	tokLParen
	tokRParen
)

type calcParser struct {
	src  string
	i    int
	pos  int
	tok  calcToken
	text string
	num  float64
	err  error
}

func (p *calcParser) next() {
	for p.i < len(p.src) && p.src[p.i] == ' ' {
		p.i++
	}
	p.pos = p.i
	if p.i >= len(p.src) {
		p.tok, p.text = tokEOF, ""
		return
	}
	c := p.src[p.i]
	switch {
	case c == '(':
		p.tok, p.text = tokLParen, "("
		p.i++
	case c == ')':
		p.tok, p.text = tokRParen, ")"
		p.i++
	case c == '*' || c == '/':
		p.tok, p.text = tokOp, string(c)
		p.i++
		if p.i < len(p.src) && p.src[p.i] == c {
			p.text += string(c)
			p.i++
		}
	case c == '+' || c == '-':
		p.tok, p.text = tokOp, string(c)
		p.i++
	default:
		start := p.i
		for p.i < len(p.src) && (p.src[p.i] == '.' || (p.src[p.i] >= '0' && p.src[p.i] <= '9')) {
			p.i++
		}
		p.tok, p.text = tokNum, p.src[start:p.i]
		f, err := strconv.ParseFloat(p.text, 64)
		if err != nil {
			p.err = fmt.Errorf("invalid number %q", p.text)
		}
		p.num = f
	}
}

func (p *calcParser) expr() (float64, error) {
	v, err := p.term()
	if err != nil {
		return 0, err
	}
	for p.tok == tokOp && (p.text == "+" || p.text == "-") {
		op := p.text
		p.next()
		r, err := p.term()
		if err != nil {
			return 0, err
		}
		if op == "+" {
			v += r
		} else {
			v -= r
		}
	}
	return v, nil
}

func (p *calcParser) term() (float64, error) {
	v, err := p.unary()
	if err != nil {
		return 0, err
	}
	for p.tok == tokOp && (p.text == "*" || p.text == "/" || p.text == "//") {
		op := p.text
		p.next()
		r, err := p.unary()
		if err != nil {
			return 0, err
		}
		switch op {
		case "*":
			v *= r
		case "/", "//":
			if r == 0 {
				return 0, fmt.Errorf("division by zero")
			}
			v /= r
			if op == "//" {
				v = math.Floor(v)
			}
		}
	}
	return v, nil
}

func (p *calcParser) unary() (float64, error) {
	if p.tok == tokOp && (p.text == "+" || p.text == "-") {
		neg := p.text == "-"
		p.next()
		v, err := p.unary()
		if neg {
			v = -v
		}
		return v, err
	}
	return p.power()
}

// power is right-associative and binds tighter than a unary sign on its
// left, so -2**2 is -4.
func (p *calcParser) power() (float64, error) {
	base, err := p.primary()
	if err != nil {
		return 0, err
	}
	if p.tok == tokOp && p.text == "**" {
		p.next()
		exp, err := p.unary()
		if err != nil {
			return 0, err
		}
		return math.Pow(base, exp), nil
	}
	return base, nil
}

func (p *calcParser) primary() (float64, error) {
	if p.err != nil {
		return 0, p.err
	}
	switch p.tok {
	case tokNum:
		v := p.num
		p.next()
		return v, nil
	case tokLParen:
		p.next()
		v, err := p.expr()
		if err != nil {
			return 0, err
		}
		if p.tok != tokRParen {
			return 0, fmt.Errorf("missing closing parenthesis")
		}
		p.next()
		return v, nil
	case tokEOF:
		return 0, fmt.Errorf("unexpected end of expression")
	}
	return 0, fmt.Errorf("unexpected %q at position %d", p.text, p.pos)
}
