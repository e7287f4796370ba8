package tools

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"

	"github.com/gaiaflow/gaiaflow/flow/tool"
)

// Calculator evaluates arithmetic expressions: + - * / % ^, parentheses,
// decimal and scientific-notation numbers, and the constants pi and e.
type Calculator struct{}

// NewCalculator creates the calculator tool.
func NewCalculator() *Calculator {
	return &Calculator{}
}

// Name implements tool.Tool.
func (c *Calculator) Name() string {
	return "calculator"
}

// Description implements tool.Tool.
func (c *Calculator) Description() string {
	return "Evaluate a mathematical expression. Supports + - * / % ^, parentheses, and the constants pi and e."
}

// Schema implements tool.Tool.
func (c *Calculator) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"expression": map[string]any{
				"type":        "string",
				"description": "A single-line mathematical expression, e.g. \"37593 * 67\" or \"2^(1/5)\"",
			},
		},
		"required": []string{"expression"},
	}
}

// Run implements tool.Tool.
func (c *Calculator) Run(ctx context.Context, input map[string]any) (string, error) {
	expr, ok := tool.StringArg(input, "expression")
	if !ok {
		return "", fmt.Errorf("expression parameter required")
	}

	v, err := (&calcParser{input: expr}).parse()
	if err != nil {
		return "", fmt.Errorf("invalid expression %q: %w", expr, err)
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return "", fmt.Errorf("expression %q does not evaluate to a finite number", expr)
	}
	return strconv.FormatFloat(v, 'f', -1, 64), nil
}

// calcParser is a recursive-descent parser with the usual precedence:
// ^ binds tighter than * / %, which bind tighter than + -. ^ is
// right-associative; everything else associates left.
type calcParser struct {
	input string
	pos   int
}

func (p *calcParser) parse() (float64, error) {
	v, err := p.expr()
	if err != nil {
		return 0, err
	}
	p.skipSpace()
	if p.pos < len(p.input) {
		return 0, fmt.Errorf("unexpected character %q at position %d", p.input[p.pos], p.pos)
	}
	return v, nil
}

func (p *calcParser) expr() (float64, error) {
	v, err := p.term()
	if err != nil {
		return 0, err
	}
	for {
		p.skipSpace()
		if p.pos >= len(p.input) {
			return v, nil
		}
		switch p.input[p.pos] {
		case '+':
			p.pos++
			t, err := p.term()
			if err != nil {
				return 0, err
			}
			v += t
		case '-':
			p.pos++
			t, err := p.term()
			if err != nil {
				return 0, err
			}
			v -= t
		default:
			return v, nil
		}
	}
}

func (p *calcParser) term() (float64, error) {
	v, err := p.power()
	if err != nil {
		return 0, err
	}
	for {
		p.skipSpace()
		if p.pos >= len(p.input) {
			return v, nil
		}
		switch p.input[p.pos] {
		case '*':
			p.pos++
			t, err := p.power()
			if err != nil {
				return 0, err
			}
			v *= t
		case '/':
			p.pos++
			t, err := p.power()
			if err != nil {
				return 0, err
			}
			if t == 0 {
				return 0, errors.New("division by zero")
			}
			v /= t
		case '%':
			p.pos++
			t, err := p.power()
			if err != nil {
				return 0, err
			}
			if t == 0 {
				return 0, errors.New("modulo by zero")
			}
			v = math.Mod(v, t)
		default:
			return v, nil
		}
	}
}

func (p *calcParser) power() (float64, error) {
	v, err := p.unary()
	if err != nil {
		return 0, err
	}
	p.skipSpace()
	if p.pos < len(p.input) && p.input[p.pos] == '^' {
		p.pos++
		exp, err := p.power()
		if err != nil {
			return 0, err
		}
		return math.Pow(v, exp), nil
	}
	return v, nil
}

func (p *calcParser) unary() (float64, error) {
	p.skipSpace()
	if p.pos < len(p.input) {
		switch p.input[p.pos] {
		case '-':
			p.pos++
			v, err := p.unary()
			return -v, err
		case '+':
			p.pos++
			return p.unary()
		}
	}
	return p.primary()
}

func (p *calcParser) primary() (float64, error) {
	p.skipSpace()
	if p.pos >= len(p.input) {
		return 0, errors.New("unexpected end of expression")
	}

	c := p.input[p.pos]
	switch {
	case c == '(':
		p.pos++
		v, err := p.expr()
		if err != nil {
			return 0, err
		}
		p.skipSpace()
		if p.pos >= len(p.input) || p.input[p.pos] != ')' {
			return 0, errors.New("missing closing parenthesis")
		}
		p.pos++
		return v, nil
	case isDigit(c) || c == '.':
		return p.number()
	case isAlpha(c):
		return p.constant()
	default:
		return 0, fmt.Errorf("unexpected character %q at position %d", c, p.pos)
	}
}

func (p *calcParser) number() (float64, error) {
	start := p.pos
	for p.pos < len(p.input) && (isDigit(p.input[p.pos]) || p.input[p.pos] == '.') {
		p.pos++
	}
	// Scientific notation: 2e3, 1.5E-2.
	if p.pos < len(p.input) && (p.input[p.pos] == 'e' || p.input[p.pos] == 'E') {
		mark := p.pos
		p.pos++
		if p.pos < len(p.input) && (p.input[p.pos] == '+' || p.input[p.pos] == '-') {
			p.pos++
		}
		if p.pos < len(p.input) && isDigit(p.input[p.pos]) {
			for p.pos < len(p.input) && isDigit(p.input[p.pos]) {
				p.pos++
			}
		} else {
			p.pos = mark
		}
	}

	v, err := strconv.ParseFloat(p.input[start:p.pos], 64)
	if err != nil {
		return 0, fmt.Errorf("malformed number %q", p.input[start:p.pos])
	}
	return v, nil
}

func (p *calcParser) constant() (float64, error) {
	start := p.pos
	for p.pos < len(p.input) && isAlpha(p.input[p.pos]) {
		p.pos++
	}
	switch name := p.input[start:p.pos]; name {
	case "pi", "Pi", "PI":
		return math.Pi, nil
	case "e", "E":
		return math.E, nil
	default:
		return 0, fmt.Errorf("unknown identifier %q", name)
	}
}

func (p *calcParser) skipSpace() {
	for p.pos < len(p.input) && (p.input[p.pos] == ' ' || p.input[p.pos] == '\t') {
		p.pos++
	}
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}

func isAlpha(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}
