package agents

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/nodus-ai/agentpool/pkg/a2a"
	"github.com/nodus-ai/agentpool/pkg/config"
)

// Calculator evaluates arithmetic without external dependencies.
type Calculator struct {
	name      string
	precision int
}

type calculatorOptions struct {
	// Precision rounds results to this many decimal places. <= 0 leaves
	// results unrounded.
	Precision int `mapstructure:"precision"`
}

// NewCalculator is the builtin.calculator factory.
func NewCalculator(spec config.AgentSpec) (any, error) {
	var opts calculatorOptions
	if err := decodeOptions(spec.Options, &opts); err != nil {
		return nil, fmt.Errorf("invalid calculator options: %w", err)
	}
	return &Calculator{name: spec.Name, precision: opts.Precision}, nil
}

func (c *Calculator) Card() *a2a.AgentCard {
	return &a2a.AgentCard{
		Name:         c.name,
		Description:  "Mathematical calculations (addition, expressions, powers, square roots, percentages)",
		Version:      "1.0.0",
		Capabilities: []string{"add", "calculate", "percentage"},
	}
}

func (c *Calculator) Probe(ctx context.Context) error {
	return nil
}

// CalculationResult mirrors the calculate/percentage response shape.
type CalculationResult struct {
	Expression  string    `json:"expression"`
	Result      float64   `json:"result"`
	Explanation string    `json:"explanation"`
	Timestamp   time.Time `json:"timestamp"`
}

func (c *Calculator) Dispatch(ctx context.Context, method string, params map[string]any) (any, error) {
	switch method {
	case "add":
		var args struct {
			A float64 `mapstructure:"a"`
			B float64 `mapstructure:"b"`
		}
		if err := decodeParams(params, &args); err != nil {
			return nil, err
		}
		return c.round(args.A + args.B), nil

	case "calculate":
		var args struct {
			Expression string `mapstructure:"expression"`
		}
		if err := decodeParams(params, &args); err != nil {
			return nil, err
		}
		if args.Expression == "" {
			return nil, a2a.NewInvalidParams("expression parameter is required")
		}

		result, err := evalExpression(args.Expression)
		if err != nil {
			return nil, a2a.NewApplicationError(a2a.CodeApplicationMax, err.Error())
		}
		result = c.round(result)

		return &CalculationResult{
			Expression:  args.Expression,
			Result:      result,
			Explanation: fmt.Sprintf("The result of %s is %v", args.Expression, result),
			Timestamp:   time.Now(),
		}, nil

	case "percentage":
		var args struct {
			Percentage float64 `mapstructure:"percentage"`
			OfValue    float64 `mapstructure:"of_value"`
		}
		if err := decodeParams(params, &args); err != nil {
			return nil, err
		}

		result := c.round(args.Percentage / 100 * args.OfValue)
		expression := fmt.Sprintf("%v%% of %v", args.Percentage, args.OfValue)

		return &CalculationResult{
			Expression:  expression,
			Result:      result,
			Explanation: fmt.Sprintf("%v%% of %v is %v", args.Percentage, args.OfValue, result),
			Timestamp:   time.Now(),
		}, nil

	default:
		return nil, a2a.NewMethodNotFound(method)
	}
}

func (c *Calculator) round(v float64) float64 {
	if c.precision <= 0 {
		return v
	}
	scale := math.Pow10(c.precision)
	return math.Round(v*scale) / scale
}

// ============================================================================
// EXPRESSION EVALUATION
// ============================================================================

// evalExpression evaluates arithmetic expressions: + - * / ^, parentheses,
// sqrt/abs, the constants pi and e, and the "N% of M" form.
func evalExpression(input string) (float64, error) {
	expr := strings.ReplaceAll(input, "**", "^")

	// "15% of 200"
	if strings.Contains(expr, "%") && strings.Contains(expr, " of ") {
		parts := strings.SplitN(expr, " of ", 2)
		pct, err1 := strconv.ParseFloat(strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(parts[0]), "%")), 64)
		val, err2 := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
		if err1 != nil || err2 != nil {
			return 0, fmt.Errorf("invalid expression: %s", input)
		}
		return pct / 100 * val, nil
	}

	p := &exprParser{input: expr}
	result, err := p.parseExpr()
	if err != nil {
		return 0, err
	}
	p.skipSpaces()
	if p.pos != len(p.input) {
		return 0, fmt.Errorf("invalid expression: unexpected %q", p.input[p.pos:])
	}
	if math.IsNaN(result) || math.IsInf(result, 0) {
		return 0, fmt.Errorf("expression has no finite result")
	}
	return result, nil
}

// exprParser is a recursive-descent parser with standard precedence:
// expr > term > power > unary > primary.
type exprParser struct {
	input string
	pos   int
}

func (p *exprParser) parseExpr() (float64, error) {
	left, err := p.parseTerm()
	if err != nil {
		return 0, err
	}
	for {
		p.skipSpaces()
		switch {
		case p.peek('+'):
			p.pos++
			right, err := p.parseTerm()
			if err != nil {
				return 0, err
			}
			left += right
		case p.peek('-'):
			p.pos++
			right, err := p.parseTerm()
			if err != nil {
				return 0, err
			}
			left -= right
		default:
			return left, nil
		}
	}
}

func (p *exprParser) parseTerm() (float64, error) {
	left, err := p.parsePower()
	if err != nil {
		return 0, err
	}
	for {
		p.skipSpaces()
		switch {
		case p.peek('*'):
			p.pos++
			right, err := p.parsePower()
			if err != nil {
				return 0, err
			}
			left *= right
		case p.peek('/'):
			p.pos++
			right, err := p.parsePower()
			if err != nil {
				return 0, err
			}
			if right == 0 {
				return 0, fmt.Errorf("division by zero")
			}
			left /= right
		default:
			return left, nil
		}
	}
}

func (p *exprParser) parsePower() (float64, error) {
	base, err := p.parseUnary()
	if err != nil {
		return 0, err
	}
	p.skipSpaces()
	if p.peek('^') {
		p.pos++
		// Right-associative.
		exp, err := p.parsePower()
		if err != nil {
			return 0, err
		}
		return math.Pow(base, exp), nil
	}
	return base, nil
}

func (p *exprParser) parseUnary() (float64, error) {
	p.skipSpaces()
	if p.peek('-') {
		p.pos++
		v, err := p.parseUnary()
		return -v, err
	}
	return p.parsePrimary()
}

func (p *exprParser) parsePrimary() (float64, error) {
	p.skipSpaces()
	if p.pos >= len(p.input) {
		return 0, fmt.Errorf("unexpected end of expression")
	}

	if p.peek('(') {
		p.pos++
		v, err := p.parseExpr()
		if err != nil {
			return 0, err
		}
		p.skipSpaces()
		if !p.peek(')') {
			return 0, fmt.Errorf("missing closing parenthesis")
		}
		p.pos++
		return v, nil
	}

	if isDigit(p.input[p.pos]) || p.input[p.pos] == '.' {
		start := p.pos
		for p.pos < len(p.input) && (isDigit(p.input[p.pos]) || p.input[p.pos] == '.') {
			p.pos++
		}
		v, err := strconv.ParseFloat(p.input[start:p.pos], 64)
		if err != nil {
			return 0, fmt.Errorf("invalid number %q", p.input[start:p.pos])
		}
		return v, nil
	}

	if isLetter(p.input[p.pos]) {
		start := p.pos
		for p.pos < len(p.input) && isLetter(p.input[p.pos]) {
			p.pos++
		}
		name := strings.ToLower(p.input[start:p.pos])

		switch name {
		case "pi":
			return math.Pi, nil
		case "e":
			return math.E, nil
		}

		p.skipSpaces()
		if !p.peek('(') {
			return 0, fmt.Errorf("unknown identifier %q", name)
		}
		p.pos++
		arg, err := p.parseExpr()
		if err != nil {
			return 0, err
		}
		p.skipSpaces()
		if !p.peek(')') {
			return 0, fmt.Errorf("missing closing parenthesis")
		}
		p.pos++

		switch name {
		case "sqrt":
			if arg < 0 {
				return 0, fmt.Errorf("square root of negative number")
			}
			return math.Sqrt(arg), nil
		case "abs":
			return math.Abs(arg), nil
		default:
			return 0, fmt.Errorf("unknown function %q", name)
		}
	}

	return 0, fmt.Errorf("unexpected character %q", p.input[p.pos])
}

func (p *exprParser) peek(c byte) bool {
	return p.pos < len(p.input) && p.input[p.pos] == c
}

func (p *exprParser) skipSpaces() {
	for p.pos < len(p.input) && p.input[p.pos] == ' ' {
		p.pos++
	}
}

func isDigit(c byte) bool  { return c >= '0' && c <= '9' }
func isLetter(c byte) bool { return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') }
