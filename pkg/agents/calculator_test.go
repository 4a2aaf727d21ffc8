package agents

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nodus-ai/agentpool/pkg/a2a"
	"github.com/nodus-ai/agentpool/pkg/config"
)

func newCalc(t *testing.T, options map[string]any) *Calculator {
	t.Helper()
	v, err := NewCalculator(config.AgentSpec{Name: "calc", ModulePath: ModuleCalculator, Options: options})
	require.NoError(t, err)
	return v.(*Calculator)
}

func TestCalculator_Add(t *testing.T) {
	calc := newCalc(t, nil)

	result, err := calc.Dispatch(context.Background(), "add", map[string]any{"a": 2.0, "b": 3.0})
	require.NoError(t, err)
	assert.Equal(t, 5.0, result)
}

func TestCalculator_Calculate(t *testing.T) {
	calc := newCalc(t, nil)

	tests := []struct {
		expression string
		want       float64
	}{
		{"2 + 3", 5},
		{"2+3*4", 14},
		{"(2+3)*4", 20},
		{"10 - 4 / 2", 8},
		{"2^10", 1024},
		{"2**10", 1024},
		{"2^3^2", 512},
		{"-5 + 3", -2},
		{"sqrt(16)", 4},
		{"abs(-7.5)", 7.5},
		{"sqrt(abs(-9))", 3},
		{"15% of 200", 30},
		{"pi * 0", 0},
	}

	for _, tt := range tests {
		t.Run(tt.expression, func(t *testing.T) {
			result, err := calc.Dispatch(context.Background(), "calculate",
				map[string]any{"expression": tt.expression})
			require.NoError(t, err)

			calcResult := result.(*CalculationResult)
			assert.InDelta(t, tt.want, calcResult.Result, 1e-9)
			assert.Equal(t, tt.expression, calcResult.Expression)
			assert.NotEmpty(t, calcResult.Explanation)
		})
	}
}

func TestCalculator_CalculateErrors(t *testing.T) {
	calc := newCalc(t, nil)

	tests := []struct {
		name       string
		expression string
	}{
		{"division by zero", "1/0"},
		{"unbalanced parens", "(2+3"},
		{"trailing garbage", "2+3 oops"},
		{"unknown function", "cbrt(8)"},
		{"negative sqrt", "sqrt(-4)"},
		{"empty tail operator", "2+"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := calc.Dispatch(context.Background(), "calculate",
				map[string]any{"expression": tt.expression})
			require.Error(t, err)

			var rpcErr *a2a.Error
			require.ErrorAs(t, err, &rpcErr)
			assert.GreaterOrEqual(t, rpcErr.Code, a2a.CodeApplicationMin)
			assert.LessOrEqual(t, rpcErr.Code, a2a.CodeApplicationMax)
		})
	}
}

func TestCalculator_CalculateMissingExpression(t *testing.T) {
	calc := newCalc(t, nil)

	_, err := calc.Dispatch(context.Background(), "calculate", map[string]any{})
	var rpcErr *a2a.Error
	require.ErrorAs(t, err, &rpcErr)
	assert.Equal(t, a2a.CodeInvalidParams, rpcErr.Code)
}

func TestCalculator_Percentage(t *testing.T) {
	calc := newCalc(t, nil)

	result, err := calc.Dispatch(context.Background(), "percentage",
		map[string]any{"percentage": 15.0, "of_value": 200.0})
	require.NoError(t, err)

	calcResult := result.(*CalculationResult)
	assert.InDelta(t, 30, calcResult.Result, 1e-9)
}

func TestCalculator_PrecisionOption(t *testing.T) {
	calc := newCalc(t, map[string]any{"precision": 2})

	result, err := calc.Dispatch(context.Background(), "calculate",
		map[string]any{"expression": "10/3"})
	require.NoError(t, err)
	assert.InDelta(t, 3.33, result.(*CalculationResult).Result, 1e-9)
}

func TestCalculator_UnknownMethod(t *testing.T) {
	calc := newCalc(t, nil)

	_, err := calc.Dispatch(context.Background(), "integrate", nil)
	var rpcErr *a2a.Error
	require.ErrorAs(t, err, &rpcErr)
	assert.Equal(t, a2a.CodeMethodNotFound, rpcErr.Code)
}

func TestCalculator_CardAndProbe(t *testing.T) {
	calc := newCalc(t, nil)

	card := calc.Card()
	assert.Equal(t, "calc", card.Name)
	assert.ElementsMatch(t, []string{"add", "calculate", "percentage"}, card.Capabilities)
	assert.NoError(t, calc.Probe(context.Background()))
}

func TestEvalExpression_Constants(t *testing.T) {
	result, err := evalExpression("pi")
	require.NoError(t, err)
	assert.InDelta(t, math.Pi, result, 1e-12)

	result, err = evalExpression("e^2")
	require.NoError(t, err)
	assert.InDelta(t, math.E*math.E, result, 1e-9)
}
