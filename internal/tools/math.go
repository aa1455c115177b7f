package tools

import (
	"fmt"
	"math"
)

func mathTools() []Tool {
	return []Tool{
		{"calculate_average", "Calculate the arithmetic average of a list of numbers.", calculateAverage},
		{"square_root", "Calculate the square root of a number.", squareRoot},
		{"basic_calculator", "Evaluate a basic arithmetic expression such as \"2 + 3 * 4\".", basicCalculator},
		{"compare_numbers", "Compare two numbers with an operator (>, <, >=, <=, ==, !=).", compareNumbers},
		{"power", "Raise a base to an exponent.", power},
		{"absolute_value", "Calculate the absolute value of a number.", absoluteValue},
		{"round_number", "Round a number to a number of decimal places (default 2).", roundNumber},
	}
}

// calculateAverage accepts either one list or the numbers themselves.
func calculateAverage(args []any) (any, error) {
	var nums []float64
	if len(args) == 1 {
		if list, ok := args[0].([]float64); ok {
			nums = list
		}
	}
	if nums == nil {
		for i := range args {
			if list, ok := args[i].([]float64); ok {
				nums = append(nums, list...)
				continue
			}
			f, err := numberArg("calculate_average", args, i)
			if err != nil {
				return nil, err
			}
			nums = append(nums, f)
		}
	}
	if len(nums) == 0 {
		return nil, &ArgError{Tool: "calculate_average", Msg: "cannot average an empty list"}
	}
	var sum float64
	for _, n := range nums {
		sum += n
	}
	return sum / float64(len(nums)), nil
}

func squareRoot(args []any) (any, error) {
	if err := arity("square_root", args, 1, 1); err != nil {
		return nil, err
	}
	n, err := numberArg("square_root", args, 0)
	if err != nil {
		return nil, err
	}
	if n < 0 {
		return nil, fmt.Errorf("square_root: cannot take the square root of a negative number")
	}
	return math.Sqrt(n), nil
}

func basicCalculator(args []any) (any, error) {
	if err := arity("basic_calculator", args, 1, 1); err != nil {
		return nil, err
	}
	expr, err := textArg("basic_calculator", args, 0)
	if err != nil {
		return nil, err
	}
	v, err := Evaluate(expr)
	if err != nil {
		return nil, fmt.Errorf("basic_calculator: %w", err)
	}
	return v, nil
}

func compareNumbers(args []any) (any, error) {
	if err := arity("compare_numbers", args, 3, 3); err != nil {
		return nil, err
	}
	a, err := numberArg("compare_numbers", args, 0)
	if err != nil {
		return nil, err
	}
	b, err := numberArg("compare_numbers", args, 1)
	if err != nil {
		return nil, err
	}
	op, _ := args[2].(string)
	switch op {
	case ">":
		return a > b, nil
	case "<":
		return a < b, nil
	case ">=":
		return a >= b, nil
	case "<=":
		return a <= b, nil
	case "==":
		return a == b, nil
	case "!=":
		return a != b, nil
	}
	return nil, &ArgError{Tool: "compare_numbers", Msg: fmt.Sprintf("invalid operator %v", args[2])}
}

func power(args []any) (any, error) {
	if err := arity("power", args, 2, 2); err != nil {
		return nil, err
	}
	base, err := numberArg("power", args, 0)
	if err != nil {
		return nil, err
	}
	exp, err := numberArg("power", args, 1)
	if err != nil {
		return nil, err
	}
	v := math.Pow(base, exp)
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil, fmt.Errorf("power: result is not a finite number")
	}
	return v, nil
}

func absoluteValue(args []any) (any, error) {
	if err := arity("absolute_value", args, 1, 1); err != nil {
		return nil, err
	}
	n, err := numberArg("absolute_value", args, 0)
	if err != nil {
		return nil, err
	}
	return math.Abs(n), nil
}

func roundNumber(args []any) (any, error) {
	if err := arity("round_number", args, 1, 2); err != nil {
		return nil, err
	}
	n, err := numberArg("round_number", args, 0)
	if err != nil {
		return nil, err
	}
	decimals := 2.0
	if len(args) == 2 {
		if decimals, err = numberArg("round_number", args, 1); err != nil {
			return nil, err
		}
		if decimals != math.Trunc(decimals) || decimals < 0 || decimals > 15 {
			return nil, &ArgError{Tool: "round_number", Msg: "decimals must be a whole number from 0 to 15"}
		}
	}
	scale := math.Pow(10, decimals)
	return math.RoundToEven(n*scale) / scale, nil
}
