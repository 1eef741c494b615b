// Package fieldeval provides scalar field implementations and wrappers used
// when evaluating fields for isoline and isosurface extraction.
package fieldeval

import (
	"fmt"
	"math"
	"slices"
	"strings"

	"github.com/Knetic/govaluate"
	"github.com/chewxy/math32"
	"github.com/soypat/isosurf"
)

// Expr3 is a 3D scalar field defined by an arithmetic expression over x, y and z.
// Evaluation failures such as division of non-numbers yield NaN.
type Expr3 struct {
	src  string
	expr *govaluate.EvaluableExpression
}

// Expr2 is a 2D scalar field defined by an arithmetic expression over x and y.
type Expr2 struct {
	src  string
	expr *govaluate.EvaluableExpression
}

var (
	_ isosurf.Field3 = (*Expr3)(nil)
	_ isosurf.Field2 = (*Expr2)(nil)
)

// ParseField3 parses an expression such as "x*x + y*y + z*z - 1". Supported
// functions are sin, cos, tan, sqrt, abs, exp, log, pow, min and max and the
// constant pi is predefined. Any other variable than x, y and z is reported as
// an error wrapping [isosurf.ErrConfig].
func ParseField3(src string) (*Expr3, error) {
	expr, err := parse(src, "x", "y", "z")
	if err != nil {
		return nil, err
	}
	return &Expr3{src: src, expr: expr}, nil
}

// ParseField2 parses an expression over x and y such as "sin(x*y)".
func ParseField2(src string) (*Expr2, error) {
	expr, err := parse(src, "x", "y")
	if err != nil {
		return nil, err
	}
	return &Expr2{src: src, expr: expr}, nil
}

func parse(src string, vars ...string) (*govaluate.EvaluableExpression, error) {
	if strings.TrimSpace(src) == "" {
		return nil, isosurf.Configf("empty field expression")
	}
	expr, err := govaluate.NewEvaluableExpressionWithFunctions(src, exprFunctions)
	if err != nil {
		return nil, isosurf.Configf("parsing field expression %q: %s", src, err)
	}
	for _, v := range expr.Vars() {
		if v != "pi" && !slices.Contains(vars, v) {
			return nil, isosurf.Configf("field expression %q: unknown variable %q, want one of %v", src, v, vars)
		}
	}
	return expr, nil
}

// Evaluate implements [isosurf.Field3].
func (e *Expr3) Evaluate(x, y, z float32) float32 {
	return eval(e.expr, params3{x: float64(x), y: float64(y), z: float64(z)})
}

func (e *Expr3) String() string { return e.src }

// Evaluate implements [isosurf.Field2].
func (e *Expr2) Evaluate(x, y float32) float32 {
	return eval(e.expr, params3{x: float64(x), y: float64(y)})
}

func (e *Expr2) String() string { return e.src }

func eval(expr *govaluate.EvaluableExpression, p params3) float32 {
	v, err := expr.Eval(p)
	if err != nil {
		return math32.NaN()
	}
	switch v := v.(type) {
	case float64:
		return float32(v)
	case bool:
		// Comparisons evaluate to a step field.
		if v {
			return 1
		}
		return 0
	}
	return math32.NaN()
}

// params3 implements [govaluate.Parameters] without allocating a map per evaluation.
type params3 struct{ x, y, z float64 }

func (p params3) Get(name string) (any, error) {
	switch name {
	case "x":
		return p.x, nil
	case "y":
		return p.y, nil
	case "z":
		return p.z, nil
	case "pi":
		return math.Pi, nil
	}
	return nil, fmt.Errorf("unknown variable %q", name)
}

var exprFunctions = map[string]govaluate.ExpressionFunction{
	"sin":  unary(math.Sin),
	"cos":  unary(math.Cos),
	"tan":  unary(math.Tan),
	"sqrt": unary(math.Sqrt),
	"abs":  unary(math.Abs),
	"exp":  unary(math.Exp),
	"log":  unary(math.Log),
	"pow":  binary(math.Pow),
	"min":  binary(math.Min),
	"max":  binary(math.Max),
}

func unary(fn func(float64) float64) govaluate.ExpressionFunction {
	return func(args ...any) (any, error) {
		if len(args) != 1 {
			return nil, fmt.Errorf("want 1 argument, got %d", len(args))
		}
		a, ok := args[0].(float64)
		if !ok {
			return nil, fmt.Errorf("want numeric argument, got %T", args[0])
		}
		return fn(a), nil
	}
}

func binary(fn func(a, b float64) float64) govaluate.ExpressionFunction {
	return func(args ...any) (any, error) {
		if len(args) != 2 {
			return nil, fmt.Errorf("want 2 arguments, got %d", len(args))
		}
		a, ok1 := args[0].(float64)
		b, ok2 := args[1].(float64)
		if !ok1 || !ok2 {
			return nil, fmt.Errorf("want numeric arguments, got %T, %T", args[0], args[1])
		}
		return fn(a, b), nil
	}
}
