// Package op defines the operator and terminal sets expression trees are
// built from: named arithmetic functions with fixed arity, sample variables,
// fixed constants and ephemeral constants.
package op

import (
	"fmt"
	"math"
	"math/rand"
	"strconv"
)

// Op is a node payload in an expression tree. Eval receives the already
// evaluated child values and the sample inputs. Function ops read only args;
// terminals read only inputs or their own frozen value.
type Op interface {
	Name() string
	Arity() int
	Eval(args []float64, inputs []float64) float64
}

// Instantiable terminals are resolved once per tree node at generation time.
// Ephemeral constants use this to freeze their sampled value.
type Instantiable interface {
	Op
	Instantiate(rng *rand.Rand) Op
}

// Func is a named pure function of its child values.
type Func struct {
	name  string
	arity int
	apply func(args []float64) float64
}

func NewFunc(name string, arity int, apply func(args []float64) float64) Func {
	return Func{name: name, arity: arity, apply: apply}
}

func (f Func) Name() string { return f.name }

func (f Func) Arity() int { return f.arity }

func (f Func) Eval(args []float64, _ []float64) float64 { return f.apply(args) }

// Var reads one column of the sample inputs.
type Var struct {
	name  string
	index int
}

func NewVar(name string, index int) Var {
	return Var{name: name, index: index}
}

func (v Var) Name() string { return v.name }

func (Var) Arity() int { return 0 }

func (v Var) Index() int { return v.index }

func (v Var) Eval(_ []float64, inputs []float64) float64 { return inputs[v.index] }

// Const is a fixed terminal value.
type Const struct {
	value float64
}

func NewConst(value float64) Const {
	return Const{value: value}
}

func (c Const) Name() string { return strconv.FormatFloat(c.value, 'g', -1, 64) }

func (Const) Arity() int { return 0 }

func (c Const) Value() float64 { return c.value }

func (c Const) Eval(_ []float64, _ []float64) float64 { return c.value }

// Ephemeral is a terminal producer: instantiating it draws a value from the
// sampler and returns a frozen Const. Re-evaluating a tree never re-samples.
type Ephemeral struct {
	name   string
	sample func(rng *rand.Rand) float64
}

func NewEphemeral(name string, sample func(rng *rand.Rand) float64) Ephemeral {
	return Ephemeral{name: name, sample: sample}
}

func (e Ephemeral) Name() string { return e.name }

func (Ephemeral) Arity() int { return 0 }

func (e Ephemeral) Instantiate(rng *rand.Rand) Op {
	return NewConst(e.sample(rng))
}

// Eval on the producer itself indicates a tree that was built without
// instantiation, which is a construction bug.
func (e Ephemeral) Eval(_ []float64, _ []float64) float64 {
	panic(fmt.Sprintf("ephemeral terminal %q evaluated before instantiation", e.name))
}

// The arithmetic operator set used by symbolic regression.
var (
	Add = NewFunc("add", 2, func(a []float64) float64 { return a[0] + a[1] })
	Sub = NewFunc("sub", 2, func(a []float64) float64 { return a[0] - a[1] })
	Mul = NewFunc("mul", 2, func(a []float64) float64 { return a[0] * a[1] })
	Div = NewFunc("div", 2, func(a []float64) float64 { return a[0] / a[1] })

	Neg  = NewFunc("neg", 1, func(a []float64) float64 { return -a[0] })
	Abs  = NewFunc("abs", 1, func(a []float64) float64 { return math.Abs(a[0]) })
	Sqrt = NewFunc("sqrt", 1, func(a []float64) float64 { return math.Sqrt(a[0]) })
	Exp  = NewFunc("exp", 1, func(a []float64) float64 { return math.Exp(a[0]) })
	Log  = NewFunc("log", 1, func(a []float64) float64 { return math.Log(a[0]) })
	Sin  = NewFunc("sin", 1, func(a []float64) float64 { return math.Sin(a[0]) })
	Cos  = NewFunc("cos", 1, func(a []float64) float64 { return math.Cos(a[0]) })
	Pow  = NewFunc("pow", 2, func(a []float64) float64 { return math.Pow(a[0], a[1]) })
)

var registry = map[string]Op{
	Add.Name():  Add,
	Sub.Name():  Sub,
	Mul.Name():  Mul,
	Div.Name():  Div,
	Neg.Name():  Neg,
	Abs.Name():  Abs,
	Sqrt.Name(): Sqrt,
	Exp.Name():  Exp,
	Log.Name():  Log,
	Sin.Name():  Sin,
	Cos.Name():  Cos,
	Pow.Name():  Pow,
}

// Lookup resolves a function operator by its registered name.
func Lookup(name string) (Op, error) {
	o, ok := registry[name]
	if !ok {
		return nil, fmt.Errorf("unknown operator: %s", name)
	}
	return o, nil
}

// MustLookup resolves a list of operator names or fails.
func MustLookup(names ...string) ([]Op, error) {
	ops := make([]Op, 0, len(names))
	for _, name := range names {
		o, err := Lookup(name)
		if err != nil {
			return nil, err
		}
		ops = append(ops, o)
	}
	return ops, nil
}
