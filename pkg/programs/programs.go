// Package programs holds small bytecode programs used by tests, benchmarks
// and the pvm runner's -demo flag.
//
// Programs refer to klasses by id. Ids below FirstUserKlass are the
// built-in primitives; a program that needs more lists them in Klasses,
// and they must be registered in that order.
package programs

import (
	"sort"

	"github.com/chazu/pvm/pkg/bytecode"
)

// Klass ids of the built-in primitives.
const (
	KlassInt   = 1
	KlassBool  = 2
	KlassChar  = 3
	KlassFloat = 4

	// FirstUserKlass is the id given to the first extra klass.
	FirstUserKlass = 5
)

// KlassLayout describes an extra klass as a list of packed field sizes.
type KlassLayout struct {
	Name  string
	Sizes []int
}

// Program is a named, ready-to-run sample.
type Program struct {
	Name        string
	Description string
	Input       string // suggested stdin for programs that READ
	Klasses     []KlassLayout
	Code        bytecode.Code
}

// ---------------------------------------------------------------------------
// Recursion
// ---------------------------------------------------------------------------

// Factorial computes n! recursively. The result is left in the entry
// frame's accumulator.
//
// The callee receives its argument in the accumulator and returns the
// result the same way.
func Factorial(n int32) bytecode.Code {
	b := bytecode.NewBuilder()
	fact := b.NewLabel("fact")
	recurse := b.NewLabel("recurse")

	b.ImmBool(true)
	b.Mov(2)
	b.ImmInt(n)
	b.CallTo(2, fact)
	b.Halt()

	b.Mark(fact)
	b.Mov(1) // r1 = n
	b.ImmInt(1)
	b.Mov(2) // r2 = 1
	b.Binary(bytecode.OpLess, bytecode.TypeInt, 2, 1)
	b.Mov(3) // r3 = 1 < n
	b.BranchTo(3, recurse)
	b.Return(2)

	b.Mark(recurse)
	b.Binary(bytecode.OpSub, bytecode.TypeInt, 1, 2)
	b.CallTo(3, fact)
	b.Mov(4) // r4 = (n-1)!
	b.Binary(bytecode.OpMul, bytecode.TypeInt, 1, 4)
	b.Return(bytecode.Acc)

	return b.MustBuild()
}

// Sum computes 1 + 2 + ... + n recursively.
func Sum(n int32) bytecode.Code {
	b := bytecode.NewBuilder()
	sum := b.NewLabel("sum")
	recurse := b.NewLabel("recurse")

	b.ImmBool(true)
	b.Mov(10)
	b.ImmInt(n)
	b.CallTo(10, sum)
	b.Halt()

	b.Mark(sum)
	b.Mov(1) // r1 = n
	b.ImmInt(0)
	b.Mov(2) // r2 = 0
	b.Binary(bytecode.OpLess, bytecode.TypeInt, 2, 1)
	b.Mov(3) // r3 = 0 < n
	b.BranchTo(3, recurse)
	b.Return(2)

	b.Mark(recurse)
	b.ImmInt(1)
	b.Mov(5)
	b.Binary(bytecode.OpSub, bytecode.TypeInt, 1, 5)
	b.CallTo(3, sum)
	b.Mov(4) // r4 = sum(n-1)
	b.Binary(bytecode.OpAdd, bytecode.TypeInt, 1, 4)
	b.Return(bytecode.Acc)

	return b.MustBuild()
}

// ---------------------------------------------------------------------------
// Loops
// ---------------------------------------------------------------------------

// Loop runs n iterations of
//
//	r4 += r1; r5 = r4 * r4; r1 += 1
//
// starting from r1 = 0, r4 = 1. For n = 10 it leaves r1 = 10, r4 = 46 and
// r5 = 2116 in the entry frame.
func Loop(n int32) bytecode.Code {
	b := bytecode.NewBuilder()
	top := b.NewLabel("top")

	b.ImmInt(0)
	b.Mov(1) // counter
	b.ImmInt(1)
	b.Mov(2) // step
	b.ImmInt(n)
	b.Mov(3) // limit
	b.ImmInt(1)
	b.Mov(4)
	b.ImmInt(1)
	b.Mov(5)

	b.Mark(top)
	b.Binary(bytecode.OpAdd, bytecode.TypeInt, 4, 1)
	b.Mov(4)
	b.Binary(bytecode.OpMul, bytecode.TypeInt, 4, 4)
	b.Mov(5)
	b.Binary(bytecode.OpAdd, bytecode.TypeInt, 1, 2)
	b.Mov(1)
	b.Binary(bytecode.OpLess, bytecode.TypeInt, 1, 3)
	b.Mov(6)
	b.BranchTo(6, top)
	b.Halt()

	return b.MustBuild()
}

// ---------------------------------------------------------------------------
// I/O
// ---------------------------------------------------------------------------

// Quadratic reads the coefficients a, b and c of a*x^2 + b*x + c = 0 as
// floats and prints the real roots in ascending order, one per line. A
// double root is printed once and no roots print nothing.
func Quadratic() bytecode.Code {
	b := bytecode.NewBuilder()
	noRoots := b.NewLabel("no_roots")
	oneRoot := b.NewLabel("one_root")
	swapped := b.NewLabel("swapped")

	b.Read(bytecode.TypeFloat)
	b.Mov(1) // a
	b.Read(bytecode.TypeFloat)
	b.Mov(2) // b
	b.Read(bytecode.TypeFloat)
	b.Mov(3) // c

	b.ImmFloat(0)
	b.Mov(11)
	b.ImmFloat(2)
	b.Mov(12)
	b.ImmFloat(4)
	b.Mov(4)

	b.Binary(bytecode.OpMul, bytecode.TypeFloat, 12, 1)
	b.Mov(14) // 2a
	b.Binary(bytecode.OpSub, bytecode.TypeFloat, 11, 2)
	b.Mov(15) // -b

	b.Binary(bytecode.OpMul, bytecode.TypeFloat, 2, 2)
	b.Mov(5) // b^2
	b.Binary(bytecode.OpMul, bytecode.TypeFloat, 1, 3)
	b.Mov(6) // ac
	b.Binary(bytecode.OpMul, bytecode.TypeFloat, 4, 6)
	b.Mov(7) // 4ac
	b.Binary(bytecode.OpSub, bytecode.TypeFloat, 5, 7)
	b.Mov(8) // discriminant

	b.Binary(bytecode.OpLess, bytecode.TypeFloat, 8, 11)
	b.Mov(9)
	b.BranchTo(9, noRoots)
	b.Binary(bytecode.OpEqual, bytecode.TypeFloat, 8, 11)
	b.Mov(10)
	b.BranchTo(10, oneRoot)

	b.Unary(bytecode.OpSqrt, bytecode.TypeFloat, 8)
	b.Mov(16)
	b.Binary(bytecode.OpSub, bytecode.TypeFloat, 15, 16)
	b.Mov(17)
	b.Binary(bytecode.OpDiv, bytecode.TypeFloat, 17, 14)
	b.Mov(18) // x1 = (-b - sqrt(D)) / 2a
	b.Binary(bytecode.OpAdd, bytecode.TypeFloat, 15, 16)
	b.Mov(19)
	b.Binary(bytecode.OpDiv, bytecode.TypeFloat, 19, 14)
	b.Mov(20) // x2 = (-b + sqrt(D)) / 2a

	b.Binary(bytecode.OpLess, bytecode.TypeFloat, 20, 18)
	b.Mov(21)
	b.BranchTo(21, swapped)
	b.Write(bytecode.TypeFloat, 18)
	b.Write(bytecode.TypeFloat, 20)
	b.Halt()

	b.Mark(swapped)
	b.Write(bytecode.TypeFloat, 20)
	b.Write(bytecode.TypeFloat, 18)
	b.Halt()

	b.Mark(oneRoot)
	b.Binary(bytecode.OpDiv, bytecode.TypeFloat, 15, 14)
	b.Mov(18)
	b.Write(bytecode.TypeFloat, 18)
	b.Halt()

	b.Mark(noRoots)
	b.Halt()

	return b.MustBuild()
}

// ---------------------------------------------------------------------------
// Heap
// ---------------------------------------------------------------------------

// ArrayStore allocates an Int array of 10 elements, stores 0xD into
// element 2 and reads it back into the accumulator. The array reference
// is left in r2.
func ArrayStore() bytecode.Code {
	b := bytecode.NewBuilder()

	b.ImmInt(10)
	b.Mov(1)
	b.NewArray(KlassInt, 1)
	b.Mov(2) // array
	b.ImmInt(2)
	b.Mov(3) // index
	b.Gep(2, 3)
	b.Mov(4) // element reference
	b.ImmInt(0xD)
	b.Mov(5)
	b.SetField(4, 5, 0)

	b.ImmInt(0)
	b.Mov(4)
	b.Gep(2, 3)
	b.Mov(6)
	b.GetField(6, 0)
	b.Halt()

	return b.MustBuild()
}

// PointLayout is the klass used by Distance: two packed Int fields.
var PointLayout = KlassLayout{Name: "Point", Sizes: []int{4, 4}}

// Distance builds the point (3, 4) as an object of the first user klass
// and prints its integer distance from the origin.
func Distance() bytecode.Code {
	b := bytecode.NewBuilder()

	b.New(FirstUserKlass)
	b.Mov(1)
	b.ImmInt(3)
	b.Mov(2)
	b.SetField(1, 2, 0)
	b.ImmInt(4)
	b.Mov(3)
	b.SetField(1, 3, 1)

	b.GetField(1, 0)
	b.Mov(4)
	b.GetField(1, 1)
	b.Mov(5)
	b.Binary(bytecode.OpMul, bytecode.TypeInt, 4, 4)
	b.Mov(6)
	b.Binary(bytecode.OpMul, bytecode.TypeInt, 5, 5)
	b.Mov(7)
	b.Binary(bytecode.OpAdd, bytecode.TypeInt, 6, 7)
	b.Mov(8)
	b.Unary(bytecode.OpSqrt, bytecode.TypeInt, 8)
	b.Mov(9)
	b.Write(bytecode.TypeInt, 9)
	b.Halt()

	return b.MustBuild()
}

// ---------------------------------------------------------------------------
// Registry
// ---------------------------------------------------------------------------

// All returns every sample program with default arguments, sorted by name.
func All() []Program {
	ps := []Program{
		{Name: "factorial", Description: "recursive 5!", Code: Factorial(5)},
		{Name: "sum", Description: "recursive 1+2+3+4+5", Code: Sum(5)},
		{Name: "loop", Description: "counted loop of 10 iterations", Code: Loop(10)},
		{Name: "quadratic", Description: "real roots of a*x^2+b*x+c", Input: "1 3 2", Code: Quadratic()},
		{Name: "array", Description: "store and load through an Int array", Code: ArrayStore()},
		{Name: "distance", Description: "integer length of a Point object",
			Klasses: []KlassLayout{PointLayout}, Code: Distance()},
	}
	sort.Slice(ps, func(i, j int) bool { return ps[i].Name < ps[j].Name })
	return ps
}

// Lookup returns the sample program with the given name.
func Lookup(name string) (Program, bool) {
	for _, p := range All() {
		if p.Name == name {
			return p, true
		}
	}
	return Program{}, false
}

// Names returns the names of all sample programs.
func Names() []string {
	var names []string
	for _, p := range All() {
		names = append(names, p.Name)
	}
	return names
}
