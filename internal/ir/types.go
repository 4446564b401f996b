package ir

import "fmt"

// ValType is the set of concrete, unboxed value representations a local
// can carry (spec.md §3 "Types").
type ValType int

const (
	ValNil ValType = iota
	ValBool
	ValChar
	ValInt
	ValFloat
	ValString
	ValSymbol
	ValCons
	ValVector
	ValUVectorS64
	ValUVectorF64
	ValClosure
)

func (v ValType) String() string {
	switch v {
	case ValNil:
		return "nil"
	case ValBool:
		return "bool"
	case ValChar:
		return "char"
	case ValInt:
		return "int"
	case ValFloat:
		return "float"
	case ValString:
		return "string"
	case ValSymbol:
		return "symbol"
	case ValCons:
		return "cons"
	case ValVector:
		return "vector"
	case ValUVectorS64:
		return "uvector<s64>"
	case ValUVectorF64:
		return "uvector<f64>"
	case ValClosure:
		return "closure"
	default:
		return fmt.Sprintf("ValType(%d)", int(v))
	}
}

// TypeKind distinguishes the universal boxed form from a statically known
// value type (spec.md §3 "Type = Obj | Val(ValType)").
type TypeKind int

const (
	KindObj TypeKind = iota
	KindVal
)

// Type is the two-case sum Obj | Val(ValType). Obj is the universal boxed
// representation every Scheme value can be upcast into.
type Type struct {
	Kind TypeKind
	Val  ValType // meaningful only when Kind == KindVal
}

// Obj constructs the universal boxed type.
func Obj() Type { return Type{Kind: KindObj} }

// Val constructs a statically-typed value type.
func Val(vt ValType) Type { return Type{Kind: KindVal, Val: vt} }

func (t Type) String() string {
	if t.Kind == KindObj {
		return "obj"
	}
	return t.Val.String()
}

// IsObj reports whether t is the universal boxed form.
func (t Type) IsObj() bool { return t.Kind == KindObj }

// Equal compares two Types structurally.
func (t Type) Equal(o Type) bool {
	return t.Kind == o.Kind && (t.Kind == KindObj || t.Val == o.Val)
}

// LocalKind tags the six shapes a local's storage class can take (spec.md
// §3 "LocalType").
type LocalKind int

const (
	LocalPlain LocalKind = iota
	LocalRef             // heap cell: captured-and-mutated source variable (box_vars)
	LocalVariadicArgs
	LocalMutFuncRef
	LocalEntrypointTable
	LocalFuncRef
)

// LocalType is the full type annotation carried by every entry in a
// Function's local table.
type LocalType struct {
	Kind LocalKind
	Elem Type // meaningful for LocalPlain and LocalRef: the Type(Type)/Ref(Type) payload
}

// PlainType wraps a Type as a directly-held (non-cell) local.
func PlainType(t Type) LocalType { return LocalType{Kind: LocalPlain, Elem: t} }

// RefType wraps a Type as a heap-cell local (box_vars member).
func RefType(t Type) LocalType { return LocalType{Kind: LocalRef, Elem: t} }

// VariadicArgsType is the local materialized at call entry for a
// variadic lambda's overflow arguments.
func VariadicArgsType() LocalType { return LocalType{Kind: LocalVariadicArgs} }

// MutFuncRefType is one entrypoint-table slot: a mutable function
// reference re-targetable by JIT specialization.
func MutFuncRefType() LocalType { return LocalType{Kind: LocalMutFuncRef} }

// EntrypointTableType is a closure's whole per-arity dispatch table.
func EntrypointTableType() LocalType { return LocalType{Kind: LocalEntrypointTable} }

// FuncRefType is an immutable function reference (a stub or real
// function's address, stored in a JIT global slot).
func FuncRefType() LocalType { return LocalType{Kind: LocalFuncRef} }

func (lt LocalType) String() string {
	switch lt.Kind {
	case LocalPlain:
		return lt.Elem.String()
	case LocalRef:
		return "ref<" + lt.Elem.String() + ">"
	case LocalVariadicArgs:
		return "variadic-args"
	case LocalMutFuncRef:
		return "mut-func-ref"
	case LocalEntrypointTable:
		return "entrypoint-table"
	case LocalFuncRef:
		return "func-ref"
	default:
		return fmt.Sprintf("LocalType(%d)", int(lt.Kind))
	}
}
