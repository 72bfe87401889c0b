package registry

import (
	"fmt"
	"slices"

	"github.com/vk/fieldgrid/internal/field"
	"github.com/vk/fieldgrid/internal/fieldops"
)

// Default returns a registry holding every built-in field type.
func Default() *Registry {
	r := New()
	registerArithmetic(r)
	registerComposite(r)
	registerVectorMatrix(r)
	registerMesh(r)
	return r
}

func unary(typ, desc string, fn func(fieldops.Module, *field.Field) (*field.Field, error)) Entry {
	return Entry{Type: typ, Description: desc, MinSources: 1, MaxSources: 1,
		Build: func(mod fieldops.Module, a Args) (*field.Field, error) {
			return fn(mod, a.Sources[0])
		}}
}

func binary(typ, desc string, fn func(fieldops.Module, *field.Field, *field.Field) (*field.Field, error)) Entry {
	return Entry{Type: typ, Description: desc, MinSources: 2, MaxSources: 2,
		Build: func(mod fieldops.Module, a Args) (*field.Field, error) {
			return fn(mod, a.Sources[0], a.Sources[1])
		}}
}

// broadcast repeats a single value to n components.
func broadcast(values []float64, n int) []float64 {
	if len(values) == 1 && n > 1 {
		return slices.Repeat(values, n)
	}
	return values
}

// withConstant builds a helper constant from the description's values and
// passes it to fn. The helper is unnamed and lives as long as its user.
func withConstant(mod fieldops.Module, a Args, fn func(limit *field.Field) (*field.Field, error)) (*field.Field, error) {
	helper := fieldops.NewModule(mod.Manager())
	k, err := helper.Constant(broadcast(a.Spec.Values, a.Sources[0].ComponentCount())...)
	if err != nil {
		return nil, err
	}
	defer k.Release()
	return fn(k)
}

func registerArithmetic(r *Registry) {
	r.MustRegister(
		Entry{Type: "constant", Description: "fixed values", NeedsValues: true,
			Build: func(mod fieldops.Module, a Args) (*field.Field, error) {
				return mod.Constant(a.Spec.Values...)
			}},
		Entry{Type: "add", Description: "weighted sum w1*a + w2*b; weights default to 1", MinSources: 2, MaxSources: 2,
			Build: func(mod fieldops.Module, a Args) (*field.Field, error) {
				w := []float64{1, 1}
				switch len(a.Spec.Values) {
				case 0:
				case 2:
					w = a.Spec.Values
				default:
					return nil, fmt.Errorf("field type %q takes two weights, got %d", a.Spec.Type, len(a.Spec.Values))
				}
				return mod.WeightedAdd(a.Sources[0], w[0], a.Sources[1], w[1])
			}},
		Entry{Type: "scale", Description: "componentwise scale factors", MinSources: 1, MaxSources: 1, NeedsValues: true,
			Build: func(mod fieldops.Module, a Args) (*field.Field, error) {
				return mod.Scale(a.Sources[0], broadcast(a.Spec.Values, a.Sources[0].ComponentCount())...)
			}},
		Entry{Type: "offset", Description: "componentwise offsets", MinSources: 1, MaxSources: 1, NeedsValues: true,
			Build: func(mod fieldops.Module, a Args) (*field.Field, error) {
				return mod.Offset(a.Sources[0], broadcast(a.Spec.Values, a.Sources[0].ComponentCount())...)
			}},
		binary("multiply_components", "componentwise product", fieldops.Module.Multiply),
		binary("divide_components", "componentwise quotient", fieldops.Module.Divide),
		binary("power", "componentwise a^b", fieldops.Module.Power),
		binary("atan2", "componentwise atan2(a, b)", fieldops.Module.Atan2),
		unary("sqrt", "square root", fieldops.Module.Sqrt),
		unary("log", "natural logarithm", fieldops.Module.Log),
		unary("exp", "exponential", fieldops.Module.Exp),
		unary("abs", "absolute value", fieldops.Module.Abs),
		unary("sin", "sine", fieldops.Module.Sin),
		unary("cos", "cosine", fieldops.Module.Cos),
		unary("tan", "tangent", fieldops.Module.Tan),
		unary("asin", "arcsine", fieldops.Module.Asin),
		unary("acos", "arccosine", fieldops.Module.Acos),
		unary("atan", "arctangent", fieldops.Module.Atan),
		Entry{Type: "clamp_minimum", Description: "componentwise max(a, limit)", MinSources: 1, MaxSources: 1, NeedsValues: true,
			Build: func(mod fieldops.Module, a Args) (*field.Field, error) {
				return withConstant(mod, a, func(k *field.Field) (*field.Field, error) {
					return mod.ClampMinimum(a.Sources[0], k)
				})
			}},
		Entry{Type: "clamp_maximum", Description: "componentwise min(a, limit)", MinSources: 1, MaxSources: 1, NeedsValues: true,
			Build: func(mod fieldops.Module, a Args) (*field.Field, error) {
				return withConstant(mod, a, func(k *field.Field) (*field.Field, error) {
					return mod.ClampMaximum(a.Sources[0], k)
				})
			}},
	)
}

func logical(t field.Type) Entry {
	return binary(t.String(), "componentwise "+t.String()+", 1 or 0",
		func(mod fieldops.Module, a, b *field.Field) (*field.Field, error) {
			return mod.Logical(t, a, b)
		})
}

func registerComposite(r *Registry) {
	r.MustRegister(
		Entry{Type: "component", Description: "selected 1-based components", MinSources: 1, MaxSources: 1,
			Build: func(mod fieldops.Module, a Args) (*field.Field, error) {
				return mod.Component(a.Sources[0], zeroBased(a.Spec.Components)...)
			}},
		Entry{Type: "concatenate", Description: "components of every source in order", MinSources: 1, MaxSources: -1,
			Build: func(mod fieldops.Module, a Args) (*field.Field, error) {
				return mod.Concatenate(a.Sources...)
			}},
		unary("identity", "copy of the source", fieldops.Module.Identity),
		Entry{Type: "if", Description: "componentwise choice by a non-zero condition", MinSources: 3, MaxSources: 3,
			Build: func(mod fieldops.Module, a Args) (*field.Field, error) {
				return mod.If(a.Sources[0], a.Sources[1], a.Sources[2])
			}},
		logical(field.TypeAnd),
		logical(field.TypeOr),
		logical(field.TypeXor),
		logical(field.TypeEqualTo),
		logical(field.TypeGreaterThan),
		logical(field.TypeLessThan),
		unary("not", "componentwise logical not", fieldops.Module.Not),
		Entry{Type: "time_value", Description: "the evaluation time",
			Build: func(mod fieldops.Module, _ Args) (*field.Field, error) { return mod.TimeValue() }},
		binary("time_lookup", "source evaluated at the time given by the second source", fieldops.Module.TimeLookup),
		Entry{Type: "xi", Description: "element chart coordinates",
			Build: func(mod fieldops.Module, _ Args) (*field.Field, error) { return mod.Xi() }},
		Entry{Type: "cmiss_number", Description: "identifier of the node or element at the location",
			Build: func(mod fieldops.Module, _ Args) (*field.Field, error) { return mod.CmissNumber() }},
	)
}

func registerVectorMatrix(r *Registry) {
	r.MustRegister(
		binary("dot_product", "scalar product", fieldops.Module.DotProduct),
		binary("cross_product", "3D vector product", fieldops.Module.CrossProduct),
		unary("magnitude", "Euclidean norm", fieldops.Module.Magnitude),
		unary("normalise", "unit vector", fieldops.Module.Normalise),
		Entry{Type: "sum_components", Description: "weighted sum of components; weights default to 1", MinSources: 1, MaxSources: 1,
			Build: func(mod fieldops.Module, a Args) (*field.Field, error) {
				w := a.Spec.Values
				if len(w) == 0 {
					w = slices.Repeat([]float64{1}, a.Sources[0].ComponentCount())
				}
				return mod.SumComponents(a.Sources[0], w...)
			}},
		unary("determinant", "determinant of a square matrix", fieldops.Module.Determinant),
		Entry{Type: "matrix_multiply", Description: "matrix product; rows of the first matrix required", MinSources: 2, MaxSources: 2,
			Build: func(mod fieldops.Module, a Args) (*field.Field, error) {
				return mod.MatrixMultiply(a.Spec.Rows, a.Sources[0], a.Sources[1])
			}},
		Entry{Type: "transpose", Description: "matrix transpose; rows of the source required", MinSources: 1, MaxSources: 1,
			Build: func(mod fieldops.Module, a Args) (*field.Field, error) {
				return mod.Transpose(a.Spec.Rows, a.Sources[0])
			}},
		unary("matrix_invert", "inverse of a square matrix", fieldops.Module.MatrixInvert),
		unary("eigenvalues", "eigenvalues of a symmetric matrix, largest first", fieldops.Module.Eigenvalues),
		unary("eigenvectors", "unit eigenvectors of an eigenvalues source, in its order", fieldops.Module.Eigenvectors),
		binary("projection", "homogeneous projection by a matrix", fieldops.Module.Projection),
		unary("coordinate_transformation", "coordinates converted to this field's coordinate system", fieldops.Module.CoordinateTransformation),
		binary("vector_coordinate_transformation", "vectors at coordinates converted to this field's coordinate system",
			fieldops.Module.VectorCoordinateTransformation),
	)
}

func nodeset(t field.Type) Entry {
	return Entry{Type: t.String(), Description: t.String() + " of the source over a nodeset",
		MinSources: 1, MaxSources: 1, NeedsNodeset: true,
		Build: func(mod fieldops.Module, a Args) (*field.Field, error) {
			return mod.NodesetOperator(t, a.Sources[0], a.Nodeset)
		}}
}

func registerMesh(r *Registry) {
	r.MustRegister(
		Entry{Type: "derivative", Description: "xi derivative by the 1-based xi_index", MinSources: 1, MaxSources: 1, NeedsMesh: true,
			Build: func(mod fieldops.Module, a Args) (*field.Field, error) {
				return mod.Derivative(a.Sources[0], a.Mesh, a.Spec.XiIndex-1)
			}},
		binary("gradient", "gradient with respect to the coordinates", fieldops.Module.Gradient),
		binary("divergence", "divergence with respect to the coordinates", fieldops.Module.Divergence),
		binary("curl", "curl with respect to 3D coordinates", fieldops.Module.Curl),
		Entry{Type: "node_lookup", Description: "source evaluated at one node of a nodeset", MinSources: 1, MaxSources: 1, NeedsNodeset: true,
			Build: func(mod fieldops.Module, a Args) (*field.Field, error) {
				return mod.NodeLookup(a.Sources[0], a.Nodeset, a.Spec.Node)
			}},
		nodeset(field.TypeNodesetSum),
		nodeset(field.TypeNodesetMean),
		nodeset(field.TypeNodesetSumSquares),
		nodeset(field.TypeNodesetMeanSquares),
		nodeset(field.TypeNodesetMinimum),
		nodeset(field.TypeNodesetMaximum),
		Entry{Type: "group", Description: "1 at nodes of the nodeset and in elements of the mesh, else 0",
			Build: func(mod fieldops.Module, a Args) (*field.Field, error) {
				return mod.Group(a.Nodeset, a.Mesh)
			}},
		Entry{Type: "compose", Description: "texture field evaluated where find matches calculate on the mesh", MinSources: 3, MaxSources: 3, NeedsMesh: true,
			Build: func(mod fieldops.Module, a Args) (*field.Field, error) {
				return mod.Compose(a.Sources[0], a.Sources[1], a.Sources[2], a.Mesh, a.Spec.FindNearest)
			}},
	)
}
