package field

// Type identifies the kind of a field core.
type Type int

const (
	TypeInvalid Type = iota
	TypeConstant
	TypeAdd
	TypeScale
	TypeOffset
	TypeMultiply
	TypeDivide
	TypePower
	TypeSqrt
	TypeLog
	TypeExp
	TypeAbs
	TypeSin
	TypeCos
	TypeTan
	TypeAsin
	TypeAcos
	TypeAtan
	TypeAtan2
	TypeClampMinimum
	TypeClampMaximum
	TypeComposite
	TypeIf
	TypeAnd
	TypeOr
	TypeXor
	TypeNot
	TypeEqualTo
	TypeGreaterThan
	TypeLessThan
	TypeDotProduct
	TypeCrossProduct
	TypeMagnitude
	TypeNormalise
	TypeSumComponents
	TypeDeterminant
	TypeMatrixMultiply
	TypeTranspose
	TypeMatrixInvert
	TypeEigenvalues
	TypeEigenvectors
	TypeProjection
	TypeCoordinateTransformation
	TypeVectorCoordinateTransformation
	TypeTimeValue
	TypeTimeLookup
	TypeXi
	TypeCmissNumber
	TypeFiniteElement
	TypeDerivative
	TypeGradient
	TypeDivergence
	TypeCurl
	TypeNodeLookup
	TypeNodesetSum
	TypeNodesetMean
	TypeNodesetSumSquares
	TypeNodesetMeanSquares
	TypeNodesetMinimum
	TypeNodesetMaximum
	TypeCompose
	TypeGroup
	typeCount
)

var typeNames = [typeCount]string{
	TypeInvalid:                        "invalid",
	TypeConstant:                       "constant",
	TypeAdd:                            "add",
	TypeScale:                          "scale",
	TypeOffset:                         "offset",
	TypeMultiply:                       "multiply_components",
	TypeDivide:                         "divide_components",
	TypePower:                          "power",
	TypeSqrt:                           "sqrt",
	TypeLog:                            "log",
	TypeExp:                            "exp",
	TypeAbs:                            "abs",
	TypeSin:                            "sin",
	TypeCos:                            "cos",
	TypeTan:                            "tan",
	TypeAsin:                           "asin",
	TypeAcos:                           "acos",
	TypeAtan:                           "atan",
	TypeAtan2:                          "atan2",
	TypeClampMinimum:                   "clamp_minimum",
	TypeClampMaximum:                   "clamp_maximum",
	TypeComposite:                      "composite",
	TypeIf:                             "if",
	TypeAnd:                            "and",
	TypeOr:                             "or",
	TypeXor:                            "xor",
	TypeNot:                            "not",
	TypeEqualTo:                        "equal_to",
	TypeGreaterThan:                    "greater_than",
	TypeLessThan:                       "less_than",
	TypeDotProduct:                     "dot_product",
	TypeCrossProduct:                   "cross_product",
	TypeMagnitude:                      "magnitude",
	TypeNormalise:                      "normalise",
	TypeSumComponents:                  "sum_components",
	TypeDeterminant:                    "determinant",
	TypeMatrixMultiply:                 "matrix_multiply",
	TypeTranspose:                      "transpose",
	TypeMatrixInvert:                   "matrix_invert",
	TypeEigenvalues:                    "eigenvalues",
	TypeEigenvectors:                   "eigenvectors",
	TypeProjection:                     "projection",
	TypeCoordinateTransformation:       "coordinate_transformation",
	TypeVectorCoordinateTransformation: "vector_coordinate_transformation",
	TypeTimeValue:                      "time_value",
	TypeTimeLookup:                     "time_lookup",
	TypeXi:                             "xi",
	TypeCmissNumber:                    "cmiss_number",
	TypeFiniteElement:                  "finite_element",
	TypeDerivative:                     "derivative",
	TypeGradient:                       "gradient",
	TypeDivergence:                     "divergence",
	TypeCurl:                           "curl",
	TypeNodeLookup:                     "node_lookup",
	TypeNodesetSum:                     "nodeset_sum",
	TypeNodesetMean:                    "nodeset_mean",
	TypeNodesetSumSquares:              "nodeset_sum_squares",
	TypeNodesetMeanSquares:             "nodeset_mean_squares",
	TypeNodesetMinimum:                 "nodeset_minimum",
	TypeNodesetMaximum:                 "nodeset_maximum",
	TypeCompose:                        "compose",
	TypeGroup:                          "group",
}

// String returns the type string used in descriptions and logs.
func (t Type) String() string {
	if t < 0 || t >= typeCount {
		return "invalid"
	}
	return typeNames[t]
}

// ParseType maps a type string back to its Type.
func ParseType(s string) (Type, bool) {
	for t := TypeConstant; t < typeCount; t++ {
		if typeNames[t] == s {
			return t, true
		}
	}
	return TypeInvalid, false
}

// Types lists every valid type in declaration order.
func Types() []Type {
	out := make([]Type, 0, typeCount-1)
	for t := TypeConstant; t < typeCount; t++ {
		out = append(out, t)
	}
	return out
}
