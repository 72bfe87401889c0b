package hcl

import (
	"fmt"
	"strings"

	"github.com/hashicorp/hcl/v2"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/convert"
	"github.com/zclconf/go-cty/cty/gocty"
)

// decodeSources reads a `sources` list. Each item is either a bare
// reference (`coordinates`, `coordinates.y`, `coordinates[2]`) or a string
// holding one.
func decodeSources(expr hcl.Expression) ([]string, hcl.Diagnostics) {
	if expr == nil {
		return nil, nil
	}
	if v, diags := expr.Value(nil); !diags.HasErrors() {
		if v.IsNull() {
			return nil, nil
		}
		return decodeSourceStrings(v, expr.Range())
	}

	items, diags := hcl.ExprList(expr)
	if diags.HasErrors() {
		return nil, diags
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		if trav, tdiags := hcl.AbsTraversalForExpr(item); !tdiags.HasErrors() {
			ref, err := traversalRef(trav)
			if err != nil {
				diags = append(diags, &hcl.Diagnostic{
					Severity: hcl.DiagError,
					Summary:  "Invalid source reference",
					Detail:   err.Error(),
					Subject:  item.Range().Ptr(),
				})
				continue
			}
			out = append(out, ref)
			continue
		}
		v, vdiags := item.Value(nil)
		if vdiags.HasErrors() || v.Type() != cty.String || v.IsNull() {
			diags = append(diags, &hcl.Diagnostic{
				Severity: hcl.DiagError,
				Summary:  "Invalid source reference",
				Detail:   "A source must be a field reference such as coordinates or coordinates.x.",
				Subject:  item.Range().Ptr(),
			})
			continue
		}
		out = append(out, v.AsString())
	}
	return out, diags
}

func decodeSourceStrings(v cty.Value, rng hcl.Range) ([]string, hcl.Diagnostics) {
	converted, err := convert.Convert(v, cty.List(cty.String))
	var out []string
	if err == nil {
		err = gocty.FromCtyValue(converted, &out)
	}
	if err != nil {
		return nil, hcl.Diagnostics{{
			Severity: hcl.DiagError,
			Summary:  "Invalid sources",
			Detail:   fmt.Sprintf("Sources must be a list of field references: %s.", err),
			Subject:  rng.Ptr(),
		}}
	}
	return out, nil
}

// traversalRef renders a traversal such as a.b or a[2] in fieldref form.
func traversalRef(trav hcl.Traversal) (string, error) {
	var sb strings.Builder
	sb.WriteString(trav.RootName())
	for _, step := range trav[1:] {
		switch s := step.(type) {
		case hcl.TraverseAttr:
			sb.WriteString("." + s.Name)
		case hcl.TraverseIndex:
			if s.Key.Type() != cty.Number {
				return "", fmt.Errorf("component index must be a number")
			}
			var n int
			if err := gocty.FromCtyValue(s.Key, &n); err != nil {
				return "", fmt.Errorf("component index: %w", err)
			}
			fmt.Fprintf(&sb, "[%d]", n)
		default:
			return "", fmt.Errorf("unsupported reference step %T", step)
		}
	}
	return sb.String(), nil
}
