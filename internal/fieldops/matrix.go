package fieldops

import (
	"math"
	"slices"

	"gonum.org/v1/gonum/mat"

	"github.com/vk/fieldgrid/internal/field"
)

// Matrices are stored row-major in field components.

func squareSize(n int) (int, bool) {
	k := int(math.Round(math.Sqrt(float64(n))))
	return k, k*k == n
}

// cofactors returns the cofactor matrix of the k×k matrix a, so that
// d(det a) = sum cof[i] * da[i].
func cofactors(a []float64, k int) []float64 {
	cof := make([]float64, k*k)
	if k == 1 {
		cof[0] = 1
		return cof
	}
	minor := make([]float64, (k-1)*(k-1))
	for i := 0; i < k; i++ {
		for j := 0; j < k; j++ {
			m := 0
			for r := 0; r < k; r++ {
				if r == i {
					continue
				}
				for s := 0; s < k; s++ {
					if s == j {
						continue
					}
					minor[m] = a[r*k+s]
					m++
				}
			}
			sign := 1.0
			if (i+j)%2 == 1 {
				sign = -1
			}
			cof[i*k+j] = sign * mat.Det(mat.NewDense(k-1, k-1, slices.Clone(minor)))
		}
	}
	return cof
}

type determinantCore struct {
	field.Base
}

func (*determinantCore) Type() field.Type { return field.TypeDeterminant }

func (*determinantCore) Evaluate(c *field.Cache, f *field.Field, vc *field.ValueCache) error {
	src, err := c.Values(f.Source(0))
	if err != nil {
		return err
	}
	k, _ := squareSize(len(src.Values))
	vc.Values[0] = mat.Det(mat.NewDense(k, k, slices.Clone(src.Values)))
	return nil
}

func (*determinantCore) EvaluateDerivative(c *field.Cache, f *field.Field, vc *field.ValueCache, d *field.Derivative) error {
	if d.Order() > 1 {
		return field.UnsupportedDerivativef("field %q of type determinant: order %d", f.Name(), d.Order())
	}
	src, err := c.Values(f.Source(0))
	if err != nil {
		return err
	}
	ds, err := c.DerivativeValues(f.Source(0), d)
	if err != nil {
		return err
	}
	k, _ := squareSize(len(src.Values))
	cof := cofactors(src.Values, k)
	out := vc.Derivative(d).Values
	terms := d.TermCount()
	for t := 0; t < terms; t++ {
		sum := 0.0
		for i, w := range cof {
			sum += w * ds.Values[i*terms+t]
		}
		out[t] = sum
	}
	return nil
}

func (*determinantCore) DerivativeTreeOrder(f *field.Field, d *field.Derivative) int {
	return nonlinearTreeOrder(f, d)
}

func (*determinantCore) Compare(other field.Core) bool {
	_, ok := other.(*determinantCore)
	return ok
}

func (*determinantCore) Copy() field.Core { return &determinantCore{} }

// Determinant creates the determinant of a square matrix of up to 3×3.
func (mod Module) Determinant(src *field.Field) (*field.Field, error) {
	if err := checkSources("determinant", src); err != nil {
		return nil, err
	}
	if k, ok := squareSize(src.ComponentCount()); !ok || k > 3 {
		return nil, field.InvalidArgumentf("determinant: %d components is not a square matrix up to 3x3", src.ComponentCount())
	}
	return mod.create(&determinantCore{}, 1, src)
}

// matrixMultiplyCore computes A (rows×inner) times B (inner×cols).
type matrixMultiplyCore struct {
	field.Base
	rows int
}

func (*matrixMultiplyCore) Type() field.Type { return field.TypeMatrixMultiply }

func (k *matrixMultiplyCore) shape(f *field.Field) (rows, inner, cols int) {
	rows = k.rows
	inner = f.Source(0).ComponentCount() / rows
	cols = f.Source(1).ComponentCount() / inner
	return rows, inner, cols
}

func (k *matrixMultiplyCore) Evaluate(c *field.Cache, f *field.Field, vc *field.ValueCache) error {
	a, b, err := twoValues(c, f)
	if err != nil {
		return err
	}
	rows, inner, cols := k.shape(f)
	out := mat.NewDense(rows, cols, vc.Values)
	out.Mul(mat.NewDense(rows, inner, slices.Clone(a)), mat.NewDense(inner, cols, slices.Clone(b)))
	return nil
}

func (k *matrixMultiplyCore) EvaluateDerivative(c *field.Cache, f *field.Field, vc *field.ValueCache, d *field.Derivative) error {
	if d.Order() > 1 {
		return field.UnsupportedDerivativef("field %q of type matrix_multiply: order %d", f.Name(), d.Order())
	}
	a, b, err := twoValues(c, f)
	if err != nil {
		return err
	}
	da, db, err := twoDerivatives(c, f, d)
	if err != nil {
		return err
	}
	rows, inner, cols := k.shape(f)
	am := mat.NewDense(rows, inner, slices.Clone(a))
	bm := mat.NewDense(inner, cols, slices.Clone(b))
	out := vc.Derivative(d).Values
	terms := d.TermCount()
	var p, q mat.Dense
	for t := 0; t < terms; t++ {
		p.Mul(termMatrix(da, rows, inner, terms, t), bm)
		q.Mul(am, termMatrix(db, inner, cols, terms, t))
		for i := 0; i < rows; i++ {
			for j := 0; j < cols; j++ {
				out[(i*cols+j)*terms+t] = p.At(i, j) + q.At(i, j)
			}
		}
	}
	return nil
}

// termMatrix extracts derivative term t of every component as a matrix.
func termMatrix(derivs []float64, rows, cols, terms, t int) *mat.Dense {
	m := mat.NewDense(rows, cols, nil)
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			m.Set(i, j, derivs[(i*cols+j)*terms+t])
		}
	}
	return m
}

func (*matrixMultiplyCore) DerivativeTreeOrder(f *field.Field, d *field.Derivative) int {
	return productTreeOrder(f, d)
}

func (k *matrixMultiplyCore) Compare(other field.Core) bool {
	o, ok := other.(*matrixMultiplyCore)
	return ok && o.rows == k.rows
}

func (k *matrixMultiplyCore) Copy() field.Core { return &matrixMultiplyCore{rows: k.rows} }

// MatrixMultiply creates a×b where a has the given number of rows.
func (mod Module) MatrixMultiply(rows int, a, b *field.Field) (*field.Field, error) {
	if err := checkSources("matrix_multiply", a, b); err != nil {
		return nil, err
	}
	na, nb := a.ComponentCount(), b.ComponentCount()
	if rows < 1 || na%rows != 0 {
		return nil, field.InvalidArgumentf("matrix_multiply: %d components cannot form %d rows", na, rows)
	}
	inner := na / rows
	if nb%inner != 0 {
		return nil, field.InvalidArgumentf("matrix_multiply: %d components cannot form %d rows", nb, inner)
	}
	return mod.create(&matrixMultiplyCore{rows: rows}, rows*(nb/inner), a, b)
}

type transposeCore struct {
	field.Base
	sourceRows int
}

func (*transposeCore) Type() field.Type { return field.TypeTranspose }

// index maps output component i to its source component.
func (k *transposeCore) index(n, i int) int {
	cols := n / k.sourceRows
	// Output is cols×sourceRows.
	r, c := i/k.sourceRows, i%k.sourceRows
	return c*cols + r
}

func (k *transposeCore) Evaluate(c *field.Cache, f *field.Field, vc *field.ValueCache) error {
	src, err := c.Values(f.Source(0))
	if err != nil {
		return err
	}
	for i := range vc.Values {
		vc.Values[i] = src.Values[k.index(len(vc.Values), i)]
	}
	return nil
}

func (k *transposeCore) EvaluateDerivative(c *field.Cache, f *field.Field, vc *field.ValueCache, d *field.Derivative) error {
	ds, err := c.DerivativeValues(f.Source(0), d)
	if err != nil {
		return err
	}
	out := vc.Derivative(d).Values
	n := f.ComponentCount()
	for i := 0; i < n; i++ {
		copyTerms(out, i, ds.Values, k.index(n, i), d.TermCount())
	}
	return nil
}

func (k *transposeCore) Compare(other field.Core) bool {
	o, ok := other.(*transposeCore)
	return ok && o.sourceRows == k.sourceRows
}

func (k *transposeCore) Copy() field.Core { return &transposeCore{sourceRows: k.sourceRows} }

// Transpose creates the transpose of src read as a matrix with sourceRows
// rows.
func (mod Module) Transpose(sourceRows int, src *field.Field) (*field.Field, error) {
	if err := checkSources("transpose", src); err != nil {
		return nil, err
	}
	if sourceRows < 1 || src.ComponentCount()%sourceRows != 0 {
		return nil, field.InvalidArgumentf("transpose: %d components cannot form %d rows", src.ComponentCount(), sourceRows)
	}
	return mod.create(&transposeCore{sourceRows: sourceRows}, src.ComponentCount(), src)
}

type matrixInvertCore struct {
	field.Base
}

func (*matrixInvertCore) Type() field.Type { return field.TypeMatrixInvert }

func invert(f *field.Field, values []float64) (*mat.Dense, error) {
	k, _ := squareSize(len(values))
	var inv mat.Dense
	if err := inv.Inverse(mat.NewDense(k, k, slices.Clone(values))); err != nil {
		return nil, field.NotDefinedf("field %q: matrix is singular: %v", f.Name(), err)
	}
	return &inv, nil
}

func (*matrixInvertCore) Evaluate(c *field.Cache, f *field.Field, vc *field.ValueCache) error {
	src, err := c.Values(f.Source(0))
	if err != nil {
		return err
	}
	inv, err := invert(f, src.Values)
	if err != nil {
		return err
	}
	k, _ := squareSize(len(src.Values))
	for i := 0; i < k; i++ {
		for j := 0; j < k; j++ {
			vc.Values[i*k+j] = inv.At(i, j)
		}
	}
	return nil
}

func (*matrixInvertCore) EvaluateDerivative(c *field.Cache, f *field.Field, vc *field.ValueCache, d *field.Derivative) error {
	if d.Order() > 1 {
		return field.UnsupportedDerivativef("field %q of type matrix_invert: order %d", f.Name(), d.Order())
	}
	src, err := c.Values(f.Source(0))
	if err != nil {
		return err
	}
	ds, err := c.DerivativeValues(f.Source(0), d)
	if err != nil {
		return err
	}
	inv, err := invert(f, src.Values)
	if err != nil {
		return err
	}
	k, _ := squareSize(len(src.Values))
	out := vc.Derivative(d).Values
	terms := d.TermCount()
	var tmp, res mat.Dense
	for t := 0; t < terms; t++ {
		// d(A^-1) = -A^-1 dA A^-1
		tmp.Mul(inv, termMatrix(ds.Values, k, k, terms, t))
		res.Mul(&tmp, inv)
		for i := 0; i < k; i++ {
			for j := 0; j < k; j++ {
				out[(i*k+j)*terms+t] = -res.At(i, j)
			}
		}
	}
	return nil
}

func (*matrixInvertCore) DerivativeTreeOrder(f *field.Field, d *field.Derivative) int {
	return nonlinearTreeOrder(f, d)
}

func (*matrixInvertCore) Compare(other field.Core) bool {
	_, ok := other.(*matrixInvertCore)
	return ok
}

func (*matrixInvertCore) Copy() field.Core { return &matrixInvertCore{} }

// MatrixInvert creates the inverse of a square matrix. It is undefined where
// the matrix is singular.
func (mod Module) MatrixInvert(src *field.Field) (*field.Field, error) {
	if err := checkSources("matrix_invert", src); err != nil {
		return nil, err
	}
	if _, ok := squareSize(src.ComponentCount()); !ok {
		return nil, field.InvalidArgumentf("matrix_invert: %d components is not a square matrix", src.ComponentCount())
	}
	return mod.create(&matrixInvertCore{}, src.ComponentCount(), src)
}

type eigenvaluesCore struct {
	field.Base
}

func (*eigenvaluesCore) Type() field.Type { return field.TypeEigenvalues }

func (*eigenvaluesCore) Evaluate(c *field.Cache, f *field.Field, vc *field.ValueCache) error {
	src, err := c.Values(f.Source(0))
	if err != nil {
		return err
	}
	k := len(vc.Values)
	var es mat.EigenSym
	if !es.Factorize(mat.NewSymDense(k, slices.Clone(src.Values)), false) {
		return field.NotDefinedf("field %q: eigen decomposition failed", f.Name())
	}
	values := es.Values(nil)
	// Largest first.
	for i, v := range values {
		vc.Values[k-1-i] = v
	}
	return nil
}

func (*eigenvaluesCore) Compare(other field.Core) bool {
	_, ok := other.(*eigenvaluesCore)
	return ok
}

func (*eigenvaluesCore) Copy() field.Core { return &eigenvaluesCore{} }

// Eigenvalues creates the eigenvalues, largest first, of a symmetric square
// matrix. Only the upper triangle is read.
func (mod Module) Eigenvalues(src *field.Field) (*field.Field, error) {
	if err := checkSources("eigenvalues", src); err != nil {
		return nil, err
	}
	k, ok := squareSize(src.ComponentCount())
	if !ok {
		return nil, field.InvalidArgumentf("eigenvalues: %d components is not a square matrix", src.ComponentCount())
	}
	return mod.create(&eigenvaluesCore{}, k, src)
}

// eigenvectorsCore reads the matrix of its eigenvalues source, so the
// vectors are ordered like those values.
type eigenvectorsCore struct {
	field.Base
}

func (*eigenvectorsCore) Type() field.Type { return field.TypeEigenvectors }

func (*eigenvectorsCore) Evaluate(c *field.Cache, f *field.Field, vc *field.ValueCache) error {
	matrix := f.Source(0).Source(0)
	src, err := c.Values(matrix)
	if err != nil {
		return err
	}
	k, _ := squareSize(len(src.Values))
	var es mat.EigenSym
	if !es.Factorize(mat.NewSymDense(k, slices.Clone(src.Values)), true) {
		return field.NotDefinedf("field %q: eigen decomposition failed", f.Name())
	}
	var vectors mat.Dense
	es.VectorsTo(&vectors)
	// Column j holds the vector of the j-th smallest value; output vector i
	// is the one of the i-th largest.
	for i := 0; i < k; i++ {
		col := k - 1 - i
		sign := 1.0
		for r := 0; r < k; r++ {
			if v := vectors.At(r, col); math.Abs(v) > 1e-12 {
				if v < 0 {
					sign = -1
				}
				break
			}
		}
		for r := 0; r < k; r++ {
			vc.Values[i*k+r] = sign * vectors.At(r, col)
		}
	}
	return nil
}

func (*eigenvectorsCore) Compare(other field.Core) bool {
	_, ok := other.(*eigenvectorsCore)
	return ok
}

func (*eigenvectorsCore) Copy() field.Core { return &eigenvectorsCore{} }

// Eigenvectors creates the unit eigenvectors belonging to an eigenvalues
// field, one after another in the order of its values. Each vector's first
// significant component is positive.
func (mod Module) Eigenvectors(eigenvalues *field.Field) (*field.Field, error) {
	if err := checkSources("eigenvectors", eigenvalues); err != nil {
		return nil, err
	}
	if eigenvalues.Type() != field.TypeEigenvalues {
		return nil, field.InvalidArgumentf("eigenvectors: source %q is a %s field, not eigenvalues",
			eigenvalues.Name(), eigenvalues.Type())
	}
	k := eigenvalues.ComponentCount()
	return mod.create(&eigenvectorsCore{}, k*k, eigenvalues)
}

// projectionCore applies a homogeneous (n+1)×(m+1) transformation to an m
// component source, dividing through by the perspective row.
type projectionCore struct {
	field.Base
}

func (*projectionCore) Type() field.Type { return field.TypeProjection }

func (*projectionCore) Evaluate(c *field.Cache, f *field.Field, vc *field.ValueCache) error {
	x, m, err := twoValues(c, f)
	if err != nil {
		return err
	}
	n, cols := len(vc.Values), len(x)+1
	row := func(i int) float64 {
		sum := m[i*cols+cols-1]
		for j, xj := range x {
			sum += m[i*cols+j] * xj
		}
		return sum
	}
	w := row(n)
	if w == 0 {
		return field.NotDefinedf("field %q: projection has zero perspective", f.Name())
	}
	for i := range vc.Values {
		vc.Values[i] = row(i) / w
	}
	return nil
}

func (*projectionCore) Compare(other field.Core) bool {
	_, ok := other.(*projectionCore)
	return ok
}

func (*projectionCore) Copy() field.Core { return &projectionCore{} }

// Projection creates the perspective projection of src by matrix, which
// must have (n+1)*(m+1) components for an m component source and an n
// component result.
func (mod Module) Projection(src, matrix *field.Field) (*field.Field, error) {
	if err := checkSources("projection", src, matrix); err != nil {
		return nil, err
	}
	cols := src.ComponentCount() + 1
	nm := matrix.ComponentCount()
	if nm%cols != 0 || nm/cols < 2 {
		return nil, field.InvalidArgumentf("projection: matrix of %d components does not have %d columns and at least 2 rows",
			nm, cols)
	}
	return mod.create(&projectionCore{}, nm/cols-1, src, matrix)
}
