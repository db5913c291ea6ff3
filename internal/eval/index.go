package eval

import (
	xerrors "xdl/internal/errors"
	"xdl/internal/parser"
	"xdl/internal/value"
)

// axisPlan is the resolved selection along one array axis: either a single
// collapsed index (rank reduction) or an ordered list of kept indices.
type axisPlan struct {
	single bool
	idx    int
	idxs   []int
}

// resolveAxis evaluates one IndexSlot against an axis of length n,
// handling wildcard (*), ranges (lo:hi[:step]) and single indices, with
// negative-index wraparound (spec.md §4.4).
func (ev *Evaluator) resolveAxis(slot parser.IndexSlot, n int, line int) (axisPlan, error) {
	if slot.IsAll {
		idxs := make([]int, n)
		for i := range idxs {
			idxs[i] = i
		}
		return axisPlan{idxs: idxs}, nil
	}
	if slot.IsRange {
		start := 0
		if slot.Start != nil {
			v, err := ev.EvalExpr(slot.Start)
			if err != nil {
				return axisPlan{}, err
			}
			start = value.NormalizeIndex(int(v.ToLong()), n)
		}
		end := n - 1
		if slot.End != nil {
			v, err := ev.EvalExpr(slot.End)
			if err != nil {
				return axisPlan{}, err
			}
			end = value.NormalizeIndex(int(v.ToLong()), n)
		}
		step := 1
		if slot.Step != nil {
			v, err := ev.EvalExpr(slot.Step)
			if err != nil {
				return axisPlan{}, err
			}
			step = int(v.ToLong())
		}
		if step == 0 {
			return axisPlan{}, xerrors.NewAt(xerrors.InvalidArgument, loc(line), "range step cannot be 0")
		}
		if step < 0 {
			return axisPlan{}, xerrors.NewAt(xerrors.NotImplemented, loc(line), "negative-step ranges are not implemented")
		}
		var idxs []int
		for i := start; i <= end; i += step {
			if i < 0 || i >= n {
				return axisPlan{}, xerrors.NewAt(xerrors.DimensionError, loc(line), "index %d out of range [0,%d)", i, n)
			}
			idxs = append(idxs, i)
		}
		return axisPlan{idxs: idxs}, nil
	}
	v, err := ev.EvalExpr(slot.Single)
	if err != nil {
		return axisPlan{}, err
	}
	idx := value.NormalizeIndex(int(v.ToLong()), n)
	if idx < 0 || idx >= n {
		return axisPlan{}, xerrors.NewAt(xerrors.DimensionError, loc(line), "index %d out of range [0,%d)", idx, n)
	}
	return axisPlan{single: true, idx: idx}, nil
}

func fullAxisPlans(ev *Evaluator, shape []int, slots []parser.IndexSlot, line int) ([]axisPlan, error) {
	rank := len(shape)
	if len(slots) > rank {
		return nil, xerrors.NewAt(xerrors.DimensionError, loc(line), "too many indices: %d for rank %d", len(slots), rank)
	}
	plans := make([]axisPlan, rank)
	for d := 0; d < rank; d++ {
		if d < len(slots) {
			p, err := ev.resolveAxis(slots[d], shape[d], line)
			if err != nil {
				return nil, err
			}
			plans[d] = p
		} else {
			// trailing dims default to the wildcard (spec.md §4.4)
			idxs := make([]int, shape[d])
			for i := range idxs {
				idxs[i] = i
			}
			plans[d] = axisPlan{idxs: idxs}
		}
	}
	return plans, nil
}

func keptAxes(plans []axisPlan) []int {
	var kept []int
	for d, p := range plans {
		if !p.single {
			kept = append(kept, d)
		}
	}
	return kept
}

// nextSelection advances selIdx (one cursor per kept axis, fastest-varying
// first) in column-major order, returning false once it wraps around.
func nextSelection(selIdx []int, plans []axisPlan, kept []int) bool {
	for ki := 0; ki < len(kept); ki++ {
		selIdx[ki]++
		if selIdx[ki] < len(plans[kept[ki]].idxs) {
			return true
		}
		selIdx[ki] = 0
	}
	return false
}

func (ev *Evaluator) indexArray(arr value.Value, slots []parser.IndexSlot, line int) (value.Value, error) {
	if len(slots) != 1 {
		return value.Undefined, xerrors.NewAt(xerrors.DimensionError, loc(line), "an ARRAY requires exactly one index, got %d", len(slots))
	}
	p, err := ev.resolveAxis(slots[0], len(arr.Data), line)
	if err != nil {
		return value.Undefined, err
	}
	if p.single {
		return value.Double(arr.Data[p.idx]), nil
	}
	out := make([]float64, len(p.idxs))
	for i, ix := range p.idxs {
		out[i] = arr.Data[ix]
	}
	return value.Array(out), nil
}

func (ev *Evaluator) indexMultiDim(arr value.Value, slots []parser.IndexSlot, line int) (value.Value, error) {
	plans, err := fullAxisPlans(ev, arr.Shape, slots, line)
	if err != nil {
		return value.Undefined, err
	}
	strides := value.Strides(arr.Shape)
	kept := keptAxes(plans)
	if len(kept) == 0 {
		idx := make([]int, len(plans))
		for d, p := range plans {
			idx[d] = p.idx
		}
		lin := 0
		for d := range idx {
			lin += idx[d] * strides[d]
		}
		return value.Double(arr.Data[lin]), nil
	}
	var newShape []int
	for _, d := range kept {
		newShape = append(newShape, len(plans[d].idxs))
	}
	var out []float64
	selIdx := make([]int, len(kept))
	for {
		idx := make([]int, len(plans))
		for d, p := range plans {
			if p.single {
				idx[d] = p.idx
			}
		}
		for ki, axis := range kept {
			idx[axis] = plans[axis].idxs[selIdx[ki]]
		}
		lin := 0
		for d := range idx {
			lin += idx[d] * strides[d]
		}
		out = append(out, arr.Data[lin])
		if !nextSelection(selIdx, plans, kept) {
			break
		}
	}
	if len(newShape) == 1 {
		return value.Array(out), nil
	}
	return value.MultiDimArray(out, newShape), nil
}

func (ev *Evaluator) indexNested(arr value.Value, slots []parser.IndexSlot, line int) (value.Value, error) {
	if len(slots) != 1 || slots[0].IsAll || slots[0].IsRange || slots[0].Single == nil {
		return value.Undefined, xerrors.NewAt(xerrors.NotImplemented, loc(line), "a NESTED array supports single-index access only")
	}
	v, err := ev.EvalExpr(slots[0].Single)
	if err != nil {
		return value.Undefined, err
	}
	n := len(arr.Nested)
	idx := value.NormalizeIndex(int(v.ToLong()), n)
	if idx < 0 || idx >= n {
		return value.Undefined, xerrors.NewAt(xerrors.DimensionError, loc(line), "index %d out of range [0,%d)", idx, n)
	}
	return arr.Nested[idx], nil
}

func (ev *Evaluator) evalArrayRef(a *parser.ArrayRef) (value.Value, error) {
	recv, err := ev.EvalExpr(a.Array)
	if err != nil {
		return value.Undefined, err
	}
	switch recv.Kind {
	case value.KindArray:
		return ev.indexArray(recv, a.Indices, a.Line)
	case value.KindMultiDim:
		return ev.indexMultiDim(recv, a.Indices, a.Line)
	case value.KindNestedArray:
		return ev.indexNested(recv, a.Indices, a.Line)
	default:
		return value.Undefined, xerrors.NewAt(xerrors.TypeMismatch, loc(a.Line), "cannot index a value of kind %s", recv.Kind)
	}
}

func dataSliceOf(v value.Value, line int) ([]float64, error) {
	switch v.Kind {
	case value.KindArray, value.KindMultiDim:
		return v.Data, nil
	default:
		if v.IsNumeric() {
			return []float64{v.Num}, nil
		}
	}
	return nil, xerrors.NewAt(xerrors.TypeMismatch, loc(line), "expected a numeric or array value, got %s", v.Kind)
}

// execIndexedAssign mutates the variable underlying target in place,
// rejecting lvalues deeper than a plain "NAME[...]" (spec.md's array
// assignment contract covers exactly that shape).
func (ev *Evaluator) execIndexedAssign(target *parser.ArrayRef, rhs value.Value) error {
	varNode, ok := target.Array.(*parser.Variable)
	if !ok {
		return xerrors.NewAt(xerrors.NotImplemented, loc(target.Line), "indexed assignment target must be a plain variable")
	}
	cur, ok := ev.Ctx.GetVariable(varNode.Name)
	if !ok {
		return xerrors.NewAt(xerrors.RuntimeErr, loc(target.Line), "undefined variable %s", varNode.Name)
	}
	switch cur.Kind {
	case value.KindArray:
		updated, err := ev.assignArray(cur, target.Indices, rhs, target.Line)
		if err != nil {
			return err
		}
		ev.Ctx.SetVariable(varNode.Name, updated)
		return nil
	case value.KindMultiDim:
		updated, err := ev.assignMultiDim(cur, target.Indices, rhs, target.Line)
		if err != nil {
			return err
		}
		ev.Ctx.SetVariable(varNode.Name, updated)
		return nil
	default:
		return xerrors.NewAt(xerrors.TypeMismatch, loc(target.Line), "cannot index-assign into a value of kind %s", cur.Kind)
	}
}

func (ev *Evaluator) assignArray(arr value.Value, slots []parser.IndexSlot, rhs value.Value, line int) (value.Value, error) {
	if len(slots) != 1 {
		return value.Undefined, xerrors.NewAt(xerrors.DimensionError, loc(line), "an ARRAY requires exactly one index, got %d", len(slots))
	}
	p, err := ev.resolveAxis(slots[0], len(arr.Data), line)
	if err != nil {
		return value.Undefined, err
	}
	out := append([]float64(nil), arr.Data...)
	if p.single {
		out[p.idx] = rhs.ToDouble()
		return value.Array(out), nil
	}
	if rhs.IsNumeric() {
		for _, ix := range p.idxs {
			out[ix] = rhs.Num
		}
		return value.Array(out), nil
	}
	src, err := dataSliceOf(rhs, line)
	if err != nil {
		return value.Undefined, err
	}
	if len(src) != len(p.idxs) {
		return value.Undefined, xerrors.NewAt(xerrors.DimensionError, loc(line), "assignment shape mismatch: %d indices, %d values", len(p.idxs), len(src))
	}
	for i, ix := range p.idxs {
		out[ix] = src[i]
	}
	return value.Array(out), nil
}

func (ev *Evaluator) assignMultiDim(arr value.Value, slots []parser.IndexSlot, rhs value.Value, line int) (value.Value, error) {
	plans, err := fullAxisPlans(ev, arr.Shape, slots, line)
	if err != nil {
		return value.Undefined, err
	}
	strides := value.Strides(arr.Shape)
	out := append([]float64(nil), arr.Data...)
	kept := keptAxes(plans)
	if len(kept) == 0 {
		idx := make([]int, len(plans))
		for d, p := range plans {
			idx[d] = p.idx
		}
		lin := 0
		for d := range idx {
			lin += idx[d] * strides[d]
		}
		out[lin] = rhs.ToDouble()
		return value.MultiDimArray(out, append([]int(nil), arr.Shape...)), nil
	}
	var scalarFill *float64
	var src []float64
	if rhs.IsNumeric() {
		f := rhs.Num
		scalarFill = &f
	} else {
		s, err := dataSliceOf(rhs, line)
		if err != nil {
			return value.Undefined, err
		}
		src = s
	}
	selIdx := make([]int, len(kept))
	pos := 0
	for {
		idx := make([]int, len(plans))
		for d, p := range plans {
			if p.single {
				idx[d] = p.idx
			}
		}
		for ki, axis := range kept {
			idx[axis] = plans[axis].idxs[selIdx[ki]]
		}
		lin := 0
		for d := range idx {
			lin += idx[d] * strides[d]
		}
		if scalarFill != nil {
			out[lin] = *scalarFill
		} else {
			if pos >= len(src) {
				return value.Undefined, xerrors.NewAt(xerrors.DimensionError, loc(line), "assignment value has too few elements")
			}
			out[lin] = src[pos]
		}
		pos++
		if !nextSelection(selIdx, plans, kept) {
			break
		}
	}
	if scalarFill == nil && pos != len(src) {
		return value.Undefined, xerrors.NewAt(xerrors.DimensionError, loc(line), "assignment shape mismatch: %d slots, %d values", pos, len(src))
	}
	return value.MultiDimArray(out, append([]int(nil), arr.Shape...)), nil
}
