package wasmenc

// LabelledSwitch builds the structured-control-flow equivalent of a jump table: reading
// selectorLocal and branching into cases[selectorLocal]'s instruction stream (an
// out-of-range selector selects the last case). A case that runs off its end without
// branching continues into the next case; only the last case falls out of the switch.
// Both translators wrap the result in a Loop so that setting selectorLocal and
// branching back to the loop head re-enters the switch at the new case (the
// "labelled switch" pattern, used for Hack jump targets and VM function/label/call
// return sites alike).
func LabelledSwitch(selectorLocal uint32, cases [][]byte) []byte {
	n := len(cases)
	if n == 0 {
		return nil
	}

	depths := make([]uint32, n)
	for i := range depths {
		depths[i] = uint32(i)
	}

	dispatch := NewInstr().LocalGet(selectorLocal).BrTable(depths, uint32(n-1)).Bytes()

	current := dispatch
	for i := 0; i < n; i++ {
		wrapped := NewInstr().Block(EmptyBlockType)
		wrapped.buf = append(wrapped.buf, current...)
		wrapped.End()
		wrapped.buf = append(wrapped.buf, cases[i]...)
		current = wrapped.Bytes()
	}
	return current
}
