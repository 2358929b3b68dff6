// Package wasmenc is a minimal binary WebAssembly module builder: just enough of the
// module/function/expression encoding that the Hack->Wasm and VM->Wasm translators
// need, plus the "labelled switch" control-flow primitive both translators share.
package wasmenc

// uleb128 appends the unsigned LEB128 encoding of v to buf.
func uleb128(buf []byte, v uint64) []byte {
	for {
		b := byte(v & 0x7f)
		v >>= 7
		if v != 0 {
			b |= 0x80
		}
		buf = append(buf, b)
		if v == 0 {
			return buf
		}
	}
}

// sleb128 appends the signed LEB128 encoding of v to buf.
func sleb128(buf []byte, v int64) []byte {
	for {
		b := byte(v & 0x7f)
		v >>= 7
		signBitSet := b&0x40 != 0
		done := (v == 0 && !signBitSet) || (v == -1 && signBitSet)
		if !done {
			b |= 0x80
		}
		buf = append(buf, b)
		if done {
			return buf
		}
	}
}

func vec(items [][]byte) []byte {
	out := uleb128(nil, uint64(len(items)))
	for _, item := range items {
		out = append(out, item...)
	}
	return out
}

func name(s string) []byte {
	out := uleb128(nil, uint64(len(s)))
	return append(out, s...)
}
