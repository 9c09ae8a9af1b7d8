package embedding

// meanPool averages the token vectors of one row of a [seqLen, dims] hidden state,
// weighting each position by its attention mask value.
func meanPool(hidden []float32, mask []int64, dims int) []float32 {
	out := make([]float32, dims)
	var count float32
	for pos, m := range mask {
		if m == 0 {
			continue
		}
		w := float32(m)
		row := hidden[pos*dims : (pos+1)*dims]
		for d, v := range row {
			out[d] += v * w
		}
		count += w
	}
	if count == 0 {
		return out
	}
	for d := range out {
		out[d] /= count
	}
	return out
}
