package phi

// Weighted pairs a source matrix with the weight it contributes to a merge.
type Weighted struct {
	Matrix *Matrix
	Weight float64
}

// Merge computes a weighted linear combination of the supplied sources into a
// fresh matrix named name. The first source defines the shape; remaining
// sources are matched by token and extra tokens are ignored.
func Merge(name string, sources []Weighted) *Matrix {
	if len(sources) == 0 {
		return nil
	}
	out := NewLike(name, sources[0].Matrix)
	for _, src := range sources {
		out.Accumulate(src.Matrix, src.Weight)
	}
	return out
}

// Normalize derives a probability matrix from the raw counts in nwt,
// optionally corrected by rwt: each column (topic) is rescaled so that
// max(n+r, 0) sums to one across tokens. Columns with no positive mass stay
// zero.
func Normalize(name string, nwt, rwt *Matrix) *Matrix {
	out := NewLike(name, nwt)
	topicCount := nwt.TopicCount()

	sums := make([]float64, topicCount)
	values := make([][]float64, nwt.TokenCount())
	for i, token := range nwt.tokens {
		row := make([]float64, topicCount)
		for j := 0; j < topicCount; j++ {
			v := nwt.rows[i][j]
			if rwt != nil {
				if idx := rwt.TokenIndex(token); idx != -1 {
					v += rwt.rows[idx][j]
				}
			}
			if v < 0 {
				v = 0
			}
			row[j] = v
			sums[j] += v
		}
		values[i] = row
	}

	for i := range values {
		for j := 0; j < topicCount; j++ {
			if sums[j] > 0 {
				out.rows[i][j] = values[i][j] / sums[j]
			}
		}
	}
	return out
}
