package search

import "sort"

// #region fuse
// Fuse ranks raw hits by combining their sparse and dense scores. Each score
// column is max-normalized over the candidate set, the weighted sum uses the
// weights renormalized to 1, and hits below MinFusedScore are dropped.
//
// The result ordering is total: fused score descending, then sparse score
// descending, then DocID ascending. Equal inputs always produce equal output.
func Fuse(docs []ScoredDoc, cfg FusionConfig) []RetrievedDoc {
	if len(docs) == 0 {
		return nil
	}

	var maxSparse, maxDense float32
	for _, d := range docs {
		if d.SparseScore > maxSparse {
			maxSparse = d.SparseScore
		}
		if d.DenseScore > maxDense {
			maxDense = d.DenseScore
		}
	}

	wSparse, wDense := cfg.SparseWeight, cfg.DenseWeight
	if sum := wSparse + wDense; sum > 0 {
		wSparse /= sum
		wDense /= sum
	} else {
		wSparse, wDense = 0.5, 0.5
	}

	var fused []RetrievedDoc
	for _, d := range docs {
		var ns, nd float32
		if maxSparse > 0 {
			ns = d.SparseScore / maxSparse
		}
		if maxDense > 0 {
			nd = d.DenseScore / maxDense
		}
		score := wSparse*ns + wDense*nd
		if score < cfg.MinFusedScore {
			continue
		}
		fused = append(fused, RetrievedDoc{ScoredDoc: d, FusedScore: score})
	}

	sort.Slice(fused, func(i, j int) bool {
		if fused[i].FusedScore != fused[j].FusedScore {
			return fused[i].FusedScore > fused[j].FusedScore
		}
		if fused[i].SparseScore != fused[j].SparseScore {
			return fused[i].SparseScore > fused[j].SparseScore
		}
		return fused[i].DocID < fused[j].DocID
	})
	return fused
}

// #endregion fuse

// #region top
// Top returns the best hit after fusion, or false when nothing survives.
func Top(docs []RetrievedDoc) (RetrievedDoc, bool) {
	if len(docs) == 0 {
		return RetrievedDoc{}, false
	}
	return docs[0], true
}

// #endregion top
