package matrix

import (
	"math"
	"testing"
)

// ratingRows 是相似度用例的评分矩阵（3 用户 × 3 香水，0 表示未评分）。
//
//	u0: [5, 3, 0]
//	u1: [4, 0, 2]
//	u2: [1, 1, 1]
func ratingRows() *CSR {
	return NewCSRFromTriples(3, 3, []Triple{
		{Row: 0, Col: 0, Val: 5},
		{Row: 0, Col: 1, Val: 3},
		{Row: 1, Col: 0, Val: 4},
		{Row: 1, Col: 2, Val: 2},
		{Row: 2, Col: 0, Val: 1},
		{Row: 2, Col: 1, Val: 1},
		{Row: 2, Col: 2, Val: 1},
	})
}

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestUserSimilarityCentered(t *testing.T) {
	sim := UserSimilarity(ratingRows())

	// 手算：u0' = u0 - 8/3, u1' = u1 - 2
	// dot = 20 - 3·(8/3)·2 = 4, |u0'|² = 34 - 64/3, |u1'|² = 20 - 12
	want01 := 4 / (math.Sqrt(34-64.0/3) * math.Sqrt(8))
	if got := sim.At(0, 1); !almostEqual(got, want01) {
		t.Fatalf("sim(u0,u1) = %v, want %v", got, want01)
	}

	// u2 全 1：去均值后是零向量，与任何人的相似度为 0，对角线也为 0
	if got := sim.At(0, 2); got != 0 {
		t.Fatalf("sim(u0,u2) = %v, want 0 for degenerate row", got)
	}
	if got := sim.At(2, 2); got != 0 {
		t.Fatalf("sim(u2,u2) = %v, want 0 for zero-norm row", got)
	}
	if got := sim.At(0, 0); got != 1 {
		t.Fatalf("sim(u0,u0) = %v, want 1", got)
	}
}

func TestUserSimilarityUncentered(t *testing.T) {
	sim := UserSimilarityUncentered(ratingRows())

	want01 := 20 / (math.Sqrt(34) * math.Sqrt(20))
	want02 := 8 / (math.Sqrt(34) * math.Sqrt(3))
	if got := sim.At(0, 1); !almostEqual(got, want01) {
		t.Fatalf("sim(u0,u1) = %v, want %v", got, want01)
	}
	if got := sim.At(0, 2); !almostEqual(got, want02) {
		t.Fatalf("sim(u0,u2) = %v, want %v", got, want02)
	}
	// 不去均值时 u2 是合法向量，对角线为 1
	if got := sim.At(2, 2); got != 1 {
		t.Fatalf("sim(u2,u2) = %v, want 1", got)
	}
}

func TestItemSimilarityUncentered(t *testing.T) {
	sim := ItemSimilarityUncentered(ratingRows().ToCSC())

	// 列视图：i0 = [5,4,1], i1 = [3,0,1]
	want01 := 16 / (math.Sqrt(42) * math.Sqrt(10))
	if got := sim.At(0, 1); !almostEqual(got, want01) {
		t.Fatalf("sim(i0,i1) = %v, want %v", got, want01)
	}
}

// TestCenteredMatchesDenseReference 把稀疏实现与朴素稠密实现逐项对拍。
func TestCenteredMatchesDenseReference(t *testing.T) {
	rows := [][]float64{
		{5, 3, 0, 1},
		{4, 0, 2, 0},
		{1, 1, 1, 5},
		{0, 2, 0, 3},
	}
	var triples []Triple
	for i, row := range rows {
		for j, v := range row {
			if v != 0 {
				triples = append(triples, Triple{Row: i, Col: j, Val: v})
			}
		}
	}
	a := NewCSRFromTriples(len(rows), len(rows[0]), triples)

	got := UserSimilarity(a)
	want := denseCenteredCosine(rows)
	for i := range rows {
		for j := range rows {
			if !almostEqual(got.At(i, j), want[i][j]) {
				t.Fatalf("sim(%d,%d) = %v, reference = %v", i, j, got.At(i, j), want[i][j])
			}
		}
	}
}

func TestSimilarityBoundsAndSymmetry(t *testing.T) {
	sim := UserSimilarity(ratingRows())
	for i := 0; i < sim.N; i++ {
		for j := 0; j < sim.N; j++ {
			v := sim.At(i, j)
			if v < -1 || v > 1 {
				t.Fatalf("sim(%d,%d) = %v out of [-1,1]", i, j, v)
			}
			if v != sim.At(j, i) {
				t.Fatalf("sim(%d,%d) != sim(%d,%d)", i, j, j, i)
			}
		}
	}
}

func TestSimilarityEmptyMatrix(t *testing.T) {
	sim := UserSimilarity(NewCSRFromTriples(0, 0, nil))
	if sim.N != 0 {
		t.Fatalf("N = %d, want 0", sim.N)
	}
}

// denseCenteredCosine 是测试参照：在稠密表示上先减行均值再算余弦。
func denseCenteredCosine(rows [][]float64) [][]float64 {
	n := len(rows)
	dim := len(rows[0])
	centered := make([][]float64, n)
	norms := make([]float64, n)
	for i, row := range rows {
		var sum float64
		for _, v := range row {
			sum += v
		}
		mean := sum / float64(dim)
		centered[i] = make([]float64, dim)
		var nsq float64
		for j, v := range row {
			centered[i][j] = v - mean
			nsq += centered[i][j] * centered[i][j]
		}
		norms[i] = math.Sqrt(nsq)
	}

	out := make([][]float64, n)
	for i := range out {
		out[i] = make([]float64, n)
	}
	for i := 0; i < n; i++ {
		if norms[i] == 0 {
			continue
		}
		out[i][i] = 1
		for j := i + 1; j < n; j++ {
			if norms[j] == 0 {
				continue
			}
			var dot float64
			for k := 0; k < dim; k++ {
				dot += centered[i][k] * centered[j][k]
			}
			sim := dot / (norms[i] * norms[j])
			if sim > 1 {
				sim = 1
			} else if sim < -1 {
				sim = -1
			}
			out[i][j] = sim
			out[j][i] = sim
		}
	}
	return out
}
