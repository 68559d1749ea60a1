package matrix

import (
	"math"
	"runtime"

	"golang.org/x/sync/errgroup"
)

// Dense 是 N×N 对称相似度矩阵，值域 [-1, 1]。
// 由评分矩阵整体派生，矩阵版本变化时整体重算，不做原地修改。
type Dense struct {
	N    int
	Data []float64 // 行主序
}

// NewDense 创建全零矩阵。
func NewDense(n int) *Dense {
	return &Dense{N: n, Data: make([]float64, n*n)}
}

// At 返回 (i, j) 的相似度。
func (d *Dense) At(i, j int) float64 { return d.Data[i*d.N+j] }

// Row 返回第 i 行（共享底层数组，调用方不得修改）。
func (d *Dense) Row(i int) []float64 { return d.Data[i*d.N : (i+1)*d.N] }

func (d *Dense) set(i, j int, v float64) { d.Data[i*d.N+j] = v }

// sparseVec 是相似度计算的统一向量视图（CSR 的行或 CSC 的列）。
type sparseVec struct {
	ind []int
	val []float64
}

// UserSimilarity 计算用户-用户相似度：对行做去均值后的余弦相似度。
// 均值按整行（含零元）计算，与在稠密矩阵上先减行均值再算余弦完全等价。
func UserSimilarity(a *CSR) *Dense {
	return cosineOf(rowVecs(a), a.ColCount, true)
}

// UserSimilarityUncentered 是不去均值的变体。
// 用户/香水很少时去均值会把相似度推向 ±1（二维去均值向量只能共线），
// 小数据集建议使用该变体。
func UserSimilarityUncentered(a *CSR) *Dense {
	return cosineOf(rowVecs(a), a.ColCount, false)
}

// ItemSimilarity 计算香水-香水相似度：对列布局的每一列做同样的去均值余弦。
func ItemSimilarity(c *CSC) *Dense {
	return cosineOf(colVecs(c), c.RowCount, true)
}

// ItemSimilarityUncentered 是不去均值的变体，见 UserSimilarityUncentered。
func ItemSimilarityUncentered(c *CSC) *Dense {
	return cosineOf(colVecs(c), c.RowCount, false)
}

func rowVecs(a *CSR) []sparseVec {
	vecs := make([]sparseVec, a.RowCount)
	for i := 0; i < a.RowCount; i++ {
		vecs[i].ind, vecs[i].val = a.Row(i)
	}
	return vecs
}

func colVecs(c *CSC) []sparseVec {
	vecs := make([]sparseVec, c.ColCount)
	for j := 0; j < c.ColCount; j++ {
		vecs[j].ind, vecs[j].val = c.Col(j)
	}
	return vecs
}

// cosineOf 对 len(vecs) 个维度为 dim 的稀疏向量计算两两余弦。
//
// centered 为 true 时先对每个向量减去均值 u' = u - mu·1：
//   dot(u', v') = dot(u, v) - dim·mu·mv
//   |u'|²       = Σu² - dim·mu²
// 因此整个计算可以在稀疏表示上完成，无需物化稠密矩阵。
// 零向量（无评分）的范数为 0，相似度定义为 0。
func cosineOf(vecs []sparseVec, dim int, centered bool) *Dense {
	n := len(vecs)
	out := NewDense(n)
	if n == 0 || dim == 0 {
		return out
	}

	means := make([]float64, n)
	norms := make([]float64, n) // （去均值后的）范数
	fdim := float64(dim)
	for i, v := range vecs {
		var sum, sumSq float64
		for _, x := range v.val {
			sum += x
			sumSq += x * x
		}
		if centered {
			means[i] = sum / fdim
		}
		nsq := sumSq - fdim*means[i]*means[i]
		if nsq > 0 {
			norms[i] = math.Sqrt(nsq)
		}
	}

	// 行级并行：每个 goroutine 负责一行的上三角，结果对称回填。
	var eg errgroup.Group
	eg.SetLimit(runtime.GOMAXPROCS(0))
	for i := 0; i < n; i++ {
		i := i
		eg.Go(func() error {
			out.set(i, i, 1)
			if norms[i] == 0 {
				out.set(i, i, 0)
				return nil
			}
			for j := i + 1; j < n; j++ {
				if norms[j] == 0 {
					continue
				}
				dot := sparseDot(vecs[i], vecs[j]) - fdim*means[i]*means[j]
				sim := dot / (norms[i] * norms[j])
				// 浮点误差防护，保证值域 [-1, 1]
				if sim > 1 {
					sim = 1
				} else if sim < -1 {
					sim = -1
				}
				out.set(i, j, sim)
				out.set(j, i, sim)
			}
			return nil
		})
	}
	_ = eg.Wait() // worker 不返回错误

	return out
}

// sparseDot 对两个列索引升序的稀疏向量做 merge-join 点积。
func sparseDot(a, b sparseVec) float64 {
	var dot float64
	i, j := 0, 0
	for i < len(a.ind) && j < len(b.ind) {
		switch {
		case a.ind[i] == b.ind[j]:
			dot += a.val[i] * b.val[j]
			i++
			j++
		case a.ind[i] < b.ind[j]:
			i++
		default:
			j++
		}
	}
	return dot
}
