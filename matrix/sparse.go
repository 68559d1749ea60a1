// Package matrix 维护用户×香水评分矩阵的完整生命周期：
// 构建、缓存、增量刷新、相似度派生与快照持久化。
package matrix

import "sort"

// Triple 是稀疏矩阵的一个非零元（构建输入）。
type Triple struct {
	Row int
	Col int
	Val float64
}

// CSR 是行主序稀疏评分矩阵：行 = 用户，列 = 香水，值 = 评分（1-5）。
// 0 / 结构缺失表示"未评分"，永远不会与真实低分混淆。
// 行内列索引升序，便于二分查找与 merge-join 点积。
type CSR struct {
	RowCount int
	ColCount int
	RowPtr   []int // len = RowCount+1
	ColInd   []int
	Data     []float64
}

// CSC 是列主序布局，由 CSR 惰性派生，用于"某香水的全部评分"访问。
type CSC struct {
	RowCount int
	ColCount int
	ColPtr   []int // len = ColCount+1
	RowInd   []int
	Data     []float64
}

// NewCSRFromTriples 从 (row, col, val) 三元组构建 CSR。
// 三元组允许乱序；同一 (row, col) 出现多次时保留最后一次（last-write-wins）。
func NewCSRFromTriples(rows, cols int, triples []Triple) *CSR {
	ts := make([]Triple, len(triples))
	copy(ts, triples)
	sort.SliceStable(ts, func(i, j int) bool {
		if ts[i].Row != ts[j].Row {
			return ts[i].Row < ts[j].Row
		}
		return ts[i].Col < ts[j].Col
	})

	// 去重，保留最后写入
	dedup := ts[:0]
	for _, t := range ts {
		if n := len(dedup); n > 0 && dedup[n-1].Row == t.Row && dedup[n-1].Col == t.Col {
			dedup[n-1] = t
			continue
		}
		dedup = append(dedup, t)
	}

	m := &CSR{
		RowCount: rows,
		ColCount: cols,
		RowPtr:   make([]int, rows+1),
		ColInd:   make([]int, 0, len(dedup)),
		Data:     make([]float64, 0, len(dedup)),
	}
	for _, t := range dedup {
		m.ColInd = append(m.ColInd, t.Col)
		m.Data = append(m.Data, t.Val)
		m.RowPtr[t.Row+1]++
	}
	for r := 1; r <= rows; r++ {
		m.RowPtr[r] += m.RowPtr[r-1]
	}
	return m
}

// NNZ 返回非零元个数。
func (a *CSR) NNZ() int { return len(a.Data) }

// At 返回 (row, col) 的值；结构缺失返回 0。
func (a *CSR) At(row, col int) float64 {
	start, end := a.RowPtr[row], a.RowPtr[row+1]
	i := start + sort.SearchInts(a.ColInd[start:end], col)
	if i < end && a.ColInd[i] == col {
		return a.Data[i]
	}
	return 0
}

// Row 返回第 row 行的非零列索引与对应值（共享底层数组，调用方不得修改）。
func (a *CSR) Row(row int) (cols []int, vals []float64) {
	start, end := a.RowPtr[row], a.RowPtr[row+1]
	return a.ColInd[start:end], a.Data[start:end]
}

// Set 写入 (row, col) 的值；结构缺失时做结构性插入。
// 仅用于增量更新路径，且只在矩阵的私有克隆上调用。
func (a *CSR) Set(row, col int, v float64) {
	start, end := a.RowPtr[row], a.RowPtr[row+1]
	i := start + sort.SearchInts(a.ColInd[start:end], col)
	if i < end && a.ColInd[i] == col {
		a.Data[i] = v
		return
	}
	a.ColInd = append(a.ColInd, 0)
	copy(a.ColInd[i+1:], a.ColInd[i:])
	a.ColInd[i] = col
	a.Data = append(a.Data, 0)
	copy(a.Data[i+1:], a.Data[i:])
	a.Data[i] = v
	for r := row + 1; r <= a.RowCount; r++ {
		a.RowPtr[r]++
	}
}

// Clone 返回深拷贝。增量更新在克隆上进行，交换前读者始终看到旧矩阵。
func (a *CSR) Clone() *CSR {
	b := &CSR{
		RowCount: a.RowCount,
		ColCount: a.ColCount,
		RowPtr:   make([]int, len(a.RowPtr)),
		ColInd:   make([]int, len(a.ColInd)),
		Data:     make([]float64, len(a.Data)),
	}
	copy(b.RowPtr, a.RowPtr)
	copy(b.ColInd, a.ColInd)
	copy(b.Data, a.Data)
	return b
}

// ToCSC 派生列主序布局。
func (a *CSR) ToCSC() *CSC {
	c := &CSC{
		RowCount: a.RowCount,
		ColCount: a.ColCount,
		ColPtr:   make([]int, a.ColCount+1),
		RowInd:   make([]int, len(a.ColInd)),
		Data:     make([]float64, len(a.Data)),
	}
	for _, col := range a.ColInd {
		c.ColPtr[col+1]++
	}
	for j := 1; j <= a.ColCount; j++ {
		c.ColPtr[j] += c.ColPtr[j-1]
	}
	next := make([]int, a.ColCount)
	copy(next, c.ColPtr[:a.ColCount])
	for row := 0; row < a.RowCount; row++ {
		for i := a.RowPtr[row]; i < a.RowPtr[row+1]; i++ {
			col := a.ColInd[i]
			pos := next[col]
			c.RowInd[pos] = row
			c.Data[pos] = a.Data[i]
			next[col]++
		}
	}
	return c
}

// NNZ 返回非零元个数。
func (c *CSC) NNZ() int { return len(c.Data) }

// Col 返回第 col 列的非零行索引与对应值（共享底层数组，调用方不得修改）。
func (c *CSC) Col(col int) (rows []int, vals []float64) {
	start, end := c.ColPtr[col], c.ColPtr[col+1]
	return c.RowInd[start:end], c.Data[start:end]
}

// At 返回 (row, col) 的值；结构缺失返回 0。
func (c *CSC) At(row, col int) float64 {
	start, end := c.ColPtr[col], c.ColPtr[col+1]
	i := start + sort.SearchInts(c.RowInd[start:end], row)
	if i < end && c.RowInd[i] == row {
		return c.Data[i]
	}
	return 0
}
