package matrix

// IndexMapping 是外部 id 与稠密矩阵索引之间的双射。
// 每次全量重建时重新生成，两个方向同时失效、同时替换；
// 构建后不再修改，因此可以被多个快照读者无锁共享。
type IndexMapping struct {
	toIndex map[int64]int
	toID    []int64
}

// NewIndexMapping 从升序 id 列表构建映射。
// 传入的顺序决定索引顺序：确定性的 id 排序保证重建结果可复现。
func NewIndexMapping(ids []int64) *IndexMapping {
	m := &IndexMapping{
		toIndex: make(map[int64]int, len(ids)),
		toID:    make([]int64, len(ids)),
	}
	for i, id := range ids {
		m.toIndex[id] = i
		m.toID[i] = id
	}
	return m
}

// Index 返回 id 对应的稠密索引。
func (m *IndexMapping) Index(id int64) (int, bool) {
	idx, ok := m.toIndex[id]
	return idx, ok
}

// ID 返回稠密索引对应的外部 id。
func (m *IndexMapping) ID(idx int) (int64, bool) {
	if idx < 0 || idx >= len(m.toID) {
		return 0, false
	}
	return m.toID[idx], true
}

// Len 返回映射的基数。
func (m *IndexMapping) Len() int { return len(m.toID) }

// IDs 返回全部外部 id（索引序，共享底层数组，调用方不得修改）。
func (m *IndexMapping) IDs() []int64 { return m.toID }
