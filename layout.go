package radixscan

// TileCoord returns where flat block index k lives in the scan tile. The
// tile has ElementsPerThread rows and WorkgroupSize columns; column c holds
// the ElementsPerThread consecutive values starting at c*ElementsPerThread,
// so lane c can scan its chunk top to bottom.
func (s Sizing) TileCoord(k int) (row, col int) {
	return k % s.ElementsPerThread, k / s.ElementsPerThread
}

// TileOffset returns the flat offset of (row, col) in the row-major tile.
func (s Sizing) TileOffset(row, col int) int {
	return row*s.WorkgroupSize + col
}

// TileIndex maps flat block index k to its tile offset.
func (s Sizing) TileIndex(k int) int {
	row, col := s.TileCoord(k)
	return s.TileOffset(row, col)
}

// FlatIndex is the inverse of TileIndex.
func (s Sizing) FlatIndex(offset int) int {
	row, col := offset/s.WorkgroupSize, offset%s.WorkgroupSize
	return col*s.ElementsPerThread + row
}
