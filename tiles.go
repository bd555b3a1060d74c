package xcf

// tileSize is the edge length of the aligned tile grid. Layers are
// split into tileSize x tileSize regions in row-major order; the last
// column and row may be truncated.
const tileSize = 64

// tileGrid is the tile partition of one layer.
type tileGrid struct {
	width, height uint32
	cols, rows    uint32
}

func tileGridFor(width, height uint32) tileGrid {
	return tileGrid{
		width:  width,
		height: height,
		cols:   (width + tileSize - 1) / tileSize,
		rows:   (height + tileSize - 1) / tileSize,
	}
}

// count returns the number of tiles in the grid.
func (g tileGrid) count() uint32 { return g.cols * g.rows }

// tile returns the pixel origin and dimensions of the i-th tile in
// row-major order.
func (g tileGrid) tile(i uint32) (x0, y0, tw, th uint32) {
	tx := i % g.cols
	ty := i / g.cols
	x0 = tx * tileSize
	y0 = ty * tileSize
	tw = tileSize
	if x0+tw > g.width {
		tw = g.width - x0
	}
	th = tileSize
	if y0+th > g.height {
		th = g.height - y0
	}
	return x0, y0, tw, th
}
