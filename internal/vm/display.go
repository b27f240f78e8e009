package vm

// Canonical CHIP-8 display resolution.
const (
	DisplayWidth  = 64
	DisplayHeight = 32
)

// Display is the monochrome frame buffer of the machine. Next to the pixels it keeps a shadow
// copy of the last state that was handed to a renderer, which allows incremental redraws.
type Display struct {
	pixels [DisplayWidth * DisplayHeight]uint8
	shadow [DisplayWidth * DisplayHeight]uint8
	dirty  bool
}

// Width returns the number of pixel columns.
func (d *Display) Width() int {
	return DisplayWidth
}

// Height returns the number of pixel rows.
func (d *Display) Height() int {
	return DisplayHeight
}

// Pixel returns whether the pixel at the given position is set.
// Positions outside of the display are never set.
func (d *Display) Pixel(x, y int) bool {
	if x < 0 || x >= DisplayWidth || y < 0 || y >= DisplayHeight {
		return false
	}
	return d.pixels[y*DisplayWidth+x] == 1
}

// Clear resets all pixels and marks the display as dirty.
func (d *Display) Clear() {
	d.pixels = [DisplayWidth * DisplayHeight]uint8{}
	d.dirty = true
}

// Dirty returns whether the display changed since the last Sync.
func (d *Display) Dirty() bool {
	return d.dirty
}

// Sync calls fn for every pixel that differs from the shadow copy and updates the
// shadow copy to match. The dirty flag is cleared afterwards.
func (d *Display) Sync(fn func(x, y int, on bool)) {
	for i, value := range d.pixels {
		if value == d.shadow[i] {
			continue
		}
		d.shadow[i] = value
		if fn != nil {
			fn(i%DisplayWidth, i/DisplayWidth, value == 1)
		}
	}
	d.dirty = false
}

// toggle flips the pixel at the given position and returns true if it was turned off.
func (d *Display) toggle(x, y int) bool {
	index := y*DisplayWidth + x
	if d.pixels[index] == 1 {
		d.pixels[index] = 0
		return true
	}
	d.pixels[index] = 1
	return false
}

// reset clears the pixels but keeps the shadow copy, it reflects what a renderer shows.
func (d *Display) reset() {
	d.Clear()
}
