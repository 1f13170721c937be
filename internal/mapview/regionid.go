package mapview

// ID identifies a province, duchy or kingdom. It is packed into the RGB
// channels of an ID map as r | g<<8 | b<<16.
type ID uint32

// NoRegion is the id of black pixels (ocean / void).
const NoRegion ID = 0

func IDFromRGB(r, g, b uint8) ID {
	return ID(r) | ID(g)<<8 | ID(b)<<16
}

// RGB splits the id back into its channel bytes.
func (id ID) RGB() (r, g, b uint8) {
	return uint8(id & 0xff), uint8((id >> 8) & 0xff), uint8((id >> 16) & 0xff)
}

// Highlight picks the id to emphasize: selected, else hovered, else the
// last bulk-selected id.
func Highlight(selected, hovered *ID, bulk []ID) (ID, bool) {
	if selected != nil {
		return *selected, true
	}
	if hovered != nil {
		return *hovered, true
	}
	if len(bulk) > 0 {
		return bulk[len(bulk)-1], true
	}
	return NoRegion, false
}
