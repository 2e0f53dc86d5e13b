package quantize

import "github.com/bodgit/nesimg/nes"

// Subpalette is four hardware palette indices. Index 0 is the shared
// background color.
type Subpalette [4]uint8

// mapSubpalettes snaps the background and each group's colors to the nearest
// hardware color. Every color is mapped on its own so two reduced colors can
// end up as the same hardware color.
func mapSubpalettes(hw *nes.Palette, p Palette, groups [NumGroups]Group) ([NumGroups]Subpalette, error) {
	var out [NumGroups]Subpalette

	bg, _, err := hw.Nearest(p[0])
	if err != nil {
		return out, err
	}

	for n, g := range groups {
		out[n][0] = uint8(bg)
		for k, slot := range g {
			i, _, err := hw.Nearest(p[slot])
			if err != nil {
				return out, err
			}
			out[n][k+1] = uint8(i)
		}
	}
	return out, nil
}
