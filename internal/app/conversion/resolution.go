package conversion

import "video-conversion/internal/app/model"

// ScaleToFit shrinks width×height to fit within maxWidth×maxHeight, keeping the aspect
// ratio, and rounds both sides down to even pixel counts. Sources that already fit are
// only rounded.
func ScaleToFit(width, height, maxWidth, maxHeight int) model.Resolution {
	w, h := width, height
	if w > maxWidth || h > maxHeight {
		if w*maxHeight > h*maxWidth {
			h = h * maxWidth / w
			w = maxWidth
		} else {
			w = w * maxHeight / h
			h = maxHeight
		}
	}
	return model.Resolution{Width: even(w), Height: even(h)}
}

func even(n int) int {
	n &^= 1
	if n < 2 {
		return 2
	}
	return n
}
