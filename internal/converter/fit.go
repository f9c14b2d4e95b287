package converter

import "github.com/NunoTeixeiraMota/image-refac/types"

// Fit scales src to the largest size matching the box on the limiting axis
// while keeping the aspect ratio exact, scaling up as well as down.
// Fractional results truncate, so an extreme aspect ratio can floor one side
// to zero and callers must reject that before resizing. Degenerate sources
// come back unchanged.
func Fit(src, box types.Dimensions) types.Dimensions {
	if src.Width <= 0 || src.Height <= 0 {
		return src
	}
	srcAspect := float64(src.Width) / float64(src.Height)
	boxAspect := float64(box.Width) / float64(box.Height)
	if srcAspect > boxAspect {
		// relatively wider than the box, width is limiting
		return types.Dimensions{Width: box.Width, Height: int(float64(box.Width) / srcAspect)}
	}
	return types.Dimensions{Width: int(float64(box.Height) * srcAspect), Height: box.Height}
}
