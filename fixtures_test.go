package rebuilder

import (
	"image"
	"image/color"
)

// solidImage creates a width x height RGBA image filled with a single color.
func solidImage(width, height int, c color.RGBA) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.SetRGBA(x, y, c)
		}
	}
	return img
}

var (
	red     = color.RGBA{255, 0, 0, 255}
	green   = color.RGBA{0, 255, 0, 255}
	blue    = color.RGBA{0, 0, 255, 255}
	white   = color.RGBA{255, 255, 255, 255}
	gray    = color.RGBA{128, 128, 128, 255}
	magenta = color.RGBA{255, 0, 255, 255}
)

// quadrantImage creates an image with four quadrants: red (top left), green
// (top right), blue (bottom left) and white (bottom right).
func quadrantImage(width, height int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			var c color.RGBA
			switch {
			case x < width/2 && y < height/2:
				c = red
			case y < height/2:
				c = green
			case x < width/2:
				c = blue
			default:
				c = white
			}
			img.SetRGBA(x, y, c)
		}
	}
	return img
}

// gradientImage creates an image whose gray level grows from left to right.
func gradientImage(width, height int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			v := uint8(x * 255 / width)
			img.SetRGBA(x, y, color.RGBA{v, v, v, 255})
		}
	}
	return img
}
