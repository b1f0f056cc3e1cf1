// Copyright 2024, Chef.  All rights reserved.
// https://github.com/q191201771/lal
//
// Use of this source code is governed by a MIT-style license
// that can be found in the License file.
//
// Author: Chef (191201771@qq.com)

package framesource

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/jpeg"

	"github.com/q191201771/lalmjpeg/pkg/base"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

var testPatternBarColors = []color.RGBA{
	{R: 0xC0, G: 0xC0, B: 0xC0, A: 0xFF},
	{R: 0xC0, G: 0xC0, B: 0x00, A: 0xFF},
	{R: 0x00, G: 0xC0, B: 0xC0, A: 0xFF},
	{R: 0x00, G: 0xC0, B: 0x00, A: 0xFF},
	{R: 0xC0, G: 0x00, B: 0xC0, A: 0xFF},
	{R: 0xC0, G: 0x00, B: 0x00, A: 0xFF},
	{R: 0x00, G: 0x00, B: 0xC0, A: 0xFF},
}

const testPatternBlockSize = 32

// TestPattern 彩条背景加一个移动的方块，左上角叠加帧序号
//
type TestPattern struct {
	width   int
	height  int
	quality int

	background *image.RGBA
	canvas     *image.RGBA
	buf        bytes.Buffer
}

func NewTestPattern(width, height, quality int) *TestPattern {
	p := &TestPattern{
		width:      width,
		height:     height,
		quality:    quality,
		background: image.NewRGBA(image.Rect(0, 0, width, height)),
		canvas:     image.NewRGBA(image.Rect(0, 0, width, height)),
	}

	barWidth := (width + len(testPatternBarColors) - 1) / len(testPatternBarColors)
	for i, c := range testPatternBarColors {
		r := image.Rect(i*barWidth, 0, (i+1)*barWidth, height)
		draw.Draw(p.background, r, &image.Uniform{C: c}, image.Point{}, draw.Src)
	}
	return p
}

func (p *TestPattern) Produce(index int, dst *base.JpegFrame) error {
	draw.Draw(p.canvas, p.canvas.Bounds(), p.background, image.Point{}, draw.Src)

	// 方块沿对角线移动
	span := p.width - testPatternBlockSize
	if span <= 0 {
		span = 1
	}
	x := (index * 4) % span
	y := x * (p.height - testPatternBlockSize) / span
	block := image.Rect(x, y, x+testPatternBlockSize, y+testPatternBlockSize)
	draw.Draw(p.canvas, block, &image.Uniform{C: color.White}, image.Point{}, draw.Src)

	d := font.Drawer{
		Dst:  p.canvas,
		Src:  image.NewUniform(color.Black),
		Face: basicfont.Face7x13,
		Dot:  fixed.P(4, 14),
	}
	d.DrawString(fmt.Sprintf("%s #%d", base.LalMjpegLibraryName, index))
	d.Dot = fixed.P(4, 28)
	d.DrawString(Clock.Now().Format("15:04:05.000"))

	p.buf.Reset()
	if err := jpeg.Encode(&p.buf, p.canvas, &jpeg.Options{Quality: p.quality}); err != nil {
		return err
	}
	dst.Buf = append(dst.Buf[:0], p.buf.Bytes()...)
	dst.Width = p.width
	dst.Height = p.height
	dst.CaptureTime = Clock.Now()
	return nil
}
