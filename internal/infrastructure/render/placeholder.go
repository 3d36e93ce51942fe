// Package render 在本地绘制主题占位插图，插图后端不可用时使用。
package render

import (
	"bytes"
	"fmt"
	"image/color"
	"math"

	"github.com/fogleman/gg"

	"hakawati-story-api/internal/workflow/port"
)

// VariantsPerTheme 每个主题的轮换张数
const VariantsPerTheme = 3

type palette struct {
	top, bottom color.RGBA
	accent      color.RGBA
}

var palettes = map[string]palette{
	"adventure": {top: rgb(0xC9, 0x7B, 0x3A), bottom: rgb(0x3E, 0x2A, 0x1B), accent: rgb(0xF4, 0xD0, 0x8A)},
	"fantasy":   {top: rgb(0x5B, 0x3F, 0x8C), bottom: rgb(0x1D, 0x12, 0x3A), accent: rgb(0xF9, 0xC7, 0x4F)},
	"comedy":    {top: rgb(0xF6, 0xB1, 0x3C), bottom: rgb(0xE0, 0x5A, 0x47), accent: rgb(0xFF, 0xF3, 0xD6)},
	"space":     {top: rgb(0x0B, 0x1D, 0x3A), bottom: rgb(0x02, 0x04, 0x10), accent: rgb(0xE8, 0xEC, 0xFF)},
	"default":   {top: rgb(0xD9, 0xA4, 0x41), bottom: rgb(0x1B, 0x26, 0x3B), accent: rgb(0xFF, 0xE9, 0xB0)},
}

func rgb(r, g, b uint8) color.RGBA { return color.RGBA{R: r, G: g, B: b, A: 0xFF} }

// Themes 可渲染的主题名
func Themes() []string {
	return []string{"adventure", "fantasy", "comedy", "space", "default"}
}

// Placeholder 绘制 theme 主题的第 variant 张占位图（PNG）。相同参数输出相同字节。
func Placeholder(theme string, variant, width, height int) ([]byte, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("invalid placeholder size %dx%d", width, height)
	}
	p, ok := palettes[theme]
	if !ok {
		p = palettes["default"]
	}

	w, h := float64(width), float64(height)
	dc := gg.NewContext(width, height)

	grad := gg.NewLinearGradient(0, 0, 0, h)
	grad.AddColorStop(0, p.top)
	grad.AddColorStop(1, p.bottom)
	dc.SetFillStyle(grad)
	dc.DrawRectangle(0, 0, w, h)
	dc.Fill()

	// 弧形穹顶轮廓
	dc.SetRGBA(0, 0, 0, 0.25)
	archW := w / float64(VariantsPerTheme+2)
	for i := 0; i < VariantsPerTheme+2; i++ {
		cx := archW*float64(i) + archW/2
		dc.DrawArc(cx, h*0.78, archW*0.42, math.Pi, 2*math.Pi)
		dc.DrawRectangle(cx-archW*0.42, h*0.78, archW*0.84, h*0.22)
	}
	dc.Fill()

	// 灯笼/星点，位置由 variant 决定
	ac := p.accent
	for i := 0; i < 12; i++ {
		seed := float64(i*7 + variant*13)
		x := math.Mod(seed*37.7, w)
		y := math.Mod(seed*19.3, h*0.6)
		r := 2 + math.Mod(seed, 5)
		dc.SetRGBA255(int(ac.R), int(ac.G), int(ac.B), 200)
		dc.DrawCircle(x, y, r)
		dc.Fill()
	}

	var buf bytes.Buffer
	if err := dc.EncodePNG(&buf); err != nil {
		return nil, fmt.Errorf("encode placeholder: %w", err)
	}
	return buf.Bytes(), nil
}

// PlaceholderRefs 为全部主题渲染轮换列表
func PlaceholderRefs(width, height int) (map[string][]port.ImageRef, error) {
	out := make(map[string][]port.ImageRef, len(palettes))
	for _, theme := range Themes() {
		refs := make([]port.ImageRef, 0, VariantsPerTheme)
		for v := 0; v < VariantsPerTheme; v++ {
			data, err := Placeholder(theme, v, width, height)
			if err != nil {
				return nil, err
			}
			refs = append(refs, port.ImageRef{MIMEType: "image/png", Data: data})
		}
		out[theme] = refs
	}
	return out, nil
}
