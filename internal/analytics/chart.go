package analytics

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"
	"math"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"
	"github.com/lucasb-eyer/go-colorful"
	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"
)

// Chart labels.
const (
	ChartTitle  = "Среднее число реакций по часам публикации"
	ChartXLabel = "Час дня (UTC)"
	ChartYLabel = "Среднее кол-во реакций"
)

// ErrNoChartData is returned when there are no hourly stats to plot.
var ErrNoChartData = errors.New("no hourly statistics to plot")

const (
	chartWidth   = 960
	chartHeight  = 540
	marginLeft   = 80
	marginRight  = 30
	marginTop    = 70
	marginBottom = 70
	yTicks       = 5
)

var (
	colorBackground = color.RGBA{R: 0xff, G: 0xff, B: 0xff, A: 0xff}
	colorAxis       = color.RGBA{R: 0x33, G: 0x33, B: 0x33, A: 0xff}
	colorGrid       = color.RGBA{R: 0xe4, G: 0xe4, B: 0xe4, A: 0xff}
	colorText       = color.RGBA{R: 0x22, G: 0x22, B: 0x22, A: 0xff}

	barLow, _  = colorful.Hex("#9ecae1")
	barHigh, _ = colorful.Hex("#08519c")
)

// RenderHourlyChart draws the chart and writes it as PNG to path, creating parent directories.
func RenderHourlyChart(stats []HourStat, path string) error {
	if len(stats) == 0 {
		return ErrNoChartData
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create chart dir: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create chart file %s: %w", path, err)
	}
	if err := EncodeHourlyChart(f, stats); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close chart file %s: %w", path, err)
	}
	log.Infof("[Analytics] Posting time chart saved to %s", path)
	return nil
}

// EncodeHourlyChart writes the chart as PNG to w.
func EncodeHourlyChart(w io.Writer, stats []HourStat) error {
	if len(stats) == 0 {
		return ErrNoChartData
	}
	if err := png.Encode(w, DrawHourlyChart(stats)); err != nil {
		return fmt.Errorf("encode chart: %w", err)
	}
	return nil
}

// DrawHourlyChart renders a bar per hour of the day, bar height being the mean reaction count.
func DrawHourlyChart(stats []HourStat) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, chartWidth, chartHeight))
	fill(img, img.Bounds(), colorBackground)

	titleFace := loadFace(20)
	labelFace := loadFace(14)
	tickFace := loadFace(12)

	plot := image.Rect(marginLeft, marginTop, chartWidth-marginRight, chartHeight-marginBottom)

	maxMean := 0.0
	for _, st := range stats {
		maxMean = math.Max(maxMean, st.MeanReactions)
	}
	yMax := niceCeil(maxMean)

	for i := 0; i <= yTicks; i++ {
		value := yMax * float64(i) / yTicks
		y := plot.Max.Y - int(math.Round(float64(plot.Dy())*float64(i)/yTicks))
		if i > 0 {
			fill(img, image.Rect(plot.Min.X, y, plot.Max.X, y+1), colorGrid)
		}
		label := fmt.Sprintf("%.1f", value)
		drawText(img, tickFace, plot.Min.X-8-textWidth(tickFace, label), y+4, label)
	}

	slot := float64(plot.Dx()) / 24
	barWidth := int(slot * 0.7)
	for _, st := range stats {
		if st.Hour < 0 || st.Hour > 23 {
			continue
		}
		x0 := plot.Min.X + int(slot*float64(st.Hour)+(slot-float64(barWidth))/2)
		height := 0
		ratio := 0.0
		if yMax > 0 {
			ratio = st.MeanReactions / yMax
			height = int(math.Round(float64(plot.Dy()) * ratio))
		}
		bar := barLow.BlendLab(barHigh, ratio).Clamped()
		fill(img, image.Rect(x0, plot.Max.Y-height, x0+barWidth, plot.Max.Y), bar)
	}

	for h := 0; h < 24; h++ {
		label := fmt.Sprintf("%d", h)
		cx := plot.Min.X + int(slot*float64(h)+slot/2)
		drawText(img, tickFace, cx-textWidth(tickFace, label)/2, plot.Max.Y+18, label)
	}

	fill(img, image.Rect(plot.Min.X, plot.Min.Y, plot.Min.X+2, plot.Max.Y+1), colorAxis)
	fill(img, image.Rect(plot.Min.X, plot.Max.Y, plot.Max.X, plot.Max.Y+2), colorAxis)

	drawText(img, titleFace, (chartWidth-textWidth(titleFace, ChartTitle))/2, 32, ChartTitle)
	drawText(img, labelFace, plot.Min.X-40, plot.Min.Y-14, ChartYLabel)
	drawText(img, labelFace, plot.Min.X+(plot.Dx()-textWidth(labelFace, ChartXLabel))/2, chartHeight-20, ChartXLabel)
	return img
}

// niceCeil rounds v up to 1, 2 or 5 times a power of ten.
func niceCeil(v float64) float64 {
	if v <= 0 {
		return 1
	}
	exp := math.Pow(10, math.Floor(math.Log10(v)))
	for _, m := range []float64{1, 2, 5, 10} {
		if m*exp >= v {
			return m * exp
		}
	}
	return 10 * exp
}

func loadFace(size float64) font.Face {
	f, err := opentype.Parse(goregular.TTF)
	if err != nil {
		log.Warnf("[Analytics] Falling back to the basic font: %v", err)
		return basicfont.Face7x13
	}
	face, err := opentype.NewFace(f, &opentype.FaceOptions{Size: size, DPI: 72, Hinting: font.HintingFull})
	if err != nil {
		log.Warnf("[Analytics] Falling back to the basic font: %v", err)
		return basicfont.Face7x13
	}
	return face
}

func fill(img draw.Image, r image.Rectangle, c color.Color) {
	draw.Draw(img, r, image.NewUniform(c), image.Point{}, draw.Src)
}

func textWidth(face font.Face, s string) int {
	return font.MeasureString(face, s).Ceil()
}

func drawText(img draw.Image, face font.Face, x, y int, s string) {
	d := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(colorText),
		Face: face,
		Dot:  fixed.P(x, y),
	}
	d.DrawString(s)
}
