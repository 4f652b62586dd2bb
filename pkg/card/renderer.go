// Package card renders one ID card raster per team member and assembles
// the set into a single multi-page PDF document.
package card

import (
	"encoding/json"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"math"
	"time"

	"github.com/skip2/go-qrcode"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"github.com/hacksprint/hacksprint/pkg/registration"
)

const (
	cardWidth  = 1013
	cardHeight = 638
	qrModuleSize = 220
)

var captions = []string{
	"Build something that matters.",
	"Code. Sleep. Repeat.",
	"Ship it before sunrise.",
	"Bugs are just undiscovered features.",
	"Fueled by caffeine and curiosity.",
	"Great hacks start with bad ideas.",
	"Commit early, commit often.",
	"The best code is shipped code.",
}

// ScanPayload is the JSON embedded in a card's QR code.
type ScanPayload struct {
	TeamCode        string `json:"team_code"`
	ParticipantID   string `json:"participant_id"`
	ParticipantName string `json:"participant_name"`
	IsTeamLeader    bool   `json:"is_team_leader"`
	Timestamp       string `json:"timestamp"`
}

// Renderer draws a single ID card raster.
type Renderer struct {
	EventTitle string
	Banner     string
}

// NewRenderer creates a Renderer with the given institutional banner and
// event title text.
func NewRenderer(banner, eventTitle string) *Renderer {
	return &Renderer{Banner: banner, EventTitle: eventTitle}
}

// Render draws one card for member at teamIndex within team, embedding a
// QR code of the scan payload. photo, if non-nil, is composited into a
// circular mask; otherwise a monogram placeholder is drawn.
func (r *Renderer) Render(team *registration.Team, member *registration.Member, photo image.Image, now time.Time) (*image.RGBA, error) {
	img := image.NewRGBA(image.Rect(0, 0, cardWidth, cardHeight))
	draw.Draw(img, img.Bounds(), &image.Uniform{C: color.White}, image.Point{}, draw.Src)

	drawText(img, 24, 40, r.Banner, color.Black)
	drawText(img, 24, 70, r.EventTitle, color.Black)

	photoRect := image.Rect(24, 100, 224, 300)
	if photo != nil {
		drawCircularPhoto(img, photo, photoRect)
	} else {
		drawMonogram(img, member.Name, photoRect)
	}

	lines := []string{
		member.Name,
		member.Email,
		member.Phone,
		fmt.Sprintf("%s | %s", team.Year, team.CollegeName),
		team.Domain,
		"",
		team.TeamName,
		team.TeamID,
		team.TeamCode,
		member.ParticipantID,
	}
	y := 120
	for _, line := range lines {
		drawText(img, 250, y, line, color.Black)
		y += 26
	}

	payload := ScanPayload{
		TeamCode:        team.TeamCode,
		ParticipantID:   member.ParticipantID,
		ParticipantName: member.Name,
		IsTeamLeader:    member.IsTeamLeader,
		Timestamp:       now.UTC().Format(time.RFC3339),
	}
	qrBytes, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encoding scan payload: %w", err)
	}

	qr, err := qrcode.New(string(qrBytes), qrcode.High)
	if err != nil {
		return nil, fmt.Errorf("generating QR code: %w", err)
	}
	qr.BackgroundColor = color.Transparent
	qrImg := qr.Image(qrModuleSize)
	qrRect := image.Rect(cardWidth-qrModuleSize-24, cardHeight-qrModuleSize-24, cardWidth-24, cardHeight-24)
	draw.Draw(img, qrRect, qrImg, image.Point{}, draw.Over)

	caption := captions[member.Index%len(captions)]
	drawText(img, 24, cardHeight-16, caption, color.Gray{Y: 96})

	return img, nil
}

func drawText(img draw.Image, x, y int, s string, c color.Color) {
	d := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(c),
		Face: basicfont.Face7x13,
		Dot:  fixed.Point26_6{X: fixed.I(x), Y: fixed.I(y)},
	}
	d.DrawString(s)
}

func drawCircularPhoto(dst draw.Image, src image.Image, rect image.Rectangle) {
	size := rect.Dx()
	if rect.Dy() < size {
		size = rect.Dy()
	}
	radius := size / 2
	center := image.Point{X: rect.Min.X + radius, Y: rect.Min.Y + radius}

	mask := image.NewAlpha(image.Rect(0, 0, size, size))
	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			dx := float64(x - radius)
			dy := float64(y - radius)
			if math.Hypot(dx, dy) <= float64(radius) {
				mask.SetAlpha(x, y, color.Alpha{A: 255})
			}
		}
	}

	draw.DrawMask(dst, image.Rect(center.X-radius, center.Y-radius, center.X+radius, center.Y+radius),
		src, src.Bounds().Min, mask, image.Point{}, draw.Over)
}

func drawMonogram(dst draw.Image, name string, rect image.Rectangle) {
	draw.Draw(dst, rect, &image.Uniform{C: color.RGBA{R: 0x2a, G: 0x4d, B: 0x8f, A: 255}}, image.Point{}, draw.Src)

	initial := "?"
	if len(name) > 0 {
		initial = string([]rune(name)[0])
	}
	cx := rect.Min.X + rect.Dx()/2 - 5
	cy := rect.Min.Y + rect.Dy()/2
	drawText(dst, cx, cy, initial, color.White)
}
