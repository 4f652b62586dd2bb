package card

import (
	"bytes"
	"context"
	"fmt"
	"image/png"
	"os"

	"github.com/jung-kurt/gofpdf"

	"github.com/hacksprint/hacksprint/pkg/clock"
	"github.com/hacksprint/hacksprint/pkg/registration"
)

// Pipeline renders every member of a team and assembles the cards into a
// single multi-page PDF document, implementing registration.ArtifactPipeline.
type Pipeline struct {
	renderer *Renderer
	tempDir  string
	clock    clock.Clock
}

// NewPipeline creates a card rendering and document assembly pipeline.
// tempDir may be empty, in which case os.CreateTemp uses the OS default.
func NewPipeline(renderer *Renderer, tempDir string, c clock.Clock) *Pipeline {
	return &Pipeline{renderer: renderer, tempDir: tempDir, clock: c}
}

// BuildDocument renders one card per member and assembles them into a
// single multi-page PDF, one page per member in index order. The caller
// owns the returned temp file and must delete it.
func (p *Pipeline) BuildDocument(ctx context.Context, team *registration.Team) (string, error) {
	now := p.clock.Now()

	pdf := gofpdf.NewCustom(&gofpdf.InitType{
		UnitStr: "pt",
		Size:    gofpdf.SizeType{Wd: cardWidth, Ht: cardHeight},
	})

	for i := range team.Members {
		member := &team.Members[i]

		raster, err := p.renderer.Render(team, member, nil, now)
		if err != nil {
			return "", fmt.Errorf("rendering card for %s: %w", member.ParticipantID, err)
		}

		var buf bytes.Buffer
		if err := png.Encode(&buf, raster); err != nil {
			return "", fmt.Errorf("encoding card raster for %s: %w", member.ParticipantID, err)
		}

		pdf.AddPageFormat("P", gofpdf.SizeType{Wd: cardWidth, Ht: cardHeight})
		imageName := fmt.Sprintf("card-%d", i)
		pdf.RegisterImageOptionsReader(imageName, gofpdf.ImageOptions{ImageType: "PNG"}, &buf)
		pdf.ImageOptions(imageName, 0, 0, cardWidth, cardHeight, false, gofpdf.ImageOptions{ImageType: "PNG"}, 0, "")
	}

	if err := pdf.Error(); err != nil {
		return "", fmt.Errorf("assembling document: %w", err)
	}

	file, err := os.CreateTemp(p.tempDir, fmt.Sprintf("team-%s-*.pdf", team.TeamID))
	if err != nil {
		return "", fmt.Errorf("creating temp document: %w", err)
	}
	defer file.Close()

	if err := pdf.Output(file); err != nil {
		return "", fmt.Errorf("writing document: %w", err)
	}

	return file.Name(), nil
}
