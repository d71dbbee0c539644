// Package provider holds the content-extraction providers run by the
// extract orchestrator.
package provider

import (
	"context"
	"strings"

	"github.com/sells-group/article-digest/internal/extract"
	"github.com/sells-group/article-digest/internal/model"
)

// Render captures the page through a browser-grade Renderer.
type Render struct {
	renderer extract.Renderer
}

// NewRender creates the render provider. A nil renderer disables it.
func NewRender(r extract.Renderer) *Render {
	return &Render{renderer: r}
}

func (p *Render) Name() string { return extract.ProviderRender }

func (p *Render) Supports(url string) bool {
	return p.renderer != nil && !extract.IsBinaryDocument(url)
}

func (p *Render) Execute(ctx context.Context, ec *extract.Context) error {
	if ec.DisableBrowser {
		return nil
	}
	res, err := p.renderer.Render(ctx, ec.URL)
	if err != nil {
		return err
	}

	if res.Status == extract.RenderOK {
		ec.SetHTML(res.HTML, p.Name())
		ec.SetText(res.Text, p.Name())
		if res.FinalURL != ec.URL {
			ec.SetField(extract.FieldFinalURL, res.FinalURL, p.Name())
		}
		ec.RecordOutcome(p.Name(), model.ProviderOutcome{Status: model.OutcomeOK, StatusCode: res.StatusCode})
		return nil
	}

	parts := []string{"Render capture failed"}
	if res.Status == extract.RenderTimeout {
		parts = append(parts, "timeout")
	}
	if res.Error != "" {
		parts = append(parts, res.Error)
	}
	ec.AddNote(strings.Join(parts, ": "))

	status := model.OutcomeError
	if res.Status == extract.RenderTimeout {
		status = model.OutcomeTimeout
	}
	ec.RecordOutcome(p.Name(), model.ProviderOutcome{Status: status, StatusCode: res.StatusCode, Error: res.Error})
	return nil
}
