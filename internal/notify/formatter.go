package notify

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"

	"github.com/iurnickita/ecosystem/internal/model"
	"github.com/iurnickita/ecosystem/internal/property"
)

//go:embed templates/*.html
var templateFS embed.FS

var crossSellTemplate = template.Must(template.ParseFS(templateFS, "templates/crosssell.html"))

const CrossSellSubject = "You might also be interested in..."

type Message struct {
	Subject string
	HTML    string
}

// Formatter собирает письмо с рекомендациями.
type Formatter struct {
	registry property.Registry
}

func NewFormatter(registry property.Registry) *Formatter {
	return &Formatter{registry: registry}
}

type recommendationView struct {
	Message      string
	PropertyName string
	PropertyURL  string
}

// Format возвращает nil, если рекомендаций нет: письмо не отправляется.
// Площадка, отсутствующая в реестре, выводится пустыми именем и адресом.
func (f *Formatter) Format(recommendations []model.Recommendation) (*Message, error) {
	if len(recommendations) == 0 {
		return nil, nil
	}

	views := make([]recommendationView, 0, len(recommendations))
	for _, rec := range recommendations {
		views = append(views, recommendationView{
			Message:      rec.Message,
			PropertyName: f.registry.Name(rec.Property),
			PropertyURL:  f.registry.URL(rec.Property),
		})
	}

	var buf bytes.Buffer
	if err := crossSellTemplate.Execute(&buf, views); err != nil {
		return nil, fmt.Errorf("render cross-sell message: %w", err)
	}

	return &Message{Subject: CrossSellSubject, HTML: buf.String()}, nil
}
