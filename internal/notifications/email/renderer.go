package email

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"net/url"
	"strconv"
	"strings"
	texttemplate "text/template"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"outreach/internal/sequencer"
	"outreach/internal/types"
)

//go:embed templates/*.html templates/*.txt
var templateFS embed.FS

// RenderedEmail holds the content of one outgoing message.
type RenderedEmail struct {
	Subject  string
	BodyHTML string
	BodyText string
}

type listingView struct {
	Address string
	Price   string
	Beds    int
	Baths   string
}

type templateData struct {
	Subject          string
	OrganizationName string
	City             string
	Region           string
	Listing          listingView
	Others           []listingView
	CityEventCount   int
	ClaimURL         string
	CallToAction     string
}

type templateKey struct {
	stage   types.Stage
	variant types.Variant
}

type templateSet struct {
	html *template.Template
	text *texttemplate.Template
}

var callToAction = map[types.Stage]string{
	types.StageDay1: "Claim your listing",
	types.StageDay3: "See who is moving in",
	types.StageDay7: "Claim before it closes",
}

// Renderer turns a sequencer.Message into subject and bodies. One template
// pair exists for every stage and variant; a missing file fails NewRenderer.
type Renderer struct {
	sets      map[templateKey]templateSet
	claimBase string
	printer   *message.Printer
}

// RendererConfig holds the parameters needed to construct a Renderer.
type RendererConfig struct {
	// ClaimBaseURL prefixes the contact's path-escaped auth token.
	ClaimBaseURL string
}

// NewRenderer parses the embedded templates.
func NewRenderer(cfg RendererConfig) (*Renderer, error) {
	if cfg.ClaimBaseURL == "" {
		return nil, fmt.Errorf("renderer: claim base URL is required")
	}

	base, err := templateFS.ReadFile("templates/base.html")
	if err != nil {
		return nil, fmt.Errorf("renderer: read base.html: %w", err)
	}

	r := &Renderer{
		sets:      make(map[templateKey]templateSet),
		claimBase: strings.TrimSuffix(cfg.ClaimBaseURL, "/") + "/",
		printer:   message.NewPrinter(language.English),
	}

	for _, stage := range types.Stages {
		for _, variant := range []types.Variant{types.VariantA, types.VariantB} {
			name := fmt.Sprintf("%s_%s", stage, variant)

			htmlSrc, err := templateFS.ReadFile("templates/" + name + ".html")
			if err != nil {
				return nil, fmt.Errorf("renderer: read %s.html: %w", name, err)
			}
			htmlTmpl, err := template.New("base").Parse(string(base))
			if err != nil {
				return nil, fmt.Errorf("renderer: parse base.html: %w", err)
			}
			if _, err := htmlTmpl.Parse(string(htmlSrc)); err != nil {
				return nil, fmt.Errorf("renderer: parse %s.html: %w", name, err)
			}

			textSrc, err := templateFS.ReadFile("templates/" + name + ".txt")
			if err != nil {
				return nil, fmt.Errorf("renderer: read %s.txt: %w", name, err)
			}
			textTmpl, err := texttemplate.New(name).Parse(string(textSrc))
			if err != nil {
				return nil, fmt.Errorf("renderer: parse %s.txt: %w", name, err)
			}
			if textTmpl.Lookup("subject") == nil {
				return nil, fmt.Errorf("renderer: %s.txt defines no subject", name)
			}

			r.sets[templateKey{stage, variant}] = templateSet{html: htmlTmpl, text: textTmpl}
		}
	}
	return r, nil
}

// Render produces the email for msg. Errors carry ErrCodeInternalRender.
func (r *Renderer) Render(msg sequencer.Message) (*RenderedEmail, error) {
	set, ok := r.sets[templateKey{msg.Stage, msg.Variant}]
	if !ok {
		return nil, types.NewAppError(types.ErrCodeInternalRender,
			fmt.Sprintf("no template for %s/%s", msg.Stage, msg.Variant), nil)
	}

	data := r.buildData(msg)

	var subject bytes.Buffer
	if err := set.text.ExecuteTemplate(&subject, "subject", data); err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalRender, "rendering subject", err)
	}
	data.Subject = strings.TrimSpace(subject.String())

	var text bytes.Buffer
	if err := set.text.Execute(&text, data); err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalRender, "rendering text body", err)
	}

	var html bytes.Buffer
	if err := set.html.ExecuteTemplate(&html, "base", data); err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalRender, "rendering html body", err)
	}

	return &RenderedEmail{
		Subject:  data.Subject,
		BodyHTML: html.String(),
		BodyText: strings.TrimSpace(text.String()) + "\n",
	}, nil
}

// ClaimURL is the link a contact follows to claim their listing.
func (r *Renderer) ClaimURL(token string) string {
	return r.claimBase + url.PathEscape(token)
}

func (r *Renderer) buildData(msg sequencer.Message) templateData {
	// Callers may share a Renderer; Casers are stateful.
	title := cases.Title(language.English)

	city := msg.Listing.City
	if city == "" {
		city = msg.Contact.City
	}
	region := msg.Listing.Region
	if region == "" {
		region = msg.Contact.Region
	}

	others := make([]listingView, 0, len(msg.CityEvents))
	for _, e := range msg.CityEvents {
		others = append(others, r.view(e.Address, e.Price, e.Beds, e.Baths))
	}

	return templateData{
		OrganizationName: msg.Contact.OrganizationName,
		City:             title.String(strings.TrimSpace(city)),
		Region:           strings.ToUpper(strings.TrimSpace(region)),
		Listing:          r.view(msg.Listing.Address, msg.Listing.Price, msg.Listing.Beds, msg.Listing.Baths),
		Others:           others,
		CityEventCount:   msg.CityEventCount,
		ClaimURL:         r.ClaimURL(msg.Contact.AuthToken),
		CallToAction:     callToAction[msg.Stage],
	}
}

func (r *Renderer) view(address string, price int64, beds int, baths float64) listingView {
	return listingView{
		Address: address,
		Price:   r.printer.Sprintf("$%d", price),
		Beds:    beds,
		Baths:   strconv.FormatFloat(baths, 'f', -1, 64),
	}
}
