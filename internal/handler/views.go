package handler

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"

	"github.com/sakif/donation-backend/internal/model"
	"github.com/sakif/donation-backend/internal/money"
)

//go:embed templates/*.html
var templateFS embed.FS

// views holds one template set per page; each page fills the "content"
// block of base.html.
type views struct {
	checkout *template.Template
	confirm  *template.Template
}

func parseViews() (*views, error) {
	checkout, err := template.ParseFS(templateFS, "templates/base.html", "templates/checkout.html")
	if err != nil {
		return nil, fmt.Errorf("parsing checkout view: %w", err)
	}
	confirm, err := template.ParseFS(templateFS, "templates/base.html", "templates/confirm.html")
	if err != nil {
		return nil, fmt.Errorf("parsing confirm view: %w", err)
	}
	return &views{checkout: checkout, confirm: confirm}, nil
}

type page struct {
	Title   string
	Errors  []string
	Summary summary
}

// summary is what the checkout and confirmation pages display.
type summary struct {
	ID        string
	Persisted bool
	ChargeID  string

	Package     string
	AmountMinor int64
	Amount      string
	AddVAT      bool
	VAT         string
	Total       string
	VATID       string

	Name          string
	Email         string
	TwitterHandle string
	GithubHandle  string
	Homepage      string
	Comment       string
	Display       bool
	GravatarURL   string
	CreatedAt     string

	ConfirmURL string
	QRCodeURL  string
}

// summarize renders amounts for display. VAT lines are left empty when the
// amount does not allow a VAT calculation.
func summarize(d *model.Donation) summary {
	s := summary{
		ID:            d.ID,
		Persisted:     d.IsPersisted(),
		ChargeID:      d.ChargeID,
		Package:       d.Package,
		AmountMinor:   d.Amount,
		Amount:        money.FormatCurrency(d.AmountInMajorUnits()),
		AddVAT:        d.AddVAT,
		VATID:         d.VATID,
		Name:          d.Name,
		Email:         d.Email,
		TwitterHandle: d.TwitterHandle,
		GithubHandle:  d.GithubHandle,
		Homepage:      d.Homepage,
		Comment:       d.Comment,
		Display:       d.Display,
		GravatarURL:   d.GravatarURL(),
	}
	if vat, err := money.VAT(d.Amount); err == nil {
		s.VAT = money.FormatMinor(vat)
		s.Total = money.FormatMinor(d.Amount + vat)
	}
	if !d.CreatedAt.IsZero() {
		s.CreatedAt = d.CreatedAt.Format("January 2, 2006")
	}
	if d.IsPersisted() {
		s.ConfirmURL = "/donations/" + d.ID + "/confirm"
		s.QRCodeURL = "/donations/" + d.ID + "/qrcode"
	}
	return s
}

// publicSummary is summarize with the donor identity taken from the public
// view, for pages anyone holding the link can open.
func publicSummary(d *model.Donation) summary {
	s := summarize(d)
	v := d.PublicView()
	s.Name = v.Name
	s.Email = ""
	s.TwitterHandle = v.TwitterHandle
	s.GithubHandle = v.GithubHandle
	s.Homepage = v.Homepage
	s.Comment = v.Comment
	return s
}

// render executes into a buffer first so a template error can still
// produce a clean 500.
func render(w http.ResponseWriter, logger *slog.Logger, tmpl *template.Template, status int, data page) {
	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, "base", data); err != nil {
		logger.Error("failed to render template",
			slog.String("template", tmpl.Name()),
			slog.String("error", err.Error()),
		)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	buf.WriteTo(w)
}
