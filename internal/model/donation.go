// Package model defines the data structures used throughout the application.
package model

import (
	"crypto/md5"
	"encoding/hex"
	"strings"
	"time"

	"github.com/sakif/donation-backend/internal/money"
)

// DefaultPackage is used when a submission names no package.
const DefaultPackage = "tiny"

// Donation is the sole persisted entity.
//
// Amounts are integer minor units (cents). CardToken is the processor's
// one-time card token; CustomerID and ChargeID are only set after the
// corresponding processor call succeeds.
//
// The validate tags are evaluated by the service layer before any payment
// call is made.
type Donation struct {
	ID         string `json:"id"          db:"id"`
	CardToken  string `json:"-"           db:"stripe_card_token"  validate:"required"`
	CustomerID string `json:"-"           db:"stripe_customer_id"`
	ChargeID   string `json:"-"           db:"stripe_charge_id"`

	Package string `json:"package" db:"package" validate:"required,max=50"`
	Amount  int64  `json:"amount"  db:"amount"  validate:"required,gt=0"`
	AddVAT  bool   `json:"add_vat" db:"add_vat"`
	VATID   string `json:"vat_id"  db:"vat_id"  validate:"max=50"`

	Name          string `json:"name"           db:"name"           validate:"max=255"`
	Email         string `json:"email"          db:"email"          validate:"omitempty,email,max=255"`
	Address       string `json:"address"        db:"address"        validate:"max=255"`
	Zip           string `json:"zip"            db:"zip"            validate:"max=20"`
	City          string `json:"city"           db:"city"           validate:"max=100"`
	State         string `json:"state"          db:"state"          validate:"max=100"`
	Country       string `json:"country"        db:"country"        validate:"max=100"`
	TwitterHandle string `json:"twitter_handle" db:"twitter_handle" validate:"max=50"`
	GithubHandle  string `json:"github_handle"  db:"github_handle"  validate:"max=50"`
	Homepage      string `json:"homepage"       db:"homepage"       validate:"max=255"`
	Comment       string `json:"comment"        db:"comment"        validate:"max=2000"`
	Display       bool   `json:"display"        db:"display"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`

	// ChargedAmount is what the processor was asked to charge, VAT
	// included. It is set by a successful charge and not stored.
	ChargedAmount int64 `json:"-" db:"-"`
}

// Fields is what a donor submits. Display is a pointer so that an absent
// flag keeps the default of true.
type Fields struct {
	CardToken     string `json:"stripe_card_token"`
	Package       string `json:"package"`
	Amount        int64  `json:"amount"`
	AddVAT        bool   `json:"add_vat"`
	VATID         string `json:"vat_id"`
	Name          string `json:"name"`
	Email         string `json:"email"`
	Address       string `json:"address"`
	Zip           string `json:"zip"`
	City          string `json:"city"`
	State         string `json:"state"`
	Country       string `json:"country"`
	TwitterHandle string `json:"twitter_handle"`
	GithubHandle  string `json:"github_handle"`
	Homepage      string `json:"homepage"`
	Comment       string `json:"comment"`
	Display       *bool  `json:"display"`
}

// NewDonation builds an unsaved donation from submitted fields, running the
// normalizing setters. Identity and handle fields are trimmed of surrounding
// whitespace first, so " @ada" becomes "ada". The setters alone do not trim.
func NewDonation(f Fields) *Donation {
	d := &Donation{
		CardToken: strings.TrimSpace(f.CardToken),
		Package:   strings.TrimSpace(f.Package),
		Amount:    f.Amount,
		AddVAT:    f.AddVAT,
		VATID:     strings.TrimSpace(f.VATID),
		Name:      strings.TrimSpace(f.Name),
		Email:     strings.TrimSpace(f.Email),
		Address:   f.Address,
		Zip:       f.Zip,
		City:      f.City,
		State:     f.State,
		Country:   f.Country,
		Comment:   f.Comment,
		Display:   true,
	}
	if f.Display != nil {
		d.Display = *f.Display
	}
	d.SetTwitterHandle(strings.TrimSpace(f.TwitterHandle))
	d.GithubHandle = strings.TrimSpace(f.GithubHandle)
	d.SetHomepage(strings.TrimSpace(f.Homepage))
	return d
}

// SetTwitterHandle stores the handle without one leading "@".
func (d *Donation) SetTwitterHandle(name string) {
	d.TwitterHandle = strings.TrimPrefix(name, "@")
}

// SetHomepage stores url, prefixing "http://" when a non-empty value has no
// http:// or https:// scheme. The scheme check is case-sensitive.
func (d *Donation) SetHomepage(url string) {
	if url == "" || strings.HasPrefix(url, "http://") || strings.HasPrefix(url, "https://") {
		d.Homepage = url
		return
	}
	d.Homepage = "http://" + url
}

// IsPersisted reports whether the repository has assigned an id.
func (d *Donation) IsPersisted() bool {
	return d.ID != ""
}

// AmountInMajorUnits is the donation amount in whole currency units.
func (d *Donation) AmountInMajorUnits() int64 {
	return money.AmountInMajorUnits(d.Amount)
}

// ChargeAmount is what the processor is asked to charge: the amount plus VAT
// when the donor opted in.
func (d *Donation) ChargeAmount() (int64, error) {
	if !d.AddVAT {
		return d.Amount, nil
	}
	return money.AmountWithVAT(d.Amount)
}

// GravatarURL is derived from the real email, whatever the display flag says.
func (d *Donation) GravatarURL() string {
	return GravatarURL(d.Email)
}

const gravatarBase = "https://secure.gravatar.com/avatar/"

// GravatarURL builds the avatar URL for an email address. An empty email
// still yields a URL (the hash of the empty string), which Gravatar serves as
// its default image.
func GravatarURL(email string) string {
	sum := md5.Sum([]byte(strings.ToLower(strings.TrimSpace(email))))
	return gravatarBase + hex.EncodeToString(sum[:])
}

// AnonymousName replaces the donor name in public views when display is off.
const AnonymousName = "Anonymous"

// PublicView is the only shape in which donations leave the service publicly.
type PublicView struct {
	Package       string    `json:"package"`
	Name          string    `json:"name"`
	TwitterHandle string    `json:"twitter_handle"`
	GithubHandle  string    `json:"github_handle"`
	Homepage      string    `json:"homepage"`
	Comment       string    `json:"comment"`
	CreatedAt     time.Time `json:"created_at"`
	Amount        int64     `json:"amount"`
	GravatarURL   string    `json:"gravatar_url"`
}

// PublicView returns the public serialization. When Display is false the
// identifying fields are replaced by the anonymous placeholder; the
// receiver is never modified.
func (d *Donation) PublicView() PublicView {
	v := PublicView{
		Package:       d.Package,
		Name:          d.Name,
		TwitterHandle: d.TwitterHandle,
		GithubHandle:  d.GithubHandle,
		Homepage:      d.Homepage,
		Comment:       d.Comment,
		CreatedAt:     d.CreatedAt,
		Amount:        d.AmountInMajorUnits(),
		GravatarURL:   d.GravatarURL(),
	}
	if !d.Display {
		v.Name = AnonymousName
		v.TwitterHandle = ""
		v.GithubHandle = ""
		v.Homepage = ""
		v.Comment = ""
	}
	return v
}

// PublicViews maps a listing to public views, preserving order.
func PublicViews(ds []Donation) []PublicView {
	out := make([]PublicView, 0, len(ds))
	for i := range ds {
		out = append(out, ds[i].PublicView())
	}
	return out
}
