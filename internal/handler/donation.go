// Package handler contains the HTTP handlers for the donation endpoints.
//
// Handlers parse the request, call the service and write the response.
// They hold no business logic; service errors are mapped to status codes
// in one place (classify).
package handler

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/skip2/go-qrcode"

	"github.com/sakif/donation-backend/internal/apperror"
	"github.com/sakif/donation-backend/internal/model"
	"github.com/sakif/donation-backend/internal/service"
)

const qrCodeSize = 256

// DonationHandler serves /donations. baseURL is used to build absolute
// confirmation links; when empty it is derived from the request.
type DonationHandler struct {
	service *service.DonationService
	views   *views
	baseURL string
	logger  *slog.Logger
}

// NewDonationHandler parses the embedded HTML views once at startup.
func NewDonationHandler(svc *service.DonationService, baseURL string, logger *slog.Logger) (*DonationHandler, error) {
	v, err := parseViews()
	if err != nil {
		return nil, err
	}
	return &DonationHandler{
		service: svc,
		views:   v,
		baseURL: strings.TrimRight(baseURL, "/"),
		logger:  logger,
	}, nil
}

// HandleList returns the public views of every donation, newest first.
//
// HTTP: GET /donations
func (h *DonationHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	donations, err := h.service.List(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, model.PublicViews(donations))
}

// HandleStats returns {"<package>": <count>}.
//
// HTTP: GET /donations/stats
func (h *DonationHandler) HandleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.service.Stats(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

type totalResponse struct {
	Total float64 `json:"total"`
}

// HandleTotal returns the sum of all donations in major units.
//
// HTTP: GET /donations/total
func (h *DonationHandler) HandleTotal(w http.ResponseWriter, r *http.Request) {
	total, err := h.service.Total(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, totalResponse{Total: total})
}

// receipt is the JSON body of a successful POST /donations.
type receipt struct {
	ID         string    `json:"id"`
	Package    string    `json:"package"`
	Amount     int64     `json:"amount"`
	AddVAT     bool      `json:"add_vat"`
	Charged    int64     `json:"charged_amount"`
	ChargeID   string    `json:"charge_id"`
	ConfirmURL string    `json:"confirm_url"`
	CreatedAt  time.Time `json:"created_at"`
}

// HandleCreate validates, charges and stores a donation.
//
// HTTP: POST /donations (form or JSON)
//
// HTML clients always get the checkout view: 200 after a successful charge,
// otherwise the form again with the errors and the status from classify.
// JSON clients get a receipt or an ErrorResponse with the same statuses.
func (h *DonationHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	sub, err := parseSubmission(w, r)
	if err != nil {
		h.logger.Debug("invalid donation request", slog.String("error", err.Error()))
		if wantsJSON(r) {
			writeBadRequest(w, "Invalid request body")
			return
		}
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}

	d, err := h.service.Resolve(r.Context(), service.BuildNew{Fields: sub.fields()})
	if err != nil {
		writeError(w, err)
		return
	}

	created, err := h.service.Create(r.Context(), d)
	if err != nil {
		if wantsJSON(r) {
			writeError(w, err)
			return
		}
		status, _ := classify(err)
		render(w, h.logger, h.views.checkout, status, page{
			Title:   "Donate",
			Errors:  publicMessages(err),
			Summary: summarize(d),
		})
		return
	}

	if wantsJSON(r) {
		writeJSON(w, http.StatusOK, receipt{
			ID:         created.ID,
			Package:    created.Package,
			Amount:     created.Amount,
			AddVAT:     created.AddVAT,
			Charged:    created.ChargedAmount,
			ChargeID:   created.ChargeID,
			ConfirmURL: h.confirmURL(r, created.ID),
			CreatedAt:  created.CreatedAt,
		})
		return
	}
	render(w, h.logger, h.views.checkout, http.StatusOK, page{
		Title:   "Thank you",
		Summary: summarize(created),
	})
}

// HandleConfirm renders the confirmation page of a stored donation. It
// serves both GET /donations/{id} and GET /donations/{id}/confirm.
func (h *DonationHandler) HandleConfirm(w http.ResponseWriter, r *http.Request) {
	d, err := h.service.Resolve(r.Context(), service.ByID{ID: chi.URLParam(r, "id")})
	if err != nil {
		h.writePageError(w, r, err)
		return
	}

	if wantsJSON(r) {
		writeJSON(w, http.StatusOK, d.PublicView())
		return
	}
	render(w, h.logger, h.views.confirm, http.StatusOK, page{
		Title:   "Donation confirmed",
		Summary: publicSummary(d),
	})
}

// HandleQRCode returns a PNG encoding the absolute confirmation URL.
//
// HTTP: GET /donations/{id}/qrcode
func (h *DonationHandler) HandleQRCode(w http.ResponseWriter, r *http.Request) {
	d, err := h.service.Resolve(r.Context(), service.ByID{ID: chi.URLParam(r, "id")})
	if err != nil {
		h.writePageError(w, r, err)
		return
	}

	png, err := qrcode.Encode(h.confirmURL(r, d.ID), qrcode.Medium, qrCodeSize)
	if err != nil {
		h.logger.Error("failed to generate QR code",
			slog.String("id", d.ID),
			slog.String("error", err.Error()),
		)
		writeError(w, fmt.Errorf("generating QR code: %w", err))
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "public, max-age=86400")
	w.WriteHeader(http.StatusOK)
	w.Write(png)
}

func (h *DonationHandler) writePageError(w http.ResponseWriter, r *http.Request, err error) {
	if wantsJSON(r) || !errors.Is(err, apperror.ErrNotFound) {
		writeError(w, err)
		return
	}
	http.Error(w, "Donation not found", http.StatusNotFound)
}

func (h *DonationHandler) confirmURL(r *http.Request, id string) string {
	base := h.baseURL
	if base == "" {
		scheme := "http"
		if r.TLS != nil {
			scheme = "https"
		}
		if proto := r.Header.Get("X-Forwarded-Proto"); proto != "" {
			scheme = proto
		}
		base = scheme + "://" + r.Host
	}
	return base + "/donations/" + id + "/confirm"
}

// HandleHealth reports liveness.
//
// HTTP: GET /healthz
func HandleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
}
