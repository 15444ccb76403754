package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/ignite/cert-registry/internal/certificate"
	"github.com/ignite/cert-registry/internal/registration"
	"github.com/ignite/cert-registry/internal/storage"
)

// Handlers holds the service dependencies for all API endpoints.
// Services are injected at construction; there is no ambient state.
type Handlers struct {
	registrations *registration.Service
	certificates  *certificate.Service
}

// NewHandlers creates the API handler set.
func NewHandlers(registrations *registration.Service, certificates *certificate.Service) *Handlers {
	return &Handlers{
		registrations: registrations,
		certificates:  certificates,
	}
}

// HealthCheck reports liveness.
func (h *Handlers) HealthCheck(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type registerRequest struct {
	Email       string `json:"email"`
	DisplayName string `json:"displayName"`
	AccountType string `json:"accountType"`
}

type registerResponse struct {
	IdentityID  string `json:"identityId"`
	Email       string `json:"email"`
	DisplayName string `json:"displayName"`
}

// Register handles POST /api/registrations.
func (h *Handlers) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondJSON(w, http.StatusBadRequest, map[string]string{"message": "invalid JSON body"})
		return
	}

	id, err := h.registrations.Register(r.Context(), req.Email, req.DisplayName, req.AccountType)
	if err != nil {
		var vErr *registration.ValidationError
		var dupErr *registration.AlreadyRegisteredError
		switch {
		case errors.As(err, &vErr):
			respondJSON(w, http.StatusBadRequest, map[string]string{"message": vErr.Msg})
		case errors.As(err, &dupErr):
			respondJSON(w, http.StatusConflict, map[string]string{
				"message":    "email is already registered",
				"identityId": dupErr.IdentityID,
			})
		default:
			respondSafeError(w, r, http.StatusInternalServerError, err, "registration could not be completed")
		}
		return
	}

	respondJSON(w, http.StatusCreated, registerResponse{
		IdentityID:  id.IdentityID,
		Email:       id.Email,
		DisplayName: id.DisplayName,
	})
}

// GetRegistration handles GET /api/registrations/{identityId}.
func (h *Handlers) GetRegistration(w http.ResponseWriter, r *http.Request) {
	identityID := chi.URLParam(r, "identityId")

	id, err := h.registrations.Lookup(r.Context(), identityID)
	if err != nil {
		var vErr *registration.ValidationError
		switch {
		case errors.As(err, &vErr):
			respondJSON(w, http.StatusBadRequest, map[string]string{"message": vErr.Msg})
		case errors.Is(err, storage.ErrNotFound):
			respondJSON(w, http.StatusNotFound, map[string]string{"message": "identity not found"})
		default:
			respondSafeError(w, r, http.StatusInternalServerError, err, "lookup could not be completed")
		}
		return
	}

	respondJSON(w, http.StatusOK, id)
}

type issueRequest struct {
	IdentityID      string `json:"identityId"`
	CertificateType string `json:"certificateType"`
	ValidityDays    int    `json:"validityDays"`
}

// issueResponse exposes certificate metadata plus a short fingerprint
// prefix. The full fingerprint is deliberately absent: a response-channel
// observer must not learn enough to forge a validation.
type issueResponse struct {
	CertificateID      string `json:"certificateId"`
	IdentityID         string `json:"identityId"`
	CertificateType    string `json:"certificateType"`
	IssuedAt           string `json:"issuedAt"`
	ExpiresAt          string `json:"expiresAt"`
	Status             string `json:"status"`
	FingerprintPreview string `json:"fingerprintPreview"`
}

// IssueCertificate handles POST /api/certificates.
func (h *Handlers) IssueCertificate(w http.ResponseWriter, r *http.Request) {
	var req issueRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondJSON(w, http.StatusBadRequest, map[string]string{"message": "invalid JSON body"})
		return
	}

	cert, err := h.certificates.Issue(r.Context(), req.IdentityID, req.CertificateType, req.ValidityDays)
	if err != nil {
		var vErr *certificate.ValidationError
		switch {
		case errors.As(err, &vErr):
			respondJSON(w, http.StatusBadRequest, map[string]string{"message": vErr.Msg})
		case errors.Is(err, storage.ErrNotFound):
			respondJSON(w, http.StatusNotFound, map[string]string{"message": "identity not found"})
		default:
			respondSafeError(w, r, http.StatusInternalServerError, err, "certificate could not be issued")
		}
		return
	}

	respondJSON(w, http.StatusCreated, issueResponse{
		CertificateID:      cert.CertificateID,
		IdentityID:         cert.OwnerIdentityID,
		CertificateType:    cert.CertificateType,
		IssuedAt:           cert.IssuedAt,
		ExpiresAt:          cert.ExpiresAt,
		Status:             cert.Status,
		FingerprintPreview: certificate.Preview(cert.IntegrityFingerprint),
	})
}

// ValidateCertificate handles POST /api/certificates/{certificateId}/validate.
// Validation outcomes (ok, expired, tampered, revoked, not_found) are
// 200-level results, not errors.
func (h *Handlers) ValidateCertificate(w http.ResponseWriter, r *http.Request) {
	certificateID := chi.URLParam(r, "certificateId")

	result, err := h.certificates.Validate(r.Context(), certificateID)
	if err != nil {
		var vErr *certificate.ValidationError
		if errors.As(err, &vErr) {
			respondJSON(w, http.StatusBadRequest, map[string]string{"message": vErr.Msg})
			return
		}
		respondSafeError(w, r, http.StatusInternalServerError, err, "certificate could not be validated")
		return
	}

	respondJSON(w, http.StatusOK, result)
}
