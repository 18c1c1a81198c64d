package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/ethereum/go-ethereum/common"

	"esgledger/auth"
	"esgledger/ledger"
	"esgledger/models"
	"esgledger/store"
)

type registerRequest struct {
	Email          string `json:"email"`
	Password       string `json:"password"`
	CompanyName    string `json:"companyName"`
	WalletAddress  string `json:"walletAddress"`
	RegistrationID string `json:"registrationId"`
	Role           string `json:"role"`
}

type authResponse struct {
	Token       string              `json:"token"`
	Participant *models.Participant `json:"participant"`
}

// Register creates an off-chain participant and issues a session token. No
// ledger interaction happens here; on-ledger registration is a separate,
// explicit pipeline.
func (s *Server) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, r, ledger.Errorf(ledger.KindValidation, "invalid payload"))
		return
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	req.CompanyName = strings.TrimSpace(req.CompanyName)
	req.WalletAddress = strings.TrimSpace(req.WalletAddress)
	if req.Email == "" || req.Password == "" || req.CompanyName == "" || req.WalletAddress == "" {
		s.writeError(w, r, ledger.Errorf(ledger.KindValidation, "email, password, company name and wallet address are required"))
		return
	}
	if !common.IsHexAddress(req.WalletAddress) {
		s.writeError(w, r, ledger.Errorf(ledger.KindValidation, "invalid wallet address format"))
		return
	}
	role := req.Role
	if role == "" {
		role = models.RoleCompany
	}
	if !models.ValidRole(role) {
		s.writeError(w, r, ledger.Errorf(ledger.KindValidation, "unknown role %q", role))
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		s.writeError(w, r, ledger.NewError(ledger.KindValidation, "unusable password", err))
		return
	}

	participant := &models.Participant{
		Email:          req.Email,
		PasswordHash:   hash,
		CompanyName:    req.CompanyName,
		WalletAddress:  req.WalletAddress,
		RegistrationID: strings.TrimSpace(req.RegistrationID),
		Role:           role,
	}
	if err := s.store.CreateParticipant(r.Context(), participant); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			s.writeError(w, r, ledger.Errorf(ledger.KindValidation, "email or wallet address already registered"))
			return
		}
		s.writeError(w, r, err)
		return
	}

	token, err := s.issuer.Issue(participant.ID, auth.Role(participant.Role))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.logger.Info("participant registered", "participant", participant.ID, "role", participant.Role)
	writeJSON(w, http.StatusCreated, authResponse{Token: token, Participant: participant})
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Login verifies credentials and issues a session token.
func (s *Server) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, r, ledger.Errorf(ledger.KindValidation, "invalid payload"))
		return
	}
	if strings.TrimSpace(req.Email) == "" || req.Password == "" {
		s.writeError(w, r, ledger.Errorf(ledger.KindValidation, "email and password are required"))
		return
	}

	participant, err := s.store.ParticipantByEmail(r.Context(), req.Email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "invalid_credentials"})
			return
		}
		s.writeError(w, r, err)
		return
	}
	if !auth.VerifyPassword(participant.PasswordHash, req.Password) {
		writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "invalid_credentials"})
		return
	}

	token, err := s.issuer.Issue(participant.ID, auth.Role(participant.Role))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, authResponse{Token: token, Participant: participant})
}
