package api

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/shiftlog/shiftlog/pkg/models"
	"github.com/shiftlog/shiftlog/pkg/repository"
)

type AuthHandler struct {
	techRepo      repository.TechnicianRepo
	jwtSecret     string
	tokenDuration time.Duration
	defaultShift  string
}

// NewAuthHandler creates a new AuthHandler with required dependencies.
func NewAuthHandler(tr repository.TechnicianRepo, jwtSecret string, tokenDuration time.Duration, defaultShift string) *AuthHandler {
	return &AuthHandler{techRepo: tr, jwtSecret: jwtSecret, tokenDuration: tokenDuration, defaultShift: defaultShift}
}

type loginRequest struct {
	TechnicianID string `json:"technicianId"`
	Password     string `json:"password"`
	Shift        string `json:"shift"`
}

type loginResponse struct {
	Token string            `json:"token"`
	User  models.Technician `json:"user"`
}

// Login exchanges technician credentials for a bearer token whose claims
// carry the subject, role, name and shift for the session.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, codeValidation, "Cuerpo de la petición inválido.")
		return
	}

	req.TechnicianID = strings.TrimSpace(req.TechnicianID)
	shift := strings.TrimSpace(req.Shift)
	if shift == "" {
		shift = h.defaultShift
	}

	if req.TechnicianID == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, codeValidation, "Técnico y contraseña son obligatorios.")
		return
	}

	ctx := r.Context()

	tech, err := h.techRepo.GetTechnician(ctx, req.TechnicianID)
	if err != nil || tech == nil {
		writeError(w, http.StatusUnauthorized, codeBadCreds, "Credenciales inválidas.")
		return
	}

	if bcrypt.CompareHashAndPassword([]byte(tech.PasswordHash), []byte(req.Password)) != nil {
		writeError(w, http.StatusUnauthorized, codeBadCreds, "Credenciales inválidas.")
		return
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":   tech.ID,
		"role":  string(tech.Role),
		"name":  tech.Name,
		"shift": shift,
		"exp":   time.Now().Add(h.tokenDuration).Unix(),
	})
	tokenStr, err := token.SignedString([]byte(h.jwtSecret))
	if err != nil {
		writeError(w, http.StatusInternalServerError, codeInternal, "No se pudo iniciar sesión en este momento.")
		return
	}

	user := *tech
	user.Shift = shift
	writeData(w, http.StatusOK, loginResponse{Token: tokenStr, User: user})
}

// Technicians lists active technicians for the login screen; no auth.
func (h *AuthHandler) Technicians(w http.ResponseWriter, r *http.Request) {
	techs, err := h.techRepo.ListActiveTechnicians(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, codeInternal, "No se pudieron obtener los técnicos.")
		return
	}

	type publicTech struct {
		ID   string      `json:"id"`
		Name string      `json:"name"`
		Role models.Role `json:"role"`
	}
	out := make([]publicTech, 0, len(techs))
	for _, t := range techs {
		out = append(out, publicTech{ID: t.ID, Name: t.Name, Role: t.Role})
	}

	writeData(w, http.StatusOK, out)
}
