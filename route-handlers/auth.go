package routehandlers

import (
	"errors"
	"net/http"

	"github.com/coreybb/eventhub/auth"
	"github.com/coreybb/eventhub/models"
	"github.com/coreybb/eventhub/webutil"
)

type registerRequest struct {
	Name     string `json:"name" validate:"required"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6,max=72"`
	PhotoURL string `json:"photoURL" validate:"omitempty,url"`
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type authResponse struct {
	Message string       `json:"message"`
	Token   string       `json:"token"`
	User    *models.User `json:"user"`
}

type userResponse struct {
	User *models.User `json:"user"`
}

type tokenResponse struct {
	Token string `json:"token"`
}

type AuthHandler struct {
	Auth *auth.Service
}

func NewAuthHandler(svc *auth.Service) *AuthHandler {
	return &AuthHandler{Auth: svc}
}

func (h *AuthHandler) HandleRegister(w http.ResponseWriter, r *http.Request) error {
	var req registerRequest
	if err := decodeAndValidate(w, r, &req); err != nil {
		return err
	}

	name := webutil.SanitizeText(req.Name)
	if name == "" {
		return webutil.ErrValidation("", []webutil.FieldError{
			{Field: "name", Tag: "required", Message: "name is required"},
		}, nil)
	}

	user, token, err := h.Auth.Register(r.Context(), auth.RegisterInput{
		Name:     name,
		Email:    req.Email,
		Password: req.Password,
		PhotoURL: req.PhotoURL,
	})
	if err != nil {
		if errors.Is(err, auth.ErrUserExists) {
			return webutil.ErrConflictWrap("Email already registered.", err)
		}
		return webutil.ErrInternalServerWrap("failed to register user", err)
	}

	webutil.RespondWithJSON(w, http.StatusCreated, authResponse{
		Message: "Registered successfully",
		Token:   token,
		User:    user,
	})
	return nil
}

func (h *AuthHandler) HandleLogin(w http.ResponseWriter, r *http.Request) error {
	var req loginRequest
	if err := decodeAndValidate(w, r, &req); err != nil {
		return err
	}

	user, token, err := h.Auth.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			return webutil.ErrUnauthorizedWrap("Invalid credentials.", err)
		}
		return webutil.ErrInternalServerWrap("failed to log in", err)
	}

	webutil.RespondWithJSON(w, http.StatusOK, authResponse{
		Message: "Login successful",
		Token:   token,
		User:    user,
	})
	return nil
}

// HandleVerify and HandleMe both echo the authenticated user.
func (h *AuthHandler) HandleVerify(w http.ResponseWriter, r *http.Request) error {
	user, err := currentUser(r)
	if err != nil {
		return err
	}
	webutil.RespondWithJSON(w, http.StatusOK, userResponse{User: user})
	return nil
}

func (h *AuthHandler) HandleMe(w http.ResponseWriter, r *http.Request) error {
	return h.HandleVerify(w, r)
}

func (h *AuthHandler) HandleRefresh(w http.ResponseWriter, r *http.Request) error {
	user, err := currentUser(r)
	if err != nil {
		return err
	}

	token, err := h.Auth.Refresh(r.Context(), user)
	if err != nil {
		return webutil.ErrInternalServerWrap("token refresh failed", err)
	}

	webutil.RespondWithJSON(w, http.StatusOK, tokenResponse{Token: token})
	return nil
}

func currentUser(r *http.Request) (*models.User, error) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok {
		return nil, webutil.ErrUnauthorized("")
	}
	return user, nil
}
