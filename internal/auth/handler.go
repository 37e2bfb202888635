package auth

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/societyhub/societyhub/internal/shared"
	"github.com/societyhub/societyhub/internal/view"
)

// Handler wires HTTP endpoints for authentication flows.
type Handler struct {
	logger         *slog.Logger
	service        *Service
	templates      *view.Engine
	sessionManager *shared.SessionManager
	csrfManager    *shared.CSRFManager
	validator      *validator.Validate
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, service *Service, templates *view.Engine, sessions *shared.SessionManager, csrf *shared.CSRFManager) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		logger:         logger,
		service:        service,
		templates:      templates,
		sessionManager: sessions,
		csrfManager:    csrf,
		validator:      validator.New(),
	}
}

// MountRoutes registers auth routes on provided router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/login", h.showLogin)
	r.Post("/login", h.handleLogin)
	r.Post("/logout", h.handleLogout)
	r.Post("/society", h.switchSociety)
}

type loginForm struct {
	Email    string `validate:"required,email"`
	Password string `validate:"required,min=8"`
}

func (h *Handler) showLogin(w http.ResponseWriter, r *http.Request) {
	h.renderLogin(w, r, http.StatusOK, "", nil)
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	sess := shared.SessionFromContext(r.Context())
	form := loginForm{
		Email:    strings.TrimSpace(r.PostFormValue("email")),
		Password: r.PostFormValue("password"),
	}
	errs := make(map[string]string)
	if err := h.validator.Struct(form); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			for _, fieldErr := range verrs {
				errs[strings.ToLower(fieldErr.Field())] = loginFieldMessage(fieldErr)
			}
		}
	}
	if len(errs) > 0 {
		h.renderLogin(w, r, http.StatusBadRequest, form.Email, errs)
		return
	}

	user, err := h.service.Authenticate(r.Context(), form.Email, form.Password)
	if errors.Is(err, shared.ErrInvalidCredentials) {
		errs["general"] = "Invalid email or password"
		h.renderLogin(w, r, http.StatusBadRequest, form.Email, errs)
		return
	}
	if err != nil {
		h.logger.Error("authenticate", slog.Any("error", err))
		errs["general"] = "Sign-in is unavailable, try again shortly"
		h.renderLogin(w, r, http.StatusServiceUnavailable, form.Email, errs)
		return
	}
	if sess == nil {
		h.logger.Error("session missing during login")
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	if err := h.sessionManager.Renew(r.Context(), sess); err != nil {
		h.logger.Error("renew session", slog.Any("error", err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	h.csrfManager.Rotate(sess)
	sess.SetUser(strconv.FormatInt(user.ID, 10))

	society, ok, err := h.service.DefaultSociety(r.Context(), user.ID)
	switch {
	case err != nil:
		h.logger.Warn("default society", slog.Int64("user_id", user.ID), slog.Any("error", err))
	case ok:
		sess.SetSociety(society.ID)
	}
	sess.AddFlash(shared.FlashMessage{Kind: shared.FlashSuccess, Message: "Welcome back"})

	expiresAt := time.Now().Add(h.sessionManager.TTL())
	if err := h.service.RegisterSession(r.Context(), sess.ID, user.ID, expiresAt, r.RemoteAddr, r.UserAgent()); err != nil {
		h.logger.Warn("register session", slog.Any("error", err))
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	sess := shared.SessionFromContext(r.Context())
	if sess != nil {
		if err := h.service.RemoveSession(r.Context(), sess.ID); err != nil {
			h.logger.Warn("remove session", slog.Any("error", err))
		}
		h.sessionManager.Destroy(sess)
	}
	http.Redirect(w, r, "/auth/login", http.StatusSeeOther)
}

func (h *Handler) switchSociety(w http.ResponseWriter, r *http.Request) {
	sess := shared.SessionFromContext(r.Context())
	userID, ok := sess.UserID()
	if !ok {
		http.Redirect(w, r, "/auth/login", http.StatusSeeOther)
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	societyID, err := strconv.ParseInt(r.PostFormValue("society_id"), 10, 64)
	if err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	society, err := h.service.SwitchSociety(r.Context(), userID, societyID)
	if err != nil {
		if !errors.Is(err, shared.ErrNotMember) {
			h.logger.Error("switch society", slog.Int64("society_id", societyID), slog.Any("error", err))
		}
		sess.AddFlash(shared.FlashMessage{Kind: shared.FlashError, Message: shared.UserSafeMessage(err)})
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}
	sess.SetSociety(society.ID)
	// Selections belong to the previous society.
	sess.SetSelection("roles", nil)
	sess.AddFlash(shared.FlashMessage{Kind: shared.FlashInfo, Message: "Switched to " + society.Name})
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (h *Handler) renderLogin(w http.ResponseWriter, r *http.Request, status int, email string, errs map[string]string) {
	sess := shared.SessionFromContext(r.Context())
	csrfToken, _ := h.csrfManager.EnsureToken(r.Context(), sess)
	var flash *shared.FlashMessage
	if sess != nil {
		flash = sess.PopFlash()
	}
	viewData := view.TemplateData{
		Title:       "Sign in",
		CSRFToken:   csrfToken,
		Flash:       flash,
		CurrentPath: r.URL.Path,
		Data:        map[string]any{"Email": email, "Errors": errs},
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := h.templates.Render(w, "pages/auth/login.html", viewData); err != nil {
		h.logger.Error("render login", slog.Any("error", err))
	}
}

func loginFieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "This field is required."
	case "email":
		return "Enter a valid email address."
	case "min":
		return "Must be at least " + fe.Param() + " characters."
	}
	return "Invalid value."
}

// ShowLoginForTest exposes the GET handler for tests.
func (h *Handler) ShowLoginForTest(w http.ResponseWriter, r *http.Request) {
	h.showLogin(w, r)
}

// HandleLoginForTest exposes the POST handler for tests.
func (h *Handler) HandleLoginForTest(w http.ResponseWriter, r *http.Request) {
	h.handleLogin(w, r)
}

// SwitchSocietyForTest exposes the society switch handler for tests.
func (h *Handler) SwitchSocietyForTest(w http.ResponseWriter, r *http.Request) {
	h.switchSociety(w, r)
}
