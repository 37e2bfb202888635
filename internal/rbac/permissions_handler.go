package rbac

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/societyhub/societyhub/internal/platform/httpx"
	"github.com/societyhub/societyhub/internal/shared"
	"github.com/societyhub/societyhub/internal/view"
)

// PermissionsHandler serves the capability catalogue, marking the entries the
// signed-in user holds in the current society.
type PermissionsHandler struct {
	logger    *slog.Logger
	templates *view.Engine
	csrf      *shared.CSRFManager
	rbac      Middleware
}

// NewPermissionsHandler builds a PermissionsHandler.
func NewPermissionsHandler(logger *slog.Logger, templates *view.Engine, csrf *shared.CSRFManager, rbac Middleware) *PermissionsHandler {
	return &PermissionsHandler{logger: logger, templates: templates, csrf: csrf, rbac: rbac}
}

// MountRoutes registers the catalogue page and its JSON twin.
func (h *PermissionsHandler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAny(shared.PermPermissionsView, shared.PermRolesView))
		r.Get("/", h.listPermissions)
		r.Get("/api", h.listPermissionsJSON)
	})
}

// permissionRow is one catalogue entry as rendered.
type permissionRow struct {
	Name        shared.Capability `json:"name"`
	Description string            `json:"description"`
	Held        bool              `json:"held"`
}

func (h *PermissionsHandler) rows(r *http.Request) ([]permissionRow, error) {
	granted, _, err := h.rbac.granted(r)
	if err != nil {
		return nil, err
	}
	held := make(map[string]bool, len(granted))
	for _, g := range granted {
		held[strings.ToLower(g)] = true
	}
	catalogue := Catalogue()
	rows := make([]permissionRow, 0, len(catalogue))
	for _, p := range catalogue {
		rows = append(rows, permissionRow{Name: p.Name, Description: p.Description, Held: held[string(p.Name)]})
	}
	return rows, nil
}

func (h *PermissionsHandler) listPermissions(w http.ResponseWriter, r *http.Request) {
	rows, err := h.rows(r)
	status := http.StatusOK
	data := map[string]any{"Permissions": rows}
	if err != nil {
		h.logger.Error("resolve held permissions", slog.Any("error", err))
		status = http.StatusInternalServerError
		data["Error"] = shared.UserSafeMessage(err)
	}

	sess := shared.SessionFromContext(r.Context())
	token, _ := h.csrf.EnsureToken(r.Context(), sess)
	var flash *shared.FlashMessage
	if sess != nil {
		flash = sess.PopFlash()
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	page := view.TemplateData{Title: "Permissions", CSRFToken: token, Flash: flash, CurrentPath: r.URL.Path, Data: data}
	if err := h.templates.Render(w, "pages/permissions/list.html", page); err != nil {
		h.logger.Error("render permissions", slog.Any("error", err))
	}
}

func (h *PermissionsHandler) listPermissionsJSON(w http.ResponseWriter, r *http.Request) {
	rows, err := h.rows(r)
	if err != nil {
		h.logger.Error("resolve held permissions", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"permissions": rows})
}
