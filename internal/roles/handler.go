package roles

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/societyhub/societyhub/internal/platform/httpx"
	"github.com/societyhub/societyhub/internal/rbac"
	"github.com/societyhub/societyhub/internal/shared"
	"github.com/societyhub/societyhub/internal/tabular"
	"github.com/societyhub/societyhub/internal/view"
)

// selectionKey names the role selection in the session.
const selectionKey = "roles"

// Handler manages role management endpoints.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	templates *view.Engine
	csrf      *shared.CSRFManager
	rbac      rbac.Middleware
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service, templates *view.Engine, csrf *shared.CSRFManager, rbac rbac.Middleware) *Handler {
	return &Handler{logger: logger, service: service, templates: templates, csrf: csrf, rbac: rbac}
}

// MountRoutes registers role routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAny(shared.PermRolesView, shared.PermRolesEdit))
		r.Get("/", h.listRoles)
		r.Get("/api", h.listRolesJSON)
		r.Get("/api/{id}", h.showRoleJSON)
		r.Post("/selection", h.updateSelection)
		r.Get("/{id}", h.showRole)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAll(shared.PermRolesEdit))
		r.Get("/new", h.showCreateRoleForm)
		r.Post("/", h.createRole)
		r.Post("/bulk", h.bulkAction)
		r.Get("/{id}/edit", h.showEditRoleForm)
		r.Post("/{id}", h.updateRole)
	})
}

type formErrors map[string]string

func (h *Handler) listRoles(w http.ResponseWriter, r *http.Request) {
	societyID, ok := h.society(w, r)
	if !ok {
		return
	}
	table, state, err := h.table(r, r.URL.Query())
	if err != nil {
		h.logger.Error("list roles failed", slog.Int64("society_id", societyID), slog.Any("error", err))
		h.render(w, r, "pages/roles/list.html", map[string]any{"Errors": formErrors{"general": shared.UserSafeMessage(err)}}, http.StatusInternalServerError)
		return
	}
	sess := shared.SessionFromContext(r.Context())
	table.RestoreSelection(sess.Selection(selectionKey))
	// Drop ids that no longer exist so the stored selection matches the table.
	sess.SetSelection(selectionKey, table.Selected())

	h.render(w, r, "pages/roles/list.html", map[string]any{
		"List":    buildListView(table, state, h.rbac.Allowed(r, shared.PermRolesEdit)),
		"Stats":   StatsOf(table),
		"Errors":  formErrors{},
		"Filters": buildFilterViews(table.State()),
	}, http.StatusOK)
}

// apiPage is the JSON shape of one visible page.
type apiPage struct {
	Records       []Role            `json:"records"`
	TotalMatching int               `json:"total_matching"`
	TotalPages    int               `json:"total_pages"`
	PageIndex     int               `json:"page_index"`
	PageSize      int               `json:"page_size"`
	Search        string            `json:"search,omitempty"`
	Filters       map[string]string `json:"filters,omitempty"`
	Sort          string            `json:"sort,omitempty"`
	Direction     string            `json:"direction,omitempty"`
	Stats         Stats             `json:"stats"`
}

func (h *Handler) listRolesJSON(w http.ResponseWriter, r *http.Request) {
	societyID, err := shared.SocietyFromContext(r.Context())
	if err != nil {
		httpx.RespondError(w, fmt.Errorf("%w: %w", httpx.ErrForbidden, err))
		return
	}
	table, err := h.service.Table(r.Context(), societyID)
	if err != nil {
		h.logger.Error("list roles api failed", slog.Int64("society_id", societyID), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	state, err := tabular.ParseStateStrict(r.URL.Query(), table.Dimensions())
	if err == nil {
		err = table.Restore(state)
	}
	if err != nil {
		httpx.RespondError(w, fmt.Errorf("%w: %w", httpx.ErrValidation, err))
		return
	}
	page := table.VisiblePage()
	state = table.State()
	httpx.JSON(w, http.StatusOK, apiPage{
		Records:       page.Records,
		TotalMatching: page.TotalMatching,
		TotalPages:    page.TotalPages,
		PageIndex:     page.PageIndex,
		PageSize:      state.Size,
		Search:        state.Search,
		Filters:       state.Filters,
		Sort:          state.Sort,
		Direction:     string(state.Dir),
		Stats:         StatsOf(table),
	})
}

func (h *Handler) showRoleJSON(w http.ResponseWriter, r *http.Request) {
	societyID, err := shared.SocietyFromContext(r.Context())
	if err != nil {
		httpx.RespondError(w, fmt.Errorf("%w: %w", httpx.ErrForbidden, err))
		return
	}
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.RespondError(w, fmt.Errorf("%w: role id %q", httpx.ErrValidation, chi.URLParam(r, "id")))
		return
	}
	role, err := h.service.Get(r.Context(), societyID, id)
	switch {
	case errors.Is(err, ErrNotFound):
		httpx.RespondError(w, fmt.Errorf("%w: role %d", httpx.ErrNotFound, id))
	case err != nil:
		h.logger.Error("load role api failed", slog.Int64("id", id), slog.Any("error", err))
		httpx.RespondError(w, err)
	default:
		httpx.JSON(w, http.StatusOK, role)
	}
}

func (h *Handler) updateSelection(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.society(w, r); !ok {
		return
	}
	if err := r.ParseForm(); err != nil {
		h.redirectWithFlash(w, r, "/roles", shared.FlashError, "Invalid form submission.")
		return
	}
	table, state, err := h.table(r, r.PostForm)
	if err != nil {
		h.logger.Error("role selection failed", slog.Any("error", err))
		h.redirectWithFlash(w, r, "/roles", shared.FlashError, shared.UserSafeMessage(err))
		return
	}
	sess := shared.SessionFromContext(r.Context())
	table.RestoreSelection(sess.Selection(selectionKey))
	switch r.PostForm.Get("op") {
	case "toggle":
		table.ToggleSelect(r.PostForm.Get("id"))
	case "page":
		table.SelectAll(r.PostForm.Get("checked") == "1")
	case "clear":
		table.ClearSelection()
	}
	sess.SetSelection(selectionKey, table.Selected())
	http.Redirect(w, r, listURL(state), http.StatusSeeOther)
}

func (h *Handler) bulkAction(w http.ResponseWriter, r *http.Request) {
	societyID, ok := h.society(w, r)
	if !ok {
		return
	}
	if err := r.ParseForm(); err != nil {
		h.redirectWithFlash(w, r, "/roles", shared.FlashError, "Invalid form submission.")
		return
	}
	state := tabular.ParseState(r.PostForm, []string{DimStatus, DimType, DimCategory})
	back := listURL(state)

	action, err := ParseBulkAction(r.PostForm.Get("action"))
	if err != nil {
		h.redirectWithFlash(w, r, back, shared.FlashError, shared.UserSafeMessage(err))
		return
	}
	sess := shared.SessionFromContext(r.Context())
	ids := parseIDs(sess.Selection(selectionKey))
	res, err := h.service.Bulk(r.Context(), societyID, shared.ActorFromContext(r.Context()), action, ids)
	if err != nil {
		if !errors.Is(err, ErrSystemRole) && !errors.Is(err, ErrEmptySelection) {
			h.logger.Error("role bulk action failed", slog.String("action", string(action)), slog.Any("error", err))
		}
		h.redirectWithFlash(w, r, back, shared.FlashError, shared.UserSafeMessage(err))
		return
	}
	sess.SetSelection(selectionKey, nil)
	h.redirectWithFlash(w, r, back, shared.FlashSuccess, bulkMessage(res))
}

func (h *Handler) showRole(w http.ResponseWriter, r *http.Request) {
	h.showForm(w, r, shared.ModeViewing)
}

func (h *Handler) showEditRoleForm(w http.ResponseWriter, r *http.Request) {
	mode, err := shared.ModeViewing.Next(shared.EventEdit)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	h.showForm(w, r, mode)
}

func (h *Handler) showForm(w http.ResponseWriter, r *http.Request, mode shared.Mode) {
	societyID, ok := h.society(w, r)
	if !ok {
		return
	}
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		http.NotFound(w, r)
		return
	}
	role, err := h.service.Get(r.Context(), societyID, id)
	if errors.Is(err, ErrNotFound) {
		http.NotFound(w, r)
		return
	}
	if err != nil {
		h.logger.Error("load role failed", slog.Int64("id", id), slog.Any("error", err))
		h.render(w, r, "pages/roles/form.html", map[string]any{"Errors": formErrors{"general": shared.UserSafeMessage(err)}}, http.StatusInternalServerError)
		return
	}
	h.renderForm(w, r, mode, role, inputOf(role), formErrors{}, http.StatusOK)
}

func (h *Handler) showCreateRoleForm(w http.ResponseWriter, r *http.Request) {
	h.renderForm(w, r, shared.ModeEditing, Role{}, Input{Status: StatusActive}, formErrors{}, http.StatusOK)
}

func (h *Handler) createRole(w http.ResponseWriter, r *http.Request) {
	h.saveRole(w, r, 0)
}

func (h *Handler) updateRole(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		http.NotFound(w, r)
		return
	}
	h.saveRole(w, r, id)
}

func (h *Handler) saveRole(w http.ResponseWriter, r *http.Request, id int64) {
	societyID, ok := h.society(w, r)
	if !ok {
		return
	}
	mode, _ := shared.ModeEditing.Next(shared.EventSubmit)
	if err := r.ParseForm(); err != nil {
		h.redirectWithFlash(w, r, "/roles", shared.FlashError, "Invalid form submission.")
		return
	}
	in := parseInput(r)
	actor := shared.ActorFromContext(r.Context())

	var (
		role Role
		err  error
	)
	if id == 0 {
		role, err = h.service.Create(r.Context(), societyID, actor, in)
	} else {
		role, err = h.service.Update(r.Context(), societyID, actor, id, in)
	}
	if err != nil {
		mode, _ = mode.Next(shared.EventFailed)
		var verr *ValidationError
		switch {
		case errors.As(err, &verr):
			h.renderForm(w, r, mode, Role{ID: id}, in, formErrors(verr.Fields), http.StatusUnprocessableEntity)
		case errors.Is(err, ErrNotFound):
			http.NotFound(w, r)
		default:
			h.logger.Error("save role failed", slog.Int64("id", id), slog.Any("error", err))
			h.renderForm(w, r, mode, Role{ID: id}, in, formErrors{"general": shared.UserSafeMessage(err)}, http.StatusInternalServerError)
		}
		return
	}
	h.redirectWithFlash(w, r, fmt.Sprintf("/roles/%d", role.ID), shared.FlashSuccess, fmt.Sprintf("Role %q saved.", role.Name))
}

// formView drives pages/roles/form.html.
type formView struct {
	Mode        shared.Mode
	Role        Role
	Input       Input
	Categories  []string
	Statuses    []Status
	Permissions []rbac.Permission
	Granted     map[shared.Capability]bool
	CanEdit     bool
	IsNew       bool
	ActionURL   string
	CancelURL   string
}

func (h *Handler) renderForm(w http.ResponseWriter, r *http.Request, mode shared.Mode, role Role, in Input, errs formErrors, status int) {
	granted := make(map[shared.Capability]bool, len(in.Capabilities))
	for _, c := range in.Capabilities {
		granted[c] = true
	}
	fv := formView{
		Mode:        mode,
		Role:        role,
		Input:       in,
		Categories:  Categories(),
		Statuses:    []Status{StatusActive, StatusInactive},
		Permissions: rbac.Catalogue(),
		Granted:     granted,
		CanEdit:     h.rbac.Allowed(r, shared.PermRolesEdit),
		IsNew:       role.ID == 0,
		ActionURL:   "/roles",
		CancelURL:   "/roles",
	}
	if !fv.IsNew {
		fv.ActionURL = fmt.Sprintf("/roles/%d", role.ID)
		fv.CancelURL = fv.ActionURL
	}
	h.render(w, r, "pages/roles/form.html", map[string]any{"Form": fv, "Errors": errs}, status)
}

// table loads the society's roles and applies the view state in values.
// Invalid parts of the state are ignored.
func (h *Handler) table(r *http.Request, values map[string][]string) (*Table, tabular.State, error) {
	societyID, err := shared.SocietyFromContext(r.Context())
	if err != nil {
		return nil, tabular.State{}, err
	}
	table, err := h.service.Table(r.Context(), societyID)
	if err != nil {
		return nil, tabular.State{}, err
	}
	if err := table.Restore(tabular.ParseState(values, table.Dimensions())); err != nil {
		h.logger.Debug("roles view state partly ignored", slog.Any("error", err))
	}
	return table, table.State(), nil
}

func (h *Handler) society(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := shared.SocietyFromContext(r.Context())
	if err != nil {
		h.redirectWithFlash(w, r, "/", shared.FlashError, "Select a society first.")
		return 0, false
	}
	return id, true
}

func (h *Handler) render(w http.ResponseWriter, r *http.Request, template string, data map[string]any, status int) {
	sess := shared.SessionFromContext(r.Context())
	csrfToken, _ := h.csrf.EnsureToken(r.Context(), sess)
	var flash *shared.FlashMessage
	if sess != nil {
		flash = sess.PopFlash()
	}
	viewData := view.TemplateData{Title: "Staff Roles", CSRFToken: csrfToken, Flash: flash, CurrentPath: r.URL.Path, Data: data}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := h.templates.Render(w, template, viewData); err != nil {
		h.logger.Error("render template", slog.Any("error", err))
	}
}

func (h *Handler) redirectWithFlash(w http.ResponseWriter, r *http.Request, location, kind, message string) {
	if sess := shared.SessionFromContext(r.Context()); sess != nil {
		sess.AddFlash(shared.FlashMessage{Kind: kind, Message: message})
	}
	http.Redirect(w, r, location, http.StatusSeeOther)
}

func parseInput(r *http.Request) Input {
	in := Input{
		Name:        r.PostForm.Get("name"),
		Description: r.PostForm.Get("description"),
		Category:    r.PostForm.Get("category"),
		Status:      Status(strings.ToUpper(strings.TrimSpace(r.PostForm.Get("status")))),
	}
	for _, c := range r.PostForm["capabilities"] {
		in.Capabilities = append(in.Capabilities, shared.Capability(strings.TrimSpace(c)))
	}
	return in
}

func inputOf(role Role) Input {
	return Input{
		Name:         role.Name,
		Description:  role.Description,
		Category:     role.Category,
		Status:       role.Status,
		Capabilities: role.Capabilities,
	}
}

func parseIDs(raw []string) []int64 {
	ids := make([]int64, 0, len(raw))
	for _, s := range raw {
		id, err := strconv.ParseInt(s, 10, 64)
		if err != nil || id <= 0 {
			continue
		}
		ids = append(ids, id)
	}
	return ids
}

func bulkMessage(res BulkResult) string {
	noun := "roles"
	if res.Affected == 1 {
		noun = "role"
	}
	return fmt.Sprintf("%d %s %s.", res.Affected, noun, res.Action.PastTense())
}

func listURL(state tabular.State) string {
	if q := state.Encode(); q != "" {
		return "/roles?" + q
	}
	return "/roles"
}
