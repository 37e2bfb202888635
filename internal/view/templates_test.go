package view

import (
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/societyhub/societyhub/internal/shared"
)

func TestNewEngine(t *testing.T) {
	engine, err := NewEngine()
	assert.NoError(t, err, "Templates should parse without error")
	assert.NotNil(t, engine)
}

func TestRenderLoginPageWithFlash(t *testing.T) {
	engine, err := NewEngine()
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	err = engine.Render(rec, "pages/auth/login.html", TemplateData{
		Title:       "Sign in",
		CSRFToken:   "tok",
		Flash:       &shared.FlashMessage{Kind: shared.FlashError, Message: "Invalid credentials"},
		CurrentPath: "/auth/login",
		Data:        map[string]any{"Errors": map[string]string{}},
	})
	require.NoError(t, err)

	body := rec.Body.String()
	assert.Contains(t, body, "Invalid credentials")
	assert.Contains(t, body, `value="tok"`)
}

func TestRenderUnknownTemplateWritesNothing(t *testing.T) {
	engine, err := NewEngine()
	require.NoError(t, err)
	rec := httptest.NewRecorder()
	err = engine.Render(rec, "pages/missing.html", TemplateData{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "pages/missing.html")
	assert.Zero(t, rec.Body.Len())
}

func TestNilEngine(t *testing.T) {
	var engine *Engine
	assert.ErrorIs(t, engine.Render(httptest.NewRecorder(), "x", TemplateData{}), ErrNoEngine)
}
