package mailer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderOrganizerApproved(t *testing.T) {
	r, err := NewRenderer("ConventionHub")
	require.NoError(t, err)

	msg, err := r.Render(TemplateOrganizerApproved, "ada@example.com", "Ada", map[string]string{
		"dashboard_url": "https://example.com/dashboard",
	})
	require.NoError(t, err)
	assert.Equal(t, "ada@example.com", msg.To)
	assert.Equal(t, "You're approved as an organizer", msg.Subject)
	assert.Contains(t, msg.HTML, "Hi Ada,")
	assert.Contains(t, msg.HTML, "https://example.com/dashboard")
}

func TestRenderEscapesData(t *testing.T) {
	r, err := NewRenderer("X")
	require.NoError(t, err)

	msg, err := r.Render(TemplatePasswordReset, "a@b.c", "<b>", map[string]string{"reset_url": "https://x/r?t=1"})
	require.NoError(t, err)
	assert.Contains(t, msg.HTML, "&lt;b&gt;")
}

func TestRenderUnknownTemplate(t *testing.T) {
	r, err := NewRenderer("X")
	require.NoError(t, err)
	_, err = r.Render("nope", "a@b.c", "", nil)
	assert.Error(t, err)
}
