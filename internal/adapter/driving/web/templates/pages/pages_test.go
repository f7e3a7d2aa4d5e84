package pages_test

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ericfisherdev/timeline/internal/adapter/driving/web/templates"
	"github.com/ericfisherdev/timeline/internal/adapter/driving/web/templates/pages"
	vm "github.com/ericfisherdev/timeline/internal/adapter/driving/web/viewmodel"
)

func TestTimeline_EscapesTextAndKeepsSanitizedCaption(t *testing.T) {
	var buf bytes.Buffer
	err := pages.Timeline(vm.TimelineViewModel{
		Viewer: "<b>alice</b>",
		Posts: []vm.PostCardViewModel{
			{ID: 7, Username: "bob & co", DescriptionHTML: "<p><em>hi</em></p>", LikesLabel: "2 likes"},
		},
	}).Render(context.Background(), &buf)
	require.NoError(t, err)

	out := buf.String()
	assert.Contains(t, out, "Signed in as <strong>&lt;b&gt;alice&lt;/b&gt;</strong>")
	assert.Contains(t, out, `data-id="7"`)
	assert.Contains(t, out, "<header>bob &amp; co</header>")
	assert.Contains(t, out, "<div class=\"caption\"><p><em>hi</em></p></div>")
	assert.NotContains(t, out, "<img", "posts without a safe image URL render no image")
	assert.NotContains(t, out, "Nothing here yet.")
}

func TestTimeline_EmptyAndErrorStates(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, pages.Timeline(vm.TimelineViewModel{}).Render(context.Background(), &buf))
	assert.Contains(t, buf.String(), "Nothing here yet.")

	buf.Reset()
	require.NoError(t, pages.Timeline(vm.TimelineViewModel{PostsError: "Could not load posts right now."}).Render(context.Background(), &buf))
	assert.Contains(t, buf.String(), `<p class="error" role="alert">Could not load posts right now.</p>`)
	assert.NotContains(t, buf.String(), "Nothing here yet.")
}

func TestLogin_ErrorAndStickyUsername(t *testing.T) {
	var buf bytes.Buffer
	err := templates.Layout("Timeline - Log in", pages.Login(vm.LoginViewModel{
		CSRFToken: "tok",
		Username:  `al"ice`,
		Error:     "Incorrect username or password.",
	})).Render(context.Background(), &buf)
	require.NoError(t, err)

	out := buf.String()
	assert.Contains(t, out, "<!doctype html>")
	assert.Contains(t, out, "<title>Timeline - Log in</title>")
	assert.Contains(t, out, `value="al&#34;ice"`)
	assert.Contains(t, out, `name="csrf_token" value="tok"`)
	assert.Contains(t, out, "Incorrect username or password.")
}

func TestShell_PointsAtFragment(t *testing.T) {
	var buf bytes.Buffer
	err := pages.Shell(vm.ShellViewModel{CSRFToken: "tok", FragmentPath: "/protected/view"}).Render(context.Background(), &buf)
	require.NoError(t, err)

	out := buf.String()
	assert.Contains(t, out, `data-src="/protected/view"`)
	assert.Contains(t, out, "Loading...")
	assert.Contains(t, out, "/static/guard.js")
}
