package filters

import (
	"testing"

	"asr-auth/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPathMatcher_DefaultAllowList(t *testing.T) {
	m, err := NewPathMatcher((&config.Config{AllowList: config.DefaultAllowList}).AllowListPatterns()...)
	require.NoError(t, err)

	testCases := []struct {
		path string
		want bool
	}{
		{"/assets/app.js", true},
		{"/assets/css/site.css", true},
		{"/assets", true},
		{"/assetsx", false},
		{"/forget/password/reset", true},
		{"/swagger-ui.html", true},
		{"/swagger-ui.htmlx", false},
		{"/v2/api-docs", true},
		{"/v2/api-docs/extra", false},
		{"/wx/callback", true},
		{"/healthz", true},
		{"/user/me", false},
		{"/admin/sessions", false},
		{"/", false},
	}
	for _, tc := range testCases {
		t.Run(tc.path, func(t *testing.T) {
			assert.Equal(t, tc.want, m.Match(tc.path))
		})
	}
}

func TestPathMatcher_SingleStarStaysInSegment(t *testing.T) {
	m, err := NewPathMatcher("/files/*.txt", " ", "")
	require.NoError(t, err)
	assert.True(t, m.Match("/files/a.txt"))
	assert.False(t, m.Match("/files/sub/a.txt"))
}

func TestPathMatcher_Nil(t *testing.T) {
	var m *PathMatcher
	assert.False(t, m.Match("/anything"))

	empty, err := NewPathMatcher()
	require.NoError(t, err)
	assert.False(t, empty.Match("/anything"))
}
