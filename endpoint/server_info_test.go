package endpoint

import (
	"net/http"
	"testing"

	"github.com/ariebrainware/cml-tracker/util"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetServerInfo(t *testing.T) {
	s := setupTestServer(t)

	w, resp := do(t, s.r, requestSpec{method: http.MethodGet, path: "/api/get-server-info"})
	assertSuccess(t, w, resp)

	var info util.ServerInfo
	decodeData(t, resp, &info)
	assert.Equal(t, uint16(3000), info.Port)
	require.NotEmpty(t, info.SuggestedURLs)
	assert.Equal(t, "http://localhost:3000", info.SuggestedURLs[0])
	assert.Len(t, info.SuggestedURLs, len(info.LanIPs)+1)
}
