package endpoint

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/ariebrainware/cml-tracker/middleware"
	"github.com/stretchr/testify/require"
)

type requestSpec struct {
	method  string
	path    string
	body    interface{}
	token   string
	headers map[string]string
}

func performRequest(r http.Handler, spec requestSpec) (*httptest.ResponseRecorder, map[string]interface{}, error) {
	var reader *strings.Reader
	setJSONHeader := false
	switch v := spec.body.(type) {
	case nil:
		reader = strings.NewReader("")
	case string:
		reader = strings.NewReader(v)
		setJSONHeader = true
	default:
		b, _ := json.Marshal(spec.body)
		reader = strings.NewReader(string(b))
		setJSONHeader = true
	}

	req := httptest.NewRequest(spec.method, spec.path, reader)
	if setJSONHeader {
		req.Header.Set("Content-Type", "application/json")
	}
	if spec.token != "" {
		req.Header.Set(middleware.SessionTokenHeader, spec.token)
	}
	for key, value := range spec.headers {
		req.Header.Set(key, value)
	}

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	// Redirects and other non-JSON answers come back without a decoded body.
	var response map[string]interface{}
	if w.Body.Len() > 0 && strings.HasPrefix(w.Header().Get("Content-Type"), "application/json") {
		if err := json.Unmarshal(w.Body.Bytes(), &response); err != nil {
			return w, nil, err
		}
	}
	return w, response, nil
}

// do performs the request and fails the test when the body is not JSON.
func do(t *testing.T, r http.Handler, spec requestSpec) (*httptest.ResponseRecorder, map[string]interface{}) {
	t.Helper()
	w, resp, err := performRequest(r, spec)
	require.NoError(t, err, w.Body.String())
	return w, resp
}

// decodeData re-decodes the envelope's data field into dst.
func decodeData(t *testing.T, resp map[string]interface{}, dst interface{}) {
	t.Helper()
	b, err := json.Marshal(resp["data"])
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(b, dst))
}
