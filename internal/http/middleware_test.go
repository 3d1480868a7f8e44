package http

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestScannerAuthMiddleware(t *testing.T) {
	scannerID := uuid.New()
	var seen uuid.UUID
	handler := ScannerAuthMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = scannerFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	cases := []struct {
		name   string
		header string
		status int
	}{
		{"missing header", "", http.StatusUnauthorized},
		{"malformed id", "door-1", http.StatusUnauthorized},
		{"valid id", scannerID.String(), http.StatusOK},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			seen = uuid.Nil
			req := httptest.NewRequest("POST", "/v1/scans", nil)
			if tc.header != "" {
				req.Header.Set("X-Scanner-ID", tc.header)
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			assert.Equal(t, tc.status, rec.Code)
			if tc.status == http.StatusOK {
				// The audited identity is the authenticated header, not
				// whatever the request body claims.
				assert.Equal(t, scannerID, seen)
			} else {
				assert.Equal(t, uuid.Nil, seen)
			}
		})
	}
}
