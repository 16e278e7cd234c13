package gateway

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/suite"

	"omnigest/internal/export"
	"omnigest/pkg/platform/sentinel"
)

type GatewaySuite struct {
	suite.Suite
}

func TestGatewaySuite(t *testing.T) {
	suite.Run(t, new(GatewaySuite))
}

func signedToken(s *GatewaySuite, exp time.Time) string {
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"exp": exp.Unix()})
	signed, err := tok.SignedString([]byte("test-secret"))
	s.Require().NoError(err)
	return signed
}

func bundle() export.Bundle {
	return export.Bundle{
		ResourceType: "Bundle",
		Type:         "collection",
		Entry: []export.Entry{{Resource: export.Patient{
			ResourceType: "Patient",
			ID:           "p1",
			Identifier:   []export.Identifier{{System: "https://healthidsbx.abdm.gov.in", Value: "91-1234-5678-9012"}},
			Name:         []export.HumanName{{Text: "Asha Rao"}},
		}}},
	}
}

func (s *GatewaySuite) TestSessionCachedUntilExpiry() {
	sessions := 0
	token := signedToken(s, time.Now().Add(time.Hour))
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case sessionPath:
			sessions++
			json.NewEncoder(w).Encode(map[string]string{"accessToken": token}) //nolint:errcheck
		case profileSharePath:
			s.Equal("Bearer "+token, r.Header.Get("Authorization"))
			s.Equal("sbx-cm", r.Header.Get("X-CM-ID"))
			w.WriteHeader(http.StatusAccepted)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	client := NewClient(Config{BaseURL: srv.URL, ClientID: "cid", ClientSecret: "cs", CMID: "sbx-cm"}, nil)

	for i := 0; i < 3; i++ {
		res, err := client.ProfileShare(context.Background(), bundle())
		s.Require().NoError(err)
		s.Equal(http.StatusAccepted, res.Status)
		s.NotEmpty(res.RequestID)
	}
	s.Equal(1, sessions)
}

func (s *GatewaySuite) TestExpiredTokenTriggersRefresh() {
	sessions := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case sessionPath:
			sessions++
			// Token expiring inside the refresh buffer forces a new
			// session on every call.
			json.NewEncoder(w).Encode(map[string]string{ //nolint:errcheck
				"accessToken": signedToken(s, time.Now().Add(time.Minute)),
			})
		case profileSharePath:
			w.WriteHeader(http.StatusOK)
		}
	}))
	defer srv.Close()

	client := NewClient(Config{BaseURL: srv.URL, CMID: "sbx-cm"}, nil)
	for i := 0; i < 2; i++ {
		_, err := client.ProfileShare(context.Background(), bundle())
		s.Require().NoError(err)
	}
	s.Equal(2, sessions)
}

func (s *GatewaySuite) TestOpaqueTokenFallsBackToDefaultLifetime() {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case sessionPath:
			json.NewEncoder(w).Encode(map[string]string{"accessToken": "not-a-jwt"}) //nolint:errcheck
		case profileSharePath:
			w.WriteHeader(http.StatusOK)
		}
	}))
	defer srv.Close()

	client := NewClient(Config{BaseURL: srv.URL, CMID: "sbx-cm"}, nil)
	_, err := client.ProfileShare(context.Background(), bundle())
	s.Require().NoError(err)
	s.WithinDuration(time.Now().Add(defaultTokenLifetime), client.tokenExp, time.Minute)
}

func (s *GatewaySuite) TestGatewayErrorsMapToUnavailable() {
	s.Run("session rejected", func() {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
		}))
		defer srv.Close()

		client := NewClient(Config{BaseURL: srv.URL}, nil)
		_, err := client.ProfileShare(context.Background(), bundle())
		s.ErrorIs(err, sentinel.ErrUnavailable)
	})

	s.Run("share rejected", func() {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path == sessionPath {
				json.NewEncoder(w).Encode(map[string]string{ //nolint:errcheck
					"accessToken": signedToken(s, time.Now().Add(time.Hour)),
				})
				return
			}
			w.WriteHeader(http.StatusBadGateway)
		}))
		defer srv.Close()

		client := NewClient(Config{BaseURL: srv.URL}, nil)
		_, err := client.ProfileShare(context.Background(), bundle())
		s.ErrorIs(err, sentinel.ErrUnavailable)
	})
}

func (s *GatewaySuite) TestFreshRequestIDPerShare() {
	seen := map[string]bool{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == sessionPath {
			json.NewEncoder(w).Encode(map[string]string{ //nolint:errcheck
				"accessToken": signedToken(s, time.Now().Add(time.Hour)),
			})
			return
		}
		var req struct {
			RequestID string `json:"requestId"`
		}
		s.Require().NoError(json.NewDecoder(r.Body).Decode(&req))
		s.False(seen[req.RequestID])
		seen[req.RequestID] = true
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	client := NewClient(Config{BaseURL: srv.URL}, nil)
	for i := 0; i < 3; i++ {
		_, err := client.ProfileShare(context.Background(), bundle())
		s.Require().NoError(err)
	}
	s.Len(seen, 3)
}
