package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/utilityops/meter-api/internal/core/domain"
)

func TestToken_JSON(t *testing.T) {
	svc := &stubAuthService{}
	c, rec := newContext(t, http.MethodPost, "/v1/auth/token", `{"email":"admin@example.com","password":"pw"}`, nil)

	if err := NewAuthHandler(svc).Token(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var body tokenResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.AccessToken != "tok" || body.TokenType != "bearer" || body.ExpiresAt != "2026-01-02T03:04:05Z" {
		t.Errorf("unexpected body: %+v", body)
	}
	if svc.gotEmail != "admin@example.com" || svc.gotPassword != "pw" {
		t.Errorf("credentials not forwarded: %q %q", svc.gotEmail, svc.gotPassword)
	}
}

func TestToken_PasswordForm(t *testing.T) {
	svc := &stubAuthService{}
	form := url.Values{"username": {"eve@example.com"}, "password": {"pw"}}

	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/v1/auth/token", strings.NewReader(form.Encode()))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationForm)
	rec := httptest.NewRecorder()

	if err := NewAuthHandler(svc).Token(e.NewContext(req, rec)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if svc.gotEmail != "eve@example.com" {
		t.Errorf("form username not mapped to email, got %q", svc.gotEmail)
	}
}

func TestToken_InvalidCredentials(t *testing.T) {
	svc := &stubAuthService{err: domain.ErrInvalidCredentials}
	c, _ := newContext(t, http.MethodPost, "/v1/auth/token", `{"email":"x@example.com","password":"bad"}`, nil)

	err := NewAuthHandler(svc).Token(c)
	if !errors.Is(err, domain.ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
}

func TestToken_MalformedBody(t *testing.T) {
	c, _ := newContext(t, http.MethodPost, "/v1/auth/token", `{"email":`, nil)

	err := NewAuthHandler(&stubAuthService{}).Token(c)
	if httpCode(err) != http.StatusBadRequest {
		t.Fatalf("expected 400, got %v", err)
	}
}
