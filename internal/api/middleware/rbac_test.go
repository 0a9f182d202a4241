package middleware

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/utilityops/meter-api/internal/core/domain"
	"github.com/utilityops/meter-api/internal/core/policy"
)

func runAuthorize(t *testing.T, p *domain.Principal, action policy.Action) (bool, error) {
	t.Helper()
	e := echo.New()
	c := e.NewContext(httptest.NewRequest(http.MethodPost, "/", nil), httptest.NewRecorder())
	if p != nil {
		c.Set(PrincipalKey, *p)
	}

	called := false
	err := Authorize(action)(func(echo.Context) error {
		called = true
		return nil
	})(c)
	return called, err
}

func TestAuthorize_AllowedRole(t *testing.T) {
	called, err := runAuthorize(t, &employee, policy.UpdateMeter)
	if err != nil || !called {
		t.Fatalf("expected pass-through, called=%v err=%v", called, err)
	}
}

func TestAuthorize_DeniedRole(t *testing.T) {
	consumer := domain.Principal{UserID: 3, Email: "carl@example.com", Role: domain.RoleConsumer}
	called, err := runAuthorize(t, &consumer, policy.UpdateMeter)
	if called {
		t.Fatal("next must not run")
	}
	if !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
}

func TestAuthorize_NoPrincipal(t *testing.T) {
	called, err := runAuthorize(t, nil, policy.ListMeters)
	if called || err == nil {
		t.Fatalf("expected rejection, called=%v err=%v", called, err)
	}
}
