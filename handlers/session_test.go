package handlers

import (
	"errors"
	"net/http"
	"testing"

	"storefront-backend/models"
)

func deviceCookie(t *testing.T, cookies []*http.Cookie) *http.Cookie {
	t.Helper()
	for _, c := range cookies {
		if c.Name == DeviceCookie {
			return c
		}
	}
	t.Fatalf("expected %s cookie to be set", DeviceCookie)
	return nil
}

func TestEnsureSessionCreatesAnonymousUser(t *testing.T) {
	env := newTestEnv(t)

	w := env.serve(jsonRequest("POST", "/api/session", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	body := parseResponse(w)
	if body["uid"] != "uid-1" {
		t.Errorf("expected uid-1, got %v", body["uid"])
	}
	if body["created"] != true {
		t.Errorf("expected created=true, got %v", body["created"])
	}
	if token, _ := body["token"].(string); token == "" {
		t.Error("expected a session token")
	}

	cookie := deviceCookie(t, w.Result().Cookies())
	if !cookie.HttpOnly {
		t.Error("expected device cookie to be HttpOnly")
	}
	if env.store.Len(models.UsersCollection) != 1 {
		t.Errorf("expected one profile, got %d", env.store.Len(models.UsersCollection))
	}
}

func TestEnsureSessionReusesDevice(t *testing.T) {
	env := newTestEnv(t)

	first := env.serve(jsonRequest("POST", "/api/session", nil))
	cookie := deviceCookie(t, first.Result().Cookies())

	req := jsonRequest("POST", "/api/session", nil)
	req.AddCookie(cookie)
	second := env.serve(req)

	if second.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", second.Code, second.Body.String())
	}
	body := parseResponse(second)
	if body["uid"] != parseResponse(first)["uid"] {
		t.Errorf("expected same uid, got %v", body["uid"])
	}
	if body["created"] != false {
		t.Errorf("expected created=false, got %v", body["created"])
	}
	if env.accounts.createdCount() != 1 {
		t.Errorf("expected exactly one account, got %d", env.accounts.createdCount())
	}
	if env.store.Len(models.UsersCollection) != 1 {
		t.Errorf("expected exactly one profile, got %d", env.store.Len(models.UsersCollection))
	}
}

func TestEnsureSessionAdoptsIDToken(t *testing.T) {
	env := newTestEnv(t)
	env.accounts.tokens["firebase-id-token"] = "uid-existing"

	w := env.serve(jsonRequest("POST", "/api/session", map[string]string{"id_token": "firebase-id-token"}))
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	body := parseResponse(w)
	if body["uid"] != "uid-existing" {
		t.Errorf("expected adopted uid, got %v", body["uid"])
	}
	if env.accounts.createdCount() != 0 {
		t.Errorf("expected no new account, got %d", env.accounts.createdCount())
	}
}

func TestEnsureSessionProvisioningFailure(t *testing.T) {
	env := newTestEnv(t)
	env.accounts.createErr = errors.New("auth backend down")

	w := env.serve(jsonRequest("POST", "/api/session", nil))
	if w.Code != http.StatusBadGateway {
		t.Fatalf("expected 502, got %d: %s", w.Code, w.Body.String())
	}

	var count int64
	env.db.Table("device_identities").Count(&count)
	if count != 0 {
		t.Errorf("expected nothing cached after failure, got %d rows", count)
	}

	// The next visit retries.
	env.accounts.createErr = nil
	cookie := deviceCookie(t, w.Result().Cookies())
	req := jsonRequest("POST", "/api/session", nil)
	req.AddCookie(cookie)
	retry := env.serve(req)
	if retry.Code != http.StatusOK {
		t.Fatalf("expected 200 on retry, got %d: %s", retry.Code, retry.Body.String())
	}
}

func TestEnsureSessionInvalidBody(t *testing.T) {
	env := newTestEnv(t)

	req := jsonRequest("POST", "/api/session", nil)
	req.Body = http.NoBody
	req.ContentLength = 0
	if w := env.serve(req); w.Code != http.StatusOK {
		t.Fatalf("expected empty body to be accepted, got %d", w.Code)
	}

	bad := jsonRequest("POST", "/api/session", "not-an-object")
	if w := env.serve(bad); w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for malformed body, got %d", w.Code)
	}
}

func TestMeReturnsProfile(t *testing.T) {
	env := newTestEnv(t)

	session := parseResponse(env.serve(jsonRequest("POST", "/api/session", nil)))
	token := session["token"].(string)

	w := env.serve(authRequest("GET", "/api/session/me", nil, token))
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	body := parseResponse(w)
	if body["uid"] != session["uid"] {
		t.Errorf("expected uid %v, got %v", session["uid"], body["uid"])
	}
	fullName, _ := body["fullName"].(string)
	if len(fullName) < len("User-") || fullName[:5] != "User-" {
		t.Errorf("expected synthetic full name, got %q", fullName)
	}
	if _, leaked := body["password"]; leaked {
		t.Error("profile must not expose a password")
	}
}

func TestMeUnknownProfile(t *testing.T) {
	env := newTestEnv(t)

	w := env.serve(authRequest("GET", "/api/session/me", nil, customerToken("uid-ghost")))
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d: %s", w.Code, w.Body.String())
	}
}

func TestMeRequiresToken(t *testing.T) {
	env := newTestEnv(t)

	w := env.serve(jsonRequest("GET", "/api/session/me", nil))
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", w.Code)
	}
}
