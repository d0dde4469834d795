package integration

import (
	"net/http"
	"testing"
)

func TestRegisterAndLogin(t *testing.T) {
	app := setupApp(t)

	token, userID := app.registerUser(t, "auth-flow@example.com", "password123")
	if token == "" {
		t.Fatal("expected a token from registration")
	}
	if userID == 0 {
		t.Fatal("expected a user ID from registration")
	}

	// Duplicate registration conflicts.
	rec := app.request("POST", "/api/v1/auth/register",
		`{"email":"auth-flow@example.com","password":"password123","first_name":"Test","last_name":"User"}`, "")
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409 on duplicate email, got %d %s", rec.Code, rec.Body.String())
	}
	errObj := parseJSON(t, rec)["error"].(map[string]interface{})
	if errObj["code"] != "DUPLICATE_EMAIL" {
		t.Errorf("expected DUPLICATE_EMAIL, got %v", errObj["code"])
	}

	// Login with the right password succeeds; email is case-insensitive.
	rec = app.request("POST", "/api/v1/auth/login",
		`{"email":"Auth-Flow@Example.com","password":"password123"}`, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("login failed: %d %s", rec.Code, rec.Body.String())
	}
	result := parseJSON(t, rec)
	if result["token"].(string) == "" {
		t.Error("expected a token from login")
	}

	// Wrong password is rejected without leaking which part was wrong.
	rec = app.request("POST", "/api/v1/auth/login",
		`{"email":"auth-flow@example.com","password":"wrong-password"}`, "")
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 on bad password, got %d", rec.Code)
	}
	errObj = parseJSON(t, rec)["error"].(map[string]interface{})
	if errObj["code"] != "INVALID_CREDENTIALS" {
		t.Errorf("expected INVALID_CREDENTIALS, got %v", errObj["code"])
	}
}

func TestRefreshTokenRotation(t *testing.T) {
	app := setupApp(t)

	app.registerUser(t, "refresh-flow@example.com", "password123")
	rec := app.request("POST", "/api/v1/auth/login",
		`{"email":"refresh-flow@example.com","password":"password123"}`, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("login failed: %d %s", rec.Code, rec.Body.String())
	}
	result := parseJSON(t, rec)
	refreshToken := result["refresh_token"].(string)

	// A refresh token cannot be used as an access token.
	rec = app.request("GET", "/api/v1/profile", "", refreshToken)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected 401 using refresh token as access token, got %d", rec.Code)
	}

	// Exchanging it yields a fresh pair.
	body := `{"refresh_token":"` + refreshToken + `"}`
	rec = app.request("POST", "/api/v1/auth/refresh", body, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("refresh failed: %d %s", rec.Code, rec.Body.String())
	}
	refreshed := parseJSON(t, rec)
	newAccess := refreshed["token"].(string)

	rec = app.request("GET", "/api/v1/profile", "", newAccess)
	if rec.Code != http.StatusOK {
		t.Errorf("expected refreshed access token to work, got %d", rec.Code)
	}

	// Rotation invalidates the old refresh token.
	rec = app.request("POST", "/api/v1/auth/refresh", body, "")
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected 401 replaying rotated refresh token, got %d %s", rec.Code, rec.Body.String())
	}

	// Garbage tokens are rejected outright.
	rec = app.request("POST", "/api/v1/auth/refresh", `{"refresh_token":"not-a-jwt"}`, "")
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected 401 for malformed refresh token, got %d", rec.Code)
	}
}

func TestProfileRequiresAuth(t *testing.T) {
	app := setupApp(t)

	rec := app.request("GET", "/api/v1/profile", "", "")
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", rec.Code)
	}

	token, userID := app.registerUser(t, "profile-flow@example.com", "password123")
	rec = app.request("GET", "/api/v1/profile", "", token)
	if rec.Code != http.StatusOK {
		t.Fatalf("profile failed: %d %s", rec.Code, rec.Body.String())
	}
	user := parseJSON(t, rec)["user"].(map[string]interface{})
	if got := user["id"].(float64); got != userID {
		t.Errorf("expected user id %v, got %v", userID, got)
	}
	if got := user["email"].(string); got != "profile-flow@example.com" {
		t.Errorf("unexpected email %q", got)
	}
}
