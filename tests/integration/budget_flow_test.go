package integration

import (
	"fmt"
	"net/http"
	"testing"
)

// seedTemplate creates a monthly template over the given category lines and
// returns its ID. Lines are (categoryID, limit, rollover) triples encoded by
// the caller.
func seedTemplate(t *testing.T, app *testApp, token string, familyID float64, name string, autoGenerate bool, lines string) float64 {
	t.Helper()
	body := fmt.Sprintf(`{"name":%q,"period_unit":"monthly","auto_generate":%v,"categories":[%s]}`,
		name, autoGenerate, lines)
	rec := app.request("POST", fmt.Sprintf("/api/v1/families/%.0f/templates", familyID), body, token)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create template failed: %d %s", rec.Code, rec.Body.String())
	}
	result := parseJSON(t, rec)
	template := result["template"].(map[string]interface{})
	return template["id"].(float64)
}

func TestBudgetGenerationFlow(t *testing.T) {
	app := setupApp(t)
	token, _ := app.registerUser(t, "gen-flow@example.com", "password123")
	familyID := app.createFamily(t, token, "Gen Flow Family")
	groceries := app.createCategory(t, token, familyID, "Groceries")
	dining := app.createCategory(t, token, familyID, "Dining")

	templateID := seedTemplate(t, app, token, familyID, "Monthly Household", false, fmt.Sprintf(
		`{"category_id":%.0f,"monthly_limit":500000,"enable_rollover":true},{"category_id":%.0f,"monthly_limit":100000,"enable_rollover":false}`,
		groceries, dining))

	budgetsPath := fmt.Sprintf("/api/v1/families/%.0f/budgets", familyID)

	// Generate the March budget.
	genBody := fmt.Sprintf(`{"template_id":%.0f,"anchor":"2025-03-15T12:00:00Z"}`, templateID)
	rec := app.request("POST", budgetsPath+"/generate", genBody, token)
	if rec.Code != http.StatusCreated {
		t.Fatalf("generate failed: %d %s", rec.Code, rec.Body.String())
	}
	march := parseJSON(t, rec)["budget"].(map[string]interface{})
	if got := march["total_budget"].(float64); got != 600000 {
		t.Errorf("expected total_budget 600000, got %v", got)
	}
	for _, raw := range march["categories"].([]interface{}) {
		line := raw.(map[string]interface{})
		if got := line["rollover_amount"].(float64); got != 0 {
			t.Errorf("first period should have zero rollover, got %v", got)
		}
	}

	// A second generation for the same period must conflict.
	rec = app.request("POST", budgetsPath+"/generate", genBody, token)
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409 on repeat generation, got %d %s", rec.Code, rec.Body.String())
	}
	errObj := parseJSON(t, rec)["error"].(map[string]interface{})
	if errObj["code"] != "BUDGET_PERIOD_CONFLICT" {
		t.Errorf("expected BUDGET_PERIOD_CONFLICT, got %v", errObj["code"])
	}

	// Spend 4200.00 of the 5000.00 groceries allowance during March.
	app.createExpense(t, token, familyID, groceries, 420000, "2025-03-10T12:00:00Z")

	// Preview the rollover before materializing April.
	marchID := march["id"].(float64)
	rec = app.request("GET", fmt.Sprintf("%s/%.0f/rollover-preview", budgetsPath, marchID), "", token)
	if rec.Code != http.StatusOK {
		t.Fatalf("preview failed: %d %s", rec.Code, rec.Body.String())
	}
	previews := parseJSON(t, rec)["preview"].([]interface{})
	var previewed bool
	for _, raw := range previews {
		line := raw.(map[string]interface{})
		if line["category_id"].(float64) != groceries {
			continue
		}
		previewed = true
		projected := line["projected"].(map[string]interface{})
		if got := projected["amount"].(float64); got != 80000 {
			t.Errorf("expected projected rollover 80000, got %v", got)
		}
	}
	if !previewed {
		t.Fatal("groceries line missing from preview")
	}

	// Generate April: groceries carries 800.00, dining carries nothing.
	rec = app.request("POST", budgetsPath+"/generate",
		fmt.Sprintf(`{"template_id":%.0f,"anchor":"2025-04-02T09:00:00Z"}`, templateID), token)
	if rec.Code != http.StatusCreated {
		t.Fatalf("april generate failed: %d %s", rec.Code, rec.Body.String())
	}
	april := parseJSON(t, rec)["budget"].(map[string]interface{})
	for _, raw := range april["categories"].([]interface{}) {
		line := raw.(map[string]interface{})
		switch line["category_id"].(float64) {
		case groceries:
			if got := line["rollover_amount"].(float64); got != 80000 {
				t.Errorf("expected groceries rollover 80000, got %v", got)
			}
		case dining:
			if got := line["rollover_amount"].(float64); got != 0 {
				t.Errorf("expected dining rollover 0, got %v", got)
			}
		}
	}

	// April's status reflects the banked allowance as effective limit.
	aprilID := april["id"].(float64)
	rec = app.request("GET", fmt.Sprintf("%s/%.0f/status", budgetsPath, aprilID), "", token)
	if rec.Code != http.StatusOK {
		t.Fatalf("status failed: %d %s", rec.Code, rec.Body.String())
	}
	status := parseJSON(t, rec)
	for _, raw := range status["categories"].([]interface{}) {
		line := raw.(map[string]interface{})
		if line["category_id"].(float64) == groceries {
			if got := line["effective_limit"].(float64); got != 580000 {
				t.Errorf("expected effective limit 580000, got %v", got)
			}
		}
	}
}

func TestTransferFlow(t *testing.T) {
	app := setupApp(t)
	token, _ := app.registerUser(t, "transfer-flow@example.com", "password123")
	familyID := app.createFamily(t, token, "Transfer Flow Family")
	groceries := app.createCategory(t, token, familyID, "Groceries")
	dining := app.createCategory(t, token, familyID, "Dining")

	// Dining has rollover disabled so its April line opens at zero and the
	// transfer credit is the only carry it holds.
	templateID := seedTemplate(t, app, token, familyID, "Monthly Household", false, fmt.Sprintf(
		`{"category_id":%.0f,"monthly_limit":500000,"enable_rollover":true},{"category_id":%.0f,"monthly_limit":100000,"enable_rollover":false}`,
		groceries, dining))

	budgetsPath := fmt.Sprintf("/api/v1/families/%.0f/budgets", familyID)

	// March with underspend, then April so groceries has banked rollover.
	rec := app.request("POST", budgetsPath+"/generate",
		fmt.Sprintf(`{"template_id":%.0f,"anchor":"2025-03-15T12:00:00Z"}`, templateID), token)
	if rec.Code != http.StatusCreated {
		t.Fatalf("march generate failed: %d %s", rec.Code, rec.Body.String())
	}
	app.createExpense(t, token, familyID, groceries, 420000, "2025-03-10T12:00:00Z")

	rec = app.request("POST", budgetsPath+"/generate",
		fmt.Sprintf(`{"template_id":%.0f,"anchor":"2025-04-02T09:00:00Z"}`, templateID), token)
	if rec.Code != http.StatusCreated {
		t.Fatalf("april generate failed: %d %s", rec.Code, rec.Body.String())
	}
	aprilID := parseJSON(t, rec)["budget"].(map[string]interface{})["id"].(float64)

	transferPath := fmt.Sprintf("%s/%.0f/transfer", budgetsPath, aprilID)

	// Move 300.00 of groceries' 800.00 surplus to dining.
	rec = app.request("POST", transferPath, fmt.Sprintf(
		`{"from_category_id":%.0f,"to_category_id":%.0f,"amount":30000,"reason":"dinner out"}`,
		groceries, dining), token)
	if rec.Code != http.StatusOK {
		t.Fatalf("transfer failed: %d %s", rec.Code, rec.Body.String())
	}
	result := parseJSON(t, rec)
	if got := result["from_rollover"].(float64); got != 50000 {
		t.Errorf("expected from_rollover 50000, got %v", got)
	}
	if got := result["to_rollover"].(float64); got != 30000 {
		t.Errorf("expected to_rollover 30000, got %v", got)
	}

	// Draining more than the live available balance (limit + remaining
	// rollover, nothing spent in April yet) must fail.
	rec = app.request("POST", transferPath, fmt.Sprintf(
		`{"from_category_id":%.0f,"to_category_id":%.0f,"amount":600000}`,
		groceries, dining), token)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 on overdraw, got %d %s", rec.Code, rec.Body.String())
	}
	errObj := parseJSON(t, rec)["error"].(map[string]interface{})
	if errObj["code"] != "INSUFFICIENT_FUNDS" {
		t.Errorf("expected INSUFFICIENT_FUNDS, got %v", errObj["code"])
	}
}

func TestMissingBudgetFlow(t *testing.T) {
	app := setupApp(t)
	token, _ := app.registerUser(t, "missing-flow@example.com", "password123")
	familyID := app.createFamily(t, token, "Missing Flow Family")
	groceries := app.createCategory(t, token, familyID, "Groceries")

	seedTemplate(t, app, token, familyID, "Auto Monthly", true, fmt.Sprintf(
		`{"category_id":%.0f,"monthly_limit":500000,"enable_rollover":true}`, groceries))

	budgetsPath := fmt.Sprintf("/api/v1/families/%.0f/budgets", familyID)
	ref := "2025-03-15T12:00:00Z"

	// The March budget is reported missing until generated.
	rec := app.request("GET", budgetsPath+"/missing?ref="+ref, "", token)
	if rec.Code != http.StatusOK {
		t.Fatalf("missing failed: %d %s", rec.Code, rec.Body.String())
	}
	missing := parseJSON(t, rec)["missing"].([]interface{})
	if len(missing) != 1 {
		t.Fatalf("expected 1 missing template, got %d", len(missing))
	}

	// Bulk generation materializes it.
	rec = app.request("POST", budgetsPath+"/generate-missing?ref="+ref, "", token)
	if rec.Code != http.StatusOK {
		t.Fatalf("generate-missing failed: %d %s", rec.Code, rec.Body.String())
	}
	summary := parseJSON(t, rec)
	if got := summary["generated"].(float64); got != 1 {
		t.Errorf("expected 1 generated, got %v", got)
	}

	// Nothing left missing, and a rerun is a no-op.
	rec = app.request("GET", budgetsPath+"/missing?ref="+ref, "", token)
	result := parseJSON(t, rec)
	if raw, ok := result["missing"].([]interface{}); ok && len(raw) != 0 {
		t.Errorf("expected no missing templates, got %d", len(raw))
	}

	rec = app.request("POST", budgetsPath+"/generate-missing?ref="+ref, "", token)
	summary = parseJSON(t, rec)
	if got := summary["generated"].(float64); got != 0 {
		t.Errorf("expected 0 generated on rerun, got %v", got)
	}
}

func TestFamilyRoleEnforcement(t *testing.T) {
	app := setupApp(t)
	adminToken, _ := app.registerUser(t, "role-admin@example.com", "password123")
	viewerToken, viewerID := app.registerUser(t, "role-viewer@example.com", "password123")
	familyID := app.createFamily(t, adminToken, "Role Family")

	rec := app.request("POST", fmt.Sprintf("/api/v1/families/%.0f/members", familyID),
		fmt.Sprintf(`{"user_id":%.0f,"role":"viewer"}`, viewerID), adminToken)
	if rec.Code != http.StatusCreated {
		t.Fatalf("add member failed: %d %s", rec.Code, rec.Body.String())
	}

	// Viewers can read but not write.
	rec = app.request("GET", fmt.Sprintf("/api/v1/families/%.0f/categories", familyID), "", viewerToken)
	if rec.Code != http.StatusOK {
		t.Errorf("expected viewer read to succeed, got %d", rec.Code)
	}
	rec = app.request("POST", fmt.Sprintf("/api/v1/families/%.0f/categories", familyID),
		`{"name":"Sneaky","type":"expense"}`, viewerToken)
	if rec.Code != http.StatusForbidden {
		t.Errorf("expected viewer write to be forbidden, got %d", rec.Code)
	}

	// Outsiders cannot see the family at all.
	outsiderToken, _ := app.registerUser(t, "role-outsider@example.com", "password123")
	rec = app.request("GET", fmt.Sprintf("/api/v1/families/%.0f/categories", familyID), "", outsiderToken)
	if rec.Code != http.StatusForbidden {
		t.Errorf("expected outsider to be rejected, got %d", rec.Code)
	}
}
