package testserver

import (
	"encoding/json"
	"net/http"
	"sync"
	"testing"

	"github.com/rpggio/ngoboard/internal/domain/activity"
	"github.com/rpggio/ngoboard/internal/domain/project"
	"github.com/rpggio/ngoboard/internal/domain/report"
	"github.com/rpggio/ngoboard/internal/export"
	"github.com/rpggio/ngoboard/internal/mcp"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func nutritionAxis() map[string]any {
	return map[string]any{
		"name": "Nutrition",
		"indicators": []map[string]any{
			{"name": "admitted", "type": "count"},
			{"name": "recovered", "type": "count"},
			{"name": "referred", "type": "count"},
			{"name": "enrolled", "type": "count"},
		},
	}
}

func createProject(t *testing.T, ts *TestServer, axes ...map[string]any) project.Project {
	t.Helper()
	var proj project.Project
	ts.MustCall(t, AdminToken, "create_project", map[string]any{
		"name":            "School feeding",
		"description":     "Meals for primary schools in the northern district",
		"duration":        12,
		"cadence":         "monthly",
		"organization_id": "org1",
		"axes":            axes,
	}, &proj)
	return proj
}

func TestProjectLifecycle(t *testing.T) {
	ts := New(t, Options{PaymentCeiling: decimal.NewFromInt(10000)})

	proj := createProject(t, ts, nutritionAxis(), map[string]any{"name": "Water"})
	require.Equal(t, project.StatePendingApproval, proj.State)

	// Approval is blocked by the empty Water axis.
	_, rpcErr := ts.Call(t, AdminToken, "approve_project", map[string]any{"project_id": proj.ID})
	require.Equal(t, mcp.CodeAxisMissingIndicators, ErrorCode(t, rpcErr))
	require.Equal(t, []any{"Water"}, rpcErr.Data.(map[string]any)["details"].(map[string]any)["axes"])

	ts.MustCall(t, AdminToken, "update_project", map[string]any{
		"project_id": proj.ID,
		"axes": []map[string]any{
			nutritionAxis(),
			{"name": "Water", "indicators": []map[string]any{{"name": "litres", "type": "mass"}}},
		},
	}, &proj)

	// Organizations cannot approve.
	_, rpcErr = ts.Call(t, OrgToken, "approve_project", map[string]any{"project_id": proj.ID})
	require.Equal(t, mcp.CodeForbidden, ErrorCode(t, rpcErr))

	ts.MustCall(t, AdminToken, "approve_project", map[string]any{"project_id": proj.ID}, &proj)
	require.Equal(t, project.StatePendingPayment, proj.State)
	require.NotNil(t, proj.ApprovedAt)

	_, rpcErr = ts.Call(t, AdminToken, "update_project", map[string]any{"project_id": proj.ID, "name": "late edit"})
	require.Equal(t, mcp.CodeInvalidState, ErrorCode(t, rpcErr))

	// Reporting.
	period := map[string]any{"index": 1, "year": 2024}
	var rep report.Report
	result, rpcErr := ts.Call(t, OrgToken, "submit_report", map[string]any{
		"project_id": proj.ID,
		"axis":       "Nutrition",
		"period":     period,
		"values":     map[string]any{"admitted": 10, "recovered": "5", "referred": 3, "enrolled": 20},
	})
	require.Nil(t, rpcErr)
	require.Contains(t, string(result), `{"name":"recovery_rate","value":"90.00"}`)
	require.NoError(t, json.Unmarshal(result, &rep))
	require.True(t, rep.Locked)
	require.Equal(t, "org1", rep.SubmittedBy)
	require.Len(t, rep.Derived, 1)
	require.Equal(t, "90", rep.Derived[0].Value.String())

	_, rpcErr = ts.Call(t, OrgToken, "submit_report", map[string]any{
		"project_id": proj.ID,
		"axis":       "Nutrition",
		"period":     period,
		"values":     map[string]any{"admitted": 1, "recovered": 1, "referred": 1, "enrolled": 1},
	})
	require.Equal(t, mcp.CodeDuplicatePeriod, ErrorCode(t, rpcErr))

	_, rpcErr = ts.Call(t, OtherToken, "submit_report", map[string]any{
		"project_id": proj.ID,
		"axis":       "Water",
		"period":     period,
		"values":     map[string]any{"litres": 400},
	})
	require.Equal(t, mcp.CodeForbidden, ErrorCode(t, rpcErr))

	_, rpcErr = ts.Call(t, OrgToken, "submit_report", map[string]any{
		"project_id": proj.ID,
		"axis":       "Water",
		"period":     map[string]any{"index": 13, "year": 2024},
		"values":     map[string]any{"litres": 400},
	})
	require.Equal(t, mcp.CodeValidation, ErrorCode(t, rpcErr))

	result, rpcErr = ts.Call(t, OtherToken, "get_report", map[string]any{"project_id": proj.ID, "axis": "Nutrition", "period": period})
	require.Nil(t, rpcErr)
	require.Contains(t, string(result), `"value":"90.00"`)
	var got report.Report
	require.NoError(t, json.Unmarshal(result, &got))
	require.Equal(t, rep.ID, got.ID)

	var periods mcp.ListReportedPeriodsResponse
	ts.MustCall(t, OrgToken, "list_reported_periods", map[string]any{"project_id": proj.ID}, &periods)
	require.Len(t, periods.Periods, 1)
	require.Equal(t, "January 2024", periods.Periods[0].Label)

	// Payment: a declined attempt keeps the project payable.
	_, rpcErr = ts.Call(t, AdminToken, "pay_project", map[string]any{
		"project_id":  proj.ID,
		"amount":      "25000",
		"description": "annual grant",
	})
	require.Equal(t, mcp.CodePaymentDeclined, ErrorCode(t, rpcErr))

	ts.MustCall(t, AdminToken, "get_project", map[string]any{"project_id": proj.ID}, &proj)
	require.Equal(t, project.StatePendingPayment, proj.State)

	ts.MustCall(t, AdminToken, "pay_project", map[string]any{
		"project_id":  proj.ID,
		"amount":      "2500",
		"description": "annual grant",
	}, &proj)
	require.Equal(t, project.StateHistorical, proj.State)
	require.NotNil(t, proj.PaidAt)

	_, rpcErr = ts.Call(t, AdminToken, "authorize_payment", map[string]any{
		"project_id":     proj.ID,
		"success":        true,
		"transaction_id": "tx-late",
	})
	require.Equal(t, mcp.CodeInvalidState, ErrorCode(t, rpcErr))

	var attempts []project.PaymentAttempt
	ts.MustCall(t, AdminToken, "get_payment_history", map[string]any{"project_id": proj.ID}, &attempts)
	require.Len(t, attempts, 3)
	require.False(t, attempts[0].Success)
	require.True(t, attempts[1].Success)
	require.Equal(t, project.StateHistorical, attempts[2].StateAtCall)

	// Historical projects still accept reports by default.
	ts.MustCall(t, OrgToken, "submit_report", map[string]any{
		"project_id": proj.ID,
		"axis":       "Water",
		"period":     map[string]any{"index": 2, "year": 2024},
		"values":     map[string]any{"litres": "1250.5"},
	}, nil)

	_, rpcErr = ts.Call(t, AdminToken, "delete_project", map[string]any{"project_id": proj.ID})
	require.Equal(t, mcp.CodeProjectHasReports, ErrorCode(t, rpcErr))

	var entries []activity.ActivityEntry
	ts.MustCall(t, OrgToken, "get_recent_activity", map[string]any{"project_id": proj.ID, "type": "report_submitted"}, &entries)
	require.Len(t, entries, 2)

	resp := ts.Get(t, OrgToken, "/projects/"+proj.ID+"/reports.xlsx")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, export.ContentType, resp.Header.Get("Content-Type"))
	f, err := excelize.OpenReader(resp.Body)
	require.NoError(t, err)
	defer f.Close()
	require.Equal(t, []string{"Nutrition", "Water"}, f.GetSheetList())
}

func TestSearchAndList(t *testing.T) {
	ts := New(t, Options{})
	proj := createProject(t, ts, nutritionAxis())

	var found []project.Project
	ts.MustCall(t, OrgToken, "search_projects", map[string]any{"query": "northern"}, &found)
	require.Len(t, found, 1)
	require.Equal(t, proj.ID, found[0].ID)

	ts.MustCall(t, OrgToken, "search_projects", map[string]any{"query": "southern"}, &found)
	require.Empty(t, found)

	var listed []project.Project
	ts.MustCall(t, OrgToken, "list_projects", map[string]any{"states": []string{"HISTORICAL"}}, &listed)
	require.Empty(t, listed)

	ts.MustCall(t, OrgToken, "list_projects", map[string]any{"organization_id": "org1"}, &listed)
	require.Len(t, listed, 1)

	ts.MustCall(t, AdminToken, "delete_project", map[string]any{"project_id": proj.ID}, nil)
	_, rpcErr := ts.Call(t, OrgToken, "get_project", map[string]any{"project_id": proj.ID})
	require.Equal(t, mcp.CodeNotFound, ErrorCode(t, rpcErr))
}

func TestAfterApprovalPolicy(t *testing.T) {
	ts := New(t, Options{Policy: report.PolicyAfterApproval})
	proj := createProject(t, ts, nutritionAxis())

	submit := map[string]any{
		"project_id": proj.ID,
		"axis":       "Nutrition",
		"period":     map[string]any{"index": 4, "year": 2025},
		"values":     map[string]any{"admitted": 1, "recovered": 1, "referred": 1, "enrolled": 1},
	}
	_, rpcErr := ts.Call(t, OrgToken, "submit_report", submit)
	require.Equal(t, mcp.CodeInvalidState, ErrorCode(t, rpcErr))

	ts.MustCall(t, AdminToken, "approve_project", map[string]any{"project_id": proj.ID}, nil)
	ts.MustCall(t, OrgToken, "submit_report", submit, nil)
}

func TestConcurrentApprovalOverHTTP(t *testing.T) {
	ts := New(t, Options{})
	proj := createProject(t, ts, nutritionAxis())

	const callers = 6
	codes := make([]string, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, rpcErr := ts.Call(t, AdminToken, "approve_project", map[string]any{"project_id": proj.ID})
			if rpcErr != nil {
				codes[i] = ErrorCode(t, rpcErr)
			}
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, code := range codes {
		if code == "" {
			succeeded++
			continue
		}
		require.Equal(t, mcp.CodeInvalidState, code)
	}
	require.Equal(t, 1, succeeded)
}

func TestUnauthorizedRequests(t *testing.T) {
	ts := New(t, Options{})

	resp := ts.Get(t, "wrong-token", "/projects/p1/reports.xlsx")
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp = ts.Get(t, OrgToken, "/projects/missing/reports.xlsx")
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
}
