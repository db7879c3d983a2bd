package mcp

import (
	"context"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
)

const serverInstructions = `ngoboard tracks NGO projects from approval to payment, and the periodic indicator reports organizations file against them.

Core concepts:
- Project: owned by one organization, split into thematic axes. Each axis declares typed indicators (count, percentage, mass, currency, text).
- Lifecycle: PENDING_APPROVAL -> PENDING_PAYMENT -> HISTORICAL. Transitions only move forward.
- Report: the values of one axis for one period. A period is an ordinal within the year (month, quarter or 1 for annual) plus the year. At most one report per (project, axis, period). Reports are locked once stored.
- Derived fields: server-computed values such as recovery_rate, stored with the report.

Workflow:
1) Admin: create_project, then update_project until every axis has indicators.
2) Admin: approve_project. Fails with AXIS_MISSING_INDICATORS listing the empty axes.
3) Admin: pay_project (server-side provider) or authorize_payment (outcome decided elsewhere). Declines are recorded and leave the project in PENDING_PAYMENT.
4) Organization: list_reported_periods to find open slots, then submit_report. DUPLICATE_PERIOD means the slot is taken; reports cannot be edited.

Errors carry a code (VALIDATION_ERROR, INVALID_STATE, DUPLICATE_PERIOD, ...) and details. INVALID_STATE includes the current state; re-read the project before retrying.

Docs:
- ngoboard://docs/index
- ngoboard://docs/lifecycle
- ngoboard://docs/reporting
`

type docResource struct {
	URI         string
	Name        string
	Title       string
	Description string
	Content     string
}

var docResources = []docResource{
	{
		URI:         "ngoboard://docs/index",
		Name:        "docs_index",
		Title:       "ngoboard docs index",
		Description: "Entry point: available tools grouped by role and which docs to read.",
		Content: `# ngoboard: Docs Index

## Roles

- **admin**: creates, edits, approves and pays projects. Can also submit reports for any project.
- **organization**: submits reports for projects it owns. Read tools are open to both roles.

## Tools

| Group | Tools |
|-------|-------|
| Projects | ` + "`create_project`" + `, ` + "`update_project`" + `, ` + "`delete_project`" + `, ` + "`get_project`" + `, ` + "`list_projects`" + `, ` + "`search_projects`" + ` |
| Lifecycle | ` + "`approve_project`" + `, ` + "`pay_project`" + `, ` + "`authorize_payment`" + `, ` + "`get_payment_history`" + ` |
| Reports | ` + "`submit_report`" + `, ` + "`get_report`" + `, ` + "`list_reports`" + `, ` + "`list_reported_periods`" + ` |
| Activity | ` + "`get_recent_activity`" + ` |

## Docs

- ` + "`ngoboard://docs/lifecycle`" + `: states, transitions and payment handling.
- ` + "`ngoboard://docs/reporting`" + `: periods, indicator values and derived fields.

Reports can also be downloaded as a spreadsheet from ` + "`GET /projects/{id}/reports.xlsx`" + ` on the HTTP transport.
`,
	},
	{
		URI:         "ngoboard://docs/lifecycle",
		Name:        "docs_lifecycle",
		Title:       "Project lifecycle",
		Description: "States, allowed transitions, approval preconditions and payment attempts.",
		Content: `# Project lifecycle

` + "```" + `
PENDING_APPROVAL --approve--> PENDING_PAYMENT --payment authorized--> HISTORICAL
` + "```" + `

- Only ` + "`update_project`" + ` edits a project, and only while it is PENDING_APPROVAL.
- ` + "`approve_project`" + ` requires every axis to declare at least one indicator. Otherwise it fails with AXIS_MISSING_INDICATORS and ` + "`details.axes`" + ` lists the offending axes.
- A payment attempt is recorded for every call, whether declined, accepted or rejected for being in the wrong state. See ` + "`get_payment_history`" + `.
- A declined payment returns PAYMENT_DECLINED and leaves the project in PENDING_PAYMENT. Call again to retry; the server never retries on its own.
- Concurrent transitions are serialized: exactly one caller wins and the others get INVALID_STATE with the state they lost to. If only an edit got in between, the loser gets CONFLICT and may retry.
- ` + "`delete_project`" + ` fails with PROJECT_HAS_REPORTS once any report exists.
`,
	},
	{
		URI:         "ngoboard://docs/reporting",
		Name:        "docs_reporting",
		Title:       "Submitting reports",
		Description: "Periods, indicator typing rules, duplicates and derived fields.",
		Content: `# Submitting reports

## Periods

` + "`period`" + ` is ` + "`{\"index\": n, \"year\": yyyy}`" + `. The index ranges over 1-12 for monthly projects, 1-4 for quarterly and is always 1 for annual ones.

## Values

- ` + "`values`" + ` maps indicator name to value and must cover exactly the indicators declared on the axis.
- Numeric types (count, percentage, mass, currency) accept JSON numbers or numeric strings.
- Text accepts any string.
- On failure VALIDATION_ERROR lists every problem in ` + "`details.issues`" + ` (missing, empty, undeclared, not_a_number).

## Duplicates and locking

A second report for the same project, axis and period fails with DUPLICATE_PERIOD. Stored reports are locked and cannot be edited or deleted.

## Derived fields

The server computes derived fields per axis. The default Nutrition axis yields
` + "`recovery_rate = (ind_1 + ind_2 + ind_3) / ind_4 * 100`" + ` over its first four indicators, rounded to two decimals. A formula that cannot be evaluated (missing indicator, division by zero) is skipped and the report is still stored.
`,
	},
}

func registerDocResources(server *sdkmcp.Server) {
	for _, doc := range docResources {
		doc := doc

		server.AddResource(&sdkmcp.Resource{
			URI:         doc.URI,
			Name:        doc.Name,
			Title:       doc.Title,
			Description: doc.Description,
			MIMEType:    "text/markdown",
			Size:        int64(len(doc.Content)),
		}, func(_ context.Context, req *sdkmcp.ReadResourceRequest) (*sdkmcp.ReadResourceResult, error) {
			uri := doc.URI
			if req != nil && req.Params != nil && req.Params.URI != "" {
				uri = req.Params.URI
			}
			return &sdkmcp.ReadResourceResult{
				Contents: []*sdkmcp.ResourceContents{{
					URI:      uri,
					MIMEType: "text/markdown",
					Text:     doc.Content,
				}},
			}, nil
		})
	}
}
