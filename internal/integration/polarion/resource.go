package polarion

import (
	"net/http"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Resource is one of the Polarion REST collections the node can address.
type Resource string

const (
	ResourceWorkItems    Resource = "workitems"
	ResourceDocuments    Resource = "documents"
	ResourceProjects     Resource = "projects"
	ResourceUsers        Resource = "users"
	ResourceEnumerations Resource = "enumerations"
	ResourceJobs         Resource = "jobs"
	ResourceCollections  Resource = "collections"
	ResourcePlans        Resource = "plans"
	ResourcePages        Resource = "pages"
	ResourceTestRuns     Resource = "testruns"
	ResourceTestRecords  Resource = "testrecords"
	ResourceTestSteps    Resource = "teststeps"
	ResourceApprovals    Resource = "approvals"
)

// Resources lists every resource in display order.
var Resources = []Resource{
	ResourceWorkItems,
	ResourceDocuments,
	ResourceProjects,
	ResourceUsers,
	ResourceEnumerations,
	ResourceJobs,
	ResourceCollections,
	ResourcePlans,
	ResourcePages,
	ResourceTestRuns,
	ResourceTestRecords,
	ResourceTestSteps,
	ResourceApprovals,
}

var resourceLabels = map[Resource]string{
	ResourceWorkItems:    "work item",
	ResourceDocuments:    "document",
	ResourceProjects:     "project",
	ResourceUsers:        "user",
	ResourceEnumerations: "enumeration",
	ResourceJobs:         "job",
	ResourceCollections:  "collection",
	ResourcePlans:        "plan",
	ResourcePages:        "page",
	ResourceTestRuns:     "test run",
	ResourceTestRecords:  "test record",
	ResourceTestSteps:    "test step",
	ResourceApprovals:    "approval",
}

var titleCaser = cases.Title(language.English)

// Valid reports whether r is a known resource.
func (r Resource) Valid() bool {
	_, ok := routes[r]
	return ok
}

// Label is the lower-case singular noun, e.g. "test run".
func (r Resource) Label() string {
	if label, ok := resourceLabels[r]; ok {
		return label
	}
	return string(r)
}

// DisplayName is the title-cased singular noun, e.g. "Test Run".
func (r Resource) DisplayName() string {
	return titleCaser.String(r.Label())
}

// Operation is the action performed on a resource.
type Operation string

const (
	OperationList   Operation = "list"
	OperationGet    Operation = "get"
	OperationCreate Operation = "create"
	OperationUpdate Operation = "update"
	OperationDelete Operation = "delete"
)

// Operations lists every operation in display order.
var Operations = []Operation{
	OperationList,
	OperationGet,
	OperationCreate,
	OperationUpdate,
	OperationDelete,
}

// Valid reports whether o is a known operation.
func (o Operation) Valid() bool {
	return o.Method() != ""
}

// Method returns the HTTP method for o, or "" when o is unknown.
func (o Operation) Method() string {
	switch o {
	case OperationList, OperationGet:
		return http.MethodGet
	case OperationCreate:
		return http.MethodPost
	case OperationUpdate:
		return http.MethodPut
	case OperationDelete:
		return http.MethodDelete
	default:
		return ""
	}
}

// TargetsOne reports whether o addresses a single resource by identifier.
func (o Operation) TargetsOne() bool {
	return o == OperationGet || o == OperationUpdate || o == OperationDelete
}

// HasPayload reports whether o sends a JSON body.
func (o Operation) HasPayload() bool {
	return o == OperationCreate || o == OperationUpdate
}

// DisplayName is the title-cased operation, e.g. "Create".
func (o Operation) DisplayName() string {
	return titleCaser.String(string(o))
}
