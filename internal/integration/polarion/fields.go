package polarion

import "slices"

// Item field names.
const (
	FieldResource   = "resource"
	FieldOperation  = "operation"
	FieldWorkItemID = "workItemId"
	FieldDocumentID = "documentId"
	FieldProjectID  = "projectId"
	FieldResourceID = "resourceId"
	FieldQuery      = "query"
	FieldData       = "data"
	FieldFields     = "options.fields"
	FieldLimit      = "options.limit"
	FieldSkip       = "options.skip"
)

// Defaults applied to list operations.
const (
	DefaultLimit = 50
	DefaultSkip  = 0
)

// FieldKind is the value type of a field.
type FieldKind string

const (
	KindString  FieldKind = "string"
	KindNumber  FieldKind = "number"
	KindJSON    FieldKind = "json"
	KindOptions FieldKind = "options"
)

// Field declares one item parameter and where it applies.
type Field struct {
	Name        string
	DisplayName string
	Kind        FieldKind
	Description string
	Required    bool
	Default     interface{}
	Options     []string

	// Resources restricts the field to these resources. Nil means all.
	Resources []Resource
	// Operations restricts the field to these operations. Nil means all.
	Operations []Operation
}

// AppliesTo reports whether the field is shown for resource and op.
func (f Field) AppliesTo(resource Resource, op Operation) bool {
	if f.Resources != nil && !slices.Contains(f.Resources, resource) {
		return false
	}
	if f.Operations != nil && !slices.Contains(f.Operations, op) {
		return false
	}
	return true
}

var (
	targetsOne = []Operation{OperationGet, OperationUpdate, OperationDelete}
	readOps    = []Operation{OperationList, OperationGet}
	listOnly   = []Operation{OperationList}
	writeOps   = []Operation{OperationCreate, OperationUpdate}

	genericResources = []Resource{
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
)

// Fields is the parameter schema of the node.
var Fields = []Field{
	{
		Name:        FieldResource,
		DisplayName: "Resource",
		Kind:        KindOptions,
		Required:    true,
		Default:     string(ResourceWorkItems),
		Options:     resourceNames(),
	},
	{
		Name:        FieldOperation,
		DisplayName: "Operation",
		Kind:        KindOptions,
		Required:    true,
		Default:     string(OperationList),
		Options:     operationNames(),
	},
	{
		Name:        FieldWorkItemID,
		DisplayName: "Work Item ID",
		Kind:        KindString,
		Description: "ID of the work item, e.g. MYPROJ-123",
		Required:    true,
		Resources:   []Resource{ResourceWorkItems},
		Operations:  targetsOne,
	},
	{
		Name:        FieldDocumentID,
		DisplayName: "Document ID",
		Kind:        KindString,
		Description: "ID of the document; may contain '/' (space/document), sent percent-encoded",
		Required:    true,
		Resources:   []Resource{ResourceDocuments},
		Operations:  targetsOne,
	},
	{
		Name:        FieldProjectID,
		DisplayName: "Project ID",
		Kind:        KindString,
		Required:    true,
		Resources:   []Resource{ResourceProjects},
		Operations:  targetsOne,
	},
	{
		Name:        FieldResourceID,
		DisplayName: "Resource ID",
		Kind:        KindString,
		Required:    true,
		Resources:   genericResources,
		Operations:  targetsOne,
	},
	{
		Name:        FieldQuery,
		DisplayName: "Query",
		Kind:        KindString,
		Description: "Polarion query (PQL) passed through unmodified",
		Resources:   []Resource{ResourceWorkItems},
		Operations:  listOnly,
	},
	{
		Name:        FieldData,
		DisplayName: "Data",
		Kind:        KindJSON,
		Description: "JSON request body",
		Required:    true,
		Operations:  writeOps,
	},
	{
		Name:        FieldFields,
		DisplayName: "Fields",
		Kind:        KindString,
		Description: "Comma-separated list of fields to return",
		Operations:  readOps,
	},
	{
		Name:        FieldLimit,
		DisplayName: "Limit",
		Kind:        KindNumber,
		Description: "Maximum number of results",
		Default:     DefaultLimit,
		Operations:  listOnly,
	},
	{
		Name:        FieldSkip,
		DisplayName: "Skip",
		Kind:        KindNumber,
		Description: "Number of results to skip",
		Default:     DefaultSkip,
		Operations:  listOnly,
	},
}

// FieldsFor returns the fields shown for resource and op, in schema order.
func FieldsFor(resource Resource, op Operation) []Field {
	var out []Field
	for _, f := range Fields {
		if f.AppliesTo(resource, op) {
			out = append(out, f)
		}
	}
	return out
}

func resourceNames() []string {
	names := make([]string, len(Resources))
	for i, r := range Resources {
		names[i] = string(r)
	}
	return names
}

func operationNames() []string {
	names := make([]string, len(Operations))
	for i, o := range Operations {
		names[i] = string(o)
	}
	return names
}
