package polarion

import (
	"net/url"
	"strconv"
	"strings"
)

// RequestSpec is the HTTP request resolved for one item.
type RequestSpec struct {
	Method string
	Path   string
	Query  url.Values
	Body   interface{}
}

// route describes how a resource addresses a single entity.
type route struct {
	// idField names the item field holding the entity identifier.
	idField string
	// escapeID encodes the identifier as a single path component; document
	// IDs may contain '/' and other reserved characters.
	escapeID bool
	// filterOnList attaches the PQL query parameter to list requests.
	filterOnList bool
}

var routes = map[Resource]route{
	ResourceWorkItems:    {idField: FieldWorkItemID, filterOnList: true},
	ResourceDocuments:    {idField: FieldDocumentID, escapeID: true},
	ResourceProjects:     {idField: FieldProjectID},
	ResourceUsers:        {idField: FieldResourceID},
	ResourceEnumerations: {idField: FieldResourceID},
	ResourceJobs:         {idField: FieldResourceID},
	ResourceCollections:  {idField: FieldResourceID},
	ResourcePlans:        {idField: FieldResourceID},
	ResourcePages:        {idField: FieldResourceID},
	ResourceTestRuns:     {idField: FieldResourceID},
	ResourceTestRecords:  {idField: FieldResourceID},
	ResourceTestSteps:    {idField: FieldResourceID},
	ResourceApprovals:    {idField: FieldResourceID},
}

// IDField returns the item field that identifies a single entity of
// resource, or "" for an unknown resource.
func IDField(resource Resource) string {
	return routes[resource].idField
}

// Resolve maps an item to its request. The payload is parsed before the
// route is looked up, so an item with both a bad payload and a bad resource
// reports the payload error.
func Resolve(item *Item) (*RequestSpec, error) {
	method := item.Operation.Method()
	if method == "" {
		return nil, &RoutingError{Resource: item.Resource, Operation: item.Operation, Reason: "unknown operation"}
	}

	spec := &RequestSpec{
		Method: method,
		Path:   "/" + string(item.Resource),
		Query:  url.Values{},
	}

	if item.Operation.HasPayload() {
		body, err := item.Data.Decode()
		if err != nil {
			return nil, err
		}
		spec.Body = body
	}

	r, ok := routes[item.Resource]
	if !ok {
		return nil, &RoutingError{Resource: item.Resource, Operation: item.Operation, Reason: "unknown resource"}
	}

	if item.Operation.TargetsOne() {
		id := item.Identifier(r.idField)
		if id == "" {
			return nil, &RoutingError{
				Resource:  item.Resource,
				Operation: item.Operation,
				Reason:    r.idField + " is required",
			}
		}
		if r.escapeID {
			id = escapeComponent(id)
		}
		spec.Path += "/" + id
	}

	if item.Operation == OperationList && r.filterOnList && item.Query != "" {
		spec.Query.Set("query", item.Query)
	}

	if item.Operation == OperationList || item.Operation == OperationGet {
		if item.Options.Fields != "" {
			spec.Query.Set("fields", item.Options.Fields)
		}
	}

	if item.Operation == OperationList {
		limit, skip := DefaultLimit, DefaultSkip
		if item.Options.Limit != nil {
			limit = *item.Options.Limit
		}
		if item.Options.Skip != nil {
			skip = *item.Options.Skip
		}
		spec.Query.Set("limit", strconv.Itoa(limit))
		spec.Query.Set("skip", strconv.Itoa(skip))
	}

	return spec, nil
}

// escapeComponent percent-encodes every byte outside the unreserved set
// (letters, digits, '-', '_', '.', '~').
func escapeComponent(s string) string {
	return strings.ReplaceAll(url.QueryEscape(s), "+", "%20")
}
