// Package tables provides a typed client layer over a table/record HTTP
// store: validated CRUD on single records and batches, and lazy pagination.
//
// # Overview
//
// A Base forwards actions to an Endpoint, which is one of two transports
// (direct HTTP with retries, or a delegate over a vendor SDK request
// primitive; see pkg/tsclient). Tables are obtained from a Base and pair a
// table name with an optional field Validator. Every response is validated
// before it is exposed as a Record.
//
//	base, err := tsclient.New(&tables.Config{APIKey: key, BaseID: "app123"})
//	if err != nil { log.Fatal(err) }
//
//	people := tables.NewTable(base, "People", tables.StructFields[Person](tables.FieldShape{
//	  "Name": tables.Required(tables.KindString),
//	  "Age":  tables.Optional(tables.KindNumber),
//	}))
//
//	record, err := people.Create(ctx, Person{Name: "Ada"})
//
// # Validation
//
// A Validator creates single-use ValidationContexts. A failed context renders
// a nested, numbered description of every problem:
//
//	Encountered 2 errors while validating "multi-record response":
//		1. Encountered an error while validating "record data records[1]": ...
//		2. ...
//
// # Queries and pagination
//
// Select returns a lazy SelectQuery. Nothing is fetched until it is iterated,
// and every iteration restarts from the first page:
//
//	query := people.Select(&tables.SelectParams{
//	  FilterByFormula: formula.Field("Age").Gte(18),
//	  PageSize:        50,
//	})
//	for record, err := range query.Records(ctx) {
//	  if err != nil { return err }
//	  _ = record
//	}
//
// # Errors
//
// Remote failures are normalized into *APIError regardless of the transport.
// IsNotFound, IsUnauthorized and IsRateLimited branch on common categories.
// Shape failures are *ValidationError.
//
// # Interceptors
//
// NewInterceptingEndpoint wraps any Endpoint with request and response
// interceptors for logging, rate limiting, metrics or a circuit breaker.
package tables
