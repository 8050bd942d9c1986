package testing

import (
	"encoding/json"
	"net/http"
)

// StubBuilder configures a stub using a fluent API. Nothing is served
// until Reply is called.
type StubBuilder struct {
	ws   *Workspace
	stub *stub
}

// WithStatus sets the response status code. Default is 200.
func (b *StubBuilder) WithStatus(status int) *StubBuilder {
	b.stub.status = status
	return b
}

// WithHeader sets a response header.
func (b *StubBuilder) WithHeader(key, value string) *StubBuilder {
	b.stub.headers[key] = value
	return b
}

// WithBody sets a raw response body.
func (b *StubBuilder) WithBody(body string) *StubBuilder {
	b.stub.body = []byte(body)
	return b
}

// WithJSON encodes body as the response and sets Content-Type.
func (b *StubBuilder) WithJSON(body any) *StubBuilder {
	data, err := json.Marshal(body)
	if err != nil {
		panic("dbxtest: cannot encode stub body: " + err.Error())
	}
	b.stub.body = data
	b.stub.headers["Content-Type"] = "application/json"
	return b
}

// WithAPIError answers with a Databricks error payload.
func (b *StubBuilder) WithAPIError(status int, code, message string) *StubBuilder {
	return b.WithStatus(status).WithJSON(map[string]string{
		"error_code": code,
		"message":    message,
	})
}

// Times limits the stub to n uses; after that the next older stub (or the
// 404 fallback) answers.
func (b *StubBuilder) Times(n int) *StubBuilder {
	b.stub.remaining = n
	return b
}

// Once is Times(1).
func (b *StubBuilder) Once() *StubBuilder {
	return b.Times(1)
}

// Reply registers the stub.
func (b *StubBuilder) Reply() {
	b.ws.addStub(b.stub)
}

// RespondUnauthorized is a shortcut for a 401 with the workspace's error shape.
func (b *StubBuilder) RespondUnauthorized() *StubBuilder {
	return b.WithAPIError(http.StatusUnauthorized, "UNAUTHENTICATED", "Invalid access token.")
}

// RespondServerError is a shortcut for a 500 with message.
func (b *StubBuilder) RespondServerError(message string) *StubBuilder {
	return b.WithAPIError(http.StatusInternalServerError, "INTERNAL_ERROR", message)
}
