// Package testing provides in-process fakes for exercising dbx-mcp in Go tests.
//
// Workspace is a fake Databricks REST API with a fluent stub builder and a
// request log. Stack puts a real MCP server in front of it, so the whole path
// from an MCP client down to the REST calls runs inside the test process.
//
// # Basic Usage
//
//	func TestListClusters(t *testing.T) {
//	    ws := dbxtest.New(t)
//	    ws.WithClusters(databricks.Cluster{ClusterID: "c-1", ClusterName: "etl", State: "RUNNING"})
//
//	    clusters, err := ws.Client().ListClusters(ctx)
//	    ...
//	    ws.AssertCalled(t, "GET", "/api/2.0/clusters/list")
//	}
//
// # Stubs
//
// Stubs match on method and path. The most recently registered stub that
// still has uses left wins, so a test can override a default:
//
//	ws.On("GET", "/api/2.1/jobs/list").
//	    WithAPIError(http.StatusForbidden, "PERMISSION_DENIED", "no access").
//	    Once().
//	    Reply()
//
// Requests without a stub get a 404 ENDPOINT_NOT_FOUND API error.
//
// # MCP Stack
//
//	stack := dbxtest.StartStack(t)
//	stack.Workspace.WithCatalogs(databricks.Catalog{Name: "main"})
//	client := mcpclient.New(stack.URL())
package testing
