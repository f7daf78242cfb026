package cli

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/dvcrn/ledgerlink/internal/config"
	"github.com/dvcrn/ledgerlink/internal/credentials"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zalando/go-keyring"
)

type seenRequest struct {
	method string
	uri    string
	header http.Header
	body   string
}

// fakeIntermediary answers every request with status and body and records
// what it received.
func fakeIntermediary(t *testing.T, status int, body string) (*httptest.Server, func() []seenRequest) {
	var mu sync.Mutex
	var seen []seenRequest
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		mu.Lock()
		seen = append(seen, seenRequest{r.Method, r.URL.RequestURI(), r.Header.Clone(), string(b)})
		mu.Unlock()
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		io.WriteString(w, body)
	}))
	t.Cleanup(ts.Close)
	return ts, func() []seenRequest {
		mu.Lock()
		defer mu.Unlock()
		return append([]seenRequest(nil), seen...)
	}
}

func execute(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(io.Discard)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(append([]string{"--env-file", filepath.Join(t.TempDir(), "missing.env")}, args...))
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestListViaProxy(t *testing.T) {
	ts, seen := fakeIntermediary(t, http.StatusOK, `[{"Id":1}]`)

	out, err := execute(t, "", "--proxy", ts.URL+"/api/accounting", "customers", "list", "--page", "2", "--page-size", "50")
	require.NoError(t, err)
	assert.Equal(t, "[\n  {\n    \"Id\": 1\n  }\n]\n", out)

	reqs := seen()
	require.Len(t, reqs, 1)
	assert.Equal(t, http.MethodGet, reqs[0].method)
	assert.Equal(t, "/api/accounting/Customers?page=2&pageSize=50", reqs[0].uri)
}

func TestInvoiceAndTimeFilters(t *testing.T) {
	ts, seen := fakeIntermediary(t, http.StatusOK, `[]`)

	_, err := execute(t, "", "--proxy", ts.URL, "invoices", "list", "--from", "2026-01-01", "--to", "2026-01-31")
	require.NoError(t, err)
	_, err = execute(t, "", "--proxy", ts.URL, "time", "list", "--from", "2026-02-01", "--employee", "9")
	require.NoError(t, err)

	reqs := seen()
	require.Len(t, reqs, 2)
	assert.Equal(t, "/OutgoingInvoices?fromDate=2026-01-01&toDate=2026-01-31", reqs[0].uri)
	assert.Equal(t, "/TimeTracking/TimeEntries?fromDate=2026-02-01&employeeId=9", reqs[1].uri)

	_, err = execute(t, "", "--proxy", ts.URL, "invoices", "list", "--from", "01/01/2026")
	assert.ErrorContains(t, err, "--from")
	assert.Len(t, seen(), 2)
}

func TestGetRejectsBadID(t *testing.T) {
	ts, seen := fakeIntermediary(t, http.StatusOK, `{}`)

	_, err := execute(t, "", "--proxy", ts.URL, "employees", "get", "abc")
	assert.ErrorContains(t, err, "invalid id")
	assert.Empty(t, seen())
}

func TestCreateAndUpdateCustomer(t *testing.T) {
	ts, seen := fakeIntermediary(t, http.StatusOK, `{"Id":3}`)

	_, err := execute(t, `{"Name":"Acme"}`, "--proxy", ts.URL, "customers", "create", "-f", "-")
	require.NoError(t, err)

	_, err = execute(t, "", "--proxy", ts.URL, "customers", "update", "3",
		"--set", "Name=New Name", "--set", "CreditDays=30", "--set", "/IsArchived=true")
	require.NoError(t, err)

	reqs := seen()
	require.Len(t, reqs, 2)
	assert.Equal(t, http.MethodPost, reqs[0].method)
	assert.JSONEq(t, `{"Name":"Acme"}`, reqs[0].body)

	assert.Equal(t, http.MethodPatch, reqs[1].method)
	assert.Equal(t, "/Customers/3", reqs[1].uri)
	assert.JSONEq(t, `[
		{"op":"replace","path":"/Name","value":"New Name"},
		{"op":"replace","path":"/CreditDays","value":30},
		{"op":"replace","path":"/IsArchived","value":true}
	]`, reqs[1].body)
}

func TestCreateRequiresBody(t *testing.T) {
	ts, seen := fakeIntermediary(t, http.StatusOK, `{}`)

	_, err := execute(t, "", "--proxy", ts.URL, "customers", "create")
	assert.Error(t, err)
	_, err = execute(t, "", "--proxy", ts.URL, "customers", "create", "-d", "{nope")
	assert.Error(t, err)
	assert.Empty(t, seen())
}

func TestProxyErrorMessage(t *testing.T) {
	ts, _ := fakeIntermediary(t, http.StatusNotFound, `{"error":"bad customer id"}`)

	_, err := execute(t, "", "--proxy", ts.URL, "customers", "get", "404")
	require.Error(t, err)
	assert.Equal(t, "bad customer id", err.Error())
	assert.Equal(t, "bad customer id (HTTP 404)", describe(err))
}

func TestDirectModeMissingCredentials(t *testing.T) {
	t.Setenv(credentials.EnvApplicationKey, "app")
	t.Setenv(credentials.EnvClientKey, "")
	t.Setenv(credentials.EnvSubscriptionKey, "")

	_, err := execute(t, "", "products", "units")
	var cfgErr *config.ConfigurationError
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, []string{"clientKey", "subscriptionKey"}, cfgErr.Missing)
}

func TestTokenCommandsViaProxy(t *testing.T) {
	t.Setenv("ADMIN_API_KEY", "")
	ts, seen := fakeIntermediary(t, http.StatusOK, `{"present":true,"valid":true}`)

	_, err := execute(t, "", "--proxy", ts.URL+"/api/accounting", "token", "status")
	assert.ErrorContains(t, err, "admin key")

	out, err := execute(t, "", "--proxy", ts.URL+"/api/accounting", "--admin-key", "k", "token", "refresh")
	require.NoError(t, err)
	assert.Contains(t, out, `"present": true`)

	reqs := seen()
	require.Len(t, reqs, 1)
	assert.Equal(t, http.MethodPost, reqs[0].method)
	assert.Equal(t, "/admin/token", reqs[0].uri)
	assert.Equal(t, "k", reqs[0].header.Get("X-API-Key"))

	_, err = execute(t, "", "token", "status")
	assert.ErrorContains(t, err, "--proxy")
}

func TestCredentialsSave(t *testing.T) {
	keyring.MockInit()
	t.Setenv(credentials.EnvApplicationKey, "app")
	t.Setenv(credentials.EnvClientKey, "client")
	t.Setenv(credentials.EnvSubscriptionKey, "sub")
	t.Setenv(credentials.EnvEnvironment, "")

	path := filepath.Join(t.TempDir(), "creds.json")
	out, err := execute(t, "", "--creds-path", path, "credentials", "save", "--to", "file")
	require.NoError(t, err)
	assert.Contains(t, out, "Saved sandbox credentials to file")

	raw, err := credentials.NewFSCredentialsFetcher(path).Fetch()
	require.NoError(t, err)
	assert.Equal(t, config.RawCredentials{
		ApplicationKey:  "app",
		ClientKey:       "client",
		SubscriptionKey: "sub",
		Environment:     "sandbox",
	}, raw)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	_, err = execute(t, "", "--profile", "work", "credentials", "save", "--to", "keyring")
	require.NoError(t, err)
	raw, err = credentials.NewKeyringCredentialsFetcher("work").Fetch()
	require.NoError(t, err)
	assert.Equal(t, "client", raw.ClientKey)

	_, err = execute(t, "", "credentials", "save", "--to", "env")
	assert.Error(t, err)
}
