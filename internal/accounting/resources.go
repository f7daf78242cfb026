package accounting

import (
	"context"
	"encoding/json"
	"strconv"
	"time"
)

// ListOptions paginates list calls. Zero values are left out of the query.
type ListOptions struct {
	Page     int
	PageSize int
}

func (o ListOptions) appendTo(q Query) Query {
	if o.Page > 0 {
		q = q.Add("page", o.Page)
	}
	if o.PageSize > 0 {
		q = q.Add("pageSize", o.PageSize)
	}
	return q
}

// InvoiceListOptions filters outgoing invoices by date range.
type InvoiceListOptions struct {
	From time.Time
	To   time.Time
	ListOptions
}

// TimeEntryOptions filters time-tracking entries.
type TimeEntryOptions struct {
	From       time.Time
	To         time.Time
	EmployeeID int64
}

func dateRange(q Query, from, to time.Time) Query {
	if !from.IsZero() {
		q = q.Add("fromDate", from)
	}
	if !to.IsZero() {
		q = q.Add("toDate", to)
	}
	return q
}

func item(collection string, id int64) string {
	return collection + "/" + strconv.FormatInt(id, 10)
}

const (
	pathIntegration   = "/ClientIntegrationInformation"
	pathCustomers     = "/Customers"
	pathProducts      = "/Products"
	pathProductGroups = "/ProductGroups"
	pathUnits         = "/Units"
	pathAccounts      = "/GeneralLedgerAccounts"
	pathInvoices      = "/OutgoingInvoices"
	pathProjects      = "/Projects"
	pathTimeEntries   = "/TimeTracking/TimeEntries"
	pathEmployees     = "/Employees"
)

// ClientIntegrationInfo describes the integration and the privileges
// granted to it.
func (c *Client) ClientIntegrationInfo(ctx context.Context) (json.RawMessage, error) {
	return c.get(ctx, pathIntegration, nil)
}

func (c *Client) ListCustomers(ctx context.Context, opts ListOptions) (json.RawMessage, error) {
	return c.get(ctx, pathCustomers, opts.appendTo(nil))
}

func (c *Client) GetCustomer(ctx context.Context, id int64) (json.RawMessage, error) {
	return c.get(ctx, item(pathCustomers, id), nil)
}

func (c *Client) CreateCustomer(ctx context.Context, customer interface{}) (json.RawMessage, error) {
	return c.post(ctx, pathCustomers, customer)
}

// UpdateCustomer applies a partial update.
func (c *Client) UpdateCustomer(ctx context.Context, id int64, ops []PatchOperation) (json.RawMessage, error) {
	return c.patch(ctx, item(pathCustomers, id), ops)
}

func (c *Client) ListProducts(ctx context.Context, opts ListOptions) (json.RawMessage, error) {
	return c.get(ctx, pathProducts, opts.appendTo(nil))
}

func (c *Client) GetProduct(ctx context.Context, id int64) (json.RawMessage, error) {
	return c.get(ctx, item(pathProducts, id), nil)
}

// UpdateProduct applies a partial update.
func (c *Client) UpdateProduct(ctx context.Context, id int64, ops []PatchOperation) (json.RawMessage, error) {
	return c.patch(ctx, item(pathProducts, id), ops)
}

func (c *Client) ListProductGroups(ctx context.Context) (json.RawMessage, error) {
	return c.get(ctx, pathProductGroups, nil)
}

// ListUnits lists units of measure.
func (c *Client) ListUnits(ctx context.Context) (json.RawMessage, error) {
	return c.get(ctx, pathUnits, nil)
}

// ListGeneralLedgerAccounts returns the chart of accounts.
func (c *Client) ListGeneralLedgerAccounts(ctx context.Context) (json.RawMessage, error) {
	return c.get(ctx, pathAccounts, nil)
}

func (c *Client) ListOutgoingInvoices(ctx context.Context, opts InvoiceListOptions) (json.RawMessage, error) {
	q := dateRange(nil, opts.From, opts.To)
	return c.get(ctx, pathInvoices, opts.ListOptions.appendTo(q))
}

func (c *Client) GetOutgoingInvoice(ctx context.Context, id int64) (json.RawMessage, error) {
	return c.get(ctx, item(pathInvoices, id), nil)
}

func (c *Client) CreateOutgoingInvoice(ctx context.Context, invoice interface{}) (json.RawMessage, error) {
	return c.post(ctx, pathInvoices, invoice)
}

func (c *Client) ListProjects(ctx context.Context, opts ListOptions) (json.RawMessage, error) {
	return c.get(ctx, pathProjects, opts.appendTo(nil))
}

func (c *Client) GetProject(ctx context.Context, id int64) (json.RawMessage, error) {
	return c.get(ctx, item(pathProjects, id), nil)
}

// ListTimeEntries lists time-tracking entries, optionally for one employee.
func (c *Client) ListTimeEntries(ctx context.Context, opts TimeEntryOptions) (json.RawMessage, error) {
	q := dateRange(nil, opts.From, opts.To)
	if opts.EmployeeID != 0 {
		q = q.Add("employeeId", opts.EmployeeID)
	}
	return c.get(ctx, pathTimeEntries, q)
}

func (c *Client) ListEmployees(ctx context.Context, opts ListOptions) (json.RawMessage, error) {
	return c.get(ctx, pathEmployees, opts.appendTo(nil))
}

func (c *Client) GetEmployee(ctx context.Context, id int64) (json.RawMessage, error) {
	return c.get(ctx, item(pathEmployees, id), nil)
}
