package cli

import (
	"context"
	"encoding/json"

	"github.com/dvcrn/ledgerlink/internal/accounting"
	"github.com/spf13/cobra"
)

type callFunc func(ctx context.Context, c *accounting.Client) (json.RawMessage, error)

// run resolves the client, performs call and prints the result.
func run(cmd *cobra.Command, call callFunc) error {
	a := fromContext(cmd.Context())
	c, _, err := a.client()
	if err != nil {
		return err
	}
	out, err := call(cmd.Context(), c)
	if err != nil {
		return err
	}
	return printJSON(a.out, out)
}

func groupCmd(use, short string, subs ...*cobra.Command) *cobra.Command {
	cmd := &cobra.Command{Use: use, Short: short}
	cmd.AddCommand(subs...)
	return cmd
}

func listCmd(short string, list func(ctx context.Context, c *accounting.Client, opts accounting.ListOptions) (json.RawMessage, error)) *cobra.Command {
	var opts accounting.ListOptions
	cmd := &cobra.Command{
		Use:   "list",
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, func(ctx context.Context, c *accounting.Client) (json.RawMessage, error) {
				return list(ctx, c, opts)
			})
		},
	}
	addListFlags(cmd.Flags(), &opts)
	return cmd
}

func getCmd(short string, get func(ctx context.Context, c *accounting.Client, id int64) (json.RawMessage, error)) *cobra.Command {
	return &cobra.Command{
		Use:   "get <id>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return run(cmd, func(ctx context.Context, c *accounting.Client) (json.RawMessage, error) {
				return get(ctx, c, id)
			})
		},
	}
}

func newIntegrationCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "integration",
		Short: "Show information about the connected client integration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, func(ctx context.Context, c *accounting.Client) (json.RawMessage, error) {
				return c.ClientIntegrationInfo(ctx)
			})
		},
	}
}

func newCustomersCmd() *cobra.Command {
	var body bodyFlags
	create := &cobra.Command{
		Use:   "create",
		Short: "Create a customer from a JSON body",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			customer, err := body.read(cmd)
			if err != nil {
				return err
			}
			return run(cmd, func(ctx context.Context, c *accounting.Client) (json.RawMessage, error) {
				return c.CreateCustomer(ctx, customer)
			})
		},
	}
	body.register(create.Flags())

	var set []string
	update := &cobra.Command{
		Use:   "update <id> --set Field=value...",
		Short: "Update customer fields",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			ops, err := parseSet(set)
			if err != nil {
				return err
			}
			return run(cmd, func(ctx context.Context, c *accounting.Client) (json.RawMessage, error) {
				return c.UpdateCustomer(ctx, id, ops)
			})
		},
	}
	update.Flags().StringArrayVar(&set, "set", nil, "Field=value to replace (repeatable)")
	_ = update.MarkFlagRequired("set")

	return groupCmd("customers", "Manage customers",
		listCmd("List customers", func(ctx context.Context, c *accounting.Client, o accounting.ListOptions) (json.RawMessage, error) {
			return c.ListCustomers(ctx, o)
		}),
		getCmd("Show a customer", func(ctx context.Context, c *accounting.Client, id int64) (json.RawMessage, error) {
			return c.GetCustomer(ctx, id)
		}),
		create,
		update,
	)
}

func newProductsCmd() *cobra.Command {
	groups := &cobra.Command{
		Use:   "groups",
		Short: "List product groups",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, func(ctx context.Context, c *accounting.Client) (json.RawMessage, error) {
				return c.ListProductGroups(ctx)
			})
		},
	}
	units := &cobra.Command{
		Use:   "units",
		Short: "List units of measure",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, func(ctx context.Context, c *accounting.Client) (json.RawMessage, error) {
				return c.ListUnits(ctx)
			})
		},
	}

	return groupCmd("products", "Browse products",
		listCmd("List products", func(ctx context.Context, c *accounting.Client, o accounting.ListOptions) (json.RawMessage, error) {
			return c.ListProducts(ctx, o)
		}),
		getCmd("Show a product", func(ctx context.Context, c *accounting.Client, id int64) (json.RawMessage, error) {
			return c.GetProduct(ctx, id)
		}),
		groups,
		units,
	)
}

func newInvoicesCmd() *cobra.Command {
	var opts accounting.InvoiceListOptions
	var dates dateFlags
	list := &cobra.Command{
		Use:   "list",
		Short: "List outgoing invoices",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var err error
			if opts.From, opts.To, err = dates.parse(); err != nil {
				return err
			}
			return run(cmd, func(ctx context.Context, c *accounting.Client) (json.RawMessage, error) {
				return c.ListOutgoingInvoices(ctx, opts)
			})
		},
	}
	dates.register(list.Flags())
	addListFlags(list.Flags(), &opts.ListOptions)

	return groupCmd("invoices", "Browse outgoing invoices",
		list,
		getCmd("Show an outgoing invoice", func(ctx context.Context, c *accounting.Client, id int64) (json.RawMessage, error) {
			return c.GetOutgoingInvoice(ctx, id)
		}),
	)
}

func newProjectsCmd() *cobra.Command {
	return groupCmd("projects", "Browse projects",
		listCmd("List projects", func(ctx context.Context, c *accounting.Client, o accounting.ListOptions) (json.RawMessage, error) {
			return c.ListProjects(ctx, o)
		}),
		getCmd("Show a project", func(ctx context.Context, c *accounting.Client, id int64) (json.RawMessage, error) {
			return c.GetProject(ctx, id)
		}),
	)
}

func newEmployeesCmd() *cobra.Command {
	return groupCmd("employees", "Browse employees",
		listCmd("List employees", func(ctx context.Context, c *accounting.Client, o accounting.ListOptions) (json.RawMessage, error) {
			return c.ListEmployees(ctx, o)
		}),
		getCmd("Show an employee", func(ctx context.Context, c *accounting.Client, id int64) (json.RawMessage, error) {
			return c.GetEmployee(ctx, id)
		}),
	)
}

func newTimeCmd() *cobra.Command {
	var opts accounting.TimeEntryOptions
	var dates dateFlags
	list := &cobra.Command{
		Use:   "list",
		Short: "List time entries",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var err error
			if opts.From, opts.To, err = dates.parse(); err != nil {
				return err
			}
			return run(cmd, func(ctx context.Context, c *accounting.Client) (json.RawMessage, error) {
				return c.ListTimeEntries(ctx, opts)
			})
		},
	}
	dates.register(list.Flags())
	list.Flags().Int64Var(&opts.EmployeeID, "employee", 0, "Only entries for this employee id")

	return groupCmd("time", "Browse time tracking", list)
}

func newAccountsCmd() *cobra.Command {
	list := &cobra.Command{
		Use:   "list",
		Short: "List general ledger accounts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, func(ctx context.Context, c *accounting.Client) (json.RawMessage, error) {
				return c.ListGeneralLedgerAccounts(ctx)
			})
		},
	}
	return groupCmd("accounts", "Browse the chart of accounts", list)
}
