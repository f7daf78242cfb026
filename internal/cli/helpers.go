package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/dvcrn/ledgerlink/internal/accounting"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// printJSON writes raw indented. Empty results print nothing.
func printJSON(w io.Writer, raw []byte) error {
	if len(bytes.TrimSpace(raw)) == 0 {
		return nil
	}
	var buf bytes.Buffer
	if err := json.Indent(&buf, raw, "", "  "); err != nil {
		return fmt.Errorf("failed to format response: %w", err)
	}
	buf.WriteByte('\n')
	_, err := buf.WriteTo(w)
	return err
}

func printValue(w io.Writer, v interface{}) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return printJSON(w, b)
}

func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid id %q: must be a positive integer", s)
	}
	return id, nil
}

func addListFlags(fs *pflag.FlagSet, opts *accounting.ListOptions) {
	fs.IntVar(&opts.Page, "page", 0, "Page number")
	fs.IntVar(&opts.PageSize, "page-size", 0, "Items per page")
}

// dateFlags collects a --from/--to pair in YYYY-MM-DD form.
type dateFlags struct {
	from, to string
}

func (d *dateFlags) register(fs *pflag.FlagSet) {
	fs.StringVar(&d.from, "from", "", "Start date (YYYY-MM-DD)")
	fs.StringVar(&d.to, "to", "", "End date (YYYY-MM-DD)")
}

func (d *dateFlags) parse() (from, to time.Time, err error) {
	if from, err = parseDate("from", d.from); err != nil {
		return
	}
	to, err = parseDate("to", d.to)
	return
}

func parseDate(name, s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid --%s %q: want YYYY-MM-DD", name, s)
	}
	return t, nil
}

// bodyFlags reads a JSON request body from --data or --file ("-" is stdin).
type bodyFlags struct {
	data string
	file string
}

func (b *bodyFlags) register(fs *pflag.FlagSet) {
	fs.StringVarP(&b.data, "data", "d", "", "JSON body")
	fs.StringVarP(&b.file, "file", "f", "", "Read JSON body from file (- for stdin)")
}

func (b *bodyFlags) read(cmd *cobra.Command) (json.RawMessage, error) {
	var raw []byte
	switch {
	case b.data != "" && b.file != "":
		return nil, fmt.Errorf("use either --data or --file, not both")
	case b.data != "":
		raw = []byte(b.data)
	case b.file == "-":
		var err error
		if raw, err = io.ReadAll(cmd.InOrStdin()); err != nil {
			return nil, err
		}
	case b.file != "":
		var err error
		if raw, err = os.ReadFile(b.file); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("a JSON body is required (--data or --file)")
	}
	if !json.Valid(raw) {
		return nil, fmt.Errorf("body is not valid JSON")
	}
	return json.RawMessage(raw), nil
}

// parseSet turns Field=value pairs into replace operations. Values that parse
// as JSON keep their type; anything else is sent as a string.
func parseSet(pairs []string) ([]accounting.PatchOperation, error) {
	ops := make([]accounting.PatchOperation, 0, len(pairs))
	for _, p := range pairs {
		field, value, ok := strings.Cut(p, "=")
		if !ok || field == "" {
			return nil, fmt.Errorf("invalid --set %q: want Field=value", p)
		}
		path := "/" + strings.TrimPrefix(field, "/")

		var v interface{} = value
		if json.Valid([]byte(value)) {
			v = json.RawMessage(value)
		}
		ops = append(ops, accounting.Replace(path, v))
	}
	return ops, nil
}
