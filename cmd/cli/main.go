// Command budget is a CLI client for the budget-tracker service.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"time"

	u "github.com/gofrs/uuid/v5"
)

// ---- utils ----

func printJSON(w io.Writer, v any) {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(v)
}

func fail(err error) {
	fmt.Fprintln(os.Stderr, "error:", err)
	os.Exit(1)
}

func usage() {
	fmt.Fprintf(os.Stderr, `budget CLI
Usage:
  budget [-addr URL] <cmd> [args]

Commands:
  version
  register  -e <email> -p <password> -first <name> -last <name>
  login     -e <email> -p <password>                 (saves tokens)
  logout
  me
  passwd    -old <password> -new <password>
  add       -desc <text> -amount <n> -type income|expense -cat <category> [-date YYYY-MM-DD]
  list      [-type t] [-cat c] [-from d] [-to d] [-limit n] [-offset n]
  get       -id <uuid>
  edit      -id <uuid> -desc <text> -amount <n> -type t -cat c -date YYYY-MM-DD
  rm        -id <uuid>
  summary   [-from d] [-to d]
  activate  -id <uuid> [-active=false]                (admin)
`)
	os.Exit(2)
}

// ---- main ----

var (
	version   = "dev"
	buildDate = "unknown"
)

// main dispatches subcommands.
func main() {
	addr := flag.String("addr", envOr("BUDGET_API", "http://127.0.0.1:8000"), "server base URL")
	flag.Usage = usage
	flag.Parse()
	if flag.NArg() < 1 {
		usage()
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := run(ctx, newClient(*addr), flag.Arg(0), flag.Args()[1:], os.Stdout); err != nil {
		fail(err)
	}
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// run executes one subcommand and prints its result to out.
func run(ctx context.Context, c *client, cmd string, args []string, out io.Writer) error {
	switch cmd {
	case "version":
		fmt.Fprintf(out, "budget %s (%s)\n", version, buildDate)
		return nil

	case "register":
		fs := flag.NewFlagSet("register", flag.ContinueOnError)
		email := fs.String("e", "", "email")
		pw := fs.String("p", "", "password")
		first := fs.String("first", "", "first name")
		last := fs.String("last", "", "last name")
		if err := fs.Parse(args); err != nil {
			return err
		}
		if *email == "" || *pw == "" {
			return fmt.Errorf("need -e and -p")
		}
		var user json.RawMessage
		err := c.send(ctx, http.MethodPost, "/auth/register", "", map[string]string{
			"email": *email, "password": *pw, "first_name": *first, "last_name": *last,
		}, &user)
		if err != nil {
			return err
		}
		printJSON(out, user)
		return nil

	case "login":
		fs := flag.NewFlagSet("login", flag.ContinueOnError)
		email := fs.String("e", "", "email")
		pw := fs.String("p", "", "password")
		if err := fs.Parse(args); err != nil {
			return err
		}
		if *email == "" || *pw == "" {
			return fmt.Errorf("need -e and -p")
		}
		if _, err := c.login(ctx, *email, *pw); err != nil {
			return err
		}
		fmt.Fprintln(out, "ok")
		return nil

	case "logout":
		if err := clearTokens(); err != nil {
			return err
		}
		fmt.Fprintln(out, "ok")
		return nil

	case "me":
		var user json.RawMessage
		if err := c.call(ctx, http.MethodGet, "/auth/me", nil, &user); err != nil {
			return err
		}
		printJSON(out, user)
		return nil

	case "passwd":
		fs := flag.NewFlagSet("passwd", flag.ContinueOnError)
		old := fs.String("old", "", "current password")
		next := fs.String("new", "", "new password")
		if err := fs.Parse(args); err != nil {
			return err
		}
		if *old == "" || *next == "" {
			return fmt.Errorf("need -old and -new")
		}
		if err := c.call(ctx, http.MethodPost, "/auth/change-password", map[string]string{
			"current_password": *old, "new_password": *next,
		}, nil); err != nil {
			return err
		}
		fmt.Fprintln(out, "ok")
		return nil

	case "add":
		fs := flag.NewFlagSet("add", flag.ContinueOnError)
		body := txFlags(fs)
		if err := fs.Parse(args); err != nil {
			return err
		}
		var tx json.RawMessage
		if err := c.call(ctx, http.MethodPost, "/transactions", body, &tx); err != nil {
			return err
		}
		printJSON(out, tx)
		return nil

	case "list":
		fs := flag.NewFlagSet("list", flag.ContinueOnError)
		q := queryFlags(fs, "type", "cat", "from", "to", "limit", "offset")
		if err := fs.Parse(args); err != nil {
			return err
		}
		var res json.RawMessage
		if err := c.call(ctx, http.MethodGet, "/transactions"+q.encode(), nil, &res); err != nil {
			return err
		}
		printJSON(out, res)
		return nil

	case "summary":
		fs := flag.NewFlagSet("summary", flag.ContinueOnError)
		q := queryFlags(fs, "type", "cat", "from", "to")
		if err := fs.Parse(args); err != nil {
			return err
		}
		var res json.RawMessage
		if err := c.call(ctx, http.MethodGet, "/transactions/summary"+q.encode(), nil, &res); err != nil {
			return err
		}
		printJSON(out, res)
		return nil

	case "get", "rm":
		fs := flag.NewFlagSet(cmd, flag.ContinueOnError)
		id := fs.String("id", "", "transaction id")
		if err := fs.Parse(args); err != nil {
			return err
		}
		if _, err := u.FromString(*id); err != nil {
			return fmt.Errorf("bad -id: %w", err)
		}
		if cmd == "rm" {
			if err := c.call(ctx, http.MethodDelete, "/transactions/"+*id, nil, nil); err != nil {
				return err
			}
			fmt.Fprintln(out, "ok")
			return nil
		}
		var tx json.RawMessage
		if err := c.call(ctx, http.MethodGet, "/transactions/"+*id, nil, &tx); err != nil {
			return err
		}
		printJSON(out, tx)
		return nil

	case "edit":
		fs := flag.NewFlagSet("edit", flag.ContinueOnError)
		id := fs.String("id", "", "transaction id")
		body := txFlags(fs)
		if err := fs.Parse(args); err != nil {
			return err
		}
		if _, err := u.FromString(*id); err != nil {
			return fmt.Errorf("bad -id: %w", err)
		}
		var tx json.RawMessage
		if err := c.call(ctx, http.MethodPut, "/transactions/"+*id, body, &tx); err != nil {
			return err
		}
		printJSON(out, tx)
		return nil

	case "activate":
		fs := flag.NewFlagSet("activate", flag.ContinueOnError)
		id := fs.String("id", "", "user id")
		active := fs.Bool("active", true, "activate (true) or deactivate (false)")
		if err := fs.Parse(args); err != nil {
			return err
		}
		if _, err := u.FromString(*id); err != nil {
			return fmt.Errorf("bad -id: %w", err)
		}
		var res json.RawMessage
		if err := c.call(ctx, http.MethodPut, "/admin/users/"+*id+"/active", map[string]bool{"is_active": *active}, &res); err != nil {
			return err
		}
		printJSON(out, res)
		return nil

	default:
		return fmt.Errorf("unknown command %q", cmd)
	}
}

// txBody is the JSON body of add/edit; flag values are bound by pointer.
type txBody struct {
	Description     string  `json:"description"`
	Amount          float64 `json:"amount"`
	Type            string  `json:"type"`
	Category        string  `json:"category"`
	TransactionDate string  `json:"transaction_date"`
}

func txFlags(fs *flag.FlagSet) *txBody {
	b := &txBody{}
	fs.StringVar(&b.Description, "desc", "", "description")
	fs.Float64Var(&b.Amount, "amount", 0, "amount (> 0)")
	fs.StringVar(&b.Type, "type", "expense", "income or expense")
	fs.StringVar(&b.Category, "cat", "", "category")
	fs.StringVar(&b.TransactionDate, "date", time.Now().Format("2006-01-02"), "date YYYY-MM-DD")
	return b
}

// queryParams maps CLI flag names to API query keys.
type queryParams map[string]*string

var queryKeys = map[string]string{"cat": "category"}

func queryFlags(fs *flag.FlagSet, names ...string) queryParams {
	q := queryParams{}
	for _, n := range names {
		q[n] = fs.String(n, "", n+" filter")
	}
	return q
}

func (q queryParams) encode() string {
	v := url.Values{}
	for name, p := range q {
		if *p == "" {
			continue
		}
		key := name
		if k, ok := queryKeys[name]; ok {
			key = k
		}
		if key == "limit" || key == "offset" {
			if _, err := strconv.Atoi(*p); err != nil {
				continue
			}
		}
		v.Set(key, *p)
	}
	if len(v) == 0 {
		return ""
	}
	return "?" + v.Encode()
}
