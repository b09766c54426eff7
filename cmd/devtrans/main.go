// Command devtrans uploads and fetches files through a devtransfer server.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
)

// Version is compared against the server's /cli/version; set it with
// -ldflags "-X main.Version=...".
var Version = "0.1.0"

func usage(w io.Writer) {
	fmt.Fprintln(w, "Usage: devtrans <put|get> <path|code>")
	fmt.Fprintln(w, "       devtrans --update")
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	os.Exit(run(ctx, os.Args[1:], os.Stdout, os.Getenv))
}

func run(ctx context.Context, args []string, stdout io.Writer, getenv func(string) string) int {
	cfg := loadConfig(configPath(), getenv)
	c := newClient(cfg)

	if len(args) == 1 && args[0] == "--update" {
		exe, err := os.Executable()
		if err == nil {
			err = c.update(ctx, exe)
		}
		if err != nil {
			fmt.Fprintln(stdout, "update failed:", err)
			return 1
		}
		fmt.Fprintln(stdout, "DevTrans updated successfully")
		return 0
	}

	if len(args) != 2 {
		usage(stdout)
		return 1
	}

	switch args[0] {
	case "put":
		if cfg.Token == "" {
			fmt.Fprintln(stdout, "missing API token: set", envToken, "or edit", configPath())
			return 1
		}
		r, err := c.put(ctx, args[1])
		if err != nil {
			fmt.Fprintln(stdout, err)
			return 1
		}

		fmt.Fprintln(stdout, "=== DevTrans Upload ===")
		fmt.Fprintf(stdout, " Code:    %s\n", r.Code)
		fmt.Fprintf(stdout, " URL:     %s\n", r.URL)
		fmt.Fprintf(stdout, " Expires: %s\n", formatExpiry(r.Expiry))
		fmt.Fprintln(stdout, "=======================")

		if remote, err := c.remoteVersion(ctx); err == nil && remote != "" && remote != Version {
			fmt.Fprintf(stdout, "New DevTrans version %s available. Run 'devtrans --update' to upgrade.\n", remote)
		}
	case "get":
		path, err := c.get(ctx, args[1], ".")
		if err != nil {
			fmt.Fprintln(stdout, err)
			return 1
		}
		fmt.Fprintln(stdout, "Saved", path)
	default:
		usage(stdout)
		return 1
	}

	return 0
}
