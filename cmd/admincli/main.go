// Command admincli is a thin HTTP client for manually exercising a
// running vault server: uploading a file through the full two-phase
// protocol, probing existence, and driving the admin endpoints.
package main

import (
	"fmt"
	"os"
	"time"

	"github.com/evidencevault/vault/internal/adminclient"
	"github.com/evidencevault/vault/internal/adminclient/config"
)

func usage() {
	fmt.Fprintln(os.Stderr, `usage: admincli [-url=...] [-key=...] [-secret=...] <command> [args]

commands:
  upload <file> [mimeHint] [declaredSha256]
  verify <digest>
  sweep <beforeDateRFC3339> [--dry-run]
  pin <digest>
  unpin <digest>
  rescan <digest>`)
}

func main() {
	cfg := config.LoadConfig()
	client := adminclient.New(cfg)

	args := positionalArgs()
	if len(args) == 0 {
		usage()
		os.Exit(2)
	}

	cmd, rest := args[0], args[1:]
	var err error

	switch cmd {
	case "upload":
		err = runUpload(client, rest)
	case "verify":
		err = runVerify(client, rest)
	case "sweep":
		err = runSweep(client, rest)
	case "pin":
		err = runPin(client, rest)
	case "unpin":
		err = runUnpin(client, rest)
	case "rescan":
		err = runRescan(client, rest)
	default:
		usage()
		os.Exit(2)
	}

	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

// positionalArgs strips the global flags admin client's config already
// consumed, leaving the subcommand and its own arguments.
func positionalArgs() []string {
	var out []string
	skipNext := false
	for _, a := range os.Args[1:] {
		if skipNext {
			skipNext = false
			continue
		}
		switch a {
		case "--dry-run":
			out = append(out, a)
			continue
		case "-url", "-key", "-secret", "-c", "-config":
			skipNext = true
			continue
		}
		if len(a) > 1 && a[0] == '-' {
			continue
		}
		out = append(out, a)
	}
	return out
}

func runUpload(c *adminclient.Client, args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("upload requires a file path")
	}
	data, err := os.ReadFile(args[0])
	if err != nil {
		return err
	}
	mimeHint := ""
	if len(args) > 1 {
		mimeHint = args[1]
	}
	declared := ""
	if len(args) > 2 {
		declared = args[2]
	}

	out, err := c.Upload(args[0], mimeHint, declared, data)
	if err != nil {
		return err
	}
	fmt.Printf("artifactId=%s sha256=%s sizeBytes=%d mime=%s bucketKey=%s downloadUrl=%s\n",
		out.ArtifactID, out.Sha256Hex, out.SizeBytes, out.Mime, out.BucketKey, out.DownloadURL)
	return nil
}

func runVerify(c *adminclient.Client, args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("verify requires a digest")
	}
	out, err := c.Verify(args[0])
	if err != nil {
		return err
	}
	fmt.Printf("%+v\n", out)
	return nil
}

func runSweep(c *adminclient.Client, args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("sweep requires a beforeDate (RFC3339)")
	}
	before, err := time.Parse(time.RFC3339, args[0])
	if err != nil {
		return err
	}
	dryRun := len(args) > 1 && args[1] == "--dry-run"
	out, err := c.RetentionSweep(before, dryRun)
	if err != nil {
		return err
	}
	fmt.Printf("%+v\n", out)
	return nil
}

func runPin(c *adminclient.Client, args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("pin requires a digest")
	}
	out, err := c.Pin(args[0])
	if err != nil {
		return err
	}
	fmt.Printf("%+v\n", out)
	return nil
}

func runUnpin(c *adminclient.Client, args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("unpin requires a digest")
	}
	out, err := c.Unpin(args[0])
	if err != nil {
		return err
	}
	fmt.Printf("%+v\n", out)
	return nil
}

func runRescan(c *adminclient.Client, args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("rescan requires a digest")
	}
	out, err := c.Rescan(args[0])
	if err != nil {
		return err
	}
	fmt.Printf("%+v\n", out)
	return nil
}
