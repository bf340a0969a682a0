// Command mailboxctl inspects or resets a mailbox backing file.
//
//	mailboxctl inspect [-delimiter d] <path>
//	mailboxctl reset [-capacity n] <path>
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/srediag/editor-mailbox/pkg/mailbox"
	"github.com/srediag/editor-mailbox/pkg/shm"
)

func main() {
	if err := run(os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, "mailboxctl:", err)
		os.Exit(2)
	}
}

func usage() error {
	return errors.New("usage: mailboxctl inspect|reset [flags] <path>")
}

func run(args []string, out io.Writer) error {
	if len(args) == 0 {
		return usage()
	}
	switch args[0] {
	case "inspect":
		fs := flag.NewFlagSet("inspect", flag.ContinueOnError)
		delim := fs.String("delimiter", mailbox.DefaultDelimiter, "field delimiter")
		if err := fs.Parse(args[1:]); err != nil {
			return err
		}
		if fs.NArg() != 1 {
			return usage()
		}
		return mailbox.WriteRegionDetail(out, fs.Arg(0), mailbox.NewCodec(*delim))
	case "reset":
		fs := flag.NewFlagSet("reset", flag.ContinueOnError)
		capacity := fs.Int("capacity", 0, "resize to this many bytes; 0 keeps the current size")
		if err := fs.Parse(args[1:]); err != nil {
			return err
		}
		if fs.NArg() != 1 {
			return usage()
		}
		return reset(fs.Arg(0), *capacity, out)
	default:
		return usage()
	}
}

// reset zero-fills the region, which hands the first turn back to the editor. Both
// processes should be stopped while it runs.
func reset(path string, capacity int, out io.Writer) error {
	if capacity == 0 {
		fi, err := os.Stat(path)
		if err != nil {
			return err
		}
		capacity = int(fi.Size())
	}
	region, err := shm.Open(context.Background(), shm.OpenOptions{Path: path, Size: capacity})
	if err != nil {
		return err
	}
	defer region.Close()
	if err := region.Zero(0, region.Size()); err != nil {
		return err
	}
	if err := region.Flush(); err != nil {
		return err
	}
	fmt.Fprintf(out, "reset %s (%d bytes)\n", path, region.Size())
	return nil
}
