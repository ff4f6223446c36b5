// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Lockdown-ctl lists and stops lockdown applications by their process
// titles.
//
// Usage:
//
//	lockdown-ctl status [app]
//	lockdown-ctl stop app
package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/olekukonko/tablewriter"
	gopsprocess "github.com/shirou/gopsutil/process"
	"github.com/spf13/pflag"

	"github.com/bureau-foundation/lockdown/lib/process"
	"github.com/bureau-foundation/lockdown/lib/version"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		process.Fatal(err)
	}
}

func run(args []string) error {
	flagSet := pflag.NewFlagSet("lockdown-ctl", pflag.ContinueOnError)
	showVersion := flagSet.Bool("version", false, "print version and exit")
	flagSet.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage:\n  lockdown-ctl status [app]\n  lockdown-ctl stop app\n\nFlags:\n")
		flagSet.PrintDefaults()
	}
	if err := flagSet.Parse(args); err != nil {
		if err == pflag.ErrHelp {
			return nil
		}
		return err
	}
	if *showVersion {
		fmt.Printf("lockdown-ctl %s\n", version.Info())
		return nil
	}

	rest := flagSet.Args()
	if len(rest) == 0 {
		flagSet.Usage()
		return errors.New("command required")
	}
	switch rest[0] {
	case "status":
		app := ""
		if len(rest) > 1 {
			app = rest[1]
		}
		entries, err := list(app)
		if err != nil {
			return err
		}
		render(os.Stdout, entries)
		return nil
	case "stop":
		if len(rest) != 2 {
			return errors.New("stop requires an application name")
		}
		return stop(rest[1])
	default:
		flagSet.Usage()
		return fmt.Errorf("unknown command %q", rest[0])
	}
}

// entry is one lockdown process.
type entry struct {
	App     string
	Role    process.Role
	Worker  int
	PID     int32
	PPID    int32
	RSS     uint64
	Started time.Time
}

// list returns the lockdown processes of app, or of every app when app
// is empty, masters first.
func list(app string) ([]entry, error) {
	processes, err := gopsprocess.Processes()
	if err != nil {
		return nil, fmt.Errorf("listing processes: %w", err)
	}

	var entries []entry
	for _, proc := range processes {
		cmdline, err := proc.CmdlineSlice()
		if err != nil || len(cmdline) == 0 {
			continue
		}
		name, role, worker, ok := process.ParseTitle(cmdline[0])
		if !ok || (app != "" && name != app) {
			continue
		}
		found := entry{App: name, Role: role, Worker: worker, PID: proc.Pid}
		found.PPID, _ = proc.Ppid()
		if memory, err := proc.MemoryInfo(); err == nil {
			found.RSS = memory.RSS
		}
		if created, err := proc.CreateTime(); err == nil {
			found.Started = time.UnixMilli(created)
		}
		entries = append(entries, found)
	}
	sortEntries(entries)
	return entries, nil
}

var roleOrder = map[process.Role]int{process.RoleMaster: 0, process.RoleWorker: 1, process.RoleRelay: 2}

func sortEntries(entries []entry) {
	sort.Slice(entries, func(i, j int) bool {
		a, b := entries[i], entries[j]
		if a.App != b.App {
			return a.App < b.App
		}
		if a.Role != b.Role {
			return roleOrder[a.Role] < roleOrder[b.Role]
		}
		if a.Worker != b.Worker {
			return a.Worker < b.Worker
		}
		return a.PID < b.PID
	})
}

func render(out io.Writer, entries []entry) {
	table := tablewriter.NewWriter(out)
	table.SetHeader([]string{"App", "Role", "PID", "PPID", "RSS", "Started"})
	for _, e := range entries {
		role := string(e.Role)
		if e.Role == process.RoleWorker {
			role = process.WorkerTag(e.Worker)
		}
		started := ""
		if !e.Started.IsZero() {
			started = e.Started.Format(time.DateTime)
		}
		table.Append([]string{
			e.App,
			role,
			strconv.Itoa(int(e.PID)),
			strconv.Itoa(int(e.PPID)),
			humanize.IBytes(e.RSS),
			started,
		})
	}
	table.SetBorders(tablewriter.Border{Left: true, Top: false, Right: true, Bottom: false})
	table.SetCenterSeparator("|")
	table.Render()
}

// stop sends SIGQUIT to app's master, which stops its workers
// gracefully and exits.
func stop(app string) error {
	entries, err := list(app)
	if err != nil {
		return err
	}
	for _, e := range entries {
		if e.Role != process.RoleMaster {
			continue
		}
		proc, err := gopsprocess.NewProcess(e.PID)
		if err != nil {
			return fmt.Errorf("master %d: %w", e.PID, err)
		}
		if err := proc.SendSignal(syscall.SIGQUIT); err != nil {
			return fmt.Errorf("signalling master %d: %w", e.PID, err)
		}
		fmt.Printf("sent SIGQUIT to %s master (pid %d)\n", app, e.PID)
		return nil
	}
	return fmt.Errorf("no running master for %s", app)
}
