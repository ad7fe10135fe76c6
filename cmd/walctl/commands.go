package main

import (
	"bufio"
	"context"
	"encoding/hex"
	"errors"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/dd0wney/cluso-wal/pkg/archive"
	"github.com/dd0wney/cluso-wal/pkg/export"
	"github.com/dd0wney/cluso-wal/pkg/wal"
)

// optionalIndex is a flag value that remembers whether it was set.
type optionalIndex struct {
	set   bool
	value uint64
}

func (o *optionalIndex) String() string {
	if !o.set {
		return ""
	}
	return strconv.FormatUint(o.value, 10)
}

func (o *optionalIndex) Set(s string) error {
	v, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return err
	}
	o.set, o.value = true, v
	return nil
}

// rangeFlags builds a wal.Range from -from, -to (exclusive) and -through
// (inclusive).
type rangeFlags struct {
	from, to, through optionalIndex
}

func (r *rangeFlags) register(fs *flag.FlagSet) {
	fs.Var(&r.from, "from", "first index")
	fs.Var(&r.to, "to", "stop before this index")
	fs.Var(&r.through, "through", "stop after this index")
}

func (r *rangeFlags) bound() (wal.Range, error) {
	var rng wal.Range
	if r.from.set {
		rng.Start = wal.Included(r.from.value)
	}
	switch {
	case r.to.set && r.through.set:
		return rng, fmt.Errorf("%w: -to and -through are mutually exclusive", errUsage)
	case r.to.set:
		rng.End = wal.Excluded(r.to.value)
	case r.through.set:
		rng.End = wal.Included(r.through.value)
	}
	return rng, nil
}

func cmdAppend(ctx context.Context, a *app, args []string) error {
	fs := a.flagSet("append")
	fromStdin := fs.Bool("stdin", false, "append each line of stdin as an entry")
	if err := fs.Parse(args); err != nil {
		return err
	}

	var payloads [][]byte
	if *fromStdin {
		sc := bufio.NewScanner(a.stdin)
		sc.Buffer(make([]byte, 64*1024), 16*1024*1024)
		for sc.Scan() {
			payloads = append(payloads, append([]byte(nil), sc.Bytes()...))
		}
		if err := sc.Err(); err != nil {
			return fmt.Errorf("failed to read stdin: %w", err)
		}
	} else {
		for _, arg := range fs.Args() {
			payloads = append(payloads, []byte(arg))
		}
	}
	if len(payloads) == 0 {
		return fmt.Errorf("%w: nothing to append", errUsage)
	}

	l, err := a.openLog()
	if err != nil {
		return err
	}
	defer l.Close()

	for _, p := range payloads {
		index := l.FirstIndex() + l.Len()
		if err := l.Write(p); err != nil {
			return err
		}
		fmt.Fprintln(a.stdout, index)
	}
	return l.Flush()
}

func cmdCat(ctx context.Context, a *app, args []string) error {
	fs := a.flagSet("cat")
	var rf rangeFlags
	rf.register(fs)
	asHex := fs.Bool("hex", false, "print payloads as hex")
	if err := fs.Parse(args); err != nil {
		return err
	}
	rng, err := rf.bound()
	if err != nil {
		return err
	}

	l, err := a.openLog()
	if err != nil {
		return err
	}
	defer l.Close()

	it, err := l.Iter(rng)
	if err != nil {
		return err
	}
	defer it.Close()

	w := bufio.NewWriter(a.stdout)
	for it.Next() {
		if *asHex {
			fmt.Fprintf(w, "%d\t%s\n", it.Index(), hex.EncodeToString(it.Value()))
		} else {
			fmt.Fprintf(w, "%d\t%s\n", it.Index(), strconv.Quote(string(it.Value())))
		}
	}
	if err := it.Err(); err != nil {
		w.Flush()
		return err
	}
	return w.Flush()
}

func cmdStat(ctx context.Context, a *app, args []string) error {
	if err := a.flagSet("stat").Parse(args); err != nil {
		return err
	}
	l, err := a.openLog()
	if err != nil {
		return err
	}
	defer l.Close()

	row(a, "Path", l.Path())
	row(a, "First index", strconv.FormatUint(l.FirstIndex(), 10))
	if l.Len() > 0 {
		row(a, "Last index", strconv.FormatUint(l.LastIndex(), 10))
	} else {
		row(a, "Last index", "-")
	}
	row(a, "Entries", strconv.FormatUint(l.Len(), 10))
	row(a, "Size", fmt.Sprintf("%d bytes", l.Size()))
	return nil
}

func row(a *app, label, value string) {
	fmt.Fprintln(a.stdout, labelStyle.Render(label)+value)
}

// errUnhealthy is returned by inspect so the exit status reflects the result.
var errUnhealthy = errors.New("log needs recovery")

func cmdInspect(ctx context.Context, a *app, args []string) error {
	if err := a.flagSet("inspect").Parse(args); err != nil {
		return err
	}
	report, err := wal.Inspect(a.cfg.Log.Path)
	if err != nil {
		return err
	}

	row(a, "Path", report.Path)
	row(a, "File size", fmt.Sprintf("%d bytes", report.FileSize))
	if report.Uninitialized {
		row(a, "Status", warnStyle.Render("uninitialized"))
		return errUnhealthy
	}
	row(a, "First index", strconv.FormatUint(report.FirstIndex, 10))
	row(a, "Entries", strconv.FormatUint(report.Entries, 10))
	row(a, "Valid bytes", strconv.FormatInt(report.ValidBytes, 10))
	row(a, "Torn tail", fmt.Sprintf("%d bytes", report.TornTailBytes))
	if len(report.BadChecksums) > 0 {
		idx := make([]string, len(report.BadChecksums))
		for i, n := range report.BadChecksums {
			idx[i] = strconv.FormatUint(n, 10)
		}
		row(a, "Bad checksums", warnStyle.Render(strings.Join(idx, ", ")))
	}

	if !report.Healthy() {
		row(a, "Status", warnStyle.Render("needs recovery"))
		return errUnhealthy
	}
	row(a, "Status", okStyle.Render("healthy"))
	return nil
}

func cmdCompact(ctx context.Context, a *app, args []string) error {
	fs := a.flagSet("compact")
	var to optionalIndex
	fs.Var(&to, "to", "new first index (required)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if !to.set {
		return fmt.Errorf("%w: compact requires -to", errUsage)
	}

	l, err := a.openLog()
	if err != nil {
		return err
	}
	defer l.Close()

	before := l.Len()
	if err := l.Compact(to.value); err != nil {
		return err
	}
	fmt.Fprintf(a.stdout, "discarded %d entries, first index now %d\n", before-l.Len(), l.FirstIndex())
	return nil
}

func cmdRestart(ctx context.Context, a *app, args []string) error {
	fs := a.flagSet("restart")
	var at optionalIndex
	fs.Var(&at, "at", "index of the next write (required)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if !at.set {
		return fmt.Errorf("%w: restart requires -at", errUsage)
	}

	l, err := a.openLog()
	if err != nil {
		return err
	}
	defer l.Close()
	return l.Restart(at.value)
}

func cmdExport(ctx context.Context, a *app, args []string) error {
	fs := a.flagSet("export")
	var rf rangeFlags
	rf.register(fs)
	output := fs.String("o", "", "output file (default: stdout)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	rng, err := rf.bound()
	if err != nil {
		return err
	}

	l, err := a.openLog()
	if err != nil {
		return err
	}
	defer l.Close()

	out := a.stdout
	var f *os.File
	if *output != "" {
		if f, err = os.Create(*output); err != nil {
			return err
		}
		out = f
	}

	stats, err := export.Dump(l, rng, out)
	if f != nil {
		if closeErr := f.Close(); err == nil {
			err = closeErr
		}
	}
	if err != nil {
		return err
	}
	fmt.Fprintf(a.stderr, "exported %d entries from index %d\n", stats.Records, stats.FirstIndex)
	return nil
}

func cmdImport(ctx context.Context, a *app, args []string) error {
	fs := a.flagSet("import")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return fmt.Errorf("%w: import takes one export file", errUsage)
	}

	f, err := os.Open(fs.Arg(0))
	if err != nil {
		return err
	}
	defer f.Close()

	l, err := a.openLog()
	if err != nil {
		return err
	}
	defer l.Close()

	stats, err := export.Load(f, l)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.stdout, "imported %d entries, skipped %d already present\n", stats.Records, stats.Skipped)
	return nil
}

func cmdArchive(ctx context.Context, a *app, args []string) error {
	if len(args) > 0 {
		switch args[0] {
		case "list":
			return archiveList(ctx, a, args[1:])
		case "restore":
			return archiveRestore(ctx, a, args[1:])
		}
	}

	fs := a.flagSet("archive")
	var upTo optionalIndex
	fs.Var(&upTo, "upto", "archive and discard entries before this index (required)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if !upTo.set {
		return fmt.Errorf("%w: archive requires -upto, or a list or restore subcommand", errUsage)
	}

	store, err := a.cfg.ArchiveStore(ctx)
	if err != nil {
		return err
	}
	l, err := a.openLog()
	if err != nil {
		return err
	}
	defer l.Close()

	archiver := &archive.Archiver{
		Store:   store,
		Prefix:  a.cfg.Archive.Prefix,
		Logger:  a.logger,
		Metrics: a.metrics,
	}
	seg, err := archiver.ArchiveAndCompact(ctx, l, upTo.value)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.stdout, "%s\t%d-%d\t%d bytes\n", seg.Key, seg.FirstIndex, seg.LastIndex, seg.Size)
	return nil
}

func archiveList(ctx context.Context, a *app, args []string) error {
	if err := a.flagSet("archive list").Parse(args); err != nil {
		return err
	}
	store, err := a.cfg.ArchiveStore(ctx)
	if err != nil {
		return err
	}
	prefix := a.cfg.Archive.Prefix
	if prefix != "" {
		prefix += "/"
	}
	segments, err := archive.ListSegments(ctx, store, prefix)
	if err != nil {
		return err
	}
	for _, seg := range segments {
		fmt.Fprintf(a.stdout, "%s\t%d-%d\n", seg.Key, seg.FirstIndex, seg.LastIndex)
	}
	return nil
}

func archiveRestore(ctx context.Context, a *app, args []string) error {
	fs := a.flagSet("archive restore")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return fmt.Errorf("%w: archive restore takes one segment key", errUsage)
	}

	store, err := a.cfg.ArchiveStore(ctx)
	if err != nil {
		return err
	}
	l, err := a.openLog()
	if err != nil {
		return err
	}
	defer l.Close()

	stats, err := archive.Restore(ctx, store, fs.Arg(0), l)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.stdout, "restored %d entries, skipped %d already present\n", stats.Records, stats.Skipped)
	return nil
}
