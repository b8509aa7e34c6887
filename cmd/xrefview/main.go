// Command xrefview loads two documents and a cross-reference description and
// answers which lines on one side correspond to a line on the other. It can
// print, check and export the mapping, or serve it to a front end.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"

	"github.com/alecthomas/kong"

	xerrors "github.com/FocuswithJustin/xrefview/core/errors"
	"github.com/FocuswithJustin/xrefview/core/sqlite"
	"github.com/FocuswithJustin/xrefview/core/xref"
	"github.com/FocuswithJustin/xrefview/internal/api"
	"github.com/FocuswithJustin/xrefview/internal/export"
	"github.com/FocuswithJustin/xrefview/internal/logging"
	"github.com/FocuswithJustin/xrefview/internal/server"
	"github.com/FocuswithJustin/xrefview/internal/viewer"
)

const version = "0.1.0"

// CLI defines the command-line interface for xrefview.
type CLI struct {
	// Global flags
	LogLevel  string `name:"log-level" help:"Log level (debug, info, warn, error)" default:"info" env:"XREFVIEW_LOG_LEVEL"`
	LogFormat string `name:"log-format" help:"Log format (text, json)" default:"text" env:"XREFVIEW_LOG_FORMAT"`

	View    ViewCmd    `cmd:"" help:"Print the documents with line numbers"`
	Query   QueryCmd   `cmd:"" help:"Show the lines corresponding to one line"`
	Groups  GroupsCmd  `cmd:"" help:"List every correspondence group"`
	Check   CheckCmd   `cmd:"" help:"Validate a cross-reference description"`
	Export  ExportCmd  `cmd:"" help:"Write the correspondence to a SQLite database"`
	Serve   ServeCmd   `cmd:"" help:"Start the query server"`
	Version VersionCmd `cmd:"" help:"Print version information"`
}

// Pair names the three inputs most commands need.
type Pair struct {
	Left  string `arg:"" help:"Left document" type:"path"`
	Right string `arg:"" help:"Right document" type:"path"`
	XRef  string `arg:"" name:"xref" help:"Cross-reference description" type:"path"`
}

// load builds a session from the three inputs.
func (p Pair) load() (*viewer.Session, error) {
	s := viewer.NewSession()
	if _, err := s.LoadDocumentFile(xref.Left, p.Left); err != nil {
		return nil, err
	}
	if _, err := s.LoadDocumentFile(xref.Right, p.Right); err != nil {
		return nil, err
	}
	if err := s.LoadCrossReferenceFile(p.XRef); err != nil {
		return nil, err
	}
	return s, nil
}

// ViewCmd prints whatever inputs are given, in load order.
type ViewCmd struct {
	Left  string `arg:"" help:"Left document" type:"path"`
	Right string `arg:"" optional:"" help:"Right document" type:"path"`
	XRef  string `arg:"" optional:"" name:"xref" help:"Cross-reference description" type:"path"`
}

func (c *ViewCmd) Run(ctx *kong.Context) error {
	s := viewer.NewSession()
	out := ctx.Stdout

	inputs := []struct {
		side xref.Side
		path string
	}{
		{xref.Left, c.Left},
		{xref.Right, c.Right},
	}
	for _, in := range inputs {
		if in.path == "" {
			continue
		}
		if _, err := s.LoadDocumentFile(in.side, in.path); err != nil {
			return err
		}
		lines, err := s.Document(in.side)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "== %s: %s (%d lines)\n", in.side, in.path, len(lines))
		for i, line := range lines {
			fmt.Fprintf(out, "%4d: %s\n", i+1, line)
		}
	}

	if c.XRef == "" {
		return nil
	}
	if err := s.LoadCrossReferenceFile(c.XRef); err != nil {
		return err
	}
	st := s.Status()
	fmt.Fprintf(out, "== xref: %s (%d groups, %d overrides)\n", c.XRef, st.Groups, st.Overrides)
	return nil
}

// QueryCmd answers a single click.
type QueryCmd struct {
	Pair `embed:""`

	Side string `help:"Side of the line (left, right)" default:"left"`
	Line int    `help:"1-based line number" required:""`
}

func (c *QueryCmd) Run(ctx *kong.Context) error {
	side, err := xref.ParseSide(c.Side)
	if err != nil {
		return err
	}
	s, err := c.load()
	if err != nil {
		return err
	}

	result, ok := s.Query(side, c.Line)
	if !ok {
		fmt.Fprintf(ctx.Stdout, "%s line %d is not cross-referenced\n", side, c.Line)
		return nil
	}
	fmt.Fprintf(ctx.Stdout, "group %d\n", result.Group)
	fmt.Fprintf(ctx.Stdout, "%s: %s\n", side, xref.Compact(result.SameSideLines))
	fmt.Fprintf(ctx.Stdout, "%s: %s\n", side.Other(), xref.Compact(result.OtherSideLines))
	return nil
}

// GroupsCmd lists every group.
type GroupsCmd struct {
	Pair `embed:""`
}

func (c *GroupsCmd) Run(ctx *kong.Context) error {
	s, err := c.load()
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(ctx.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "GROUP\tROW\tLEFT\tRIGHT")
	for _, g := range s.Correspondence().Groups() {
		fmt.Fprintf(w, "%d\t%d\t%s\t%s\n", g.ID, g.Row, xref.Compact(g.Left), xref.Compact(g.Right))
	}
	return w.Flush()
}

// CheckCmd parses the description and reports what it maps.
type CheckCmd struct {
	Pair `embed:""`
}

func (c *CheckCmd) Run(ctx *kong.Context) error {
	s, err := c.load()
	if err != nil {
		return err
	}

	corr := s.Correspondence()
	out := ctx.Stdout
	fmt.Fprintf(out, "groups:      %d\n", corr.Len())
	for _, side := range xref.Sides {
		fmt.Fprintf(out, "%-6s       %d of %d lines mapped\n", side.String()+":",
			corr.Index(side).Len(), s.LineCount(side))
	}
	fmt.Fprintf(out, "overrides:   %d\n", len(corr.Overrides))
	for _, o := range corr.Overrides {
		fmt.Fprintf(out, "  %s line %d: group %d replaced by group %d\n", o.Side, o.Line, o.Replaced, o.Group)
	}
	fmt.Fprintf(out, "fingerprint: %s\n", corr.Fingerprint())
	return nil
}

// ExportCmd writes the correspondence to SQLite.
type ExportCmd struct {
	Pair `embed:""`

	Out string `help:"Output database path" required:"" type:"path"`
}

func (c *ExportCmd) Run(ctx *kong.Context) error {
	s, err := c.load()
	if err != nil {
		return err
	}

	st := s.Status()
	meta := export.Meta{
		LeftSource:     st.LeftSource,
		RightSource:    st.RightSource,
		CrossRefSource: st.CrossRefSource,
		LeftLines:      st.LeftLines,
		RightLines:     st.RightLines,
	}
	if err := export.Write(context.Background(), c.Out, s.Correspondence(), meta); err != nil {
		return err
	}
	info := sqlite.GetInfo()
	logging.Info("export_complete", "path", server.AbsPath(c.Out), "groups", st.Groups,
		"driver", info.DriverType, "cgo", info.IsCGO)
	fmt.Fprintf(ctx.Stdout, "exported %d groups to %s (sqlite %s)\n", st.Groups, c.Out, info.DriverType)
	return nil
}

// ServeCmd starts the query server.
type ServeCmd struct {
	Pair `embed:""`

	Host          string   `help:"Listen host" default:"127.0.0.1"`
	Port          int      `help:"HTTP server port" default:"8080"`
	AllowedOrigin []string `name:"allowed-origin" help:"Allowed CORS/websocket origin (repeatable)"`
}

func (c *ServeCmd) Run() error {
	s, err := c.load()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	api.Version = version
	cfg := api.Config{
		Host:           c.Host,
		Port:           c.Port,
		AllowedOrigins: c.AllowedOrigin,
	}
	return api.Start(ctx, cfg, s)
}

type VersionCmd struct{}

func (c *VersionCmd) Run(ctx *kong.Context) error {
	fmt.Fprintf(ctx.Stdout, "xrefview version %s\n", version)
	return nil
}

// run parses args, executes the selected command and returns the exit code.
func run(args []string, stdout, stderr io.Writer) int {
	var cli CLI
	parser, err := kong.New(&cli,
		kong.Name("xrefview"),
		kong.Description("Bidirectional line-range cross-references between two documents"),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{
			Compact: true,
		}),
		kong.Writers(stdout, stderr),
	)
	if err != nil {
		fmt.Fprintf(stderr, "xrefview: %v\n", err)
		return 1
	}

	ctx, err := parser.Parse(args)
	if err != nil {
		fmt.Fprintf(stderr, "xrefview: %v\n", err)
		return 1
	}

	logging.InitLoggerTo(stderr, logging.ParseLevel(cli.LogLevel), logging.ParseFormat(cli.LogFormat))

	if err := ctx.Run(); err != nil {
		fmt.Fprintf(stderr, "xrefview: %v\n", err)
		return xerrors.ExitCode(err)
	}
	return 0
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}
