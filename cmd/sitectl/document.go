package main

import (
	"fmt"
	"html"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/apiliability/site/internal/layout"
	"github.com/apiliability/site/internal/paginate"
	"github.com/apiliability/site/internal/proposal"
	"github.com/apiliability/site/internal/source"
	"github.com/apiliability/site/internal/tui"
)

// docFlags are shared by commands that paginate a document file.
type docFlags struct {
	width     int
	backend   string
	normalize bool
}

func (f *docFlags) register(cmd *cobra.Command) {
	cmd.Flags().IntVar(&f.width, "width", proposal.DefaultWidth, "Container width in layout pixels")
	cmd.Flags().StringVar(&f.backend, "backend", "", "Layout backend: estimate or browser (default: LAYOUT_BACKEND)")
	cmd.Flags().BoolVar(&f.normalize, "normalize", false, "Rewrite general Markdown into the supported subset")
}

// service loads path into a proposal service without a page cache. The
// returned close func releases the layout backend.
func (a *app) service(path string, f docFlags) (*proposal.Service, func(), error) {
	backend := f.backend
	if backend == "" {
		backend = a.cfg.LayoutBackend
	}
	surface, err := layout.ForBackend(backend, layout.BrowserOptions{
		Bin:    a.cfg.RodBrowserBin,
		Logger: a.log,
	}, nil)
	if err != nil {
		return nil, nil, err
	}
	opts := source.Options{
		NormalizeMarkdown:    f.normalize,
		PDFFallbackPdftotext: a.cfg.PDFFallbackPdftotext,
	}
	svc, err := proposal.Load(path, opts, paginate.New(surface), 0, a.log)
	if err != nil {
		surface.Close()
		return nil, nil, err
	}
	return svc, func() {
		if err := surface.Close(); err != nil {
			a.log.Warn("closing layout backend", "error", err)
		}
	}, nil
}

func (a *app) paginateCmd() *cobra.Command {
	var f docFlags
	cmd := &cobra.Command{
		Use:   "paginate FILE",
		Short: "Print the page breakdown of a document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, closeFn, err := a.service(args[0], f)
			if err != nil {
				return err
			}
			defer closeFn()

			pages, err := svc.Pages(cmd.Context(), f.width)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s: %d blocks, %d pages at width %d\n", svc.Title(), svc.BlockCount(), len(pages), f.width)
			tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "PAGE\tBLOCKS\tHEIGHT\tFIRST BLOCK")
			for _, p := range pages {
				first := ""
				if len(p.Blocks) > 0 {
					first = preview(p.Blocks[0].Markup, 40)
				}
				height := fmt.Sprintf("%.1f", p.Height)
				if p.Oversized() {
					height += " (oversized)"
				}
				fmt.Fprintf(tw, "%d\t%d\t%s\t%s\n", p.Number, len(p.Blocks), height, first)
			}
			return tw.Flush()
		},
	}
	f.register(cmd)
	return cmd
}

func (a *app) exportCmd() *cobra.Command {
	var (
		f      docFlags
		output string
	)
	cmd := &cobra.Command{
		Use:   "export FILE",
		Short: "Write a document as DOCX with one section per page",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, closeFn, err := a.service(args[0], f)
			if err != nil {
				return err
			}
			defer closeFn()

			if output == "" {
				output = strings.TrimSuffix(args[0], filepath.Ext(args[0])) + ".docx"
			}
			if filepath.Clean(output) == filepath.Clean(args[0]) {
				return fmt.Errorf("refusing to overwrite input %s; pass --output", args[0])
			}
			out, err := os.Create(output)
			if err != nil {
				return err
			}
			if err := svc.ExportDOCX(cmd.Context(), f.width, out); err != nil {
				out.Close()
				return err
			}
			if err := out.Close(); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", output)
			return nil
		},
	}
	f.register(cmd)
	cmd.Flags().StringVarP(&output, "output", "o", "", "Output path (default: FILE with a .docx extension)")
	return cmd
}

func (a *app) viewCmd() *cobra.Command {
	var normalize bool
	cmd := &cobra.Command{
		Use:   "view FILE",
		Short: "Page through a document in the terminal",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, err := source.LoadFile(args[0], source.Options{
				NormalizeMarkdown:    normalize,
				PDFFallbackPdftotext: a.cfg.PDFFallbackPdftotext,
			})
			if err != nil {
				return err
			}
			// Log lines would draw over the full-screen view.
			return tui.Run(cmd.Context(), doc.Title, doc.Text, slog.New(slog.DiscardHandler))
		},
	}
	cmd.Flags().BoolVar(&normalize, "normalize", false, "Rewrite general Markdown into the supported subset")
	return cmd
}

// preview returns the first n runes of a block's text.
func preview(fragment string, n int) string {
	var b strings.Builder
	inTag := false
	for _, r := range fragment {
		switch {
		case r == '<':
			inTag = true
		case r == '>':
			inTag = false
		case !inTag:
			b.WriteRune(r)
		}
	}
	text := strings.Join(strings.Fields(html.UnescapeString(b.String())), " ")
	if runes := []rune(text); len(runes) > n {
		return string(runes[:n-3]) + "..."
	}
	return text
}
