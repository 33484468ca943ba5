package app

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/Astemirdum/book-search/search/internal/coordinator"
)

func render(w io.Writer, s coordinator.State) error {
	switch s.Status {
	case coordinator.Pending:
		_, err := fmt.Fprintf(w, "searching %q...\n", s.Query.Normalized)
		return err
	case coordinator.Failed:
		_, err := fmt.Fprintf(w, "search %q failed: %v (type %s to try again)\n", s.Query.Normalized, s.Err, cmdRetry)
		return err
	case coordinator.Succeeded:
		return renderBooks(w, s)
	}
	return nil
}

func renderBooks(w io.Writer, s coordinator.State) error {
	if len(s.Books) == 0 {
		_, err := fmt.Fprintln(w, "No books to show")
		return err
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tTITLE\tAUTHOR\tPUBLISHER\tISBN\tPRICE")
	for _, b := range s.Books {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%d\n", b.ID, b.Title, b.Author, b.Publisher, b.ISBN, b.Price)
	}
	return tw.Flush()
}
