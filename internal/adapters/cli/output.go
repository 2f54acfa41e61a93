package cli

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/ogurasousui/codex-company-registration/internal/core/company"
	"github.com/ogurasousui/codex-company-registration/internal/core/document"
)

func printCompany(w io.Writer, c *company.Company) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	taxID := "-"
	if c.TaxID != nil {
		taxID = *c.TaxID
	}
	fmt.Fprintf(tw, "id\t%s\n", c.ID)
	fmt.Fprintf(tw, "state\t%s\n", c.State)
	fmt.Fprintf(tw, "tax_id\t%s\n", taxID)
	fmt.Fprintf(tw, "name\t%s\n", c.Name)
	fmt.Fprintf(tw, "email\t%s\n", c.Email)
	fmt.Fprintf(tw, "goal\t%s\n", c.Goal)
	fmt.Fprintf(tw, "headquarters\t%s\n", c.Headquarters)
	fmt.Fprintf(tw, "executives\t%s\n", c.Executives)
	fmt.Fprintf(tw, "version\t%d\n", c.Version)
	fmt.Fprintf(tw, "created_at\t%s\n", c.CreatedAt.Format(time.RFC3339))
	fmt.Fprintf(tw, "updated_at\t%s\n", c.UpdatedAt.Format(time.RFC3339))
	return tw.Flush()
}

func printCompanies(w io.Writer, companies []*company.Company) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tEMAIL\tCREATED_AT")
	for _, c := range companies {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", c.ID, c.Name, c.Email, c.CreatedAt.Format(time.RFC3339))
	}
	return tw.Flush()
}

func printDocuments(w io.Writer, docs []*document.Document) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tFILENAME\tCONTENT_TYPE\tSIZE\tUPLOADED_AT")
	for _, d := range docs {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%s\n", d.ID, d.Filename, d.ContentType, d.Size, d.UploadedAt.Format(time.RFC3339))
	}
	return tw.Flush()
}

// printUploadOutcomes はファイルごとの結果を出力し、失敗件数を返します。
func printUploadOutcomes(out, errOut io.Writer, outcomes []document.UploadOutcome) int {
	failed := 0
	for _, o := range outcomes {
		if o.Succeeded() {
			fmt.Fprintf(out, "uploaded %s as %s\n", o.Filename, o.Document.ID)
			continue
		}
		failed++
		fmt.Fprintf(errOut, "failed %s: %v\n", o.Filename, o.Err)
		if o.Warning != nil {
			fmt.Fprintf(errOut, "warning: %v\n", o.Warning)
		}
	}
	return failed
}
