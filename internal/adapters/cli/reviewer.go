package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/ogurasousui/codex-company-registration/internal/core/company"
)

const defaultPendingPageSize = 50

func (h *Handler) pending(ctx context.Context, args []string) error {
	fs := h.newFlagSet("pending")
	pageSize := fs.Int("page-size", defaultPendingPageSize, "number of registrations per page")
	pageToken := fs.String("page-token", "", "token returned by the previous page")
	if err := parseFlags(fs, args); err != nil {
		return err
	}

	result, err := h.rev.Pending(ctx, *pageSize, *pageToken)
	if err != nil {
		return err
	}
	if err := printCompanies(h.out, result.Companies); err != nil {
		return err
	}
	if result.NextPageToken != "" {
		fmt.Fprintf(h.errOut, "next page: -page-token %s\n", result.NextPageToken)
	}
	return nil
}

func (h *Handler) reviewShow(ctx context.Context, args []string) error {
	fs := h.newFlagSet("review-show")
	companyID := fs.String("company", "", "company id")
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	if err := requireFlag("company", *companyID); err != nil {
		return err
	}

	found, err := h.rev.Company(ctx, *companyID)
	if err != nil {
		return err
	}
	return printCompany(h.out, found)
}

func (h *Handler) decide(ctx context.Context, args []string) error {
	fs := h.newFlagSet("decide")
	companyID := fs.String("company", "", "company id")
	decision := fs.String("decision", "", "ACCEPT or DENY")
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	if err := requireFlag("company", *companyID); err != nil {
		return err
	}
	if err := requireFlag("decision", *decision); err != nil {
		return err
	}

	decided, err := h.rev.Decide(ctx, *companyID, company.Decision(strings.ToUpper(strings.TrimSpace(*decision))))
	if err != nil {
		return err
	}
	return printCompany(h.out, decided)
}

func (h *Handler) reviewDocuments(ctx context.Context, args []string) error {
	fs := h.newFlagSet("review-documents")
	companyID := fs.String("company", "", "company id")
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	if err := requireFlag("company", *companyID); err != nil {
		return err
	}

	docs, err := h.rev.Documents(ctx, *companyID)
	if err != nil {
		return err
	}
	return printDocuments(h.out, docs)
}

func (h *Handler) reviewDownload(ctx context.Context, args []string) error {
	fs := h.newFlagSet("review-download")
	companyID := fs.String("company", "", "company id")
	id := fs.String("id", "", "document id")
	out := fs.String("out", "", "destination path, - for stdout")
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	if err := requireFlag("company", *companyID); err != nil {
		return err
	}
	if err := requireFlag("id", *id); err != nil {
		return err
	}
	if err := requireFlag("out", *out); err != nil {
		return err
	}

	dl, err := h.rev.Download(ctx, *companyID, *id)
	if err != nil {
		return err
	}
	return h.saveDownload(dl, *out)
}
