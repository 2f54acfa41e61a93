package cli

import (
	"context"
	"flag"
	"fmt"
	"io"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/ogurasousui/codex-company-registration/internal/core/company"
	"github.com/ogurasousui/codex-company-registration/internal/core/document"
	"github.com/ogurasousui/codex-company-registration/internal/core/user"
	"github.com/ogurasousui/codex-company-registration/internal/platform/logger"
)

// Representative は代表者向けの操作です。
type Representative interface {
	Register(ctx context.Context, caller user.Identity, details company.Details) (*company.Company, error)
	MyRegistration(ctx context.Context, caller user.Identity) (*company.Company, error)
	Update(ctx context.Context, caller user.Identity, companyID string, details company.Details) (*company.Company, error)
	Withdraw(ctx context.Context, caller user.Identity, companyID string) (*company.WithdrawResult, error)
	Upload(ctx context.Context, caller user.Identity, companyID string, files []document.File) ([]document.UploadOutcome, error)
	Documents(ctx context.Context, caller user.Identity, companyID string) ([]*document.Document, error)
	Download(ctx context.Context, caller user.Identity, documentID string) (*document.Download, error)
	DeleteDocument(ctx context.Context, caller user.Identity, documentID string) error
}

// Reviewer は審査担当者向けの操作です。
type Reviewer interface {
	Pending(ctx context.Context, pageSize int, pageToken string) (*company.ListResult, error)
	Company(ctx context.Context, companyID string) (*company.Company, error)
	Decide(ctx context.Context, companyID string, decision company.Decision) (*company.Company, error)
	Documents(ctx context.Context, companyID string) ([]*document.Document, error)
	Download(ctx context.Context, companyID, documentID string) (*document.Download, error)
}

type command struct {
	summary string
	run     func(ctx context.Context, args []string) error
}

// Handler はサブコマンドを解釈してユースケースを呼び出します。
type Handler struct {
	rep      Representative
	rev      Reviewer
	out      io.Writer
	errOut   io.Writer
	log      *zap.Logger
	commands map[string]command
}

// NewHandler は Handler を生成します。
func NewHandler(rep Representative, rev Reviewer, out, errOut io.Writer, log *zap.Logger) *Handler {
	h := &Handler{rep: rep, rev: rev, out: out, errOut: errOut, log: logger.OrNop(log)}
	h.commands = map[string]command{
		"register":         {"create a registration owned by -subject", h.register},
		"show":             {"show the registration owned by -subject", h.show},
		"update":           {"update the registration owned by -subject", h.update},
		"withdraw":         {"withdraw the registration owned by -subject", h.withdraw},
		"upload":           {"attach FILE... to the registration owned by -subject", h.upload},
		"documents":        {"list documents of the registration owned by -subject", h.documents},
		"download":         {"download a document owned by -subject", h.download},
		"delete-document":  {"delete a document owned by -subject", h.deleteDocument},
		"pending":          {"list pending registrations oldest first", h.pending},
		"review-show":      {"show a registration as reviewer", h.reviewShow},
		"decide":           {"accept or deny a pending registration", h.decide},
		"review-documents": {"list documents of a registration as reviewer", h.reviewDocuments},
		"review-download":  {"download a document of a registration as reviewer", h.reviewDownload},
	}
	return h
}

// Run は args[0] をサブコマンド名として実行します。
func (h *Handler) Run(ctx context.Context, args []string) error {
	if len(args) == 0 {
		h.usage()
		return fmt.Errorf("%w: command is required", ErrUsage)
	}
	cmd, ok := h.commands[args[0]]
	if !ok {
		h.usage()
		return fmt.Errorf("%w: unknown command %q", ErrUsage, args[0])
	}

	h.log.Debug("running command", zap.String("command", args[0]))
	return cmd.run(ctx, args[1:])
}

func (h *Handler) usage() {
	names := make([]string, 0, len(h.commands))
	for name := range h.commands {
		names = append(names, name)
	}
	sort.Strings(names)

	fmt.Fprintln(h.errOut, "usage: registry [-config PATH] COMMAND [flags]")
	fmt.Fprintln(h.errOut, "commands:")
	for _, name := range names {
		fmt.Fprintf(h.errOut, "  %-18s %s\n", name, h.commands[name].summary)
	}
}

func (h *Handler) newFlagSet(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(h.errOut)
	return fs
}

func parseFlags(fs *flag.FlagSet, args []string) error {
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("%w: %v", ErrUsage, err)
	}
	return nil
}

func requireFlag(name, value string) error {
	if strings.TrimSpace(value) == "" {
		return fmt.Errorf("%w: -%s is required", ErrUsage, name)
	}
	return nil
}

type identityFlags struct {
	subject  *string
	username *string
}

func bindIdentity(fs *flag.FlagSet) identityFlags {
	return identityFlags{
		subject:  fs.String("subject", "", "authenticated subject of the representative"),
		username: fs.String("username", "", "display name of the representative"),
	}
}

func (f identityFlags) identity() (user.Identity, error) {
	if err := requireFlag("subject", *f.subject); err != nil {
		return user.Identity{}, err
	}
	return user.Identity{Subject: *f.subject, Username: *f.username}, nil
}

type detailFlags struct {
	name         *string
	email        *string
	goal         *string
	headquarters *string
	executives   *string
}

func bindDetails(fs *flag.FlagSet) detailFlags {
	return detailFlags{
		name:         fs.String("name", "", "company name"),
		email:        fs.String("email", "", "contact email"),
		goal:         fs.String("goal", "", "business goal"),
		headquarters: fs.String("headquarters", "", "headquarters address"),
		executives:   fs.String("executives", "", "executive officers"),
	}
}

// apply は明示的に指定されたフラグだけを base に上書きします。
func (d detailFlags) apply(fs *flag.FlagSet, base company.Details) company.Details {
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "name":
			base.Name = *d.name
		case "email":
			base.Email = *d.email
		case "goal":
			base.Goal = *d.goal
		case "headquarters":
			base.Headquarters = *d.headquarters
		case "executives":
			base.Executives = *d.executives
		}
	})
	return base
}
