package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/ogurasousui/codex-company-registration/internal/core/company"
	"github.com/ogurasousui/codex-company-registration/internal/core/document"
)

func (h *Handler) register(ctx context.Context, args []string) error {
	fs := h.newFlagSet("register")
	who := bindIdentity(fs)
	details := bindDetails(fs)
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	caller, err := who.identity()
	if err != nil {
		return err
	}

	created, err := h.rep.Register(ctx, caller, details.apply(fs, company.Details{}))
	if err != nil {
		return err
	}
	return printCompany(h.out, created)
}

func (h *Handler) show(ctx context.Context, args []string) error {
	fs := h.newFlagSet("show")
	who := bindIdentity(fs)
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	caller, err := who.identity()
	if err != nil {
		return err
	}

	found, err := h.rep.MyRegistration(ctx, caller)
	if err != nil {
		return err
	}
	return printCompany(h.out, found)
}

func (h *Handler) update(ctx context.Context, args []string) error {
	fs := h.newFlagSet("update")
	who := bindIdentity(fs)
	details := bindDetails(fs)
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	caller, err := who.identity()
	if err != nil {
		return err
	}

	current, err := h.rep.MyRegistration(ctx, caller)
	if err != nil {
		return err
	}
	updated, err := h.rep.Update(ctx, caller, current.ID, details.apply(fs, current.Details()))
	if err != nil {
		return err
	}
	return printCompany(h.out, updated)
}

func (h *Handler) withdraw(ctx context.Context, args []string) error {
	fs := h.newFlagSet("withdraw")
	who := bindIdentity(fs)
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	caller, err := who.identity()
	if err != nil {
		return err
	}

	current, err := h.rep.MyRegistration(ctx, caller)
	if err != nil {
		return err
	}
	result, err := h.rep.Withdraw(ctx, caller, current.ID)
	if err != nil {
		return err
	}

	fmt.Fprintf(h.out, "withdrawn %s\n", result.Company.ID)
	for _, warning := range result.DocumentWarnings {
		fmt.Fprintf(h.errOut, "warning: %v\n", warning)
	}
	return nil
}

func (h *Handler) upload(ctx context.Context, args []string) error {
	fs := h.newFlagSet("upload")
	who := bindIdentity(fs)
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	caller, err := who.identity()
	if err != nil {
		return err
	}
	if fs.NArg() == 0 {
		return fmt.Errorf("%w: at least one FILE is required", ErrUsage)
	}

	files, closeAll, err := openFiles(fs.Args())
	if err != nil {
		return err
	}
	defer closeAll()

	current, err := h.rep.MyRegistration(ctx, caller)
	if err != nil {
		return err
	}
	outcomes, err := h.rep.Upload(ctx, caller, current.ID, files)
	if err != nil {
		return err
	}

	failed := printUploadOutcomes(h.out, h.errOut, outcomes)
	if failed > 0 {
		return fmt.Errorf("%w: %d of %d", ErrPartialUpload, failed, len(outcomes))
	}
	return nil
}

func (h *Handler) documents(ctx context.Context, args []string) error {
	fs := h.newFlagSet("documents")
	who := bindIdentity(fs)
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	caller, err := who.identity()
	if err != nil {
		return err
	}

	current, err := h.rep.MyRegistration(ctx, caller)
	if err != nil {
		return err
	}
	docs, err := h.rep.Documents(ctx, caller, current.ID)
	if err != nil {
		return err
	}
	return printDocuments(h.out, docs)
}

func (h *Handler) download(ctx context.Context, args []string) error {
	fs := h.newFlagSet("download")
	who := bindIdentity(fs)
	id := fs.String("id", "", "document id")
	out := fs.String("out", "", "destination path, - for stdout")
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	caller, err := who.identity()
	if err != nil {
		return err
	}
	if err := requireFlag("id", *id); err != nil {
		return err
	}
	if err := requireFlag("out", *out); err != nil {
		return err
	}

	dl, err := h.rep.Download(ctx, caller, *id)
	if err != nil {
		return err
	}
	return h.saveDownload(dl, *out)
}

func (h *Handler) deleteDocument(ctx context.Context, args []string) error {
	fs := h.newFlagSet("delete-document")
	who := bindIdentity(fs)
	id := fs.String("id", "", "document id")
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	caller, err := who.identity()
	if err != nil {
		return err
	}
	if err := requireFlag("id", *id); err != nil {
		return err
	}

	if err := h.rep.DeleteDocument(ctx, caller, *id); err != nil {
		return err
	}
	fmt.Fprintf(h.out, "deleted %s\n", *id)
	return nil
}

// openFiles はローカルファイルを開き、アップロード用の File に変換します。
func openFiles(paths []string) ([]document.File, func(), error) {
	var opened []*os.File
	closeAll := func() {
		for _, f := range opened {
			_ = f.Close()
		}
	}

	files := make([]document.File, 0, len(paths))
	for _, p := range paths {
		f, err := os.Open(p)
		if err != nil {
			closeAll()
			return nil, nil, fmt.Errorf("open %s: %w", p, err)
		}
		opened = append(opened, f)

		info, err := f.Stat()
		if err != nil {
			closeAll()
			return nil, nil, fmt.Errorf("stat %s: %w", p, err)
		}
		if info.IsDir() {
			closeAll()
			return nil, nil, fmt.Errorf("%w: %s is a directory", ErrUsage, p)
		}

		files = append(files, document.File{
			Filename: filepath.Base(p),
			Size:     info.Size(),
			Content:  f,
		})
	}
	return files, closeAll, nil
}

// saveDownload は本文を path に書き出します。途中で失敗した場合は書きかけのファイルを削除します。
func (h *Handler) saveDownload(dl *document.Download, path string) (err error) {
	defer func() {
		if cerr := dl.Body.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	if path == "-" {
		_, err = io.Copy(h.out, dl.Body)
		return err
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	n, copyErr := io.Copy(f, dl.Body)
	closeErr := f.Close()
	if err := errors.Join(copyErr, closeErr); err != nil {
		if rmErr := os.Remove(path); rmErr != nil {
			h.log.Warn("failed to remove partial download", zap.String("path", path), zap.Error(rmErr))
		}
		return fmt.Errorf("write %s: %w", path, err)
	}

	fmt.Fprintf(h.errOut, "wrote %d bytes of %s to %s\n", n, dl.Document.Filename, path)
	return nil
}
