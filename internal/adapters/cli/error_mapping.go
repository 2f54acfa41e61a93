package cli

import (
	"errors"

	"github.com/ogurasousui/codex-company-registration/internal/core/access"
	"github.com/ogurasousui/codex-company-registration/internal/core/company"
	"github.com/ogurasousui/codex-company-registration/internal/core/document"
	"github.com/ogurasousui/codex-company-registration/internal/core/user"
)

// 終了コードです。
const (
	ExitOK                 = 0
	ExitInternal           = 1
	ExitUsage              = 2
	ExitInvalidArgument    = 3
	ExitNotFound           = 4
	ExitAlreadyExists      = 5
	ExitFailedPrecondition = 6
	ExitConflict           = 7
	ExitPermissionDenied   = 8
	ExitPartialFailure     = 9
)

var (
	// ErrUsage はコマンドライン引数が不正な場合に返却されます。
	ErrUsage = errors.New("usage error")
	// ErrPartialUpload は一部のファイルのアップロードに失敗した場合に返却されます。
	ErrPartialUpload = errors.New("some files failed to upload")
)

// ExitCode はエラーをプロセスの終了コードに変換します。
func ExitCode(err error) int {
	switch {
	case err == nil:
		return ExitOK
	case errors.Is(err, ErrUsage):
		return ExitUsage
	case errors.Is(err, ErrPartialUpload):
		return ExitPartialFailure
	case errors.Is(err, company.ErrInvalidName),
		errors.Is(err, company.ErrInvalidEmail),
		errors.Is(err, company.ErrInvalidGoal),
		errors.Is(err, company.ErrInvalidHeadquarters),
		errors.Is(err, company.ErrInvalidExecutives),
		errors.Is(err, company.ErrInvalidOwner),
		errors.Is(err, company.ErrInvalidState),
		errors.Is(err, company.ErrInvalidID),
		errors.Is(err, company.ErrInvalidDecision),
		errors.Is(err, company.ErrInvalidPageSize),
		errors.Is(err, company.ErrInvalidPageToken),
		errors.Is(err, document.ErrInvalidFilename),
		errors.Is(err, document.ErrInvalidID),
		errors.Is(err, document.ErrFileTooLarge),
		errors.Is(err, user.ErrInvalidSubject),
		errors.Is(err, user.ErrInvalidUsername),
		errors.Is(err, user.ErrInvalidID):
		return ExitInvalidArgument
	case errors.Is(err, company.ErrAlreadyRegistered),
		errors.Is(err, company.ErrEmailAlreadyUsed),
		errors.Is(err, user.ErrSubjectAlreadyExists):
		return ExitAlreadyExists
	case errors.Is(err, company.ErrCompanyNotFound),
		errors.Is(err, document.ErrDocumentNotFound),
		errors.Is(err, document.ErrBlobNotFound),
		errors.Is(err, user.ErrUserNotFound):
		return ExitNotFound
	case errors.Is(err, company.ErrImmutableState),
		errors.Is(err, company.ErrAlreadyProcessed):
		return ExitFailedPrecondition
	case errors.Is(err, company.ErrVersionConflict):
		return ExitConflict
	case errors.Is(err, access.ErrForbidden):
		return ExitPermissionDenied
	default:
		return ExitInternal
	}
}
