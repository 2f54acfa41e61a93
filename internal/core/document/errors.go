package document

import (
	"errors"
	"fmt"
)

var (
	// ErrDocumentNotFound はドキュメントが存在しない場合に返却されます。
	ErrDocumentNotFound = errors.New("document not found")
	// ErrUploadFailed はファイルの保存に失敗した場合に返却されます。
	ErrUploadFailed = errors.New("upload failed")
	// ErrBlobNotFound は blob が存在しない場合に BlobStore から返却されます。
	ErrBlobNotFound = errors.New("blob not found")
	// ErrOrphanBlob はメタデータを持たない blob が残ったことを表します。
	ErrOrphanBlob = errors.New("orphan blob")
	// ErrFileTooLarge はファイルサイズが上限を超えた場合に返却されます。
	ErrFileTooLarge = errors.New("file too large")
	// ErrInvalidFilename はファイル名が不正な場合に返却されます。
	ErrInvalidFilename = errors.New("invalid filename")
	// ErrInvalidID は ID が不正な場合に返却されます。
	ErrInvalidID = errors.New("invalid id")
)

// OrphanBlobWarning は削除できずに残った blob を表す致命的でない警告です。
// 別途の突き合わせで回収されることを前提とします。
type OrphanBlobWarning struct {
	Key string
	Err error
}

func (w *OrphanBlobWarning) Error() string {
	return fmt.Sprintf("orphan blob %s: %v", w.Key, w.Err)
}

func (w *OrphanBlobWarning) Unwrap() error {
	return w.Err
}

// Is は ErrOrphanBlob との比較を可能にします。
func (w *OrphanBlobWarning) Is(target error) bool {
	return target == ErrOrphanBlob
}
