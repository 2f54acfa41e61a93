package document

import (
	"io"
	"time"
)

// Document は会社に添付された書類のメタデータです。
// ObjectKey が指す blob は Document の存続期間中ちょうど一つ存在します。
type Document struct {
	ID          string
	CompanyID   string
	ObjectKey   string
	Filename    string
	ContentType string
	Size        int64
	UploadedAt  time.Time
}

// File はアップロード対象のファイルです。Size は申告値で、実際のサイズは読み取り時に計測されます。
type File struct {
	Filename    string
	ContentType string
	Size        int64
	Content     io.Reader
}

// UploadOutcome はファイルごとのアップロード結果です。
// Err が nil の場合は Document が設定されます。Warning は Err と同時にのみ設定されます。
type UploadOutcome struct {
	Filename string
	Document *Document
	Err      error
	Warning  *OrphanBlobWarning
}

// Succeeded はアップロードが成功したかを返します。
func (o UploadOutcome) Succeeded() bool {
	return o.Err == nil
}

// Download はダウンロード対象の書類と本体のストリームです。呼び出し側が Body を閉じます。
type Download struct {
	Document *Document
	Body     io.ReadCloser
}

// CascadeResult は会社単位の一括削除結果です。
type CascadeResult struct {
	Deleted  int64
	Warnings []*OrphanBlobWarning
}
