package company

import "errors"

var (
	// ErrCompanyNotFound は会社が存在しない場合に返却されます。
	ErrCompanyNotFound = errors.New("company not found")
	// ErrAlreadyRegistered は申請者が既に会社を登録している場合に返却されます。
	ErrAlreadyRegistered = errors.New("owner already has a registration")
	// ErrEmailAlreadyUsed は連絡先メールアドレスが他の会社で使用されている場合に返却されます。
	ErrEmailAlreadyUsed = errors.New("contact email already used")
	// ErrAlreadyProcessed は審査済みの申請に判断を行おうとした場合に返却されます。
	ErrAlreadyProcessed = errors.New("registration already processed")
	// ErrInvalidDecision は ACCEPT / DENY 以外の判断が渡された場合に返却されます。
	ErrInvalidDecision = errors.New("invalid decision")
	// ErrImmutableState は承認済みの申請を変更しようとした場合に返却されます。
	ErrImmutableState = errors.New("registration is accepted and can no longer change")
	// ErrVersionConflict は楽観ロックのバージョンが一致しなかった場合に返却されます。
	ErrVersionConflict = errors.New("registration was modified concurrently")
	// ErrInvalidName は会社名が不正な場合に返却されます。
	ErrInvalidName = errors.New("invalid name")
	// ErrInvalidEmail は連絡先メールアドレスが不正な場合に返却されます。
	ErrInvalidEmail = errors.New("invalid email")
	// ErrInvalidGoal は事業目的が不正な場合に返却されます。
	ErrInvalidGoal = errors.New("invalid goal")
	// ErrInvalidHeadquarters は本店所在地が不正な場合に返却されます。
	ErrInvalidHeadquarters = errors.New("invalid headquarters")
	// ErrInvalidExecutives は役員情報が不正な場合に返却されます。
	ErrInvalidExecutives = errors.New("invalid executives")
	// ErrInvalidOwner は申請者 ID が空の場合に返却されます。
	ErrInvalidOwner = errors.New("invalid owner")
	// ErrInvalidState は未知の状態が指定された場合に返却されます。
	ErrInvalidState = errors.New("invalid state")
	// ErrInvalidID は ID が不正な場合に返却されます。
	ErrInvalidID = errors.New("invalid id")
	// ErrInvalidPageSize は一覧取得時のページサイズが不正な場合に返却されます。
	ErrInvalidPageSize = errors.New("invalid page size")
	// ErrInvalidPageToken は一覧取得時のページトークンが不正な場合に返却されます。
	ErrInvalidPageToken = errors.New("invalid page token")
)
