package user

import "errors"

var (
	// ErrUserNotFound はユーザーが存在しない場合に返却されます。
	ErrUserNotFound = errors.New("user not found")
	// ErrSubjectAlreadyExists は同じ subject のユーザーが既に存在する場合に返却されます。
	ErrSubjectAlreadyExists = errors.New("subject already exists")
	// ErrInvalidSubject は subject が不正な場合に返却されます。
	ErrInvalidSubject = errors.New("invalid subject")
	// ErrInvalidUsername はユーザー名が不正な場合に返却されます。
	ErrInvalidUsername = errors.New("invalid username")
	// ErrInvalidID はIDが不正な場合に返却されます。
	ErrInvalidID = errors.New("invalid id")
)
