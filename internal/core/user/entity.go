package user

import "time"

// User は外部の認証基盤で識別される申請者です。
// ID が申請の所有者を表す安定した識別子として使われます。
type User struct {
	ID        string
	Subject   string
	Username  string
	CreatedAt time.Time
}

// Identity は認証済みの呼び出し元を表します。
type Identity struct {
	Subject  string
	Username string
}
