package company

import "time"

// State は登録申請の審査状態を表します。
type State string

const (
	StatePending  State = "PENDING"
	StateAccepted State = "ACCEPTED"
	StateDenied   State = "DENIED"
)

// Valid は既知の状態かを返します。
func (s State) Valid() bool {
	switch s {
	case StatePending, StateAccepted, StateDenied:
		return true
	default:
		return false
	}
}

// Decision は審査担当者の判断です。
type Decision string

const (
	DecisionAccept Decision = "ACCEPT"
	DecisionDeny   Decision = "DENY"
)

// Company は登録申請の集約ルートです。
// TaxID は State が ACCEPTED の場合に限り設定されます。
type Company struct {
	ID           string
	OwnerID      string
	Name         string
	Email        string
	Goal         string
	Headquarters string
	Executives   string
	State        State
	TaxID        *string
	Version      int64
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Details は申請者が編集できる項目です。
type Details struct {
	Name         string
	Email        string
	Goal         string
	Headquarters string
	Executives   string
}

// Details は現在の編集可能項目を返します。
func (c *Company) Details() Details {
	return Details{
		Name:         c.Name,
		Email:        c.Email,
		Goal:         c.Goal,
		Headquarters: c.Headquarters,
		Executives:   c.Executives,
	}
}

// IsAccepted は終端状態 ACCEPTED かを返します。
func (c *Company) IsAccepted() bool {
	return c.State == StateAccepted
}

func (c *Company) applyDetails(d Details) {
	c.Name = d.Name
	c.Email = d.Email
	c.Goal = d.Goal
	c.Headquarters = d.Headquarters
	c.Executives = d.Executives
}
