package model

// Account identifies a registry user or the authority.
type Account string

// BurnAccount is the reserved null principal that can never act as the authority.
const BurnAccount Account = "SP000000000000000000002Q6VF78"

func (a Account) String() string {
	return string(a)
}

func (a Account) IsEmpty() bool {
	return a == ""
}
