package registryfamily

import (
	"doc-registry/internal/hashing"
	"doc-registry/internal/model"
	"strconv"
	"sync"
)

var (
	familyHash       = ""
	docPrefixHash    = ""
	hashPrefixHash   = ""
	userPrefixHash   = ""
	configPrefixHash = ""

	calcOnce sync.Once
)

func initHashVars() {
	calcOnce.Do(func() {
		familyHash = hashing.CalculateSHA512(FamilyName)
		docPrefixHash = hashing.CalculateSHA512(docPrefix)
		hashPrefixHash = hashing.CalculateSHA512(hashPrefix)
		userPrefixHash = hashing.CalculateSHA512(userPrefix)
		configPrefixHash = hashing.CalculateSHA512(configPrefix)
	})
}

// Namespace returns the 6 character prefix shared by all addresses of the family.
func Namespace() string {
	initHashVars()
	return familyHash[0:6]
}

func GetDocAddress(key model.DocKey) (address string) {
	initHashVars()

	ownerHash := hashing.CalculateSHA512(key.Owner.String())
	idHash := hashing.CalculateSHA512(strconv.FormatUint(key.ID, 10))

	return familyHash[0:6] + docPrefixHash[0:6] + ownerHash[0:6] + idHash[0:52]
}

func GetHashAddress(hash model.Hash) (address string) {
	initHashVars()

	contentHash := hashing.Calculate(hash)

	return familyHash[0:6] + hashPrefixHash[0:6] + contentHash[0:58]
}

func GetUserAddress(user model.Account) (address string) {
	initHashVars()

	userHash := hashing.CalculateSHA512(user.String())

	return familyHash[0:6] + userPrefixHash[0:6] + userHash[0:58]
}

func GetConfigAddress() (address string) {
	initHashVars()

	return familyHash[0:6] + configPrefixHash[0:64]
}
