package fingerprint

import (
	"encoding/json"
	"fmt"
	"net/mail"
	"regexp"
	"strings"
)

var walletPattern = regexp.MustCompile(`^0x[0-9a-fA-F]{40}$`)

// OwnerRef identifies the creator that registered a fingerprint. Exactly one of
// Wallet or Email is set.
type OwnerRef struct {
	Wallet string
	Email  string
}

// WalletOwner builds an owner reference from a 0x-prefixed 20-byte address.
func WalletOwner(address string) (OwnerRef, error) {
	address = strings.TrimSpace(address)
	if !walletPattern.MatchString(address) {
		return OwnerRef{}, Wrap(ErrValidation, "fingerprint", "owner", fmt.Sprintf("invalid wallet address %q", address), nil)
	}
	return OwnerRef{Wallet: strings.ToLower(address)}, nil
}

// EmailOwner builds an owner reference from a bare email address.
func EmailOwner(address string) (OwnerRef, error) {
	address = strings.TrimSpace(address)
	parsed, err := mail.ParseAddress(address)
	if err != nil || parsed.Address != address {
		return OwnerRef{}, Wrap(ErrValidation, "fingerprint", "owner", fmt.Sprintf("invalid email address %q", address), nil)
	}
	return OwnerRef{Email: strings.ToLower(address)}, nil
}

// ParseOwnerRef accepts either form and picks the matching constructor.
func ParseOwnerRef(value string) (OwnerRef, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return OwnerRef{}, Wrap(ErrValidation, "fingerprint", "owner", "owner is required", nil)
	}
	if strings.HasPrefix(strings.ToLower(value), "0x") {
		return WalletOwner(value)
	}
	return EmailOwner(value)
}

// IsZero reports whether neither identifier is set.
func (o OwnerRef) IsZero() bool {
	return o.Wallet == "" && o.Email == ""
}

// Validate enforces the exactly-one-of rule.
func (o OwnerRef) Validate() error {
	switch {
	case o.Wallet != "" && o.Email != "":
		return Wrap(ErrValidation, "fingerprint", "owner", "wallet and email are mutually exclusive", nil)
	case o.Wallet != "":
		if !walletPattern.MatchString(o.Wallet) {
			return Wrap(ErrValidation, "fingerprint", "owner", fmt.Sprintf("invalid wallet address %q", o.Wallet), nil)
		}
	case o.Email != "":
		if _, err := mail.ParseAddress(o.Email); err != nil {
			return Wrap(ErrValidation, "fingerprint", "owner", fmt.Sprintf("invalid email address %q", o.Email), nil)
		}
	default:
		return Wrap(ErrValidation, "fingerprint", "owner", "owner is required", nil)
	}
	return nil
}

// Kind returns "wallet", "email", or "" for an empty reference.
func (o OwnerRef) Kind() string {
	switch {
	case o.Wallet != "":
		return "wallet"
	case o.Email != "":
		return "email"
	default:
		return ""
	}
}

// String returns whichever identifier is set.
func (o OwnerRef) String() string {
	if o.Wallet != "" {
		return o.Wallet
	}
	return o.Email
}

// MarshalJSON renders the owner as a plain string at the boundary.
func (o OwnerRef) MarshalJSON() ([]byte, error) {
	return json.Marshal(o.String())
}

// UnmarshalJSON accepts the plain string form; an empty string yields a zero owner.
func (o *OwnerRef) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if strings.TrimSpace(raw) == "" {
		*o = OwnerRef{}
		return nil
	}
	parsed, err := ParseOwnerRef(raw)
	if err != nil {
		return err
	}
	*o = parsed
	return nil
}
