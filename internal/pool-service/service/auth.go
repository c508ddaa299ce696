package service

import (
	"context"
	"crypto/subtle"
	"errors"

	"github.com/radieske/bet-pool/internal/ledger"
)

var ErrInvalidPin = errors.New("invalid pin")

// VerifyPin devolve o participante dono do PIN.
// PIN vazio nas settings nunca autentica.
func (s *Service) VerifyPin(ctx context.Context, pin string) (ledger.Person, error) {
	if !pinPattern.MatchString(pin) {
		return "", ErrInvalidPin
	}
	settings, err := s.store.GetSettings(ctx)
	if err != nil {
		return "", storeErr("get settings", err)
	}
	for key, person := range map[string]ledger.Person{SettingPinA: ledger.PersonA, SettingPinB: ledger.PersonB} {
		want := settings[key]
		if want != "" && subtle.ConstantTimeCompare([]byte(want), []byte(pin)) == 1 {
			return person, nil
		}
	}
	return "", ErrInvalidPin
}

// PublicSettings esconde os PINs; só informa se estão definidos
func PublicSettings(in map[string]string) map[string]string {
	out := make(map[string]string, len(in))
	for k, v := range in {
		if (k == SettingPinA || k == SettingPinB) && v != "" {
			v = "****"
		}
		out[k] = v
	}
	return out
}
