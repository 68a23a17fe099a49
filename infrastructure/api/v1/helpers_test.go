package v1_test

import "github.com/atas-platform/atas/domain/account"

func accountUpdate(bio string) account.ProfileUpdate {
	return account.ProfileUpdate{Bio: &bio}
}
