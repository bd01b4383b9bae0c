package core

import (
	"github.com/rs/zerolog"
)

type Services struct {
	Profile   *ProfileService
	Sweeper   *SweeperService
	AuthToken *AuthTokenService
}

// NewServices wires the service layer. tables is the ordered list of
// user-profile locations, primary first.
func NewServices(db DB, tables []string, logger zerolog.Logger) *Services {
	return &Services{
		Profile:   NewProfileService(db, tables, logger),
		Sweeper:   NewSweeperService(db, tables, logger),
		AuthToken: NewAuthTokenService(db),
	}
}
