package service

import (
	"strings"

	"numium/config"
	"numium/internal/model"
)

const DefaultMarker = "*// "

// AuthorizationPolicy decides whether an inbound message may be treated as an authorized
// instruction. Implementations must be pure: the same inputs always yield the same outcome.
type AuthorizationPolicy interface {
	Authorize(message, claimedPrincipal string) model.AuthorizationOutcome
}

// MarkerPolicy authorizes messages that begin with a fixed marker. The marker is a naming
// convention, not a signature.
type MarkerPolicy struct {
	marker string
}

func NewMarkerPolicy(marker string) *MarkerPolicy {
	if marker == "" {
		marker = DefaultMarker
	}
	return &MarkerPolicy{marker: marker}
}

func NewAuthorizationPolicy(config *config.Config) AuthorizationPolicy {
	return NewMarkerPolicy(config.Auth.Marker)
}

func (p *MarkerPolicy) Authorize(message, claimedPrincipal string) model.AuthorizationOutcome {
	if !strings.HasPrefix(message, p.marker) {
		return model.Rejected(model.ReasonInvalidAuthorization)
	}
	if strings.TrimSpace(claimedPrincipal) == "" {
		return model.Rejected(model.ReasonMissingPrincipal)
	}
	return model.Authorized(claimedPrincipal, strings.TrimPrefix(message, p.marker))
}
