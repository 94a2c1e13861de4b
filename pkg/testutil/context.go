package testutil

import (
	"net/http"

	id "ingestgate/pkg/domain"
	"ingestgate/pkg/requestcontext"
)

// WithPartner attaches a resolved partner to the request context, as the
// gate does for authenticated requests. Invalid ids are ignored.
func WithPartner(req *http.Request, partnerID string) *http.Request {
	parsed, err := id.ParsePartnerID(partnerID)
	if err != nil {
		return req
	}
	return req.WithContext(requestcontext.WithPartnerID(req.Context(), parsed))
}
