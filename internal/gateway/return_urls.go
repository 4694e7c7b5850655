package gateway

import (
	"net/url"
	"strings"
)

// SessionIDPlaceholder is replaced by the processor with the session id.
const SessionIDPlaceholder = "{CHECKOUT_SESSION_ID}"

const (
	OutcomeSuccess = "success"
	OutcomeCancel  = "cancel"
)

type ReturnURLs struct {
	Success string
	Cancel  string
}

// BuildReturnURLs encodes recordID into the success and cancel URLs of the
// return endpoint under base.
func BuildReturnURLs(base, recordID string) ReturnURLs {
	return ReturnURLs{
		Success: returnURL(base, recordID, OutcomeSuccess) + "&session_id=" + SessionIDPlaceholder,
		Cancel:  returnURL(base, recordID, OutcomeCancel),
	}
}

// InlineReturnURL is where the processor sends the buyer after an extra
// authentication step on the inline path.
func InlineReturnURL(base, recordID string) string {
	return returnURL(base, recordID, OutcomeSuccess)
}

func returnURL(base, recordID, outcome string) string {
	q := url.Values{}
	q.Set("record_id", recordID)
	q.Set("outcome", outcome)
	return strings.TrimRight(base, "/") + "/checkout/return?" + q.Encode()
}
