package api

const viewEndpoint = "/view"

type viewPayload struct {
	Clip     int64 `json:"clip"`
	Duration int   `json:"duration"`
}

// ReportView records how far through a clip the user is, as an integer
// percentage. Reports are fire-and-forget at the call sites; a failure
// here is logged by the caller and never retried.
func (c *Client) ReportView(clipID int64, percent int) error {
	return c.post(viewEndpoint, viewPayload{Clip: clipID, Duration: percent}, "", nil)
}
