package dto

// InboundFaxWebhook is the form-encoded payload Twilio posts to the
// fax-receive endpoint.
type InboundFaxWebhook struct {
	To       string `form:"To" binding:"required"`
	From     string `form:"From" binding:"required"`
	NumPages string `form:"NumPages" binding:"required"`
	MediaURL string `form:"MediaUrl" binding:"required"`
}
