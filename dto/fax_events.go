package dto

// EmailReceived fires when the mail-receiving service deposits a raw inbound
// message into the email bucket.
type EmailReceived struct {
	Bucket string `json:"bucket"`
	Key    string `json:"key"`
}

// FaxJobStored fires when the ingestion pipeline writes a fax job PDF into
// the send-fax bucket. The job itself is the stored object plus its metadata.
type FaxJobStored struct {
	Bucket string `json:"bucket"`
	Key    string `json:"key"`
}

// FaxReceived fires when an inbound fax PDF lands in the receive-fax bucket.
type FaxReceived struct {
	Bucket string `json:"bucket"`
	Key    string `json:"key"`
}
