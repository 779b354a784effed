package enum

// IngestionOutcome is the terminal state of one ingestion pipeline run.
type IngestionOutcome string

const (
	IngestionStored       IngestionOutcome = "stored"
	IngestionRejected     IngestionOutcome = "rejected"
	IngestionNoAttachment IngestionOutcome = "no_attachment"
	IngestionStoreFailed  IngestionOutcome = "store_failed"
)

func (t IngestionOutcome) String() string {
	return string(t)
}

// Success reports whether the run produced a stored fax job.
func (t IngestionOutcome) Success() bool {
	return t == IngestionStored
}
