package faxjob

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildStorageKey(t *testing.T) {
	sent := time.Date(2024, time.March, 15, 10, 30, 0, 0, time.UTC)

	date := FormatDate(sent)
	timeOfDay := FormatTime(sent)
	key := BuildStorageKey("alice@example.com", date, timeOfDay)

	assert.Equal(t, "2024-15-03", date)
	assert.Equal(t, "10:30:00", timeOfDay)
	assert.Equal(t, "alice@example.com_2024-15-03_10:30:00.pdf", key)
}

func TestBuildStorageKey_Deterministic(t *testing.T) {
	sent := time.Date(2023, time.December, 1, 23, 59, 59, 0, time.UTC)

	first := BuildStorageKey("bob@example.com", FormatDate(sent), FormatTime(sent))
	second := BuildStorageKey("bob@example.com", FormatDate(sent), FormatTime(sent))

	assert.Equal(t, first, second)
}

func TestFormatDate_NormalizesToUTC(t *testing.T) {
	est := time.FixedZone("EST", -5*60*60)
	// 22:30 EST crosses midnight in UTC
	sent := time.Date(2024, time.March, 15, 22, 30, 0, 0, est)

	assert.Equal(t, "2024-16-03", FormatDate(sent))
	assert.Equal(t, "03:30:00", FormatTime(sent))
}

func TestBuildMetadata(t *testing.T) {
	metadata, err := BuildMetadata("alice@example.com", "+15551230001", "+15551239999", "2024-15-03", "10:30:00", "contract.pdf")
	require.NoError(t, err)

	assert.Equal(t, map[string]string{
		MetaFromEmail: "alice@example.com",
		MetaFromPhone: "+15551230001",
		MetaToPhone:   "+15551239999",
		MetaDate:      "2024-15-03",
		MetaTime:      "10:30:00",
		MetaFilename:  "contract.pdf",
	}, metadata)
}

func TestBuildMetadata_RejectsNonASCIIIdentity(t *testing.T) {
	_, err := BuildMetadata("alicé@example.com", "+15551230001", "+15551239999", "2024-15-03", "10:30:00", "contract.pdf")
	assert.Error(t, err)
}

func TestBuildMetadata_SanitizesFilename(t *testing.T) {
	metadata, err := BuildMetadata("alice@example.com", "+15551230001", "+15551239999", "2024-15-03", "10:30:00", "rapport-détaillé.pdf")
	require.NoError(t, err)

	assert.Equal(t, "rapport-d?taill?.pdf", metadata[MetaFilename])
}

func TestBuildReceivedFaxKey(t *testing.T) {
	now := time.Date(2024, time.March, 15, 10, 30, 0, 0, time.UTC)

	assert.Equal(t, "Fax_2024-15-03_10:30:00.pdf", BuildReceivedFaxKey(now))
}

func TestBuildReceivedFaxMetadata(t *testing.T) {
	metadata := BuildReceivedFaxMetadata("+15551239999", "+15551230001", "3")

	assert.Equal(t, "+15551239999", metadata[MetaToNumber])
	assert.Equal(t, "+15551230001", metadata[MetaFromNumber])
	assert.Equal(t, "3", metadata[MetaPages])
}
