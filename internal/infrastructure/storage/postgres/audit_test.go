package postgres

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuditService_EncodeCompressesLargePayloads(t *testing.T) {
	svc, err := NewAuditService(nil)
	require.NoError(t, err)

	small := []byte(`{"status":"confirmed"}`)
	changes, compressed, algo := svc.encode(small)
	assert.Equal(t, CompressionNone, algo)
	assert.Nil(t, compressed)
	assert.Equal(t, small, []byte(changes))

	large := bytes.Repeat([]byte(`{"item":"sugar","qty":"1.0000"},`), 1000)
	changes, compressed, algo = svc.encode(large)
	assert.Equal(t, CompressionZstd, algo)
	assert.Nil(t, changes)
	assert.Less(t, len(compressed), len(large))

	entry := AuditEntry{ChangesCompressed: compressed, CompressionAlgo: algo}
	require.NoError(t, svc.decode(&entry))
	assert.Equal(t, large, []byte(entry.Changes))
}
